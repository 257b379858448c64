package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Validation errors
const (
	// ErrCodeInvalidInput indicates the input is invalid.
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
	// ErrCodeMissingField indicates a required field is missing.
	ErrCodeMissingField ErrorCode = "MISSING_FIELD"
	// ErrCodeInvalidFormat indicates a field has an invalid format.
	ErrCodeInvalidFormat ErrorCode = "INVALID_FORMAT"
)

// Resource errors
const (
	// ErrCodeNotFound indicates the requested resource was not found.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
)

// Pipeline errors
const (
	// ErrCodeNoMatchingSpeakers indicates no candidate speaker matched the reference voice.
	ErrCodeNoMatchingSpeakers ErrorCode = "NO_MATCHING_SPEAKERS"
	// ErrCodeNoSegmentsFound indicates no video segments exist for the matched speakers.
	ErrCodeNoSegmentsFound ErrorCode = "NO_SEGMENTS_FOUND"
	// ErrCodeUploadFailed indicates the output artifact could not be persisted.
	ErrCodeUploadFailed ErrorCode = "UPLOAD_FAILED"
	// ErrCodeCollaborator indicates a transcoding, fetch, or inference collaborator failed.
	ErrCodeCollaborator ErrorCode = "COLLABORATOR_FAILURE"
)

// Availability / internal errors
const (
	// ErrCodeServiceUnavailable indicates the service is temporarily unavailable.
	ErrCodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
	// ErrCodeTimeout indicates the request timed out.
	ErrCodeTimeout ErrorCode = "TIMEOUT"
	// ErrCodeInternal indicates an internal server error.
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

var retryableCodes = map[ErrorCode]bool{
	ErrCodeServiceUnavailable: true,
	ErrCodeTimeout:            true,
	ErrCodeUploadFailed:       true,
	ErrCodeCollaborator:       true,
}

// IsRetryableCode returns true if the error code indicates a retryable error.
func IsRetryableCode(code ErrorCode) bool {
	return retryableCodes[code]
}
