package pipeline

// Task is one clipping job. Exactly one of VideoURL and VideoPath is set:
// VideoURL for remote videos fetched by the pipeline, VideoPath for uploads
// already saved into the task's scratch directory.
type Task struct {
	// ID is the task identifier handed back to the client.
	ID string

	// VideoURL is the remote video location, empty for uploads.
	VideoURL string

	// VideoPath is the uploaded video file, empty for remote videos.
	VideoPath string

	// ReferencePath is the reference voice sample on disk.
	ReferencePath string

	// Dir is the task's scratch directory, removed when the task finishes.
	Dir string
}
