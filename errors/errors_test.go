package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
)

func TestAppError_New(t *testing.T) {
	err := New(ErrCodeNotFound, "not found", http.StatusNotFound)
	if err.Code != ErrCodeNotFound {
		t.Errorf("expected code %s, got %s", ErrCodeNotFound, err.Code)
	}
	if err.HTTPStatus != http.StatusNotFound {
		t.Errorf("expected status %d, got %d", http.StatusNotFound, err.HTTPStatus)
	}
	if err.Retryable {
		t.Error("NOT_FOUND should not be retryable")
	}
}

func TestAppError_Collaborator_Retryable(t *testing.T) {
	cause := stderrors.New("connection refused")
	err := Collaborator("transcoder", cause)
	if !err.Retryable {
		t.Error("COLLABORATOR_FAILURE should be retryable")
	}
	if err.HTTPStatus != http.StatusBadGateway {
		t.Errorf("expected 502, got %d", err.HTTPStatus)
	}
	if err.Details["collaborator"] != "transcoder" {
		t.Errorf("expected collaborator=transcoder, got %v", err.Details["collaborator"])
	}
	if !stderrors.Is(err, cause) {
		t.Error("expected errors.Is to find the cause")
	}
}

func TestAppError_NoMatchingSpeakers(t *testing.T) {
	err := NoMatchingSpeakers()
	if err.Code != ErrCodeNoMatchingSpeakers {
		t.Errorf("expected NO_MATCHING_SPEAKERS, got %s", err.Code)
	}
	if err.Retryable {
		t.Error("NO_MATCHING_SPEAKERS should not be retryable")
	}
}

func TestAppError_NoSegmentsFound(t *testing.T) {
	err := NoSegmentsFound()
	if err.Code != ErrCodeNoSegmentsFound {
		t.Errorf("expected NO_SEGMENTS_FOUND, got %s", err.Code)
	}
}

func TestAppError_ErrorString(t *testing.T) {
	err := UploadFailed(stderrors.New("boom"))
	msg := err.Error()
	if !strings.Contains(msg, "UPLOAD_FAILED") {
		t.Errorf("expected code in message, got %q", msg)
	}
	if !strings.Contains(msg, "boom") {
		t.Errorf("expected cause in message, got %q", msg)
	}
}

func TestAppError_WithDetail(t *testing.T) {
	err := Validation("bad input").WithDetail("field", "video_url")
	if err.Details["field"] != "video_url" {
		t.Errorf("expected field detail, got %v", err.Details)
	}
}

func TestAsAppError(t *testing.T) {
	app := NotFound("task", "abc")
	wrapped := fmt.Errorf("handler: %w", app)
	got, ok := AsAppError(wrapped)
	if !ok {
		t.Fatal("expected AsAppError to succeed on wrapped error")
	}
	if got.Code != ErrCodeNotFound {
		t.Errorf("expected NOT_FOUND, got %s", got.Code)
	}

	if _, ok := AsAppError(stderrors.New("plain")); ok {
		t.Error("expected AsAppError to fail on plain error")
	}
}

func TestToResponse(t *testing.T) {
	resp := NotFound("task", "abc").ToResponse()
	if resp.Error.Code != ErrCodeNotFound {
		t.Errorf("expected NOT_FOUND, got %s", resp.Error.Code)
	}
	if resp.Error.Details["id"] != "abc" {
		t.Errorf("expected id detail, got %v", resp.Error.Details)
	}
}
