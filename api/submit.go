// Package api implements the HTTP handlers for the voiceclip service.
package api

import (
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/skillsenselab/voiceclip/errors"
	"github.com/skillsenselab/voiceclip/logger"
	"github.com/skillsenselab/voiceclip/pipeline"
	"github.com/skillsenselab/voiceclip/server"
	"github.com/skillsenselab/voiceclip/util"
	"github.com/skillsenselab/voiceclip/validation"
)

var (
	allowedAudioExts = map[string]bool{"wav": true, "mp3": true}
	allowedVideoExts = map[string]bool{"mp4": true, "avi": true, "mov": true, "mkv": true}
)

// submitForm binds the multipart fields of a clip request. The video itself
// arrives either as the video_file part or as youtube_url.
type submitForm struct {
	YoutubeURL string `form:"youtube_url" validate:"omitempty,url"`
}

// SubmitResponse is the body returned for an accepted task.
type SubmitResponse struct {
	TaskID string `json:"task_id"`
	Status string `json:"status"`
}

// Submitter queues a task for processing.
type Submitter interface {
	Submit(task *pipeline.Task) error
}

// SubmitHandler accepts a clip request: a reference voice sample plus either
// an uploaded video file or a remote video URL, never both. The work is
// queued and a task id returned immediately.
func SubmitHandler(submitter Submitter, scratchDir string) gin.HandlerFunc {
	log := logger.WithComponent("api")

	return func(c *gin.Context) {
		var form submitForm
		if err := c.ShouldBind(&form); err != nil {
			server.RespondWithError(c, errors.Validation(err.Error()))
			return
		}
		if err := validation.Validate(&form); err != nil {
			server.RespondWithError(c, err)
			return
		}

		audioFile, err := c.FormFile("reference_audio")
		if err != nil {
			server.RespondWithError(c, errors.MissingField("reference_audio"))
			return
		}
		if ext := util.FileExt(audioFile.Filename); !allowedAudioExts[ext] {
			server.RespondWithError(c, errors.InvalidFormat("reference_audio", "wav or mp3"))
			return
		}

		videoFile, videoErr := c.FormFile("video_file")
		hasUpload := videoErr == nil
		hasURL := form.YoutubeURL != ""

		// Exactly one video source.
		if hasUpload == hasURL {
			server.RespondWithError(c, errors.Validation(
				"provide exactly one of video_file and youtube_url"))
			return
		}
		if hasUpload {
			if ext := util.FileExt(videoFile.Filename); !allowedVideoExts[ext] {
				server.RespondWithError(c, errors.InvalidFormat("video_file", "mp4, avi, mov, or mkv"))
				return
			}
		}

		taskID := uuid.NewString()
		dir := filepath.Join(scratchDir, taskID)
		if err := os.MkdirAll(dir, 0o750); err != nil {
			server.RespondWithError(c, errors.Internal(err))
			return
		}

		task := &pipeline.Task{ID: taskID, Dir: dir}

		refName := util.SanitizeFilename(audioFile.Filename, "reference.wav")
		task.ReferencePath = filepath.Join(dir, refName)
		if err := saveMultipartFile(audioFile, task.ReferencePath); err != nil {
			cleanupDir(log, dir)
			server.RespondWithError(c, errors.Internal(fmt.Errorf("save audio: %w", err)))
			return
		}

		if hasUpload {
			videoName := util.SanitizeFilename(videoFile.Filename, "upload.mp4")
			task.VideoPath = filepath.Join(dir, videoName)
			if err := saveMultipartFile(videoFile, task.VideoPath); err != nil {
				cleanupDir(log, dir)
				server.RespondWithError(c, errors.Internal(fmt.Errorf("save video: %w", err)))
				return
			}
		} else {
			task.VideoURL = form.YoutubeURL
		}

		if err := submitter.Submit(task); err != nil {
			cleanupDir(log, dir)
			server.RespondWithError(c, errors.New(
				errors.ErrCodeServiceUnavailable, "service is shutting down", 503))
			return
		}

		log.Info("task accepted", logger.Fields(
			logger.FieldTaskID, taskID,
			"remote_video", task.VideoURL != "",
		))
		server.RespondAccepted(c, SubmitResponse{TaskID: taskID, Status: "accepted"})
	}
}

func saveMultipartFile(fh *multipart.FileHeader, dst string) error {
	src, err := fh.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, src)
	return err
}

func cleanupDir(log *logger.Logger, dir string) {
	if err := os.RemoveAll(dir); err != nil {
		log.Warn("scratch cleanup failed", logger.ErrorFields("cleanup", err))
	}
}
