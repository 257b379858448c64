package api

import (
	"encoding/json"

	"github.com/gin-gonic/gin"

	"github.com/skillsenselab/voiceclip/errors"
	"github.com/skillsenselab/voiceclip/progress"
	"github.com/skillsenselab/voiceclip/server"
	"github.com/skillsenselab/voiceclip/sse"
)

// StatusResponse is the body returned for a status poll.
type StatusResponse struct {
	TaskID string `json:"task_id"`
	progress.Record
}

// StatusHandler reports the current progress record for a task.
// Unknown task ids get a 404.
func StatusHandler(store *progress.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		taskID := c.Param("id")
		rec, ok := store.Get(taskID)
		if !ok {
			server.RespondWithError(c, errors.NotFound("task", taskID))
			return
		}
		server.RespondOK(c, StatusResponse{TaskID: taskID, Record: rec})
	}
}

// EventsHandler streams progress updates for a task over SSE. The current
// record is sent first so late subscribers see the present state; the stream
// then follows hub publishes until the client disconnects.
func EventsHandler(store *progress.Store, hub *sse.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		taskID := c.Param("id")
		rec, ok := store.Get(taskID)
		if !ok {
			server.RespondWithError(c, errors.NotFound("task", taskID))
			return
		}

		initial, err := json.Marshal(StatusResponse{TaskID: taskID, Record: rec})
		if err != nil {
			server.RespondWithError(c, errors.Internal(err))
			return
		}
		sse.ServeProgress(hub, c.Writer, c.Request, taskID, initial)
	}
}
