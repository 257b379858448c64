package api

import (
	"github.com/gin-gonic/gin"

	"github.com/skillsenselab/voiceclip/progress"
	"github.com/skillsenselab/voiceclip/server/middleware"
	"github.com/skillsenselab/voiceclip/sse"
)

// Deps carries everything the route handlers need.
type Deps struct {
	ServiceName string
	Version     string
	ScratchDir  string
	Submitter   Submitter
	Progress    *progress.Store
	Hub         *sse.Hub
	QueueStats  QueueStats
	InferenceUp Availability

	// SubmitRatePerMinute limits submissions per client IP. Zero disables.
	SubmitRatePerMinute int
}

// RegisterRoutes mounts the API on the given engine.
func RegisterRoutes(e *gin.Engine, deps Deps) {
	e.GET("/health", HealthHandler(deps.ServiceName, deps.Version, deps.QueueStats, deps.InferenceUp))

	submit := SubmitHandler(deps.Submitter, deps.ScratchDir)
	if deps.SubmitRatePerMinute > 0 {
		e.POST("/api/videos", middleware.RateLimit(deps.SubmitRatePerMinute), submit)
	} else {
		e.POST("/api/videos", submit)
	}

	e.GET("/api/videos/:id", StatusHandler(deps.Progress))
	e.GET("/api/videos/:id/events", EventsHandler(deps.Progress, deps.Hub))
}
