package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// QueueStats exposes dispatcher state for the health report.
type QueueStats interface {
	QueueDepth() int
}

// Availability reports whether a collaborator is reachable.
type Availability func(ctx context.Context) bool

// HealthHandler reports service health. The inference sidecar being down
// degrades the service but does not fail the check: queued tasks will fail,
// new submissions are still accepted.
func HealthHandler(serviceName, version string, stats QueueStats, inferenceUp Availability) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := "healthy"
		components := gin.H{}

		if stats != nil {
			components["queue_depth"] = stats.QueueDepth()
		}
		if inferenceUp != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			up := inferenceUp(ctx)
			cancel()
			components["inference"] = map[bool]string{true: "up", false: "down"}[up]
			if !up {
				status = "degraded"
			}
		}

		c.JSON(http.StatusOK, gin.H{
			"status":     status,
			"service":    serviceName,
			"version":    version,
			"timestamp":  time.Now().UTC().Format(time.RFC3339),
			"components": components,
		})
	}
}
