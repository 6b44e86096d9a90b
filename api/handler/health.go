package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/prayertimes/models"
)

// Version is reported by the health endpoint.
const Version = "0.1.0"

// Health returns a handler for GET /api/v1/health.
//
// Status is "empty" while the store holds no city, so a probe can tell a
// server started on a failed scrape from a healthy one.
func Health(store *Store, startTime time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		agg := store.Aggregate()

		status := "healthy"
		if agg.Len() == 0 {
			status = "empty"
		}

		c.JSON(http.StatusOK, models.HealthResponse{
			Status:  status,
			Uptime:  time.Since(startTime).Round(time.Second).String(),
			Cities:  agg.Len(),
			Records: agg.Records(),
			Source:  store.Source(),
			Version: Version,
		})
	}
}
