package api

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/prayertimes/api/handler"
	"github.com/use-agent/prayertimes/api/middleware"
	"github.com/use-agent/prayertimes/config"
)

// NewRouter creates a configured Gin engine with all routes and middleware.
// ctx bounds background work started by middleware.
//
// Middleware chain:
//
//	Global:  Recovery → Logger → CORS
//	Data:    Auth (if enabled) → RateLimit
//
// Health stays outside auth.
// The data routes are served both at the root, where existing clients
// call them, and under /api/v1.
func NewRouter(ctx context.Context, store *handler.Store, cfg *config.Config, startTime time.Time) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.Logger())
	r.Use(middleware.CORS())

	v1 := r.Group("/api/v1")

	// Health: no auth required.
	v1.GET("/health", handler.Health(store, startTime))

	var guard []gin.HandlerFunc
	if cfg.Auth.Enabled {
		guard = append(guard, middleware.Auth(cfg.Auth.APIKeys))
	}
	guard = append(guard, middleware.RateLimit(ctx, cfg.RateLimit))

	for _, g := range []*gin.RouterGroup{r.Group("", guard...), v1.Group("", guard...)} {
		g.GET("/times", handler.Times(store))
		g.GET("/cities", handler.Cities(store))
	}

	return r
}
