// internal/api/router.go
package api

import (
	"fmt"
	"time"

	"github.com/Corphon/DreamScape/internal/config"
	"github.com/Corphon/DreamScape/internal/di"
	"github.com/Corphon/DreamScape/internal/services"
	"github.com/gin-gonic/gin"
)

// Interpretation requests per session and client within interpretWindow.
const (
	interpretLimit  = 30
	interpretWindow = time.Minute
)

// NewHandlerFromContainer resolves the services registered by app.InitServices.
func NewHandlerFromContainer(container *di.Container) (*Handler, error) {
	dreamService, err := di.Resolve[*services.DreamService](container, "dream")
	if err != nil {
		return nil, err
	}
	sessionService, err := di.Resolve[*services.SessionService](container, "session")
	if err != nil {
		return nil, err
	}
	shareService, err := di.Resolve[*services.ShareService](container, "share")
	if err != nil {
		return nil, err
	}
	exportService, err := di.Resolve[*services.ExportService](container, "export")
	if err != nil {
		return nil, err
	}
	renderService, err := di.Resolve[*services.RenderService](container, "render")
	if err != nil {
		return nil, err
	}
	progressService, err := di.Resolve[*services.ProgressService](container, "progress")
	if err != nil {
		return nil, err
	}
	configService, err := di.Resolve[*services.ConfigService](container, "config")
	if err != nil {
		return nil, err
	}

	return NewHandler(
		dreamService,
		sessionService,
		shareService,
		exportService,
		renderService,
		progressService,
		configService,
	), nil
}

// SetupRouter builds the HTTP router over the services in the global container.
func SetupRouter() (*gin.Engine, *Handler, error) {
	handler, err := NewHandlerFromContainer(di.GetContainer())
	if err != nil {
		return nil, nil, fmt.Errorf("services not initialized: %w", err)
	}
	return NewRouter(handler, config.GetCurrentConfig().DebugMode), handler, nil
}

// NewRouter registers every route on a fresh engine.
func NewRouter(handler *Handler, debug bool) *gin.Engine {
	if !debug {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(RequestIDMiddleware())
	r.Use(RecoveryMiddleware(handler.Response))
	r.Use(corsMiddleware())
	r.Use(SessionMiddleware())
	r.Use(RequestLoggerMiddleware(handler.Metrics))

	limiter := NewRateLimiter()
	interpretLimiter := RateLimitMiddleware(limiter, interpretLimit, interpretWindow, handler.Response)

	// render stream
	r.GET("/ws/dreams/:id/render", handler.RenderWebSocket)

	api := r.Group("/api")
	{
		api.GET("/health", handler.Health)
		api.GET("/metrics", handler.GetMetrics)

		// ===============================
		// dreams
		// ===============================
		dreams := api.Group("/dreams")
		{
			dreams.POST("", interpretLimiter, handler.InterpretDream)
			dreams.POST("/async", interpretLimiter, handler.InterpretDreamAsync)
			dreams.GET("", handler.ListDreams)
			dreams.GET("/:id", handler.GetDream)
			dreams.POST("/:id/share", handler.ShareDream)
			dreams.GET("/:id/export", handler.ExportDream)
			dreams.GET("/:id/scenes/:index/frame", handler.RenderFrame)
		}

		api.GET("/share/:token", handler.GetSharedDream)

		// ===============================
		// background tasks
		// ===============================
		api.GET("/progress/:taskID", handler.SubscribeProgress)
		api.POST("/cancel/:taskID", handler.CancelTask)

		// ===============================
		// session
		// ===============================
		session := api.Group("/session")
		{
			session.GET("", handler.GetSession)
			session.PUT("/transcript", handler.UpdateTranscript)
			session.PUT("/mode", handler.SetRenderMode)
			session.PUT("/scene", handler.SetSceneIndex)
			session.POST("/reset", handler.ResetSession)
		}

		// ===============================
		// settings
		// ===============================
		settings := api.Group("/settings")
		{
			settings.GET("", handler.GetSettings)
			settings.PUT("/interpreter", handler.UpdateInterpreterSettings)
			settings.PUT("/render", handler.UpdateRenderSettings)
			settings.GET("/history", handler.GetSettingsHistory)
		}

		api.GET("/ws/status", handler.GetWebSocketStatus)
	}

	return r
}
