package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/timisisipi/oposai-backend/internal/config"
	"github.com/timisisipi/oposai-backend/internal/handler"
	"github.com/timisisipi/oposai-backend/internal/middleware"
	"github.com/timisisipi/oposai-backend/internal/response"
	"github.com/timisisipi/oposai-backend/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Attempt *handler.AttemptHandler
	Tutor   *handler.TutorHandler
	WS      *handler.WSHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	authService *service.AuthService,
	handlers *Handlers,
	cfg *config.Config,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	// ─── Attempt Session (JWT) ─────────────────────────────────────────
	api := router.Group("/api/v1")
	api.Use(middleware.RequireUserJWT(authService))
	{
		attempts := api.Group("/attempts")
		{
			attempts.POST("", handlers.Attempt.Start)
			attempts.GET("/active", handlers.Attempt.GetActive)
			attempts.POST("/answers", handlers.Attempt.SubmitAnswer)
			attempts.POST("/marks", handlers.Attempt.ToggleMark)
			attempts.POST("/navigate", handlers.Attempt.Navigate)
			attempts.POST("/keys", handlers.Attempt.PressKey)
			attempts.POST("/finish", handlers.Attempt.Finish)
			attempts.GET("/history", handlers.Attempt.History)
		}

		api.GET("/topics", handlers.Attempt.ListTopics)

		// The tutor endpoint talks to a paid upstream, so it gets its own
		// rate limiter on top of auth.
		tutorLimiter := middleware.NewRateLimiter(10, time.Minute)
		api.POST("/tutor", tutorLimiter.Middleware(), handlers.Tutor.Explain)
	}

	// ─── WebSocket Session Stream ──────────────────────────────────────
	// Browsers cannot set Authorization headers on WebSocket requests,
	// so the token rides in the query string.
	wsGroup := router.Group("/ws/v1")
	wsGroup.Use(middleware.RequireUserWSAuth(authService))
	{
		wsGroup.GET("/attempts/stream", handlers.WS.AttemptStream)
	}

	return router
}
