package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/lernio/lernio-backend/internal/config"
	"github.com/lernio/lernio-backend/internal/handler"
	"github.com/lernio/lernio-backend/internal/middleware"
	"github.com/lernio/lernio-backend/internal/model"
	"github.com/lernio/lernio-backend/internal/response"
	"github.com/lernio/lernio-backend/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth        *handler.AuthHandler
	Assessment  *handler.AssessmentHandler
	Session     *handler.SessionHandler
	Certificate *handler.CertificateHandler
	Progress    *handler.ProgressHandler
	Review      *handler.ReviewHandler
	WS          *handler.WSHandler
	System      *handler.SystemHandler
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

	// Apply brotli middleware globally.
	router.Use(middleware.Brotli())

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	// Rate limiter for auth routes (30 requests per minute per IP).
	authLimiter := middleware.NewRateLimiter(30, time.Minute)

	// ─── 1. Auth Group (Public, Rate Limited) ──────────────────────────
	auth := router.Group("/api/v1/auth")
	auth.Use(authLimiter.Middleware())
	{
		auth.POST("/register", handlers.Auth.Register)
		auth.POST("/login", handlers.Auth.Login)

		// Authenticated profile routes
		auth.POST("/logout", middleware.RequireAuth(authService), handlers.Auth.Logout)
		auth.GET("/me", middleware.RequireAuth(authService), handlers.Auth.Me)
	}

	// ─── 2. Public verification ────────────────────────────────────────
	router.GET("/api/v1/certificates/verify/:serial",
		middleware.CacheControl(300), handlers.Certificate.Verify)

	// ─── 3. Learner Group ──────────────────────────────────────────────
	learnerAPI := router.Group("/api/v1")
	learnerAPI.Use(middleware.RequireAuth(authService))
	{
		learnerAPI.GET("/assessments", handlers.Assessment.ListCatalog)
		learnerAPI.GET("/assessments/:id", handlers.Assessment.Get)
		learnerAPI.GET("/assessments/:id/questions", handlers.Assessment.GetQuestions)

		learnerAPI.POST("/sessions", handlers.Session.Start)
		learnerAPI.GET("/sessions", handlers.Session.History)
		learnerAPI.GET("/sessions/:id", handlers.Session.Get)
		learnerAPI.POST("/sessions/:id/answers", handlers.Session.SubmitAnswer)
		learnerAPI.POST("/sessions/:id/pause", handlers.Session.Pause)
		learnerAPI.POST("/sessions/:id/resume", handlers.Session.Resume)
		learnerAPI.POST("/sessions/:id/complete", handlers.Session.Complete)
		learnerAPI.POST("/sessions/:id/abandon", handlers.Session.Abandon)

		learnerAPI.GET("/certificates", handlers.Certificate.ListMine)
		learnerAPI.GET("/progress", handlers.Progress.Me)
	}

	// ─── 4. Authoring Group (Author/Admin) ─────────────────────────────
	authoringAPI := router.Group("/api/v1/authoring")
	authoringAPI.Use(middleware.RequireRole(authService, model.RoleAuthor))
	{
		authoringAPI.GET("/assessments", handlers.Assessment.ListMine)
		authoringAPI.POST("/assessments", handlers.Assessment.Create)
		authoringAPI.PUT("/assessments/:id", handlers.Assessment.Update)
		authoringAPI.POST("/assessments/:id/publish", handlers.Assessment.Publish)
		authoringAPI.POST("/assessments/:id/archive", handlers.Assessment.Archive)
		authoringAPI.GET("/assessments/:id/questions", handlers.Assessment.ListQuestions)
		authoringAPI.PUT("/assessments/:id/questions", handlers.Assessment.ReplaceQuestions)
		authoringAPI.POST("/assessments/:id/generate", handlers.Assessment.GenerateQuestions)
		authoringAPI.GET("/assessments/:id/sessions", handlers.Session.ListForAssessment)

		authoringAPI.GET("/reviews", handlers.Review.ListPending)
		authoringAPI.POST("/reviews/:id/resolve", handlers.Review.Resolve)
	}

	// ─── 5. WebSocket Group (WS Auth via query token) ──────────────────
	ws := router.Group("/ws/v1")
	ws.Use(middleware.RequireWSAuth(authService, model.RoleAuthor))
	{
		ws.GET("/assessments/:id/monitor", handlers.WS.MonitorStream)
	}

	// ─── 6. Admin Group ────────────────────────────────────────────────
	adminAPI := router.Group("/api/v1/admin")
	adminAPI.Use(middleware.RequireRole(authService, model.RoleAdmin))
	{
		adminAPI.GET("/system/metrics", handlers.System.SystemMetricsSSE)
	}

	return router
}
