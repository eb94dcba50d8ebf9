package server

import (
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/okrboard/okrboard-backend/internal/handlers"
	"github.com/okrboard/okrboard-backend/internal/middleware"
	"github.com/okrboard/okrboard-backend/internal/utils"
)

type RouterConfig struct {
	AuthMiddleware   *middleware.AuthMiddleware
	TenantMiddleware *middleware.TenantMiddleware
	ObjectiveHandler *handlers.ObjectiveHandler
	KeyResultHandler *handlers.KeyResultHandler
	MemberHandler    *handlers.MemberHandler
	AlignmentHandler *handlers.AlignmentHandler
	AIHandler        *handlers.AIHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	router.Use(otelgin.Middleware("okrboard-backend"))

	// Cors
	origins := strings.Split(utils.GetEnv("CORS_ALLOW_ORIGINS", "http://localhost:3000,http://localhost:5173", nil), ",")
	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With", "x-tenant-id"},
		AllowCredentials: true,
	}))

	// ===============
	// || Public    ||
	// ===============
	router.GET("/healthcheck", handlers.HealthCheck)
	router.GET("/api/ai/status", cfg.AIHandler.Status)

	// ===============
	// || Protected ||
	// ===============
	api := router.Group("/api")
	api.Use(cfg.AuthMiddleware.RequireAuth())
	api.Use(cfg.TenantMiddleware.EnsureTenant())

	// Objectives
	api.POST("/objectives", cfg.ObjectiveHandler.Create)
	api.GET("/objectives", cfg.ObjectiveHandler.List)
	api.GET("/objectives/:id", cfg.ObjectiveHandler.Get)
	api.PATCH("/objectives/:id/status", cfg.ObjectiveHandler.UpdateStatus)
	api.GET("/objectives/:id/delete-info", cfg.ObjectiveHandler.DeleteInfo)
	api.DELETE("/objectives/:id", cfg.ObjectiveHandler.Delete)

	// Key results
	api.POST("/objectives/:id/keyresults", cfg.KeyResultHandler.Create)
	api.GET("/objectives/:id/keyresults", cfg.KeyResultHandler.List)
	api.GET("/keyresults/:krId/delete-info", cfg.KeyResultHandler.DeleteInfo)
	api.DELETE("/keyresults/:krId", cfg.KeyResultHandler.Delete)

	// Check-ins
	api.POST("/keyresults/:krId/checkins", cfg.KeyResultHandler.CreateCheckin)
	api.GET("/keyresults/:krId/checkins", cfg.KeyResultHandler.ListCheckins)

	// Members
	api.GET("/objectives/:id/members", cfg.MemberHandler.List)
	api.POST("/objectives/:id/members", cfg.MemberHandler.Add)
	api.PATCH("/objectives/:id/members/:userId", cfg.MemberHandler.UpdateRole)
	api.DELETE("/objectives/:id/members/:userId", cfg.MemberHandler.Remove)

	// Alignment
	api.POST("/objectives/:id/align", cfg.AlignmentHandler.Align)
	api.DELETE("/objectives/:id/align/:parentId", cfg.AlignmentHandler.Unalign)
	api.GET("/objectives/:id/aligned-to", cfg.AlignmentHandler.ListAlignedTo)
	api.GET("/objectives/:id/aligned-from", cfg.AlignmentHandler.ListAlignedFrom)

	// AI assist
	api.POST("/ai/okr/draft", cfg.AIHandler.Draft)
	api.POST("/ai/validate/objective", cfg.AIHandler.ValidateObjective)
	api.POST("/ai/validate/keyresult", cfg.AIHandler.ValidateKeyResult)

	return router
}
