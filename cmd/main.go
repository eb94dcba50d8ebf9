package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/okrboard/okrboard-backend/internal/db"
	"github.com/okrboard/okrboard-backend/internal/handlers"
	"github.com/okrboard/okrboard-backend/internal/logger"
	"github.com/okrboard/okrboard-backend/internal/middleware"
	"github.com/okrboard/okrboard-backend/internal/observability"
	"github.com/okrboard/okrboard-backend/internal/repos"
	"github.com/okrboard/okrboard-backend/internal/server"
	"github.com/okrboard/okrboard-backend/internal/services"
	"github.com/okrboard/okrboard-backend/internal/utils"
)

func main() {
	_ = godotenv.Load()

	// Logger
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Tracing
	ctx := context.Background()
	shutdownOTel := observability.InitOTel(ctx, log, observability.OtelConfig{
		ServiceName: "okrboard-backend",
		Environment: utils.GetEnv("APP_ENV", "development", log),
		Version:     utils.GetEnv("APP_VERSION", "dev", log),
	})
	defer func() {
		if err := shutdownOTel(ctx); err != nil {
			log.Warn("OTel shutdown failed", "error", err)
		}
	}()

	// Postgres
	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Fatal("Postgres init failed", "error", err)
	}
	if err = postgresService.AutoMigrateAll(); err != nil {
		log.Fatal("Postgres auto migration failed", "error", err)
	}
	thePG := postgresService.DB()

	// Repos
	log.Info("Setting up Repos from main...")
	tenantRepo := repos.NewTenantRepo(thePG, log)
	objectiveRepo := repos.NewObjectiveRepo(thePG, log)
	keyResultRepo := repos.NewKeyResultRepo(thePG, log)
	checkinRepo := repos.NewCheckinRepo(thePG, log)
	alignmentRepo := repos.NewAlignmentRepo(thePG, log)
	membershipRepo := repos.NewMembershipRepo(thePG, log)
	insightRepo := repos.NewInsightRepo(thePG, log)

	// Services
	log.Info("Setting up Services from main...")
	aiClient := services.NewAIClient(log)
	insightProvider := services.NewAIInsightProvider(log, aiClient)
	insightEngine := services.NewInsightEngine(log, insightProvider)
	insightCascade := services.NewInsightCascade(log, objectiveRepo, keyResultRepo, checkinRepo, insightRepo, insightEngine)
	validationService := services.NewOkrValidationService(log, aiClient)
	authzService := services.NewAuthzService(log, membershipRepo)
	alignmentService := services.NewAlignmentService(log, objectiveRepo, alignmentRepo)
	userResolver := services.NewDirectoryUserResolver(log)
	objectiveService := services.NewObjectiveService(thePG, log, objectiveRepo, keyResultRepo, checkinRepo, insightRepo, membershipRepo, insightCascade)
	keyResultService := services.NewKeyResultService(thePG, log, objectiveRepo, keyResultRepo, checkinRepo, insightRepo, validationService, insightCascade)
	checkinService := services.NewCheckinService(thePG, log, keyResultRepo, checkinRepo, insightCascade)
	membershipService := services.NewMembershipService(log, objectiveRepo, membershipRepo, userResolver)

	// Middleware
	log.Info("Setting up Middleware from main...")
	authMiddleware := middleware.NewAuthMiddleware(log)
	tenantMiddleware := middleware.NewTenantMiddleware(log, tenantRepo)

	// Handlers
	log.Info("Setting up Handlers from main...")
	objectiveHandler := handlers.NewObjectiveHandler(objectiveService, authzService)
	keyResultHandler := handlers.NewKeyResultHandler(keyResultService, checkinService, authzService)
	memberHandler := handlers.NewMemberHandler(membershipService, authzService)
	alignmentHandler := handlers.NewAlignmentHandler(alignmentService, authzService)
	aiHandler := handlers.NewAIHandler(aiClient, validationService)

	// Router
	router := server.NewRouter(server.RouterConfig{
		AuthMiddleware:   authMiddleware,
		TenantMiddleware: tenantMiddleware,
		ObjectiveHandler: objectiveHandler,
		KeyResultHandler: keyResultHandler,
		MemberHandler:    memberHandler,
		AlignmentHandler: alignmentHandler,
		AIHandler:        aiHandler,
	})

	port := utils.GetEnv("PORT", "8080", log)
	log.Info("Starting server", "port", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatal("Server exited", "error", err)
	}
}
