package main

import (
  "context"
  "fmt"
  "os"
  "time"
  "github.com/yungbote/studypilot-backend/internal/config"
  "github.com/yungbote/studypilot-backend/internal/db"
  "github.com/yungbote/studypilot-backend/internal/handlers"
  "github.com/yungbote/studypilot-backend/internal/logger"
  "github.com/yungbote/studypilot-backend/internal/middleware"
  "github.com/yungbote/studypilot-backend/internal/observability"
  "github.com/yungbote/studypilot-backend/internal/repos"
  "github.com/yungbote/studypilot-backend/internal/server"
  "github.com/yungbote/studypilot-backend/internal/services"
  "github.com/yungbote/studypilot-backend/internal/utils"
)

func main() {
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

  // Env
  log.Info("Loading environment variables from main...")
  jwtSecretKey := utils.GetEnv("JWT_SECRET_KEY", "defaultsecret", log)
  configPath := utils.GetEnv("ENGINE_CONFIG_PATH", "engine.yaml", log)
  serviceName := utils.GetEnv("SERVICE_NAME", "studypilot-backend", log)

  // Engine config
  engineCfg, err := config.Load(configPath, log)
  if err != nil {
    log.Error("Could not load engine config", "error", err)
    os.Exit(1)
  }

  // Tracing
  otelShutdown := observability.InitOTel(context.Background(), log, observability.OtelConfig{
    ServiceName: serviceName,
    Environment: utils.GetEnv("DEPLOY_ENV", "development", log),
    Version:     utils.GetEnv("SERVICE_VERSION", "dev", log),
  })
  if otelShutdown != nil {
    defer func() {
      shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
      defer cancel()
      _ = otelShutdown(shutdownCtx)
    }()
  }

  // Postgres
  postgresService, err := db.NewPostgresService(log)
  if err != nil {
    log.Error("Postgres init failed", "error", err)
    os.Exit(1)
  }
  if err = postgresService.AutoMigrateAll(); err != nil {
    log.Warn("Postgres auto migration failed", "error", err)
  }
  thePG := postgresService.DB()

  // Repos
  log.Info("Setting up Repos from main...")
  studentRepo := repos.NewStudentRepo(thePG, log)
  recommendationRepo := repos.NewRecommendationRepo(thePG, log)
  studyPlanRepo := repos.NewStudyPlanRepo(thePG, log)

  // Services
  log.Info("Setting up Services from main...")
  studentLocker := services.NewStudentLocker()
  candidateSource := services.NewStaticCandidateSource()
  recommendationService := services.NewRecommendationService(thePG, log, engineCfg, recommendationRepo, studentRepo, studentLocker)
  allocator := services.NewDeterministicAllocator()
  studyPlanService := services.NewStudyPlanService(thePG, log, engineCfg, studyPlanRepo, recommendationRepo, allocator, studentLocker)
  progressService := services.NewProgressService(thePG, log, engineCfg, studyPlanRepo, studentLocker)

  // Handlers
  log.Info("Setting up handlers from main...")
  recommendationHandler := handlers.NewRecommendationHandler(log, recommendationService, candidateSource)
  studyPlanHandler := handlers.NewStudyPlanHandler(log, studyPlanService, progressService)

  // Middleware
  log.Info("Setting up middleware from main...")
  authMiddleware := middleware.NewAuthMiddleware(log, jwtSecretKey)

  // Router
  log.Info("Setting up router from main...")
  router := server.NewRouter(server.RouterConfig{
    Log:                   log,
    AuthMiddleware:        authMiddleware,
    RecommendationHandler: recommendationHandler,
    StudyPlanHandler:      studyPlanHandler,
    ServiceName:           serviceName,
  })

  port := utils.GetEnv("PORT", "8080", log)
  fmt.Printf("Server listening on :%s\n", port)
  if err := router.Run(":" + port); err != nil {
    log.Error("Server failed", "error", err)
  }
}
