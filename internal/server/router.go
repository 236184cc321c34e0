package server

import (
  "github.com/gin-contrib/cors"
  "github.com/gin-gonic/gin"
  "go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
  "github.com/yungbote/studypilot-backend/internal/handlers"
  "github.com/yungbote/studypilot-backend/internal/logger"
  "github.com/yungbote/studypilot-backend/internal/middleware"
)

type RouterConfig struct {
  Log                   *logger.Logger
  AuthMiddleware        *middleware.AuthMiddleware
  RecommendationHandler *handlers.RecommendationHandler
  StudyPlanHandler      *handlers.StudyPlanHandler
  ServiceName           string
}

func NewRouter(cfg RouterConfig) *gin.Engine {
  router := gin.New()
  router.Use(gin.Recovery())
  router.Use(middleware.RequestID(cfg.Log))
  router.Use(otelgin.Middleware(cfg.ServiceName))

  // Cors
  router.Use(cors.New(cors.Config{
    AllowOrigins: []string{
      "http://localhost:80",
      "http://localhost:3000",
      "http://localhost:5174",
    },
    AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
    AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
    AllowCredentials: true,
  }))

// ===============
// || Public    ||
// ===============
  router.GET("/healthcheck", handlers.HealthCheck)

// ===============
// || Protected ||
// ===============
  api := router.Group("/api")
  api.Use(cfg.AuthMiddleware.RequireAuth())
  // Recommendations
  api.POST("/students/:studentID/recommendations/refresh", cfg.RecommendationHandler.RefreshRecommendations)
  api.GET("/students/:studentID/recommendations", cfg.RecommendationHandler.GetActiveRecommendations)
  api.GET("/recommendations/:id", cfg.RecommendationHandler.GetRecommendation)
  api.GET("/recommendations/:id/history", cfg.RecommendationHandler.GetRecommendationHistory)
  // Study plans
  api.POST("/students/:studentID/plans", cfg.StudyPlanHandler.GeneratePlan)
  api.GET("/students/:studentID/plans", cfg.StudyPlanHandler.ListPlans)
  api.GET("/students/:studentID/plans/active", cfg.StudyPlanHandler.GetActivePlan)
  api.GET("/plans/:planID", cfg.StudyPlanHandler.GetPlan)
  api.PATCH("/plans/:planID/items/:itemID", cfg.StudyPlanHandler.ToggleItemCompletion)
  api.GET("/plans/:planID/progress", cfg.StudyPlanHandler.GetProgress)
  api.POST("/plans/:planID/archive", cfg.StudyPlanHandler.ArchivePlan)
  api.DELETE("/plans/:planID", cfg.StudyPlanHandler.DeletePlan)

  return router
}
