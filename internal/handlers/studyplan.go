package handlers

import (
  "net/http"
  "time"
  "github.com/gin-gonic/gin"
  "github.com/google/uuid"
  "github.com/yungbote/studypilot-backend/internal/logger"
  "github.com/yungbote/studypilot-backend/internal/services"
  "github.com/yungbote/studypilot-backend/internal/types"
)

type StudyPlanHandler struct {
  log         *logger.Logger
  planSvc     services.StudyPlanService
  progressSvc services.ProgressService
}

func NewStudyPlanHandler(log *logger.Logger, planSvc services.StudyPlanService, progressSvc services.ProgressService) *StudyPlanHandler {
  return &StudyPlanHandler{
    log:         log.With("handler", "StudyPlanHandler"),
    planSvc:     planSvc,
    progressSvc: progressSvc,
  }
}

type generatePlanRequest struct {
  Name              string      `json:"name"`
  TimeFrame         int         `json:"time_frame" binding:"required,gt=0"`
  DailyStudyTime    int         `json:"daily_study_time" binding:"required,gt=0"`
  StudyStyle        string      `json:"study_style" binding:"required"`
  Description       string      `json:"description"`
  RecommendationIDs []uuid.UUID `json:"recommendation_ids"`
}

// POST /api/students/:studentID/plans
func (h *StudyPlanHandler) GeneratePlan(c *gin.Context) {
  studentID, ok := parseUUIDParam(c, "studentID")
  if !ok {
    return
  }
  var req generatePlanRequest
  if err := c.ShouldBindJSON(&req); err != nil {
    RespondError(c, http.StatusBadRequest, "invalid_request_body", err)
    return
  }
  plan, err := h.planSvc.GeneratePlan(c.Request.Context(), studentID, req.RecommendationIDs, types.PlanConfig{
    Name:           req.Name,
    TimeFrame:      req.TimeFrame,
    DailyStudyTime: req.DailyStudyTime,
    StudyStyle:     req.StudyStyle,
    Description:    req.Description,
  })
  if err != nil {
    RespondAppError(c, err)
    return
  }
  c.JSON(http.StatusCreated, plan)
}

// GET /api/plans/:planID
func (h *StudyPlanHandler) GetPlan(c *gin.Context) {
  planID, ok := parseUUIDParam(c, "planID")
  if !ok {
    return
  }
  plan, err := h.planSvc.GetPlan(c.Request.Context(), planID)
  if err != nil {
    RespondAppError(c, err)
    return
  }
  RespondOK(c, plan)
}

// GET /api/students/:studentID/plans
func (h *StudyPlanHandler) ListPlans(c *gin.Context) {
  studentID, ok := parseUUIDParam(c, "studentID")
  if !ok {
    return
  }
  plans, err := h.planSvc.ListPlans(c.Request.Context(), studentID)
  if err != nil {
    RespondAppError(c, err)
    return
  }
  RespondOK(c, plans)
}

// GET /api/students/:studentID/plans/active
func (h *StudyPlanHandler) GetActivePlan(c *gin.Context) {
  studentID, ok := parseUUIDParam(c, "studentID")
  if !ok {
    return
  }
  plan, err := h.planSvc.GetActivePlan(c.Request.Context(), studentID)
  if err != nil {
    RespondAppError(c, err)
    return
  }
  RespondOK(c, plan)
}

type toggleItemRequest struct {
  Completed *bool `json:"completed" binding:"required"`
}

// PATCH /api/plans/:planID/items/:itemID
// Returns the owning day with its derived flags already recomputed.
func (h *StudyPlanHandler) ToggleItemCompletion(c *gin.Context) {
  planID, ok := parseUUIDParam(c, "planID")
  if !ok {
    return
  }
  itemID, ok := parseUUIDParam(c, "itemID")
  if !ok {
    return
  }
  var req toggleItemRequest
  if err := c.ShouldBindJSON(&req); err != nil {
    RespondError(c, http.StatusBadRequest, "invalid_request_body", err)
    return
  }
  day, err := h.progressSvc.ToggleItemCompletion(c.Request.Context(), planID, itemID, *req.Completed)
  if err != nil {
    RespondAppError(c, err)
    return
  }
  RespondOK(c, day)
}

// GET /api/plans/:planID/progress?today=YYYY-MM-DD
func (h *StudyPlanHandler) GetProgress(c *gin.Context) {
  planID, ok := parseUUIDParam(c, "planID")
  if !ok {
    return
  }
  today := time.Now().UTC()
  if raw := c.Query("today"); raw != "" {
    parsed, err := time.Parse("2006-01-02", raw)
    if err != nil {
      RespondError(c, http.StatusBadRequest, "invalid_today", err)
      return
    }
    today = parsed
  }
  progress, err := h.progressSvc.GetProgress(c.Request.Context(), planID, today)
  if err != nil {
    RespondAppError(c, err)
    return
  }
  RespondOK(c, progress)
}

// POST /api/plans/:planID/archive
func (h *StudyPlanHandler) ArchivePlan(c *gin.Context) {
  planID, ok := parseUUIDParam(c, "planID")
  if !ok {
    return
  }
  plan, err := h.planSvc.ArchivePlan(c.Request.Context(), planID)
  if err != nil {
    RespondAppError(c, err)
    return
  }
  RespondOK(c, plan)
}

// DELETE /api/plans/:planID
func (h *StudyPlanHandler) DeletePlan(c *gin.Context) {
  planID, ok := parseUUIDParam(c, "planID")
  if !ok {
    return
  }
  if err := h.planSvc.DeletePlan(c.Request.Context(), planID); err != nil {
    RespondAppError(c, err)
    return
  }
  c.Status(http.StatusNoContent)
}
