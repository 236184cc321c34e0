package handlers

import (
  "net/http"
  "github.com/gin-gonic/gin"
  "github.com/google/uuid"
  "github.com/yungbote/studypilot-backend/internal/logger"
  "github.com/yungbote/studypilot-backend/internal/services"
  "github.com/yungbote/studypilot-backend/internal/types"
)

type RecommendationHandler struct {
  log       *logger.Logger
  recSvc    services.RecommendationService
  candidates services.CandidateSource
}

func NewRecommendationHandler(log *logger.Logger, recSvc services.RecommendationService, candidates services.CandidateSource) *RecommendationHandler {
  return &RecommendationHandler{
    log:        log.With("handler", "RecommendationHandler"),
    recSvc:     recSvc,
    candidates: candidates,
  }
}

type refreshRequest struct {
  Candidates []types.IssueCandidate `json:"candidates"`
}

type refreshResponse struct {
  Summary         *types.RefreshSummary   `json:"summary"`
  Recommendations []*types.Recommendation `json:"recommendations"`
  Errors          []types.CandidateError  `json:"errors"`
}

// POST /api/students/:studentID/recommendations/refresh
// Reconciles the student's active recommendations against the submitted
// candidate list, or against the configured candidate source when the body
// carries none.
func (h *RecommendationHandler) RefreshRecommendations(c *gin.Context) {
  studentID, ok := parseUUIDParam(c, "studentID")
  if !ok {
    return
  }
  var req refreshRequest
  if c.Request.ContentLength > 0 {
    if err := c.ShouldBindJSON(&req); err != nil {
      RespondError(c, http.StatusBadRequest, "invalid_request_body", err)
      return
    }
  }
  candidates := req.Candidates
  if len(candidates) == 0 {
    fromSource, err := h.candidates.Candidates(c.Request.Context(), studentID)
    if err != nil {
      RespondAppError(c, err)
      return
    }
    candidates = fromSource
  }

  summary, recs, candErrs, err := h.recSvc.ReconcileRefresh(c.Request.Context(), studentID, candidates)
  if err != nil {
    RespondAppError(c, err)
    return
  }
  if candErrs == nil {
    candErrs = []types.CandidateError{}
  }
  RespondOK(c, refreshResponse{
    Summary:         summary,
    Recommendations: recs,
    Errors:          candErrs,
  })
}

// GET /api/students/:studentID/recommendations
func (h *RecommendationHandler) GetActiveRecommendations(c *gin.Context) {
  studentID, ok := parseUUIDParam(c, "studentID")
  if !ok {
    return
  }
  recs, err := h.recSvc.GetActive(c.Request.Context(), studentID)
  if err != nil {
    RespondAppError(c, err)
    return
  }
  RespondOK(c, recs)
}

// GET /api/recommendations/:id
// Any row by id, resolved and superseded versions included.
func (h *RecommendationHandler) GetRecommendation(c *gin.Context) {
  id, ok := parseUUIDParam(c, "id")
  if !ok {
    return
  }
  rec, err := h.recSvc.GetByID(c.Request.Context(), id)
  if err != nil {
    RespondAppError(c, err)
    return
  }
  RespondOK(c, rec)
}

// GET /api/recommendations/:id/history
// The version chain, newest first.
func (h *RecommendationHandler) GetRecommendationHistory(c *gin.Context) {
  id, ok := parseUUIDParam(c, "id")
  if !ok {
    return
  }
  chain, err := h.recSvc.GetHistory(c.Request.Context(), id)
  if err != nil {
    RespondAppError(c, err)
    return
  }
  RespondOK(c, chain)
}

func parseUUIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
  id, err := uuid.Parse(c.Param(name))
  if err != nil {
    RespondError(c, http.StatusBadRequest, "invalid_"+name, err)
    return uuid.Nil, false
  }
  return id, true
}
