package handlers

import (
  "errors"
  "net/http"
  "github.com/gin-gonic/gin"
  "github.com/yungbote/studypilot-backend/internal/apierr"
)

type APIError struct {
  Message string `json:"message"`
  Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
  Error APIError `json:"error"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
  msg := "unknown error"
  if err != nil {
    msg = err.Error()
  }
  c.JSON(status, ErrorEnvelope{
    Error: APIError{
      Message: msg,
      Code:    code,
    },
  })
}

// RespondAppError maps service-layer errors onto the wire: typed errors keep
// their status and code, anything else is a 500.
func RespondAppError(c *gin.Context, err error) {
  var apiErr *apierr.Error
  if errors.As(err, &apiErr) {
    RespondError(c, apiErr.Status, apiErr.Code, err)
    return
  }
  RespondError(c, http.StatusInternalServerError, "internal_error", err)
}

func RespondOK(c *gin.Context, payload any) {
  c.JSON(http.StatusOK, payload)
}
