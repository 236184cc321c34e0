package middleware

import (
  "time"
  "github.com/gin-gonic/gin"
  "github.com/google/uuid"
  "github.com/yungbote/studypilot-backend/internal/logger"
)

const RequestIDHeader = "X-Request-ID"

// RequestID tags every request with an id and writes one access-log line on
// completion.
func RequestID(log *logger.Logger) gin.HandlerFunc {
  accessLog := log.With("middleware", "RequestID")
  return func(c *gin.Context) {
    requestID := c.GetHeader(RequestIDHeader)
    if requestID == "" {
      requestID = uuid.New().String()
    }
    c.Writer.Header().Set(RequestIDHeader, requestID)
    start := time.Now()
    c.Next()
    accessLog.Info("Request handled",
      "request_id", requestID,
      "method", c.Request.Method,
      "path", c.FullPath(),
      "status", c.Writer.Status(),
      "duration_ms", time.Since(start).Milliseconds(),
    )
  }
}
