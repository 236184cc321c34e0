package middleware

import (
  "fmt"
  "net/http"
  "strings"
  "github.com/gin-gonic/gin"
  "github.com/golang-jwt/jwt/v5"
  "github.com/google/uuid"
  "github.com/yungbote/studypilot-backend/internal/logger"
)

const ContextStudentIDKey = "auth_student_id"

// AuthMiddleware verifies bearer tokens issued by the surrounding platform
// and exposes the subject's student id to handlers. Token issuance lives
// outside this service.
type AuthMiddleware struct {
  log       *logger.Logger
  jwtSecret []byte
}

func NewAuthMiddleware(log *logger.Logger, jwtSecret string) *AuthMiddleware {
  middlewareLog := log.With("middleware", "AuthMiddleware")
  return &AuthMiddleware{log: middlewareLog, jwtSecret: []byte(jwtSecret)}
}

func (am *AuthMiddleware) RequireAuth() gin.HandlerFunc {
  return func(c *gin.Context) {
    tokenString := extractToken(c)
    if tokenString == "" {
      c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid token"})
      return
    }
    token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
      if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
        return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
      }
      return am.jwtSecret, nil
    })
    if err != nil || !token.Valid {
      am.log.Debug("Token validation failed", "error", err)
      c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid token"})
      return
    }
    subject, err := token.Claims.GetSubject()
    if err != nil || subject == "" {
      c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid token"})
      return
    }
    studentID, err := uuid.Parse(subject)
    if err != nil {
      c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
      return
    }
    c.Set(ContextStudentIDKey, studentID)
    c.Next()
  }
}

func extractToken(c *gin.Context) string {
  authHeader := c.GetHeader("Authorization")
  if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "Bearer ") {
    return authHeader[7:]
  }
  if qToken := c.Query("token"); qToken != "" {
    return qToken
  }
  return ""
}
