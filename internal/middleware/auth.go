package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/okrboard/okrboard-backend/internal/logger"
	"github.com/okrboard/okrboard-backend/internal/requestdata"
	"github.com/okrboard/okrboard-backend/internal/utils"
)

type AuthMiddleware struct {
	log    *logger.Logger
	secret []byte
}

func NewAuthMiddleware(log *logger.Logger) *AuthMiddleware {
	middlewareLogger := log.With("Middleware", "AuthMiddleware")
	secret := utils.GetEnv("JWT_SECRET", "", middlewareLogger)
	if secret == "" {
		middlewareLogger.Warn("JWT_SECRET is empty, all tokens will be rejected")
	}
	return &AuthMiddleware{log: middlewareLogger, secret: []byte(secret)}
}

// RequireAuth validates the bearer token and puts the caller's tenant and
// user identity on the request context.
func (am *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := extractToken(c)
		if tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid token"})
			return
		}
		rd, err := am.parseToken(tokenString)
		if err != nil {
			am.log.Debug("token rejected", "error", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid token"})
			return
		}
		ctx := requestdata.WithRequestData(c.Request.Context(), rd)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func (am *AuthMiddleware) parseToken(tokenString string) (*requestdata.RequestData, error) {
	if len(am.secret) == 0 {
		return nil, fmt.Errorf("no signing secret configured")
	}
	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return am.secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}

	tenantID, err := claimUUID(claims, "tid")
	if err != nil {
		return nil, err
	}
	userObjectID, err := claimUUID(claims, "oid")
	if err != nil {
		return nil, err
	}

	rd := &requestdata.RequestData{
		TokenString:  tokenString,
		TenantID:     tenantID,
		UserObjectID: userObjectID,
	}
	if email, ok := claims["preferred_username"].(string); ok {
		rd.Email = email
	}
	if name, ok := claims["name"].(string); ok {
		rd.DisplayName = name
	}
	return rd, nil
}

func claimUUID(claims jwt.MapClaims, key string) (uuid.UUID, error) {
	raw, ok := claims[key].(string)
	if !ok || raw == "" {
		return uuid.Nil, fmt.Errorf("missing %s claim", key)
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("malformed %s claim", key)
	}
	return id, nil
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
