package http

import (
	"errors"
	"net/http"
	"strings"

	"stock-service/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type accessClaims struct {
	Sub    string `json:"sub"`
	Tenant string `json:"tenant"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// AuthRequired валидирует Bearer HS256-токен и кладёт идентичность вызывающего
// (uid, tenant, role) в контекст запроса для сервисного слоя.
func AuthRequired(secret, issuer string, log *zap.Logger) gin.HandlerFunc {
	key := []byte(secret)
	return func(c *gin.Context) {
		authz := c.GetHeader("Authorization")
		if authz == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, NewUnauthorizedError("missing Authorization header"))
			return
		}
		token, ok := extractBearerToken(authz)
		if !ok || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, NewUnauthorizedError("invalid Authorization header"))
			return
		}

		parsed, err := jwt.ParseWithClaims(token, &accessClaims{}, func(t *jwt.Token) (any, error) {
			if t.Method != jwt.SigningMethodHS256 {
				return nil, errors.New("unexpected signing method")
			}
			return key, nil
		}, jwt.WithIssuer(issuer))
		if err != nil {
			log.Warn("token parse failed", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, NewUnauthorizedError("invalid token"))
			return
		}
		claims, ok := parsed.Claims.(*accessClaims)
		if !ok || !parsed.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, NewUnauthorizedError("invalid token"))
			return
		}

		uid, err := uuid.Parse(claims.Sub)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, NewUnauthorizedError("invalid subject"))
			return
		}
		tenantID, err := uuid.Parse(claims.Tenant)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, NewUnauthorizedError("invalid tenant"))
			return
		}

		ctx := service.WithUserID(c.Request.Context(), uid)
		ctx = service.WithTenantID(ctx, tenantID)
		ctx = service.WithRole(ctx, service.Role(claims.Role))
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func extractBearerToken(authz string) (string, bool) {
	parts := strings.SplitN(authz, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	return strings.Trim(strings.TrimSpace(parts[1]), " \"'"), true
}
