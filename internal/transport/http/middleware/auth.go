package middleware

import (
	"context"
	"menu-service/internal/auth"
	"menu-service/internal/service"
	"menu-service/internal/transport/http/dto"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Context keys for user info
const (
	CtxUserID   = "user_id"
	CtxUserRole = "user_role"
)

// QueryTokenParam carries the token on websocket upgrades, browsers cannot
// set headers there.
const QueryTokenParam = "access_token"

type Introspector interface {
	Introspect(ctx context.Context, token string) (*auth.Claims, error)
}

// AuthRequired validates the bearer token and puts the caller's identity on
// both the gin context and the request context.
func AuthRequired(intro Introspector, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := requestToken(c.Request)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewUnauthorizedError("missing Authorization header"))
			return
		}
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewUnauthorizedError("empty token"))
			return
		}

		claims, err := intro.Introspect(c.Request.Context(), token)
		if err != nil {
			log.Warn("introspect failed", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewUnauthorizedError("invalid token"))
			return
		}

		c.Set(CtxUserID, claims.UserID)
		c.Set(CtxUserRole, claims.Role)
		ctx := service.WithRole(service.WithUserID(c.Request.Context(), claims.UserID), claims.Role)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func requestToken(r *http.Request) (string, bool) {
	if authz := r.Header.Get("Authorization"); authz != "" {
		return ExtractBearerToken(authz)
	}
	if websocket.IsWebSocketUpgrade(r) {
		if t := r.URL.Query().Get(QueryTokenParam); t != "" {
			return strings.TrimSpace(t), true
		}
	}
	return "", false
}

// ExtractBearerToken tolerates quotes and trailing junk:
// - "Bearer abc.def.ghi"
// - "Bearer \"abc.def.ghi\""
// - "Bearer abc.def.ghi, extra"
func ExtractBearerToken(authz string) (string, bool) {
	scheme, rest, found := strings.Cut(authz, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	t := strings.Trim(strings.TrimSpace(rest), " \"'")
	if i := strings.IndexAny(t, ", "); i >= 0 {
		t = t[:i]
	}
	return strings.Trim(t, " \"'"), true
}
