package ginserver

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	gin "github.com/gin-gonic/gin"

	"rentbox/internal/app/middleware"
	"rentbox/internal/app/services/auth"
)

// TokenResolver maps a bearer token to a principal. auth.Service satisfies it.
type TokenResolver interface {
	ResolveToken(ctx context.Context, token string) (middleware.Principal, error)
}

// AdminAuth requires a valid admin bearer token and puts the principal on the request context,
// where the command/query authorization middleware picks it up.
type AdminAuth struct {
	Resolver TokenResolver
	Logger   *slog.Logger
}

func (m AdminAuth) Handle(c *gin.Context) {
	if m.Resolver == nil {
		writeError(c, auth.ErrAdminDisabled)
		return
	}
	token := extractBearerToken(c.GetHeader("Authorization"))
	p, err := m.Resolver.ResolveToken(c.Request.Context(), token)
	if err != nil {
		if !errors.Is(err, auth.ErrTokenRequired) && m.Logger != nil {
			m.Logger.Debug("token validation failed", "error", err)
		}
		writeError(c, err)
		return
	}
	c.Request = c.Request.WithContext(middleware.ContextWithPrincipal(c.Request.Context(), p))
	c.Next()
}

func extractBearerToken(header string) string {
	if header == "" {
		return ""
	}
	if !strings.HasPrefix(strings.ToLower(header), "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}
