package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	domainErrors "github.com/jamilahmedansari/letterdesk/internal/domain/errors"
	"github.com/jamilahmedansari/letterdesk/internal/domain/model"
	pkgAuth "github.com/jamilahmedansari/letterdesk/internal/pkg/auth"
	"github.com/jamilahmedansari/letterdesk/internal/server/http/dto"
)

const (
	// PrincipalContextKey is a gin context key for the authenticated caller.
	PrincipalContextKey = "principal"

	// SystemKeyHeader carries the shared key of scheduled jobs and billing hooks.
	SystemKeyHeader = "X-System-Key"

	authCookieName   = "letterdesk_token"
	codeUnauthorized = "UNAUTHORIZED"
	systemActor      = "system"
)

// TokenParser resolves bearer tokens.
type TokenParser interface {
	ParseToken(token string) (model.Principal, error)
}

// SystemKeyVerifier checks the shared system key.
type SystemKeyVerifier interface {
	VerifySystemKey(key string) error
}

// Authenticate resolves the caller from the system key header, a bearer token or the auth cookie.
func Authenticate(parser TokenParser, keys SystemKeyVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		if key := c.GetHeader(SystemKeyHeader); key != "" {
			err := keys.VerifySystemKey(key)
			switch {
			case err == nil:
				c.Set(PrincipalContextKey, model.Principal{ID: systemActor, Capability: model.CapabilitySystem})
				c.Next()
			case errors.Is(err, pkgAuth.ErrInvalidKey), errors.Is(err, pkgAuth.ErrKeyNotConfigured):
				abortUnauthorized(c, "invalid system key")
			default:
				abortInternal(c)
			}
			return
		}

		token := extractToken(c)
		if token == "" {
			abortUnauthorized(c, "missing credentials")
			return
		}

		principal, err := parser.ParseToken(token)
		if err != nil {
			if errors.Is(err, pkgAuth.ErrInvalidToken) {
				abortUnauthorized(c, "invalid token")
				return
			}
			abortInternal(c)
			return
		}

		c.Set(PrincipalContextKey, principal)
		c.Next()
	}
}

// RequireCapability rejects callers holding none of caps.
func RequireCapability(caps ...model.Capability) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, _ := Principal(c)
		if !principal.Has(caps...) {
			c.AbortWithStatusJSON(http.StatusForbidden, dto.ErrorResponse{
				Code:    domainErrors.CodeForbidden,
				Message: "operation not permitted",
			})
			return
		}
		c.Next()
	}
}

// Principal returns the caller stored by Authenticate.
func Principal(c *gin.Context) (model.Principal, bool) {
	val, ok := c.Get(PrincipalContextKey)
	if !ok {
		return model.Principal{}, false
	}
	p, ok := val.(model.Principal)
	return p, ok
}

func extractToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if strings.HasPrefix(strings.ToLower(authHeader), "bearer ") {
		return strings.TrimSpace(authHeader[7:])
	}

	if cookie, err := c.Cookie(authCookieName); err == nil {
		return cookie
	}
	return ""
}

func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, dto.ErrorResponse{Code: codeUnauthorized, Message: message})
}

func abortInternal(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusInternalServerError, dto.ErrorResponse{
		Code:    domainErrors.CodeInternal,
		Message: "internal error",
	})
}
