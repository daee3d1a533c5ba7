package middleware

import (
	"strings"

	"go-pos-backoffice/internal/apperrors"
	"go-pos-backoffice/internal/auth"

	"github.com/gin-gonic/gin"
)

const identityKey = "identity"

// AuthMiddleware checks that the request carries a valid JWT, either as
// "Authorization: Bearer <token>" or in the session cookie.
func AuthMiddleware(tokens *auth.TokenManager, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		// 1. Header first, then the cookie
		tokenString, err := bearerToken(c.GetHeader("Authorization"))
		if err != nil {
			abort(c, err)
			return
		}
		if tokenString == "" {
			tokenString, _ = c.Cookie(cookieName)
		}
		if tokenString == "" {
			abort(c, apperrors.Unauthorized(""))
			return
		}

		// 2. Validate the token
		claims, verr := tokens.Validate(tokenString)
		if verr != nil {
			abort(c, apperrors.Unauthorized("invalid or expired token"))
			return
		}

		// 3. Store the identity for the handlers
		c.Set(identityKey, claims.Identity())
		c.Next()
	}
}

func bearerToken(header string) (string, *apperrors.Error) {
	if header == "" {
		return "", nil
	}
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || strings.TrimSpace(token) == "" {
		return "", apperrors.Unauthorized("authorization header must start with Bearer")
	}
	return strings.TrimSpace(token), nil
}

// RequireAdmin is a secondary guard for administrator routes.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := CurrentIdentity(c)
		if !ok || !id.IsAdmin {
			abort(c, apperrors.Forbidden("administrator access required"))
			return
		}
		c.Next()
	}
}

// CurrentIdentity returns the identity set by AuthMiddleware.
func CurrentIdentity(c *gin.Context) (auth.Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return auth.Identity{}, false
	}
	id, ok := v.(auth.Identity)
	return id, ok
}

// SetIdentity attaches an identity to the request. Used by tests and internal callers.
func SetIdentity(c *gin.Context, id auth.Identity) {
	c.Set(identityKey, id)
}

func abort(c *gin.Context, err *apperrors.Error) {
	c.AbortWithStatusJSON(err.HTTPStatus, gin.H{
		"success": false,
		"code":    err.Code,
		"message": err.Message,
	})
}
