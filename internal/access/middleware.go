package access

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cubecart/core/internal/apperr"
	"github.com/cubecart/core/internal/token"
)

const claimsKey = "identity_claims"

// RequireAuth aborts with 401 unless the request carries a valid bearer
// token. Verified claims are stashed on the gin context for handlers.
func (g *Guard) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok, err := g.Identify(c.Request.Header)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": string(apperr.KindUnauthenticated),
				"msg":   apperr.Message(err),
			})
			return
		}
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": string(apperr.KindUnauthenticated),
				"msg":   "missing or invalid token",
			})
			return
		}
		c.Set(claimsKey, claims)
		c.Next()
	}
}

// ClaimsFrom returns the claims RequireAuth stored on the context.
func ClaimsFrom(c *gin.Context) (token.Claims, bool) {
	v, ok := c.Get(claimsKey)
	if !ok {
		return token.Claims{}, false
	}
	claims, ok := v.(token.Claims)
	return claims, ok
}
