package access

import (
	"net/http"
	"strings"

	"github.com/cubecart/core/internal/apperr"
	"github.com/cubecart/core/internal/token"
)

// Guard extracts identity from requests and enforces role/ownership
// policy. It holds no per-request state; every check is explicit.
type Guard struct {
	tokens *token.Service
}

func NewGuard(tokens *token.Service) *Guard {
	return &Guard{tokens: tokens}
}

// Identify extracts a bearer token from the headers and verifies it.
// A missing token is not an error: it returns ok=false and callers decide
// whether anonymity is acceptable. A present but invalid token is an error.
func (g *Guard) Identify(h http.Header) (token.Claims, bool, error) {
	raw := bearerToken(h)
	if raw == "" {
		return token.Claims{}, false, nil
	}
	claims, err := g.tokens.Verify(raw)
	if err != nil {
		return token.Claims{}, false, apperr.Wrap(apperr.KindUnauthenticated, err, "invalid token")
	}
	return claims, true, nil
}

// RequireRole fails Forbidden unless the claims carry the given role.
func (g *Guard) RequireRole(claims token.Claims, role string) error {
	if claims.Role != role {
		return apperr.New(apperr.KindForbidden, "requires %s role", role)
	}
	return nil
}

// RequireOwnerOrAdmin grants access when the caller owns the resource or
// is an admin. Used for per-order visibility.
func (g *Guard) RequireOwnerOrAdmin(claims token.Claims, resourceOwnerID string) error {
	if claims.SubjectID() == resourceOwnerID || claims.IsAdmin() {
		return nil
	}
	return apperr.New(apperr.KindForbidden, "not the resource owner")
}

func bearerToken(h http.Header) string {
	auth := h.Get("Authorization")
	if len(auth) > 7 && strings.EqualFold(auth[:7], "Bearer ") {
		return auth[7:]
	}
	return ""
}
