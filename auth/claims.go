package auth

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenClaims is the diagnostic view of an issued access token.
type TokenClaims struct {
	Issuer    string
	Subject   string
	Audience  []string
	AppID     string
	Roles     []string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// HasAudience reports whether aud is one of the token's audiences.
func (c *TokenClaims) HasAudience(aud string) bool {
	return slices.Contains(c.Audience, aud)
}

// InspectClaims decodes the claims of a JWT access token WITHOUT verifying
// its signature. Use it for logging and health reporting only; the upstream
// API remains the authority on whether a token is acceptable.
//
// Opaque (non-JWT) tokens return ErrTokenNotJWT.
func InspectClaims(token string) (*TokenClaims, error) {
	if strings.Count(token, ".") != 2 {
		return nil, ErrTokenNotJWT
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		if errors.Is(err, jwt.ErrTokenMalformed) {
			return nil, fmt.Errorf("%w: %v", ErrTokenNotJWT, err)
		}
		return nil, err
	}

	out := &TokenClaims{}
	out.Issuer, _ = claims.GetIssuer()
	out.Subject, _ = claims.GetSubject()
	if aud, err := claims.GetAudience(); err == nil {
		out.Audience = aud
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		out.ExpiresAt = exp.Time
	}
	if iat, err := claims.GetIssuedAt(); err == nil && iat != nil {
		out.IssuedAt = iat.Time
	}

	// Azure AD v1 tokens carry appid, v2 tokens carry azp.
	for _, key := range []string{"appid", "azp"} {
		if v, ok := claims[key].(string); ok && v != "" {
			out.AppID = v
			break
		}
	}

	if roles, ok := claims["roles"].([]any); ok {
		out.Roles = make([]string, 0, len(roles))
		for _, r := range roles {
			if s, ok := r.(string); ok {
				out.Roles = append(out.Roles, s)
			}
		}
	}

	return out, nil
}

// AudienceForScope returns the audience a token issued for scope should
// carry: the scope with any trailing "/.default" removed.
func AudienceForScope(scope string) string {
	return strings.TrimSuffix(scope, "/.default")
}
