package guestalbum

import (
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"
)

// TokenInfo is what can be read from a bearer token without its signing key.
type TokenInfo struct {
	Subject   string
	TokenType string
	IssuedAt  *time.Time
	ExpiresAt *time.Time
}

// Expired reports whether the token carries an expiry before now.
// Tokens without an expiry never report expired.
func (t *TokenInfo) Expired(now time.Time) bool {
	if t == nil || t.ExpiresAt == nil {
		return false
	}
	return !now.Before(*t.ExpiresAt)
}

type bearerClaims struct {
	jwt.RegisteredClaims
	TokenType string `json:"token_type,omitempty"`
	UserID    any    `json:"user_id,omitempty"`
}

// InspectToken decodes a JWT bearer token WITHOUT verifying its signature.
// The result is informational only: the server remains the authority and
// an expired token is only discovered by the next profile fetch failing.
func InspectToken(token string) (*TokenInfo, error) {
	claims := &bearerClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryBadInput, "token is not a decodable JWT")
	}

	info := &TokenInfo{
		Subject:   claims.Subject,
		TokenType: claims.TokenType,
	}
	if info.Subject == "" && claims.UserID != nil {
		info.Subject = stringify(claims.UserID)
	}
	if claims.IssuedAt != nil {
		t := claims.IssuedAt.Time
		info.IssuedAt = &t
	}
	if claims.ExpiresAt != nil {
		t := claims.ExpiresAt.Time
		info.ExpiresAt = &t
	}
	return info, nil
}

func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatInt(int64(t), 10)
	default:
		return ""
	}
}
