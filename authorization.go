package guestalbum

import "strings"

const bearerScheme = "Bearer"

// AuthorizationHeader returns the Authorization header value for token, or
// an empty string when no token is held.
func AuthorizationHeader(token string) string {
	token = strings.TrimSpace(token)
	if token == "" {
		return ""
	}
	return bearerScheme + " " + token
}

// TokenFromHeader is the inverse of AuthorizationHeader.
func TokenFromHeader(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, bearerScheme) {
		return ""
	}
	return strings.TrimSpace(token)
}

// RequireAuthenticated returns ErrNotAuthenticated unless state holds an
// authenticated session with a token.
func RequireAuthenticated(state State) error {
	if !state.IsAuthenticated || state.Token == "" {
		return ErrNotAuthenticated.Clone()
	}
	return nil
}
