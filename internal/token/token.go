// Package token inspects Strapi-issued JWTs without verifying them. The
// gateway never holds the backend's signing key; it only needs the expiry
// claim to decide when a session is stale. Every helper fails closed: a
// token that cannot be decoded is treated as expired.
package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultRefreshThreshold is how close to expiry a token may get before a
// background refresh should run.
const DefaultRefreshThreshold = 15 * time.Minute

var parser = jwt.NewParser()

var ErrMalformedToken = errors.New("malformed token")

// Decode parses the payload segment of a compact JWT. No signature
// verification is performed.
func Decode(tokenString string) (jwt.MapClaims, error) {
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(tokenString, claims); err != nil {
		return nil, ErrMalformedToken
	}
	return claims, nil
}

// ExpirationTime returns the exp claim as a wall-clock time. The second
// return is false when the token is undecodable or carries no exp.
func ExpirationTime(tokenString string) (time.Time, bool) {
	claims, err := Decode(tokenString)
	if err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

// IsExpired reports whether the token is past its exp claim. Undecodable
// tokens and tokens without an exp count as expired.
func IsExpired(tokenString string) bool {
	exp, ok := ExpirationTime(tokenString)
	if !ok {
		return true
	}
	return !time.Now().Before(exp)
}

// ShouldRefresh reports whether less than DefaultRefreshThreshold remains
// before expiry, or the expiry cannot be determined.
func ShouldRefresh(tokenString string) bool {
	return ShouldRefreshWithin(tokenString, DefaultRefreshThreshold)
}

// ShouldRefreshWithin is ShouldRefresh with a caller-supplied threshold.
func ShouldRefreshWithin(tokenString string, threshold time.Duration) bool {
	exp, ok := ExpirationTime(tokenString)
	if !ok {
		return true
	}
	return time.Until(exp) < threshold
}
