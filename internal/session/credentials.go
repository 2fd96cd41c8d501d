// Package session holds the access/refresh token pair and the stores that
// persist it between runs.
package session

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
)

// Storage key names. Every store persists exactly these two values.
const (
	AccessTokenKey  = "accessToken"
	RefreshTokenKey = "refreshToken"
)

// ErrNoCredentials is returned by Load when no access token is stored.
var ErrNoCredentials = errors.New("no stored credentials")

// Credentials is the token pair issued by the API.
type Credentials struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// Empty reports whether no access token is present.
func (c Credentials) Empty() bool {
	return c.AccessToken == ""
}

// Expiry decodes the exp claim of the access token.
// The signature is not verified; the server remains the authority.
func (c Credentials) Expiry() (time.Time, bool) {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(c.AccessToken, &claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}

// Token returns the credentials as a bearer token.
func (c Credentials) Token() *oauth2.Token {
	tok := &oauth2.Token{
		AccessToken:  c.AccessToken,
		RefreshToken: c.RefreshToken,
		TokenType:    "Bearer",
	}
	if exp, ok := c.Expiry(); ok {
		tok.Expiry = exp
	}
	return tok
}
