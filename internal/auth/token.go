package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenKind separates short-lived access tokens from the long-lived
// refresh tokens used solely to mint new pairs.
type TokenKind string

const (
	KindAccess  TokenKind = "access"
	KindRefresh TokenKind = "refresh"
)

// Claims is the signed claim set carried by every token. Wire names
// match the original API so existing clients keep working.
type Claims struct {
	Username string    `json:"username"`
	Kind     TokenKind `json:"type"`
	jwt.RegisteredClaims
}

// Codec signs and verifies session tokens with a process-wide HS256
// secret configured once at startup.
type Codec struct {
	secret []byte
	now    func() time.Time
}

// NewCodec creates a Codec for the given signing secret.
func NewCodec(secret string) *Codec {
	return &Codec{secret: []byte(secret), now: time.Now}
}

// WithClock overrides the codec's clock. Test hook.
func (c *Codec) WithClock(now func() time.Time) *Codec {
	c.now = now
	return c
}

// Issue signs a token for username with the given kind and lifetime.
func (c *Codec) Issue(username string, kind TokenKind, ttl time.Duration) (string, error) {
	now := c.now()
	claims := Claims{
		Username: username,
		Kind:     kind,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
}

// Verify checks the signature and expiry of token and returns its
// claims. An expired but authentic token yields ErrTokenExpired;
// anything else wrong with it yields ErrTokenMalformed. Callers react
// differently: expired prompts a refresh, malformed is a hard reject.
func (c *Codec) Verify(token string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims,
		func(t *jwt.Token) (interface{}, error) { return c.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(c.now),
		jwt.WithIssuedAt(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenMalformed
	}
	if claims.Username == "" || claims.IssuedAt == nil || claims.ExpiresAt == nil {
		return nil, ErrTokenMalformed
	}
	switch claims.Kind {
	case KindAccess, KindRefresh:
	default:
		return nil, ErrTokenMalformed
	}
	return claims, nil
}
