package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultAccessTokenTTL bounds the short-lived signed bearer assertion.
const DefaultAccessTokenTTL = 15 * time.Minute

var (
	ErrBearerInvalid = errors.New("invalid bearer token")
	ErrBearerExpired = errors.New("bearer token expired")
)

// BearerClaims are the signed assertion payload: the user identity plus the
// registered expiry/issue claims.
type BearerClaims struct {
	UserID uint   `json:"uid"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// BearerCodec signs and verifies short-lived HS256 bearer assertions.
type BearerCodec struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewBearerCodec creates a codec from the shared HMAC secret.
func NewBearerCodec(secret string, ttl time.Duration) (*BearerCodec, error) {
	if secret == "" {
		return nil, errors.New("bearer secret is required")
	}
	if ttl <= 0 {
		ttl = DefaultAccessTokenTTL
	}
	return &BearerCodec{
		secret: []byte(secret),
		issuer: "pulsefox",
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

// Sign issues a bearer assertion for the given identity.
func (c *BearerCodec) Sign(userID uint, email string) (string, error) {
	now := c.now()
	claims := BearerClaims{
		UserID: userID,
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    c.issuer,
			Subject:   fmt.Sprintf("%d", userID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(c.secret)
}

// Verify parses and validates a bearer assertion and returns its claims.
func (c *BearerCodec) Verify(tokenString string) (*BearerClaims, error) {
	claims := &BearerClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return c.secret, nil
	}, jwt.WithIssuer(c.issuer), jwt.WithTimeFunc(c.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrBearerExpired
		}
		return nil, ErrBearerInvalid
	}
	if !token.Valid || claims.UserID == 0 {
		return nil, ErrBearerInvalid
	}
	return claims, nil
}
