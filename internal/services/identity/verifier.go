package identity

import (
	"strings"
	"time"

	"github.com/BearBump/ParcelBox/internal/apperr"
	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

// Principal is the verified caller behind a bearer token.
type Principal struct {
	Subject string
	Email   string
}

type claims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
}

// Verifier checks HS256 bearer tokens issued by the identity provider.
type Verifier struct {
	secret   []byte
	issuer   string
	audience string
	now      func() time.Time
}

func NewVerifier(secret, issuer, audience string) (*Verifier, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("auth secret is required")
	}
	return &Verifier{
		secret:   []byte(secret),
		issuer:   issuer,
		audience: audience,
		now:      time.Now,
	}, nil
}

func (v *Verifier) Verify(token string) (Principal, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Principal{}, apperr.Unauthenticated("Unauthorized Access!!")
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(30 * time.Second),
		jwt.WithTimeFunc(v.now),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}

	var c claims
	_, err := jwt.ParseWithClaims(token, &c, func(*jwt.Token) (any, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		return Principal{}, mapJWTError(err)
	}
	if strings.TrimSpace(c.Email) == "" {
		return Principal{}, apperr.Unauthenticated("token has no email")
	}
	return Principal{Subject: c.Subject, Email: c.Email}, nil
}

func mapJWTError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return apperr.Unauthenticated("token is expired")
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return apperr.Unauthenticated("token signature is invalid")
	case errors.Is(err, jwt.ErrTokenInvalidIssuer), errors.Is(err, jwt.ErrTokenInvalidAudience):
		return apperr.Unauthenticated("token was not issued for this service")
	default:
		return apperr.Unauthenticated("Unauthorized Access!!")
	}
}
