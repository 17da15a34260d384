package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"quiz-platform-service/internal/domain"
)

// ErrInvalidToken is returned for tokens that fail verification or carry no usable identity.
var ErrInvalidToken = errors.New("invalid token")

// Claims is the access token payload issued by the identity provider.
// The role may live at the top level or inside user_metadata.
type Claims struct {
	Email        string       `json:"email,omitempty"`
	Role         string       `json:"role,omitempty"`
	UserMetadata UserMetadata `json:"user_metadata,omitempty"`
	jwt.RegisteredClaims
}

type UserMetadata struct {
	Role string `json:"role,omitempty"`
	Name string `json:"name,omitempty"`
}

// Identity is the authenticated caller.
type Identity struct {
	UserID string
	Email  string
	Name   string
	Role   domain.Role
}

// Verifier checks HS256 access tokens.
type Verifier struct {
	secret []byte
	issuer string
	now    func() time.Time
}

func NewVerifier(secret, issuer string) *Verifier {
	return &Verifier{secret: []byte(secret), issuer: issuer, now: time.Now}
}

// Verify parses the token and resolves the caller identity.
func (v *Verifier) Verify(tokenString string) (Identity, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(v.now),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || claims.Subject == "" {
		return Identity{}, ErrInvalidToken
	}

	role := domain.Role(claims.Role)
	if !role.Valid() {
		role = domain.Role(claims.UserMetadata.Role)
	}
	if !role.Valid() {
		return Identity{}, fmt.Errorf("%w: missing role", ErrInvalidToken)
	}
	return Identity{
		UserID: claims.Subject,
		Email:  claims.Email,
		Name:   claims.UserMetadata.Name,
		Role:   role,
	}, nil
}

// Issuer mints tokens with the shared secret. Used for local development and tests.
type Issuer struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

func NewIssuer(secret, issuer string, ttl time.Duration) *Issuer {
	return &Issuer{secret: []byte(secret), issuer: issuer, ttl: ttl, now: time.Now}
}

// Issue signs a token for the given identity.
func (i *Issuer) Issue(id Identity) (string, error) {
	now := i.now()
	claims := Claims{
		Email: id.Email,
		Role:  string(id.Role),
		UserMetadata: UserMetadata{
			Role: string(id.Role),
			Name: id.Name,
		},
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UserID,
			Issuer:    i.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}
