package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"atelier/pkg/model"

	"github.com/golang-jwt/jwt/v5"
)

var ErrMissingSubject = errors.New("token carries no uid or sub")

// Claims mirrors the user profile fields the gating rules read. Any subset
// may be present.
type Claims struct {
	UID        string `json:"uid,omitempty"`
	Rank       string `json:"rank,omitempty"`
	ProTier    string `json:"proTier,omitempty"`
	IsVerified bool   `json:"isVerified,omitempty"`
	Verified   bool   `json:"verified,omitempty"`
	Signature  bool   `json:"signature,omitempty"`
	jwt.RegisteredClaims
}

// JWTAuthenticator verifies HS256 tokens signed with a shared secret.
type JWTAuthenticator struct {
	secret []byte
	parser *jwt.Parser
}

func NewJWTAuthenticator(secret string) *JWTAuthenticator {
	return &JWTAuthenticator{
		secret: []byte(secret),
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithExpirationRequired(),
			jwt.WithLeeway(30*time.Second),
		),
	}
}

func (a *JWTAuthenticator) Authenticate(ctx context.Context, token string) (*model.CallerIdentity, error) {
	claims := &Claims{}
	_, err := a.parser.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return a.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	uid := claims.UID
	if uid == "" {
		uid = claims.Subject
	}
	if uid == "" {
		return nil, ErrMissingSubject
	}

	return &model.CallerIdentity{
		UID:        uid,
		Rank:       model.Rank(claims.Rank),
		ProTier:    claims.ProTier,
		IsVerified: claims.IsVerified,
		Verified:   claims.Verified,
		Signature:  claims.Signature,
	}, nil
}

// Sign issues a token for claims. Used by tooling and tests.
func (a *JWTAuthenticator) Sign(claims Claims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}
