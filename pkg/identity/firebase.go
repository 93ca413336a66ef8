package identity

import (
	"context"
	"fmt"

	"atelier/pkg/model"

	"firebase.google.com/go/v4/auth"
)

type idTokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
}

// FirebaseAuthenticator verifies Firebase ID tokens and reads the rank
// fields from custom claims.
type FirebaseAuthenticator struct {
	verifier idTokenVerifier
}

func NewFirebaseAuthenticator(client *auth.Client) *FirebaseAuthenticator {
	return &FirebaseAuthenticator{verifier: client}
}

func (a *FirebaseAuthenticator) Authenticate(ctx context.Context, token string) (*model.CallerIdentity, error) {
	verified, err := a.verifier.VerifyIDToken(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("invalid id token: %w", err)
	}
	if verified.UID == "" {
		return nil, ErrMissingSubject
	}

	claims := verified.Claims
	return &model.CallerIdentity{
		UID:        verified.UID,
		Rank:       model.Rank(stringClaim(claims, "rank")),
		ProTier:    stringClaim(claims, "proTier"),
		IsVerified: boolClaim(claims, "isVerified"),
		Verified:   boolClaim(claims, "verified"),
		Signature:  boolClaim(claims, "signature"),
	}, nil
}

func stringClaim(claims map[string]any, key string) string {
	s, _ := claims[key].(string)
	return s
}

func boolClaim(claims map[string]any, key string) bool {
	b, _ := claims[key].(bool)
	return b
}
