// Package identity verifies federated login tokens from an external
// identity provider.
package identity

import (
	"context"
	"fmt"

	"google.golang.org/api/idtoken"
)

// Identity is the verified subject of a federated login token.
type Identity struct {
	Email string
	Name  string
}

// Verifier validates an identity token against an expected audience.
type Verifier interface {
	Verify(ctx context.Context, token string) (*Identity, error)
}

// GoogleVerifier validates Google-issued ID tokens.
type GoogleVerifier struct {
	clientID string
}

var _ Verifier = (*GoogleVerifier)(nil)

// NewGoogleVerifier builds a verifier for the given OAuth client ID.
func NewGoogleVerifier(clientID string) *GoogleVerifier {
	return &GoogleVerifier{clientID: clientID}
}

// Verify validates the token signature and audience and returns the subject.
func (v *GoogleVerifier) Verify(ctx context.Context, token string) (*Identity, error) {
	payload, err := idtoken.Validate(ctx, token, v.clientID)
	if err != nil {
		return nil, fmt.Errorf("validate id token: %w", err)
	}

	email, _ := payload.Claims["email"].(string)
	if email == "" {
		return nil, fmt.Errorf("id token carries no email claim")
	}
	name, _ := payload.Claims["name"].(string)
	if name == "" {
		name = email
	}
	return &Identity{Email: email, Name: name}, nil
}
