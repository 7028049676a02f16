// Package auth: identity-provider token verification, the admin allow-list and server-side sessions
package auth

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	fbauth "firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"
)

// Identity is what a verified ID token tells us about the caller.
type Identity struct {
	UID   string
	Email string
	Name  string
}

// Verifier checks an identity-provider ID token.
type Verifier interface {
	Verify(ctx context.Context, idToken string) (*Identity, error)
}

// Firebase verifies Firebase Authentication ID tokens.
type Firebase struct {
	client *fbauth.Client
}

// NewFirebase uses credentialsFile when set, application default credentials otherwise.
func NewFirebase(ctx context.Context, projectID, credentialsFile string) (*Firebase, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("firebase app: %w", err)
	}
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("firebase auth: %w", err)
	}
	return &Firebase{client: client}, nil
}

func (f *Firebase) Verify(ctx context.Context, idToken string) (*Identity, error) {
	tok, err := f.client.VerifyIDToken(ctx, idToken)
	if err != nil {
		return nil, err
	}
	email, _ := tok.Claims["email"].(string)
	name, _ := tok.Claims["name"].(string)
	return &Identity{UID: tok.UID, Email: email, Name: name}, nil
}
