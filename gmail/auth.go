package gmail

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/zalando/go-keyring"
)

const (
	keyringService = "otpfill"
	keyringUser    = "gmail_token"
)

// NewService returns a Gmail API client authorised with the token stored in
// the system keychain. Without a stored token the user is asked to authorise
// in the browser first.
func NewService(ctx context.Context, credentialsFile string) (*gmail.Service, error) {
	config, err := readOAuthConfig(credentialsFile)
	if err != nil {
		return nil, err
	}

	client, err := getClient(ctx, config)
	if err != nil {
		return nil, err
	}

	srv, err := gmail.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("unable to create Gmail client: %w", err)
	}

	return srv, nil
}

// Login runs the browser authorisation flow and stores the new token,
// replacing any stored one.
func Login(ctx context.Context, credentialsFile string) error {
	config, err := readOAuthConfig(credentialsFile)
	if err != nil {
		return err
	}

	tok, err := getTokenFromWeb(ctx, config)
	if err != nil {
		return err
	}

	return saveTokenToKeyring(tok)
}

// Logout removes the stored token. It is not an error if none is stored.
func Logout() error {
	err := keyring.Delete(keyringService, keyringUser)
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("unable to remove token from keychain: %w", err)
	}

	return nil
}

func readOAuthConfig(credentialsFile string) (*oauth2.Config, error) {
	b, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("unable to read client secret file: %w", err)
	}

	config, err := google.ConfigFromJSON(b, gmail.GmailReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse client secret file: %w", err)
	}

	return config, nil
}

// Retrieves or fetches a token and returns the client.
func getClient(ctx context.Context, config *oauth2.Config) (*http.Client, error) {
	tok, err := tokenFromKeyring()
	if err != nil {
		tok, err = getTokenFromWeb(ctx, config)
		if err != nil {
			return nil, err
		}

		if err := saveTokenToKeyring(tok); err != nil {
			return nil, err
		}
	}

	return config.Client(ctx, tok), nil
}

// Requests a token from the web, then returns the retrieved token.
func getTokenFromWeb(ctx context.Context, config *oauth2.Config) (*oauth2.Token, error) {
	authURL := config.AuthCodeURL("state-token", oauth2.AccessTypeOffline)
	fmt.Fprintf(os.Stderr, "Go to the following link in your browser then type the authorization code: \n%v\n", authURL)

	var authCode string
	if _, err := fmt.Scan(&authCode); err != nil {
		return nil, fmt.Errorf("unable to read authorization code: %w", err)
	}

	tok, err := config.Exchange(ctx, authCode)
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve token from web: %w", err)
	}

	return tok, nil
}

// Retrieves a token from the system keychain.
func tokenFromKeyring() (*oauth2.Token, error) {
	secret, err := keyring.Get(keyringService, keyringUser)
	if err != nil {
		return nil, err
	}

	tok := &oauth2.Token{}
	err = json.Unmarshal([]byte(secret), tok)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal token from keychain: %w", err)
	}

	return tok, nil
}

// Saves a token to the system keychain.
func saveTokenToKeyring(token *oauth2.Token) error {
	b, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("unable to marshal token: %w", err)
	}

	if err := keyring.Set(keyringService, keyringUser, string(b)); err != nil {
		return fmt.Errorf("unable to save token to keychain: %w", err)
	}

	return nil
}
