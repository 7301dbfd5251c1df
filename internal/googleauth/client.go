// Package googleauth bootstraps OAuth clients for the Google APIs from an
// installed-app credentials file and a cached token file.
package googleauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/renameio/v2"
	"github.com/manifoldco/promptui"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/spigell/recruiter/internal/secrets"
)

// CodePrompt asks the operator for the authorization code issued at authURL.
type CodePrompt func(authURL string) (string, error)

// Config points at the credentials and token files of one Google API client.
type Config struct {
	CredentialsFile string `mapstructure:"credentials-file"`
	TokenFile       string `mapstructure:"token-file"`
}

// Client returns an HTTP client authorized for scopes. When the token file is
// missing or unreadable the operator is asked for a code and the new token is
// cached.
func Client(ctx context.Context, cfg Config, prompt CodePrompt, logger *zap.Logger, scopes ...string) (*http.Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	credentials, err := secrets.ReadFile("google credentials", cfg.CredentialsFile)
	if err != nil {
		return nil, err
	}

	oauthConfig, err := google.ConfigFromJSON(credentials, scopes...)
	if err != nil {
		return nil, fmt.Errorf("parsing google credentials: %w", err)
	}

	token, err := tokenFromFile(cfg.TokenFile)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			logger.Warn("cached token is unusable, requesting a new one", zap.String("path", cfg.TokenFile), zap.Error(err))
		}

		token, err = tokenFromWeb(ctx, oauthConfig, prompt)
		if err != nil {
			return nil, err
		}

		if err := saveToken(cfg.TokenFile, token); err != nil {
			return nil, err
		}
		logger.Info("saved oauth token", zap.String("path", cfg.TokenFile))
	}

	return oauthConfig.Client(ctx, token), nil
}

// TerminalPrompt prints authURL and reads the code from the terminal.
func TerminalPrompt(authURL string) (string, error) {
	fmt.Printf("Open the following link in your browser and paste the authorization code:\n%s\n", authURL)

	p := promptui.Prompt{
		Label: "Authorization code",
		Validate: func(input string) error {
			if strings.TrimSpace(input) == "" {
				return errors.New("code is required")
			}
			return nil
		},
	}

	code, err := p.Run()
	if err != nil {
		return "", fmt.Errorf("reading authorization code: %w", err)
	}

	return strings.TrimSpace(code), nil
}

func tokenFromWeb(ctx context.Context, cfg *oauth2.Config, prompt CodePrompt) (*oauth2.Token, error) {
	if prompt == nil {
		return nil, errors.New("no oauth token cached and no prompt available")
	}

	code, err := prompt(cfg.AuthCodeURL("state-token", oauth2.AccessTypeOffline))
	if err != nil {
		return nil, err
	}

	token, err := cfg.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchanging authorization code: %w", err)
	}

	return token, nil
}

func tokenFromFile(path string) (*oauth2.Token, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	token := &oauth2.Token{}
	if err := json.Unmarshal(data, token); err != nil {
		return nil, fmt.Errorf("decoding token file: %w", err)
	}

	return token, nil
}

func saveToken(path string, token *oauth2.Token) error {
	data, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("encoding token: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating token directory: %w", err)
	}

	if err := renameio.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("saving token to %s: %w", path, err)
	}

	return nil
}
