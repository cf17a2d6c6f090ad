package secrets

import (
	"errors"
	"net/url"
	"os"
	"strings"

	"github.com/zalando/go-keyring"

	"leadlift-engine/internal/config"
)

const (
	// KeyringService groups the engine's secrets in the OS keychain.
	KeyringService = "leadlift"

	// EnvToken overrides the keychain for headless/CI use.
	EnvToken = "LEADLIFT_TOKEN"
)

// Token returns the backend auth token: env override first, then keychain.
func Token(account string) (string, error) {
	if tok := strings.TrimSpace(os.Getenv(EnvToken)); tok != "" {
		return tok, nil
	}
	if strings.TrimSpace(account) != "" {
		tok, err := keyring.Get(KeyringService, account)
		if err == nil && strings.TrimSpace(tok) != "" {
			return tok, nil
		}
	}
	return "", errors.New("backend token not found (set it via the settings screen or " + EnvToken + ")")
}

func SetToken(account, token string) error {
	if strings.TrimSpace(account) == "" {
		return errors.New("keyring account name is empty")
	}
	if strings.TrimSpace(token) == "" {
		return errors.New("token is empty")
	}
	return keyring.Set(KeyringService, account, token)
}

func DeleteToken(account string) error {
	if strings.TrimSpace(account) == "" {
		return errors.New("keyring account name is empty")
	}
	return keyring.Delete(KeyringService, account)
}

// KeyringAccount scopes the stored token to one backend host, so pointing
// the engine at staging does not pick up the production token.
func KeyringAccount(cfg config.Config) string {
	host := cfg.Backend.BaseURL
	if u, err := url.Parse(cfg.Backend.BaseURL); err == nil && u.Host != "" {
		host = u.Host
	}
	return "leadlift:api:" + host
}
