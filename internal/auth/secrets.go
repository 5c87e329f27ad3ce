// Package auth stores the identity and secrets payplan needs in the system
// keyring. Environment variables take precedence over stored values.
package auth

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/zalando/go-keyring"
)

const defaultSecretService = "payplan"

const (
	accountUserID      = "user_id"
	accountRemoteToken = "remote_token"
	accountDBKey       = "db_key"
)

// ErrNotConfigured is returned when a secret is neither in the environment
// nor in the keyring.
var ErrNotConfigured = errors.New("not configured")

var (
	keyringGet    = keyring.Get
	keyringSet    = keyring.Set
	keyringDelete = keyring.Delete
)

// LoadUserID returns the opaque user identifier selecting the remote snapshot.
//
// Order of precedence:
// 1) PAYPLAN_USER_ID environment variable.
// 2) keyring item "user_id".
func LoadUserID() (string, error) {
	return load("PAYPLAN_USER_ID", accountUserID, "user id")
}

func SaveUserID(id string) error {
	return save(accountUserID, id, "user id")
}

// LoadRemoteToken returns the bearer token for the remote document store.
func LoadRemoteToken() (string, error) {
	return load("PAYPLAN_REMOTE_TOKEN", accountRemoteToken, "remote token")
}

func SaveRemoteToken(token string) error {
	return save(accountRemoteToken, token, "remote token")
}

// DeleteRemoteToken signs the device out. A missing item is not an error.
func DeleteRemoteToken() error {
	service := envOrDefault("PAYPLAN_KEYCHAIN_SERVICE", defaultSecretService)
	if err := keyringDelete(service, accountRemoteToken); err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("failed to delete keyring item service=%q account=%q: %w", service, accountRemoteToken, err)
	}
	return nil
}

// LoadDBKey returns the local cache encryption key. It is never read from
// the environment.
func LoadDBKey() (string, error) {
	return load("", accountDBKey, "db key")
}

func SaveDBKey(key string) error {
	return save(accountDBKey, key, "db key")
}

func load(envKey, account, what string) (string, error) {
	if envKey != "" {
		if v := strings.TrimSpace(os.Getenv(envKey)); v != "" {
			return v, nil
		}
	}

	v, err := loadFromKeyring(account)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", fmt.Errorf("%s: %w", what, ErrNotConfigured)
	}
	if err != nil {
		return "", err
	}
	if v == "" {
		return "", fmt.Errorf("%s is empty", what)
	}
	return v, nil
}

func save(account, value, what string) error {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fmt.Errorf("%s cannot be empty", what)
	}

	service := envOrDefault("PAYPLAN_KEYCHAIN_SERVICE", defaultSecretService)
	if err := keyringSet(service, account, trimmed); err != nil {
		return fmt.Errorf(
			"failed to store keyring item service=%q account=%q: %w",
			service,
			account,
			err,
		)
	}
	return nil
}

func loadFromKeyring(account string) (string, error) {
	service := envOrDefault("PAYPLAN_KEYCHAIN_SERVICE", defaultSecretService)

	secret, err := keyringGet(service, account)
	if err != nil {
		return "", fmt.Errorf(
			"failed to read keyring item service=%q account=%q: %w",
			service,
			account,
			err,
		)
	}
	return strings.TrimSpace(secret), nil
}

func envOrDefault(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}
