package auth

import (
	"errors"
	"strings"
	"testing"

	"github.com/zalando/go-keyring"
)

func TestLoadUserIDUsesEnvVarFirst(t *testing.T) {
	t.Setenv("PAYPLAN_USER_ID", "  env-user  ")

	origGet := keyringGet
	defer func() { keyringGet = origGet }()

	keyringCalled := false
	keyringGet = func(service, user string) (string, error) {
		keyringCalled = true
		return "keyring-user", nil
	}

	got, err := LoadUserID()
	if err != nil {
		t.Fatalf("LoadUserID() unexpected error: %v", err)
	}
	if got != "env-user" {
		t.Fatalf("LoadUserID() = %q, want %q", got, "env-user")
	}
	if keyringCalled {
		t.Fatal("LoadUserID() called keyringGet even though PAYPLAN_USER_ID was set")
	}
}

func TestLoadRemoteTokenFallsBackToKeyring(t *testing.T) {
	t.Setenv("PAYPLAN_REMOTE_TOKEN", "")
	t.Setenv("PAYPLAN_KEYCHAIN_SERVICE", "svc")

	origGet := keyringGet
	defer func() { keyringGet = origGet }()

	var gotService, gotUser string
	keyringGet = func(service, user string) (string, error) {
		gotService = service
		gotUser = user
		return "  keyring-token  ", nil
	}

	got, err := LoadRemoteToken()
	if err != nil {
		t.Fatalf("LoadRemoteToken() unexpected error: %v", err)
	}
	if got != "keyring-token" {
		t.Fatalf("LoadRemoteToken() = %q, want %q", got, "keyring-token")
	}
	if gotService != "svc" || gotUser != accountRemoteToken {
		t.Fatalf("keyringGet called with (%q, %q), want (%q, %q)", gotService, gotUser, "svc", accountRemoteToken)
	}
}

func TestLoadReportsNotConfigured(t *testing.T) {
	t.Setenv("PAYPLAN_USER_ID", "")

	origGet := keyringGet
	defer func() { keyringGet = origGet }()

	keyringGet = func(service, user string) (string, error) {
		return "", keyring.ErrNotFound
	}

	_, err := LoadUserID()
	if !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("LoadUserID() error = %v, want ErrNotConfigured", err)
	}
}

func TestLoadReturnsErrorWhenKeyringFails(t *testing.T) {
	t.Setenv("PAYPLAN_REMOTE_TOKEN", "")

	origGet := keyringGet
	defer func() { keyringGet = origGet }()

	keyringGet = func(service, user string) (string, error) {
		return "", errors.New("boom")
	}

	_, err := LoadRemoteToken()
	if err == nil {
		t.Fatal("LoadRemoteToken() error = nil, want non-nil")
	}
	if !strings.Contains(err.Error(), "failed to read keyring item") {
		t.Fatalf("LoadRemoteToken() error = %q, expected keyring read context", err.Error())
	}
	if errors.Is(err, ErrNotConfigured) {
		t.Fatal("LoadRemoteToken() reported a keyring failure as not configured")
	}
}

func TestLoadDBKeyIgnoresEnvironment(t *testing.T) {
	origGet := keyringGet
	defer func() { keyringGet = origGet }()

	keyringGet = func(service, user string) (string, error) {
		if user != accountDBKey {
			t.Fatalf("keyringGet user = %q, want %q", user, accountDBKey)
		}
		return "   ", nil
	}

	_, err := LoadDBKey()
	if err == nil || err.Error() != "db key is empty" {
		t.Fatalf("LoadDBKey() error = %v, want %q", err, "db key is empty")
	}
}

func TestSaveRemoteTokenSavesTrimmedToken(t *testing.T) {
	t.Setenv("PAYPLAN_KEYCHAIN_SERVICE", "svc")

	origSet := keyringSet
	defer func() { keyringSet = origSet }()

	var gotService, gotUser, gotSecret string
	keyringSet = func(service, user, secret string) error {
		gotService = service
		gotUser = user
		gotSecret = secret
		return nil
	}

	if err := SaveRemoteToken("  my-token  "); err != nil {
		t.Fatalf("SaveRemoteToken() unexpected error: %v", err)
	}
	if gotService != "svc" || gotUser != accountRemoteToken || gotSecret != "my-token" {
		t.Fatalf(
			"SaveRemoteToken() called keyringSet with (%q, %q, %q), want (%q, %q, %q)",
			gotService, gotUser, gotSecret, "svc", accountRemoteToken, "my-token",
		)
	}
}

func TestSaveUserIDRejectsEmpty(t *testing.T) {
	origSet := keyringSet
	defer func() { keyringSet = origSet }()

	called := false
	keyringSet = func(service, user, secret string) error {
		called = true
		return nil
	}

	err := SaveUserID("   ")
	if err == nil {
		t.Fatal("SaveUserID() error = nil, want non-nil")
	}
	if err.Error() != "user id cannot be empty" {
		t.Fatalf("SaveUserID() error = %q, want %q", err.Error(), "user id cannot be empty")
	}
	if called {
		t.Fatal("SaveUserID() called keyringSet for empty id")
	}
}

func TestSaveReturnsErrorWhenKeyringSetFails(t *testing.T) {
	origSet := keyringSet
	defer func() { keyringSet = origSet }()

	keyringSet = func(service, user, secret string) error {
		return errors.New("write failed")
	}

	err := SaveDBKey("key")
	if err == nil {
		t.Fatal("SaveDBKey() error = nil, want non-nil")
	}
	if !strings.Contains(err.Error(), "failed to store keyring item") {
		t.Fatalf("SaveDBKey() error = %q, expected keyring write context", err.Error())
	}
}

func TestDeleteRemoteTokenToleratesMissingItem(t *testing.T) {
	origDelete := keyringDelete
	defer func() { keyringDelete = origDelete }()

	keyringDelete = func(service, user string) error {
		return keyring.ErrNotFound
	}
	if err := DeleteRemoteToken(); err != nil {
		t.Fatalf("DeleteRemoteToken() unexpected error: %v", err)
	}

	keyringDelete = func(service, user string) error {
		return errors.New("locked")
	}
	if err := DeleteRemoteToken(); err == nil {
		t.Fatal("DeleteRemoteToken() error = nil, want non-nil")
	}
}
