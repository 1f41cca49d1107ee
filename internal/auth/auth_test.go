package auth

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type fakeSource struct {
	name string
	key  string
	err  error
}

func (f fakeSource) Name() string         { return f.name }
func (f fakeSource) Key() (string, error) { return f.key, f.err }

func TestResolveAPIKeyFirstSourceWins(t *testing.T) {
	key, err := ResolveAPIKey(
		fakeSource{name: "a", err: errors.New("empty")},
		fakeSource{name: "b", key: "key-b"},
		fakeSource{name: "c", key: "key-c"},
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if key != "key-b" {
		t.Errorf("key = %q, want key-b", key)
	}
}

func TestResolveAPIKeyListsEveryFailure(t *testing.T) {
	_, err := ResolveAPIKey(
		fakeSource{name: "env:X", err: errors.New("X is not set")},
		fakeSource{name: "gpg:/nope", err: errors.New("credentials file not found")},
	)
	if err == nil {
		t.Fatal("expected an error when no source has a key")
	}
	for _, want := range []string{"env:X", "gpg:/nope", "credentials file not found"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %q", err, want)
		}
	}
}

func TestEnvSource(t *testing.T) {
	t.Setenv("PC_TEST_KEY", "  secret  ")
	key, err := EnvSource{Var: "PC_TEST_KEY"}.Key()
	if err != nil || key != "secret" {
		t.Errorf("Key() = %q, %v", key, err)
	}

	t.Setenv("PC_TEST_KEY", "")
	if _, err := (EnvSource{Var: "PC_TEST_KEY"}).Key(); err == nil {
		t.Error("an empty variable should not yield a key")
	}
}

func TestGetAPIKeyFromEnv(t *testing.T) {
	t.Setenv(APIKeyEnvVar, "test-api-key-12345")
	key, err := GetAPIKey()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if key != "test-api-key-12345" {
		t.Errorf("key = %q", key)
	}
}

func TestGetAPIKeyNoSource(t *testing.T) {
	t.Setenv(APIKeyEnvVar, "")
	t.Setenv(CredentialsEnvVar, filepath.Join(t.TempDir(), "missing.gpg"))
	if _, err := GetAPIKey(); err == nil {
		t.Error("expected error when no API key source is available")
	}
}

func TestCredentialPath(t *testing.T) {
	t.Setenv(CredentialsEnvVar, "")
	home := t.TempDir()
	t.Setenv("HOME", home)
	path, err := credentialPath()
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join(home, ".product-craft", "credentials.gpg"); path != want {
		t.Errorf("path = %q, want %q", path, want)
	}

	t.Setenv(CredentialsEnvVar, "/etc/pc/key.gpg")
	if path, _ := credentialPath(); path != "/etc/pc/key.gpg" {
		t.Errorf("override path = %q", path)
	}
}

func TestGPGSourceMissingFile(t *testing.T) {
	src := GPGSource{Path: filepath.Join(t.TempDir(), "credentials.gpg")}
	if _, err := src.Key(); err == nil {
		t.Error("expected error when credentials file does not exist")
	}
}

func TestGPGSourcePassphraseHandling(t *testing.T) {
	dir := t.TempDir()
	cred := filepath.Join(dir, "credentials.gpg")
	if err := os.WriteFile(cred, []byte("ciphertext"), 0o600); err != nil {
		t.Fatal(err)
	}
	pass := filepath.Join(dir, ".gpg-passphrase")
	if err := os.WriteFile(pass, []byte("hunter2"), 0o600); err != nil {
		t.Fatal(err)
	}

	var gotArgs []string
	src := GPGSource{Path: cred, Passphrase: pass, run: func(args ...string) ([]byte, error) {
		gotArgs = args
		return []byte("decrypted-key\n"), nil
	}}

	key, err := src.Key()
	if err != nil || key != "decrypted-key" {
		t.Fatalf("Key() = %q, %v", key, err)
	}
	if !strings.Contains(strings.Join(gotArgs, " "), "--passphrase-file "+pass) {
		t.Errorf("args = %v, want the passphrase file", gotArgs)
	}
	if gotArgs[len(gotArgs)-1] != cred {
		t.Errorf("last arg = %q, want the credentials file", gotArgs[len(gotArgs)-1])
	}

	// World-readable passphrase files are ignored.
	if err := os.Chmod(pass, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := src.Key(); err != nil {
		t.Fatal(err)
	}
	if strings.Contains(strings.Join(gotArgs, " "), "--passphrase-file") {
		t.Errorf("args = %v, insecure passphrase file should be skipped", gotArgs)
	}
}

func TestGPGSourceEmptyOutput(t *testing.T) {
	cred := filepath.Join(t.TempDir(), "credentials.gpg")
	if err := os.WriteFile(cred, []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}
	src := GPGSource{Path: cred, run: func(...string) ([]byte, error) { return []byte("\n"), nil }}
	if _, err := src.Key(); err == nil {
		t.Error("an empty decryption result should be an error")
	}
}
