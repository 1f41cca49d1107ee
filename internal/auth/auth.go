package auth

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
)

const (
	// APIKeyEnvVar holds the Gemini API key directly.
	APIKeyEnvVar = "GEMINI_API_KEY"
	// CredentialsEnvVar overrides the location of the encrypted key file.
	CredentialsEnvVar = "PRODUCT_CRAFT_CREDENTIALS"
	// PassphraseEnvVar points at a passphrase file for non-interactive gpg.
	PassphraseEnvVar = "PRODUCT_CRAFT_GPG_PASSPHRASE_FILE"

	credentialDir  = ".product-craft"
	credentialFile = "credentials.gpg"
	passphraseFile = ".gpg-passphrase"
)

// KeySource is one place an API key may come from.
type KeySource interface {
	Name() string
	// Key returns the key, or an error saying why this source has none.
	Key() (string, error)
}

// EnvSource reads the key from an environment variable.
type EnvSource struct {
	Var string
}

func (s EnvSource) Name() string { return "env:" + s.Var }

func (s EnvSource) Key() (string, error) {
	if key := strings.TrimSpace(os.Getenv(s.Var)); key != "" {
		return key, nil
	}
	return "", fmt.Errorf("%s is not set", s.Var)
}

// GPGSource decrypts the key from a gpg-encrypted file.
type GPGSource struct {
	Path string
	// Passphrase is an optional owner-only file passed to gpg in loopback mode.
	Passphrase string
	// run executes gpg; nil means exec.Command.
	run func(args ...string) ([]byte, error)
}

func (s GPGSource) Name() string { return "gpg:" + s.Path }

func (s GPGSource) Key() (string, error) {
	if _, err := os.Stat(s.Path); err != nil {
		return "", fmt.Errorf("credentials file not found at %s", s.Path)
	}
	log.Debug().Str("file", s.Path).Msg("Decrypting GPG credentials")

	output, err := s.exec(s.args()...)
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return "", fmt.Errorf("GPG decryption failed: %s", strings.TrimSpace(string(exitErr.Stderr)))
		}
		return "", fmt.Errorf("GPG decryption failed: %w", err)
	}
	key := strings.TrimSpace(string(output))
	if key == "" {
		return "", fmt.Errorf("%s decrypted to an empty key", s.Path)
	}
	return key, nil
}

func (s GPGSource) args() []string {
	args := []string{"--decrypt", "--quiet"}
	if s.Passphrase != "" && passphraseUsable(s.Passphrase) {
		args = append(args, "--pinentry-mode", "loopback", "--passphrase-file", s.Passphrase)
	}
	return append(args, s.Path)
}

func (s GPGSource) exec(args ...string) ([]byte, error) {
	if s.run != nil {
		return s.run(args...)
	}
	return exec.Command("gpg", args...).Output()
}

// passphraseUsable reports whether path exists and is readable by its owner only.
func passphraseUsable(path string) bool {
	fi, err := os.Stat(path)
	if err != nil {
		return false
	}
	if mode := fi.Mode().Perm(); mode&0o077 != 0 {
		log.Warn().
			Str("passphrase_file", path).
			Str("permissions", fmt.Sprintf("%04o", mode)).
			Msg("Passphrase file has insecure permissions (should be 0600); skipping")
		return false
	}
	return true
}

// DefaultSources is the lookup order GetAPIKey uses: the environment, then
// the encrypted credentials file.
func DefaultSources() []KeySource {
	sources := []KeySource{EnvSource{Var: APIKeyEnvVar}}
	if path, err := credentialPath(); err == nil {
		sources = append(sources, GPGSource{Path: path, Passphrase: passphrasePath()})
	}
	return sources
}

// GetAPIKey returns the Gemini API key from the first source that has one.
func GetAPIKey() (string, error) {
	return ResolveAPIKey(DefaultSources()...)
}

// ResolveAPIKey tries sources in order. When none yields a key the error
// lists why each one failed.
func ResolveAPIKey(sources ...KeySource) (string, error) {
	var errs []error
	for _, src := range sources {
		key, err := src.Key()
		if err == nil {
			log.Debug().Str("source", src.Name()).Msg("API key resolved")
			return key, nil
		}
		errs = append(errs, fmt.Errorf("%s: %w", src.Name(), err))
	}
	err := errors.Join(errs...)
	log.Error().Err(err).Msg("Failed to retrieve API key")
	return "", fmt.Errorf("API key not found: set %s or store it GPG-encrypted at ~/%s/%s: %w",
		APIKeyEnvVar, credentialDir, credentialFile, err)
}

// credentialPath is $PRODUCT_CRAFT_CREDENTIALS or ~/.product-craft/credentials.gpg.
func credentialPath() (string, error) {
	if p := os.Getenv(CredentialsEnvVar); p != "" {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, credentialDir, credentialFile), nil
}

// passphrasePath is $PRODUCT_CRAFT_GPG_PASSPHRASE_FILE, else .gpg-passphrase
// next to the executable, else in the working directory.
func passphrasePath() string {
	if p := os.Getenv(PassphraseEnvVar); p != "" {
		return p
	}
	if exe, err := os.Executable(); err == nil {
		p := filepath.Join(filepath.Dir(exe), passphraseFile)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	if cwd, err := os.Getwd(); err == nil {
		return filepath.Join(cwd, passphraseFile)
	}
	return ""
}
