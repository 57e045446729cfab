// Package secrets keeps provider credentials sealed in the sheetchat .env.
//
// A value is sealed with the local age identity stored next to the config
// ($SHEETCHAT_PATH/.age-key) and written as ENC[age:<base64>]. Resolve opens
// such values when the provider key is read at chat start.
package secrets

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"filippo.io/age"

	"github.com/dohr-michael/sheetchat/internal/config"
)

const (
	sealPrefix = "ENC[age:"
	sealSuffix = "]"
)

// ErrNoKey is returned when a sealed value is found but no key file exists.
var ErrNoKey = errors.New("no sheetchat key; run `sheetchat secret set` to create one")

// KeyPath returns $SHEETCHAT_PATH/.age-key.
func KeyPath() string {
	return filepath.Join(config.HomePath(), ".age-key")
}

// Keyring seals and opens values with one age X25519 identity.
type Keyring struct {
	path     string
	identity *age.X25519Identity
}

// OpenKeyring loads the identity at path. A missing file yields ErrNoKey.
func OpenKeyring(path string) (*Keyring, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w (looked in %s)", ErrNoKey, path)
		}
		return nil, fmt.Errorf("read key: %w", err)
	}

	ids, err := age.ParseIdentities(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse key %s: %w", path, err)
	}
	for _, id := range ids {
		if x, ok := id.(*age.X25519Identity); ok {
			return &Keyring{path: path, identity: x}, nil
		}
	}
	return nil, fmt.Errorf("parse key %s: no X25519 identity", path)
}

// EnsureKeyring opens the key at path, generating it first when absent.
func EnsureKeyring(path string) (*Keyring, error) {
	k, err := OpenKeyring(path)
	if err == nil || !errors.Is(err, ErrNoKey) {
		return k, err
	}

	id, err := age.GenerateX25519Identity()
	if err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create key dir: %w", err)
	}
	body := "# sheetchat provider key, keep private\n# recipient: " + id.Recipient().String() + "\n" + id.String() + "\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		return nil, fmt.Errorf("write key: %w", err)
	}
	return &Keyring{path: path, identity: id}, nil
}

// Path returns the key file backing k.
func (k *Keyring) Path() string { return k.path }

// Recipient returns the public half of the key.
func (k *Keyring) Recipient() string { return k.identity.Recipient().String() }

// Seal encrypts value into an ENC[age:...] blob.
func (k *Keyring) Seal(value string) (string, error) {
	var buf bytes.Buffer
	w, err := age.Encrypt(&buf, k.identity.Recipient())
	if err != nil {
		return "", fmt.Errorf("seal: %w", err)
	}
	if _, err := io.WriteString(w, value); err != nil {
		return "", fmt.Errorf("seal: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("seal: %w", err)
	}
	return sealPrefix + base64.StdEncoding.EncodeToString(buf.Bytes()) + sealSuffix, nil
}

// Open decrypts a blob produced by Seal.
func (k *Keyring) Open(blob string) (string, error) {
	if !IsSealed(blob) {
		return "", errors.New("open: value is not sealed")
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSuffix(strings.TrimPrefix(blob, sealPrefix), sealSuffix))
	if err != nil {
		return "", fmt.Errorf("open: %w", err)
	}
	r, err := age.Decrypt(bytes.NewReader(raw), k.identity)
	if err != nil {
		return "", fmt.Errorf("open with %s: %w", k.path, err)
	}
	plain, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("open: %w", err)
	}
	return string(plain), nil
}

// IsSealed reports whether s is an ENC[age:...] blob.
func IsSealed(s string) bool {
	return strings.HasPrefix(s, sealPrefix) && strings.HasSuffix(s, sealSuffix)
}
