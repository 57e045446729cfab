package secrets

import "fmt"

// Resolve returns value unchanged unless it is sealed, in which case it is
// opened with the key at keyPath.
func Resolve(value, keyPath string) (string, error) {
	if !IsSealed(value) {
		return value, nil
	}
	k, err := OpenKeyring(keyPath)
	if err != nil {
		return "", fmt.Errorf("resolve secret: %w", err)
	}
	plain, err := k.Open(value)
	if err != nil {
		return "", fmt.Errorf("resolve secret: %w", err)
	}
	return plain, nil
}

// Store seals value with the key at keyPath, creating the key if needed, and
// writes it as key=ENC[age:...] into the .env at dotenvPath.
func Store(keyPath, dotenvPath, key, value string) error {
	k, err := EnsureKeyring(keyPath)
	if err != nil {
		return err
	}
	blob, err := k.Seal(value)
	if err != nil {
		return fmt.Errorf("seal %s: %w", key, err)
	}
	if err := SetEntry(dotenvPath, key, blob); err != nil {
		return fmt.Errorf("write %s: %w", dotenvPath, err)
	}
	return nil
}
