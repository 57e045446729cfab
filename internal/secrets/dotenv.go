package secrets

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// SetEntry writes or updates a KEY=VALUE line in a .env file, keeping comments,
// ordering and blank lines. New keys are appended at the end.
func SetEntry(path, key, value string) error {
	lines, err := readLines(path)
	if err != nil {
		return fmt.Errorf("read dotenv: %w", err)
	}

	entry := key + "=" + quoteValue(value)

	replaced := false
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		k, _, ok := strings.Cut(trimmed, "=")
		if ok && strings.TrimSpace(k) == key {
			lines[i] = entry
			replaced = true
			break
		}
	}
	if !replaced {
		lines = append(lines, entry)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create dotenv dir: %w", err)
	}
	return os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o600)
}

// readLines returns the file's lines, or nil when the file does not exist yet.
func readLines(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	content := strings.TrimRight(string(data), "\n")
	if content == "" {
		return nil, nil
	}
	return strings.Split(content, "\n"), nil
}

// quoteValue wraps the value in double quotes if it contains spaces, quotes, or special chars.
func quoteValue(v string) string {
	if !strings.ContainsAny(v, " \t\"'\\#$") {
		return v
	}
	escaped := strings.ReplaceAll(v, `\`, `\\`)
	escaped = strings.ReplaceAll(escaped, `"`, `\"`)
	return `"` + escaped + `"`
}
