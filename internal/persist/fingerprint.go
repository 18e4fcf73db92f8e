package persist

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Fingerprint returns the client identity stored under dir, creating one on
// first use.
func Fingerprint(dir string) (string, error) {
	path := filepath.Join(dir, "fingerprint")
	if data, err := os.ReadFile(path); err == nil {
		if id, err := uuid.Parse(strings.TrimSpace(string(data))); err == nil {
			return id.String(), nil
		}
	}

	id := uuid.NewString()
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", fmt.Errorf("creating fingerprint dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(id+"\n"), 0600); err != nil {
		return "", fmt.Errorf("writing fingerprint: %w", err)
	}
	return id, nil
}
