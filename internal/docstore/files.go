// Package docstore persists expanded configuration documents to disk.
package docstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"oxray-share/internal/config"
	"oxray-share/internal/domain"
)

// Files writes documents under the configured configs directory.
type Files struct {
	dir    string
	logger *zap.Logger
}

func NewFiles(cfg *config.Config, logger *zap.Logger) *Files {
	return &Files{dir: cfg.ConfigsDir, logger: logger}
}

// SaveDocument writes the document and returns its absolute path. Names
// are sanitized and suffixed with a random id, so repeated imports never
// clobber an existing profile's file.
func (f *Files) SaveDocument(_ context.Context, name string, document string) (string, error) {
	if err := os.MkdirAll(f.dir, 0755); err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrSaveFailed, err)
	}

	fileName := fmt.Sprintf("%s-%s.json", sanitizeName(name), uuid.NewString()[:8])
	path := filepath.Join(f.dir, fileName)

	if err := os.WriteFile(path, []byte(document), 0600); err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrSaveFailed, err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrSaveFailed, err)
	}

	f.logger.Debug("saved configuration document", zap.String("path", abs))
	return abs, nil
}

// sanitizeName keeps letters, digits, dash, underscore and dot. Colons
// from "server:port" display names and path separators all become dashes.
func sanitizeName(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '-', r == '_', r == '.':
			b.WriteRune(r)
		default:
			b.WriteRune('-')
		}
	}
	if b.Len() == 0 {
		return "config"
	}
	return b.String()
}
