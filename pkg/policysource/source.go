// Package policysource loads firm policy documents from wherever
// compliance teams keep them: local files for ad-hoc ingestion, git
// repositories for versioned policy management.
package policysource

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// Source fetches one firm's policy document.
type Source interface {
	// Fetch returns the policy text.
	Fetch(ctx context.Context) (string, error)
}

// FileSource reads a policy document from the local filesystem.
type FileSource struct {
	Path string
}

// NewFileSource creates a file-backed source.
func NewFileSource(path string) *FileSource {
	return &FileSource{Path: path}
}

// Fetch reads the file. Empty documents are rejected; ingesting an empty
// policy would silently wipe a firm's rules.
func (s *FileSource) Fetch(ctx context.Context) (string, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return "", fmt.Errorf("failed to read policy file %q: %w", s.Path, err)
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return "", fmt.Errorf("policy file %q is empty", s.Path)
	}
	return text, nil
}
