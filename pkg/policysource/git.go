package policysource

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/http"
)

// GitConfig configures a git-hosted policy source.
type GitConfig struct {
	// Repository is the remote URL. Local paths work for tests and
	// air-gapped setups.
	Repository string

	// Branch to track. Default "main".
	Branch string

	// Path is the policy document's path inside the repository.
	Path string

	// LocalDir is where the working copy lives. Defaults to a directory
	// under the OS temp dir.
	LocalDir string

	// Token authenticates HTTPS remotes; empty for anonymous or local
	// access.
	Token string
}

// GitSource keeps a local clone of a policy repository and reads the
// policy document at the tracked branch's head.
type GitSource struct {
	config GitConfig
	mu     sync.Mutex
	repo   *gogit.Repository
}

// NewGitSource creates a git-backed source.
func NewGitSource(cfg GitConfig) (*GitSource, error) {
	if cfg.Repository == "" {
		return nil, fmt.Errorf("git policy source requires a repository URL")
	}
	if cfg.Path == "" {
		return nil, fmt.Errorf("git policy source requires a document path")
	}
	if cfg.Branch == "" {
		cfg.Branch = "main"
	}
	if cfg.LocalDir == "" {
		cfg.LocalDir = filepath.Join(os.TempDir(), "sentinel-policies")
	}
	return &GitSource{config: cfg}, nil
}

// Fetch clones or updates the working copy, then reads the document.
func (s *GitSource) Fetch(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureClone(ctx); err != nil {
		return "", err
	}
	if err := s.pull(ctx); err != nil {
		return "", err
	}

	data, err := os.ReadFile(filepath.Join(s.config.LocalDir, s.config.Path))
	if err != nil {
		return "", fmt.Errorf("failed to read policy document %q: %w", s.config.Path, err)
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return "", fmt.Errorf("policy document %q is empty", s.config.Path)
	}
	return text, nil
}

func (s *GitSource) ensureClone(ctx context.Context) error {
	if s.repo != nil {
		return nil
	}

	if _, err := os.Stat(filepath.Join(s.config.LocalDir, ".git")); err == nil {
		repo, err := gogit.PlainOpen(s.config.LocalDir)
		if err != nil {
			return fmt.Errorf("failed to open existing policy clone: %w", err)
		}
		s.repo = repo
		return nil
	}

	repo, err := gogit.PlainCloneContext(ctx, s.config.LocalDir, false, &gogit.CloneOptions{
		URL:           s.config.Repository,
		ReferenceName: plumbing.NewBranchReferenceName(s.config.Branch),
		SingleBranch:  true,
		Auth:          s.auth(),
	})
	if err != nil {
		return fmt.Errorf("failed to clone policy repository: %w", err)
	}
	s.repo = repo
	return nil
}

func (s *GitSource) pull(ctx context.Context) error {
	wt, err := s.repo.Worktree()
	if err != nil {
		return fmt.Errorf("failed to open worktree: %w", err)
	}
	err = wt.PullContext(ctx, &gogit.PullOptions{
		ReferenceName: plumbing.NewBranchReferenceName(s.config.Branch),
		SingleBranch:  true,
		Auth:          s.auth(),
	})
	if err != nil && err != gogit.NoErrAlreadyUpToDate {
		return fmt.Errorf("failed to pull policy repository: %w", err)
	}
	return nil
}

func (s *GitSource) auth() transport.AuthMethod {
	if s.config.Token == "" {
		return nil
	}
	// Any non-empty username works for token auth on the major hosts.
	return &http.BasicAuth{Username: "token", Password: s.config.Token}
}
