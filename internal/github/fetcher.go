package github

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/transport"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
)

// preflightTimeout bounds the GitHub API lookup done before cloning.
const preflightTimeout = 10 * time.Second

// Checkout is a freshly cloned working copy.
type Checkout struct {
	RepoID    string // "<owner>-<name>"
	Path      string // Working copy directory
	CommitSHA string // HEAD of the clone
}

// Cloner materializes a remote repository into dir and returns the HEAD commit SHA.
type Cloner interface {
	Clone(ctx context.Context, rawURL, dir string) (string, error)
}

// RepositoryChecker answers whether a GitHub repository exists.
type RepositoryChecker interface {
	RepositoryExists(ctx context.Context, owner, name string) (bool, error)
}

// Fetcher clones repositories into <basePath>/<repo_id>, replacing any previous copy.
type Fetcher struct {
	basePath string
	cloner   Cloner
	checker  RepositoryChecker
	logger   *slog.Logger
}

// NewFetcher creates a repository fetcher. checker may be nil to skip the GitHub preflight.
func NewFetcher(basePath string, cloner Cloner, checker RepositoryChecker, logger *slog.Logger) *Fetcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{
		basePath: basePath,
		cloner:   cloner,
		checker:  checker,
		logger:   logger,
	}
}

// Fetch validates rawURL, deletes any existing working copy for its identifier
// and clones the repository into a fresh directory. Surrounding whitespace is
// dropped before the URL is parsed or cloned.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Checkout, error) {
	rawURL = strings.TrimSpace(rawURL)
	ref, err := ParseRepoURL(rawURL)
	if err != nil {
		return nil, err
	}
	repoID := ref.ID()

	if err := f.preflight(ctx, ref); err != nil {
		return nil, err
	}

	dir := filepath.Join(f.basePath, repoID)
	if err := os.RemoveAll(dir); err != nil {
		return nil, fmt.Errorf("%w: remove previous working copy %s: %v", ErrCloneFailure, dir, err)
	}
	if err := os.MkdirAll(f.basePath, 0o755); err != nil {
		return nil, fmt.Errorf("%w: create base path: %v", ErrCloneFailure, err)
	}

	f.logger.Info("Cloning repository", "url", redactURL(rawURL), "path", dir)
	sha, err := f.cloner.Clone(ctx, rawURL, dir)
	if err != nil {
		_ = os.RemoveAll(dir)
		return nil, fmt.Errorf("%w: %s: %v", ErrCloneFailure, redactURL(rawURL), err)
	}
	f.logger.Info("Clone complete", "repo_id", repoID, "commit", sha)

	return &Checkout{RepoID: repoID, Path: dir, CommitSHA: sha}, nil
}

// preflight asks the GitHub API whether the repository exists so a missing
// repository fails before the working copy is touched.
func (f *Fetcher) preflight(ctx context.Context, ref RepoRef) error {
	if f.checker == nil || ref.Host != "github.com" {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, preflightTimeout)
	defer cancel()

	exists, err := f.checker.RepositoryExists(ctx, ref.Owner, ref.Name)
	if err != nil {
		f.logger.Warn("GitHub preflight failed, cloning anyway", "owner", ref.Owner, "repo", ref.Name, "error", err)
		return nil
	}
	if !exists {
		return fmt.Errorf("%w: repository %s/%s not found", ErrCloneFailure, ref.Owner, ref.Name)
	}
	return nil
}

// GitCloner clones with go-git. Only the latest commit is fetched.
type GitCloner struct {
	token string
}

// NewGitCloner returns a cloner that authenticates to github.com with token when non-empty.
func NewGitCloner(token string) *GitCloner {
	return &GitCloner{token: token}
}

// Clone implements Cloner.
func (g *GitCloner) Clone(ctx context.Context, rawURL, dir string) (string, error) {
	opts := &git.CloneOptions{
		URL:          rawURL,
		Depth:        1,
		SingleBranch: true,
		Tags:         git.NoTags,
	}
	if g.token != "" && isGitHubURL(rawURL) {
		opts.Auth = &githttp.BasicAuth{Username: "x-access-token", Password: g.token}
	}

	repo, err := git.PlainCloneContext(ctx, dir, false, opts)
	if err != nil {
		switch {
		case errors.Is(err, transport.ErrRepositoryNotFound):
			return "", fmt.Errorf("remote repository not found: %w", err)
		case errors.Is(err, transport.ErrAuthenticationRequired), errors.Is(err, transport.ErrAuthorizationFailed):
			return "", fmt.Errorf("authentication failed: %w", err)
		}
		return "", err
	}

	head, err := repo.Head()
	if err != nil {
		return "", fmt.Errorf("resolve HEAD: %w", err)
	}
	return head.Hash().String(), nil
}

func isGitHubURL(rawURL string) bool {
	parsed, err := url.Parse(rawURL)
	return err == nil && parsed.Hostname() == "github.com"
}

// redactURL hides credentials and query parameters before logging.
func redactURL(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	parsed.RawQuery = ""
	if parsed.User != nil {
		parsed.User = url.User("***")
	}
	return parsed.String()
}
