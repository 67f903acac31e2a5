package github

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCloner struct {
	calls []string
	files map[string]string
	err   error
}

func (f *fakeCloner) Clone(ctx context.Context, rawURL, dir string) (string, error) {
	f.calls = append(f.calls, rawURL)
	if f.err != nil {
		// Leave a half-written directory behind like an interrupted clone.
		_ = os.MkdirAll(dir, 0o755)
		return "", f.err
	}
	for name, content := range f.files {
		full := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			return "", err
		}
		if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
			return "", err
		}
	}
	return "deadbeef", nil
}

type fakeChecker struct {
	exists bool
	err    error
	calls  int
}

func (f *fakeChecker) RepositoryExists(ctx context.Context, owner, name string) (bool, error) {
	f.calls++
	return f.exists, f.err
}

func TestFetcher_ClonesIntoIdentifierDirectory(t *testing.T) {
	base := t.TempDir()
	cloner := &fakeCloner{files: map[string]string{"README.md": "# hi"}}
	f := NewFetcher(base, cloner, nil, nil)

	checkout, err := f.Fetch(context.Background(), "https://github.com/octocat/Hello-World")
	require.NoError(t, err)

	assert.Equal(t, "octocat-Hello-World", checkout.RepoID)
	assert.Equal(t, filepath.Join(base, "octocat-Hello-World"), checkout.Path)
	assert.Equal(t, "deadbeef", checkout.CommitSHA)
	assert.FileExists(t, filepath.Join(checkout.Path, "README.md"))
}

func TestFetcher_ReplacesPreviousWorkingCopy(t *testing.T) {
	base := t.TempDir()
	stale := filepath.Join(base, "octocat-Hello-World", "stale.txt")
	require.NoError(t, os.MkdirAll(filepath.Dir(stale), 0o755))
	require.NoError(t, os.WriteFile(stale, []byte("old"), 0o644))

	f := NewFetcher(base, &fakeCloner{files: map[string]string{"new.py": "x = 1"}}, nil, nil)
	checkout, err := f.Fetch(context.Background(), "https://github.com/octocat/Hello-World.git")
	require.NoError(t, err)

	assert.NoFileExists(t, stale)
	assert.FileExists(t, filepath.Join(checkout.Path, "new.py"))
}

func TestFetcher_TrimsURLBeforeCloning(t *testing.T) {
	cloner := &fakeCloner{}
	f := NewFetcher(t.TempDir(), cloner, nil, nil)

	checkout, err := f.Fetch(context.Background(), "  https://github.com/octocat/Hello-World\n")
	require.NoError(t, err)

	assert.Equal(t, "octocat-Hello-World", checkout.RepoID)
	assert.Equal(t, []string{"https://github.com/octocat/Hello-World"}, cloner.calls)
}

func TestFetcher_InvalidURLNeverClones(t *testing.T) {
	cloner := &fakeCloner{}
	checker := &fakeChecker{exists: true}
	f := NewFetcher(t.TempDir(), cloner, checker, nil)

	_, err := f.Fetch(context.Background(), "https://github.com/octocat")
	assert.ErrorIs(t, err, ErrInvalidURL)
	assert.Empty(t, cloner.calls)
	assert.Zero(t, checker.calls)
}

func TestFetcher_CloneErrorIsCloneFailure(t *testing.T) {
	base := t.TempDir()
	f := NewFetcher(base, &fakeCloner{err: errors.New("connection refused")}, nil, nil)

	_, err := f.Fetch(context.Background(), "https://example.com/a/b")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCloneFailure)
	assert.Contains(t, err.Error(), "connection refused")
	assert.NoDirExists(t, filepath.Join(base, "a-b"))
}

func TestFetcher_PreflightNotFound(t *testing.T) {
	cloner := &fakeCloner{}
	f := NewFetcher(t.TempDir(), cloner, &fakeChecker{exists: false}, nil)

	_, err := f.Fetch(context.Background(), "https://github.com/nobody/missing")
	assert.ErrorIs(t, err, ErrCloneFailure)
	assert.Contains(t, err.Error(), "not found")
	assert.Empty(t, cloner.calls)
}

func TestFetcher_PreflightErrorDoesNotBlockClone(t *testing.T) {
	cloner := &fakeCloner{}
	f := NewFetcher(t.TempDir(), cloner, &fakeChecker{err: errors.New("api down")}, nil)

	_, err := f.Fetch(context.Background(), "https://github.com/octocat/Hello-World")
	require.NoError(t, err)
	assert.Len(t, cloner.calls, 1)
}

func TestFetcher_PreflightOnlyForGitHub(t *testing.T) {
	checker := &fakeChecker{exists: false}
	f := NewFetcher(t.TempDir(), &fakeCloner{}, checker, nil)

	_, err := f.Fetch(context.Background(), "https://gitlab.com/group/project")
	require.NoError(t, err)
	assert.Zero(t, checker.calls)
}

func TestRedactURL(t *testing.T) {
	redacted := redactURL("https://user:pw@github.com/a/b?token=x")
	assert.NotContains(t, redacted, "pw")
	assert.NotContains(t, redacted, "token")
	assert.Contains(t, redacted, "github.com/a/b")
	assert.Equal(t, "https://github.com/a/b", redactURL("https://github.com/a/b"))
}
