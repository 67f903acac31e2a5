package github

import (
	"fmt"
	"net/url"
	"strings"
)

// RepoRef is the owner/name pair parsed from a repository URL.
type RepoRef struct {
	Host  string
	Owner string
	Name  string
}

// ID returns the collection and working-copy identifier, "<owner>-<name>".
func (r RepoRef) ID() string {
	return r.Owner + "-" + r.Name
}

// ParseRepoURL extracts host, owner and name from an http(s) repository URL.
// The first two path segments are used; a trailing ".git" is removed from the name.
func ParseRepoURL(rawURL string) (RepoRef, error) {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return RepoRef{}, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return RepoRef{}, fmt.Errorf("%w: scheme must be http or https", ErrInvalidURL)
	}
	if parsed.Host == "" {
		return RepoRef{}, fmt.Errorf("%w: missing host", ErrInvalidURL)
	}

	parts := strings.Split(strings.Trim(parsed.Path, "/"), "/")
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return RepoRef{}, fmt.Errorf("%w: expected https://host/<owner>/<name>, got %q", ErrInvalidURL, rawURL)
	}
	name := strings.TrimSuffix(parts[1], ".git")
	if name == "" {
		return RepoRef{}, fmt.Errorf("%w: empty repository name", ErrInvalidURL)
	}

	return RepoRef{
		Host:  strings.ToLower(parsed.Hostname()),
		Owner: parts[0],
		Name:  name,
	}, nil
}

// ParseRepoID derives the "<owner>-<name>" identifier from a repository URL.
// Example: "https://github.com/tiangolo/fastapi" -> "tiangolo-fastapi".
func ParseRepoID(rawURL string) (string, error) {
	ref, err := ParseRepoURL(rawURL)
	if err != nil {
		return "", err
	}
	return ref.ID(), nil
}
