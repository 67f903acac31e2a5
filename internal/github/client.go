package github

import (
	"context"
	"errors"
	"net/http"

	"github.com/gofri/go-github-ratelimit/github_ratelimit"
	"github.com/google/go-github/v81/github"
)

// Client wraps the GitHub API client with rate limiting support
type Client struct {
	*github.Client
}

// NewClient creates a new GitHub client with optional authentication and rate limiting.
// An empty token yields an unauthenticated client (60 requests/hour).
func NewClient(token string) (*Client, error) {
	// Handles secondary rate limits (abuse detection) by waiting and retrying the request.
	rateLimiter, err := github_ratelimit.NewRateLimitWaiterClient(nil)
	if err != nil {
		return nil, err
	}

	ghClient := github.NewClient(rateLimiter)
	if token != "" {
		ghClient = ghClient.WithAuthToken(token)
	}

	return &Client{Client: ghClient}, nil
}

// RepositoryExists reports whether owner/name is visible to this client.
// A 404 from the API is reported as (false, nil).
func (c *Client) RepositoryExists(ctx context.Context, owner, name string) (bool, error) {
	_, _, err := c.Repositories.Get(ctx, owner, name)
	if err == nil {
		return true, nil
	}
	var errResp *github.ErrorResponse
	if errors.As(err, &errResp) && errResp.Response != nil && errResp.Response.StatusCode == http.StatusNotFound {
		return false, nil
	}
	return false, err
}
