// Package ghpr resolves GitHub pull-request references: parsing PR URLs and
// querying the GitHub API for a PR's true base branch instead of assuming a
// fixed branch name.
package ghpr

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"

	"github.com/google/go-github/v68/github"
	"golang.org/x/oauth2"
)

// ErrInvalidReference is returned for a PR URL that does not match the
// expected https://github.com/{owner}/{repo}/pull/{number} shape.
var ErrInvalidReference = errors.New("invalid pull request reference")

var prURLRe = regexp.MustCompile(`^https://github\.com/([^/]+)/([^/]+)/pull/(\d+)$`)

// Ref identifies a pull request.
type Ref struct {
	Owner  string
	Repo   string
	Number int
}

// CloneURL returns the HTTPS clone URL for the referenced repository.
func (r Ref) CloneURL() string {
	return fmt.Sprintf("https://github.com/%s/%s.git", r.Owner, r.Repo)
}

// LocalDir returns a filesystem-safe directory name for the repository.
func (r Ref) LocalDir() string {
	return r.Owner + "_" + r.Repo
}

// ParsePRURL parses a GitHub pull request URL into a Ref.
func ParsePRURL(url string) (Ref, error) {
	m := prURLRe.FindStringSubmatch(url)
	if m == nil {
		return Ref{}, fmt.Errorf("%w: %q", ErrInvalidReference, url)
	}

	number, err := strconv.Atoi(m[3])
	if err != nil {
		return Ref{}, fmt.Errorf("%w: %q", ErrInvalidReference, url)
	}

	return Ref{
		Owner:  m[1],
		Repo:   m[2],
		Number: number,
	}, nil
}

// Client queries the GitHub API.
type Client struct {
	gh *github.Client
}

// NewClient creates a GitHub API client. An empty token yields an
// unauthenticated client subject to the anonymous rate limit.
func NewClient(ctx context.Context, token string) *Client {
	if token == "" {
		return &Client{gh: github.NewClient(nil)}
	}

	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	return &Client{gh: github.NewClient(oauth2.NewClient(ctx, ts))}
}

// BaseBranch returns the PR's base branch name as reported by GitHub.
func (c *Client) BaseBranch(ctx context.Context, ref Ref) (string, error) {
	pr, _, err := c.gh.PullRequests.Get(ctx, ref.Owner, ref.Repo, ref.Number)
	if err != nil {
		return "", fmt.Errorf("fetching PR %s/%s#%d: %w", ref.Owner, ref.Repo, ref.Number, err)
	}

	base := pr.GetBase().GetRef()
	if base == "" {
		return "", fmt.Errorf("PR %s/%s#%d has no base branch", ref.Owner, ref.Repo, ref.Number)
	}

	return base, nil
}
