// Package gitrepo shells out to the git CLI for clone, fetch, and diff
// operations against local working copies of remote repositories.
package gitrepo

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// Client runs git commands against working copies under a root directory.
type Client struct {
	root   string
	logger *zap.Logger
}

// New creates a git client keeping working copies under root
// (e.g. "repos/").
func New(root string, logger *zap.Logger) *Client {
	return &Client{
		root:   root,
		logger: logger,
	}
}

// LocalPath returns the working-copy path for a repository name.
func (c *Client) LocalPath(name string) string {
	return filepath.Join(c.root, name)
}

// CloneFresh removes any existing working copy for the URL and clones it
// anew, returning the local path. Re-ingestion always sees current content.
func (c *Client) CloneFresh(ctx context.Context, url string) (string, error) {
	name := RepoName(url)
	localPath := c.LocalPath(name)

	if err := os.RemoveAll(localPath); err != nil {
		return "", fmt.Errorf("removing stale clone %s: %w", localPath, err)
	}

	if err := c.clone(ctx, url, localPath); err != nil {
		return "", err
	}

	return localPath, nil
}

// EnsureClone clones the URL into dir if no working copy exists, otherwise
// reuses it as-is. No pull or refresh: a review must not see refs move
// underneath it.
func (c *Client) EnsureClone(ctx context.Context, url, dir string) (string, error) {
	localPath := c.LocalPath(dir)

	if _, err := os.Stat(localPath); err == nil {
		c.logger.Debug("reusing existing clone", zap.String("path", localPath))
		return localPath, nil
	}

	if err := c.clone(ctx, url, localPath); err != nil {
		return "", err
	}

	return localPath, nil
}

func (c *Client) clone(ctx context.Context, url, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("creating clone root: %w", err)
	}

	c.logger.Info("cloning repository",
		zap.String("url", url),
		zap.String("dest", dest),
	)

	cmd := exec.CommandContext(ctx, "git", "clone", url, dest)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("git clone %s: %w: %s", url, err, strings.TrimSpace(string(out)))
	}
	return nil
}

// FetchPullHead fetches a pull request's head commit into a local remote
// ref (refs/remotes/origin/pr/N) without checking out a branch.
func (c *Client) FetchPullHead(ctx context.Context, repoPath string, prNumber int) error {
	refspec := fmt.Sprintf("refs/pull/%d/head:refs/remotes/origin/pr/%d", prNumber, prNumber)
	cmd := exec.CommandContext(ctx, "git", "-C", repoPath, "fetch", "origin", refspec)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("git fetch %s: %w: %s", refspec, err, strings.TrimSpace(string(out)))
	}
	return nil
}

// FetchBranch fetches a branch from origin.
func (c *Client) FetchBranch(ctx context.Context, repoPath, branch string) error {
	cmd := exec.CommandContext(ctx, "git", "-C", repoPath, "fetch", "origin", branch)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("git fetch origin %s: %w: %s", branch, err, strings.TrimSpace(string(out)))
	}
	return nil
}

// Diff returns the unified diff between two refs.
func (c *Client) Diff(ctx context.Context, repoPath, baseRef, headRef string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", "-C", repoPath, "diff", fmt.Sprintf("%s..%s", baseRef, headRef))
	output, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("git diff %s..%s: %w", baseRef, headRef, err)
	}
	return string(output), nil
}

// WalkFiles returns all regular file paths under root, recursively.
func (c *Client) WalkFiles(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", root, err)
	}
	return files, nil
}

// RepoName derives a working-copy directory name from a repository URL.
func RepoName(url string) string {
	name := strings.TrimSuffix(url, ".git")
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	return name
}
