package git

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"git.home.luguber.info/inful/stagerunner/internal/logfields"
	"git.home.luguber.info/inful/stagerunner/internal/retry"
)

// Repository identifies a sibling repository to fetch.
type Repository struct {
	Name   string
	URL    string
	Branch string // empty means the remote HEAD
}

// Result describes a fetched checkout.
type Result struct {
	Path    string
	Commit  string
	Updated bool // an existing checkout was pulled instead of cloned
}

// Client handles Git operations
type Client struct {
	depth    int
	policy   retry.Policy
	progress io.Writer
}

// NewClient creates a client doing full, single-attempt clones.
func NewClient() *Client {
	return &Client{policy: retry.DefaultPolicy()}
}

// WithDepth limits clone history; zero clones everything.
func (c *Client) WithDepth(depth int) *Client { c.depth = depth; return c }

// WithRetryPolicy retries transient failures according to p.
func (c *Client) WithRetryPolicy(p retry.Policy) *Client { c.policy = p; return c }

// WithProgress streams remote progress messages to w.
func (c *Client) WithProgress(w io.Writer) *Client { c.progress = w; return c }

// Fetch clones repo into dest, or pulls when dest already holds a checkout.
func (c *Client) Fetch(ctx context.Context, repo Repository, dest string) (Result, error) {
	var res Result
	err := c.policy.Do(ctx, IsPermanent,
		func(attempt int, prev error) {
			slog.Warn("Retrying git operation", logfields.Repository(repo.Name), slog.Int("attempt", attempt), logfields.Error(prev))
		},
		func() error {
			var err error
			res, err = c.fetchOnce(ctx, repo, dest)
			return err
		})
	return res, err
}

func (c *Client) fetchOnce(ctx context.Context, repo Repository, dest string) (Result, error) {
	if _, err := os.Stat(filepath.Join(dest, ".git")); err == nil {
		return c.update(ctx, repo, dest)
	}
	return c.clone(ctx, repo, dest)
}

func (c *Client) clone(ctx context.Context, repo Repository, dest string) (Result, error) {
	created, err := prepareDestination(dest)
	if err != nil {
		return Result{}, err
	}

	opts := &git.CloneOptions{URL: repo.URL, Progress: c.progress, Depth: c.depth}
	if repo.Branch != "" {
		opts.ReferenceName = plumbing.NewBranchReferenceName(repo.Branch)
		opts.SingleBranch = true
	}
	slog.Debug("Cloning repository", logfields.URL(repo.URL), logfields.Name(repo.Name), slog.String("branch", repo.Branch), logfields.Path(dest))

	repository, err := git.PlainCloneContext(ctx, dest, false, opts)
	if err != nil {
		if created {
			_ = os.RemoveAll(dest)
		}
		return Result{}, classify("clone", repo.URL, err)
	}

	res := Result{Path: dest, Commit: headCommit(repository)}
	slog.Info("Repository cloned", logfields.Name(repo.Name), logfields.URL(repo.URL), slog.String("commit", short(res.Commit)), logfields.Path(dest))
	return res, nil
}

func (c *Client) update(ctx context.Context, repo Repository, dest string) (Result, error) {
	repository, err := git.PlainOpen(dest)
	if err != nil {
		return Result{}, fmt.Errorf("open repository %s: %w", dest, err)
	}
	worktree, err := repository.Worktree()
	if err != nil {
		return Result{}, fmt.Errorf("worktree %s: %w", dest, err)
	}

	opts := &git.PullOptions{RemoteName: "origin", Progress: c.progress, Depth: c.depth}
	if repo.Branch != "" {
		opts.ReferenceName = plumbing.NewBranchReferenceName(repo.Branch)
		opts.SingleBranch = true
	}
	err = worktree.PullContext(ctx, opts)
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return Result{}, classify("pull", repo.URL, err)
	}

	res := Result{Path: dest, Commit: headCommit(repository), Updated: true}
	if errors.Is(err, git.NoErrAlreadyUpToDate) {
		slog.Info("Repository already up to date", logfields.Name(repo.Name), slog.String("commit", short(res.Commit)))
	} else {
		slog.Info("Repository updated", logfields.Name(repo.Name), slog.String("commit", short(res.Commit)))
	}
	return res, nil
}

// prepareDestination refuses non-empty directories and reports whether the
// caller owns dest (and may remove it after a failed clone).
func prepareDestination(dest string) (bool, error) {
	entries, err := os.ReadDir(dest)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return true, nil
	case err != nil:
		return false, fmt.Errorf("inspect %s: %w", dest, err)
	case len(entries) > 0:
		return false, &DestinationExistsError{Path: dest}
	default:
		return false, nil
	}
}

func headCommit(r *git.Repository) string {
	ref, err := r.Head()
	if err != nil {
		return ""
	}
	return ref.Hash().String()
}

func short(hash string) string {
	if len(hash) > 8 {
		return hash[:8]
	}
	return hash
}
