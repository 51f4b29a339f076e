package git

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/stagerunner/internal/config"
	"git.home.luguber.info/inful/stagerunner/internal/retry"
)

// newSourceRepo creates a local repository with one commit and returns its path.
func newSourceRepo(t *testing.T) (string, *git.Repository) {
	t.Helper()
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err, "failed to initialize git repo")
	commitFile(t, dir, repo, "setup.py", "from setuptools import setup\n")
	return dir, repo
}

func commitFile(t *testing.T, dir string, repo *git.Repository, name, content string) string {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))
	w, err := repo.Worktree()
	require.NoError(t, err)
	_, err = w.Add(name)
	require.NoError(t, err)
	hash, err := w.Commit("add "+name, &git.CommitOptions{
		Author: &object.Signature{Name: "ci", Email: "ci@example.com", When: time.Now()},
	})
	require.NoError(t, err)
	return hash.String()
}

func TestFetchClonesMissingCheckout(t *testing.T) {
	src, srcRepo := newSourceRepo(t)
	head, err := srcRepo.Head()
	require.NoError(t, err)

	dest := filepath.Join(t.TempDir(), "cloudify-rest-client")
	res, err := NewClient().Fetch(context.Background(), Repository{Name: "cloudify-rest-client", URL: src}, dest)
	require.NoError(t, err)

	assert.Equal(t, dest, res.Path)
	assert.False(t, res.Updated)
	assert.Equal(t, head.Hash().String(), res.Commit)
	assert.FileExists(t, filepath.Join(dest, "setup.py"))
}

func TestFetchPullsExistingCheckout(t *testing.T) {
	src, srcRepo := newSourceRepo(t)
	dest := filepath.Join(t.TempDir(), "dep")
	client := NewClient()

	_, err := client.Fetch(context.Background(), Repository{Name: "dep", URL: src}, dest)
	require.NoError(t, err)

	res, err := client.Fetch(context.Background(), Repository{Name: "dep", URL: src}, dest)
	require.NoError(t, err)
	assert.True(t, res.Updated, "second fetch should reuse the checkout")

	latest := commitFile(t, src, srcRepo, "README.rst", "docs\n")
	res, err = client.Fetch(context.Background(), Repository{Name: "dep", URL: src}, dest)
	require.NoError(t, err)
	assert.Equal(t, latest, res.Commit)
	assert.FileExists(t, filepath.Join(dest, "README.rst"))
}

func TestFetchRefusesNonEmptyDestination(t *testing.T) {
	src, _ := newSourceRepo(t)
	dest := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dest, "stray"), []byte("x"), 0o600))

	_, err := NewClient().Fetch(context.Background(), Repository{Name: "dep", URL: src}, dest)
	var destErr *DestinationExistsError
	require.ErrorAs(t, err, &destErr)
	assert.True(t, IsPermanent(err))
	assert.FileExists(t, filepath.Join(dest, "stray"), "existing content must be left alone")
}

func TestFetchMissingRemoteIsPermanentAndCleansUp(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "does-not-exist")
	dest := filepath.Join(t.TempDir(), "dep")
	policy := retry.NewPolicy(config.RetryBackoffFixed, time.Millisecond, time.Millisecond, 3)

	_, err := NewClient().WithRetryPolicy(policy).Fetch(context.Background(), Repository{Name: "dep", URL: missing}, dest)
	require.Error(t, err)
	assert.True(t, IsPermanent(err), "expected permanent error, got %v", err)
	assert.NoDirExists(t, dest)
}

func TestClassify(t *testing.T) {
	cases := []struct {
		msg  string
		want any
	}{
		{"authentication required", &AuthError{}},
		{"repository not found", &NotFoundError{}},
		{"unsupported protocol scheme", &UnsupportedProtocolError{}},
	}
	for _, tc := range cases {
		err := classify("clone", "https://example.com/r", errors.New(tc.msg))
		assert.IsType(t, tc.want, err, tc.msg)
		assert.True(t, IsPermanent(err))
	}

	transient := classify("clone", "https://example.com/r", errors.New("connection reset by peer"))
	assert.False(t, IsPermanent(transient))
	assert.Nil(t, classify("clone", "u", nil))
}
