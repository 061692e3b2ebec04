// Package cloner checks out a repository worktree into an isolated
// temporary directory for scanning and indexing.
package cloner

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
	"github.com/go-git/go-git/v5/plumbing"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
)

const (
	// DefaultTimeout bounds any single clone or fetch operation.
	DefaultTimeout = 300 * time.Second
	// DefaultMaxBytes bounds the on-disk size of a checked-out worktree.
	// go-git has no built-in quota, so this is enforced after the fact by
	// walking the checkout and aborting the job if it is exceeded.
	DefaultMaxBytes = 500 * 1024 * 1024
)

var errTokenRequired = errors.New("cloner: an access token is required for an https remote")

// Cloner checks out repositories into a contained temp root. It never
// writes credentials into a URL, argv, or environment variable: go-git's
// transport is pure Go and accepts auth as an in-memory struct, so the
// token is never visible to a subprocess, a process listing, or a log
// line built from the remote URL.
type Cloner struct {
	tempRoot string
	logger   *slog.Logger
}

// New returns a Cloner rooted at tempRoot. tempRoot is created if it does
// not exist; every checkout lives in a subdirectory of it, which lets a
// single sweep (Sweep) reclaim all abandoned checkouts after a crash.
func New(tempRoot string, logger *slog.Logger) (*Cloner, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if tempRoot == "" {
		tempRoot = filepath.Join(os.TempDir(), "coderadar-checkouts")
	}
	if err := os.MkdirAll(tempRoot, 0o700); err != nil {
		return nil, fmt.Errorf("cloner: create temp root: %w", err)
	}
	return &Cloner{tempRoot: tempRoot, logger: logger}, nil
}

// Checkout clones repoURL at ref into a new temp directory and returns its
// path and the resolved commit SHA. Callers must call the returned cleanup
// func once done with the checkout. ref may be a branch name, a tag, or a
// commit SHA; empty ref checks out the remote's default branch.
func (c *Cloner) Checkout(ctx context.Context, repoURL, ref, token string) (workDir, commitSHA string, cleanup func(), err error) {
	if err := validateRemoteURL(repoURL); err != nil {
		return "", "", nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, DefaultTimeout)
	defer cancel()

	workDir, err = os.MkdirTemp(c.tempRoot, "checkout-*")
	if err != nil {
		return "", "", nil, fmt.Errorf("cloner: create work dir: %w", err)
	}
	cleanup = func() {
		if rmErr := os.RemoveAll(workDir); rmErr != nil {
			c.logger.Error("cloner: cleanup failed", "path", workDir, "error", rmErr)
		}
	}

	auth, err := authFor(repoURL, token)
	if err != nil {
		cleanup()
		return "", "", nil, err
	}

	cloneOpts := &git.CloneOptions{
		URL:  repoURL,
		Auth: auth,
	}
	if ref != "" {
		cloneOpts.ReferenceName = plumbing.NewBranchReferenceName(ref)
		cloneOpts.SingleBranch = true
	}

	c.logger.InfoContext(ctx, "cloning repository", "path", workDir)
	repo, err := git.PlainCloneContext(ctx, workDir, false, cloneOpts)
	if err != nil && ref != "" {
		// ref may be a tag or a bare commit SHA rather than a branch; retry
		// with a full clone and an explicit checkout below.
		cloneOpts.ReferenceName = ""
		cloneOpts.SingleBranch = false
		repo, err = git.PlainCloneContext(ctx, workDir, false, cloneOpts)
	}
	if err != nil {
		cleanup()
		return "", "", nil, sanitizeCloneError(err, repoURL)
	}

	if ref != "" {
		if ckErr := checkoutRef(repo, ref); ckErr != nil {
			cleanup()
			return "", "", nil, sanitizeCloneError(ckErr, repoURL)
		}
	}

	head, err := repo.Head()
	if err != nil {
		cleanup()
		return "", "", nil, fmt.Errorf("cloner: resolve HEAD: %w", err)
	}
	commitSHA = head.Hash().String()

	size, err := dirSize(workDir)
	if err != nil {
		c.logger.Warn("cloner: could not measure checkout size", "error", err)
	} else if size > DefaultMaxBytes {
		cleanup()
		return "", "", nil, fmt.Errorf("cloner: checkout exceeds the %d byte limit (%d bytes)", DefaultMaxBytes, size)
	}

	c.logger.InfoContext(ctx, "checkout complete", "sha", commitSHA, "bytes", size)
	return workDir, commitSHA, cleanup, nil
}

// Sweep removes checkout directories under the temp root older than maxAge,
// reclaiming space left behind by a process that exited before calling its
// checkout's cleanup func.
func (c *Cloner) Sweep(maxAge time.Duration) error {
	entries, err := os.ReadDir(c.tempRoot)
	if err != nil {
		return fmt.Errorf("cloner: read temp root: %w", err)
	}
	cutoff := time.Now().Add(-maxAge)
	for _, e := range entries {
		info, err := e.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		path := filepath.Join(c.tempRoot, e.Name())
		if !strings.HasPrefix(path, c.tempRoot) {
			continue // defense against a crafted entry name escaping the root
		}
		if rmErr := os.RemoveAll(path); rmErr != nil {
			c.logger.Error("cloner: sweep failed to remove entry", "path", path, "error", rmErr)
		}
	}
	return nil
}

func checkoutRef(repo *git.Repository, ref string) error {
	wt, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("get worktree: %w", err)
	}
	// Try a tag first, then fall back to treating ref as a raw commit hash.
	if tagRef, tErr := repo.Reference(plumbing.NewTagReferenceName(ref), true); tErr == nil {
		return wt.Checkout(&git.CheckoutOptions{Hash: tagRef.Hash(), Force: true})
	}
	return wt.Checkout(&git.CheckoutOptions{Hash: plumbing.NewHash(ref), Force: true})
}

func authFor(repoURL, token string) (*githttp.BasicAuth, error) {
	u, err := url.Parse(repoURL)
	if err != nil {
		return nil, fmt.Errorf("cloner: invalid repository url: %w", err)
	}
	if u.Scheme != "https" {
		if token != "" {
			return nil, fmt.Errorf("cloner: refusing to send a token over %q", u.Scheme)
		}
		return nil, nil
	}
	if token == "" {
		return nil, errTokenRequired
	}
	return &githttp.BasicAuth{Username: "x-access-token", Password: token}, nil
}

func validateRemoteURL(repoURL string) error {
	u, err := url.Parse(repoURL)
	if err != nil {
		return fmt.Errorf("cloner: invalid repository url: %w", err)
	}
	if u.Scheme != "https" && u.Scheme != "http" {
		return fmt.Errorf("cloner: unsupported scheme %q, only http(s) remotes are allowed", u.Scheme)
	}
	if u.User != nil {
		return errors.New("cloner: repository url must not embed credentials")
	}
	return nil
}

// sanitizeCloneError strips the remote URL from a go-git error. go-git's
// wrapped errors sometimes interpolate the URL passed to CloneOptions; since
// that URL is always credential-free here (auth travels out-of-band via
// BasicAuth), this is a defense against leaking the repoURL's query string,
// not the token itself.
func sanitizeCloneError(err error, repoURL string) error {
	msg := err.Error()
	if repoURL != "" {
		msg = strings.ReplaceAll(msg, repoURL, "<repository>")
	}
	return fmt.Errorf("cloner: %s", msg)
}

func dirSize(root string) (int64, error) {
	var total int64
	err := filepath.Walk(root, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() && info.Name() == ".git" {
			return filepath.SkipDir
		}
		if !info.IsDir() {
			total += info.Size()
		}
		return nil
	})
	return total, err
}
