package worktree

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/mmr-tortoise/gwt/internal/exec"
	"github.com/mmr-tortoise/gwt/internal/model"
)

// ErrBranchNotMerged is returned by DeleteBranch when a safe delete (-d)
// fails because the branch contains commits that are not reachable from
// its upstream. Callers can detect this case with errors.Is and offer
// the user a forced delete instead.
var ErrBranchNotMerged = errors.New("branch is not fully merged")

// Worktree holds metadata about a single Git worktree entry as parsed
// from `git worktree list --porcelain` output.
//
// Example porcelain block for a single worktree:
//
//	worktree /path/to/myapp-worktrees/feature-x
//	HEAD abc123def456
//	branch refs/heads/feature-x
type Worktree struct {
	// Path is the absolute filesystem path to the worktree directory.
	Path string

	// Head is the commit SHA the worktree currently points to.
	Head string

	// Branch is the full branch reference (e.g., "refs/heads/main").
	// Empty if the worktree is in a detached HEAD state.
	Branch string

	// Bare indicates whether this entry represents a bare repository.
	// Bare entries are listed but never eligible for removal.
	Bare bool
}

// Manager provides Git worktree operations by invoking the git CLI
// through an exec.CommandExecutor.
//
// Design decisions:
//   - We shell out to `git` rather than using a Go Git library (e.g., go-git)
//     because worktree operations require full Git CLI compatibility, and
//     go-git's worktree support is limited.
//   - The executor is injected so tests can run against recorded responses
//     instead of a real repository.
//   - All errors from Git commands are wrapped in model.CLIError with
//     ExitGitError, carrying the captured stderr for diagnostics.
type Manager struct {
	executor exec.CommandExecutor
}

// NewManager creates a worktree Manager that runs git commands through
// the given executor.
func NewManager(executor exec.CommandExecutor) *Manager {
	return &Manager{executor: executor}
}

// List returns all worktrees registered with the repository at gitDir.
//
// It runs `git worktree list --porcelain`, which produces
// machine-parseable output: one attribute per line, a new `worktree`
// line starting each entry.
func (m *Manager) List(ctx context.Context, gitDir string) ([]Worktree, error) {
	output, err := m.runGit(ctx, gitDir, "worktree", "list", "--porcelain")
	if err != nil {
		return nil, err
	}
	return parseWorktreeList(output), nil
}

// FetchOrigin updates remote-tracking branches from origin. Output is
// streamed to the terminal so the user sees git's own progress meter
// during long fetches.
func (m *Manager) FetchOrigin(ctx context.Context, dir string) error {
	if err := m.executor.Stream(ctx, dir, nil, "git", "fetch", "origin"); err != nil {
		return model.WrapCLIError(model.ExitGitError, "git fetch origin failed", err)
	}
	return nil
}

// BranchExists reports whether a branch exists locally and/or on origin.
//
// Existence is determined by whether `git branch --list` produces any
// output; lookup failures are read as "does not exist" rather than
// propagated, so callers always get a usable answer.
func (m *Manager) BranchExists(ctx context.Context, dir, name string) (local, remote bool) {
	if out, _, err := m.executor.Run(ctx, dir, "git", "branch", "--list", name); err == nil {
		local = strings.TrimSpace(string(out)) != ""
	}
	if out, _, err := m.executor.Run(ctx, dir, "git", "branch", "-r", "--list", "origin/"+name); err == nil {
		remote = strings.TrimSpace(string(out)) != ""
	}
	return local, remote
}

// AddExisting creates a worktree at path checking out an existing local
// branch.
func (m *Manager) AddExisting(ctx context.Context, dir, path, branch string) error {
	_, err := m.runGit(ctx, dir, "worktree", "add", path, branch)
	return err
}

// AddTracking creates a worktree at path on a new local branch that
// tracks the same-named branch on origin.
func (m *Manager) AddTracking(ctx context.Context, dir, path, branch string) error {
	_, err := m.runGit(ctx, dir, "worktree", "add", path, "-b", branch, "origin/"+branch)
	return err
}

// AddFromBase creates a worktree at path on a brand-new branch started
// from origin/<base>. --no-track keeps the new branch from tracking the
// base branch, so a later `git push` offers to create the matching
// remote branch instead of pushing to the base.
func (m *Manager) AddFromBase(ctx context.Context, dir, path, branch, base string) error {
	_, err := m.runGit(ctx, dir, "worktree", "add", "--no-track", path, "-b", branch, "origin/"+base)
	return err
}

// Remove deletes the worktree at path. --force is always passed because
// the CLI performs its own interactive confirmation first; without it,
// git would refuse worktrees with untracked or modified files.
func (m *Manager) Remove(ctx context.Context, dir, path string) error {
	_, err := m.runGit(ctx, dir, "worktree", "remove", path, "--force")
	return err
}

// Prune removes stale administrative files under .git/worktrees for
// worktree directories that no longer exist.
func (m *Manager) Prune(ctx context.Context, dir string) error {
	_, err := m.runGit(ctx, dir, "worktree", "prune")
	return err
}

// DeleteBranch deletes a local branch. When force is false a safe
// delete (-d) is attempted; if git refuses because the branch is not
// fully merged, the returned error wraps ErrBranchNotMerged so the
// caller can prompt for a forced delete (-D).
func (m *Manager) DeleteBranch(ctx context.Context, dir, name string, force bool) error {
	flag := "-d"
	if force {
		flag = "-D"
	}

	_, stderr, err := m.executor.Run(ctx, dir, "git", "branch", flag, name)
	if err == nil {
		return nil
	}

	stderrStr := strings.TrimSpace(string(stderr))
	if !force && strings.Contains(stderrStr, "not fully merged") {
		return fmt.Errorf("branch %q: %w", name, ErrBranchNotMerged)
	}

	message := fmt.Sprintf("git branch %s %s failed", flag, name)
	if stderrStr != "" {
		message = fmt.Sprintf("%s: %s", message, stderrStr)
	}
	return model.WrapCLIError(model.ExitBranchError, message, err)
}

// CurrentBranch returns the branch HEAD points to at dir. Fails when
// HEAD is detached, since there is no branch to report.
func (m *Manager) CurrentBranch(ctx context.Context, dir string) (string, error) {
	output, err := m.runGit(ctx, dir, "symbolic-ref", "--short", "HEAD")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(output), nil
}

// RemoteDefaultBranch determines the default branch of origin.
//
// Resolution order:
//  1. `git symbolic-ref refs/remotes/origin/HEAD` — present after clone,
//     returns e.g. "refs/remotes/origin/main".
//  2. Probe origin/main then origin/master with `rev-parse --verify`.
//  3. Fall back to the current branch, for repositories whose remote
//     branches have never been fetched.
func (m *Manager) RemoteDefaultBranch(ctx context.Context, dir string) (string, error) {
	if output, err := m.runGit(ctx, dir, "symbolic-ref", "refs/remotes/origin/HEAD"); err == nil {
		ref := strings.TrimSpace(output)
		if branch, ok := strings.CutPrefix(ref, "refs/remotes/origin/"); ok {
			return branch, nil
		}
	}

	for _, branch := range []string{"main", "master"} {
		if output, err := m.runGit(ctx, dir, "rev-parse", "--verify", "origin/"+branch); err == nil {
			if strings.TrimSpace(output) != "" {
				return branch, nil
			}
		}
	}

	return m.CurrentBranch(ctx, dir)
}

// GitRoot returns the top-level directory of the working tree that
// contains startDir, or "" (with a nil error) when startDir is not
// inside a git repository. This works for both main checkouts and
// linked worktrees.
func (m *Manager) GitRoot(ctx context.Context, startDir string) (string, error) {
	output, _, err := m.executor.Run(ctx, startDir, "git", "rev-parse", "--show-toplevel")
	if err != nil {
		return "", nil
	}
	return strings.TrimSpace(string(output)), nil
}

// RemoteOriginURL returns the URL of the origin remote at dir.
func (m *Manager) RemoteOriginURL(ctx context.Context, dir string) (string, error) {
	output, err := m.runGit(ctx, dir, "remote", "get-url", "origin")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(output), nil
}

// CleanBranchName normalizes a branch reference for display and
// comparison: surrounding whitespace is trimmed and a leading
// "refs/heads/" is stripped, so "refs/heads/feature-x" and "feature-x"
// compare equal.
func CleanBranchName(ref string) string {
	return strings.TrimPrefix(strings.TrimSpace(ref), "refs/heads/")
}

// FindByBranch returns the worktree whose branch matches name (after
// CleanBranchName normalization), or nil if no worktree has it checked
// out.
func FindByBranch(worktrees []Worktree, name string) *Worktree {
	for i := range worktrees {
		if worktrees[i].Branch == "" {
			continue
		}
		if CleanBranchName(worktrees[i].Branch) == name {
			return &worktrees[i]
		}
	}
	return nil
}

// FindByDirName returns the worktree whose directory basename matches
// name, or nil. This lets users refer to a worktree by the folder they
// see on disk even when it differs from the branch name.
func FindByDirName(worktrees []Worktree, name string) *Worktree {
	for i := range worktrees {
		if filepath.Base(worktrees[i].Path) == name {
			return &worktrees[i]
		}
	}
	return nil
}

// runGit executes a git command in dir through the injected executor.
//
// On success it returns the captured stdout. On failure it returns a
// model.CLIError with ExitGitError whose message includes the command
// and git's stderr output for diagnostics.
func (m *Manager) runGit(ctx context.Context, dir string, args ...string) (string, error) {
	stdout, stderr, err := m.executor.Run(ctx, dir, "git", args...)
	if err != nil {
		message := fmt.Sprintf("git %s failed", strings.Join(args, " "))
		if stderrStr := strings.TrimSpace(string(stderr)); stderrStr != "" {
			message = fmt.Sprintf("%s: %s", message, stderrStr)
		}
		return "", model.WrapCLIError(model.ExitGitError, message, err)
	}
	return string(stdout), nil
}

// parseWorktreeList parses `git worktree list --porcelain` output.
//
// The porcelain format emits one attribute per line. A `worktree <path>`
// line opens a new entry; `HEAD <sha>` and `branch <ref>` fill in the
// current entry; a literal `bare` marks bare repositories. Unknown lines
// (including the `detached` marker and blank separators) are ignored.
//
// A partial entry is promoted to the result only when both its path and
// head were seen; incomplete blocks are silently dropped. Branch is
// optional — detached worktrees simply have an empty Branch field.
func parseWorktreeList(output string) []Worktree {
	type partial struct {
		path, head, branch string
		bare               bool
	}

	var (
		worktrees []Worktree
		current   *partial
	)

	flush := func() {
		if current != nil && current.path != "" && current.head != "" {
			worktrees = append(worktrees, Worktree{
				Path:   current.path,
				Head:   current.head,
				Branch: current.branch,
				Bare:   current.bare,
			})
		}
		current = nil
	}

	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimRight(line, "\r")
		switch {
		case strings.HasPrefix(line, "worktree "):
			flush()
			current = &partial{path: strings.TrimPrefix(line, "worktree ")}
		case strings.HasPrefix(line, "HEAD "):
			if current != nil {
				current.head = strings.TrimPrefix(line, "HEAD ")
			}
		case strings.HasPrefix(line, "branch "):
			if current != nil {
				current.branch = strings.TrimPrefix(line, "branch ")
			}
		case line == "bare":
			if current != nil {
				current.bare = true
			}
		}
	}
	flush()

	return worktrees
}
