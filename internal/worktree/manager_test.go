package worktree

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmr-tortoise/gwt/internal/exec"
	"github.com/mmr-tortoise/gwt/internal/model"
)

// newTestManager creates a Manager backed by a MockExecutor with no
// fallback, so unmatched commands return empty success. Tests register
// the responses they care about and verify the exact git invocations
// through GetCalls.
func newTestManager() (*Manager, *exec.MockExecutor) {
	mock := exec.NewMockExecutor(nil)
	return NewManager(mock), mock
}

// TestList verifies that List runs the porcelain listing and parses the
// entries, including a bare main repository and a detached worktree.
func TestList(t *testing.T) {
	m, mock := newTestManager()

	porcelain := `worktree /projects/myapp/main
HEAD abc123def456
branch refs/heads/main

worktree /projects/myapp-worktrees/feature-x
HEAD def789abc012
branch refs/heads/feature-x

worktree /projects/myapp-worktrees/detached-wt
HEAD 0123456789ab
detached

`
	mock.AddExactMatch("git", []string{"worktree", "list", "--porcelain"}, exec.MockResponse{
		Stdout: []byte(porcelain),
	})

	worktrees, err := m.List(context.Background(), "/projects/myapp/main")
	require.NoError(t, err)
	require.Len(t, worktrees, 3)

	assert.Equal(t, "/projects/myapp/main", worktrees[0].Path)
	assert.Equal(t, "abc123def456", worktrees[0].Head)
	assert.Equal(t, "refs/heads/main", worktrees[0].Branch)
	assert.False(t, worktrees[0].Bare)

	assert.Equal(t, "/projects/myapp-worktrees/feature-x", worktrees[1].Path)
	assert.Equal(t, "refs/heads/feature-x", worktrees[1].Branch)

	// The detached entry has a head but no branch.
	assert.Equal(t, "/projects/myapp-worktrees/detached-wt", worktrees[2].Path)
	assert.Empty(t, worktrees[2].Branch)

	// The listing must run in the requested directory.
	calls := mock.GetCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, "/projects/myapp/main", calls[0].Dir)
}

// TestListError verifies that a failing listing is surfaced as a git
// CLIError carrying git's stderr.
func TestListError(t *testing.T) {
	m, mock := newTestManager()

	mock.AddExactMatch("git", []string{"worktree", "list", "--porcelain"}, exec.MockResponse{
		Stderr: []byte("fatal: not a git repository\n"),
		Err:    errors.New("exit status 128"),
	})

	_, err := m.List(context.Background(), "/tmp/nowhere")
	require.Error(t, err)

	var cliErr *model.CLIError
	require.ErrorAs(t, err, &cliErr)
	assert.Equal(t, model.ExitGitError, cliErr.Code)
	assert.Contains(t, cliErr.Message, "not a git repository")
}

// TestParseWorktreeList directly exercises the porcelain parser with
// known inputs to verify the promotion rules.
func TestParseWorktreeList(t *testing.T) {
	input := `worktree /path/to/main
HEAD abc123def456
branch refs/heads/main

worktree /path/to/feature
HEAD def789abc012
branch refs/heads/feature
`
	result := parseWorktreeList(input)
	require.Len(t, result, 2)

	assert.Equal(t, "/path/to/main", result[0].Path)
	assert.Equal(t, "abc123def456", result[0].Head)
	assert.Equal(t, "refs/heads/main", result[0].Branch)
	assert.False(t, result[0].Bare)

	assert.Equal(t, "/path/to/feature", result[1].Path)
	assert.Equal(t, "def789abc012", result[1].Head)
	assert.Equal(t, "refs/heads/feature", result[1].Branch)
}

// TestParseWorktreeListBare verifies the bare marker is recognized.
func TestParseWorktreeListBare(t *testing.T) {
	input := `worktree /path/to/bare-repo
HEAD abc123
bare
`
	result := parseWorktreeList(input)
	require.Len(t, result, 1)

	assert.True(t, result[0].Bare)
	assert.Empty(t, result[0].Branch, "bare worktree should have no branch")
}

// TestParseWorktreeListDetached verifies that a detached worktree is
// kept with an empty branch and that the standalone `detached` marker
// is ignored rather than misparsed.
func TestParseWorktreeListDetached(t *testing.T) {
	input := `worktree /path/to/detached
HEAD abc123
detached
`
	result := parseWorktreeList(input)
	require.Len(t, result, 1)

	assert.Equal(t, "abc123", result[0].Head)
	assert.Empty(t, result[0].Branch)
	assert.False(t, result[0].Bare)
}

// TestParseWorktreeListDropsIncomplete verifies that an entry missing
// its HEAD line is silently dropped, both when followed by another
// entry and when it is the final block.
func TestParseWorktreeListDropsIncomplete(t *testing.T) {
	input := `worktree /path/missing-head
branch refs/heads/broken

worktree /path/complete
HEAD abc123
branch refs/heads/ok

worktree /path/trailing-partial
`
	result := parseWorktreeList(input)
	require.Len(t, result, 1)
	assert.Equal(t, "/path/complete", result[0].Path)
}

// TestParseWorktreeListIgnoresUnknownLines verifies forward
// compatibility: attribute lines we do not understand are skipped.
func TestParseWorktreeListIgnoresUnknownLines(t *testing.T) {
	input := `worktree /path/one
HEAD abc123
branch refs/heads/one
locked reason
prunable gitdir file points to non-existent location
`
	result := parseWorktreeList(input)
	require.Len(t, result, 1)
	assert.Equal(t, "/path/one", result[0].Path)
}

// TestParseWorktreeListEmpty verifies empty input parses to no entries.
func TestParseWorktreeListEmpty(t *testing.T) {
	assert.Empty(t, parseWorktreeList(""))
}

// TestCleanBranchName verifies ref normalization.
func TestCleanBranchName(t *testing.T) {
	assert.Equal(t, "main", CleanBranchName("refs/heads/main"))
	assert.Equal(t, "feature-x", CleanBranchName("  refs/heads/feature-x\n"))
	assert.Equal(t, "already-clean", CleanBranchName("already-clean"))
	// Only the leading refs/heads/ is stripped, not one in the middle.
	assert.Equal(t, "a/refs/heads/b", CleanBranchName("a/refs/heads/b"))
}

// TestFindByBranch verifies lookup by normalized branch name, skipping
// detached entries.
func TestFindByBranch(t *testing.T) {
	worktrees := []Worktree{
		{Path: "/wt/main", Head: "aaa", Branch: "refs/heads/main"},
		{Path: "/wt/detached", Head: "bbb"},
		{Path: "/wt/feature", Head: "ccc", Branch: "refs/heads/feature-x"},
	}

	found := FindByBranch(worktrees, "feature-x")
	require.NotNil(t, found)
	assert.Equal(t, "/wt/feature", found.Path)

	assert.Nil(t, FindByBranch(worktrees, "no-such-branch"))
	assert.Nil(t, FindByBranch(nil, "main"))
}

// TestFindByDirName verifies lookup by the worktree directory basename.
func TestFindByDirName(t *testing.T) {
	worktrees := []Worktree{
		{Path: "/projects/myapp/main", Head: "aaa", Branch: "refs/heads/main"},
		{Path: "/projects/myapp-worktrees/fix-123", Head: "bbb", Branch: "refs/heads/bugfix/123"},
	}

	found := FindByDirName(worktrees, "fix-123")
	require.NotNil(t, found)
	assert.Equal(t, "refs/heads/bugfix/123", found.Branch)

	assert.Nil(t, FindByDirName(worktrees, "fix"))
}

// TestBranchExists verifies the (local, remote) pair for all four
// combinations, driven by whether the listing output is empty.
func TestBranchExists(t *testing.T) {
	m, mock := newTestManager()
	ctx := context.Background()

	mock.AddExactMatch("git", []string{"branch", "--list", "both"}, exec.MockResponse{
		Stdout: []byte("  both\n"),
	})
	mock.AddExactMatch("git", []string{"branch", "-r", "--list", "origin/both"}, exec.MockResponse{
		Stdout: []byte("  origin/both\n"),
	})
	local, remote := m.BranchExists(ctx, "/repo", "both")
	assert.True(t, local)
	assert.True(t, remote)

	mock.AddExactMatch("git", []string{"branch", "--list", "local-only"}, exec.MockResponse{
		Stdout: []byte("  local-only\n"),
	})
	local, remote = m.BranchExists(ctx, "/repo", "local-only")
	assert.True(t, local)
	assert.False(t, remote, "empty remote listing means no remote branch")

	mock.AddExactMatch("git", []string{"branch", "-r", "--list", "origin/remote-only"}, exec.MockResponse{
		Stdout: []byte("  origin/remote-only\n"),
	})
	local, remote = m.BranchExists(ctx, "/repo", "remote-only")
	assert.False(t, local)
	assert.True(t, remote)

	local, remote = m.BranchExists(ctx, "/repo", "neither")
	assert.False(t, local)
	assert.False(t, remote)
}

// TestBranchExistsReadsErrorsAsAbsent verifies that lookup failures are
// swallowed rather than propagated.
func TestBranchExistsReadsErrorsAsAbsent(t *testing.T) {
	m, mock := newTestManager()

	mock.AddPrefixMatch("git", []string{"branch"}, exec.MockResponse{
		Stderr: []byte("fatal: not a git repository"),
		Err:    errors.New("exit status 128"),
	})

	local, remote := m.BranchExists(context.Background(), "/tmp/nowhere", "main")
	assert.False(t, local)
	assert.False(t, remote)
}

// TestAddExisting verifies the argument shape for checking out an
// existing local branch into a new worktree.
func TestAddExisting(t *testing.T) {
	m, mock := newTestManager()

	err := m.AddExisting(context.Background(), "/repo/main", "/repo-worktrees/feature", "feature")
	require.NoError(t, err)

	calls := mock.GetCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, "git", calls[0].Name)
	assert.Equal(t, []string{"worktree", "add", "/repo-worktrees/feature", "feature"}, calls[0].Args)
	assert.Equal(t, "/repo/main", calls[0].Dir)
}

// TestAddTracking verifies the argument shape for creating a local
// branch that tracks origin/<branch>.
func TestAddTracking(t *testing.T) {
	m, mock := newTestManager()

	err := m.AddTracking(context.Background(), "/repo/main", "/repo-worktrees/feature", "feature")
	require.NoError(t, err)

	calls := mock.GetCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, []string{"worktree", "add", "/repo-worktrees/feature", "-b", "feature", "origin/feature"}, calls[0].Args)
}

// TestAddFromBase verifies the argument shape for a brand-new branch
// started from the remote default, including --no-track.
func TestAddFromBase(t *testing.T) {
	m, mock := newTestManager()

	err := m.AddFromBase(context.Background(), "/repo/main", "/repo-worktrees/feature", "feature", "main")
	require.NoError(t, err)

	calls := mock.GetCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, []string{"worktree", "add", "--no-track", "/repo-worktrees/feature", "-b", "feature", "origin/main"}, calls[0].Args)
}

// TestRemove verifies removal always passes --force (the CLI confirms
// with the user before calling this).
func TestRemove(t *testing.T) {
	m, mock := newTestManager()

	err := m.Remove(context.Background(), "/repo/main", "/repo-worktrees/feature")
	require.NoError(t, err)

	calls := mock.GetCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, []string{"worktree", "remove", "/repo-worktrees/feature", "--force"}, calls[0].Args)
}

// TestPrune verifies the prune invocation.
func TestPrune(t *testing.T) {
	m, mock := newTestManager()

	err := m.Prune(context.Background(), "/repo/main")
	require.NoError(t, err)

	calls := mock.GetCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, []string{"worktree", "prune"}, calls[0].Args)
}

// TestFetchOrigin verifies the fetch is streamed rather than captured,
// so the user sees git's progress output.
func TestFetchOrigin(t *testing.T) {
	m, mock := newTestManager()

	err := m.FetchOrigin(context.Background(), "/repo/main")
	require.NoError(t, err)

	calls := mock.GetCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, []string{"fetch", "origin"}, calls[0].Args)
}

// TestFetchOriginError verifies fetch failures map to the git error
// class.
func TestFetchOriginError(t *testing.T) {
	m, mock := newTestManager()

	mock.AddExactMatch("git", []string{"fetch", "origin"}, exec.MockResponse{
		Err: errors.New("exit status 1"),
	})

	err := m.FetchOrigin(context.Background(), "/repo/main")
	require.Error(t, err)

	var cliErr *model.CLIError
	require.ErrorAs(t, err, &cliErr)
	assert.Equal(t, model.ExitGitError, cliErr.Code)
}

// TestDeleteBranchSafe verifies the safe delete flag.
func TestDeleteBranchSafe(t *testing.T) {
	m, mock := newTestManager()

	err := m.DeleteBranch(context.Background(), "/repo/main", "feature", false)
	require.NoError(t, err)

	calls := mock.GetCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, []string{"branch", "-d", "feature"}, calls[0].Args)
}

// TestDeleteBranchForce verifies the forced delete flag.
func TestDeleteBranchForce(t *testing.T) {
	m, mock := newTestManager()

	err := m.DeleteBranch(context.Background(), "/repo/main", "feature", true)
	require.NoError(t, err)

	calls := mock.GetCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, []string{"branch", "-D", "feature"}, calls[0].Args)
}

// TestDeleteBranchNotMerged verifies that git's "not fully merged"
// refusal surfaces as the typed ErrBranchNotMerged so callers can
// prompt for a forced delete.
func TestDeleteBranchNotMerged(t *testing.T) {
	m, mock := newTestManager()

	mock.AddExactMatch("git", []string{"branch", "-d", "feature"}, exec.MockResponse{
		Stderr: []byte("error: the branch 'feature' is not fully merged\n"),
		Err:    errors.New("exit status 1"),
	})

	err := m.DeleteBranch(context.Background(), "/repo/main", "feature", false)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrBranchNotMerged))
}

// TestDeleteBranchOtherFailure verifies that unrelated delete failures
// are reported as branch errors, not as the promptable case.
func TestDeleteBranchOtherFailure(t *testing.T) {
	m, mock := newTestManager()

	mock.AddExactMatch("git", []string{"branch", "-d", "nope"}, exec.MockResponse{
		Stderr: []byte("error: branch 'nope' not found.\n"),
		Err:    errors.New("exit status 1"),
	})

	err := m.DeleteBranch(context.Background(), "/repo/main", "nope", false)
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrBranchNotMerged))

	var cliErr *model.CLIError
	require.ErrorAs(t, err, &cliErr)
	assert.Equal(t, model.ExitBranchError, cliErr.Code)
	assert.Contains(t, cliErr.Message, "not found")
}

// TestCurrentBranch verifies the symbolic-ref lookup and trimming.
func TestCurrentBranch(t *testing.T) {
	m, mock := newTestManager()

	mock.AddExactMatch("git", []string{"symbolic-ref", "--short", "HEAD"}, exec.MockResponse{
		Stdout: []byte("main\n"),
	})

	branch, err := m.CurrentBranch(context.Background(), "/repo/main")
	require.NoError(t, err)
	assert.Equal(t, "main", branch)
}

// TestRemoteDefaultBranchFromOriginHead verifies the primary lookup via
// the origin/HEAD symbolic ref.
func TestRemoteDefaultBranchFromOriginHead(t *testing.T) {
	m, mock := newTestManager()

	mock.AddExactMatch("git", []string{"symbolic-ref", "refs/remotes/origin/HEAD"}, exec.MockResponse{
		Stdout: []byte("refs/remotes/origin/develop\n"),
	})

	branch, err := m.RemoteDefaultBranch(context.Background(), "/repo/main")
	require.NoError(t, err)
	assert.Equal(t, "develop", branch)
}

// TestRemoteDefaultBranchProbesCommonNames verifies the fallback probe
// of origin/main and origin/master when origin/HEAD is not set.
func TestRemoteDefaultBranchProbesCommonNames(t *testing.T) {
	m, mock := newTestManager()

	mock.AddExactMatch("git", []string{"symbolic-ref", "refs/remotes/origin/HEAD"}, exec.MockResponse{
		Stderr: []byte("fatal: ref refs/remotes/origin/HEAD is not a symbolic ref\n"),
		Err:    errors.New("exit status 128"),
	})
	mock.AddExactMatch("git", []string{"rev-parse", "--verify", "origin/main"}, exec.MockResponse{
		Stderr: []byte("fatal: Needed a single revision\n"),
		Err:    errors.New("exit status 128"),
	})
	mock.AddExactMatch("git", []string{"rev-parse", "--verify", "origin/master"}, exec.MockResponse{
		Stdout: []byte("abc123def456\n"),
	})

	branch, err := m.RemoteDefaultBranch(context.Background(), "/repo/main")
	require.NoError(t, err)
	assert.Equal(t, "master", branch)
}

// TestRemoteDefaultBranchFallsBackToCurrent verifies the final
// fallback to the current branch when no remote branches are known.
func TestRemoteDefaultBranchFallsBackToCurrent(t *testing.T) {
	m, mock := newTestManager()

	gitErr := errors.New("exit status 128")
	mock.AddExactMatch("git", []string{"symbolic-ref", "refs/remotes/origin/HEAD"}, exec.MockResponse{Err: gitErr})
	mock.AddExactMatch("git", []string{"rev-parse", "--verify", "origin/main"}, exec.MockResponse{Err: gitErr})
	mock.AddExactMatch("git", []string{"rev-parse", "--verify", "origin/master"}, exec.MockResponse{Err: gitErr})
	mock.AddExactMatch("git", []string{"symbolic-ref", "--short", "HEAD"}, exec.MockResponse{
		Stdout: []byte("trunk\n"),
	})

	branch, err := m.RemoteDefaultBranch(context.Background(), "/repo/main")
	require.NoError(t, err)
	assert.Equal(t, "trunk", branch)
}

// TestGitRoot verifies top-level resolution and the non-repo case,
// which reads as empty with no error.
func TestGitRoot(t *testing.T) {
	m, mock := newTestManager()

	mock.AddExactMatch("git", []string{"rev-parse", "--show-toplevel"}, exec.MockResponse{
		Stdout: []byte("/projects/myapp/main\n"),
	})

	root, err := m.GitRoot(context.Background(), "/projects/myapp/main/sub/dir")
	require.NoError(t, err)
	assert.Equal(t, "/projects/myapp/main", root)
}

func TestGitRootOutsideRepo(t *testing.T) {
	m, mock := newTestManager()

	mock.AddExactMatch("git", []string{"rev-parse", "--show-toplevel"}, exec.MockResponse{
		Stderr: []byte("fatal: not a git repository\n"),
		Err:    errors.New("exit status 128"),
	})

	root, err := m.GitRoot(context.Background(), "/tmp")
	require.NoError(t, err, "non-repo should not be an error")
	assert.Empty(t, root)
}

// TestRemoteOriginURL verifies the origin URL lookup.
func TestRemoteOriginURL(t *testing.T) {
	m, mock := newTestManager()

	mock.AddExactMatch("git", []string{"remote", "get-url", "origin"}, exec.MockResponse{
		Stdout: []byte("git@github.com:acme/myapp.git\n"),
	})

	url, err := m.RemoteOriginURL(context.Background(), "/projects/myapp/main")
	require.NoError(t, err)
	assert.Equal(t, "git@github.com:acme/myapp.git", url)
}
