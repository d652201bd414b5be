package hooks

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmr-tortoise/gwt/internal/config"
	"github.com/mmr-tortoise/gwt/internal/exec"
)

// TestRunSubstitutesAndExecutes verifies each configured command is
// substituted and run through `sh -c` in the given directory with
// FORCE_COLOR set.
func TestRunSubstitutesAndExecutes(t *testing.T) {
	mock := exec.NewMockExecutor(nil)
	cfg := &config.ProjectConfig{
		Hooks: &config.Hooks{
			PostAdd: []string{
				"npm install",
				"echo created ${branchName} at ${worktreePath}",
			},
		},
	}
	runner := NewRunner(mock, cfg)

	err := runner.Run(context.Background(), EventPostAdd, "/wt/feature-x", map[string]string{
		"branchName":   "feature-x",
		"worktreePath": "/wt/feature-x",
	})
	require.NoError(t, err)

	calls := mock.GetCalls()
	require.Len(t, calls, 2)

	assert.Equal(t, "sh", calls[0].Name)
	assert.Equal(t, []string{"-c", "npm install"}, calls[0].Args)
	assert.Equal(t, "/wt/feature-x", calls[0].Dir)
	assert.Contains(t, calls[0].Env, "FORCE_COLOR=1")

	assert.Equal(t, []string{"-c", "echo created feature-x at /wt/feature-x"}, calls[1].Args)
}

// TestRunContinuesAfterFailure verifies a failing hook does not stop
// the remaining hooks and does not fail the Run.
func TestRunContinuesAfterFailure(t *testing.T) {
	mock := exec.NewMockExecutor(nil)
	mock.AddExactMatch("sh", []string{"-c", "exit 1"}, exec.MockResponse{
		Err: errors.New("exit status 1"),
	})

	cfg := &config.ProjectConfig{
		Hooks: &config.Hooks{
			PreRemove: []string{"exit 1", "echo still running"},
		},
	}
	runner := NewRunner(mock, cfg)

	err := runner.Run(context.Background(), EventPreRemove, "/wt/doomed", nil)
	require.NoError(t, err, "hook failures must never fail the Run")

	calls := mock.GetCalls()
	require.Len(t, calls, 2, "the second hook should run after the first fails")
	assert.Equal(t, []string{"-c", "echo still running"}, calls[1].Args)
}

// TestRunNoopCases verifies the quiet paths: nil config, no hooks
// block, empty command list, and an event with nothing configured.
func TestRunNoopCases(t *testing.T) {
	ctx := context.Background()

	mock := exec.NewMockExecutor(nil)
	runner := NewRunner(mock, nil)
	require.NoError(t, runner.Run(ctx, EventPostAdd, "/anywhere", nil))

	runner = NewRunner(mock, &config.ProjectConfig{})
	require.NoError(t, runner.Run(ctx, EventPostAdd, "/anywhere", nil))

	runner = NewRunner(mock, &config.ProjectConfig{Hooks: &config.Hooks{PostAdd: []string{}}})
	require.NoError(t, runner.Run(ctx, EventPostAdd, "/anywhere", nil))

	runner = NewRunner(mock, &config.ProjectConfig{Hooks: &config.Hooks{PostAdd: []string{"echo hi"}}})
	require.NoError(t, runner.Run(ctx, EventPostRemove, "/anywhere", nil))

	assert.Empty(t, mock.GetCalls(), "no command should have been executed")
}

// TestSubstitute verifies token replacement semantics.
func TestSubstitute(t *testing.T) {
	vars := map[string]string{
		"branchName":   "feature-x",
		"worktreePath": "/wt/feature-x",
	}

	assert.Equal(t,
		"checkout feature-x into /wt/feature-x (feature-x)",
		Substitute("checkout ${branchName} into ${worktreePath} (${branchName})", vars),
	)

	// Unknown tokens pass through for the shell to expand.
	assert.Equal(t, "echo ${HOME}", Substitute("echo ${HOME}", vars))

	// No vars at all leaves the template untouched.
	assert.Equal(t, "plain command", Substitute("plain command", nil))
}
