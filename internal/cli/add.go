// Package cli — add.go implements the "gwt add" command.
//
// The add command creates a worktree for a branch inside the project's
// worktrees directory, creating the branch itself when necessary.
//
// Orchestration steps:
//  1. Resolve the project root and a usable git working directory
//  2. Resolve the worktrees directory (config, else derived sibling)
//  3. Fetch origin so branch existence checks see the latest state
//  4. Pick a creation strategy: existing local branch, remote branch,
//     or a new branch off the configured main branch
//  5. Run the postAdd hooks inside the new worktree
package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mmr-tortoise/gwt/internal/config"
	"github.com/mmr-tortoise/gwt/internal/exec"
	"github.com/mmr-tortoise/gwt/internal/hooks"
	"github.com/mmr-tortoise/gwt/internal/model"
	"github.com/mmr-tortoise/gwt/internal/project"
	"github.com/mmr-tortoise/gwt/internal/worktree"
)

// NewAddCommand creates the "add" cobra command.
// It is called from NewRootCommand to register as a subcommand.
func NewAddCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "add <branch-name>",
		Short: "Add a new worktree for a branch",
		Long: `Create a worktree for the given branch inside the project's worktrees
directory.

If the branch already exists locally it is checked out as-is. If it only
exists on origin, a local tracking branch is created. Otherwise a new
branch is created from the configured main branch with no upstream.

Examples:
  gwt add feature-auth
  gwt add feature/login-flow`,

		Args: cobra.ExactArgs(1),

		// RunE is used instead of Run so we can return errors. Cobra will
		// pass them to the Execute error handler in root.go.
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAdd(cmd.Context(), args[0])
		},
	}
}

// runAdd is the main orchestration function for the add command.
func runAdd(ctx context.Context, branchName string) error {
	if branchName == "" {
		return model.NewCLIError(model.ExitGeneralError,
			"branch name is required\nUsage: gwt add <branch-name>")
	}

	executor := exec.NewRealExecutor()
	manager := worktree.NewManager(executor)
	resolver := config.NewResolver()
	locator := project.NewLocator(manager, resolver)

	cwd, err := os.Getwd()
	if err != nil {
		return model.WrapCLIError(model.ExitGeneralError, "failed to get current directory", err)
	}

	// Step 1: Resolve the project root and a git directory that git
	// commands can run from. The root may be the repository itself or
	// a project directory containing it.
	projectRoot, err := locator.FindRootFrom(ctx, cwd)
	if err != nil {
		return err
	}
	VerboseLog("Project root: %s", projectRoot)

	gitWorkingDir, err := project.FindExistingWorktree(projectRoot)
	if err != nil {
		return err
	}
	VerboseLog("Git working directory: %s", gitWorkingDir)

	// Step 2: Resolve the worktrees directory. The config wins when it
	// names one; otherwise the conventional "<root>-worktrees" sibling
	// is used.
	originURL, _ := manager.RemoteOriginURL(ctx, gitWorkingDir)
	_, cfg, err := resolver.Find(cwd, originURL)
	if err != nil {
		return err
	}

	worktreesPath := ""
	if cfg != nil {
		worktreesPath = cfg.WorktreesDir()
	}
	if worktreesPath == "" {
		worktreesPath = config.DeriveWorktreesPath(projectRoot)
	}
	if err := os.MkdirAll(worktreesPath, 0o755); err != nil {
		return model.WrapCLIError(model.ExitGeneralError, "failed to create worktrees directory", err)
	}

	// Branch names may contain slashes; the worktree path mirrors them
	// as nested directories.
	targetPath := filepath.Join(worktreesPath, branchName)
	VerboseLog("Worktree path: %s", targetPath)

	fmt.Println(cyanStyle.Render(fmt.Sprintf("Preparing worktree (new branch '%s')", branchName)))

	mainBranch := resolveMainBranch(ctx, manager, cfg, gitWorkingDir)
	VerboseLog("Main branch: %s", mainBranch)

	// Step 3: Fetch so the branch existence checks below reflect the
	// current remote state.
	fmt.Println(cyanStyle.Render("Fetching latest changes from origin..."))
	if err := manager.FetchOrigin(ctx, gitWorkingDir); err != nil {
		return err
	}

	// Step 4: Create the worktree with the right strategy.
	localExists, remoteExists := manager.BranchExists(ctx, gitWorkingDir, branchName)
	switch {
	case localExists:
		fmt.Println(yellowStyle.Render(fmt.Sprintf(
			"Branch '%s' exists locally, checking out existing branch...", branchName)))
		err = manager.AddExisting(ctx, gitWorkingDir, targetPath, branchName)
	case remoteExists:
		fmt.Println(yellowStyle.Render(fmt.Sprintf(
			"Branch '%s' exists remotely, checking out remote branch...", branchName)))
		err = manager.AddTracking(ctx, gitWorkingDir, targetPath, branchName)
	default:
		fmt.Println(cyanStyle.Render(fmt.Sprintf(
			"Creating new branch '%s' from 'origin/%s'...", branchName, mainBranch)))
		err = manager.AddFromBase(ctx, gitWorkingDir, targetPath, branchName, mainBranch)
	}
	if err != nil {
		return err
	}

	fmt.Println(greenStyle.Render(fmt.Sprintf("✓ Worktree created at: %s", targetPath)))
	fmt.Println(greenStyle.Render(fmt.Sprintf("✓ Branch: %s", branchName)))

	// Step 5: postAdd hooks run inside the new worktree. Failures are
	// reported by the runner but never roll back the worktree.
	runner := hooks.NewRunner(executor, cfg)
	return runner.Run(ctx, hooks.EventPostAdd, targetPath, map[string]string{
		"branchName":   branchName,
		"worktreePath": targetPath,
	})
}

// resolveMainBranch picks the branch new work is based on: the
// configured main branch when a config exists, else whatever the
// repository reports as its remote default, else "main".
func resolveMainBranch(ctx context.Context, manager *worktree.Manager, cfg *config.ProjectConfig, gitWorkingDir string) string {
	if cfg != nil && cfg.MainBranch != "" {
		return cfg.MainBranch
	}
	if gitRoot, err := manager.GitRoot(ctx, gitWorkingDir); err == nil && gitRoot != "" {
		if branch, err := manager.RemoteDefaultBranch(ctx, gitRoot); err == nil && branch != "" {
			return branch
		}
	}
	return "main"
}
