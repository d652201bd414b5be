// Package cli — remove.go implements the "gwt remove" command.
//
// The remove command deletes a worktree and (usually) its branch.
//
// Orchestration steps:
//  1. Resolve the project, enumerate worktrees, and pick the target
//  2. Refuse to remove the bare entry
//  3. Confirm, run preRemove hooks, then remove the worktree from a
//     different worktree's directory
//  4. Delete the branch unless protected, prompting when unmerged
//  5. Relocate to the project root when the removed worktree contained
//     the current directory, then run postRemove hooks
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mmr-tortoise/gwt/internal/config"
	"github.com/mmr-tortoise/gwt/internal/exec"
	"github.com/mmr-tortoise/gwt/internal/hooks"
	"github.com/mmr-tortoise/gwt/internal/model"
	"github.com/mmr-tortoise/gwt/internal/project"
	"github.com/mmr-tortoise/gwt/internal/worktree"
)

// removeFlags holds the flag values for the remove command.
type removeFlags struct {
	// force skips the interactive confirmation prompts when true,
	// including the force-delete prompt for unmerged branches.
	force bool
}

// NewRemoveCommand creates the "remove" cobra command.
// It is called from NewRootCommand to register as a subcommand.
func NewRemoveCommand() *cobra.Command {
	flags := &removeFlags{}

	cmd := &cobra.Command{
		Use:   "remove [branch-name]",
		Short: "Remove a worktree",
		Long: `Remove a worktree and delete its branch.

Without an argument the worktree containing the current directory is
removed. With an argument the worktree is matched by branch name first,
then by directory name.

Protected branches (main, master, dev, develop) are never deleted.
Unless --force is specified, the command prompts for confirmation.

Examples:
  gwt remove
  gwt remove feature-auth
  gwt remove --force feature/login-flow`,

		Args: cobra.MaximumNArgs(1),

		RunE: func(cmd *cobra.Command, args []string) error {
			branchName := ""
			if len(args) == 1 {
				branchName = args[0]
			}
			return runRemove(cmd.Context(), branchName, flags)
		},
	}

	cmd.Flags().BoolVarP(&flags.force, "force", "f", false, "Skip confirmation prompts")

	return cmd
}

// runRemove is the main orchestration function for the remove command.
func runRemove(ctx context.Context, branchName string, flags *removeFlags) error {
	executor := exec.NewRealExecutor()
	manager := worktree.NewManager(executor)
	resolver := config.NewResolver()
	locator := project.NewLocator(manager, resolver)

	cwd, err := os.Getwd()
	if err != nil {
		return model.WrapCLIError(model.ExitGeneralError, "failed to get current directory", err)
	}

	// Step 1: Resolve the project and pick the target worktree.
	proj, err := locator.Find(ctx, cwd)
	if err != nil {
		return err
	}

	worktrees, err := manager.List(ctx, proj.GitDir)
	if err != nil {
		return err
	}
	if len(worktrees) == 0 {
		fmt.Println(yellowStyle.Render("No worktrees found."))
		return nil
	}

	target, err := findTargetWorktree(worktrees, branchName, cwd)
	if err != nil {
		return err
	}
	VerboseLog("Target worktree: %s", target.Path)

	// Step 2: The bare entry is the repository itself, not a worktree.
	if target.Bare {
		return model.NewCLIError(model.ExitGeneralError, "cannot remove the main (bare) repository")
	}

	branchDisplay := newListEntry(*target).label

	fmt.Println(cyanStyle.Bold(true).Render("About to remove worktree:"))
	fmt.Printf("  %s: %s\n", dimStyle.Render("Path"), target.Path)
	fmt.Printf("  %s: %s\n", dimStyle.Render("Branch"), greenStyle.Render(branchDisplay))

	willRemoveCurrent := isAncestorPath(target.Path, cwd)
	if willRemoveCurrent {
		fmt.Println()
		fmt.Println(yellowStyle.Render("⚠️  You are currently in this worktree. You will be moved to the project root after removal."))
	}

	// Step 3: Confirm before mutating anything.
	if !flags.force {
		confirmed, err := promptYesNo("\n" + cyanStyle.Render("Are you sure you want to remove this worktree? (y/N): "))
		if err != nil {
			return model.WrapCLIError(model.ExitGeneralError, "failed to read user input", err)
		}
		if !confirmed {
			return model.NewCLIError(model.ExitUserCancelled, "removal cancelled")
		}
	}

	originURL, _ := manager.RemoteOriginURL(ctx, proj.GitDir)
	_, cfg, err := resolver.Find(cwd, originURL)
	if err != nil {
		return err
	}
	runner := hooks.NewRunner(executor, cfg)

	// preRemove hooks run while the worktree directory still exists so
	// they can tear down anything living inside it.
	if err := runner.Run(ctx, hooks.EventPreRemove, target.Path, map[string]string{
		"branchName":   branchDisplay,
		"worktreePath": target.Path,
	}); err != nil {
		return err
	}

	// Git refuses to remove the worktree it is running in, so removal
	// executes from a different worktree, preferring a protected branch.
	execWT, err := executionWorktree(worktrees, target)
	if err != nil {
		return err
	}
	VerboseLog("Executing git commands from: %s", execWT.Path)

	fmt.Println()
	fmt.Println(cyanStyle.Render("Removing worktree..."))
	if err := manager.Remove(ctx, execWT.Path, target.Path); err != nil {
		return err
	}
	fmt.Println(greenStyle.Render(fmt.Sprintf("✓ Worktree removed: %s", target.Path)))

	// Step 4: Branch deletion is best-effort; failures never undo the
	// removal that already happened.
	if model.IsProtectedBranch(branchDisplay) {
		fmt.Println(greenStyle.Render(fmt.Sprintf("✓ Branch: %s (preserved - main branch)", branchDisplay)))
	} else {
		deleteBranch(ctx, manager, execWT.Path, branchDisplay, flags.force)
	}

	// Step 5: Leave the deleted directory before hooks run so their
	// working directory exists.
	if willRemoveCurrent {
		if err := os.Chdir(proj.Root); err != nil {
			return model.WrapCLIError(model.ExitGeneralError, "failed to change to project root", err)
		}
	}

	if err := runner.Run(ctx, hooks.EventPostRemove, proj.Root, map[string]string{
		"branchName":   branchDisplay,
		"worktreePath": target.Path,
	}); err != nil {
		return err
	}

	if willRemoveCurrent {
		fmt.Println(greenStyle.Render(fmt.Sprintf("✓ Please navigate to project root: %s", proj.Root)))
	}

	return nil
}

// findTargetWorktree resolves which worktree to remove. Without a name
// it is the worktree containing cwd; with a name it is matched by
// branch first, then by directory basename.
func findTargetWorktree(worktrees []worktree.Worktree, branchName, cwd string) (*worktree.Worktree, error) {
	if branchName == "" {
		return findCurrentWorktree(worktrees, cwd)
	}

	if wt := worktree.FindByBranch(worktrees, branchName); wt != nil {
		return wt, nil
	}
	if wt := worktree.FindByDirName(worktrees, branchName); wt != nil {
		return wt, nil
	}

	printAvailableWorktrees(worktrees)
	return nil, model.NewCLIError(model.ExitGeneralError,
		fmt.Sprintf("worktree for '%s' not found", branchName))
}

// findCurrentWorktree returns the worktree whose path contains cwd.
func findCurrentWorktree(worktrees []worktree.Worktree, cwd string) (*worktree.Worktree, error) {
	for i := range worktrees {
		if isAncestorPath(worktrees[i].Path, cwd) {
			return &worktrees[i], nil
		}
	}
	return nil, model.NewCLIError(model.ExitGeneralError,
		"not in a git worktree. Please specify a branch to remove.")
}

// executionWorktree picks the worktree git commands run from while
// removing target: one on a protected branch when available, else any
// other worktree.
func executionWorktree(worktrees []worktree.Worktree, target *worktree.Worktree) (*worktree.Worktree, error) {
	var fallback *worktree.Worktree
	for i := range worktrees {
		wt := &worktrees[i]
		if wt.Path == target.Path {
			continue
		}
		if model.IsProtectedBranch(worktree.CleanBranchName(wt.Branch)) {
			return wt, nil
		}
		if fallback == nil {
			fallback = wt
		}
	}
	if fallback == nil {
		return nil, model.NewCLIError(model.ExitGeneralError,
			"no other worktrees found to execute git command from")
	}
	return fallback, nil
}

// deleteBranch attempts a safe delete, escalating to a forced delete
// (after confirmation, or immediately under --force) when the branch
// has unmerged commits. All outcomes are reported; none are fatal.
func deleteBranch(ctx context.Context, manager *worktree.Manager, execDir, branch string, force bool) {
	err := manager.DeleteBranch(ctx, execDir, branch, false)
	if err == nil {
		fmt.Println(greenStyle.Render(fmt.Sprintf("✓ Branch deleted: %s", branch)))
		return
	}

	if !errors.Is(err, worktree.ErrBranchNotMerged) {
		fmt.Println(redStyle.Render(fmt.Sprintf("❌ Failed to delete branch '%s': %v", branch, err)))
		return
	}

	fmt.Println(yellowStyle.Render(fmt.Sprintf("⚠️  Branch '%s' has unmerged changes", branch)))

	if !force {
		confirmed, promptErr := promptYesNo(cyanStyle.Render("Force delete the branch? (y/N): "))
		if promptErr != nil || !confirmed {
			fmt.Println(yellowStyle.Render(fmt.Sprintf("⚠️  Branch '%s' was not deleted", branch)))
			return
		}
	}

	if err := manager.DeleteBranch(ctx, execDir, branch, true); err != nil {
		fmt.Println(redStyle.Render(fmt.Sprintf("❌ Failed to delete branch '%s': %v", branch, err)))
		return
	}
	fmt.Println(greenStyle.Render(fmt.Sprintf("✓ Branch force deleted: %s", branch)))
}

// printAvailableWorktrees lists every worktree so the user can correct
// a mistyped name.
func printAvailableWorktrees(worktrees []worktree.Worktree) {
	fmt.Println(redStyle.Render("Error: Worktree not found."))
	fmt.Println()
	fmt.Println(yellowStyle.Render("Available worktrees:"))
	for i := range worktrees {
		label := newListEntry(worktrees[i]).label
		fmt.Printf("  %s -> %s\n", greenStyle.Render(label), dimStyle.Render(worktrees[i].Path))
	}
}

// promptYesNo prints prompt and reads a single line from stdin.
// Only "y" or "yes" (case-insensitive) count as confirmation.
func promptYesNo(prompt string) (bool, error) {
	fmt.Print(prompt)

	// bufio.Scanner handles different line endings across platforms
	// (LF on Unix, CRLF on Windows).
	scanner := bufio.NewScanner(os.Stdin)
	if scanner.Scan() {
		answer := strings.TrimSpace(strings.ToLower(scanner.Text()))
		return answer == "y" || answer == "yes", nil
	}

	// If stdin is closed or an error occurred, treat it as "no".
	if err := scanner.Err(); err != nil {
		return false, err
	}
	return false, nil
}

// isAncestorPath reports whether dir equals path or is one of its
// ancestors, comparing whole path components.
func isAncestorPath(dir, path string) bool {
	dir = filepath.Clean(dir)
	path = filepath.Clean(path)
	if dir == path {
		return true
	}
	return strings.HasPrefix(path, dir+string(filepath.Separator))
}
