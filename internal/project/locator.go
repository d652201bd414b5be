// Package project resolves which project a command operates on.
//
// A project is a directory grouping one repository checkout with its
// sibling worktrees directory, tied together by the "-worktrees" naming
// convention: worktrees for <name>/ live in <name>-worktrees/. The
// project root may coincide with git's top-level directory (repo cloned
// directly) or sit one level above it (repo checked out into a main/
// subdirectory with the config next to it).
//
// Resolution is a chain of pure, side-effect-free strategies over an
// explicit start path, composed first-match-wins:
//  1. git's own top-level, corrected for the -worktrees convention
//  2. the -worktrees convention applied to the start path itself
//  3. the projectPath recorded in a discoverable config
package project

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mmr-tortoise/gwt/internal/config"
	"github.com/mmr-tortoise/gwt/internal/model"
	"github.com/mmr-tortoise/gwt/internal/probe"
	"github.com/mmr-tortoise/gwt/internal/worktree"
)

// Project identifies the resolved project for one command invocation.
type Project struct {
	// Root is the project root directory. The config file and the
	// worktrees directory are located relative to it.
	Root string

	// GitDir is the directory git commands run in: the root itself or
	// the immediate subdirectory holding the repository.
	GitDir string
}

// Locator resolves project roots and git execution directories.
type Locator struct {
	git      *worktree.Manager
	resolver *config.Resolver
}

// NewLocator creates a Locator that consults git through the given
// manager and falls back to the config resolver's recorded projectPath.
func NewLocator(git *worktree.Manager, resolver *config.Resolver) *Locator {
	return &Locator{git: git, resolver: resolver}
}

// Find resolves the project containing start: its root plus the git
// directory commands should run in.
func (l *Locator) Find(ctx context.Context, start string) (*Project, error) {
	root, err := l.FindRootFrom(ctx, start)
	if err != nil {
		return nil, err
	}
	gitDir, err := FindGitDirFrom(root)
	if err != nil {
		return nil, err
	}
	return &Project{Root: root, GitDir: gitDir}, nil
}

// FindRootFrom resolves the project root for a command started in start.
//
// Strategies, first match wins:
//
//  1. If git resolves a top-level directory from start, and an ancestor
//     of that top-level is a "-worktrees" directory, the root is the
//     validated sibling obtained by stripping the suffix; otherwise the
//     top-level itself is the root.
//  2. If start sits inside a "-worktrees" directory without being a
//     usable git worktree (e.g. the worktree is orphaned), apply the
//     same sibling derivation to start's ancestors.
//  3. Fall back to the projectPath recorded in a discoverable config,
//     which lets commands run from anywhere inside a registered project.
//
// When every strategy misses, the error distinguishes "inside a git
// repository that is not set up for gwt" from "not inside any
// repository", so the user gets actionable guidance.
func (l *Locator) FindRootFrom(ctx context.Context, start string) (string, error) {
	// Strategy 1: ask git for the top-level of the containing worktree.
	gitRoot, err := l.git.GitRoot(ctx, start)
	if err == nil && gitRoot != "" {
		if root := rootFromWorktreesAncestor(gitRoot); root != "" {
			return root, nil
		}
		return gitRoot, nil
	}

	// Strategy 2: start may be under the -worktrees directory without a
	// resolvable git context (orphaned worktree, not-yet-created dir).
	if root := rootFromWorktreesAncestor(start); root != "" {
		return root, nil
	}

	// Strategy 3: a registered config may record the project path. No
	// origin URL is available here (start is not inside a repository),
	// so only the local and containment lookups can match.
	if _, cfg, err := l.resolver.Find(start, ""); err == nil && cfg != nil {
		if cfg.ProjectPath != "" {
			return cfg.ProjectPath, nil
		}
	}

	if hasGitAncestor(start) {
		return "", model.NewCLIError(
			model.ExitProjectRootNotFound,
			"this repository is not set up for gwt. Run 'gwt init' inside the repository first",
		)
	}
	return "", model.NewCLIError(
		model.ExitProjectRootNotFound,
		"not in a gwt project. Run 'gwt init' inside a git repository",
	)
}

// rootFromWorktreesAncestor walks path's ancestors looking for a
// directory named "<name>-worktrees" and derives the sibling project
// root "<name>". The candidate is accepted only when it (or one of its
// immediate subdirectories) contains a .git entry; otherwise the walk
// continues upward.
func rootFromWorktreesAncestor(path string) string {
	for dir := filepath.Clean(path); ; {
		name := filepath.Base(dir)
		if strings.HasSuffix(name, config.WorktreesSuffix) && name != config.WorktreesSuffix {
			candidate := filepath.Join(filepath.Dir(dir), strings.TrimSuffix(name, config.WorktreesSuffix))
			if containsGitEntry(candidate) {
				return candidate
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// containsGitEntry reports whether dir or one of its immediate
// subdirectories has a .git entry.
func containsGitEntry(dir string) bool {
	if probe.GitEntry(dir) != probe.GitEntryNone {
		return true
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if probe.GitEntry(filepath.Join(dir, entry.Name())) != probe.GitEntryNone {
			return true
		}
	}
	return false
}

// hasGitAncestor reports whether start or any ancestor carries a .git
// entry. Used only to pick the more helpful of the two resolution
// failure messages.
func hasGitAncestor(start string) bool {
	for dir := filepath.Clean(start); ; {
		if probe.GitEntry(dir) != probe.GitEntryNone {
			return true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return false
		}
		dir = parent
	}
}

// FindGitDirFrom locates the directory git commands run in: root itself
// when it directly contains .git, else the first immediate subdirectory
// that does. Enumeration order decides ties; normal layouts contain
// exactly one candidate.
func FindGitDirFrom(root string) (string, error) {
	if probe.GitEntry(root) != probe.GitEntryNone {
		return root, nil
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		return "", model.WrapCLIError(
			model.ExitGitDirectoryNotFound,
			fmt.Sprintf("git directory not found in project at %s", root),
			err,
		)
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		sub := filepath.Join(root, entry.Name())
		if probe.GitEntry(sub) != probe.GitEntryNone {
			return sub, nil
		}
	}

	return "", model.NewCLIError(
		model.ExitGitDirectoryNotFound,
		fmt.Sprintf("git directory not found in project at %s", root),
	)
}

// FindExistingWorktree locates a checkout to run git commands from,
// among root and its immediate subdirectories. Real worktrees (.git
// file) are preferred over main repositories (.git directory), because
// worktree-level commands behave identically from either but a bare or
// main record may be all that exists right after init.
func FindExistingWorktree(root string) (string, error) {
	var mainRepo string

	switch probe.GitEntry(root) {
	case probe.GitEntryFile:
		return root, nil
	case probe.GitEntryDir:
		mainRepo = root
	}

	entries, err := os.ReadDir(root)
	if err != nil && mainRepo == "" {
		return "", model.WrapCLIError(
			model.ExitGitDirectoryNotFound,
			fmt.Sprintf("no existing git directory found in project at %s. Have you run 'gwt init' yet?", root),
			err,
		)
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		sub := filepath.Join(root, entry.Name())
		switch probe.GitEntry(sub) {
		case probe.GitEntryFile:
			return sub, nil
		case probe.GitEntryDir:
			if mainRepo == "" {
				mainRepo = sub
			}
		}
	}

	if mainRepo != "" {
		return mainRepo, nil
	}
	return "", model.NewCLIError(
		model.ExitGitDirectoryNotFound,
		fmt.Sprintf("no existing git directory found in project at %s. Have you run 'gwt init' yet?", root),
	)
}

// FindValidGitDir is FindGitDirFrom with orphan filtering: worktree
// candidates whose .git file points at a vanished gitdir are skipped,
// so a repository move does not leave commands executing from a dead
// context. Main repositories (.git directory) are always valid.
func FindValidGitDir(root string) (string, error) {
	if probe.GitEntry(root) == probe.GitEntryDir {
		return root, nil
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		return "", model.WrapCLIError(
			model.ExitGitDirectoryNotFound,
			fmt.Sprintf("no valid git directory found in project at %s", root),
			err,
		)
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		sub := filepath.Join(root, entry.Name())
		switch probe.GitEntry(sub) {
		case probe.GitEntryDir:
			return sub, nil
		case probe.GitEntryFile:
			if !probe.IsOrphanedWorktree(sub) {
				return sub, nil
			}
		}
	}

	return "", model.NewCLIError(
		model.ExitGitDirectoryNotFound,
		fmt.Sprintf("no valid git directory found in project at %s", root),
	)
}
