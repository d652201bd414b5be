// Package probe inspects .git entries on disk without invoking git.
// It distinguishes regular repositories (.git directory) from linked
// worktrees (.git file) and detects worktrees whose backing repository
// has moved away.
package probe

import (
	"os"
	"path/filepath"
	"strings"
)

// GitEntryKind classifies the .git entry of a directory.
type GitEntryKind int

const (
	// GitEntryNone means the directory has no .git entry.
	GitEntryNone GitEntryKind = iota

	// GitEntryFile means .git is a file, the marker of a linked worktree.
	GitEntryFile

	// GitEntryDir means .git is a directory, the marker of a main repository.
	GitEntryDir
)

// String returns a short label for logging.
func (k GitEntryKind) String() string {
	switch k {
	case GitEntryFile:
		return "file"
	case GitEntryDir:
		return "dir"
	default:
		return "none"
	}
}

// GitEntry reports what kind of .git entry dir contains.
// Filesystem errors read as absent.
func GitEntry(dir string) GitEntryKind {
	info, err := os.Lstat(filepath.Join(dir, ".git"))
	if err != nil {
		return GitEntryNone
	}
	if info.IsDir() {
		return GitEntryDir
	}
	return GitEntryFile
}

// gitdirPrefix is the line prefix git writes into a worktree's .git file.
const gitdirPrefix = "gitdir: "

// IsOrphanedWorktree reports whether dir is a worktree whose .git file
// points at a gitdir path that no longer exists. This happens when a
// repository is moved to a new location while its worktrees stay behind.
//
// Directories without a .git file, and .git files that cannot be read
// or lack a gitdir line, are never considered orphaned.
func IsOrphanedWorktree(dir string) bool {
	if GitEntry(dir) != GitEntryFile {
		return false
	}

	content, err := os.ReadFile(filepath.Join(dir, ".git"))
	if err != nil {
		return false
	}

	for _, line := range strings.Split(string(content), "\n") {
		if !strings.HasPrefix(line, gitdirPrefix) {
			continue
		}
		target := strings.TrimSpace(strings.TrimPrefix(line, gitdirPrefix))
		if target == "" {
			return false
		}
		if !filepath.IsAbs(target) {
			target = filepath.Join(dir, target)
		}
		_, err := os.Stat(target)
		return err != nil
	}
	return false
}
