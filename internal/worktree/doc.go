// Package worktree provides Git worktree management operations for
// the gwt CLI.
//
// All Git operations are performed by shelling out to the git binary
// through an injected exec.CommandExecutor, rather than using a Git
// library like go-git. This approach:
//   - Avoids CGO dependencies (libgit2)
//   - Uses the exact same Git behavior the user sees in their terminal
//   - Requires Git >= 2.15 (when worktree support matured)
//
// The Manager struct provides the worktree registry (list/find) plus
// the git primitives the lifecycle commands compose: fetch, the three
// worktree-add strategies, remove, prune, and branch queries.
package worktree
