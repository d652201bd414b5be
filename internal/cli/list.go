// Package cli — list.go implements the "gwt list" command.
//
// The list command shows every worktree in the current project and,
// when the project's provider is authenticated, decorates each branch
// with its pull request. Open pull requests that have no local worktree
// yet are listed separately so remote work is visible before checkout.
//
// Orchestration steps:
//  1. Resolve the project and enumerate its worktrees
//  2. Build a provider client from the project config
//  3. Fetch PR information for all branches concurrently
//  4. Print the local section, then the remote-only PR section
package cli

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/spf13/cobra"

	"github.com/mmr-tortoise/gwt/internal/config"
	"github.com/mmr-tortoise/gwt/internal/exec"
	"github.com/mmr-tortoise/gwt/internal/model"
	"github.com/mmr-tortoise/gwt/internal/project"
	"github.com/mmr-tortoise/gwt/internal/provider"
	"github.com/mmr-tortoise/gwt/internal/worktree"
)

// listFlags holds the flag values for the list command.
type listFlags struct {
	local bool // --local: show only local worktrees, skip remote PRs
}

// NewListCommand creates the "list" cobra command.
// It is called from NewRootCommand to register as a subcommand.
func NewListCommand() *cobra.Command {
	flags := &listFlags{}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List all worktrees in the current project",
		Long: `List every worktree in the current project.

When the project's provider is authenticated, each branch is annotated
with its pull request URL, status, and title. Open pull requests without
a local worktree are listed in a separate section.`,

		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd.Context(), flags)
		},
	}

	cmd.Flags().BoolVarP(&flags.local, "local", "l", false, "Show only local worktrees (skip remote PRs)")

	return cmd
}

// listEntry is one local worktree prepared for display.
type listEntry struct {
	// label is the branch name, or "(bare)" / a short head hash when
	// the worktree has no branch.
	label string

	// branch is the cleaned branch name, empty for bare or detached
	// entries. Only entries with a branch get a PR lookup.
	branch string
}

// runList is the main orchestration function for the list command.
func runList(ctx context.Context, flags *listFlags) error {
	executor := exec.NewRealExecutor()
	manager := worktree.NewManager(executor)
	resolver := config.NewResolver()
	locator := project.NewLocator(manager, resolver)

	cwd, err := os.Getwd()
	if err != nil {
		return model.WrapCLIError(model.ExitGeneralError, "failed to get current directory", err)
	}

	// Step 1: Resolve the project and enumerate worktrees.
	proj, err := locator.Find(ctx, cwd)
	if err != nil {
		return err
	}
	VerboseLog("Git directory: %s", proj.GitDir)

	worktrees, err := manager.List(ctx, proj.GitDir)
	if err != nil {
		return err
	}
	if len(worktrees) == 0 {
		fmt.Println(yellowStyle.Render("No worktrees found."))
		return nil
	}

	// Step 2: Build a provider client from the project config. Missing
	// config or credentials degrade the listing to local-only info.
	originURL, _ := manager.RemoteOriginURL(ctx, proj.GitDir)
	_, cfg, err := resolver.Find(cwd, originURL)
	if err != nil {
		return err
	}

	client, hasPRInfo := buildProviderClient(ctx, executor, cfg)
	VerboseLog("PR information available: %v", hasPRInfo)

	entries := make([]listEntry, len(worktrees))
	for i, wt := range worktrees {
		entries[i] = newListEntry(wt)
	}

	// Step 3: Fetch PR info for every branch concurrently. Each lookup
	// is independently fallible; a failure just leaves that branch
	// undecorated.
	summaries := make([]*provider.PRSummary, len(entries))
	if hasPRInfo {
		var wg sync.WaitGroup
		for i, entry := range entries {
			if entry.branch == "" {
				continue
			}
			wg.Add(1)
			go func(i int, branch string) {
				defer wg.Done()
				summary, err := client.FetchPullRequest(ctx, branch)
				if err != nil {
					VerboseLog("PR lookup failed for %s: %v", branch, err)
					return
				}
				summaries[i] = summary
			}(i, entry.branch)
		}
		wg.Wait()
	}

	// Step 4: Print the local section.
	fmt.Println(boldStyle.Render("Local Worktrees:"))
	fmt.Println()
	for i, entry := range entries {
		printWorktreeEntry(entry.label, summaries[i])
	}

	// Remote-only PR section.
	if hasPRInfo && !flags.local {
		printRemotePullRequests(ctx, client, worktrees)
	}

	if !hasPRInfo && !flags.local && cfg != nil {
		printAuthTip(cfg.SourceControl)
	}

	return nil
}

// buildProviderClient constructs the PR client selected by the
// project's sourceControl setting. The second return reports whether
// credentials are available; without them the listing shows no PR
// information at all instead of failing per branch.
func buildProviderClient(ctx context.Context, executor exec.CommandExecutor, cfg *config.ProjectConfig) (provider.Client, bool) {
	if cfg == nil {
		return nil, false
	}

	switch cfg.SourceControl {
	case model.SourceControlBitbucketCloud:
		workspace, repo, ok := provider.ParseBitbucketURL(cfg.RepositoryURL)
		if !ok {
			return nil, false
		}
		client := provider.NewBitbucketCloudClient(workspace, repo, cfg.BitbucketEmail, "")
		return client, client.HasAuth()

	case model.SourceControlBitbucketDataCenter:
		baseURL, projectKey, repoSlug, ok := provider.ParseBitbucketDCURL(cfg.RepositoryURL)
		if !ok {
			return nil, false
		}
		client := provider.NewBitbucketDCClient(baseURL, projectKey, repoSlug)
		return client, client.HasAuth()

	default:
		// GitHub, and the fallback for unrecognized values.
		owner, repo, ok := provider.ParseGitHubURL(cfg.RepositoryURL)
		if !ok {
			return nil, false
		}
		client := provider.NewGitHubClient(executor, owner, repo)
		return client, client.HasAuth(ctx)
	}
}

// newListEntry computes the display label for a worktree. Branchless
// entries show "(bare)" or a shortened head hash.
func newListEntry(wt worktree.Worktree) listEntry {
	if branch := worktree.CleanBranchName(wt.Branch); branch != "" {
		return listEntry{label: branch, branch: branch}
	}
	if wt.Bare {
		return listEntry{label: "(bare)"}
	}
	head := wt.Head
	if len(head) > 8 {
		head = head[:8]
	}
	return listEntry{label: head}
}

// printWorktreeEntry prints one local worktree: the branch line, then
// the PR link and title when a PR exists.
func printWorktreeEntry(label string, summary *provider.PRSummary) {
	fmt.Println(cyanStyle.Render(label))
	if summary != nil {
		fmt.Printf("  %s (%s)\n", urlStyle.Render(summary.URL), renderStatus(summary.Status))
		if summary.Title != "" {
			fmt.Println("  " + dimStyle.Render(summary.Title))
		}
	}
	fmt.Println()
}

// printRemotePullRequests lists open PRs whose branch has no local
// worktree. Failures here never abort the command; the local section
// has already been printed.
func printRemotePullRequests(ctx context.Context, client provider.Client, worktrees []worktree.Worktree) {
	remotePRs, err := client.ListOpenPullRequests(ctx)
	if err != nil {
		VerboseLog("open PR listing failed: %v", err)
		return
	}

	localBranches := make(map[string]bool, len(worktrees))
	for _, wt := range worktrees {
		if branch := worktree.CleanBranchName(wt.Branch); branch != "" {
			localBranches[branch] = true
		}
	}

	var display []provider.RemotePR
	for _, pr := range remotePRs {
		if !localBranches[pr.Branch] {
			display = append(display, pr)
		}
	}
	if len(display) == 0 {
		return
	}

	fmt.Println()
	fmt.Println(boldStyle.Render("Open Pull Requests (no local worktree):"))
	fmt.Println()
	for _, pr := range display {
		fmt.Println(cyanStyle.Render(pr.Branch))
		fmt.Printf("  %s (%s)\n", urlStyle.Render(pr.URL), renderStatus(pr.Status))
		if pr.Title != "" {
			fmt.Println("  " + dimStyle.Render(pr.Title))
		}
		fmt.Println()
	}
}

// renderStatus colors a PR status: green for open and merged, red for
// closed, yellow for draft. Unknown states print unstyled.
func renderStatus(status provider.PRStatus) string {
	switch status {
	case provider.StatusOpen, provider.StatusMerged:
		return greenStyle.Render(string(status))
	case provider.StatusClosed:
		return redStyle.Render(string(status))
	case provider.StatusDraft:
		return yellowStyle.Render(string(status))
	default:
		return string(status)
	}
}

// printAuthTip tells the user how to enable PR information for the
// project's provider.
func printAuthTip(sourceControl model.SourceControl) {
	var tip string
	switch sourceControl {
	case model.SourceControlBitbucketCloud:
		tip = "Tip: Run 'gwt auth bitbucket-cloud setup' to enable Bitbucket Cloud pull request information"
	case model.SourceControlBitbucketDataCenter:
		tip = "Tip: Run 'gwt auth bitbucket-data-center setup' to enable Bitbucket Data Center pull request information"
	default:
		tip = "Tip: Run 'gh auth login' to enable GitHub pull request information"
	}
	fmt.Println()
	fmt.Println(dimStyle.Render(tip))
}
