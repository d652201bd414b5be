package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mmr-tortoise/gwt/internal/exec"
	"github.com/mmr-tortoise/gwt/internal/model"
)

// GitHubClient fetches pull request information through the gh CLI,
// which handles authentication and API pagination on our behalf. The
// user authenticates once with `gh auth login` and gwt piggybacks on
// that session.
type GitHubClient struct {
	executor exec.CommandExecutor
	owner    string
	repo     string
}

// NewGitHubClient creates a client for the given repository. The
// executor is injected so tests can stub gh invocations.
func NewGitHubClient(executor exec.CommandExecutor, owner, repo string) *GitHubClient {
	return &GitHubClient{executor: executor, owner: owner, repo: repo}
}

// ghPullRequest mirrors the fields requested via --json. HeadRefName
// is only populated by ListOpenPullRequests.
type ghPullRequest struct {
	Number      int    `json:"number"`
	Title       string `json:"title"`
	State       string `json:"state"`
	URL         string `json:"url"`
	IsDraft     bool   `json:"isDraft"`
	HeadRefName string `json:"headRefName"`
}

// Token returns the stored gh credential, or an error when gh has no
// active session.
func (c *GitHubClient) Token(ctx context.Context) (string, error) {
	stdout, stderr, err := c.executor.Run(ctx, "", "gh", "auth", "token")
	if err != nil {
		return "", ghError(stderr, err)
	}
	return strings.TrimSpace(string(stdout)), nil
}

// HasAuth reports whether gh currently holds a usable credential.
func (c *GitHubClient) HasAuth(ctx context.Context) bool {
	token, err := c.Token(ctx)
	return err == nil && token != ""
}

// FetchPullRequest looks up the pull request whose head is branch,
// in any state. Returns (nil, nil) when the branch has no PR.
func (c *GitHubClient) FetchPullRequest(ctx context.Context, branch string) (*PRSummary, error) {
	stdout, stderr, err := c.executor.Run(ctx, "", "gh", "pr", "list",
		"--repo", c.owner+"/"+c.repo,
		"--head", branch,
		"--state", "all",
		"--json", "number,title,state,url,isDraft")
	if err != nil {
		return nil, ghError(stderr, err)
	}

	prs, err := parseGHOutput(stdout)
	if err != nil {
		return nil, err
	}
	if len(prs) == 0 {
		return nil, nil
	}

	pr := prs[0]
	return &PRSummary{
		URL:    pr.URL,
		Status: statusFromState(pr.State, pr.IsDraft),
		Title:  pr.Title,
	}, nil
}

// ListOpenPullRequests returns every open pull request in the
// repository, capped at 100 entries.
func (c *GitHubClient) ListOpenPullRequests(ctx context.Context) ([]RemotePR, error) {
	stdout, stderr, err := c.executor.Run(ctx, "", "gh", "pr", "list",
		"--repo", c.owner+"/"+c.repo,
		"--state", "open",
		"--json", "number,title,state,url,isDraft,headRefName",
		"--limit", "100")
	if err != nil {
		return nil, ghError(stderr, err)
	}

	prs, err := parseGHOutput(stdout)
	if err != nil {
		return nil, err
	}

	remote := make([]RemotePR, 0, len(prs))
	for _, pr := range prs {
		remote = append(remote, RemotePR{
			Branch: pr.HeadRefName,
			PRSummary: PRSummary{
				URL:    pr.URL,
				Status: statusFromState(pr.State, pr.IsDraft),
				Title:  pr.Title,
			},
		})
	}
	return remote, nil
}

func parseGHOutput(stdout []byte) ([]ghPullRequest, error) {
	trimmed := strings.TrimSpace(string(stdout))
	if trimmed == "" {
		return nil, nil
	}
	var prs []ghPullRequest
	if err := json.Unmarshal([]byte(trimmed), &prs); err != nil {
		return nil, model.WrapCLIError(model.ExitProviderError, "failed to parse gh output", err)
	}
	return prs, nil
}

// ghError distinguishes missing authentication from other gh failures
// so the caller can point the user at gh auth login.
func ghError(stderr []byte, err error) error {
	msg := strings.TrimSpace(string(stderr))
	lower := strings.ToLower(msg)
	if strings.Contains(lower, "not authenticated") || strings.Contains(lower, "authentication") {
		return model.NewCLIError(model.ExitAuthError,
			"GitHub authentication failed. Run 'gh auth login' to authenticate.")
	}
	if msg == "" {
		return model.WrapCLIError(model.ExitProviderError, "gh command failed", err)
	}
	return model.WrapCLIError(model.ExitProviderError, fmt.Sprintf("gh command failed: %s", msg), err)
}
