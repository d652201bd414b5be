// Package provider looks up pull request information for branches on
// the hosting services gwt knows about: GitHub (through the gh CLI),
// Bitbucket Cloud, and Bitbucket Data Center (both through their REST
// APIs). The list command consumes the Client interface and does not
// care which provider sits behind it.
package provider

import (
	"context"
	"strings"
)

// PRStatus is the normalized lifecycle state of a pull request.
// Providers disagree on vocabulary (Bitbucket says DECLINED where
// GitHub says CLOSED), so states are folded into this small set before
// display.
type PRStatus string

const (
	StatusOpen   PRStatus = "open"
	StatusMerged PRStatus = "merged"
	StatusClosed PRStatus = "closed"
	StatusDraft  PRStatus = "draft"
)

// PRSummary describes a single pull request for display next to a
// worktree.
type PRSummary struct {
	URL    string
	Status PRStatus
	Title  string
}

// RemotePR is an open pull request together with its head branch, used
// to show PRs that have no local worktree yet.
type RemotePR struct {
	Branch string
	PRSummary
}

// Client is implemented by every provider backend.
type Client interface {
	// FetchPullRequest returns the pull request whose head is branch,
	// or (nil, nil) when the branch has none.
	FetchPullRequest(ctx context.Context, branch string) (*PRSummary, error)

	// ListOpenPullRequests returns all open pull requests in the
	// repository.
	ListOpenPullRequests(ctx context.Context) ([]RemotePR, error)
}

// statusFromState normalizes a provider state string. Bitbucket's
// DECLINED and SUPERSEDED both mean the PR was closed without merging.
// The draft flag only matters for open PRs.
func statusFromState(state string, draft bool) PRStatus {
	switch strings.ToUpper(state) {
	case "OPEN":
		if draft {
			return StatusDraft
		}
		return StatusOpen
	case "MERGED":
		return StatusMerged
	case "CLOSED", "DECLINED", "SUPERSEDED":
		return StatusClosed
	default:
		return PRStatus(strings.ToLower(state))
	}
}
