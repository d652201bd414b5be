package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/mmr-tortoise/gwt/internal/model"
)

// Environment variables holding Bitbucket credentials. The auth
// subcommands print these names in their setup instructions.
const (
	EnvBitbucketCloudEmail = "BITBUCKET_CLOUD_EMAIL"
	EnvBitbucketCloudToken = "BITBUCKET_CLOUD_API_TOKEN"
)

const bitbucketCloudAPIBase = "https://api.bitbucket.org/2.0"

// BitbucketCloudClient talks to the Bitbucket Cloud v2 REST API using
// basic auth (account email plus API token). The Cloud pull request
// endpoint only returns open PRs, so merged and declined PRs never
// decorate worktrees here.
type BitbucketCloudClient struct {
	httpClient *http.Client
	baseURL    string
	workspace  string
	repoSlug   string
	email      string
}

// NewBitbucketCloudClient creates a client for workspace/repoSlug.
// configEmail is the bitbucketEmail from the project config and is
// only used when BITBUCKET_CLOUD_EMAIL is unset. An empty baseURL
// selects the public API; tests inject an httptest server URL.
func NewBitbucketCloudClient(workspace, repoSlug, configEmail, baseURL string) *BitbucketCloudClient {
	if baseURL == "" {
		baseURL = bitbucketCloudAPIBase
	}
	return &BitbucketCloudClient{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    strings.TrimRight(baseURL, "/"),
		workspace:  workspace,
		repoSlug:   repoSlug,
		email:      configEmail,
	}
}

// Token returns the API token from the environment, or an auth error
// telling the user how to set one up.
func (c *BitbucketCloudClient) Token() (string, error) {
	if token := os.Getenv(EnvBitbucketCloudToken); token != "" {
		return token, nil
	}
	return "", model.NewCLIError(model.ExitAuthError, fmt.Sprintf(
		"no Bitbucket Cloud API token found. Please set the %s and %s environment variables.\nRun 'gwt auth bitbucket-cloud setup' for instructions.",
		EnvBitbucketCloudEmail, EnvBitbucketCloudToken))
}

// HasAuth reports whether an API token is available.
func (c *BitbucketCloudClient) HasAuth() bool {
	_, err := c.Token()
	return err == nil
}

// authEmail picks the basic auth username: environment first, then the
// project config, then a placeholder (the API only validates the
// token).
func (c *BitbucketCloudClient) authEmail() string {
	if email := os.Getenv(EnvBitbucketCloudEmail); email != "" {
		return email
	}
	if c.email != "" {
		return c.email
	}
	return "user"
}

type bitbucketCloudPullRequest struct {
	ID     int    `json:"id"`
	Title  string `json:"title"`
	State  string `json:"state"`
	Source struct {
		Branch struct {
			Name string `json:"name"`
		} `json:"branch"`
	} `json:"source"`
	Links struct {
		HTML struct {
			Href string `json:"href"`
		} `json:"html"`
	} `json:"links"`
}

type bitbucketCloudPullRequestList struct {
	Values []bitbucketCloudPullRequest `json:"values"`
}

// FetchPullRequest returns the first pull request whose source branch
// is branch, or (nil, nil) when there is none.
func (c *BitbucketCloudClient) FetchPullRequest(ctx context.Context, branch string) (*PRSummary, error) {
	prs, err := c.getPullRequests(ctx)
	if err != nil {
		return nil, err
	}
	for _, pr := range prs {
		if pr.Source.Branch.Name == branch {
			return &PRSummary{
				URL:    pr.Links.HTML.Href,
				Status: statusFromState(pr.State, false),
				Title:  pr.Title,
			}, nil
		}
	}
	return nil, nil
}

// ListOpenPullRequests returns every open pull request in the
// repository.
func (c *BitbucketCloudClient) ListOpenPullRequests(ctx context.Context) ([]RemotePR, error) {
	prs, err := c.getPullRequests(ctx)
	if err != nil {
		return nil, err
	}
	var remote []RemotePR
	for _, pr := range prs {
		if !strings.EqualFold(pr.State, "OPEN") {
			continue
		}
		remote = append(remote, RemotePR{
			Branch: pr.Source.Branch.Name,
			PRSummary: PRSummary{
				URL:    pr.Links.HTML.Href,
				Status: statusFromState(pr.State, false),
				Title:  pr.Title,
			},
		})
	}
	return remote, nil
}

func (c *BitbucketCloudClient) getPullRequests(ctx context.Context) ([]bitbucketCloudPullRequest, error) {
	token, err := c.Token()
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/repositories/%s/%s/pullrequests", c.baseURL, c.workspace, c.repoSlug)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, model.WrapCLIError(model.ExitProviderError, "failed to build Bitbucket API request", err)
	}
	req.SetBasicAuth(c.authEmail(), token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, model.WrapCLIError(model.ExitProviderError, "failed to send request to Bitbucket API", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		switch resp.StatusCode {
		case http.StatusUnauthorized:
			return nil, model.NewCLIError(model.ExitAuthError,
				"authentication failed. Please check your Bitbucket credentials and run 'gwt auth bitbucket-cloud setup' to update them.")
		case http.StatusNotFound:
			return nil, model.NewCLIError(model.ExitProviderError, fmt.Sprintf(
				"repository not found: %s/%s. Please check the workspace and repository name.",
				c.workspace, c.repoSlug))
		default:
			return nil, model.NewCLIError(model.ExitProviderError, fmt.Sprintf(
				"API request failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(body))))
		}
	}

	var list bitbucketCloudPullRequestList
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return nil, model.WrapCLIError(model.ExitProviderError, "failed to parse Bitbucket API response", err)
	}
	return list.Values, nil
}

// TestConnection makes an authenticated call to the user endpoint and
// reports whether the credentials work.
func (c *BitbucketCloudClient) TestConnection(ctx context.Context) error {
	token, err := c.Token()
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/user", nil)
	if err != nil {
		return model.WrapCLIError(model.ExitProviderError, "failed to build Bitbucket API request", err)
	}
	req.SetBasicAuth(c.authEmail(), token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return model.WrapCLIError(model.ExitProviderError, "failed to test Bitbucket API connection", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return model.NewCLIError(model.ExitAuthError,
			"authentication failed. Please check your Bitbucket credentials.")
	}
	if resp.StatusCode >= 400 {
		return model.NewCLIError(model.ExitProviderError, fmt.Sprintf(
			"API connection failed with status: %d", resp.StatusCode))
	}
	return nil
}
