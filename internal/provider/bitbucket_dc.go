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

// EnvBitbucketDCToken holds the HTTP access token for a Bitbucket Data
// Center instance.
const EnvBitbucketDCToken = "BITBUCKET_DATA_CENTER_API_TOKEN"

// BitbucketDCClient talks to a self-hosted Bitbucket Data Center
// instance over its 1.0 REST API with a bearer token. The base URL
// comes from the repository URL recorded at init time.
type BitbucketDCClient struct {
	httpClient *http.Client
	baseURL    string
	projectKey string
	repoSlug   string
}

// NewBitbucketDCClient creates a client for projectKey/repoSlug on the
// server at baseURL (scheme and host, no trailing slash required).
func NewBitbucketDCClient(baseURL, projectKey, repoSlug string) *BitbucketDCClient {
	return &BitbucketDCClient{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    strings.TrimRight(baseURL, "/"),
		projectKey: projectKey,
		repoSlug:   repoSlug,
	}
}

// Token returns the access token from the environment, or an auth
// error telling the user how to set one up.
func (c *BitbucketDCClient) Token() (string, error) {
	if token := os.Getenv(EnvBitbucketDCToken); token != "" {
		return token, nil
	}
	return "", model.NewCLIError(model.ExitAuthError, fmt.Sprintf(
		"no Bitbucket Data Center API token found. Please set the %s environment variable.\nRun 'gwt auth bitbucket-data-center setup' for instructions.",
		EnvBitbucketDCToken))
}

// HasAuth reports whether an access token is available.
func (c *BitbucketDCClient) HasAuth() bool {
	_, err := c.Token()
	return err == nil
}

type bitbucketDCPullRequest struct {
	ID      int    `json:"id"`
	Title   string `json:"title"`
	State   string `json:"state"`
	Draft   bool   `json:"draft"`
	FromRef struct {
		DisplayID string `json:"displayId"`
	} `json:"fromRef"`
	Links struct {
		Self []struct {
			Href string `json:"href"`
		} `json:"self"`
	} `json:"links"`
}

type bitbucketDCPullRequestList struct {
	Values []bitbucketDCPullRequest `json:"values"`
}

func (pr bitbucketDCPullRequest) summary() PRSummary {
	var url string
	if len(pr.Links.Self) > 0 {
		url = pr.Links.Self[0].Href
	}
	return PRSummary{
		URL:    url,
		Status: statusFromState(pr.State, pr.Draft),
		Title:  pr.Title,
	}
}

// FetchPullRequest returns the first pull request whose source branch
// is branch, or (nil, nil) when there is none.
func (c *BitbucketDCClient) FetchPullRequest(ctx context.Context, branch string) (*PRSummary, error) {
	prs, err := c.getPullRequests(ctx)
	if err != nil {
		return nil, err
	}
	for _, pr := range prs {
		if pr.FromRef.DisplayID == branch {
			summary := pr.summary()
			return &summary, nil
		}
	}
	return nil, nil
}

// ListOpenPullRequests returns every open pull request in the
// repository.
func (c *BitbucketDCClient) ListOpenPullRequests(ctx context.Context) ([]RemotePR, error) {
	prs, err := c.getPullRequests(ctx)
	if err != nil {
		return nil, err
	}
	var remote []RemotePR
	for _, pr := range prs {
		if !strings.EqualFold(pr.State, "OPEN") {
			continue
		}
		remote = append(remote, RemotePR{Branch: pr.FromRef.DisplayID, PRSummary: pr.summary()})
	}
	return remote, nil
}

func (c *BitbucketDCClient) getPullRequests(ctx context.Context) ([]bitbucketDCPullRequest, error) {
	token, err := c.Token()
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/rest/api/1.0/projects/%s/repos/%s/pull-requests",
		c.baseURL, c.projectKey, c.repoSlug)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, model.WrapCLIError(model.ExitProviderError, "failed to build Bitbucket Data Center API request", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, model.WrapCLIError(model.ExitProviderError, "failed to send request to Bitbucket Data Center API", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		switch resp.StatusCode {
		case http.StatusUnauthorized:
			return nil, model.NewCLIError(model.ExitAuthError,
				"authentication failed. Please check your Bitbucket Data Center access token and run 'gwt auth bitbucket-data-center setup' to update it.")
		case http.StatusNotFound:
			return nil, model.NewCLIError(model.ExitProviderError, fmt.Sprintf(
				"repository not found: %s/%s. Please check the project key and repository slug.",
				c.projectKey, c.repoSlug))
		default:
			return nil, model.NewCLIError(model.ExitProviderError, fmt.Sprintf(
				"API request failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(body))))
		}
	}

	var list bitbucketDCPullRequestList
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return nil, model.WrapCLIError(model.ExitProviderError, "failed to parse Bitbucket Data Center API response", err)
	}
	return list.Values, nil
}

// TestConnection makes an authenticated call to the users endpoint and
// reports whether the token works.
func (c *BitbucketDCClient) TestConnection(ctx context.Context) error {
	token, err := c.Token()
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/rest/api/1.0/users", nil)
	if err != nil {
		return model.WrapCLIError(model.ExitProviderError, "failed to build Bitbucket Data Center API request", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return model.WrapCLIError(model.ExitProviderError, "failed to test Bitbucket Data Center API connection", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return model.NewCLIError(model.ExitAuthError,
			"authentication failed. Please check your Bitbucket Data Center access token.")
	}
	if resp.StatusCode >= 400 {
		return model.NewCLIError(model.ExitProviderError, fmt.Sprintf(
			"API connection failed with status: %d", resp.StatusCode))
	}
	return nil
}

// Compile-time checks that every backend satisfies Client.
var (
	_ Client = (*GitHubClient)(nil)
	_ Client = (*BitbucketCloudClient)(nil)
	_ Client = (*BitbucketDCClient)(nil)
)
