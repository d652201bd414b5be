package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmr-tortoise/gwt/internal/model"
)

const cloudPRListBody = `{
	"values": [
		{
			"id": 12,
			"title": "Fix login flow",
			"state": "OPEN",
			"source": {"branch": {"name": "fix-login"}},
			"links": {"html": {"href": "https://bitbucket.org/myws/myrepo/pull-requests/12"}}
		},
		{
			"id": 9,
			"title": "Old work",
			"state": "MERGED",
			"source": {"branch": {"name": "old-work"}},
			"links": {"html": {"href": "https://bitbucket.org/myws/myrepo/pull-requests/9"}}
		}
	]
}`

// TestBitbucketCloudFetchPullRequest verifies the request shape (path,
// basic auth) and the branch filter against the values array.
func TestBitbucketCloudFetchPullRequest(t *testing.T) {
	t.Setenv(EnvBitbucketCloudEmail, "me@example.com")
	t.Setenv(EnvBitbucketCloudToken, "secret-token")

	var gotPath, gotUser, gotPass string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotUser, gotPass, _ = r.BasicAuth()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(cloudPRListBody))
	}))
	defer server.Close()

	client := NewBitbucketCloudClient("myws", "myrepo", "", server.URL)
	summary, err := client.FetchPullRequest(context.Background(), "fix-login")
	require.NoError(t, err)
	require.NotNil(t, summary)

	assert.Equal(t, "/repositories/myws/myrepo/pullrequests", gotPath)
	assert.Equal(t, "me@example.com", gotUser)
	assert.Equal(t, "secret-token", gotPass)
	assert.Equal(t, "https://bitbucket.org/myws/myrepo/pull-requests/12", summary.URL)
	assert.Equal(t, StatusOpen, summary.Status)
	assert.Equal(t, "Fix login flow", summary.Title)
}

// TestBitbucketCloudFetchPullRequestNoMatch verifies that an unknown
// branch yields (nil, nil) rather than an error.
func TestBitbucketCloudFetchPullRequestNoMatch(t *testing.T) {
	t.Setenv(EnvBitbucketCloudToken, "secret-token")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(cloudPRListBody))
	}))
	defer server.Close()

	client := NewBitbucketCloudClient("myws", "myrepo", "", server.URL)
	summary, err := client.FetchPullRequest(context.Background(), "no-such-branch")
	require.NoError(t, err)
	assert.Nil(t, summary)
}

// TestBitbucketCloudListOpenPullRequests verifies that non-open PRs
// are filtered out of the remote list.
func TestBitbucketCloudListOpenPullRequests(t *testing.T) {
	t.Setenv(EnvBitbucketCloudToken, "secret-token")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(cloudPRListBody))
	}))
	defer server.Close()

	client := NewBitbucketCloudClient("myws", "myrepo", "", server.URL)
	prs, err := client.ListOpenPullRequests(context.Background())
	require.NoError(t, err)
	require.Len(t, prs, 1)
	assert.Equal(t, "fix-login", prs[0].Branch)
	assert.Equal(t, StatusOpen, prs[0].Status)
}

// TestBitbucketCloudEmailFallback verifies the basic auth username
// priority: environment, then project config, then a placeholder.
func TestBitbucketCloudEmailFallback(t *testing.T) {
	t.Setenv(EnvBitbucketCloudEmail, "")
	t.Setenv(EnvBitbucketCloudToken, "secret-token")

	var gotUser string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser, _, _ = r.BasicAuth()
		_, _ = w.Write([]byte(`{"values": []}`))
	}))
	defer server.Close()

	client := NewBitbucketCloudClient("myws", "myrepo", "config@example.com", server.URL)
	_, err := client.ListOpenPullRequests(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "config@example.com", gotUser)

	client = NewBitbucketCloudClient("myws", "myrepo", "", server.URL)
	_, err = client.ListOpenPullRequests(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "user", gotUser)
}

// TestBitbucketCloudUnauthorized verifies the 401 mapping to an auth
// error with setup guidance.
func TestBitbucketCloudUnauthorized(t *testing.T) {
	t.Setenv(EnvBitbucketCloudToken, "bad-token")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := NewBitbucketCloudClient("myws", "myrepo", "", server.URL)
	_, err := client.FetchPullRequest(context.Background(), "any")
	require.Error(t, err)

	var cliErr *model.CLIError
	require.ErrorAs(t, err, &cliErr)
	assert.Equal(t, model.ExitAuthError, cliErr.Code)
	assert.Contains(t, cliErr.Message, "gwt auth bitbucket-cloud setup")
}

// TestBitbucketCloudNotFound verifies the 404 mapping names the
// workspace and repository.
func TestBitbucketCloudNotFound(t *testing.T) {
	t.Setenv(EnvBitbucketCloudToken, "secret-token")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewBitbucketCloudClient("myws", "myrepo", "", server.URL)
	_, err := client.ListOpenPullRequests(context.Background())
	require.Error(t, err)

	var cliErr *model.CLIError
	require.ErrorAs(t, err, &cliErr)
	assert.Equal(t, model.ExitProviderError, cliErr.Code)
	assert.Contains(t, cliErr.Message, "myws/myrepo")
}

// TestBitbucketCloudServerError verifies that other failures surface
// the status and response body.
func TestBitbucketCloudServerError(t *testing.T) {
	t.Setenv(EnvBitbucketCloudToken, "secret-token")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("upstream exploded"))
	}))
	defer server.Close()

	client := NewBitbucketCloudClient("myws", "myrepo", "", server.URL)
	_, err := client.ListOpenPullRequests(context.Background())
	require.Error(t, err)

	var cliErr *model.CLIError
	require.ErrorAs(t, err, &cliErr)
	assert.Equal(t, model.ExitProviderError, cliErr.Code)
	assert.Contains(t, cliErr.Message, "500")
	assert.Contains(t, cliErr.Message, "upstream exploded")
}

// TestBitbucketCloudMissingToken verifies that no request is made when
// the token environment variable is unset.
func TestBitbucketCloudMissingToken(t *testing.T) {
	t.Setenv(EnvBitbucketCloudToken, "")

	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer server.Close()

	client := NewBitbucketCloudClient("myws", "myrepo", "", server.URL)
	_, err := client.FetchPullRequest(context.Background(), "any")
	require.Error(t, err)
	assert.False(t, called)
	assert.False(t, client.HasAuth())

	var cliErr *model.CLIError
	require.ErrorAs(t, err, &cliErr)
	assert.Equal(t, model.ExitAuthError, cliErr.Code)
	assert.Contains(t, cliErr.Message, EnvBitbucketCloudToken)
}

// TestBitbucketCloudTestConnection verifies the user endpoint probe.
func TestBitbucketCloudTestConnection(t *testing.T) {
	t.Setenv(EnvBitbucketCloudToken, "secret-token")

	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_, _ = w.Write([]byte(`{"display_name": "Me"}`))
	}))
	defer server.Close()

	client := NewBitbucketCloudClient("myws", "myrepo", "", server.URL)
	require.NoError(t, client.TestConnection(context.Background()))
	assert.Equal(t, "/user", gotPath)

	unauthorized := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer unauthorized.Close()

	client = NewBitbucketCloudClient("myws", "myrepo", "", unauthorized.URL)
	err := client.TestConnection(context.Background())
	require.Error(t, err)

	var cliErr *model.CLIError
	require.ErrorAs(t, err, &cliErr)
	assert.Equal(t, model.ExitAuthError, cliErr.Code)
}
