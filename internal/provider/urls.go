package provider

import (
	"regexp"
	"strings"

	"github.com/mmr-tortoise/gwt/internal/model"
)

var (
	bitbucketCloudPattern = regexp.MustCompile(`bitbucket\.org[:/]([^/]+)/([^/.]+)`)

	// Data Center URL shapes, most specific first. The scp and ssh
	// patterns match any host (including github.com and
	// bitbucket.org), so callers must try the other providers before
	// falling back to ParseBitbucketDCURL.
	dcSCMPattern      = regexp.MustCompile(`([^/]+)/scm/([^/]+)/([^/.]+)`)
	dcProjectsPattern = regexp.MustCompile(`([^/]+)/projects/([^/]+)/repos/([^/.]+)`)
	dcSCPPattern      = regexp.MustCompile(`git@([^:]+):([^/]+)/([^/.]+)`)
	dcSSHPattern      = regexp.MustCompile(`ssh://git@([^/]+)/([^/]+)/([^/.]+)`)
)

// ParseGitHubURL extracts owner and repository from a github.com URL.
// Both https and ssh forms are accepted, with or without a trailing
// ".git".
func ParseGitHubURL(url string) (owner, repo string, ok bool) {
	for _, prefix := range []string{"https://github.com/", "git@github.com:"} {
		rest, found := strings.CutPrefix(url, prefix)
		if !found {
			continue
		}
		parts := strings.Split(strings.TrimSuffix(rest, ".git"), "/")
		if len(parts) >= 2 && parts[0] != "" && parts[1] != "" {
			return parts[0], parts[1], true
		}
	}
	return "", "", false
}

// ParseBitbucketURL extracts workspace and repository slug from a
// bitbucket.org URL (https or ssh form).
func ParseBitbucketURL(url string) (workspace, repo string, ok bool) {
	m := bitbucketCloudPattern.FindStringSubmatch(url)
	if m == nil {
		return "", "", false
	}
	return m[1], m[2], true
}

// ParseBitbucketDCURL extracts the server base URL, project key and
// repository slug from a self-hosted Bitbucket URL. Recognized shapes:
//
//	https://host/scm/PROJECT/repo.git
//	https://host/projects/PROJECT/repos/repo
//	git@host:PROJECT/repo.git
//	ssh://git@host/PROJECT/repo.git
//
// The returned base URL always carries an https scheme so it can be
// used for REST calls directly. The last two shapes overlap with
// GitHub and Bitbucket Cloud ssh URLs; check those providers first.
func ParseBitbucketDCURL(url string) (baseURL, project, repo string, ok bool) {
	for _, pattern := range []*regexp.Regexp{dcSCMPattern, dcProjectsPattern} {
		if m := pattern.FindStringSubmatch(url); m != nil {
			return ensureScheme(m[1]), m[2], m[3], true
		}
	}
	for _, pattern := range []*regexp.Regexp{dcSCPPattern, dcSSHPattern} {
		if m := pattern.FindStringSubmatch(url); m != nil {
			return "https://" + m[1], m[2], m[3], true
		}
	}
	return "", "", "", false
}

func ensureScheme(host string) string {
	if strings.HasPrefix(host, "http") {
		return host
	}
	return "https://" + host
}

// Detect guesses the hosting provider from a remote URL. Only GitHub
// and Bitbucket Cloud have unambiguous URL shapes; Data Center
// repositories must be declared explicitly.
func Detect(repoURL string) (model.SourceControl, bool) {
	if _, _, ok := ParseGitHubURL(repoURL); ok {
		return model.SourceControlGitHub, true
	}
	if _, _, ok := ParseBitbucketURL(repoURL); ok {
		return model.SourceControlBitbucketCloud, true
	}
	return "", false
}
