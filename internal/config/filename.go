package config

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"

	"github.com/mmr-tortoise/gwt/internal/provider"
)

// filenameUnsafe matches characters not allowed in registry filenames;
// they are replaced with hyphens.
var filenameUnsafe = regexp.MustCompile(`[^A-Za-z0-9._-]`)

func sanitizeFragment(s string) string {
	return filenameUnsafe.ReplaceAllString(s, "-")
}

// GenerateConfigFilename computes the deterministic registry filename for
// a repository URL. SSH and HTTPS forms of the same repository yield the
// same filename, so the registry lookup is independent of how the remote
// was cloned. Unrecognized URL shapes fall back to a content hash.
func GenerateConfigFilename(repoURL string) string {
	if owner, repo, ok := provider.ParseGitHubURL(repoURL); ok {
		return fmt.Sprintf("github-%s-%s.jsonc", sanitizeFragment(owner), sanitizeFragment(repo))
	}
	if workspace, repo, ok := provider.ParseBitbucketURL(repoURL); ok {
		return fmt.Sprintf("bitbucket-cloud-%s-%s.jsonc", sanitizeFragment(workspace), sanitizeFragment(repo))
	}
	if _, project, repo, ok := provider.ParseBitbucketDCURL(repoURL); ok {
		return fmt.Sprintf("bitbucket-data-center-%s-%s.jsonc", sanitizeFragment(project), sanitizeFragment(repo))
	}

	sum := sha256.Sum256([]byte(repoURL))
	return fmt.Sprintf("project-%s.jsonc", hex.EncodeToString(sum[:])[:12])
}
