// Package config handles the persisted project configuration.
//
// Each managed project has a git-worktree-config.jsonc file, either
// co-located with the repository (next to it, or inside a "main"
// checkout) or stored in a global registry directory keyed by the
// repository identity. The file format is JSONC (JSON with Comments),
// so this package uses github.com/tidwall/jsonc to strip comments
// before parsing with the standard encoding/json library.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mmr-tortoise/gwt/internal/model"
	"github.com/tidwall/jsonc"
)

// Filename is the project configuration file name, identical in every
// location (local or global registry).
const Filename = "git-worktree-config.jsonc"

// WorktreesSuffix is the naming convention tying a project root to its
// worktrees directory: worktrees for <name> live in <name>-worktrees.
const WorktreesSuffix = "-worktrees"

// Hooks holds ordered lists of shell command templates executed around
// worktree lifecycle events. Templates may reference ${branchName} and
// ${worktreePath}.
type Hooks struct {
	PostAdd    []string `json:"postAdd,omitempty"`
	PreRemove  []string `json:"preRemove,omitempty"`
	PostRemove []string `json:"postRemove,omitempty"`
}

// ProjectConfig is the persisted per-project configuration. It is written
// once by `gwt init` and read by every other command; the lifecycle never
// mutates it.
type ProjectConfig struct {
	// RepositoryURL is the origin remote URL recorded at init time.
	RepositoryURL string `json:"repositoryUrl"`

	// MainBranch is the branch new worktrees are cut from when the
	// requested branch exists neither locally nor on the remote.
	MainBranch string `json:"mainBranch"`

	// CreatedAt is the UTC timestamp of config creation.
	CreatedAt time.Time `json:"createdAt"`

	// SourceControl selects the pull request provider.
	SourceControl model.SourceControl `json:"sourceControl"`

	// BitbucketEmail is the account email for Bitbucket Cloud basic auth.
	// The BITBUCKET_CLOUD_EMAIL environment variable takes precedence.
	BitbucketEmail string `json:"bitbucketEmail,omitempty"`

	// Hooks holds the lifecycle hook commands.
	Hooks *Hooks `json:"hooks,omitempty"`

	// ProjectPath is the absolute project root. Set for global registry
	// configs so commands run from inside the project can find it.
	ProjectPath string `json:"projectPath,omitempty"`

	// WorktreesPath is the absolute directory worktrees are created in.
	// When empty it is derived as the "<project>-worktrees" sibling.
	WorktreesPath string `json:"worktreesPath,omitempty"`
}

// New creates a config for a freshly initialized project.
func New(repositoryURL, mainBranch string, provider model.SourceControl, projectPath, worktreesPath string) *ProjectConfig {
	return &ProjectConfig{
		RepositoryURL: repositoryURL,
		MainBranch:    mainBranch,
		CreatedAt:     time.Now().UTC(),
		SourceControl: provider,
		ProjectPath:   projectPath,
		WorktreesPath: worktreesPath,
		Hooks:         &Hooks{},
	}
}

// Load reads a config file, strips JSONC comments and trailing commas,
// and parses it into a ProjectConfig.
func Load(path string) (*ProjectConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, model.WrapCLIError(
			model.ExitConfigError,
			fmt.Sprintf("failed to read config file %s", path),
			err,
		)
	}

	// Real-world configs carry comments, so normalize to plain JSON first.
	cleanJSON := jsonc.ToJSON(data)

	var cfg ProjectConfig
	if err := json.Unmarshal(cleanJSON, &cfg); err != nil {
		return nil, model.WrapCLIError(
			model.ExitConfigError,
			fmt.Sprintf("failed to parse config file %s", path),
			err,
		)
	}

	return &cfg, nil
}

// Save writes the config as pretty-printed JSON, which is also valid JSONC.
// The parent directory must already exist.
func (c *ProjectConfig) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return model.WrapCLIError(model.ExitConfigError, "failed to serialize config", err)
	}
	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return model.WrapCLIError(
			model.ExitConfigError,
			fmt.Sprintf("failed to write config file %s", path),
			err,
		)
	}
	return nil
}

// WorktreesDir returns the directory worktrees belong in: the explicit
// WorktreesPath when set, else the sibling derived from ProjectPath,
// else empty when the config records neither.
func (c *ProjectConfig) WorktreesDir() string {
	if c.WorktreesPath != "" {
		return c.WorktreesPath
	}
	if c.ProjectPath != "" {
		return DeriveWorktreesPath(c.ProjectPath)
	}
	return ""
}

// PostAdd returns the postAdd hook commands, tolerating absent hooks.
func (c *ProjectConfig) PostAdd() []string {
	if c == nil || c.Hooks == nil {
		return nil
	}
	return c.Hooks.PostAdd
}

// PreRemove returns the preRemove hook commands, tolerating absent hooks.
func (c *ProjectConfig) PreRemove() []string {
	if c == nil || c.Hooks == nil {
		return nil
	}
	return c.Hooks.PreRemove
}

// PostRemove returns the postRemove hook commands, tolerating absent hooks.
func (c *ProjectConfig) PostRemove() []string {
	if c == nil || c.Hooks == nil {
		return nil
	}
	return c.Hooks.PostRemove
}

// DeriveWorktreesPath returns the conventional worktrees directory for a
// project root: the "<name>-worktrees" sibling of the root.
func DeriveWorktreesPath(projectRoot string) string {
	clean := filepath.Clean(projectRoot)
	return filepath.Join(filepath.Dir(clean), filepath.Base(clean)+WorktreesSuffix)
}
