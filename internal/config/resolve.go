package config

import (
	"os"
	"path/filepath"
	"strings"
)

// Resolver locates the project configuration for a working directory.
type Resolver struct {
	// RegistryDir overrides the global registry directory.
	// Empty means ProjectsConfigDir().
	RegistryDir string
}

// NewResolver returns a Resolver using the default global registry.
func NewResolver() *Resolver {
	return &Resolver{}
}

// ProjectsConfigDir returns the global registry directory for project
// configs: $XDG_CONFIG_HOME/gwt/projects, falling back to
// ~/.config/gwt/projects.
func ProjectsConfigDir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "gwt", "projects"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "gwt", "projects"), nil
}

func (r *Resolver) registry() (string, error) {
	if r.RegistryDir != "" {
		return r.RegistryDir, nil
	}
	return ProjectsConfigDir()
}

// Find locates the config governing cwd. originURL is the repository's
// origin remote URL when one is resolvable from cwd (empty otherwise);
// it keys the identity lookup in the global registry.
//
// Strategies are tried in strict priority order, first match wins:
//  1. Local: walk cwd upward; at each level check <dir>/git-worktree-config.jsonc
//     and <dir>/main/git-worktree-config.jsonc.
//  2. Global by identity: look up GenerateConfigFilename(originURL) in the
//     registry directory.
//  3. Global by containment: scan the registry for a config whose
//     projectPath is an ancestor of cwd.
//
// A miss is not an error: Find returns ("", nil, nil) and callers decide
// whether that is fatal.
func (r *Resolver) Find(cwd, originURL string) (string, *ProjectConfig, error) {
	// Strategy 1: local upward walk.
	dir := filepath.Clean(cwd)
	for {
		for _, candidate := range []string{
			filepath.Join(dir, Filename),
			filepath.Join(dir, "main", Filename),
		} {
			if _, err := os.Stat(candidate); err == nil {
				cfg, err := Load(candidate)
				if err != nil {
					return "", nil, err
				}
				return candidate, cfg, nil
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	registryDir, err := r.registry()
	if err != nil {
		return "", nil, nil
	}

	// Strategy 2: global lookup by repository identity.
	if originURL != "" {
		candidate := filepath.Join(registryDir, GenerateConfigFilename(originURL))
		if _, err := os.Stat(candidate); err == nil {
			cfg, err := Load(candidate)
			if err != nil {
				return "", nil, err
			}
			return candidate, cfg, nil
		}
	}

	// Strategy 3: global scan by projectPath containment.
	entries, err := os.ReadDir(registryDir)
	if err != nil {
		return "", nil, nil
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".jsonc") {
			continue
		}
		path := filepath.Join(registryDir, entry.Name())
		cfg, err := Load(path)
		if err != nil {
			// A broken registry entry must not block resolution of the rest.
			continue
		}
		if cfg.ProjectPath != "" && isAncestorOrEqual(cfg.ProjectPath, cwd) {
			return path, cfg, nil
		}
	}

	return "", nil, nil
}

// isAncestorOrEqual reports whether dir contains path (or equals it),
// comparing cleaned paths component-wise.
func isAncestorOrEqual(dir, path string) bool {
	dir = filepath.Clean(dir)
	path = filepath.Clean(path)
	if dir == path {
		return true
	}
	return strings.HasPrefix(path, dir+string(filepath.Separator))
}
