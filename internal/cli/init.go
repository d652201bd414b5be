// Package cli — init.go implements the "gwt init" command.
//
// The init command registers an existing repository with gwt: it
// detects the hosting provider from the origin URL, records the current
// branch as the main branch, derives the worktrees directory, and
// writes the project config either to the global registry or next to
// the repository.
package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mmr-tortoise/gwt/internal/config"
	"github.com/mmr-tortoise/gwt/internal/exec"
	"github.com/mmr-tortoise/gwt/internal/model"
	"github.com/mmr-tortoise/gwt/internal/provider"
	"github.com/mmr-tortoise/gwt/internal/worktree"
)

// initFlags holds the flag values for the init command.
type initFlags struct {
	// local writes the config next to the repository instead of the
	// global registry.
	local bool

	// provider overrides URL-based provider detection. Required for
	// Bitbucket Data Center, whose URLs look like any self-hosted git
	// server.
	provider string
}

// NewInitCommand creates the "init" cobra command.
// It is called from NewRootCommand to register as a subcommand.
func NewInitCommand() *cobra.Command {
	flags := &initFlags{}

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize gwt for an existing repository",
		Long: `Initialize gwt for the repository containing the current directory.

The command records the repository URL, hosting provider, and main
branch (the currently checked out branch), and derives the sibling
worktrees directory. By default the config is written to the global
registry so it is found from anywhere; --local writes it next to the
repository instead.

Examples:
  gwt init
  gwt init --local
  gwt init --provider bitbucket-data-center`,

		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(cmd.Context(), flags)
		},
	}

	cmd.Flags().BoolVar(&flags.local, "local", false, "Store config in the project directory")
	cmd.Flags().StringVar(&flags.provider, "provider", "", "Repository provider: github, bitbucket-cloud, or bitbucket-data-center")

	return cmd
}

// runInit is the main orchestration function for the init command.
func runInit(ctx context.Context, flags *initFlags) error {
	executor := exec.NewRealExecutor()
	manager := worktree.NewManager(executor)

	cwd, err := os.Getwd()
	if err != nil {
		return model.WrapCLIError(model.ExitGeneralError, "failed to get current directory", err)
	}

	// Step 1: init only works from inside a repository with an origin.
	gitRoot, err := manager.GitRoot(ctx, cwd)
	if err != nil {
		return err
	}
	if gitRoot == "" {
		return model.NewCLIError(model.ExitGitError,
			"not in a git repository. Please run this command from inside a git repository.")
	}
	VerboseLog("Git root: %s", gitRoot)

	repoURL, err := manager.RemoteOriginURL(ctx, gitRoot)
	if err != nil || repoURL == "" {
		return model.NewCLIError(model.ExitGitError,
			"no remote 'origin' found. Please add a remote first.")
	}
	VerboseLog("Repository URL: %s", repoURL)

	// Step 2: Determine the provider, from the flag when given, else
	// from the URL shape.
	sourceControl, err := resolveProvider(flags.provider, repoURL)
	if err != nil {
		return err
	}
	fmt.Println(greenStyle.Render(fmt.Sprintf("✓ Detected provider: %s", sourceControl.DisplayName())))

	// Step 3: The branch checked out at init time becomes the main
	// branch that new worktrees are based on.
	mainBranch, err := manager.CurrentBranch(ctx, gitRoot)
	if err != nil {
		return model.WrapCLIError(model.ExitGitError, "failed to get current branch", err)
	}

	// Step 4: Resolve paths and assemble the config.
	projectPath := gitRoot
	if resolved, err := filepath.EvalSymlinks(gitRoot); err == nil {
		projectPath = resolved
	}
	worktreesPath := config.DeriveWorktreesPath(projectPath)

	cfg := config.New(repoURL, mainBranch, sourceControl, projectPath, worktreesPath)

	// Step 5: Pick the config location and save.
	configPath, err := resolveConfigPath(flags.local, projectPath, repoURL)
	if err != nil {
		return err
	}
	if err := cfg.Save(configPath); err != nil {
		return err
	}

	fmt.Println(greenStyle.Render(fmt.Sprintf("✓ Repository: %s", repoURL)))
	fmt.Println(greenStyle.Render(fmt.Sprintf("✓ Main branch: %s", mainBranch)))
	fmt.Println(greenStyle.Render(fmt.Sprintf("✓ Project path: %s", projectPath)))
	fmt.Println(greenStyle.Render(fmt.Sprintf("✓ Worktrees path: %s", worktreesPath)))
	fmt.Println(greenStyle.Render(fmt.Sprintf("✓ Config saved to: %s", configPath)))

	if !flags.local {
		fmt.Println(dimStyle.Render("  (Use --local to store config in project directory)"))
	}

	return nil
}

// resolveProvider picks the sourceControl value: an explicit --provider
// wins, otherwise the URL shape decides. Data Center URLs cannot be
// detected, so unknown URLs must use the flag.
func resolveProvider(flagValue, repoURL string) (model.SourceControl, error) {
	if flagValue != "" {
		sourceControl, err := model.ParseSourceControl(flagValue)
		if err != nil {
			return "", model.WrapCLIError(model.ExitGeneralError, "invalid --provider value", err)
		}
		return sourceControl, nil
	}

	if detected, ok := provider.Detect(repoURL); ok {
		return detected, nil
	}
	return "", model.NewCLIError(model.ExitProviderError, fmt.Sprintf(
		"could not detect repository provider from URL: %s\nSupported providers: GitHub, Bitbucket Cloud\nUse --provider to set one explicitly (e.g. --provider bitbucket-data-center)",
		repoURL))
}

// resolveConfigPath returns where the config file is written: next to
// the repository for --local, else the global registry keyed by
// repository identity.
func resolveConfigPath(local bool, projectPath, repoURL string) (string, error) {
	if local {
		parent := filepath.Dir(projectPath)
		if parent == "" || parent == projectPath {
			return filepath.Join(projectPath, config.Filename), nil
		}
		return filepath.Join(parent, config.Filename), nil
	}

	registryDir, err := config.ProjectsConfigDir()
	if err != nil {
		return "", model.WrapCLIError(model.ExitConfigError, "failed to locate config directory", err)
	}
	if err := os.MkdirAll(registryDir, 0o755); err != nil {
		return "", model.WrapCLIError(model.ExitConfigError, "failed to create config directory", err)
	}
	return filepath.Join(registryDir, config.GenerateConfigFilename(repoURL)), nil
}
