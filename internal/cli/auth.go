package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mmr-tortoise/gwt/internal/config"
	"github.com/mmr-tortoise/gwt/internal/exec"
	"github.com/mmr-tortoise/gwt/internal/model"
	"github.com/mmr-tortoise/gwt/internal/provider"
	"github.com/mmr-tortoise/gwt/internal/worktree"
)

// NewAuthCommand creates the auth command and its provider subcommands.
//
// GitHub authentication is delegated entirely to the gh CLI, so `gwt auth
// github` only verifies that gh holds a token. The Bitbucket subcommands
// manage token-based REST access: `setup` prints instructions for creating
// a token and exporting it, `test` performs an authenticated API call
// against the repository configured for the current project.
func NewAuthCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage authentication for external services",
	}

	cmd.AddCommand(newAuthGitHubCommand())
	cmd.AddCommand(newAuthBitbucketCloudCommand())
	cmd.AddCommand(newAuthBitbucketDCCommand())

	return cmd
}

func newAuthGitHubCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "github",
		Short: "Authenticate with GitHub",
		Long: `Verify GitHub authentication.

gwt uses the GitHub CLI (gh) for pull request information, so
authentication is managed by gh itself.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAuthGitHub(cmd.Context())
		},
	}
}

func newAuthBitbucketCloudCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bitbucket-cloud",
		Short: "Authenticate with Bitbucket Cloud",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAuthBitbucketCloudStatus(cmd.Context())
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "setup",
		Short: "Show setup instructions",
		RunE: func(cmd *cobra.Command, args []string) error {
			printBitbucketCloudSetup()
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "test",
		Short: "Test the authentication connection",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAuthBitbucketCloudTest(cmd.Context())
		},
	})

	return cmd
}

func newAuthBitbucketDCCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bitbucket-data-center",
		Short: "Authenticate with Bitbucket Data Center",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAuthBitbucketDCStatus(cmd.Context())
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "setup",
		Short: "Show setup instructions",
		RunE: func(cmd *cobra.Command, args []string) error {
			printBitbucketDCSetup()
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "test",
		Short: "Test the authentication connection",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAuthBitbucketDCTest(cmd.Context())
		},
	})

	return cmd
}

func runAuthGitHub(ctx context.Context) error {
	executor := exec.NewRealExecutor()
	client := provider.NewGitHubClient(executor, "", "")

	if !client.HasAuth(ctx) {
		return model.NewCLIError(model.ExitAuthError,
			"GitHub authentication failed. Run 'gh auth login' to authenticate.")
	}

	fmt.Println(greenStyle.Render("✓ GitHub authentication is configured (via gh CLI)"))
	return nil
}

// runAuthBitbucketCloudStatus reports whether a Cloud token is present and
// points at setup when it is not. Invoked when no subcommand is given.
func runAuthBitbucketCloudStatus(_ context.Context) error {
	client := provider.NewBitbucketCloudClient("", "", "", "")
	if client.HasAuth() {
		fmt.Println(greenStyle.Render("✓ Bitbucket Cloud API token found in environment"))
		fmt.Println(dimStyle.Render("Run 'gwt auth bitbucket-cloud test' to verify the connection."))
		return nil
	}

	fmt.Println(yellowStyle.Render("No Bitbucket Cloud API token found."))
	fmt.Println()
	printBitbucketCloudSetup()
	return nil
}

func runAuthBitbucketDCStatus(_ context.Context) error {
	client := provider.NewBitbucketDCClient("", "", "")
	if client.HasAuth() {
		fmt.Println(greenStyle.Render("✓ Bitbucket Data Center API token found in environment"))
		fmt.Println(dimStyle.Render("Run 'gwt auth bitbucket-data-center test' to verify the connection."))
		return nil
	}

	fmt.Println(yellowStyle.Render("No Bitbucket Data Center API token found."))
	fmt.Println()
	printBitbucketDCSetup()
	return nil
}

func printBitbucketCloudSetup() {
	fmt.Println("Setting up Bitbucket Cloud authentication")
	fmt.Println()
	fmt.Println("1. Create an API token (App Password) at:")
	fmt.Println("   https://bitbucket.org/account/settings/app-passwords/")
	fmt.Println()
	fmt.Println("2. Required permissions for the token:")
	fmt.Println("   - Repositories: Read")
	fmt.Println("   - Pull requests: Read")
	fmt.Println()
	fmt.Println("3. Copy the generated token")
	fmt.Println()
	fmt.Println("4. Set environment variables:")
	fmt.Printf("   export %s=your-email@example.com\n", provider.EnvBitbucketCloudEmail)
	fmt.Printf("   export %s=YOUR_TOKEN\n", provider.EnvBitbucketCloudToken)
	fmt.Println()
	fmt.Println("Note: The email should match your Bitbucket account email.")
}

func printBitbucketDCSetup() {
	fmt.Println("Setting up Bitbucket Data Center authentication")
	fmt.Println()
	fmt.Println("1. Create an HTTP access token in your Bitbucket Data Center instance:")
	fmt.Println("   Profile picture -> Manage account -> HTTP access tokens -> Create token")
	fmt.Println()
	fmt.Println("2. Required permissions for the token:")
	fmt.Println("   - Repositories: Read")
	fmt.Println()
	fmt.Println("3. Copy the generated token")
	fmt.Println()
	fmt.Println("4. Set the environment variable:")
	fmt.Printf("   export %s=YOUR_TOKEN\n", provider.EnvBitbucketDCToken)
}

// runAuthBitbucketCloudTest performs an authenticated request against the
// Bitbucket Cloud API using the repository from the current project config.
func runAuthBitbucketCloudTest(ctx context.Context) error {
	cfg, err := findAuthConfig(ctx)
	if err != nil {
		return err
	}

	if cfg.SourceControl != model.SourceControlBitbucketCloud {
		return model.NewCLIError(model.ExitProviderError, "this is not a Bitbucket Cloud repository")
	}

	workspace, repoSlug, ok := provider.ParseBitbucketURL(cfg.RepositoryURL)
	if !ok {
		return model.NewCLIError(model.ExitProviderError, "failed to parse Bitbucket repository URL")
	}

	client := provider.NewBitbucketCloudClient(workspace, repoSlug, cfg.BitbucketEmail, "")

	fmt.Println(cyanStyle.Render("Testing Bitbucket API connection..."))
	if err := client.TestConnection(ctx); err != nil {
		return err
	}

	fmt.Println(greenStyle.Render("✓ Bitbucket API connection successful"))
	return nil
}

func runAuthBitbucketDCTest(ctx context.Context) error {
	cfg, err := findAuthConfig(ctx)
	if err != nil {
		return err
	}

	if cfg.SourceControl != model.SourceControlBitbucketDataCenter {
		return model.NewCLIError(model.ExitProviderError, "this is not a Bitbucket Data Center repository")
	}

	baseURL, projectKey, repoSlug, ok := provider.ParseBitbucketDCURL(cfg.RepositoryURL)
	if !ok {
		return model.NewCLIError(model.ExitProviderError, "failed to parse Bitbucket Data Center repository URL")
	}

	client := provider.NewBitbucketDCClient(baseURL, projectKey, repoSlug)

	fmt.Println(cyanStyle.Render("Testing Bitbucket Data Center API connection..."))
	if err := client.TestConnection(ctx); err != nil {
		return err
	}

	fmt.Println(greenStyle.Render("✓ Bitbucket Data Center API connection successful"))
	return nil
}

// findAuthConfig resolves the project config for the current directory so
// the test subcommands know which repository to authenticate against.
func findAuthConfig(ctx context.Context) (*config.ProjectConfig, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, model.WrapCLIError(model.ExitGeneralError, "failed to get current directory", err)
	}

	executor := exec.NewRealExecutor()
	manager := worktree.NewManager(executor)

	originURL := ""
	if root, err := manager.GitRoot(ctx, cwd); err == nil && root != "" {
		if url, err := manager.RemoteOriginURL(ctx, root); err == nil {
			originURL = url
		}
	}

	resolver := config.NewResolver()
	_, cfg, err := resolver.Find(cwd, originURL)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return nil, model.NewCLIError(model.ExitConfigError,
			fmt.Sprintf("no %s found. Run 'gwt init' to create one.", config.Filename))
	}

	return cfg, nil
}
