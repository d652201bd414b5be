package model

import (
	"fmt"
	"strings"
)

// SourceControl identifies the hosting provider of a repository. The
// provider determines how pull request information is fetched and how
// global config filenames are generated.
type SourceControl string

const (
	// SourceControlGitHub is a repository hosted on github.com,
	// queried through the gh CLI.
	SourceControlGitHub SourceControl = "github"

	// SourceControlBitbucketCloud is a repository hosted on bitbucket.org,
	// queried through the Bitbucket Cloud 2.0 REST API.
	SourceControlBitbucketCloud SourceControl = "bitbucket-cloud"

	// SourceControlBitbucketDataCenter is a repository on a self-hosted
	// Bitbucket Data Center instance, queried through its 1.0 REST API.
	SourceControlBitbucketDataCenter SourceControl = "bitbucket-data-center"
)

// String returns the string representation of SourceControl.
// This method satisfies the fmt.Stringer interface, enabling
// human-readable output in CLI commands and logging.
func (s SourceControl) String() string {
	return string(s)
}

// IsValid checks whether the SourceControl value is one of the
// predefined valid providers.
func (s SourceControl) IsValid() bool {
	switch s {
	case SourceControlGitHub, SourceControlBitbucketCloud, SourceControlBitbucketDataCenter:
		return true
	default:
		return false
	}
}

// DisplayName returns the provider name used in user-facing messages.
func (s SourceControl) DisplayName() string {
	switch s {
	case SourceControlGitHub:
		return "GitHub"
	case SourceControlBitbucketCloud:
		return "Bitbucket Cloud"
	case SourceControlBitbucketDataCenter:
		return "Bitbucket Data Center"
	default:
		return string(s)
	}
}

// ParseSourceControl converts a string to a SourceControl.
// Returns an error if the string does not match any valid provider.
func ParseSourceControl(s string) (SourceControl, error) {
	sc := SourceControl(strings.ToLower(s))
	if !sc.IsValid() {
		return "", fmt.Errorf("invalid source control provider: %q (valid: github, bitbucket-cloud, bitbucket-data-center)", s)
	}
	return sc, nil
}

// ProtectedBranches lists branch names that are never deleted when their
// worktree is removed. They are also preferred as the working directory
// for git commands that must not run inside the worktree being removed.
var ProtectedBranches = []string{"main", "master", "dev", "develop"}

// IsProtectedBranch reports whether name is one of the protected branches.
func IsProtectedBranch(name string) bool {
	for _, b := range ProtectedBranches {
		if name == b {
			return true
		}
	}
	return false
}

// ExitCode defines standard CLI exit codes. These codes allow scripts
// and CI systems to programmatically determine the outcome of a command.
type ExitCode int

const (
	// ExitSuccess indicates the command completed successfully.
	ExitSuccess ExitCode = 0

	// ExitGeneralError indicates an unspecified error occurred.
	ExitGeneralError ExitCode = 1

	// ExitGitError indicates a git command failed.
	ExitGitError ExitCode = 2

	// ExitConfigError indicates the project config could not be
	// loaded, parsed, or saved.
	ExitConfigError ExitCode = 3

	// ExitProviderError indicates a source control provider request failed.
	ExitProviderError ExitCode = 4

	// ExitAuthError indicates provider credentials are missing or rejected.
	ExitAuthError ExitCode = 5

	// ExitProjectRootNotFound indicates the project root could not be
	// resolved from the current directory.
	ExitProjectRootNotFound ExitCode = 6

	// ExitGitDirectoryNotFound indicates no git repository was found
	// under the project root.
	ExitGitDirectoryNotFound ExitCode = 7

	// ExitBranchError indicates a branch lookup or deletion failed.
	ExitBranchError ExitCode = 8

	// ExitHookError indicates a lifecycle hook could not be started.
	ExitHookError ExitCode = 9

	// ExitUserCancelled indicates the user cancelled an interactive prompt.
	ExitUserCancelled ExitCode = 10
)

// CLIError is a custom error type that carries an exit code.
// This allows the CLI layer to translate domain errors into
// appropriate process exit codes.
type CLIError struct {
	// Code is the exit code to return to the OS.
	Code ExitCode

	// Message is the human-readable error description.
	Message string

	// Err is the underlying error, if any.
	Err error
}

// Error satisfies the error interface. It returns the human-readable
// error message, optionally including the underlying error.
func (e *CLIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for use with errors.Is/errors.As.
// This follows Go's error wrapping convention introduced in Go 1.13.
func (e *CLIError) Unwrap() error {
	return e.Err
}

// NewCLIError creates a new CLIError with the given exit code and message.
func NewCLIError(code ExitCode, message string) *CLIError {
	return &CLIError{Code: code, Message: message}
}

// WrapCLIError creates a new CLIError that wraps an existing error.
func WrapCLIError(code ExitCode, message string, err error) *CLIError {
	return &CLIError{Code: code, Message: message, Err: err}
}
