// Package model defines the domain types and value objects for the gwt CLI.
//
// This package contains pure data structures with no external dependencies:
// the source-control provider enum (SourceControl), the protected-branch
// set, exit codes (ExitCode), and a custom error type (CLIError) that
// carries an exit code for proper OS process exit handling.
package model
