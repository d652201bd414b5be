// Package hooks executes user-configured lifecycle commands around
// worktree operations.
//
// Hook commands come from the project config (postAdd, preRemove,
// postRemove lists). Each command is a shell template that may
// reference variables as ${name}; substitution is plain textual
// replacement, not shell expansion. Commands run through `sh -c` with
// the process's stdio inherited so interactive tools and colored
// output work naturally.
//
// Hooks are best-effort side effects: a failing command prints a
// warning and the remaining hooks still run. A failed hook never rolls
// back the worktree operation that triggered it.
package hooks

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/mmr-tortoise/gwt/internal/config"
	"github.com/mmr-tortoise/gwt/internal/exec"
)

// Event identifies a lifecycle hook point.
type Event string

const (
	// EventPostAdd runs after a worktree was created, in the new worktree.
	EventPostAdd Event = "postAdd"

	// EventPreRemove runs before a worktree is removed, inside it.
	EventPreRemove Event = "preRemove"

	// EventPostRemove runs after a worktree was removed, from a
	// directory that still exists.
	EventPostRemove Event = "postRemove"
)

var (
	headerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	commandStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("4"))
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
)

// Runner executes the lifecycle hooks of one project.
type Runner struct {
	executor exec.CommandExecutor
	cfg      *config.ProjectConfig
}

// NewRunner creates a Runner for the given project config. A nil config
// is allowed and makes every Run a no-op, so callers don't need to
// special-case unconfigured projects.
func NewRunner(executor exec.CommandExecutor, cfg *config.ProjectConfig) *Runner {
	return &Runner{executor: executor, cfg: cfg}
}

// Run executes the commands configured for event in cwd, substituting
// vars into each template first. FORCE_COLOR=1 is set so tools that
// detect a pipe still emit color through the inherited terminal.
//
// Individual command failures (including non-zero exits) are printed as
// warnings and never returned; the remaining commands still run.
func (r *Runner) Run(ctx context.Context, event Event, cwd string, vars map[string]string) error {
	commands := r.commandsFor(event)
	if len(commands) == 0 {
		return nil
	}

	fmt.Println(headerStyle.Render(fmt.Sprintf("🪝 Running %s hooks...", event)))

	for _, template := range commands {
		command := Substitute(template, vars)
		fmt.Println("   " + commandStyle.Render("Executing: "+command))

		if err := r.executor.Stream(ctx, cwd, []string{"FORCE_COLOR=1"}, "sh", "-c", command); err != nil {
			fmt.Println("   " + warnStyle.Render(fmt.Sprintf("⚠️  Hook failed: %v", err)))
			continue
		}
		fmt.Println("   " + okStyle.Render("✓ Hook completed successfully"))
	}

	return nil
}

func (r *Runner) commandsFor(event Event) []string {
	switch event {
	case EventPostAdd:
		return r.cfg.PostAdd()
	case EventPreRemove:
		return r.cfg.PreRemove()
	case EventPostRemove:
		return r.cfg.PostRemove()
	default:
		return nil
	}
}

// Substitute replaces every ${name} token in template with the value
// from vars. Unknown tokens are left untouched so shell constructs like
// ${HOME} pass through to the shell itself.
func Substitute(template string, vars map[string]string) string {
	out := template
	for name, value := range vars {
		out = strings.ReplaceAll(out, "${"+name+"}", value)
	}
	return out
}
