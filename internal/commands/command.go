// Package commands provides the command interface and implementations.
package commands

import (
	"context"
	"flag"
	"io"

	"tasker/internal/config"
	"tasker/internal/service"
)

// Access says what a command needs from the backend before it runs.
type Access int

const (
	// AccessNone commands run without a backend; svc is nil.
	AccessNone Access = iota

	// AccessPublic commands get a backend but no session restore.
	AccessPublic

	// AccessProtected commands run only once the restored session is
	// authenticated.
	AccessProtected
)

// String returns the access level name.
func (a Access) String() string {
	switch a {
	case AccessNone:
		return "none"
	case AccessPublic:
		return "public"
	case AccessProtected:
		return "protected"
	}
	return "unknown"
}

// Command defines the interface for CLI commands.
type Command interface {
	// Name returns the primary command name.
	Name() string

	// Aliases returns alternative names for the command.
	Aliases() []string

	// Synopsis returns a short description for help output.
	Synopsis() string

	// Usage returns the usage string for help output.
	Usage() string

	// Access returns what the command needs before Run.
	Access() Access

	// RegisterFlags registers command-specific flags.
	RegisterFlags(fs *flag.FlagSet)

	// Run executes the command.
	// cfg is always provided.
	// svc is nil for AccessNone commands.
	// args contains positional arguments after flag parsing.
	// Returns exit code.
	Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int
}
