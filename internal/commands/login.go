package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"

	"tasker/internal/config"
	"tasker/internal/exitcode"
	"tasker/internal/service"
)

func init() {
	Register(&LoginCmd{})
}

// LoginCmd implements the login command.
type LoginCmd struct {
	input
	passwordStdin bool
}

// SetPasswordStdin reads the password without a prompt (for testing).
func (c *LoginCmd) SetPasswordStdin(v bool) {
	c.passwordStdin = v
}

func (c *LoginCmd) Name() string      { return "login" }
func (c *LoginCmd) Aliases() []string { return nil }
func (c *LoginCmd) Synopsis() string  { return "Sign in and store tokens" }
func (c *LoginCmd) Usage() string     { return "tasker login [--password-stdin] <username>" }
func (c *LoginCmd) Access() Access    { return AccessPublic }

func (c *LoginCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.BoolVar(&c.passwordStdin, "password-stdin", false, "")
}

func (c *LoginCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	if len(args) == 0 || strings.TrimSpace(args[0]) == "" {
		fmt.Fprintln(errOut, "error: username required")
		return exitcode.UserError
	}
	if len(args) > 1 {
		fmt.Fprintf(errOut, "error: unexpected argument: %s\n", args[1])
		return exitcode.UserError
	}
	username := strings.TrimSpace(args[0])

	var password string
	var err error
	if c.passwordStdin {
		password, err = promptLine(c.reader(), errOut, "")
	} else {
		password, err = c.readPassword(c.reader(), errOut, "Password: ")
	}
	if err != nil || password == "" {
		fmt.Fprintln(errOut, "error: password required")
		return exitcode.UserError
	}

	if err := svc.Login(ctx, username, password); err != nil {
		return reportError(errOut, err)
	}

	if !cfg.Quiet {
		fmt.Fprintln(out, "ok")
	}
	return exitcode.Success
}
