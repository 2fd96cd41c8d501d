package commands

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"

	"tasker/internal/config"
	"tasker/internal/exitcode"
	"tasker/internal/service"
)

func init() {
	Register(&RegisterCmd{})
}

// RegisterCmd implements the register command.
type RegisterCmd struct {
	input
	email     string
	firstName string
	lastName  string
}

// SetProfile sets the optional account fields (for testing).
func (c *RegisterCmd) SetProfile(email, firstName, lastName string) {
	c.email = email
	c.firstName = firstName
	c.lastName = lastName
}

func (c *RegisterCmd) Name() string      { return "register" }
func (c *RegisterCmd) Aliases() []string { return []string{"signup"} }
func (c *RegisterCmd) Synopsis() string  { return "Create an account" }
func (c *RegisterCmd) Usage() string {
	return "tasker register [--email <email>] [--first-name <name>] [--last-name <name>] <username>"
}
func (c *RegisterCmd) Access() Access { return AccessPublic }

func (c *RegisterCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.email, "email", "", "")
	fs.StringVar(&c.firstName, "first-name", "", "")
	fs.StringVar(&c.lastName, "last-name", "", "")
}

func (c *RegisterCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	if len(args) == 0 || strings.TrimSpace(args[0]) == "" {
		fmt.Fprintln(errOut, "error: username required")
		return exitcode.UserError
	}
	if len(args) > 1 {
		fmt.Fprintf(errOut, "error: unexpected argument: %s\n", args[1])
		return exitcode.UserError
	}

	r := c.reader()
	password, err := c.readPassword(r, errOut, "Password: ")
	if err != nil || password == "" {
		fmt.Fprintln(errOut, "error: password required")
		return exitcode.UserError
	}
	confirm, err := c.readPassword(r, errOut, "Confirm password: ")
	if err != nil || confirm != password {
		fmt.Fprintln(errOut, "error: passwords do not match")
		return exitcode.UserError
	}

	err = svc.Register(ctx, service.Registration{
		Username:  strings.TrimSpace(args[0]),
		Email:     c.email,
		FirstName: c.firstName,
		LastName:  c.lastName,
		Password:  password,
	})
	if errors.Is(err, service.ErrInvalidInput) {
		fmt.Fprintf(errOut, "error: registration error: %v\n", err)
		return exitcode.UserError
	}
	if err != nil {
		return reportError(errOut, err)
	}

	if !cfg.Quiet {
		fmt.Fprintln(out, "registered (run: tasker login)")
	}
	return exitcode.Success
}
