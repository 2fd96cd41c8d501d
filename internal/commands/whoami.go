package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"time"

	"tasker/internal/config"
	"tasker/internal/exitcode"
	"tasker/internal/output"
	"tasker/internal/service"
)

func init() {
	Register(&WhoamiCmd{})
}

// WhoamiCmd implements the whoami command.
type WhoamiCmd struct {
	now func() time.Time
}

// SetClock sets the time source used to mark expired tokens (for testing).
func (c *WhoamiCmd) SetClock(now func() time.Time) {
	c.now = now
}

func (c *WhoamiCmd) Name() string      { return "whoami" }
func (c *WhoamiCmd) Aliases() []string { return nil }
func (c *WhoamiCmd) Synopsis() string  { return "Show the signed-in user" }
func (c *WhoamiCmd) Usage() string     { return "tasker whoami" }
func (c *WhoamiCmd) Access() Access    { return AccessProtected }

func (c *WhoamiCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *WhoamiCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	sess := svc.Bootstrap(ctx)
	if !sess.IsAuthenticated || sess.User == nil {
		fmt.Fprintln(errOut, "error: not logged in (run: tasker login)")
		return exitcode.AuthError
	}

	now := time.Now
	if c.now != nil {
		now = c.now
	}
	output.FormatUser(out, *sess.User, sess.ExpiresAt, now())
	return exitcode.Success
}
