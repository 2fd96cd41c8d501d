package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"golang.org/x/sync/errgroup"

	"tasker/internal/config"
	"tasker/internal/exitcode"
	"tasker/internal/output"
	"tasker/internal/service"
)

func init() {
	Register(&DashboardCmd{})
}

// DashboardCmd implements the dashboard command.
type DashboardCmd struct{}

func (c *DashboardCmd) Name() string      { return "dashboard" }
func (c *DashboardCmd) Aliases() []string { return []string{"stats"} }
func (c *DashboardCmd) Synopsis() string  { return "Show task counters and the quote of the day" }
func (c *DashboardCmd) Usage() string     { return "tasker dashboard" }
func (c *DashboardCmd) Access() Access    { return AccessProtected }

func (c *DashboardCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *DashboardCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	if len(args) > 0 {
		fmt.Fprintf(errOut, "error: unexpected argument: %s\n", args[0])
		return exitcode.UserError
	}

	var (
		stats service.DashboardStats
		quote service.Quote
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		stats, err = svc.Dashboard(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		quote, err = svc.Quote(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return reportError(errOut, err)
	}

	output.FormatDashboard(out, stats)
	if quote.Quote != "" {
		fmt.Fprintln(out)
		output.FormatQuote(out, quote)
	}
	return exitcode.Success
}
