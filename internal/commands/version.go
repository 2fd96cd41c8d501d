package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"runtime"

	"tasker/internal/config"
	"tasker/internal/exitcode"
	"tasker/internal/service"
)

// Version is the application version. Set at build time with
// -ldflags "-X tasker/internal/commands.Version=...".
var Version = "0.1.0"

func init() {
	Register(&VersionCmd{})
}

// VersionCmd implements the version command.
type VersionCmd struct {
	verbose bool
}

// SetVerbose also prints the runtime and effective settings (for testing).
func (c *VersionCmd) SetVerbose(v bool) { c.verbose = v }

func (c *VersionCmd) Name() string      { return "version" }
func (c *VersionCmd) Aliases() []string { return nil }
func (c *VersionCmd) Synopsis() string  { return "Print version" }
func (c *VersionCmd) Usage() string     { return "tasker version [--verbose]" }
func (c *VersionCmd) Access() Access    { return AccessNone }

func (c *VersionCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.BoolVar(&c.verbose, "verbose", false, "")
}

func (c *VersionCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	fmt.Fprintf(out, "tasker %s\n", Version)
	if c.verbose {
		fmt.Fprintf(out, "go:    %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
		fmt.Fprintf(out, "api:   %s\n", cfg.APIBaseURL)
		fmt.Fprintf(out, "store: %s\n", cfg.Store)
	}
	return exitcode.Success
}
