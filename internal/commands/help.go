package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"tasker/internal/config"
	"tasker/internal/exitcode"
	"tasker/internal/service"
)

func init() {
	Register(&HelpCmd{})
}

// HelpCmd implements the help command.
type HelpCmd struct{}

func (c *HelpCmd) Name() string      { return "help" }
func (c *HelpCmd) Aliases() []string { return nil }
func (c *HelpCmd) Synopsis() string  { return "Print usage" }
func (c *HelpCmd) Usage() string     { return "tasker help" }
func (c *HelpCmd) Access() Access    { return AccessNone }

func (c *HelpCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *HelpCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	fmt.Fprint(out, helpText)
	return exitcode.Success
}

const helpText = `Usage:
  tasker                                             List your tasks
  tasker list [common flags] [--search <text>] [--status <status>]
  tasker search [common flags] [--status <status>] [--delay <duration>]
  tasker add [common flags] [--description <text>] [--status <status>] [--due <yyyy-mm-dd>] <title...>
  tasker create [common flags] [--description <text>] [--status <status>] [--due <yyyy-mm-dd>] <title...>
  tasker edit [common flags] [--title <text>] [--description <text>] [--status <status>] [--due <yyyy-mm-dd|none>] <id>
  tasker done [common flags] <id>
  tasker archive [common flags] <id>
  tasker rm [common flags] <id>
  tasker dashboard [common flags]
  tasker whoami [common flags]
  tasker login [common flags] [--password-stdin] <username>
  tasker logout [common flags]
  tasker register [common flags] [--email <email>] [--first-name <name>] [--last-name <name>] <username>
  tasker configure [--config <dir>] [--base-url <url>] [--store file|redis|memory] [--redis-addr <host:port>]
                   [--redis-password <pw>] [--redis-prefix <prefix>] [--timeout <duration>]
  tasker help
  tasker version [--verbose]

Statuses: PENDING, COMPLETED, ARCHIVED (list and search also accept ALL)

Common flags:
  --config <dir>   Override config directory
  --store <name>   Credential store for this run: file, redis or memory
  --quiet          Suppress informational output
  --debug          Print debug logs to stderr
`
