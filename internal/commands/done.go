package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"tasker/internal/config"
	"tasker/internal/exitcode"
	"tasker/internal/service"
	"tasker/internal/tasklist"
)

func init() {
	Register(&DoneCmd{})
	Register(&ArchiveCmd{})
}

// DoneCmd implements the done command.
type DoneCmd struct{}

func (c *DoneCmd) Name() string      { return "done" }
func (c *DoneCmd) Aliases() []string { return []string{"complete"} }
func (c *DoneCmd) Synopsis() string  { return "Mark a task completed" }
func (c *DoneCmd) Usage() string     { return "tasker done <id>" }
func (c *DoneCmd) Access() Access    { return AccessProtected }

func (c *DoneCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *DoneCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	return runSetStatus(ctx, cfg, svc, service.StatusCompleted, args, out, errOut)
}

// ArchiveCmd implements the archive command.
type ArchiveCmd struct{}

func (c *ArchiveCmd) Name() string      { return "archive" }
func (c *ArchiveCmd) Aliases() []string { return nil }
func (c *ArchiveCmd) Synopsis() string  { return "Archive a task" }
func (c *ArchiveCmd) Usage() string     { return "tasker archive <id>" }
func (c *ArchiveCmd) Access() Access    { return AccessProtected }

func (c *ArchiveCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *ArchiveCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	return runSetStatus(ctx, cfg, svc, service.StatusArchived, args, out, errOut)
}

// runSetStatus is the shared implementation for done and archive.
func runSetStatus(ctx context.Context, cfg *config.Config, svc service.Service, status service.TaskStatus, args []string, out, errOut io.Writer) int {
	id, err := ParseTaskID(args)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.UserError
	}

	board := tasklist.New(svc, tasklist.WithLogger(cfg.Logger(errOut)))
	if _, err := board.SetTaskStatus(ctx, id, status); err != nil {
		return reportTaskError(errOut, id, err)
	}

	if !cfg.Quiet {
		fmt.Fprintln(out, "ok")
	}
	return exitcode.Success
}
