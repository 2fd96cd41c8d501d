package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"
	"time"

	"tasker/internal/config"
	"tasker/internal/exitcode"
	"tasker/internal/service"
	"tasker/internal/tasklist"
)

func init() {
	Register(&AddCmd{})
}

// AddCmd implements the add command.
type AddCmd struct {
	description string
	status      string
	due         string
}

// SetFields sets the optional task fields (for testing).
func (c *AddCmd) SetFields(description, status, due string) {
	c.description = description
	c.status = status
	c.due = due
}

func (c *AddCmd) Name() string      { return "add" }
func (c *AddCmd) Aliases() []string { return []string{"create"} }
func (c *AddCmd) Synopsis() string  { return "Create a task" }
func (c *AddCmd) Usage() string {
	return "tasker add [--description <text>] [--status <status>] [--due <yyyy-mm-dd>] <title...>"
}
func (c *AddCmd) Access() Access { return AccessProtected }

func (c *AddCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.description, "description", "", "")
	fs.StringVar(&c.description, "d", "", "")
	fs.StringVar(&c.status, "status", "", "")
	fs.StringVar(&c.due, "due", "", "")
}

func (c *AddCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	title := strings.TrimSpace(strings.Join(args, " "))
	if title == "" {
		fmt.Fprintln(errOut, "error: title required")
		return exitcode.UserError
	}

	status, err := service.ParseStatus(c.status)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.UserError
	}

	if err := validateDate(c.due); err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.UserError
	}

	board := tasklist.New(svc, tasklist.WithLogger(cfg.Logger(errOut)))
	task, err := board.Create(ctx, service.TaskInput{
		Title:       title,
		Description: c.description,
		Status:      status,
		DueDate:     c.due,
	})
	if err != nil {
		return reportError(errOut, err)
	}

	if !cfg.Quiet {
		fmt.Fprintf(out, "created %d\n", task.ID)
	}
	return exitcode.Success
}

// validateDate accepts "" or a yyyy-mm-dd calendar date.
func validateDate(s string) error {
	if s == "" {
		return nil
	}
	if _, err := time.Parse(service.DateLayout, s); err != nil {
		return fmt.Errorf("invalid due date: %s (want yyyy-mm-dd)", s)
	}
	return nil
}
