package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"

	"tasker/internal/config"
	"tasker/internal/exitcode"
	"tasker/internal/output"
	"tasker/internal/service"
	"tasker/internal/tasklist"
)

// clearDue is the --due value that removes the due date.
const clearDue = "none"

func init() {
	Register(&EditCmd{})
}

// optString is a string flag that remembers whether it was given.
type optString struct {
	value string
	set   bool
}

func (o *optString) String() string { return o.value }

func (o *optString) Set(s string) error {
	o.value = s
	o.set = true
	return nil
}

func (o *optString) ptr() *string {
	if !o.set {
		return nil
	}
	v := o.value
	return &v
}

// EditCmd implements the edit command.
type EditCmd struct {
	title       optString
	description optString
	status      optString
	due         optString
}

// SetTitle sets the new title (for testing).
func (c *EditCmd) SetTitle(s string) { c.title.Set(s) }

// SetDescription sets the new description (for testing).
func (c *EditCmd) SetDescription(s string) { c.description.Set(s) }

// SetStatus sets the new status (for testing).
func (c *EditCmd) SetStatus(s string) { c.status.Set(s) }

// SetDue sets the new due date, or "none" to clear it (for testing).
func (c *EditCmd) SetDue(s string) { c.due.Set(s) }

func (c *EditCmd) Name() string      { return "edit" }
func (c *EditCmd) Aliases() []string { return []string{"update"} }
func (c *EditCmd) Synopsis() string  { return "Change fields of a task" }
func (c *EditCmd) Usage() string {
	return "tasker edit [--title <text>] [--description <text>] [--status <status>] [--due <yyyy-mm-dd|none>] <id>"
}
func (c *EditCmd) Access() Access { return AccessProtected }

func (c *EditCmd) RegisterFlags(fs *flag.FlagSet) {
	c.title, c.description, c.status, c.due = optString{}, optString{}, optString{}, optString{}
	fs.Var(&c.title, "title", "")
	fs.Var(&c.description, "description", "")
	fs.Var(&c.description, "d", "")
	fs.Var(&c.status, "status", "")
	fs.Var(&c.due, "due", "")
}

func (c *EditCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	id, err := ParseTaskID(args)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.UserError
	}

	patch, err := c.patch()
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.UserError
	}
	if patch.Empty() {
		fmt.Fprintln(errOut, "error: nothing to change")
		return exitcode.UserError
	}

	board := tasklist.New(svc, tasklist.WithLogger(cfg.Logger(errOut)))
	task, err := board.Update(ctx, id, patch)
	if err != nil {
		return reportTaskError(errOut, id, err)
	}

	if !cfg.Quiet {
		output.FormatTaskDetail(out, task)
	}
	return exitcode.Success
}

func (c *EditCmd) patch() (service.TaskPatch, error) {
	var p service.TaskPatch

	if c.title.set {
		if strings.TrimSpace(c.title.value) == "" {
			return p, fmt.Errorf("title cannot be empty")
		}
		p.Title = c.title.ptr()
	}
	p.Description = c.description.ptr()

	if c.status.set {
		status, err := service.ParseStatus(c.status.value)
		if err != nil {
			return p, err
		}
		if status == "" {
			return p, fmt.Errorf("invalid status: %s", c.status.value)
		}
		p.Status = &status
	}

	if c.due.set {
		if strings.EqualFold(c.due.value, clearDue) {
			p.ClearDueDate = true
		} else {
			if err := validateDate(c.due.value); err != nil {
				return p, err
			}
			p.DueDate = c.due.ptr()
		}
	}
	return p, nil
}
