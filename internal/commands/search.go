package commands

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"tasker/internal/config"
	"tasker/internal/exitcode"
	"tasker/internal/output"
	"tasker/internal/service"
	"tasker/internal/tasklist"
)

func init() {
	Register(&SearchCmd{})
}

// SearchCmd implements the interactive search command. Every input line
// replaces the search term; the list is fetched once typing pauses.
type SearchCmd struct {
	input
	status string
	delay  time.Duration
}

// SetOptions sets the status filter and debounce delay (for testing).
func (c *SearchCmd) SetOptions(status string, delay time.Duration) {
	c.status = status
	c.delay = delay
}

func (c *SearchCmd) Name() string      { return "search" }
func (c *SearchCmd) Aliases() []string { return nil }
func (c *SearchCmd) Synopsis() string  { return "Search tasks interactively, one term per line" }
func (c *SearchCmd) Usage() string {
	return "tasker search [--status <status>] [--delay <duration>]"
}
func (c *SearchCmd) Access() Access { return AccessProtected }

func (c *SearchCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.status, "status", "", "")
	fs.DurationVar(&c.delay, "delay", tasklist.DefaultSearchDelay, "")
}

func (c *SearchCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	if len(args) > 0 {
		fmt.Fprintf(errOut, "error: unexpected argument: %s\n", args[0])
		return exitcode.UserError
	}
	status, err := service.ParseStatus(c.status)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.UserError
	}
	delay := c.delay
	if delay <= 0 {
		delay = tasklist.DefaultSearchDelay
	}

	var (
		mu   sync.Mutex
		code = exitcode.Success
	)
	var board *tasklist.Board
	board = tasklist.New(svc,
		tasklist.WithFilter(service.Filter{Status: status}),
		tasklist.WithSearchDelay(delay),
		tasklist.WithLogger(cfg.Logger(errOut)),
		tasklist.WithOnChange(func(tasks []service.Task, err error) {
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				code = reportError(errOut, err)
				return
			}
			fmt.Fprintf(out, "search: %s\n", board.Filter().Search)
			if len(tasks) == 0 {
				fmt.Fprintln(out, "no tasks found")
				return
			}
			output.FormatTasks(out, tasks)
		}))
	defer board.Close()

	if !cfg.Quiet {
		fmt.Fprintln(errOut, "type to search, end input to finish")
	}

	r := c.reader()
	for {
		line, err := promptLine(r, io.Discard, "")
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			fmt.Fprintf(errOut, "error: %v\n", err)
			return exitcode.UserError
		}
		board.SetSearch(ctx, strings.TrimSpace(line))
	}
	board.Flush()

	mu.Lock()
	defer mu.Unlock()
	return code
}
