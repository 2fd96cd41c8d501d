package commands

import (
	"context"
	"errors"
	"fmt"
	"io"

	"tasker/internal/exitcode"
	"tasker/internal/service"
)

// reportError prints err the way every command does and returns the exit
// code for it.
func reportError(errOut io.Writer, err error) int {
	switch {
	case errors.Is(err, service.ErrSessionExpired):
		fmt.Fprintln(errOut, "error: session expired (run: tasker login)")
		return exitcode.AuthError
	case errors.Is(err, service.ErrInvalidCredentials):
		fmt.Fprintln(errOut, "error: invalid credentials")
		return exitcode.AuthError
	case errors.Is(err, service.ErrNotFound):
		fmt.Fprintln(errOut, "error: not found")
		return exitcode.UserError
	case errors.Is(err, service.ErrInvalidInput):
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.UserError
	case errors.Is(err, context.Canceled):
		fmt.Fprintln(errOut, "error: cancelled")
		return exitcode.BackendError
	}
	fmt.Fprintf(errOut, "error: backend error: %v\n", err)
	return exitcode.BackendError
}

// reportTaskError is reportError with the task id named on not-found.
func reportTaskError(errOut io.Writer, id int64, err error) int {
	if errors.Is(err, service.ErrNotFound) {
		fmt.Fprintf(errOut, "error: task not found: %d\n", id)
		return exitcode.UserError
	}
	return reportError(errOut, err)
}
