package commands

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// Swapped in tests to drive the terminal path without a tty.
var (
	stdinTerminal = func() (int, bool) {
		fd := int(os.Stdin.Fd())
		return fd, term.IsTerminal(fd)
	}
	readNoEcho = term.ReadPassword
)

// input carries the reader interactive commands read from.
type input struct {
	in io.Reader
}

// SetInput sets the reader used instead of stdin (for testing).
func (i *input) SetInput(r io.Reader) {
	i.in = r
}

func (i *input) reader() *bufio.Reader {
	if i.in == nil {
		return bufio.NewReader(os.Stdin)
	}
	return bufio.NewReader(i.in)
}

// readPassword prompts for a secret. On an interactive stdin the terminal
// echo is switched off; piped input and SetInput readers fall back to
// promptLine on r.
func (i *input) readPassword(r *bufio.Reader, w io.Writer, prompt string) (string, error) {
	if i.in == nil {
		if fd, ok := stdinTerminal(); ok {
			fmt.Fprint(w, prompt)
			b, err := readNoEcho(fd)
			fmt.Fprintln(w)
			if err != nil {
				return "", err
			}
			return strings.TrimRight(string(b), "\r\n"), nil
		}
	}
	return promptLine(r, w, prompt)
}

// promptLine writes prompt to w and reads one line from r without its line
// ending. A final line without a newline is accepted.
func promptLine(r *bufio.Reader, w io.Writer, prompt string) (string, error) {
	if prompt != "" {
		fmt.Fprint(w, prompt)
	}
	line, err := r.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
