// Package terminal wraps the operator's console: TTY detection and
// no-echo prompts for secrets.
package terminal

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// PinPrompt is shown when the token PIN is not configured.
const PinPrompt = ":: Enter secure PIN: "

// ErrNoInput is returned when the console closes before a line was read.
var ErrNoInput = errors.New("terminal: no input")

// Console reads operator input and writes prompts.
type Console struct {
	in  io.Reader
	out io.Writer
	fd  int
	tty bool
}

// Current returns the process console. Prompts go to stderr so stdout
// carries only results.
func Current() *Console {
	return &Console{
		in:  os.Stdin,
		out: os.Stderr,
		fd:  int(os.Stdin.Fd()),
		tty: IsTTY(),
	}
}

// New returns a Console over arbitrary streams. It never disables echo.
func New(in io.Reader, out io.Writer) *Console {
	return &Console{in: in, out: out, fd: -1}
}

// IsTTY returns true if stdin is a terminal.
func IsTTY() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// ReadSecret prints prompt and reads one line. On a terminal echo is
// disabled while typing.
func (c *Console) ReadSecret(prompt string) (string, error) {
	fmt.Fprint(c.out, prompt)

	if c.tty {
		secret, err := term.ReadPassword(c.fd)
		fmt.Fprintln(c.out)
		if err != nil {
			return "", fmt.Errorf("read secret: %w", err)
		}
		return string(secret), nil
	}

	line, err := bufio.NewReader(c.in).ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		if err == io.EOF {
			return "", ErrNoInput
		}
		return "", fmt.Errorf("read secret: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// PinPrompter returns a function asking for the token PIN on c.
func (c *Console) PinPrompter() func() (string, error) {
	return func() (string, error) {
		return c.ReadSecret(PinPrompt)
	}
}
