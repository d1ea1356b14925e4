// Package launch hands a written negotiation script to the operator's
// terminal.
package launch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
)

// ErrUnknownLauncher is returned for an unrecognised launcher name.
var ErrUnknownLauncher = errors.New("launch: unknown launcher")

// Launcher names accepted in the configuration.
const (
	KindOpen  = "open"
	KindPrint = "print"
	KindExec  = "exec"
)

// Launcher starts or announces a negotiation script.
type Launcher interface {
	Name() string
	Launch(ctx context.Context, path string) error
}

// New returns the launcher for kind. An empty kind selects the platform
// default.
func New(kind string) (Launcher, error) {
	if kind == "" {
		kind = DefaultKind(runtime.GOOS)
	}
	switch kind {
	case KindOpen:
		return &OpenLauncher{}, nil
	case KindPrint:
		return &PrintLauncher{}, nil
	case KindExec:
		return &ExecLauncher{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownLauncher, kind)
	}
}

// DefaultKind returns the launcher used on goos when none is configured.
// macOS opens .command files in a new Terminal window; elsewhere the
// operator is told what to run.
func DefaultKind(goos string) string {
	if goos == "darwin" {
		return KindOpen
	}
	return KindPrint
}

// OpenLauncher passes the script to the desktop's open command.
type OpenLauncher struct {
	// Command defaults to "open".
	Command string
}

func (l *OpenLauncher) Name() string { return KindOpen }

func (l *OpenLauncher) Launch(ctx context.Context, path string) error {
	command := l.Command
	if command == "" {
		command = "open"
	}
	out, err := exec.CommandContext(ctx, command, path).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s %s: %w: %s", command, path, err, out)
	}
	return nil
}

// PrintLauncher tells the operator which script to run.
type PrintLauncher struct {
	// Out defaults to os.Stdout.
	Out io.Writer
}

func (l *PrintLauncher) Name() string { return KindPrint }

func (l *PrintLauncher) Launch(_ context.Context, path string) error {
	out := l.Out
	if out == nil {
		out = os.Stdout
	}
	_, err := fmt.Fprintf(out, "To connect exec %s in your favorite terminal emulator\n", path)
	return err
}

// ExecLauncher runs the script in the current terminal and returns when the
// session ends.
type ExecLauncher struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

func (l *ExecLauncher) Name() string { return KindExec }

func (l *ExecLauncher) Launch(ctx context.Context, path string) error {
	cmd := exec.CommandContext(ctx, path)
	cmd.Stdin = orReader(l.Stdin, os.Stdin)
	cmd.Stdout = orWriter(l.Stdout, os.Stdout)
	cmd.Stderr = orWriter(l.Stderr, os.Stderr)

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("run %s: %w", path, err)
	}
	return nil
}

func orReader(r, def io.Reader) io.Reader {
	if r == nil {
		return def
	}
	return r
}

func orWriter(w, def io.Writer) io.Writer {
	if w == nil {
		return def
	}
	return w
}
