// Package script renders the expect script that performs the SSH login,
// starts the VPN client, answers the OTP challenge and then hands the
// terminal to the operator.
package script

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"text/template"

	"github.com/javanstorm/sve/internal/otp"
)

// ErrOtpUnavailable is returned when the OTP result is an error. The error
// text is never written into a script.
var ErrOtpUnavailable = errors.New("script: OTP unavailable")

var negotiation = template.Must(template.New("negotiation").Funcs(template.FuncMap{
	"tcl": quoteTcl,
}).Parse(`#!{{.Interpreter}}

spawn $env(SHELL)

send "ssh -p {{.Port}} -o StrictHostKeyChecking=no -o UserKnownHostsFile=/dev/null {{tcl .User}}@127.0.0.1\r"
expect -exact "password"
send "{{tcl .Password}}\r"
expect -exact "vpn-snx"
send "{{tcl .VPNCommand}}\r"
expect {
  -exact "password" {
    send "{{tcl .OTP.Code}}\r"

    expect {
      -exact "accept" {
        send "y"
      }
      -exact "vpn-snx" {
      }
    }

  }
  -exact "aborting..." {
    send "uptime\r"
  }
}
interact
`))

// Params are the inputs of a negotiation script.
type Params struct {
	Interpreter string // absolute path of expect
	Port        string
	User        string
	Password    string
	VPNCommand  string
	OTP         otp.Result
}

// Script is a rendered negotiation script and where it is stored.
type Script struct {
	Text string
	Path string
}

// Render returns the script text. It is a pure function of p.
func Render(p Params) (string, error) {
	if !p.OTP.IsCode() {
		return "", fmt.Errorf("%w: %s", ErrOtpUnavailable, p.OTP.Message())
	}
	if p.Interpreter == "" {
		return "", errors.New("script: interpreter path is required")
	}

	var buf bytes.Buffer
	if err := negotiation.Execute(&buf, p); err != nil {
		return "", fmt.Errorf("render script: %w", err)
	}
	return buf.String(), nil
}

// Path returns the script location for port under homeDir.
func Path(homeDir, port string) string {
	return filepath.Join(homeDir, fmt.Sprintf("snx_%s.%s", port, Extension(runtime.GOOS)))
}

// Extension returns the script file extension for goos. On macOS the
// .command extension makes Finder open the file in Terminal.
func Extension(goos string) string {
	if goos == "darwin" {
		return "command"
	}
	return "sh"
}

// Build renders the script for p and pairs it with its path under homeDir.
func Build(homeDir string, p Params) (*Script, error) {
	text, err := Render(p)
	if err != nil {
		return nil, err
	}
	return &Script{Text: text, Path: Path(homeDir, p.Port)}, nil
}

// Write stores the script and marks it executable. It does not run it.
// The directory holding Path must exist.
func (s *Script) Write() error {
	// Holds the guest password
	if err := os.WriteFile(s.Path, []byte(s.Text), 0700); err != nil {
		return fmt.Errorf("write script: %w", err)
	}
	// WriteFile keeps the mode of an existing file
	if err := os.Chmod(s.Path, 0700); err != nil {
		return fmt.Errorf("chmod script: %w", err)
	}
	return nil
}

var tclEscaper = strings.NewReplacer(
	`\`, `\\`,
	`"`, `\"`,
	`$`, `\$`,
	`[`, `\[`,
	`]`, `\]`,
)

// quoteTcl escapes s for use inside a Tcl double-quoted word.
func quoteTcl(s string) string {
	return tclEscaper.Replace(s)
}
