// Package tools locates the external programs sve drives: the emulator, the
// SSH client, the expect interpreter and the OTP generator.
package tools

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
)

// Tool describes an external program sve needs on $PATH.
type Tool struct {
	Name     string            // Command looked up on $PATH
	Packages map[string]string // host OS -> package providing the command
}

// SSH is the OpenSSH client used by the negotiation script.
var SSH = Tool{
	Name: "ssh",
	Packages: map[string]string{
		"arch":   "openssh",
		"ubuntu": "openssh-client",
		"debian": "openssh-client",
		"fedora": "openssh-clients",
		"macos":  "openssh",
	},
}

// Expect is the terminal-automation interpreter that runs the negotiation script.
var Expect = Tool{
	Name: "expect",
	Packages: map[string]string{
		"arch":   "expect",
		"ubuntu": "expect",
		"debian": "expect",
		"fedora": "expect",
		"macos":  "expect",
	},
}

// Emulator returns the Tool for a QEMU system binary.
func Emulator(binary string) Tool {
	return Tool{
		Name: binary,
		Packages: map[string]string{
			"arch":   "qemu-full",
			"ubuntu": "qemu-system-x86",
			"debian": "qemu-system-x86",
			"fedora": "qemu-kvm",
			"macos":  "qemu",
		},
	}
}

// OTP returns the Tool for a token generator such as stoken.
func OTP(name string) Tool {
	t := Tool{Name: name}
	if name == "stoken" {
		t.Packages = map[string]string{
			"arch":   "stoken",
			"ubuntu": "stoken",
			"debian": "stoken",
			"fedora": "stoken-cli",
			"macos":  "stoken",
		}
	}
	return t
}

// ToolMissingError is returned when a required program is not on $PATH.
type ToolMissingError struct {
	Tool string
	Hint string // package to install, if known for this host
}

func (e *ToolMissingError) Error() string {
	msg := fmt.Sprintf("Looks like '%s' not installed or not in $PATH", e.Tool)
	if e.Hint != "" {
		msg += fmt.Sprintf(" (package: %s)", e.Hint)
	}
	return msg
}

// Finder resolves tools to absolute paths.
type Finder struct {
	// LookPath defaults to exec.LookPath.
	LookPath func(file string) (string, error)

	hostOS string
}

// NewFinder creates a Finder for the current host.
func NewFinder() *Finder {
	return &Finder{LookPath: exec.LookPath, hostOS: detectHostOS()}
}

// Find returns the full path of t or a *ToolMissingError.
func (f *Finder) Find(t Tool) (string, error) {
	lookPath := f.LookPath
	if lookPath == nil {
		lookPath = exec.LookPath
	}
	path, err := lookPath(t.Name)
	if err != nil || path == "" {
		return "", &ToolMissingError{Tool: t.Name, Hint: t.Packages[f.hostOS]}
	}
	return path, nil
}

// detectHostOS returns the host OS family used to pick package hints.
func detectHostOS() string {
	if runtime.GOOS == "darwin" {
		return "macos"
	}

	data, err := os.ReadFile("/etc/os-release")
	if err != nil {
		return runtime.GOOS
	}

	var idLike string
	for _, line := range strings.Split(string(data), "\n") {
		switch {
		case strings.HasPrefix(line, "ID="):
			id := strings.Trim(strings.TrimPrefix(line, "ID="), "\"")
			switch id {
			case "arch", "ubuntu", "debian", "fedora":
				return id
			}
		case strings.HasPrefix(line, "ID_LIKE="):
			idLike = strings.Trim(strings.TrimPrefix(line, "ID_LIKE="), "\"")
		}
	}

	// Derivatives report their parent in ID_LIKE
	switch {
	case strings.Contains(idLike, "arch"):
		return "arch"
	case strings.Contains(idLike, "ubuntu"), strings.Contains(idLike, "debian"):
		return "debian"
	case strings.Contains(idLike, "fedora"), strings.Contains(idLike, "rhel"):
		return "fedora"
	}
	return "linux"
}
