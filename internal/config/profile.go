package config

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ExampleMarker marks placeholder profiles that can never be connected.
const ExampleMarker = "example"

// ErrInvalidProfile is returned for a profile value not of the form
// "<port>;<command>".
var ErrInvalidProfile = errors.New("config: invalid VPN profile")

// Profile is one named VPN connection.
type Profile struct {
	Name string

	// Port is the host port forwarded to the VM's SSH server. It also names
	// the working image and the negotiation script.
	Port string

	// Command starts the VPN client inside the VM.
	Command string
}

// ParseProfile splits value on its first ';' into port and command.
func ParseProfile(name, value string) (Profile, error) {
	port, command, ok := strings.Cut(value, ";")
	if !ok {
		return Profile{}, fmt.Errorf("%w %q: missing ';'", ErrInvalidProfile, name)
	}
	port = strings.TrimSpace(port)
	command = strings.TrimSpace(command)

	n, err := strconv.Atoi(port)
	if err != nil || n < 1 || n > 65535 {
		return Profile{}, fmt.Errorf("%w %q: port %q is not in 1-65535", ErrInvalidProfile, name, port)
	}
	if command == "" {
		return Profile{}, fmt.Errorf("%w %q: empty command", ErrInvalidProfile, name)
	}

	return Profile{Name: name, Port: port, Command: command}, nil
}

// IsExample reports whether name is a reserved placeholder profile.
func IsExample(name string) bool {
	return strings.Contains(strings.ToLower(name), ExampleMarker)
}

// ProfileNames returns the configured profile names in sorted order.
func (c *Config) ProfileNames() []string {
	names := make([]string, 0, len(c.VPN))
	for name := range c.VPN {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LookupProfile returns the raw value configured for name.
func (c *Config) LookupProfile(name string) (string, bool) {
	value, ok := c.VPN[strings.ToLower(name)]
	return value, ok
}
