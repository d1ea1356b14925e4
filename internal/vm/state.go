package vm

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Connect outcomes stored in ConnectionRecord.LastOutcome.
const (
	OutcomeConnected   = "connected"
	OutcomeUnavailable = "port-unavailable"
	OutcomeVMExited    = "vm-exited"
	OutcomeFailed      = "failed"
)

// ConnectionRecord holds what sve remembers about one forwarded port.
type ConnectionRecord struct {
	// Profile is the VPN profile last connected through this port.
	Profile string `yaml:"profile"`

	// LastConnect is when a connect was last attempted.
	LastConnect time.Time `yaml:"last_connect,omitempty"`

	// LastOutcome is one of the Outcome* constants.
	LastOutcome string `yaml:"last_outcome,omitempty"`

	// ProbeRetries is the number of failed probes in the last attempt.
	ProbeRetries int `yaml:"probe_retries"`

	// ConnectCount is the number of successful connects.
	ConnectCount int `yaml:"connect_count"`
}

// PersistentState holds per-port records that survive restarts.
type PersistentState struct {
	Ports map[string]*ConnectionRecord `yaml:"ports"`
}

// StateFile manages persistent state storage.
type StateFile struct {
	path string
}

// NewStateFile creates a state file manager for path. The directory holding
// it must already exist.
func NewStateFile(path string) *StateFile {
	return &StateFile{path: path}
}

// Load reads the state from disk. A missing file yields an empty state.
func (s *StateFile) Load() (*PersistentState, error) {
	state := &PersistentState{Ports: map[string]*ConnectionRecord{}}

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return state, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read state file: %w", err)
	}

	if err := yaml.Unmarshal(data, state); err != nil {
		return nil, fmt.Errorf("parse state file: %w", err)
	}
	if state.Ports == nil {
		state.Ports = map[string]*ConnectionRecord{}
	}
	return state, nil
}

// Save writes the state to disk.
func (s *StateFile) Save(state *PersistentState) error {
	data, err := yaml.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	// Write atomically
	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("write state file: %w", err)
	}

	return os.Rename(tmpPath, s.path)
}

// Record stores the outcome of a connect attempt for attempt.Port.
func (s *StateFile) Record(profile string, attempt *ConnectionAttempt, outcome string, at time.Time) error {
	state, err := s.Load()
	if err != nil {
		return err
	}

	rec, ok := state.Ports[attempt.Port]
	if !ok {
		rec = &ConnectionRecord{}
		state.Ports[attempt.Port] = rec
	}
	rec.Profile = profile
	rec.LastConnect = at
	rec.LastOutcome = outcome
	rec.ProbeRetries = attempt.RetryCount
	if outcome == OutcomeConnected {
		rec.ConnectCount++
	}

	return s.Save(state)
}

// Path returns the state file path.
func (s *StateFile) Path() string {
	return s.path
}
