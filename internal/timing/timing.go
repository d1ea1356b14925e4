// Package timing measures the phases of a connect run.
package timing

import (
	"fmt"
	"os"
	"time"

	"github.com/javanstorm/sve/internal/model"
)

// EnvVar enables phase timing when set to a non-empty value.
const EnvVar = "SVE_TIMING"

// Enabled reports whether phase timing was requested through the environment.
func Enabled() bool {
	return os.Getenv(EnvVar) != ""
}

// Timer tracks durations of named phases.
type Timer struct {
	now    func() time.Time
	start  time.Time
	last   time.Time
	phases []Phase
}

// Phase represents a timed phase with name and duration.
type Phase struct {
	Name     string
	Duration time.Duration
}

// New creates a Timer starting from now.
func New() *Timer {
	return NewWithClock(time.Now)
}

// NewWithClock creates a Timer that reads time from now.
func NewWithClock(now func() time.Time) *Timer {
	start := now()
	return &Timer{now: now, start: start, last: start}
}

// Mark records a named phase ending now. Its duration is the time since the
// previous mark, or since start for the first one.
func (t *Timer) Mark(name string) {
	if t == nil {
		return
	}
	now := t.now()
	t.phases = append(t.phases, Phase{Name: name, Duration: now.Sub(t.last)})
	t.last = now
}

// Total returns the time elapsed since the timer was created.
func (t *Timer) Total() time.Duration {
	return t.now().Sub(t.start)
}

// Phases returns all recorded phases.
func (t *Timer) Phases() []Phase {
	return t.phases
}

// Report logs one line per phase and the total at info level.
func (t *Timer) Report(logger model.Logger) {
	if t == nil {
		return
	}
	for _, p := range t.phases {
		logger.Infof("timing: %-12s %s", p.Name, formatDuration(p.Duration))
	}
	logger.Infof("timing: %-12s %s", "total", formatDuration(t.Total()))
}

// formatDuration formats a duration for display.
func formatDuration(d time.Duration) string {
	if d < time.Millisecond {
		return fmt.Sprintf("%dµs", d.Microseconds())
	}
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return fmt.Sprintf("%.2fs", d.Seconds())
}
