package cli

import (
	"fmt"
	"io"
	"sync"

	"github.com/apex/log"
)

// logHandler writes entries as ":: message" lines.
type logHandler struct {
	mu sync.Mutex
	w  io.Writer
}

func (h *logHandler) HandleLog(e *log.Entry) error {
	s := ":: " + e.Message
	switch e.Level {
	case log.WarnLevel:
		s = ":: warning: " + e.Message
	case log.ErrorLevel, log.FatalLevel:
		s = ":: error: " + e.Message
	}
	if len(e.Fields) > 0 {
		s += fmt.Sprintf(": %+v", e.Fields)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.w, s+"\n")
	return err
}
