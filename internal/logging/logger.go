// Package logging builds the structured logger shared by the server, the
// CLI and the database layer.
package logging

import (
	"io"
	"os"

	"github.com/charmbracelet/log"
)

// New returns a timestamped logger writing to stderr at the given level.
// Unknown levels fall back to info.
func New(level string) *log.Logger {
	return NewWithWriter(os.Stderr, level)
}

func NewWithWriter(w io.Writer, level string) *log.Logger {
	logger := log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		Prefix:          "complybook",
	})
	lvl, err := log.ParseLevel(level)
	if err != nil {
		lvl = log.InfoLevel
	}
	logger.SetLevel(lvl)
	return logger
}

// Discard is used by tests that do not care about log output.
func Discard() *log.Logger {
	return NewWithWriter(io.Discard, "error")
}
