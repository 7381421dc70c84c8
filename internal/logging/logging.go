// Package logging configures the leveled logger shared by the monitor.
package logging

import (
	"io"
	"os"

	"github.com/op/go-logging"
)

var Log = logging.MustGetLogger("ina219mon")

var format = logging.MustStringFormatter(
	"%{time:15:04:05.000} %{level:.4s} [%{shortfunc}] %{message}",
)

// The serial console has no wall clock and no caller frames to show.
var consoleFormat = logging.MustStringFormatter(
	"%{level:.4s} %{message}",
)

var leveled logging.LeveledBackend

func init() {
	Init(os.Stderr)
}

// Init sends log output to w at INFO level.
func Init(w io.Writer) {
	setBackend(w, format)
}

// InitConsole sets up logging for a serial terminal: CRLF line endings and a
// short format. It returns the CRLF writer so reports share the convention.
func InitConsole(w io.Writer) io.Writer {
	cw := NewCRLFWriter(w)
	setBackend(cw, consoleFormat)
	return cw
}

func setBackend(w io.Writer, f logging.Formatter) {
	backend := logging.NewLogBackend(w, "", 0)
	leveled = logging.AddModuleLevel(logging.NewBackendFormatter(backend, f))
	leveled.SetLevel(logging.INFO, "")
	logging.SetBackend(leveled)
}

// SetLevel parses a level name such as "DEBUG" or "warning".
func SetLevel(name string) error {
	level, err := logging.LogLevel(name)
	if err != nil {
		return err
	}
	leveled.SetLevel(level, "")
	return nil
}
