// Package logging configures the engine-wide loggers.
package logging

import (
	"os"

	"github.com/op/go-logging"
)

var (
	engineLog *logging.Logger
	testLog   *logging.Logger
)

const format = "%{time:15:04:05.000} %{level:-7s} %{shortpkg:-8s} %{message}"

func init() {
	backend := logging.NewLogBackend(os.Stderr, "", 0)
	formatted := logging.NewBackendFormatter(backend, logging.MustStringFormatter(format))
	leveled := logging.AddModuleLevel(formatted)
	leveled.SetLevel(logging.INFO, "")
	logging.SetBackend(leveled)
}

// GetLog returns the shared engine logger.
func GetLog() *logging.Logger {
	if engineLog == nil {
		engineLog = logging.MustGetLogger("timecat")
	}
	return engineLog
}

// GetTestLog returns a logger for use in tests. Kept separate so test
// output can be silenced without touching the engine logger.
func GetTestLog() *logging.Logger {
	if testLog == nil {
		testLog = logging.MustGetLogger("test")
	}
	return testLog
}

// SetLevel changes the log level for all engine modules.
func SetLevel(level logging.Level) {
	logging.SetLevel(level, "")
}
