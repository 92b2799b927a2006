package cli

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// LogEnv selects the log level: DEBUG, INFO, WARN or ERROR
const LogEnv = "RPBDD_LOG"

// logOutput receives log records
var logOutput io.Writer = os.Stderr

// Logger is the global logger instance
var Logger *slog.Logger

// InitLogging initializes the logger with the level from LogEnv. Logs go to
// stderr so the run summary on stdout stays clean.
func InitLogging() {
	level := new(slog.LevelVar)
	level.Set(parseLevel(os.Getenv(LogEnv)))

	Logger = slog.New(slog.NewTextHandler(logOutput, &slog.HandlerOptions{
		Level: level,
	}))

	slog.SetDefault(Logger)
}

func parseLevel(s string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
