package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/CreasolTech/DomBusGateway/internal/infrastructure/config"
)

// Logger wraps slog.Logger with DomBusGateway-specific functionality.
//
// It provides structured logging with default fields, level-based filtering,
// and a debug-channel bitmask matching spec.md §7 (ERR/WARN/INFO/DEBUG,
// DUMPRX/DUMPTX/DUMPDCMD, MQTTRX/MQTTTX, TELNET) so a single process-wide
// debug mask controls which channels actually emit.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
type Logger struct {
	*slog.Logger
	debug int
}

// New creates a new Logger with the specified configuration.
//
// Parameters:
//   - cfg: Logging configuration from config.yaml
//   - debugMask: the combinable bitmask of channels to emit (config.Log*)
//   - version: Application version for default field
func New(cfg config.LoggingConfig, debugMask int, version string) *Logger {
	var output io.Writer
	switch strings.ToLower(cfg.Output) {
	case "stderr":
		output = os.Stderr
	default:
		output = os.Stdout
	}

	level := parseLevel(cfg.Level)

	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: level}

	switch strings.ToLower(cfg.Format) {
	case "text":
		handler = slog.NewTextHandler(output, opts)
	default:
		handler = slog.NewJSONHandler(output, opts)
	}

	handler = handler.WithAttrs([]slog.Attr{
		slog.String("service", "dombusgateway"),
		slog.String("version", version),
	})

	return &Logger{
		Logger: slog.New(handler),
		debug:  debugMask,
	}
}

// parseLevel converts a string log level to slog.Level.
//
// Supported levels: debug, info, warn, error
// Defaults to info if unrecognised.
func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// With returns a new Logger with additional default attributes.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{
		Logger: l.Logger.With(args...),
		debug:  l.debug,
	}
}

// Dump logs msg at debug level only if channel is set in the configured
// debug bitmask. Used for the DUMPRX/DUMPTX/DUMPDCMD/MQTTRX/MQTTTX/TELNET
// channels, which are too noisy to always emit.
func (l *Logger) Dump(channel int, msg string, args ...any) {
	if l.debug&channel == 0 {
		return
	}
	l.Logger.Debug(msg, args...)
}

// Default creates a default logger for use before configuration is loaded.
func Default() *Logger {
	return New(config.LoggingConfig{
		Level:  "info",
		Format: "json",
		Output: "stdout",
	}, config.LogErr|config.LogWarn|config.LogInfo, "dev")
}
