package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"tiktok-crawler-go/internal/config"
)

func InitFromConfig() {
	Init(os.Stdout, config.AppConfig.LogLevel, config.AppConfig.LogFormat)
}

// Init installs the default slog logger. Every record also lands in the recent-events ring
// served by the operator API.
func Init(w io.Writer, levelName, formatName string) {
	level := parseLevel(levelName)
	format := strings.ToLower(strings.TrimSpace(formatName))
	if format == "" {
		format = "json"
	}

	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: level}
	switch format {
	case "text":
		handler = slog.NewTextHandler(w, opts)
	default:
		handler = slog.NewJSONHandler(w, opts)
	}
	slog.SetDefault(slog.New(NewRecordingHandler(handler)))
}

func Info(msg string, args ...any) {
	slog.Default().Info(msg, args...)
}

func Error(msg string, args ...any) {
	slog.Default().Error(msg, args...)
}

func Warn(msg string, args ...any) {
	slog.Default().Warn(msg, args...)
}

func Debug(msg string, args ...any) {
	slog.Default().Debug(msg, args...)
}

func parseLevel(v string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(v)) {
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
