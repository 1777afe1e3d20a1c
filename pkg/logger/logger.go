package logger

import (
	"log/slog"
	"os"
)

var Log = slog.Default()

// Init installs the JSON handler at the given level ("debug", "info", "warn", "error").
func Init(level string) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: lvl,
	})
	Log = slog.New(handler)
	slog.SetDefault(Log)
}
