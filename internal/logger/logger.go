package logger

import (
	"log/slog"
	"os"
)

var base *slog.Logger

func Init() {
	base = slog.New(slog.NewJSONHandler(os.Stdout, nil))
	base.Info("logger initialized")
}

func get() *slog.Logger {
	if base == nil {
		base = slog.New(slog.NewJSONHandler(os.Stdout, nil))
	}
	return base
}

func args(fields map[string]any) []any {
	out := make([]any, 0, len(fields)*2)
	for k, v := range fields {
		out = append(out, k, v)
	}
	return out
}

func Info(msg string, fields map[string]any) {
	get().Info(msg, args(fields)...)
}

func Warn(msg string, fields map[string]any) {
	get().Warn(msg, args(fields)...)
}

func Error(msg string, fields map[string]any) {
	get().Error(msg, args(fields)...)
}

// Fatal logs at error level and exits. Init failures only.
func Fatal(msg string, fields map[string]any) {
	get().Error(msg, args(fields)...)
	os.Exit(1)
}
