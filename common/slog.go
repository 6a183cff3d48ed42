package common

import (
	"log/slog"
	"os"
)

// SlogResetLevel sets the default slog level and returns a function that
// resets it to the previous level. It pairs well with defer.
// Use like:
//
//	func Test123(t *testing.T) {
//	    defer common.SlogResetLevel(slog.LevelWarn + 1)()
func SlogResetLevel(level slog.Level) (reset func()) {
	oldLevel := slog.SetLogLoggerLevel(level)
	return func() {
		slog.SetLogLoggerLevel(oldLevel)
	}
}

// SetDefaultSlog installs a text handler on stderr at the given level.
// Stdout is reserved for routed track output.
func SetDefaultSlog(level slog.Level) {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}
