package tornadotesting

import (
	"log/slog"
	"os"
	"testing"

	"github.com/malbeclabs/tornado/utils/pkg/logger"
)

// NewLogger returns a logger that writes through t.Log, so output is only
// shown for failing tests or with -v. DEBUG=1 enables info and DEBUG=2 debug;
// by default only errors are logged.
func NewLogger(t testing.TB) *slog.Logger {
	var level slog.Level
	switch os.Getenv("DEBUG") {
	case "2":
		level = slog.LevelDebug
	case "1":
		level = slog.LevelInfo
	default:
		level = slog.LevelError
	}
	return logger.NewWithOptions(testWriter{t}, logger.Options{Level: level, NoColor: true})
}

type testWriter struct {
	t testing.TB
}

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Helper()
	w.t.Log(string(p))
	return len(p), nil
}
