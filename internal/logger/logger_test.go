package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"zonewatch/internal/config"
)

func newFileLogger(t *testing.T) *Logger {
	t.Helper()
	l, err := NewLogger(&config.Config{LogDir: filepath.Join(t.TempDir(), "logs"), LogLevel: "debug"})
	if err != nil {
		t.Fatalf("NewLogger failed: %v", err)
	}
	t.Cleanup(func() { l.Close() })
	return l
}

func readLog(t *testing.T, l *Logger, name string) string {
	t.Helper()
	data, err := os.ReadFile(l.LogPath(name))
	if err != nil && !os.IsNotExist(err) {
		t.Fatalf("read %s: %v", name, err)
	}
	return string(data)
}

func TestLogger_WritesLevelFiles(t *testing.T) {
	l := newFileLogger(t)

	l.Info("zone %s loaded", "Kitchen")
	l.Warning("queue %d%% full", 90)
	l.Error("insert failed: %v", "disk full")

	if got := readLog(t, l, InfoFile); !strings.Contains(got, "zone Kitchen loaded") {
		t.Errorf("info.log missing entry: %q", got)
	}
	if got := readLog(t, l, WarningFile); !strings.Contains(got, "queue 90% full") {
		t.Errorf("warning.log missing entry: %q", got)
	}
	errLog := readLog(t, l, ErrorFile)
	if !strings.Contains(errLog, "insert failed: disk full") {
		t.Errorf("error.log missing entry: %q", errLog)
	}
	if strings.Contains(errLog, "zone Kitchen loaded") {
		t.Error("info entry leaked into error.log")
	}
}

func TestLogger_CleanLogs(t *testing.T) {
	l := newFileLogger(t)

	l.Error("first failure")
	if err := l.CleanLogs(ErrorFile); err != nil {
		t.Fatalf("CleanLogs failed: %v", err)
	}
	if got := readLog(t, l, ErrorFile); got != "" {
		t.Errorf("expected empty error.log, got %q", got)
	}

	l.Error("second failure")
	if got := readLog(t, l, ErrorFile); !strings.Contains(got, "second failure") {
		t.Errorf("expected logging to resume after clean, got %q", got)
	}
}

func TestLogger_CleanLogsUnknownFile(t *testing.T) {
	l := newFileLogger(t)
	if err := l.CleanLogs("other.log"); err == nil {
		t.Error("expected error for unknown log file")
	}
}

func TestLogger_TestEnvSkipsFiles(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	l, err := NewLogger(&config.Config{LogDir: dir, AppEnv: "test"})
	if err != nil {
		t.Fatalf("NewLogger failed: %v", err)
	}
	l.Info("hello")

	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Errorf("expected no log directory in test env, stat err = %v", err)
	}
	if l.LogPath(InfoFile) != "" {
		t.Error("expected empty log path in test env")
	}
}

func TestLogger_DebugFollowsLevel(t *testing.T) {
	debug := newFileLogger(t)
	debug.Debug("frame %d skipped", 7)
	if got := readLog(t, debug, InfoFile); !strings.Contains(got, "frame 7 skipped") {
		t.Errorf("info.log missing debug entry: %q", got)
	}

	l, err := NewLogger(&config.Config{LogDir: filepath.Join(t.TempDir(), "logs"), LogLevel: "info"})
	if err != nil {
		t.Fatalf("NewLogger failed: %v", err)
	}
	t.Cleanup(func() { l.Close() })
	l.Debug("frame %d skipped", 8)
	if got := readLog(t, l, InfoFile); strings.Contains(got, "frame 8 skipped") {
		t.Errorf("debug entry written at info level: %q", got)
	}
}
