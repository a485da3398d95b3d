package logger

import (
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	formatter "github.com/antonfisher/nested-logrus-formatter"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"zonewatch/internal/config"
)

// Log file names, one per level group.
const (
	InfoFile    = "info.log"
	WarningFile = "warning.log"
	ErrorFile   = "error.log"
)

type Fields = logrus.Fields

// Logger provides leveled logging (info/warning/error) to stderr and to one
// rotating file per level group.
type Logger struct {
	log    *logrus.Logger
	logDir string
	files  *levelFileHook
}

// NewLogger creates a Logger and ensures the log directory exists.
// With APP_ENV=test only stderr is written.
func NewLogger(cfg *config.Config) (*Logger, error) {
	l := &Logger{
		log:    logrus.New(),
		logDir: cfg.LogDir,
	}

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	l.log.SetLevel(level)
	l.log.SetOutput(os.Stderr)
	l.log.SetReportCaller(true)
	l.log.SetFormatter(&formatter.Formatter{
		TimestampFormat: "2006-01-02 15:04:05",
		CallerFirst:     true,
		CustomCallerFormatter: func(f *runtime.Frame) string {
			s := strings.Split(f.Function, ".")
			return fmt.Sprintf(" [%s:%d][%s()]", path.Base(f.File), f.Line, s[len(s)-1])
		},
	})

	if cfg.AppEnv == "test" {
		return l, nil
	}

	if err := os.MkdirAll(cfg.LogDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	l.files = newLevelFileHook(cfg.LogDir)
	l.log.AddHook(l.files)
	return l, nil
}

// NewDiscard returns a Logger that drops everything.
func NewDiscard() *Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return &Logger{log: l}
}

// Debug writes a formatted debug-level log entry.
func (l *Logger) Debug(format string, v ...interface{}) {
	l.log.Debugf(format, v...)
}

// Info writes a formatted info-level log entry.
func (l *Logger) Info(format string, v ...interface{}) {
	l.log.Infof(format, v...)
}

// Warning writes a formatted warning-level log entry.
func (l *Logger) Warning(format string, v ...interface{}) {
	l.log.Warnf(format, v...)
}

// Error writes a formatted error-level log entry.
func (l *Logger) Error(format string, v ...interface{}) {
	l.log.Errorf(format, v...)
}

// WithFields starts a structured entry.
func (l *Logger) WithFields(fields Fields) *logrus.Entry {
	return l.log.WithFields(fields)
}

// ErrorWriter returns a writer that logs each line at error level.
// The caller closes it when done.
func (l *Logger) ErrorWriter() *io.PipeWriter {
	return l.log.WriterLevel(logrus.ErrorLevel)
}

// LogPath returns the path of a level file, or "" when file logging is off.
func (l *Logger) LogPath(fileName string) string {
	if l.files == nil {
		return ""
	}
	return filepath.Join(l.logDir, fileName)
}

// CleanLogs truncates the specified log file.
func (l *Logger) CleanLogs(fileName string) error {
	if l.files == nil {
		return nil
	}
	if err := l.files.truncate(fileName); err != nil {
		l.Error("Error clearing %s: %v", fileName, err)
		return err
	}
	l.Info("File %s has been cleared.", fileName)
	return nil
}

// Close flushes and closes the log files.
func (l *Logger) Close() error {
	if l.files == nil {
		return nil
	}
	return l.files.close()
}

// levelFileHook copies entries into the file that matches their level.
type levelFileHook struct {
	mu        sync.Mutex
	dir       string
	writers   map[string]*lumberjack.Logger
	formatter logrus.Formatter
}

func newLevelFileHook(dir string) *levelFileHook {
	h := &levelFileHook{
		dir:       dir,
		writers:   make(map[string]*lumberjack.Logger),
		formatter: &logrus.TextFormatter{DisableColors: true, FullTimestamp: true},
	}
	for _, name := range []string{InfoFile, WarningFile, ErrorFile} {
		h.writers[name] = &lumberjack.Logger{
			Filename:   filepath.Join(dir, name),
			LocalTime:  true,
			Compress:   true,
			MaxSize:    50,
			MaxAge:     14,
			MaxBackups: 3,
		}
	}
	return h
}

func (h *levelFileHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h *levelFileHook) Fire(entry *logrus.Entry) error {
	line, err := h.formatter.Format(entry)
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err = h.writers[fileForLevel(entry.Level)].Write(line)
	return err
}

func (h *levelFileHook) truncate(fileName string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	w, ok := h.writers[fileName]
	if !ok {
		return fmt.Errorf("unknown log file %q", fileName)
	}
	if err := w.Close(); err != nil {
		return err
	}
	err := os.Truncate(w.Filename, 0)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

func (h *levelFileHook) close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	var firstErr error
	for _, w := range h.writers {
		if err := w.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func fileForLevel(level logrus.Level) string {
	switch level {
	case logrus.WarnLevel:
		return WarningFile
	case logrus.ErrorLevel, logrus.FatalLevel, logrus.PanicLevel:
		return ErrorFile
	default:
		return InfoFile
	}
}
