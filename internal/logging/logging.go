// Package logging wires logrus for the pact-install CLI and adapts it to the
// installer's key-value Logger interface.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// ConsolePath selects stderr output instead of a log file.
const ConsolePath = "console"

// InitLog parses the level and configures the standard logrus logger.
func InitLog(logLevel string, logPath string) error {
	return Configure(log.StandardLogger(), logLevel, logPath)
}

// Configure sets level, formatter and output of l. An empty path or
// ConsolePath writes to stderr; any other path is a rotated log file.
func Configure(l *log.Logger, logLevel string, logPath string) error {
	level, err := log.ParseLevel(logLevel)
	if err != nil {
		return fmt.Errorf("parse log level %q: %w", logLevel, err)
	}

	var out io.Writer = os.Stderr
	if logPath != "" && logPath != ConsolePath {
		out = &lumberjack.Logger{
			// Log file absolute path, os agnostic
			Filename:   filepath.ToSlash(logPath),
			MaxSize:    5, // MB
			MaxBackups: 3,
			MaxAge:     30, // days
			Compress:   true,
		}
	}

	l.SetOutput(out)
	l.SetFormatter(&log.TextFormatter{
		FullTimestamp:    true,
		DisableTimestamp: out == os.Stderr,
	})
	l.SetLevel(level)
	return nil
}

// Logger adapts a logrus logger to the installer's Logger interface.
type Logger struct {
	entry *log.Entry
}

// NewLogger wraps l. A nil l uses the standard logger.
func NewLogger(l *log.Logger) *Logger {
	if l == nil {
		l = log.StandardLogger()
	}
	return &Logger{entry: log.NewEntry(l)}
}

// With returns a logger that adds the given key-value pairs to every entry.
func (l *Logger) With(keysAndValues ...interface{}) *Logger {
	return &Logger{entry: l.entry.WithFields(fields(keysAndValues))}
}

func (l *Logger) Debug(msg string, keysAndValues ...interface{}) {
	l.entry.WithFields(fields(keysAndValues)).Debug(msg)
}

func (l *Logger) Info(msg string, keysAndValues ...interface{}) {
	l.entry.WithFields(fields(keysAndValues)).Info(msg)
}

func (l *Logger) Warn(msg string, keysAndValues ...interface{}) {
	l.entry.WithFields(fields(keysAndValues)).Warn(msg)
}

// fields pairs up alternating keys and values. A trailing key without a
// value is kept under "extra".
func fields(keysAndValues []interface{}) log.Fields {
	f := make(log.Fields, len(keysAndValues)/2)
	for i := 0; i < len(keysAndValues); i += 2 {
		if i+1 == len(keysAndValues) {
			f["extra"] = keysAndValues[i]
			break
		}
		key, ok := keysAndValues[i].(string)
		if !ok {
			key = fmt.Sprint(keysAndValues[i])
		}
		f[key] = keysAndValues[i+1]
	}
	return f
}
