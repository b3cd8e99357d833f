// Package isolatelog is the process-wide logging facade used by every
// component of the runtime. It wraps a single logrus.Logger the way the
// rest of the stack expects a package-level Debugf/Infof/Warningf/Errorf
// surface rather than a logger instance threaded through every call site.
package isolatelog

import (
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

var logger = newLogger()

func newLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetLevel(levelFromEnv())
	if strings.EqualFold(os.Getenv("ISOLATE_LOG_FORMAT"), "json") {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return l
}

func levelFromEnv() logrus.Level {
	switch strings.ToLower(os.Getenv("ISOLATE_LOG_LEVEL")) {
	case "trace":
		return logrus.TraceLevel
	case "debug":
		return logrus.DebugLevel
	case "warn", "warning":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}

// SetVerbose raises the process-wide level to Debug, mirroring the CLI's
// --verbose flag.
func SetVerbose() { logger.SetLevel(logrus.DebugLevel) }

// Source identifies which part of a bridge session produced a log line.
type Source string

const (
	SourceBridge      Source = "bridge"
	SourceUserStdout  Source = "user_stdout"
	SourceUserStderr  Source = "user_stderr"
	SourceBackend     Source = "backend"
)

// WithSource returns an entry tagged with the given Source field, so that
// relayed child output and internal bridge diagnostics flow through the
// same sink while remaining visually distinguishable.
func WithSource(source Source) *logrus.Entry {
	return logger.WithField("source", string(source))
}

func Tracef(format string, args ...any)   { logger.Tracef(format, args...) }
func Debugf(format string, args ...any)   { logger.Debugf(format, args...) }
func Infof(format string, args ...any)    { logger.Infof(format, args...) }
func Warningf(format string, args ...any) { logger.Warnf(format, args...) }
func Errorf(format string, args ...any)   { logger.Errorf(format, args...) }
func Fatalf(format string, args ...any)   { logger.Fatalf(format, args...) }
