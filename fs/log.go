package fs

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// LogLevel describes treefs's log levels, a subset of the syslog levels.
type LogLevel byte

// Log levels.
const (
	LogLevelError LogLevel = iota
	LogLevelInfo
	LogLevelDebug
)

// SetLogLevel sets the global logging cutoff.
func SetLogLevel(level LogLevel) {
	switch level {
	case LogLevelError:
		logrus.SetLevel(logrus.ErrorLevel)
	case LogLevelInfo:
		logrus.SetLevel(logrus.InfoLevel)
	case LogLevelDebug:
		logrus.SetLevel(logrus.DebugLevel)
	}
}

// logf prints text prefixed with the object it concerns
func logf(level logrus.Level, o interface{}, text string) {
	if o != nil {
		text = fmt.Sprintf("%v: %s", o, text)
	}
	logrus.StandardLogger().Log(level, text)
}

// Debugf writes debug level output for o
func Debugf(o interface{}, format string, args ...interface{}) {
	logf(logrus.DebugLevel, o, fmt.Sprintf(format, args...))
}

// Infof writes info level output for o
func Infof(o interface{}, format string, args ...interface{}) {
	logf(logrus.InfoLevel, o, fmt.Sprintf(format, args...))
}

// Errorf writes error level output for o
func Errorf(o interface{}, format string, args ...interface{}) {
	logf(logrus.ErrorLevel, o, fmt.Sprintf(format, args...))
}
