package internal

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// LogLevel represents the severity of a log message
type LogLevel = logrus.Level

const (
	DEBUG = logrus.DebugLevel
	INFO  = logrus.InfoLevel
	WARN  = logrus.WarnLevel
	ERROR = logrus.ErrorLevel
	FATAL = logrus.FatalLevel
)

var defaultLogger = NewLogger(INFO, false, os.Stdout)

// InitLogger replaces the default logger
func InitLogger(level LogLevel, json bool) {
	defaultLogger = NewLogger(level, json, os.Stdout)
}

// NewLogger creates a logrus logger writing to writer
func NewLogger(level LogLevel, json bool, writer io.Writer) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(writer)
	l.SetLevel(level)
	if json {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, DisableColors: true})
	}
	return l
}

// SetDefaultLogger swaps the package logger, mostly for tests.
func SetDefaultLogger(l *logrus.Logger) {
	defaultLogger = l
}

// Logger returns the package logger
func Logger() *logrus.Logger {
	return defaultLogger
}

func LogInfo(format string, args ...interface{}) {
	defaultLogger.Infof(format, args...)
}

func LogError(format string, args ...interface{}) {
	defaultLogger.Errorf(format, args...)
}

// GetLogLevelFromString parses a log level from a string
func GetLogLevelFromString(levelStr string) LogLevel {
	switch strings.ToUpper(strings.TrimSpace(levelStr)) {
	case "DEBUG":
		return DEBUG
	case "INFO":
		return INFO
	case "WARN", "WARNING":
		return WARN
	case "ERROR":
		return ERROR
	case "FATAL":
		return FATAL
	default:
		return INFO // Default to INFO
	}
}
