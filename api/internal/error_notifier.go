package internal

import (
	"github.com/sirupsen/logrus"
)

// Severity levels understood by NotifyError.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityError    = "error"
	SeverityCritical = "critical"
)

// NotifyError reports a failure as a structured log entry. The log level
// follows the severity.
func NotifyError(severity, component, message string, metadata map[string]interface{}) {
	fields := logrus.Fields{}
	for k, v := range metadata {
		fields[k] = v
	}
	fields["component"] = component
	fields["severity"] = severity

	entry := defaultLogger.WithFields(fields)
	switch severity {
	case SeverityInfo:
		entry.Info(message)
	case SeverityWarning:
		entry.Warn(message)
	default:
		entry.Error(message)
	}
}

// NotifyCriticalError sends a critical error notification
func NotifyCriticalError(component, message string, metadata map[string]interface{}) {
	NotifyError(SeverityCritical, component, message, metadata)
}

// NotifyWarning sends a warning notification
func NotifyWarning(component, message string, metadata map[string]interface{}) {
	NotifyError(SeverityWarning, component, message, metadata)
}
