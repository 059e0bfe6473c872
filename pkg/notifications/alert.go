package notifications

import "time"

// AlertSeverity is how urgent an alert is
type AlertSeverity string

const (
	SeverityCritical AlertSeverity = "critical"
	SeverityWarning  AlertSeverity = "warning"
	SeverityInfo     AlertSeverity = "info"
)

// Alert describes a pipeline event worth telling a human about, typically a
// live benchmark fetch that failed.
type Alert struct {
	Title    string
	Message  string
	Severity AlertSeverity
	Workflow string
	Days     int
	FetchID  string
	Details  string
	FiredAt  time.Time
}

// Notifier delivers alerts to an external channel.
type Notifier interface {
	Send(alert Alert) error
}
