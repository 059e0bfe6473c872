package notifications

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

const (
	slackHTTPTimeout = 10 * time.Second
	slackUsername    = "InferenceMAX Dashboard"
	// Slack truncates long attachment text; keep error details readable.
	maxDetailsLen = 1500
)

// SlackNotifier posts alerts to a Slack incoming webhook
type SlackNotifier struct {
	WebhookURL string
	Channel    string
	HTTPClient *http.Client
}

var _ Notifier = (*SlackNotifier)(nil)

// NewSlackNotifier creates a new Slack notifier
func NewSlackNotifier(webhookURL, channel string) *SlackNotifier {
	return &SlackNotifier{
		WebhookURL: webhookURL,
		Channel:    channel,
		HTTPClient: &http.Client{Timeout: slackHTTPTimeout},
	}
}

type slackMessage struct {
	Channel     string            `json:"channel,omitempty"`
	Username    string            `json:"username,omitempty"`
	IconEmoji   string            `json:"icon_emoji,omitempty"`
	Text        string            `json:"text,omitempty"`
	Attachments []slackAttachment `json:"attachments,omitempty"`
}

type slackAttachment struct {
	Color     string             `json:"color"`
	Title     string             `json:"title"`
	Text      string             `json:"text,omitempty"`
	Fields    []slackAttachField `json:"fields,omitempty"`
	Footer    string             `json:"footer,omitempty"`
	Timestamp int64              `json:"ts,omitempty"`
}

type slackAttachField struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short"`
}

// Send posts an alert to Slack
func (s *SlackNotifier) Send(alert Alert) error {
	if s.WebhookURL == "" {
		return fmt.Errorf("slack webhook URL not configured")
	}

	fields := []slackAttachField{
		{Title: "Severity", Value: string(alert.Severity), Short: true},
	}
	if alert.Workflow != "" {
		fields = append(fields, slackAttachField{Title: "Workflow", Value: alert.Workflow, Short: true})
	}
	if alert.Days > 0 {
		fields = append(fields, slackAttachField{Title: "Window", Value: strconv.Itoa(alert.Days) + " days", Short: true})
	}
	if alert.FetchID != "" {
		fields = append(fields, slackAttachField{Title: "Fetch ID", Value: alert.FetchID, Short: true})
	}

	text := alert.Message
	if alert.Details != "" {
		details := alert.Details
		if len(details) > maxDetailsLen {
			details = details[:maxDetailsLen] + "..."
		}
		text += "\n```" + details + "```"
	}

	msg := slackMessage{
		Channel:   s.Channel,
		Username:  slackUsername,
		IconEmoji: severityEmoji(alert.Severity),
		Text:      fmt.Sprintf("*%s alert*", alert.Severity),
		Attachments: []slackAttachment{
			{
				Color:     severityColor(alert.Severity),
				Title:     alert.Title,
				Text:      text,
				Fields:    fields,
				Footer:    slackUsername,
				Timestamp: alert.FiredAt.Unix(),
			},
		},
	}
	return s.post(msg)
}

// Test sends a test notification to verify configuration
func (s *SlackNotifier) Test() error {
	return s.Send(Alert{
		Title:    "Test notification",
		Message:  "Slack alerts for benchmark fetch failures are configured.",
		Severity: SeverityInfo,
		FiredAt:  time.Now(),
	})
}

func (s *SlackNotifier) post(msg slackMessage) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal slack message: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, s.WebhookURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create slack request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send slack notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("slack API returned status %d", resp.StatusCode)
	}
	return nil
}

func severityColor(severity AlertSeverity) string {
	switch severity {
	case SeverityCritical:
		return "danger"
	case SeverityWarning:
		return "warning"
	case SeverityInfo:
		return "good"
	default:
		return "#808080"
	}
}

func severityEmoji(severity AlertSeverity) string {
	switch severity {
	case SeverityCritical:
		return ":rotating_light:"
	case SeverityWarning:
		return ":warning:"
	case SeverityInfo:
		return ":information_source:"
	default:
		return ":bell:"
	}
}
