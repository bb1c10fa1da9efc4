// Package notify defines the notification interface and implementations
// for alert delivery.
package notify

import (
	"context"
	"time"

	domain "github.com/fieldops/ticket-sentinel/pkg/types"
)

// AlertPayload is the data sent to a notification backend when an alert
// crosses the configured severity floor.
type AlertPayload struct {
	AlertType string    `json:"alert_type"`
	Severity  string    `json:"severity"`
	Message   string    `json:"message"`
	UserID    string    `json:"user_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// PayloadFor builds the wire payload for an alert.
func PayloadFor(a *domain.Alert) *AlertPayload {
	p := &AlertPayload{
		AlertType: string(a.Type),
		Severity:  string(a.Severity),
		Message:   a.Message,
		CreatedAt: a.CreatedAt,
	}
	if a.UserID != nil {
		p.UserID = *a.UserID
	}
	return p
}

// Notifier delivers alert notifications. Delivery failures never affect
// alert creation; callers log and move on.
type Notifier interface {
	SendAlert(ctx context.Context, alert *AlertPayload) error
}
