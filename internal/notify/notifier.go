// Package notify delivers sync job alerts to operator chat channels.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// Event types raised by the sync job.
const (
	EventSyncFailed    = "sync.failed"
	EventSyncRecovered = "sync.recovered"
)

// Sender delivers one alert to a channel.
type Sender interface {
	Send(ctx context.Context, alert Alert) error
	Name() string
}

// Alert is one operator notification.
type Alert struct {
	Event   string
	Title   string
	Message string
	// Fields are rendered as "key: value" lines in order.
	Fields [][2]string
}

// Text renders the alert body without the title.
func (a Alert) Text() string {
	var b strings.Builder
	b.WriteString(a.Message)
	for _, f := range a.Fields {
		fmt.Fprintf(&b, "\n%s: %s", f[0], f[1])
	}
	return b.String()
}

// Notifier fans an alert out to every sender whose event filter admits it.
type Notifier struct {
	senders []Sender
	events  map[string]bool
	logger  *slog.Logger
}

// NewNotifier creates a Notifier. An empty events list admits every event.
func NewNotifier(senders []Sender, events []string, logger *slog.Logger) *Notifier {
	allowed := make(map[string]bool, len(events))
	for _, e := range events {
		if e = strings.TrimSpace(e); e != "" {
			allowed[e] = true
		}
	}
	return &Notifier{
		senders: senders,
		events:  allowed,
		logger:  logger.With(slog.String("component", "notifier")),
	}
}

// Notify delivers alert to every sender. A failing sender does not stop
// delivery to the rest; all failures are joined into the returned error.
func (n *Notifier) Notify(ctx context.Context, alert Alert) error {
	if n == nil || len(n.senders) == 0 {
		return nil
	}
	if len(n.events) > 0 && !n.events[alert.Event] {
		n.logger.DebugContext(ctx, "event filtered out", slog.String("event", alert.Event))
		return nil
	}

	var errs []error
	for _, s := range n.senders {
		if err := s.Send(ctx, alert); err != nil {
			n.logger.ErrorContext(ctx, "sender failed",
				slog.String("sender", s.Name()),
				slog.String("event", alert.Event),
				slog.String("error", err.Error()),
			)
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("notify: %w", errors.Join(errs...))
	}
	return nil
}
