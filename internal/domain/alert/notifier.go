// internal/domain/alert/notifier.go
package alert

import "context"

// Notifier delivers operational alerts to administrators.
// This decouples the jobs from the delivery channel (Telegram, nothing).
type Notifier interface {
	Notify(ctx context.Context, text string) error
}

// Nop drops every alert. Used when no channel is configured.
type Nop struct{}

func (Nop) Notify(context.Context, string) error { return nil }
