package domain

import "context"

// Notifier forwards operator notifications. Implementations filter by event.
type Notifier interface {
	Notify(ctx context.Context, event, title, message string) error
}
