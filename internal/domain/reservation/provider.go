package reservation

import "context"

// Provider is the reservation API surface the acquisition loop works against.
type Provider interface {
	ListActive(ctx context.Context) ([]Record, error)
	Create(ctx context.Context, date Date, seat int, tpl Template) (Record, error)
	Cancel(ctx context.Context, id string) error
}

// Notifier delivers operator messages.
type Notifier interface {
	Notify(ctx context.Context, text string) error
	SendDocument(ctx context.Context, path string) error
}

// NopNotifier drops every message. It stands in when no messaging channel
// is configured.
type NopNotifier struct{}

func (NopNotifier) Notify(context.Context, string) error       { return nil }
func (NopNotifier) SendDocument(context.Context, string) error { return nil }
