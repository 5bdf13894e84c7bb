package analytics

import "context"

// Store defines the interface for persisting analytics events.
type Store interface {
	SaveMemeGenerated(ctx context.Context, event *MemeGeneratedEvent) error
	SaveTemplateUsed(ctx context.Context, event *TemplateUsedEvent) error
}
