package store

import (
	"context"

	"github.com/replyguy/memegen/internal/analytics"
	"go.uber.org/zap"
)

// Noop is a no-op implementation of analytics.Store that logs events. It is
// the default when no database is configured.
type Noop struct {
	logger *zap.Logger
}

// NewNoop creates a new no-op analytics store.
func NewNoop(logger *zap.Logger) *Noop {
	return &Noop{logger: logger}
}

func (n *Noop) SaveMemeGenerated(_ context.Context, event *analytics.MemeGeneratedEvent) error {
	n.logger.Info("meme generated event received",
		zap.String("memeId", event.MemeID),
		zap.String("templateName", event.TemplateName),
		zap.String("source", event.Source),
		zap.Time("createdAt", event.CreatedAt),
	)

	return nil
}

func (n *Noop) SaveTemplateUsed(_ context.Context, event *analytics.TemplateUsedEvent) error {
	n.logger.Info("template used event received",
		zap.String("templateId", event.TemplateID),
		zap.String("templateName", event.TemplateName),
		zap.Float64("score", event.Score),
		zap.Time("usedAt", event.UsedAt),
	)

	return nil
}
