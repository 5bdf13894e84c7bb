package store

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/replyguy/memegen/internal/analytics"
)

// PostgresStore is a PostgreSQL implementation of analytics.Store.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL-backed analytics store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (p *PostgresStore) SaveMemeGenerated(ctx context.Context, event *analytics.MemeGeneratedEvent) error {
	query := `
		INSERT INTO meme_events (
			meme_id, user_id, template_id, template_name, url, page_url,
			tone, source, generation_ms, created_at, client_ip, user_agent
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (meme_id) DO NOTHING
	`

	_, err := p.pool.Exec(ctx, query,
		event.MemeID,
		nullableString(event.UserID),
		nullableString(event.TemplateID),
		nullableString(event.TemplateName),
		event.URL,
		event.PageURL,
		nullableString(event.Tone),
		event.Source,
		event.GenerationMS,
		event.CreatedAt,
		nullableString(event.ClientIP),
		nullableString(event.UserAgent),
	)

	return err
}

func (p *PostgresStore) SaveTemplateUsed(ctx context.Context, event *analytics.TemplateUsedEvent) error {
	query := `
		INSERT INTO template_usage_events (
			event_id, user_id, template_id, template_name, score, used_at
		)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (event_id) DO NOTHING
	`

	_, err := p.pool.Exec(ctx, query,
		event.EventID,
		nullableString(event.UserID),
		event.TemplateID,
		event.TemplateName,
		event.Score,
		event.UsedAt,
	)

	return err
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}

	return &s
}
