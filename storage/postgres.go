package storage

import (
	"context"
	"fmt"
	"log/slog"
	"newsdesk/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const DefaultArchiveLimit = 20

type PostgresStoryArchive struct {
	pool         *pgxpool.Pool
	log          *slog.Logger
	defaultLimit int
}

func NewPostgresStoryArchive(pool *pgxpool.Pool, defaultLimit int, log *slog.Logger) *PostgresStoryArchive {
	if defaultLimit <= 0 {
		defaultLimit = DefaultArchiveLimit
	}
	log = log.With(slog.String("component", "archive"))
	log.Info("Initializing Postgres story archive")
	return &PostgresStoryArchive{
		pool:         pool,
		log:          log,
		defaultLimit: defaultLimit,
	}
}

func (db *PostgresStoryArchive) Close() {
	db.log.Info("Closing database connection pool")
	db.pool.Close()
}

// SaveStories inserts stories not seen before, keyed by link, and returns how
// many rows were new.
func (db *PostgresStoryArchive) SaveStories(ctx context.Context, feedURL string, stories []domain.Story) (saved int, err error) {
	if len(stories) == 0 {
		return 0, nil
	}
	const op = "storage.postgres.SaveStories"
	log := db.log.With(slog.String("op", op), slog.String("feed_url", feedURL))
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		log.Error("Failed to begin transaction", slog.Any("error", err))
		return 0, fmt.Errorf("%s: failed to begin transaction: %w", op, err)
	}
	defer func() {
		if err != nil {
			if rollbackErr := tx.Rollback(context.Background()); rollbackErr != nil {
				log.Error("Failed to rollback transaction", slog.Any("error", rollbackErr))
			}
		}
	}()
	batch := &pgx.Batch{}
	query := `
	INSERT INTO stories (feed_url, title, description, link, pub_date, category, image_url)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	ON CONFLICT (link) DO NOTHING;
	`
	for _, s := range stories {
		batch.Queue(query, feedURL, s.Title, s.Description, s.Link, s.PubDate, s.Category, s.ImageURL)
	}
	results := tx.SendBatch(ctx, batch)
	for range stories {
		tag, execErr := results.Exec()
		if execErr != nil {
			results.Close()
			err = execErr
			log.Error("Failed to execute batch", slog.Any("error", err))
			return 0, fmt.Errorf("%s: failed to execute batch: %w", op, err)
		}
		saved += int(tag.RowsAffected())
	}
	if err = results.Close(); err != nil {
		log.Error("Failed to close batch", slog.Any("error", err))
		return 0, fmt.Errorf("%s: failed to close batch: %w", op, err)
	}
	if err = tx.Commit(ctx); err != nil {
		log.Error("Failed to commit transaction", slog.Any("error", err))
		return 0, fmt.Errorf("%s: failed to commit transaction: %w", op, err)
	}
	log.Info("Stories archived", slog.Int("received", len(stories)), slog.Int("saved", saved))
	return saved, nil
}

// RecentStories returns the newest archived stories. n <= 0 uses the default limit.
func (db *PostgresStoryArchive) RecentStories(ctx context.Context, n int) ([]domain.ArchivedStory, error) {
	limit := n
	if limit <= 0 {
		limit = db.defaultLimit
	}
	const op = "storage.postgres.RecentStories"
	log := db.log.With(slog.String("op", op), slog.Int("limit", limit))
	query := `
	SELECT feed_url, title, description, link, pub_date, category, image_url, archived_at
	FROM stories
	ORDER BY archived_at DESC, id DESC
	LIMIT $1;
	`
	rows, err := db.pool.Query(ctx, query, limit)
	if err != nil {
		log.Error("Database query failed", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to execute query: %w", op, err)
	}
	defer rows.Close()
	stories, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.ArchivedStory, error) {
		var s domain.ArchivedStory
		err := row.Scan(
			&s.FeedURL,
			&s.Title,
			&s.Description,
			&s.Link,
			&s.PubDate,
			&s.Category,
			&s.ImageURL,
			&s.ArchivedAt,
		)
		return s, err
	})
	if err != nil {
		log.Error("Failed to collect rows", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to scan row: %w", op, err)
	}
	log.Debug("Retrieved archived stories", slog.Int("count", len(stories)))
	return stories, nil
}
