package storage

import (
	"context"
	"newsdesk/internal/domain"
)

// StoryArchive is the persistent store for stories seen on the network.
type StoryArchive interface {
	SaveStories(ctx context.Context, feedURL string, stories []domain.Story) (int, error)
	RecentStories(ctx context.Context, n int) ([]domain.ArchivedStory, error)
	Close()
}

var _ StoryArchive = (*PostgresStoryArchive)(nil)
