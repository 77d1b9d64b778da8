package usecase

import (
	"context"
	"io"
	"newsdesk/internal/adapter/cache"
	"newsdesk/internal/domain"
)

// Fetcher выполняет сетевой GET-запрос. Возвращаемое тело нужно закрыть.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (io.ReadCloser, error)
}

// FeedParser преобразует документ ленты в список историй.
type FeedParser interface {
	Parse(ctx context.Context, reader io.Reader) ([]domain.Story, error)
}

// ArticleExtractor извлекает заголовок и текст из страницы статьи.
type ArticleExtractor interface {
	Extract(ctx context.Context, pageURL string, r io.Reader) (domain.Extracted, error)
}

// Cache - один домен кеша. Поиск не возвращает ошибок, только промах.
type Cache[T any] interface {
	GetFresh(key string) cache.Entry[T]
	GetStale(key string) cache.Entry[T]
	Put(key string, payload T) bool
}

// StoryArchiver сохраняет истории, полученные из сети, дольше времени жизни кеша.
type StoryArchiver interface {
	SaveStories(ctx context.Context, feedURL string, stories []domain.Story) (int, error)
}
