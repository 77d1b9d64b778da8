package usecase

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"newsdesk/internal/domain"
	"strings"
	"time"
	"unicode/utf8"
)

// origin отмечает, какой уровень политики разрешения дал результат.
type origin string

const (
	fromFreshCache origin = "fresh-cache"
	fromNetwork    origin = "network"
	fromStaleCache origin = "stale-cache"
)

// ContentUseCase отвечает на запросы лент и статей: сначала свежий кеш,
// затем сеть, затем устаревшая копия из кеша.
type ContentUseCase struct {
	fetcher   Fetcher
	parser    FeedParser
	extractor ArticleExtractor
	feeds     Cache[[]domain.Story]
	articles  Cache[string]
	archive   StoryArchiver
	log       *slog.Logger
}

// NewContentUseCase создает сценарий получения контента с внедренными зависимостями.
// archive может быть nil, тогда истории не архивируются.
func NewContentUseCase(
	fetcher Fetcher,
	parser FeedParser,
	extractor ArticleExtractor,
	feeds Cache[[]domain.Story],
	articles Cache[string],
	archive StoryArchiver,
	log *slog.Logger,
) *ContentUseCase {
	return &ContentUseCase{
		fetcher:   fetcher,
		parser:    parser,
		extractor: extractor,
		feeds:     feeds,
		articles:  articles,
		archive:   archive,
		log:       log,
	}
}

// FetchFeed возвращает не более domain.MaxStories историй ленты url.
// При offline сеть не используется, а отсутствие записи в кеше дает domain.ErrOffline.
// Результат, полученный из сети, передается в архив; ошибка архива только логируется.
func (uc *ContentUseCase) FetchFeed(ctx context.Context, url string, offline bool) ([]domain.Story, error) {
	start := time.Now()
	log := uc.log.With(
		slog.String("component", "feed-resolver"),
		slog.String("url", url),
		slog.Bool("offline", offline),
	)
	stories, from, err := resolve(ctx, log, uc.fetcher, uc.feeds, url, offline, uc.parser.Parse)
	if err != nil {
		log.Error("Feed unavailable", slog.Any("error", err))
		return nil, err
	}
	if from == fromNetwork {
		uc.archiveStories(ctx, log, url, stories)
	}
	log.Info("Feed resolved",
		slog.String("origin", string(from)),
		slog.Int("stories", len(stories)),
		slog.Duration("duration", time.Since(start)),
	)
	return stories, nil
}

// FetchArticle возвращает отформатированный текст статьи url
// по той же политике, что и FetchFeed.
func (uc *ContentUseCase) FetchArticle(ctx context.Context, url string, offline bool) (string, error) {
	start := time.Now()
	log := uc.log.With(
		slog.String("component", "article-resolver"),
		slog.String("url", url),
		slog.Bool("offline", offline),
	)
	decode := func(ctx context.Context, r io.Reader) (string, error) {
		extracted, err := uc.extractor.Extract(ctx, url, r)
		if err != nil {
			return "", err
		}
		return FormatArticle(extracted), nil
	}
	text, from, err := resolve(ctx, log, uc.fetcher, uc.articles, url, offline, decode)
	if err != nil {
		log.Error("Article unavailable", slog.Any("error", err))
		return "", err
	}
	log.Info("Article resolved",
		slog.String("origin", string(from)),
		slog.Duration("duration", time.Since(start)),
	)
	return text, nil
}

func (uc *ContentUseCase) archiveStories(ctx context.Context, log *slog.Logger, url string, stories []domain.Story) {
	if uc.archive == nil || len(stories) == 0 {
		return
	}
	saved, err := uc.archive.SaveStories(ctx, url, stories)
	if err != nil {
		log.Warn("Archiving stories failed",
			slog.String("stage", "archive"),
			slog.Any("error", err),
		)
		return
	}
	log.Debug("Stories archived", slog.String("stage", "archive"), slog.Int("saved", saved))
}

// FormatArticle выводит заголовок, строку из "=" той же длины в символах,
// пустую строку и тело статьи без краевых пробелов.
// Строки заголовка выводятся и при пустом заголовке.
func FormatArticle(a domain.Extracted) string {
	body := strings.TrimSpace(a.Body)
	title := strings.TrimSpace(a.Title)
	return fmt.Sprintf("%s\n%s\n\n%s", title, strings.Repeat("=", utf8.RuneCountInString(title)), body)
}

func resolve[T any](
	ctx context.Context,
	log *slog.Logger,
	fetcher Fetcher,
	c Cache[T],
	url string,
	offline bool,
	decode func(context.Context, io.Reader) (T, error),
) (T, origin, error) {
	var zero T

	fresh := c.GetFresh(url)
	if fresh.Found {
		log.Debug("Fresh cache hit", slog.Time("captured_at", fresh.CapturedAt))
		return fresh.Payload, fromFreshCache, nil
	}
	log.Debug("Fresh cache miss", slog.Any("reason", fresh.MissReason()))

	var networkErr error
	if offline {
		log.Debug("Offline mode, skipping network", slog.String("stage", "fetch"))
	} else {
		payload, err := fetchAndDecode(ctx, fetcher, url, decode)
		if err == nil {
			if !c.Put(url, payload) {
				log.Warn("Cache write failed, continuing without it", slog.String("stage", "cache"))
			}
			return payload, fromNetwork, nil
		}
		networkErr = err
		log.Warn("Network attempt failed", slog.String("stage", "fetch"), slog.Any("error", err))
	}

	stale := c.GetStale(url)
	if stale.Found {
		log.Warn("Serving stale cache entry", slog.Time("captured_at", stale.CapturedAt))
		return stale.Payload, fromStaleCache, nil
	}
	log.Debug("Stale cache miss", slog.Any("reason", stale.MissReason()))

	if offline {
		return zero, "", domain.ErrOffline
	}
	return zero, "", networkErr
}

func fetchAndDecode[T any](
	ctx context.Context,
	fetcher Fetcher,
	url string,
	decode func(context.Context, io.Reader) (T, error),
) (T, error) {
	var zero T
	body, err := fetcher.Fetch(ctx, url)
	if err != nil {
		return zero, err
	}
	defer body.Close()
	return decode(ctx, body)
}
