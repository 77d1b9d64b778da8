package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"newsdesk/internal/adapter/cache"
	"newsdesk/internal/adapter/fetcher"
	"newsdesk/internal/adapter/parser"
	"newsdesk/internal/domain"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testFeedURL    = "https://feeds.example.com/news/rss.xml"
	testArticleURL = "https://www.example.com/news/article-1"
)

type fakeFetcher struct {
	bodies map[string]string
	err    error
	calls  int
}

func (f *fakeFetcher) Fetch(ctx context.Context, url string) (io.ReadCloser, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	body, ok := f.bodies[url]
	if !ok {
		return nil, &domain.NetworkError{URL: url, StatusCode: 404, Err: errors.New("not found")}
	}
	return io.NopCloser(strings.NewReader(body)), nil
}

type fakeExtractor struct {
	result domain.Extracted
	err    error
}

func (f *fakeExtractor) Extract(ctx context.Context, pageURL string, r io.Reader) (domain.Extracted, error) {
	if _, err := io.ReadAll(r); err != nil {
		return domain.Extracted{}, err
	}
	return f.result, f.err
}

type fakeArchive struct {
	saved [][]domain.Story
	err   error
}

func (f *fakeArchive) SaveStories(ctx context.Context, feedURL string, stories []domain.Story) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.saved = append(f.saved, stories)
	return len(stories), nil
}

type failingCache[T any] struct{}

func (failingCache[T]) GetFresh(string) cache.Entry[T] { return cache.Entry[T]{} }
func (failingCache[T]) GetStale(string) cache.Entry[T] { return cache.Entry[T]{} }
func (failingCache[T]) Put(string, T) bool             { return false }

type harness struct {
	uc       *ContentUseCase
	fetcher  *fakeFetcher
	archive  *fakeArchive
	feeds    *cache.Bucket[[]domain.Story]
	articles *cache.Bucket[string]
	now      *time.Time
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	now := time.Date(2024, 6, 10, 8, 0, 0, 0, time.UTC)
	h := &harness{
		fetcher: &fakeFetcher{bodies: map[string]string{}},
		archive: &fakeArchive{},
		now:     &now,
	}
	store, err := cache.New(filepath.Join(t.TempDir(), "cache"), func() time.Time { return *h.now }, log)
	require.NoError(t, err)
	h.feeds = cache.NewBucket[[]domain.Story](store, cache.DomainFeed, cache.FeedTTL)
	h.articles = cache.NewBucket[string](store, cache.DomainArticle, cache.ArticleTTL)
	h.uc = NewContentUseCase(
		h.fetcher,
		parser.NewXMLParser(log),
		&fakeExtractor{result: domain.Extracted{Title: "Headline", Body: "  Body text.  "}},
		h.feeds,
		h.articles,
		h.archive,
		log,
	)
	return h
}

func (h *harness) advance(d time.Duration) { *h.now = h.now.Add(d) }

func feedXML(n int) string {
	var b strings.Builder
	b.WriteString(`<rss version="2.0"><channel><title>Test</title>`)
	for i := 1; i <= n; i++ {
		fmt.Fprintf(&b, "<item><title>Story %d</title><link>https://www.example.com/%d</link></item>", i, i)
	}
	b.WriteString(`</channel></rss>`)
	return b.String()
}

func cachedStories() []domain.Story {
	return []domain.Story{
		{Title: "Cached 1", Link: "https://www.example.com/c1", Category: domain.DefaultCategory},
		{Title: "Cached 2", Link: "https://www.example.com/c2", Category: "World"},
	}
}

func TestFetchFeed_EmptyCacheNetworkSuccess(t *testing.T) {
	h := newHarness(t)
	h.fetcher.bodies[testFeedURL] = feedXML(5)

	stories, err := h.uc.FetchFeed(context.Background(), testFeedURL, false)

	require.NoError(t, err)
	assert.Len(t, stories, 5)
	assert.Equal(t, 1, h.fetcher.calls)
	fresh := h.feeds.GetFresh(testFeedURL)
	require.True(t, fresh.Found)
	assert.Equal(t, stories, fresh.Payload)
	require.Len(t, h.archive.saved, 1)
	assert.Equal(t, stories, h.archive.saved[0])
}

func TestFetchFeed_FreshCacheSkipsNetwork(t *testing.T) {
	h := newHarness(t)
	h.fetcher.bodies[testFeedURL] = feedXML(5)
	require.True(t, h.feeds.Put(testFeedURL, cachedStories()))

	stories, err := h.uc.FetchFeed(context.Background(), testFeedURL, false)

	require.NoError(t, err)
	assert.Equal(t, cachedStories(), stories)
	assert.Zero(t, h.fetcher.calls)
	assert.Empty(t, h.archive.saved)
}

func TestFetchFeed_StaleCacheWhenNetworkDown(t *testing.T) {
	h := newHarness(t)
	require.True(t, h.feeds.Put(testFeedURL, cachedStories()))
	h.advance(cache.FeedTTL + time.Minute)
	h.fetcher.err = &domain.NetworkError{URL: testFeedURL, Err: errors.New("connection refused")}

	stories, err := h.uc.FetchFeed(context.Background(), testFeedURL, false)

	require.NoError(t, err)
	assert.Equal(t, cachedStories(), stories)
	assert.Equal(t, 1, h.fetcher.calls)
}

func TestFetchFeed_NoCacheNetworkDown(t *testing.T) {
	h := newHarness(t)
	h.fetcher.err = &domain.NetworkError{URL: testFeedURL, Err: errors.New("connection refused")}

	stories, err := h.uc.FetchFeed(context.Background(), testFeedURL, false)

	assert.Nil(t, stories)
	var netErr *domain.NetworkError
	require.True(t, errors.As(err, &netErr))
	assert.True(t, domain.IsRetryable(err))
}

func TestFetchFeed_OfflineServesStaleWithoutNetwork(t *testing.T) {
	h := newHarness(t)
	h.fetcher.bodies[testFeedURL] = feedXML(5)
	require.True(t, h.feeds.Put(testFeedURL, cachedStories()))
	h.advance(24 * time.Hour)

	stories, err := h.uc.FetchFeed(context.Background(), testFeedURL, true)

	require.NoError(t, err)
	assert.Equal(t, cachedStories(), stories)
	assert.Zero(t, h.fetcher.calls)
}

func TestFetchFeed_OfflineWithoutCache(t *testing.T) {
	h := newHarness(t)

	_, err := h.uc.FetchFeed(context.Background(), testFeedURL, true)

	assert.ErrorIs(t, err, domain.ErrOffline)
	assert.False(t, domain.IsRetryable(err))
	assert.Zero(t, h.fetcher.calls)
}

func TestFetchFeed_ParseErrorFallsBackToStale(t *testing.T) {
	h := newHarness(t)
	require.True(t, h.feeds.Put(testFeedURL, cachedStories()))
	h.advance(cache.FeedTTL + time.Second)
	h.fetcher.bodies[testFeedURL] = `<rss><channel><item><title>A</title></item><</channel></rss>`

	stories, err := h.uc.FetchFeed(context.Background(), testFeedURL, false)

	require.NoError(t, err)
	assert.Equal(t, cachedStories(), stories)
}

func TestFetchFeed_ParseErrorWithoutCache(t *testing.T) {
	h := newHarness(t)
	h.fetcher.bodies[testFeedURL] = `<rss><channel><item><title>A</title></item><</channel></rss>`

	_, err := h.uc.FetchFeed(context.Background(), testFeedURL, false)

	var parseErr *domain.ParseError
	assert.True(t, errors.As(err, &parseErr))
	assert.False(t, domain.IsRetryable(err))
}

func TestFetchFeed_Idempotent(t *testing.T) {
	h := newHarness(t)
	h.fetcher.bodies[testFeedURL] = feedXML(3)

	first, err := h.uc.FetchFeed(context.Background(), testFeedURL, false)
	require.NoError(t, err)
	second, err := h.uc.FetchFeed(context.Background(), testFeedURL, false)
	require.NoError(t, err)
	third, err := h.uc.FetchFeed(context.Background(), testFeedURL, false)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, second, third)
	assert.Equal(t, 1, h.fetcher.calls)
}

func TestFetchFeed_RefetchesAfterTTL(t *testing.T) {
	h := newHarness(t)
	h.fetcher.bodies[testFeedURL] = feedXML(3)
	_, err := h.uc.FetchFeed(context.Background(), testFeedURL, false)
	require.NoError(t, err)

	h.advance(cache.FeedTTL + time.Second)
	h.fetcher.bodies[testFeedURL] = feedXML(4)
	stories, err := h.uc.FetchFeed(context.Background(), testFeedURL, false)

	require.NoError(t, err)
	assert.Len(t, stories, 4)
	assert.Equal(t, 2, h.fetcher.calls)
}

func TestFetchFeed_CacheWriteFailureIgnored(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	fetcher := &fakeFetcher{bodies: map[string]string{testFeedURL: feedXML(2)}}
	uc := NewContentUseCase(fetcher, parser.NewXMLParser(log), &fakeExtractor{},
		failingCache[[]domain.Story]{}, failingCache[string]{}, nil, log)

	stories, err := uc.FetchFeed(context.Background(), testFeedURL, false)

	require.NoError(t, err)
	assert.Len(t, stories, 2)
}

func TestFetchFeed_ArchiveFailureIgnored(t *testing.T) {
	h := newHarness(t)
	h.fetcher.bodies[testFeedURL] = feedXML(2)
	h.archive.err = errors.New("database down")

	stories, err := h.uc.FetchFeed(context.Background(), testFeedURL, false)

	require.NoError(t, err)
	assert.Len(t, stories, 2)
}

func TestFetchArticle_NetworkThenFreshCache(t *testing.T) {
	h := newHarness(t)
	h.fetcher.bodies[testArticleURL] = "<html><body><p>page</p></body></html>"

	text, err := h.uc.FetchArticle(context.Background(), testArticleURL, false)
	require.NoError(t, err)
	again, err := h.uc.FetchArticle(context.Background(), testArticleURL, false)
	require.NoError(t, err)

	assert.Equal(t, "Headline\n========\n\nBody text.", text)
	assert.Equal(t, text, again)
	assert.Equal(t, 1, h.fetcher.calls)
	assert.True(t, h.articles.GetFresh(testArticleURL).Found)
	assert.False(t, h.feeds.GetStale(testArticleURL).Found)
}

func TestFetchArticle_ExtractionErrorWithoutCache(t *testing.T) {
	h := newHarness(t)
	h.fetcher.bodies[testArticleURL] = "<html></html>"
	h.uc.extractor = &fakeExtractor{err: &domain.ExtractionError{URL: testArticleURL, Err: errors.New("no content")}}

	_, err := h.uc.FetchArticle(context.Background(), testArticleURL, false)

	var exErr *domain.ExtractionError
	assert.True(t, errors.As(err, &exErr))
}

func TestFetchArticle_OfflineStale(t *testing.T) {
	h := newHarness(t)
	require.True(t, h.articles.Put(testArticleURL, "Old\n===\n\ntext"))
	h.advance(cache.ArticleTTL * 2)

	text, err := h.uc.FetchArticle(context.Background(), testArticleURL, true)

	require.NoError(t, err)
	assert.Equal(t, "Old\n===\n\ntext", text)
	assert.Zero(t, h.fetcher.calls)
}

func TestFormatArticle(t *testing.T) {
	tests := []struct {
		name string
		in   domain.Extracted
		want string
	}{
		{"plain", domain.Extracted{Title: "Title", Body: "\n body \n"}, "Title\n=====\n\nbody"},
		{"multibyte title", domain.Extracted{Title: "Café", Body: "x"}, "Café\n====\n\nx"},
		{"untitled", domain.Extracted{Body: " only body "}, "\n\n\nonly body"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatArticle(tt.in))
		})
	}
}

func TestFetchFeed_StalledBodyIsNetworkError(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		io.WriteString(w, `<rss version="2.0"><channel><item><title>Half`)
		w.(http.Flusher).Flush()
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)
	h := newHarness(t)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	h.uc.fetcher = fetcher.NewHTTPFetcher(200*time.Millisecond, "", log)

	stories, err := h.uc.FetchFeed(context.Background(), server.URL+"/rss.xml", false)

	assert.Nil(t, stories)
	var netErr *domain.NetworkError
	require.True(t, errors.As(err, &netErr))
	var parseErr *domain.ParseError
	assert.False(t, errors.As(err, &parseErr))
	assert.True(t, domain.IsRetryable(err))
}
