package cache

import (
	"errors"
	"io"
	"log/slog"
	"newsdesk/internal/domain"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time           { return c.now }
func (c *testClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestStore(t *testing.T) (*Store, *testClock) {
	t.Helper()
	clock := &testClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	store, err := New(filepath.Join(t.TempDir(), "cache"), clock.Now, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	return store, clock
}

func sampleStories() []domain.Story {
	return []domain.Story{
		{Title: "First", Link: "https://example.com/1", PubDate: "2024-05-01 10:00:00", Category: "UK"},
		{Title: "Second", Link: "https://example.com/2", Category: domain.DefaultCategory, ImageURL: "https://img.example.com/2.jpg"},
	}
}

const feedURL = "https://feeds.example.com/news/rss.xml"

func TestBucket_PutThenGetFresh(t *testing.T) {
	store, _ := newTestStore(t)
	feeds := NewBucket[[]domain.Story](store, DomainFeed, FeedTTL)

	require.True(t, feeds.Put(feedURL, sampleStories()))

	entry := feeds.GetFresh(feedURL)
	require.True(t, entry.Found)
	assert.Equal(t, sampleStories(), entry.Payload)
	assert.NoError(t, entry.MissReason())
}

func TestBucket_FreshExpiresAfterTTLButStaleRemains(t *testing.T) {
	store, clock := newTestStore(t)
	feeds := NewBucket[[]domain.Story](store, DomainFeed, FeedTTL)
	require.True(t, feeds.Put(feedURL, sampleStories()))

	clock.Advance(FeedTTL)
	assert.True(t, feeds.GetFresh(feedURL).Found, "entry at exactly the TTL is still fresh")

	clock.Advance(time.Second)
	fresh := feeds.GetFresh(feedURL)
	assert.False(t, fresh.Found)
	assert.Error(t, fresh.MissReason())

	stale := feeds.GetStale(feedURL)
	require.True(t, stale.Found)
	assert.Equal(t, sampleStories(), stale.Payload)
}

func TestBucket_ArticleTTL(t *testing.T) {
	store, clock := newTestStore(t)
	articles := NewBucket[string](store, DomainArticle, ArticleTTL)
	require.True(t, articles.Put("https://example.com/a", "Title\n=====\n\nBody"))

	clock.Advance(FeedTTL + time.Minute)
	assert.True(t, articles.GetFresh("https://example.com/a").Found)

	clock.Advance(ArticleTTL)
	assert.False(t, articles.GetFresh("https://example.com/a").Found)
	assert.Equal(t, "Title\n=====\n\nBody", articles.GetStale("https://example.com/a").Payload)
}

func TestBucket_MissOnUnknownKey(t *testing.T) {
	store, _ := newTestStore(t)
	feeds := NewBucket[[]domain.Story](store, DomainFeed, FeedTTL)

	fresh := feeds.GetFresh("https://never.example.com/rss")
	stale := feeds.GetStale("https://never.example.com/rss")

	assert.False(t, fresh.Found)
	assert.False(t, stale.Found)
	assert.True(t, errors.Is(stale.MissReason(), ErrMiss))
	_, ok := feeds.Age("https://never.example.com/rss")
	assert.False(t, ok)
}

func TestBucket_DomainsAreIndependent(t *testing.T) {
	store, _ := newTestStore(t)
	feeds := NewBucket[[]domain.Story](store, DomainFeed, FeedTTL)
	articles := NewBucket[string](store, DomainArticle, ArticleTTL)
	const url = "https://example.com/shared"

	require.True(t, feeds.Put(url, sampleStories()))

	assert.False(t, articles.GetStale(url).Found)
	assert.FileExists(t, filepath.Join(store.Root(), "feed_"+hashKey(url)+".bin"))
	assert.NoFileExists(t, filepath.Join(store.Root(), "article_"+hashKey(url)+".bin"))
}

func TestBucket_PutOverwrites(t *testing.T) {
	store, clock := newTestStore(t)
	feeds := NewBucket[[]domain.Story](store, DomainFeed, FeedTTL)
	require.True(t, feeds.Put(feedURL, sampleStories()))

	clock.Advance(2 * FeedTTL)
	replacement := []domain.Story{{Title: "Only", Link: "https://example.com/only", Category: "World"}}
	require.True(t, feeds.Put(feedURL, replacement))

	entry := feeds.GetFresh(feedURL)
	require.True(t, entry.Found)
	assert.Equal(t, replacement, entry.Payload)
	assert.Equal(t, clock.Now().Unix(), entry.CapturedAt.Unix())
}

func TestBucket_Age(t *testing.T) {
	store, clock := newTestStore(t)
	feeds := NewBucket[[]domain.Story](store, DomainFeed, FeedTTL)
	require.True(t, feeds.Put(feedURL, sampleStories()))

	clock.Advance(42 * time.Second)
	age, ok := feeds.Age(feedURL)

	require.True(t, ok)
	assert.Equal(t, 42*time.Second, age)
}

func TestBucket_CorruptFileIsMiss(t *testing.T) {
	store, _ := newTestStore(t)
	feeds := NewBucket[[]domain.Story](store, DomainFeed, FeedTTL)
	path := filepath.Join(store.Root(), "feed_"+hashKey(feedURL)+".bin")
	require.NoError(t, os.WriteFile(path, []byte("not a gob record"), 0o644))

	fresh := feeds.GetFresh(feedURL)
	stale := feeds.GetStale(feedURL)

	assert.False(t, fresh.Found)
	assert.False(t, stale.Found)
	assert.Contains(t, stale.MissReason().Error(), "decode")
}

func TestStore_ClearAll(t *testing.T) {
	store, _ := newTestStore(t)
	feeds := NewBucket[[]domain.Story](store, DomainFeed, FeedTTL)
	articles := NewBucket[string](store, DomainArticle, ArticleTTL)
	require.True(t, feeds.Put(feedURL, sampleStories()))
	require.True(t, articles.Put("https://example.com/a", "text"))

	require.NoError(t, store.ClearAll())

	assert.False(t, feeds.GetStale(feedURL).Found)
	assert.False(t, articles.GetStale("https://example.com/a").Found)
	assert.DirExists(t, store.Root())
	entries, err := os.ReadDir(store.Root())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestNilStoreIsAlwaysMiss(t *testing.T) {
	feeds := NewBucket[[]domain.Story](nil, DomainFeed, FeedTTL)

	assert.False(t, feeds.Put(feedURL, sampleStories()))
	assert.False(t, feeds.GetFresh(feedURL).Found)
	assert.False(t, feeds.GetStale(feedURL).Found)
	var store *Store
	assert.NoError(t, store.ClearAll())
}

func TestNew_UnusableRootIsConfigError(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	store, err := New(filepath.Join(blocker, "cache"), nil, slog.New(slog.NewTextHandler(io.Discard, nil)))

	assert.Nil(t, store)
	var cfgErr *domain.ConfigError
	assert.True(t, errors.As(err, &cfgErr))
}

func TestHashKeyIsDeterministic(t *testing.T) {
	assert.Equal(t, hashKey(feedURL), hashKey(feedURL))
	assert.NotEqual(t, hashKey(feedURL), hashKey(feedURL+"?x=1"))
	assert.Len(t, hashKey(feedURL), 16)
}
