package cache

import (
	"encoding/gob"
	"errors"
	"fmt"
	"hash/fnv"
	"log/slog"
	"newsdesk/internal/domain"
	"os"
	"path/filepath"
	"time"
)

// Domain separates the two key-spaces that share the cache root.
type Domain string

const (
	DomainFeed    Domain = "feed"
	DomainArticle Domain = "article"
)

// Default TTLs per domain.
const (
	FeedTTL    = 900 * time.Second
	ArticleTTL = 3600 * time.Second
)

// ErrMiss is the miss reason for a key that was never written.
var ErrMiss = errors.New("cache miss")

// Clock returns the current time. Tests replace it to move time forward.
type Clock func() time.Time

// record is the on-disk layout of one cache file.
type record[T any] struct {
	Payload    T
	CapturedAt uint64
	Source     string
}

// Store owns the cache root directory. A nil *Store is valid and behaves as an
// always-empty cache that swallows writes.
type Store struct {
	root  string
	clock Clock
	log   *slog.Logger
}

// New prepares the cache root, creating it when missing. A root that cannot be
// created is reported as *domain.ConfigError so the caller can run network-only.
func New(root string, clock Clock, log *slog.Logger) (*Store, error) {
	if root == "" {
		return nil, &domain.ConfigError{Path: root, Err: errors.New("empty cache path")}
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, &domain.ConfigError{Path: root, Err: err}
	}
	if clock == nil {
		clock = time.Now
	}
	log = log.With(slog.String("component", "cache"))
	log.Debug("Cache store ready", slog.String("root", root))
	return &Store{root: root, clock: clock, log: log}, nil
}

// Root returns the cache directory.
func (s *Store) Root() string {
	if s == nil {
		return ""
	}
	return s.root
}

// ClearAll removes every entry in both domains and recreates the empty root.
func (s *Store) ClearAll() error {
	if s == nil {
		return nil
	}
	if err := os.RemoveAll(s.root); err != nil {
		return fmt.Errorf("failed to remove cache directory %s: %w", s.root, err)
	}
	if err := os.MkdirAll(s.root, 0o755); err != nil {
		return fmt.Errorf("failed to recreate cache directory %s: %w", s.root, err)
	}
	s.log.Info("Cache cleared", slog.String("root", s.root))
	return nil
}

func (s *Store) path(d Domain, key string) string {
	return filepath.Join(s.root, fmt.Sprintf("%s_%s.bin", d, hashKey(key)))
}

// hashKey is FNV-1a 64. It is not collision resistant; two URLs sharing a hash
// overwrite each other's entry, which is tolerated for a cache of this size.
func hashKey(key string) string {
	h := fnv.New64a()
	h.Write([]byte(key))
	return fmt.Sprintf("%016x", h.Sum64())
}

// Entry is the outcome of a lookup. Found is false on a miss; the miss reason
// is kept for logging only.
type Entry[T any] struct {
	Payload    T
	CapturedAt time.Time
	Found      bool
	reason     error
}

// MissReason explains why a lookup missed. It is nil for hits.
func (e Entry[T]) MissReason() error {
	return e.reason
}

func miss[T any](reason error) Entry[T] {
	return Entry[T]{reason: reason}
}

// Bucket is one cache domain with its TTL.
type Bucket[T any] struct {
	store  *Store
	domain Domain
	ttl    time.Duration
}

// NewBucket binds a domain and TTL to a store. store may be nil.
func NewBucket[T any](store *Store, d Domain, ttl time.Duration) *Bucket[T] {
	return &Bucket[T]{store: store, domain: d, ttl: ttl}
}

// TTL returns the freshness window of the bucket.
func (b *Bucket[T]) TTL() time.Duration { return b.ttl }

// Put replaces the entry for key. It writes a temp file and renames it over the
// old one, so readers see either the previous or the new record.
func (b *Bucket[T]) Put(key string, payload T) bool {
	if b == nil || b.store == nil {
		return false
	}
	s := b.store
	log := s.log.With(slog.String("domain", string(b.domain)), slog.String("url", key))
	rec := record[T]{
		Payload:    payload,
		CapturedAt: uint64(s.clock().Unix()),
		Source:     key,
	}
	tmp, err := os.CreateTemp(s.root, ".tmp-*")
	if err != nil {
		log.Warn("Failed to create cache temp file", slog.Any("error", err))
		return false
	}
	defer os.Remove(tmp.Name())
	if err := gob.NewEncoder(tmp).Encode(&rec); err != nil {
		tmp.Close()
		log.Warn("Failed to encode cache record", slog.Any("error", err))
		return false
	}
	if err := tmp.Close(); err != nil {
		log.Warn("Failed to flush cache record", slog.Any("error", err))
		return false
	}
	if err := os.Rename(tmp.Name(), s.path(b.domain, key)); err != nil {
		log.Warn("Failed to move cache record into place", slog.Any("error", err))
		return false
	}
	log.Debug("Cache entry written")
	return true
}

// GetFresh returns the payload only while it is within the bucket TTL.
func (b *Bucket[T]) GetFresh(key string) Entry[T] {
	e := b.GetStale(key)
	if !e.Found {
		return e
	}
	if age := b.age(e); age > b.ttl {
		return miss[T](fmt.Errorf("entry expired: age %s exceeds ttl %s", age, b.ttl))
	}
	return e
}

// GetStale returns the payload regardless of its age.
func (b *Bucket[T]) GetStale(key string) Entry[T] {
	if b == nil || b.store == nil {
		return miss[T](errors.New("cache unavailable"))
	}
	rec, err := b.read(key)
	if err != nil {
		return miss[T](err)
	}
	return Entry[T]{
		Payload:    rec.Payload,
		CapturedAt: time.Unix(int64(rec.CapturedAt), 0),
		Found:      true,
	}
}

// Age reports how long ago the entry for key was captured.
func (b *Bucket[T]) Age(key string) (time.Duration, bool) {
	e := b.GetStale(key)
	if !e.Found {
		return 0, false
	}
	return b.age(e), true
}

// age is measured in whole seconds, matching the stored capture timestamp.
// A capture time in the future counts as age zero.
func (b *Bucket[T]) age(e Entry[T]) time.Duration {
	secs := b.store.clock().Unix() - e.CapturedAt.Unix()
	if secs < 0 {
		secs = 0
	}
	return time.Duration(secs) * time.Second
}

func (b *Bucket[T]) read(key string) (record[T], error) {
	var rec record[T]
	f, err := os.Open(b.store.path(b.domain, key))
	if errors.Is(err, os.ErrNotExist) {
		return rec, ErrMiss
	}
	if err != nil {
		return rec, fmt.Errorf("failed to open cache entry: %w", err)
	}
	defer f.Close()
	if err := gob.NewDecoder(f).Decode(&rec); err != nil {
		return rec, fmt.Errorf("failed to decode cache entry: %w", err)
	}
	return rec, nil
}
