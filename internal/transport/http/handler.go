package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"newsdesk/internal/catalog"
	"newsdesk/internal/domain"
	"newsdesk/internal/humanize"
	"newsdesk/internal/usecase"
	"strconv"
	"time"

	"github.com/samber/lo"
)

type contentFetcher interface {
	FetchFeed(ctx context.Context, url string, offline bool) ([]domain.Story, error)
	FetchArticle(ctx context.Context, url string, offline bool) (string, error)
}

type archiveReader interface {
	RecentStories(ctx context.Context, limit int) ([]domain.ArchivedStory, error)
}

type cacheClearer interface {
	ClearAll() error
}

// Options carries the host defaults the handler falls back to.
type Options struct {
	DefaultFeed  string
	Offline      bool
	ArchiveLimit int
}

type Handler struct {
	log     *slog.Logger
	content contentFetcher
	archive archiveReader
	cache   cacheClearer
	opts    Options
	now     func() time.Time
}

func NewHandler(log *slog.Logger, content contentFetcher, archive archiveReader, cache cacheClearer, opts Options) *Handler {
	if opts.ArchiveLimit <= 0 {
		opts.ArchiveLimit = 20
	}
	return &Handler{
		log:     log,
		content: content,
		archive: archive,
		cache:   cache,
		opts:    opts,
		now:     time.Now,
	}
}

type storyResponse struct {
	domain.Story
	Published string `json:"published"`
}

type feedResponse struct {
	Feed    catalog.Feed    `json:"feed"`
	Stories []storyResponse `json:"stories"`
}

type articleResponse struct {
	URL  string `json:"url"`
	Text string `json:"text"`
}

type errorResponse struct {
	Error     string `json:"error"`
	Retryable bool   `json:"retryable"`
}

// getFeed handles GET /api/feed?name=|url=&offline=
func (h *Handler) getFeed(w http.ResponseWriter, r *http.Request) {
	const op = "transport.http/getFeed"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", getRequestID(r.Context())),
	)
	q := r.URL.Query()
	offline, err := h.offlineParam(q)
	if err != nil {
		log.Warn("invalid offline parameter", slog.String("offline", q.Get("offline")))
		respondWithError(w, http.StatusBadRequest, "Invalid 'offline' parameter")
		return
	}
	feed, err := h.resolveFeed(q)
	if err != nil {
		log.Warn("invalid feed selection", slog.Any("error", err))
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	// A fetch runs to completion even if the client goes away.
	stories, err := h.content.FetchFeed(context.WithoutCancel(r.Context()), feed.URL, offline)
	if err != nil {
		log.Error("Failed to fetch feed", slog.String("url", feed.URL), slog.Any("error", err))
		respondWithDomainError(w, err)
		return
	}
	now := h.now()
	respondWithJSON(w, http.StatusOK, feedResponse{
		Feed: feed,
		Stories: lo.Map(stories, func(s domain.Story, _ int) storyResponse {
			return storyResponse{Story: s, Published: humanize.Since(s.PubDate, now)}
		}),
	})
}

// getArticle handles GET /api/article?url=&offline=
func (h *Handler) getArticle(w http.ResponseWriter, r *http.Request) {
	const op = "transport.http/getArticle"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", getRequestID(r.Context())),
	)
	q := r.URL.Query()
	offline, err := h.offlineParam(q)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid 'offline' parameter")
		return
	}
	articleURL := q.Get("url")
	if !isWebURL(articleURL) {
		log.Warn("invalid url parameter", slog.String("url", articleURL))
		respondWithError(w, http.StatusBadRequest, "Invalid 'url' parameter")
		return
	}
	text, err := h.content.FetchArticle(context.WithoutCancel(r.Context()), articleURL, offline)
	if err != nil {
		log.Error("Failed to fetch article", slog.String("url", articleURL), slog.Any("error", err))
		respondWithDomainError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, articleResponse{URL: articleURL, Text: text})
}

func (h *Handler) listFeeds(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, catalog.All())
}

// getArchive handles GET /api/archive?limit=
func (h *Handler) getArchive(w http.ResponseWriter, r *http.Request) {
	const op = "transport.http/getArchive"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", getRequestID(r.Context())),
	)
	limitStr := r.URL.Query().Get("limit")
	limit := h.opts.ArchiveLimit
	if limitStr != "" {
		var err error
		limit, err = strconv.Atoi(limitStr)
		if err != nil || limit <= 0 {
			log.Warn("invalid limit parameter", slog.String("limit", limitStr))
			respondWithError(w, http.StatusBadRequest, "Invalid 'limit' parameter")
			return
		}
	}
	stories, err := h.archive.RecentStories(r.Context(), limit)
	if errors.Is(err, usecase.ErrArchiveDisabled) {
		respondWithError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		log.Error("Failed to read archive", slog.Any("error", err))
		respondWithError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}
	if stories == nil {
		stories = []domain.ArchivedStory{}
	}
	respondWithJSON(w, http.StatusOK, stories)
}

// clearCache handles POST /api/cache/clear
func (h *Handler) clearCache(w http.ResponseWriter, r *http.Request) {
	const op = "transport.http/clearCache"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", getRequestID(r.Context())),
	)
	if err := h.cache.ClearAll(); err != nil {
		log.Error("Failed to clear cache", slog.Any("error", err))
		respondWithError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

func (h *Handler) healthCheck(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) offlineParam(q url.Values) (bool, error) {
	raw := q.Get("offline")
	if raw == "" {
		return h.opts.Offline, nil
	}
	return strconv.ParseBool(raw)
}

func (h *Handler) resolveFeed(q url.Values) (catalog.Feed, error) {
	if raw := q.Get("url"); raw != "" {
		if !isWebURL(raw) {
			return catalog.Feed{}, errors.New("Invalid 'url' parameter")
		}
		return catalog.Feed{Name: raw, URL: raw}, nil
	}
	name := q.Get("name")
	if name == "" {
		name = h.opts.DefaultFeed
	}
	if name == "" {
		return catalog.Default(), nil
	}
	return catalog.Lookup(name)
}

func isWebURL(raw string) bool {
	u, err := url.ParseRequestURI(raw)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// statusFor maps pipeline errors onto HTTP status codes.
func statusFor(err error) int {
	var (
		netErr   *domain.NetworkError
		parseErr *domain.ParseError
		exErr    *domain.ExtractionError
	)
	switch {
	case errors.Is(err, domain.ErrOffline):
		return http.StatusServiceUnavailable
	case errors.As(err, &netErr), errors.As(err, &parseErr):
		return http.StatusBadGateway
	case errors.As(err, &exErr):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func respondWithDomainError(w http.ResponseWriter, err error) {
	respondWithJSON(w, statusFor(err), errorResponse{
		Error:     err.Error(),
		Retryable: domain.IsRetryable(err),
	})
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, errorResponse{Error: message})
}

func respondWithJSON(w http.ResponseWriter, code int, payload any) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error": "Failed to marshal JSON response"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}
