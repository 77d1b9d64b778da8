package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"newsdesk/internal/adapter/cache"
	"newsdesk/internal/adapter/extractor"
	"newsdesk/internal/adapter/fetcher"
	"newsdesk/internal/adapter/parser"
	"newsdesk/internal/config"
	"newsdesk/internal/domain"
	"newsdesk/internal/logger"
	"newsdesk/internal/migrations"
	server "newsdesk/internal/transport/http"
	"newsdesk/internal/usecase"
	"newsdesk/storage"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const shutdownTimeout = 10 * time.Second

// App связывает конвейер получения контента, необязательный архив историй
// и хосты (CLI и HTTP API).
type App struct {
	config    *config.Config
	logger    *slog.Logger
	logCloser io.Closer
	store     *cache.Store
	feeds     *cache.Bucket[[]domain.Story]
	content   *usecase.ContentUseCase
	archive   *usecase.ArchiveGetterUseCase
	dbArchive storage.StoryArchive
	wg        sync.WaitGroup
}

// New создает логгер из конфигурации, делает его логгером по умолчанию
// и собирает приложение. Недоступный каталог кеша не является фатальной ошибкой:
// приложение работает только через сеть. Архив отключается, если база недоступна.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	appLogger, closer, err := logger.New(cfg.Logger())
	if err != nil {
		return nil, fmt.Errorf("failed to setup logger: %w", err)
	}
	slog.SetDefault(appLogger)
	return NewWithLogger(ctx, cfg, appLogger, closer), nil
}

// NewWithLogger работает как New, но использует переданный логгер.
// closer может быть nil.
func NewWithLogger(ctx context.Context, cfg *config.Config, appLogger *slog.Logger, closer io.Closer) *App {
	log := appLogger.With(slog.String("component", "app"))

	store, err := cache.New(cfg.CacheDir, time.Now, appLogger)
	if err != nil {
		log.Warn("Cache unavailable, running network-only", slog.Any("error", err))
	}
	feeds := cache.NewBucket[[]domain.Story](store, cache.DomainFeed, cfg.FeedTTL)
	articles := cache.NewBucket[string](store, cache.DomainArticle, cfg.ArticleTTL)

	a := &App{
		config:    cfg,
		logger:    appLogger,
		logCloser: closer,
		store:     store,
		feeds:     feeds,
	}

	var archiver usecase.StoryArchiver
	var reader usecase.ArchiveReader
	if cfg.DatabaseDSN != "" {
		if db, err := openArchive(ctx, cfg, appLogger); err != nil {
			log.Warn("Story archive disabled", slog.Any("error", err))
		} else {
			a.dbArchive = db
			archiver, reader = db, db
		}
	}

	a.content = usecase.NewContentUseCase(
		fetcher.NewHTTPFetcher(cfg.HTTPTimeout, cfg.UserAgent, appLogger),
		parser.NewXMLParser(appLogger),
		extractor.NewReadabilityExtractor(appLogger),
		feeds,
		articles,
		archiver,
		appLogger,
	)
	a.archive = usecase.NewArchiveGetterUseCase(reader)
	return a
}

// openArchive подключается к PostgreSQL, проверяет соединение и применяет миграции.
func openArchive(ctx context.Context, cfg *config.Config, log *slog.Logger) (*storage.PostgresStoryArchive, error) {
	dbPool, err := pgxpool.New(ctx, cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := dbPool.Ping(ctx); err != nil {
		dbPool.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}
	if err := migrations.Apply(ctx, log, dbPool); err != nil {
		dbPool.Close()
		return nil, fmt.Errorf("migrations failed: %w", err)
	}
	return storage.NewPostgresStoryArchive(dbPool, cfg.ArchiveLimit, log), nil
}

func (a *App) Config() *config.Config { return a.config }

func (a *App) Logger() *slog.Logger { return a.logger }

func (a *App) Content() *usecase.ContentUseCase { return a.content }

func (a *App) Archive() *usecase.ArchiveGetterUseCase { return a.archive }

// ClearCache очищает оба домена кеша.
func (a *App) ClearCache() error {
	return a.store.ClearAll()
}

// CacheStatus описывает каталог кеша и возраст сохраненной копии ленты.
type CacheStatus struct {
	Root      string
	Available bool
	FeedAge   time.Duration
	HasFeed   bool
	FeedTTL   time.Duration
}

// CacheStatus возвращает состояние кеша для ленты feedURL.
func (a *App) CacheStatus(feedURL string) CacheStatus {
	age, ok := a.feeds.Age(feedURL)
	return CacheStatus{
		Root:      a.store.Root(),
		Available: a.store != nil,
		FeedAge:   age,
		HasFeed:   ok,
		FeedTTL:   a.feeds.TTL(),
	}
}

// Serve запускает HTTP API и блокируется до отмены ctx или сигнала SIGINT/SIGTERM.
// Затем выполняет graceful shutdown с таймаутом shutdownTimeout.
func (a *App) Serve(ctx context.Context) error {
	log := a.logger.With(slog.String("component", "server"))
	handler := server.NewHandler(a.logger, a.content, a.archive, a.store, server.Options{
		DefaultFeed:  a.config.DefaultFeed,
		Offline:      a.config.Offline,
		ArchiveLimit: a.config.ArchiveLimit,
	})
	httpServer := &http.Server{
		Addr:              a.config.ServerAddress,
		Handler:           server.NewServer(a.logger, handler),
		ReadHeaderTimeout: 5 * time.Second,
	}
	listener, err := net.Listen("tcp", httpServer.Addr)
	if err != nil {
		return fmt.Errorf("failed to create listener: %w", err)
	}
	log.Info("HTTP server ready", slog.String("address", listener.Addr().String()))

	serveErr := make(chan error, 1)
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server failed", slog.Any("error", err))
			serveErr <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)

	var runErr error
	select {
	case sig := <-stop:
		log.Info("Shutdown signal received", slog.String("signal", sig.String()))
	case <-ctx.Done():
		log.Info("Context cancelled, initiating shutdown")
	case runErr = <-serveErr:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown failed", slog.Any("error", err))
	}
	a.wg.Wait()
	log.Info("HTTP server stopped gracefully")
	return runErr
}

// Close освобождает пул соединений с базой и файлы логов.
func (a *App) Close() error {
	if a.dbArchive != nil {
		a.dbArchive.Close()
	}
	if a.logCloser != nil {
		return a.logCloser.Close()
	}
	return nil
}
