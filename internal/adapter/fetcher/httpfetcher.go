package fetcher

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"newsdesk/internal/domain"
	"time"
)

const (
	DefaultTimeout = 10 * time.Second
	// DefaultUserAgent представляется мобильным браузером: неизвестным клиентам
	// сайт отдает документ другой структуры.
	DefaultUserAgent = "Mozilla/5.0 (Linux; Android 10; SM-A307G) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/86.0.4240.198 Safari/537.36"
)

// HTTPFetcher выполняет GET-запросы с ограничением по времени для лент и страниц статей.
// Каждый запрос открывает новое соединение.
type HTTPFetcher struct {
	client    *http.Client
	userAgent string
	log       *slog.Logger
}

// NewHTTPFetcher создает HTTP-клиент с таймаутом и отключенным keep-alive.
// Нулевой таймаут и пустой userAgent заменяются значениями по умолчанию.
func NewHTTPFetcher(timeout time.Duration, userAgent string, log *slog.Logger) *HTTPFetcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DisableKeepAlives = true
	return &HTTPFetcher{
		client: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
		userAgent: userAgent,
		log:       log.With(slog.String("component", "fetcher")),
	}
}

// Fetch выполняет запрос и целиком читает тело ответа, поэтому таймаут или обрыв
// соединения во время чтения обнаруживаются здесь, а не в парсере.
// Любая ошибка возвращается как *domain.NetworkError; при ответе не 200
// заполняется StatusCode.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (io.ReadCloser, error) {
	log := f.log.With(slog.String("url", url))
	log.Info("Fetching URL")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		log.Error("Failed to create HTTP request", slog.Any("error", err))
		return nil, &domain.NetworkError{URL: url, Err: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("User-Agent", f.userAgent)
	resp, err := f.client.Do(req)
	if err != nil {
		log.Error(
			"HTTP request failed",
			slog.Any("error", err),
		)
		return nil, &domain.NetworkError{URL: url, Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		log.Error(
			"Unexpected status code",
			slog.Int("status_code", resp.StatusCode),
		)
		return nil, &domain.NetworkError{
			URL:        url,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("http status %s", resp.Status),
		}
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Error("Failed to read response body", slog.Any("error", err))
		return nil, &domain.NetworkError{URL: url, Err: fmt.Errorf("failed to read body: %w", err)}
	}
	log.Info("Successfully fetched URL", slog.Int("bytes", len(data)))
	return io.NopCloser(bytes.NewReader(data)), nil
}
