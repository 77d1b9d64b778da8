package extractor

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/url"
	"newsdesk/internal/domain"
	"regexp"
	"strings"

	"github.com/go-shiori/go-readability"
)

var redundantNewLines = regexp.MustCompile(`\n{3,}`)

// ReadabilityExtractor turns an article page into a title and plain body text.
type ReadabilityExtractor struct {
	log *slog.Logger
}

func NewReadabilityExtractor(log *slog.Logger) *ReadabilityExtractor {
	return &ReadabilityExtractor{
		log: log.With(slog.String("component", "extractor")),
	}
}

// Extract reads the page from r. pageURL resolves relative links and is
// reported in errors.
func (e *ReadabilityExtractor) Extract(ctx context.Context, pageURL string, r io.Reader) (domain.Extracted, error) {
	if err := ctx.Err(); err != nil {
		return domain.Extracted{}, err
	}
	log := e.log.With(slog.String("url", pageURL))
	parsed, err := url.Parse(pageURL)
	if err != nil {
		return domain.Extracted{}, &domain.ExtractionError{URL: pageURL, Err: err}
	}
	doc, err := readability.FromReader(r, parsed)
	if err != nil {
		log.Error("Readability failed", slog.Any("error", err))
		return domain.Extracted{}, &domain.ExtractionError{URL: pageURL, Err: err}
	}
	body := cleanupText(doc.TextContent)
	if body == "" {
		log.Warn("Page has no readable content")
		return domain.Extracted{}, &domain.ExtractionError{URL: pageURL, Err: errors.New("no readable content")}
	}
	log.Debug("Article extracted", slog.Int("body_len", len(body)))
	return domain.Extracted{
		Title: strings.TrimSpace(doc.Title),
		Body:  body,
	}, nil
}

func cleanupText(text string) string {
	return strings.TrimSpace(redundantNewLines.ReplaceAllString(text, "\n\n"))
}
