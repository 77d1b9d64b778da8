package parser

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"newsdesk/internal/domain"
	"strings"
	"time"

	"github.com/samber/lo"
	"golang.org/x/net/html/charset"
)

const (
	mediaNamespace = "http://search.yahoo.com/mrss/"
	mediaPrefix    = "media"
	pubDateLayout  = "2006-01-02 15:04:05"
)

// state is the parser position. Field states exist only inside an item.
type state int

const (
	outsideItem state = iota
	inItem
	inTitle
	inDescription
	inLink
	inPubDate
	inCategory
)

func (s state) isField() bool { return s > inItem }

var fieldStates = map[string]state{
	"title":       inTitle,
	"description": inDescription,
	"link":        inLink,
	"pubDate":     inPubDate,
	"category":    inCategory,
}

type XMLParser struct {
	log *slog.Logger
}

func NewXMLParser(log *slog.Logger) *XMLParser {
	return &XMLParser{
		log: log,
	}
}

// Parse streams the document and returns its stories in document order.
func (p *XMLParser) Parse(ctx context.Context, reader io.Reader) ([]domain.Story, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	decoder := xml.NewDecoder(reader)
	decoder.Strict = false
	decoder.Entity = xml.HTMLEntity
	decoder.CharsetReader = charset.NewReaderLabel

	var (
		stories []domain.Story
		current domain.Story
		st      = outsideItem
		text    strings.Builder
		sawText bool
	)
	for {
		tok, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			p.log.Error(
				"Error decoding XML",
				slog.Int64("offset", decoder.InputOffset()),
				slog.Any("error", err),
			)
			return nil, &domain.ParseError{Offset: decoder.InputOffset(), Err: err}
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if isItem(t.Name) {
				st = inItem
				current = domain.Story{Category: domain.DefaultCategory}
				continue
			}
			if st == outsideItem {
				continue
			}
			if isMedia(t.Name) {
				if url, ok := attr(t, "url"); ok {
					current.ImageURL = url
				}
			}
			if field, ok := fieldStates[t.Name.Local]; ok && t.Name.Space == "" {
				st = field
				text.Reset()
				sawText = false
				continue
			}
			st = inItem
		case xml.CharData:
			if st.isField() {
				text.Write(t)
				sawText = sawText || len(bytes.TrimSpace(t)) > 0
			}
		case xml.EndElement:
			if isItem(t.Name) && st != outsideItem {
				if current.Title != "" {
					stories = append(stories, current)
				}
				st = outsideItem
				continue
			}
			if st.isField() && sawText && t.Name.Space == "" && fieldStates[t.Name.Local] == st {
				p.assign(&current, st, strings.TrimSpace(text.String()))
			}
			if st != outsideItem {
				st = inItem
			}
		}
	}
	return lo.Slice(stories, 0, domain.MaxStories), nil
}

func (p *XMLParser) assign(s *domain.Story, st state, value string) {
	switch st {
	case inTitle:
		s.Title = value
	case inDescription:
		s.Description = value
	case inLink:
		s.Link = value
	case inPubDate:
		formatted, err := formatPubDate(value)
		if err != nil {
			p.log.Warn(
				"could not parse item pubDate, keeping original text",
				slog.String("pubDate", value),
				slog.String("item_title", s.Title),
				slog.Any("error", err),
			)
		}
		s.PubDate = formatted
	case inCategory:
		s.Category = value
	}
}

func isItem(name xml.Name) bool {
	return name.Space == "" && name.Local == "item"
}

func isMedia(name xml.Name) bool {
	if name.Local != "thumbnail" && name.Local != "content" {
		return false
	}
	return name.Space == mediaNamespace || name.Space == mediaPrefix
}

func attr(el xml.StartElement, local string) (string, bool) {
	a, ok := lo.Find(el.Attr, func(a xml.Attr) bool {
		return a.Name.Local == local
	})
	return a.Value, ok
}

// formatPubDate rewrites an RFC-2822 style date as "YYYY-MM-DD HH:MM:SS",
// keeping the clock time the feed wrote.
// On failure the original text is returned along with the error.
func formatPubDate(dateStr string) (string, error) {
	formats := []string{
		time.RFC1123Z,
		time.RFC1123,
		time.RFC822Z,
		time.RFC822,
		"Mon, 2 Jan 2006 15:04:05 -0700",
		"Mon, 2 Jan 2006 15:04:05 MST",
		"2 Jan 2006 15:04:05 -0700",
	}
	for _, format := range formats {
		if t, err := time.Parse(format, dateStr); err == nil {
			return t.Format(pubDateLayout), nil
		}
	}
	return dateStr, fmt.Errorf("could not parse date in any known format: %q", dateStr)
}
