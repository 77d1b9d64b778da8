// Package catalog lists the known BBC News feeds and resolves user-typed names to them.
package catalog

import (
	"fmt"
	"strings"

	"github.com/samber/lo"
)

type Feed struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

const baseURL = "https://feeds.bbci.co.uk/news/"

var feeds = []Feed{
	{"Top Stories", baseURL + "rss.xml"},
	{"World", baseURL + "world/rss.xml"},
	{"UK", baseURL + "uk/rss.xml"},
	{"Business", baseURL + "business/rss.xml"},
	{"Politics", baseURL + "politics/rss.xml"},
	{"Health", baseURL + "health/rss.xml"},
	{"Education & Family", baseURL + "education/rss.xml"},
	{"Science & Environment", baseURL + "science_and_environment/rss.xml"},
	{"Technology", baseURL + "technology/rss.xml"},
	{"Entertainment & Arts", baseURL + "entertainment_and_arts/rss.xml"},
	{"England", baseURL + "england/rss.xml"},
	{"Northern Ireland", baseURL + "northern_ireland/rss.xml"},
	{"Scotland", baseURL + "scotland/rss.xml"},
	{"Wales", baseURL + "wales/rss.xml"},
	{"Africa", baseURL + "world/africa/rss.xml"},
	{"Asia", baseURL + "world/asia/rss.xml"},
	{"Europe", baseURL + "world/europe/rss.xml"},
	{"Latin America", baseURL + "world/latin_america/rss.xml"},
	{"Middle East", baseURL + "world/middle_east/rss.xml"},
	{"US & Canada", baseURL + "world/us_and_canada/rss.xml"},
}

var shortcuts = map[string]string{
	"tech":          "Technology",
	"biz":           "Business",
	"pol":           "Politics",
	"sci":           "Science & Environment",
	"science":       "Science & Environment",
	"ent":           "Entertainment & Arts",
	"entertainment": "Entertainment & Arts",
	"edu":           "Education & Family",
	"education":     "Education & Family",
}

// All returns a copy of the catalog in display order.
func All() []Feed {
	return append([]Feed(nil), feeds...)
}

// Default is the feed shown when none is chosen.
func Default() Feed {
	return feeds[0]
}

// Lookup matches name case-insensitively: exact name first, then the first
// name containing it, then the short aliases.
func Lookup(name string) (Feed, error) {
	needle := strings.ToLower(strings.TrimSpace(name))
	if needle == "" {
		return Feed{}, fmt.Errorf("empty feed name")
	}
	if f, ok := lo.Find(feeds, func(f Feed) bool { return strings.ToLower(f.Name) == needle }); ok {
		return f, nil
	}
	if f, ok := lo.Find(feeds, func(f Feed) bool { return strings.Contains(strings.ToLower(f.Name), needle) }); ok {
		return f, nil
	}
	if full, ok := shortcuts[needle]; ok {
		return lo.Must(lo.Find(feeds, func(f Feed) bool { return f.Name == full })), nil
	}
	return Feed{}, fmt.Errorf("unknown feed: %q. Use 'world', 'uk', 'business', 'technology', etc.", name)
}

// Names returns every feed name in display order.
func Names() []string {
	return lo.Map(feeds, func(f Feed, _ int) string { return f.Name })
}
