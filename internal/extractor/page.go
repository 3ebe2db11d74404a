package extractor

import (
	"regexp"
	"strings"
)

// Page is one loaded supplier product page: its URL, the raw HTML, and any
// JSON data blocks the page embeds (runParams-style SPA state). Extraction
// never loads anything itself; the page arrives fully loaded.
type Page struct {
	URL      string                 `json:"url"`
	Platform string                 `json:"platform"`
	HTML     string                 `json:"html"`
	Data     map[string]interface{} `json:"data"`
}

var externalIDPatterns = []*regexp.Regexp{
	regexp.MustCompile(`/item/(\d+)\.html`),
	regexp.MustCompile(`/i/(\d+)\.html`),
	regexp.MustCompile(`/_p/(\d+)`),
	regexp.MustCompile(`[?&]productId=(\d+)`),
	regexp.MustCompile(`/products?/(\d{6,})`),
	regexp.MustCompile(`/(\d{10,})\.html`),
}

// ExternalID pulls the supplier's product identifier out of the page URL.
// Returns "" when no pattern matches.
func (p *Page) ExternalID() string {
	for _, pattern := range externalIDPatterns {
		if m := pattern.FindStringSubmatch(p.URL); m != nil {
			return m[1]
		}
	}
	return ""
}

// lookup resolves a dot-path inside the page's embedded data. A missing
// segment returns nil.
func (p *Page) lookup(path string) interface{} {
	var current interface{} = p.Data
	for _, segment := range strings.Split(path, ".") {
		m, ok := current.(map[string]interface{})
		if !ok {
			return nil
		}
		current = m[segment]
		if current == nil {
			return nil
		}
	}
	return current
}

// firstString walks an ordered list of dot-path candidates and returns the
// first non-empty string value.
func (p *Page) firstString(paths ...string) string {
	for _, path := range paths {
		if s, ok := p.lookup(path).(string); ok {
			if trimmed := strings.TrimSpace(s); trimmed != "" {
				return trimmed
			}
		}
	}
	return ""
}

// firstNumber walks an ordered list of dot-path candidates and returns the
// first numeric value. JSON numbers decode as float64; numeric strings are
// tolerated because supplier payloads mix both.
func (p *Page) firstNumber(paths ...string) (float64, bool) {
	for _, path := range paths {
		switch v := p.lookup(path).(type) {
		case float64:
			return v, true
		case int:
			return float64(v), true
		case string:
			if n, _, ok := parsePrice(v); ok {
				return n, true
			}
		}
	}
	return 0, false
}

func (p *Page) firstSlice(paths ...string) []interface{} {
	for _, path := range paths {
		if items, ok := p.lookup(path).([]interface{}); ok && len(items) > 0 {
			return items
		}
	}
	return nil
}

func (p *Page) firstMap(paths ...string) map[string]interface{} {
	for _, path := range paths {
		if m, ok := p.lookup(path).(map[string]interface{}); ok && len(m) > 0 {
			return m
		}
	}
	return nil
}

// htmlFirst runs ordered regexp candidates over the page HTML and returns
// the first captured group that yields text.
func (p *Page) htmlFirst(patterns ...*regexp.Regexp) string {
	for _, pattern := range patterns {
		if m := pattern.FindStringSubmatch(p.HTML); len(m) > 1 {
			if text := strings.TrimSpace(stripTags(m[1])); text != "" {
				return text
			}
		}
	}
	return ""
}

var tagPattern = regexp.MustCompile(`<[^>]+>`)

func stripTags(s string) string {
	s = tagPattern.ReplaceAllString(s, " ")
	s = strings.ReplaceAll(s, "&nbsp;", " ")
	s = strings.ReplaceAll(s, "&amp;", "&")
	return strings.Join(strings.Fields(s), " ")
}
