package extractor

import (
	"regexp"
	"strings"
)

const maxImages = 50

var placeholderFragments = []string{
	"sprite", "pixel", "placeholder", "loader", "loading",
	"spacer", "1x1", "blank", "transparent", "data:image",
}

var (
	thumbSuffixPattern = regexp.MustCompile(`_\d+x\d+[a-zA-Z]*\.(jpg|jpeg|png|webp)`)
	thumbInfixPattern  = regexp.MustCompile(`\.(jpg|jpeg|png|webp)_\d+x\d+\.(jpg|jpeg|png|webp)`)
	htmlImagePattern   = regexp.MustCompile(`<(?:img|meta)[^>]+(?:src|content)="([^"]+\.(?:jpg|jpeg|png|webp)[^"]*)"`)
)

// normalizeImageURL cleans one candidate image URL: protocol-relative
// prefixes become https, thumbnail size suffixes are upcast to the
// full-resolution asset, query strings are stripped, and placeholder assets
// are dropped entirely (returned as "").
func normalizeImageURL(raw string) string {
	src := strings.TrimSpace(raw)
	if src == "" || len(src) < 10 {
		return ""
	}

	lower := strings.ToLower(src)
	for _, fragment := range placeholderFragments {
		if strings.Contains(lower, fragment) {
			return ""
		}
	}

	if strings.HasPrefix(src, "//") {
		src = "https:" + src
	}
	if !strings.HasPrefix(src, "http://") && !strings.HasPrefix(src, "https://") {
		return ""
	}

	src = thumbInfixPattern.ReplaceAllString(src, ".$1")
	src = thumbSuffixPattern.ReplaceAllString(src, ".$1")
	if i := strings.IndexByte(src, '?'); i >= 0 {
		src = src[:i]
	}

	return src
}

// collectImages merges candidate URLs from all strategies, deduplicating
// through a set and preserving first-seen order. The list is capped at 50.
func collectImages(candidates []string) []string {
	seen := make(map[string]struct{})
	images := make([]string, 0, len(candidates))

	for _, candidate := range candidates {
		url := normalizeImageURL(candidate)
		if url == "" {
			continue
		}
		if _, dup := seen[url]; dup {
			continue
		}
		seen[url] = struct{}{}
		images = append(images, url)
		if len(images) == maxImages {
			break
		}
	}

	return images
}
