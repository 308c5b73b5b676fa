// Package extractor turns fetched page content into candidate postings.
package extractor

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/AnonArchitect/career-crawler/internal/scraper"
)

// Keyword heuristics for classifying a link as a likely job posting.
var (
	titleKeywords = []string{"job", "career", "openings", "position"}
	urlKeywords   = []string{"job", "career", "posting", "requisition"}
)

// LinkHeuristic is the baseline scraper.Extractor: it scans every hyperlink
// on the page and keeps the ones whose text or resolved URL looks job-shaped.
// It is a provisional, site-agnostic placeholder; targets with a known page
// structure should get their own Extractor and override this one.
type LinkHeuristic struct {
	logger *zap.Logger
}

// NewLinkHeuristic builds the default link-scanning extractor.
func NewLinkHeuristic(logger *zap.Logger) *LinkHeuristic {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LinkHeuristic{logger: logger}
}

// Extract scans a[href] elements, resolves relative targets against baseURL,
// and returns the links that pass the keyword heuristic. An empty result is
// a normal outcome; it is logged as a signal that the heuristic or the site
// structure may need attention, never returned as an error.
func (e *LinkHeuristic) Extract(content []byte, baseURL string) ([]scraper.Candidate, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url %q: %w", baseURL, err)
	}

	var candidates []scraper.Candidate
	links := 0
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok {
			return
		}
		links++

		href = strings.TrimSpace(href)
		if href == "" || strings.HasPrefix(href, "#") ||
			strings.HasPrefix(strings.ToLower(href), "javascript:") {
			return
		}

		resolved, err := base.Parse(href)
		if err != nil {
			e.logger.Debug("skipping unparseable link",
				zap.String("href", href), zap.Error(err))
			return
		}

		title := strings.TrimSpace(sel.Text())
		if title == "" {
			title = scraper.NoTitleText
		}

		if !looksLikeJob(title, resolved.String()) {
			return
		}

		candidates = append(candidates, scraper.Candidate{
			Title:       title,
			URL:         resolved.String(),
			Location:    scraper.LocationUnknown,
			Description: scraper.DescriptionUnavailable,
		})
	})

	switch {
	case links == 0:
		e.logger.Warn("no links found at all; page may be empty, need JS, or have an unexpected structure",
			zap.String("base_url", baseURL))
	case len(candidates) == 0:
		e.logger.Warn("no candidates matched the link heuristic; review the parsing logic or site structure",
			zap.String("base_url", baseURL), zap.Int("links", links))
	default:
		e.logger.Debug("link heuristic produced candidates",
			zap.String("base_url", baseURL),
			zap.Int("links", links),
			zap.Int("candidates", len(candidates)))
	}

	return candidates, nil
}

// looksLikeJob applies the keyword heuristic to anchor text and resolved URL.
func looksLikeJob(title, resolvedURL string) bool {
	lowerTitle := strings.ToLower(title)
	for _, kw := range titleKeywords {
		if strings.Contains(lowerTitle, kw) {
			return true
		}
	}
	lowerURL := strings.ToLower(resolvedURL)
	for _, kw := range urlKeywords {
		if strings.Contains(lowerURL, kw) {
			return true
		}
	}
	return false
}
