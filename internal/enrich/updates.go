package enrich

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	dErrors "beacon/pkg/domain-errors"
)

// OfficialUpdate is one situation update scraped from a relief site.
type OfficialUpdate struct {
	Title string `json:"title"`
	Date  string `json:"date"`
	URL   string `json:"url"`
}

// UpdatesScraper pulls official situation updates from a relief-web style
// listing page.
type UpdatesScraper struct {
	pageURL    string
	httpClient *http.Client
}

// ScraperOption configures an UpdatesScraper.
type ScraperOption func(*UpdatesScraper)

func WithScraperHTTPClient(c *http.Client) ScraperOption {
	return func(s *UpdatesScraper) { s.httpClient = c }
}

func NewUpdatesScraper(pageURL string, opts ...ScraperOption) *UpdatesScraper {
	s := &UpdatesScraper{
		pageURL:    pageURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Fetch scrapes the listing page. The markup contract is the teaser layout:
// each update sits in a div.col-md-6 under .dynamic-page-teaser-items, with
// .title and .date children and a link to the full article.
func (s *UpdatesScraper) Fetch(ctx context.Context) ([]OfficialUpdate, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build scrape request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "updates page unreachable")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, dErrors.New(dErrors.CodeUnavailable, fmt.Sprintf("updates page returned %d", resp.StatusCode))
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "parse updates page")
	}

	updates := make([]OfficialUpdate, 0)
	doc.Find(".dynamic-page-teaser-items.row div.col-md-6").Each(func(_ int, sel *goquery.Selection) {
		update := OfficialUpdate{
			Title: strings.TrimSpace(sel.Find(".title").First().Text()),
			Date:  strings.TrimSpace(sel.Find(".date").First().Text()),
		}
		if href, ok := sel.Find("a").First().Attr("href"); ok {
			update.URL = href
		}
		if update.Title != "" {
			updates = append(updates, update)
		}
	})
	return updates, nil
}

// FilterByKeywords keeps updates whose title contains any of the keywords,
// case-insensitive. An empty keyword set keeps everything.
func FilterByKeywords(updates []OfficialUpdate, keywords []string) []OfficialUpdate {
	if len(keywords) == 0 {
		return updates
	}
	filtered := make([]OfficialUpdate, 0, len(updates))
	for _, u := range updates {
		title := strings.ToLower(u.Title)
		for _, kw := range keywords {
			if strings.Contains(title, strings.ToLower(kw)) {
				filtered = append(filtered, u)
				break
			}
		}
	}
	return filtered
}
