package intel

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"
)

const (
	wpPerPage  = 20
	wpMaxPages = 5
)

type wpPost struct {
	ID    int    `json:"id"`
	Date  string `json:"date"`
	Link  string `json:"link"`
	Title struct {
		Rendered string `json:"rendered"`
	} `json:"title"`
	Content struct {
		Rendered string `json:"rendered"`
	} `json:"content"`
	Excerpt struct {
		Rendered string `json:"rendered"`
	} `json:"excerpt"`
}

// wpEndpoint returns the posts endpoint for a site root or an explicit
// wp-json URL.
func wpEndpoint(base *url.URL) string {
	if strings.Contains(base.Path, "wp-json") {
		return base.String()
	}
	u := *base
	u.Path = strings.TrimRight(u.Path, "/") + "/wp-json/wp/v2/posts"
	u.RawQuery = ""
	return u.String()
}

func parseWPDate(s string) *time.Time {
	// The REST API omits the zone on "date"; it is site-local time.
	t, err := time.Parse("2006-01-02T15:04:05", s)
	if err != nil {
		return nil
	}
	return &t
}

// crawlWordPress pages through /wp-json/wp/v2/posts. The API answers 400 past
// the last page, so an error after the first page ends pagination.
func (c *Crawler) crawlWordPress(ctx context.Context, src Source, base *url.URL, coll *colly.Collector, retries int) ([]Article, error) {
	endpoint := wpEndpoint(base)
	limit := src.MaxArticles

	var (
		articles  []Article
		page      []wpPost
		decodeErr error
	)
	coll.OnResponse(func(r *colly.Response) {
		page = nil
		decodeErr = json.Unmarshal(r.Body, &page)
	})

	for n := 1; n <= wpMaxPages; n++ {
		target := fmt.Sprintf("%s?page=%d&per_page=%d", endpoint, n, wpPerPage)
		if err := c.visit(ctx, coll, target, retries); err != nil {
			if n == 1 {
				return nil, fmt.Errorf("source %s: fetch posts: %w", src.ID, err)
			}
			break
		}
		if decodeErr != nil {
			if n == 1 {
				return nil, fmt.Errorf("source %s: decode posts: %w", src.ID, decodeErr)
			}
			c.Logger.Warn("undecodable posts page", zap.String("source", src.ID), zap.Int("page", n), zap.Error(decodeErr))
			break
		}
		for _, p := range page {
			headline := PlainText(p.Title.Rendered)
			if headline == "" || p.Link == "" {
				continue
			}
			body := PlainText(p.Content.Rendered)
			summary := clip(PlainText(p.Excerpt.Rendered), summaryLimit)
			if summary == "" {
				summary = clip(body, summaryLimit)
			}
			articles = append(articles, Article{
				SourceID:     src.ID,
				CompetitorID: src.CompetitorID,
				Competitor:   src.Competitor,
				Headline:     headline,
				URL:          p.Link,
				Date:         parseWPDate(p.Date),
				Summary:      summary,
				Body:         body,
			})
			if limit > 0 && len(articles) >= limit {
				return articles, nil
			}
		}
		if len(page) < wpPerPage {
			break
		}
	}
	return articles, nil
}
