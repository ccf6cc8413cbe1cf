// Package intel gathers market intelligence about competitors: it crawls
// their news pages into web intel records and turns permit PDFs into leads.
package intel

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/david/court-scout/internal/dates"
)

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Article is one post found on a competitor's listing page.
type Article struct {
	SourceID     string     `json:"source_id"`
	CompetitorID string     `json:"competitor_id"`
	Competitor   string     `json:"competitor"`
	Headline     string     `json:"headline"`
	URL          string     `json:"url"`
	Date         *time.Time `json:"date,omitempty"`
	Summary      string     `json:"summary"`
	Body         string     `json:"-"`
}

// Crawler fetches listing and detail pages with colly.
type Crawler struct {
	UserAgent     string
	Timeout       time.Duration
	Delay         time.Duration
	MaxRetries    int
	MaxBodySize   int
	RespectRobots bool
	Logger        *zap.Logger
}

func NewCrawler(logger *zap.Logger) *Crawler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Crawler{
		UserAgent:   defaultUserAgent,
		Timeout:     30 * time.Second,
		Delay:       1 * time.Second,
		MaxRetries:  2,
		MaxBodySize: 10 * 1024 * 1024, // 10MB
		Logger:      logger,
	}
}

func (c *Crawler) collector(ctx context.Context, src Source, host string) (*colly.Collector, error) {
	coll := colly.NewCollector(
		colly.UserAgent(c.UserAgent),
		colly.MaxBodySize(c.MaxBodySize),
		colly.AllowedDomains(host),
		colly.AllowURLRevisit(),
		colly.DetectCharset(),
		colly.StdlibContext(ctx),
	)
	coll.IgnoreRobotsTxt = !c.RespectRobots

	delay := c.Delay
	if src.Fetch.RateLimitRPS > 0 {
		delay = time.Duration(float64(time.Second) / src.Fetch.RateLimitRPS)
	}
	if err := coll.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: 1,
		Delay:       delay,
		RandomDelay: delay / 2,
	}); err != nil {
		return nil, fmt.Errorf("rate limit: %w", err)
	}

	timeout := c.Timeout
	if src.Fetch.TimeoutSeconds > 0 {
		timeout = time.Duration(src.Fetch.TimeoutSeconds) * time.Second
	}
	coll.SetRequestTimeout(timeout)
	return coll, nil
}

// visit retries a synchronous colly visit with a linear backoff.
func (c *Crawler) visit(ctx context.Context, coll *colly.Collector, target string, retries int) error {
	var err error
	for attempt := 0; attempt <= retries; attempt++ {
		if attempt > 0 {
			c.Logger.Debug("retrying fetch", zap.String("url", target), zap.Int("attempt", attempt), zap.Error(err))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt) * time.Second):
			}
		}
		if err = coll.Visit(target); err == nil {
			return nil
		}
	}
	return err
}

// Crawl reads the source's listing page and, when detail scraping is on,
// each article it links to. A failed listing fetch is an error; a failed
// detail fetch only leaves that article without a body.
func (c *Crawler) Crawl(ctx context.Context, src Source) ([]Article, error) {
	base, err := url.Parse(src.BaseURL)
	if err != nil || base.Host == "" {
		return nil, fmt.Errorf("source %s: invalid base url %q", src.ID, src.BaseURL)
	}
	list, err := c.collector(ctx, src, base.Hostname())
	if err != nil {
		return nil, err
	}
	retries := c.MaxRetries
	if src.Fetch.MaxRetries > 0 {
		retries = src.Fetch.MaxRetries
	}
	if src.Kind == KindWordPress {
		return c.crawlWordPress(ctx, src, base, list, retries)
	}

	var articles []Article
	seen := map[string]bool{}
	sel := src.Selectors

	list.OnHTML(sel.Container, func(e *colly.HTMLElement) {
		if src.MaxArticles > 0 && len(articles) >= src.MaxArticles {
			return
		}
		headline := firstText(e.DOM, sel.Title)
		var link string
		if sel.Link == "" || sel.Link == "." {
			link = e.Attr("href")
		} else {
			link, _ = e.DOM.Find(sel.Link).First().Attr("href")
		}
		link = strings.TrimSpace(link)
		if headline == "" || link == "" {
			return
		}
		abs := e.Request.AbsoluteURL(link)
		if abs == "" || seen[abs] {
			return
		}
		seen[abs] = true

		a := Article{
			SourceID:     src.ID,
			CompetitorID: src.CompetitorID,
			Competitor:   src.Competitor,
			Headline:     headline,
			URL:          abs,
		}
		if sel.Date != "" {
			a.Date = dateFrom(e.DOM.Find(sel.Date).First())
		}
		if sel.Content != "" {
			if html, err := e.DOM.Find(sel.Content).First().Html(); err == nil {
				a.Summary = clip(PlainText(html), summaryLimit)
			}
		}
		articles = append(articles, a)
	})
	list.OnRequest(func(r *colly.Request) {
		c.Logger.Debug("visiting", zap.String("source", src.ID), zap.String("url", r.URL.String()))
	})

	if err := c.visit(ctx, list, base.String(), retries); err != nil {
		return nil, fmt.Errorf("source %s: fetch listing: %w", src.ID, err)
	}

	if !src.Detail.Enabled || len(articles) == 0 {
		return articles, nil
	}

	detail := list.Clone()
	var current *Article
	detail.OnResponse(func(r *colly.Response) {
		if current == nil {
			return
		}
		doc, err := goquery.NewDocumentFromReader(bytes.NewReader(r.Body))
		if err != nil {
			c.Logger.Warn("parse detail page", zap.String("url", current.URL), zap.Error(err))
			return
		}
		fillDetail(current, doc, src.Detail)
	})
	for i := range articles {
		if err := ctx.Err(); err != nil {
			return articles, err
		}
		current = &articles[i]
		if err := c.visit(ctx, detail, current.URL, retries); err != nil {
			c.Logger.Warn("detail fetch failed", zap.String("source", src.ID), zap.String("url", current.URL), zap.Error(err))
		}
	}
	return articles, nil
}

func fillDetail(a *Article, doc *goquery.Document, cfg DetailConfig) {
	body := doc.Selection
	if cfg.Body != "" {
		if found := doc.Find(cfg.Body).First(); found.Length() > 0 {
			body = found
		}
	}
	if html, err := body.Html(); err == nil {
		a.Body = PlainText(html)
	}
	if a.Summary == "" {
		a.Summary = clip(PlainText(firstHTML(body, "p")), summaryLimit)
	}
	if a.Date == nil {
		if d := dateFrom(doc.Find("time").First()); d != nil {
			a.Date = d
		} else if t := dates.Find(a.Body); !t.IsZero() {
			a.Date = &t
		}
	}
}

// dateFrom prefers a machine-readable datetime attribute over the visible text.
func dateFrom(s *goquery.Selection) *time.Time {
	if s.Length() == 0 {
		return nil
	}
	if attr, ok := s.Attr("datetime"); ok {
		if t := dates.Find(attr); !t.IsZero() {
			return &t
		}
	}
	if t := dates.Find(s.Text()); !t.IsZero() {
		return &t
	}
	return nil
}

func firstText(s *goquery.Selection, selector string) string {
	if selector == "" {
		return normalizeSpace(s.Text())
	}
	return normalizeSpace(s.Find(selector).First().Text())
}

func firstHTML(s *goquery.Selection, selector string) string {
	html, _ := s.Find(selector).First().Html()
	return html
}
