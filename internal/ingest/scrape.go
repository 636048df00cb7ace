package ingest

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	readability "github.com/go-shiori/go-readability"
	"github.com/gocolly/colly/v2"

	"github.com/companyq/companyq/internal/knowledge"
	"github.com/companyq/companyq/internal/log"
)

// Scraper crawls a website and extracts readable text from each page.
// The crawl is restricted to the starting host and a shallow depth; each
// fetched page goes through readability extraction to strip navigation,
// scripts, and boilerplate before preprocessing.
type Scraper struct {
	maxDepth    int
	parallelism int
	delay       time.Duration
	timeout     time.Duration
	logger      log.Logger
}

// NewScraper returns a Scraper with conservative crawl settings: depth 2,
// two parallel fetches, and a polite inter-request delay.
func NewScraper(logger log.Logger) *Scraper {
	return &Scraper{
		maxDepth:    2,
		parallelism: 2,
		delay:       500 * time.Millisecond,
		timeout:     30 * time.Second,
		logger:      logger,
	}
}

// Scrape crawls siteURL and returns one document per page with extractable
// content. Pages that fail to fetch or yield no readable text are logged and
// skipped; the crawl only fails as a whole when the start URL is unreachable
// or nothing at all could be extracted.
func (s *Scraper) Scrape(ctx context.Context, siteURL string) ([]knowledge.Document, error) {
	parsed, err := url.Parse(siteURL)
	if err != nil {
		return nil, fmt.Errorf("parsing site URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("site URL must be http or https, got %q", parsed.Scheme)
	}

	c := colly.NewCollector(
		colly.AllowedDomains(parsed.Hostname()),
		colly.MaxDepth(s.maxDepth),
		colly.Async(true),
	)
	c.SetRequestTimeout(s.timeout)
	if err := c.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: s.parallelism,
		Delay:       s.delay,
	}); err != nil {
		return nil, fmt.Errorf("configuring crawl limits: %w", err)
	}

	var (
		mu   sync.Mutex
		docs []knowledge.Document
		seen = make(map[string]bool)
	)

	c.OnRequest(func(r *colly.Request) {
		if ctx.Err() != nil {
			r.Abort()
		}
	})

	c.OnHTML("a[href]", func(e *colly.HTMLElement) {
		// Visit dedupes already-seen URLs internally.
		_ = e.Request.Visit(e.Request.AbsoluteURL(e.Attr("href")))
	})

	c.OnResponse(func(r *colly.Response) {
		if !strings.Contains(r.Headers.Get("Content-Type"), "text/html") {
			return
		}

		pageURL := r.Request.URL
		article, err := readability.FromReader(bytes.NewReader(r.Body), pageURL)
		if err != nil {
			s.logger.Warn("readability extraction failed", "url", pageURL.String(), "error", err)
			return
		}

		text := Preprocess(article.TextContent)
		if text == "" {
			return
		}

		mu.Lock()
		defer mu.Unlock()
		if seen[pageURL.String()] {
			return
		}
		seen[pageURL.String()] = true
		docs = append(docs, knowledge.Document{
			Content: text,
			Metadata: map[string]string{
				"source": pageURL.String(),
				"type":   "website",
				"title":  article.Title,
			},
		})
	})

	c.OnError(func(r *colly.Response, err error) {
		s.logger.Warn("page fetch failed", "url", r.Request.URL.String(), "error", err)
	})

	if err := c.Visit(siteURL); err != nil {
		return nil, fmt.Errorf("starting crawl of %s: %w", siteURL, err)
	}
	c.Wait()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("crawl canceled: %w", err)
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("no readable content found at %s", siteURL)
	}

	s.logger.Info("website scraped", "url", siteURL, "pages", len(docs))
	return docs, nil
}
