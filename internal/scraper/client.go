package scraper

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html/charset"
)

const (
	defaultTimeout = 30 * time.Second
	maxBodyBytes   = 20 << 20
)

type client struct {
	http      *http.Client
	userAgent string
	logger    *slog.Logger
}

func newClient(userAgent string, timeout time.Duration, logger *slog.Logger) *client {
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &client{
		http:      &http.Client{Timeout: timeout},
		userAgent: userAgent,
		logger:    logger,
	}
}

type page struct {
	URL         string
	ContentType string
	Body        []byte
}

// get fetches rawURL and returns the raw body. Non-2xx responses are errors.
func (c *client) get(ctx context.Context, rawURL string) (*page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("scraper: build request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/gpx+xml,application/xml;q=0.9,*/*;q=0.8")

	c.logger.Debug("scraper: GET", slog.String("url", rawURL))
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("scraper: GET %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("scraper: GET %s: status %d", rawURL, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("scraper: read %s: %w", rawURL, err)
	}
	return &page{
		URL:         resp.Request.URL.String(),
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
	}, nil
}

// htmlReader decodes the page body to UTF-8 using the declared or sniffed charset.
func (p *page) htmlReader() (io.Reader, error) {
	r, err := charset.NewReader(bytes.NewReader(p.Body), p.ContentType)
	if err != nil {
		return nil, fmt.Errorf("scraper: decode %s: %w", p.URL, err)
	}
	return r, nil
}

// isGPX reports whether the page is a GPX document rather than HTML.
func (p *page) isGPX() bool {
	ct := strings.ToLower(p.ContentType)
	if strings.Contains(ct, "gpx") {
		return true
	}
	head := p.Body
	if len(head) > 512 {
		head = head[:512]
	}
	return bytes.Contains(head, []byte("<gpx"))
}
