// Package fetcher downloads a web page and extracts its article text.
package fetcher

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-shiori/go-readability"
	"golang.org/x/net/html"
)

const (
	fetchTimeout = 30 * time.Second
	maxBodySize  = 5 * 1024 * 1024
)

// ErrNoContent is returned when no readable paragraphs were found.
var ErrNoContent = errors.New("no text content found")

// Page is the readable part of a fetched article
type Page struct {
	URL        string
	Title      string
	Byline     string
	SiteName   string
	Paragraphs []string
}

// Fetcher retrieves pages over HTTP
type Fetcher struct {
	client *http.Client
}

// New returns a Fetcher. A nil client gets a 30s timeout.
func New(client *http.Client) *Fetcher {
	if client == nil {
		client = &http.Client{Timeout: fetchTimeout}
	}
	return &Fetcher{client: client}
}

// Fetch retrieves a page with the default client
func Fetch(ctx context.Context, rawURL string) (*Page, error) {
	return New(nil).Fetch(ctx, rawURL)
}

// Fetch retrieves URL content and extracts the article paragraphs
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Page, error) {
	u, err := normalizeURL(rawURL)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "ace/1.0 (reading-trainer)")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
	}

	// read one byte past the cap to tell a full page from a truncated one
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if len(body) > maxBodySize {
		return nil, fmt.Errorf("page exceeds %d bytes", maxBodySize)
	}

	article, err := readability.FromReader(bytes.NewReader(body), u)
	if err != nil {
		return nil, fmt.Errorf("extract article: %w", err)
	}

	paragraphs := extractParagraphs(article.Content)
	if len(paragraphs) == 0 {
		paragraphs = splitText(article.TextContent)
	}
	if len(paragraphs) == 0 {
		return nil, ErrNoContent
	}

	return &Page{
		URL:        u.String(),
		Title:      strings.TrimSpace(article.Title),
		Byline:     strings.TrimSpace(article.Byline),
		SiteName:   strings.TrimSpace(article.SiteName),
		Paragraphs: paragraphs,
	}, nil
}

// IsURL checks if a string looks like a URL
func IsURL(s string) bool {
	s = strings.TrimSpace(s)
	return strings.HasPrefix(s, "http://") ||
		strings.HasPrefix(s, "https://") ||
		strings.HasPrefix(s, "www.")
}

func normalizeURL(rawURL string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme == "" {
		u, err = url.Parse("https://" + strings.TrimSpace(rawURL))
		if err != nil {
			return nil, fmt.Errorf("invalid URL: %w", err)
		}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("invalid URL: missing host")
	}
	return u, nil
}

// extractParagraphs returns the text of each block-level paragraph in
// htmlContent, whitespace-collapsed.
func extractParagraphs(htmlContent string) []string {
	if strings.TrimSpace(htmlContent) == "" {
		return nil
	}
	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return nil
	}

	skipTags := map[string]bool{
		"script": true, "style": true, "nav": true,
		"header": true, "footer": true, "aside": true,
		"noscript": true, "iframe": true, "figure": true,
	}
	blockTags := map[string]bool{
		"p": true, "li": true, "blockquote": true,
		"h2": true, "h3": true,
	}

	var paragraphs []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if skipTags[n.Data] {
				return
			}
			if blockTags[n.Data] {
				if text := nodeText(n); text != "" {
					paragraphs = append(paragraphs, text)
				}
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return paragraphs
}

func nodeText(n *html.Node) string {
	var sb strings.Builder
	var collect func(*html.Node)
	collect = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
			return
		}
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
			sb.WriteString(" ")
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			collect(c)
		}
	}
	collect(n)
	return collapse(sb.String())
}

// splitText breaks plain text on blank lines.
func splitText(text string) []string {
	var out []string
	for _, block := range strings.Split(text, "\n\n") {
		if s := collapse(block); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func collapse(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	// inline tags leave a space before punctuation
	for _, p := range []string{".", ",", ";", ":", "!", "?"} {
		s = strings.ReplaceAll(s, " "+p, p)
	}
	return s
}
