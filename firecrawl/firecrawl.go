// Package firecrawl is a client for the Firecrawl web-scraping API:
// single-page scrape, bounded recursive crawl, and fast site URL mapping.
package firecrawl

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/sylviahq/sylvia/internal/clientutils"
	"github.com/sylviahq/sylvia/utils/ptr"
)

const (
	defaultBaseURL = "https://api.firecrawl.dev"

	// MaxCrawlLimit caps recursive crawls regardless of what the caller asks
	// for.
	MaxCrawlLimit = 100

	// DefaultCrawlLimit applies when the caller does not specify a page count.
	DefaultCrawlLimit = 10
)

type ClientOptions struct {
	BaseURL    string
	HTTPClient *http.Client
}

type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewClient(apiKey string, options ClientOptions) *Client {
	baseURL := defaultBaseURL
	if options.BaseURL != "" {
		baseURL = options.BaseURL
	}
	client := options.HTTPClient
	if client == nil {
		client = &http.Client{}
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  client,
	}
}

type ScrapeRequest struct {
	URL             string   `json:"url"`
	Formats         []string `json:"formats,omitempty"`
	OnlyMainContent *bool    `json:"onlyMainContent,omitempty"`
	Proxy           string   `json:"proxy,omitempty"`
}

type ScrapeResponse struct {
	Success  bool            `json:"success"`
	Data     json.RawMessage `json:"data,omitempty"`
	Metadata json.RawMessage `json:"metadata,omitempty"`
}

// Scrape extracts content from a single page. Defaults: main content only,
// markdown format, basic proxy.
func (c *Client) Scrape(ctx context.Context, req ScrapeRequest) (*ScrapeResponse, error) {
	if len(req.Formats) == 0 {
		req.Formats = []string{"markdown"}
	}
	if req.OnlyMainContent == nil {
		req.OnlyMainContent = ptr.To(true)
	}
	if req.Proxy == "" {
		req.Proxy = "basic"
	}

	return clientutils.DoJSON[ScrapeResponse](ctx, c.client, clientutils.JSONRequestConfig{
		URL:     c.baseURL + "/v1/scrape",
		Headers: c.headers(),
		Body:    req,
	})
}

type CrawlRequest struct {
	URL     string   `json:"url"`
	Limit   int      `json:"limit,omitempty"`
	Formats []string `json:"-"`
	Proxy   string   `json:"proxy,omitempty"`
}

type crawlRequestBody struct {
	URL           string             `json:"url"`
	Limit         int                `json:"limit"`
	Proxy         string             `json:"proxy,omitempty"`
	ScrapeOptions crawlScrapeOptions `json:"scrapeOptions"`
}

type crawlScrapeOptions struct {
	Formats []string `json:"formats"`
}

type CrawlResponse struct {
	Success     bool            `json:"success"`
	ID          string          `json:"id,omitempty"`
	Status      string          `json:"status,omitempty"`
	Data        json.RawMessage `json:"data,omitempty"`
	CreditsUsed int             `json:"creditsUsed,omitempty"`
	Total       int             `json:"total,omitempty"`
	Completed   int             `json:"completed,omitempty"`
}

// Crawl starts a recursive crawl from the given URL. The page limit is
// clamped to MaxCrawlLimit. A response carrying an ID denotes an async job.
func (c *Client) Crawl(ctx context.Context, req CrawlRequest) (*CrawlResponse, error) {
	limit := req.Limit
	if limit <= 0 {
		limit = DefaultCrawlLimit
	}
	if limit > MaxCrawlLimit {
		limit = MaxCrawlLimit
	}
	formats := req.Formats
	if len(formats) == 0 {
		formats = []string{"markdown"}
	}
	proxy := req.Proxy
	if proxy == "" {
		proxy = "basic"
	}

	return clientutils.DoJSON[CrawlResponse](ctx, c.client, clientutils.JSONRequestConfig{
		URL:     c.baseURL + "/v1/crawl",
		Headers: c.headers(),
		Body: crawlRequestBody{
			URL:           req.URL,
			Limit:         limit,
			Proxy:         proxy,
			ScrapeOptions: crawlScrapeOptions{Formats: formats},
		},
	})
}

type MapRequest struct {
	URL    string `json:"url"`
	Search string `json:"search,omitempty"`
}

type MapResponse struct {
	Success bool     `json:"success"`
	Status  string   `json:"status,omitempty"`
	Links   []string `json:"links,omitempty"`
}

// Map enumerates a site's URLs, optionally filtered by a search term.
func (c *Client) Map(ctx context.Context, req MapRequest) (*MapResponse, error) {
	return clientutils.DoJSON[MapResponse](ctx, c.client, clientutils.JSONRequestConfig{
		URL:     c.baseURL + "/v1/map",
		Headers: c.headers(),
		Body:    req,
	})
}

func (c *Client) headers() map[string]string {
	return map[string]string{
		"Authorization": "Bearer " + c.apiKey,
	}
}
