package firecrawl_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sylviahq/sylvia/firecrawl"
	"github.com/sylviahq/sylvia/internal/clientutils"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *firecrawl.Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return firecrawl.NewClient("key", firecrawl.ClientOptions{BaseURL: server.URL})
}

func TestCrawlDefaultsLimitAndScrapeOptions(t *testing.T) {
	var body map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(`{"success":true}`))
	})

	_, err := c.Crawl(context.Background(), firecrawl.CrawlRequest{URL: "https://example.com"})
	if err != nil {
		t.Fatalf("Crawl: %v", err)
	}

	if body["limit"] != 10.0 {
		t.Errorf("expected default limit 10, got %v", body["limit"])
	}
	opts, _ := body["scrapeOptions"].(map[string]any)
	formats, _ := opts["formats"].([]any)
	if len(formats) != 1 || formats[0] != "markdown" {
		t.Errorf("expected scrapeOptions.formats [markdown], got %v", opts)
	}
}

func TestScrapeSurfacesHTTPError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"invalid url"}`, http.StatusBadRequest)
	})

	_, err := c.Scrape(context.Background(), firecrawl.ScrapeRequest{URL: "nope"})
	var httpErr *clientutils.HTTPError
	if !errors.As(err, &httpErr) || httpErr.Status != http.StatusBadRequest {
		t.Fatalf("expected a 400 HTTP error, got %v", err)
	}
}
