package tools_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sylviahq/sylvia/firecrawl"
	"github.com/sylviahq/sylvia/llm"
	"github.com/sylviahq/sylvia/tools"
)

func newTestDispatcher(t *testing.T, handler http.HandlerFunc) *tools.Dispatcher {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	fc := firecrawl.NewClient("test-key", firecrawl.ClientOptions{BaseURL: server.URL})
	return tools.NewDispatcher(fc, nil)
}

func resultText(t *testing.T, result llm.ToolResultPart) string {
	t.Helper()
	if len(result.Content) == 0 || result.Content[0].TextPart == nil {
		t.Fatalf("expected a text result, got %+v", result)
	}
	return result.Content[0].TextPart.Text
}

func TestExecuteScrapeAppliesDefaults(t *testing.T) {
	var body map[string]any
	d := newTestDispatcher(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/scrape" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("unexpected auth header %q", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(`{"success":true,"data":{"markdown":"# hi"}}`))
	})

	result := d.Execute(context.Background(), llm.ToolCallPart{
		ToolCallID: "c1",
		ToolName:   tools.ScrapeToolName,
		Args:       map[string]any{"url": "https://example.com"},
	})

	if result.IsError {
		t.Fatalf("unexpected error result: %s", resultText(t, result))
	}
	if result.ToolCallID != "c1" || result.ToolName != tools.ScrapeToolName {
		t.Errorf("result not matched to call: %+v", result)
	}

	formats, _ := body["formats"].([]any)
	if len(formats) != 1 || formats[0] != "markdown" {
		t.Errorf("expected default formats [markdown], got %v", body["formats"])
	}
	if body["onlyMainContent"] != true {
		t.Errorf("expected onlyMainContent default true, got %v", body["onlyMainContent"])
	}
	if body["proxy"] != "basic" {
		t.Errorf("expected proxy default basic, got %v", body["proxy"])
	}
	if !strings.Contains(resultText(t, result), `"success":true`) {
		t.Errorf("unexpected result payload %q", resultText(t, result))
	}
}

func TestExecuteScrapeHonorsExplicitOptions(t *testing.T) {
	var body map[string]any
	d := newTestDispatcher(t, func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(`{"success":true}`))
	})

	d.Execute(context.Background(), llm.ToolCallPart{
		ToolCallID: "c1",
		ToolName:   tools.ScrapeToolName,
		Args: map[string]any{
			"url":             "https://example.com",
			"formats":         []any{"html"},
			"onlyMainContent": false,
			"proxy":           "stealth",
		},
	})

	formats, _ := body["formats"].([]any)
	if len(formats) != 1 || formats[0] != "html" {
		t.Errorf("expected formats [html], got %v", body["formats"])
	}
	if body["onlyMainContent"] != false {
		t.Errorf("expected onlyMainContent false, got %v", body["onlyMainContent"])
	}
	if body["proxy"] != "stealth" {
		t.Errorf("expected proxy stealth, got %v", body["proxy"])
	}
}

func TestExecuteCrawlClampsLimit(t *testing.T) {
	var body map[string]any
	d := newTestDispatcher(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/crawl" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(`{"success":true,"id":"job-1"}`))
	})

	result := d.Execute(context.Background(), llm.ToolCallPart{
		ToolCallID: "c2",
		ToolName:   tools.CrawlToolName,
		Args:       map[string]any{"url": "https://example.com", "limit": 500.0},
	})

	if body["limit"] != 100.0 {
		t.Errorf("expected limit clamped to 100, got %v", body["limit"])
	}
	if !strings.Contains(resultText(t, result), `"jobId":"job-1"`) {
		t.Errorf("expected async job id in result, got %q", resultText(t, result))
	}
}

func TestExecuteMapPassesSearch(t *testing.T) {
	var body map[string]any
	d := newTestDispatcher(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/map" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(`{"success":true,"links":["https://example.com/docs"]}`))
	})

	result := d.Execute(context.Background(), llm.ToolCallPart{
		ToolCallID: "c3",
		ToolName:   tools.MapToolName,
		Args:       map[string]any{"url": "https://example.com", "search": "docs"},
	})

	if body["search"] != "docs" {
		t.Errorf("expected search passthrough, got %v", body["search"])
	}
	if !strings.Contains(resultText(t, result), `"totalLinks":1`) {
		t.Errorf("unexpected result %q", resultText(t, result))
	}
}

func TestExecuteUnknownToolReturnsErrorResult(t *testing.T) {
	d := newTestDispatcher(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected for an unknown tool")
	})

	result := d.Execute(context.Background(), llm.ToolCallPart{
		ToolCallID: "c4",
		ToolName:   "firecrawl_extract",
	})

	if !result.IsError {
		t.Fatal("expected an error result")
	}
	if result.ToolCallID != "c4" || result.ToolName != "firecrawl_extract" {
		t.Errorf("result not matched to call: %+v", result)
	}
	if !strings.Contains(resultText(t, result), "unknown tool") {
		t.Errorf("unexpected error payload %q", resultText(t, result))
	}
}

func TestExecuteMissingURLReturnsErrorResult(t *testing.T) {
	d := newTestDispatcher(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected without a url")
	})

	for _, name := range []string{tools.ScrapeToolName, tools.CrawlToolName, tools.MapToolName} {
		result := d.Execute(context.Background(), llm.ToolCallPart{
			ToolCallID: "c5",
			ToolName:   name,
			Args:       map[string]any{},
		})
		if !result.IsError {
			t.Errorf("%s: expected an error result", name)
		}
	}
}

func TestDeclarationsCoverTheClosedSet(t *testing.T) {
	d := tools.NewDispatcher(nil, nil)
	decls := d.Declarations()
	if len(decls) != 3 {
		t.Fatalf("expected 3 declarations, got %d", len(decls))
	}
	names := map[string]bool{}
	for _, decl := range decls {
		names[decl.Name] = true
		if decl.Parameters["type"] != "object" {
			t.Errorf("%s: parameters must be an object schema", decl.Name)
		}
	}
	for _, want := range []string{tools.ScrapeToolName, tools.CrawlToolName, tools.MapToolName} {
		if !names[want] {
			t.Errorf("missing declaration %s", want)
		}
	}
}
