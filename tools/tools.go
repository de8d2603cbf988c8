// Package tools dispatches model-requested tool invocations to their
// executors. The supported tools form a closed set: dispatch is a switch
// over typed argument structs, while the wire-level contract (name plus
// argument mapping) stays compatible with the model's function-calling
// schema.
package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sylviahq/sylvia/firecrawl"
	"github.com/sylviahq/sylvia/llm"
	"go.uber.org/zap"
)

const (
	ScrapeToolName = "firecrawl_scrape"
	CrawlToolName  = "firecrawl_crawl"
	MapToolName    = "firecrawl_map"
)

// ScrapeArgs are the arguments of the single-page extraction tool.
type ScrapeArgs struct {
	URL             string   `json:"url"`
	Formats         []string `json:"formats,omitempty"`
	OnlyMainContent *bool    `json:"onlyMainContent,omitempty"`
	Proxy           string   `json:"proxy,omitempty"`
}

// CrawlArgs are the arguments of the multi-page recursive extraction tool.
type CrawlArgs struct {
	URL     string   `json:"url"`
	Limit   int      `json:"limit,omitempty"`
	Formats []string `json:"formats,omitempty"`
	Proxy   string   `json:"proxy,omitempty"`
}

// MapArgs are the arguments of the site URL enumeration tool.
type MapArgs struct {
	URL    string `json:"url"`
	Search string `json:"search,omitempty"`
}

// Dispatcher executes tool invocations against the Firecrawl client.
type Dispatcher struct {
	fc     *firecrawl.Client
	logger *zap.Logger
}

func NewDispatcher(fc *firecrawl.Client, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{fc: fc, logger: logger}
}

// Declarations returns the tool schemas exposed to the model.
func (d *Dispatcher) Declarations() []llm.Tool {
	return []llm.Tool{
		{
			Name:        ScrapeToolName,
			Description: "Scrape a single webpage and extract its content. Returns markdown, HTML, or other specified formats.",
			Parameters: llm.JSONSchema{
				"type": "object",
				"properties": map[string]any{
					"url": map[string]any{
						"type":        "string",
						"description": "The URL to scrape (must be a valid HTTP/HTTPS URL)",
					},
					"formats": map[string]any{
						"type":        "array",
						"description": "Content formats to extract (markdown, html, links, screenshot)",
						"items":       map[string]any{"type": "string"},
					},
					"onlyMainContent": map[string]any{
						"type":        "boolean",
						"description": "Extract only main article content (default: true)",
					},
					"proxy": map[string]any{
						"type":        "string",
						"description": "Proxy type: 'basic' (fast, default), 'stealth' (anti-bot protection), or 'auto' (retry with stealth if basic fails)",
					},
				},
				"required": []string{"url"},
			},
		},
		{
			Name:        CrawlToolName,
			Description: "Crawl a website recursively to extract content from multiple pages. Useful for comprehensive site analysis.",
			Parameters: llm.JSONSchema{
				"type": "object",
				"properties": map[string]any{
					"url": map[string]any{
						"type":        "string",
						"description": "The starting URL to crawl (must be a valid HTTP/HTTPS URL)",
					},
					"limit": map[string]any{
						"type":        "number",
						"description": "Maximum number of pages to crawl (default: 10, max: 100)",
					},
					"formats": map[string]any{
						"type":        "array",
						"description": "Content formats to extract (markdown, html, links)",
						"items":       map[string]any{"type": "string"},
					},
					"proxy": map[string]any{
						"type":        "string",
						"description": "Proxy type: 'basic' (fast, default), 'stealth' (anti-bot protection), or 'auto' (retry with stealth if basic fails)",
					},
				},
				"required": []string{"url"},
			},
		},
		{
			Name:        MapToolName,
			Description: "Map a website to get all URLs extremely fast. Perfect for site discovery, link analysis, or choosing specific pages to scrape.",
			Parameters: llm.JSONSchema{
				"type": "object",
				"properties": map[string]any{
					"url": map[string]any{
						"type":        "string",
						"description": "The website URL to map (must be a valid HTTP/HTTPS URL)",
					},
					"search": map[string]any{
						"type":        "string",
						"description": "Optional: Search for specific URLs containing this term (e.g. 'docs', 'blog', 'api')",
					},
				},
				"required": []string{"url"},
			},
		},
	}
}

// Execute runs a single tool invocation and always produces a matching
// result: executor failures and unknown tool names become error results, not
// loop-fatal errors.
func (d *Dispatcher) Execute(ctx context.Context, call llm.ToolCallPart) llm.ToolResultPart {
	d.logger.Debug("executing tool",
		zap.String("tool_name", call.ToolName),
		zap.String("tool_call_id", call.ToolCallID))

	switch call.ToolName {
	case ScrapeToolName:
		var args ScrapeArgs
		if err := decodeArgs(call.Args, &args); err != nil {
			return errorResult(call, err)
		}
		if args.URL == "" {
			return errorResult(call, fmt.Errorf("url is required"))
		}
		resp, err := d.fc.Scrape(ctx, firecrawl.ScrapeRequest{
			URL:             args.URL,
			Formats:         args.Formats,
			OnlyMainContent: args.OnlyMainContent,
			Proxy:           args.Proxy,
		})
		if err != nil {
			return errorResult(call, err)
		}
		return successResult(call, map[string]any{
			"success":  true,
			"url":      args.URL,
			"content":  resp.Data,
			"metadata": resp.Metadata,
		})

	case CrawlToolName:
		var args CrawlArgs
		if err := decodeArgs(call.Args, &args); err != nil {
			return errorResult(call, err)
		}
		if args.URL == "" {
			return errorResult(call, fmt.Errorf("url is required"))
		}
		resp, err := d.fc.Crawl(ctx, firecrawl.CrawlRequest{
			URL:     args.URL,
			Limit:   args.Limit,
			Formats: args.Formats,
			Proxy:   args.Proxy,
		})
		if err != nil {
			return errorResult(call, err)
		}
		if resp.ID != "" {
			return successResult(call, map[string]any{
				"success": true,
				"jobId":   resp.ID,
				"status":  "processing",
				"message": "Crawl started. This is a background job that may take several minutes to complete.",
			})
		}
		return successResult(call, map[string]any{
			"success":     true,
			"url":         args.URL,
			"content":     resp.Data,
			"creditsUsed": resp.CreditsUsed,
			"total":       resp.Total,
		})

	case MapToolName:
		var args MapArgs
		if err := decodeArgs(call.Args, &args); err != nil {
			return errorResult(call, err)
		}
		if args.URL == "" {
			return errorResult(call, fmt.Errorf("url is required"))
		}
		resp, err := d.fc.Map(ctx, firecrawl.MapRequest{
			URL:    args.URL,
			Search: args.Search,
		})
		if err != nil {
			return errorResult(call, err)
		}
		return successResult(call, map[string]any{
			"success":    true,
			"url":        args.URL,
			"search":     args.Search,
			"totalLinks": len(resp.Links),
			"links":      resp.Links,
			"status":     resp.Status,
		})

	default:
		return errorResult(call, fmt.Errorf("unknown tool: %s", call.ToolName))
	}
}

// decodeArgs converts the wire-level argument mapping into a typed struct.
func decodeArgs(args map[string]any, v any) error {
	data, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("failed to encode tool args: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to decode tool args: %w", err)
	}
	return nil
}

func successResult(call llm.ToolCallPart, payload map[string]any) llm.ToolResultPart {
	data, err := json.Marshal(payload)
	if err != nil {
		return errorResult(call, fmt.Errorf("failed to encode tool result: %w", err))
	}
	return llm.ToolResultPart{
		ToolCallID: call.ToolCallID,
		ToolName:   call.ToolName,
		Content:    []llm.Part{llm.NewTextPart(string(data))},
	}
}

func errorResult(call llm.ToolCallPart, err error) llm.ToolResultPart {
	data, _ := json.Marshal(map[string]any{"error": err.Error()})
	return llm.ToolResultPart{
		ToolCallID: call.ToolCallID,
		ToolName:   call.ToolName,
		Content:    []llm.Part{llm.NewTextPart(string(data))},
		IsError:    true,
	}
}
