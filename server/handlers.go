package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sylviahq/sylvia/agent"
	"github.com/sylviahq/sylvia/firecrawl"
	"github.com/sylviahq/sylvia/highway"
	"github.com/sylviahq/sylvia/internal/tracing"
	"github.com/sylviahq/sylvia/llm"
	"github.com/sylviahq/sylvia/utils/ptr"
	"github.com/sylviahq/sylvia/utils/stream"
	"go.uber.org/zap"
)

const publishTimeout = 5 * time.Second

type filePayload struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type agentConfig struct {
	SystemInstruction string `json:"systemInstruction"`
}

type chatRequest struct {
	Prompt      string        `json:"prompt"`
	File        *filePayload  `json:"file,omitempty"`
	Messages    []llm.Message `json:"messages,omitempty"`
	AgentConfig *agentConfig  `json:"agentConfig,omitempty"`
	SessionID   string        `json:"sessionId,omitempty"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Prompt) == "" && req.File == nil {
		writeError(w, http.StatusBadRequest, "prompt or file is required")
		return
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = highway.NewSessionID()
	}
	instructions := s.instructions
	if req.AgentConfig != nil && req.AgentConfig.SystemInstruction != "" {
		instructions = req.AgentConfig.SystemInstruction
	}

	runReq := agent.Request{
		Prompt:       req.Prompt,
		History:      req.Messages,
		Instructions: instructions,
		SessionID:    sessionID,
	}
	if req.File != nil {
		runReq.Attachment = &agent.Attachment{
			MimeType: req.File.MimeType,
			Data:     req.File.Data,
		}
	}

	answer, err := s.loop.Run(r.Context(), runReq)
	if err != nil {
		if errors.Is(err, agent.ErrEmptyRequest) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.logger.Error("chat run failed", zap.String("session_id", sessionID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "chat generation failed")
		return
	}

	full := s.streamText(w, answer, sessionID)
	if full == "" {
		return
	}

	s.publishDetached(func(ctx context.Context) {
		record, err := highway.NewRecord(MainAgentID, "conversation", map[string]string{
			"prompt":   req.Prompt,
			"response": full,
		}, sessionID, highway.PriorityBackground)
		if err != nil {
			s.logger.Warn("failed to build conversation record", zap.Error(err))
			return
		}
		s.hw.Publish(ctx, record)
	})
}

type visionRequest struct {
	ImageData  string `json:"imageData"`
	MimeType   string `json:"mimeType,omitempty"`
	Prompt     string `json:"prompt"`
	TokenLimit int    `json:"tokenLimit,omitempty"`
	SessionID  string `json:"sessionId,omitempty"`
}

func (s *Server) handleVisionAnalysis(w http.ResponseWriter, r *http.Request) {
	var req visionRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.ImageData == "" || strings.TrimSpace(req.Prompt) == "" {
		writeError(w, http.StatusBadRequest, "imageData and prompt are required")
		return
	}
	mimeType := req.MimeType
	if mimeType == "" {
		mimeType = "image/jpeg"
	}
	tokenLimit := req.TokenLimit
	if tokenLimit <= 0 {
		tokenLimit = 50
	}

	input := &llm.LanguageModelInput{
		Messages: []llm.Message{
			llm.NewUserMessage(
				llm.NewTextPart(req.Prompt),
				llm.NewFilePart(mimeType, req.ImageData),
			),
		},
		MaxTokens: ptr.To(int64(tokenLimit)),
	}
	response, err := tracing.TraceGenerate(r.Context(), string(s.visionModel.Provider()), s.visionModel.ModelID(), func(ctx context.Context) (*llm.ModelResponse, error) {
		return s.visionModel.Generate(ctx, input)
	})
	if err != nil {
		s.logger.Error("vision analysis failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "vision analysis failed")
		return
	}

	analysis := response.Text()
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(analysis))

	if req.SessionID != "" {
		s.publishDetached(func(ctx context.Context) {
			record, err := highway.NewRecord(VisionAgentID, agent.VisionContextType, map[string]string{
				"analysis": analysis,
				"prompt":   req.Prompt,
			}, req.SessionID, highway.PriorityUrgent)
			if err != nil {
				s.logger.Warn("failed to build vision record", zap.Error(err))
				return
			}
			s.hw.Publish(ctx, record)
		})
	}
}

type auxiliaryRequest struct {
	Prompt  string `json:"prompt"`
	Context string `json:"context,omitempty"`
}

func (s *Server) handleAuxiliaryChat(w http.ResponseWriter, r *http.Request) {
	var req auxiliaryRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		writeError(w, http.StatusBadRequest, "prompt is required")
		return
	}

	answer, err := s.auxLoop.Run(r.Context(), agent.Request{
		Prompt:       req.Prompt,
		Instructions: req.Context,
	})
	if err != nil {
		s.logger.Error("auxiliary chat failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "auxiliary chat failed")
		return
	}
	s.streamText(w, answer, "")
}

// streamText writes the answer chunks as a flushed text/plain body and
// returns the concatenated text. A stream that errors before the first chunk
// becomes a 500; once flushing has begun the stream simply terminates.
func (s *Server) streamText(w http.ResponseWriter, answer *stream.Stream[string], sessionID string) string {
	flusher, _ := w.(http.Flusher)

	var full strings.Builder
	flushed := false
	for answer.Next() {
		chunk := answer.Current()
		if !flushed {
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			w.WriteHeader(http.StatusOK)
			flushed = true
		}
		_, _ = w.Write([]byte(chunk))
		if flusher != nil {
			flusher.Flush()
		}
		full.WriteString(chunk)
	}
	if err := answer.Err(); err != nil {
		s.logger.Error("answer stream failed",
			zap.String("session_id", sessionID),
			zap.Bool("flushed", flushed),
			zap.Error(err))
		if !flushed {
			writeError(w, http.StatusInternalServerError, "chat generation failed")
		}
		return ""
	}
	return full.String()
}

// publishDetached runs the publish off the request goroutine with its own
// deadline. The request does not wait for, or learn about, the outcome.
func (s *Server) publishDetached(fn func(ctx context.Context)) {
	if s.hw == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()
		fn(ctx)
	}()
}

type scrapeBody struct {
	URL             string   `json:"url"`
	Formats         []string `json:"formats,omitempty"`
	OnlyMainContent *bool    `json:"onlyMainContent,omitempty"`
	Proxy           string   `json:"proxy,omitempty"`
}

func (s *Server) handleScrape(w http.ResponseWriter, r *http.Request) {
	var body scrapeBody
	if !decodeBody(w, r, &body) {
		return
	}
	if body.URL == "" {
		writeError(w, http.StatusBadRequest, "url is required")
		return
	}
	resp, err := s.fc.Scrape(r.Context(), firecrawl.ScrapeRequest{
		URL:             body.URL,
		Formats:         body.Formats,
		OnlyMainContent: body.OnlyMainContent,
		Proxy:           body.Proxy,
	})
	if err != nil {
		s.logger.Error("scrape failed", zap.String("url", body.URL), zap.Error(err))
		writeError(w, http.StatusBadGateway, "scrape failed")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

type crawlBody struct {
	URL     string   `json:"url"`
	Limit   int      `json:"limit,omitempty"`
	Formats []string `json:"formats,omitempty"`
	Proxy   string   `json:"proxy,omitempty"`
}

func (s *Server) handleCrawl(w http.ResponseWriter, r *http.Request) {
	var body crawlBody
	if !decodeBody(w, r, &body) {
		return
	}
	if body.URL == "" {
		writeError(w, http.StatusBadRequest, "url is required")
		return
	}
	resp, err := s.fc.Crawl(r.Context(), firecrawl.CrawlRequest{
		URL:     body.URL,
		Limit:   body.Limit,
		Formats: body.Formats,
		Proxy:   body.Proxy,
	})
	if err != nil {
		s.logger.Error("crawl failed", zap.String("url", body.URL), zap.Error(err))
		writeError(w, http.StatusBadGateway, "crawl failed")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

type mapBody struct {
	URL    string `json:"url"`
	Search string `json:"search,omitempty"`
}

func (s *Server) handleMap(w http.ResponseWriter, r *http.Request) {
	var body mapBody
	if !decodeBody(w, r, &body) {
		return
	}
	if body.URL == "" {
		writeError(w, http.StatusBadRequest, "url is required")
		return
	}
	resp, err := s.fc.Map(r.Context(), firecrawl.MapRequest{
		URL:    body.URL,
		Search: body.Search,
	})
	if err != nil {
		s.logger.Error("map failed", zap.String("url", body.URL), zap.Error(err))
		writeError(w, http.StatusBadGateway, "map failed")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHighwayContext(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("sessionId")
	if sessionID == "" {
		writeError(w, http.StatusBadRequest, "sessionId is required")
		return
	}
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "limit must be an integer")
			return
		}
		limit = parsed
	}

	records := s.hw.ReadRecent(r.Context(), sessionID, limit)
	if records == nil {
		records = []highway.ContextRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"sessionId": sessionID,
		"count":     len(records),
		"records":   records,
	})
}

type consolidateRequest struct {
	SessionID string `json:"sessionId"`
}

func (s *Server) handleHighwayConsolidate(w http.ResponseWriter, r *http.Request) {
	var req consolidateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.SessionID == "" {
		writeError(w, http.StatusBadRequest, "sessionId is required")
		return
	}
	if err := s.hw.Consolidate(r.Context(), req.SessionID); err != nil {
		s.logger.Error("consolidation failed", zap.String("session_id", req.SessionID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "consolidation failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type purgeRequest struct {
	MaxAgeDays int `json:"maxAgeDays,omitempty"`
}

func (s *Server) handleHighwayPurge(w http.ResponseWriter, r *http.Request) {
	var req purgeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.MaxAgeDays <= 0 {
		req.MaxAgeDays = 7
	}
	if err := s.hw.PurgeStale(r.Context(), req.MaxAgeDays); err != nil {
		s.logger.Error("purge failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "purge failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
