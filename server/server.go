// Package server exposes the HTTP surface of the service: the main chat
// stream, ambient vision analysis, the auxiliary side channel, Firecrawl
// passthrough, and Context Highway read and maintenance endpoints.
package server

import (
	"encoding/json"
	"net/http"

	"github.com/sylviahq/sylvia/agent"
	"github.com/sylviahq/sylvia/firecrawl"
	"github.com/sylviahq/sylvia/highway"
	"github.com/sylviahq/sylvia/llm"
	"go.uber.org/zap"
)

// MainAgentID and VisionAgentID identify this service's publishers on the
// Context Highway.
const (
	MainAgentID   = "main"
	VisionAgentID = agent.VisionAgentID
)

// Options carries the dependencies of the HTTP layer. Loop and AuxiliaryLoop
// are distinct agent.Loop instances; the auxiliary one runs without tools.
type Options struct {
	Loop          *agent.Loop
	AuxiliaryLoop *agent.Loop
	VisionModel   llm.LanguageModel
	Highway       *highway.Highway
	Firecrawl     *firecrawl.Client
	Logger        *zap.Logger

	// Instructions is the default system prompt for /api/chat when the
	// request does not supply one.
	Instructions string
}

type Server struct {
	loop         *agent.Loop
	auxLoop      *agent.Loop
	visionModel  llm.LanguageModel
	hw           *highway.Highway
	fc           *firecrawl.Client
	logger       *zap.Logger
	instructions string
}

func New(options Options) *Server {
	logger := options.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		loop:         options.Loop,
		auxLoop:      options.AuxiliaryLoop,
		visionModel:  options.VisionModel,
		hw:           options.Highway,
		fc:           options.Firecrawl,
		logger:       logger,
		instructions: options.Instructions,
	}
}

// Handler returns the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/chat", s.handleChat)
	mux.HandleFunc("POST /api/vision-analysis", s.handleVisionAnalysis)
	mux.HandleFunc("POST /api/auxiliary-chat", s.handleAuxiliaryChat)
	mux.HandleFunc("POST /api/firecrawl/scrape", s.handleScrape)
	mux.HandleFunc("POST /api/firecrawl/crawl", s.handleCrawl)
	mux.HandleFunc("POST /api/firecrawl/map", s.handleMap)
	mux.HandleFunc("GET /api/highway/context", s.handleHighwayContext)
	mux.HandleFunc("POST /api/highway/consolidate", s.handleHighwayConsolidate)
	mux.HandleFunc("POST /api/highway/purge", s.handleHighwayPurge)
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	return mux
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}
