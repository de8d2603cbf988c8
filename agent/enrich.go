package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/sylviahq/sylvia/highway"
)

const (
	// VisionAgentID identifies the ambient vision agent on the highway.
	VisionAgentID = "vision"

	// VisionContextType marks records produced by the ambient vision agent.
	VisionContextType = "screen-analysis"

	enrichmentReadLimit = 100
	visionTimelineLimit = 50
	otherSignalLimit    = 5
	signalPreviewLen    = 150
)

// roleTokenRe matches conversational role markers that, echoed verbatim into
// a prompt, could be mistaken by the model for transcript structure.
var roleTokenRe = regexp.MustCompile(`(?i)\b(user|model|assistant):`)

// SanitizeRoleTokens neutralizes role markers in text destined for a prompt.
// Applied only at render time; stored records keep their original payloads.
func SanitizeRoleTokens(s string) string {
	return roleTokenRe.ReplaceAllString(s, "person:")
}

// contextBlock renders the session's recent highway records as a delimited
// prompt section: the ambient vision timeline in chronological order plus a
// short tail of other agents' signals. Enrichment is best effort; an
// unreachable highway yields an empty block.
func (l *Loop) contextBlock(ctx context.Context, sessionID string) string {
	if l.highway == nil || sessionID == "" {
		return ""
	}

	records := l.highway.ReadRecent(ctx, sessionID, enrichmentReadLimit)
	if len(records) == 0 {
		return ""
	}

	var vision, others []highway.ContextRecord
	for _, record := range records {
		if record.AgentID == VisionAgentID {
			vision = append(vision, record)
		} else {
			others = append(others, record)
		}
	}
	if len(vision) > visionTimelineLimit {
		vision = vision[:visionTimelineLimit]
	}
	if len(others) > otherSignalLimit {
		others = others[:otherSignalLimit]
	}

	var b strings.Builder
	b.WriteString("=== CROSS-AGENT CONTEXT (Context Highway) ===\n")

	if len(vision) > 0 {
		b.WriteString("Ambient vision timeline (oldest first):\n")
		// Records arrive newest first; the timeline reads forward in time.
		for i := len(vision) - 1; i >= 0; i-- {
			record := vision[i]
			ts := time.UnixMilli(record.Timestamp).UTC().Format("15:04:05")
			fmt.Fprintf(&b, "[%s] %s: %s\n", ts, record.AgentID, payloadText(record.Payload))
		}
	}

	if len(others) > 0 {
		b.WriteString("Recent agent signals (newest first):\n")
		for _, record := range others {
			fmt.Fprintf(&b, "- [%s] %s: %s\n", record.ContextType, record.AgentID, preview(record.Payload, signalPreviewLen))
		}
	}

	b.WriteString("=== END CROSS-AGENT CONTEXT ===")
	return SanitizeRoleTokens(b.String())
}

// payloadText extracts the human-readable text from a record payload. Vision
// payloads carry an "analysis" field; anything else is rendered as compact
// JSON.
func payloadText(payload json.RawMessage) string {
	var obj map[string]any
	if err := json.Unmarshal(payload, &obj); err == nil {
		if analysis, ok := obj["analysis"].(string); ok {
			return analysis
		}
	}
	var s string
	if err := json.Unmarshal(payload, &s); err == nil {
		return s
	}
	return string(payload)
}

func preview(payload json.RawMessage, limit int) string {
	text := payloadText(payload)
	runes := []rune(text)
	if len(runes) > limit {
		return string(runes[:limit]) + "..."
	}
	return text
}
