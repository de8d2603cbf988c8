package highway

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Priority tags a record for consumers. The highway itself never reorders or
// filters by priority.
type Priority string

const (
	PriorityUrgent     Priority = "urgent"
	PriorityBackground Priority = "background"
	PriorityMemory     Priority = "memory"
)

// ContextRecord is one published signal on the highway. Records are immutable
// once published; the payload is opaque structured data never interpreted by
// the highway itself.
type ContextRecord struct {
	AgentID     string          `json:"agentId"`
	ContextType string          `json:"contextType"`
	Payload     json.RawMessage `json:"payload"`
	Timestamp   int64           `json:"timestamp"`
	SessionID   string          `json:"sessionId"`
	Priority    Priority        `json:"priority"`
}

// NewRecord builds a record with the current timestamp, marshaling the
// payload to JSON.
func NewRecord(agentID, contextType string, payload any, sessionID string, priority Priority) (ContextRecord, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return ContextRecord{}, fmt.Errorf("failed to marshal payload: %w", err)
	}
	return ContextRecord{
		AgentID:     agentID,
		ContextType: contextType,
		Payload:     data,
		Timestamp:   time.Now().UnixMilli(),
		SessionID:   sessionID,
		Priority:    priority,
	}, nil
}

// AgentSnapshot is the out-of-band per-agent state record, independent of the
// rolling event log.
type AgentSnapshot struct {
	CurrentTask   string         `json:"currentTask"`
	RecentContext []string       `json:"recentContext,omitempty"`
	AgentState    map[string]any `json:"agentState,omitempty"`
	Capabilities  []string       `json:"capabilities,omitempty"`
	LastActivity  int64          `json:"lastActivity"`
}

// NewSessionID generates a caller-opaque session identifier.
func NewSessionID() string {
	return fmt.Sprintf("session_%d_%s", time.Now().UnixMilli(), uuid.NewString()[:8])
}
