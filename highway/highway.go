// Package highway implements the shared cross-agent context store: an
// append-only, per-session event stream over Redis that independent agents
// publish to and poll from, with bounded retention and a process-local
// fallback when the backing store is unavailable.
package highway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	// recordCap bounds the retained record list per session. Insertion is
	// most-recent-first; eviction removes the oldest.
	recordCap = 100

	// snapshotTTL is the absolute expiry of per-agent state snapshots,
	// measured from the last write.
	snapshotTTL = 24 * time.Hour

	// DefaultReadLimit is used when a read does not specify a limit.
	DefaultReadLimit = 50
)

// Highway is the shared context store. Publish and ReadRecent are fail-soft:
// they never surface backend errors to the caller, degrading to the local
// cache instead. The Redis client is a process-wide resource owned by the
// caller and injected here.
type Highway struct {
	rdb    redis.UniversalClient
	local  *fallbackCache
	logger *zap.Logger
}

func New(rdb redis.UniversalClient, logger *zap.Logger) *Highway {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Highway{
		rdb:    rdb,
		local:  newFallbackCache(),
		logger: logger,
	}
}

func contextKey(sessionID string) string {
	return fmt.Sprintf("session:%s:context", sessionID)
}

func activityKey(sessionID string) string {
	return fmt.Sprintf("session:%s:last_activity", sessionID)
}

func agentStateKey(sessionID, agentID string) string {
	return fmt.Sprintf("session:%s:agent:%s:state", sessionID, agentID)
}

func memoryKey(sessionID string) string {
	return fmt.Sprintf("long-term-memory:%s", sessionID)
}

// Publish prepends the record to its session's list and trims the list to the
// most recent 100 entries. Backend unavailability is absorbed: the record is
// written to the process-local fallback cache and the failure is logged.
func (h *Highway) Publish(ctx context.Context, record ContextRecord) {
	data, err := json.Marshal(record)
	if err != nil {
		h.logger.Warn("failed to encode context record, using local fallback",
			zap.String("session_id", record.SessionID),
			zap.Error(err))
		h.local.push(record)
		return
	}

	pipe := h.rdb.Pipeline()
	pipe.LPush(ctx, contextKey(record.SessionID), data)
	pipe.LTrim(ctx, contextKey(record.SessionID), 0, recordCap-1)
	pipe.Set(ctx, activityKey(record.SessionID), record.Timestamp, 0)
	if _, err := pipe.Exec(ctx); err != nil {
		h.logger.Warn("context publish failed, using local fallback",
			zap.String("session_id", record.SessionID),
			zap.String("agent_id", record.AgentID),
			zap.Error(err))
		h.local.push(record)
		return
	}

	h.logger.Debug("context record published",
		zap.String("session_id", record.SessionID),
		zap.String("agent_id", record.AgentID),
		zap.String("context_type", record.ContextType))
}

// ReadRecent returns up to limit records for the session, most recent first.
// On backend failure it serves whatever the local fallback cache holds,
// possibly nothing, never an error.
func (h *Highway) ReadRecent(ctx context.Context, sessionID string, limit int) []ContextRecord {
	if limit <= 0 {
		limit = DefaultReadLimit
	}

	raw, err := h.rdb.LRange(ctx, contextKey(sessionID), 0, int64(limit-1)).Result()
	if err != nil {
		h.logger.Warn("context read failed, using local fallback",
			zap.String("session_id", sessionID),
			zap.Error(err))
		return h.local.recent(sessionID, limit)
	}

	records := make([]ContextRecord, 0, len(raw))
	for _, item := range raw {
		var record ContextRecord
		if err := json.Unmarshal([]byte(item), &record); err != nil {
			h.logger.Warn("skipping malformed context record", zap.Error(err))
			continue
		}
		records = append(records, record)
	}
	return records
}

// SnapshotAgentState stores an out-of-band per-agent state snapshot with a
// 24-hour absolute expiry from the last write.
func (h *Highway) SnapshotAgentState(ctx context.Context, sessionID, agentID string, snapshot AgentSnapshot) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to encode agent snapshot: %w", err)
	}
	if err := h.rdb.Set(ctx, agentStateKey(sessionID, agentID), data, snapshotTTL).Err(); err != nil {
		return fmt.Errorf("failed to store agent snapshot: %w", err)
	}
	return nil
}

// ReadAgentState returns the snapshot for the agent, or nil if absent or
// expired.
func (h *Highway) ReadAgentState(ctx context.Context, sessionID, agentID string) (*AgentSnapshot, error) {
	data, err := h.rdb.Get(ctx, agentStateKey(sessionID, agentID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read agent snapshot: %w", err)
	}
	var snapshot AgentSnapshot
	if err := json.Unmarshal([]byte(data), &snapshot); err != nil {
		return nil, fmt.Errorf("failed to decode agent snapshot: %w", err)
	}
	return &snapshot, nil
}

// Consolidate derives a compact long-term summary from the session's last 100
// records and stores it keyed by session. The source records are untouched.
func (h *Highway) Consolidate(ctx context.Context, sessionID string) error {
	records := h.ReadRecent(ctx, sessionID, recordCap)
	if len(records) == 0 {
		return nil
	}

	var conversations, tasks int
	interactions := make(map[string]int)
	var persistent []json.RawMessage
	for _, record := range records {
		switch record.ContextType {
		case "conversation":
			conversations++
		case "task":
			tasks++
		}
		interactions[record.AgentID]++
		if record.Priority == PriorityMemory {
			persistent = append(persistent, record.Payload)
		}
	}

	interactionsJSON, err := json.Marshal(interactions)
	if err != nil {
		return fmt.Errorf("failed to encode agent interactions: %w", err)
	}
	persistentJSON, err := json.Marshal(persistent)
	if err != nil {
		return fmt.Errorf("failed to encode persistent state: %w", err)
	}

	fields := map[string]any{
		"session_summary":    fmt.Sprintf("Conversations: %d, Tasks: %d", conversations, tasks),
		"agent_interactions": string(interactionsJSON),
		"persistent_state":   string(persistentJSON),
		"timestamp":          time.Now().UnixMilli(),
	}
	if err := h.rdb.HSet(ctx, memoryKey(sessionID), fields).Err(); err != nil {
		return fmt.Errorf("failed to store consolidated memory: %w", err)
	}

	h.logger.Info("session memory consolidated",
		zap.String("session_id", sessionID),
		zap.Int("records", len(records)))
	return nil
}

// PurgeStale sweeps all session partitions and deletes those whose
// last-activity marker is older than maxAgeDays.
func (h *Highway) PurgeStale(ctx context.Context, maxAgeDays int) error {
	cutoff := time.Now().AddDate(0, 0, -maxAgeDays).UnixMilli()

	iter := h.rdb.Scan(ctx, 0, "session:*:last_activity", 100).Iterator()
	var purged int
	for iter.Next(ctx) {
		key := iter.Val()
		val, err := h.rdb.Get(ctx, key).Result()
		if err != nil {
			continue
		}
		lastActivity, err := strconv.ParseInt(val, 10, 64)
		if err != nil || lastActivity >= cutoff {
			continue
		}

		sessionID := strings.TrimSuffix(strings.TrimPrefix(key, "session:"), ":last_activity")
		if err := h.deleteSession(ctx, sessionID); err != nil {
			h.logger.Warn("failed to purge session",
				zap.String("session_id", sessionID),
				zap.Error(err))
			continue
		}
		purged++
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan session partitions: %w", err)
	}

	h.logger.Info("stale sessions purged",
		zap.Int("purged", purged),
		zap.Int("max_age_days", maxAgeDays))
	return nil
}

// Close releases the highway's reference to the backing client. The client
// itself is owned and closed by the composition root.
func (h *Highway) Close() error {
	h.rdb = nil
	return nil
}

func (h *Highway) deleteSession(ctx context.Context, sessionID string) error {
	iter := h.rdb.Scan(ctx, 0, fmt.Sprintf("session:%s:*", sessionID), 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return h.rdb.Del(ctx, keys...).Err()
}
