package highway_test

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/go-cmp/cmp"
	"github.com/redis/go-redis/v9"
	"github.com/sylviahq/sylvia/highway"
)

func newTestHighway(t *testing.T) (*highway.Highway, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return highway.New(rdb, nil), mr
}

func publishN(t *testing.T, hw *highway.Highway, sessionID string, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		record, err := highway.NewRecord("agent-a", "task", map[string]int{"seq": i}, sessionID, highway.PriorityBackground)
		if err != nil {
			t.Fatalf("NewRecord: %v", err)
		}
		hw.Publish(context.Background(), record)
	}
}

func seqOf(t *testing.T, record highway.ContextRecord) int {
	t.Helper()
	var payload struct {
		Seq int `json:"seq"`
	}
	if err := json.Unmarshal(record.Payload, &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	return payload.Seq
}

func TestPublishCapsAtHundredMostRecentFirst(t *testing.T) {
	hw, _ := newTestHighway(t)
	publishN(t, hw, "s1", 120)

	records := hw.ReadRecent(context.Background(), "s1", 200)
	if len(records) != 100 {
		t.Fatalf("expected 100 records, got %d", len(records))
	}
	if got := seqOf(t, records[0]); got != 119 {
		t.Errorf("expected newest record first (seq 119), got %d", got)
	}
	if got := seqOf(t, records[99]); got != 20 {
		t.Errorf("expected oldest retained record seq 20, got %d", got)
	}
}

func TestReadRecentLimitsAndIsolatesSessions(t *testing.T) {
	hw, _ := newTestHighway(t)
	publishN(t, hw, "s1", 10)
	publishN(t, hw, "s2", 3)

	if got := len(hw.ReadRecent(context.Background(), "s1", 5)); got != 5 {
		t.Errorf("expected 5 records, got %d", got)
	}
	records := hw.ReadRecent(context.Background(), "s2", 50)
	if len(records) != 3 {
		t.Fatalf("expected 3 records for s2, got %d", len(records))
	}
	for _, record := range records {
		if record.SessionID != "s2" {
			t.Errorf("record leaked from session %q", record.SessionID)
		}
	}
}

func TestPublishFailSoftFallsBackLocally(t *testing.T) {
	hw, mr := newTestHighway(t)
	publishN(t, hw, "s1", 2)

	mr.Close()
	record, err := highway.NewRecord("agent-b", "task", map[string]int{"seq": 99}, "s1", highway.PriorityUrgent)
	if err != nil {
		t.Fatalf("NewRecord: %v", err)
	}
	hw.Publish(context.Background(), record)

	records := hw.ReadRecent(context.Background(), "s1", 50)
	if len(records) != 1 {
		t.Fatalf("expected 1 fallback record, got %d", len(records))
	}
	if records[0].AgentID != "agent-b" {
		t.Errorf("unexpected fallback record: %+v", records[0])
	}
}

func TestPublishUnencodablePayloadFallsBackLocally(t *testing.T) {
	hw, mr := newTestHighway(t)
	ctx := context.Background()

	record := highway.ContextRecord{
		AgentID:     "agent-a",
		ContextType: "task",
		Payload:     json.RawMessage("{not json"),
		Timestamp:   time.Now().UnixMilli(),
		SessionID:   "s1",
		Priority:    highway.PriorityBackground,
	}
	hw.Publish(ctx, record)

	if mr.Exists("session:s1:context") {
		t.Error("expected nothing written to the backend")
	}

	mr.Close()
	records := hw.ReadRecent(ctx, "s1", 10)
	if len(records) != 1 || records[0].AgentID != "agent-a" {
		t.Fatalf("expected the record in the local fallback, got %+v", records)
	}
}

func TestReadRecentSkipsMalformedRecords(t *testing.T) {
	hw, mr := newTestHighway(t)
	publishN(t, hw, "s1", 2)
	mr.Lpush("session:s1:context", "not json")

	records := hw.ReadRecent(context.Background(), "s1", 50)
	if len(records) != 2 {
		t.Fatalf("expected malformed record skipped, got %d records", len(records))
	}
}

func TestAgentSnapshotRoundTripAndExpiry(t *testing.T) {
	hw, mr := newTestHighway(t)
	ctx := context.Background()

	snapshot := highway.AgentSnapshot{
		CurrentTask:  "observing screen",
		Capabilities: []string{"vision"},
		LastActivity: time.Now().UnixMilli(),
	}
	if err := hw.SnapshotAgentState(ctx, "s1", "vision", snapshot); err != nil {
		t.Fatalf("SnapshotAgentState: %v", err)
	}

	got, err := hw.ReadAgentState(ctx, "s1", "vision")
	if err != nil {
		t.Fatalf("ReadAgentState: %v", err)
	}
	if diff := cmp.Diff(&snapshot, got); diff != "" {
		t.Errorf("snapshot mismatch (-want +got):\n%s", diff)
	}

	mr.FastForward(25 * time.Hour)
	got, err = hw.ReadAgentState(ctx, "s1", "vision")
	if err != nil {
		t.Fatalf("ReadAgentState after expiry: %v", err)
	}
	if got != nil {
		t.Errorf("expected expired snapshot to be nil, got %+v", got)
	}
}

func TestReadAgentStateAbsent(t *testing.T) {
	hw, _ := newTestHighway(t)
	got, err := hw.ReadAgentState(context.Background(), "s1", "nobody")
	if err != nil {
		t.Fatalf("ReadAgentState: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil snapshot, got %+v", got)
	}
}

func TestConsolidateSummarizesSession(t *testing.T) {
	hw, mr := newTestHighway(t)
	ctx := context.Background()

	publish := func(agentID, contextType string, priority highway.Priority, payload any) {
		record, err := highway.NewRecord(agentID, contextType, payload, "s1", priority)
		if err != nil {
			t.Fatalf("NewRecord: %v", err)
		}
		hw.Publish(ctx, record)
	}
	publish("main", "conversation", highway.PriorityBackground, map[string]string{"q": "hi"})
	publish("main", "conversation", highway.PriorityBackground, map[string]string{"q": "more"})
	publish("vision", "task", highway.PriorityUrgent, map[string]string{"t": "scan"})
	publish("main", "note", highway.PriorityMemory, map[string]string{"remember": "this"})

	if err := hw.Consolidate(ctx, "s1"); err != nil {
		t.Fatalf("Consolidate: %v", err)
	}

	summary := mr.HGet("long-term-memory:s1", "session_summary")
	if summary != "Conversations: 2, Tasks: 1" {
		t.Errorf("unexpected summary: %q", summary)
	}

	var interactions map[string]int
	if err := json.Unmarshal([]byte(mr.HGet("long-term-memory:s1", "agent_interactions")), &interactions); err != nil {
		t.Fatalf("decode interactions: %v", err)
	}
	if interactions["main"] != 3 || interactions["vision"] != 1 {
		t.Errorf("unexpected interactions: %v", interactions)
	}

	var persistent []json.RawMessage
	if err := json.Unmarshal([]byte(mr.HGet("long-term-memory:s1", "persistent_state")), &persistent); err != nil {
		t.Fatalf("decode persistent state: %v", err)
	}
	if len(persistent) != 1 {
		t.Errorf("expected 1 memory-priority payload, got %d", len(persistent))
	}

	// Source records stay in place.
	if got := len(hw.ReadRecent(ctx, "s1", 50)); got != 4 {
		t.Errorf("expected source records untouched, got %d", got)
	}
}

func TestPurgeStaleDeletesOldSessions(t *testing.T) {
	hw, mr := newTestHighway(t)
	ctx := context.Background()

	publishN(t, hw, "old", 2)
	publishN(t, hw, "fresh", 2)

	stale := fmt.Sprintf("%d", time.Now().AddDate(0, 0, -10).UnixMilli())
	mr.Set("session:old:last_activity", stale)

	if err := hw.PurgeStale(ctx, 7); err != nil {
		t.Fatalf("PurgeStale: %v", err)
	}

	if got := len(hw.ReadRecent(ctx, "old", 50)); got != 0 {
		t.Errorf("expected stale session purged, got %d records", got)
	}
	if mr.Exists("session:old:last_activity") {
		t.Errorf("expected stale activity key deleted")
	}
	if got := len(hw.ReadRecent(ctx, "fresh", 50)); got != 2 {
		t.Errorf("expected fresh session intact, got %d records", got)
	}
}
