package highway_test

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/sylviahq/sylvia/highway"
)

func TestRecordJSONShape(t *testing.T) {
	record, err := highway.NewRecord("vision", "screen-analysis", map[string]string{"analysis": "terminal open"}, "s1", highway.PriorityUrgent)
	if err != nil {
		t.Fatalf("NewRecord: %v", err)
	}
	if record.Timestamp == 0 {
		t.Fatal("expected timestamp to be set")
	}

	data, err := json.Marshal(record)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unmarshal raw: %v", err)
	}
	for _, key := range []string{"agentId", "contextType", "payload", "timestamp", "sessionId", "priority"} {
		if _, ok := raw[key]; !ok {
			t.Errorf("missing field %q in %s", key, data)
		}
	}

	var decoded highway.ContextRecord
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal record: %v", err)
	}
	if diff := cmp.Diff(record, decoded); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestNewSessionID(t *testing.T) {
	a := highway.NewSessionID()
	b := highway.NewSessionID()
	if !strings.HasPrefix(a, "session_") {
		t.Errorf("unexpected session id %q", a)
	}
	if a == b {
		t.Errorf("expected unique session ids, got %q twice", a)
	}
}
