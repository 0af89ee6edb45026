package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"buildflow/pkg/trace"

	"go.uber.org/zap"
)

type fakeStore struct {
	events []*Event
	sent   []int64
	failed []int64
}

func (f *fakeStore) GetPendingEvents(context.Context, int) ([]*Event, error) { return f.events, nil }
func (f *fakeStore) MarkAsSent(_ context.Context, id int64) error {
	f.sent = append(f.sent, id)
	return nil
}
func (f *fakeStore) MarkAsFailed(_ context.Context, id int64, _ int) error {
	f.failed = append(f.failed, id)
	return nil
}

type fakePublisher struct {
	fail     map[string]bool
	traceIDs []string
}

func (f *fakePublisher) PublishWithContext(ctx context.Context, routingKey string, _ any) error {
	f.traceIDs = append(f.traceIDs, trace.FromContext(ctx))
	if f.fail[routingKey] {
		return errors.New("broker down")
	}
	return nil
}

func TestProcessPendingEvents(t *testing.T) {
	store := &fakeStore{events: []*Event{
		{ID: 1, RoutingKey: "project.phase_changed", Payload: json.RawMessage(`{"project_id":1,"trace_id":"t-1"}`)},
		{ID: 2, RoutingKey: "draw.overdue", Payload: json.RawMessage(`{"invoice_id":9}`)},
		{ID: 3, RoutingKey: "project.phase_changed", Payload: json.RawMessage(`not json`)},
	}}
	pub := &fakePublisher{fail: map[string]bool{"draw.overdue": true}}

	sent := NewDispatcher(store, pub, zap.NewNop()).ProcessPendingEvents(context.Background())
	if sent != 1 {
		t.Fatalf("sent = %d, want 1", sent)
	}
	if len(store.sent) != 1 || store.sent[0] != 1 {
		t.Fatalf("sent ids = %v", store.sent)
	}
	if len(store.failed) != 2 {
		t.Fatalf("failed ids = %v", store.failed)
	}
	if pub.traceIDs[0] != "t-1" {
		t.Fatalf("trace id not propagated: %v", pub.traceIDs)
	}
}

func TestNextAttempt(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	status, next := NextAttempt(2, 5, now)
	if status != StatusPending || next == nil || !next.Equal(now.Add(10*time.Second)) {
		t.Fatalf("NextAttempt(2) = %s,%v", status, next)
	}
	status, next = NextAttempt(5, 5, now)
	if status != StatusFailed || next != nil {
		t.Fatalf("NextAttempt(5) = %s,%v", status, next)
	}
}

func TestNewEvent(t *testing.T) {
	e, err := NewEvent("project", 42, "project.phase_changed", map[string]int{"project_id": 42})
	if err != nil {
		t.Fatalf("NewEvent: %v", err)
	}
	if e.Status != StatusPending || *e.AggregateID != 42 || string(e.Payload) != `{"project_id":42}` {
		t.Fatalf("event = %+v", e)
	}
}
