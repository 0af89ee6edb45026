package mqhandler

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	mqcontracts "buildflow/contracts/mq"
	"buildflow/internal/service"
	"buildflow/pkg/mq"

	"go.uber.org/zap"
)

type fakeSyncer struct {
	calls  []int
	report service.SyncReport
}

func (f *fakeSyncer) SynchronizeDrawDueDates(ctx context.Context, projectID int) service.SyncReport {
	f.calls = append(f.calls, projectID)
	r := f.report
	r.ProjectID = projectID
	return r
}

type fakeDeduper struct {
	seen     map[string]bool
	released []string
}

func newFakeDeduper() *fakeDeduper { return &fakeDeduper{seen: map[string]bool{}} }

func (f *fakeDeduper) AcquireOnce(ctx context.Context, handler string, key string) bool {
	k := handler + ":" + key
	if f.seen[k] {
		return false
	}
	f.seen[k] = true
	return true
}

func (f *fakeDeduper) Release(ctx context.Context, handler string, key string) {
	delete(f.seen, handler+":"+key)
	f.released = append(f.released, key)
}

type fakeCounter struct {
	counts map[string]int64
}

func (f *fakeCounter) IncrementAndGet(ctx context.Context, key string) (int64, error) {
	f.counts[key]++
	return f.counts[key], nil
}

func (f *fakeCounter) Reset(ctx context.Context, key string) error {
	delete(f.counts, key)
	return nil
}

type fakeDLQ struct {
	parked  []string
	letters []mq.DeadLetter
}

func (f *fakeDLQ) PublishToDLQ(ctx context.Context, routingKey string, payload []byte, dl mq.DeadLetter) error {
	f.parked = append(f.parked, string(payload))
	f.letters = append(f.letters, dl)
	return nil
}

type handlerFixture struct {
	syncer  *fakeSyncer
	deduper *fakeDeduper
	counter *fakeCounter
	dlq     *fakeDLQ
	handler *ScheduleChangedHandler
}

func newHandlerFixture() *handlerFixture {
	f := &handlerFixture{
		syncer:  &fakeSyncer{},
		deduper: newFakeDeduper(),
		counter: &fakeCounter{counts: map[string]int64{}},
		dlq:     &fakeDLQ{},
	}
	f.handler = NewScheduleChangedHandler(f.syncer, f.deduper, f.counter, f.dlq, zap.NewNop())
	return f
}

func payload(t *testing.T, p mqcontracts.ScheduleChangedPayload) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return raw
}

func TestHandleSynchronizesProject(t *testing.T) {
	f := newHandlerFixture()

	if err := f.handler.Handle(context.Background(), payload(t, mqcontracts.ScheduleChangedPayload{ProjectID: 12, SnapshotID: 3})); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(f.syncer.calls) != 1 || f.syncer.calls[0] != 12 {
		t.Fatalf("syncer calls = %v, want [12]", f.syncer.calls)
	}
}

func TestHandleSkipsDuplicateSnapshot(t *testing.T) {
	f := newHandlerFixture()
	raw := payload(t, mqcontracts.ScheduleChangedPayload{ProjectID: 12, SnapshotID: 3})

	_ = f.handler.Handle(context.Background(), raw)
	_ = f.handler.Handle(context.Background(), raw)
	_ = f.handler.Handle(context.Background(), payload(t, mqcontracts.ScheduleChangedPayload{ProjectID: 12}))
	_ = f.handler.Handle(context.Background(), payload(t, mqcontracts.ScheduleChangedPayload{ProjectID: 12}))

	if len(f.syncer.calls) != 3 {
		t.Fatalf("syncer called %d times, want 3", len(f.syncer.calls))
	}
}

func TestHandleParksMalformedPayload(t *testing.T) {
	f := newHandlerFixture()

	for _, raw := range []string{`{not json`, `{"project_id": 0}`} {
		if err := f.handler.Handle(context.Background(), json.RawMessage(raw)); err != nil {
			t.Fatalf("malformed payload must be acked, got %v", err)
		}
	}
	if len(f.dlq.parked) != 2 || len(f.syncer.calls) != 0 {
		t.Fatalf("parked %d, synced %d", len(f.dlq.parked), len(f.syncer.calls))
	}
}

func TestHandleRetriesThenParks(t *testing.T) {
	f := newHandlerFixture()
	f.syncer.report = service.SyncReport{Errors: []error{errors.New("connection refused")}}
	raw := payload(t, mqcontracts.ScheduleChangedPayload{ProjectID: 5, SnapshotID: 9})

	for i := 1; i <= defaultMaxRetries; i++ {
		if err := f.handler.Handle(context.Background(), raw); err == nil {
			t.Fatalf("attempt %d: expected error to requeue", i)
		}
	}
	if err := f.handler.Handle(context.Background(), raw); err != nil {
		t.Fatalf("exhausted retries should ack, got %v", err)
	}
	if len(f.syncer.calls) != defaultMaxRetries+1 {
		t.Fatalf("syncer called %d times, want %d", len(f.syncer.calls), defaultMaxRetries+1)
	}
	if len(f.dlq.parked) != 1 {
		t.Fatalf("parked %d messages, want 1", len(f.dlq.parked))
	}
	if dl := f.dlq.letters[0]; dl.Handler != handlerName || dl.Attempts != defaultMaxRetries+1 {
		t.Fatalf("dead letter = %+v", dl)
	}
	if len(f.counter.counts) != 0 {
		t.Fatalf("retry counter not reset: %v", f.counter.counts)
	}
}

func TestHandleParksNonRetryableImmediately(t *testing.T) {
	f := newHandlerFixture()
	f.handler.WithMaxRetries(2)
	f.syncer.report = service.SyncReport{Errors: []error{errors.New("invalid input syntax for type date")}}

	if err := f.handler.Handle(context.Background(), payload(t, mqcontracts.ScheduleChangedPayload{ProjectID: 5})); err != nil {
		t.Fatalf("non-retryable failure should ack, got %v", err)
	}
	if len(f.dlq.parked) != 1 || f.dlq.letters[0].Attempts != 1 {
		t.Fatalf("parked = %d, letters = %+v", len(f.dlq.parked), f.dlq.letters)
	}
}
