package trace

import (
	"context"
	"encoding/hex"

	"github.com/google/uuid"
)

type ctxKey string

const (
	TraceIDKey ctxKey = "trace_id"
	RunIDKey   ctxKey = "run_id"
)

// GenerateTraceID returns a random 32-char hex id.
func GenerateTraceID() string {
	id := uuid.New()
	return hex.EncodeToString(id[:])
}

func FromContext(ctx context.Context) string {
	if traceID, ok := ctx.Value(TraceIDKey).(string); ok {
		return traceID
	}
	return ""
}

func WithContext(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, TraceIDKey, traceID)
}

// NewRun tags ctx with a fresh batch run id and returns it.
func NewRun(ctx context.Context) (context.Context, string) {
	runID := uuid.NewString()
	return context.WithValue(ctx, RunIDKey, runID), runID
}

func RunIDFromContext(ctx context.Context) string {
	if runID, ok := ctx.Value(RunIDKey).(string); ok {
		return runID
	}
	return ""
}

// HeaderName is the HTTP header carrying the trace id.
func HeaderName() string {
	return "X-Trace-ID"
}
