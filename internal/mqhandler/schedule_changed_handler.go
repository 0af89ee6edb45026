package mqhandler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	mqcontracts "buildflow/contracts/mq"
	"buildflow/internal/service"
	"buildflow/pkg/logger"
	"buildflow/pkg/mq"
	"buildflow/pkg/util"

	"go.uber.org/zap"
)

const (
	handlerName       = "draw_sync"
	defaultMaxRetries = 5
)

type DrawSyncer interface {
	SynchronizeDrawDueDates(ctx context.Context, projectID int) service.SyncReport
}

type Deduper interface {
	AcquireOnce(ctx context.Context, handler string, key string) bool
	Release(ctx context.Context, handler string, key string)
}

type RetryCounter interface {
	IncrementAndGet(ctx context.Context, key string) (int64, error)
	Reset(ctx context.Context, key string) error
}

type DLQPublisher interface {
	PublishToDLQ(ctx context.Context, routingKey string, payload []byte, dl mq.DeadLetter) error
}

type ScheduleChangedHandler struct {
	syncer       DrawSyncer
	deduper      Deduper
	retryCounter RetryCounter
	dlq          DLQPublisher
	maxRetries   int64
	logger       *zap.Logger
}

func NewScheduleChangedHandler(
	syncer DrawSyncer,
	deduper Deduper,
	retryCounter RetryCounter,
	dlq DLQPublisher,
	logger *zap.Logger,
) *ScheduleChangedHandler {
	return &ScheduleChangedHandler{
		syncer:       syncer,
		deduper:      deduper,
		retryCounter: retryCounter,
		dlq:          dlq,
		maxRetries:   defaultMaxRetries,
		logger:       logger,
	}
}

// WithMaxRetries caps redeliveries before a failing event is parked.
func (h *ScheduleChangedHandler) WithMaxRetries(n int64) *ScheduleChangedHandler {
	if n > 0 {
		h.maxRetries = n
	}
	return h
}

// Handle re-synchronizes draw due dates after a schedule edit. A nil return
// acks the message; an error requeues it. Malformed payloads and events that
// keep failing are parked on the DLQ.
func (h *ScheduleChangedHandler) Handle(ctx context.Context, raw json.RawMessage) error {
	log := logger.WithTrace(ctx, h.logger)

	var p mqcontracts.ScheduleChangedPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		log.Error("Failed to unmarshal schedule changed payload (non-retryable, sending to DLQ)",
			zap.Error(err),
			zap.String("raw_payload", string(raw)),
		)
		h.park(ctx, log, raw, fmt.Errorf("json_unmarshal_error: %w", err), 0)
		return nil
	}
	if p.ProjectID <= 0 {
		log.Warn("Schedule changed event without project id, dropping", zap.String("raw_payload", string(raw)))
		h.park(ctx, log, raw, errors.New("missing project_id"), 0)
		return nil
	}

	// Events without a snapshot id are not deduplicated; syncing twice is
	// harmless.
	key := dedupKey(p)
	if key != "" && !h.deduper.AcquireOnce(ctx, handlerName, key) {
		return nil
	}

	report := h.syncer.SynchronizeDrawDueDates(ctx, p.ProjectID)
	retryKey := util.FormatRetryKey(handlerName, p.ProjectID, p.SnapshotID)

	if len(report.Errors) == 0 {
		if err := h.retryCounter.Reset(ctx, retryKey); err != nil {
			log.Warn("Failed to reset retry count", zap.Int("project_id", p.ProjectID), zap.Error(err))
		}
		return nil
	}

	err := errors.Join(report.Errors...)
	retryable, errType := util.IsRetryableError(report.Errors[0])

	retryCount, cerr := h.retryCounter.IncrementAndGet(ctx, retryKey)
	if cerr != nil {
		log.Warn("Failed to get retry count, continuing anyway",
			zap.Int("project_id", p.ProjectID),
			zap.Error(cerr),
		)
		retryCount = 1
	}

	log.Error("Draw sync finished with errors",
		zap.Int("project_id", p.ProjectID),
		zap.Int("updated", report.Updated),
		zap.String("error_type", errType),
		zap.Bool("retryable", retryable),
		zap.Int64("retry_count", retryCount),
		zap.Error(err),
	)

	if !util.ShouldRetry(retryCount, h.maxRetries, retryable) {
		h.park(ctx, log, raw, err, retryCount)
		if rerr := h.retryCounter.Reset(ctx, retryKey); rerr != nil {
			log.Warn("Failed to reset retry count", zap.Int("project_id", p.ProjectID), zap.Error(rerr))
		}
		return nil
	}

	if key != "" {
		// Let the redelivery through the dedup gate.
		h.deduper.Release(ctx, handlerName, key)
	}
	return err
}

func (h *ScheduleChangedHandler) park(ctx context.Context, log *zap.Logger, raw []byte, cause error, attempts int64) {
	if h.dlq == nil {
		return
	}
	dl := mq.DeadLetter{Handler: handlerName, Reason: cause.Error(), Attempts: attempts}
	if err := h.dlq.PublishToDLQ(ctx, mq.RoutingScheduleChanged, raw, dl); err != nil {
		log.Error("Failed to publish to DLQ", zap.Error(err))
	}
}

func dedupKey(p mqcontracts.ScheduleChangedPayload) string {
	if p.SnapshotID <= 0 {
		return ""
	}
	return strconv.Itoa(p.ProjectID) + ":" + strconv.FormatInt(p.SnapshotID, 10)
}
