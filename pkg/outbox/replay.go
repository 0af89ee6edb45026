package outbox

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// ReplayService 将失败事件重新交给 dispatcher
type ReplayService struct {
	repo   *Repository
	logger *zap.Logger
}

func NewReplayService(repo *Repository, logger *zap.Logger) *ReplayService {
	return &ReplayService{repo: repo, logger: logger}
}

// ReplayFailedEvents 最多重置 limit 个失败事件，返回重置数量
func (s *ReplayService) ReplayFailedEvents(ctx context.Context, limit int) (int, error) {
	events, err := s.repo.GetFailedEvents(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("failed to list failed events: %w", err)
	}

	replayed := 0
	for _, e := range events {
		if err := s.repo.ReplayEvent(ctx, e.ID); err != nil {
			s.logger.Error("Failed to replay outbox event",
				zap.Int64("event_id", e.ID),
				zap.Error(err),
			)
			continue
		}
		replayed++
	}
	return replayed, nil
}
