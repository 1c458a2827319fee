package outbox

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// ReplayStore is the part of Repository used for replays.
type ReplayStore interface {
	GetEventByID(ctx context.Context, eventID int64) (*Event, error)
	GetFailedEvents(ctx context.Context, limit int) ([]*Event, error)
	ResetForReplay(ctx context.Context, eventID int64) error
	MarkAsSent(ctx context.Context, eventID int64) error
}

// ReplayService 提供重放 Outbox 事件的服务
type ReplayService struct {
	repo      ReplayStore
	publisher EventPublisher
	logger    *zap.Logger
}

func NewReplayService(repo ReplayStore, publisher EventPublisher, logger *zap.Logger) *ReplayService {
	return &ReplayService{repo: repo, publisher: publisher, logger: logger}
}

// ListFailed returns the most recent failed events.
func (s *ReplayService) ListFailed(ctx context.Context, limit int) ([]*Event, error) {
	return s.repo.GetFailedEvents(ctx, limit)
}

// ReplayEvent 立即重发指定事件；发布失败时重置为 pending 交给 Dispatcher
func (s *ReplayService) ReplayEvent(ctx context.Context, eventID int64) error {
	event, err := s.repo.GetEventByID(ctx, eventID)
	if err != nil {
		return err
	}

	if err := publishEvent(ctx, s.publisher, event); err != nil {
		s.logger.Warn("Replay publish failed, handing event back to dispatcher",
			zap.Int64("event_id", eventID),
			zap.Error(err),
		)
		if resetErr := s.repo.ResetForReplay(ctx, eventID); resetErr != nil {
			return fmt.Errorf("failed to publish and reset: %w (reset error: %v)", err, resetErr)
		}
		return nil
	}

	return s.repo.MarkAsSent(ctx, eventID)
}

// ReplayFailedEvents 重放所有失败的事件，返回成功数量
func (s *ReplayService) ReplayFailedEvents(ctx context.Context, limit int) (int, error) {
	events, err := s.repo.GetFailedEvents(ctx, limit)
	if err != nil {
		return 0, err
	}

	replayed := 0
	for _, e := range events {
		if err := s.ReplayEvent(ctx, e.ID); err != nil {
			s.logger.Error("Failed to replay event", zap.Int64("event_id", e.ID), zap.Error(err))
			continue
		}
		replayed++
	}
	return replayed, nil
}
