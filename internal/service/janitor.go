package service

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/mmeshcher/lavita-bot/internal/metrics"
)

// JanitorSchedule задаёт расписание очистки брошенных диалогов.
const JanitorSchedule = "@every 1m"

// StartJanitor периодически удаляет сессии, простаивающие дольше ttl.
// Незавершённые черновики просто отбрасываются: в хранилище они не попадали.
func (s *Service) StartJanitor(ctx context.Context, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}

	c := cron.New()
	if _, err := c.AddFunc(JanitorSchedule, func() { s.sweepSessions(ttl) }); err != nil {
		return fmt.Errorf("schedule janitor: %w", err)
	}
	c.Start()

	go func() {
		<-ctx.Done()
		<-c.Stop().Done()
	}()

	return nil
}

func (s *Service) sweepSessions(ttl time.Duration) int {
	removed := s.sessions.Sweep(ttl)
	metrics.SetSessions(s.sessions.Len())
	if removed > 0 {
		s.logger.Info("expired sessions dropped", zap.Int("count", removed))
	}
	return removed
}
