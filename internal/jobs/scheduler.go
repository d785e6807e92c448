// Package jobs schedules housekeeping for the importer.
package jobs

import (
	"fmt"
	"time"
	_ "time/tzdata"

	"AdvisorDesk/internal/config"
	"AdvisorDesk/internal/logger"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Purger drops expired state and reports how much went.
type Purger interface {
	CleanupExpiredSessions() int
}

// CronService runs the session purge on a cron schedule.
type CronService struct {
	config   map[string]interface{}
	sessions Purger
	cron     *cron.Cron
}

func NewCronService(cfg map[string]interface{}, sessions Purger) *CronService {
	return &CronService{config: cfg, sessions: sessions}
}

func (s *CronService) Name() string {
	return "cron"
}

func (s *CronService) Start() error {
	tz := config.DefaultTimeZone
	schedule := config.DefaultPurgeSchedule
	if s.config != nil {
		if v, ok := s.config["timezone"].(string); ok && v != "" {
			tz = v
		}
		if v, ok := s.config["purge_schedule"].(string); ok && v != "" {
			schedule = v
		}
	}

	loc, err := time.LoadLocation(tz)
	if err != nil {
		return fmt.Errorf("invalid timezone for session purge: %v", err)
	}

	c := cron.New(cron.WithLocation(loc))
	if _, err := c.AddFunc(schedule, s.purge); err != nil {
		return fmt.Errorf("invalid purge schedule %q: %w", schedule, err)
	}
	c.Start()
	s.cron = c

	logger.L().Info("cron service started", zap.String("purge_schedule", schedule), zap.String("timezone", tz))
	return nil
}

func (s *CronService) purge() {
	if s.sessions == nil {
		return
	}
	if n := s.sessions.CleanupExpiredSessions(); n > 0 {
		logger.L().Info("purged expired import sessions", zap.Int("count", n))
	}
}

func (s *CronService) Stop() error {
	if s.cron == nil {
		return nil
	}
	<-s.cron.Stop().Done()
	logger.L().Info("cron service stopped")
	return nil
}
