package scheduler

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// Scheduler управляет запланированными задачами
type Scheduler struct {
	cron      *cron.Cron
	ctx       context.Context
	cancel    context.CancelFunc
	schedule  string
	purgeFunc func(ctx context.Context) (int64, error)
}

// New создает новый планировщик
func New(schedule string) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		cron:     cron.New(cron.WithLocation(time.UTC)),
		ctx:      ctx,
		cancel:   cancel,
		schedule: schedule,
	}
}

// SetPurgeFunction устанавливает функцию удаления истекших сессий
func (s *Scheduler) SetPurgeFunction(f func(ctx context.Context) (int64, error)) {
	s.purgeFunc = f
}

// Start запускает планировщик
func (s *Scheduler) Start() error {
	if s.purgeFunc == nil {
		log.Println("⚠️ Purge function not set, expired sessions will only be hidden on read")
		return nil
	}

	_, err := s.cron.AddFunc(s.schedule, s.runPurge)
	if err != nil {
		return err
	}

	s.cron.Start()
	log.Printf("📅 Scheduler started - expired sessions purged on %q", s.schedule)
	return nil
}

func (s *Scheduler) runPurge() {
	n, err := s.purgeFunc(s.ctx)
	if err != nil {
		log.Printf("❌ Session purge failed: %v", err)
		return
	}
	if n > 0 {
		log.Printf("🧹 Purged %d expired sessions", n)
	}
}

// Stop останавливает планировщик
func (s *Scheduler) Stop() {
	if s.cron != nil {
		ctx := s.cron.Stop()
		<-ctx.Done()
	}
	if s.cancel != nil {
		s.cancel()
	}
	log.Println("📅 Scheduler stopped")
}

// IsRunning проверяет, запущен ли планировщик
func (s *Scheduler) IsRunning() bool {
	return s.cron != nil && len(s.cron.Entries()) > 0
}
