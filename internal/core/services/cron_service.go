package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// tokenPurger is the part of AuthService the cron jobs need
type tokenPurger interface {
	PurgeExpiredTokens(ctx context.Context) (int64, error)
}

// CronService runs scheduled maintenance jobs
type CronService struct {
	cron   *cron.Cron
	tokens tokenPurger
}

// NewCronService creates a cron service running in loc
func NewCronService(tokens tokenPurger, loc *time.Location) *CronService {
	if loc == nil {
		loc = time.Local
	}
	return &CronService{
		cron:   cron.New(cron.WithLocation(loc)),
		tokens: tokens,
	}
}

// Register schedules the refresh token cleanup. An empty spec disables it.
func (s *CronService) Register(tokenCleanupSpec string) error {
	if tokenCleanupSpec == "" {
		log.Println("⏭️ Token cleanup job disabled")
		return nil
	}

	if _, err := s.cron.AddFunc(tokenCleanupSpec, s.PurgeExpiredTokens); err != nil {
		return fmt.Errorf("schedule token cleanup %q: %w", tokenCleanupSpec, err)
	}
	return nil
}

// PurgeExpiredTokens deletes expired refresh tokens
func (s *CronService) PurgeExpiredTokens() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	n, err := s.tokens.PurgeExpiredTokens(ctx)
	if err != nil {
		log.Printf("❌ Token cleanup error: %v", err)
		return
	}
	log.Printf("🧹 Purged %d expired refresh tokens", n)
}

// Start launches the scheduler
func (s *CronService) Start() {
	s.cron.Start()
	log.Printf("🚀 CronService started (%d jobs)", len(s.cron.Entries()))
}

// Stop waits for running jobs and stops the scheduler
func (s *CronService) Stop() {
	<-s.cron.Stop().Done()
	log.Println("🛑 CronService stopped")
}
