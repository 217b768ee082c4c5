package cron

import (
	"context"
	"log"
	"time"

	"fixmyspine_backend/pkg/subscription"

	"github.com/robfig/cron/v3"
)

// Schedules follow the original operating rhythm: reminders in the
// morning, the expiry sweep an hour later, the health check weekly.
const (
	renewalSpec = "0 9 * * *"
	sweepSpec   = "0 10 * * *"
	healthSpec  = "0 9 * * 1"
)

// Scheduler owns the periodic subscription jobs. Explicitly constructed
// with its dependencies and started/stopped by the caller; no package
// state. Each job is wrapped with SkipIfStillRunning so a slow run is
// never overlapped by the next tick.
type Scheduler struct {
	cron     *cron.Cron
	sweeper  *subscription.Sweeper
	notifier *subscription.Notifier
	health   *subscription.HealthCheck
}

func NewScheduler(timezone string, sweeper *subscription.Sweeper, notifier *subscription.Notifier, health *subscription.HealthCheck) (*Scheduler, error) {
	location, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, err
	}

	s := &Scheduler{
		cron: cron.New(
			cron.WithLocation(location),
			cron.WithChain(
				cron.SkipIfStillRunning(cron.DefaultLogger),
				cron.Recover(cron.DefaultLogger),
			),
		),
		sweeper:  sweeper,
		notifier: notifier,
		health:   health,
	}

	if _, err := s.cron.AddFunc(renewalSpec, s.runNotifier); err != nil {
		return nil, err
	}
	if _, err := s.cron.AddFunc(sweepSpec, s.runSweeper); err != nil {
		return nil, err
	}
	if _, err := s.cron.AddFunc(healthSpec, s.runHealthCheck); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	log.Printf("Subscription scheduler started: %d jobs", len(s.cron.Entries()))
}

// Stop halts scheduling and waits for any job mid-run to finish its
// current batch.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	log.Println("Subscription scheduler stopped")
}

// Jobs counts the registered cron entries.
func (s *Scheduler) Jobs() int {
	return len(s.cron.Entries())
}

func (s *Scheduler) runNotifier() {
	log.Println("Running renewal notification check...")
	counts, err := s.notifier.Notify(context.Background(), time.Now(), subscription.DefaultHorizons)
	if err != nil {
		log.Printf("Error in renewal notification check: %v", err)
		return
	}
	log.Printf("Renewal notification check completed: 7-day=%d 3-day=%d 1-day=%d",
		counts[7], counts[3], counts[1])
}

func (s *Scheduler) runSweeper() {
	log.Println("Running expired subscription sweep...")
	if _, err := s.sweeper.Sweep(context.Background(), time.Now()); err != nil {
		log.Printf("Error in expired subscription sweep: %v", err)
	}
}

func (s *Scheduler) runHealthCheck() {
	log.Println("Running subscription health check...")
	if _, err := s.health.Run(context.Background(), time.Now()); err != nil {
		log.Printf("Error in subscription health check: %v", err)
	}
}
