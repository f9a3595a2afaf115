package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/riskibarqy/pickup-matchmaking/internal/domain/roster"
	"github.com/riskibarqy/pickup-matchmaking/internal/platform/keyedlock"
	"github.com/riskibarqy/pickup-matchmaking/internal/platform/logging"
)

type ClearReport struct {
	Cleared int
	// Skipped counts venues left alone because they are playing an accepted challenge.
	Skipped int
}

// DailySchedule is a wall-clock time of day in a fixed location.
type DailySchedule struct {
	Hour     int
	Minute   int
	Location *time.Location
}

// Next returns the first occurrence strictly after now.
func (d DailySchedule) Next(now time.Time) time.Time {
	loc := d.Location
	if loc == nil {
		loc = time.UTC
	}
	local := now.In(loc)
	next := time.Date(local.Year(), local.Month(), local.Day(), d.Hour, d.Minute, 0, 0, loc)
	if !next.After(local) {
		next = time.Date(local.Year(), local.Month(), local.Day()+1, d.Hour, d.Minute, 0, 0, loc)
	}
	return next
}

type MaintenanceService struct {
	rosters  rosterAccess
	locks    *keyedlock.Locker
	schedule DailySchedule
	logger   *logging.Logger
	now      func() time.Time
}

func NewMaintenanceService(
	rosterRepo roster.Repository,
	locks *keyedlock.Locker,
	notifier Notifier,
	schedule DailySchedule,
	logger *logging.Logger,
) *MaintenanceService {
	if logger == nil {
		logger = logging.Default()
	}
	s := &MaintenanceService{
		locks:    locks,
		schedule: schedule,
		logger:   logger.Named("maintenance"),
		now:      time.Now,
	}
	s.rosters = rosterAccess{repo: rosterRepo, notifier: notifier, logger: s.logger, now: s.clock}
	return s
}

func (s *MaintenanceService) clock() time.Time {
	return s.now()
}

// DailyClear empties every roster except those linked to an accepted challenge.
func (s *MaintenanceService) DailyClear(ctx context.Context) (report ClearReport, err error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.MaintenanceService.DailyClear")
	defer func() { endSpan(span, err) }()

	states, err := s.rosters.repo.List(ctx)
	if err != nil {
		return ClearReport{}, fmt.Errorf("list rosters: %w", err)
	}

	for _, listed := range states {
		cleared, err := s.clearOne(ctx, listed)
		if err != nil {
			return report, err
		}
		if cleared {
			report.Cleared++
		} else {
			report.Skipped++
		}
	}
	return report, nil
}

func (s *MaintenanceService) clearOne(ctx context.Context, listed roster.State) (bool, error) {
	unlock, err := s.locks.Lock(ctx, venueLockKey(listed.Venue.Key))
	if err != nil {
		return false, err
	}
	defer unlock()

	state, exists, err := s.rosters.peek(ctx, listed.Venue.Key)
	if err != nil {
		return false, err
	}
	if !exists {
		return true, nil
	}
	if state.Linked() {
		return false, nil
	}

	fresh := roster.NewState(state.Venue, s.now())
	fresh.Display = state.Display
	s.rosters.refresh(ctx, &fresh)
	if err := s.rosters.save(ctx, fresh); err != nil {
		return false, err
	}
	return true, nil
}

// Run fires DailyClear on the schedule until ctx is done.
func (s *MaintenanceService) Run(ctx context.Context) error {
	for {
		next := s.schedule.Next(s.now())
		s.logger.InfoContext(ctx, "daily clear scheduled", "at", next.Format(time.RFC3339))

		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}

		report, err := s.DailyClear(ctx)
		if err != nil {
			s.logger.ErrorContext(ctx, "daily clear failed", "error", err)
			continue
		}
		s.logger.InfoContext(ctx, "daily clear done", "cleared", report.Cleared, "skipped", report.Skipped)
	}
}
