// Package scheduler
package scheduler

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/oliateam/leadfunnel/app/metrics"
	businessflow "github.com/oliateam/leadfunnel/business_flow"
	"github.com/oliateam/leadfunnel/models"
	"github.com/oliateam/leadfunnel/repository"
)

// ReminderScheduler delivers a single nudge to users who enter the funnel but
// stall before answering the device question. Scheduling the same user again
// replaces the pending timer, so the delay always counts from the most recent
// funnel entry. The wake-time state check in the repository is authoritative:
// a timer that fires after the user finished, or after another process already
// sent the reminder, does nothing.
type ReminderScheduler struct {
	polls     repository.PollResponseRepository
	settings  repository.ReminderSettingsRepository
	messenger businessflow.Messenger
	delay     time.Duration
	logger    *log.Logger

	mu      sync.Mutex
	pending map[int64]*pendingTimer
	wg      sync.WaitGroup

	root    context.Context
	stopAll context.CancelFunc
}

// pendingTimer identifies one armed timer. The pointer doubles as an
// ownership token: a timer may only drop the map entry it still owns.
type pendingTimer struct {
	cancel context.CancelFunc
}

func NewReminderScheduler(
	polls repository.PollResponseRepository,
	settings repository.ReminderSettingsRepository,
	messenger businessflow.Messenger,
	delay time.Duration,
	logger *log.Logger,
) *ReminderScheduler {
	if delay <= 0 {
		delay = 5 * time.Minute
	}
	if logger == nil {
		logger = log.New(log.Writer(), "reminder ", log.LstdFlags|log.Lmicroseconds|log.LUTC)
	}
	root, cancel := context.WithCancel(context.Background())
	return &ReminderScheduler{
		polls:     polls,
		settings:  settings,
		messenger: messenger,
		delay:     delay,
		logger:    logger,
		pending:   make(map[int64]*pendingTimer),
		root:      root,
		stopAll:   cancel,
	}
}

// Schedule arms (or re-arms) the reminder timer for a user.
func (s *ReminderScheduler) Schedule(userID, chatID int64) {
	s.mu.Lock()
	if s.root.Err() != nil {
		s.mu.Unlock()
		return
	}
	if prev, ok := s.pending[userID]; ok {
		prev.cancel()
	}
	ctx, cancel := context.WithCancel(s.root)
	p := &pendingTimer{cancel: cancel}
	s.pending[userID] = p
	s.wg.Add(1)
	s.mu.Unlock()

	go s.wait(ctx, p, userID, chatID)
}

// Cancel drops any pending timer for the user. Safe to call when none exists.
func (s *ReminderScheduler) Cancel(userID int64) {
	s.mu.Lock()
	if p, ok := s.pending[userID]; ok {
		p.cancel()
		delete(s.pending, userID)
	}
	s.mu.Unlock()
}

// Stop cancels all pending timers and waits for in-flight deliveries.
func (s *ReminderScheduler) Stop() {
	s.stopAll()
	s.wg.Wait()
}

func (s *ReminderScheduler) wait(ctx context.Context, p *pendingTimer, userID, chatID int64) {
	defer s.wg.Done()

	timer := time.NewTimer(s.delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return
	case <-timer.C:
	}

	s.release(userID, p)
	s.fire(userID, chatID)
}

// release drops the pending entry only while it still belongs to this timer.
// A Schedule that raced in after the timer fired owns the slot now and must
// stay cancellable.
func (s *ReminderScheduler) release(userID int64, p *pendingTimer) {
	s.mu.Lock()
	if s.pending[userID] == p {
		delete(s.pending, userID)
	}
	s.mu.Unlock()
}

func (s *ReminderScheduler) fire(userID, chatID int64) {
	// Detach from the per-timer context so Stop does not abort a delivery
	// that already won the claim.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	won, err := s.polls.TryMarkReminderSent(ctx, userID)
	if err != nil {
		s.logger.Printf("reminder: claim failed for user id=%d: %v", userID, err)
		return
	}
	if !won {
		// Finished the funnel, structural reset, or already reminded.
		return
	}

	text := models.DefaultReminderText
	if settings, err := s.settings.Get(ctx); err != nil {
		s.logger.Printf("reminder: load settings failed for user id=%d: %v", userID, err)
	} else if settings != nil && settings.Text != "" {
		text = settings.Text
	}

	if err := s.messenger.SendText(ctx, chatID, text); err != nil {
		s.logger.Printf("reminder: send failed for user id=%d: %v", userID, err)
		return
	}
	metrics.RemindersSentTotal.Inc()
	s.logger.Printf("reminder: sent to user id=%d", userID)
}
