package push

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/parentpal/parentpal/internal/model"
	"github.com/parentpal/parentpal/internal/store"
)

// Scheduler sends a daily due-chore reminder to each subscribed household.
type Scheduler struct {
	mu       sync.RWMutex
	service  *Service
	push     *store.PushStore
	chores   *store.ChoreStore
	members  *store.FamilyMemberStore
	logger   *slog.Logger
	interval time.Duration
	sentDay  string
	sent     map[int64]struct{}
	cancel   context.CancelFunc
	done     chan struct{}
}

func NewScheduler(svc *Service, pushStore *store.PushStore, choreStore *store.ChoreStore, memberStore *store.FamilyMemberStore, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		service:  svc,
		push:     pushStore,
		chores:   choreStore,
		members:  memberStore,
		logger:   logger.With("component", "push_scheduler"),
		interval: 60 * time.Second,
		sent:     make(map[int64]struct{}),
	}
}

// Start begins the scheduler loop.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	s.mu.Unlock()

	go func() {
		defer close(s.done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.tick(time.Now().UTC())
			}
		}
	}()
}

// Stop gracefully stops the scheduler.
func (s *Scheduler) Stop() {
	s.mu.RLock()
	cancel := s.cancel
	done := s.done
	s.mu.RUnlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

func (s *Scheduler) tick(now time.Time) {
	if !s.service.Configured() {
		return
	}
	// One reminder per household per day, shortly after the hour.
	if now.Minute() != 0 {
		return
	}

	householdIDs, err := s.push.ListHouseholdIDs()
	if err != nil {
		s.logger.Error("list households", "error", err)
		return
	}
	for _, hid := range householdIDs {
		s.remindHousehold(hid, now)
	}
}

// shouldRemind reports whether the household still needs today's reminder.
// The dedup map holds at most one entry per subscribed household and is
// discarded on day rollover, so it never grows past the subscriber count.
func (s *Scheduler) shouldRemind(householdID int64, day string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sentDay != day {
		s.sentDay = day
		s.sent = make(map[int64]struct{})
	}
	if _, ok := s.sent[householdID]; ok {
		return false
	}
	s.sent[householdID] = struct{}{}
	return true
}

func (s *Scheduler) remindHousehold(householdID int64, now time.Time) {
	if !s.shouldRemind(householdID, now.Format("2006-01-02")) {
		return
	}

	endOfDay := now.Truncate(24 * time.Hour).Add(24 * time.Hour)
	due, err := s.chores.DueBefore(householdID, endOfDay)
	if err != nil {
		s.logger.Error("list due chores", "household_id", householdID, "error", err)
		return
	}
	if len(due) == 0 {
		return
	}

	// Group by assignee so each member hears about their own chores.
	byMember := make(map[int64][]model.Chore)
	for _, c := range due {
		if c.AssignedTo == nil {
			continue
		}
		byMember[*c.AssignedTo] = append(byMember[*c.AssignedTo], c)
	}

	for memberID, chores := range byMember {
		member, err := s.members.GetByID(householdID, memberID)
		if err != nil || member == nil || member.UserID == nil {
			continue
		}

		body := fmt.Sprintf("You have %d chores due today", len(chores))
		if len(chores) == 1 {
			body = fmt.Sprintf("Due today: %s", chores[0].Title)
		}
		payload := Payload{
			Title: "Chore Reminders",
			Body:  body,
			URL:   "/chores",
			Tag:   model.NotifTypeChoreDue,
		}

		subs, err := s.push.ListByUser(*member.UserID)
		if err != nil {
			s.logger.Error("list subscriptions", "error", err)
			continue
		}
		for _, sub := range subs {
			if err := s.service.Send(&sub, payload); err != nil {
				if errors.Is(err, ErrExpired) {
					s.push.DeleteByEndpoint(sub.Endpoint)
				} else {
					s.logger.Warn("send reminder", "error", err)
				}
			}
		}
	}
}
