package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/wildlifechorus/standup-bot/internal/domain"
	"github.com/wildlifechorus/standup-bot/internal/standup"
	"github.com/wildlifechorus/standup-bot/internal/store"
)

const reminderText = "⏰ No standup from you yet today. Reply with /standup when you have a minute."

// Interviews is the slice of the session manager the scheduler drives.
type Interviews interface {
	Start(ctx context.Context, sub *domain.Subscriber) error
}

// Notifier sends the late-reminder nudge to a participant.
type Notifier interface {
	SendDirect(chatID int64, text string) error
}

// pendingReminder is the at-most-one armed late-reminder job. anchor is the
// trigger moment it was derived from, so a delay change can re-derive the
// fire time instead of guessing.
type pendingReminder struct {
	day    string
	anchor time.Time
	timer  *time.Timer
}

// Orchestrator owns the recurring weekday trigger evaluation and the daily
// late-reminder job. All job handles live here; other components only see
// Reconfigure.
type Orchestrator struct {
	repo       store.Repo
	interviews Interviews
	notify     Notifier
	log        *zap.Logger
	refLoc     *time.Location
	now        func() time.Time

	mu       sync.Mutex
	settings domain.ScheduleSettings
	matched  map[int64]string // userID -> last local civil day an interview was opened
	anchored string           // reference civil day the daily jobs last ran for
	pending  *pendingReminder
}

// New creates the orchestrator. Settings are loaded from the store when Run
// starts, so admin changes made while the process was down are honored.
func New(repo store.Repo, interviews Interviews, notify Notifier, log *zap.Logger, refLoc *time.Location) *Orchestrator {
	return &Orchestrator{
		repo:       repo,
		interviews: interviews,
		notify:     notify,
		log:        log,
		refLoc:     refLoc,
		now:        time.Now,
		matched:    make(map[int64]string),
	}
}

// SetClock overrides the time source. Tests only.
func (o *Orchestrator) SetClock(now func() time.Time) { o.now = now }

// Settings returns a snapshot of the current schedule settings.
func (o *Orchestrator) Settings() domain.ScheduleSettings {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.settings
}

// Run evaluates the trigger once per minute until ctx is canceled. The
// ticker itself is the single recurring job; reconfiguration swaps the
// settings it reads rather than replacing the ticker.
func (o *Orchestrator) Run(ctx context.Context) error {
	settings, err := o.repo.LoadSettings(ctx)
	if err != nil {
		return err
	}
	o.mu.Lock()
	o.settings = settings
	o.mu.Unlock()

	o.log.Info("scheduler started",
		zap.String("trigger", domain.FormatTriggerTime(settings.TriggerHour, settings.TriggerMinute)),
		zap.Bool("reminderEnabled", settings.ReminderEnabled),
		zap.Int("reminderDelayHours", settings.ReminderDelayHours),
	)

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			o.cancelPending()
			o.log.Info("scheduler stopping")
			return nil
		case <-ticker.C:
			o.Tick(ctx, o.now())
		}
	}
}

// Tick performs one evaluation cycle: open interviews for every subscriber
// whose local wall clock hit the trigger moment, and anchor the daily jobs
// when the canonical trigger moment passes.
func (o *Orchestrator) Tick(ctx context.Context, now time.Time) {
	o.mu.Lock()
	settings := o.settings
	o.mu.Unlock()

	if !domain.IsWeekday(now, o.refLoc) {
		return
	}

	subs, err := o.repo.ListSubscribers(ctx)
	if err != nil {
		o.log.Error("list subscribers failed", zap.Error(err))
		return
	}

	for i := range subs {
		sub := &subs[i]
		if sub.Vacationing(now) {
			continue
		}

		matched, err := domain.MatchesTrigger(now, sub, settings)
		if err != nil {
			// Broken timezone on one row must not poison the tick.
			o.log.Warn("skipping subscriber with invalid timezone",
				zap.Int64("userID", sub.UserID), zap.String("tz", sub.TZ))
			continue
		}
		if !matched {
			continue
		}

		loc, _ := time.LoadLocation(sub.TZ)
		localDay := domain.CivilDay(now, loc)

		o.mu.Lock()
		already := o.matched[sub.UserID] == localDay
		if !already {
			o.matched[sub.UserID] = localDay
		}
		o.mu.Unlock()
		if already {
			continue
		}

		if err := o.interviews.Start(ctx, sub); err != nil {
			if errors.Is(err, standup.ErrSessionOpen) {
				continue
			}
			o.log.Error("open interview failed",
				zap.Error(err), zap.Int64("userID", sub.UserID))
		}
	}

	if domain.AtTriggerMoment(now, o.refLoc, settings) {
		o.anchorDailyJobs(ctx, now, settings)
	}
}

// anchorDailyJobs runs once per reference-zone day, at the canonical trigger
// moment: it arms the late-reminder timer and prunes expired rows.
func (o *Orchestrator) anchorDailyJobs(ctx context.Context, now time.Time, settings domain.ScheduleSettings) {
	day := domain.CivilDay(now, o.refLoc)

	o.mu.Lock()
	if o.anchored == day {
		o.mu.Unlock()
		return
	}
	o.anchored = day
	o.mu.Unlock()

	if settings.ReminderEnabled {
		o.armReminder(day, now, time.Duration(settings.ReminderDelayHours)*time.Hour)
	}
	o.maintain(ctx, now)
}

// armReminder installs the single pending late-reminder job, replacing any
// previous one. The delay is snapshotted here; Reconfigure re-derives the
// fire time from anchor if an admin changes it before the job fires.
func (o *Orchestrator) armReminder(day string, anchor time.Time, delay time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.pending != nil {
		o.pending.timer.Stop()
	}
	p := &pendingReminder{day: day, anchor: anchor}
	p.timer = time.AfterFunc(delay, func() { o.fireReminder(day) })
	o.pending = p

	o.log.Info("late reminder armed",
		zap.String("day", day), zap.Duration("delay", delay))
}

// fireReminder notifies every straggler for the given day, at most once per
// participant per day. The enabled flag is re-checked here so disabling late
// reminders takes effect even without a reinstall in between.
func (o *Orchestrator) fireReminder(day string) {
	o.mu.Lock()
	settings := o.settings
	if o.pending != nil && o.pending.day == day {
		o.pending = nil
	}
	o.mu.Unlock()

	if !settings.ReminderEnabled {
		o.log.Info("late reminder skipped, disabled", zap.String("day", day))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	o.RunLateCheck(ctx, day)
}

// RunLateCheck evaluates every subscriber for the straggler nudge. The
// reminder record is written right after each send, so a retried evaluation
// can never notify the same participant twice on one day.
func (o *Orchestrator) RunLateCheck(ctx context.Context, day string) {
	now := o.now()

	subs, err := o.repo.ListSubscribers(ctx)
	if err != nil {
		o.log.Error("late check: list subscribers failed", zap.Error(err))
		return
	}

	for i := range subs {
		sub := &subs[i]
		if sub.Vacationing(now) {
			continue
		}

		if _, err := o.repo.GetResponse(ctx, sub.UserID, day); err == nil {
			continue // already answered
		} else if !errors.Is(err, store.ErrNotFound) {
			o.log.Error("late check: response lookup failed",
				zap.Error(err), zap.Int64("userID", sub.UserID))
			continue
		}

		sent, err := o.repo.ReminderSent(ctx, sub.UserID, day)
		if err != nil {
			o.log.Error("late check: reminder lookup failed",
				zap.Error(err), zap.Int64("userID", sub.UserID))
			continue
		}
		if sent {
			continue
		}

		if err := o.notify.SendDirect(sub.ChatID, reminderText); err != nil {
			o.log.Error("late check: send failed",
				zap.Error(err), zap.Int64("userID", sub.UserID))
			continue
		}
		if err := o.repo.RecordReminder(ctx, sub.UserID, day, o.now()); err != nil {
			o.log.Error("late check: record failed",
				zap.Error(err), zap.Int64("userID", sub.UserID))
		}
	}

	o.log.Info("late check finished", zap.String("day", day))
}

// maintain prunes responses past the retention window and reminder records
// from previous days.
func (o *Orchestrator) maintain(ctx context.Context, now time.Time) {
	today := domain.CivilDay(now, o.refLoc)
	cutoff := domain.CivilDay(now.AddDate(0, 0, -domain.ResponseRetentionDays), o.refLoc)

	if err := o.repo.PruneResponsesBefore(ctx, cutoff); err != nil {
		o.log.Error("prune responses failed", zap.Error(err))
	}
	if err := o.repo.PruneRemindersBefore(ctx, today); err != nil {
		o.log.Error("prune reminders failed", zap.Error(err))
	}

	// The per-day match set only needs today's entries.
	o.mu.Lock()
	for id, d := range o.matched {
		if d < today {
			delete(o.matched, id)
		}
	}
	o.mu.Unlock()
}

// Reconfigure persists new schedule settings and reinstalls the affected
// jobs: the recurring evaluation picks up the new trigger moment on its next
// tick, and a pending late-reminder is re-armed from its original anchor
// with the new delay. Settings swap and timer replacement happen under the
// same mutex the tick reads through, so no tick observes a half-updated pair.
func (o *Orchestrator) Reconfigure(ctx context.Context, settings domain.ScheduleSettings) error {
	if err := o.repo.SaveSettings(ctx, settings); err != nil {
		return err
	}

	o.mu.Lock()
	o.settings = settings

	if o.pending != nil {
		o.pending.timer.Stop()
		if settings.ReminderEnabled {
			p := o.pending
			fireAt := p.anchor.Add(time.Duration(settings.ReminderDelayHours) * time.Hour)
			delay := time.Until(fireAt)
			if delay < 0 {
				delay = 0
			}
			day := p.day
			p.timer = time.AfterFunc(delay, func() { o.fireReminder(day) })
		} else {
			o.pending = nil
		}
	}
	o.mu.Unlock()

	o.log.Info("schedule reconfigured",
		zap.String("trigger", domain.FormatTriggerTime(settings.TriggerHour, settings.TriggerMinute)),
		zap.Bool("reminderEnabled", settings.ReminderEnabled),
		zap.Int("reminderDelayHours", settings.ReminderDelayHours),
	)
	return nil
}

func (o *Orchestrator) cancelPending() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.pending != nil {
		o.pending.timer.Stop()
		o.pending = nil
	}
}
