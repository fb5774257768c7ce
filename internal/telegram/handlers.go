package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/wildlifechorus/standup-bot/internal/domain"
	"github.com/wildlifechorus/standup-bot/internal/standup"
	"github.com/wildlifechorus/standup-bot/internal/store"
)

// activeSubscriber loads the subscriber and rejects non-subscribers.
func (r *Router) activeSubscriber(ctx context.Context, userID int64) (*domain.Subscriber, error) {
	sub, err := r.repo.GetSubscriber(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, errors.New("not subscribed")
	}
	return sub, err
}

func (r *Router) handleSubscribe(ctx context.Context, userID, chatID int64, handle string) {
	if _, err := r.repo.GetSubscriber(ctx, userID); err == nil {
		r.sendText(chatID, alreadySubscribedText)
		return
	} else if !errors.Is(err, store.ErrNotFound) {
		r.log.Error("subscriber lookup failed", zap.Error(err))
		r.sendText(chatID, storageErrorText)
		return
	}

	sub := &domain.Subscriber{
		UserID:    userID,
		ChatID:    chatID,
		Handle:    handle,
		TZ:        r.defaultTZ,
		CreatedAt: time.Now().UTC(),
	}
	if err := r.repo.UpsertSubscriber(ctx, sub); err != nil {
		r.log.Error("subscribe failed", zap.Error(err), zap.Int64("userID", userID))
		r.sendText(chatID, storageErrorText)
		return
	}
	settings := r.orch.Settings()
	r.sendText(chatID, fmt.Sprintf(subscribedFmt,
		domain.FormatTriggerTime(settings.TriggerHour, settings.TriggerMinute), r.defaultTZ))
}

func (r *Router) handleUnsubscribe(ctx context.Context, userID, chatID int64) {
	if _, err := r.activeSubscriber(ctx, userID); err != nil {
		r.sendText(chatID, notSubscribedText)
		return
	}
	if err := r.repo.RemoveSubscriber(ctx, userID); err != nil {
		r.log.Error("unsubscribe failed", zap.Error(err), zap.Int64("userID", userID))
		r.sendText(chatID, storageErrorText)
		return
	}
	// An open interview for a gone subscriber has nowhere to go.
	_ = r.interviews.Abort(userID)
	r.sendText(chatID, unsubscribedText)
}

func (r *Router) handleVacation(ctx context.Context, userID, chatID int64, args string) {
	if _, err := r.activeSubscriber(ctx, userID); err != nil {
		r.sendText(chatID, notSubscribedText)
		return
	}
	until, err := domain.ParseVacationDate(args, time.Now().UTC())
	if err != nil {
		r.sendText(chatID, vacationUsageText)
		return
	}
	if err := r.repo.SetVacation(ctx, userID, &until); err != nil {
		r.log.Error("set vacation failed", zap.Error(err), zap.Int64("userID", userID))
		r.sendText(chatID, storageErrorText)
		return
	}
	r.sendText(chatID, fmt.Sprintf(vacationSetFmt, until.Format("2006-01-02")))
}

func (r *Router) handleBack(ctx context.Context, userID, chatID int64) {
	if _, err := r.activeSubscriber(ctx, userID); err != nil {
		r.sendText(chatID, notSubscribedText)
		return
	}
	if err := r.repo.ClearVacation(ctx, userID); err != nil {
		r.log.Error("clear vacation failed", zap.Error(err), zap.Int64("userID", userID))
		r.sendText(chatID, storageErrorText)
		return
	}
	r.sendText(chatID, welcomeBackText)
}

func (r *Router) handleTimezone(ctx context.Context, userID, chatID int64, args string) {
	if _, err := r.activeSubscriber(ctx, userID); err != nil {
		r.sendText(chatID, notSubscribedText)
		return
	}
	tz, err := domain.ValidateTZ(args)
	if err != nil {
		r.sendText(chatID, timezoneUsageText)
		return
	}
	if err := r.repo.SetTimezone(ctx, userID, tz); err != nil {
		r.log.Error("set timezone failed", zap.Error(err), zap.Int64("userID", userID))
		r.sendText(chatID, storageErrorText)
		return
	}
	r.sendText(chatID, fmt.Sprintf(timezoneSetFmt, tz))
}

func (r *Router) handleStandup(ctx context.Context, userID, chatID int64) {
	sub, err := r.activeSubscriber(ctx, userID)
	if err != nil {
		r.sendText(chatID, notSubscribedText)
		return
	}
	if sub.Vacationing(time.Now().UTC()) {
		r.sendText(chatID, onVacationText)
		return
	}
	// Answers should land in the chat the command came from.
	sub.ChatID = chatID

	if err := r.interviews.Start(ctx, sub); err != nil {
		if errors.Is(err, standup.ErrSessionOpen) {
			r.sendText(chatID, sessionOpenText)
			return
		}
		r.log.Error("manual standup failed", zap.Error(err), zap.Int64("userID", userID))
		r.sendText(chatID, submitFailedText)
	}
}

func (r *Router) handleSkip(ctx context.Context, userID, chatID int64) {
	err := r.interviews.Skip(ctx, userID)
	switch {
	case err == nil:
	case errors.Is(err, standup.ErrNoSession):
		r.sendText(chatID, noSessionText)
	case errors.Is(err, standup.ErrCannotSkip):
		r.sendText(chatID, cannotSkipText)
	default:
		r.log.Error("skip failed", zap.Error(err), zap.Int64("userID", userID))
		r.sendText(chatID, submitFailedText)
	}
}

func (r *Router) handleStatus(ctx context.Context, userID, chatID int64) {
	sub, err := r.activeSubscriber(ctx, userID)
	if err != nil {
		r.sendText(chatID, notSubscribedText)
		return
	}

	vacation := "no"
	if sub.Vacationing(time.Now().UTC()) {
		vacation = "until " + sub.VacationUntil.Format("2006-01-02")
	}
	settings := r.orch.Settings()
	reminder := "off"
	if settings.ReminderEnabled {
		reminder = fmt.Sprintf("%dh after standup", settings.ReminderDelayHours)
	}
	r.sendText(chatID, fmt.Sprintf(statusFmt,
		sub.TZ,
		vacation,
		domain.FormatTriggerTime(settings.TriggerHour, settings.TriggerMinute),
		reminder,
	))
}

func (r *Router) handleSetTime(ctx context.Context, chatID int64, handle, args string) {
	if !r.isAdmin(handle) {
		r.sendText(chatID, adminOnlyText)
		return
	}
	hour, minute, err := domain.ParseTriggerTime(args)
	if err != nil {
		r.sendText(chatID, setTimeUsageText)
		return
	}

	settings := r.orch.Settings()
	settings.TriggerHour = hour
	settings.TriggerMinute = minute
	if err := r.orch.Reconfigure(ctx, settings); err != nil {
		r.log.Error("set trigger time failed", zap.Error(err))
		r.sendText(chatID, storageErrorText)
		return
	}
	r.sendText(chatID, fmt.Sprintf(timeSetFmt, domain.FormatTriggerTime(hour, minute)))
}

func (r *Router) handleSetReminder(ctx context.Context, chatID int64, handle, args string) {
	if !r.isAdmin(handle) {
		r.sendText(chatID, adminOnlyText)
		return
	}

	settings := r.orch.Settings()
	if strings.EqualFold(strings.TrimSpace(args), "off") {
		settings.ReminderEnabled = false
	} else {
		hours, err := domain.ParseReminderDelay(args)
		if err != nil {
			r.sendText(chatID, setReminderUsageText)
			return
		}
		settings.ReminderEnabled = true
		settings.ReminderDelayHours = hours
	}

	if err := r.orch.Reconfigure(ctx, settings); err != nil {
		r.log.Error("set reminder failed", zap.Error(err))
		r.sendText(chatID, storageErrorText)
		return
	}
	if settings.ReminderEnabled {
		r.sendText(chatID, fmt.Sprintf(reminderSetFmt, settings.ReminderDelayHours))
	} else {
		r.sendText(chatID, reminderOffText)
	}
}

func (r *Router) handleWhosHere(ctx context.Context, chatID int64, handle string) {
	if !r.isAdmin(handle) {
		r.sendText(chatID, adminOnlyText)
		return
	}

	now := time.Now()
	day := domain.CivilDay(now, r.refLoc)
	responses, err := r.repo.ListResponsesForDay(ctx, day)
	if err != nil {
		r.log.Error("list responses failed", zap.Error(err))
		r.sendText(chatID, storageErrorText)
		return
	}
	subs, err := r.repo.ListSubscribers(ctx)
	if err != nil {
		r.log.Error("list subscribers failed", zap.Error(err))
		r.sendText(chatID, storageErrorText)
		return
	}

	answered := make(map[int64]bool, len(responses))
	var done, waiting []string
	for _, resp := range responses {
		answered[resp.UserID] = true
		done = append(done, "@"+resp.Handle)
	}
	for _, sub := range subs {
		if answered[sub.UserID] || sub.Vacationing(now.UTC()) {
			continue
		}
		waiting = append(waiting, "@"+sub.Handle)
	}

	if len(done) == 0 {
		done = []string{"nobody yet"}
	}
	if len(waiting) == 0 {
		waiting = []string{"nobody"}
	}
	r.sendText(chatID, fmt.Sprintf(whosHereFmt,
		day, strings.Join(done, ", "), strings.Join(waiting, ", ")))
}

// handleReport summarizes submissions over the retention window, one count
// per participant.
func (r *Router) handleReport(ctx context.Context, chatID int64, handle string) {
	if !r.isAdmin(handle) {
		r.sendText(chatID, adminOnlyText)
		return
	}

	now := time.Now()
	toDay := domain.CivilDay(now, r.refLoc)
	fromDay := domain.CivilDay(now.AddDate(0, 0, -(domain.ResponseRetentionDays-1)), r.refLoc)
	responses, err := r.repo.ListResponsesBetween(ctx, fromDay, toDay)
	if err != nil {
		r.log.Error("range query failed", zap.Error(err))
		r.sendText(chatID, storageErrorText)
		return
	}

	counts := make(map[string]int)
	var order []string
	for _, resp := range responses {
		if _, seen := counts[resp.Handle]; !seen {
			order = append(order, resp.Handle)
		}
		counts[resp.Handle]++
	}

	if len(order) == 0 {
		r.sendText(chatID, fmt.Sprintf(reportEmptyFmt, fromDay, toDay))
		return
	}
	var b strings.Builder
	fmt.Fprintf(&b, reportHeaderFmt, fromDay, toDay)
	for _, h := range order {
		fmt.Fprintf(&b, "\n• @%s — %d", h, counts[h])
	}
	r.sendText(chatID, b.String())
}
