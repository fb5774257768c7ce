package store

import (
	"context"
	"time"

	"github.com/wildlifechorus/standup-bot/internal/domain"
)

// Repo defines storage operations for subscribers, responses, late-reminder
// records and schedule settings.
type Repo interface {
	// Subscribers
	UpsertSubscriber(ctx context.Context, s *domain.Subscriber) error
	GetSubscriber(ctx context.Context, userID int64) (*domain.Subscriber, error)
	RemoveSubscriber(ctx context.Context, userID int64) error
	ListSubscribers(ctx context.Context) ([]domain.Subscriber, error)
	SetVacation(ctx context.Context, userID int64, until *time.Time) error
	ClearVacation(ctx context.Context, userID int64) error
	SetTimezone(ctx context.Context, userID int64, tz string) error

	// Responses (one per subscriber per civil day; upsert supersedes)
	UpsertResponse(ctx context.Context, r *domain.Response) error
	GetResponse(ctx context.Context, userID int64, day string) (*domain.Response, error)
	ListResponsesForDay(ctx context.Context, day string) ([]domain.Response, error)
	ListResponsesBetween(ctx context.Context, fromDay, toDay string) ([]domain.Response, error)
	PruneResponsesBefore(ctx context.Context, day string) error

	// Late reminders (one record per subscriber per civil day)
	RecordReminder(ctx context.Context, userID int64, day string, sentAt time.Time) error
	ReminderSent(ctx context.Context, userID int64, day string) (bool, error)
	PruneRemindersBefore(ctx context.Context, day string) error

	// Schedule settings singleton
	LoadSettings(ctx context.Context) (domain.ScheduleSettings, error)
	SaveSettings(ctx context.Context, s domain.ScheduleSettings) error

	Close() error
}
