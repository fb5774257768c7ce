package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	// Registers the "sqlite" driver (pure Go).
	_ "modernc.org/sqlite"

	"github.com/wildlifechorus/standup-bot/internal/domain"
)

// ErrNotFound is returned when a queried row does not exist.
var ErrNotFound = errors.New("not found")

// SQLiteRepo implements Repo using an embedded SQLite database.
type SQLiteRepo struct{ db *sql.DB }

// OpenSQLite opens (or creates) the SQLite database at the given path,
// applies recommended PRAGMAs, runs SQL migrations, and returns a repository.
func OpenSQLite(ctx context.Context, path string) (*SQLiteRepo, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// Reasonable pooling for SQLite; it's a single-writer engine.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := applyPragmas(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}
	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}

	return &SQLiteRepo{db: db}, nil
}

// applyPragmas configures the SQLite connection for durability and concurrency.
func applyPragmas(ctx context.Context, db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA foreign_keys=ON;",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the underlying database resources.
func (r *SQLiteRepo) Close() error {
	return r.db.Close()
}

// --- Subscribers ---

// UpsertSubscriber inserts or updates a subscriber row keyed by user_id.
func (r *SQLiteRepo) UpsertSubscriber(ctx context.Context, s *domain.Subscriber) error {
	if s == nil {
		return errors.New("nil subscriber")
	}

	created := s.CreatedAt.UTC().Unix()
	if created == 0 {
		created = time.Now().UTC().Unix()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO subscribers (
			user_id, chat_id, handle, tz, on_vacation, vacation_until, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			chat_id        = excluded.chat_id,
			handle         = excluded.handle,
			tz             = excluded.tz,
			on_vacation    = excluded.on_vacation,
			vacation_until = excluded.vacation_until`,
		s.UserID, s.ChatID, s.Handle, s.TZ,
		boolToInt(s.OnVacation), toNullInt64(s.VacationUntil), created,
	)
	return err
}

func scanSubscriber(row interface{ Scan(...any) error }) (*domain.Subscriber, error) {
	var (
		userID      int64
		chatID      int64
		handle      string
		tz          string
		vacationInt int
		untilNS     sql.NullInt64
		createdAt   int64
	)
	if err := row.Scan(&userID, &chatID, &handle, &tz, &vacationInt, &untilNS, &createdAt); err != nil {
		return nil, err
	}
	return &domain.Subscriber{
		UserID:        userID,
		ChatID:        chatID,
		Handle:        handle,
		TZ:            tz,
		OnVacation:    vacationInt != 0,
		VacationUntil: fromNullInt64(untilNS),
		CreatedAt:     time.Unix(createdAt, 0).UTC(),
	}, nil
}

// GetSubscriber returns a subscriber by user ID or ErrNotFound.
func (r *SQLiteRepo) GetSubscriber(ctx context.Context, userID int64) (*domain.Subscriber, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT user_id, chat_id, handle, tz, on_vacation, vacation_until, created_at
		FROM subscribers
		WHERE user_id = ?`,
		userID,
	)
	s, err := scanSubscriber(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return s, err
}

// RemoveSubscriber deletes a subscriber row. Missing rows are not an error.
func (r *SQLiteRepo) RemoveSubscriber(ctx context.Context, userID int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM subscribers WHERE user_id = ?`, userID)
	return err
}

// ListSubscribers returns every subscriber, vacationing or not. Callers
// filter with Subscriber.Vacationing because the expiry rule lives in the
// domain, not in SQL.
func (r *SQLiteRepo) ListSubscribers(ctx context.Context) ([]domain.Subscriber, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT user_id, chat_id, handle, tz, on_vacation, vacation_until, created_at
		FROM subscribers
		ORDER BY user_id ASC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []domain.Subscriber
	for rows.Next() {
		s, err := scanSubscriber(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, *s)
	}
	return res, rows.Err()
}

// SetVacation marks a subscriber on vacation until the given date (inclusive).
func (r *SQLiteRepo) SetVacation(ctx context.Context, userID int64, until *time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE subscribers
		SET on_vacation = 1, vacation_until = ?
		WHERE user_id = ?`,
		toNullInt64(until), userID,
	)
	return err
}

// ClearVacation marks a subscriber back at work.
func (r *SQLiteRepo) ClearVacation(ctx context.Context, userID int64) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE subscribers
		SET on_vacation = 0, vacation_until = NULL
		WHERE user_id = ?`,
		userID,
	)
	return err
}

// SetTimezone updates a subscriber's timezone. The caller validates the zone.
func (r *SQLiteRepo) SetTimezone(ctx context.Context, userID int64, tz string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE subscribers
		SET tz = ?
		WHERE user_id = ?`,
		tz, userID,
	)
	return err
}

// --- Responses ---

// UpsertResponse stores a standup for (user, day), replacing any earlier
// submission that day.
func (r *SQLiteRepo) UpsertResponse(ctx context.Context, resp *domain.Response) error {
	if resp == nil {
		return errors.New("nil response")
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO responses (user_id, handle, yesterday, today, blockers, day, submitted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, day) DO UPDATE SET
			handle       = excluded.handle,
			yesterday    = excluded.yesterday,
			today        = excluded.today,
			blockers     = excluded.blockers,
			submitted_at = excluded.submitted_at`,
		resp.UserID, resp.Handle, resp.Yesterday, resp.Today, resp.Blockers,
		resp.Day, resp.SubmittedAt.UTC().Unix(),
	)
	return err
}

func scanResponse(row interface{ Scan(...any) error }) (*domain.Response, error) {
	var (
		resp        domain.Response
		submittedAt int64
	)
	if err := row.Scan(&resp.UserID, &resp.Handle, &resp.Yesterday, &resp.Today,
		&resp.Blockers, &resp.Day, &submittedAt); err != nil {
		return nil, err
	}
	resp.SubmittedAt = time.Unix(submittedAt, 0).UTC()
	return &resp, nil
}

// GetResponse returns the response for (user, day) or ErrNotFound.
func (r *SQLiteRepo) GetResponse(ctx context.Context, userID int64, day string) (*domain.Response, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT user_id, handle, yesterday, today, blockers, day, submitted_at
		FROM responses
		WHERE user_id = ? AND day = ?`,
		userID, day,
	)
	resp, err := scanResponse(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return resp, err
}

// ListResponsesForDay returns all responses submitted for the given civil day.
func (r *SQLiteRepo) ListResponsesForDay(ctx context.Context, day string) ([]domain.Response, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT user_id, handle, yesterday, today, blockers, day, submitted_at
		FROM responses
		WHERE day = ?
		ORDER BY submitted_at ASC`,
		day,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []domain.Response
	for rows.Next() {
		resp, err := scanResponse(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, *resp)
	}
	return res, rows.Err()
}

// ListResponsesBetween returns responses for civil days in [fromDay, toDay].
func (r *SQLiteRepo) ListResponsesBetween(ctx context.Context, fromDay, toDay string) ([]domain.Response, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT user_id, handle, yesterday, today, blockers, day, submitted_at
		FROM responses
		WHERE day BETWEEN ? AND ?
		ORDER BY day ASC, submitted_at ASC`,
		fromDay, toDay,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []domain.Response
	for rows.Next() {
		resp, err := scanResponse(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, *resp)
	}
	return res, rows.Err()
}

// PruneResponsesBefore deletes responses for civil days strictly before day.
// Day keys are zero-padded ISO dates, so string comparison orders correctly.
func (r *SQLiteRepo) PruneResponsesBefore(ctx context.Context, day string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM responses WHERE day < ?`, day)
	return err
}

// --- Late reminders ---

// RecordReminder marks that the straggler nudge for (user, day) went out.
// A second insert for the same pair is a silent no-op.
func (r *SQLiteRepo) RecordReminder(ctx context.Context, userID int64, day string, sentAt time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO reminders (user_id, day, sent_at)
		VALUES (?, ?, ?)
		ON CONFLICT(user_id, day) DO NOTHING`,
		userID, day, sentAt.UTC().Unix(),
	)
	return err
}

// ReminderSent reports whether the nudge for (user, day) already went out.
func (r *SQLiteRepo) ReminderSent(ctx context.Context, userID int64, day string) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(1) FROM reminders WHERE user_id = ? AND day = ?`,
		userID, day,
	).Scan(&n)
	return n > 0, err
}

// PruneRemindersBefore deletes reminder records for days strictly before day.
func (r *SQLiteRepo) PruneRemindersBefore(ctx context.Context, day string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM reminders WHERE day < ?`, day)
	return err
}

// --- Schedule settings ---

const (
	settingTriggerHour     = "trigger_hour"
	settingTriggerMinute   = "trigger_minute"
	settingReminderEnabled = "reminder_enabled"
	settingReminderDelay   = "reminder_delay_hours"
)

// LoadSettings reads the schedule settings, falling back to defaults for
// any key the table does not hold yet.
func (r *SQLiteRepo) LoadSettings(ctx context.Context) (domain.ScheduleSettings, error) {
	s := domain.DefaultSettings()

	rows, err := r.db.QueryContext(ctx, `SELECT key, value FROM settings`)
	if err != nil {
		return s, err
	}
	defer rows.Close()

	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return s, err
		}
		switch key {
		case settingTriggerHour:
			if v, err := strconv.Atoi(value); err == nil {
				s.TriggerHour = v
			}
		case settingTriggerMinute:
			if v, err := strconv.Atoi(value); err == nil {
				s.TriggerMinute = v
			}
		case settingReminderEnabled:
			s.ReminderEnabled = value == "1"
		case settingReminderDelay:
			if v, err := strconv.Atoi(value); err == nil {
				s.ReminderDelayHours = v
			}
		}
	}
	return s, rows.Err()
}

// SaveSettings writes every settings key in one transaction so a concurrent
// LoadSettings never sees a half-updated hour/minute pair.
func (r *SQLiteRepo) SaveSettings(ctx context.Context, s domain.ScheduleSettings) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	pairs := map[string]string{
		settingTriggerHour:     strconv.Itoa(s.TriggerHour),
		settingTriggerMinute:   strconv.Itoa(s.TriggerMinute),
		settingReminderEnabled: strconv.Itoa(boolToInt(s.ReminderEnabled)),
		settingReminderDelay:   strconv.Itoa(s.ReminderDelayHours),
	}
	for key, value := range pairs {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO settings (key, value) VALUES (?, ?)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
			key, value,
		); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}
