package domain

import "time"

// Subscriber represents one standup participant.
type Subscriber struct {
	UserID        int64  // Telegram user ID, stable key
	ChatID        int64  // private chat used for questions and reminders
	Handle        string // @username without the '@'
	TZ            string // IANA zone, e.g. "America/New_York"
	OnVacation    bool
	VacationUntil *time.Time // inclusive last day off, nil when not set
	CreatedAt     time.Time  // UTC
}

// Vacationing reports whether the subscriber is currently off. A set flag
// with an end date in the past counts as back at work even though /back was
// never issued.
func (s *Subscriber) Vacationing(now time.Time) bool {
	if !s.OnVacation {
		return false
	}
	if s.VacationUntil == nil {
		return true
	}
	// The end date is inclusive: compare against the end of that civil day.
	endOfDay := time.Date(
		s.VacationUntil.Year(), s.VacationUntil.Month(), s.VacationUntil.Day(),
		23, 59, 59, 0, time.UTC,
	)
	return !now.After(endOfDay)
}
