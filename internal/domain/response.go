package domain

import "time"

// ResponseRetentionDays is how long submitted standups are kept before the
// daily maintenance pass deletes them.
const ResponseRetentionDays = 7

// Response is one submitted standup. Yesterday and Blockers may be empty
// when the participant skipped those questions; Today never is.
type Response struct {
	UserID      int64
	Handle      string
	Yesterday   string
	Today       string
	Blockers    string
	Day         string // civil day key, YYYY-MM-DD in the reference zone
	SubmittedAt time.Time
}

// LateReminderRecord marks that the straggler nudge went out, at most once
// per participant per day.
type LateReminderRecord struct {
	UserID int64
	Day    string
	SentAt time.Time
}
