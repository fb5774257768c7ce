package standup

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/wildlifechorus/standup-bot/internal/domain"
)

var (
	// ErrSessionOpen means an interview is already in progress for the
	// participant; the existing session is left untouched.
	ErrSessionOpen = errors.New("standup already in progress")
	// ErrNoSession means the participant has no open interview. Free-text
	// handlers treat this as a no-op.
	ErrNoSession = errors.New("no standup in progress")
	// ErrCannotSkip means the current question is mandatory.
	ErrCannotSkip = errors.New("this question cannot be skipped")
)

// State is the interview position: which question is awaiting an answer.
type State int

const (
	AwaitingYesterday State = iota
	AwaitingToday
	AwaitingBlockers
	Completed
)

// Session is one open interview. Answers are filled in question order; a
// skipped question leaves its slot empty.
type Session struct {
	UserID  int64
	ChatID  int64
	Handle  string
	Day     string // civil day key the resulting response is stored under
	Started time.Time

	mu      sync.Mutex
	state   State
	answers [3]string
}

// State returns the current interview position.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Store is the slice of the repository the interview engine writes to.
type Store interface {
	UpsertResponse(ctx context.Context, r *domain.Response) error
}

// Messenger sends interview prompts to participants and the compiled
// summary to the shared channel.
type Messenger interface {
	SendDirect(chatID int64, text string) error
	Announce(text string) error
}

// Manager owns the live-session set: at most one open interview per
// participant, created atomically and advanced serially per participant.
type Manager struct {
	store  Store
	msg    Messenger
	log    *zap.Logger
	refLoc *time.Location
	now    func() time.Time

	mu       sync.Mutex
	sessions map[int64]*Session
}

// NewManager creates a session manager. refLoc is the reference timezone
// used to derive the civil day a response belongs to.
func NewManager(store Store, msg Messenger, log *zap.Logger, refLoc *time.Location) *Manager {
	return &Manager{
		store:    store,
		msg:      msg,
		log:      log,
		refLoc:   refLoc,
		now:      time.Now,
		sessions: make(map[int64]*Session),
	}
}

// SetClock overrides the time source. Tests only.
func (m *Manager) SetClock(now func() time.Time) { m.now = now }

// Open returns the number of live sessions.
func (m *Manager) Open() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Start opens an interview for the subscriber and sends the first question.
// The existence check and the insert happen under one lock so two
// concurrent starts yield exactly one session and one ErrSessionOpen.
func (m *Manager) Start(ctx context.Context, sub *domain.Subscriber) error {
	now := m.now()

	m.mu.Lock()
	if _, ok := m.sessions[sub.UserID]; ok {
		m.mu.Unlock()
		return ErrSessionOpen
	}
	s := &Session{
		UserID:  sub.UserID,
		ChatID:  sub.ChatID,
		Handle:  sub.Handle,
		Day:     domain.CivilDay(now, m.refLoc),
		Started: now,
		state:   AwaitingYesterday,
	}
	m.sessions[sub.UserID] = s
	m.mu.Unlock()

	if err := m.msg.SendDirect(s.ChatID, questionFor(AwaitingYesterday)); err != nil {
		// Could not reach the participant: tear the session down so the
		// scheduler's per-day dedup does not leave them stuck with a
		// question they never saw.
		m.remove(sub.UserID)
		return fmt.Errorf("send first question: %w", err)
	}

	m.log.Info("standup opened",
		zap.Int64("userID", sub.UserID),
		zap.String("handle", sub.Handle),
		zap.String("day", s.Day),
	)
	return nil
}

// Answer records a free-text answer for the participant's current question
// and advances the interview. ErrNoSession when nothing is open.
func (m *Manager) Answer(ctx context.Context, userID int64, text string) error {
	return m.advance(ctx, userID, text, false)
}

// Skip records an empty answer for the current question. Only the yesterday
// and blockers questions may be skipped.
func (m *Manager) Skip(ctx context.Context, userID int64) error {
	return m.advance(ctx, userID, "", true)
}

// Abort discards an open interview without persisting anything.
func (m *Manager) Abort(userID int64) error {
	m.mu.Lock()
	_, ok := m.sessions[userID]
	delete(m.sessions, userID)
	m.mu.Unlock()
	if !ok {
		return ErrNoSession
	}
	return nil
}

func (m *Manager) remove(userID int64) {
	m.mu.Lock()
	delete(m.sessions, userID)
	m.mu.Unlock()
}

// advance applies one event to the participant's session. The map lock is
// held only for the lookup; persistence and emission on completion run
// under the session's own lock so other participants are never blocked.
func (m *Manager) advance(ctx context.Context, userID int64, text string, skip bool) error {
	m.mu.Lock()
	s, ok := m.sessions[userID]
	m.mu.Unlock()
	if !ok {
		return ErrNoSession
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case AwaitingYesterday, AwaitingBlockers:
		// skippable; empty answer stands for "skipped"
	case AwaitingToday:
		if skip {
			return ErrCannotSkip
		}
	case Completed:
		// a completed session is removed before its lock is released, so
		// this only happens on a stale pointer; treat as gone
		return ErrNoSession
	}

	s.answers[s.state] = text
	s.state++

	if s.state < Completed {
		return m.msg.SendDirect(s.ChatID, questionFor(s.state))
	}
	return m.complete(ctx, s)
}

// complete persists the response, announces the summary and destroys the
// session. The session is destroyed even when persistence or emission
// fails: a duplicate submission beats a permanently stuck participant.
func (m *Manager) complete(ctx context.Context, s *Session) error {
	m.remove(s.UserID)

	resp := &domain.Response{
		UserID:      s.UserID,
		Handle:      s.Handle,
		Yesterday:   s.answers[AwaitingYesterday],
		Today:       s.answers[AwaitingToday],
		Blockers:    s.answers[AwaitingBlockers],
		Day:         s.Day,
		SubmittedAt: m.now(),
	}

	if err := m.store.UpsertResponse(ctx, resp); err != nil {
		m.log.Error("persist standup failed",
			zap.Error(err), zap.Int64("userID", s.UserID))
		return fmt.Errorf("save standup: %w", err)
	}
	if err := m.msg.Announce(Summary(resp)); err != nil {
		m.log.Error("announce standup failed",
			zap.Error(err), zap.Int64("userID", s.UserID))
		return fmt.Errorf("announce standup: %w", err)
	}

	m.log.Info("standup completed",
		zap.Int64("userID", s.UserID),
		zap.String("day", s.Day),
	)
	return nil
}
