package standup

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/wildlifechorus/standup-bot/internal/domain"
)

type fakeStore struct {
	mu        sync.Mutex
	failNext  error
	responses map[string]*domain.Response // keyed by "userID/day"
}

func newFakeStore() *fakeStore {
	return &fakeStore{responses: make(map[string]*domain.Response)}
}

func (f *fakeStore) UpsertResponse(_ context.Context, r *domain.Response) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failNext != nil {
		err := f.failNext
		f.failNext = nil
		return err
	}
	cp := *r
	f.responses[key(r.UserID, r.Day)] = &cp
	return nil
}

func key(userID int64, day string) string {
	return fmt.Sprintf("%d/%s", userID, day)
}

type fakeMessenger struct {
	mu       sync.Mutex
	direct   []string
	announce []string
	failSend error
}

func (f *fakeMessenger) SendDirect(_ int64, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failSend != nil {
		return f.failSend
	}
	f.direct = append(f.direct, text)
	return nil
}

func (f *fakeMessenger) Announce(text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.announce = append(f.announce, text)
	return nil
}

func (f *fakeMessenger) lastAnnounce(t *testing.T) string {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.announce) == 0 {
		t.Fatal("nothing announced")
	}
	return f.announce[len(f.announce)-1]
}

func newTestManager(t *testing.T) (*Manager, *fakeStore, *fakeMessenger) {
	t.Helper()
	st := newFakeStore()
	msg := &fakeMessenger{}
	m := NewManager(st, msg, zap.NewNop(), time.UTC)
	m.SetClock(func() time.Time {
		return time.Date(2025, time.June, 10, 9, 30, 0, 0, time.UTC)
	})
	return m, st, msg
}

func sub(id int64) *domain.Subscriber {
	return &domain.Subscriber{UserID: id, ChatID: id * 100, Handle: "dev", TZ: "UTC"}
}

func TestFullInterview_SkipYesterday(t *testing.T) {
	m, st, msg := newTestManager(t)
	ctx := context.Background()

	if err := m.Start(ctx, sub(1)); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := m.Skip(ctx, 1); err != nil {
		t.Fatalf("skip yesterday: %v", err)
	}
	if err := m.Answer(ctx, 1, "Wrote docs"); err != nil {
		t.Fatalf("answer today: %v", err)
	}
	if err := m.Answer(ctx, 1, "Blocked on review"); err != nil {
		t.Fatalf("answer blockers: %v", err)
	}

	if m.Open() != 0 {
		t.Fatalf("session should be destroyed, %d still open", m.Open())
	}

	st.mu.Lock()
	if len(st.responses) != 1 {
		t.Fatalf("want 1 stored response, got %d", len(st.responses))
	}
	var stored *domain.Response
	for _, r := range st.responses {
		stored = r
	}
	st.mu.Unlock()

	if stored.Yesterday != "" || stored.Today != "Wrote docs" || stored.Blockers != "Blocked on review" {
		t.Fatalf("unexpected response: %+v", stored)
	}

	summary := msg.lastAnnounce(t)
	if strings.Contains(summary, "Yesterday") {
		t.Errorf("summary should omit skipped Yesterday section:\n%s", summary)
	}
	if !strings.Contains(summary, "Today") || !strings.Contains(summary, "Blockers") {
		t.Errorf("summary missing sections:\n%s", summary)
	}
}

func TestSkipRejectedForToday(t *testing.T) {
	m, _, _ := newTestManager(t)
	ctx := context.Background()

	if err := m.Start(ctx, sub(1)); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := m.Answer(ctx, 1, "fixed the build"); err != nil {
		t.Fatalf("answer yesterday: %v", err)
	}
	if err := m.Skip(ctx, 1); !errors.Is(err, ErrCannotSkip) {
		t.Fatalf("want ErrCannotSkip, got %v", err)
	}

	// State is unchanged: a real answer still lands in the today slot.
	if err := m.Answer(ctx, 1, "ship it"); err != nil {
		t.Fatalf("answer after rejected skip: %v", err)
	}
	if err := m.Skip(ctx, 1); err != nil {
		t.Fatalf("skip blockers: %v", err)
	}
	if m.Open() != 0 {
		t.Fatal("interview should have completed")
	}
}

func TestDoubleStartRejected(t *testing.T) {
	m, _, _ := newTestManager(t)
	ctx := context.Background()

	if err := m.Start(ctx, sub(1)); err != nil {
		t.Fatalf("first start: %v", err)
	}
	if err := m.Start(ctx, sub(1)); !errors.Is(err, ErrSessionOpen) {
		t.Fatalf("want ErrSessionOpen, got %v", err)
	}
	if m.Open() != 1 {
		t.Fatalf("want exactly 1 session, got %d", m.Open())
	}
}

func TestConcurrentStart_ExactlyOneWins(t *testing.T) {
	m, _, _ := newTestManager(t)
	ctx := context.Background()

	const n = 16
	var wg sync.WaitGroup
	errCh := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errCh <- m.Start(ctx, sub(7))
		}()
	}
	wg.Wait()
	close(errCh)

	var ok, conflicts int
	for err := range errCh {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrSessionOpen):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if ok != 1 || conflicts != n-1 {
		t.Fatalf("want 1 success and %d conflicts, got %d and %d", n-1, ok, conflicts)
	}
}

func TestEventsWithoutSessionAreNoops(t *testing.T) {
	m, st, msg := newTestManager(t)
	ctx := context.Background()

	if err := m.Answer(ctx, 42, "hello"); !errors.Is(err, ErrNoSession) {
		t.Fatalf("answer: want ErrNoSession, got %v", err)
	}
	if err := m.Skip(ctx, 42); !errors.Is(err, ErrNoSession) {
		t.Fatalf("skip: want ErrNoSession, got %v", err)
	}
	if len(st.responses) != 0 || len(msg.announce) != 0 {
		t.Fatal("no-op events must not produce output")
	}
}

func TestPersistFailureStillDestroysSession(t *testing.T) {
	m, st, _ := newTestManager(t)
	ctx := context.Background()

	if err := m.Start(ctx, sub(1)); err != nil {
		t.Fatalf("start: %v", err)
	}
	st.mu.Lock()
	st.failNext = errors.New("disk on fire")
	st.mu.Unlock()

	_ = m.Skip(ctx, 1)
	_ = m.Answer(ctx, 1, "today work")
	err := m.Answer(ctx, 1, "no blockers")
	if err == nil {
		t.Fatal("expected persistence error to surface")
	}
	if m.Open() != 0 {
		t.Fatal("session must be destroyed even when persistence fails")
	}
}

func TestResubmissionSupersedes(t *testing.T) {
	m, st, _ := newTestManager(t)
	ctx := context.Background()

	run := func(yesterday, today, blockers string) {
		t.Helper()
		if err := m.Start(ctx, sub(1)); err != nil {
			t.Fatalf("start: %v", err)
		}
		if err := m.Answer(ctx, 1, yesterday); err != nil {
			t.Fatalf("yesterday: %v", err)
		}
		if err := m.Answer(ctx, 1, today); err != nil {
			t.Fatalf("today: %v", err)
		}
		if err := m.Answer(ctx, 1, blockers); err != nil {
			t.Fatalf("blockers: %v", err)
		}
	}

	run("a", "b", "c")
	run("x", "y", "z")

	st.mu.Lock()
	defer st.mu.Unlock()
	if len(st.responses) != 1 {
		t.Fatalf("want 1 response for the day, got %d", len(st.responses))
	}
	for _, r := range st.responses {
		if r.Today != "y" {
			t.Fatalf("second submission should win, got %+v", r)
		}
	}
}

func TestStartSendFailureRollsBack(t *testing.T) {
	m, _, msg := newTestManager(t)
	ctx := context.Background()

	msg.failSend = errors.New("blocked the bot")
	if err := m.Start(ctx, sub(1)); err == nil {
		t.Fatal("expected send failure to surface")
	}
	if m.Open() != 0 {
		t.Fatal("session must not linger when the first question cannot be delivered")
	}

	msg.failSend = nil
	if err := m.Start(ctx, sub(1)); err != nil {
		t.Fatalf("restart after failure: %v", err)
	}
}

func TestSummarySections(t *testing.T) {
	r := &domain.Response{
		Handle: "dev", Day: "2025-06-10",
		Yesterday: "", Today: "Wrote docs", Blockers: "Blocked on review",
	}
	s := Summary(r)
	if strings.Contains(s, "Yesterday") {
		t.Errorf("skipped section rendered:\n%s", s)
	}
	if !strings.Contains(s, "Today:\nWrote docs") {
		t.Errorf("today section missing:\n%s", s)
	}
	if !strings.Contains(s, "Blockers:\nBlocked on review") {
		t.Errorf("blockers section missing:\n%s", s)
	}
	if !strings.Contains(s, "@dev") || !strings.Contains(s, "2025-06-10") {
		t.Errorf("header missing handle or day:\n%s", s)
	}
}
