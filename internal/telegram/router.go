package telegram

import (
	"context"
	"errors"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/wildlifechorus/standup-bot/internal/scheduler"
	"github.com/wildlifechorus/standup-bot/internal/standup"
	"github.com/wildlifechorus/standup-bot/internal/store"
)

// Router wires Telegram updates to handlers. It also implements the outbound
// primitives (standup.Messenger, scheduler.Notifier): direct messages to
// participants and announcements to the shared channel.
type Router struct {
	bot        *tgbotapi.BotAPI
	log        *zap.Logger
	repo       store.Repo
	interviews *standup.Manager
	orch       *scheduler.Orchestrator

	channelID int64
	admins    map[string]bool
	defaultTZ string
	refLoc    *time.Location
}

// NewRouter creates the router. The interview manager and orchestrator are
// attached later because they in turn need the Router as their Messenger.
func NewRouter(bot *tgbotapi.BotAPI, log *zap.Logger, repo store.Repo, channelID int64, admins []string, defaultTZ string, refLoc *time.Location) *Router {
	adminSet := make(map[string]bool, len(admins))
	for _, a := range admins {
		adminSet[strings.TrimPrefix(strings.TrimSpace(a), "@")] = true
	}
	return &Router{
		bot:       bot,
		log:       log,
		repo:      repo,
		channelID: channelID,
		admins:    adminSet,
		defaultTZ: defaultTZ,
		refLoc:    refLoc,
	}
}

// Attach wires in the components built after the Router.
func (r *Router) Attach(interviews *standup.Manager, orch *scheduler.Orchestrator) {
	r.interviews = interviews
	r.orch = orch
}

// HandleUpdate routes a single update to the appropriate handler. Every
// command and free-text event is gated on channel membership first.
func (r *Router) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	msg := upd.Message
	if msg == nil || msg.From == nil || msg.From.IsBot {
		return
	}
	// Conversations happen in private chats; channel chatter is not input.
	if !msg.Chat.IsPrivate() {
		return
	}

	userID := msg.From.ID
	chatID := msg.Chat.ID
	handle := msg.From.UserName

	if !r.isMember(userID) {
		r.sendText(chatID, notMemberText)
		return
	}

	text := strings.TrimSpace(msg.Text)
	if msg.IsCommand() {
		r.handleCommand(ctx, msg.Command(), msg.CommandArguments(), userID, chatID, handle)
		return
	}
	if text == "" {
		return
	}

	// Free text feeds an open interview; without one it is ignored.
	if err := r.interviews.Answer(ctx, userID, text); err != nil {
		if errors.Is(err, standup.ErrNoSession) {
			return
		}
		r.log.Error("interview answer failed", zap.Error(err), zap.Int64("userID", userID))
		r.sendText(chatID, submitFailedText)
	}
}

func (r *Router) handleCommand(ctx context.Context, cmd, args string, userID, chatID int64, handle string) {
	switch cmd {
	case "start", "help":
		r.sendText(chatID, helpText)
	case "subscribe":
		r.handleSubscribe(ctx, userID, chatID, handle)
	case "unsubscribe":
		r.handleUnsubscribe(ctx, userID, chatID)
	case "vacation":
		r.handleVacation(ctx, userID, chatID, args)
	case "back":
		r.handleBack(ctx, userID, chatID)
	case "timezone":
		r.handleTimezone(ctx, userID, chatID, args)
	case "standup":
		r.handleStandup(ctx, userID, chatID)
	case "skip":
		r.handleSkip(ctx, userID, chatID)
	case "status":
		r.handleStatus(ctx, userID, chatID)
	case "settime":
		r.handleSetTime(ctx, chatID, handle, args)
	case "setreminder":
		r.handleSetReminder(ctx, chatID, handle, args)
	case "whoshere":
		r.handleWhosHere(ctx, chatID, handle)
	case "report":
		r.handleReport(ctx, chatID, handle)
	default:
		r.sendText(chatID, unknownCommandText)
	}
}

// isMember checks the participant belongs to the standup channel. A lookup
// failure counts as not a member; the next message retries.
func (r *Router) isMember(userID int64) bool {
	member, err := r.bot.GetChatMember(tgbotapi.GetChatMemberConfig{
		ChatConfigWithUser: tgbotapi.ChatConfigWithUser{
			ChatID: r.channelID,
			UserID: userID,
		},
	})
	if err != nil {
		r.log.Warn("membership check failed", zap.Error(err), zap.Int64("userID", userID))
		return false
	}
	switch member.Status {
	case "creator", "administrator", "member", "restricted":
		return true
	}
	return false
}

func (r *Router) isAdmin(handle string) bool {
	return r.admins[strings.TrimPrefix(handle, "@")]
}

func (r *Router) sendText(chatID int64, text string) {
	_, _ = r.bot.Send(tgbotapi.NewMessage(chatID, text))
}

// SendDirect sends a plain text message to a participant's private chat.
func (r *Router) SendDirect(chatID int64, text string) error {
	_, err := r.bot.Send(tgbotapi.NewMessage(chatID, text))
	return err
}

// Announce posts to the shared standup channel.
func (r *Router) Announce(text string) error {
	_, err := r.bot.Send(tgbotapi.NewMessage(r.channelID, text))
	return err
}
