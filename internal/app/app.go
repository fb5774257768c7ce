package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/wildlifechorus/standup-bot/internal/config"
	"github.com/wildlifechorus/standup-bot/internal/scheduler"
	"github.com/wildlifechorus/standup-bot/internal/standup"
	"github.com/wildlifechorus/standup-bot/internal/store"
	"github.com/wildlifechorus/standup-bot/internal/telegram"
)

type App struct {
	cfg     config.Config
	log     *zap.Logger
	bot     *tgbotapi.BotAPI
	httpSrv *http.Server
	refLoc  *time.Location
	repo    store.Repo
	router  *telegram.Router
}

func New(cfg config.Config, log *zap.Logger) (*App, error) {
	bot, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, err
	}
	bot.Debug = false

	refLoc, err := time.LoadLocation(cfg.ReferenceTZ)
	if err != nil {
		return nil, fmt.Errorf("reference timezone %q: %w", cfg.ReferenceTZ, err)
	}
	if _, err := time.LoadLocation(cfg.DefaultTZ); err != nil {
		return nil, fmt.Errorf("default timezone %q: %w", cfg.DefaultTZ, err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      mux,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}

	return &App{cfg: cfg, log: log, bot: bot, httpSrv: srv, refLoc: refLoc}, nil
}

func (a *App) Run(ctx context.Context) error {
	a.log.Info("starting standup-bot",
		zap.Int64("channelID", a.cfg.ChannelID),
		zap.String("referenceTZ", a.cfg.ReferenceTZ),
		zap.String("http", a.cfg.HTTPAddr),
	)

	repo, err := store.OpenSQLite(ctx, a.cfg.DBPath)
	if err != nil {
		a.log.Error("open sqlite failed", zap.Error(err))
		return err
	}
	a.repo = repo
	a.log.Info("sqlite ready")

	a.router = telegram.NewRouter(a.bot, a.log, a.repo,
		a.cfg.ChannelID, a.cfg.Admins, a.cfg.DefaultTZ, a.refLoc)
	interviews := standup.NewManager(a.repo, a.router, a.log, a.refLoc)
	orch := scheduler.New(a.repo, interviews, a.router, a.log, a.refLoc)
	a.router.Attach(interviews, orch)

	go func() {
		if err := a.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error("http server error", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := orch.Run(ctx); err != nil {
			a.log.Error("scheduler error", zap.Error(err))
		}
	}()

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updCh := a.bot.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			a.log.Info("shutdown signal received")

			shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			err := a.httpSrv.Shutdown(shCtx)
			cancel()

			if err != nil {
				a.log.Warn("http server shutdown error", zap.Error(err))
			}
			if a.repo != nil {
				_ = a.repo.Close()
			}
			return nil

		case upd := <-updCh:
			a.router.HandleUpdate(ctx, upd)
		}
	}
}
