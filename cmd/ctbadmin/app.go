package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"ctbadmin/internal/adapters/email"
	client "ctbadmin/internal/adapters/http"
	"ctbadmin/internal/adapters/http/middleware"
	"ctbadmin/internal/adapters/http/perf"
	"ctbadmin/internal/adapters/storage"
	"ctbadmin/internal/adapters/storage/kv"
	"ctbadmin/internal/adapters/upload"
	"ctbadmin/internal/application/reconcile"
	"ctbadmin/internal/application/session"
	"ctbadmin/internal/config"
)

// app holds the wired dependencies shared by every command.
type app struct {
	cfg       *config.Config
	db        *sql.DB
	collector *perf.Collector
	started   time.Time

	state    kv.Store
	api      *client.Client
	session  *session.Store
	uploader *upload.Uploader
	sender   email.Sender
	engine   *reconcile.Engine
}

// newApp opens local state and builds the API client and session.
// PRE: cfg was produced by config.Load
// POST: The client carries the session token and logs out on 401/403
func newApp(cfg *config.Config) (*app, error) {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.Logging.SlogLevel()})))

	db, err := storage.Open(cfg.State.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open local state: %w", err)
	}

	collector := perf.NewCollector(perf.DefaultRingSize)
	timedDB := storage.NewTimedDB(db, collector)

	var sealer *kv.Sealer
	if cfg.State.Key != "" {
		if sealer, err = kv.OpenSealer(context.Background(), timedDB, cfg.State.Key); err != nil {
			db.Close()
			return nil, fmt.Errorf("state key: %w", err)
		}
	}
	state := kv.NewSQLiteStore(timedDB, sealer)

	api := client.New(client.Options{
		BaseURL:       cfg.API.BaseURL,
		Timeout:       cfg.API.Timeout,
		Limiter:       middleware.NewLimiter(cfg.API.RPS),
		Collector:     collector,
		SlowRequestMs: cfg.API.SlowRequestMs,
	})
	sess := session.New(api, state)
	api.AttachAuth(sess.Token, sess.Logout)

	uploadTransport := middleware.Chain(http.DefaultTransport, middleware.Timing(collector, cfg.API.SlowRequestMs))

	return &app{
		cfg:       cfg,
		db:        db,
		collector: collector,
		started:   time.Now(),
		state:     state,
		api:       api,
		session:   sess,
		uploader:  upload.NewUploader(uploadTransport, cfg.API.Timeout*4, cfg.Upload.ThumbMaxPx),
		sender:    email.NewSender(cfg.Mail.ResendKey, cfg.Mail.From),
		engine:    &reconcile.Engine{API: api},
	}, nil
}

// requireSession restores the persisted session and waits for its validation.
func (a *app) requireSession(ctx context.Context) error {
	_, err := a.session.Require(ctx)
	return err
}

func (a *app) close() {
	if a.db != nil {
		a.db.Close()
	}
}
