package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"coachdesk/internal/adapters/cache"
	"coachdesk/internal/adapters/email"
	"coachdesk/internal/adapters/events"
	web "coachdesk/internal/adapters/http"
	"coachdesk/internal/adapters/http/middleware"
	"coachdesk/internal/adapters/images"
	"coachdesk/internal/adapters/metrics"
	"coachdesk/internal/adapters/storage"
	checkInStore "coachdesk/internal/adapters/storage/checkin"
	clientTemplateStore "coachdesk/internal/adapters/storage/clienttemplate"
	coachTemplateStore "coachdesk/internal/adapters/storage/coachtemplate"
	exerciseStore "coachdesk/internal/adapters/storage/exercise"
	userStore "coachdesk/internal/adapters/storage/user"
	"coachdesk/internal/application/orchestrators"
	"coachdesk/internal/config"
	"coachdesk/internal/domain/user"
)

// version is set at build time via -ldflags "-X main.version=..."
var version = "dev"

const usage = `usage: server [-config file] [command]

commands:
  (none)     apply migrations and serve HTTP
  migrate    apply migrations and exit
  add-user   create or refresh an account: add-user -role COACH -first A -last B -email a@b.c [-id X]
  token      print a signed access token: token -user ID -role COACH [-ttl 24h]
`

func main() {
	configPath := flag.String("config", os.Getenv("COACHDESK_CONFIG"), "optional YAML config file")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	slog.SetDefault(newLogger(cfg.Log))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	args := flag.Args()
	cmd := ""
	if len(args) > 0 {
		cmd = args[0]
		args = args[1:]
	}
	switch cmd {
	case "":
		err = serve(ctx, cfg)
	case "migrate":
		err = migrateOnly(ctx, cfg)
	case "add-user":
		err = addUser(ctx, cfg, args)
	case "token":
		err = printToken(cfg, args)
	default:
		flag.Usage()
		os.Exit(2)
	}
	if err != nil {
		slog.Error("server_event", "event", "fatal", "command", cmd, "error", err)
		os.Exit(1)
	}
}

func newLogger(c config.LogConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.SlogLevel()}
	if c.Format == "text" {
		return slog.New(slog.NewTextHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}

// openDB opens and migrates the configured database.
func openDB(ctx context.Context, cfg config.Config, collector *metrics.Collector) (*storage.TimedDB, error) {
	db, err := storage.Open(ctx, cfg.Database.Driver, cfg.Database.DSN, cfg.Database.MaxOpenConns)
	if err != nil {
		return nil, err
	}
	if err := storage.Migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	schema, err := storage.SchemaVersion(ctx, db)
	if err != nil {
		db.Close()
		return nil, err
	}
	slog.Info("server_event", "event", "database_ready", "driver", cfg.Database.Driver, "schema", schema)
	return storage.NewTimedDB(db, collector, cfg.Database.SlowQuery()), nil
}

func migrateOnly(ctx context.Context, cfg config.Config) error {
	db, err := openDB(ctx, cfg, nil)
	if err != nil {
		return err
	}
	return db.Close()
}

func addUser(ctx context.Context, cfg config.Config, args []string) error {
	fs := flag.NewFlagSet("add-user", flag.ContinueOnError)
	id := fs.String("id", "", "account id; generated when empty")
	role := fs.String("role", "CLIENT", "COACH or CLIENT")
	first := fs.String("first", "", "first name")
	last := fs.String("last", "", "last name")
	mail := fs.String("email", "", "email address")
	if err := fs.Parse(args); err != nil {
		return err
	}

	db, err := openDB(ctx, cfg, nil)
	if err != nil {
		return err
	}
	defer db.Close()

	u, err := orchestrators.ExecuteRegisterUser(ctx, orchestrators.RegisterUserInput{
		ID: *id, FirstName: *first, LastName: *last, Email: *mail, Role: *role,
	}, orchestrators.RegisterUserDeps{
		UserStore:  userStore.NewSQLStore(db),
		GenerateID: uuid.NewString,
		Now:        time.Now,
	})
	if err != nil {
		return err
	}
	fmt.Println(u.ID)
	return nil
}

func printToken(cfg config.Config, args []string) error {
	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	id := fs.String("user", "", "account id")
	roleName := fs.String("role", "CLIENT", "COACH or CLIENT")
	ttl := fs.Duration("ttl", 24*time.Hour, "token lifetime")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *id == "" {
		return errors.New("token: -user is required")
	}
	role, err := user.ParseRole(*roleName)
	if err != nil {
		return err
	}
	tok, err := middleware.NewTokenVerifier([]byte(cfg.Auth.JWTSecret)).Sign(user.Caller{ID: *id, Role: role}, *ttl)
	if err != nil {
		return err
	}
	fmt.Println(tok)
	return nil
}

// services builds the optional integrations. Each one falls back to its no-op when unconfigured.
// The returned cleanup closes whatever was opened.
func services(ctx context.Context, cfg config.Config, collector *metrics.Collector) (web.Services, func(), error) {
	svc := web.Services{Metrics: collector, AppURL: cfg.App.URL}
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	if cfg.Email.ResendKey != "" {
		svc.Email = email.NewResendSender(cfg.Email.ResendKey, cfg.Email.From, cfg.Email.ReplyTo)
		slog.Info("server_event", "event", "email_configured", "provider", "resend")
	} else {
		svc.Email = email.NewNoopSender()
		slog.Warn("server_event", "event", "email_disabled", "hint", "set COACHDESK_EMAIL_RESEND_KEY for delivery")
	}

	var publisher events.Publisher = events.Noop{}
	if cfg.NATS.URL != "" {
		nats, err := events.NewNatsPublisher(cfg.NATS.URL)
		if err != nil {
			cleanup()
			return web.Services{}, nil, err
		}
		closers = append(closers, func() {
			if err := nats.Close(); err != nil {
				slog.Warn("server_event", "event", "nats_drain_failed", "error", err)
			}
		})
		publisher = nats
		slog.Info("server_event", "event", "events_configured", "url", cfg.NATS.URL)
	}
	svc.Events = events.WithMetrics(publisher, collector)

	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err := rdb.Ping(ctx).Err(); err != nil {
			slog.Warn("server_event", "event", "redis_unreachable", "addr", cfg.Redis.Addr, "error", err)
		}
		closers = append(closers, func() { rdb.Close() })
		svc.Cache = cache.NewRedis(rdb, cfg.Redis.TTL)
		slog.Info("server_event", "event", "cache_configured", "addr", cfg.Redis.Addr)
	} else {
		svc.Cache = cache.Noop{}
	}

	if cfg.S3.Bucket != "" {
		store, err := images.NewS3Store(ctx, images.S3Config{
			Bucket:     cfg.S3.Bucket,
			Region:     cfg.S3.Region,
			Endpoint:   cfg.S3.Endpoint,
			AccessKey:  cfg.S3.AccessKey,
			SecretKey:  cfg.S3.SecretKey,
			PresignTTL: cfg.S3.PresignTTL,
		})
		if err != nil {
			cleanup()
			return web.Services{}, nil, err
		}
		svc.Images = store
	} else {
		svc.Images = images.Noop{}
		slog.Warn("server_event", "event", "images_disabled", "hint", "set COACHDESK_S3_BUCKET for uploads")
	}
	return svc, cleanup, nil
}

// csrfKey decodes auth.csrf_key, or generates a per-process key when unset. A generated key
// invalidates tokens on every restart.
func csrfKey(hexKey string) ([]byte, error) {
	if hexKey != "" {
		key, err := hex.DecodeString(hexKey)
		if err != nil || len(key) != 32 {
			return nil, errors.New("auth.csrf_key must be 64 hex characters")
		}
		return key, nil
	}
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("generate csrf key: %w", err)
	}
	slog.Warn("server_event", "event", "csrf_key_generated", "hint", "set COACHDESK_AUTH_CSRF_KEY so tokens survive restarts")
	return key, nil
}

func serve(ctx context.Context, cfg config.Config) error {
	collector := metrics.NewCollector()
	db, err := openDB(ctx, cfg, collector)
	if err != nil {
		return err
	}
	defer db.Close()

	key, err := csrfKey(cfg.Auth.CSRFKey)
	if err != nil {
		return err
	}
	svc, cleanup, err := services(ctx, cfg, collector)
	if err != nil {
		return err
	}
	defer cleanup()

	handler := web.NewMux(ctx, web.Stores{
		Users:           userStore.NewSQLStore(db),
		Exercises:       exerciseStore.NewSQLStore(db),
		CoachTemplates:  coachTemplateStore.NewSQLStore(db),
		ClientTemplates: clientTemplateStore.NewSQLStore(db),
		CheckIns:        checkInStore.NewSQLStore(db),
	}, svc, web.Options{
		JWTSecret:          []byte(cfg.Auth.JWTSecret),
		CSRFKey:            key,
		SecureCookies:      cfg.Auth.SecureCookies,
		RateLimitPerSecond: cfg.HTTP.RateLimitPerSecond,
		SlowRequest:        cfg.HTTP.SlowRequest(),
	})

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
	errCh := make(chan error, 1)
	go func() {
		slog.Info("server_event", "event", "listening", "addr", srv.Addr, "version", version)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	slog.Info("server_event", "event", "shutting_down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
