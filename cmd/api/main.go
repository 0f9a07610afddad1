package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"

	"github.com/ovaphlow/pitchfork/service-assessment-go/internal/admin"
	"github.com/ovaphlow/pitchfork/service-assessment-go/internal/mailer"
	"github.com/ovaphlow/pitchfork/service-assessment-go/internal/ratelimit"
	"github.com/ovaphlow/pitchfork/service-assessment-go/internal/report"
	"github.com/ovaphlow/pitchfork/service-assessment-go/internal/router"
	"github.com/ovaphlow/pitchfork/service-assessment-go/internal/submission"
	subrepo "github.com/ovaphlow/pitchfork/service-assessment-go/internal/submission/repo"
	"github.com/ovaphlow/pitchfork/service-assessment-go/internal/user"
	"github.com/ovaphlow/pitchfork/service-assessment-go/pkg/database"
	"github.com/ovaphlow/pitchfork/service-assessment-go/pkg/utilities"
)

func main() {
	// best-effort: without a .env file the real environment is used
	_ = godotenv.Load()

	lg, err := utilities.Init(utilities.ConfigFromEnv())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer lg.Sync()

	sugar := lg.Sugar()
	sugar.Info("starting service-assessment-go")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// init db
	cfg := database.ConfigFromEnv()
	sqlDB, err := database.Connect(cfg)
	if err != nil {
		sugar.Fatalf("db connect: %v", err)
	}
	defer sqlDB.Close()
	sqlxDB := sqlx.NewDb(sqlDB, cfg.Driver)

	subs := subrepo.NewSubmissionRepo(sqlxDB)
	users := user.NewUserService(sqlxDB, subs, sugar)
	// submissions reference users
	if err := users.EnsureTable(ctx); err != nil {
		sugar.Fatalf("ensure users table: %v", err)
	}
	if err := subs.EnsureTable(ctx); err != nil {
		sugar.Fatalf("ensure submissions table: %v", err)
	}

	rlCfg := ratelimit.ConfigFromEnv()
	store, err := ratelimit.NewStore(ctx, rlCfg)
	if err != nil {
		sugar.Fatalf("rate limit store: %v", err)
	}
	sugar.Infow("rate limit store ready", "backend", rlCfg.Backend)

	csrf := admin.NewCSRFStore()
	sweepables := []ratelimit.Sweepable{csrf}
	if sw, ok := store.(ratelimit.Sweepable); ok {
		sweepables = append(sweepables, sw)
	}
	sweeper, err := ratelimit.NewSweeper(ratelimit.DefaultSweepSpec, sugar, sweepables...)
	if err != nil {
		sugar.Fatalf("sweeper: %v", err)
	}
	sweeper.Start()

	gen := report.NewGenerator(report.ConfigFromEnv(), sugar)
	mail := mailer.New(mailer.ConfigFromEnv(), sugar)
	if !gen.Configured() || !mail.Configured() {
		sugar.Warnw("submissions will be rejected until configured",
			"generator", gen.Configured(), "mailer", mail.Configured())
	}

	adminCfg := admin.ConfigFromEnv()
	if !adminCfg.Configured() {
		sugar.Warn("admin login disabled: ADMIN_PASSWORD or ADMIN_JWT_SECRET missing")
	}
	adminSvc := admin.NewService(adminCfg, store, csrf, sugar)
	subSvc := submission.NewService(ratelimit.NewLimiter(store, 3, 15*time.Minute), gen, mail, users, subs, sugar)

	routerCfg := router.ConfigFromEnv()
	if routerCfg.TrustProxy {
		sugar.Info("trusting X-Forwarded-For / X-Real-IP for client addresses")
	}
	handler := router.RegisterRoutes(sugar, routerCfg, router.Handlers{
		Submission: submission.NewHandler(subSvc, sugar),
		User:       user.NewHandler(users, sugar),
		Admin:      admin.NewHandler(adminSvc, sugar),
	})
	addr := os.Getenv("HTTP_ADDR")
	if addr == "" {
		addr = "0.0.0.0:8431"
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		sugar.Infow("http server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			sugar.Fatalf("http server failed: %v", err)
		}
	}()

	<-ctx.Done()

	sugar.Info("shutting down")

	doneCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(doneCtx); err != nil {
		sugar.Warnf("http server shutdown failed: %v", err)
	}
	sweeper.Stop(doneCtx)
	if closer, ok := store.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			sugar.Warnf("rate limit store close failed: %v", err)
		}
	}

	sugar.Info("goodbye")
}
