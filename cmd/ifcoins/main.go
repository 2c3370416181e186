package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"ifcoins/internal/app"
	"ifcoins/internal/bonus"
	"ifcoins/internal/config"
	"ifcoins/internal/jobs"
	"ifcoins/internal/pkg/auth"
	"ifcoins/internal/pkg/cooldown"
	"ifcoins/internal/pkg/logger"
	"ifcoins/internal/pkg/retry"
	"ifcoins/internal/policy"
	"ifcoins/internal/service"
	"ifcoins/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	var l *logger.Logger
	if l, err = logger.CreateLogger(cfg.LogLevel); err != nil {
		log.Fatal("Failed to create logger:", err)
	}
	defer l.Sync()

	db, err := openStorage(cfg, l)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	signInGate, signUpGate, closeGates := newGates(cfg)
	defer closeGates()

	scope, err := bonus.ParseScope(cfg.BonusScope)
	if err != nil {
		log.Fatal(err)
	}
	overlap, err := bonus.ParseOverlap(cfg.OverlapPolicy)
	if err != nil {
		log.Fatal(err)
	}

	tokens := auth.NewTokens(cfg.JWTSecret, cfg.JWTTTL)
	appInstance := app.NewApp(db, l.Named("app"),
		app.WithTokens(tokens),
		app.WithPolicy(policy.New(
			policy.WithLimits(policy.Limits{Teacher: cfg.TeacherGrantLimit, Admin: cfg.AdminGrantLimit}),
			policy.WithDomain(cfg.InstitutionDomain, cfg.StudentSubdomain),
			policy.WithAdmins(cfg.AdminEmails...),
		)),
		app.WithSignInGate(signInGate),
		app.WithSignUpGate(signUpGate),
		app.WithStartingCoins(cfg.StartingCoins),
		app.WithBonus(scope, overlap),
		app.WithReadRetry(retry.Policy{Attempts: cfg.ReadRetryAttempts, Backoff: cfg.ReadRetryBackoff}),
		app.WithRankingLimit(cfg.RankingDefaultLimit),
	)

	scheduler, err := jobs.NewScheduler(db, cfg.IdempotencyPurgeSchedule, cfg.IdempotencyTTL, l)
	if err != nil {
		log.Fatal(err)
	}
	scheduler.Start()

	svc := service.NewService(appInstance, tokens, cfg.ServerRunAddress, cfg.RequestTimeout, l.Named("http"))

	const readHeaderTimeout = 5 * time.Second
	server := &http.Server{Addr: cfg.ServerRunAddress, Handler: svc.NewRouter(), ReadHeaderTimeout: readHeaderTimeout}

	serverCtx, serverStopCtx := context.WithCancel(context.Background())

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	go func() {
		<-sig

		const shutdownTimeout = 30 * time.Second
		shutdownCtx, cancel := context.WithTimeout(serverCtx, shutdownTimeout)
		defer cancel()

		go func() {
			<-shutdownCtx.Done()
			if errors.Is(shutdownCtx.Err(), context.DeadlineExceeded) {
				log.Fatal("graceful shutdown timed out.. forcing exit.")
			}
		}()

		scheduler.Stop()
		err := server.Shutdown(shutdownCtx)
		if err != nil {
			log.Fatal(err)
		}
		serverStopCtx()
	}()

	l.Sugar().Infof("Listening on %s", cfg.ServerRunAddress)
	err = server.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal(err)
	}

	<-serverCtx.Done()
}

// openStorage connects the configured driver. The postgres schema is migrated on start.
func openStorage(cfg *config.Config, l *logger.Logger) (storage.Storage, error) {
	if cfg.StorageDriver == config.DriverMemory {
		l.Warn("Using the in-memory store, data is lost on exit")
		return storage.NewMemory(nil), nil
	}

	pg, err := storage.NewPostgreSQL(cfg.DatabaseURI, l.Named("storage"))
	if err != nil {
		return nil, err
	}

	const migrateTimeout = time.Minute
	ctx, cancel := context.WithTimeout(context.Background(), migrateTimeout)
	defer cancel()
	if err := pg.Migrate(ctx); err != nil {
		pg.Close()
		return nil, err
	}
	return pg, nil
}

// newGates builds the sign-in and sign-up gates, shared through Redis when an address is configured.
func newGates(cfg *config.Config) (signIn, signUp cooldown.Gate, closeFn func()) {
	signInPolicy := cooldown.Policy{MaxFailures: cfg.SignInMaxFailures, Cooldown: cfg.SignInCooldown}
	signUpPolicy := cooldown.Policy{MaxFailures: cfg.SignUpMaxAttempts, Cooldown: cfg.SignUpCooldown}

	if cfg.RedisAddr == "" {
		return cooldown.NewMemoryGate(signInPolicy, nil), cooldown.NewMemoryGate(signUpPolicy, nil), func() {}
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	return cooldown.NewRedisGate(client, "ifcoins:signin", signInPolicy),
		cooldown.NewRedisGate(client, "ifcoins:signup", signUpPolicy),
		func() { client.Close() }
}
