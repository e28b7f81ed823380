package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"student-records-service/core"
)

func main() {
	cfg, err := core.Load()
	if err != nil {
		logrus.Fatalf("failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		logrus.Fatalf("invalid config: %v", err)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logCloser, err := core.SetupLogging(cfg, "api.log")
	if err != nil {
		logrus.Fatalf("failed to setup logging: %v", err)
	}
	defer logCloser.Close()

	db, err := core.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		logrus.Fatalf("failed to connect database: %v", err)
	}
	defer db.Close()

	redisClient, err := core.NewRedisClient(cfg.RedisURL)
	if err != nil {
		logrus.Fatalf("failed to connect redis: %v", err)
	}
	defer redisClient.Close()

	if cfg.AutoMigrate {
		if err := core.EnsureSchema(ctx, db); err != nil {
			logrus.Fatalf("schema migration failed: %v", err)
		}
	}

	codec, err := core.NewTokenCodec(cfg.SecretKey, cfg.Algorithm)
	if err != nil {
		logrus.Fatalf("failed to build token codec: %v", err)
	}
	students := core.NewPgStudentStore(db)
	seq := core.NewRedisCodeSequence(redisClient)

	router := core.NewRouter(cfg, core.RouterDeps{
		Auth:     core.NewAuthenticator(students, codec, cfg.TokenLifetime()),
		Students: students,
		Payments: core.NewPgPaymentStore(db, seq),
		Blocks:   core.NewPgBlockStore(db, seq),
		Audit:    core.NewRedisAuditSink(redisClient, cfg.AuditStreamMax),
		Health: map[string]core.Pinger{
			"database": core.PingerFunc(db.Ping),
			"redis": core.PingerFunc(func(ctx context.Context) error {
				return redisClient.Ping(ctx).Err()
			}),
		},
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logrus.WithFields(logrus.Fields{"addr": srv.Addr, "version": "1.0.0"}).Info("microservicio estudiantil started")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Fatalf("server failed: %v", err)
		}
	case <-ctx.Done():
		logrus.Info("shutdown signal received, draining connections")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logrus.WithError(err).Error("graceful shutdown failed")
		}
	}
	logrus.Info("microservicio estudiantil stopped")
}
