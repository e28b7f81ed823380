package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"student-records-service/core"
)

func main() {
	fixturePath := flag.String("fixture", "", "YAML fixture with estudiantes, pagos and bloqueos")
	rehash := flag.Bool("rehash-from-ci", false, "reset every student password to a hash of its CI")
	flag.Parse()

	cfg, err := core.Load()
	if err != nil {
		logrus.Fatalf("failed to load config: %v", err)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logCloser, err := core.SetupLogging(cfg, "seed.log")
	if err != nil {
		logrus.Fatalf("failed to setup logging: %v", err)
	}
	defer logCloser.Close()

	if *fixturePath == "" && !*rehash {
		flag.Usage()
		os.Exit(2)
	}

	db, err := core.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		logrus.Fatalf("failed to connect database: %v", err)
	}
	defer db.Close()

	if err := core.EnsureSchema(ctx, db); err != nil {
		logrus.Fatalf("schema migration failed: %v", err)
	}

	if *fixturePath != "" {
		fx, err := core.LoadFixture(*fixturePath)
		if err != nil {
			logrus.Fatalf("failed to load fixture: %v", err)
		}
		res, err := core.SeedFixture(ctx, db, fx)
		if err != nil {
			logrus.Fatalf("seeding failed: %v", err)
		}
		logrus.Infof("seed finished: %d estudiantes, %d pagos, %d bloqueos inserted", res.Students, res.Payments, res.Blocks)
	}

	if *rehash {
		n, err := core.RehashPasswordsFromCI(ctx, db)
		if err != nil {
			logrus.Fatalf("rehash failed: %v", err)
		}
		logrus.Infof("rehashed %d passwords", n)
	}
}
