package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/ariefcatur/go-retail-pos.git/internal/config"
	"github.com/ariefcatur/go-retail-pos.git/internal/httpx"
	kafkax "github.com/ariefcatur/go-retail-pos.git/internal/kafka"
	"github.com/ariefcatur/go-retail-pos.git/internal/pos"
	"github.com/ariefcatur/go-retail-pos.git/internal/postgres"
	"github.com/ariefcatur/go-retail-pos.git/internal/redisx"
)

func main() {
	_ = godotenv.Load()
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	app := &cli.App{
		Name:  "pos",
		Usage: "retail POS order-fulfillment core",
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "run the HTTP API",
				Action: func(c *cli.Context) error { return serve(c.Context, log) },
			},
			{
				Name:   "migrate",
				Usage:  "apply database migrations",
				Action: func(c *cli.Context) error { return runMigrations(log) },
			},
		},
	}
	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func runMigrations(log *logrus.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := postgres.Migrate(cfg.PostgresDSN, cfg.MigrationsDir); err != nil {
		return err
	}
	log.Info("migrations applied")
	return nil
}

func serve(ctx context.Context, log *logrus.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if cfg.MigrateOnStart {
		if err := postgres.Migrate(cfg.PostgresDSN, cfg.MigrationsDir); err != nil {
			return err
		}
	}

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		return err
	}
	defer db.Close()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Producers: created & edited (dua topic berbeda)
	pCreated := kafkax.NewProducer(cfg.KafkaBrokers, pos.TopicOrderCreated, 1024, log)
	pCreated.Start(ctx)
	pEdited := kafkax.NewProducer(cfg.KafkaBrokers, pos.TopicOrderEdited, 1024, log)
	pEdited.Start(ctx)

	// Store, service & handler
	store := &pos.PGStore{DB: db}
	svc := pos.NewService(store, log)
	router := httpx.NewRouter()
	ph := &httpx.POSHandler{
		Service:  svc,
		Redis:    rdb,
		Created:  pCreated,
		Edited:   pEdited,
		Log:      log,
		Name:     cfg.ServiceName,
		PageSize: cfg.PageSize,
	}
	ph.Register(router)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	// graceful shutdown
	go func() {
		log.WithField("addr", cfg.HTTPAddr).Info("HTTP listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("listen")
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info("shutting down...")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	pCreated.Close() // tutup inbox -> flush & close writer
	pEdited.Close()
	cancel()
	pCreated.WaitClosed() // drain
	pEdited.WaitClosed()
	return nil
}
