package main

import (
	"context"

	"cloud.google.com/go/firestore"
	"github.com/sirupsen/logrus"

	"github.com/sika-app/backend/internal/config"
	"github.com/sika-app/backend/internal/gamification"
	"github.com/sika-app/backend/internal/insight"
	"github.com/sika-app/backend/internal/notifications"
	"github.com/sika-app/backend/internal/server"
	"github.com/sika-app/backend/internal/store"
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(level)
	}

	ctx := context.Background()

	var storeImpl store.Store
	switch cfg.Store.Backend {
	case config.BackendMemory:
		log.Info("Using in-memory store")
		storeImpl = store.NewMemoryStore()
	case config.BackendPostgres:
		log.Info("Using Postgres store")
		pg, err := store.NewPostgresStore(ctx, cfg.Store.DSN())
		if err != nil {
			log.Fatalf("Failed to connect to Postgres: %v", err)
		}
		defer pg.Close()
		storeImpl = pg
	case config.BackendFirestore:
		log.Infof("Using Firestore store (project %s)", cfg.Store.ProjectID)
		client, err := firestore.NewClient(ctx, cfg.Store.ProjectID)
		if err != nil {
			log.Fatalf("Failed to create Firestore client: %v", err)
		}
		defer client.Close()
		storeImpl = store.NewFirestoreStore(client)
	}

	hub := notifications.NewHub()
	notifier := gamification.NewStoreNotifier(storeImpl, hub, log)
	game := gamification.NewService(storeImpl, notifier, log)
	aggregator := insight.NewAggregator(storeImpl, log)

	srv := server.New(storeImpl, aggregator, game, hub, log)
	httpServer := server.NewHTTPServer(cfg.Server, srv.Handler(cfg.RateLimit))

	log.Infof("Starting server on %s", httpServer.Addr)
	if err := httpServer.ListenAndServe(); err != nil {
		log.Fatalf("Server stopped: %v", err)
	}
}
