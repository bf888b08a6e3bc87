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

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/vehicle-logbook/internal/auth"
	"github.com/ukydev/vehicle-logbook/internal/config"
	"github.com/ukydev/vehicle-logbook/internal/db"
	"github.com/ukydev/vehicle-logbook/internal/handlers"
	"github.com/ukydev/vehicle-logbook/internal/middleware"
	"github.com/ukydev/vehicle-logbook/internal/notify"
	"github.com/ukydev/vehicle-logbook/internal/store"
)

// app is the assembled service: its HTTP handler and what must be closed on exit.
type app struct {
	handler  http.Handler
	registry *store.Registry
	closers  []func()
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{}
	var opts []store.Option

	var archive db.SnapshotCollection
	if cfg.MongoURI != "" {
		client, err := db.ConnectMongo(ctx, cfg.MongoURI)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() {
			if err := client.Disconnect(context.Background()); err != nil {
				log.WithError(err).Warn("MongoDB disconnect failed")
			}
		})
		mongoArchive, err := db.NewMongoArchive(ctx, client.Database(cfg.MongoDB).Collection(cfg.MongoCollection))
		if err != nil {
			a.close()
			return nil, err
		}
		archive = mongoArchive
		opts = append(opts, store.WithArchive(mongoArchive))
		log.WithFields(log.Fields{"db": cfg.MongoDB, "collection": cfg.MongoCollection}).Info("Connected to MongoDB")
	}

	if cfg.MQTTBroker != "" {
		publisher, err := notify.NewMQTTPublisher(cfg.MQTTBroker, cfg.MQTTClientID)
		if err != nil {
			a.close()
			return nil, err
		}
		a.closers = append(a.closers, publisher.Close)

		var deduper notify.Deduper
		if cfg.RedisAddr != "" {
			rd, err := notify.NewRedisDeduper(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.AlertDedupTTL)
			if err != nil {
				a.close()
				return nil, err
			}
			a.closers = append(a.closers, func() { rd.Close() })
			deduper = rd
		}
		opts = append(opts, store.WithNotifier(notify.NewAlertNotifier(publisher, deduper, cfg.MQTTTopicPrefix)))
		log.WithFields(log.Fields{"broker": cfg.MQTTBroker, "dedup": deduper != nil}).Info("Alert notifications enabled")
	}

	a.registry = store.NewRegistry(opts...)
	if archive != nil {
		if err := restoreFromArchive(ctx, a.registry, archive); err != nil {
			a.close()
			return nil, err
		}
	}
	if cfg.SeedDemo {
		if err := seedDemo(ctx, a.registry); err != nil {
			a.close()
			return nil, err
		}
	}

	authService, err := auth.NewService(cfg.JWTSecret, cfg.JWTExpiry, cfg.Operators)
	if err != nil {
		a.close()
		return nil, err
	}
	a.handler = handlers.NewRouter(
		handlers.NewLogbookHandler(a.registry),
		handlers.NewAuthHandler(authService),
		middleware.NewAuthMiddleware(authService),
		handlers.RouterConfig{
			RateLimitRequests: cfg.RateLimitRequests,
			RateLimitWindow:   cfg.RateLimitWindow,
		},
	)
	return a, nil
}

func restoreFromArchive(ctx context.Context, registry *store.Registry, archive db.SnapshotCollection) error {
	snapshots, err := archive.LoadSnapshots(ctx)
	if err != nil {
		return fmt.Errorf("load archived vehicles: %w", err)
	}
	n, err := registry.Restore(snapshots)
	if err != nil {
		return fmt.Errorf("restore archived vehicles: %w", err)
	}
	log.WithField("vehicles", n).Info("Restored vehicles from archive")
	return nil
}

func seedDemo(ctx context.Context, registry *store.Registry) error {
	if _, err := registry.Get(store.DemoPlate); err == nil {
		return nil
	} else if !errors.Is(err, store.ErrVehicleNotFound) {
		return err
	}
	if err := store.SeedDemo(ctx, registry); err != nil {
		return err
	}
	log.WithField("license_plate", store.DemoPlate).Info("Seeded demo vehicle")
	return nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	cfg.ConfigureLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to start: %v", err)
	}
	defer a.close()

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      a.handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("port", cfg.Port).Info("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("Shutting down HTTP server")
	case err := <-errCh:
		log.WithError(err).Error("HTTP server failed")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("HTTP server shutdown failed")
	}
}
