package main

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"

	"github.com/lendshelf/lendshelf/pkg/config"
	"github.com/lendshelf/lendshelf/pkg/database"
	"github.com/lendshelf/lendshelf/pkg/events"
	"github.com/lendshelf/lendshelf/pkg/idempotency"
	"github.com/lendshelf/lendshelf/pkg/migrations"
	"github.com/lendshelf/lendshelf/pkg/server"
	"github.com/lendshelf/lendshelf/pkg/version"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/robinjoseph08/golib/signals"
)

func main() {
	ctx := context.Background()
	log := logger.New()

	log.Info("starting lendshelf", logger.Data{"version": version.Version})

	cfg, err := config.New()
	if err != nil {
		log.Err(err).Fatal("config error")
	}

	db, err := database.New(cfg)
	if err != nil {
		log.Err(err).Fatal("database error")
	}

	group, err := migrations.BringUpToDate(ctx, db)
	if err != nil {
		log.Err(err).Fatal("migrations error")
	}
	if group.ID == 0 {
		log.Info("no new migrations to run")
	} else {
		log.Info("migrated to new group", logger.Data{"group_id": group.ID, "migration_names": group.Migrations.String()})
	}

	publisher := newPublisher(cfg, log)
	idem, idemCloser := newIdempotencyStore(cfg, log)

	srv, err := server.New(cfg, db, publisher, idem)
	if err != nil {
		log.Err(err).Fatal("server error")
	}

	graceful := signals.Setup()

	go func() {
		lc := net.ListenConfig{}
		listener, err := lc.Listen(ctx, "tcp", srv.Addr)
		if err != nil {
			log.Err(err).Fatal("failed to bind port")
		}
		log.Info("server started", logger.Data{"addr": listener.Addr().String()})

		err = srv.Serve(listener)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Err(err).Fatal("server stopped")
		}
		log.Info("server stopped")
	}()

	<-graceful
	log.Info("starting graceful shutdown")

	err = srv.Shutdown(ctx)
	if err != nil {
		log.Err(err).Error("server shutdown error")
	}
	log.Info("server shutdown")

	// Drains any queued loan events.
	err = publisher.Close()
	if err != nil {
		log.Err(err).Error("event publisher close error")
	}
	log.Info("event publisher closed")

	if idemCloser != nil {
		err = idemCloser.Close()
		if err != nil {
			log.Err(err).Error("idempotency store close error")
		}
	}

	err = db.Close()
	if err != nil {
		log.Err(err).Error("database close error")
	}
	log.Info("database closed")
}

func newPublisher(cfg *config.Config, log logger.Logger) events.Publisher {
	if len(cfg.KafkaBrokers) == 0 {
		log.Info("no kafka brokers configured, loan events are disabled")
		return events.Noop{}
	}
	log.Info("publishing loan events", logger.Data{"brokers": cfg.KafkaBrokers, "topic": cfg.KafkaTopic})
	return events.NewKafka(cfg.KafkaBrokers, cfg.KafkaTopic)
}

// newIdempotencyStore returns the store and, when it holds a connection, the
// closer to release it with.
func newIdempotencyStore(cfg *config.Config, log logger.Logger) (idempotency.Store, io.Closer) {
	if cfg.RedisAddr == "" {
		log.Info("idempotency keys kept in memory")
		return idempotency.NewMemory(cfg.IdempotencyTTL), nil
	}
	log.Info("idempotency keys kept in redis", logger.Data{"addr": cfg.RedisAddr, "ttl": fmt.Sprint(cfg.IdempotencyTTL)})
	store := idempotency.NewRedis(idempotency.NewRedisClient(cfg.RedisAddr), cfg.IdempotencyTTL)
	return store, store
}
