package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"
	driver "go.mongodb.org/mongo-driver/mongo"

	"github.com/dnstld/desk-buddy-sub000/internal/api"
	"github.com/dnstld/desk-buddy-sub000/internal/core/ports"
	"github.com/dnstld/desk-buddy-sub000/internal/core/service"
	"github.com/dnstld/desk-buddy-sub000/internal/infrastructure/auth"
	mongodb "github.com/dnstld/desk-buddy-sub000/internal/infrastructure/db/mongo"
	redisdb "github.com/dnstld/desk-buddy-sub000/internal/infrastructure/db/redis"
	"github.com/dnstld/desk-buddy-sub000/internal/infrastructure/rest"
	"github.com/dnstld/desk-buddy-sub000/internal/pkg/config"
	"github.com/dnstld/desk-buddy-sub000/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg := config.Load()

	log := logger.Init(logger.Options{
		Level:  cfg.LogLevel,
		Pretty: cfg.Env == "development",
	})
	log.Info().Str("env", cfg.Env).Str("port", cfg.Port).Msg("starting desk-buddy membership api")

	ctx := context.Background()

	// --- Data access (required) ---
	client := rest.NewClient(cfg.Store.URL, cfg.Store.ServiceKey, cfg.Store.Timeout)
	users := rest.NewUserRepository(client)
	companies := rest.NewCompanyRepository(client)

	verifier := auth.NewVerifier(cfg.Store.URL, cfg.Store.AnonKey, cfg.Store.JWTSecret, cfg.Store.Timeout)

	// --- Company mutation lock (optional) ---
	var (
		rdb    *goredis.Client
		locker ports.CompanyLocker
	)
	if cfg.Redis.Addr != "" {
		var err error
		rdb, err = redisdb.Connect(ctx, redisdb.Config{Addr: cfg.Redis.Addr, DB: cfg.Redis.DB})
		if err != nil {
			log.Fatal().Err(err).Msg("redis connection failed")
		}
		locker = redisdb.NewLocker(rdb)
	} else {
		log.Warn().Msg("REDIS_ADDR not set, company mutation lock disabled")
	}

	// --- Reconciliation journal (optional) ---
	var (
		mdb     *driver.Database
		journal ports.ReconciliationJournal
	)
	if cfg.Mongo.URI != "" {
		mongoClient, db, err := mongodb.Connect(ctx, mongodb.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
		if err != nil {
			log.Fatal().Err(err).Msg("mongo connection failed")
		}
		defer func() {
			_ = mongoClient.Disconnect(context.Background())
		}()
		mdb = db
		journal = mongodb.NewReconciliationJournal(db)
	} else {
		log.Warn().Msg("MONGO_URI not set, reconciliation journal disabled")
	}

	// --- Services and router ---
	membership := service.NewMembershipService(users, companies, locker, journal, log)
	signup := service.NewSignupService(users, companies, log)

	e := api.NewRouter(api.Deps{
		Log:        log,
		Verifier:   verifier,
		Membership: membership,
		Signup:     signup,
		Redis:      rdb,
		Mongo:      mdb,
	})

	go func() {
		if err := e.Start(":" + cfg.Port); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server stopped")
		}
	}()

	// Block until SIGINT/SIGTERM, then drain in-flight requests.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}
