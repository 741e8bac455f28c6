package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/vanguard-health/pulse/pkg/common/config"
	"github.com/vanguard-health/pulse/pkg/common/database"
	"github.com/vanguard-health/pulse/pkg/common/logger"
	"github.com/vanguard-health/pulse/pkg/common/models"
	"github.com/vanguard-health/pulse/pkg/coordinator"
	"github.com/vanguard-health/pulse/pkg/documents"
	"github.com/vanguard-health/pulse/pkg/insight"
	"github.com/vanguard-health/pulse/pkg/notify"
	"github.com/vanguard-health/pulse/pkg/observability/metrics"
	"github.com/vanguard-health/pulse/pkg/otp"
	"github.com/vanguard-health/pulse/pkg/roster"
	"github.com/vanguard-health/pulse/pkg/server"
	"github.com/vanguard-health/pulse/pkg/vault"
)

func main() {
	logger.Init()
	cfg := config.Load()

	records := buildRecordStore(cfg)
	store := roster.NewStore(records)

	channel := buildChannel(cfg)
	gate := vault.NewGate(otp.NewService(), channel, cfg.UploaderLabel, cfg.OTPExpiryMinutes)

	ids := roster.NewRandomIDSource()
	importer := documents.NewImporter(ids, cfg.UploaderLabel)
	insights := insight.NewClient(cfg.LLMAPIKey, cfg.LLMBaseURL, cfg.LLMModelName, cfg.LLMTimeout)

	coord := coordinator.New(store, gate, insights, importer, ids)

	hydrateCtx, cancelHydrate := context.WithTimeout(context.Background(), 10*time.Second)
	patients := coord.Hydrate(hydrateCtx, buildSeed(cfg))
	cancelHydrate()
	logger.Log.WithField("patients", len(patients)).Info("Roster hydrated")

	router := mux.NewRouter()
	router.HandleFunc("/health", healthCheck).Methods(http.MethodGet)
	router.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	api := router.PathPrefix("/api/v1").Subrouter()
	api.Use(server.Logging, server.Recovery)
	coordinator.NewHTTPHandler(coord, cfg.MaxRequestBody).Register(api)

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.ServerHost, cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	go func() {
		logger.Log.WithFields(map[string]interface{}{
			"host": cfg.ServerHost,
			"port": cfg.ServerPort,
		}).Info("Pulse server started")

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.WithError(err).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("Shutting down Pulse server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.WithError(err).Error("Server forced to shutdown")
	}

	if closer, ok := channel.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			logger.Log.WithError(err).Error("Failed to close delivery channel")
		}
	}
	if err := database.CloseRedis(); err != nil {
		logger.Log.WithError(err).Error("Failed to close Redis")
	}

	logger.Log.Info("Pulse server stopped")
}

func healthCheck(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy"}`))
}

// buildRecordStore picks the durable backend. Persistence problems are never
// fatal: an unreachable backend degrades to an in-process record set so the
// session still opens on the seed roster.
func buildRecordStore(cfg *config.Config) roster.RecordStore {
	switch cfg.StorageBackend {
	case "postgres":
		db, err := database.GetPostgres()
		if err == nil {
			records, merr := roster.NewPostgresRecordStore(db, cfg.RecordKey)
			if merr == nil {
				return records
			}
			logger.Log.WithError(merr).Error("Failed to prepare snapshot table")
		}
		logger.Log.Warn("Postgres unavailable, falling back to in-memory records")
		return roster.NewMemoryRecordStore()
	default:
		return roster.NewRedisRecordStore(database.GetRedis(), cfg.RecordKey)
	}
}

func buildChannel(cfg *config.Config) notify.Channel {
	if len(cfg.KafkaBrokers) > 0 {
		return notify.NewKafkaChannel(cfg.KafkaBrokers, cfg.KafkaOTPTopic)
	}
	return notify.NewLogChannel()
}

func buildSeed(cfg *config.Config) []models.Patient {
	now := time.Now().UTC()
	if cfg.RosterSeedFile != "" {
		patients, err := roster.LoadSeedFile(cfg.RosterSeedFile, now)
		if err == nil {
			return patients
		}
		logger.Log.WithError(err).Warn("Seed file unusable, using built-in roster")
	}
	return roster.MockRoster(now)
}
