package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/vitalink/platform/pkg/api"
	"github.com/vitalink/platform/pkg/common/config"
	"github.com/vitalink/platform/pkg/common/database"
	"github.com/vitalink/platform/pkg/common/httpclient"
	"github.com/vitalink/platform/pkg/common/kafka"
	"github.com/vitalink/platform/pkg/common/logger"
	"github.com/vitalink/platform/pkg/connector"
	"github.com/vitalink/platform/pkg/dispatch"
	"github.com/vitalink/platform/pkg/hospital"
	"github.com/vitalink/platform/pkg/pipeline"
	"github.com/vitalink/platform/pkg/postprocess"
	"github.com/vitalink/platform/pkg/scheduler"
	"github.com/vitalink/platform/pkg/telemetry"
)

// configHolder keeps the active hospital configuration fresh across reloads
// for the push and admin endpoints.
type configHolder struct {
	mu  sync.RWMutex
	cfg *hospital.Config
}

func (h *configHolder) set(cfg *hospital.Config) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.cfg = cfg
}

func (h *configHolder) get() *hospital.Config {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.cfg
}

func main() {
	logger.Init()
	cfg := config.Load()

	appCfg, err := hospital.Load(cfg.HospitalConfigPath)
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to load hospital configuration")
	}

	ledgerDB, err := database.OpenPostgres(cfg)
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to open telemetry store")
	}
	defer database.ClosePostgres(ledgerDB)

	var mirror telemetry.EventPublisher
	if len(cfg.KafkaBrokers) > 0 {
		producer := kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer producer.Close()
		mirror = producer
	}

	cache := database.NewRedis(cfg)
	if cache != nil {
		defer cache.Close()
	}

	ledger, err := telemetry.NewStore(ledgerDB, mirror, cache)
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to initialize telemetry store")
	}

	connectors := &connector.Factory{HTTPClient: httpclient.New(cfg.RequestTimeout)}
	runner := pipeline.NewRunner(ledger, dispatch.NewClient(cfg), postprocess.NewExecutor(nil), connectors)

	sched := scheduler.New(runner)
	defer sched.Shutdown()

	holder := &configHolder{}
	holder.set(&appCfg.Hospital)
	if cfg.SchedulerEnabled {
		sched.Start(&appCfg.Hospital)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		err := hospital.Watch(ctx, cfg.HospitalConfigPath, func(reloaded *hospital.AppConfig) {
			holder.set(&reloaded.Hospital)
			if cfg.SchedulerEnabled {
				sched.Start(&reloaded.Hospital)
			}
		})
		if err != nil {
			logger.Log.WithError(err).Error("Hospital config watcher stopped")
		}
	}()

	router := mux.NewRouter()
	api.NewHandler(runner, ledger, holder.get).Register(router)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.ServerHost, cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	go func() {
		logger.Log.WithFields(map[string]interface{}{
			"host":        cfg.ServerHost,
			"port":        cfg.ServerPort,
			"hospital_id": appCfg.Hospital.HospitalID,
		}).Info("VitaLink started")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.WithError(err).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("Shutting down VitaLink...")
	cancel()
	sched.Shutdown()

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(ctxShutdown); err != nil {
		logger.Log.WithError(err).Error("Server forced to shutdown")
	}

	logger.Log.Info("VitaLink stopped")
}
