package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/ukydev/rapidroute-sim/internal/broadcast"
	"github.com/ukydev/rapidroute-sim/internal/config"
	"github.com/ukydev/rapidroute-sim/internal/db"
	"github.com/ukydev/rapidroute-sim/internal/handlers"
	"github.com/ukydev/rapidroute-sim/internal/metrics"
	"github.com/ukydev/rapidroute-sim/internal/middleware"
	"github.com/ukydev/rapidroute-sim/internal/routing"
	"github.com/ukydev/rapidroute-sim/internal/signals"
	"github.com/ukydev/rapidroute-sim/internal/simulation"
	"github.com/ukydev/rapidroute-sim/internal/waypoints"
)

// app holds the wired server and everything that needs closing on exit.
type app struct {
	handler  http.Handler
	engine   *simulation.Engine
	sinks    broadcast.Broadcaster
	recorder *db.Recorder
	mongo    *mongo.Client
}

// buildRegistry loads the signal catalogue from path, or the built-in one
// when path is empty.
func buildRegistry(path string) (*signals.Registry, error) {
	catalogue := signals.DefaultCatalogue()
	if path != "" {
		var err error
		catalogue, err = signals.LoadCatalogue(path)
		if err != nil {
			return nil, err
		}
	}
	return signals.NewRegistry(catalogue)
}

// buildBroadcaster always pushes to websocket clients. MQTT is added when
// enabled and the broker is reachable at startup.
func buildBroadcaster(cfg config.Config, m *metrics.Metrics, hub *broadcast.Hub, logger log.FieldLogger) broadcast.Multi {
	sinks := broadcast.Multi{hub}
	if !cfg.MQTTEnabled {
		return sinks
	}

	pub, err := broadcast.NewMQTTPublisher(broadcast.MQTTConfig{
		Broker:   cfg.MQTTBroker,
		ClientID: cfg.MQTTClientID,
		Topic:    cfg.MQTTTopic,
		Failures: m.BroadcastFailuresTotal.WithLabelValues("mqtt"),
	}, logger)
	if err != nil {
		logger.WithError(err).Warn("MQTT unavailable, routes will only reach websocket clients")
		return sinks
	}
	return append(sinks, pub)
}

func newApp(ctx context.Context, cfg config.Config, logger *log.Logger) (*app, error) {
	registry, err := buildRegistry(cfg.SignalsFile)
	if err != nil {
		return nil, err
	}
	sequencer, err := waypoints.NewSequencer(registry, cfg.WaypointProximityKm)
	if err != nil {
		return nil, err
	}
	logger.WithFields(log.Fields{
		"signals":      registry.Len(),
		"proximity_km": sequencer.ProximityKm(),
	}).Info("Signal registry loaded")

	m := metrics.New()

	osrm, err := routing.NewOSRMClient(routing.OSRMConfig{
		BaseURL:    cfg.OSRMBaseURL,
		Profile:    cfg.OSRMProfile,
		Geometries: cfg.OSRMGeometries,
		Timeout:    cfg.OSRMTimeout,
		RatePerSec: cfg.OSRMRatePerSec,
	})
	if err != nil {
		return nil, err
	}
	provider := routing.WithFailureCounter(osrm, m.ProviderFailuresTotal)

	a := &app{}

	var history db.ActivationCollection
	if cfg.HistoryEnabled() {
		client, err := db.ConnectMongo(cfg.MongoURI)
		if err != nil {
			return nil, fmt.Errorf("connect to MongoDB: %w", err)
		}
		coll := db.NewActivationCollection(client, cfg.MongoDB)
		if err := coll.EnsureIndexes(ctx); err != nil {
			logger.WithError(err).Warn("Failed to create activation indexes")
		}
		logger.WithField("database", cfg.MongoDB).Info("Connected to MongoDB successfully")
		a.mongo = client
		a.recorder = db.NewRecorder(coll, logger)
		history = coll
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	var pool *simulation.Pool
	if cfg.Mode == simulation.ModePool {
		pool, err = simulation.Precompute(ctx, provider, sequencer, registry, cfg.PoolSize, rng, logger)
		if err != nil {
			a.shutdown(ctx)
			return nil, fmt.Errorf("precompute route pool: %w", err)
		}
		logger.WithField("routes", pool.Len()).Info("Route pool ready")
	}

	hub := broadcast.NewHub(logger, m.BroadcastFailuresTotal.WithLabelValues("websocket"))
	a.sinks = buildBroadcaster(cfg, m, hub, logger)

	opts := simulation.Options{
		Mode:            cfg.Mode,
		Pool:            pool,
		Broadcaster:     a.sinks,
		ArrivalRadiusKm: cfg.ArrivalRadiusKm,
		Rand:            rng,
		Logger:          logger,
		Metrics:         m,
	}
	if a.recorder != nil {
		opts.OnActivate = a.recorder.Record
	}
	a.engine, err = simulation.NewEngine(opts)
	if err != nil {
		a.shutdown(ctx)
		return nil, err
	}

	h := handlers.NewSimulationHandler(a.engine, registry, sequencer, provider, history, logger)
	a.handler = handlers.NewRouter(handlers.RouterConfig{
		Simulation:        h,
		RouteFeed:         hub,
		Metrics:           m,
		Logger:            logger,
		ActivationLimiter: middleware.NewRateLimiter(cfg.ActivationRatePerMin, cfg.ActivationBurst, cfg.TrustProxyHeaders),
		EnableDebug:       !cfg.Production(),
	})
	return a, nil
}

// shutdown closes broadcasters, drains pending history writes and
// disconnects from MongoDB.
func (a *app) shutdown(ctx context.Context) {
	if a.sinks != nil {
		a.sinks.Close()
	}
	if a.recorder != nil {
		a.recorder.Wait()
	}
	if a.mongo != nil {
		if err := a.mongo.Disconnect(ctx); err != nil {
			log.WithError(err).Warn("Failed to disconnect from MongoDB")
		}
	}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	logger := log.StandardLogger()
	cfg.ConfigureLogger(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("Failed to start: %v", err)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           a.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.WithFields(log.Fields{"port": cfg.Port, "mode": cfg.Mode}).Info("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("HTTP server failed")
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("HTTP server shutdown failed")
	}
	a.shutdown(shutdownCtx)
}
