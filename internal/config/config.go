// Package config reads server settings from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/ukydev/rapidroute-sim/internal/simulation"
)

// Config holds every tunable of the server.
type Config struct {
	Port string
	Env  string

	Mode                simulation.Mode
	SignalsFile         string // empty means the built-in catalogue
	WaypointProximityKm float64
	ArrivalRadiusKm     float64
	PoolSize            int

	OSRMBaseURL    string
	OSRMProfile    string
	OSRMGeometries string
	OSRMTimeout    time.Duration
	OSRMRatePerSec float64

	MQTTEnabled  bool
	MQTTBroker   string
	MQTTTopic    string
	MQTTClientID string

	MongoURI string
	MongoDB  string

	// Manual activations allowed per client per minute; 0 disables the limit.
	ActivationRatePerMin int
	ActivationBurst      int
	TrustProxyHeaders    bool // key clients by X-Forwarded-For; only behind a trusted proxy

	LogLevel  string
	LogFormat string
}

// Production reports whether debug surfaces must stay off.
func (c Config) Production() bool {
	return strings.EqualFold(c.Env, "production")
}

// HistoryEnabled reports whether activations are written to MongoDB.
func (c Config) HistoryEnabled() bool {
	return c.MongoURI != ""
}

// Load reads an optional .env file, then the environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from getenv, applying defaults for unset keys.
func FromEnv(getenv func(string) string) (Config, error) {
	p := parser{getenv: getenv}

	cfg := Config{
		Port:                 p.str("PORT", "5000"),
		Env:                  p.str("ENV", "development"),
		SignalsFile:          p.str("SIGNALS_FILE", ""),
		WaypointProximityKm:  p.float("WAYPOINT_PROXIMITY_KM", 0.1),
		ArrivalRadiusKm:      p.float("ARRIVAL_RADIUS_KM", 0.05),
		PoolSize:             p.integer("POOL_SIZE", 20),
		OSRMBaseURL:          p.str("OSRM_BASE_URL", "http://router.project-osrm.org"),
		OSRMProfile:          p.str("OSRM_PROFILE", "driving"),
		OSRMGeometries:       p.str("OSRM_GEOMETRIES", "geojson"),
		OSRMTimeout:          p.duration("OSRM_TIMEOUT", 15*time.Second),
		OSRMRatePerSec:       p.float("OSRM_RATE_PER_SEC", 1),
		MQTTEnabled:          p.boolean("MQTT_ENABLED", true),
		MQTTBroker:           p.str("MQTT_BROKER", "tcp://broker.hivemq.com:1883"),
		MQTTTopic:            p.str("MQTT_ROUTE_TOPIC", "rapidroute/route/new"),
		MQTTClientID:         p.str("MQTT_CLIENT_ID", "ControlPanelServer"),
		MongoURI:             p.str("MONGO_URI", ""),
		MongoDB:              p.str("MONGO_DB", "rapidroute"),
		ActivationRatePerMin: p.integer("ACTIVATION_RATE_PER_MIN", 30),
		ActivationBurst:      p.integer("ACTIVATION_BURST", 5),
		TrustProxyHeaders:    p.boolean("TRUST_PROXY_HEADERS", false),
		LogLevel:             p.str("LOG_LEVEL", "info"),
		LogFormat:            p.str("LOG_FORMAT", "text"),
	}

	mode, err := simulation.ParseMode(p.str("SIM_MODE", "manual"))
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("SIM_MODE: %w", err))
	}
	cfg.Mode = mode

	if cfg.WaypointProximityKm <= 0 {
		p.errs = append(p.errs, errors.New("WAYPOINT_PROXIMITY_KM must be positive"))
	}
	if cfg.ArrivalRadiusKm <= 0 {
		p.errs = append(p.errs, errors.New("ARRIVAL_RADIUS_KM must be positive"))
	}
	if cfg.Mode == simulation.ModePool && cfg.PoolSize <= 0 {
		p.errs = append(p.errs, errors.New("POOL_SIZE must be positive in pool mode"))
	}
	if cfg.OSRMRatePerSec < 0 {
		p.errs = append(p.errs, errors.New("OSRM_RATE_PER_SEC must not be negative"))
	}
	if cfg.ActivationRatePerMin < 0 {
		p.errs = append(p.errs, errors.New("ACTIVATION_RATE_PER_MIN must not be negative"))
	}
	if _, err := logrus.ParseLevel(cfg.LogLevel); err != nil {
		p.errs = append(p.errs, fmt.Errorf("LOG_LEVEL: %w", err))
	}
	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		p.errs = append(p.errs, fmt.Errorf("LOG_FORMAT: want text or json, got %q", cfg.LogFormat))
	}

	if err := errors.Join(p.errs...); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ConfigureLogger applies the level and format to logger.
func (c Config) ConfigureLogger(logger *logrus.Logger) {
	if level, err := logrus.ParseLevel(c.LogLevel); err == nil {
		logger.SetLevel(level)
	}
	if c.LogFormat == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
}

type parser struct {
	getenv func(string) string
	errs   []error
}

func (p *parser) str(key, def string) string {
	if v := p.getenv(key); v != "" {
		return v
	}
	return def
}

func (p *parser) float(key string, def float64) float64 {
	v := p.getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return f
}

func (p *parser) integer(key string, def int) int {
	v := p.getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return n
}

func (p *parser) boolean(key string, def bool) bool {
	v := p.getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return b
}

func (p *parser) duration(key string, def time.Duration) time.Duration {
	v := p.getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return d
}
