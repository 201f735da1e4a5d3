package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/ukydev/rapidroute-sim/internal/geo"
	"github.com/ukydev/rapidroute-sim/internal/telemetry"
)

// errIdle means the server answered but has no route to follow yet.
var errIdle = errors.New("server has no active route")

// device emulates the in-vehicle receiver polling the control server.
type device struct {
	baseURL string
	client  *http.Client
	names   map[int]string

	lastNext int
	frames   int
}

func newDevice(baseURL string) *device {
	return &device{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 10 * time.Second},
		names:   map[int]string{},
	}
}

// loadSignals fetches the id -> name table so log lines can name signals.
func (d *device) loadSignals() error {
	resp, err := d.client.Get(d.baseURL + "/get-signals")
	if err != nil {
		return fmt.Errorf("failed to fetch signals: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("signal list failed with status: %d", resp.StatusCode)
	}
	names := map[int]string{}
	if err := json.NewDecoder(resp.Body).Decode(&names); err != nil {
		return fmt.Errorf("failed to decode signals: %w", err)
	}
	d.names = names
	return nil
}

// fetchFrame pulls one telemetry frame. Each call advances the simulation.
func (d *device) fetchFrame() (telemetry.Frame, error) {
	resp, err := d.client.Get(d.baseURL + "/location")
	if err != nil {
		return telemetry.Frame{}, fmt.Errorf("failed to fetch location: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return telemetry.Frame{}, fmt.Errorf("failed to read location: %w", err)
	}
	text := strings.TrimSpace(string(body))

	if resp.StatusCode != http.StatusOK {
		if strings.HasPrefix(text, "error:") {
			return telemetry.Frame{}, fmt.Errorf("%w: %s", errIdle, text)
		}
		return telemetry.Frame{}, fmt.Errorf("location failed with status: %d", resp.StatusCode)
	}
	return telemetry.Decode(text)
}

func (d *device) signalName(id int) string {
	if name, ok := d.names[id]; ok {
		return name
	}
	return strconv.Itoa(id)
}

// handle logs a frame and reports when the next signal changes.
func (d *device) handle(f telemetry.Frame) {
	d.frames++
	moved := geo.DistanceKm(f.Previous, f.Current) * 1000

	entry := log.WithFields(log.Fields{
		"lat":     f.Current.Lat,
		"lon":     f.Current.Lon,
		"moved_m": int(moved),
		"next":    d.signalName(f.NextID),
	})
	if f.NextID != d.lastNext {
		entry.WithFields(log.Fields{
			"start": d.signalName(f.StartID),
			"end":   d.signalName(f.EndID),
		}).Info("Heading to next signal")
		d.lastNext = f.NextID
		return
	}
	entry.Debug("Position update")
}

func (d *device) poll(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	idle := false
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		frame, err := d.fetchFrame()
		switch {
		case errors.Is(err, errIdle):
			if !idle {
				log.WithError(err).Info("Waiting for a route")
				idle = true
			}
		case err != nil:
			log.WithError(err).Warn("Failed to poll location")
		default:
			idle = false
			d.handle(frame)
		}
	}
}

func main() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})

	serverURL := os.Getenv("SERVER_URL")
	if serverURL == "" {
		serverURL = "http://localhost:5000"
	}

	interval := time.Second
	if v := os.Getenv("POLL_INTERVAL_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms > 0 {
			interval = time.Duration(ms) * time.Millisecond
		}
	}

	log.WithFields(log.Fields{
		"server":   serverURL,
		"interval": interval,
	}).Info("Starting device emulator")

	d := newDevice(serverURL)
	if err := d.loadSignals(); err != nil {
		log.WithError(err).Warn("Continuing without signal names")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	d.poll(ctx, interval)
	log.WithField("frames", d.frames).Info("Device emulator stopped")
}
