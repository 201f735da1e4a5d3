package broadcast

import (
	"errors"
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/ukydev/rapidroute-sim/internal/models"
)

const (
	mqttQoS            = 1
	mqttConnectTimeout = 10 * time.Second
	mqttPublishTimeout = 10 * time.Second
	mqttWriteTimeout   = 5 * time.Second
	mqttQueueSize      = 16
)

var errPublisherClosed = errors.New("mqtt: publisher closed")

type MQTTConfig struct {
	Broker   string // e.g. tcp://broker.hivemq.com:1883
	ClientID string
	Topic    string
	Failures prometheus.Counter // optional
}

type outbound struct {
	payload []byte
	points  int
}

// MQTTPublisher publishes each route to one topic with QoS 1. A single
// worker goroutine owns the client so routes leave in publish order.
type MQTTPublisher struct {
	client   mqtt.Client
	topic    string
	failures prometheus.Counter
	log      logrus.FieldLogger

	queue     chan outbound
	done      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewMQTTPublisher connects to the broker. The paho client reconnects on
// its own after the first successful connect.
func NewMQTTPublisher(cfg MQTTConfig, logger logrus.FieldLogger) (*MQTTPublisher, error) {
	if cfg.Broker == "" || cfg.Topic == "" {
		return nil, errors.New("mqtt: broker and topic are required")
	}

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectTimeout(mqttConnectTimeout).
		SetWriteTimeout(mqttWriteTimeout).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			logger.WithError(err).Warn("MQTT connection lost")
		})

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(mqttConnectTimeout) {
		return nil, fmt.Errorf("mqtt: connect to %s timed out", cfg.Broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt: connect to %s: %w", cfg.Broker, err)
	}

	logger.WithFields(logrus.Fields{
		"broker": cfg.Broker,
		"topic":  cfg.Topic,
	}).Info("Connected to MQTT broker")

	return newMQTTPublisher(client, cfg.Topic, cfg.Failures, logger), nil
}

func newMQTTPublisher(client mqtt.Client, topic string, failures prometheus.Counter, logger logrus.FieldLogger) *MQTTPublisher {
	p := &MQTTPublisher{
		client:   client,
		topic:    topic,
		failures: failures,
		log:      logger,
		queue:    make(chan outbound, mqttQueueSize),
		done:     make(chan struct{}),
	}
	p.wg.Add(1)
	go p.run()
	return p
}

// Publish queues the payload for the worker and never blocks. When the
// queue is full the route is dropped and counted as a failure.
func (p *MQTTPublisher) Publish(points []models.Coordinate) error {
	payload, err := EncodeRoute(points)
	if err != nil {
		return fmt.Errorf("mqtt: encode route: %w", err)
	}

	select {
	case <-p.done:
		return errPublisherClosed
	default:
	}

	select {
	case p.queue <- outbound{payload: payload, points: len(points)}:
		return nil
	default:
		p.fail()
		return fmt.Errorf("mqtt: outbound queue full, dropped route with %d points", len(points))
	}
}

// run hands queued payloads to the client. paho's Publish may block until
// its write timeout when the socket stalls; only this goroutine waits.
func (p *MQTTPublisher) run() {
	defer p.wg.Done()
	for {
		select {
		case <-p.done:
			return
		case msg := <-p.queue:
			token := p.client.Publish(p.topic, mqttQoS, false, msg.payload)
			go p.await(token, msg.points)
		}
	}
}

func (p *MQTTPublisher) await(token mqtt.Token, count int) {
	fields := logrus.Fields{"topic": p.topic, "points": count}
	if !token.WaitTimeout(mqttPublishTimeout) {
		p.fail()
		p.log.WithFields(fields).Warn("MQTT publish timed out")
		return
	}
	if err := token.Error(); err != nil {
		p.fail()
		p.log.WithFields(fields).WithError(err).Warn("MQTT publish failed")
		return
	}
	p.log.WithFields(fields).Info("Published route")
}

func (p *MQTTPublisher) fail() {
	if p.failures != nil {
		p.failures.Inc()
	}
}

// Close stops the worker and disconnects. Routes still queued are dropped.
func (p *MQTTPublisher) Close() {
	p.closeOnce.Do(func() {
		close(p.done)
		p.wg.Wait()
		p.client.Disconnect(250)
	})
}
