package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/i474232898/aqi-traffic-ingestion/internal/ingest"
)

const mqttPublishTimeout = 5 * time.Second

type publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
}

// MQTTConfig configures the MQTT publisher.
type MQTTConfig struct {
	BrokerURL string // e.g. tcp://localhost:1883
	ClientID  string
	Topic     string
}

// MQTTSink publishes each batch as one JSON message.
type MQTTSink struct {
	client publisher
	topic  string
	logger *slog.Logger
}

// NewMQTTSink connects to the broker, waiting until ctx is done at most.
func NewMQTTSink(ctx context.Context, cfg MQTTConfig, logger *slog.Logger) (*MQTTSink, error) {
	if logger == nil {
		logger = slog.Default()
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.BrokerURL)
	opts.SetClientID(cfg.ClientID)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetKeepAlive(30 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		logger.Warn("mqtt connection lost", "err", err)
	})

	client := mqtt.NewClient(opts)
	token := client.Connect()

	const poll = 200 * time.Millisecond
	for !token.WaitTimeout(poll) {
		select {
		case <-ctx.Done():
			client.Disconnect(0)
			return nil, fmt.Errorf("mqtt connect: %w", ctx.Err())
		default:
		}
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect: %w", err)
	}

	logger.Info("mqtt connected", "broker", cfg.BrokerURL, "topic", cfg.Topic)
	return &MQTTSink{client: client, topic: cfg.Topic, logger: logger}, nil
}

func (m *MQTTSink) Name() string {
	return "mqtt"
}

func (m *MQTTSink) Write(_ context.Context, batch ingest.Batch) error {
	if len(batch.Records) == 0 {
		return nil
	}

	data, err := json.Marshal(batch)
	if err != nil {
		return fmt.Errorf("marshal batch: %w", err)
	}

	token := m.client.Publish(m.topic, 1, false, data)
	if !token.WaitTimeout(mqttPublishTimeout) {
		return fmt.Errorf("publish timeout for topic %s", m.topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish batch: %w", err)
	}

	m.logger.Debug("published batch", "topic", m.topic, "records", len(batch.Records))
	return nil
}

func (m *MQTTSink) Close() error {
	m.client.Disconnect(250)
	return nil
}
