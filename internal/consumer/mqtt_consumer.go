package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/vicente3000/Sistema-de-sensores/internal/service"
	"github.com/vicente3000/Sistema-de-sensores/pkg/mqtt"
)

// MQTTConsumer feeds readings published by field gateways into the ingest
// service. Topic format: greendata/{plant_id}/readings, payload is the same
// JSON shape the HTTP ingest endpoint accepts.
type MQTTConsumer struct {
	mqttClient *mqtt.Client
	ingest     *service.IngestService
	topic      string
	qos        byte
	logger     *zap.Logger
}

// NewMQTTConsumer creates the consumer.
func NewMQTTConsumer(mqttClient *mqtt.Client, ingest *service.IngestService, topic string, qos byte, logger *zap.Logger) *MQTTConsumer {
	return &MQTTConsumer{
		mqttClient: mqttClient,
		ingest:     ingest,
		topic:      topic,
		qos:        qos,
		logger:     logger,
	}
}

// Start subscribes and blocks until the context is cancelled.
func (c *MQTTConsumer) Start(ctx context.Context) error {
	if err := c.mqttClient.Subscribe(c.topic, c.qos, c.handleMessage); err != nil {
		return fmt.Errorf("failed to subscribe to readings topic: %w", err)
	}

	c.logger.Info("MQTT consumer started",
		zap.String("topic", c.topic),
	)

	<-ctx.Done()
	return nil
}

// Stop unsubscribes from the readings topic.
func (c *MQTTConsumer) Stop() error {
	if err := c.mqttClient.Unsubscribe(c.topic); err != nil {
		c.logger.Error("Failed to unsubscribe", zap.Error(err))
		return err
	}

	c.logger.Info("MQTT consumer stopped")
	return nil
}

// handleMessage ingests one published reading.
func (c *MQTTConsumer) handleMessage(topic string, payload []byte) error {
	var input service.ReadingInput
	if err := json.Unmarshal(payload, &input); err != nil {
		return fmt.Errorf("failed to unmarshal reading: %w", err)
	}

	// the plant segment of the topic wins over an empty payload field
	if input.Plant == "" {
		parts := strings.Split(topic, "/")
		if len(parts) >= 3 {
			input.Plant = parts[1]
		}
	}

	if _, err := c.ingest.Ingest(context.Background(), input); err != nil {
		return fmt.Errorf("failed to ingest reading from %s: %w", topic, err)
	}

	return nil
}
