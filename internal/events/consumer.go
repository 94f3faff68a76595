package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/banking/fraud-analysis/internal/config"
	"go.uber.org/zap"
)

// Reloader swaps in a fresh copy of the customer table
type Reloader interface {
	Reload(ctx context.Context) error
}

// RefreshEvent is published by the extract pipeline when a new risk extract lands
type RefreshEvent struct {
	EventID    string    `json:"event_id"`
	Source     string    `json:"source,omitempty"`
	Rows       int       `json:"rows,omitempty"`
	ProducedAt time.Time `json:"produced_at,omitempty"`
}

// RefreshConsumer reloads customer data whenever a refresh event arrives
type RefreshConsumer struct {
	consumerGroup sarama.ConsumerGroup
	handler       *refreshHandler
	topics        []string
	logger        *zap.Logger
}

func NewRefreshConsumer(cfg config.KafkaConfig, reloader Reloader, logger *zap.Logger) (*RefreshConsumer, error) {
	config := sarama.NewConfig()
	config.Consumer.Group.Rebalance.Strategy = sarama.BalanceStrategyRoundRobin
	config.Consumer.Offsets.Initial = sarama.OffsetNewest
	config.Version = sarama.V2_8_0_0

	consumerGroup, err := sarama.NewConsumerGroup(cfg.Brokers, cfg.ConsumerGroup, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create consumer group: %w", err)
	}

	return &RefreshConsumer{
		consumerGroup: consumerGroup,
		handler:       newRefreshHandler(reloader, logger),
		topics:        []string{cfg.RefreshTopic},
		logger:        logger,
	}, nil
}

// Start consumes until ctx is canceled
func (c *RefreshConsumer) Start(ctx context.Context) error {
	c.logger.Info("Starting refresh consumer", zap.Strings("topics", c.topics))
	for {
		if err := c.consumerGroup.Consume(ctx, c.topics, c.handler); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.logger.Error("Error from consumer", zap.Error(err))
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(5 * time.Second):
			}
			continue
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}

func (c *RefreshConsumer) Close() error {
	return c.consumerGroup.Close()
}

const maxReloadAttempts = 3

type refreshHandler struct {
	reloader Reloader
	logger   *zap.Logger
	sleep    func(time.Duration)
}

func newRefreshHandler(reloader Reloader, logger *zap.Logger) *refreshHandler {
	return &refreshHandler{reloader: reloader, logger: logger, sleep: time.Sleep}
}

func (h *refreshHandler) Setup(_ sarama.ConsumerGroupSession) error   { return nil }
func (h *refreshHandler) Cleanup(_ sarama.ConsumerGroupSession) error { return nil }
func (h *refreshHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for message := range claim.Messages() {
		h.processMessage(session.Context(), message)
		session.MarkMessage(message, "")
	}
	return nil
}

// processMessage reports whether the reload succeeded
func (h *refreshHandler) processMessage(ctx context.Context, msg *sarama.ConsumerMessage) bool {
	var event RefreshEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		h.logger.Error("Failed to unmarshal refresh event", zap.String("topic", msg.Topic), zap.Error(err))
		return false
	}

	for i := 0; i < maxReloadAttempts; i++ {
		err := h.reloader.Reload(ctx)
		if err == nil {
			h.logger.Info("Customer data reloaded from refresh event",
				zap.String("event_id", event.EventID),
				zap.String("source", event.Source),
			)
			return true
		}
		h.logger.Error("Failed to reload customer data",
			zap.String("event_id", event.EventID),
			zap.Error(err),
			zap.Int("retry", i+1),
		)
		if i < maxReloadAttempts-1 {
			h.sleep(time.Duration(i+1) * time.Second)
		}
	}
	h.logger.Error("Dropping refresh event after retries", zap.String("event_id", event.EventID))
	return false
}
