package event

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	pkgkafka "github.com/toolhub/backend/pkg/kafka"
)

// Recomputer rebuilds a tool's engagement aggregates from the source tables.
type Recomputer interface {
	Recompute(ctx context.Context, toolID string) error
}

// Consumer reacts to engagement events by recomputing the affected tool's
// aggregates. The fast-path counter updates happen synchronously at write
// time; this consumer is the convergence path that repairs any drift.
type Consumer struct {
	recomputer Recomputer
	logger     *slog.Logger
}

// NewConsumer creates a new aggregate-recompute consumer.
func NewConsumer(recomputer Recomputer, logger *slog.Logger) *Consumer {
	return &Consumer{
		recomputer: recomputer,
		logger:     logger,
	}
}

// Handle processes a Kafka event based on its type.
func (c *Consumer) Handle(ctx context.Context, event *pkgkafka.Event) error {
	switch event.EventType {
	case TopicEngagementRecorded, TopicEngagementRevoked:
		var data EngagementData
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return fmt.Errorf("unmarshal %s data: %w", event.EventType, err)
		}
		return c.recompute(ctx, data.ToolID, event.EventType)

	case TopicToolRated:
		var data ToolRatedData
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return fmt.Errorf("unmarshal %s data: %w", event.EventType, err)
		}
		return c.recompute(ctx, data.ToolID, event.EventType)

	case TopicReviewCreated, TopicReviewHidden:
		var data ReviewData
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return fmt.Errorf("unmarshal %s data: %w", event.EventType, err)
		}
		return c.recompute(ctx, data.ToolID, event.EventType)

	default:
		c.logger.WarnContext(ctx, "unknown event type received",
			slog.String("event_type", event.EventType),
			slog.String("event_id", event.EventID),
		)
		return nil
	}
}

// NewConsumers creates one Kafka consumer per engagement topic, all feeding
// the same recompute handler under a shared consumer group.
func NewConsumers(brokers []string, groupID string, consumer *Consumer, logger *slog.Logger) []*pkgkafka.Consumer {
	topics := []string{
		TopicEngagementRecorded,
		TopicEngagementRevoked,
		TopicToolRated,
		TopicReviewCreated,
		TopicReviewHidden,
	}

	consumers := make([]*pkgkafka.Consumer, 0, len(topics))
	for _, topic := range topics {
		cfg := pkgkafka.ConsumerConfig{
			Brokers:  brokers,
			GroupID:  groupID,
			Topic:    topic,
			MinBytes: 1,
			MaxBytes: 10e6,
		}
		consumers = append(consumers, pkgkafka.NewConsumer(cfg, consumer.Handle, logger))
	}

	return consumers
}

func (c *Consumer) recompute(ctx context.Context, toolID, eventType string) error {
	if err := c.recomputer.Recompute(ctx, toolID); err != nil {
		return fmt.Errorf("recompute aggregates for %s after %s: %w", toolID, eventType, err)
	}

	c.logger.DebugContext(ctx, "aggregates recomputed",
		slog.String("tool_id", toolID),
		slog.String("trigger", eventType),
	)

	return nil
}
