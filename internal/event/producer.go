package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/toolhub/backend/internal/domain"
	pkgkafka "github.com/toolhub/backend/pkg/kafka"
)

// Kafka topic constants for engagement and catalog events.
const (
	TopicEngagementRecorded = "toolhub.engagement.recorded"
	TopicEngagementRevoked  = "toolhub.engagement.revoked"
	TopicToolRated          = "toolhub.tool.rated"
	TopicToolUpdated        = "toolhub.tool.updated"
	TopicReviewCreated      = "toolhub.review.created"
	TopicReviewHidden       = "toolhub.review.hidden"
)

// Aggregate type constants.
const (
	AggregateTypeTool   = "tool"
	AggregateTypeReview = "review"
)

// Source identifier for events originating from this service.
const SourceToolhub = "toolhub-api"

// EngagementData is the payload for engagement.recorded and
// engagement.revoked events.
type EngagementData struct {
	ToolID string `json:"tool_id"`
	UserID string `json:"user_id"`
	Kind   string `json:"kind"`
}

// ToolRatedData is the payload for a tool.rated event.
type ToolRatedData struct {
	ToolID string `json:"tool_id"`
	UserID string `json:"user_id"`
	Score  int    `json:"score"`
}

// ToolUpdatedData is the payload for a tool.updated event.
type ToolUpdatedData struct {
	ToolID string `json:"tool_id"`
	Status string `json:"status"`
}

// ReviewData is the payload for review.created and review.hidden events.
type ReviewData struct {
	ReviewID string  `json:"review_id"`
	ToolID   string  `json:"tool_id"`
	UserID   string  `json:"user_id"`
	ParentID *string `json:"parent_id,omitempty"`
}

// Sink is where published events go. *pkgkafka.Producer satisfies it.
type Sink interface {
	Publish(ctx context.Context, topic string, event *pkgkafka.Event) error
}

// Producer publishes engagement and catalog domain events to Kafka.
type Producer struct {
	sink   Sink
	logger *slog.Logger
}

// NewProducer creates a new event producer.
func NewProducer(sink Sink, logger *slog.Logger) *Producer {
	return &Producer{
		sink:   sink,
		logger: logger,
	}
}

// PublishEngagementRecorded publishes an engagement.recorded event.
func (p *Producer) PublishEngagementRecorded(ctx context.Context, toolID, userID, kind string) error {
	data := EngagementData{ToolID: toolID, UserID: userID, Kind: kind}
	return p.publish(ctx, TopicEngagementRecorded, toolID, AggregateTypeTool, data)
}

// PublishEngagementRevoked publishes an engagement.revoked event.
func (p *Producer) PublishEngagementRevoked(ctx context.Context, toolID, userID, kind string) error {
	data := EngagementData{ToolID: toolID, UserID: userID, Kind: kind}
	return p.publish(ctx, TopicEngagementRevoked, toolID, AggregateTypeTool, data)
}

// PublishToolRated publishes a tool.rated event.
func (p *Producer) PublishToolRated(ctx context.Context, toolID, userID string, score int) error {
	data := ToolRatedData{ToolID: toolID, UserID: userID, Score: score}
	return p.publish(ctx, TopicToolRated, toolID, AggregateTypeTool, data)
}

// PublishToolUpdated publishes a tool.updated event.
func (p *Producer) PublishToolUpdated(ctx context.Context, tool *domain.Tool) error {
	data := ToolUpdatedData{ToolID: tool.ID, Status: tool.Status}
	return p.publish(ctx, TopicToolUpdated, tool.ID, AggregateTypeTool, data)
}

// PublishReviewCreated publishes a review.created event.
func (p *Producer) PublishReviewCreated(ctx context.Context, rv *domain.Review) error {
	data := ReviewData{ReviewID: rv.ID, ToolID: rv.ToolID, UserID: rv.UserID, ParentID: rv.ParentID}
	return p.publish(ctx, TopicReviewCreated, rv.ToolID, AggregateTypeTool, data)
}

// PublishReviewHidden publishes a review.hidden event.
func (p *Producer) PublishReviewHidden(ctx context.Context, rv *domain.Review) error {
	data := ReviewData{ReviewID: rv.ID, ToolID: rv.ToolID, UserID: rv.UserID, ParentID: rv.ParentID}
	return p.publish(ctx, TopicReviewHidden, rv.ToolID, AggregateTypeTool, data)
}

func (p *Producer) publish(ctx context.Context, topic, aggregateID, aggregateType string, data any) error {
	event, err := pkgkafka.NewEvent(topic, aggregateID, aggregateType, SourceToolhub, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}

	if err := p.sink.Publish(ctx, topic, event); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}

	p.logger.DebugContext(ctx, "published event",
		slog.String("topic", topic),
		slog.String("aggregate_id", aggregateID),
	)

	return nil
}
