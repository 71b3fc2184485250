package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sangkips/caja-api/internal/domain/entity"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const EventTypeSaleRecorded = "SaleRecorded"

// Config holds the Kafka settings of the sale publisher
type Config struct {
	Brokers []string
	Topic   string
}

// SaleRecordedEvent is the envelope downstream reporting consumes
type SaleRecordedEvent struct {
	EventID   string      `json:"event_id"`
	EventType string      `json:"event_type"`
	Payload   SalePayload `json:"payload"`
	Timestamp time.Time   `json:"timestamp"`
}

type SalePayload struct {
	ID            string            `json:"id"`
	ReceiptNo     string            `json:"receipt_no"`
	SessionID     string            `json:"session_id"`
	UserID        string            `json:"user_id"`
	CustomerRef   string            `json:"customer_ref"`
	PaymentMethod string            `json:"payment_method"`
	TotalCents    int64             `json:"total_cents"`
	SoldAt        time.Time         `json:"sold_at"`
	Items         []SaleItemPayload `json:"items"`
}

type SaleItemPayload struct {
	Kind           string `json:"kind"`
	ProductID      *int64 `json:"product_id"`
	Description    string `json:"description"`
	Tier           string `json:"tier,omitempty"`
	UnitPriceCents int64  `json:"unit_price_cents"`
	Quantity       int    `json:"quantity"`
}

// NewSaleRecordedEvent builds the event for a committed sale
func NewSaleRecordedEvent(sale *entity.Sale, now time.Time) SaleRecordedEvent {
	items := make([]SaleItemPayload, 0, len(sale.Lines))
	for _, l := range sale.Lines {
		items = append(items, SaleItemPayload{
			Kind:           l.Kind.String(),
			ProductID:      l.ProductID,
			Description:    l.Description,
			Tier:           l.Tier.String(),
			UnitPriceCents: l.UnitPrice,
			Quantity:       l.Quantity,
		})
	}

	return SaleRecordedEvent{
		EventID:   uuid.NewString(),
		EventType: EventTypeSaleRecorded,
		Payload: SalePayload{
			ID:            sale.ID.String(),
			ReceiptNo:     sale.ReceiptNo,
			SessionID:     sale.SessionID,
			UserID:        sale.UserID.String(),
			CustomerRef:   sale.CustomerRef,
			PaymentMethod: sale.PaymentMethod.String(),
			TotalCents:    sale.Total,
			SoldAt:        sale.SoldAt,
			Items:         items,
		},
		Timestamp: now,
	}
}

// messageWriter is the part of *kafka.Writer the publisher uses
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSalePublisher writes SaleRecorded events keyed by sale ID, so every
// event of one sale lands on the same partition.
type KafkaSalePublisher struct {
	writer messageWriter
	topic  string
	logger *zap.Logger
}

// NewKafkaSalePublisher creates a publisher for cfg.Topic
func NewKafkaSalePublisher(cfg *Config, logger *zap.Logger) *KafkaSalePublisher {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
		BatchTimeout:           10 * time.Millisecond,
	}
	return &KafkaSalePublisher{writer: w, topic: cfg.Topic, logger: logger}
}

func (p *KafkaSalePublisher) PublishSaleRecorded(ctx context.Context, sale *entity.Sale) error {
	event := NewSaleRecordedEvent(sale, time.Now().UTC())
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode %s event: %w", EventTypeSaleRecorded, err)
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(sale.ID.String()),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(EventTypeSaleRecorded)},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to write to topic %s: %w", p.topic, err)
	}

	p.logger.Debug("published sale event",
		zap.String("event_id", event.EventID),
		zap.String("sale_id", event.Payload.ID),
	)
	return nil
}

func (p *KafkaSalePublisher) Close() error {
	return p.writer.Close()
}

// NopSalePublisher drops every event. Used when no brokers are configured.
type NopSalePublisher struct{}

func (NopSalePublisher) PublishSaleRecorded(context.Context, *entity.Sale) error {
	return nil
}

func (NopSalePublisher) Close() error {
	return nil
}

// Publisher is a closable sale publisher
type Publisher interface {
	PublishSaleRecorded(ctx context.Context, sale *entity.Sale) error
	Close() error
}

// NewSalePublisher returns the Kafka publisher, or a no-op one when no
// brokers are configured
func NewSalePublisher(cfg *Config, logger *zap.Logger) Publisher {
	if len(cfg.Brokers) == 0 {
		logger.Info("no Kafka brokers configured, sale events disabled")
		return NopSalePublisher{}
	}
	logger.Info("publishing sale events",
		zap.Strings("brokers", cfg.Brokers),
		zap.String("topic", cfg.Topic),
	)
	return NewKafkaSalePublisher(cfg, logger)
}
