// Package events publishes domain events about orders to Kafka.
package events

import (
	"encoding/json"
	"strconv"
	"time"

	"petshop/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	EventOrderCreated = "OrderCreated"

	envelopeVersion = 1
	producerName    = "petshop-api"
)

// Envelope wraps every event payload with routing metadata
type Envelope struct {
	EventID       string          `json:"eventId"`
	EventType     string          `json:"eventType"`
	EventVersion  int             `json:"eventVersion"`
	OccurredAt    time.Time       `json:"occurredAt"`
	Producer      string          `json:"producer"`
	CorrelationID string          `json:"correlationId,omitempty"` // order id
	Payload       json.RawMessage `json:"payload"`
}

type OrderItemPayload struct {
	ProductID uint            `json:"productId"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

type OrderCreatedPayload struct {
	OrderID     uint               `json:"orderId"`
	UserID      uint               `json:"userId"`
	TotalAmount decimal.Decimal    `json:"totalAmount"`
	Items       []OrderItemPayload `json:"items"`
}

// NewEnvelope marshals payload into a fresh envelope
func NewEnvelope(eventType, correlationID string, payload any) (Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  envelopeVersion,
		OccurredAt:    time.Now().UTC(),
		Producer:      producerName,
		CorrelationID: correlationID,
		Payload:       raw,
	}, nil
}

// OrderCreated builds the envelope published after a checkout commits
func OrderCreated(o *domain.Order) (Envelope, error) {
	p := OrderCreatedPayload{
		OrderID:     o.ID,
		UserID:      o.UserID,
		TotalAmount: o.TotalAmount,
		Items:       make([]OrderItemPayload, len(o.Items)),
	}
	for i, it := range o.Items {
		p.Items[i] = OrderItemPayload{ProductID: it.ProductID, Quantity: it.Quantity, Price: it.Price}
	}
	return NewEnvelope(EventOrderCreated, strconv.FormatUint(uint64(o.ID), 10), p)
}
