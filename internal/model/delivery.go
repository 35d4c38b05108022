package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type DeliveryStatus string

const (
	DeliveryStatusSent      DeliveryStatus = "sent"
	DeliveryStatusDelivered DeliveryStatus = "delivered"
	DeliveryStatusFailed    DeliveryStatus = "failed"
	DeliveryStatusClicked   DeliveryStatus = "clicked"
)

// PushLog is one attempt to deliver one notification to one user.
// Entries are append-only; the only permitted mutation is the
// transition to clicked, which records the click timestamp.
//
// A provider success is logged as delivered: VK never reports a real
// delivered/opened confirmation, so "sent" and "delivered" are one
// outcome here.
type PushLog struct {
	ID             uuid.UUID       `db:"id" json:"id"`
	NotificationID uuid.UUID       `db:"notification_id" json:"notification_id"`
	UserID         uuid.UUID       `db:"user_id" json:"user_id"`
	Status         DeliveryStatus  `db:"status" json:"status"`
	ErrorMessage   string          `db:"error_message" json:"error_message,omitempty"`
	SentAt         time.Time       `db:"sent_at" json:"sent_at"`
	ClickedAt      *time.Time      `db:"clicked_at" json:"clicked_at,omitempty"`
	VKResponse     json.RawMessage `db:"vk_response" json:"vk_response,omitempty"`
}

// DeliveryBreakdown is the per-status log count for one notification.
type DeliveryBreakdown struct {
	Status DeliveryStatus `db:"status" json:"status"`
	Count  int            `db:"count" json:"count"`
}
