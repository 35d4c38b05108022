package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

type NotificationStatus string

const (
	NotificationStatusDraft     NotificationStatus = "draft"
	NotificationStatusScheduled NotificationStatus = "scheduled"
	NotificationStatusSending   NotificationStatus = "sending"
	NotificationStatusSent      NotificationStatus = "sent"
	NotificationStatusFailed    NotificationStatus = "failed"
)

// SegmentKind is the closed set of targeting selectors. Kept as a typed
// constant so the resolver can switch exhaustively instead of comparing
// loose strings.
type SegmentKind string

const (
	SegmentAll      SegmentKind = "all"      // every consented user
	SegmentActive   SegmentKind = "active"   // seen within the last 7 days
	SegmentInactive SegmentKind = "inactive" // not seen for 7 days
	SegmentNew      SegmentKind = "new"      // registered within the last 3 days
	SegmentCustom   SegmentKind = "custom"   // explicit recipient list and/or filters
)

const (
	ActiveWindow = 7 * 24 * time.Hour
	NewWindow    = 3 * 24 * time.Hour
)

// Valid reports whether k is a known selector.
func (k SegmentKind) Valid() bool {
	switch k {
	case SegmentAll, SegmentActive, SegmentInactive, SegmentNew, SegmentCustom:
		return true
	}
	return false
}

// PushNotification is a unit of outbound messaging content plus
// targeting plus lifecycle state.
type PushNotification struct {
	ID      uuid.UUID   `db:"id" json:"id"`
	Title   string      `db:"title" json:"title"`
	Message string      `db:"message" json:"message"`
	Segment SegmentKind `db:"segment" json:"segment"`

	// TargetVKUserIDs is honored only under SegmentCustom.
	TargetVKUserIDs pq.Int64Array `db:"target_vk_user_ids" json:"target_vk_user_ids,omitempty"`

	// Optional filters, AND-composed and applied under every selector.
	FilterCity      string `db:"filter_city" json:"filter_city,omitempty"`
	FilterSex       int    `db:"filter_sex" json:"filter_sex,omitempty"`
	FilterUTMSource string `db:"filter_utm_source" json:"filter_utm_source,omitempty"`

	ActionURL  string `db:"action_url" json:"action_url,omitempty"`
	ActionType string `db:"action_type" json:"action_type,omitempty"`

	Status       NotificationStatus `db:"status" json:"status"`
	ScheduledFor *time.Time         `db:"scheduled_for" json:"scheduled_for,omitempty"`

	// Running totals, recomputed from the batch at the end of each send
	// cycle rather than incremented mid-loop.
	TotalSent      int `db:"total_sent" json:"total_sent"`
	TotalDelivered int `db:"total_delivered" json:"total_delivered"`
	TotalFailed    int `db:"total_failed" json:"total_failed"`
	TotalClicked   int `db:"total_clicked" json:"total_clicked"`

	SentAt    *time.Time `db:"sent_at" json:"sent_at,omitempty"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt time.Time  `db:"updated_at" json:"updated_at"`
}

// Sendable reports whether a send cycle may start from the current status.
func (n *PushNotification) Sendable() bool {
	return n.Status == NotificationStatusDraft || n.Status == NotificationStatusScheduled
}

// DeliveryStats summarizes one send cycle.
type DeliveryStats struct {
	Total     int `json:"total"`
	Sent      int `json:"sent"`
	Delivered int `json:"delivered"`
	Failed    int `json:"failed"`
}
