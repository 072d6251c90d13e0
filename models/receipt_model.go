package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	ReceiptRead      = "read"
	ReceiptDelivered = "delivered"
)

// MessageReceipt records that a user has read or received a message. A user
// holds at most one receipt of each kind per message.
type MessageReceipt struct {
	MessageID uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID    uuid.UUID `gorm:"type:uuid;primaryKey"`
	Kind      string    `gorm:"size:10;primaryKey"`
	At        time.Time `gorm:"not null"`
}

type ReadReceipt struct {
	User   uuid.UUID `json:"user"`
	ReadAt time.Time `json:"readAt"`
}

type DeliveryReceipt struct {
	User        uuid.UUID `json:"user"`
	DeliveredAt time.Time `json:"deliveredAt"`
}
