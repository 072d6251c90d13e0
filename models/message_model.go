package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	MessageText  = "text"
	MessageImage = "image"
	MessageFile  = "file"
	MessageAudio = "audio"
	MessageVideo = "video"
)

type Message struct {
	ID             uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	ConversationID uuid.UUID `gorm:"type:uuid;not null;index:idx_messages_conversation_created,priority:1" json:"conversation"`
	SenderID       uuid.UUID `gorm:"type:uuid;not null;index" json:"-"`
	Content        string    `gorm:"type:text" json:"content"`
	MessageType    string    `gorm:"size:10;not null;default:'text'" json:"messageType"`

	FileURL      string `gorm:"size:1024" json:"fileUrl"`
	FileName     string `gorm:"size:255" json:"fileName"`
	FileSize     int64  `gorm:"default:0" json:"fileSize"`
	FilePublicID string `gorm:"size:255" json:"-"`

	ReplyToID *uuid.UUID `gorm:"type:uuid" json:"-"`
	ReplyTo   *Message   `gorm:"foreignKey:ReplyToID" json:"replyTo,omitempty"`

	Sender   *PublicUser      `gorm:"-" json:"sender,omitempty"`
	Author   *User            `gorm:"foreignKey:SenderID" json:"-"`
	Receipts []MessageReceipt `gorm:"foreignKey:MessageID" json:"-"`

	ReadBy      []ReadReceipt     `gorm:"-" json:"readBy"`
	DeliveredTo []DeliveryReceipt `gorm:"-" json:"deliveredTo"`

	CreatedAt time.Time `gorm:"index:idx_messages_conversation_created,priority:2" json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Present fills the serialized views (sender, readBy, deliveredTo) from the
// loaded associations.
func (m *Message) Present() {
	if m.Author != nil {
		p := m.Author.Public()
		m.Sender = &p
	}
	m.ReadBy = make([]ReadReceipt, 0)
	m.DeliveredTo = make([]DeliveryReceipt, 0)
	for _, r := range m.Receipts {
		switch r.Kind {
		case ReceiptRead:
			m.ReadBy = append(m.ReadBy, ReadReceipt{User: r.UserID, ReadAt: r.At})
		case ReceiptDelivered:
			m.DeliveredTo = append(m.DeliveredTo, DeliveryReceipt{User: r.UserID, DeliveredAt: r.At})
		}
	}
	if m.ReplyTo != nil {
		m.ReplyTo.Present()
	}
}
