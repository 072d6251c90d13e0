package models

import (
	"time"

	"github.com/google/uuid"
)

type Conversation struct {
	ID uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`

	Participants []*User      `gorm:"many2many:conversation_participants;" json:"-"`
	Members      []PublicUser `gorm:"-" json:"participants"`

	IsGroup      bool       `gorm:"not null;default:false" json:"isGroup"`
	GroupName    string     `gorm:"size:255" json:"groupName,omitempty"`
	GroupAdminID *uuid.UUID `gorm:"type:uuid" json:"groupAdmin,omitempty"`
	GroupAvatar  string     `gorm:"size:512" json:"groupAvatar"`

	LastMessageID   *uuid.UUID `gorm:"type:uuid" json:"-"`
	LastMessage     *Message   `gorm:"foreignKey:LastMessageID" json:"lastMessage,omitempty"`
	LastMessageTime time.Time  `gorm:"index" json:"lastMessageTime"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (c *Conversation) IsAdmin(userID uuid.UUID) bool {
	return c.GroupAdminID != nil && *c.GroupAdminID == userID
}

// Present fills the serialized views of the loaded associations.
func (c *Conversation) Present() {
	c.Members = make([]PublicUser, 0, len(c.Participants))
	for _, p := range c.Participants {
		c.Members = append(c.Members, p.Public())
	}
	if c.LastMessage != nil {
		c.LastMessage.Present()
	}
}
