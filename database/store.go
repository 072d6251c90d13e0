package database

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/anjiri1684/chat_app/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store persists users, conversations and messages in Postgres.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	if err := s.db.WithContext(ctx).Omit(clause.Associations).Create(u).Error; err != nil {
		return fmt.Errorf("create user: %w", translate(err))
	}
	return nil
}

// UpdateUser writes u's profile fields. Status and lastSeen belong to the
// socket hub and are left alone.
func (s *Store) UpdateUser(ctx context.Context, u *models.User) error {
	err := s.db.WithContext(ctx).
		Model(u).
		Select("username", "full_name", "bio", "avatar").
		Updates(u).Error
	if err != nil {
		return fmt.Errorf("update user: %w", translate(err))
	}
	return nil
}

func (s *Store) UserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).First(&u, "id = ?", id).Error; err != nil {
		return nil, fmt.Errorf("user by id: %w", translate(err))
	}
	return &u, nil
}

func (s *Store) UserByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).First(&u, "LOWER(email) = LOWER(?)", email).Error; err != nil {
		return nil, fmt.Errorf("user by email: %w", translate(err))
	}
	return &u, nil
}

func (s *Store) UsersByIDs(ctx context.Context, ids []uuid.UUID) ([]models.User, error) {
	var users []models.User
	if len(ids) == 0 {
		return users, nil
	}
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, fmt.Errorf("users by ids: %w", translate(err))
	}
	return users, nil
}

// SearchUsers matches query case-insensitively against username, full name
// and email, excluding the caller.
func (s *Store) SearchUsers(ctx context.Context, exclude uuid.UUID, query string, limit int) ([]models.User, error) {
	pattern := "%" + escapeLike(query) + "%"
	var users []models.User
	err := s.db.WithContext(ctx).
		Where("id <> ?", exclude).
		Where("username ILIKE ? OR full_name ILIKE ? OR email ILIKE ?", pattern, pattern, pattern).
		Order("username").
		Limit(limit).
		Find(&users).Error
	if err != nil {
		return nil, fmt.Errorf("search users: %w", translate(err))
	}
	return users, nil
}

func (s *Store) SetStatus(ctx context.Context, userID uuid.UUID, status string, at time.Time) error {
	err := s.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", userID).
		Updates(map[string]any{"status": status, "last_seen": at}).Error
	if err != nil {
		return fmt.Errorf("set status: %w", translate(err))
	}
	return nil
}

func (s *Store) UserIDsWithStatus(ctx context.Context, status string) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("status = ?", status).Pluck("id", &ids).Error; err != nil {
		return nil, fmt.Errorf("users with status: %w", translate(err))
	}
	return ids, nil
}

func (s *Store) Contacts(ctx context.Context, userID uuid.UUID) ([]models.User, error) {
	var contacts []models.User
	err := s.db.WithContext(ctx).
		Joins("JOIN user_contacts uc ON uc.contact_id = users.id").
		Where("uc.user_id = ?", userID).
		Order("users.username").
		Find(&contacts).Error
	if err != nil {
		return nil, fmt.Errorf("contacts: %w", translate(err))
	}
	return contacts, nil
}

func (s *Store) HasContact(ctx context.Context, userID, contactID uuid.UUID) (bool, error) {
	var n int64
	err := s.db.WithContext(ctx).
		Table("user_contacts").
		Where("user_id = ? AND contact_id = ?", userID, contactID).
		Count(&n).Error
	if err != nil {
		return false, fmt.Errorf("has contact: %w", translate(err))
	}
	return n > 0, nil
}

func (s *Store) AddContact(ctx context.Context, userID, contactID uuid.UUID) error {
	err := s.db.WithContext(ctx).
		Exec("INSERT INTO user_contacts (user_id, contact_id) VALUES (?, ?) ON CONFLICT DO NOTHING", userID, contactID).Error
	if err != nil {
		return fmt.Errorf("add contact: %w", translate(err))
	}
	return nil
}

// RemoveContact reports whether a contact was removed.
func (s *Store) RemoveContact(ctx context.Context, userID, contactID uuid.UUID) (bool, error) {
	res := s.db.WithContext(ctx).
		Exec("DELETE FROM user_contacts WHERE user_id = ? AND contact_id = ?", userID, contactID)
	if res.Error != nil {
		return false, fmt.Errorf("remove contact: %w", translate(res.Error))
	}
	return res.RowsAffected > 0, nil
}

func participantOf(userID uuid.UUID) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Joins("JOIN conversation_participants cp ON cp.conversation_id = conversations.id AND cp.user_id = ?", userID)
	}
}

// Conversations lists userID's conversations, most recently active first.
func (s *Store) Conversations(ctx context.Context, userID uuid.UUID) ([]models.Conversation, error) {
	var convs []models.Conversation
	err := s.db.WithContext(ctx).
		Scopes(participantOf(userID)).
		Preload("Participants").
		Preload("LastMessage").
		Preload("LastMessage.Author").
		Preload("LastMessage.Receipts").
		Order("conversations.last_message_time DESC").
		Find(&convs).Error
	if err != nil {
		return nil, fmt.Errorf("conversations: %w", translate(err))
	}
	for i := range convs {
		convs[i].Present()
	}
	return convs, nil
}

// ConversationForParticipant loads a conversation only if userID takes part
// in it.
func (s *Store) ConversationForParticipant(ctx context.Context, convID, userID uuid.UUID) (*models.Conversation, error) {
	var conv models.Conversation
	err := s.db.WithContext(ctx).
		Scopes(participantOf(userID)).
		Preload("Participants").
		Where("conversations.id = ?", convID).
		First(&conv).Error
	if err != nil {
		return nil, fmt.Errorf("conversation: %w", translate(err))
	}
	conv.Present()
	return &conv, nil
}

func (s *Store) IsParticipant(ctx context.Context, convID, userID uuid.UUID) (bool, error) {
	var n int64
	err := s.db.WithContext(ctx).
		Table("conversation_participants").
		Where("conversation_id = ? AND user_id = ?", convID, userID).
		Count(&n).Error
	if err != nil {
		return false, fmt.Errorf("is participant: %w", translate(err))
	}
	return n > 0, nil
}

// DirectConversation finds the one-on-one conversation between a and b.
func (s *Store) DirectConversation(ctx context.Context, a, b uuid.UUID) (*models.Conversation, error) {
	var conv models.Conversation
	err := s.db.WithContext(ctx).
		Joins("JOIN conversation_participants cp1 ON cp1.conversation_id = conversations.id AND cp1.user_id = ?", a).
		Joins("JOIN conversation_participants cp2 ON cp2.conversation_id = conversations.id AND cp2.user_id = ?", b).
		Where("conversations.is_group = ?", false).
		Preload("Participants").
		First(&conv).Error
	if err != nil {
		return nil, fmt.Errorf("direct conversation: %w", translate(err))
	}
	conv.Present()
	return &conv, nil
}

// CreateConversation inserts conv and links its (already persisted)
// participants.
func (s *Store) CreateConversation(ctx context.Context, conv *models.Conversation) error {
	if err := s.db.WithContext(ctx).Omit("Participants.*", "LastMessage").Create(conv).Error; err != nil {
		return fmt.Errorf("create conversation: %w", translate(err))
	}
	return nil
}

// DeleteConversation removes a conversation together with its messages and
// their receipts. It returns the media handles of the deleted messages.
func (s *Store) DeleteConversation(ctx context.Context, convID uuid.UUID) ([]string, error) {
	var publicIDs []string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Model(&models.Message{}).
			Where("conversation_id = ? AND file_public_id <> ''", convID).
			Pluck("file_public_id", &publicIDs).Error
		if err != nil {
			return err
		}

		msgIDs := tx.Model(&models.Message{}).Select("id").Where("conversation_id = ?", convID)
		if err := tx.Where("message_id IN (?)", msgIDs).Delete(&models.MessageReceipt{}).Error; err != nil {
			return err
		}
		if err := tx.Where("conversation_id = ?", convID).Delete(&models.Message{}).Error; err != nil {
			return err
		}
		if err := tx.Exec("DELETE FROM conversation_participants WHERE conversation_id = ?", convID).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.Conversation{}, "id = ?", convID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("delete conversation: %w", translate(err))
	}
	return publicIDs, nil
}

// CreateMessage inserts msg and makes it the conversation's last message.
func (s *Store) CreateMessage(ctx context.Context, msg *models.Message) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(msg).Error; err != nil {
			return err
		}
		return tx.Model(&models.Conversation{}).
			Where("id = ?", msg.ConversationID).
			Updates(map[string]any{
				"last_message_id":   msg.ID,
				"last_message_time": msg.CreatedAt,
			}).Error
	})
	if err != nil {
		return fmt.Errorf("create message: %w", translate(err))
	}
	return nil
}

func withMessageDetail(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Author").
		Preload("Receipts").
		Preload("ReplyTo").
		Preload("ReplyTo.Author")
}

func (s *Store) MessageByID(ctx context.Context, id uuid.UUID) (*models.Message, error) {
	var msg models.Message
	if err := s.db.WithContext(ctx).Scopes(withMessageDetail).First(&msg, "id = ?", id).Error; err != nil {
		return nil, fmt.Errorf("message by id: %w", translate(err))
	}
	msg.Present()
	return &msg, nil
}

// Messages returns one page of a conversation's history counted back from
// the newest message, ordered oldest first, and the total message count.
func (s *Store) Messages(ctx context.Context, convID uuid.UUID, limit, offset int) ([]models.Message, int64, error) {
	db := s.db.WithContext(ctx)

	var total int64
	if err := db.Model(&models.Message{}).Where("conversation_id = ?", convID).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count messages: %w", translate(err))
	}

	var msgs []models.Message
	err := db.Scopes(withMessageDetail).
		Where("conversation_id = ?", convID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&msgs).Error
	if err != nil {
		return nil, 0, fmt.Errorf("list messages: %w", translate(err))
	}

	slices.Reverse(msgs)
	for i := range msgs {
		msgs[i].Present()
	}
	return msgs, total, nil
}

// AddReceipt records a read or delivery receipt. It is a no-op when the
// receipt already exists and fails with ErrNotFound when the message does
// not belong to convID.
func (s *Store) AddReceipt(ctx context.Context, convID, msgID, userID uuid.UUID, kind string, at time.Time) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		err := tx.Model(&models.Message{}).
			Where("id = ? AND conversation_id = ?", msgID, convID).
			Count(&n).Error
		if err != nil {
			return err
		}
		if n == 0 {
			return gorm.ErrRecordNotFound
		}
		return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&models.MessageReceipt{
			MessageID: msgID,
			UserID:    userID,
			Kind:      kind,
			At:        at,
		}).Error
	})
	if err != nil {
		return fmt.Errorf("add receipt: %w", translate(err))
	}
	return nil
}

// DeleteMessage removes msg and its receipts, detaches replies to it and, if
// it was the conversation's last message, points the conversation at the
// newest remaining one.
func (s *Store) DeleteMessage(ctx context.Context, msg *models.Message) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("message_id = ?", msg.ID).Delete(&models.MessageReceipt{}).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Message{}).Where("reply_to_id = ?", msg.ID).Update("reply_to_id", nil).Error; err != nil {
			return err
		}
		if err := tx.Delete(&models.Message{}, "id = ?", msg.ID).Error; err != nil {
			return err
		}

		var conv models.Conversation
		err := tx.Select("id", "last_message_id").First(&conv, "id = ?", msg.ConversationID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if conv.LastMessageID == nil || *conv.LastMessageID != msg.ID {
			return nil
		}

		updates := map[string]any{"last_message_id": nil}
		var latest models.Message
		err = tx.Where("conversation_id = ?", msg.ConversationID).Order("created_at DESC").First(&latest).Error
		switch {
		case err == nil:
			updates["last_message_id"] = latest.ID
			updates["last_message_time"] = latest.CreatedAt
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return err
		}
		return tx.Model(&models.Conversation{}).Where("id = ?", msg.ConversationID).Updates(updates).Error
	})
	if err != nil {
		return fmt.Errorf("delete message: %w", translate(err))
	}
	return nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
