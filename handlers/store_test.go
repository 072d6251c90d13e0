package handlers_test

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/anjiri1684/chat_app/database"
	"github.com/anjiri1684/chat_app/models"
	"github.com/google/uuid"
)

// memStore is an in-memory stand-in for database.Store.
type memStore struct {
	mu           sync.Mutex
	users        map[uuid.UUID]models.User
	contacts     map[uuid.UUID]map[uuid.UUID]struct{}
	convs        map[uuid.UUID]models.Conversation
	participants map[uuid.UUID][]uuid.UUID
	messages     map[uuid.UUID]models.Message
	receipts     []models.MessageReceipt
}

func newMemStore() *memStore {
	return &memStore{
		users:        make(map[uuid.UUID]models.User),
		contacts:     make(map[uuid.UUID]map[uuid.UUID]struct{}),
		convs:        make(map[uuid.UUID]models.Conversation),
		participants: make(map[uuid.UUID][]uuid.UUID),
		messages:     make(map[uuid.UUID]models.Message),
	}
}

func (s *memStore) CreateUser(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, other := range s.users {
		if other.Username == u.Username || strings.EqualFold(other.Email, u.Email) {
			return database.ErrDuplicate
		}
	}
	u.ID = uuid.New()
	u.CreatedAt = time.Now()
	u.UpdatedAt = u.CreatedAt
	s.users[u.ID] = *u
	return nil
}

func (s *memStore) UpdateUser(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, other := range s.users {
		if id != u.ID && other.Username == u.Username {
			return database.ErrDuplicate
		}
	}
	stored, ok := s.users[u.ID]
	if !ok {
		return database.ErrNotFound
	}
	stored.Username, stored.FullName, stored.Bio, stored.Avatar = u.Username, u.FullName, u.Bio, u.Avatar
	s.users[u.ID] = stored
	return nil
}

func (s *memStore) UserByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	return &u, nil
}

func (s *memStore) UserByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, database.ErrNotFound
}

func (s *memStore) UsersByIDs(_ context.Context, ids []uuid.UUID) ([]models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var users []models.User
	for _, id := range ids {
		if u, ok := s.users[id]; ok {
			users = append(users, u)
		}
	}
	return users, nil
}

func (s *memStore) SearchUsers(_ context.Context, exclude uuid.UUID, query string, limit int) ([]models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q := strings.ToLower(query)
	var users []models.User
	for _, u := range s.users {
		if u.ID == exclude {
			continue
		}
		if strings.Contains(strings.ToLower(u.Username), q) ||
			strings.Contains(strings.ToLower(u.FullName), q) ||
			strings.Contains(strings.ToLower(u.Email), q) {
			users = append(users, u)
		}
	}
	slices.SortFunc(users, func(a, b models.User) int { return cmp.Compare(a.Username, b.Username) })
	if len(users) > limit {
		users = users[:limit]
	}
	return users, nil
}

func (s *memStore) SetStatus(_ context.Context, userID uuid.UUID, status string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return database.ErrNotFound
	}
	u.Status = status
	u.LastSeen = at
	s.users[userID] = u
	return nil
}

func (s *memStore) Contacts(_ context.Context, userID uuid.UUID) ([]models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var users []models.User
	for id := range s.contacts[userID] {
		users = append(users, s.users[id])
	}
	slices.SortFunc(users, func(a, b models.User) int { return cmp.Compare(a.Username, b.Username) })
	return users, nil
}

func (s *memStore) HasContact(_ context.Context, userID, contactID uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.contacts[userID][contactID]
	return ok, nil
}

func (s *memStore) AddContact(_ context.Context, userID, contactID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.contacts[userID] == nil {
		s.contacts[userID] = make(map[uuid.UUID]struct{})
	}
	s.contacts[userID][contactID] = struct{}{}
	return nil
}

func (s *memStore) RemoveContact(_ context.Context, userID, contactID uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.contacts[userID][contactID]; !ok {
		return false, nil
	}
	delete(s.contacts[userID], contactID)
	return true, nil
}

// conversation assembles a conversation with its associations. s.mu must be
// held.
func (s *memStore) conversation(id uuid.UUID) models.Conversation {
	conv := s.convs[id]
	conv.Participants = nil
	for _, pid := range s.participants[id] {
		u := s.users[pid]
		conv.Participants = append(conv.Participants, &u)
	}
	conv.LastMessage = nil
	if conv.LastMessageID != nil {
		if msg, ok := s.messages[*conv.LastMessageID]; ok {
			last := s.message(msg)
			conv.LastMessage = &last
		}
	}
	conv.Present()
	return conv
}

func (s *memStore) isParticipant(convID, userID uuid.UUID) bool {
	return slices.Contains(s.participants[convID], userID)
}

func (s *memStore) Conversations(_ context.Context, userID uuid.UUID) ([]models.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var convs []models.Conversation
	for id := range s.convs {
		if s.isParticipant(id, userID) {
			convs = append(convs, s.conversation(id))
		}
	}
	slices.SortFunc(convs, func(a, b models.Conversation) int {
		return b.LastMessageTime.Compare(a.LastMessageTime)
	})
	return convs, nil
}

func (s *memStore) ConversationForParticipant(_ context.Context, convID, userID uuid.UUID) (*models.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.convs[convID]; !ok || !s.isParticipant(convID, userID) {
		return nil, database.ErrNotFound
	}
	conv := s.conversation(convID)
	return &conv, nil
}

func (s *memStore) IsParticipant(_ context.Context, convID, userID uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isParticipant(convID, userID), nil
}

func (s *memStore) DirectConversation(_ context.Context, a, b uuid.UUID) (*models.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, conv := range s.convs {
		if !conv.IsGroup && s.isParticipant(id, a) && s.isParticipant(id, b) {
			c := s.conversation(id)
			return &c, nil
		}
	}
	return nil, database.ErrNotFound
}

func (s *memStore) CreateConversation(_ context.Context, conv *models.Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	conv.ID = uuid.New()
	conv.CreatedAt = time.Now()
	var ids []uuid.UUID
	for _, p := range conv.Participants {
		ids = append(ids, p.ID)
	}
	stored := *conv
	stored.Participants = nil
	s.convs[conv.ID] = stored
	s.participants[conv.ID] = ids
	return nil
}

func (s *memStore) DeleteConversation(_ context.Context, convID uuid.UUID) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.convs[convID]; !ok {
		return nil, database.ErrNotFound
	}
	var publicIDs []string
	for id, msg := range s.messages {
		if msg.ConversationID != convID {
			continue
		}
		if msg.FilePublicID != "" {
			publicIDs = append(publicIDs, msg.FilePublicID)
		}
		s.dropReceipts(id)
		delete(s.messages, id)
	}
	delete(s.convs, convID)
	delete(s.participants, convID)
	slices.Sort(publicIDs)
	return publicIDs, nil
}

func (s *memStore) CreateMessage(_ context.Context, msg *models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg.ID = uuid.New()
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	msg.UpdatedAt = msg.CreatedAt
	s.messages[msg.ID] = *msg

	conv := s.convs[msg.ConversationID]
	id := msg.ID
	conv.LastMessageID = &id
	conv.LastMessageTime = msg.CreatedAt
	s.convs[msg.ConversationID] = conv
	return nil
}

// message attaches the associations MessageByID preloads. s.mu must be held.
func (s *memStore) message(msg models.Message) models.Message {
	author := s.users[msg.SenderID]
	msg.Author = &author
	msg.Receipts = nil
	for _, r := range s.receipts {
		if r.MessageID == msg.ID {
			msg.Receipts = append(msg.Receipts, r)
		}
	}
	msg.ReplyTo = nil
	if msg.ReplyToID != nil {
		if target, ok := s.messages[*msg.ReplyToID]; ok {
			ta := s.users[target.SenderID]
			target.Author = &ta
			msg.ReplyTo = &target
		}
	}
	msg.Present()
	return msg
}

func (s *memStore) MessageByID(_ context.Context, id uuid.UUID) (*models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg, ok := s.messages[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	full := s.message(msg)
	return &full, nil
}

func (s *memStore) Messages(_ context.Context, convID uuid.UUID, limit, offset int) ([]models.Message, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var all []models.Message
	for _, msg := range s.messages {
		if msg.ConversationID == convID {
			all = append(all, msg)
		}
	}
	slices.SortFunc(all, func(a, b models.Message) int { return b.CreatedAt.Compare(a.CreatedAt) })
	total := int64(len(all))

	start := min(offset, len(all))
	end := min(start+limit, len(all))
	page := make([]models.Message, 0, end-start)
	for _, msg := range all[start:end] {
		page = append(page, s.message(msg))
	}
	slices.Reverse(page)
	return page, total, nil
}

func (s *memStore) AddReceipt(_ context.Context, convID, msgID, userID uuid.UUID, kind string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg, ok := s.messages[msgID]
	if !ok || msg.ConversationID != convID {
		return database.ErrNotFound
	}
	for _, r := range s.receipts {
		if r.MessageID == msgID && r.UserID == userID && r.Kind == kind {
			return nil
		}
	}
	s.receipts = append(s.receipts, models.MessageReceipt{MessageID: msgID, UserID: userID, Kind: kind, At: at})
	return nil
}

func (s *memStore) dropReceipts(msgID uuid.UUID) {
	s.receipts = slices.DeleteFunc(s.receipts, func(r models.MessageReceipt) bool { return r.MessageID == msgID })
}

func (s *memStore) DeleteMessage(_ context.Context, msg *models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dropReceipts(msg.ID)
	for id, m := range s.messages {
		if m.ReplyToID != nil && *m.ReplyToID == msg.ID {
			m.ReplyToID = nil
			s.messages[id] = m
		}
	}
	delete(s.messages, msg.ID)

	conv, ok := s.convs[msg.ConversationID]
	if !ok || conv.LastMessageID == nil || *conv.LastMessageID != msg.ID {
		return nil
	}
	conv.LastMessageID = nil
	var latest *models.Message
	for _, m := range s.messages {
		if m.ConversationID == msg.ConversationID && (latest == nil || m.CreatedAt.After(latest.CreatedAt)) {
			latest = &m
		}
	}
	if latest != nil {
		id := latest.ID
		conv.LastMessageID = &id
		conv.LastMessageTime = latest.CreatedAt
	}
	s.convs[msg.ConversationID] = conv
	return nil
}

// lastMessageID reports the conversation's last message pointer.
func (s *memStore) lastMessageID(convID uuid.UUID) *uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.convs[convID].LastMessageID
}
