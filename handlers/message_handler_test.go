package handlers_test

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/anjiri1684/chat_app/utils"
	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
)

type messageBody struct {
	ID           uuid.UUID `json:"id"`
	Conversation uuid.UUID `json:"conversation"`
	Content      string    `json:"content"`
	MessageType  string    `json:"messageType"`
	FileURL      string    `json:"fileUrl"`
	Sender       *struct {
		ID       uuid.UUID `json:"id"`
		Username string    `json:"username"`
	} `json:"sender"`
	ReplyTo *struct {
		ID      uuid.UUID `json:"id"`
		Content string    `json:"content"`
	} `json:"replyTo"`
	ReadBy []struct {
		User   uuid.UUID `json:"user"`
		ReadAt time.Time `json:"readAt"`
	} `json:"readBy"`
	DeliveredTo []struct {
		User        uuid.UUID `json:"user"`
		DeliveredAt time.Time `json:"deliveredAt"`
	} `json:"deliveredTo"`
}

type pageBody struct {
	Messages    []messageBody `json:"messages"`
	TotalPages  int           `json:"totalPages"`
	CurrentPage int           `json:"currentPage"`
	Total       int64         `json:"total"`
}

// direct opens a one-on-one conversation between the token's user and other.
func (e *testEnv) direct(t *testing.T, token string, other uuid.UUID) uuid.UUID {
	t.Helper()
	var conv conversationBody
	e.expect(t, http.MethodPost, "/api/conversations", token, map[string]string{"participantId": other.String()}, http.StatusCreated, &conv)
	return conv.ID
}

func (e *testEnv) send(t *testing.T, token string, body map[string]any) messageBody {
	t.Helper()
	var msg messageBody
	e.expect(t, http.MethodPost, "/api/messages", token, body, http.StatusCreated, &msg)
	return msg
}

func TestSendMessage(t *testing.T) {
	env := newTestEnv(t)
	alice, aliceToken := env.user(t, "alice")
	bob, _ := env.user(t, "bob")
	carol, carolToken := env.user(t, "carol")
	convID := env.direct(t, aliceToken, bob.ID)

	first := env.send(t, aliceToken, map[string]any{"conversationId": convID, "content": "  hello  "})
	if first.Content != "hello" || first.MessageType != "text" || first.Conversation != convID {
		t.Errorf("message = %+v", first)
	}
	if first.Sender == nil || first.Sender.ID != alice.ID || first.Sender.Username != "alice" {
		t.Errorf("sender = %+v, want alice", first.Sender)
	}
	if first.ReadBy == nil || first.DeliveredTo == nil {
		t.Error("receipt lists should serialize as empty arrays")
	}

	file := env.send(t, aliceToken, map[string]any{
		"conversationId": convID,
		"fileUrl":        "https://res.cloudinary.com/demo/raw/upload/doc.pdf",
		"fileName":       "doc.pdf",
		"fileSize":       2048,
		"replyTo":        first.ID,
	})
	if file.MessageType != "file" {
		t.Errorf("messageType = %q, want file", file.MessageType)
	}
	if file.ReplyTo == nil || file.ReplyTo.ID != first.ID || file.ReplyTo.Content != "hello" {
		t.Errorf("replyTo = %+v, want first message", file.ReplyTo)
	}

	otherConv := env.direct(t, aliceToken, carol.ID)

	tests := []struct {
		name    string
		token   string
		body    map[string]any
		status  int
		message string
	}{
		{"NotParticipant", carolToken, map[string]any{"conversationId": convID, "content": "hi"}, http.StatusNotFound, "Conversation not found"},
		{"Empty", aliceToken, map[string]any{"conversationId": convID, "content": "   "}, http.StatusBadRequest, "Message content or file is required"},
		{"MissingConversation", aliceToken, map[string]any{"content": "hi"}, http.StatusBadRequest, "conversationId is required"},
		{"BadType", aliceToken, map[string]any{"conversationId": convID, "content": "hi", "messageType": "sticker"}, http.StatusBadRequest, "messageType must be one of: text image file audio video"},
		{"ReplyElsewhere", aliceToken, map[string]any{"conversationId": otherConv, "content": "hi", "replyTo": first.ID}, http.StatusBadRequest, "Reply target must be a message in this conversation"},
		{"ReplyUnknown", aliceToken, map[string]any{"conversationId": convID, "content": "hi", "replyTo": uuid.New()}, http.StatusBadRequest, "Reply target must be a message in this conversation"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env.expectMessage(t, http.MethodPost, "/api/messages", tt.token, tt.body, tt.status, tt.message)
		})
	}
}

func TestGetMessages_Pagination(t *testing.T) {
	env := newTestEnv(t)
	_, aliceToken := env.user(t, "alice")
	bob, bobToken := env.user(t, "bob")
	_, carolToken := env.user(t, "carol")
	convID := env.direct(t, aliceToken, bob.ID)

	for i := 1; i <= 5; i++ {
		env.send(t, aliceToken, map[string]any{"conversationId": convID, "content": fmt.Sprintf("m%d", i)})
	}

	contents := func(p pageBody) []string {
		var out []string
		for _, m := range p.Messages {
			out = append(out, m.Content)
		}
		return out
	}

	tests := []struct {
		query     string
		want      []string
		wantPages int
		wantPage  int
	}{
		{"?page=1&limit=2", []string{"m4", "m5"}, 3, 1},
		{"?page=2&limit=2", []string{"m2", "m3"}, 3, 2},
		{"?page=3&limit=2", []string{"m1"}, 3, 3},
		{"", []string{"m1", "m2", "m3", "m4", "m5"}, 1, 1},
		{"?limit=1000", []string{"m1", "m2", "m3", "m4", "m5"}, 1, 1},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			var page pageBody
			env.expect(t, http.MethodGet, "/api/messages/"+convID.String()+tt.query, bobToken, nil, http.StatusOK, &page)
			if diff := cmp.Diff(tt.want, contents(page)); diff != "" {
				t.Errorf("messages mismatch (-want +got):\n%s", diff)
			}
			if page.Total != 5 || page.TotalPages != tt.wantPages || page.CurrentPage != tt.wantPage {
				t.Errorf("page = total %d, pages %d, current %d", page.Total, page.TotalPages, page.CurrentPage)
			}
		})
	}

	var empty pageBody
	env.expect(t, http.MethodGet, "/api/messages/"+convID.String()+"?page=9", bobToken, nil, http.StatusOK, &empty)
	if empty.Messages == nil || len(empty.Messages) != 0 {
		t.Errorf("page past the end = %+v, want empty messages", empty.Messages)
	}

	var huge pageBody
	env.expect(t, http.MethodGet, "/api/messages/"+convID.String()+"?page=9223372036854775807&limit=100", bobToken, nil, http.StatusOK, &huge)
	if len(huge.Messages) != 0 || huge.CurrentPage != utils.MaxPage {
		t.Errorf("huge page = %d messages on page %d, want none on page %d", len(huge.Messages), huge.CurrentPage, utils.MaxPage)
	}

	env.expectMessage(t, http.MethodGet, "/api/messages/"+convID.String(), carolToken, nil, http.StatusNotFound, "Conversation not found")
}

func TestReceipts(t *testing.T) {
	env := newTestEnv(t)
	_, aliceToken := env.user(t, "alice")
	bob, bobToken := env.user(t, "bob")
	_, carolToken := env.user(t, "carol")
	convID := env.direct(t, aliceToken, bob.ID)
	msg := env.send(t, aliceToken, map[string]any{"conversationId": convID, "content": "hi"})

	var read messageBody
	env.expect(t, http.MethodPut, "/api/messages/"+msg.ID.String()+"/read", bobToken, nil, http.StatusOK, &read)
	env.expect(t, http.MethodPut, "/api/messages/"+msg.ID.String()+"/read", bobToken, nil, http.StatusOK, &read)
	if len(read.ReadBy) != 1 || read.ReadBy[0].User != bob.ID || read.ReadBy[0].ReadAt.IsZero() {
		t.Errorf("readBy = %+v, want one receipt from bob", read.ReadBy)
	}

	var delivered messageBody
	env.expect(t, http.MethodPut, "/api/messages/"+msg.ID.String()+"/delivered", bobToken, nil, http.StatusOK, &delivered)
	if len(delivered.DeliveredTo) != 1 || delivered.DeliveredTo[0].User != bob.ID {
		t.Errorf("deliveredTo = %+v, want one receipt from bob", delivered.DeliveredTo)
	}
	if len(delivered.ReadBy) != 1 {
		t.Errorf("readBy = %+v after delivery, want it kept", delivered.ReadBy)
	}

	env.expectMessage(t, http.MethodPut, "/api/messages/"+msg.ID.String()+"/read", carolToken, nil, http.StatusNotFound, "Conversation not found")
	env.expectMessage(t, http.MethodPut, "/api/messages/"+uuid.NewString()+"/read", bobToken, nil, http.StatusNotFound, "Message not found")
}

func TestDeleteMessage(t *testing.T) {
	env := newTestEnv(t)
	_, aliceToken := env.user(t, "alice")
	bob, bobToken := env.user(t, "bob")
	convID := env.direct(t, aliceToken, bob.ID)

	first := env.send(t, aliceToken, map[string]any{"conversationId": convID, "content": "first"})
	last := env.send(t, aliceToken, map[string]any{
		"conversationId": convID,
		"fileUrl":        "https://res.cloudinary.com/demo/image/upload/cat.png",
		"filePublicId":   "chat_app/attachment/cat",
		"messageType":    "image",
	})

	path := "/api/messages/" + last.ID.String()
	env.expectMessage(t, http.MethodDelete, path, bobToken, nil, http.StatusNotFound, "Message not found or unauthorized")
	env.expectMessage(t, http.MethodDelete, path, aliceToken, nil, http.StatusOK, "Message deleted")
	env.expectMessage(t, http.MethodDelete, path, aliceToken, nil, http.StatusNotFound, "Message not found or unauthorized")

	if got := env.store.lastMessageID(convID); got == nil || *got != first.ID {
		t.Errorf("last message = %v, want %s", got, first.ID)
	}
	if diff := cmp.Diff([]string{"chat_app/attachment/cat"}, env.media.destroyed); diff != "" {
		t.Errorf("destroyed media mismatch (-want +got):\n%s", diff)
	}

	env.expectMessage(t, http.MethodDelete, "/api/messages/"+first.ID.String(), aliceToken, nil, http.StatusOK, "Message deleted")
	if got := env.store.lastMessageID(convID); got != nil {
		t.Errorf("last message = %s, want none", got)
	}
}
