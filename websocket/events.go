package websocket

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/anjiri1684/chat_app/models"
	"github.com/google/uuid"
	"github.com/pion/webrtc/v4"
)

// Inbound events.
const (
	EventJoinConversation  = "join-conversation"
	EventLeaveConversation = "leave-conversation"
	EventSendMessage       = "send-message"
	EventTyping            = "typing"
	EventMessageRead       = "message-read"
	EventMessageDelivered  = "message-delivered"
	EventCallUser          = "call-user"
	EventCallAnswer        = "call-answer"
	EventICECandidate      = "ice-candidate"
	EventEndCall           = "end-call"
)

// Outbound events. ice-candidate keeps its name in both directions.
const (
	EventUserOnline             = "user-online"
	EventUserOffline            = "user-offline"
	EventReceiveMessage         = "receive-message"
	EventUserTyping             = "user-typing"
	EventMessageReadUpdate      = "message-read-update"
	EventMessageDeliveredUpdate = "message-delivered-update"
	EventIncomingCall           = "incoming-call"
	EventCallAnswered           = "call-answered"
	EventCallEnded              = "call-ended"
	EventCallUnavailable        = "call-unavailable"
	EventError                  = "error"
)

// Envelope is the wire shape of every socket frame.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

func encode(event string, data any) ([]byte, error) {
	return json.Marshal(struct {
		Event string `json:"event"`
		Data  any    `json:"data"`
	}{Event: event, Data: data})
}

type (
	sendMessageRequest struct {
		ConversationID string          `json:"conversationId"`
		Message        json.RawMessage `json:"message"`
	}
	typingRequest struct {
		ConversationID string `json:"conversationId"`
		IsTyping       bool   `json:"isTyping"`
	}
	receiptRequest struct {
		ConversationID string `json:"conversationId"`
		MessageID      string `json:"messageId"`
	}
	callUserRequest struct {
		To       string                    `json:"to"`
		Offer    webrtc.SessionDescription `json:"offer"`
		CallType string                    `json:"callType"`
	}
	callAnswerRequest struct {
		To     string                    `json:"to"`
		Answer webrtc.SessionDescription `json:"answer"`
	}
	iceCandidateRequest struct {
		To        string                  `json:"to"`
		Candidate webrtc.ICECandidateInit `json:"candidate"`
	}
	endCallRequest struct {
		To string `json:"to"`
	}
)

type (
	userOnline struct {
		UserID uuid.UUID `json:"userId"`
	}
	userOffline struct {
		UserID   uuid.UUID `json:"userId"`
		LastSeen time.Time `json:"lastSeen"`
	}
	userTyping struct {
		UserID   uuid.UUID `json:"userId"`
		Username string    `json:"username"`
		IsTyping bool      `json:"isTyping"`
	}
	receiptUpdate struct {
		MessageID uuid.UUID `json:"messageId"`
		UserID    uuid.UUID `json:"userId"`
	}
	incomingCall struct {
		From     uuid.UUID                 `json:"from"`
		FromUser models.PublicUser         `json:"fromUser"`
		Offer    webrtc.SessionDescription `json:"offer"`
		CallType string                    `json:"callType"`
	}
	callAnswered struct {
		From   uuid.UUID                 `json:"from"`
		Answer webrtc.SessionDescription `json:"answer"`
	}
	iceCandidate struct {
		From      uuid.UUID               `json:"from"`
		Candidate webrtc.ICECandidateInit `json:"candidate"`
	}
	callEnded struct {
		From uuid.UUID `json:"from"`
	}
	callUnavailable struct {
		To uuid.UUID `json:"to"`
	}
	errorReply struct {
		Event   string `json:"event,omitempty"`
		Message string `json:"message"`
	}
)

// A frameError is reported back to the sending client.
type frameError string

func (e frameError) Error() string { return string(e) }

const (
	errInvalidFrame          = frameError("Invalid frame")
	errUnknownEvent          = frameError("Unknown event")
	errInvalidConversationID = frameError("Invalid conversation ID")
	errInvalidMessageID      = frameError("Invalid message ID")
	errInvalidRecipient      = frameError("Invalid recipient")
	errConversationNotFound  = frameError("Conversation not found")
	errMessageNotFound       = frameError("Message not found")
	errEmptyMessage          = frameError("Message is required")
	errCallSelf              = frameError("Cannot call yourself")
	errInvalidCallType       = frameError("Call type must be audio or video")
	errInternal              = frameError("Something went wrong")
)

// conversationID accepts either a bare JSON string or {"conversationId": ...}.
func conversationID(data json.RawMessage) (uuid.UUID, error) {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		var obj struct {
			ConversationID string `json:"conversationId"`
		}
		if err := json.Unmarshal(data, &obj); err != nil {
			return uuid.Nil, errInvalidConversationID
		}
		raw = obj.ConversationID
	}
	return parseID(raw, errInvalidConversationID)
}

func parseID(raw string, invalid frameError) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, invalid
	}
	return id, nil
}

// checkDescription verifies sd is a parseable SDP of the wanted type.
func checkDescription(sd webrtc.SessionDescription, want webrtc.SDPType) error {
	if sd.Type != want {
		return frameError(fmt.Sprintf("Expected an SDP %s", want))
	}
	if _, err := sd.Unmarshal(); err != nil {
		return frameError(fmt.Sprintf("Invalid SDP %s", want))
	}
	return nil
}

func asFrameError(err error) (frameError, bool) {
	var fe frameError
	ok := errors.As(err, &fe)
	return fe, ok
}
