package websocket

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/anjiri1684/chat_app/database"
	"github.com/anjiri1684/chat_app/models"
	"github.com/google/uuid"
	"github.com/pion/webrtc/v4"
)

// handleFrame decodes one inbound frame and hands the resulting relay to the
// hub. Lookups that hit the store run here, on the reading goroutine, so the
// hub loop never waits on the database.
func (h *Hub) handleFrame(ctx context.Context, c *Client, raw []byte) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil || env.Event == "" {
		h.reject(c, "", errInvalidFrame)
		return
	}

	var err error
	switch env.Event {
	case EventJoinConversation:
		err = h.onJoin(ctx, c, env.Data)
	case EventLeaveConversation:
		err = h.onLeave(c, env.Data)
	case EventSendMessage:
		err = h.onSendMessage(c, env.Data)
	case EventTyping:
		err = h.onTyping(c, env.Data)
	case EventMessageRead:
		err = h.onMessageRead(c, env.Data)
	case EventMessageDelivered:
		err = h.onMessageDelivered(ctx, c, env.Data)
	case EventCallUser:
		err = h.onCallUser(c, env.Data)
	case EventCallAnswer:
		err = h.onCallAnswer(c, env.Data)
	case EventICECandidate:
		err = h.onICECandidate(c, env.Data)
	case EventEndCall:
		err = h.onEndCall(c, env.Data)
	default:
		err = errUnknownEvent
	}
	if err != nil {
		h.reject(c, env.Event, err)
	}
}

func (h *Hub) reject(c *Client, event string, err error) {
	fe, ok := asFrameError(err)
	if !ok {
		h.logger.Error("Could not handle socket event", "user_id", c.UserID, "event", event, "error", err)
		fe = errInternal
	}
	frame, encErr := encode(EventError, errorReply{Event: event, Message: string(fe)})
	if encErr != nil {
		return
	}
	c.enqueue(frame)
}

func (h *Hub) onJoin(ctx context.Context, c *Client, data json.RawMessage) error {
	convID, err := conversationID(data)
	if err != nil {
		return err
	}
	ok, err := h.store.IsParticipant(ctx, convID, c.UserID)
	if err != nil {
		return err
	}
	if !ok {
		return errConversationNotFound
	}
	h.submitJoin(membership{client: c, room: convID.String()})
	return nil
}

func (h *Hub) onLeave(c *Client, data json.RawMessage) error {
	convID, err := conversationID(data)
	if err != nil {
		return err
	}
	h.submitLeave(membership{client: c, room: convID.String()})
	return nil
}

func (h *Hub) onSendMessage(c *Client, data json.RawMessage) error {
	var req sendMessageRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return errInvalidFrame
	}
	convID, err := parseID(req.ConversationID, errInvalidConversationID)
	if err != nil {
		return err
	}
	if len(req.Message) == 0 || string(req.Message) == "null" {
		return errEmptyMessage
	}
	return h.toRoom(c, EventSendMessage, convID, EventReceiveMessage, req.Message)
}

func (h *Hub) onTyping(c *Client, data json.RawMessage) error {
	var req typingRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return errInvalidFrame
	}
	convID, err := parseID(req.ConversationID, errInvalidConversationID)
	if err != nil {
		return err
	}
	return h.toRoom(c, EventTyping, convID, EventUserTyping, userTyping{
		UserID:   c.UserID,
		Username: c.User.Username,
		IsTyping: req.IsTyping,
	})
}

func (h *Hub) onMessageRead(c *Client, data json.RawMessage) error {
	convID, msgID, err := parseReceipt(data)
	if err != nil {
		return err
	}
	return h.toRoom(c, EventMessageRead, convID, EventMessageReadUpdate, receiptUpdate{MessageID: msgID, UserID: c.UserID})
}

func (h *Hub) onMessageDelivered(ctx context.Context, c *Client, data json.RawMessage) error {
	convID, msgID, err := parseReceipt(data)
	if err != nil {
		return err
	}
	ok, err := h.store.IsParticipant(ctx, convID, c.UserID)
	if err != nil {
		return err
	}
	if !ok {
		return errConversationNotFound
	}
	err = h.store.AddReceipt(ctx, convID, msgID, c.UserID, models.ReceiptDelivered, h.now())
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return errMessageNotFound
		}
		return err
	}
	return h.toRoom(c, EventMessageDelivered, convID, EventMessageDeliveredUpdate, receiptUpdate{MessageID: msgID, UserID: c.UserID})
}

func (h *Hub) onCallUser(c *Client, data json.RawMessage) error {
	var req callUserRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return errInvalidFrame
	}
	to, err := h.recipient(c, req.To)
	if err != nil {
		return err
	}
	if req.CallType != "audio" && req.CallType != "video" {
		return errInvalidCallType
	}
	if err := checkDescription(req.Offer, webrtc.SDPTypeOffer); err != nil {
		return err
	}
	frame, err := encode(EventIncomingCall, incomingCall{
		From:     c.UserID,
		FromUser: c.User,
		Offer:    req.Offer,
		CallType: req.CallType,
	})
	if err != nil {
		return err
	}
	unavailable, err := encode(EventCallUnavailable, callUnavailable{To: to})
	if err != nil {
		return err
	}
	h.submit(delivery{from: c, event: EventCallUser, frame: frame, to: to, unavailable: unavailable})
	return nil
}

func (h *Hub) onCallAnswer(c *Client, data json.RawMessage) error {
	var req callAnswerRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return errInvalidFrame
	}
	to, err := h.recipient(c, req.To)
	if err != nil {
		return err
	}
	if err := checkDescription(req.Answer, webrtc.SDPTypeAnswer); err != nil {
		return err
	}
	return h.toUser(c, EventCallAnswer, to, EventCallAnswered, callAnswered{From: c.UserID, Answer: req.Answer})
}

func (h *Hub) onICECandidate(c *Client, data json.RawMessage) error {
	var req iceCandidateRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return errInvalidFrame
	}
	to, err := h.recipient(c, req.To)
	if err != nil {
		return err
	}
	return h.toUser(c, EventICECandidate, to, EventICECandidate, iceCandidate{From: c.UserID, Candidate: req.Candidate})
}

func (h *Hub) onEndCall(c *Client, data json.RawMessage) error {
	var req endCallRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return errInvalidFrame
	}
	to, err := h.recipient(c, req.To)
	if err != nil {
		return err
	}
	return h.toUser(c, EventEndCall, to, EventCallEnded, callEnded{From: c.UserID})
}

func (h *Hub) recipient(c *Client, raw string) (uuid.UUID, error) {
	to, err := parseID(raw, errInvalidRecipient)
	if err != nil {
		return uuid.Nil, err
	}
	if to == c.UserID {
		return uuid.Nil, errCallSelf
	}
	return to, nil
}

func (h *Hub) toRoom(c *Client, inbound string, convID uuid.UUID, outbound string, data any) error {
	frame, err := encode(outbound, data)
	if err != nil {
		return err
	}
	h.submit(delivery{from: c, event: inbound, frame: frame, room: convID.String()})
	return nil
}

func (h *Hub) toUser(c *Client, inbound string, to uuid.UUID, outbound string, data any) error {
	frame, err := encode(outbound, data)
	if err != nil {
		return err
	}
	h.submit(delivery{from: c, event: inbound, frame: frame, to: to})
	return nil
}

func parseReceipt(data json.RawMessage) (uuid.UUID, uuid.UUID, error) {
	var req receiptRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return uuid.Nil, uuid.Nil, errInvalidFrame
	}
	convID, err := parseID(req.ConversationID, errInvalidConversationID)
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	msgID, err := parseID(req.MessageID, errInvalidMessageID)
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	return convID, msgID, nil
}
