package websocket

import (
	"context"
	"log/slog"
	"time"

	"github.com/anjiri1684/chat_app/models"
	"github.com/anjiri1684/chat_app/presence"
	"github.com/google/uuid"
)

// Store is the persistence the hub needs.
type Store interface {
	IsParticipant(ctx context.Context, convID, userID uuid.UUID) (bool, error)
	AddReceipt(ctx context.Context, convID, msgID, userID uuid.UUID, kind string, at time.Time) error
	SetStatus(ctx context.Context, userID uuid.UUID, status string, at time.Time) error
}

type membership struct {
	client *Client
	room   string
}

// A delivery targets either a conversation room (every joined client but the
// sender) or every connection of one user.
type delivery struct {
	from  *Client
	event string
	frame []byte

	room string
	to   uuid.UUID
	// unavailable is sent back to from when to has no connection.
	unavailable []byte
}

type statusChange struct {
	userID uuid.UUID
	online bool
	at     time.Time
}

// Hub owns every connected client and conversation room. All map state is
// confined to the Run goroutine; other goroutines talk to it over channels.
type Hub struct {
	store   Store
	tracker presence.Tracker
	logger  *slog.Logger
	now     func() time.Time

	register   chan *Client
	unregister chan *Client
	joins      chan membership
	leaves     chan membership
	deliveries chan delivery
	statuses   chan statusChange
	done       chan struct{}

	users map[uuid.UUID]map[*Client]struct{}
	rooms map[string]map[*Client]struct{}
}

func NewHub(store Store, tracker presence.Tracker, logger *slog.Logger) *Hub {
	return &Hub{
		store:      store,
		tracker:    tracker,
		logger:     logger,
		now:        time.Now,
		register:   make(chan *Client),
		unregister: make(chan *Client),
		joins:      make(chan membership),
		leaves:     make(chan membership),
		deliveries: make(chan delivery),
		statuses:   make(chan statusChange, 256),
		done:       make(chan struct{}),
		users:      make(map[uuid.UUID]map[*Client]struct{}),
		rooms:      make(map[string]map[*Client]struct{}),
	}
}

// Run processes hub traffic until ctx is cancelled, then closes every client.
func (h *Hub) Run(ctx context.Context) {
	go h.applyStatuses(ctx)

	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			return
		case c := <-h.register:
			h.addClient(ctx, c)
		case c := <-h.unregister:
			h.removeClient(ctx, c)
		case m := <-h.joins:
			h.join(m)
		case m := <-h.leaves:
			h.leave(m)
		case d := <-h.deliveries:
			h.deliver(ctx, d)
		}
	}
}

// Register adds c to the hub. It reports false once the hub has stopped.
func (h *Hub) Register(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

func (h *Hub) submitJoin(m membership) {
	select {
	case h.joins <- m:
	case <-h.done:
	}
}

func (h *Hub) submitLeave(m membership) {
	select {
	case h.leaves <- m:
	case <-h.done:
	}
}

func (h *Hub) submit(d delivery) {
	select {
	case h.deliveries <- d:
	case <-h.done:
	}
}

func (h *Hub) addClient(ctx context.Context, c *Client) {
	conns := h.users[c.UserID]
	first := len(conns) == 0
	if conns == nil {
		conns = make(map[*Client]struct{})
		h.users[c.UserID] = conns
	}
	conns[c] = struct{}{}
	connectedClients.Inc()
	h.logger.Info("Client registered", "user_id", c.UserID, "connections", len(conns))

	if !first {
		return
	}
	h.queueStatus(ctx, statusChange{userID: c.UserID, online: true, at: h.now()})
	if frame, err := encode(EventUserOnline, userOnline{UserID: c.UserID}); err == nil {
		h.broadcastExcept(ctx, c.UserID, frame)
	}
}

func (h *Hub) removeClient(ctx context.Context, c *Client) {
	conns, ok := h.users[c.UserID]
	if !ok {
		return
	}
	if _, ok := conns[c]; !ok {
		return
	}
	delete(conns, c)
	for room := range c.rooms {
		h.dropFromRoom(c, room)
	}
	c.close()
	connectedClients.Dec()
	h.logger.Info("Client unregistered", "user_id", c.UserID, "connections", len(conns))

	if len(conns) > 0 {
		return
	}
	delete(h.users, c.UserID)
	now := h.now()
	h.queueStatus(ctx, statusChange{userID: c.UserID, online: false, at: now})
	if frame, err := encode(EventUserOffline, userOffline{UserID: c.UserID, LastSeen: now}); err == nil {
		h.broadcastExcept(ctx, c.UserID, frame)
	}
}

func (h *Hub) join(m membership) {
	if _, ok := h.users[m.client.UserID][m.client]; !ok {
		return
	}
	members := h.rooms[m.room]
	if members == nil {
		members = make(map[*Client]struct{})
		h.rooms[m.room] = members
	}
	members[m.client] = struct{}{}
	m.client.rooms[m.room] = struct{}{}
	h.logger.Debug("Joined conversation", "user_id", m.client.UserID, "conversation_id", m.room)
}

func (h *Hub) leave(m membership) {
	h.dropFromRoom(m.client, m.room)
	h.logger.Debug("Left conversation", "user_id", m.client.UserID, "conversation_id", m.room)
}

func (h *Hub) dropFromRoom(c *Client, room string) {
	delete(c.rooms, room)
	members := h.rooms[room]
	delete(members, c)
	if len(members) == 0 {
		delete(h.rooms, room)
	}
}

func (h *Hub) deliver(ctx context.Context, d delivery) {
	if d.room != "" {
		members := h.rooms[d.room]
		if _, joined := members[d.from]; !joined {
			droppedEvents.WithLabelValues(d.event, "not_joined").Inc()
			return
		}
		for c := range members {
			if c == d.from {
				continue
			}
			h.send(ctx, c, d.frame)
		}
		relayedEvents.WithLabelValues(d.event).Inc()
		return
	}

	conns := h.users[d.to]
	if len(conns) == 0 {
		droppedEvents.WithLabelValues(d.event, "offline").Inc()
		if d.unavailable != nil {
			h.send(ctx, d.from, d.unavailable)
		}
		return
	}
	for c := range conns {
		h.send(ctx, c, d.frame)
	}
	relayedEvents.WithLabelValues(d.event).Inc()
}

func (h *Hub) broadcastExcept(ctx context.Context, userID uuid.UUID, frame []byte) {
	for id, conns := range h.users {
		if id == userID {
			continue
		}
		for c := range conns {
			h.send(ctx, c, frame)
		}
	}
}

// send queues frame for c and disconnects c when its queue is full.
func (h *Hub) send(ctx context.Context, c *Client, frame []byte) {
	if c.enqueue(frame) {
		return
	}
	if _, ok := h.users[c.UserID][c]; ok {
		h.logger.Warn("Client send queue full, disconnecting", "user_id", c.UserID)
		droppedEvents.WithLabelValues("", "slow_consumer").Inc()
		h.removeClient(ctx, c)
	}
}

func (h *Hub) queueStatus(ctx context.Context, s statusChange) {
	select {
	case h.statuses <- s:
	case <-ctx.Done():
	}
}

// applyStatuses persists online/offline transitions in the order the hub
// observed them. A user going online is tracked before the stored status
// flips, so the reconciler never sees a stored-online user without a
// heartbeat.
func (h *Hub) applyStatuses(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case s := <-h.statuses:
			if s.online {
				h.track(ctx, s)
				h.persist(ctx, s)
			} else {
				h.persist(ctx, s)
				h.track(ctx, s)
			}
		}
	}
}

func (h *Hub) persist(ctx context.Context, s statusChange) {
	status := models.StatusOffline
	if s.online {
		status = models.StatusOnline
	}
	if err := h.store.SetStatus(ctx, s.userID, status, s.at); err != nil {
		h.logger.Error("Could not update user status", "user_id", s.userID, "status", status, "error", err)
	}
}

func (h *Hub) track(ctx context.Context, s statusChange) {
	var err error
	if s.online {
		err = h.tracker.Online(ctx, s.userID, s.at)
	} else {
		err = h.tracker.Offline(ctx, s.userID)
	}
	if err != nil {
		h.logger.Error("Could not update presence", "user_id", s.userID, "online", s.online, "error", err)
	}
}

func (h *Hub) heartbeat(c *Client) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := h.tracker.Online(ctx, c.UserID, h.now()); err != nil {
		h.logger.Warn("Could not refresh presence", "user_id", c.UserID, "error", err)
	}
}

func (h *Hub) shutdown() {
	for _, conns := range h.users {
		for c := range conns {
			c.close()
			connectedClients.Dec()
		}
	}
	h.users = make(map[uuid.UUID]map[*Client]struct{})
	h.rooms = make(map[string]map[*Client]struct{})
	close(h.done)
	h.logger.Info("Hub stopped")
}
