package relay

import (
	"encoding/json"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/sraza0098/wisp-backend/internal/metrics"
)

// Observer is notified of presence and typing changes.
// Calls happen while the relay holds its lock, so implementations must not block.
type Observer interface {
	Announced(e Entry)
	Departed(e Entry)
	Typing(roomID, userID string, active bool)
}

type Option func(*Relay)

// WithObserver registers o for presence and typing notifications.
func WithObserver(o Observer) Option {
	return func(r *Relay) { r.observers = append(r.observers, o) }
}

// Relay owns the connection registry and room router and fans events out
// to live connections. Every mutation runs under one mutex; delivery uses
// the non-blocking Conn.Send, so no method waits on I/O.
type Relay struct {
	mu        sync.Mutex
	peers     map[string]*peer
	registry  *Registry
	router    *Router
	observers []Observer
	log       *zap.Logger
}

func New(log *zap.Logger, opts ...Option) *Relay {
	r := &Relay{
		peers:    make(map[string]*peer),
		registry: NewRegistry(),
		router:   NewRouter(),
		log:      log,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Connect makes c reachable for fan-out. subject is the user the channel
// authenticated as, or "" for an anonymous channel.
func (r *Relay) Connect(c Conn, subject string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.peers[c.ID()] = &peer{conn: c, subject: subject}
	r.log.Debug("connection registered", zap.String("conn", c.ID()), zap.String("subject", subject))
}

// Announce records userID as present on connID and broadcasts the presence list.
func (r *Relay) Announce(connID, userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.peers[connID]
	if !ok || userID == "" {
		return
	}
	if p.subject != "" && p.subject != userID {
		r.log.Warn("announce for foreign user ignored",
			zap.String("conn", connID), zap.String("subject", p.subject), zap.String("user", userID))
		return
	}
	if r.registry.Announce(userID, connID) {
		e := Entry{UserID: userID, ConnectionID: connID}
		for _, o := range r.observers {
			o.Announced(e)
		}
	}
	r.broadcastPresenceLocked()
}

func (r *Relay) JoinRoom(connID, roomID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.peers[connID]; !ok || roomID == "" {
		return
	}
	r.router.Join(connID, roomID)
}

func (r *Relay) LeaveRoom(connID, roomID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.router.Leave(connID, roomID)
}

// SendMessage forwards payload verbatim to every subscriber of roomID, sender included.
func (r *Relay) SendMessage(connID, roomID string, payload json.RawMessage) {
	frame, err := encodeRaw(EventMessage, payload)
	if err != nil {
		r.log.Debug("unencodable message payload", zap.String("conn", connID), zap.Error(err))
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.peers[connID]; !ok {
		return
	}
	r.deliverLocked(EventMessage, frame, r.router.SubscribersOf(roomID), "")
}

// Typing forwards is-typing or not-typing to the room, excluding the sender.
func (r *Relay) Typing(connID, roomID string, active bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.peers[connID]; !ok {
		return
	}

	userID, _ := r.registry.UserOf(connID)
	event := EventNotTyping
	if active {
		event = EventIsTyping
	}
	frame, err := Encode(event, TypingPayload{RoomID: roomID, UserID: userID, ConnectionID: connID})
	if err != nil {
		r.log.Error("encode typing", zap.Error(err))
		return
	}
	r.deliverLocked(event, frame, r.router.SubscribersOf(roomID), connID)

	if userID != "" {
		for _, o := range r.observers {
			o.Typing(roomID, userID, active)
		}
	}
}

// RoomMembershipChanged forwards the updated member list to the room.
func (r *Relay) RoomMembershipChanged(connID, roomID string, members json.RawMessage) {
	frame, err := Encode(EventRoomUpdated, MembershipPayload{RoomID: roomID, Members: members})
	if err != nil {
		r.log.Error("encode room update", zap.Error(err))
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.peers[connID]; !ok {
		return
	}
	r.deliverLocked(EventRoomUpdated, frame, r.router.SubscribersOf(roomID), "")
}

// Disconnect forgets connID everywhere and broadcasts the presence list.
// Once it returns the relay never calls Send on that connection again.
func (r *Relay) Disconnect(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.peers[connID]; !ok {
		return
	}
	delete(r.peers, connID)
	r.router.Drop(connID)
	if e, ok := r.registry.Remove(connID); ok {
		for _, o := range r.observers {
			o.Departed(e)
		}
	}
	r.broadcastPresenceLocked()
	r.log.Debug("connection removed", zap.String("conn", connID))
}

// Presence returns the current presence entries in announce order.
func (r *Relay) Presence() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.registry.List()
}

func (r *Relay) SubscribersOf(roomID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.router.SubscribersOf(roomID)
}

func (r *Relay) RoomsOf(connID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.router.RoomsOf(connID)
}

// OnlineIn returns the distinct announced users with a connection subscribed to roomID.
func (r *Relay) OnlineIn(roomID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	seen := make(map[string]struct{})
	out := []string{}
	for _, connID := range r.router.SubscribersOf(roomID) {
		userID, ok := r.registry.UserOf(connID)
		if !ok {
			continue
		}
		if _, dup := seen[userID]; dup {
			continue
		}
		seen[userID] = struct{}{}
		out = append(out, userID)
	}
	return out
}

// Connections returns the number of live connections.
func (r *Relay) Connections() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.peers)
}

// Close closes every live connection. Their read loops then call Disconnect.
func (r *Relay) Close() {
	r.mu.Lock()
	conns := make([]Conn, 0, len(r.peers))
	for _, p := range r.peers {
		conns = append(conns, p.conn)
	}
	r.mu.Unlock()

	for _, c := range conns {
		if err := c.Close(); err != nil {
			r.log.Debug("close connection", zap.String("conn", c.ID()), zap.Error(err))
		}
	}
}

func (r *Relay) broadcastPresenceLocked() {
	entries := r.registry.List()
	metrics.PresenceEntries.Set(float64(len(entries)))

	frame, err := Encode(EventPresenceList, entries)
	if err != nil {
		r.log.Error("encode presence list", zap.Error(err))
		return
	}
	targets := make([]string, 0, len(r.peers))
	for id := range r.peers {
		targets = append(targets, id)
	}
	r.deliverLocked(EventPresenceList, frame, targets, "")
}

func (r *Relay) deliverLocked(event string, frame []byte, targets []string, except string) {
	for _, id := range targets {
		if id == except {
			continue
		}
		p, ok := r.peers[id]
		if !ok {
			continue
		}
		if err := p.conn.Send(frame); err != nil {
			metrics.DeliveriesDropped.Inc()
			if errors.Is(err, ErrSendBufferFull) {
				r.log.Debug("frame dropped", zap.String("conn", id), zap.String("event", event))
			} else {
				r.log.Debug("send failed", zap.String("conn", id), zap.String("event", event), zap.Error(err))
			}
			continue
		}
		metrics.Deliveries.WithLabelValues(event).Inc()
	}
}
