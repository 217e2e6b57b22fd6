package notify

import (
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/parks-gardens/fieldops-api/internal/models"
)

const writeTimeout = 5 * time.Second

type deadlineWriter interface {
	SetWriteDeadline(t time.Time) error
}

// Peer is one connected client.
type Peer struct {
	ID     string
	UserID uint64
	Role   models.UserRole

	mu      sync.Mutex
	w       io.Writer
	encoder *json.Encoder
	closer  io.Closer
	closed  bool
}

// NewPeer wraps a connection. If conn implements SetWriteDeadline each
// write is bounded so one stalled client can't hold up a publish.
func NewPeer(userID uint64, role models.UserRole, conn io.Writer) *Peer {
	p := &Peer{
		ID:      uuid.NewString(),
		UserID:  userID,
		Role:    role,
		w:       conn,
		encoder: json.NewEncoder(conn),
	}
	if c, ok := conn.(io.Closer); ok {
		p.closer = c
	}
	return p
}

// Send writes a frame to the peer.
func (p *Peer) Send(frame Frame) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return io.ErrClosedPipe
	}
	if d, ok := p.w.(deadlineWriter); ok {
		_ = d.SetWriteDeadline(time.Now().Add(writeTimeout))
	}
	return p.encoder.Encode(frame)
}

// Close closes the underlying connection once.
func (p *Peer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	if p.closer != nil {
		return p.closer.Close()
	}
	return nil
}

// Hub tracks which peers are subscribed to which rooms.
type Hub struct {
	mu     sync.RWMutex
	rooms  map[string]map[*Peer]struct{}
	logger *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		rooms:  make(map[string]map[*Peer]struct{}),
		logger: logger,
	}
}

// Join subscribes a peer to a room.
func (h *Hub) Join(room string, p *Peer) {
	h.mu.Lock()
	defer h.mu.Unlock()

	members, ok := h.rooms[room]
	if !ok {
		members = make(map[*Peer]struct{})
		h.rooms[room] = members
	}
	members[p] = struct{}{}
}

// Leave unsubscribes a peer from a room.
func (h *Hub) Leave(room string, p *Peer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveLocked(room, p)
}

// LeaveAll unsubscribes a peer from every room.
func (h *Hub) LeaveAll(p *Peer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for room := range h.rooms {
		h.leaveLocked(room, p)
	}
}

func (h *Hub) leaveLocked(room string, p *Peer) {
	members, ok := h.rooms[room]
	if !ok {
		return
	}
	delete(members, p)
	if len(members) == 0 {
		delete(h.rooms, room)
	}
}

// RoomSize returns the number of peers in a room.
func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// Publish sends the event to every peer in any of the rooms. A peer in
// several rooms receives it once. Peers whose write fails are closed and
// dropped. It returns the number of peers reached.
func (h *Hub) Publish(event Event, rooms ...string) int {
	h.mu.RLock()
	targets := make(map[*Peer]struct{})
	for _, room := range rooms {
		for p := range h.rooms[room] {
			targets[p] = struct{}{}
		}
	}
	h.mu.RUnlock()

	frame := Frame{Type: FrameEvent, Event: event.Name, Data: event.Data}
	delivered := 0
	for p := range targets {
		if err := p.Send(frame); err != nil {
			h.logger.Warn("dropping websocket peer", "peer", p.ID, "user_id", p.UserID, "err", err)
			h.LeaveAll(p)
			_ = p.Close()
			continue
		}
		delivered++
	}
	return delivered
}

// Close disconnects every peer.
func (h *Hub) Close() {
	h.mu.Lock()
	peers := make(map[*Peer]struct{})
	for _, members := range h.rooms {
		for p := range members {
			peers[p] = struct{}{}
		}
	}
	h.rooms = make(map[string]map[*Peer]struct{})
	h.mu.Unlock()

	for p := range peers {
		_ = p.Close()
	}
}
