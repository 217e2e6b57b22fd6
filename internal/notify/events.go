// Package notify delivers change notifications to connected clients.
//
// Services record events in the outbox table inside the transaction that
// made the change. A Dispatcher drains the outbox into a Hub, which fans
// each event out to the websocket peers subscribed to the event's rooms.
package notify

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/parks-gardens/fieldops-api/internal/constants"
	"github.com/parks-gardens/fieldops-api/internal/models"
)

// Event names
const (
	EventTaskCreated     = "task-created"
	EventTaskUpdated     = "task-updated"
	EventTaskDeleted     = "task-deleted"
	EventStaffUpdated    = "staff-updated"
	EventStaffDeleted    = "staff-deleted"
	EventTasksReassigned = "tasks-reassigned"
)

// Frame types
const (
	FrameEvent     = "event"
	FrameJoined    = "joined"
	FrameLeft      = "left"
	FrameError     = "error"
	FrameJoinRoom  = "join-room"
	FrameLeaveRoom = "leave-room"
)

// Event is one change notification.
type Event struct {
	Name string
	Data json.RawMessage
}

// Frame is the JSON envelope exchanged over the websocket in both directions.
type Frame struct {
	Type    string          `json:"type"`
	Room    string          `json:"room,omitempty"`
	Event   string          `json:"event,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
	Code    string          `json:"code,omitempty"`
	Message string          `json:"message,omitempty"`
}

// UserRoom is the room a single user's clients subscribe to.
func UserRoom(userID uint64) string {
	return constants.RoomUserPrefix + strconv.FormatUint(userID, 10)
}

// ParseUserRoom returns the user id of a user room.
func ParseUserRoom(room string) (uint64, bool) {
	rest, ok := strings.CutPrefix(room, constants.RoomUserPrefix)
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseUint(rest, 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return id, true
}

// CanJoin reports whether a user with the role may subscribe to room.
func CanJoin(userID uint64, role models.UserRole, room string) bool {
	if room == constants.RoomSupervisors {
		return role.Supervisory()
	}
	if id, ok := ParseUserRoom(room); ok {
		return id == userID || role.Supervisory()
	}
	return false
}

// TaskRooms returns the supervisors room plus the room of every non-nil
// assignee, without duplicates.
func TaskRooms(assignees ...*uint64) []string {
	rooms := []string{constants.RoomSupervisors}
	seen := make(map[uint64]bool, len(assignees))
	for _, id := range assignees {
		if id == nil || seen[*id] {
			continue
		}
		seen[*id] = true
		rooms = append(rooms, UserRoom(*id))
	}
	return rooms
}

// StaffRooms returns the rooms staff events about userID go to.
func StaffRooms(userID uint64) []string {
	return []string{constants.RoomSupervisors, UserRoom(userID)}
}

// SupervisorRooms returns the rooms of events only supervisors see.
func SupervisorRooms() []string {
	return []string{constants.RoomSupervisors}
}

// NewOutboxEvent encodes data into an outbox row addressed to rooms.
func NewOutboxEvent(name string, data interface{}, rooms []string) (*models.OutboxEvent, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", name, err)
	}
	return &models.OutboxEvent{
		Name:    name,
		Rooms:   rooms,
		Payload: payload,
	}, nil
}
