package mocks

import (
	"sync"

	"github.com/mcoot/blitzarena/internal/model"
)

// Sent is one message captured by Recorder
type Sent struct {
	ConnID model.ConnID
	Msg    model.Outbound
}

// Recorder is an in-memory transport that captures outbound messages for assertions.
// Room broadcasts are expanded into one Sent per member; BroadcastAll is recorded under BroadcastConn.
type Recorder struct {
	mu     sync.Mutex
	sent   []Sent
	rooms  map[model.RoomID]map[model.ConnID]bool
	closed []model.ConnID
}

// BroadcastConn is the pseudo connection that BroadcastAll messages are recorded under
const BroadcastConn model.ConnID = "*"

// NewRecorder creates an empty Recorder
func NewRecorder() *Recorder {
	return &Recorder{
		rooms: make(map[model.RoomID]map[model.ConnID]bool),
	}
}

// Send records a message to one connection
func (r *Recorder) Send(connID model.ConnID, msg model.Outbound) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, Sent{ConnID: connID, Msg: msg})
}

// JoinRoom adds a connection to a room group
func (r *Recorder) JoinRoom(connID model.ConnID, roomID model.RoomID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.rooms[roomID] == nil {
		r.rooms[roomID] = make(map[model.ConnID]bool)
	}
	r.rooms[roomID][connID] = true
}

// LeaveRoom removes a connection from a room group
func (r *Recorder) LeaveRoom(connID model.ConnID, roomID model.RoomID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.rooms[roomID], connID)
	if len(r.rooms[roomID]) == 0 {
		delete(r.rooms, roomID)
	}
}

// BroadcastRoom records the message for every member of the room
func (r *Recorder) BroadcastRoom(roomID model.RoomID, msg model.Outbound) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for connID := range r.rooms[roomID] {
		r.sent = append(r.sent, Sent{ConnID: connID, Msg: msg})
	}
}

// BroadcastAll records the message under BroadcastConn
func (r *Recorder) BroadcastAll(msg model.Outbound) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, Sent{ConnID: BroadcastConn, Msg: msg})
}

// Close records that the connection was closed by the server
func (r *Recorder) Close(connID model.ConnID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = append(r.closed, connID)
}

// InRoom returns true if the connection is a member of the room group
func (r *Recorder) InRoom(connID model.ConnID, roomID model.RoomID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rooms[roomID][connID]
}

// All returns every recorded message
func (r *Recorder) All() []Sent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Sent, len(r.sent))
	copy(out, r.sent)
	return out
}

// For returns the messages sent to one connection
func (r *Recorder) For(connID model.ConnID) []model.Outbound {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Outbound
	for _, s := range r.sent {
		if s.ConnID == connID {
			out = append(out, s.Msg)
		}
	}
	return out
}

// Types returns the message types sent to one connection, in order
func (r *Recorder) Types(connID model.ConnID) []model.MessageType {
	msgs := r.For(connID)
	out := make([]model.MessageType, len(msgs))
	for i, m := range msgs {
		out[i] = m.Type
	}
	return out
}

// Count returns how many messages of a type were sent to a connection
func (r *Recorder) Count(connID model.ConnID, t model.MessageType) int {
	n := 0
	for _, m := range r.For(connID) {
		if m.Type == t {
			n++
		}
	}
	return n
}

// Last returns the most recent message of a type sent to a connection
func (r *Recorder) Last(connID model.ConnID, t model.MessageType) (model.Outbound, bool) {
	msgs := r.For(connID)
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Type == t {
			return msgs[i], true
		}
	}
	return model.Outbound{}, false
}

// Closed returns the connections closed by the server
func (r *Recorder) Closed() []model.ConnID {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.ConnID, len(r.closed))
	copy(out, r.closed)
	return out
}

// Reset clears recorded messages but keeps room membership
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = nil
	r.closed = nil
}
