package realtime

import (
	"fmt"
	"log"
	"sync"

	"github.com/gorilla/websocket"
)

// Room is a named multicast group. Two kinds exist: container rooms
// shared by owner and guest connections viewing the same container,
// and account rooms private to one owner's sessions.
type Room string

func ContainerRoom(containerID int) Room {
	return Room(fmt.Sprintf("container:%d", containerID))
}

func AccountRoom(accountID int) Room {
	return Room(fmt.Sprintf("account:%d", accountID))
}

// Handle is one live connection's registry entry. All fields besides
// the send queue are guarded by the owning Registry's mutex.
type Handle struct {
	conn             *websocket.Conn
	sendQueue        chan Envelope
	done             chan struct{}
	accountID        int // 0 for guest connections
	containerID      int // container room currently joined, 0 when none
	containerOwnerID int
	disposed         bool
}

// AccountID returns the owner account bound to this connection, or 0
// for a guest.
func (h *Handle) AccountID() int {
	return h.accountID
}

func (h *Handle) writePump() {
	defer h.conn.Close()

	for {
		select {
		case env, ok := <-h.sendQueue:
			if !ok {
				return
			}
			if err := h.conn.WriteJSON(env); err != nil {
				log.Println("writePump error:", err)
				return
			}
		case <-h.done:
			return
		}
	}
}

// Registry tracks live connections and their room memberships. State
// is purely in-memory and rebuilt from scratch on restart; clients
// repair any resulting gap with their refetch-on-join.
type Registry struct {
	mu    sync.Mutex
	rooms map[Room]map[*Handle]struct{}
}

func NewRegistry() *Registry {
	return &Registry{rooms: make(map[Room]map[*Handle]struct{})}
}

// Register wraps a connection in a handle and starts its write pump.
// accountID is 0 for guest connections; owner connections are joined
// to their account room for the whole connection lifetime.
func (r *Registry) Register(conn *websocket.Conn, accountID int) *Handle {
	handle := &Handle{
		conn:      conn,
		sendQueue: make(chan Envelope, 64),
		done:      make(chan struct{}),
		accountID: accountID,
	}
	go handle.writePump()

	if accountID != 0 {
		r.joinRoom(handle, AccountRoom(accountID))
	}
	return handle
}

func (r *Registry) joinRoom(h *Handle, room Room) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if h.disposed {
		return
	}
	members, ok := r.rooms[room]
	if !ok {
		members = make(map[*Handle]struct{})
		r.rooms[room] = members
	}
	members[h] = struct{}{}
}

func (r *Registry) leaveRoom(h *Handle, room Room) {
	members, ok := r.rooms[room]
	if !ok {
		return
	}
	delete(members, h)
	if len(members) == 0 {
		delete(r.rooms, room)
	}
}

// JoinContainerRoom focuses the connection on one container. A
// connection views one container at a time, so any previous container
// room is left first.
func (r *Registry) JoinContainerRoom(h *Handle, containerID, ownerID int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if h.disposed {
		return
	}
	if h.containerID != 0 && h.containerID != containerID {
		r.leaveRoom(h, ContainerRoom(h.containerID))
	}
	h.containerID = containerID
	h.containerOwnerID = ownerID

	members, ok := r.rooms[ContainerRoom(containerID)]
	if !ok {
		members = make(map[*Handle]struct{})
		r.rooms[ContainerRoom(containerID)] = members
	}
	members[h] = struct{}{}
}

func (r *Registry) LeaveContainerRoom(h *Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if h.containerID == 0 {
		return
	}
	r.leaveRoom(h, ContainerRoom(h.containerID))
	h.containerID = 0
	h.containerOwnerID = 0
}

// focusedContainer reports the container room the handle currently
// occupies and that container's owner account.
func (r *Registry) focusedContainer(h *Handle) (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return h.containerID, h.containerOwnerID
}

// Dispose releases every room membership and stops the write pump.
// Safe to call more than once; the transport close path and the read
// loop exit can both reach it.
func (r *Registry) Dispose(h *Handle) {
	r.mu.Lock()
	if h.disposed {
		r.mu.Unlock()
		return
	}
	h.disposed = true
	if h.containerID != 0 {
		r.leaveRoom(h, ContainerRoom(h.containerID))
		h.containerID = 0
		h.containerOwnerID = 0
	}
	if h.accountID != 0 {
		r.leaveRoom(h, AccountRoom(h.accountID))
	}
	r.mu.Unlock()

	close(h.done)
}

// Publish fans an event out to every current member of a room except
// exclude, usually the originating connection. Delivery is
// best-effort: a member with a full send queue misses the event and
// recovers on its next refetch.
func (r *Registry) Publish(room Room, ev Event, exclude *Handle) {
	env, err := Encode(ev)
	if err != nil {
		log.Println("Publish encode error:", err)
		return
	}

	r.mu.Lock()
	members := make([]*Handle, 0, len(r.rooms[room]))
	for h := range r.rooms[room] {
		if h != exclude {
			members = append(members, h)
		}
	}
	r.mu.Unlock()

	for _, h := range members {
		select {
		case h.sendQueue <- env:
		case <-h.done:
		default:
			log.Printf("Publish: send queue full, dropping %s for one member of %s", env.Type, room)
		}
	}
}
