package realtime

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"clienthub/auth"
	"clienthub/portal"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// SocketServer owns the registry for one server process. It is built
// in main and injected into the route table; nothing here is a
// package-level singleton.
type SocketServer struct {
	Registry *Registry
}

func NewSocketServer(registry *Registry) *SocketServer {
	return &SocketServer{Registry: registry}
}

type joinContainerRequest struct {
	ContainerID int    `json:"container_id"`
	ShareToken  string `json:"share_token"`
}

type socketError struct {
	Content string `json:"error"`
}

type containerJoined struct {
	ContainerID int `json:"container_id"`
}

func sendControl(h *Handle, msgType string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Println("sendControl marshal error:", err)
		return
	}
	select {
	case h.sendQueue <- Envelope{Type: msgType, Data: data}:
	case <-h.done:
	default:
		log.Printf("sendControl: send queue full, dropping %s", msgType)
	}
}

func (s *SocketServer) HandleSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Println("WebSocket upgrade failed:", err)
		return
	}
	conn.SetReadLimit(256 * 1024)
	defer conn.Close()

	// Owner connections present a JWT as a query parameter and are
	// bound to their account room for the whole connection. Guest
	// connections carry no credentials here; the share token comes
	// with the join message.
	accountID := 0
	if token := c.Query("token"); token != "" {
		accountID, err = auth.AccountFromToken(token)
		if err != nil {
			conn.WriteJSON(Envelope{Type: "error", Data: json.RawMessage(`{"error":"Invalid auth token"}`)})
			return
		}
	}

	handle := s.Registry.Register(conn, accountID)
	defer s.Registry.Dispose(handle)

	for {
		_, msgBytes, err := conn.ReadMessage()
		if err != nil {
			break
		}

		var env Envelope
		if err := json.Unmarshal(msgBytes, &env); err != nil {
			log.Println("Invalid message format:", err)
			continue
		}

		switch env.Type {
		case "join-container":
			s.handleJoinContainer(handle, env.Data)
		case "leave-container":
			s.Registry.LeaveContainerRoom(handle)
		default:
			s.dispatchEvent(handle, env)
		}
	}
}

func (s *SocketServer) handleJoinContainer(h *Handle, data json.RawMessage) {
	var req joinContainerRequest
	if err := json.Unmarshal(data, &req); err != nil {
		sendControl(h, "error", socketError{Content: "Invalid join data"})
		return
	}

	var container portal.Container
	var err error
	switch {
	case req.ShareToken != "":
		container, err = portal.ContainerByToken(req.ShareToken)
	case req.ContainerID != 0:
		container, err = portal.ContainerByID(req.ContainerID)
		if err == nil && container.OwnerID != h.AccountID() {
			sendControl(h, "error", socketError{Content: "Not your container"})
			return
		}
	default:
		sendControl(h, "error", socketError{Content: "Join needs a container id or share token"})
		return
	}
	if err == portal.ErrNotFound {
		sendControl(h, "error", socketError{Content: "Container not found"})
		return
	}
	if err != nil {
		log.Println("join-container lookup error:", err)
		sendControl(h, "error", socketError{Content: "Failed to join container"})
		return
	}

	s.Registry.JoinContainerRoom(h, container.ID, container.OwnerID)
	sendControl(h, "container-joined", containerJoined{ContainerID: container.ID})
}

// dispatchEvent relays a catalog event emitted by one participant to
// the rest of its container room. The emitting side has already
// committed the mutation through the REST gateway; an event for a
// container the connection is not focused on is dropped.
func (s *SocketServer) dispatchEvent(h *Handle, env Envelope) {
	ev, err := Decode(env)
	if err != nil {
		log.Println("Unknown or malformed event:", err)
		sendControl(h, "error", socketError{Content: "Unknown event type"})
		return
	}

	if _, ok := ev.(NotificationPushed); ok {
		// Account notifications originate server-side only.
		sendControl(h, "error", socketError{Content: "Event type is not client-emittable"})
		return
	}

	containerID, ownerID := s.Registry.focusedContainer(h)
	if containerID == 0 || ContainerIDOf(ev) != containerID {
		sendControl(h, "error", socketError{Content: "Not joined to that container"})
		return
	}

	s.Registry.Publish(ContainerRoom(containerID), ev, h)

	if h.AccountID() == 0 {
		s.notifyOwner(ownerID, ev)
	}
}

// notifyOwner turns guest activity into a persisted account
// notification and announces it over the owner's account room.
func (s *SocketServer) notifyOwner(ownerID int, ev Event) {
	var title, description string
	switch ev := ev.(type) {
	case InvoicePaid:
		title = "Invoice paid"
		description = centsToDisplay(ev.AmountCents) + " received on " + ev.ContainerName
	case FileUploaded:
		title = "New file from your client"
		description = ev.File.Name
	case FileCommentAdded:
		title = "New comment from your client"
		description = ev.Comment.Text
	default:
		return
	}

	notification, err := portal.InsertNotification(ownerID, title, description, "")
	if err != nil {
		log.Println("notifyOwner insert failed:", err)
		return
	}
	s.Registry.Publish(AccountRoom(ownerID), NotificationPushed{Notification: notification}, nil)
}

func centsToDisplay(cents int64) string {
	return fmt.Sprintf("$%d.%02d", cents/100, cents%100)
}
