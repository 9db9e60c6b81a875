package client

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"strings"
	"sync"
	"time"

	"clienthub/realtime"

	"github.com/gorilla/websocket"
)

var ErrNotConnected = errors.New("not connected")

// Client keeps one participant's caches converged with the server.
// One instance per browser-tab equivalent: it holds a single socket,
// focuses one container, and refetches everything on every
// (re)connect before applying live events.
type Client struct {
	BaseURL     string
	AuthToken   string // owner JWT, empty for guests
	ShareToken  string // guest share token, empty for owners
	ContainerID int

	Gateway       Gateway
	Cache         *ContainerCache
	Notifications *NotificationList // owner sessions only
	Notices       *GuestNoticeStore // guest sessions only

	// OnLoadError surfaces a failed refetch to the user. The cache is
	// left untouched on failure; there is no partial fallback.
	OnLoadError func(error)

	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *Client) wsURL() string {
	url := strings.Replace(c.BaseURL, "http", "ws", 1) + "/ws"
	if c.AuthToken != "" {
		url += "?token=" + c.AuthToken
	}
	return url
}

// Run dials, joins, and reads until ctx is cancelled, reconnecting
// with a flat backoff on any transport error.
func (c *Client) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			log.Println("Client: context cancelled before connection")
			return
		default:
			conn, _, err := websocket.DefaultDialer.Dial(c.wsURL(), nil)
			if err != nil {
				log.Printf("Connection failed: %v", err)
				time.Sleep(2 * time.Second)
				continue
			}

			c.mu.Lock()
			c.conn = conn
			c.mu.Unlock()

			if err := c.joinContainer(conn); err != nil {
				log.Println("Failed to join container:", err)
				conn.Close()
				time.Sleep(2 * time.Second)
				continue
			}

			if err := c.readLoop(ctx, conn); err != nil {
				log.Printf("Socket closed: %v", err)
			}
			conn.Close()

			c.mu.Lock()
			c.conn = nil
			c.mu.Unlock()

			select {
			case <-ctx.Done():
				return
			default:
				log.Println("Reconnecting in 2 seconds...")
				time.Sleep(2 * time.Second)
			}
		}
	}
}

func (c *Client) joinContainer(conn *websocket.Conn) error {
	join := map[string]interface{}{}
	if c.ShareToken != "" {
		join["share_token"] = c.ShareToken
	} else {
		join["container_id"] = c.ContainerID
	}
	data, err := json.Marshal(join)
	if err != nil {
		return err
	}
	return conn.WriteJSON(realtime.Envelope{Type: "join-container", Data: data})
}

// Emit sends a catalog event to the server for fan-out. Callers emit
// only after the REST mutation has committed; no event without a
// successful commit.
func (c *Client) Emit(ev realtime.Event) error {
	env, err := realtime.Encode(ev)
	if err != nil {
		return err
	}

	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}
	return conn.WriteJSON(env)
}

func (c *Client) readLoop(ctx context.Context, conn *websocket.Conn) error {
	for {
		select {
		case <-ctx.Done():
			log.Println("Context cancelled, stopping socket read loop")
			return nil
		default:
			_, msgBytes, err := conn.ReadMessage()
			if err != nil {
				return err
			}

			var env realtime.Envelope
			if err := json.Unmarshal(msgBytes, &env); err != nil {
				log.Println("Invalid envelope JSON:", err)
				continue
			}

			switch env.Type {
			case "container-joined":
				// The join is the moment to repair gaps: replace
				// every cache wholesale from the gateway.
				c.refetch(ctx)
			case "error":
				var socketErr struct {
					Content string `json:"error"`
				}
				if err := json.Unmarshal(env.Data, &socketErr); err == nil {
					log.Println("Server error:", socketErr.Content)
				}
			default:
				c.applyEnvelope(env)
			}
		}
	}
}

func (c *Client) refetch(ctx context.Context) {
	if err := c.Cache.Refresh(ctx, c.Gateway); err != nil {
		log.Println("Cache refresh failed:", err)
		if c.OnLoadError != nil {
			c.OnLoadError(err)
		}
		return
	}
	if c.Notifications != nil {
		if err := c.Notifications.Refresh(ctx); err != nil {
			log.Println("Notification refresh failed:", err)
		}
	}
}

// applyEnvelope merges one live event. A handler failure must never
// take the connection down: the event is skipped and the next refetch
// reconciles it.
func (c *Client) applyEnvelope(env realtime.Envelope) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Event handler panic for %s: %v", env.Type, r)
		}
	}()

	ev, err := realtime.Decode(env)
	if err != nil {
		log.Println("Undecodable event:", err)
		return
	}

	switch ev := ev.(type) {
	case realtime.NotificationPushed:
		if c.Notifications != nil {
			c.Notifications.Push(ev.Notification)
		}
	case realtime.ClientNotification:
		if c.Notices != nil {
			if err := c.Notices.Add(ev.ContainerID, ev.Title, ev.Description); err != nil {
				log.Println("Guest notice save failed:", err)
			}
		}
	default:
		c.Cache.Apply(ev)
	}
}
