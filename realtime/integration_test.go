package realtime_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"clienthub/client"
	"clienthub/db"
	"clienthub/main/routes"
	"clienthub/portal"
	"clienthub/realtime"

	jwt "github.com/dgrijalva/jwt-go"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const testReadTimeout = 3 * time.Second

type integrationEnv struct {
	server      *httptest.Server
	ownerID     int
	ownerToken  string
	containerID int
	shareToken  string
}

func newIntegrationEnv(t *testing.T) *integrationEnv {
	t.Helper()

	gin.SetMode(gin.TestMode)
	t.Setenv("JWT_SECRET", "integration-test-secret")

	tempDir, err := os.MkdirTemp("", "clienthub-integration-*")
	if err != nil {
		t.Fatalf("create temp dir: %v", err)
	}
	database, err := db.InitSQLite(filepath.Join(tempDir, "clienthub.sqlite"))
	if err != nil {
		t.Fatalf("init sqlite: %v", err)
	}

	prevDB := db.DB
	db.DB = database
	if err := portal.EnsureSchema(); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}

	var ownerID int
	err = db.DB.QueryRow(
		`INSERT INTO users (username, email, password) VALUES (?, ?, ?) RETURNING id`,
		"Integration Owner", "owner@example.com", "not-a-real-hash",
	).Scan(&ownerID)
	if err != nil {
		t.Fatalf("insert owner: %v", err)
	}

	shareToken := uuid.NewString()
	var containerID int
	err = db.DB.QueryRow(
		`INSERT INTO containers (share_token, owner_id, name, created_at) VALUES (?, ?, ?, ?) RETURNING id`,
		shareToken, ownerID, "Integration Project", time.Now().UTC().Format(time.RFC3339),
	).Scan(&containerID)
	if err != nil {
		t.Fatalf("insert container: %v", err)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"userID":    ownerID,
		"userEmail": "owner@example.com",
		"exp":       time.Now().Add(time.Hour).Unix(),
	})
	ownerToken, err := token.SignedString([]byte("integration-test-secret"))
	if err != nil {
		t.Fatalf("sign owner token: %v", err)
	}

	r := gin.New()
	routes.SetupAPIRoutes(r)
	routes.SetupWebSocketRoutes(r, realtime.NewSocketServer(realtime.NewRegistry()))
	server := httptest.NewServer(r)

	t.Cleanup(func() {
		server.CloseClientConnections()
		server.Close()
		db.DB = prevDB
		_ = database.Close()
		_ = os.RemoveAll(tempDir)
	})

	return &integrationEnv{
		server:      server,
		ownerID:     ownerID,
		ownerToken:  ownerToken,
		containerID: containerID,
		shareToken:  shareToken,
	}
}

func (e *integrationEnv) wsURL(token string) string {
	url := "ws" + strings.TrimPrefix(e.server.URL, "http") + "/ws"
	if token != "" {
		url += "?token=" + token
	}
	return url
}

// dialOwner opens an authenticated socket focused on the container.
func (e *integrationEnv) dialOwner(t *testing.T) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(e.wsURL(e.ownerToken), nil)
	if err != nil {
		t.Fatalf("dial owner socket: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	join, _ := json.Marshal(map[string]interface{}{"container_id": e.containerID})
	if err := conn.WriteJSON(realtime.Envelope{Type: "join-container", Data: join}); err != nil {
		t.Fatalf("owner join: %v", err)
	}
	mustReadType(t, conn, "container-joined")
	return conn
}

func (e *integrationEnv) dialGuest(t *testing.T) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(e.wsURL(""), nil)
	if err != nil {
		t.Fatalf("dial guest socket: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	join, _ := json.Marshal(map[string]interface{}{"share_token": e.shareToken})
	if err := conn.WriteJSON(realtime.Envelope{Type: "join-container", Data: join}); err != nil {
		t.Fatalf("guest join: %v", err)
	}
	mustReadType(t, conn, "container-joined")
	return conn
}

// mustReadType reads envelopes until one of the wanted type arrives.
func mustReadType(t *testing.T, conn *websocket.Conn, wantType string) realtime.Envelope {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(testReadTimeout))
	for i := 0; i < 10; i++ {
		var env realtime.Envelope
		if err := conn.ReadJSON(&env); err != nil {
			t.Fatalf("read waiting for %s: %v", wantType, err)
		}
		if env.Type == wantType {
			return env
		}
	}
	t.Fatalf("gave up waiting for envelope type %s", wantType)
	return realtime.Envelope{}
}

func (e *integrationEnv) doJSON(t *testing.T, method, path, token string, body interface{}, out interface{}) {
	t.Helper()

	var reqBody *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request: %v", err)
		}
		reqBody = bytes.NewReader(data)
	} else {
		reqBody = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, e.server.URL+path, reqBody)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		t.Fatalf("%s %s: status %d", method, path, resp.StatusCode)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode response: %v", err)
		}
	}
}

func emit(t *testing.T, conn *websocket.Conn, ev realtime.Event) {
	t.Helper()
	env, err := realtime.Encode(ev)
	if err != nil {
		t.Fatalf("encode event: %v", err)
	}
	if err := conn.WriteJSON(env); err != nil {
		t.Fatalf("emit %s: %v", ev.EventType(), err)
	}
}

func TestFileLifecycleFanout(t *testing.T) {
	env := newIntegrationEnv(t)
	ownerConn := env.dialOwner(t)
	guestConn := env.dialGuest(t)

	ownerCache := client.NewContainerCache(env.containerID)
	guestCache := client.NewContainerCache(env.containerID)

	// Guest commits the upload through the gateway, then emits.
	var uploadRes struct {
		File portal.File `json:"file"`
	}
	env.doJSON(t, http.MethodPost, "/api/guest/"+env.shareToken+"/files", "",
		map[string]interface{}{"name": "brief.pdf", "url": "/blob/brief.pdf", "size": 1024}, &uploadRes)
	emit(t, guestConn, realtime.FileUploaded{ContainerID: env.containerID, File: uploadRes.File})

	received := mustReadType(t, ownerConn, "file-uploaded")
	ev, err := realtime.Decode(received)
	if err != nil {
		t.Fatalf("decode received event: %v", err)
	}
	ownerCache.Apply(ev)
	if got := len(ownerCache.Files()); got != 1 {
		t.Fatalf("expected owner file list length 1, got %d", got)
	}

	// Guest uploads also announce themselves in the owner's mailbox.
	mustReadType(t, ownerConn, "notification")
	unread, err := portal.UnreadNotificationCount(env.ownerID)
	if err != nil {
		t.Fatalf("unread count: %v", err)
	}
	if unread != 1 {
		t.Fatalf("expected 1 unread notification after guest upload, got %d", unread)
	}

	// Owner deletes and the guest's list shrinks back.
	guestCache.Apply(realtime.FileUploaded{ContainerID: env.containerID, File: uploadRes.File})
	env.doJSON(t, http.MethodDelete,
		"/api/containers/"+itoa(env.containerID)+"/files/"+itoa(uploadRes.File.ID), env.ownerToken, nil, nil)
	emit(t, ownerConn, realtime.FileDeleted{ContainerID: env.containerID, FileID: uploadRes.File.ID})

	received = mustReadType(t, guestConn, "file-deleted")
	ev, err = realtime.Decode(received)
	if err != nil {
		t.Fatalf("decode received event: %v", err)
	}
	guestCache.Apply(ev)
	if got := len(guestCache.Files()); got != 0 {
		t.Fatalf("expected guest file list length 0 after delete, got %d", got)
	}
}

func TestCommentFanoutIsIdempotent(t *testing.T) {
	env := newIntegrationEnv(t)
	ownerConn := env.dialOwner(t)
	guestConn := env.dialGuest(t)

	var uploadRes struct {
		File portal.File `json:"file"`
	}
	env.doJSON(t, http.MethodPost, "/api/containers/"+itoa(env.containerID)+"/files", env.ownerToken,
		map[string]interface{}{"name": "logo.png", "url": "/blob/logo.png"}, &uploadRes)
	emit(t, ownerConn, realtime.FileUploaded{ContainerID: env.containerID, File: uploadRes.File})
	mustReadType(t, guestConn, "file-uploaded")

	ownerCache := client.NewContainerCache(env.containerID)
	ownerCache.Apply(realtime.FileUploaded{ContainerID: env.containerID, File: uploadRes.File})

	var commentRes struct {
		Comment portal.Comment `json:"comment"`
	}
	env.doJSON(t, http.MethodPost,
		"/api/guest/"+env.shareToken+"/files/"+itoa(uploadRes.File.ID)+"/comments", "",
		map[string]interface{}{"text": "Looks great"}, &commentRes)
	emit(t, guestConn, realtime.FileCommentAdded{
		ContainerID: env.containerID,
		FileID:      uploadRes.File.ID,
		Comment:     commentRes.Comment,
	})

	received := mustReadType(t, ownerConn, "file-comment-added")
	ev, err := realtime.Decode(received)
	if err != nil {
		t.Fatalf("decode received event: %v", err)
	}

	ownerCache.Apply(ev)
	ownerCache.Apply(ev) // duplicate delivery
	files := ownerCache.Files()
	if len(files) != 1 || len(files[0].Comments) != 1 {
		t.Fatalf("expected exactly one comment after duplicate apply, got %+v", files)
	}
}

func TestInvoicePaidReachesOwnerMailbox(t *testing.T) {
	env := newIntegrationEnv(t)
	ownerConn := env.dialOwner(t)
	guestConn := env.dialGuest(t)

	var invoiceRes struct {
		Invoice portal.Invoice `json:"invoice"`
	}
	env.doJSON(t, http.MethodPost, "/api/containers/"+itoa(env.containerID)+"/invoices", env.ownerToken,
		map[string]interface{}{"number": "INV-001", "amount_cents": 250000}, &invoiceRes)
	emit(t, ownerConn, realtime.InvoiceCreated{ContainerID: env.containerID, Invoice: invoiceRes.Invoice})
	mustReadType(t, guestConn, "invoice-created")

	env.doJSON(t, http.MethodPost,
		"/api/guest/"+env.shareToken+"/invoices/"+itoa(invoiceRes.Invoice.ID)+"/pay", "", nil, nil)
	emit(t, guestConn, realtime.InvoicePaid{
		ContainerID:   env.containerID,
		AmountCents:   invoiceRes.Invoice.AmountCents,
		ContainerName: "Integration Project",
	})

	mustReadType(t, ownerConn, "invoice-paid")
	pushed := mustReadType(t, ownerConn, "notification")
	ev, err := realtime.Decode(pushed)
	if err != nil {
		t.Fatalf("decode notification push: %v", err)
	}
	notification := ev.(realtime.NotificationPushed).Notification
	if notification.AccountID != env.ownerID || notification.Read {
		t.Fatalf("unexpected pushed notification: %+v", notification)
	}

	unread, err := portal.UnreadNotificationCount(env.ownerID)
	if err != nil {
		t.Fatalf("unread count: %v", err)
	}
	if unread != 1 {
		t.Fatalf("expected 1 unread after payment, got %d", unread)
	}

	// Mark-all through the gateway brings the persisted count to zero.
	env.doJSON(t, http.MethodPost, "/api/notifications/read_all", env.ownerToken, nil, nil)
	unread, err = portal.UnreadNotificationCount(env.ownerID)
	if err != nil {
		t.Fatalf("unread count: %v", err)
	}
	if unread != 0 {
		t.Fatalf("expected 0 unread after read_all, got %d", unread)
	}
}

func TestEmitOutsideFocusedContainerIsRejected(t *testing.T) {
	env := newIntegrationEnv(t)
	guestConn := env.dialGuest(t)
	ownerConn := env.dialOwner(t)

	emit(t, guestConn, realtime.TaskDeleted{ContainerID: env.containerID + 99, TaskID: 1})

	mustReadType(t, guestConn, "error")
	conn := ownerConn
	conn.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	var env2 realtime.Envelope
	if err := conn.ReadJSON(&env2); err == nil {
		t.Fatalf("expected no fan-out for rejected emit, got %s", env2.Type)
	}
}

func itoa(n int) string { return strconv.Itoa(n) }
