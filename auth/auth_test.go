package auth

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"clienthub/db"

	"github.com/gin-gonic/gin"
)

func newAuthTestRouter(t *testing.T) *gin.Engine {
	t.Helper()

	gin.SetMode(gin.TestMode)
	t.Setenv("JWT_SECRET", "auth-test-secret")

	tempDir, err := os.MkdirTemp("", "clienthub-auth-*")
	if err != nil {
		t.Fatalf("create temp dir: %v", err)
	}
	database, err := db.InitSQLite(filepath.Join(tempDir, "auth.sqlite"))
	if err != nil {
		t.Fatalf("init sqlite: %v", err)
	}

	prevDB := db.DB
	db.DB = database
	_, err = db.DB.Exec(`CREATE TABLE users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE,
		password TEXT NOT NULL
	)`)
	if err != nil {
		t.Fatalf("create users table: %v", err)
	}

	t.Cleanup(func() {
		db.DB = prevDB
		_ = database.Close()
		_ = os.RemoveAll(tempDir)
	})

	r := gin.New()
	r.POST("/register", HandleRegister)
	r.POST("/login", HandleLogin)
	r.GET("/whoami", AuthMiddleware(), func(c *gin.Context) {
		c.JSON(200, gin.H{"account_id": c.GetInt("userID"), "email": c.GetString("userEmail")})
	})
	return r
}

func postJSON(t *testing.T, r *gin.Engine, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRegisterLoginRoundTrip(t *testing.T) {
	r := newAuthTestRouter(t)

	w := postJSON(t, r, "/register", map[string]string{
		"username": "Owner", "email": "owner@example.com", "password": "hunter22",
	})
	if w.Code != 201 {
		t.Fatalf("register failed: %d %s", w.Code, w.Body.String())
	}

	// Duplicate email is rejected up front.
	w = postJSON(t, r, "/register", map[string]string{
		"username": "Owner Again", "email": "owner@example.com", "password": "hunter22",
	})
	if w.Code != 400 {
		t.Fatalf("expected 400 for duplicate email, got %d", w.Code)
	}

	w = postJSON(t, r, "/login", map[string]string{
		"email": "owner@example.com", "password": "wrong",
	})
	if w.Code != 400 {
		t.Fatalf("expected 400 for wrong password, got %d", w.Code)
	}

	w = postJSON(t, r, "/login", map[string]string{
		"email": "owner@example.com", "password": "hunter22",
	})
	if w.Code != 200 {
		t.Fatalf("login failed: %d %s", w.Code, w.Body.String())
	}
	var loginRes struct {
		AuthToken string `json:"auth_token"`
		AccountID int    `json:"account_id"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &loginRes); err != nil {
		t.Fatalf("decode login response: %v", err)
	}
	if loginRes.AuthToken == "" || loginRes.AccountID == 0 {
		t.Fatalf("incomplete login response: %+v", loginRes)
	}

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+loginRes.AuthToken)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != 200 {
		t.Fatalf("whoami with fresh token failed: %d %s", rec.Code, rec.Body.String())
	}

	accountID, err := AccountFromToken(loginRes.AuthToken)
	if err != nil {
		t.Fatalf("AccountFromToken: %v", err)
	}
	if accountID != loginRes.AccountID {
		t.Fatalf("expected account %d from token, got %d", loginRes.AccountID, accountID)
	}
}

func TestAuthMiddlewareRejectsBadTokens(t *testing.T) {
	r := newAuthTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != 401 {
		t.Fatalf("expected 401 without header, got %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != 401 {
		t.Fatalf("expected 401 for garbage token, got %d", w.Code)
	}
}
