package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"clienthub/portal"
)

// Gateway is the client's view of the persistence layer. The caches
// refetch through it wholesale on every (re)connect; it is the source
// of truth that repairs whatever the socket dropped.
type Gateway interface {
	Files(ctx context.Context) ([]portal.File, error)
	Invoices(ctx context.Context) ([]portal.Invoice, error)
	Tasks(ctx context.Context) ([]portal.Task, error)
	Messages(ctx context.Context) ([]portal.Message, error)

	Notifications(ctx context.Context) ([]portal.Notification, error)
	MarkNotificationRead(ctx context.Context, id int) error
	MarkAllNotificationsRead(ctx context.Context) error
	ClearNotifications(ctx context.Context) error
}

// HTTPGateway talks to the portal's REST API. Owner sessions carry a
// bearer token and address containers by ID; guest sessions carry no
// credentials and address their container by share token.
type HTTPGateway struct {
	BaseURL     string
	AuthToken   string // owner JWT, empty for guests
	ShareToken  string // guest share token, empty for owners
	ContainerID int    // used by owner routes
	HTTPClient  *http.Client
}

func (g *HTTPGateway) client() *http.Client {
	if g.HTTPClient != nil {
		return g.HTTPClient
	}
	return http.DefaultClient
}

func (g *HTTPGateway) containerPath(suffix string) string {
	if g.ShareToken != "" {
		return fmt.Sprintf("%s/api/guest/%s%s", g.BaseURL, g.ShareToken, suffix)
	}
	return fmt.Sprintf("%s/api/containers/%d%s", g.BaseURL, g.ContainerID, suffix)
}

func (g *HTTPGateway) do(ctx context.Context, method, url string, body interface{}, out interface{}) error {
	var reqBody *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewReader(data)
	} else {
		reqBody = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if g.AuthToken != "" {
		req.Header.Set("Authorization", "Bearer "+g.AuthToken)
	}

	resp, err := g.client().Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		if apiErr.Error != "" {
			return fmt.Errorf("%s %s: %s", method, url, apiErr.Error)
		}
		return fmt.Errorf("%s %s: status %d", method, url, resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (g *HTTPGateway) Files(ctx context.Context) ([]portal.File, error) {
	var out struct {
		Files []portal.File `json:"files"`
	}
	err := g.do(ctx, http.MethodGet, g.containerPath("/files"), nil, &out)
	return out.Files, err
}

func (g *HTTPGateway) Invoices(ctx context.Context) ([]portal.Invoice, error) {
	var out struct {
		Invoices []portal.Invoice `json:"invoices"`
	}
	err := g.do(ctx, http.MethodGet, g.containerPath("/invoices"), nil, &out)
	return out.Invoices, err
}

func (g *HTTPGateway) Tasks(ctx context.Context) ([]portal.Task, error) {
	var out struct {
		Tasks []portal.Task `json:"tasks"`
	}
	err := g.do(ctx, http.MethodGet, g.containerPath("/tasks"), nil, &out)
	return out.Tasks, err
}

func (g *HTTPGateway) Messages(ctx context.Context) ([]portal.Message, error) {
	var out struct {
		Messages []portal.Message `json:"messages"`
	}
	err := g.do(ctx, http.MethodGet, g.containerPath("/messages"), nil, &out)
	return out.Messages, err
}

func (g *HTTPGateway) Notifications(ctx context.Context) ([]portal.Notification, error) {
	var out struct {
		Notifications []portal.Notification `json:"notifications"`
	}
	err := g.do(ctx, http.MethodGet, g.BaseURL+"/api/notifications", nil, &out)
	return out.Notifications, err
}

func (g *HTTPGateway) MarkNotificationRead(ctx context.Context, id int) error {
	return g.do(ctx, http.MethodPost, fmt.Sprintf("%s/api/notifications/%d/read", g.BaseURL, id), nil, nil)
}

func (g *HTTPGateway) MarkAllNotificationsRead(ctx context.Context) error {
	return g.do(ctx, http.MethodPost, g.BaseURL+"/api/notifications/read_all", nil, nil)
}

func (g *HTTPGateway) ClearNotifications(ctx context.Context) error {
	return g.do(ctx, http.MethodDelete, g.BaseURL+"/api/notifications", nil, nil)
}
