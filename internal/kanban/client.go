// Package kanban is the kitchen board client: it talks to the staff API,
// follows the websocket feed and keeps a reconciled view of active orders.
package kanban

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"menu-service/internal/models"
	"menu-service/internal/transport/http/dto"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

// APIError is a non-2xx answer from the service.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s (%d): %s", e.Code, e.Status, e.Message)
}

// ReadyWindow bounds how far back the READY column reaches.
const ReadyWindow = 2 * time.Hour

type Client struct {
	base  string
	token string
	http  *http.Client
	now   func() time.Time
}

func NewClient(baseURL, token string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 35 * time.Second
	}
	return &Client{
		base:  strings.TrimRight(baseURL, "/"),
		token: token,
		http:  &http.Client{Timeout: timeout},
		now:   time.Now,
	}
}

// ActiveOrders returns the orders a board shows: everything received or
// preparing, and ready orders placed within ReadyWindow.
func (c *Client) ActiveOrders(ctx context.Context) ([]*models.Order, error) {
	var out []*models.Order
	for _, st := range []models.OrderStatus{models.OrderStatusReceived, models.OrderStatusPreparing, models.OrderStatusReady} {
		q := url.Values{"status": {string(st)}, "limit": {"200"}}
		if st == models.OrderStatusReady {
			q.Set("from", c.now().UTC().Add(-ReadyWindow).Format(time.RFC3339))
		}
		var resp dto.ListOrdersResponse
		if err := c.do(ctx, http.MethodGet, "/api/v1/orders?"+q.Encode(), nil, &resp); err != nil {
			return nil, err
		}
		out = append(out, resp.Orders...)
	}
	return out, nil
}

func (c *Client) Transition(ctx context.Context, id uuid.UUID, to models.OrderStatus) (*dto.TransitionResponse, error) {
	var resp dto.TransitionResponse
	err := c.do(ctx, http.MethodPatch, "/api/v1/orders/"+id.String()+"/status", dto.TransitionRequest{Status: string(to)}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// FeedURL is the websocket endpoint carrying the token as a query parameter.
func (c *Client) FeedURL() string {
	u := c.base + "/api/v1/ws/orders"
	u = strings.Replace(u, "https://", "wss://", 1)
	u = strings.Replace(u, "http://", "ws://", 1)
	if c.token != "" {
		u += "?access_token=" + url.QueryEscape(c.token)
	}
	return u
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var rdr *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rdr = bytes.NewReader(b)
	} else {
		rdr = bytes.NewReader(nil)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, rdr)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var e dto.BaseError
		_ = json.NewDecoder(resp.Body).Decode(&e)
		return &APIError{Status: resp.StatusCode, Code: e.Code, Message: e.Message}
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
