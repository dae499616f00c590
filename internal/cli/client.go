package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// APIError is a non-2xx response from the game server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api status %d: %s", e.Status, e.Message)
}

// IsAPIError reports whether err came back from the server rather than the
// network.
func IsAPIError(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr)
}

type Client struct {
	BaseURL  string
	PlayerID string
	HTTP     *http.Client
}

func NewClient(baseURL, playerID string) *Client {
	return &Client{
		BaseURL:  strings.TrimRight(baseURL, "/"),
		PlayerID: strings.TrimSpace(playerID),
		HTTP: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (c *Client) Register(ctx context.Context, username string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/players", map[string]any{
		"username": username,
	}, &out, "")
	return out, err
}

func (c *Client) Catalog(ctx context.Context) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/catalog", nil, &out, "")
	return out, err
}

func (c *Client) Me(ctx context.Context) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/me", nil, &out, "")
	return out, err
}

func (c *Client) Buy(ctx context.Context, businessID string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, BuyPath(businessID), nil, &out, "")
	return out, err
}

func (c *Client) Activate(ctx context.Context, businessID string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, ActivatePath(businessID), nil, &out, "")
	return out, err
}

func (c *Client) Maintain(ctx context.Context, businessID, action string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, MaintainPath(businessID), map[string]any{
		"action": action,
	}, &out, "")
	return out, err
}

func (c *Client) AssignSlot(ctx context.Context, slotID int, businessID string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPut, SlotPath(slotID), map[string]any{
		"business_id": businessID,
	}, &out, "")
	return out, err
}

func (c *Client) ClearSlot(ctx context.Context, slotID int) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodDelete, SlotPath(slotID), nil, &out, "")
	return out, err
}

func (c *Client) SetTier(ctx context.Context, tier string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/work-frequency", map[string]any{
		"tier": tier,
	}, &out, "")
	return out, err
}

func (c *Client) Defend(ctx context.Context, amount int64) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/defense", map[string]any{
		"amount": amount,
	}, &out, "")
	return out, err
}

func (c *Client) Eligibility(ctx context.Context, playerID string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/players/"+url.PathEscape(playerID)+"/eligibility", nil, &out, "")
	return out, err
}

func (c *Client) Quote(ctx context.Context, body map[string]any) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/takeovers/quote", body, &out, "")
	return out, err
}

func (c *Client) Attack(ctx context.Context, body map[string]any, idem string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/takeovers", body, &out, idem)
	return out, err
}

func (c *Client) Leaderboard(ctx context.Context, limit int) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/leaderboard?limit="+strconv.Itoa(limit), nil, &out, "")
	return out, err
}

func (c *Client) WARLeaderboard(ctx context.Context, limit int) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/leaderboard/war?limit="+strconv.Itoa(limit), nil, &out, "")
	return out, err
}

// Do replays a queued request.
func (c *Client) Do(ctx context.Context, method, path string, body map[string]any, idem string) (map[string]any, error) {
	var out map[string]any
	var in any
	if body != nil {
		in = body
	}
	err := c.jsonRequest(ctx, method, path, in, &out, idem)
	return out, err
}

func BuyPath(businessID string) string {
	return "/v1/businesses/" + url.PathEscape(businessID) + "/buy"
}

func ActivatePath(businessID string) string {
	return "/v1/businesses/" + url.PathEscape(businessID) + "/activate"
}

func MaintainPath(businessID string) string {
	return "/v1/businesses/" + url.PathEscape(businessID) + "/maintain"
}

func SlotPath(slotID int) string {
	return "/v1/slots/" + strconv.Itoa(slotID)
}

func (c *Client) jsonRequest(ctx context.Context, method, path string, in any, out any, idem string) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.PlayerID != "" {
		req.Header.Set("X-Player-ID", c.PlayerID)
	}
	if idem != "" {
		req.Header.Set("Idempotency-Key", idem)
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &APIError{Status: resp.StatusCode, Message: errorMessage(raw)}
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func errorMessage(raw []byte) string {
	var body struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(raw, &body); err == nil && body.Error != "" {
		return body.Error
	}
	return strings.TrimSpace(string(raw))
}
