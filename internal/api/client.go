// Package api is the dispatch service facade: the only component that
// talks to the remote backend. Every operation returns a typed success
// payload or a typed *Error.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/roaddasher/dasher/internal/auth"
	"github.com/roaddasher/dasher/internal/logger"
	"github.com/roaddasher/dasher/internal/types/earnings"
	"github.com/roaddasher/dasher/internal/types/order"
	"github.com/roaddasher/dasher/internal/types/status"
)

// DefaultHistoryLimit is the page size for order-history fetches.
const DefaultHistoryLimit = 20

// Client talks to the dispatch backend. Construct one at process start
// and pass it to whichever component needs it.
type Client struct {
	http    *http.Client
	baseURL string
	tokens  *auth.TokenStore
}

// New builds a Client. A nil httpClient gets a 10s-timeout default;
// timeouts are the HTTP layer's responsibility, not the callers'.
func New(baseURL string, tokens *auth.TokenStore, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{
		http:    httpClient,
		baseURL: strings.TrimRight(baseURL, "/"),
		tokens:  tokens,
	}
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return &Error{Kind: KindDecode, Err: err}
		}
		reader = bytes.NewReader(data)
	}
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return &Error{Kind: KindNetwork, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	// A missing token is omitted, not an error; the server answers 401
	// and that maps to KindAuth below.
	if tok := c.tokens.Token(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &Error{Kind: KindNetwork, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &Error{Kind: KindNetwork, Err: err}
	}
	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return &Error{Kind: KindAuth, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return &Error{Kind: KindServer, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &Error{Kind: KindDecode, Err: err}
	}
	return nil
}

func logWarnings(op string, warns []order.Warning) {
	for _, w := range warns {
		logger.Log.Warn("payload decode warning",
			zap.String("op", op),
			zap.String("field", w.Field),
			zap.String("detail", w.Message),
		)
	}
}

// LoginWithFacebook exchanges a third-party access token for a backend
// bearer token and stores it for subsequent requests.
func (c *Client) LoginWithFacebook(ctx context.Context, accessToken string) (string, error) {
	req := struct {
		AccessToken string `json:"access_token"`
	}{AccessToken: accessToken}
	var resp struct {
		AccessToken string `json:"access_token"`
	}
	if err := c.do(ctx, http.MethodPost, "/auth/facebook", nil, req, &resp); err != nil {
		return "", err
	}
	if resp.AccessToken == "" {
		return "", &Error{Kind: KindDecode, Body: "login response carried no access_token"}
	}
	c.tokens.Set(resp.AccessToken)
	return resp.AccessToken, nil
}

// Logout clears the stored token. The remote call is best effort; the
// local token is dropped either way.
func (c *Client) Logout(ctx context.Context) error {
	err := c.do(ctx, http.MethodPost, "/auth/logout", nil, nil, nil)
	c.tokens.Clear()
	return err
}

// AvailableOrders fetches the orders the driver may accept.
func (c *Client) AvailableOrders(ctx context.Context) ([]order.Order, error) {
	var resp struct {
		Orders []order.Payload `json:"orders"`
	}
	if err := c.do(ctx, http.MethodGet, "/orders/available", nil, nil, &resp); err != nil {
		return nil, err
	}
	out := make([]order.Order, 0, len(resp.Orders))
	for i := range resp.Orders {
		o, warns := order.FromWire(&resp.Orders[i])
		logWarnings("available_orders", warns)
		out = append(out, *o)
	}
	return out, nil
}

// CurrentOrder fetches the driver's active order, nil when there is none.
func (c *Client) CurrentOrder(ctx context.Context) (*order.Order, error) {
	var resp struct {
		Order *order.Payload `json:"order"`
	}
	if err := c.do(ctx, http.MethodGet, "/orders/current", nil, nil, &resp); err != nil {
		return nil, err
	}
	if resp.Order == nil {
		return nil, nil
	}
	o, warns := order.FromWire(resp.Order)
	logWarnings("current_order", warns)
	return o, nil
}

// AcceptOrder claims an available order.
func (c *Client) AcceptOrder(ctx context.Context, orderID int64) error {
	req := struct {
		OrderID int64 `json:"order_id"`
	}{OrderID: orderID}
	return c.do(ctx, http.MethodPost, "/orders/accept", nil, req, nil)
}

// RejectOrder declines an available order, with an optional reason.
func (c *Client) RejectOrder(ctx context.Context, orderID int64, reason string) error {
	req := struct {
		OrderID int64  `json:"order_id"`
		Reason  string `json:"reason,omitempty"`
	}{OrderID: orderID, Reason: reason}
	return c.do(ctx, http.MethodPost, "/orders/reject", nil, req, nil)
}

// UpdateOrderStatus reports a status transition for the active order.
func (c *Client) UpdateOrderStatus(ctx context.Context, orderID int64, st status.Status) error {
	req := struct {
		OrderID int64  `json:"order_id"`
		Status  string `json:"status"`
	}{OrderID: orderID, Status: string(st)}
	return c.do(ctx, http.MethodPost, "/orders/status", nil, req, nil)
}

// OrderHistory fetches one page of completed orders. Pages are 1-based.
func (c *Client) OrderHistory(ctx context.Context, page, limit int) ([]order.Order, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("limit", strconv.Itoa(limit))
	var resp struct {
		Orders []order.Payload `json:"orders"`
	}
	if err := c.do(ctx, http.MethodGet, "/orders/history", q, nil, &resp); err != nil {
		return nil, err
	}
	out := make([]order.Order, 0, len(resp.Orders))
	for i := range resp.Orders {
		o, warns := order.FromWire(&resp.Orders[i])
		logWarnings("order_history", warns)
		out = append(out, *o)
	}
	return out, nil
}

// TodayEarnings fetches today's earnings summary.
func (c *Client) TodayEarnings(ctx context.Context) (*earnings.Earnings, error) {
	return c.earningsSummary(ctx, "/earnings/today", "today_earnings")
}

// WeeklyEarnings fetches the current week's earnings summary.
func (c *Client) WeeklyEarnings(ctx context.Context) (*earnings.Earnings, error) {
	return c.earningsSummary(ctx, "/earnings/weekly", "weekly_earnings")
}

func (c *Client) earningsSummary(ctx context.Context, path, op string) (*earnings.Earnings, error) {
	var p earnings.Payload
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &p); err != nil {
		return nil, err
	}
	e, warns := earnings.FromWire(&p)
	logWarnings(op, warns)
	return e, nil
}

// EarningsHistory fetches one page of the earnings ledger.
func (c *Client) EarningsHistory(ctx context.Context, page int) ([]earnings.Record, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	var resp struct {
		Records []earnings.RecordPayload `json:"records"`
	}
	if err := c.do(ctx, http.MethodGet, "/earnings/history", q, nil, &resp); err != nil {
		return nil, err
	}
	out := make([]earnings.Record, 0, len(resp.Records))
	for i := range resp.Records {
		r, warns := earnings.RecordFromWire(&resp.Records[i])
		logWarnings("earnings_history", warns)
		out = append(out, *r)
	}
	return out, nil
}

// UpdateOnlineStatus reports the driver going online or offline.
func (c *Client) UpdateOnlineStatus(ctx context.Context, online bool) error {
	req := struct {
		IsOnline bool `json:"is_online"`
	}{IsOnline: online}
	return c.do(ctx, http.MethodPost, "/driver/status", nil, req, nil)
}

// UpdateLocation reports the driver's position.
func (c *Client) UpdateLocation(ctx context.Context, latitude, longitude float64) error {
	req := struct {
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
	}{Latitude: latitude, Longitude: longitude}
	return c.do(ctx, http.MethodPost, "/driver/location", nil, req, nil)
}
