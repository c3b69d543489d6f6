package dispatch

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roaddasher/dasher/internal/middleware"
	"github.com/roaddasher/dasher/internal/storage/memory"
)

func setupHandler(t *testing.T) (*Handler, *Service, *memory.Storage) {
	t.Helper()
	store := memory.New()
	svc := NewService(store, testSecret, time.Hour)
	return NewHandler(svc), svc, store
}

func authedRequest(method, target, body string, driverID int64) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	return req.WithContext(middleware.ContextWithDriverID(context.Background(), driverID))
}

func TestHandlerLogin(t *testing.T) {
	handler, _, _ := setupHandler(t)

	tests := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{"Valid login", `{"access_token":"fb-token"}`, http.StatusOK},
		{"Empty token", `{"access_token":""}`, http.StatusUnauthorized},
		{"Invalid JSON", `{"access_token":}`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodPost, "/auth/facebook", strings.NewReader(tt.body))
		rec := httptest.NewRecorder()

		handler.Login(rec, req)
		res := rec.Result()
		res.Body.Close()

		if res.StatusCode != tt.wantStatus {
			t.Errorf("%s: got status %d, want %d", tt.name, res.StatusCode, tt.wantStatus)
		}
	}
}

func TestHandlerLoginReturnsToken(t *testing.T) {
	handler, _, _ := setupHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/auth/facebook", strings.NewReader(`{"access_token":"fb-token"}`))
	rec := httptest.NewRecorder()
	handler.Login(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp["access_token"])
}

func TestHandlerAcceptOrder(t *testing.T) {
	handler, svc, store := setupHandler(t)
	orderID := seedOrder(t, store, "RD-1", 60, 0)
	a := login(t, svc, "driver-a")
	b := login(t, svc, "driver-b")
	require.NoError(t, svc.AcceptOrder(context.Background(), a, orderID))

	tests := []struct {
		name       string
		driverID   int64
		body       string
		wantStatus int
	}{
		{"Already taken", b, `{"order_id":1}`, http.StatusConflict},
		{"Unknown order", b, `{"order_id":404}`, http.StatusNotFound},
		{"Invalid JSON", b, `{"order_id":}`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		rec := httptest.NewRecorder()
		handler.AcceptOrder(rec, authedRequest(http.MethodPost, "/orders/accept", tt.body, tt.driverID))
		if rec.Code != tt.wantStatus {
			t.Errorf("%s: got status %d, want %d", tt.name, rec.Code, tt.wantStatus)
		}
	}
}

func TestHandlerUpdateOrderStatus(t *testing.T) {
	handler, svc, store := setupHandler(t)
	orderID := seedOrder(t, store, "RD-1", 60, 0)
	a := login(t, svc, "driver-a")
	require.NoError(t, svc.AcceptOrder(context.Background(), a, orderID))

	tests := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{"Illegal transition", `{"order_id":1,"status":"delivering"}`, http.StatusConflict},
		{"Unknown status", `{"order_id":1,"status":"flying"}`, http.StatusBadRequest},
		{"Valid transition", `{"order_id":1,"status":"picking_up"}`, http.StatusOK},
	}

	for _, tt := range tests {
		rec := httptest.NewRecorder()
		handler.UpdateOrderStatus(rec, authedRequest(http.MethodPost, "/orders/status", tt.body, a))
		if rec.Code != tt.wantStatus {
			t.Errorf("%s: got status %d, want %d", tt.name, rec.Code, tt.wantStatus)
		}
	}
}

func TestHandlerCurrentOrderOmitsEmptySlot(t *testing.T) {
	handler, svc, _ := setupHandler(t)
	a := login(t, svc, "driver-a")

	rec := httptest.NewRecorder()
	handler.CurrentOrder(rec, authedRequest(http.MethodGet, "/orders/current", "", a))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	_, present := resp["order"]
	assert.False(t, present)
}

func TestHandlerAvailableOrdersPayload(t *testing.T) {
	handler, svc, store := setupHandler(t)
	seedOrder(t, store, "RD-1", 60, 30)
	a := login(t, svc, "driver-a")

	rec := httptest.NewRecorder()
	handler.AvailableOrders(rec, authedRequest(http.MethodGet, "/orders/available", "", a))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Orders []struct {
			ID          *int64   `json:"id"`
			Status      *string  `json:"status"`
			DeliveryFee *float64 `json:"delivery_fee"`
		} `json:"orders"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Orders, 1)
	require.NotNil(t, resp.Orders[0].Status)
	assert.Equal(t, "pending", *resp.Orders[0].Status)
	require.NotNil(t, resp.Orders[0].DeliveryFee)
	assert.Equal(t, 60.0, *resp.Orders[0].DeliveryFee)
}
