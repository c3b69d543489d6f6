package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roaddasher/dasher/internal/auth"
	"github.com/roaddasher/dasher/internal/types/status"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *auth.TokenStore) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	tokens := auth.NewTokenStore()
	return New(srv.URL, tokens, srv.Client()), tokens
}

func TestLoginWithFacebookStoresToken(t *testing.T) {
	c, tokens := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/auth/facebook", r.URL.Path)
		var req map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "fb-token", req["access_token"])
		json.NewEncoder(w).Encode(map[string]string{"access_token": "bearer-123"})
	})

	tok, err := c.LoginWithFacebook(context.Background(), "fb-token")
	require.NoError(t, err)
	assert.Equal(t, "bearer-123", tok)
	assert.Equal(t, "bearer-123", tokens.Token())
}

func TestBearerTokenAttachedWhenPresent(t *testing.T) {
	var gotAuth string
	c, tokens := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode(map[string]any{"orders": []any{}})
	})

	_, err := c.AvailableOrders(context.Background())
	require.NoError(t, err)
	assert.Empty(t, gotAuth, "no token yet, header must be omitted")

	tokens.Set("bearer-123")
	_, err = c.AvailableOrders(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Bearer bearer-123", gotAuth)
}

func TestUnauthorizedMapsToAuthKind(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	})

	_, err := c.CurrentOrder(context.Background())
	require.Error(t, err)
	assert.True(t, IsAuth(err))
}

func TestServerErrorCarriesBody(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "order already taken", http.StatusConflict)
	})

	err := c.AcceptOrder(context.Background(), 1001)
	require.Error(t, err)
	assert.Equal(t, KindServer, KindOf(err))
	var ae *Error
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, http.StatusConflict, ae.StatusCode)
	assert.Equal(t, "order already taken", ae.Body)
}

func TestNetworkErrorKind(t *testing.T) {
	tokens := auth.NewTokenStore()
	c := New("http://127.0.0.1:1", tokens, nil)

	_, err := c.AvailableOrders(context.Background())
	require.Error(t, err)
	assert.Equal(t, KindNetwork, KindOf(err))
}

func TestDecodeErrorKind(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>not json</html>"))
	})

	_, err := c.CurrentOrder(context.Background())
	require.Error(t, err)
	assert.Equal(t, KindDecode, KindOf(err))
}

func TestCurrentOrderAbsent(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	})

	o, err := c.CurrentOrder(context.Background())
	require.NoError(t, err)
	assert.Nil(t, o)
}

func TestCurrentOrderDecodesPayload(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"order":{"id":1001,"status":"accepted"}}`))
	})

	o, err := c.CurrentOrder(context.Background())
	require.NoError(t, err)
	require.NotNil(t, o)
	assert.Equal(t, int64(1001), o.ID)
	assert.Equal(t, status.StatusAccepted, o.Status)
}

func TestOrderHistoryPaging(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/orders/history", r.URL.Path)
		assert.Equal(t, "3", r.URL.Query().Get("page"))
		assert.Equal(t, "20", r.URL.Query().Get("limit"))
		w.Write([]byte(`{"orders":[{"id":7,"status":"delivered"}]}`))
	})

	orders, err := c.OrderHistory(context.Background(), 3, 0)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, status.StatusDelivered, orders[0].Status)
}

func TestUpdateOrderStatusBody(t *testing.T) {
	var got map[string]any
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/orders/status", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	})

	require.NoError(t, c.UpdateOrderStatus(context.Background(), 1001, status.StatusPickingUp))
	assert.Equal(t, float64(1001), got["order_id"])
	assert.Equal(t, "picking_up", got["status"])
}

func TestLogoutClearsTokenEvenOnFailure(t *testing.T) {
	c, tokens := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	tokens.Set("bearer-123")

	err := c.Logout(context.Background())
	require.Error(t, err)
	assert.Empty(t, tokens.Token())
}

func TestEarningsEndpoints(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/earnings/today":
			w.Write([]byte(`{"total_amount":320,"order_count":4,"period":"today"}`))
		case "/earnings/history":
			assert.Equal(t, "2", r.URL.Query().Get("page"))
			w.Write([]byte(`{"records":[{"id":1,"order_id":9,"amount":60,"type":"delivery"}]}`))
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	})

	e, err := c.TodayEarnings(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "NT$ 320", e.FormattedTotal())
	assert.Equal(t, 4, e.OrderCount)

	recs, err := c.EarningsHistory(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "NT$ 60", recs[0].FormattedAmount())
}
