package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roaddasher/dasher/internal/demo"
	"github.com/roaddasher/dasher/internal/types/order"
	"github.com/roaddasher/dasher/internal/types/status"
)

type mockAPI struct {
	mu           sync.Mutex
	historyCalls int

	availableFn    func(ctx context.Context) ([]order.Order, error)
	currentFn      func(ctx context.Context) (*order.Order, error)
	acceptFn       func(ctx context.Context, orderID int64) error
	rejectFn       func(ctx context.Context, orderID int64, reason string) error
	updateStatusFn func(ctx context.Context, orderID int64, st status.Status) error
	historyFn      func(ctx context.Context, page, limit int) ([]order.Order, error)
}

func (m *mockAPI) AvailableOrders(ctx context.Context) ([]order.Order, error) {
	if m.availableFn == nil {
		return nil, nil
	}
	return m.availableFn(ctx)
}

func (m *mockAPI) CurrentOrder(ctx context.Context) (*order.Order, error) {
	if m.currentFn == nil {
		return nil, nil
	}
	return m.currentFn(ctx)
}

func (m *mockAPI) AcceptOrder(ctx context.Context, orderID int64) error {
	if m.acceptFn == nil {
		return nil
	}
	return m.acceptFn(ctx, orderID)
}

func (m *mockAPI) RejectOrder(ctx context.Context, orderID int64, reason string) error {
	if m.rejectFn == nil {
		return nil
	}
	return m.rejectFn(ctx, orderID, reason)
}

func (m *mockAPI) UpdateOrderStatus(ctx context.Context, orderID int64, st status.Status) error {
	if m.updateStatusFn == nil {
		return nil
	}
	return m.updateStatusFn(ctx, orderID, st)
}

func (m *mockAPI) OrderHistory(ctx context.Context, page, limit int) ([]order.Order, error) {
	m.mu.Lock()
	m.historyCalls++
	m.mu.Unlock()
	if m.historyFn == nil {
		return nil, nil
	}
	return m.historyFn(ctx, page, limit)
}

func (m *mockAPI) historyCallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.historyCalls
}

func TestRequestTransitionIllegal(t *testing.T) {
	s := New(&mockAPI{}, nil)
	s.SetCurrentOrder(&order.Order{ID: 1001, Status: status.StatusAccepted})

	// accepted's next step is picking_up, not delivering
	_, err := s.RequestTransition(context.Background(), 1001, status.StatusDelivering)
	assert.Equal(t, ErrIllegalTransition, err)
	assert.Equal(t, status.StatusAccepted, s.CurrentOrder().Status)
}

func TestRequestTransitionNotFound(t *testing.T) {
	s := New(&mockAPI{}, nil)
	s.SetCurrentOrder(&order.Order{ID: 1001, Status: status.StatusAccepted})

	_, err := s.RequestTransition(context.Background(), 2002, status.StatusPickingUp)
	assert.Equal(t, ErrNotFound, err)
}

func TestRequestTransitionSuccess(t *testing.T) {
	var sentStatus status.Status
	m := &mockAPI{
		updateStatusFn: func(ctx context.Context, orderID int64, st status.Status) error {
			sentStatus = st
			return nil
		},
	}
	s := New(m, nil)
	s.SetCurrentOrder(&order.Order{ID: 1001, Status: status.StatusAccepted})

	res, err := s.RequestTransition(context.Background(), 1001, status.StatusPickingUp)
	require.NoError(t, err)
	assert.NoError(t, res.RemoteErr)
	assert.Equal(t, status.StatusPickingUp, res.Order.Status)
	assert.Equal(t, status.StatusPickingUp, sentStatus)
	assert.Equal(t, status.StatusPickingUp, s.CurrentOrder().Status)
}

func TestRequestTransitionRemoteFailureStillApplies(t *testing.T) {
	remoteErr := errors.New("backend down")
	m := &mockAPI{
		updateStatusFn: func(ctx context.Context, orderID int64, st status.Status) error {
			return remoteErr
		},
	}
	s := New(m, nil)
	s.SetCurrentOrder(&order.Order{ID: 1001, Status: status.StatusAccepted})

	res, err := s.RequestTransition(context.Background(), 1001, status.StatusPickingUp)
	require.NoError(t, err)
	assert.Equal(t, remoteErr, res.RemoteErr)
	assert.Equal(t, status.StatusPickingUp, res.Order.Status)
	// optimistic apply sticks despite the remote failure
	assert.Equal(t, status.StatusPickingUp, s.CurrentOrder().Status)
}

func TestRequestTransitionToDeliveredEmptiesSlot(t *testing.T) {
	s := New(&mockAPI{}, nil)
	s.SetCurrentOrder(&order.Order{ID: 1001, Status: status.StatusArrived})

	res, err := s.RequestTransition(context.Background(), 1001, status.StatusDelivered)
	require.NoError(t, err)
	assert.Equal(t, status.StatusDelivered, res.Order.Status)
	assert.Nil(t, s.CurrentOrder())
}

func TestRequestTransitionCancelFromAnyNonTerminal(t *testing.T) {
	s := New(&mockAPI{}, nil)
	s.SetCurrentOrder(&order.Order{ID: 1001, Status: status.StatusDelivering})

	res, err := s.RequestTransition(context.Background(), 1001, status.StatusCancelled)
	require.NoError(t, err)
	assert.Equal(t, status.StatusCancelled, res.Order.Status)
	assert.Nil(t, s.CurrentOrder())
}

func TestAcceptOrderMovesToCurrent(t *testing.T) {
	m := &mockAPI{
		availableFn: func(ctx context.Context) ([]order.Order, error) {
			return []order.Order{
				{ID: 1, Status: status.StatusPending},
				{ID: 2, Status: status.StatusPending},
			}, nil
		},
	}
	s := New(m, nil)
	_, err := s.RefreshAvailable(context.Background())
	require.NoError(t, err)

	res, err := s.AcceptOrder(context.Background(), 2)
	require.NoError(t, err)
	assert.NoError(t, res.RemoteErr)
	assert.Equal(t, status.StatusAccepted, res.Order.Status)

	cur := s.CurrentOrder()
	require.NotNil(t, cur)
	assert.Equal(t, int64(2), cur.ID)
	require.Len(t, s.Available(), 1)
	assert.Equal(t, int64(1), s.Available()[0].ID)
}

func TestAcceptOrderRemoteFailureKeepsClaim(t *testing.T) {
	remoteErr := errors.New("conflict")
	m := &mockAPI{
		availableFn: func(ctx context.Context) ([]order.Order, error) {
			return []order.Order{{ID: 5, Status: status.StatusPending}}, nil
		},
		acceptFn: func(ctx context.Context, orderID int64) error { return remoteErr },
	}
	s := New(m, nil)
	_, err := s.RefreshAvailable(context.Background())
	require.NoError(t, err)

	res, err := s.AcceptOrder(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, remoteErr, res.RemoteErr)
	require.NotNil(t, s.CurrentOrder())
	assert.Empty(t, s.Available())
}

func TestAcceptOrderNotFound(t *testing.T) {
	s := New(&mockAPI{}, nil)
	_, err := s.AcceptOrder(context.Background(), 99)
	assert.Equal(t, ErrNotFound, err)
}

func TestRejectOrderDropsFromAvailable(t *testing.T) {
	m := &mockAPI{
		availableFn: func(ctx context.Context) ([]order.Order, error) {
			return []order.Order{{ID: 7, Status: status.StatusPending}}, nil
		},
		rejectFn: func(ctx context.Context, orderID int64, reason string) error {
			assert.Equal(t, "too far", reason)
			return errors.New("backend down")
		},
	}
	s := New(m, nil)
	_, err := s.RefreshAvailable(context.Background())
	require.NoError(t, err)

	res, err := s.RejectOrder(context.Background(), 7, "too far")
	require.NoError(t, err)
	assert.Error(t, res.RemoteErr)
	assert.Empty(t, s.Available())
}

func TestRefreshAvailableFallsBackToPlaceholder(t *testing.T) {
	m := &mockAPI{
		availableFn: func(ctx context.Context) ([]order.Order, error) {
			return nil, errors.New("no route to host")
		},
	}
	s := New(m, demo.Dataset{})

	orders, err := s.RefreshAvailable(context.Background())
	assert.Error(t, err)
	require.NotEmpty(t, orders)
	for _, o := range orders {
		assert.True(t, o.Placeholder, "fallback data must be marked")
	}
	assert.NotEmpty(t, s.Available())
}

func TestRefreshCurrentFallsBackToPlaceholder(t *testing.T) {
	m := &mockAPI{
		currentFn: func(ctx context.Context) (*order.Order, error) {
			return nil, errors.New("timeout")
		},
	}
	s := New(m, demo.Dataset{})

	o, err := s.RefreshCurrent(context.Background())
	assert.Error(t, err)
	require.NotNil(t, o)
	assert.True(t, o.Placeholder)
}

func TestLoadNextHistoryPageSingleFlight(t *testing.T) {
	release := make(chan struct{})
	m := &mockAPI{
		historyFn: func(ctx context.Context, page, limit int) ([]order.Order, error) {
			<-release
			return []order.Order{{ID: int64(page), Status: status.StatusDelivered}}, nil
		},
	}
	s := New(m, nil)

	var wg sync.WaitGroup
	wg.Add(2)
	for i := 0; i < 2; i++ {
		go func() {
			defer wg.Done()
			_, _ = s.LoadNextHistoryPage(context.Background())
		}()
	}
	// let both goroutines hit the guard before releasing the fetch
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, 1, m.historyCallCount(), "duplicate load must be dropped, not queued")
	assert.Len(t, s.History(), 1)
}

func TestLoadNextHistoryPageStopsOnEmptyPage(t *testing.T) {
	m := &mockAPI{
		historyFn: func(ctx context.Context, page, limit int) ([]order.Order, error) {
			if page == 1 {
				return []order.Order{{ID: 1, Status: status.StatusDelivered}}, nil
			}
			return nil, nil
		},
	}
	s := New(m, nil)

	delta, err := s.LoadNextHistoryPage(context.Background())
	require.NoError(t, err)
	assert.Len(t, delta, 1)
	assert.True(t, s.HasMoreHistory())

	delta, err = s.LoadNextHistoryPage(context.Background())
	require.NoError(t, err)
	assert.Empty(t, delta)
	assert.False(t, s.HasMoreHistory())

	// further loads are no-ops with no list change and no request
	calls := m.historyCallCount()
	delta, err = s.LoadNextHistoryPage(context.Background())
	require.NoError(t, err)
	assert.Empty(t, delta)
	assert.Equal(t, calls, m.historyCallCount())
	assert.Len(t, s.History(), 1)
}

func TestRefreshHistoryResetsPagination(t *testing.T) {
	m := &mockAPI{
		historyFn: func(ctx context.Context, page, limit int) ([]order.Order, error) {
			return []order.Order{{ID: int64(page * 10), Status: status.StatusDelivered}}, nil
		},
	}
	s := New(m, nil)

	_, err := s.LoadNextHistoryPage(context.Background())
	require.NoError(t, err)
	_, err = s.LoadNextHistoryPage(context.Background())
	require.NoError(t, err)
	assert.Len(t, s.History(), 2)

	page1, err := s.RefreshHistory(context.Background())
	require.NoError(t, err)
	assert.Len(t, page1, 1)
	assert.Equal(t, int64(10), page1[0].ID)
	assert.Len(t, s.History(), 1)

	// pagination resumes from page 2 after the refresh
	delta, err := s.LoadNextHistoryPage(context.Background())
	require.NoError(t, err)
	require.Len(t, delta, 1)
	assert.Equal(t, int64(20), delta[0].ID)
}

func TestRefreshHistoryFallsBackToPlaceholder(t *testing.T) {
	m := &mockAPI{
		historyFn: func(ctx context.Context, page, limit int) ([]order.Order, error) {
			return nil, errors.New("server error")
		},
	}
	s := New(m, demo.Dataset{})

	hist, err := s.RefreshHistory(context.Background())
	assert.Error(t, err)
	require.NotEmpty(t, hist)
	assert.True(t, hist[0].Placeholder)
	assert.False(t, s.HasMoreHistory())
}
