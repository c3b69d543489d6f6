// Package store is the single source of truth for the order data the
// presentation layer renders. It mediates between dispatch facade
// results and consumers, and owns the degraded-mode fallback policy.
package store

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/roaddasher/dasher/internal/api"
	"github.com/roaddasher/dasher/internal/logger"
	"github.com/roaddasher/dasher/internal/types/order"
	"github.com/roaddasher/dasher/internal/types/status"
)

var (
	// ErrNotFound means the order id does not match the store's state.
	ErrNotFound = errors.New("order not found")
	// ErrIllegalTransition means the requested status is not reachable
	// from the order's current status.
	ErrIllegalTransition = errors.New("illegal status transition")
)

// DispatchAPI is the slice of the dispatch facade the store needs.
type DispatchAPI interface {
	AvailableOrders(ctx context.Context) ([]order.Order, error)
	CurrentOrder(ctx context.Context) (*order.Order, error)
	AcceptOrder(ctx context.Context, orderID int64) error
	RejectOrder(ctx context.Context, orderID int64, reason string) error
	UpdateOrderStatus(ctx context.Context, orderID int64, st status.Status) error
	OrderHistory(ctx context.Context, page, limit int) ([]order.Order, error)
}

// Fallback supplies placeholder data when the backend is unreachable.
type Fallback interface {
	AvailableOrders() []order.Order
	CurrentOrder() *order.Order
	HistoryPage(page int) []order.Order
}

// Result reports a mutating operation. The local state change is always
// applied; RemoteErr carries the backend failure, if any, for display.
// An applied mutation is never rolled back automatically.
type Result struct {
	Order     *order.Order
	RemoteErr error
}

// Store holds the driver's current order, the available list and the
// paginated history. All state is serialized behind one mutex; network
// calls never run under the lock, and late completions only apply when
// they still match the store's state.
type Store struct {
	api          DispatchAPI
	fallback     Fallback
	historyLimit int

	mu               sync.Mutex
	current          *order.Order
	available        []order.Order
	history          []order.Order
	nextPage         int
	hasMore          bool
	historyLoading   bool
	availableLoading bool
}

// New builds a Store. fallback may be nil to disable degraded mode.
func New(dispatch DispatchAPI, fallback Fallback) *Store {
	return &Store{
		api:          dispatch,
		fallback:     fallback,
		historyLimit: api.DefaultHistoryLimit,
		nextPage:     1,
		hasMore:      true,
	}
}

// CurrentOrder returns a copy of the current-order slot, nil when empty.
func (s *Store) CurrentOrder() *order.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyOrder(s.current)
}

// SetCurrentOrder replaces the current-order slot unconditionally. The
// server is the authority for the status value; only locally initiated
// transitions are validated, in RequestTransition.
func (s *Store) SetCurrentOrder(o *order.Order) {
	s.mu.Lock()
	s.current = copyOrder(o)
	s.mu.Unlock()
}

// Available returns a copy of the available-orders list.
func (s *Store) Available() []order.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyOrders(s.available)
}

// History returns a copy of the loaded order history.
func (s *Store) History() []order.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyOrders(s.history)
}

// HasMoreHistory reports whether another history page may exist.
func (s *Store) HasMoreHistory() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hasMore
}

// RemoveFromAvailable drops an order from the available list, reporting
// whether it was present.
func (s *Store) RemoveFromAvailable(orderID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.removeFromAvailableLocked(orderID)
}

func (s *Store) removeFromAvailableLocked(orderID int64) bool {
	for i := range s.available {
		if s.available[i].ID == orderID {
			s.available = append(s.available[:i], s.available[i+1:]...)
			return true
		}
	}
	return false
}

// RefreshCurrent fetches the active order. On failure the placeholder
// current order is installed and the error is returned as a
// non-blocking notice.
func (s *Store) RefreshCurrent(ctx context.Context) (*order.Order, error) {
	o, err := s.api.CurrentOrder(ctx)
	if err != nil && s.fallback != nil {
		logger.Log.Warn("current order fetch failed, using placeholder data", zap.Error(err))
		o = s.fallback.CurrentOrder()
	}
	s.mu.Lock()
	s.current = copyOrder(o)
	s.mu.Unlock()
	return copyOrder(o), err
}

// RefreshAvailable fetches the available list. A refresh already in
// flight drops the request and returns the current list unchanged. On
// failure the placeholder dataset is installed and the error returned
// alongside it.
func (s *Store) RefreshAvailable(ctx context.Context) ([]order.Order, error) {
	s.mu.Lock()
	if s.availableLoading {
		defer s.mu.Unlock()
		return copyOrders(s.available), nil
	}
	s.availableLoading = true
	s.mu.Unlock()

	orders, err := s.api.AvailableOrders(ctx)
	if err != nil && s.fallback != nil {
		logger.Log.Warn("available orders fetch failed, using placeholder data", zap.Error(err))
		orders = s.fallback.AvailableOrders()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.availableLoading = false
	s.available = orders
	return copyOrders(orders), err
}

// RefreshHistory reloads the first history page and resets pagination
// (the pull-to-refresh path). Dropped when a history load is in flight.
func (s *Store) RefreshHistory(ctx context.Context) ([]order.Order, error) {
	s.mu.Lock()
	if s.historyLoading {
		defer s.mu.Unlock()
		return copyOrders(s.history), nil
	}
	s.historyLoading = true
	s.mu.Unlock()

	orders, err := s.api.OrderHistory(ctx, 1, s.historyLimit)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.historyLoading = false
	if err != nil {
		if s.fallback != nil {
			logger.Log.Warn("order history fetch failed, using placeholder data", zap.Error(err))
			s.history = s.fallback.HistoryPage(1)
			s.nextPage = 1
			s.hasMore = false
		}
		return copyOrders(s.history), err
	}
	s.history = orders
	s.nextPage = 2
	s.hasMore = len(orders) > 0
	return copyOrders(orders), nil
}

// LoadNextHistoryPage fetches the next history page and returns the
// delta. It is a no-op returning an empty delta when a load is already
// in flight or no more data exists; duplicate triggers from fast
// scrolling are dropped, not queued.
func (s *Store) LoadNextHistoryPage(ctx context.Context) ([]order.Order, error) {
	s.mu.Lock()
	if s.historyLoading || !s.hasMore {
		s.mu.Unlock()
		return nil, nil
	}
	s.historyLoading = true
	page := s.nextPage
	s.mu.Unlock()

	orders, err := s.api.OrderHistory(ctx, page, s.historyLimit)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.historyLoading = false
	if err != nil {
		if page == 1 && s.fallback != nil {
			logger.Log.Warn("order history fetch failed, using placeholder data", zap.Error(err))
			s.history = s.fallback.HistoryPage(1)
			s.hasMore = false
			return copyOrders(s.history), err
		}
		return nil, err
	}
	if len(orders) == 0 {
		s.hasMore = false
		return nil, nil
	}
	s.history = append(s.history, orders...)
	s.nextPage++
	return copyOrders(orders), nil
}

// AcceptOrder claims an available order: it becomes the current order
// with status accepted whatever the backend said, and the backend
// failure, if any, travels in Result.RemoteErr.
func (s *Store) AcceptOrder(ctx context.Context, orderID int64) (*Result, error) {
	s.mu.Lock()
	var picked *order.Order
	for i := range s.available {
		if s.available[i].ID == orderID {
			picked = copyOrder(&s.available[i])
			break
		}
	}
	s.mu.Unlock()
	if picked == nil {
		return nil, ErrNotFound
	}

	remoteErr := s.api.AcceptOrder(ctx, orderID)
	if remoteErr != nil {
		logger.Log.Warn("accept failed remotely, keeping local claim",
			zap.Int64("order_id", orderID), zap.Error(remoteErr))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeFromAvailableLocked(orderID)
	picked.Status = status.StatusAccepted
	s.current = copyOrder(picked)
	return &Result{Order: picked, RemoteErr: remoteErr}, nil
}

// RejectOrder declines an available order and drops it from the list.
// The local removal sticks whatever the backend said.
func (s *Store) RejectOrder(ctx context.Context, orderID int64, reason string) (*Result, error) {
	s.mu.Lock()
	found := false
	for i := range s.available {
		if s.available[i].ID == orderID {
			found = true
			break
		}
	}
	s.mu.Unlock()
	if !found {
		return nil, ErrNotFound
	}

	remoteErr := s.api.RejectOrder(ctx, orderID, reason)
	if remoteErr != nil {
		logger.Log.Warn("reject failed remotely, dropping order locally anyway",
			zap.Int64("order_id", orderID), zap.Error(remoteErr))
	}

	s.mu.Lock()
	s.removeFromAvailableLocked(orderID)
	s.mu.Unlock()
	return &Result{RemoteErr: remoteErr}, nil
}

// RequestTransition advances the current order to the given status.
// Local validation failures (ErrNotFound, ErrIllegalTransition) leave
// the store untouched and never reach the server. Once validation
// passes, the new status is applied locally whether or not the remote
// update succeeded; the remote failure is reported in Result.RemoteErr
// so the caller can show a non-blocking notice. A final status empties
// the current-order slot.
func (s *Store) RequestTransition(ctx context.Context, orderID int64, to status.Status) (*Result, error) {
	s.mu.Lock()
	if s.current == nil || s.current.ID != orderID {
		s.mu.Unlock()
		return nil, ErrNotFound
	}
	if !status.CanTransition(s.current.Status, to) {
		s.mu.Unlock()
		return nil, ErrIllegalTransition
	}
	s.mu.Unlock()

	remoteErr := s.api.UpdateOrderStatus(ctx, orderID, to)
	if remoteErr != nil {
		logger.Log.Warn("status update failed remotely, applying locally anyway",
			zap.Int64("order_id", orderID), zap.String("status", string(to)), zap.Error(remoteErr))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// The slot may have been replaced while the request was in flight.
	if s.current == nil || s.current.ID != orderID {
		return nil, ErrNotFound
	}
	s.current.Status = to
	applied := copyOrder(s.current)
	if to.Final() {
		s.current = nil
	}
	return &Result{Order: applied, RemoteErr: remoteErr}, nil
}

func copyOrder(o *order.Order) *order.Order {
	if o == nil {
		return nil
	}
	cp := *o
	return &cp
}

func copyOrders(orders []order.Order) []order.Order {
	if orders == nil {
		return nil
	}
	out := make([]order.Order, len(orders))
	copy(out, orders)
	return out
}
