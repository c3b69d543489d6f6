// Package memory is an in-process Storage used for local development
// and tests. Data lives for the lifetime of the process.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/roaddasher/dasher/internal/demo"
	"github.com/roaddasher/dasher/internal/storage"
	"github.com/roaddasher/dasher/internal/types/driver"
	"github.com/roaddasher/dasher/internal/types/earnings"
	"github.com/roaddasher/dasher/internal/types/order"
	"github.com/roaddasher/dasher/internal/types/status"
	"github.com/roaddasher/dasher/internal/util/geo"
)

type orderRec struct {
	order      order.Order
	driverID   int64
	rejectedBy map[int64]struct{}
}

type Storage struct {
	mu           sync.Mutex
	nextDriverID int64
	nextOrderID  int64
	nextRecordID int64
	drivers      map[int64]*driver.Driver
	byFacebook   map[string]int64
	orders       map[int64]*orderRec
	records      map[int64][]earnings.Record
}

var _ storage.Storage = (*Storage)(nil)

func New() *Storage {
	return &Storage{
		nextDriverID: 1,
		nextOrderID:  1,
		nextRecordID: 1,
		drivers:      make(map[int64]*driver.Driver),
		byFacebook:   make(map[string]int64),
		orders:       make(map[int64]*orderRec),
		records:      make(map[int64][]earnings.Record),
	}
}

// NewWithDemoData returns a Storage preloaded with the demo dataset's
// pending orders, so a fresh server has something to dispatch.
func NewWithDemoData() *Storage {
	s := New()
	for _, o := range (demo.Dataset{}).AvailableOrders() {
		o.ID = 0
		o.Placeholder = false
		_ = s.CreateOrder(context.Background(), &o)
	}
	return s
}

func (s *Storage) Ping(ctx context.Context) error { return nil }
func (s *Storage) Close() error                   { return nil }

func (s *Storage) FindOrCreateByFacebookID(ctx context.Context, facebookID, name string) (*driver.Driver, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := s.byFacebook[facebookID]; ok {
		d := *s.drivers[id]
		return &d, nil
	}
	d := &driver.Driver{
		ID:         s.nextDriverID,
		FacebookID: facebookID,
		Name:       name,
		CreatedAt:  time.Now(),
	}
	s.nextDriverID++
	s.drivers[d.ID] = d
	s.byFacebook[facebookID] = d.ID
	cp := *d
	return &cp, nil
}

func (s *Storage) FindDriver(ctx context.Context, driverID int64) (*driver.Driver, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.drivers[driverID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *d
	return &cp, nil
}

func (s *Storage) SetOnline(ctx context.Context, driverID int64, online bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.drivers[driverID]
	if !ok {
		return storage.ErrNotFound
	}
	d.Online = online
	now := time.Now()
	d.LastSeenAt = &now
	return nil
}

func (s *Storage) UpdateLocation(ctx context.Context, driverID int64, loc geo.Coordinate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.drivers[driverID]
	if !ok {
		return storage.ErrNotFound
	}
	d.Location = &loc
	now := time.Now()
	d.LastSeenAt = &now
	return nil
}

func (s *Storage) CreateOrder(ctx context.Context, o *order.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if o.ID == 0 {
		o.ID = s.nextOrderID
		s.nextOrderID++
	} else if o.ID >= s.nextOrderID {
		s.nextOrderID = o.ID + 1
	}
	s.orders[o.ID] = &orderRec{order: *o, rejectedBy: make(map[int64]struct{})}
	return nil
}

func (s *Storage) FindOrder(ctx context.Context, orderID int64) (*order.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.orders[orderID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := rec.order
	return &cp, nil
}

func (s *Storage) ListAvailable(ctx context.Context, driverID int64) ([]order.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []order.Order
	for _, rec := range s.orders {
		if rec.order.Status != status.StatusPending || rec.driverID != 0 {
			continue
		}
		if _, rejected := rec.rejectedBy[driverID]; rejected {
			continue
		}
		out = append(out, rec.order)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Storage) AssignOrder(ctx context.Context, orderID, driverID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.orders[orderID]
	if !ok {
		return storage.ErrNotFound
	}
	if rec.driverID != 0 || rec.order.Status != status.StatusPending {
		return storage.ErrOrderTaken
	}
	rec.driverID = driverID
	rec.order.Status = status.StatusAccepted
	return nil
}

func (s *Storage) RejectOrder(ctx context.Context, orderID, driverID int64, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.orders[orderID]
	if !ok {
		return storage.ErrNotFound
	}
	rec.rejectedBy[driverID] = struct{}{}
	return nil
}

func (s *Storage) UpdateOrderStatus(ctx context.Context, orderID, driverID int64, st status.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.orders[orderID]
	if !ok {
		return storage.ErrNotFound
	}
	if rec.driverID != driverID {
		return storage.ErrNotAssigned
	}
	rec.order.Status = st
	return nil
}

func (s *Storage) CurrentOrderForDriver(ctx context.Context, driverID int64) (*order.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range s.orders {
		if rec.driverID == driverID && rec.order.Status.InProgress() {
			cp := rec.order
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *Storage) HistoryForDriver(ctx context.Context, driverID int64, page, limit int) ([]order.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var all []order.Order
	for _, rec := range s.orders {
		if rec.driverID == driverID && rec.order.Status.Final() {
			all = append(all, rec.order)
		}
	}
	sort.Slice(all, func(i, j int) bool {
		ti, tj := timeOrZero(all[i].CreatedAt), timeOrZero(all[j].CreatedAt)
		if ti.Equal(tj) {
			return all[i].ID > all[j].ID
		}
		return ti.After(tj)
	})
	return pageSlice(all, page, limit), nil
}

func (s *Storage) CreateRecord(ctx context.Context, driverID int64, rec *earnings.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec.ID = s.nextRecordID
	s.nextRecordID++
	if rec.CreatedAt == nil {
		now := time.Now()
		rec.CreatedAt = &now
	}
	s.records[driverID] = append(s.records[driverID], *rec)
	return nil
}

func (s *Storage) Summary(ctx context.Context, driverID int64, p earnings.Period) (*earnings.Earnings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	start, end, bounded := p.Range(time.Now())
	e := &earnings.Earnings{Period: p}
	if bounded {
		e.Start, e.End = &start, &end
	}
	seen := make(map[int64]struct{})
	for _, rec := range s.records[driverID] {
		at := timeOrZero(rec.CreatedAt)
		if bounded && (at.Before(start) || !at.Before(end)) {
			continue
		}
		e.Total = e.Total.Add(rec.Amount)
		switch rec.Type {
		case earnings.TypeDelivery:
			e.DeliveryFees = e.DeliveryFees.Add(rec.Amount)
			if rec.OrderID != 0 {
				seen[rec.OrderID] = struct{}{}
			}
		case earnings.TypeTip:
			e.Tips = e.Tips.Add(rec.Amount)
		case earnings.TypeBonus:
			e.Bonus = e.Bonus.Add(rec.Amount)
		}
	}
	e.OrderCount = len(seen)
	return e, nil
}

func (s *Storage) Records(ctx context.Context, driverID int64, page, limit int) ([]earnings.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	all := make([]earnings.Record, len(s.records[driverID]))
	copy(all, s.records[driverID])
	sort.Slice(all, func(i, j int) bool {
		ti, tj := timeOrZero(all[i].CreatedAt), timeOrZero(all[j].CreatedAt)
		if ti.Equal(tj) {
			return all[i].ID > all[j].ID
		}
		return ti.After(tj)
	})
	return pageSlice(all, page, limit), nil
}

func timeOrZero(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}

func pageSlice[T any](all []T, page, limit int) []T {
	if page < 1 || limit < 1 {
		return nil
	}
	from := (page - 1) * limit
	if from >= len(all) {
		return nil
	}
	to := from + limit
	if to > len(all) {
		to = len(all)
	}
	out := make([]T, to-from)
	copy(out, all[from:to])
	return out
}
