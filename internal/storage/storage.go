// Package storage defines the repositories the dispatch service runs on.
package storage

import (
	"context"
	"errors"

	"github.com/roaddasher/dasher/internal/types/driver"
	"github.com/roaddasher/dasher/internal/types/earnings"
	"github.com/roaddasher/dasher/internal/types/order"
	"github.com/roaddasher/dasher/internal/types/status"
	"github.com/roaddasher/dasher/internal/util/geo"
)

var (
	// ErrNotFound means no row matched the lookup.
	ErrNotFound = errors.New("not found")
	// ErrOrderTaken means another driver claimed the order first.
	ErrOrderTaken = errors.New("order already taken")
	// ErrNotAssigned means the order does not belong to the driver.
	ErrNotAssigned = errors.New("order not assigned to driver")
)

// DriverRepository manages driver identities and presence.
type DriverRepository interface {
	// FindOrCreateByFacebookID resolves the driver for a Facebook
	// identity, creating the row on first login.
	FindOrCreateByFacebookID(ctx context.Context, facebookID, name string) (*driver.Driver, error)
	FindDriver(ctx context.Context, driverID int64) (*driver.Driver, error)
	SetOnline(ctx context.Context, driverID int64, online bool) error
	UpdateLocation(ctx context.Context, driverID int64, loc geo.Coordinate) error
}

// OrderRepository manages dispatch orders and their assignment.
type OrderRepository interface {
	CreateOrder(ctx context.Context, o *order.Order) error
	FindOrder(ctx context.Context, orderID int64) (*order.Order, error)
	// ListAvailable returns unassigned pending orders, minus the ones
	// the driver has rejected.
	ListAvailable(ctx context.Context, driverID int64) ([]order.Order, error)
	// AssignOrder atomically claims a pending order for the driver.
	// Returns ErrOrderTaken when it is already assigned.
	AssignOrder(ctx context.Context, orderID, driverID int64) error
	RejectOrder(ctx context.Context, orderID, driverID int64, reason string) error
	UpdateOrderStatus(ctx context.Context, orderID, driverID int64, st status.Status) error
	// CurrentOrderForDriver returns the driver's in-progress order,
	// nil when there is none.
	CurrentOrderForDriver(ctx context.Context, driverID int64) (*order.Order, error)
	// HistoryForDriver returns one 1-based page of the driver's
	// finished orders, newest first.
	HistoryForDriver(ctx context.Context, driverID int64, page, limit int) ([]order.Order, error)
}

// EarningsRepository manages the earnings ledger.
type EarningsRepository interface {
	CreateRecord(ctx context.Context, driverID int64, rec *earnings.Record) error
	// Summary aggregates the driver's ledger over the period.
	Summary(ctx context.Context, driverID int64, p earnings.Period) (*earnings.Earnings, error)
	// Records returns one 1-based page of ledger lines, newest first.
	Records(ctx context.Context, driverID int64, page, limit int) ([]earnings.Record, error)
}

// Storage bundles all repositories behind one connection.
type Storage interface {
	DriverRepository
	OrderRepository
	EarningsRepository

	Ping(ctx context.Context) error
	Close() error
}
