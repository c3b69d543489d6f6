// Package dispatch implements the server side of order assignment:
// driver login, the available pool, status progression and the
// earnings ledger.
package dispatch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/shopspring/decimal"

	"github.com/roaddasher/dasher/internal/storage"
	"github.com/roaddasher/dasher/internal/types/earnings"
	"github.com/roaddasher/dasher/internal/types/order"
	"github.com/roaddasher/dasher/internal/types/status"
	"github.com/roaddasher/dasher/internal/util/geo"
)

var (
	ErrInvalidToken      = errors.New("invalid access token")
	ErrInvalidStatus     = errors.New("unknown order status")
	ErrIllegalTransition = errors.New("illegal status transition")
	ErrNotFound          = storage.ErrNotFound
	ErrOrderTaken        = storage.ErrOrderTaken
	ErrNotAssigned       = storage.ErrNotAssigned
)

type Service struct {
	store     storage.Storage
	jwtSecret []byte
	jwtTTL    time.Duration
}

func NewService(store storage.Storage, jwtSecret []byte, jwtTTL time.Duration) *Service {
	return &Service{store: store, jwtSecret: jwtSecret, jwtTTL: jwtTTL}
}

// LoginWithFacebook resolves the driver behind a Facebook access token
// and issues a bearer token for the API. The Facebook Graph lookup is
// out of scope here; the identity is derived from the token itself, so
// the same token always maps to the same driver.
func (s *Service) LoginWithFacebook(ctx context.Context, accessToken string) (string, error) {
	if accessToken == "" {
		return "", ErrInvalidToken
	}
	sum := sha256.Sum256([]byte(accessToken))
	facebookID := hex.EncodeToString(sum[:8])
	name := "Driver " + facebookID[:6]

	d, err := s.store.FindOrCreateByFacebookID(ctx, facebookID, name)
	if err != nil {
		return "", err
	}

	now := time.Now().UTC()
	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(d.ID, 10),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.jwtTTL)),
		IssuedAt:  jwt.NewNumericDate(now),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}

func (s *Service) AvailableOrders(ctx context.Context, driverID int64) ([]order.Order, error) {
	return s.store.ListAvailable(ctx, driverID)
}

func (s *Service) CurrentOrder(ctx context.Context, driverID int64) (*order.Order, error) {
	return s.store.CurrentOrderForDriver(ctx, driverID)
}

// AcceptOrder claims an order for the driver. The claim is atomic: of
// two drivers accepting the same order, exactly one wins and the other
// gets ErrOrderTaken.
func (s *Service) AcceptOrder(ctx context.Context, driverID, orderID int64) error {
	return s.store.AssignOrder(ctx, orderID, driverID)
}

// RejectOrder hides an available order from this driver. Other drivers
// still see it.
func (s *Service) RejectOrder(ctx context.Context, driverID, orderID int64, reason string) error {
	if _, err := s.store.FindOrder(ctx, orderID); err != nil {
		return err
	}
	return s.store.RejectOrder(ctx, orderID, driverID, reason)
}

// UpdateOrderStatus moves the driver's order along the lifecycle. The
// transition is validated against the order's stored status, and a
// delivery completion writes the earnings records.
func (s *Service) UpdateOrderStatus(ctx context.Context, driverID, orderID int64, raw string) error {
	st, ok := status.Parse(raw)
	if !ok {
		return ErrInvalidStatus
	}
	o, err := s.store.FindOrder(ctx, orderID)
	if err != nil {
		return err
	}
	if !status.CanTransition(o.Status, st) {
		return ErrIllegalTransition
	}
	if err := s.store.UpdateOrderStatus(ctx, orderID, driverID, st); err != nil {
		return err
	}
	if st == status.StatusDelivered {
		return s.recordDeliveryEarnings(ctx, driverID, o)
	}
	return nil
}

func (s *Service) recordDeliveryEarnings(ctx context.Context, driverID int64, o *order.Order) error {
	fee := decimal.Zero
	if o.DeliveryFee != nil {
		fee = *o.DeliveryFee
	}
	rec := &earnings.Record{
		OrderID:     o.ID,
		Amount:      fee,
		Type:        earnings.TypeDelivery,
		Description: fmt.Sprintf("Delivery %s", o.Number),
	}
	if err := s.store.CreateRecord(ctx, driverID, rec); err != nil {
		return err
	}
	if o.Tip != nil && o.Tip.IsPositive() {
		tip := &earnings.Record{
			OrderID: o.ID,
			Amount:  *o.Tip,
			Type:    earnings.TypeTip,
		}
		if err := s.store.CreateRecord(ctx, driverID, tip); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) OrderHistory(ctx context.Context, driverID int64, page, limit int) ([]order.Order, error) {
	return s.store.HistoryForDriver(ctx, driverID, page, limit)
}

func (s *Service) EarningsSummary(ctx context.Context, driverID int64, p earnings.Period) (*earnings.Earnings, error) {
	return s.store.Summary(ctx, driverID, p)
}

func (s *Service) EarningRecords(ctx context.Context, driverID int64, page, limit int) ([]earnings.Record, error) {
	return s.store.Records(ctx, driverID, page, limit)
}

func (s *Service) SetOnline(ctx context.Context, driverID int64, online bool) error {
	return s.store.SetOnline(ctx, driverID, online)
}

func (s *Service) ReportLocation(ctx context.Context, driverID int64, latitude, longitude float64) error {
	return s.store.UpdateLocation(ctx, driverID, geo.Coordinate{Latitude: latitude, Longitude: longitude})
}
