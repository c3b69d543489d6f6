// Package postgres backs the dispatch service with PostgreSQL via the
// pgx stdlib driver.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/roaddasher/dasher/internal/storage"
	"github.com/roaddasher/dasher/internal/types/driver"
	"github.com/roaddasher/dasher/internal/types/earnings"
	"github.com/roaddasher/dasher/internal/types/order"
	"github.com/roaddasher/dasher/internal/types/status"
	"github.com/roaddasher/dasher/internal/util/geo"

	_ "github.com/jackc/pgx/v5/stdlib"
)

type Storage struct {
	db *sql.DB
}

var _ storage.Storage = (*Storage)(nil)

func New(dsn string) (*Storage, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	s := &Storage{db: db}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping db: %w", err)
	}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Storage) initSchema() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS drivers (
            id SERIAL PRIMARY KEY,
            facebook_id TEXT UNIQUE NOT NULL,
            name TEXT NOT NULL DEFAULT '',
            is_online BOOLEAN NOT NULL DEFAULT FALSE,
            latitude DOUBLE PRECISION,
            longitude DOUBLE PRECISION,
            last_seen_at TIMESTAMPTZ,
            created_at TIMESTAMPTZ NOT NULL
        )`,
		`CREATE TABLE IF NOT EXISTS orders (
            id SERIAL PRIMARY KEY,
            number TEXT UNIQUE NOT NULL,
            driver_id INT REFERENCES drivers(id),
            status TEXT NOT NULL,
            customer JSONB NOT NULL DEFAULT '{}',
            restaurant JSONB NOT NULL DEFAULT '{}',
            items JSONB NOT NULL DEFAULT '[]',
            subtotal NUMERIC,
            delivery_fee NUMERIC,
            tip NUMERIC,
            total NUMERIC,
            note TEXT NOT NULL DEFAULT '',
            distance_km DOUBLE PRECISION,
            created_at TIMESTAMPTZ NOT NULL,
            estimated_delivery_at TIMESTAMPTZ
        )`,
		`CREATE TABLE IF NOT EXISTS order_rejections (
            order_id INT NOT NULL REFERENCES orders(id),
            driver_id INT NOT NULL REFERENCES drivers(id),
            reason TEXT NOT NULL DEFAULT '',
            created_at TIMESTAMPTZ NOT NULL,
            PRIMARY KEY (order_id, driver_id)
        )`,
		`CREATE TABLE IF NOT EXISTS earning_records (
            id SERIAL PRIMARY KEY,
            driver_id INT NOT NULL REFERENCES drivers(id),
            order_id BIGINT NOT NULL DEFAULT 0,
            amount NUMERIC NOT NULL,
            type TEXT NOT NULL,
            description TEXT NOT NULL DEFAULT '',
            created_at TIMESTAMPTZ NOT NULL
        )`,
	}
	for _, q := range stmts {
		if _, err := s.db.Exec(q); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}

func (s *Storage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Storage) Close() error {
	return s.db.Close()
}

func (s *Storage) FindOrCreateByFacebookID(ctx context.Context, facebookID, name string) (*driver.Driver, error) {
	const q = `
        INSERT INTO drivers (facebook_id, name, created_at)
        VALUES ($1, $2, $3)
        ON CONFLICT (facebook_id) DO UPDATE SET facebook_id = EXCLUDED.facebook_id
        RETURNING id, facebook_id, name, is_online, created_at`
	d := &driver.Driver{}
	err := s.db.QueryRowContext(ctx, q, facebookID, name, time.Now()).
		Scan(&d.ID, &d.FacebookID, &d.Name, &d.Online, &d.CreatedAt)
	if err != nil {
		return nil, err
	}
	return d, nil
}

func (s *Storage) FindDriver(ctx context.Context, driverID int64) (*driver.Driver, error) {
	const q = `
        SELECT id, facebook_id, name, is_online, latitude, longitude, last_seen_at, created_at
        FROM drivers WHERE id = $1`
	d := &driver.Driver{}
	var lat, lon sql.NullFloat64
	var lastSeen sql.NullTime
	err := s.db.QueryRowContext(ctx, q, driverID).
		Scan(&d.ID, &d.FacebookID, &d.Name, &d.Online, &lat, &lon, &lastSeen, &d.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if lat.Valid && lon.Valid {
		d.Location = &geo.Coordinate{Latitude: lat.Float64, Longitude: lon.Float64}
	}
	if lastSeen.Valid {
		d.LastSeenAt = &lastSeen.Time
	}
	return d, nil
}

func (s *Storage) SetOnline(ctx context.Context, driverID int64, online bool) error {
	const q = `UPDATE drivers SET is_online = $1, last_seen_at = $2 WHERE id = $3`
	res, err := s.db.ExecContext(ctx, q, online, time.Now(), driverID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (s *Storage) UpdateLocation(ctx context.Context, driverID int64, loc geo.Coordinate) error {
	const q = `UPDATE drivers SET latitude = $1, longitude = $2, last_seen_at = $3 WHERE id = $4`
	res, err := s.db.ExecContext(ctx, q, loc.Latitude, loc.Longitude, time.Now(), driverID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (s *Storage) CreateOrder(ctx context.Context, o *order.Order) error {
	customer, err := json.Marshal(o.Customer)
	if err != nil {
		return err
	}
	restaurant, err := json.Marshal(o.Restaurant)
	if err != nil {
		return err
	}
	items, err := json.Marshal(o.Items)
	if err != nil {
		return err
	}
	created := time.Now()
	if o.CreatedAt != nil {
		created = *o.CreatedAt
	}
	const q = `
        INSERT INTO orders
            (number, status, customer, restaurant, items,
             subtotal, delivery_fee, tip, total, note, distance_km,
             created_at, estimated_delivery_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
        RETURNING id`
	return s.db.QueryRowContext(ctx, q,
		o.Number, string(o.Status), customer, restaurant, items,
		nullDec(o.Subtotal), nullDec(o.DeliveryFee), nullDec(o.Tip), nullDec(o.Total),
		o.Note, nullFloat(o.DistanceKm), created, nullTime(o.EstimatedDelivery),
	).Scan(&o.ID)
}

const orderColumns = `
    id, number, status, customer, restaurant, items,
    subtotal, delivery_fee, tip, total, note, distance_km,
    created_at, estimated_delivery_at`

func (s *Storage) FindOrder(ctx context.Context, orderID int64) (*order.Order, error) {
	q := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	o, err := scanOrder(s.db.QueryRowContext(ctx, q, orderID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	return o, err
}

func (s *Storage) ListAvailable(ctx context.Context, driverID int64) ([]order.Order, error) {
	q := `
        SELECT ` + orderColumns + `
        FROM orders
        WHERE status = 'pending' AND driver_id IS NULL
          AND id NOT IN (SELECT order_id FROM order_rejections WHERE driver_id = $1)
        ORDER BY id`
	rows, err := s.db.QueryContext(ctx, q, driverID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectOrders(rows)
}

func (s *Storage) AssignOrder(ctx context.Context, orderID, driverID int64) error {
	const q = `
        UPDATE orders SET driver_id = $1, status = 'accepted'
        WHERE id = $2 AND driver_id IS NULL AND status = 'pending'`
	res, err := s.db.ExecContext(ctx, q, driverID, orderID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 1 {
		return nil
	}
	// Lost the race or the order never existed.
	var exists bool
	if err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)`, orderID).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return storage.ErrNotFound
	}
	return storage.ErrOrderTaken
}

func (s *Storage) RejectOrder(ctx context.Context, orderID, driverID int64, reason string) error {
	const q = `
        INSERT INTO order_rejections (order_id, driver_id, reason, created_at)
        VALUES ($1, $2, $3, $4)
        ON CONFLICT (order_id, driver_id) DO NOTHING`
	_, err := s.db.ExecContext(ctx, q, orderID, driverID, reason, time.Now())
	return err
}

func (s *Storage) UpdateOrderStatus(ctx context.Context, orderID, driverID int64, st status.Status) error {
	const q = `UPDATE orders SET status = $1 WHERE id = $2 AND driver_id = $3`
	res, err := s.db.ExecContext(ctx, q, string(st), orderID, driverID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return storage.ErrNotAssigned
	}
	return nil
}

func (s *Storage) CurrentOrderForDriver(ctx context.Context, driverID int64) (*order.Order, error) {
	q := `
        SELECT ` + orderColumns + `
        FROM orders
        WHERE driver_id = $1 AND status NOT IN ('pending', 'delivered', 'cancelled')
        ORDER BY created_at DESC
        LIMIT 1`
	o, err := scanOrder(s.db.QueryRowContext(ctx, q, driverID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return o, err
}

func (s *Storage) HistoryForDriver(ctx context.Context, driverID int64, page, limit int) ([]order.Order, error) {
	if page < 1 || limit < 1 {
		return nil, nil
	}
	q := `
        SELECT ` + orderColumns + `
        FROM orders
        WHERE driver_id = $1 AND status IN ('delivered', 'cancelled')
        ORDER BY created_at DESC, id DESC
        LIMIT $2 OFFSET $3`
	rows, err := s.db.QueryContext(ctx, q, driverID, limit, (page-1)*limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectOrders(rows)
}

func (s *Storage) CreateRecord(ctx context.Context, driverID int64, rec *earnings.Record) error {
	created := time.Now()
	if rec.CreatedAt != nil {
		created = *rec.CreatedAt
	} else {
		rec.CreatedAt = &created
	}
	const q = `
        INSERT INTO earning_records (driver_id, order_id, amount, type, description, created_at)
        VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`
	return s.db.QueryRowContext(ctx, q,
		driverID, rec.OrderID, rec.Amount, string(rec.Type), rec.Description, created,
	).Scan(&rec.ID)
}

func (s *Storage) Summary(ctx context.Context, driverID int64, p earnings.Period) (*earnings.Earnings, error) {
	start, end, bounded := p.Range(time.Now())
	e := &earnings.Earnings{Period: p}
	if bounded {
		e.Start, e.End = &start, &end
	}
	q := `
        SELECT
            COALESCE(SUM(amount), 0),
            COALESCE(SUM(amount) FILTER (WHERE type = 'delivery'), 0),
            COALESCE(SUM(amount) FILTER (WHERE type = 'tip'), 0),
            COALESCE(SUM(amount) FILTER (WHERE type = 'bonus'), 0),
            COUNT(DISTINCT order_id) FILTER (WHERE type = 'delivery' AND order_id <> 0)
        FROM earning_records
        WHERE driver_id = $1`
	args := []any{driverID}
	if bounded {
		q += ` AND created_at >= $2 AND created_at < $3`
		args = append(args, start, end)
	}
	err := s.db.QueryRowContext(ctx, q, args...).
		Scan(&e.Total, &e.DeliveryFees, &e.Tips, &e.Bonus, &e.OrderCount)
	if err != nil {
		return nil, err
	}
	return e, nil
}

func (s *Storage) Records(ctx context.Context, driverID int64, page, limit int) ([]earnings.Record, error) {
	if page < 1 || limit < 1 {
		return nil, nil
	}
	const q = `
        SELECT id, order_id, amount, type, description, created_at
        FROM earning_records
        WHERE driver_id = $1
        ORDER BY created_at DESC, id DESC
        LIMIT $2 OFFSET $3`
	rows, err := s.db.QueryContext(ctx, q, driverID, limit, (page-1)*limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []earnings.Record
	for rows.Next() {
		var rec earnings.Record
		var typ string
		var created time.Time
		if err := rows.Scan(&rec.ID, &rec.OrderID, &rec.Amount, &typ, &rec.Description, &created); err != nil {
			return nil, err
		}
		rec.Type, _ = earnings.ParseRecordType(typ)
		rec.CreatedAt = &created
		out = append(out, rec)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*order.Order, error) {
	var o order.Order
	var st string
	var customer, restaurant, items []byte
	var subtotal, fee, tip, total decimal.NullDecimal
	var distance sql.NullFloat64
	var created time.Time
	var eta sql.NullTime

	err := row.Scan(
		&o.ID, &o.Number, &st, &customer, &restaurant, &items,
		&subtotal, &fee, &tip, &total, &o.Note, &distance,
		&created, &eta,
	)
	if err != nil {
		return nil, err
	}
	o.Status, _ = status.Parse(st)
	if err := json.Unmarshal(customer, &o.Customer); err != nil {
		return nil, fmt.Errorf("decode customer: %w", err)
	}
	if err := json.Unmarshal(restaurant, &o.Restaurant); err != nil {
		return nil, fmt.Errorf("decode restaurant: %w", err)
	}
	if err := json.Unmarshal(items, &o.Items); err != nil {
		return nil, fmt.Errorf("decode items: %w", err)
	}
	o.Subtotal = decPtr(subtotal)
	o.DeliveryFee = decPtr(fee)
	o.Tip = decPtr(tip)
	o.Total = decPtr(total)
	if distance.Valid {
		o.DistanceKm = &distance.Float64
	}
	o.CreatedAt = &created
	if eta.Valid {
		o.EstimatedDelivery = &eta.Time
	}
	return &o, nil
}

func collectOrders(rows *sql.Rows) ([]order.Order, error) {
	var out []order.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *o)
	}
	return out, rows.Err()
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func nullDec(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *d, Valid: true}
}

func decPtr(d decimal.NullDecimal) *decimal.Decimal {
	if !d.Valid {
		return nil
	}
	v := d.Decimal
	return &v
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
