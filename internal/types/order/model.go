// Package order holds the delivery order model and its wire codec.
//
// Every wire field is optional. Decoding never fails on missing or odd
// field values; problems are collected as warnings so callers can log
// them without losing the payload.
package order

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/roaddasher/dasher/internal/types/status"
	"github.com/roaddasher/dasher/internal/util/currency"
	"github.com/roaddasher/dasher/internal/util/geo"
)

// Party identifies one side of a delivery: the restaurant or the customer.
type Party struct {
	ID       int64
	Name     string
	Address  string
	Phone    string
	Avatar   string
	Location *geo.Coordinate
}

// Item is one order line.
type Item struct {
	ID       int64
	Name     string
	Quantity int
	Price    *decimal.Decimal
	Note     string
}

// FormattedPrice renders the unit price, empty when unknown.
func (i Item) FormattedPrice() string {
	if i.Price == nil {
		return ""
	}
	return currency.Format(*i.Price)
}

// Order is one delivery job as seen by the driver.
type Order struct {
	ID     int64
	Number string

	Customer   Party
	Restaurant Party

	Items       []Item
	Subtotal    *decimal.Decimal
	DeliveryFee *decimal.Decimal
	Tip         *decimal.Decimal
	Total       *decimal.Decimal
	Note        string

	Status            status.Status
	CreatedAt         *time.Time
	EstimatedDelivery *time.Time
	DistanceKm        *float64

	// Placeholder marks locally generated fallback data. Never on the wire.
	Placeholder bool
}

// FormattedSubtotal renders the subtotal, "NT$ 0" when absent.
func (o *Order) FormattedSubtotal() string { return currency.FormatPtr(o.Subtotal) }

// FormattedDeliveryFee renders the delivery fee, "NT$ 0" when absent.
func (o *Order) FormattedDeliveryFee() string { return currency.FormatPtr(o.DeliveryFee) }

// FormattedTip renders the tip, "NT$ 0" when absent.
func (o *Order) FormattedTip() string { return currency.FormatPtr(o.Tip) }

// FormattedTotal renders the total, "NT$ 0" when absent.
func (o *Order) FormattedTotal() string { return currency.FormatPtr(o.Total) }

// FormattedDistance renders the distance, empty when unknown.
func (o *Order) FormattedDistance() string {
	if o.DistanceKm == nil {
		return ""
	}
	return geo.FormatDistanceKm(*o.DistanceKm)
}

// ItemCount is the total number of units across all lines.
func (o *Order) ItemCount() int {
	n := 0
	for _, it := range o.Items {
		q := it.Quantity
		if q < 1 {
			q = 1
		}
		n += q
	}
	return n
}

// ItemsSummary is a one-line listing such as "Beef noodles x2, Iced tea x1".
func (o *Order) ItemsSummary() string {
	if len(o.Items) == 0 {
		return "No item details"
	}
	parts := make([]string, 0, len(o.Items))
	for _, it := range o.Items {
		name := it.Name
		if name == "" {
			name = "Item"
		}
		q := it.Quantity
		if q < 1 {
			q = 1
		}
		parts = append(parts, fmt.Sprintf("%s x%d", name, q))
	}
	return strings.Join(parts, ", ")
}

// Warning is a field-level decode problem that did not prevent decoding.
type Warning struct {
	Field   string
	Message string
}

func (w Warning) String() string { return w.Field + ": " + w.Message }

// PartyPayload is the wire shape of a customer or restaurant block.
type PartyPayload struct {
	ID        *int64   `json:"id,omitempty"`
	Name      *string  `json:"name,omitempty"`
	Address   *string  `json:"address,omitempty"`
	Phone     *string  `json:"phone,omitempty"`
	Avatar    *string  `json:"avatar,omitempty"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
}

// ItemPayload is the wire shape of one order line.
type ItemPayload struct {
	ID       *int64           `json:"id,omitempty"`
	Name     *string          `json:"name,omitempty"`
	Quantity *int             `json:"quantity,omitempty"`
	Price    *decimal.Decimal `json:"price,omitempty"`
	Note     *string          `json:"note,omitempty"`
}

// Payload is the wire shape of an order. All fields are independently
// optional.
type Payload struct {
	ID          *int64        `json:"id,omitempty"`
	OrderNumber *string       `json:"order_number,omitempty"`
	Customer    *PartyPayload `json:"customer,omitempty"`
	Address     *string       `json:"address,omitempty"`
	Restaurant  *PartyPayload `json:"restaurant,omitempty"`
	Items       []ItemPayload `json:"items,omitempty"`

	Subtotal    *decimal.Decimal `json:"subtotal,omitempty"`
	DeliveryFee *decimal.Decimal `json:"delivery_fee,omitempty"`
	Tip         *decimal.Decimal `json:"tip,omitempty"`
	Total       *decimal.Decimal `json:"total,omitempty"`
	Note        *string          `json:"note,omitempty"`

	Status                *string  `json:"status,omitempty"`
	CreatedAt             *string  `json:"created_at,omitempty"`
	EstimatedDeliveryTime *string  `json:"estimated_delivery_time,omitempty"`
	Distance              *float64 `json:"distance,omitempty"`
}

// FromJSON decodes a single order object. The error is non-nil only for
// structurally invalid JSON; everything field-level becomes a warning.
func FromJSON(data []byte) (*Order, []Warning, error) {
	var p Payload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, nil, fmt.Errorf("decode order: %w", err)
	}
	o, warns := FromWire(&p)
	return o, warns, nil
}

// FromWire builds an Order from its wire shape, collecting warnings for
// suspect values.
func FromWire(p *Payload) (*Order, []Warning) {
	o := &Order{Status: status.StatusPending}
	var warns []Warning

	if p.ID != nil {
		o.ID = *p.ID
	} else {
		warns = append(warns, Warning{Field: "id", Message: "missing order id"})
	}
	o.Number = strVal(p.OrderNumber)

	o.Customer = partyFromWire(p.Customer)
	// A top-level address overrides customer.address only when present.
	if p.Address != nil {
		o.Customer.Address = *p.Address
	}
	o.Restaurant = partyFromWire(p.Restaurant)

	for _, ip := range p.Items {
		it := Item{
			ID:       intVal(ip.ID),
			Name:     strVal(ip.Name),
			Quantity: 1,
			Price:    ip.Price,
			Note:     strVal(ip.Note),
		}
		if ip.Quantity != nil {
			if *ip.Quantity >= 1 {
				it.Quantity = *ip.Quantity
			} else {
				warns = append(warns, Warning{
					Field:   "items.quantity",
					Message: fmt.Sprintf("quantity %d below 1, using 1", *ip.Quantity),
				})
			}
		}
		o.Items = append(o.Items, it)
	}

	o.Subtotal = p.Subtotal
	o.DeliveryFee = p.DeliveryFee
	o.Tip = p.Tip
	o.Total = p.Total
	o.Note = strVal(p.Note)

	if p.Status != nil {
		st, ok := status.Parse(*p.Status)
		if !ok {
			warns = append(warns, Warning{
				Field:   "status",
				Message: fmt.Sprintf("unknown status %q, treating as pending", *p.Status),
			})
		}
		o.Status = st
	}

	var w *Warning
	o.CreatedAt, w = parseTime("created_at", p.CreatedAt)
	if w != nil {
		warns = append(warns, *w)
	}
	o.EstimatedDelivery, w = parseTime("estimated_delivery_time", p.EstimatedDeliveryTime)
	if w != nil {
		warns = append(warns, *w)
	}

	o.DistanceKm = p.Distance
	return o, warns
}

// Wire converts an Order back into its wire shape. Used by the demo
// backend; the client only decodes.
func (o *Order) Wire() *Payload {
	id := o.ID
	p := &Payload{
		ID:          &id,
		Subtotal:    o.Subtotal,
		DeliveryFee: o.DeliveryFee,
		Tip:         o.Tip,
		Total:       o.Total,
		Distance:    o.DistanceKm,
	}
	if o.Number != "" {
		num := o.Number
		p.OrderNumber = &num
	}
	if o.Note != "" {
		note := o.Note
		p.Note = &note
	}
	st := string(o.Status)
	p.Status = &st
	p.Customer = partyToWire(o.Customer)
	p.Restaurant = partyToWire(o.Restaurant)
	for _, it := range o.Items {
		ip := ItemPayload{Price: it.Price}
		if it.ID != 0 {
			itemID := it.ID
			ip.ID = &itemID
		}
		if it.Name != "" {
			name := it.Name
			ip.Name = &name
		}
		q := it.Quantity
		ip.Quantity = &q
		if it.Note != "" {
			note := it.Note
			ip.Note = &note
		}
		p.Items = append(p.Items, ip)
	}
	if o.CreatedAt != nil {
		s := o.CreatedAt.UTC().Format(time.RFC3339)
		p.CreatedAt = &s
	}
	if o.EstimatedDelivery != nil {
		s := o.EstimatedDelivery.UTC().Format(time.RFC3339)
		p.EstimatedDeliveryTime = &s
	}
	return p
}

func partyFromWire(pp *PartyPayload) Party {
	if pp == nil {
		return Party{}
	}
	p := Party{
		ID:      intVal(pp.ID),
		Name:    strVal(pp.Name),
		Address: strVal(pp.Address),
		Phone:   strVal(pp.Phone),
		Avatar:  strVal(pp.Avatar),
	}
	if pp.Latitude != nil && pp.Longitude != nil {
		p.Location = &geo.Coordinate{Latitude: *pp.Latitude, Longitude: *pp.Longitude}
	}
	return p
}

func partyToWire(p Party) *PartyPayload {
	if p == (Party{}) {
		return nil
	}
	pp := &PartyPayload{}
	if p.ID != 0 {
		id := p.ID
		pp.ID = &id
	}
	if p.Name != "" {
		v := p.Name
		pp.Name = &v
	}
	if p.Address != "" {
		v := p.Address
		pp.Address = &v
	}
	if p.Phone != "" {
		v := p.Phone
		pp.Phone = &v
	}
	if p.Avatar != "" {
		v := p.Avatar
		pp.Avatar = &v
	}
	if p.Location != nil {
		lat, lon := p.Location.Latitude, p.Location.Longitude
		pp.Latitude = &lat
		pp.Longitude = &lon
	}
	return pp
}

func parseTime(field string, s *string) (*time.Time, *Warning) {
	if s == nil {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, *s)
	if err != nil {
		return nil, &Warning{Field: field, Message: fmt.Sprintf("unparseable timestamp %q", *s)}
	}
	return &t, nil
}

func strVal(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func intVal(i *int64) int64 {
	if i == nil {
		return 0
	}
	return *i
}
