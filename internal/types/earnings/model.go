// Package earnings models driver earnings aggregates and ledger records.
package earnings

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/roaddasher/dasher/internal/types/order"
	"github.com/roaddasher/dasher/internal/util/currency"
)

// Period is the aggregation window of an earnings summary.
type Period string

const (
	PeriodToday   Period = "today"
	PeriodWeekly  Period = "weekly"
	PeriodMonthly Period = "monthly"
	PeriodAll     Period = "all"
)

// ParsePeriod maps a wire value onto a Period, defaulting to today.
func ParsePeriod(raw string) (Period, bool) {
	switch p := Period(raw); p {
	case PeriodToday, PeriodWeekly, PeriodMonthly, PeriodAll:
		return p, true
	}
	return PeriodToday, false
}

// Label returns the display name of the period.
func (p Period) Label() string {
	switch p {
	case PeriodToday:
		return "Today"
	case PeriodWeekly:
		return "This week"
	case PeriodMonthly:
		return "This month"
	case PeriodAll:
		return "All time"
	}
	return string(p)
}

// Range returns the aggregation window [start, end) for the period.
// bounded is false for PeriodAll, whose window is unbounded.
func (p Period) Range(now time.Time) (start, end time.Time, bounded bool) {
	end = now
	switch p {
	case PeriodToday:
		start = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	case PeriodWeekly:
		// weeks start on Monday
		offset := (int(now.Weekday()) + 6) % 7
		day := now.AddDate(0, 0, -offset)
		start = time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, now.Location())
	case PeriodMonthly:
		start = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	default:
		return time.Time{}, end, false
	}
	return start, end, true
}

// Earnings is the aggregate for one period. It is always replaced
// wholesale from a fetch, never patched.
type Earnings struct {
	Total        decimal.Decimal
	DeliveryFees decimal.Decimal
	Tips         decimal.Decimal
	Bonus        decimal.Decimal
	OrderCount   int
	Period       Period
	Start        *time.Time
	End          *time.Time

	// Placeholder marks locally generated fallback data.
	Placeholder bool
}

func (e *Earnings) FormattedTotal() string        { return currency.Format(e.Total) }
func (e *Earnings) FormattedDeliveryFees() string { return currency.Format(e.DeliveryFees) }
func (e *Earnings) FormattedTips() string         { return currency.Format(e.Tips) }
func (e *Earnings) FormattedBonus() string        { return currency.Format(e.Bonus) }

// RecordType classifies one ledger line.
type RecordType string

const (
	TypeDelivery   RecordType = "delivery"
	TypeTip        RecordType = "tip"
	TypeBonus      RecordType = "bonus"
	TypeAdjustment RecordType = "adjustment"
)

// ParseRecordType maps a wire value onto a RecordType, defaulting to delivery.
func ParseRecordType(raw string) (RecordType, bool) {
	switch t := RecordType(raw); t {
	case TypeDelivery, TypeTip, TypeBonus, TypeAdjustment:
		return t, true
	}
	return TypeDelivery, false
}

// Label returns the display name of the record type.
func (t RecordType) Label() string {
	switch t {
	case TypeDelivery:
		return "Delivery fee"
	case TypeTip:
		return "Tip"
	case TypeBonus:
		return "Bonus"
	case TypeAdjustment:
		return "Adjustment"
	}
	return string(t)
}

// Icon returns the icon tag for the record type.
func (t RecordType) Icon() string {
	switch t {
	case TypeDelivery:
		return "bicycle"
	case TypeTip:
		return "heart.fill"
	case TypeBonus:
		return "star.fill"
	case TypeAdjustment:
		return "arrow.up.arrow.down"
	}
	return ""
}

// Record is one immutable earnings ledger line. Amounts are signed;
// adjustments may be negative.
type Record struct {
	ID          int64
	OrderID     int64
	Amount      decimal.Decimal
	Type        RecordType
	Description string
	CreatedAt   *time.Time

	Placeholder bool
}

// FormattedAmount renders the amount, e.g. "NT$ 60" or "NT$ -20".
func (r *Record) FormattedAmount() string { return currency.Format(r.Amount) }

// FormattedDate renders the record time as "01/03 10:15", empty when unknown.
func (r *Record) FormattedDate() string {
	if r.CreatedAt == nil {
		return ""
	}
	return r.CreatedAt.Format("01/02 15:04")
}

// Payload is the wire shape of an earnings summary.
type Payload struct {
	TotalAmount *decimal.Decimal `json:"total_amount,omitempty"`
	DeliveryFee *decimal.Decimal `json:"delivery_fee,omitempty"`
	Tips        *decimal.Decimal `json:"tips,omitempty"`
	Bonus       *decimal.Decimal `json:"bonus,omitempty"`
	OrderCount  *int             `json:"order_count,omitempty"`
	Period      *string          `json:"period,omitempty"`
	StartDate   *string          `json:"start_date,omitempty"`
	EndDate     *string          `json:"end_date,omitempty"`
}

// RecordPayload is the wire shape of one ledger line.
type RecordPayload struct {
	ID          *int64           `json:"id,omitempty"`
	OrderID     *int64           `json:"order_id,omitempty"`
	Amount      *decimal.Decimal `json:"amount,omitempty"`
	Type        *string          `json:"type,omitempty"`
	Description *string          `json:"description,omitempty"`
	CreatedAt   *string          `json:"created_at,omitempty"`
}

// FromWire builds an Earnings from its wire shape.
func FromWire(p *Payload) (*Earnings, []order.Warning) {
	e := &Earnings{Period: PeriodToday}
	var warns []order.Warning

	e.Total = decVal(p.TotalAmount)
	e.DeliveryFees = decVal(p.DeliveryFee)
	e.Tips = decVal(p.Tips)
	e.Bonus = decVal(p.Bonus)
	if p.OrderCount != nil {
		e.OrderCount = *p.OrderCount
	}
	if p.Period != nil {
		period, ok := ParsePeriod(*p.Period)
		if !ok {
			warns = append(warns, order.Warning{
				Field:   "period",
				Message: fmt.Sprintf("unknown period %q, treating as today", *p.Period),
			})
		}
		e.Period = period
	}
	e.Start = parseTime("start_date", p.StartDate, &warns)
	e.End = parseTime("end_date", p.EndDate, &warns)
	return e, warns
}

// Wire converts an Earnings back into its wire shape.
func (e *Earnings) Wire() *Payload {
	total, fees, tips, bonus := e.Total, e.DeliveryFees, e.Tips, e.Bonus
	count := e.OrderCount
	period := string(e.Period)
	p := &Payload{
		TotalAmount: &total,
		DeliveryFee: &fees,
		Tips:        &tips,
		Bonus:       &bonus,
		OrderCount:  &count,
		Period:      &period,
	}
	if e.Start != nil {
		s := e.Start.UTC().Format(time.RFC3339)
		p.StartDate = &s
	}
	if e.End != nil {
		s := e.End.UTC().Format(time.RFC3339)
		p.EndDate = &s
	}
	return p
}

// RecordFromWire builds a Record from its wire shape.
func RecordFromWire(p *RecordPayload) (*Record, []order.Warning) {
	r := &Record{Type: TypeDelivery}
	var warns []order.Warning

	if p.ID != nil {
		r.ID = *p.ID
	}
	if p.OrderID != nil {
		r.OrderID = *p.OrderID
	}
	r.Amount = decVal(p.Amount)
	if p.Type != nil {
		typ, ok := ParseRecordType(*p.Type)
		if !ok {
			warns = append(warns, order.Warning{
				Field:   "type",
				Message: fmt.Sprintf("unknown earning type %q, treating as delivery", *p.Type),
			})
		}
		r.Type = typ
	}
	if p.Description != nil {
		r.Description = *p.Description
	}
	r.CreatedAt = parseTime("created_at", p.CreatedAt, &warns)
	return r, warns
}

// Wire converts a Record back into its wire shape.
func (r *Record) Wire() *RecordPayload {
	id, orderID, amount := r.ID, r.OrderID, r.Amount
	typ := string(r.Type)
	p := &RecordPayload{
		ID:      &id,
		OrderID: &orderID,
		Amount:  &amount,
		Type:    &typ,
	}
	if r.Description != "" {
		d := r.Description
		p.Description = &d
	}
	if r.CreatedAt != nil {
		s := r.CreatedAt.UTC().Format(time.RFC3339)
		p.CreatedAt = &s
	}
	return p
}

func parseTime(field string, s *string, warns *[]order.Warning) *time.Time {
	if s == nil {
		return nil
	}
	t, err := time.Parse(time.RFC3339, *s)
	if err != nil {
		*warns = append(*warns, order.Warning{
			Field:   field,
			Message: fmt.Sprintf("unparseable timestamp %q", *s),
		})
		return nil
	}
	return &t
}

func decVal(d *decimal.Decimal) decimal.Decimal {
	if d == nil {
		return decimal.Zero
	}
	return *d
}
