// Package demo generates the placeholder dataset used when the backend
// is unreachable. Everything produced here carries the Placeholder flag
// so the presentation layer can mark it as offline/demo data.
package demo

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/roaddasher/dasher/internal/types/earnings"
	"github.com/roaddasher/dasher/internal/types/order"
	"github.com/roaddasher/dasher/internal/types/status"
	"github.com/roaddasher/dasher/internal/util/geo"
)

// Placeholder order ids start high so they never collide with real
// backend ids in the same session.
const baseOrderID = 900000

// Dataset produces placeholder orders and earnings. The zero value is
// ready to use.
type Dataset struct{}

func orderNumber() string {
	return "RD-" + strings.ToUpper(uuid.NewString()[:8])
}

func money(v int64) *decimal.Decimal {
	d := decimal.NewFromInt(v)
	return &d
}

func coord(lat, lon float64) *geo.Coordinate {
	return &geo.Coordinate{Latitude: lat, Longitude: lon}
}

type seedOrder struct {
	restaurant string
	address    string
	lat, lon   float64
	customer   string
	custAddr   string
	custLat    float64
	custLon    float64
	items      []order.Item
	subtotal   int64
	fee        int64
	tip        int64
	distance   float64
}

var seeds = []seedOrder{
	{
		restaurant: "Golden Bowl Beef Noodles",
		address:    "No. 12, Yongkang St, Da'an District",
		lat:        25.0330, lon: 121.5299,
		customer: "Chen Wei-ting",
		custAddr: "5F, No. 100, Songren Rd, Xinyi District",
		custLat:  25.0370, custLon: 121.5637,
		items: []order.Item{
			{Name: "Braised beef noodles", Quantity: 2, Price: money(180)},
			{Name: "Iced winter melon tea", Quantity: 1, Price: money(45)},
		},
		subtotal: 405, fee: 60, tip: 30, distance: 3.4,
	},
	{
		restaurant: "Night Market Fried Chicken",
		address:    "No. 88, Raohe St, Songshan District",
		lat:        25.0510, lon: 121.5770,
		customer: "Lin Yu-chen",
		custAddr: "No. 22, Lane 50, Minsheng E Rd",
		custLat:  25.0580, custLon: 121.5610,
		items: []order.Item{
			{Name: "Crispy chicken cutlet", Quantity: 1, Price: money(85)},
			{Name: "Sweet potato fries", Quantity: 1, Price: money(55)},
		},
		subtotal: 140, fee: 45, distance: 1.8,
	},
	{
		restaurant: "Harbor Sushi Express",
		address:    "No. 3, Songshou Rd, Xinyi District",
		lat:        25.0360, lon: 121.5670,
		customer: "Huang Shu-fen",
		custAddr: "No. 9, Keelung Rd Sec 1",
		custLat:  25.0330, custLon: 121.5650,
		items: []order.Item{
			{Name: "Salmon nigiri set", Quantity: 1, Price: money(320)},
		},
		subtotal: 320, fee: 50, tip: 20, distance: 0.6,
	},
}

func buildOrder(id int64, seed seedOrder, st status.Status, createdAgo time.Duration) order.Order {
	created := time.Now().Add(-createdAgo)
	eta := created.Add(40 * time.Minute)
	total := seed.subtotal + seed.fee + seed.tip
	dist := seed.distance
	return order.Order{
		ID:     id,
		Number: orderNumber(),
		Restaurant: order.Party{
			Name:     seed.restaurant,
			Address:  seed.address,
			Phone:    "02-2700-0000",
			Location: coord(seed.lat, seed.lon),
		},
		Customer: order.Party{
			Name:     seed.customer,
			Address:  seed.custAddr,
			Phone:    "0912-000-000",
			Location: coord(seed.custLat, seed.custLon),
		},
		Items:             seed.items,
		Subtotal:          money(seed.subtotal),
		DeliveryFee:       money(seed.fee),
		Tip:               money(seed.tip),
		Total:             money(total),
		Status:            st,
		CreatedAt:         &created,
		EstimatedDelivery: &eta,
		DistanceKm:        &dist,
		Placeholder:       true,
	}
}

// AvailableOrders returns a fresh set of pending placeholder orders.
func (Dataset) AvailableOrders() []order.Order {
	out := make([]order.Order, 0, len(seeds))
	for i, seed := range seeds {
		out = append(out, buildOrder(int64(baseOrderID+i+1), seed, status.StatusPending, time.Duration(i+5)*time.Minute))
	}
	return out
}

// CurrentOrder returns an in-progress placeholder order.
func (Dataset) CurrentOrder() *order.Order {
	o := buildOrder(baseOrderID, seeds[0], status.StatusPickingUp, 12*time.Minute)
	return &o
}

// HistoryPage returns one page of delivered placeholder orders. Two
// pages exist; later pages are empty so pagination terminates.
func (Dataset) HistoryPage(page int) []order.Order {
	if page < 1 || page > 2 {
		return nil
	}
	out := make([]order.Order, 0, len(seeds))
	for i, seed := range seeds {
		id := int64(baseOrderID + 100 + (page-1)*len(seeds) + i)
		ago := time.Duration(page*24+i*3) * time.Hour
		out = append(out, buildOrder(id, seed, status.StatusDelivered, ago))
	}
	return out
}

// Summary returns a placeholder earnings aggregate for the period.
func (Dataset) Summary(p earnings.Period) *earnings.Earnings {
	e := &earnings.Earnings{
		Period:      p,
		Placeholder: true,
	}
	switch p {
	case earnings.PeriodWeekly:
		e.DeliveryFees = decimal.NewFromInt(2140)
		e.Tips = decimal.NewFromInt(360)
		e.Bonus = decimal.NewFromInt(200)
		e.OrderCount = 31
	default:
		e.DeliveryFees = decimal.NewFromInt(310)
		e.Tips = decimal.NewFromInt(50)
		e.OrderCount = 5
	}
	e.Total = e.DeliveryFees.Add(e.Tips).Add(e.Bonus)
	return e
}

// RecordsPage returns one page of placeholder ledger lines; a single
// page exists.
func (Dataset) RecordsPage(page int) []earnings.Record {
	if page != 1 {
		return nil
	}
	now := time.Now()
	mk := func(i int64, orderID int64, amount int64, typ earnings.RecordType, desc string, ago time.Duration) earnings.Record {
		at := now.Add(-ago)
		return earnings.Record{
			ID:          i,
			OrderID:     orderID,
			Amount:      decimal.NewFromInt(amount),
			Type:        typ,
			Description: desc,
			CreatedAt:   &at,
			Placeholder: true,
		}
	}
	return []earnings.Record{
		mk(1, baseOrderID+101, 60, earnings.TypeDelivery, "", 2*time.Hour),
		mk(2, baseOrderID+101, 30, earnings.TypeTip, "", 2*time.Hour),
		mk(3, baseOrderID+102, 45, earnings.TypeDelivery, "", 5*time.Hour),
		mk(4, 0, 100, earnings.TypeBonus, "Weekend streak bonus", 26*time.Hour),
		mk(5, baseOrderID+103, -20, earnings.TypeAdjustment, "Late delivery adjustment", 30*time.Hour),
	}
}
