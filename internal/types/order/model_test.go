package order

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roaddasher/dasher/internal/types/status"
)

func TestFromJSONMinimalPayload(t *testing.T) {
	o, warns, err := FromJSON([]byte(`{"id":1001,"status":"accepted"}`))
	require.NoError(t, err)
	assert.Empty(t, warns)

	assert.Equal(t, int64(1001), o.ID)
	assert.Equal(t, status.StatusAccepted, o.Status)
	assert.Empty(t, o.Number)
	assert.Nil(t, o.Subtotal)
	assert.Nil(t, o.CreatedAt)
	assert.Nil(t, o.DistanceKm)
	assert.Equal(t, "NT$ 0", o.FormattedDeliveryFee())
	assert.Equal(t, "NT$ 0", o.FormattedTotal())
	assert.Equal(t, "", o.FormattedDistance())
}

func TestFromJSONUnknownStatusWarns(t *testing.T) {
	o, warns, err := FromJSON([]byte(`{"id":1,"status":"unknown_value"}`))
	require.NoError(t, err)
	assert.Equal(t, status.StatusPending, o.Status)
	require.Len(t, warns, 1)
	assert.Equal(t, "status", warns[0].Field)
}

func TestFromJSONMalformedPayload(t *testing.T) {
	_, _, err := FromJSON([]byte(`not json`))
	assert.Error(t, err)
}

func TestFromJSONMissingIDWarns(t *testing.T) {
	_, warns, err := FromJSON([]byte(`{"status":"pending"}`))
	require.NoError(t, err)
	require.Len(t, warns, 1)
	assert.Equal(t, "id", warns[0].Field)
}

func TestTopLevelAddressOverridesCustomerAddress(t *testing.T) {
	o, _, err := FromJSON([]byte(`{"id":1,"address":"5F, 100 Songren Rd","customer":{"name":"Lin","address":"old street"}}`))
	require.NoError(t, err)
	assert.Equal(t, "5F, 100 Songren Rd", o.Customer.Address)
	assert.Equal(t, "Lin", o.Customer.Name)

	o, _, err = FromJSON([]byte(`{"id":1,"customer":{"address":"old street"}}`))
	require.NoError(t, err)
	assert.Equal(t, "old street", o.Customer.Address)
}

func TestFromJSONFullPayload(t *testing.T) {
	data := []byte(`{
		"id": 42, "order_number": "RD-2031",
		"customer": {"name":"Chen","phone":"0912345678","latitude":25.04,"longitude":121.56},
		"restaurant": {"id":7,"name":"Golden Bowl","address":"1 Market St","latitude":25.03,"longitude":121.55},
		"items": [{"id":1,"name":"Beef noodles","quantity":2,"price":180},{"name":"Iced tea","price":45}],
		"subtotal": 405, "delivery_fee": 60, "tip": 30, "total": 495,
		"status": "picking_up",
		"created_at": "2026-01-03T10:15:00Z",
		"estimated_delivery_time": "2026-01-03T10:45:00Z",
		"distance": 0.8
	}`)
	o, warns, err := FromJSON(data)
	require.NoError(t, err)
	assert.Empty(t, warns)

	assert.Equal(t, "RD-2031", o.Number)
	assert.Equal(t, status.StatusPickingUp, o.Status)
	require.NotNil(t, o.Customer.Location)
	assert.InDelta(t, 25.04, o.Customer.Location.Latitude, 1e-9)
	require.Len(t, o.Items, 2)
	assert.Equal(t, 2, o.Items[0].Quantity)
	assert.Equal(t, 1, o.Items[1].Quantity)
	assert.Equal(t, 3, o.ItemCount())
	assert.Equal(t, "Beef noodles x2, Iced tea x1", o.ItemsSummary())
	assert.Equal(t, "NT$ 495", o.FormattedTotal())
	assert.Equal(t, "NT$ 60", o.FormattedDeliveryFee())
	assert.Equal(t, "800 m", o.FormattedDistance())
	require.NotNil(t, o.CreatedAt)
	assert.Equal(t, 2026, o.CreatedAt.Year())
}

func TestFromJSONBadTimestampWarns(t *testing.T) {
	o, warns, err := FromJSON([]byte(`{"id":1,"created_at":"yesterday"}`))
	require.NoError(t, err)
	assert.Nil(t, o.CreatedAt)
	require.Len(t, warns, 1)
	assert.Equal(t, "created_at", warns[0].Field)
}

func TestFormattedDistanceUnits(t *testing.T) {
	km := 2.5
	o := &Order{DistanceKm: &km}
	assert.Equal(t, "2.5 km", o.FormattedDistance())

	short := 0.4
	o.DistanceKm = &short
	assert.Equal(t, "400 m", o.FormattedDistance())
}

func TestItemsSummaryEmpty(t *testing.T) {
	o := &Order{}
	assert.Equal(t, "No item details", o.ItemsSummary())
	assert.Equal(t, 0, o.ItemCount())
}

func TestWireRoundTrip(t *testing.T) {
	fee := decimal.NewFromInt(60)
	km := 1.2
	o := &Order{
		ID:          9,
		Number:      "RD-9",
		Status:      status.StatusDelivering,
		DeliveryFee: &fee,
		DistanceKm:  &km,
		Customer:    Party{Name: "Wu", Address: "2 Lane 50"},
		Items:       []Item{{Name: "Dumplings", Quantity: 3}},
	}
	back, warns := FromWire(o.Wire())
	assert.Empty(t, warns)
	assert.Equal(t, o.ID, back.ID)
	assert.Equal(t, o.Number, back.Number)
	assert.Equal(t, o.Status, back.Status)
	assert.Equal(t, "Wu", back.Customer.Name)
	assert.Equal(t, 3, back.Items[0].Quantity)
	assert.Equal(t, "NT$ 60", back.FormattedDeliveryFee())
}
