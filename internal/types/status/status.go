// Package status defines the delivery status lifecycle and its
// transition rules. It is a pure decision table: no I/O, no state.
package status

// Status is the delivery status of an order.
type Status string

const (
	StatusPending    Status = "pending"
	StatusAccepted   Status = "accepted"
	StatusPickingUp  Status = "picking_up"
	StatusPickedUp   Status = "picked_up"
	StatusDelivering Status = "delivering"
	StatusArrived    Status = "arrived"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
)

// All lists every status in lifecycle order, cancelled last.
var All = []Status{
	StatusPending,
	StatusAccepted,
	StatusPickingUp,
	StatusPickedUp,
	StatusDelivering,
	StatusArrived,
	StatusDelivered,
	StatusCancelled,
}

// Parse maps a wire value onto a Status. Unknown values fall back to
// StatusPending with ok=false so the decode layer can report them.
func Parse(raw string) (Status, bool) {
	s := Status(raw)
	switch s {
	case StatusPending, StatusAccepted, StatusPickingUp, StatusPickedUp,
		StatusDelivering, StatusArrived, StatusDelivered, StatusCancelled:
		return s, true
	}
	return StatusPending, false
}

// Label returns the human-readable name of the status.
func (s Status) Label() string {
	switch s {
	case StatusPending:
		return "Pending"
	case StatusAccepted:
		return "Accepted"
	case StatusPickingUp:
		return "Heading to restaurant"
	case StatusPickedUp:
		return "Picked up"
	case StatusDelivering:
		return "Delivering"
	case StatusArrived:
		return "Arrived"
	case StatusDelivered:
		return "Delivered"
	case StatusCancelled:
		return "Cancelled"
	}
	return string(s)
}

// Icon returns the icon tag the presentation layer renders for the status.
func (s Status) Icon() string {
	switch s {
	case StatusPending:
		return "clock"
	case StatusAccepted:
		return "checkmark.circle"
	case StatusPickingUp:
		return "arrow.right.circle"
	case StatusPickedUp:
		return "bag.fill"
	case StatusDelivering:
		return "bicycle"
	case StatusArrived:
		return "mappin.and.ellipse"
	case StatusDelivered:
		return "checkmark.seal.fill"
	case StatusCancelled:
		return "xmark.circle"
	}
	return ""
}

// Next returns the following status in the delivery chain. ok is false
// for the two terminal statuses.
func (s Status) Next() (Status, bool) {
	switch s {
	case StatusPending:
		return StatusAccepted, true
	case StatusAccepted:
		return StatusPickingUp, true
	case StatusPickingUp:
		return StatusPickedUp, true
	case StatusPickedUp:
		return StatusDelivering, true
	case StatusDelivering:
		return StatusArrived, true
	case StatusArrived:
		return StatusDelivered, true
	}
	return "", false
}

// NextActionLabel returns the label for the action that advances the
// order to the next status. ok is false when there is no next status.
func (s Status) NextActionLabel() (string, bool) {
	switch s {
	case StatusPending:
		return "Accept order", true
	case StatusAccepted:
		return "Head to restaurant", true
	case StatusPickingUp:
		return "Confirm pickup", true
	case StatusPickedUp:
		return "Start delivery", true
	case StatusDelivering:
		return "Mark arrived", true
	case StatusArrived:
		return "Complete delivery", true
	}
	return "", false
}

// InProgress reports whether the order is being actively worked
// (accepted through arrived).
func (s Status) InProgress() bool {
	switch s {
	case StatusAccepted, StatusPickingUp, StatusPickedUp, StatusDelivering, StatusArrived:
		return true
	}
	return false
}

// Final reports whether the status is terminal.
func (s Status) Final() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// CanTransition reports whether a driver-initiated move from one status
// to another is legal: either the next step in the chain, or an
// out-of-band cancellation of any non-terminal order.
func CanTransition(from, to Status) bool {
	if to == StatusCancelled {
		return !from.Final()
	}
	next, ok := from.Next()
	return ok && to == next
}
