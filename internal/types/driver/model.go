package driver

import (
	"time"

	"github.com/roaddasher/dasher/internal/util/geo"
)

// Driver is a courier account on the dispatch backend.
type Driver struct {
	ID         int64
	FacebookID string
	Name       string
	Online     bool
	Location   *geo.Coordinate
	LastSeenAt *time.Time
	CreatedAt  time.Time
}
