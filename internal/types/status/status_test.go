package status

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChainIsLinear(t *testing.T) {
	seen := map[Status]bool{}
	s := StatusPending
	for {
		assert.False(t, seen[s], "cycle at %s", s)
		seen[s] = true
		next, ok := s.Next()
		if !ok {
			break
		}
		s = next
	}
	assert.Equal(t, StatusDelivered, s)
	// every non-terminal status except cancelled is on the chain
	assert.Len(t, seen, len(All)-1)
}

func TestTerminalStatuses(t *testing.T) {
	for _, s := range All {
		if s == StatusDelivered || s == StatusCancelled {
			assert.True(t, s.Final(), "%s", s)
			_, ok := s.Next()
			assert.False(t, ok, "%s has no next", s)
			_, ok = s.NextActionLabel()
			assert.False(t, ok, "%s has no next action", s)
		} else {
			assert.False(t, s.Final(), "%s", s)
			_, ok := s.Next()
			assert.True(t, ok, "%s has a next", s)
			_, ok = s.NextActionLabel()
			assert.True(t, ok, "%s has a next action", s)
		}
	}
}

func TestCanTransitionOnlyAlongChain(t *testing.T) {
	for _, from := range All {
		next, hasNext := from.Next()
		for _, to := range All {
			got := CanTransition(from, to)
			switch {
			case to == StatusCancelled:
				assert.Equal(t, !from.Final(), got, "%s -> cancelled", from)
			case hasNext && to == next:
				assert.True(t, got, "%s -> %s", from, to)
			default:
				assert.False(t, got, "%s -> %s", from, to)
			}
		}
	}
}

func TestInProgress(t *testing.T) {
	assert.False(t, StatusPending.InProgress())
	assert.True(t, StatusAccepted.InProgress())
	assert.True(t, StatusArrived.InProgress())
	assert.False(t, StatusDelivered.InProgress())
	assert.False(t, StatusCancelled.InProgress())
}

func TestParseUnknownFallsBackToPending(t *testing.T) {
	s, ok := Parse("unknown_value")
	assert.False(t, ok)
	assert.Equal(t, StatusPending, s)

	s, ok = Parse("delivering")
	assert.True(t, ok)
	assert.Equal(t, StatusDelivering, s)
}
