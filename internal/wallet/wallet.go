// Package wallet holds the driver's earnings state: the today and
// weekly summaries plus the paginated ledger. It mirrors the order
// store's locking and fallback discipline.
package wallet

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/roaddasher/dasher/internal/logger"
	"github.com/roaddasher/dasher/internal/types/earnings"
)

// EarningsAPI is the slice of the dispatch facade the wallet needs.
type EarningsAPI interface {
	TodayEarnings(ctx context.Context) (*earnings.Earnings, error)
	WeeklyEarnings(ctx context.Context) (*earnings.Earnings, error)
	EarningsHistory(ctx context.Context, page int) ([]earnings.Record, error)
}

// Fallback supplies placeholder earnings when the backend is unreachable.
type Fallback interface {
	Summary(p earnings.Period) *earnings.Earnings
	RecordsPage(page int) []earnings.Record
}

// Store holds the wallet state behind one mutex. Network calls never
// run under the lock.
type Store struct {
	api      EarningsAPI
	fallback Fallback

	mu             sync.Mutex
	today          *earnings.Earnings
	weekly         *earnings.Earnings
	records        []earnings.Record
	nextPage       int
	hasMore        bool
	recordsLoading bool
}

// New builds a wallet Store. fallback may be nil to disable degraded mode.
func New(api EarningsAPI, fallback Fallback) *Store {
	return &Store{
		api:      api,
		fallback: fallback,
		nextPage: 1,
		hasMore:  true,
	}
}

// Today returns the cached today summary, nil before the first refresh.
func (s *Store) Today() *earnings.Earnings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copySummary(s.today)
}

// Weekly returns the cached weekly summary, nil before the first refresh.
func (s *Store) Weekly() *earnings.Earnings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copySummary(s.weekly)
}

// Records returns a copy of the loaded ledger lines.
func (s *Store) Records() []earnings.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyRecords(s.records)
}

// HasMoreRecords reports whether another ledger page may exist.
func (s *Store) HasMoreRecords() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hasMore
}

// Refresh fetches the today and weekly summaries concurrently. Each
// summary falls back to placeholder data independently; the first
// fetch error is returned as a non-blocking notice.
func (s *Store) Refresh(ctx context.Context) error {
	var (
		today, weekly *earnings.Earnings
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		today, err = s.api.TodayEarnings(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		weekly, err = s.api.WeeklyEarnings(gctx)
		return err
	})
	err := g.Wait()
	if err != nil && s.fallback != nil {
		logger.Log.Warn("earnings fetch failed, using placeholder data", zap.Error(err))
		if today == nil {
			today = s.fallback.Summary(earnings.PeriodToday)
		}
		if weekly == nil {
			weekly = s.fallback.Summary(earnings.PeriodWeekly)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if today != nil {
		s.today = copySummary(today)
	}
	if weekly != nil {
		s.weekly = copySummary(weekly)
	}
	return err
}

// RefreshRecords reloads the first ledger page and resets pagination.
// Dropped when a ledger load is in flight.
func (s *Store) RefreshRecords(ctx context.Context) ([]earnings.Record, error) {
	s.mu.Lock()
	if s.recordsLoading {
		defer s.mu.Unlock()
		return copyRecords(s.records), nil
	}
	s.recordsLoading = true
	s.mu.Unlock()

	recs, err := s.api.EarningsHistory(ctx, 1)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.recordsLoading = false
	if err != nil {
		if s.fallback != nil {
			logger.Log.Warn("earnings ledger fetch failed, using placeholder data", zap.Error(err))
			s.records = s.fallback.RecordsPage(1)
			s.nextPage = 1
			s.hasMore = false
		}
		return copyRecords(s.records), err
	}
	s.records = recs
	s.nextPage = 2
	s.hasMore = len(recs) > 0
	return copyRecords(recs), nil
}

// LoadNextRecordsPage fetches the next ledger page and returns the
// delta. Duplicate triggers while a load is in flight are dropped, and
// an empty page marks the ledger exhausted.
func (s *Store) LoadNextRecordsPage(ctx context.Context) ([]earnings.Record, error) {
	s.mu.Lock()
	if s.recordsLoading || !s.hasMore {
		s.mu.Unlock()
		return nil, nil
	}
	s.recordsLoading = true
	page := s.nextPage
	s.mu.Unlock()

	recs, err := s.api.EarningsHistory(ctx, page)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.recordsLoading = false
	if err != nil {
		if page == 1 && s.fallback != nil {
			logger.Log.Warn("earnings ledger fetch failed, using placeholder data", zap.Error(err))
			s.records = s.fallback.RecordsPage(1)
			s.hasMore = false
			return copyRecords(s.records), err
		}
		return nil, err
	}
	if len(recs) == 0 {
		s.hasMore = false
		return nil, nil
	}
	s.records = append(s.records, recs...)
	s.nextPage++
	return copyRecords(recs), nil
}

func copySummary(e *earnings.Earnings) *earnings.Earnings {
	if e == nil {
		return nil
	}
	cp := *e
	return &cp
}

func copyRecords(recs []earnings.Record) []earnings.Record {
	if recs == nil {
		return nil
	}
	out := make([]earnings.Record, len(recs))
	copy(out, recs)
	return out
}
