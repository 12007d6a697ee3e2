package subscription

import (
	"context"
	"log/slog"
	"time"

	"github.com/Priya8975/subscription-service/internal/domain"
	"github.com/Priya8975/subscription-service/internal/kv"
)

// DefaultStatsWindowDays is the dailyStats window used when none is given.
const DefaultStatsWindowDays = 30

// Aggregator maintains historical counters. Counters are created on first
// use and only ever incremented.
type Aggregator struct {
	store  kv.Store
	logger *slog.Logger
	now    func() time.Time
}

func NewAggregator(store kv.Store, logger *slog.Logger) *Aggregator {
	return &Aggregator{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// RecordSubscribe counts one accepted subscription for source and for the
// current UTC day.
func (a *Aggregator) RecordSubscribe(ctx context.Context, source string) error {
	if err := incrementLabel(ctx, a.store, sourceCountersKey, source); err != nil {
		return storeErr("incrementing source counter", err)
	}

	err := kv.UpdateJSON(ctx, a.store, dailyKey(dayStamp(a.now())), func(n *int64) error {
		*n++
		return nil
	})
	if err != nil {
		return storeErr("incrementing daily counter", err)
	}
	return nil
}

func (a *Aggregator) RecordUnsubscribeReason(ctx context.Context, reason string) error {
	if err := incrementLabel(ctx, a.store, unsubscribeReasonKey, reason); err != nil {
		return storeErr("incrementing unsubscribe reason counter", err)
	}
	return nil
}

// Stats returns the subscriber index, the full source breakdown and the
// non-zero daily counts of the last windowDays days including today.
// Windows above domain.MaxStatsWindowDays are clamped to it.
func (a *Aggregator) Stats(ctx context.Context, windowDays int) (domain.Stats, error) {
	if windowDays <= 0 {
		windowDays = DefaultStatsWindowDays
	}
	windowDays = min(windowDays, domain.MaxStatsWindowDays)

	index, _, err := kv.GetJSON[[]string](ctx, a.store, indexKey)
	if err != nil {
		return domain.Stats{}, storeErr("reading subscriber index", err)
	}
	if index == nil {
		index = []string{}
	}

	sources, err := a.counters(ctx, sourceCountersKey)
	if err != nil {
		return domain.Stats{}, storeErr("reading source counters", err)
	}

	reasons, err := a.counters(ctx, unsubscribeReasonKey)
	if err != nil {
		return domain.Stats{}, storeErr("reading unsubscribe reason counters", err)
	}

	daily := make(map[string]int64)
	today := a.now().UTC()
	for i := 0; i < windowDays; i++ {
		day := dayStamp(today.AddDate(0, 0, -i))
		n, _, err := kv.GetJSON[int64](ctx, a.store, dailyKey(day))
		if err != nil {
			return domain.Stats{}, storeErr("reading daily counter", err)
		}
		if n > 0 {
			daily[day] = n
		}
	}

	a.logger.Debug("stats computed", "window_days", windowDays, "active_days", len(daily))

	return domain.Stats{
		Total:              len(index),
		Subscribers:        index,
		SourceBreakdown:    sources,
		DailyStats:         daily,
		UnsubscribeReasons: reasons,
	}, nil
}

// UnsubscribeReasons returns the cumulative count per unsubscribe reason.
func (a *Aggregator) UnsubscribeReasons(ctx context.Context) (map[string]int64, error) {
	reasons, err := a.counters(ctx, unsubscribeReasonKey)
	if err != nil {
		return nil, storeErr("reading unsubscribe reason counters", err)
	}
	return reasons, nil
}

func (a *Aggregator) counters(ctx context.Context, key string) (map[string]int64, error) {
	m, _, err := kv.GetJSON[map[string]int64](ctx, a.store, key)
	if err != nil {
		return nil, err
	}
	if m == nil {
		m = map[string]int64{}
	}
	return m, nil
}

func incrementLabel(ctx context.Context, store kv.Store, key, label string) error {
	return kv.UpdateJSON(ctx, store, key, func(m *map[string]int64) error {
		if *m == nil {
			*m = map[string]int64{}
		}
		(*m)[label]++
		return nil
	})
}
