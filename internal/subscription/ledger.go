package subscription

import (
	"context"
	"log/slog"
	"time"

	"github.com/Priya8975/subscription-service/internal/domain"
	"github.com/Priya8975/subscription-service/internal/kv"
)

// Ledger keeps the most recent unsubscribe event per email. Entries are
// overwritten on a later unsubscribe and never deleted.
type Ledger struct {
	store  kv.Store
	logger *slog.Logger
}

func NewLedger(store kv.Store, logger *slog.Logger) *Ledger {
	return &Ledger{store: store, logger: logger}
}

// DaysBetween returns the whole days elapsed from start to end. Negative
// spans, e.g. from clock skew, count as zero.
func DaysBetween(start, end time.Time) int {
	elapsed := end.Sub(start)
	if elapsed < 0 {
		return 0
	}
	return int(elapsed / (24 * time.Hour))
}

func (l *Ledger) Record(ctx context.Context, email string, subscribedAt time.Time, source, reason string, unsubscribedAt time.Time) (domain.UnsubscribeRecord, error) {
	rec := domain.UnsubscribeRecord{
		Email:                 email,
		UnsubscribedAt:        unsubscribedAt,
		OriginalSubscribeDate: subscribedAt,
		Source:                source,
		Reason:                reason,
		DaysSubscribed:        DaysBetween(subscribedAt, unsubscribedAt),
	}

	if err := kv.SetJSON(ctx, l.store, unsubscribeKey(email), rec); err != nil {
		return domain.UnsubscribeRecord{}, storeErr("writing unsubscribe record", err)
	}
	l.logger.Debug("unsubscribe recorded", "email", email, "reason", reason)
	return rec, nil
}

// Get returns the last unsubscribe record for email, or nil if there is none.
func (l *Ledger) Get(ctx context.Context, email string) (*domain.UnsubscribeRecord, error) {
	rec, found, err := kv.GetJSON[domain.UnsubscribeRecord](ctx, l.store, unsubscribeKey(NormalizeEmail(email)))
	if err != nil {
		return nil, storeErr("reading unsubscribe record", err)
	}
	if !found {
		return nil, nil
	}
	return &rec, nil
}
