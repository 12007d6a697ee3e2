// Package subscription implements the subscriber state machine and the
// analytics derived from it on top of a kv.Store.
//
// The registry owns subscriber records and the ordered subscriber index.
// Every accepted mutation is followed by counter updates in the Aggregator,
// and unsubscribes are additionally written to the Ledger.
//
// Record creation is create-if-absent and every index or counter write is
// an atomic per-key update, so concurrent requests for the same email cannot
// produce duplicate records, duplicate index entries or lost increments.
// There is no transaction spanning several keys: a request that fails part
// way can leave a record without an index entry or the reverse. Readers skip
// index entries whose record is missing.
package subscription

import (
	"context"
	"log/slog"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/Priya8975/subscription-service/internal/domain"
	"github.com/Priya8975/subscription-service/internal/kv"
	"github.com/google/uuid"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Registry is the canonical set of active subscribers.
type Registry struct {
	store      kv.Store
	aggregator *Aggregator
	ledger     *Ledger
	logger     *slog.Logger
	now        func() time.Time
}

func NewRegistry(store kv.Store, aggregator *Aggregator, ledger *Ledger, logger *slog.Logger) *Registry {
	return &Registry{
		store:      store,
		aggregator: aggregator,
		ledger:     ledger,
		logger:     logger,
		now:        time.Now,
	}
}

// NormalizeEmail lowercases and trims an address into its dedup key.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidEmail reports whether email has a non-empty local part, an @, and a
// dotted domain, with no whitespace.
func ValidEmail(email string) bool {
	return emailPattern.MatchString(strings.TrimSpace(email))
}

func labelOrDefault(s, fallback string) string {
	if s = strings.TrimSpace(s); s == "" {
		return fallback
	}
	return s
}

// SourceLabel is the source a subscription is stored and counted under.
func SourceLabel(source string) string {
	return labelOrDefault(source, domain.Unknown)
}

// ReasonLabel is the reason an unsubscribe is recorded and counted under.
func ReasonLabel(reason string) string {
	return labelOrDefault(reason, domain.DefaultUnsubscribeReason)
}

// Subscribe records a new subscriber. A repeat subscribe for an address that
// is already active succeeds with created=false and changes nothing.
func (r *Registry) Subscribe(ctx context.Context, email, source string, prov domain.Provenance) (bool, error) {
	if strings.TrimSpace(email) == "" {
		return false, &ValidationError{Field: "email", Message: "email is required"}
	}
	if !ValidEmail(email) {
		return false, &ValidationError{Field: "email", Message: "valid email address is required"}
	}

	email = NormalizeEmail(email)
	source = SourceLabel(source)

	rec := domain.SubscriberRecord{
		ID:           uuid.NewString(),
		Email:        email,
		SubscribedAt: r.now().UTC(),
		Source:       source,
		Status:       domain.StatusActive,
		IPAddress:    labelOrDefault(prov.IPAddress, domain.Unknown),
		UserAgent:    labelOrDefault(prov.UserAgent, domain.Unknown),
	}

	created, err := kv.SetNXJSON(ctx, r.store, subscriptionKey(email), rec)
	if err != nil {
		return false, storeErr("writing subscriber record", err)
	}
	if !created {
		r.logger.Debug("already subscribed", "email", email)
		return false, nil
	}

	err = kv.UpdateJSON(ctx, r.store, indexKey, func(index *[]string) error {
		if !slices.Contains(*index, email) {
			*index = append(*index, email)
		}
		return nil
	})
	if err != nil {
		return false, storeErr("appending to subscriber index", err)
	}

	if err := r.aggregator.RecordSubscribe(ctx, source); err != nil {
		return false, err
	}

	r.logger.Info("subscribed", "email", email, "source", source, "id", rec.ID)
	return true, nil
}

// Unsubscribe removes an active subscriber and records the event in the
// ledger. Unsubscribing an unknown address succeeds with removed=false and
// writes nothing.
func (r *Registry) Unsubscribe(ctx context.Context, email, reason string) (bool, error) {
	if strings.TrimSpace(email) == "" {
		return false, &ValidationError{Field: "email", Message: "email is required"}
	}

	email = NormalizeEmail(email)
	reason = ReasonLabel(reason)

	rec, found, err := kv.GetJSON[domain.SubscriberRecord](ctx, r.store, subscriptionKey(email))
	if err != nil {
		return false, storeErr("reading subscriber record", err)
	}
	if !found {
		r.logger.Debug("unsubscribe for unknown email", "email", email)
		return false, nil
	}

	entry, err := r.ledger.Record(ctx, email, rec.SubscribedAt, rec.Source, reason, r.now().UTC())
	if err != nil {
		return false, err
	}

	if err := r.aggregator.RecordUnsubscribeReason(ctx, reason); err != nil {
		return false, err
	}

	if err := r.store.Delete(ctx, subscriptionKey(email)); err != nil {
		return false, storeErr("deleting subscriber record", err)
	}

	err = kv.UpdateJSON(ctx, r.store, indexKey, func(index *[]string) error {
		*index = slices.DeleteFunc(*index, func(e string) bool { return e == email })
		return nil
	})
	if err != nil {
		return false, storeErr("removing from subscriber index", err)
	}

	r.logger.Info("unsubscribed",
		"email", email,
		"reason", reason,
		"days_subscribed", entry.DaysSubscribed,
	)
	return true, nil
}

func (r *Registry) IsSubscribed(ctx context.Context, email string) (bool, error) {
	exists, err := r.store.Exists(ctx, subscriptionKey(NormalizeEmail(email)))
	if err != nil {
		return false, storeErr("checking subscriber record", err)
	}
	return exists, nil
}

// List returns the subscriber index in insertion order.
func (r *Registry) List(ctx context.Context) ([]string, error) {
	index, _, err := kv.GetJSON[[]string](ctx, r.store, indexKey)
	if err != nil {
		return nil, storeErr("reading subscriber index", err)
	}
	if index == nil {
		index = []string{}
	}
	return index, nil
}

// Details resolves every index entry to its record, most recent first.
func (r *Registry) Details(ctx context.Context) ([]domain.SubscriberRecord, error) {
	records, err := r.resolve(ctx)
	if err != nil {
		return nil, err
	}

	slices.SortStableFunc(records, func(a, b domain.SubscriberRecord) int {
		return b.SubscribedAt.Compare(a.SubscribedAt)
	})
	return records, nil
}

// resolve loads the record for each index entry in index order, skipping
// entries whose record no longer exists.
func (r *Registry) resolve(ctx context.Context) ([]domain.SubscriberRecord, error) {
	index, err := r.List(ctx)
	if err != nil {
		return nil, err
	}

	records := make([]domain.SubscriberRecord, 0, len(index))
	for _, email := range index {
		rec, found, err := kv.GetJSON[domain.SubscriberRecord](ctx, r.store, subscriptionKey(email))
		if err != nil {
			return nil, storeErr("reading subscriber record", err)
		}
		if !found {
			r.logger.Warn("subscriber index entry without record", "email", email)
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}
