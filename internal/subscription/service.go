package subscription

import (
	"log/slog"
	"time"

	"github.com/Priya8975/subscription-service/internal/kv"
)

// Service wires the four components over one store.
type Service struct {
	Registry   *Registry
	Aggregator *Aggregator
	Ledger     *Ledger
	Projector  *Projector
}

func NewService(store kv.Store, logger *slog.Logger) *Service {
	aggregator := NewAggregator(store, logger)
	ledger := NewLedger(store, logger)
	registry := NewRegistry(store, aggregator, ledger, logger)

	return &Service{
		Registry:   registry,
		Aggregator: aggregator,
		Ledger:     ledger,
		Projector:  NewProjector(registry),
	}
}

// SetClock replaces the time source of every component.
func (s *Service) SetClock(now func() time.Time) {
	s.Registry.now = now
	s.Aggregator.now = now
}
