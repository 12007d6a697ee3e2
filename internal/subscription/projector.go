package subscription

import (
	"context"

	"github.com/Priya8975/subscription-service/internal/domain"
)

// Projector is the read-only export view over the registry.
type Projector struct {
	registry *Registry
}

func NewProjector(registry *Registry) *Projector {
	return &Projector{registry: registry}
}

// Export returns active subscribers in index order. A non-empty source keeps
// only records with exactly that source label.
func (p *Projector) Export(ctx context.Context, source string) ([]domain.ExportRow, error) {
	records, err := p.registry.resolve(ctx)
	if err != nil {
		return nil, err
	}

	rows := make([]domain.ExportRow, 0, len(records))
	for _, rec := range records {
		if source != "" && rec.Source != source {
			continue
		}
		rows = append(rows, domain.ExportRow{
			Email:        rec.Email,
			SubscribedAt: rec.SubscribedAt,
			Source:       rec.Source,
			Status:       rec.Status,
		})
	}
	return rows, nil
}
