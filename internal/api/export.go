package api

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"time"

	"github.com/Priya8975/subscription-service/internal/domain"
	"github.com/Priya8975/subscription-service/internal/metrics"
)

var csvHeader = []string{"Email", "Subscribed At", "Source", "Status"}

type exportResponse struct {
	TotalSubscribers int                `json:"totalSubscribers"`
	Subscribers      []domain.ExportRow `json:"subscribers"`
	ExportedAt       time.Time          `json:"exportedAt"`
}

// Export serves active subscribers as JSON (default) or CSV, optionally
// filtered by the source query parameter.
func (h *SubscriptionHandler) Export(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	source := r.URL.Query().Get("source")

	rows, err := h.service.Projector.Export(r.Context(), source)
	if err != nil {
		h.internalError(w, "export", err, "Failed to export subscribers")
		return
	}

	now := h.now().UTC()

	if format == "csv" {
		metrics.ExportRows.WithLabelValues("csv").Add(float64(len(rows)))
		writeCSV(w, rows, now)
		return
	}

	metrics.ExportRows.WithLabelValues("json").Add(float64(len(rows)))
	respondJSON(w, http.StatusOK, exportResponse{
		TotalSubscribers: len(rows),
		Subscribers:      rows,
		ExportedAt:       now,
	})
}

func writeCSV(w http.ResponseWriter, rows []domain.ExportRow, now time.Time) {
	filename := fmt.Sprintf("subscribers-%s.csv", now.Format(time.DateOnly))

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	w.WriteHeader(http.StatusOK)

	cw := csv.NewWriter(w)
	cw.Write(csvHeader)
	for _, row := range rows {
		cw.Write([]string{
			row.Email,
			row.SubscribedAt.UTC().Format(time.RFC3339),
			row.Source,
			row.Status,
		})
	}
	cw.Flush()
}
