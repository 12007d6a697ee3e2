package api

import (
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/Priya8975/subscription-service/internal/domain"
	"github.com/Priya8975/subscription-service/internal/live"
	"github.com/Priya8975/subscription-service/internal/metrics"
	"github.com/Priya8975/subscription-service/internal/subscription"
	"github.com/goccy/go-json"
)

type SubscriptionHandler struct {
	service     *subscription.Service
	hub         *live.Hub
	logger      *slog.Logger
	statsWindow int
	now         func() time.Time
}

func NewSubscriptionHandler(svc *subscription.Service, hub *live.Hub, logger *slog.Logger, statsWindow int) *SubscriptionHandler {
	return &SubscriptionHandler{
		service:     svc,
		hub:         hub,
		logger:      logger,
		statsWindow: statsWindow,
		now:         time.Now,
	}
}

type messageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func (h *SubscriptionHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	var req domain.SubscribeRequest
	// A body that does not decode is treated like one without an email.
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		req = domain.SubscribeRequest{}
	}

	prov := domain.Provenance{
		IPAddress: clientIP(r),
		UserAgent: r.UserAgent(),
	}

	created, err := h.service.Registry.Subscribe(r.Context(), req.Email, req.Source, prov)
	if err != nil {
		if subscription.IsValidation(err) {
			metrics.SubscribeRequests.WithLabelValues("invalid").Inc()
			respondError(w, http.StatusBadRequest, "Valid email address is required")
			return
		}
		metrics.SubscribeRequests.WithLabelValues("error").Inc()
		metrics.StoreErrors.WithLabelValues("subscribe").Inc()
		h.logger.Error("subscribe failed", "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to subscribe")
		return
	}

	if !created {
		metrics.SubscribeRequests.WithLabelValues("already_subscribed").Inc()
		respondJSON(w, http.StatusOK, domain.SubscribeResponse{
			Success:           true,
			Message:           "Email already subscribed",
			AlreadySubscribed: true,
		})
		return
	}

	metrics.SubscribeRequests.WithLabelValues("created").Inc()
	h.broadcast(live.ActivityEvent{
		Type:   live.EventSubscribed,
		Email:  subscription.NormalizeEmail(req.Email),
		Source: subscription.SourceLabel(req.Source),
	})

	respondJSON(w, http.StatusOK, domain.SubscribeResponse{
		Success: true,
		Message: "Successfully subscribed",
	})
}

func (h *SubscriptionHandler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	var req domain.UnsubscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		req = domain.UnsubscribeRequest{}
	}

	removed, err := h.service.Registry.Unsubscribe(r.Context(), req.Email, req.Reason)
	if err != nil {
		if subscription.IsValidation(err) {
			metrics.UnsubscribeRequests.WithLabelValues("invalid").Inc()
			respondError(w, http.StatusBadRequest, "Email is required")
			return
		}
		metrics.UnsubscribeRequests.WithLabelValues("error").Inc()
		metrics.StoreErrors.WithLabelValues("unsubscribe").Inc()
		h.logger.Error("unsubscribe failed", "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to unsubscribe")
		return
	}

	if removed {
		metrics.UnsubscribeRequests.WithLabelValues("removed").Inc()
		h.broadcast(live.ActivityEvent{
			Type:   live.EventUnsubscribed,
			Email:  subscription.NormalizeEmail(req.Email),
			Reason: subscription.ReasonLabel(req.Reason),
		})
	} else {
		metrics.UnsubscribeRequests.WithLabelValues("not_subscribed").Inc()
	}

	respondJSON(w, http.StatusOK, messageResponse{
		Success: true,
		Message: "Successfully unsubscribed",
	})
}

type statsResponse struct {
	TotalSubscribers   int              `json:"totalSubscribers"`
	Subscribers        []string         `json:"subscribers"`
	SourceBreakdown    map[string]int64 `json:"sourceBreakdown"`
	DailyStats         map[string]int64 `json:"dailyStats"`
	UnsubscribeReasons map[string]int64 `json:"unsubscribeReasons"`
	LastUpdated        time.Time        `json:"lastUpdated"`
}

// Stats serves the aggregate counters. The optional days query parameter
// overrides the configured dailyStats window; values outside
// 1..MaxStatsWindowDays are ignored.
func (h *SubscriptionHandler) Stats(w http.ResponseWriter, r *http.Request) {
	window := h.statsWindow
	if daysStr := r.URL.Query().Get("days"); daysStr != "" {
		if n, err := strconv.Atoi(daysStr); err == nil && n > 0 && n <= domain.MaxStatsWindowDays {
			window = n
		}
	}

	stats, err := h.service.Aggregator.Stats(r.Context(), window)
	if err != nil {
		h.internalError(w, "stats", err, "Failed to get subscription stats")
		return
	}

	respondJSON(w, http.StatusOK, statsResponse{
		TotalSubscribers:   stats.Total,
		Subscribers:        stats.Subscribers,
		SourceBreakdown:    stats.SourceBreakdown,
		DailyStats:         stats.DailyStats,
		UnsubscribeReasons: stats.UnsubscribeReasons,
		LastUpdated:        h.now().UTC(),
	})
}

type detailsResponse struct {
	TotalSubscribers int                       `json:"totalSubscribers"`
	Subscriptions    []domain.SubscriberRecord `json:"subscriptions"`
	ExportedAt       time.Time                 `json:"exportedAt"`
}

func (h *SubscriptionHandler) Details(w http.ResponseWriter, r *http.Request) {
	records, err := h.service.Registry.Details(r.Context())
	if err != nil {
		h.internalError(w, "details", err, "Failed to get subscription details")
		return
	}

	respondJSON(w, http.StatusOK, detailsResponse{
		TotalSubscribers: len(records),
		Subscriptions:    records,
		ExportedAt:       h.now().UTC(),
	})
}

func (h *SubscriptionHandler) internalError(w http.ResponseWriter, op string, err error, message string) {
	metrics.StoreErrors.WithLabelValues(op).Inc()
	h.logger.Error(op+" failed", "error", err)
	respondError(w, http.StatusInternalServerError, message)
}

func (h *SubscriptionHandler) broadcast(event live.ActivityEvent) {
	if h.hub == nil {
		return
	}
	event.Timestamp = h.now().UTC()
	h.hub.Broadcast(event)
}

// clientIP strips the port from RemoteAddr, which middleware.RealIP has
// already replaced with the forwarded address when one is present.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
