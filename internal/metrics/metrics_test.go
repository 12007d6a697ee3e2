package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestSubscribeRequests_CountsByOutcome(t *testing.T) {
	before := testutil.ToFloat64(SubscribeRequests.WithLabelValues("created"))

	SubscribeRequests.WithLabelValues("created").Inc()
	SubscribeRequests.WithLabelValues("created").Inc()

	after := testutil.ToFloat64(SubscribeRequests.WithLabelValues("created"))
	if after-before != 2 {
		t.Errorf("created delta = %v, want 2", after-before)
	}
}

func TestLiveClients_Gauge(t *testing.T) {
	LiveClients.Set(3)
	if got := testutil.ToFloat64(LiveClients); got != 3 {
		t.Errorf("live clients = %v, want 3", got)
	}
	LiveClients.Set(0)
}
