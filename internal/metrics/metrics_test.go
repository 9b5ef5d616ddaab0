package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics(t *testing.T) {
	Register()
	Register()

	assert.NotPanics(t, func() {
		ObserveHTTP("/api/slots", 200, 0.01)
		IncSyncTask("sms_confirmation", "completed")
		IncReminder("sent")
	})
}

func TestBookingCounters(t *testing.T) {
	before := testutil.ToFloat64(bookingsCreated)
	IncBookingCreated()
	assert.Equal(t, before+1, testutil.ToFloat64(bookingsCreated))

	rejected := testutil.ToFloat64(bookingsRejected.WithLabelValues("slot_unavailable"))
	IncBookingRejected("slot_unavailable")
	assert.Equal(t, rejected+1, testutil.ToFloat64(bookingsRejected.WithLabelValues("slot_unavailable")))

	hits := testutil.ToFloat64(slotComputations.WithLabelValues("hit"))
	IncSlotComputation(true)
	assert.Equal(t, hits+1, testutil.ToFloat64(slotComputations.WithLabelValues("hit")))
}
