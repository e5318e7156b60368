package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveSeating(t *testing.T) {
	before := testutil.ToFloat64(seatingOps.WithLabelValues("seat", OutcomeRejected))

	ObserveSeating("seat", OutcomeRejected)

	assert.Equal(t, before+1, testutil.ToFloat64(seatingOps.WithLabelValues("seat", OutcomeRejected)))
}

func TestObserveHTTP_UnmatchedRoute(t *testing.T) {
	before := testutil.ToFloat64(httpRequests.WithLabelValues("unmatched", "GET", "404"))

	ObserveHTTP("", "GET", 404, time.Millisecond)

	assert.Equal(t, before+1, testutil.ToFloat64(httpRequests.WithLabelValues("unmatched", "GET", "404")))
}

func TestSetInconsistencies_ResetsOldKinds(t *testing.T) {
	SetInconsistencies(map[string]int{"stale_assignment": 2})
	SetInconsistencies(map[string]int{"orphaned_seating": 1})

	assert.Equal(t, 1, testutil.CollectAndCount(inconsistencies))
	assert.Equal(t, float64(1), testutil.ToFloat64(inconsistencies.WithLabelValues("orphaned_seating")))
}
