package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCountersIncrement(t *testing.T) {
	before := testutil.ToFloat64(CorrelationMisses)
	CorrelationMisses.Inc()
	if got := testutil.ToFloat64(CorrelationMisses); got != before+1 {
		t.Fatalf("CorrelationMisses = %v, want %v", got, before+1)
	}

	TargetsTotal.WithLabelValues("not_found").Inc()
	if got := testutil.ToFloat64(TargetsTotal.WithLabelValues("not_found")); got < 1 {
		t.Fatalf("TargetsTotal{not_found} = %v", got)
	}
}
