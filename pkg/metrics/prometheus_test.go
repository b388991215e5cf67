package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecorderCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := NewWithRegistry(reg)

	r.RecordFile("daily", "ok")
	r.RecordFile("daily", "ok")
	r.RecordFacts("daily", "PX", 3, 0)
	r.RecordFacts("daily", "PX", 0, 2)
	r.RecordUnresolved("daily", 0)

	if got := testutil.ToFloat64(r.filesTotal.WithLabelValues("daily", "ok")); got != 2 {
		t.Fatalf("files_total = %v, want 2", got)
	}
	if got := testutil.ToFloat64(r.factsInserted.WithLabelValues("daily", "PX")); got != 3 {
		t.Fatalf("facts_inserted_total = %v, want 3", got)
	}
	if got := testutil.ToFloat64(r.factsSkipped.WithLabelValues("daily", "PX")); got != 2 {
		t.Fatalf("facts_skipped_total = %v, want 2", got)
	}
	if n := testutil.CollectAndCount(r.unresolved); n != 0 {
		t.Fatalf("unresolved series = %d, want 0", n)
	}
}
