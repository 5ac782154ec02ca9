package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordAPIRequest(t *testing.T) {
	before := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("GET", "/api/parks", "200"))
	RecordAPIRequest("GET", "/api/parks", 200, 12*time.Millisecond)
	after := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("GET", "/api/parks", "200"))
	if after-before != 1 {
		t.Errorf("request counter moved by %v, want 1", after-before)
	}
}

func TestRecordSourceRequest(t *testing.T) {
	okBefore := testutil.ToFloat64(SourceRequests.WithLabelValues("nps", "ok"))
	errBefore := testutil.ToFloat64(SourceRequests.WithLabelValues("nps", "error"))

	RecordSourceRequest("nps", nil)
	RecordSourceRequest("nps", errors.New("timeout"))
	RecordSourceRequest("nps", errors.New("timeout"))

	if got := testutil.ToFloat64(SourceRequests.WithLabelValues("nps", "ok")) - okBefore; got != 1 {
		t.Errorf("ok delta = %v, want 1", got)
	}
	if got := testutil.ToFloat64(SourceRequests.WithLabelValues("nps", "error")) - errBefore; got != 2 {
		t.Errorf("error delta = %v, want 2", got)
	}
}

func TestSetBreakerState(t *testing.T) {
	SetBreakerState("ridb", 2)
	if got := testutil.ToFloat64(CircuitBreakerState.WithLabelValues("ridb")); got != 2 {
		t.Errorf("breaker gauge = %v, want 2", got)
	}
	SetBreakerState("ridb", 0)
	if got := testutil.ToFloat64(CircuitBreakerState.WithLabelValues("ridb")); got != 0 {
		t.Errorf("breaker gauge = %v, want 0", got)
	}
}
