package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCounters(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.SessionCreated(CauseLazy)
	m.SessionCreated(CauseLazy)
	m.SessionCreated(CauseRestart)
	m.MessageHandled(true)
	m.MessageHandled(false)
	m.MessageRejected()
	m.SummaryServed()

	if v := testutil.ToFloat64(m.SessionsCreated.WithLabelValues(CauseLazy)); v != 2 {
		t.Errorf("sessions_created_total[lazy] = %f, want 2", v)
	}
	if v := testutil.ToFloat64(m.SessionsCreated.WithLabelValues(CauseRestart)); v != 1 {
		t.Errorf("sessions_created_total[restart] = %f, want 1", v)
	}
	if v := testutil.ToFloat64(m.MessagesTotal.WithLabelValues("false")); v != 1 {
		t.Errorf("messages_total[false] = %f, want 1", v)
	}
	if v := testutil.ToFloat64(m.RejectedTotal); v != 1 {
		t.Errorf("messages_rejected_total = %f, want 1", v)
	}
	if v := testutil.ToFloat64(m.SummariesTotal); v != 1 {
		t.Errorf("summaries_total = %f, want 1", v)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.SessionCreated(CauseLazy)
	m.MessageHandled(true)
	m.MessageRejected()
	m.SummaryServed()
}

func TestHandlerExposesCounters(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.MessageHandled(true)

	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	body, _ := io.ReadAll(rr.Body)
	if !strings.Contains(string(body), `dialogue_messages_total{topic_known="true"} 1`) {
		t.Errorf("expected messages counter in exposition, got:\n%s", body)
	}
}
