package metrics

import (
	"context"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestEnabled(t *testing.T) {
	t.Parallel()

	for addr, want := range map[string]bool{"": false, " off ": false, "Disabled": false, "false": false, ":9090": true} {
		if got := Enabled(addr); got != want {
			t.Fatalf("Enabled(%q) = %v want %v", addr, got, want)
		}
	}
}

func TestStartServerDisabled(t *testing.T) {
	t.Parallel()

	srv, errCh := StartServer(context.Background(), "off")
	if srv != nil || errCh != nil {
		t.Fatal("StartServer(off) started a listener")
	}
}

func TestHandlerExposesCollectors(t *testing.T) {
	t.Parallel()

	JobPollsTotal.WithLabelValues("ok").Inc()

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), "copyjob_job_polls_total") {
		t.Fatalf("metrics output missing job polls counter")
	}
}
