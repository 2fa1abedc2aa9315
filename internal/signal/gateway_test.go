package signal

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestGatewayProbeHealthy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := NewGatewayProbe(srv.URL).Probe(context.Background())
	if s.Flag == nil || !*s.Flag {
		t.Errorf("healthy backend: sample = %+v, want flag true", s)
	}
}

func TestGatewayProbeUnhealthyStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	s := NewGatewayProbe(srv.URL).Probe(context.Background())
	if s.Flag == nil || *s.Flag {
		t.Errorf("5xx backend: sample = %+v, want flag false", s)
	}
}

func TestGatewayProbeUnreachable(t *testing.T) {
	// Fail to unhealthy, not fail to unknown: a connection error is
	// evidence the backend is down.
	s := NewGatewayProbe("http://127.0.0.1:1").Probe(context.Background())
	if s.Flag == nil || *s.Flag {
		t.Errorf("unreachable backend: sample = %+v, want flag false", s)
	}
}

func TestGatewayProbeUnconfigured(t *testing.T) {
	// No URL at all is the one truly indeterminate case.
	s := NewGatewayProbe("").Probe(context.Background())
	if s.Flag != nil {
		t.Errorf("unconfigured probe: sample = %+v, want no data", s)
	}
}

func TestGatewayProbeCancelledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := NewGatewayProbe(srv.URL).Probe(ctx)
	if s.Flag == nil || *s.Flag {
		t.Errorf("cancelled probe: sample = %+v, want flag false", s)
	}
}
