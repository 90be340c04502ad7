package probe

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/groundctl/groundctl/internal/config"
)

func TestNewRequiresConfiguration(t *testing.T) {
	if _, err := New(&config.ProbeSpec{}); err == nil {
		t.Fatalf("expected error for empty probe spec")
	}
}

func TestNewRejectsMultipleKinds(t *testing.T) {
	spec := &config.ProbeSpec{
		TCP:  &config.TCPProbe{Address: "127.0.0.1:3000"},
		HTTP: &config.HTTPProbe{URL: "http://127.0.0.1:3000"},
	}
	if _, err := New(spec); err == nil {
		t.Fatalf("expected error for multiple probe kinds")
	}
}

func TestTCPProbeSucceedsAgainstListener(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			conn.Close()
		}
	}()

	prober, err := New(&config.ProbeSpec{TCP: &config.TCPProbe{Address: ln.Addr().String()}})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if err := prober.Probe(context.Background()); err != nil {
		t.Fatalf("probe: %v", err)
	}
}

func TestTCPProbeFailsWithoutListener(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()

	prober, err := New(&config.ProbeSpec{TCP: &config.TCPProbe{Address: addr}})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if err := prober.Probe(context.Background()); err == nil {
		t.Fatalf("expected dial failure")
	}
}

func TestHTTPProbeExpectedStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	ok, err := New(&config.ProbeSpec{HTTP: &config.HTTPProbe{URL: srv.URL, ExpectStatus: []int{503}}})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if err := ok.Probe(context.Background()); err != nil {
		t.Fatalf("probe with expected status: %v", err)
	}

	def, err := New(&config.ProbeSpec{HTTP: &config.HTTPProbe{URL: srv.URL}})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if err := def.Probe(context.Background()); err == nil {
		t.Fatalf("expected default status check to reject 503")
	}
}

type flakyProber struct {
	failures int
	calls    int
}

func (p *flakyProber) Probe(ctx context.Context) error {
	p.calls++
	if p.calls <= p.failures {
		return errors.New("not yet")
	}
	return nil
}

func TestWaitSucceedsAfterRetries(t *testing.T) {
	spec := &config.ProbeSpec{
		Interval:         config.Duration{Duration: time.Millisecond},
		FailureThreshold: 10,
	}
	prober := &flakyProber{failures: 3}
	if err := Wait(context.Background(), prober, spec); err != nil {
		t.Fatalf("wait: %v", err)
	}
	if prober.calls != 4 {
		t.Fatalf("expected 4 attempts, got %d", prober.calls)
	}
}

func TestWaitExhaustsFailureBudget(t *testing.T) {
	spec := &config.ProbeSpec{
		Interval:         config.Duration{Duration: time.Millisecond},
		FailureThreshold: 3,
	}
	prober := &flakyProber{failures: 100}
	err := Wait(context.Background(), prober, spec)
	if err == nil || !strings.Contains(err.Error(), "readiness not reached after 3 attempts") {
		t.Fatalf("expected exhausted budget error, got %v", err)
	}
}

func TestWaitHonoursGracePeriod(t *testing.T) {
	spec := &config.ProbeSpec{
		GracePeriod:      config.Duration{Duration: 100 * time.Millisecond},
		FailureThreshold: 1,
	}
	start := time.Now()
	if err := Wait(context.Background(), &flakyProber{}, spec); err != nil {
		t.Fatalf("wait: %v", err)
	}
	if time.Since(start) < 100*time.Millisecond {
		t.Fatalf("first attempt ran before the grace period elapsed")
	}
}

func TestWaitRespectsCancellation(t *testing.T) {
	spec := &config.ProbeSpec{
		GracePeriod:      config.Duration{Duration: time.Minute},
		FailureThreshold: 1,
	}
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	if err := Wait(ctx, &flakyProber{}, spec); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
}
