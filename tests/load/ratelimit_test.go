//go:build load

// Package load contains load tests that are excluded from regular CI
// runs. Run with: go test -tags load -count=1 -timeout 60s ./tests/load/
package load

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/avollmer/deskmux/internal/middleware"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

// TestRateLimitSustainedLoad hammers a rate=10 burst=10 limiter with
// 1000 near-instant requests from one client. The bucket starts with 10
// tokens and refills at 10/sec, so the vast majority must be limited.
func TestRateLimitSustainedLoad(t *testing.T) {
	rl := middleware.NewRateLimiter(10, 10)
	handler := rl.Handler(okHandler())

	const goroutines = 10
	const reqsPerGoroutine = 100

	var ok, limited atomic.Int64
	var wg sync.WaitGroup
	wg.Add(goroutines)

	for range goroutines {
		go func() {
			defer wg.Done()
			for range reqsPerGoroutine {
				req := httptest.NewRequest(http.MethodPost, "/process", http.NoBody)
				req.RemoteAddr = "10.0.0.1:4711"
				rec := httptest.NewRecorder()
				handler.ServeHTTP(rec, req)

				switch rec.Code {
				case http.StatusOK:
					ok.Add(1)
				case http.StatusTooManyRequests:
					limited.Add(1)
				default:
					t.Errorf("unexpected status %d", rec.Code)
				}
			}
		}()
	}
	wg.Wait()

	total := ok.Load() + limited.Load()
	if total != goroutines*reqsPerGoroutine {
		t.Fatalf("accounted for %d requests, want %d", total, goroutines*reqsPerGoroutine)
	}
	if ok.Load() < 10 || ok.Load() > 100 {
		t.Fatalf("allowed = %d, want roughly the burst plus refill", ok.Load())
	}
}

// TestRateLimitManyClients tracks a distinct bucket per client and
// verifies cleanup reclaims them.
func TestRateLimitManyClients(t *testing.T) {
	rl := middleware.NewRateLimiter(10, 5)
	handler := rl.Handler(okHandler())

	const clients = 5000
	for i := range clients {
		req := httptest.NewRequest(http.MethodPost, "/process", http.NoBody)
		req.RemoteAddr = fmt.Sprintf("10.%d.%d.%d:4711", i>>16, (i>>8)&0xff, i&0xff)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("client %d: status = %d, want 200", i, rec.Code)
		}
	}
	if rl.Len() != clients {
		t.Fatalf("tracked = %d, want %d", rl.Len(), clients)
	}

	time.Sleep(20 * time.Millisecond)
	stop := rl.StartCleanup(5*time.Millisecond, 10*time.Millisecond)
	defer stop()
	time.Sleep(30 * time.Millisecond)

	if rl.Len() != 0 {
		t.Fatalf("tracked after cleanup = %d, want 0", rl.Len())
	}
}
