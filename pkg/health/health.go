// Package health implements liveness and readiness probes. Registered checks
// run periodically in the background; probe endpoints report the cached state
// so a slow dependency never blocks the probe itself. Checks flip to
// unhealthy only after consecutive failures, which keeps one transient error
// from bouncing the service out of the load balancer.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// CheckFunc probes one component. A nil return means healthy.
type CheckFunc func(ctx context.Context) error

const (
	failAfter    = 3
	recoverAfter = 1
)

// probe holds one check and its cached state. run is only ever called from
// the probe's own goroutine; handlers read healthy and lastErr atomically.
type probe struct {
	name    string
	timeout time.Duration
	check   CheckFunc

	healthy atomic.Bool
	lastErr atomic.Pointer[error]

	fails int
	oks   int
}

func (p *probe) run(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	err := p.check(ctx)
	p.lastErr.Store(&err)

	if err != nil {
		p.oks = 0
		if p.fails++; p.fails >= failAfter {
			p.healthy.Store(false)
		}
		return
	}
	p.fails = 0
	if p.oks++; p.oks >= recoverAfter {
		p.healthy.Store(true)
	}
}

func (p *probe) failure() (string, bool) {
	if p.healthy.Load() {
		return "", false
	}
	if errp := p.lastErr.Load(); errp != nil && *errp != nil {
		return (*errp).Error(), true
	}
	return "check is unhealthy", true
}

// Service tracks liveness and readiness probes for one process.
type Service struct {
	ready atomic.Bool

	mu        sync.RWMutex
	liveness  []*probe
	readiness []*probe
	cancel    context.CancelFunc
}

// New returns a Service in the not-ready state. Call SetReady(true) after
// startup completes.
func New() *Service {
	return &Service{}
}

func (s *Service) add(dst *[]*probe, name string, timeout time.Duration, check CheckFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := &probe{name: name, timeout: timeout, check: check}
	p.healthy.Store(true)
	*dst = append(*dst, p)
}

// AddLivenessCheck registers a check for the /livez probe. Liveness failures
// signal the process itself is broken, goroutine leaks being the usual case.
func (s *Service) AddLivenessCheck(name string, timeout time.Duration, check CheckFunc) {
	s.add(&s.liveness, name, timeout, check)
}

// AddReadinessCheck registers a check for the /readyz probe, typically a
// dependency ping such as the database.
func (s *Service) AddReadinessCheck(name string, timeout time.Duration, check CheckFunc) {
	s.add(&s.readiness, name, timeout, check)
}

// Start launches one goroutine per registered probe, each running its check
// every interval until Stop is called or ctx is done.
func (s *Service) Start(ctx context.Context, interval time.Duration) {
	ctx, cancel := context.WithCancel(ctx)

	s.mu.Lock()
	s.cancel = cancel
	probes := make([]*probe, 0, len(s.liveness)+len(s.readiness))
	probes = append(probes, s.liveness...)
	probes = append(probes, s.readiness...)
	s.mu.Unlock()

	for _, p := range probes {
		go func(p *probe) {
			ticker := time.NewTicker(interval)
			defer ticker.Stop()

			p.run(ctx)
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					p.run(ctx)
				}
			}
		}(p)
	}
}

// Stop cancels the probe goroutines. Safe to call more than once.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

// SetReady flips the manual readiness gate. Shutdown sets it to false first
// so the load balancer drains traffic before the listener closes.
func (s *Service) SetReady(ready bool) {
	s.ready.Store(ready)
}

// IsReady reports whether the gate is open and every readiness probe passes.
func (s *Service) IsReady() bool {
	if !s.ready.Load() {
		return false
	}

	s.mu.RLock()
	probes := s.readiness
	s.mu.RUnlock()

	for _, p := range probes {
		if _, failed := p.failure(); failed {
			return false
		}
	}
	return true
}

type statusResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// LiveEndpoint serves the liveness probe: 200 while every liveness check
// passes, 503 with per-check errors otherwise.
func (s *Service) LiveEndpoint(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	probes := make([]*probe, len(s.liveness))
	copy(probes, s.liveness)
	s.mu.RUnlock()

	writeStatus(w, failures(probes))
}

// ReadyEndpoint serves the readiness probe. It fails while the manual gate
// is closed or any readiness check fails.
func (s *Service) ReadyEndpoint(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	probes := make([]*probe, len(s.readiness))
	copy(probes, s.readiness)
	s.mu.RUnlock()

	failed := failures(probes)
	if !s.ready.Load() {
		failed["_readiness"] = "service is not ready"
	}
	writeStatus(w, failed)
}

func failures(probes []*probe) map[string]string {
	failed := make(map[string]string)
	for _, p := range probes {
		if msg, ok := p.failure(); ok {
			failed[p.name] = msg
		}
	}
	return failed
}

func writeStatus(w http.ResponseWriter, failed map[string]string) {
	w.Header().Set("Content-Type", "application/json")

	resp := statusResponse{Status: "ok"}
	code := http.StatusOK
	if len(failed) > 0 {
		resp = statusResponse{Status: "unhealthy", Checks: failed}
		code = http.StatusServiceUnavailable
	}

	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(resp)
}
