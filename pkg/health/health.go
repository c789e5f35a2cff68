// Package health serves liveness and readiness endpoints backed by periodic
// checks. A check flips to failing only after FailureThreshold consecutive
// errors and back to passing after SuccessThreshold consecutive successes.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
)

// CheckFunc returns nil when the checked dependency is usable.
type CheckFunc func(ctx context.Context) error

// Kind selects the endpoint a check contributes to.
type Kind int

const (
	// Liveness checks decide whether the process should be restarted.
	Liveness Kind = iota
	// Readiness checks decide whether the process receives traffic.
	Readiness
)

func (k Kind) String() string {
	if k == Liveness {
		return "liveness"
	}
	return "readiness"
}

// Check describes a registered check.
type Check struct {
	Name             string
	Kind             Kind
	Timeout          time.Duration
	Func             CheckFunc
	FailureThreshold int
	SuccessThreshold int
}

type state struct {
	Check

	passing atomic.Bool
	lastErr atomic.Pointer[string]

	// Touched only by the goroutine running the check.
	fails, oks int
}

func (s *state) observe(ctx context.Context, err error) {
	if err != nil {
		msg := err.Error()
		s.lastErr.Store(&msg)
		s.oks = 0
		s.fails++
		if s.fails >= s.FailureThreshold && s.passing.Swap(false) {
			zctx.From(ctx).Warn("Health check failing",
				zap.String("check", s.Name),
				zap.Stringer("kind", s.Kind),
				zap.Error(err),
			)
		}
		return
	}
	s.lastErr.Store(nil)
	s.fails = 0
	s.oks++
	if s.oks >= s.SuccessThreshold && !s.passing.Swap(true) {
		zctx.From(ctx).Info("Health check recovered",
			zap.String("check", s.Name),
			zap.Stringer("kind", s.Kind),
		)
	}
}

func (s *state) run(ctx context.Context) {
	checkCtx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()
	s.observe(ctx, s.Func(checkCtx))
}

// Health owns the registered checks and the manual readiness gate.
type Health struct {
	ready atomic.Bool

	mu     sync.RWMutex
	checks []*state
	cancel context.CancelFunc
}

// New returns a Health that is not ready until SetReady(true).
func New() *Health {
	return &Health{}
}

// Register adds a check. Zero thresholds default to three failures and one
// success; a zero timeout defaults to one second. Checks start passing.
func (h *Health) Register(c Check) {
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = 3
	}
	if c.SuccessThreshold <= 0 {
		c.SuccessThreshold = 1
	}
	if c.Timeout <= 0 {
		c.Timeout = time.Second
	}
	s := &state{Check: c}
	s.passing.Store(true)

	h.mu.Lock()
	h.checks = append(h.checks, s)
	h.mu.Unlock()
}

// Start runs every check immediately and then every interval until ctx is
// done or Stop is called.
func (h *Health) Start(ctx context.Context, interval time.Duration) {
	ctx, cancel := context.WithCancel(ctx)

	h.mu.Lock()
	h.cancel = cancel
	checks := append([]*state(nil), h.checks...)
	h.mu.Unlock()

	for _, s := range checks {
		go func() {
			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			s.run(ctx)
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					s.run(ctx)
				}
			}
		}()
	}
}

// Stop ends the background checks. It is safe to call more than once.
func (h *Health) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.cancel != nil {
		h.cancel()
		h.cancel = nil
	}
}

// SetReady opens or closes the manual readiness gate.
func (h *Health) SetReady(ready bool) {
	h.ready.Store(ready)
}

// IsReady reports whether the gate is open and every readiness check passes.
func (h *Health) IsReady() bool {
	if !h.ready.Load() {
		return false
	}
	for _, r := range h.report(Readiness) {
		if !r.OK {
			return false
		}
	}
	return true
}

// Result is the state of one check as served by the health endpoints.
type Result struct {
	Name  string `json:"name"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

type response struct {
	Status string   `json:"status"`
	Checks []Result `json:"checks,omitempty"`
}

func (h *Health) report(kind Kind) []Result {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var out []Result
	for _, s := range h.checks {
		if s.Kind != kind {
			continue
		}
		r := Result{Name: s.Name, OK: s.passing.Load()}
		if msg := s.lastErr.Load(); msg != nil && !r.OK {
			r.Error = *msg
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// LiveEndpoint serves /livez.
func (h *Health) LiveEndpoint(w http.ResponseWriter, _ *http.Request) {
	results := h.report(Liveness)
	write(w, allOK(results), results)
}

// ReadyEndpoint serves /readyz.
func (h *Health) ReadyEndpoint(w http.ResponseWriter, _ *http.Request) {
	results := h.report(Readiness)
	ok := allOK(results)
	if !h.ready.Load() {
		ok = false
		results = append(results, Result{Name: "gate", Error: "not accepting traffic"})
	}
	write(w, ok, results)
}

func allOK(results []Result) bool {
	for _, r := range results {
		if !r.OK {
			return false
		}
	}
	return true
}

func write(w http.ResponseWriter, ok bool, results []Result) {
	resp := response{Status: "ok", Checks: results}
	status := http.StatusOK
	if !ok {
		resp.Status = "unavailable"
		status = http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}
