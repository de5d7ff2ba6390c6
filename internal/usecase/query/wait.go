package query

import (
	"context"
	"time"

	"github.com/google/uuid"

	"browser-query/internal/application/port/output"
)

const (
	DefaultPollInterval  = 50 * time.Millisecond
	DefaultReloadTimeout = 30 * time.Second
)

// State is the polling state of a wait.
type State int

const (
	StatePending State = iota
	StateSatisfied
	StateTimedOut
	StateFailed
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateSatisfied:
		return "satisfied"
	case StateTimedOut:
		return "timed_out"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

type WaiterConfig struct {
	PollInterval  time.Duration
	ReloadTimeout time.Duration
	Logger        output.LoggerPort
}

// Waiter evaluates conditions repeatedly until they hold or time runs out.
// Probes of a single wait never overlap.
type Waiter struct {
	interval      time.Duration
	reloadTimeout time.Duration
	logger        output.LoggerPort
}

func NewWaiter(cfg WaiterConfig) *Waiter {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.ReloadTimeout <= 0 {
		cfg.ReloadTimeout = DefaultReloadTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = nopLogger{}
	}
	return &Waiter{
		interval:      cfg.PollInterval,
		reloadTimeout: cfg.ReloadTimeout,
		logger:        cfg.Logger,
	}
}

// Wait polls cond until it yields a truthy value. A zero timeout probes once.
// Not-found and stale errors count as pending; any other error ends the wait.
// A non-empty message replaces the "Waiting ..." line of a TimeoutError.
func (w *Waiter) Wait(ctx context.Context, src output.ElementSource, cond *Condition, timeout time.Duration, message string) (any, error) {
	return w.poll(ctx, src, cond, timeout, message, nil)
}

// ReloadUntil is Wait with a page reload after every unsuccessful probe.
// Reload failures are ignored. A zero timeout uses the configured reload timeout.
func (w *Waiter) ReloadUntil(ctx context.Context, src output.ElementSource, cond *Condition, timeout time.Duration, message string) (any, error) {
	if timeout <= 0 {
		timeout = w.reloadTimeout
	}
	log := w.logger
	return w.poll(ctx, src, cond, timeout, message, func(ctx context.Context) {
		if err := src.Reload(ctx); err != nil {
			log.Debug("reload failed", "error", err)
		}
	})
}

func (w *Waiter) poll(ctx context.Context, src output.ElementSource, cond *Condition, timeout time.Duration, message string, onMiss func(context.Context)) (any, error) {
	log := w.logger.WithFields(map[string]any{
		"wait_id":    uuid.NewString(),
		"condition":  cond.Description,
		"timeout_ms": timeout.Milliseconds(),
	})
	start := time.Now()

	if timeout <= 0 {
		v, err := cond.Fn(ctx, src)
		if err != nil {
			log.Debug("wait finished", "state", StateFailed, "error", err)
			return nil, err
		}
		if truthy(v) {
			log.Debug("wait finished", "state", StateSatisfied)
			return v, nil
		}
		log.Debug("wait finished", "state", StateTimedOut)
		return nil, w.timeoutError(cond, message, time.Since(start))
	}

	probeCtx, cancel := context.WithDeadline(ctx, start.Add(timeout))
	defer cancel()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for probe := 1; ; probe++ {
		v, err := cond.Fn(probeCtx, src)
		switch {
		case err == nil && truthy(v):
			log.Debug("wait finished", "state", StateSatisfied, "probes", probe, "elapsed_ms", time.Since(start).Milliseconds())
			return v, nil
		case err != nil && !pending(err):
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if probeCtx.Err() != nil {
				log.Debug("wait finished", "state", StateTimedOut, "probes", probe)
				return nil, w.timeoutError(cond, message, time.Since(start))
			}
			log.Debug("wait finished", "state", StateFailed, "probes", probe, "error", err)
			return nil, err
		}

		if onMiss != nil {
			onMiss(probeCtx)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-probeCtx.Done():
			log.Debug("wait finished", "state", StateTimedOut, "probes", probe)
			return nil, w.timeoutError(cond, message, time.Since(start))
		case <-ticker.C:
		}
	}
}

func (w *Waiter) timeoutError(cond *Condition, message string, elapsed time.Duration) error {
	return &TimeoutError{
		Description: cond.Description,
		Message:     message,
		Elapsed:     elapsed,
	}
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any)                          {}
func (nopLogger) Info(string, ...any)                           {}
func (nopLogger) Warn(string, ...any)                           {}
func (nopLogger) Error(string, ...any)                          {}
func (n nopLogger) WithField(string, any) output.LoggerPort     { return n }
func (n nopLogger) WithFields(map[string]any) output.LoggerPort { return n }
func (nopLogger) Close() error                                  { return nil }
