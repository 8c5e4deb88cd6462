package ratelimit

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"cryptids/internal/models"
)

// WindowCounter is the counter store the guard admits against.
type WindowCounter interface {
	Increment(key string, window time.Duration) (int, time.Time)
}

// AbuseTracker records breaches of abuse-tracked scopes and holds blocks.
type AbuseTracker interface {
	RecordViolation(key string) int
	Block(key string, d time.Duration) time.Time
	BlockedUntil(key string) (time.Time, bool)
}

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// GuardOption configures a Guard.
type GuardOption func(*Guard)

// WithClock sets the clock used to compute retry intervals.
func WithClock(c Clock) GuardOption {
	return func(g *Guard) { g.clock = c }
}

// WithRecorder attaches a decision recorder, typically metrics.
func WithRecorder(r Recorder) GuardOption {
	return func(g *Guard) { g.recorder = r }
}

// WithSleep replaces the function used for the escalation delay.
func WithSleep(fn SleepFunc) GuardOption {
	return func(g *Guard) { g.sleep = fn }
}

// WithWarningThreshold sets the consumed fraction of a plan at which allowed
// responses are flagged as nearing the limit.
func WithWarningThreshold(f float64) GuardOption {
	return func(g *Guard) { g.warningThreshold = f }
}

// Guard admits or denies requests. It never returns an error: any failure
// while evaluating limiter state results in the request being allowed.
type Guard struct {
	identifier *ClientIdentifier
	resolver   *PolicyResolver
	windows    WindowCounter
	violations AbuseTracker
	abuse      models.AbuseConfig

	clock            Clock
	recorder         Recorder
	sleep            SleepFunc
	warningThreshold float64

	denyLog rate.Sometimes
}

// NewGuard wires the admission components together.
func NewGuard(identifier *ClientIdentifier, resolver *PolicyResolver, windows WindowCounter, violations AbuseTracker, abuse models.AbuseConfig, opts ...GuardOption) *Guard {
	g := &Guard{
		identifier:       identifier,
		resolver:         resolver,
		windows:          windows,
		violations:       violations,
		abuse:            abuse,
		clock:            SystemClock,
		sleep:            sleepContext,
		warningThreshold: 0.8,
		denyLog:          rate.Sometimes{Interval: time.Second},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Admit evaluates req. Tier-2 escalations block the caller for the configured
// delay before the denial is returned.
func (g *Guard) Admit(ctx context.Context, req RequestInfo) Decision {
	d := g.safeEvaluate(ctx, req)
	g.record(ctx, d)
	return d
}

func (g *Guard) safeEvaluate(ctx context.Context, req RequestInfo) (d Decision) {
	defer func() {
		if p := recover(); p != nil {
			slog.Warn("Rate limit evaluation failed, allowing request",
				"path", req.Path,
				"panic", p,
			)
			d = Decision{Allowed: true, FailedOpen: true, ClientID: d.ClientID}
		}
	}()
	return g.evaluate(ctx, req)
}

// record runs outside safeEvaluate's recovery so a failing recorder cannot
// turn a denial into an admission.
func (g *Guard) record(ctx context.Context, d Decision) {
	if g.recorder == nil {
		return
	}
	defer func() {
		if p := recover(); p != nil {
			slog.Warn("Recording admission decision failed", "scope", d.Policy.Scope, "panic", p)
		}
	}()
	g.recorder.RecordDecision(ctx, d)
}

func (g *Guard) evaluate(ctx context.Context, req RequestInfo) Decision {
	clientID := g.identifier.Identify(req)
	if g.identifier.IsWhitelisted(clientID) {
		return Decision{Allowed: true, Whitelisted: true, ClientID: clientID}
	}

	policy := g.resolver.Resolve(req.Path)
	key := Key(clientID, policy.Scope)
	now := g.clock.Now()

	d := Decision{ClientID: clientID, Key: key, Policy: policy}

	if policy.AbuseTracked {
		if until, blocked := g.violations.BlockedUntil(key); blocked {
			if !until.After(now) {
				slog.Warn("Inconsistent block state, allowing request", "key", key, "blocked_until", until)
				return Decision{Allowed: true, FailedOpen: true, ClientID: clientID}
			}
			d.Reason = ReasonBlocked
			d.Tier = TierBlock
			d.ResetAt = until
			d.RetryAfter = until.Sub(now)
			return d
		}
	}

	count, resetAt := g.windows.Increment(key, policy.Window)
	d.Count = count
	d.ResetAt = resetAt
	d.Remaining = max(0, policy.MaxRequests-count)

	if count <= policy.MaxRequests {
		d.Allowed = true
		d.NearLimit = d.Remaining > 0 &&
			float64(count)/float64(policy.MaxRequests) >= g.warningThreshold
		return d
	}

	d.RetryAfter = resetAt.Sub(now)
	if !policy.AbuseTracked {
		d.Reason = ReasonRateLimited
		g.logDenial(d)
		return d
	}

	d.Reason = ReasonSearchAbuse
	d.Violations = g.violations.RecordViolation(key)

	switch {
	case d.Violations >= g.abuse.BlockThreshold:
		d.Tier = TierBlock
		until := g.violations.Block(key, g.abuse.BlockDuration)
		if until.After(d.ResetAt) {
			d.ResetAt = until
			d.RetryAfter = until.Sub(now)
		}
		slog.Warn("Client temporarily blocked",
			"client", clientID,
			"scope", policy.Scope,
			"violations", d.Violations,
			"blocked_until", until,
		)
	case d.Violations >= g.abuse.DelayThreshold:
		d.Tier = TierDelay
		slog.Warn("Delaying rate limited response",
			"client", clientID,
			"scope", policy.Scope,
			"violations", d.Violations,
			"delay", g.abuse.EscalationDelay,
		)
		if err := g.sleep(ctx, g.abuse.EscalationDelay); err != nil {
			slog.Debug("Escalation delay interrupted", "client", clientID, "error", err)
		}
	default:
		d.Tier = TierDeny
		g.logDenial(d)
	}
	return d
}

func (g *Guard) logDenial(d Decision) {
	g.denyLog.Do(func() {
		slog.Debug("Rate limit exceeded",
			"client", d.ClientID,
			"scope", d.Policy.Scope,
			"limit", d.Policy.MaxRequests,
			"retry_after", d.RetryAfterSeconds(),
		)
	})
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
