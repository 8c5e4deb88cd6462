// Package ratelimit decides whether inbound requests may proceed. Each client
// gets a fixed, renewing window per endpoint scope; clients that keep breaching
// the search limit are escalated from plain denial to delayed denial to a
// temporary block. The package also provides the HTTP middleware that sets the
// standard rate limit response headers.
//
// All state is process-local and in memory.
package ratelimit

import (
	"context"
	"math"
	"time"

	"cryptids/internal/models"
)

// Clock abstracts time so stores and the guard can be driven deterministically.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock is the wall clock.
var SystemClock Clock = systemClock{}

// Scope names a policy bucket. Counters are never shared across scopes.
type Scope string

const (
	ScopeGlobal Scope = "global"
	ScopeList   Scope = "list"
	ScopeDetail Scope = "detail"
	ScopeSearch Scope = "search"
	ScopeMedia  Scope = "media"
)

// Reason is the machine-readable cause of a denial.
type Reason string

const (
	ReasonNone        Reason = ""
	ReasonRateLimited Reason = models.ErrorCodeRateLimitExceeded
	ReasonSearchAbuse Reason = models.ErrorCodeSearchRateLimitExceeded
	ReasonBlocked     Reason = models.ErrorCodeTemporarilyBlocked
)

// Tier is the escalation level reached by an abuse-tracked breach.
type Tier int

// TierDeny is the first violation in an episode, TierDelay answers the denial
// after an artificial delay and TierBlock blocks the key for the cool-down.
const (
	TierNone Tier = iota
	TierDeny
	TierDelay
	TierBlock
)

func (t Tier) String() string {
	switch t {
	case TierDeny:
		return "deny"
	case TierDelay:
		return "delay"
	case TierBlock:
		return "block"
	default:
		return "none"
	}
}

// Decision is the outcome of admitting one request.
type Decision struct {
	Allowed     bool
	Whitelisted bool
	FailedOpen  bool // allowed because limiter state was unusable
	Reason      Reason
	ClientID    string
	Key         string
	Policy      Policy
	Count       int
	Remaining   int
	ResetAt     time.Time
	RetryAfter  time.Duration
	NearLimit   bool
	Violations  int
	Tier        Tier
}

// Limited reports whether the decision carries limit metadata worth exposing
// to the client.
func (d Decision) Limited() bool {
	return !d.Whitelisted && !d.FailedOpen && d.Policy.MaxRequests > 0
}

// RetryAfterSeconds rounds RetryAfter up to whole seconds, never below one.
func (d Decision) RetryAfterSeconds() int {
	secs := int(math.Ceil(d.RetryAfter.Seconds()))
	if secs < 1 {
		return 1
	}
	return secs
}

// Recorder receives every decision the guard makes. Implementations must be
// safe for concurrent use.
type Recorder interface {
	RecordDecision(ctx context.Context, d Decision)
}

// Key builds the store key for a client within a scope.
func Key(clientID string, scope Scope) string {
	return "ratelimit:" + clientID + ":" + string(scope)
}
