package ratelimit

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"cryptids/internal/models"
)

// Policy is an immutable rate limit plan.
type Policy struct {
	Scope        Scope
	MaxRequests  int
	Window       time.Duration
	AbuseTracked bool
}

// WindowDescription renders the window for client-facing payloads, e.g. "60s".
func (p Policy) WindowDescription() string {
	return fmt.Sprintf("%ds", int(p.Window/time.Second))
}

// PolicyResolver maps request paths to policies.
type PolicyResolver struct {
	collection string
	detail     *regexp.Regexp
	global     Policy
	list       Policy
	detailPlan Policy
	search     Policy
	media      Policy
}

// NewPolicyResolver builds a resolver from the configured plans. Only the
// search scope is abuse-tracked.
func NewPolicyResolver(cfg models.RateLimitConfig) *PolicyResolver {
	collection := strings.Trim(cfg.CollectionPath, "/")
	plan := func(scope Scope, p models.PlanConfig) Policy {
		return Policy{Scope: scope, MaxRequests: p.MaxRequests, Window: p.Window}
	}

	search := plan(ScopeSearch, cfg.Plans.Search)
	search.AbuseTracked = true

	return &PolicyResolver{
		collection: collection,
		detail:     regexp.MustCompile(`/` + regexp.QuoteMeta(collection) + `/\d+$`),
		global:     plan(ScopeGlobal, cfg.Plans.Default),
		list:       plan(ScopeList, cfg.Plans.List),
		detailPlan: plan(ScopeDetail, cfg.Plans.Detail),
		search:     search,
		media:      plan(ScopeMedia, cfg.Plans.Media),
	}
}

// Resolve returns the policy for path. Order matters: search is nested under
// the collection and detail paths would otherwise match the list policy.
func (r *PolicyResolver) Resolve(path string) Policy {
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
	}

	switch {
	case hasSegment(path, "search"):
		return r.search
	case hasSegment(path, "images"):
		return r.media
	case r.detail.MatchString(path):
		return r.detailPlan
	case hasSegment(path, r.collection):
		return r.list
	default:
		return r.global
	}
}

// Policies returns every configured policy.
func (r *PolicyResolver) Policies() []Policy {
	return []Policy{r.global, r.list, r.detailPlan, r.search, r.media}
}

func hasSegment(path, segment string) bool {
	if segment == "" {
		return false
	}
	for _, s := range strings.Split(path, "/") {
		if s == segment {
			return true
		}
	}
	return false
}
