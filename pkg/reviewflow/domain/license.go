package domain

import (
	"strconv"
	"strings"
)

// FeatureReviewWorkflows is the license feature key for review workflows.
const FeatureReviewWorkflows = "review-workflows"

const (
	EntitlementWorkflows         = "numberOfWorkflows"
	EntitlementStagesPerWorkflow = "stagesPerWorkflow"
)

// Limits maps entitlement names to string-encoded ceilings for one feature.
type Limits map[string]string

// Get returns the ceiling for an entitlement. A missing, empty or non numeric
// value is unbounded.
func (l Limits) Get(entitlement string) Limit {
	if l == nil {
		return Unbounded()
	}
	return ParseLimit(l[entitlement])
}

// Limit is a plan ceiling, or unbounded when the plan imposes none.
type Limit struct {
	value   int
	bounded bool
}

func Unbounded() Limit { return Limit{} }

func BoundedLimit(n int) Limit { return Limit{value: n, bounded: true} }

func ParseLimit(raw string) Limit {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Unbounded()
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return Unbounded()
	}
	return BoundedLimit(n)
}

// Value returns the ceiling and whether it is bounded.
func (l Limit) Value() (int, bool) { return l.value, l.bounded }

func (l Limit) Bounded() bool { return l.bounded }

func (l Limit) String() string {
	if !l.bounded {
		return ""
	}
	return strconv.Itoa(l.value)
}
