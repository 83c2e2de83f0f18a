package listview

import "github.com/RealZimboGuy/reviewflow/pkg/reviewflow/domain"

type DenyReason string

const (
	ReasonNone         DenyReason = ""
	ReasonLimitReached DenyReason = "limit-reached"
	ReasonForbidden    DenyReason = "forbidden"
)

// Decision is the outcome of a pre-navigation check.
type Decision struct {
	Allowed bool
	Reason  DenyReason
}

func allow() Decision { return Decision{Allowed: true} }

func deny(reason DenyReason) Decision { return Decision{Reason: reason} }

// CreateGuard decides whether the create view may be opened. meta is nil
// while the workflow count is unknown, in which case creation is allowed and
// the server has the final say.
func CreateGuard(limit domain.Limit, meta *domain.WorkflowListMeta) Decision {
	n, bounded := limit.Value()
	if bounded && meta != nil && meta.WorkflowCount >= n {
		return deny(ReasonLimitReached)
	}
	return allow()
}

// OverLimit reports whether count is already beyond a bounded limit, as
// happens after a plan downgrade. Being exactly at the limit is not over it.
func OverLimit(limit domain.Limit, count int) bool {
	n, bounded := limit.Value()
	return bounded && count > n
}
