package listview

import "github.com/RealZimboGuy/reviewflow/pkg/reviewflow/domain"

// Session is the capability a screen is entered with: who is looking and which
// permission scope governs the actions on screen.
type Session struct {
	Actor string
	Scope string
}

func NewSession(actor string) Session {
	return Session{Actor: actor, Scope: domain.ScopeReviewWorkflows}
}
