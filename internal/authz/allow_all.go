package authz

import "context"

// AllowAllAuthorizer grants every request. It exists for local development
// and tests that exercise the catalog core without standing up a real
// policy backend; spec.md's Non-goals explicitly leave a production
// Authorizer implementation (OpenFGA, a role table, etc.) out of scope.
type AllowAllAuthorizer struct{}

func (AllowAllAuthorizer) Evaluate(_ context.Context, requests []Request) ([]Decision, error) {
	decisions := make([]Decision, len(requests))
	for i := range decisions {
		decisions[i] = Decision{Allowed: true}
	}

	return decisions, nil
}
