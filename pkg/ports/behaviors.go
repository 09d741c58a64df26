package ports

import "github.com/aretw0/gameflow/pkg/domain"

// Behaviors supplies the predicates and actions named by node payloads.
// The engine resolves every behavior once, when a flow is loaded.
type Behaviors interface {
	// Predicate returns the predicate registered under name.
	Predicate(name string) (domain.Predicate, bool)
	// Action returns the action registered under name.
	Action(name string) (domain.ActionFunc, bool)
}
