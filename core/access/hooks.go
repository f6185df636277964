package access

import "github.com/trezcool/mafunzo/core/user"

// VerdictFunc lets a host veto or annotate an access verdict after the
// resolver computes it. Hooks run in registration order; each receives
// the previous verdict and returns the next one.
type VerdictFunc func(actor, subject user.User, ok bool, msg string) (bool, string)

func (r *Resolver) applyHooks(actor, subject user.User, ok bool, msg string) (bool, string) {
	for _, hook := range r.hooks {
		ok, msg = hook(actor, subject, ok, msg)
	}
	return ok, msg
}
