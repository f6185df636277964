package access

import (
	"strconv"

	"github.com/trezcool/mafunzo/core"
	"github.com/trezcool/mafunzo/core/group"
	"github.com/trezcool/mafunzo/core/user"
)

const accessDeniedMsg = "Access denied"

type (
	// ResultRepository supplies the ids of archived results owned by
	// the given trainees.
	ResultRepository interface {
		ResultIDsForTrainees(traineeIDs []int) (group.IDSet, error)
	}

	// Resolver answers "which trainees and results may this group
	// manager see or act on?". Derived sets are cached per principal
	// and must be invalidated on any membership edge mutation.
	Resolver struct {
		groups  group.Repository
		results ResultRepository
		cache   Cache
		log     core.Logger
		hooks   []VerdictFunc
	}
)

func NewResolver(groups group.Repository, results ResultRepository, cache Cache, log core.Logger, hooks ...VerdictFunc) *Resolver {
	return &Resolver{
		groups:  groups,
		results: results,
		cache:   cache,
		log:     log,
		hooks:   hooks,
	}
}

// AccessibleTraineeIDs returns the union of all ungrouped trainees
// (no owner, no restriction) and the trainees sharing at least one
// group with mgr. The result is a set: idempotent, order-independent.
func (r *Resolver) AccessibleTraineeIDs(mgr user.User) (group.IDSet, error) {
	key := strconv.Itoa(mgr.ID)
	if ids, ok := r.cache.Get(cacheTraineeIDs, key); ok {
		return ids.Clone(), nil
	}

	ungrouped, err := r.groups.UngroupedTrainees()
	if err != nil {
		return nil, err
	}
	ids := ungrouped.Clone()

	mgrGroups, err := r.groups.GroupsOf(mgr.ID)
	if err != nil {
		return nil, err
	}
	for gid := range mgrGroups {
		members, err := r.groups.MembersOf(gid, user.RoleTrainee)
		if err != nil {
			return nil, err
		}
		for id := range members {
			ids[id] = struct{}{}
		}
	}

	r.cache.Set(cacheTraineeIDs, key, ids)
	return ids.Clone(), nil
}

// AccessibleResultIDs returns the ids of results owned by trainees in
// AccessibleTraineeIDs(mgr). An empty trainee set short-circuits to an
// empty result set without querying the results store.
func (r *Resolver) AccessibleResultIDs(mgr user.User) (group.IDSet, error) {
	key := strconv.Itoa(mgr.ID)
	if ids, ok := r.cache.Get(cacheResultIDs, key); ok {
		return ids.Clone(), nil
	}

	trainees, err := r.AccessibleTraineeIDs(mgr)
	if err != nil {
		return nil, err
	}

	ids := make(group.IDSet)
	if len(trainees) > 0 {
		ids, err = r.results.ResultIDsForTrainees(trainees.IDs())
		if err != nil {
			return nil, err
		}
	}

	r.cache.Set(cacheResultIDs, key, ids)
	return ids.Clone(), nil
}

// CanAccessTrainee reports whether actor may act on the given trainee.
// Admins always pass. Resolution failures fail closed.
func (r *Resolver) CanAccessTrainee(actor, trainee user.User) (bool, string) {
	if actor.IsAdmin() {
		return r.applyHooks(actor, trainee, true, "")
	}

	ids, err := r.AccessibleTraineeIDs(actor)
	if err != nil {
		r.log.Error("access: resolving trainee ids failed", err, actor)
		return r.applyHooks(actor, trainee, false, accessDeniedMsg)
	}
	if ids.Has(trainee.ID) {
		return r.applyHooks(actor, trainee, true, "")
	}
	return r.applyHooks(actor, trainee, false, accessDeniedMsg)
}

// CanAccessGroupManager reports whether a may act on manager b: true
// iff they share at least one group. A manager with no groups can
// access no other manager, itself included.
func (r *Resolver) CanAccessGroupManager(a, b user.User) (bool, string) {
	if a.IsAdmin() {
		return r.applyHooks(a, b, true, "")
	}

	aGroups, err := r.groups.GroupsOf(a.ID)
	if err != nil {
		r.log.Error("access: resolving groups failed", err, a)
		return r.applyHooks(a, b, false, accessDeniedMsg)
	}
	bGroups, err := r.groups.GroupsOf(b.ID)
	if err != nil {
		r.log.Error("access: resolving groups failed", err, b)
		return r.applyHooks(a, b, false, accessDeniedMsg)
	}

	if aGroups.Intersects(bGroups) {
		return r.applyHooks(a, b, true, "")
	}
	return r.applyHooks(a, b, false, accessDeniedMsg)
}

// Invalidate drops all derived sets for the given principal.
func (r *Resolver) Invalidate(principalID int) {
	key := strconv.Itoa(principalID)
	r.cache.Delete(cacheTraineeIDs, key)
	r.cache.Delete(cacheResultIDs, key)
}

// InvalidateAll drops every derived set.
func (r *Resolver) InvalidateAll() {
	r.cache.Clear()
}

// InvalidateEdge must be called by the membership store's mutation path
// after creating or removing a (userID, groupID) edge. It invalidates
// the user and every manager of the group. When the edge may have
// flipped the user's ungrouped status (0 or 1 remaining memberships),
// every manager's cached set is affected, so everything is dropped.
func (r *Resolver) InvalidateEdge(userID, groupID int) error {
	userGroups, err := r.groups.GroupsOf(userID)
	if err != nil {
		r.InvalidateAll() // cannot scope it; drop everything rather than risk staleness
		return err
	}
	if len(userGroups) <= 1 {
		r.InvalidateAll()
		return nil
	}

	r.Invalidate(userID)
	mgrs, err := r.groups.MembersOf(groupID, user.RoleGroupManager)
	if err != nil {
		r.InvalidateAll()
		return err
	}
	for id := range mgrs {
		r.Invalidate(id)
	}
	return nil
}
