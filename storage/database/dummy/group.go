package dummydb

import (
	"strings"

	"github.com/trezcool/mafunzo/core/group"
	"github.com/trezcool/mafunzo/core/user"
)

var (
	userPKCount  int
	groupPKCount int
)

type GroupRepository struct {
	db *membershipTable
}

var _ group.Repository = (*GroupRepository)(nil) // interface compliance check

func NewGroupRepository(db *DB) *GroupRepository {
	return &GroupRepository{db: db.membership}
}

func (repo *GroupRepository) GetGroupByID(id int) (group.Group, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if grp, ok := repo.db.groups[id]; ok {
		return *grp, nil
	}
	return group.Group{}, group.ErrNotFound
}

func (repo *GroupRepository) QueryAllGroups() ([]group.Group, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	groups := make([]group.Group, 0, len(repo.db.groups))
	for _, grp := range repo.db.groups {
		groups = append(groups, *grp)
	}
	return groups, nil
}

func (repo *GroupRepository) GroupsOf(userID int) (group.IDSet, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	ids := make(group.IDSet)
	for _, edge := range repo.db.edges {
		if edge.UserID == userID {
			ids.Add(edge.GroupID)
		}
	}
	return ids, nil
}

func (repo *GroupRepository) MembersOf(groupID int, role string) (group.IDSet, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	ids := make(group.IDSet)
	for _, edge := range repo.db.edges {
		if edge.GroupID == groupID && strings.HasPrefix(edge.Role, role) {
			ids.Add(edge.UserID)
		}
	}
	return ids, nil
}

func (repo *GroupRepository) UngroupedTrainees() (group.IDSet, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	grouped := make(group.IDSet)
	for _, edge := range repo.db.edges {
		grouped.Add(edge.UserID)
	}

	ids := make(group.IDSet)
	for _, usr := range repo.db.users {
		if usr.IsTrainee() && !grouped.Has(usr.ID) {
			ids.Add(usr.ID)
		}
	}
	return ids, nil
}

// host-side mutations; callers must invalidate the access cache on any
// edge change (access.Resolver.InvalidateEdge)

func (repo *GroupRepository) CreateUser(usr user.User) (user.User, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	userPKCount++
	usr.ID = userPKCount
	repo.db.users[usr.ID] = &usr
	return usr, nil
}

func (repo *GroupRepository) CreateGroup(grp group.Group) (group.Group, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	groupPKCount++
	grp.ID = groupPKCount
	repo.db.groups[grp.ID] = &grp
	return grp, nil
}

func (repo *GroupRepository) AddEdge(edge group.Edge) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, e := range repo.db.edges {
		if e.UserID == edge.UserID && e.GroupID == edge.GroupID {
			return nil // already a member
		}
	}
	repo.db.edges = append(repo.db.edges, edge)
	return nil
}

func (repo *GroupRepository) RemoveEdge(userID, groupID int) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	edges := repo.db.edges[:0]
	for _, e := range repo.db.edges {
		if e.UserID != userID || e.GroupID != groupID {
			edges = append(edges, e)
		}
	}
	repo.db.edges = edges
	return nil
}
