package dummydb_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/mafunzo/core"
	"github.com/trezcool/mafunzo/core/assessment"
	"github.com/trezcool/mafunzo/core/group"
	"github.com/trezcool/mafunzo/core/user"
	dummydb "github.com/trezcool/mafunzo/storage/database/dummy"
)

func TestGroupRepository(t *testing.T) {
	db, err := dummydb.Open()
	require.NoError(t, err)
	repo := dummydb.NewGroupRepository(db)

	mgr, err := repo.CreateUser(user.User{Username: "mgr", Roles: []string{user.RoleGroupManager}})
	require.NoError(t, err)
	trainee, err := repo.CreateUser(user.User{Username: "trainee", Roles: []string{user.RoleTrainee}})
	require.NoError(t, err)
	loner, err := repo.CreateUser(user.User{Username: "loner", Roles: []string{user.RoleTrainee}})
	require.NoError(t, err)

	grp, err := repo.CreateGroup(group.Group{Title: "Group"})
	require.NoError(t, err)
	require.NoError(t, repo.AddEdge(group.Edge{UserID: mgr.ID, GroupID: grp.ID, Role: user.RoleGroupManager}))
	require.NoError(t, repo.AddEdge(group.Edge{UserID: trainee.ID, GroupID: grp.ID, Role: user.RoleTrainee}))

	got, err := repo.GetGroupByID(grp.ID)
	require.NoError(t, err)
	assert.Equal(t, grp.Title, got.Title)
	_, err = repo.GetGroupByID(999)
	assert.Equal(t, group.ErrNotFound, err)

	ids, err := repo.GroupsOf(trainee.ID)
	require.NoError(t, err)
	assert.True(t, ids.Equal(group.NewIDSet(grp.ID)))

	members, err := repo.MembersOf(grp.ID, user.RoleTrainee)
	require.NoError(t, err)
	assert.True(t, members.Equal(group.NewIDSet(trainee.ID)), "role prefix must filter managers out")

	ungrouped, err := repo.UngroupedTrainees()
	require.NoError(t, err)
	assert.True(t, ungrouped.Equal(group.NewIDSet(loner.ID)), "the manager is not a trainee, the member is grouped")

	// adding the same edge twice is a no-op
	require.NoError(t, repo.AddEdge(group.Edge{UserID: trainee.ID, GroupID: grp.ID, Role: user.RoleTrainee}))
	members, _ = repo.MembersOf(grp.ID, user.RoleTrainee)
	assert.Len(t, members, 1)

	require.NoError(t, repo.RemoveEdge(trainee.ID, grp.ID))
	ids, _ = repo.GroupsOf(trainee.ID)
	assert.Empty(t, ids)
	ungrouped, _ = repo.UngroupedTrainees()
	assert.True(t, ungrouped.Has(trainee.ID))
}

func TestAssessmentRepository(t *testing.T) {
	db, err := dummydb.Open()
	require.NoError(t, err)
	repo := dummydb.NewAssessmentRepository(db)

	now := time.Now().UTC()
	att, err := repo.CreateAttempt(assessment.Attempt{
		TestID:    1,
		TraineeID: 7,
		State:     assessment.StateInProgress,
		StartedAt: now,
		Answers:   map[int]string{1: "Nairobi"},
	})
	require.NoError(t, err)
	require.NotZero(t, att.ID)

	// stored attempts do not share the caller's answer map
	att.Answers[1] = "Kampala"
	stored, err := repo.GetAttempt(1, 7)
	require.NoError(t, err)
	assert.Equal(t, "Nairobi", stored.Answers[1])

	_, err = repo.GetAttempt(1, 8)
	assert.Equal(t, assessment.ErrAttemptNotFound, err)

	arch, err := repo.ArchiveAttempt(assessment.Archive{TestID: 1, TraineeID: 7, StartedAt: now, CreatedAt: now}, att.ID)
	require.NoError(t, err)
	require.NotZero(t, arch.ID)

	// archival clears the attempt
	_, err = repo.GetAttempt(1, 7)
	assert.Equal(t, assessment.ErrAttemptNotFound, err)
	_, err = repo.ArchiveAttempt(assessment.Archive{}, att.ID)
	assert.Equal(t, assessment.ErrAttemptNotFound, err)

	n, err := repo.CountArchives(1, 7)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	// a resit produces a second, later archive
	att2, err := repo.CreateAttempt(assessment.Attempt{TestID: 1, TraineeID: 7, State: assessment.StateInProgress, StartedAt: now.Add(time.Hour)})
	require.NoError(t, err)
	arch2, err := repo.ArchiveAttempt(assessment.Archive{TestID: 1, TraineeID: 7, CreatedAt: now.Add(2 * time.Hour)}, att2.ID)
	require.NoError(t, err)

	archives, err := repo.QueryArchives(7)
	require.NoError(t, err)
	require.Len(t, archives, 2)
	assert.Equal(t, arch.ID, archives[0].ID, "oldest first by default")

	archives, err = repo.QueryArchives(7, core.DBOrdering{Field: "created_at"})
	require.NoError(t, err)
	require.Len(t, archives, 2)
	assert.Equal(t, arch2.ID, archives[0].ID, "descending ordering honored")

	ids, err := repo.ResultIDsForTrainees([]int{7, 8})
	require.NoError(t, err)
	assert.True(t, ids.Equal(group.NewIDSet(arch.ID, arch2.ID)))
	ids, err = repo.ResultIDsForTrainees([]int{8})
	require.NoError(t, err)
	assert.Empty(t, ids)
}
