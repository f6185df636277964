package access_test

import (
	"testing"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/mafunzo/core/access"
	"github.com/trezcool/mafunzo/core/assessment"
	"github.com/trezcool/mafunzo/core/group"
	"github.com/trezcool/mafunzo/core/user"
	dummydb "github.com/trezcool/mafunzo/storage/database/dummy"
	"github.com/trezcool/mafunzo/tests"
)

var errDBDown = errors.New("db down")

// brokenGroupRepo fails every query.
type brokenGroupRepo struct{}

var _ group.Repository = (*brokenGroupRepo)(nil)

func (brokenGroupRepo) GetGroupByID(int) (group.Group, error)      { return group.Group{}, errDBDown }
func (brokenGroupRepo) QueryAllGroups() ([]group.Group, error)     { return nil, errDBDown }
func (brokenGroupRepo) GroupsOf(int) (group.IDSet, error)          { return nil, errDBDown }
func (brokenGroupRepo) MembersOf(int, string) (group.IDSet, error) { return nil, errDBDown }
func (brokenGroupRepo) UngroupedTrainees() (group.IDSet, error)    { return nil, errDBDown }

// countingResults counts store hits to assert on short-circuits.
type countingResults struct {
	inner access.ResultRepository
	calls int
}

func (r *countingResults) ResultIDsForTrainees(traineeIDs []int) (group.IDSet, error) {
	r.calls++
	return r.inner.ResultIDsForTrainees(traineeIDs)
}

func setUpResolver(t *testing.T) (*access.Resolver, *dummydb.GroupRepository, *dummydb.AssessmentRepository) {
	t.Helper()

	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("dummydb.Open() failed: %v", err)
	}
	groupRepo := dummydb.NewGroupRepository(db)
	resultRepo := dummydb.NewAssessmentRepository(db)
	resolver := access.NewResolver(groupRepo, resultRepo, access.NewMemoryCache(), testutil.Logger())
	return resolver, groupRepo, resultRepo
}

func archiveFor(t *testing.T, repo *dummydb.AssessmentRepository, trainee user.User) assessment.Archive {
	t.Helper()

	now := time.Now().UTC()
	att, err := repo.CreateAttempt(assessment.Attempt{
		TestID:    1,
		TraineeID: trainee.ID,
		State:     assessment.StateInProgress,
		StartedAt: now,
	})
	if err != nil {
		t.Fatalf("CreateAttempt() failed: %v", err)
	}
	arch, err := repo.ArchiveAttempt(assessment.Archive{
		TestID:     att.TestID,
		TraineeID:  att.TraineeID,
		StartedAt:  att.StartedAt,
		FinishedAt: now,
		CreatedAt:  now,
	}, att.ID)
	if err != nil {
		t.Fatalf("ArchiveAttempt() failed: %v", err)
	}
	return arch
}

func TestResolver_AccessibleTraineeIDs(t *testing.T) {
	resolver, groupRepo, _ := setUpResolver(t)

	mgr1 := testutil.CreateManager(t, groupRepo, "mgr1")
	mgr2 := testutil.CreateManager(t, groupRepo, "mgr2")
	grp1 := testutil.CreateGroup(t, groupRepo, "Group 1")
	grp2 := testutil.CreateGroup(t, groupRepo, "Group 2")
	testutil.AddMember(t, groupRepo, mgr1, grp1)
	testutil.AddMember(t, groupRepo, mgr2, grp2)

	grouped1 := testutil.CreateTrainee(t, groupRepo, "grouped1")
	grouped2 := testutil.CreateTrainee(t, groupRepo, "grouped2")
	ungrouped := testutil.CreateTrainee(t, groupRepo, "ungrouped")
	testutil.AddMember(t, groupRepo, grouped1, grp1)
	testutil.AddMember(t, groupRepo, grouped2, grp2)

	tests := []struct {
		name string
		mgr  user.User
		want group.IDSet
	}{
		{name: "own group plus ungrouped", mgr: mgr1, want: group.NewIDSet(grouped1.ID, ungrouped.ID)},
		{name: "other group plus ungrouped", mgr: mgr2, want: group.NewIDSet(grouped2.ID, ungrouped.ID)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := resolver.AccessibleTraineeIDs(tt.mgr)
			if err != nil {
				t.Fatalf("AccessibleTraineeIDs() failed: %v", err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("AccessibleTraineeIDs() = %v, want %v", got.IDs(), tt.want.IDs())
			}
		})
	}
}

func TestResolver_AccessibleTraineeIDs_cache(t *testing.T) {
	resolver, groupRepo, _ := setUpResolver(t)

	mgr := testutil.CreateManager(t, groupRepo, "mgr")
	grp := testutil.CreateGroup(t, groupRepo, "Group")
	testutil.AddMember(t, groupRepo, mgr, grp)
	trainee := testutil.CreateTrainee(t, groupRepo, "trainee")
	testutil.AddMember(t, groupRepo, trainee, grp)

	got, err := resolver.AccessibleTraineeIDs(mgr)
	if err != nil {
		t.Fatalf("AccessibleTraineeIDs() failed: %v", err)
	}
	want := group.NewIDSet(trainee.ID)
	if !got.Equal(want) {
		t.Fatalf("AccessibleTraineeIDs() = %v, want %v", got.IDs(), want.IDs())
	}

	// recomputing without intervening mutations is idempotent
	again, _ := resolver.AccessibleTraineeIDs(mgr)
	if !again.Equal(got) {
		t.Errorf("AccessibleTraineeIDs() recompute = %v, want %v", again.IDs(), got.IDs())
	}

	// a membership change is invisible until invalidation
	newbie := testutil.CreateTrainee(t, groupRepo, "newbie")
	testutil.AddMember(t, groupRepo, newbie, grp)
	stale, _ := resolver.AccessibleTraineeIDs(mgr)
	if !stale.Equal(want) {
		t.Errorf("AccessibleTraineeIDs() before invalidation = %v, want cached %v", stale.IDs(), want.IDs())
	}

	resolver.Invalidate(mgr.ID)
	fresh, _ := resolver.AccessibleTraineeIDs(mgr)
	if want = group.NewIDSet(trainee.ID, newbie.ID); !fresh.Equal(want) {
		t.Errorf("AccessibleTraineeIDs() after invalidation = %v, want %v", fresh.IDs(), want.IDs())
	}
}

func TestResolver_AccessibleResultIDs(t *testing.T) {
	resolver, groupRepo, resultRepo := setUpResolver(t)

	mgr := testutil.CreateManager(t, groupRepo, "mgr")
	grp := testutil.CreateGroup(t, groupRepo, "Group")
	testutil.AddMember(t, groupRepo, mgr, grp)

	mine := testutil.CreateTrainee(t, groupRepo, "mine")
	other := testutil.CreateTrainee(t, groupRepo, "other")
	otherGrp := testutil.CreateGroup(t, groupRepo, "Other Group")
	testutil.AddMember(t, groupRepo, mine, grp)
	testutil.AddMember(t, groupRepo, other, otherGrp)

	visible := archiveFor(t, resultRepo, mine)
	archiveFor(t, resultRepo, other)

	got, err := resolver.AccessibleResultIDs(mgr)
	if err != nil {
		t.Fatalf("AccessibleResultIDs() failed: %v", err)
	}
	if want := group.NewIDSet(visible.ID); !got.Equal(want) {
		t.Errorf("AccessibleResultIDs() = %v, want %v", got.IDs(), want.IDs())
	}
}

func TestResolver_AccessibleResultIDs_shortCircuit(t *testing.T) {
	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("dummydb.Open() failed: %v", err)
	}
	groupRepo := dummydb.NewGroupRepository(db)
	results := &countingResults{inner: dummydb.NewAssessmentRepository(db)}
	resolver := access.NewResolver(groupRepo, results, access.NewMemoryCache(), testutil.Logger())

	// no groups, no ungrouped trainees: empty trainee set
	mgr := testutil.CreateManager(t, groupRepo, "mgr")

	got, err := resolver.AccessibleResultIDs(mgr)
	if err != nil {
		t.Fatalf("AccessibleResultIDs() failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("AccessibleResultIDs() = %v, want empty", got.IDs())
	}
	if results.calls != 0 {
		t.Errorf("results store hit %d times, want short-circuit", results.calls)
	}
}

func TestResolver_CanAccessTrainee(t *testing.T) {
	resolver, groupRepo, _ := setUpResolver(t)

	admin := testutil.CreateAdmin(t, groupRepo, "admin")
	mgr := testutil.CreateManager(t, groupRepo, "mgr")
	grp := testutil.CreateGroup(t, groupRepo, "Group")
	testutil.AddMember(t, groupRepo, mgr, grp)

	shared := testutil.CreateTrainee(t, groupRepo, "shared")
	foreign := testutil.CreateTrainee(t, groupRepo, "foreign")
	foreignGrp := testutil.CreateGroup(t, groupRepo, "Foreign Group")
	testutil.AddMember(t, groupRepo, shared, grp)
	testutil.AddMember(t, groupRepo, foreign, foreignGrp)

	tests := []struct {
		name    string
		actor   user.User
		trainee user.User
		want    bool
	}{
		{name: "admin bypasses membership", actor: admin, trainee: foreign, want: true},
		{name: "shared group", actor: mgr, trainee: shared, want: true},
		{name: "no shared group", actor: mgr, trainee: foreign},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, msg := resolver.CanAccessTrainee(tt.actor, tt.trainee)
			if ok != tt.want {
				t.Errorf("CanAccessTrainee() = %v, want %v", ok, tt.want)
			}
			if !ok && msg == "" {
				t.Error("CanAccessTrainee() denied with empty message")
			}
		})
	}
}

func TestResolver_CanAccessTrainee_failsClosed(t *testing.T) {
	resolver := access.NewResolver(brokenGroupRepo{}, nil, access.NewMemoryCache(), testutil.Logger())

	mgr := user.User{ID: 1, Roles: []string{user.RoleGroupManager}}
	trainee := user.User{ID: 2, Roles: []string{user.RoleTrainee}}
	if ok, _ := resolver.CanAccessTrainee(mgr, trainee); ok {
		t.Error("CanAccessTrainee() = true on repository failure, want denial")
	}
}

func TestResolver_CanAccessGroupManager(t *testing.T) {
	resolver, groupRepo, _ := setUpResolver(t)

	admin := testutil.CreateAdmin(t, groupRepo, "admin")
	mgr1 := testutil.CreateManager(t, groupRepo, "mgr1")
	mgr2 := testutil.CreateManager(t, groupRepo, "mgr2")
	loner := testutil.CreateManager(t, groupRepo, "loner")

	grp := testutil.CreateGroup(t, groupRepo, "Group")
	testutil.AddMember(t, groupRepo, mgr1, grp)
	testutil.AddMember(t, groupRepo, mgr2, grp)

	tests := []struct {
		name string
		a, b user.User
		want bool
	}{
		{name: "shared group", a: mgr1, b: mgr2, want: true},
		{name: "shared group, reversed", a: mgr2, b: mgr1, want: true},
		{name: "no shared group", a: mgr1, b: loner},
		{name: "no groups at all", a: loner, b: mgr1},
		{name: "self without groups", a: loner, b: loner},
		{name: "self with a group", a: mgr1, b: mgr1, want: true},
		{name: "admin bypasses membership", a: admin, b: loner, want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if ok, _ := resolver.CanAccessGroupManager(tt.a, tt.b); ok != tt.want {
				t.Errorf("CanAccessGroupManager() = %v, want %v", ok, tt.want)
			}
		})
	}
}

func TestResolver_InvalidateEdge(t *testing.T) {
	resolver, groupRepo, _ := setUpResolver(t)

	mgr := testutil.CreateManager(t, groupRepo, "mgr")
	bystander := testutil.CreateManager(t, groupRepo, "bystander")
	grp1 := testutil.CreateGroup(t, groupRepo, "Group 1")
	grp2 := testutil.CreateGroup(t, groupRepo, "Group 2")
	side := testutil.CreateGroup(t, groupRepo, "Side Group")
	testutil.AddMember(t, groupRepo, mgr, grp1)
	testutil.AddMember(t, groupRepo, bystander, side)

	trainee := testutil.CreateTrainee(t, groupRepo, "trainee")
	testutil.AddMember(t, groupRepo, trainee, grp1)
	testutil.AddMember(t, groupRepo, trainee, grp2)

	if _, err := resolver.AccessibleTraineeIDs(mgr); err != nil {
		t.Fatalf("AccessibleTraineeIDs() failed: %v", err)
	}

	// trainee keeps 2+ memberships: scoped invalidation of the trainee
	// and the mutated group's managers
	testutil.AddMember(t, groupRepo, trainee, side)
	if err := resolver.InvalidateEdge(trainee.ID, side.ID); err != nil {
		t.Fatalf("InvalidateEdge() failed: %v", err)
	}

	fresh, err := resolver.AccessibleTraineeIDs(bystander)
	if err != nil {
		t.Fatalf("AccessibleTraineeIDs() failed: %v", err)
	}
	if want := group.NewIDSet(trainee.ID); !fresh.Equal(want) {
		t.Errorf("AccessibleTraineeIDs() = %v, want %v", fresh.IDs(), want.IDs())
	}
}

func TestResolver_InvalidateEdge_ungroupedFlip(t *testing.T) {
	resolver, groupRepo, _ := setUpResolver(t)

	mgr := testutil.CreateManager(t, groupRepo, "mgr")
	grp := testutil.CreateGroup(t, groupRepo, "Group")
	testutil.AddMember(t, groupRepo, mgr, grp)

	trainee := testutil.CreateTrainee(t, groupRepo, "trainee")
	testutil.AddMember(t, groupRepo, trainee, grp)

	before, err := resolver.AccessibleTraineeIDs(mgr)
	if err != nil {
		t.Fatalf("AccessibleTraineeIDs() failed: %v", err)
	}
	if want := group.NewIDSet(trainee.ID); !before.Equal(want) {
		t.Fatalf("AccessibleTraineeIDs() = %v, want %v", before.IDs(), want.IDs())
	}

	// removing the last membership makes the trainee ungrouped; every
	// manager's cached set is affected, so everything must drop
	if err = groupRepo.RemoveEdge(trainee.ID, grp.ID); err != nil {
		t.Fatalf("RemoveEdge() failed: %v", err)
	}
	if err = resolver.InvalidateEdge(trainee.ID, grp.ID); err != nil {
		t.Fatalf("InvalidateEdge() failed: %v", err)
	}

	after, err := resolver.AccessibleTraineeIDs(mgr)
	if err != nil {
		t.Fatalf("AccessibleTraineeIDs() failed: %v", err)
	}
	if want := group.NewIDSet(trainee.ID); !after.Equal(want) { // now via the ungrouped pool
		t.Errorf("AccessibleTraineeIDs() = %v, want %v", after.IDs(), want.IDs())
	}
}

func TestResolver_hooks(t *testing.T) {
	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("dummydb.Open() failed: %v", err)
	}
	groupRepo := dummydb.NewGroupRepository(db)

	deny := func(actor, subject user.User, ok bool, msg string) (bool, string) {
		if subject.Username == "suspended" {
			return false, "Account suspended"
		}
		return ok, msg
	}
	resolver := access.NewResolver(groupRepo, dummydb.NewAssessmentRepository(db), access.NewMemoryCache(), testutil.Logger(), deny)

	admin := testutil.CreateAdmin(t, groupRepo, "admin")
	suspended := testutil.CreateTrainee(t, groupRepo, "suspended")

	ok, msg := resolver.CanAccessTrainee(admin, suspended)
	if ok {
		t.Error("CanAccessTrainee() = true, want hook veto")
	}
	if msg != "Account suspended" {
		t.Errorf("CanAccessTrainee() msg = %q, want hook message", msg)
	}
}
