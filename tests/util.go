package testutil

import (
	"io/ioutil"
	"log"
	"testing"
	"time"

	"github.com/trezcool/mafunzo/core"
	"github.com/trezcool/mafunzo/core/group"
	"github.com/trezcool/mafunzo/core/user"
	logsvc "github.com/trezcool/mafunzo/services/logger"
	dummydb "github.com/trezcool/mafunzo/storage/database/dummy"
)

// Config returns a deterministic test configuration, bypassing the
// environment.
func Config() *core.Config {
	conf := new(core.Config)
	conf.AppName = "Mafunzo"
	conf.Env = "TEST"
	conf.Debug = true
	conf.TrimAnswerWhitespace = true
	conf.DefaultMaxAttempts = -1
	conf.DateFormat = "Jan 2, 2006"
	conf.TimeFormat = "15:04"
	return conf
}

// Logger returns a quiet core.Logger for tests.
func Logger() core.Logger {
	return logsvc.NewConsoleLogger(log.New(ioutil.Discard, "", 0))
}

func createUser(t *testing.T, repo *dummydb.GroupRepository, name string, roles []string) user.User {
	t.Helper()

	now := time.Now().UTC()
	usr := user.User{
		Name:      name,
		Username:  name,
		Email:     name + "@test.test",
		Roles:     roles,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	usr, err := repo.CreateUser(usr)
	if err != nil {
		t.Fatalf("createUser() failed: %v", err)
	}
	return usr
}

func CreateTrainee(t *testing.T, repo *dummydb.GroupRepository, name string) user.User {
	return createUser(t, repo, name, []string{user.RoleTrainee})
}

func CreateManager(t *testing.T, repo *dummydb.GroupRepository, name string) user.User {
	return createUser(t, repo, name, []string{user.RoleGroupManager})
}

func CreateAdmin(t *testing.T, repo *dummydb.GroupRepository, name string) user.User {
	return createUser(t, repo, name, []string{user.RoleAdmin})
}

func CreateGroup(t *testing.T, repo *dummydb.GroupRepository, title string) group.Group {
	t.Helper()

	now := time.Now().UTC()
	grp, err := repo.CreateGroup(group.Group{Title: title, CreatedAt: now, UpdatedAt: now})
	if err != nil {
		t.Fatalf("CreateGroup() failed: %v", err)
	}
	return grp
}

// AddMember joins a user to a group with the user's highest role.
func AddMember(t *testing.T, repo *dummydb.GroupRepository, usr user.User, grp group.Group) {
	t.Helper()

	role := user.RoleTrainee
	if usr.IsGroupManager() {
		role = user.RoleGroupManager
	}
	if err := repo.AddEdge(group.Edge{UserID: usr.ID, GroupID: grp.ID, Role: role}); err != nil {
		t.Fatalf("AddMember() failed: %v", err)
	}
}
