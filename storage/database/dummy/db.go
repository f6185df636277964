package dummydb

import (
	"sync"

	"github.com/trezcool/mafunzo/core/assessment"
	"github.com/trezcool/mafunzo/core/group"
	"github.com/trezcool/mafunzo/core/user"
)

type (
	DB struct {
		membership *membershipTable
		assessment *assessmentTable
	}

	membershipTable struct {
		sync.RWMutex
		users  map[int]*user.User
		groups map[int]*group.Group
		edges  []group.Edge
	}

	assessmentTable struct {
		sync.RWMutex
		attempts map[int]*assessment.Attempt
		archives map[int]*assessment.Archive
	}
)

func Open() (*DB, error) {
	db := &DB{
		membership: &membershipTable{
			users:  make(map[int]*user.User),
			groups: make(map[int]*group.Group),
		},
		assessment: &assessmentTable{
			attempts: make(map[int]*assessment.Attempt),
			archives: make(map[int]*assessment.Archive),
		},
	}
	return db, nil
}
