package dummydb

import (
	"sort"

	"github.com/trezcool/mafunzo/core"
	"github.com/trezcool/mafunzo/core/access"
	"github.com/trezcool/mafunzo/core/assessment"
	"github.com/trezcool/mafunzo/core/group"
)

var (
	attemptPKCount int
	archivePKCount int
)

type AssessmentRepository struct {
	db *assessmentTable
}

// interface compliance checks
var (
	_ assessment.Repository   = (*AssessmentRepository)(nil)
	_ access.ResultRepository = (*AssessmentRepository)(nil)
)

func NewAssessmentRepository(db *DB) *AssessmentRepository {
	return &AssessmentRepository{db: db.assessment}
}

func (repo *AssessmentRepository) GetAttempt(testID, traineeID int) (assessment.Attempt, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, att := range repo.db.attempts {
		if att.TestID == testID && att.TraineeID == traineeID {
			return copyAttempt(att), nil
		}
	}
	return assessment.Attempt{}, assessment.ErrAttemptNotFound
}

func (repo *AssessmentRepository) CreateAttempt(att assessment.Attempt) (assessment.Attempt, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	attemptPKCount++
	att.ID = attemptPKCount
	stored := copyAttempt(&att) // never alias the caller's answer map
	repo.db.attempts[att.ID] = &stored
	return copyAttempt(&stored), nil
}

func (repo *AssessmentRepository) SaveAttempt(att assessment.Attempt) (assessment.Attempt, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.attempts[att.ID]; !ok {
		return assessment.Attempt{}, assessment.ErrAttemptNotFound
	}
	saved := copyAttempt(&att)
	repo.db.attempts[att.ID] = &saved
	return copyAttempt(&saved), nil
}

func (repo *AssessmentRepository) ArchiveAttempt(arch assessment.Archive, attemptID int) (assessment.Archive, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.attempts[attemptID]; !ok {
		return assessment.Archive{}, assessment.ErrAttemptNotFound
	}

	archivePKCount++
	arch.ID = archivePKCount
	repo.db.archives[arch.ID] = &arch
	delete(repo.db.attempts, attemptID) // temporary answers cleared with the attempt
	return arch, nil
}

func (repo *AssessmentRepository) GetArchiveByID(id int) (assessment.Archive, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if arch, ok := repo.db.archives[id]; ok {
		return *arch, nil
	}
	return assessment.Archive{}, assessment.ErrArchiveNotFound
}

func (repo *AssessmentRepository) QueryArchives(traineeID int, ordering ...core.DBOrdering) ([]assessment.Archive, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	archives := make([]assessment.Archive, 0)
	for _, arch := range repo.db.archives {
		if arch.TraineeID == traineeID {
			archives = append(archives, *arch)
		}
	}

	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "created_at", Ascending: true}}
	}
	sort.Slice(archives, func(i, j int) bool {
		return archiveLess(archives[i], archives[j], ordering)
	})
	return archives, nil
}

func archiveLess(a, b assessment.Archive, ordering []core.DBOrdering) bool {
	for _, ord := range ordering {
		var less, equal bool
		switch ord.Field {
		case "finished_at":
			less, equal = a.FinishedAt.Before(b.FinishedAt), a.FinishedAt.Equal(b.FinishedAt)
		case "created_at":
			less, equal = a.CreatedAt.Before(b.CreatedAt), a.CreatedAt.Equal(b.CreatedAt)
		default: // id
			less, equal = a.ID < b.ID, a.ID == b.ID
		}
		if equal {
			continue
		}
		if ord.Ascending {
			return less
		}
		return !less
	}
	return false
}

func (repo *AssessmentRepository) CountArchives(testID, traineeID int) (int, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var n int
	for _, arch := range repo.db.archives {
		if arch.TestID == testID && arch.TraineeID == traineeID {
			n++
		}
	}
	return n, nil
}

func (repo *AssessmentRepository) ResultIDsForTrainees(traineeIDs []int) (group.IDSet, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	trainees := group.NewIDSet(traineeIDs...)
	ids := make(group.IDSet)
	for _, arch := range repo.db.archives {
		if trainees.Has(arch.TraineeID) {
			ids.Add(arch.ID)
		}
	}
	return ids, nil
}

func copyAttempt(att *assessment.Attempt) assessment.Attempt {
	cp := *att
	cp.Answers = make(map[int]string, len(att.Answers))
	for qid, sub := range att.Answers {
		cp.Answers[qid] = sub
	}
	return cp
}
