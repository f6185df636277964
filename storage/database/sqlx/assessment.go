package sqlxrepos

import (
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/mafunzo/core"
	"github.com/trezcool/mafunzo/core/access"
	"github.com/trezcool/mafunzo/core/assessment"
	"github.com/trezcool/mafunzo/core/group"
)

type assessmentRepository struct {
	db *sqlx.DB
}

// interface compliance checks
var (
	_ assessment.Repository   = (*assessmentRepository)(nil)
	_ access.ResultRepository = (*assessmentRepository)(nil)
)

func NewAssessmentRepository(db *sqlx.DB) *assessmentRepository {
	return &assessmentRepository{db: db}
}

type attemptRow struct {
	ID        int       `db:"id"`
	TestID    int       `db:"test_id"`
	TraineeID int       `db:"trainee_id"`
	State     string    `db:"state"`
	StartedAt time.Time `db:"started_at"`
	Answers   []byte    `db:"answers"`
}

func (row attemptRow) toAttempt() (assessment.Attempt, error) {
	answers := make(map[int]string)
	if len(row.Answers) > 0 {
		if err := json.Unmarshal(row.Answers, &answers); err != nil {
			return assessment.Attempt{}, errors.Wrap(err, "decoding attempt answers")
		}
	}
	return assessment.Attempt{
		ID:        row.ID,
		TestID:    row.TestID,
		TraineeID: row.TraineeID,
		State:     assessment.State(row.State),
		StartedAt: row.StartedAt.UTC(),
		Answers:   answers,
	}, nil
}

func (repo *assessmentRepository) GetAttempt(testID, traineeID int) (assessment.Attempt, error) {
	var row attemptRow
	err := repo.db.Get(&row, `
		SELECT id, test_id, trainee_id, state, started_at, answers
		FROM attempt WHERE test_id = $1 AND trainee_id = $2`,
		testID, traineeID)
	if err == sql.ErrNoRows {
		return assessment.Attempt{}, assessment.ErrAttemptNotFound
	}
	if err != nil {
		return assessment.Attempt{}, errors.Wrap(err, "getting attempt")
	}
	return row.toAttempt()
}

func (repo *assessmentRepository) CreateAttempt(att assessment.Attempt) (assessment.Attempt, error) {
	answers, err := json.Marshal(att.Answers)
	if err != nil {
		return assessment.Attempt{}, errors.Wrap(err, "encoding attempt answers")
	}
	err = repo.db.Get(&att.ID, `
		INSERT INTO attempt (test_id, trainee_id, state, started_at, answers)
		VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		att.TestID, att.TraineeID, string(att.State), att.StartedAt, answers)
	if err != nil {
		return assessment.Attempt{}, errors.Wrap(err, "creating attempt")
	}
	return att, nil
}

func (repo *assessmentRepository) SaveAttempt(att assessment.Attempt) (assessment.Attempt, error) {
	answers, err := json.Marshal(att.Answers)
	if err != nil {
		return assessment.Attempt{}, errors.Wrap(err, "encoding attempt answers")
	}
	res, err := repo.db.Exec(`UPDATE attempt SET state = $1, answers = $2 WHERE id = $3`,
		string(att.State), answers, att.ID)
	if err != nil {
		return assessment.Attempt{}, errors.Wrap(err, "saving attempt")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return assessment.Attempt{}, assessment.ErrAttemptNotFound
	}
	return att, nil
}

func (repo *assessmentRepository) ArchiveAttempt(arch assessment.Archive, attemptID int) (assessment.Archive, error) {
	tx, err := repo.db.Beginx()
	if err != nil {
		return assessment.Archive{}, errors.Wrap(err, "beginning archive tx")
	}
	defer func() { _ = tx.Rollback() }()

	err = tx.Get(&arch.ID, `
		INSERT INTO archive (uid, test_id, trainee_id, started_at, finished_at, duration_ns,
		                     marks, out_of, percentage, grade, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11) RETURNING id`,
		arch.UID, arch.TestID, arch.TraineeID, arch.StartedAt, arch.FinishedAt, int64(arch.Duration),
		arch.Score.Marks, arch.Score.OutOf, arch.Score.Percentage, arch.Score.Grade, arch.CreatedAt)
	if err != nil {
		return assessment.Archive{}, errors.Wrap(err, "creating archive")
	}

	for _, aa := range arch.Answers {
		_, err = tx.Exec(`
			INSERT INTO archive_answer (archive_id, question_id, submission, correct, marks)
			VALUES ($1, $2, $3, $4, $5)`,
			arch.ID, aa.QuestionID, aa.Submission, aa.Correct, aa.Marks)
		if err != nil {
			return assessment.Archive{}, errors.Wrap(err, "creating archive answer")
		}
	}

	res, err := tx.Exec(`DELETE FROM attempt WHERE id = $1`, attemptID)
	if err != nil {
		return assessment.Archive{}, errors.Wrap(err, "clearing attempt")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return assessment.Archive{}, assessment.ErrAttemptNotFound
	}

	if err = tx.Commit(); err != nil {
		return assessment.Archive{}, errors.Wrap(err, "committing archive tx")
	}
	return arch, nil
}

type archiveRow struct {
	ID         int       `db:"id"`
	UID        uuid.UUID `db:"uid"`
	TestID     int       `db:"test_id"`
	TraineeID  int       `db:"trainee_id"`
	StartedAt  time.Time `db:"started_at"`
	FinishedAt time.Time `db:"finished_at"`
	DurationNS int64     `db:"duration_ns"`
	Marks      int       `db:"marks"`
	OutOf      int       `db:"out_of"`
	Percentage float64   `db:"percentage"`
	Grade      string    `db:"grade"`
	CreatedAt  time.Time `db:"created_at"`
}

func (row archiveRow) toArchive() assessment.Archive {
	return assessment.Archive{
		ID:         row.ID,
		UID:        row.UID,
		TestID:     row.TestID,
		TraineeID:  row.TraineeID,
		StartedAt:  row.StartedAt.UTC(),
		FinishedAt: row.FinishedAt.UTC(),
		Duration:   time.Duration(row.DurationNS),
		Score: assessment.Score{
			Marks:      row.Marks,
			OutOf:      row.OutOf,
			Percentage: row.Percentage,
			Grade:      row.Grade,
		},
		CreatedAt: row.CreatedAt.UTC(),
	}
}

type archiveAnswerRow struct {
	ArchiveID  int    `db:"archive_id"`
	QuestionID int    `db:"question_id"`
	Submission string `db:"submission"`
	Correct    bool   `db:"correct"`
	Marks      int    `db:"marks"`
}

func (repo *assessmentRepository) queryAnswers(archiveID int) ([]assessment.ArchivedAnswer, error) {
	var rows []archiveAnswerRow
	err := repo.db.Select(&rows, `
		SELECT archive_id, question_id, submission, correct, marks
		FROM archive_answer WHERE archive_id = $1 ORDER BY question_id`,
		archiveID)
	if err != nil {
		return nil, errors.Wrap(err, "querying archive answers")
	}
	answers := make([]assessment.ArchivedAnswer, 0, len(rows))
	for _, row := range rows {
		answers = append(answers, assessment.ArchivedAnswer{
			QuestionID: row.QuestionID,
			Submission: row.Submission,
			Correct:    row.Correct,
			Marks:      row.Marks,
		})
	}
	return answers, nil
}

func (repo *assessmentRepository) GetArchiveByID(id int) (assessment.Archive, error) {
	var row archiveRow
	err := repo.db.Get(&row, `SELECT * FROM archive WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return assessment.Archive{}, assessment.ErrArchiveNotFound
	}
	if err != nil {
		return assessment.Archive{}, errors.Wrap(err, "getting archive")
	}

	arch := row.toArchive()
	if arch.Answers, err = repo.queryAnswers(arch.ID); err != nil {
		return assessment.Archive{}, err
	}
	return arch, nil
}

func (repo *assessmentRepository) QueryArchives(traineeID int, ordering ...core.DBOrdering) ([]assessment.Archive, error) {
	orderBy := "created_at ASC"
	if len(ordering) > 0 {
		terms := make([]string, 0, len(ordering))
		for _, ord := range ordering {
			terms = append(terms, ord.String())
		}
		orderBy = strings.Join(terms, ", ")
	}

	var rows []archiveRow
	err := repo.db.Select(&rows, `SELECT * FROM archive WHERE trainee_id = $1 ORDER BY `+orderBy, traineeID)
	if err != nil {
		return nil, errors.Wrap(err, "querying archives")
	}

	archives := make([]assessment.Archive, 0, len(rows))
	for _, row := range rows {
		arch := row.toArchive()
		if arch.Answers, err = repo.queryAnswers(arch.ID); err != nil {
			return nil, err
		}
		archives = append(archives, arch)
	}
	return archives, nil
}

func (repo *assessmentRepository) CountArchives(testID, traineeID int) (int, error) {
	var n int
	err := repo.db.Get(&n, `SELECT count(*) FROM archive WHERE test_id = $1 AND trainee_id = $2`, testID, traineeID)
	if err != nil {
		return 0, errors.Wrap(err, "counting archives")
	}
	return n, nil
}

func (repo *assessmentRepository) ResultIDsForTrainees(traineeIDs []int) (group.IDSet, error) {
	var ids []int
	err := repo.db.Select(&ids, `SELECT id FROM archive WHERE trainee_id = ANY($1)`, pq.Array(traineeIDs))
	if err != nil {
		return nil, errors.Wrap(err, "querying result ids")
	}
	return group.NewIDSet(ids...), nil
}
