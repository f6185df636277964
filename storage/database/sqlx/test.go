package sqlxrepos

import (
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/mafunzo/core/answer"
	"github.com/trezcool/mafunzo/core/assessment"
	"github.com/trezcool/mafunzo/core/schedule"
)

var ErrTestNotFound = errors.New("test not found")

// schedulable item types persisted in the schedule table
const (
	ItemTypeTest     = "test"
	ItemTypeResource = "resource"
)

type testRepository struct {
	db *sqlx.DB
}

func NewTestRepository(db *sqlx.DB) *testRepository {
	return &testRepository{db: db}
}

type testRow struct {
	ID          int       `db:"id"`
	Title       string    `db:"title"`
	MaxAttempts int       `db:"max_attempts"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

type questionRow struct {
	ID       int            `db:"id"`
	TestID   int            `db:"test_id"`
	Prompt   string         `db:"prompt"`
	Marks    int            `db:"marks"`
	Choices  pq.StringArray `db:"choices"`
	Kind     string         `db:"kind"`
	Operand  string         `db:"operand"`
	Modifier null.String    `db:"modifier"`
}

type scheduleRow struct {
	GroupKey  string    `db:"group_key"`
	ReleaseAt time.Time `db:"release_at"`
}

// GetTestByID loads a test with its questions and release schedule.
func (repo *testRepository) GetTestByID(id int) (assessment.Test, error) {
	var row testRow
	err := repo.db.Get(&row, `SELECT id, title, max_attempts, created_at, updated_at FROM test WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return assessment.Test{}, ErrTestNotFound
	}
	if err != nil {
		return assessment.Test{}, errors.Wrap(err, "getting test")
	}

	t := assessment.Test{
		ID:          row.ID,
		Title:       row.Title,
		MaxAttempts: row.MaxAttempts,
		CreatedAt:   row.CreatedAt.UTC(),
		UpdatedAt:   row.UpdatedAt.UTC(),
	}

	var qRows []questionRow
	err = repo.db.Select(&qRows, `
		SELECT id, test_id, prompt, marks, choices, kind, operand, modifier
		FROM question WHERE test_id = $1 ORDER BY id`, id)
	if err != nil {
		return assessment.Test{}, errors.Wrap(err, "querying questions")
	}
	for _, q := range qRows {
		t.Questions = append(t.Questions, assessment.Question{
			ID:      q.ID,
			TestID:  q.TestID,
			Prompt:  q.Prompt,
			Marks:   q.Marks,
			Choices: q.Choices,
			Rule: answer.Rule{
				Kind:     q.Kind,
				Operand:  q.Operand,
				Modifier: q.Modifier.String,
			},
		})
	}

	if t.Schedule, err = repo.scheduleFor(ItemTypeTest, id); err != nil {
		return assessment.Test{}, err
	}
	return t, nil
}

// GetResourceByID loads a schedulable resource with its release schedule.
func (repo *testRepository) GetResourceByID(id int) (schedule.Resource, error) {
	// resource bodies live with the host's content store; only the
	// schedule gate is persisted here
	res := schedule.Resource{ID: id}
	var err error
	if res.Schedule, err = repo.scheduleFor(ItemTypeResource, id); err != nil {
		return schedule.Resource{}, err
	}
	return res, nil
}

func (repo *testRepository) scheduleFor(itemType string, itemID int) (schedule.Map, error) {
	var rows []scheduleRow
	err := repo.db.Select(&rows, `
		SELECT group_key, release_at FROM schedule WHERE item_type = $1 AND item_id = $2`,
		itemType, itemID)
	if err != nil {
		return nil, errors.Wrap(err, "querying schedule")
	}

	m := make(schedule.Map, len(rows))
	for _, row := range rows {
		m[row.GroupKey] = row.ReleaseAt.UTC()
	}
	return m, nil
}

// SaveSchedule replaces the item's persisted schedule with a validated edit.
func (repo *testRepository) SaveSchedule(itemType string, itemID int, mi *schedule.MapInput) error {
	if err := mi.Validate(); err != nil {
		return err
	}

	tx, err := repo.db.Beginx()
	if err != nil {
		return errors.Wrap(err, "beginning schedule tx")
	}
	defer func() { _ = tx.Rollback() }()

	if _, err = tx.Exec(`DELETE FROM schedule WHERE item_type = $1 AND item_id = $2`, itemType, itemID); err != nil {
		return errors.Wrap(err, "clearing schedule")
	}
	for key, at := range mi.Map() {
		_, err = tx.Exec(`
			INSERT INTO schedule (item_type, item_id, group_key, release_at) VALUES ($1, $2, $3, $4)`,
			itemType, itemID, key, at)
		if err != nil {
			return errors.Wrap(err, "saving schedule entry")
		}
	}
	return errors.Wrap(tx.Commit(), "committing schedule tx")
}
