package assessment

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/mafunzo/core"
	"github.com/trezcool/mafunzo/core/answer"
	"github.com/trezcool/mafunzo/core/schedule"
)

var (
	// errors
	ErrAttemptNotFound  = errors.New("attempt not found")
	ErrArchiveNotFound  = errors.New("archive not found")
	ErrQuestionNotFound = errors.New("question not found")
	ErrNotInProgress    = errors.New("attempt is not in progress")
	ErrNotEligible      = errors.New("not eligible")
)

// Attempt states
type State string

const (
	StateNotStarted State = "not-started"
	StateInProgress State = "in-progress"
	StateSubmitted  State = "submitted"
	StateArchived   State = "archived"
)

// UnlimitedAttempts disables the resit bound on a test.
const UnlimitedAttempts = -1

type Question struct {
	ID      int         `json:"id"`
	TestID  int         `json:"test_id"`
	Prompt  string      `json:"prompt"`
	Marks   int         `json:"marks"`   // weight; 0 counts as 1
	Choices []string    `json:"choices"` // multiple-choice candidates; empty for free input
	Rule    answer.Rule `json:"rule"`
}

type Test struct {
	ID          int          `json:"id"`
	Title       string       `json:"title"`
	MaxAttempts int          `json:"max_attempts"` // -1 unlimited; 0 falls back to the configured default
	Schedule    schedule.Map `json:"schedule"`
	Questions   []Question   `json:"questions"`
	CreatedAt   time.Time    `json:"created_at"` // UTC
	UpdatedAt   time.Time    `json:"updated_at"` // UTC
}

var _ schedule.Schedulable = (*Test)(nil)

func (t Test) ScheduleMap() schedule.Map { return t.Schedule }

func (t Test) Question(id int) (Question, error) {
	for _, q := range t.Questions {
		if q.ID == id {
			return q, nil
		}
	}
	return Question{}, ErrQuestionNotFound
}

// Attempt is a trainee's in-flight pass at a test. Answers are
// temporary, last-write-wins per question, and cleared on archival.
type Attempt struct {
	ID        int            `json:"id"`
	TestID    int            `json:"test_id"`
	TraineeID int            `json:"trainee_id"`
	State     State          `json:"state"`
	StartedAt time.Time      `json:"started_at"` // UTC
	Answers   map[int]string `json:"answers"`    // question id -> pending submission
}

// Archive is the immutable record produced when an attempt is finished
// and scored. Its ID doubles as the result identifier gated by the
// access resolver.
type Archive struct {
	ID         int              `json:"id"`
	UID        uuid.UUID        `json:"uid"`
	TestID     int              `json:"test_id"`
	TraineeID  int              `json:"trainee_id"`
	StartedAt  time.Time        `json:"started_at"`  // UTC
	FinishedAt time.Time        `json:"finished_at"` // UTC
	Duration   time.Duration    `json:"duration"`
	Answers    []ArchivedAnswer `json:"answers"`
	Score      Score            `json:"score"`
	CreatedAt  time.Time        `json:"created_at"` // UTC
}

type ArchivedAnswer struct {
	QuestionID int    `json:"question_id"`
	Submission string `json:"submission"`
	Correct    bool   `json:"correct"`
	Marks      int    `json:"marks"` // marks awarded
}

type Repository interface {
	// GetAttempt returns the trainee's current attempt at the test.
	GetAttempt(testID, traineeID int) (Attempt, error)
	CreateAttempt(att Attempt) (Attempt, error)
	SaveAttempt(att Attempt) (Attempt, error)
	// ArchiveAttempt persists the archive and clears the attempt in one
	// atomic operation: either the whole archive exists or none of it.
	ArchiveAttempt(arch Archive, attemptID int) (Archive, error)
	GetArchiveByID(id int) (Archive, error)
	// QueryArchives returns the trainee's archived results, oldest first
	// unless an ordering is given.
	QueryArchives(traineeID int, ordering ...core.DBOrdering) ([]Archive, error)
	CountArchives(testID, traineeID int) (int, error)
}
