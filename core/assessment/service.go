package assessment

import (
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/mafunzo/core"
	"github.com/trezcool/mafunzo/core/access"
	"github.com/trezcool/mafunzo/core/answer"
	"github.com/trezcool/mafunzo/core/schedule"
	"github.com/trezcool/mafunzo/core/user"
)

var NowFunc = time.Now // mockable

const (
	resitLimitMsg   = "Maximum number of attempts reached"
	accessDeniedMsg = "Access denied"
	notStartableMsg = "This test cannot be started right now"
)

// Service sequences start -> answer-capture -> finish -> archive,
// using the scheduler and resolver as gates and the validator per
// question. It owns no storage mechanics beyond its Repository.
type Service struct {
	repo      Repository
	resolver  *access.Resolver
	scheduler *schedule.Scheduler
	validator *answer.Validator
	conf      *core.Config
	log       core.Logger
}

func NewService(repo Repository, resolver *access.Resolver, scheduler *schedule.Scheduler, validator *answer.Validator, conf *core.Config, log core.Logger) *Service {
	return &Service{
		repo:      repo,
		resolver:  resolver,
		scheduler: scheduler,
		validator: validator,
		conf:      conf,
		log:       log,
	}
}

func (svc *Service) maxAttempts(t Test) int {
	if t.MaxAttempts != 0 {
		return t.MaxAttempts
	}
	return svc.conf.DefaultMaxAttempts
}

// CanStartTest is the eligibility gate for StartTest: the test must be
// released to the trainee and the resit bound not yet reached. The
// message distinguishes "not yet available" from "resit limit reached".
func (svc *Service) CanStartTest(usr user.User, t Test) (bool, string) {
	if usr.IsAdmin() {
		return true, ""
	}

	if ok, msg := svc.scheduler.IsAvailable(t, usr, NowFunc()); !ok {
		return false, msg
	}

	if max := svc.maxAttempts(t); max != UnlimitedAttempts {
		n, err := svc.repo.CountArchives(t.ID, usr.ID)
		if err != nil {
			svc.log.Error("assessment: counting archives failed", err, usr)
			return false, notStartableMsg
		}
		if n >= max {
			return false, resitLimitMsg
		}
	}
	return true, ""
}

// StartTest begins (or resumes) the trainee's attempt, recording the
// start timestamp. It returns ErrNotEligible when the gate fails;
// callers wanting the user-facing message should check CanStartTest.
func (svc *Service) StartTest(usr user.User, t Test) (Attempt, error) {
	if ok, msg := svc.CanStartTest(usr, t); !ok {
		return Attempt{}, errors.Wrap(ErrNotEligible, msg)
	}

	// an in-progress attempt is resumed, not restarted
	if att, err := svc.repo.GetAttempt(t.ID, usr.ID); err == nil {
		return att, nil
	} else if err != ErrAttemptNotFound {
		return Attempt{}, err
	}

	att := Attempt{
		TestID:    t.ID,
		TraineeID: usr.ID,
		State:     StateInProgress,
		StartedAt: NowFunc().UTC(),
		Answers:   make(map[int]string),
	}
	return svc.repo.CreateAttempt(att)
}

// SaveTemporaryAnswer overwrites the trainee's pending answer for the
// question: idempotent, last write wins, no history kept pre-archive.
func (svc *Service) SaveTemporaryAnswer(usr user.User, t Test, questionID int, submission string) error {
	if _, err := t.Question(questionID); err != nil {
		return err
	}

	att, err := svc.repo.GetAttempt(t.ID, usr.ID)
	if err != nil {
		return err
	}
	if att.State != StateInProgress {
		return ErrNotInProgress
	}

	att.Answers[questionID] = submission
	_, err = svc.repo.SaveAttempt(att)
	return err
}

// FinishTest submits and archives the trainee's attempt: elapsed
// duration, per-question correctness, score and grade band. The
// archive write and the temporary-answer cleanup are atomic from the
// caller's perspective.
func (svc *Service) FinishTest(usr user.User, t Test) (Archive, error) {
	att, err := svc.repo.GetAttempt(t.ID, usr.ID)
	if err != nil {
		return Archive{}, err
	}
	if att.State != StateInProgress {
		return Archive{}, ErrNotInProgress
	}

	now := NowFunc().UTC()
	answers, score := svc.Score(t, att.Answers)
	arch := Archive{
		UID:        uuid.New(),
		TestID:     t.ID,
		TraineeID:  usr.ID,
		StartedAt:  att.StartedAt,
		FinishedAt: now,
		Duration:   now.Sub(att.StartedAt),
		Answers:    answers,
		Score:      score,
		CreatedAt:  now,
	}
	return svc.repo.ArchiveAttempt(arch, att.ID)
}

// Score runs the validator across every question of the test against
// the given submissions. A misconfigured rule is logged and marks its
// question incorrect; it never aborts scoring of the rest.
func (svc *Service) Score(t Test, submissions map[int]string) ([]ArchivedAnswer, Score) {
	answers := make([]ArchivedAnswer, 0, len(t.Questions))

	var marks, outOf int
	for _, q := range t.Questions {
		weight := questionMarks(q)
		outOf += weight

		sub := submissions[q.ID] // missing answer scores as empty submission
		correct, err := svc.validator.Validate(sub, q.Rule)
		if err != nil {
			svc.log.Error("assessment: invalid comparator rule", err, map[string]interface{}{
				"test": t.ID, "question": q.ID,
			})
			correct = false
		}

		aa := ArchivedAnswer{QuestionID: q.ID, Submission: sub, Correct: correct}
		if correct {
			aa.Marks = weight
			marks += weight
		}
		answers = append(answers, aa)
	}

	pct := 100.0
	if outOf > 0 {
		pct = float64(marks) / float64(outOf) * 100
	}
	return answers, Score{
		Marks:      marks,
		OutOf:      outOf,
		Percentage: pct,
		Grade:      GradeFor(pct, DefaultGradeBands),
	}
}

// CanAccessResult reports whether actor may view the archived result:
// admins always, trainees their own records, group managers those of
// their accessible trainees.
func (svc *Service) CanAccessResult(actor user.User, arch Archive) (bool, string) {
	if actor.IsAdmin() || actor.ID == arch.TraineeID {
		return true, ""
	}
	if !actor.IsGroupManager() {
		return false, accessDeniedMsg
	}

	ids, err := svc.resolver.AccessibleResultIDs(actor)
	if err != nil {
		svc.log.Error("assessment: resolving result ids failed", err, actor)
		return false, accessDeniedMsg
	}
	if ids.Has(arch.ID) {
		return true, ""
	}
	return false, accessDeniedMsg
}
