package tracker

import (
	"math"
	"time"

	"github.com/Rohan-80800/PositLearn-sub001/internal/domain"
)

// Submission is the SubmitRequest side effect of Submit. Seq identifies the
// pending submission so a late acknowledgement can be told apart.
type Submission struct {
	QuizID    string            `json:"quizId"`
	AttemptNo int               `json:"attemptNo"`
	Answers   []string          `json:"answers"`
	Score     int               `json:"score"`
	Result    domain.QuizResult `json:"result"`
	Seq       uint64            `json:"seq"`
}

// Score grades answers against the quiz by exact string equality.
// It returns the rounded percentage and the number of correct answers.
func Score(quiz domain.Quiz, answers []string) (int, int) {
	n := len(quiz.Questions)
	if n == 0 {
		return 0, 0
	}
	correct := 0
	for i, q := range quiz.Questions {
		if i < len(answers) && answers[i] != "" && answers[i] == q.Correct {
			correct++
		}
	}
	return int(math.Round(100 * float64(correct) / float64(n))), correct
}

// QuizTracker drives one learner's attempts at one quiz.
//
// Submissions are confirm-then-transition: Submit only validates and
// produces the request; the attempt moves to Completed when the backend
// acknowledgement is applied with ConfirmSubmit. FailSubmit leaves the
// attempt in progress so it can be resubmitted.
type QuizTracker struct {
	quiz    domain.Quiz
	state   domain.QuizAttemptState
	draft   []string
	seq     uint64
	pending *Submission
}

// NewQuizTracker returns a tracker in NotStarted for the given quiz.
func NewQuizTracker(quiz domain.Quiz) (*QuizTracker, error) {
	if len(quiz.Questions) == 0 {
		return nil, domain.ErrEmptyQuiz
	}
	return &QuizTracker{
		quiz: quiz,
		state: domain.QuizAttemptState{
			QuizID: quiz.ID,
			Status: domain.StatusNotStarted,
		},
	}, nil
}

// Restore seeds the tracker from stored progress. A quiz with at least one
// submitted attempt opens as Completed; otherwise any stored answers are
// kept as a draft that Start resumes from.
func (t *QuizTracker) Restore(p domain.QuizProgress) {
	t.pending = nil
	t.state.Attempts = p.Attempts
	t.state.MaxScore = p.MaxScore
	t.state.LastScore = p.Score
	t.state.LastResult = p.Status
	t.state.CompletedAt = p.CompletedAt
	t.state.CurrentQuestionIndex = 0
	if p.Attempts >= 1 {
		t.state.Status = domain.StatusCompleted
		t.state.Answers = t.slots(p.Answers)
		t.draft = nil
		return
	}
	t.state.Status = domain.StatusNotStarted
	t.state.Answers = nil
	t.draft = append([]string(nil), p.Answers...)
}

// CheckEligibility records whether the prerequisite videos are watched.
func (t *QuizTracker) CheckEligibility(prerequisitesWatched bool) {
	t.state.Eligible = prerequisitesWatched
}

// Start begins an attempt, or resumes one left mid-flight. A completed
// quiz is started again with Retake; Start on it is ErrInvalidTransition.
func (t *QuizTracker) Start() error {
	switch t.state.Status {
	case domain.StatusInProgress:
		return nil
	case domain.StatusNotStarted:
		if !t.state.Eligible {
			return domain.ErrNotEligible
		}
		t.state.Status = domain.StatusInProgress
		t.state.Answers = t.slots(t.draft)
		t.state.CurrentQuestionIndex = clamp(len(t.draft)-1, 0, len(t.quiz.Questions)-1)
		t.draft = nil
		return nil
	default:
		return domain.ErrInvalidTransition
	}
}

// SetAnswer overwrites the answer for a question. An empty answer clears it.
func (t *QuizTracker) SetAnswer(questionIndex int, answer string) error {
	if err := t.mutable(); err != nil {
		return err
	}
	if questionIndex < 0 || questionIndex >= len(t.quiz.Questions) {
		return domain.ErrQuestionOutOfRange
	}
	t.state.Answers[questionIndex] = answer
	return nil
}

// CanAdvance reports whether the current question is answered. Callers
// disable "Next" and "Submit" until it is; GoNext itself does not check.
func (t *QuizTracker) CanAdvance() bool {
	if t.state.Status != domain.StatusInProgress {
		return false
	}
	return t.state.Answers[t.state.CurrentQuestionIndex] != ""
}

// GoNext moves to the next question. It is a no-op on the last question.
func (t *QuizTracker) GoNext() (int, error) {
	if err := t.mutable(); err != nil {
		return t.state.CurrentQuestionIndex, err
	}
	if t.state.CurrentQuestionIndex < len(t.quiz.Questions)-1 {
		t.state.CurrentQuestionIndex++
	}
	return t.state.CurrentQuestionIndex, nil
}

// GoPrevious moves to the previous question. It is a no-op on the first.
func (t *QuizTracker) GoPrevious() (int, error) {
	if err := t.mutable(); err != nil {
		return t.state.CurrentQuestionIndex, err
	}
	if t.state.CurrentQuestionIndex > 0 {
		t.state.CurrentQuestionIndex--
	}
	return t.state.CurrentQuestionIndex, nil
}

// Submit grades the attempt locally and returns the request to send.
// The state is left unchanged apart from the pending marker.
func (t *QuizTracker) Submit() (Submission, error) {
	if err := t.mutable(); err != nil {
		return Submission{}, err
	}
	for _, a := range t.state.Answers {
		if a == "" {
			return Submission{}, domain.ErrIncompleteAnswers
		}
	}
	if t.state.CurrentQuestionIndex != len(t.quiz.Questions)-1 {
		return Submission{}, domain.ErrNotOnLastQuestion
	}
	score, _ := Score(t.quiz, t.state.Answers)
	t.seq++
	sub := Submission{
		QuizID:    t.quiz.ID,
		AttemptNo: t.state.Attempts + 1,
		Answers:   append([]string(nil), t.state.Answers...),
		Score:     score,
		Result:    domain.ResultFor(score),
		Seq:       t.seq,
	}
	t.pending = &sub
	t.state.Pending = true
	return sub, nil
}

// ConfirmSubmit applies the backend acknowledgement of sub. The backend
// score and MaxScore win over the local preview.
func (t *QuizTracker) ConfirmSubmit(sub Submission, ack domain.SubmitAck) error {
	if t.pending == nil || t.pending.Seq != sub.Seq {
		return domain.ErrStaleResponse
	}
	t.pending = nil
	t.state.Pending = false
	t.state.Attempts = sub.AttemptNo
	if ack.Attempts > t.state.Attempts {
		t.state.Attempts = ack.Attempts
	}
	t.state.LastScore = ack.Score
	t.state.LastResult = domain.ResultFor(ack.Score)
	t.state.MaxScore = max(ack.MaxScore, ack.Score)
	completedAt := ack.CompletedAt
	if completedAt.IsZero() {
		completedAt = time.Now().UTC()
	}
	t.state.CompletedAt = &completedAt
	t.state.Status = domain.StatusCompleted
	return nil
}

// FailSubmit rolls back the pending marker after a failed request.
func (t *QuizTracker) FailSubmit(sub Submission) error {
	if t.pending == nil || t.pending.Seq != sub.Seq {
		return domain.ErrStaleResponse
	}
	t.pending = nil
	t.state.Pending = false
	return nil
}

// Retake starts a fresh attempt after a completed one, unless mastered.
// The attempts counter is kept until the next submission increments it.
func (t *QuizTracker) Retake() error {
	if t.state.Mastered() {
		return domain.ErrAlreadyMastered
	}
	if t.state.Status != domain.StatusCompleted {
		return domain.ErrInvalidTransition
	}
	t.state.Status = domain.StatusInProgress
	t.state.Answers = t.slots(nil)
	t.state.CurrentQuestionIndex = 0
	return nil
}

// Quiz returns the quiz content the tracker grades against.
func (t *QuizTracker) Quiz() domain.Quiz {
	return t.quiz
}

// State returns a snapshot of the attempt state.
func (t *QuizTracker) State() domain.QuizAttemptState {
	s := t.state
	s.Answers = append([]string(nil), t.state.Answers...)
	if s.CompletedAt != nil {
		at := *s.CompletedAt
		s.CompletedAt = &at
	}
	return s
}

func (t *QuizTracker) mutable() error {
	if t.state.Status != domain.StatusInProgress {
		return domain.ErrInvalidTransition
	}
	if t.pending != nil {
		return domain.ErrSubmissionPending
	}
	return nil
}

// slots pads or trims answers to one slot per question.
func (t *QuizTracker) slots(answers []string) []string {
	out := make([]string, len(t.quiz.Questions))
	copy(out, answers)
	return out
}
