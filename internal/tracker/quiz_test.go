package tracker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rohan-80800/PositLearn-sub001/internal/domain"
)

func quizWithAnswers(correct ...string) domain.Quiz {
	q := domain.Quiz{ID: "quiz-1", ProjectID: "p1", ModuleID: "m1", Title: "Basics"}
	for i, c := range correct {
		q.Questions = append(q.Questions, domain.Question{
			Text:    "question " + string(rune('1'+i)),
			Options: []string{c, "X", "Y"},
			Correct: c,
		})
	}
	return q
}

func startedTracker(t *testing.T, quiz domain.Quiz) *QuizTracker {
	t.Helper()
	qt, err := NewQuizTracker(quiz)
	require.NoError(t, err)
	qt.CheckEligibility(true)
	require.NoError(t, qt.Start())
	return qt
}

func answerAll(t *testing.T, qt *QuizTracker, answers ...string) {
	t.Helper()
	for i, a := range answers {
		require.NoError(t, qt.SetAnswer(i, a))
		if i < len(answers)-1 {
			_, err := qt.GoNext()
			require.NoError(t, err)
		}
	}
}

func ack(score, maxScore, attempts int) domain.SubmitAck {
	return domain.SubmitAck{Score: score, MaxScore: maxScore, Attempts: attempts, CompletedAt: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)}
}

func TestScore(t *testing.T) {
	tests := []struct {
		name    string
		correct []string
		answers []string
		score   int
		result  domain.QuizResult
	}{
		{"three of four", []string{"A", "B", "C", "D"}, []string{"A", "B", "X", "D"}, 75, domain.ResultPassed},
		{"none", []string{"A", "B"}, []string{"X", "Y"}, 0, domain.ResultFailed},
		{"two of three rounds", []string{"A", "B", "C"}, []string{"A", "B", "X"}, 67, domain.ResultFailed},
		{"all", []string{"A", "B", "C"}, []string{"A", "B", "C"}, 100, domain.ResultPassed},
		{"case sensitive", []string{"A"}, []string{"a"}, 0, domain.ResultFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score, _ := Score(quizWithAnswers(tt.correct...), tt.answers)
			assert.Equal(t, tt.score, score)
			assert.Equal(t, tt.result, domain.ResultFor(score))
		})
	}
}

func TestSubmitScenarioPassed(t *testing.T) {
	qt := startedTracker(t, quizWithAnswers("A", "B", "C", "D"))
	answerAll(t, qt, "A", "B", "X", "D")

	sub, err := qt.Submit()
	require.NoError(t, err)
	assert.Equal(t, 75, sub.Score)
	assert.Equal(t, domain.ResultPassed, sub.Result)
	assert.Equal(t, 1, sub.AttemptNo)
	assert.Equal(t, []string{"A", "B", "X", "D"}, sub.Answers)

	// Nothing transitions before the backend confirms.
	state := qt.State()
	assert.Equal(t, domain.StatusInProgress, state.Status)
	assert.True(t, state.Pending)
	assert.Equal(t, 0, state.Attempts)

	require.NoError(t, qt.ConfirmSubmit(sub, ack(75, 75, 1)))
	state = qt.State()
	assert.Equal(t, domain.StatusCompleted, state.Status)
	assert.Equal(t, 1, state.Attempts)
	assert.Equal(t, 75, state.MaxScore)
	assert.Equal(t, 75, state.LastScore)
	assert.Equal(t, domain.ResultPassed, state.LastResult)
	assert.False(t, state.Pending)
}

func TestSubmitScenarioFailed(t *testing.T) {
	qt := startedTracker(t, quizWithAnswers("A", "B"))
	answerAll(t, qt, "X", "Y")

	sub, err := qt.Submit()
	require.NoError(t, err)
	assert.Equal(t, 0, sub.Score)
	assert.Equal(t, domain.ResultFailed, sub.Result)
}

func TestStartRequiresEligibility(t *testing.T) {
	qt, err := NewQuizTracker(quizWithAnswers("A"))
	require.NoError(t, err)
	qt.CheckEligibility(false)

	require.ErrorIs(t, qt.Start(), domain.ErrNotEligible)
	assert.Equal(t, domain.StatusNotStarted, qt.State().Status)
}

func TestSubmitIncompleteLeavesStateUnchanged(t *testing.T) {
	qt := startedTracker(t, quizWithAnswers("A", "B", "C"))
	require.NoError(t, qt.SetAnswer(0, "A"))
	require.NoError(t, qt.SetAnswer(2, "C"))
	_, _ = qt.GoNext()
	_, _ = qt.GoNext()
	before := qt.State()

	for i := 0; i < 2; i++ {
		_, err := qt.Submit()
		require.ErrorIs(t, err, domain.ErrIncompleteAnswers)
		assert.Equal(t, before, qt.State())
	}
}

func TestSubmitOnlyFromLastQuestion(t *testing.T) {
	qt := startedTracker(t, quizWithAnswers("A", "B"))
	require.NoError(t, qt.SetAnswer(0, "A"))
	require.NoError(t, qt.SetAnswer(1, "B"))

	_, err := qt.Submit()
	require.ErrorIs(t, err, domain.ErrNotOnLastQuestion)
}

func TestNavigationIsBounded(t *testing.T) {
	qt := startedTracker(t, quizWithAnswers("A", "B"))

	idx, err := qt.GoPrevious()
	require.NoError(t, err)
	assert.Equal(t, 0, idx)
	assert.False(t, qt.CanAdvance())

	require.NoError(t, qt.SetAnswer(0, "A"))
	assert.True(t, qt.CanAdvance())

	idx, _ = qt.GoNext()
	assert.Equal(t, 1, idx)
	idx, _ = qt.GoNext()
	assert.Equal(t, 1, idx, "next on the last question is a no-op")

	require.ErrorIs(t, qt.SetAnswer(5, "A"), domain.ErrQuestionOutOfRange)
}

func TestPendingSubmissionBlocksEdits(t *testing.T) {
	qt := startedTracker(t, quizWithAnswers("A"))
	require.NoError(t, qt.SetAnswer(0, "A"))
	_, err := qt.Submit()
	require.NoError(t, err)

	require.ErrorIs(t, qt.SetAnswer(0, "X"), domain.ErrSubmissionPending)
	_, err = qt.Submit()
	require.ErrorIs(t, err, domain.ErrSubmissionPending)
}

func TestFailedSubmitRollsBack(t *testing.T) {
	qt := startedTracker(t, quizWithAnswers("A", "B"))
	answerAll(t, qt, "A", "B")

	sub, err := qt.Submit()
	require.NoError(t, err)
	require.NoError(t, qt.FailSubmit(sub))

	state := qt.State()
	assert.Equal(t, domain.StatusInProgress, state.Status)
	assert.False(t, state.Pending)
	assert.Equal(t, 0, state.Attempts)
	assert.Equal(t, []string{"A", "B"}, state.Answers)

	retry, err := qt.Submit()
	require.NoError(t, err)
	assert.Equal(t, 1, retry.AttemptNo)
	require.ErrorIs(t, qt.ConfirmSubmit(sub, ack(100, 100, 1)), domain.ErrStaleResponse)
	require.NoError(t, qt.ConfirmSubmit(retry, ack(100, 100, 1)))
	assert.Equal(t, domain.StatusCompleted, qt.State().Status)
}

func TestAttemptsAndMaxScoreAcrossRetakes(t *testing.T) {
	qt := startedTracker(t, quizWithAnswers("A", "B", "C", "D"))
	rounds := [][]string{
		{"A", "X", "X", "X"},
		{"A", "B", "C", "X"},
		{"A", "B", "X", "X"},
	}
	best := 0
	for n, answers := range rounds {
		if n > 0 {
			require.NoError(t, qt.Retake())
			state := qt.State()
			assert.Equal(t, n, state.Attempts, "retake keeps the attempts counter")
			assert.Equal(t, []string{"", "", "", ""}, state.Answers)
			assert.Equal(t, 0, state.CurrentQuestionIndex)
		}
		answerAll(t, qt, answers...)
		sub, err := qt.Submit()
		require.NoError(t, err)
		if sub.Score > best {
			best = sub.Score
		}
		require.NoError(t, qt.ConfirmSubmit(sub, ack(sub.Score, best, n+1)))
		assert.Equal(t, n+1, qt.State().Attempts)
	}
	state := qt.State()
	assert.Equal(t, 3, state.Attempts)
	assert.Equal(t, 75, state.MaxScore)
	assert.Equal(t, 50, state.LastScore)
}

func TestServerMaxScoreWins(t *testing.T) {
	qt := startedTracker(t, quizWithAnswers("A", "B"))
	answerAll(t, qt, "A", "X")
	sub, err := qt.Submit()
	require.NoError(t, err)
	assert.Equal(t, 50, sub.Score)

	// The backend remembers an earlier, better attempt.
	require.NoError(t, qt.ConfirmSubmit(sub, ack(50, 100, 2)))
	state := qt.State()
	assert.Equal(t, 100, state.MaxScore)
	assert.Equal(t, 2, state.Attempts)
}

func TestConfirmSubmitTakesBackendScore(t *testing.T) {
	qt := startedTracker(t, quizWithAnswers("A", "B"))
	answerAll(t, qt, "A", "B")
	sub, err := qt.Submit()
	require.NoError(t, err)
	assert.Equal(t, 100, sub.Score)

	// The backend already holds this attempt with other answers.
	require.NoError(t, qt.ConfirmSubmit(sub, ack(0, 0, 1)))
	state := qt.State()
	assert.Equal(t, 0, state.LastScore)
	assert.Equal(t, domain.ResultFailed, state.LastResult)
	assert.Equal(t, 0, state.MaxScore)
	assert.GreaterOrEqual(t, state.MaxScore, state.LastScore)
}

func TestRetakeRules(t *testing.T) {
	qt := startedTracker(t, quizWithAnswers("A"))
	require.ErrorIs(t, qt.Retake(), domain.ErrInvalidTransition)

	require.NoError(t, qt.SetAnswer(0, "A"))
	sub, err := qt.Submit()
	require.NoError(t, err)
	require.NoError(t, qt.ConfirmSubmit(sub, ack(100, 100, 1)))

	before := qt.State()
	require.ErrorIs(t, qt.Retake(), domain.ErrAlreadyMastered)
	assert.Equal(t, before, qt.State())
}

func TestRestoreAndResume(t *testing.T) {
	quiz := quizWithAnswers("A", "B", "C")

	qt, err := NewQuizTracker(quiz)
	require.NoError(t, err)
	qt.Restore(domain.QuizProgress{QuizID: quiz.ID, Answers: []string{"A", "B"}})
	qt.CheckEligibility(true)
	require.NoError(t, qt.Start())
	state := qt.State()
	assert.Equal(t, domain.StatusInProgress, state.Status)
	assert.Equal(t, 1, state.CurrentQuestionIndex)
	assert.Equal(t, []string{"A", "B", ""}, state.Answers)
	require.NoError(t, qt.Start(), "starting an attempt in progress resumes it")

	done, err := NewQuizTracker(quiz)
	require.NoError(t, err)
	done.Restore(domain.QuizProgress{QuizID: quiz.ID, MaxScore: 67, Score: 67, Attempts: 2, Status: domain.ResultFailed, Answers: []string{"A", "B", "X"}})
	done.CheckEligibility(true)
	assert.Equal(t, domain.StatusCompleted, done.State().Status)
	require.ErrorIs(t, done.Start(), domain.ErrInvalidTransition)
	require.NoError(t, done.Retake())
	assert.Equal(t, 2, done.State().Attempts)
}

func TestNewQuizTrackerRejectsEmptyQuiz(t *testing.T) {
	_, err := NewQuizTracker(domain.Quiz{ID: "empty"})
	require.ErrorIs(t, err, domain.ErrEmptyQuiz)
}
