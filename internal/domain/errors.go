package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotEligible is returned when prerequisite videos are not watched yet.
	ErrNotEligible = errors.New("quiz not eligible: prerequisite videos not completed")
	// ErrIncompleteAnswers is returned when submitting with unanswered questions.
	ErrIncompleteAnswers = errors.New("quiz has unanswered questions")
	// ErrAlreadyMastered is returned when retaking a quiz scored at 100.
	ErrAlreadyMastered = errors.New("quiz already mastered")
	// ErrAttemptConflict is returned when an attempt number is replayed with
	// answers other than the ones stored for it.
	ErrAttemptConflict = errors.New("quiz attempt already stored with different answers")
	// ErrInvalidDuration is returned for a missing or non-positive video duration.
	ErrInvalidDuration = errors.New("invalid video duration")
	// ErrNotReady is returned when sampling a tracker without breakpoints.
	ErrNotReady = errors.New("video tracker not ready")
	// ErrStaleResponse marks an acknowledgement for state that moved on.
	ErrStaleResponse = errors.New("stale response")

	// ErrInvalidTransition is returned when an event is not valid in the current state.
	ErrInvalidTransition = errors.New("invalid quiz state transition")
	// ErrNotOnLastQuestion is returned when submitting before reaching the last question.
	ErrNotOnLastQuestion = errors.New("quiz can only be submitted from the last question")
	// ErrSubmissionPending is returned while a submission awaits the backend.
	ErrSubmissionPending = errors.New("quiz submission pending")
	// ErrQuestionOutOfRange indicates an answer for a question the quiz does not have.
	ErrQuestionOutOfRange = errors.New("question index out of range")
	// ErrEmptyQuiz indicates quiz content without questions.
	ErrEmptyQuiz = errors.New("quiz has no questions")

	// ErrQuizNotFound indicates the quiz content could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrProjectNotFound indicates the learning path could not be loaded.
	ErrProjectNotFound = errors.New("project not found")
	// ErrQuizNotOpen is returned for quiz events before the quiz was opened.
	ErrQuizNotOpen = errors.New("quiz not open in session")
	// ErrNoActiveVideo is returned for player events with no video open.
	ErrNoActiveVideo = errors.New("no active video")
	// ErrPathNotLoaded is returned when the session has no learning path yet.
	ErrPathNotLoaded = errors.New("learning path not loaded")
	// ErrSessionActive is returned when the learner already has a live session.
	ErrSessionActive = errors.New("learner already has an active session")
	// ErrSessionClosed is returned for events on a closed session.
	ErrSessionClosed = errors.New("session closed")

	// ErrInvalidRequest wraps contract validation failures.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrMalformedResponse wraps backend payloads that fail validation.
	ErrMalformedResponse = errors.New("malformed backend response")
)

// TransportError is a failed call to the backend collaborator.
type TransportError struct {
	Op     string
	Status int
	Err    error
}

func (e *TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: backend status %d: %v", e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// AsTransport wraps err as a TransportError unless it already is one.
func AsTransport(op string, err error) error {
	if err == nil {
		return nil
	}
	var te *TransportError
	if errors.As(err, &te) {
		return err
	}
	return &TransportError{Op: op, Err: err}
}
