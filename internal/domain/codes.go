package domain

import "errors"

// Wire codes carried in REST and websocket error bodies. The REST client
// maps them back, so sentinels survive the network hop.
var errorCodes = []struct {
	code string
	err  error
}{
	{"not_eligible", ErrNotEligible},
	{"incomplete_answers", ErrIncompleteAnswers},
	{"already_mastered", ErrAlreadyMastered},
	{"quiz_not_found", ErrQuizNotFound},
	{"project_not_found", ErrProjectNotFound},
	{"session_active", ErrSessionActive},
	{"attempt_conflict", ErrAttemptConflict},
	{"invalid_request", ErrInvalidRequest},
	{"malformed_response", ErrMalformedResponse},
	{"not_ready", ErrNotReady},
	{"invalid_duration", ErrInvalidDuration},
	{"invalid_transition", ErrInvalidTransition},
	{"not_on_last_question", ErrNotOnLastQuestion},
	{"submission_pending", ErrSubmissionPending},
	{"question_out_of_range", ErrQuestionOutOfRange},
	{"empty_quiz", ErrEmptyQuiz},
	{"quiz_not_open", ErrQuizNotOpen},
	{"no_active_video", ErrNoActiveVideo},
	{"path_not_loaded", ErrPathNotLoaded},
	{"session_closed", ErrSessionClosed},
}

// ErrorCode returns the wire code of err, or "internal".
func ErrorCode(err error) string {
	for _, c := range errorCodes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return "internal"
}

// ErrorForCode maps a wire code back to its sentinel.
func ErrorForCode(code string) (error, bool) {
	for _, c := range errorCodes {
		if c.code == code {
			return c.err, true
		}
	}
	return nil, false
}
