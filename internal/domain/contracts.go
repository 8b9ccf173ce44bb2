package domain

import "time"

// QuizProgress is the stored result of a learner's quiz attempts.
// A learner who never submitted has zero Attempts and an empty Status.
type QuizProgress struct {
	QuizID      string     `json:"quizId" validate:"required"`
	MaxScore    int        `json:"maxScore" validate:"gte=0,lte=100"`
	Score       int        `json:"score" validate:"gte=0,lte=100"`
	TotalPoints int        `json:"totalPoints"`
	Attempts    int        `json:"attempts" validate:"gte=0"`
	Answers     []string   `json:"answers"`
	Status      QuizResult `json:"status,omitempty" validate:"omitempty,oneof=PASSED FAILED"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// EligibilityResponse answers GetQuizEligibility.
type EligibilityResponse struct {
	Eligible bool `json:"eligible"`
}

// SubmitQuizRequest is one graded attempt sent to the backend.
type SubmitQuizRequest struct {
	LearnerID    string   `json:"learnerId" validate:"required"`
	QuizID       string   `json:"quizId" validate:"required"`
	ProjectID    string   `json:"projectId" validate:"required"`
	ModuleID     string   `json:"moduleId" validate:"required"`
	AttemptNo    int      `json:"attemptNo" validate:"gte=1"`
	Answers      []string `json:"answers" validate:"min=1"`
	ClientScore  int      `json:"clientScore" validate:"gte=0,lte=100"`
	SubmissionID string   `json:"submissionId,omitempty"`
}

// SubmitAck is the backend's authoritative answer to a submission.
type SubmitAck struct {
	MaxScore    int       `json:"maxScore" validate:"gte=0,lte=100"`
	Score       int       `json:"score" validate:"gte=0,lte=100"`
	Attempts    int       `json:"attempts" validate:"gte=1"`
	CompletedAt time.Time `json:"completedAt" validate:"required"`
}

// VideoProgressUpdate persists a resume point.
type VideoProgressUpdate struct {
	LearnerID           string  `json:"learnerId" validate:"required"`
	ProjectID           string  `json:"projectId" validate:"required"`
	ModuleID            string  `json:"moduleId" validate:"required"`
	VideoID             string  `json:"videoId" validate:"required"`
	SavedTimeSeconds    float64 `json:"savedTimeSeconds" validate:"gte=0"`
	LastBreakpointIndex int     `json:"lastBreakpointIndex" validate:"gte=0"`
	Seq                 uint64  `json:"seq"`
}

// VideoCompletion marks a video as fully watched.
type VideoCompletion struct {
	LearnerID          string `json:"learnerId" validate:"required"`
	ProjectID          string `json:"projectId" validate:"required"`
	ModuleID           string `json:"moduleId" validate:"required"`
	VideoID            string `json:"videoId" validate:"required"`
	WatchedMinutes     int    `json:"watchedMinutes" validate:"gte=0"`
	ProgressPercentage int    `json:"progressPercentage" validate:"gte=0,lte=100"`
}

// CompletionAck reports the project progress after a completion.
type CompletionAck struct {
	NewlyCompleted      bool `json:"newlyCompleted"`
	ProgressPercentage  int  `json:"progressPercentage" validate:"gte=0,lte=100"`
	CertificateEligible bool `json:"certificateEligible"`
}

// NotebookUpdate replaces the notes of one video.
type NotebookUpdate struct {
	LearnerID string          `json:"learnerId" validate:"required"`
	ProjectID string          `json:"projectId" validate:"required"`
	ModuleID  string          `json:"moduleId" validate:"required"`
	VideoID   string          `json:"videoId" validate:"required"`
	Entries   []NotebookEntry `json:"entries" validate:"dive"`
}
