package domain

import "time"

// PassThreshold is the minimum score (percent) for a PASSED attempt.
const PassThreshold = 70

// TotalPoints is the score scale reported with quiz progress.
const TotalPoints = 100

// Question is one multiple-choice question. Correct holds the text of the
// right option; answers are matched by exact string equality.
type Question struct {
	Text    string   `json:"text" validate:"required"`
	Options []string `json:"options" validate:"min=1"`
	Correct string   `json:"correct" validate:"required"`
}

// Quiz is read-only content owned by the catalog.
type Quiz struct {
	ID        string     `json:"id" validate:"required"`
	ProjectID string     `json:"projectId" validate:"required"`
	ModuleID  string     `json:"moduleId" validate:"required"`
	Title     string     `json:"title"`
	VideoIDs  []string   `json:"videoIds"`
	Questions []Question `json:"questions" validate:"min=1,dive"`
}

// Video is a single lesson video of a module.
type Video struct {
	ID    string `json:"id" validate:"required"`
	Title string `json:"title"`
}

// Module is an ordered list of videos plus the quizzes gated on them.
type Module struct {
	ID        string  `json:"id" validate:"required"`
	ProjectID string  `json:"projectId"`
	Title     string  `json:"title"`
	Videos    []Video `json:"videos" validate:"dive"`
	Quizzes   []Quiz  `json:"quizzes" validate:"dive"`
}

// Project is the learning path: an ordered collection of modules.
type Project struct {
	ID      string   `json:"id" validate:"required"`
	Name    string   `json:"name"`
	Modules []Module `json:"modules" validate:"dive"`
}

// AttemptStatus is the lifecycle state of a learner's quiz attempt.
type AttemptStatus string

const (
	StatusNotStarted AttemptStatus = "NOT_STARTED"
	StatusInProgress AttemptStatus = "IN_PROGRESS"
	StatusCompleted  AttemptStatus = "COMPLETED"
)

// QuizResult is the pass/fail verdict of a scored attempt.
type QuizResult string

const (
	ResultPassed QuizResult = "PASSED"
	ResultFailed QuizResult = "FAILED"
)

// ResultFor maps a score to its verdict.
func ResultFor(score int) QuizResult {
	if score >= PassThreshold {
		return ResultPassed
	}
	return ResultFailed
}

// QuizAttemptState is the per learner × quiz attempt state.
// An empty string in Answers marks an unanswered question.
type QuizAttemptState struct {
	QuizID               string        `json:"quizId"`
	Status               AttemptStatus `json:"status"`
	CurrentQuestionIndex int           `json:"currentQuestionIndex"`
	Answers              []string      `json:"answers"`
	Attempts             int           `json:"attempts"`
	MaxScore             int           `json:"maxScore"`
	LastScore            int           `json:"lastScore"`
	LastResult           QuizResult    `json:"lastResult,omitempty"`
	Eligible             bool          `json:"eligible"`
	Pending              bool          `json:"pending"`
	CompletedAt          *time.Time    `json:"completedAt,omitempty"`
}

// Mastered reports whether the quiz can no longer be retaken.
func (s QuizAttemptState) Mastered() bool {
	return s.MaxScore >= TotalPoints
}

// VideoProgressState is the per learner × video watch state.
type VideoProgressState struct {
	VideoID             string    `json:"videoId"`
	SavedTimeSeconds    float64   `json:"savedTimeSeconds"`
	LastBreakpointIndex int       `json:"lastBreakpointIndex"`
	Completed           bool      `json:"completed"`
	Breakpoints         []float64 `json:"breakpoints"`
}

// VideoRef locates a video inside a learning path.
type VideoRef struct {
	ProjectID string `json:"projectId" validate:"required"`
	ModuleID  string `json:"moduleId" validate:"required"`
	VideoID   string `json:"videoId" validate:"required"`
}

// ResumePoint is where a learner left off. There is one per learner.
type ResumePoint struct {
	ProjectID           string    `json:"projectId"`
	ModuleID            string    `json:"moduleId"`
	VideoID             string    `json:"videoId"`
	SavedTimeSeconds    float64   `json:"savedTimeSeconds"`
	LastBreakpointIndex int       `json:"lastBreakpointIndex"`
	Completed           bool      `json:"completed,omitempty"`
	Seq                 uint64    `json:"seq"`
	UpdatedAt           time.Time `json:"updatedAt"`
}

// NotebookEntry is a timestamped note taken while watching a video.
type NotebookEntry struct {
	AtSeconds float64 `json:"atSeconds" validate:"gte=0"`
	Text      string  `json:"text" validate:"required"`
}

// ProjectStats aggregates a learner's progress on one project.
type ProjectStats struct {
	ProgressPercentage int        `json:"progressPercentage"`
	LearningMinutes    int        `json:"learningMinutes"`
	StartedAt          *time.Time `json:"startedAt,omitempty"`
	CompletedAt        *time.Time `json:"completedAt,omitempty"`
}

// PathItemKind distinguishes videos from quizzes in a module sequence.
type PathItemKind string

const (
	ItemVideo PathItemKind = "video"
	ItemQuiz  PathItemKind = "quiz"
)

// PathItem is one entry of a module's play order.
type PathItem struct {
	Kind      PathItemKind `json:"kind"`
	ID        string       `json:"id"`
	Title     string       `json:"title"`
	Completed bool         `json:"completed"`
}

// Completion is the aggregated completion of a learning path.
type Completion struct {
	Completed int `json:"completed"`
	Total     int `json:"total"`
	Percent   int `json:"percent"`
}

// ModuleView is a module with the learner's play order and completions.
type ModuleView struct {
	Module
	Items           []PathItem                 `json:"items"`
	CompletedVideos []string                   `json:"completedVideos"`
	Notebook        map[string][]NotebookEntry `json:"notebook,omitempty"`
}

// LearningPathView is the read model a learner session bootstraps from.
type LearningPathView struct {
	ProjectID           string                  `json:"projectId" validate:"required"`
	ProjectName         string                  `json:"projectName"`
	Modules             []ModuleView            `json:"modules" validate:"dive"`
	QuizResults         map[string]QuizProgress `json:"quizResults"`
	Completion          Completion              `json:"completion"`
	CertificateEligible bool                    `json:"certificateEligible"`
	Stats               ProjectStats            `json:"stats"`
	Resume              *ResumePoint            `json:"resume,omitempty"`
}

// FindQuiz returns the quiz with the given id.
func (v LearningPathView) FindQuiz(quizID string) (Quiz, bool) {
	for _, m := range v.Modules {
		for _, q := range m.Quizzes {
			if q.ID == quizID {
				return q, true
			}
		}
	}
	return Quiz{}, false
}

// FindModule returns the module with the given id and its position.
func (v LearningPathView) FindModule(moduleID string) (int, bool) {
	for i := range v.Modules {
		if v.Modules[i].ID == moduleID {
			return i, true
		}
	}
	return -1, false
}

// VideoCompleted reports whether the learner completed the referenced video.
func (v LearningPathView) VideoCompleted(ref VideoRef) bool {
	i, ok := v.FindModule(ref.ModuleID)
	if !ok {
		return false
	}
	for _, id := range v.Modules[i].CompletedVideos {
		if id == ref.VideoID {
			return true
		}
	}
	return false
}
