package app

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Rohan-80800/PositLearn-sub001/internal/domain"
	"github.com/Rohan-80800/PositLearn-sub001/internal/metrics"
	"github.com/Rohan-80800/PositLearn-sub001/internal/tracker"
)

const defaultEffectTimeout = 10 * time.Second

// EventType names a session event pushed to subscribers.
type EventType string

const (
	EventBreakpoint          EventType = "breakpoint"
	EventVideoCompleted      EventType = "videoCompleted"
	EventItemUnlocked        EventType = "itemUnlocked"
	EventQuizSubmitted       EventType = "quizSubmitted"
	EventSubmitFailed        EventType = "submitFailed"
	EventQuizRestored        EventType = "quizRestored"
	EventCertificateEligible EventType = "certificateEligible"
)

// Event is an asynchronous notification from a learner session.
type Event struct {
	Type       EventType                `json:"type"`
	ModuleID   string                   `json:"moduleId,omitempty"`
	VideoID    string                   `json:"videoId,omitempty"`
	QuizID     string                   `json:"quizId,omitempty"`
	Index      int                      `json:"index,omitempty"`
	Item       *domain.PathItem         `json:"item,omitempty"`
	Completion *domain.Completion       `json:"completion,omitempty"`
	Quiz       *domain.QuizAttemptState `json:"quiz,omitempty"`
	Error      string                   `json:"error,omitempty"`
}

// SessionOption customizes a Session.
type SessionOption func(*Session)

// WithLogger sets the session logger.
func WithLogger(logger *zap.Logger) SessionOption {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock is test-only for deterministic timestamps and sequence numbers.
func WithClock(now func() time.Time) SessionOption {
	return func(s *Session) { s.now = now }
}

// WithEffectTimeout bounds each backend call issued by the session.
func WithEffectTimeout(d time.Duration) SessionOption {
	return func(s *Session) {
		if d > 0 {
			s.effectTimeout = d
		}
	}
}

// Session is the single writer for one learner: it owns the active video
// tracker and the open quiz trackers. Local events are applied
// synchronously under the session lock; backend calls run in the
// background and re-enter the lock to apply their acknowledgement.
// Acknowledgements for a slot that was closed or replaced are dropped.
type Session struct {
	id            string
	learnerID     string
	backend       Backend
	logger        *zap.Logger
	now           func() time.Time
	effectTimeout time.Duration

	ctx      context.Context
	cancel   context.CancelFunc
	inflight sync.WaitGroup

	mu          sync.RWMutex
	closed      bool
	path        *domain.LearningPathView
	video       *videoSlot
	quizzes     map[string]*quizSlot
	gen         uint64
	lastSeq     uint64
	subscribers map[chan Event]struct{}
}

type videoSlot struct {
	ref     domain.VideoRef
	tracker tracker.VideoTracker
	ctx     context.Context
	cancel  context.CancelFunc
	effects sync.WaitGroup
}

type quizSlot struct {
	tracker *tracker.QuizTracker
	gen     uint64
}

// NewSession returns an open session for the learner.
func NewSession(learnerID string, backend Backend, opts ...SessionOption) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		id:            uuid.NewString(),
		learnerID:     learnerID,
		backend:       backend,
		logger:        zap.NewNop(),
		now:           time.Now,
		effectTimeout: defaultEffectTimeout,
		ctx:           ctx,
		cancel:        cancel,
		quizzes:       make(map[string]*quizSlot),
		subscribers:   make(map[chan Event]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(zap.String("learnerId", learnerID), zap.String("sessionId", s.id))
	return s
}

// ID identifies this session instance.
func (s *Session) ID() string { return s.id }

// LearnerID returns the learner the session belongs to.
func (s *Session) LearnerID() string { return s.learnerID }

// LoadPath fetches the learning path the session works on.
func (s *Session) LoadPath(ctx context.Context, projectID string) (domain.LearningPathView, error) {
	if s.isClosed() {
		return domain.LearningPathView{}, domain.ErrSessionClosed
	}
	view, err := s.backend.LearningPath(ctx, s.learnerID, projectID)
	if err != nil {
		return domain.LearningPathView{}, err
	}

	if view.QuizResults == nil {
		view.QuizResults = make(map[string]domain.QuizProgress)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return domain.LearningPathView{}, domain.ErrSessionClosed
	}
	if s.path != nil && s.path.ProjectID != view.ProjectID {
		if s.video != nil {
			s.retireVideoLocked(false)
		}
		s.quizzes = make(map[string]*quizSlot)
	}
	s.path = &view
	return view, nil
}

// Path returns the session's current learning path.
func (s *Session) Path() (domain.LearningPathView, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.path == nil {
		return domain.LearningPathView{}, domain.ErrPathNotLoaded
	}
	return *s.path, nil
}

// OpenVideo initializes the tracker for a video of the loaded path. Opening
// a different video while one is active resets the previous one.
func (s *Session) OpenVideo(ref domain.VideoRef, duration float64) (domain.VideoProgressState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.usableLocked(); err != nil {
		return domain.VideoProgressState{}, err
	}
	if !pathHasVideo(*s.path, ref) {
		return domain.VideoProgressState{}, fmt.Errorf("%w: unknown video %s/%s", domain.ErrInvalidRequest, ref.ModuleID, ref.VideoID)
	}

	resume := domain.ResumePoint{}
	if rp := s.path.Resume; rp != nil && rp.VideoID == ref.VideoID {
		resume = *rp
	}
	resume.Completed = s.path.VideoCompleted(ref)

	var vt tracker.VideoTracker
	if err := vt.Initialize(ref.VideoID, duration, resume); err != nil {
		return domain.VideoProgressState{}, err
	}

	if prev := s.video; prev != nil {
		if prev.ref.VideoID != ref.VideoID {
			snap := prev.tracker.OnVideoSwitch()
			s.retireVideoLocked(true)
			s.persistLocked(s.ctx, nil, prev.ref, snap)
		} else {
			s.retireVideoLocked(false)
		}
	}

	ctx, cancel := context.WithCancel(s.ctx)
	s.video = &videoSlot{ref: ref, tracker: vt, ctx: ctx, cancel: cancel}
	return s.video.tracker.State(), nil
}

// Sample feeds the player position, normally every 200ms.
func (s *Session) Sample(current float64) (tracker.SampleOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return tracker.SampleOutcome{}, domain.ErrSessionClosed
	}
	if s.video == nil {
		return tracker.SampleOutcome{}, domain.ErrNoActiveVideo
	}
	slot := s.video
	out, err := slot.tracker.Sample(current)
	if err != nil {
		return out, err
	}
	switch out.Kind {
	case tracker.BreakpointCrossed:
		s.broadcastLocked(Event{Type: EventBreakpoint, ModuleID: slot.ref.ModuleID, VideoID: slot.ref.VideoID, Index: out.Index})
	case tracker.Completed:
		s.broadcastLocked(Event{Type: EventBreakpoint, ModuleID: slot.ref.ModuleID, VideoID: slot.ref.VideoID, Index: out.Index})
		s.videoCompletedLocked(slot, current)
	}
	return out, nil
}

// Pause records the position and persists it.
func (s *Session) Pause(current float64) (domain.VideoProgressState, error) {
	return s.snapshot(current, (*tracker.VideoTracker).OnPause)
}

// Buffer behaves like Pause.
func (s *Session) Buffer(current float64) (domain.VideoProgressState, error) {
	return s.snapshot(current, (*tracker.VideoTracker).OnBuffer)
}

func (s *Session) snapshot(current float64, take func(*tracker.VideoTracker, float64) tracker.ProgressSnapshot) (domain.VideoProgressState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return domain.VideoProgressState{}, domain.ErrSessionClosed
	}
	if s.video == nil {
		return domain.VideoProgressState{}, domain.ErrNoActiveVideo
	}
	slot := s.video
	if !slot.tracker.Ready() {
		return domain.VideoProgressState{}, domain.ErrNotReady
	}
	snap := take(&slot.tracker, current)
	s.persistLocked(slot.ctx, slot, slot.ref, snap)
	return slot.tracker.State(), nil
}

// Ended reports whether the active video is completed. Reaching the end
// without crossing every breakpoint does not complete it.
func (s *Session) Ended() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false, domain.ErrSessionClosed
	}
	if s.video == nil {
		return false, domain.ErrNoActiveVideo
	}
	return s.video.tracker.OnEnded(), nil
}

// CloseVideo detaches the active video. Progress writes already issued for
// it still complete.
func (s *Session) CloseVideo() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.video != nil {
		s.retireVideoLocked(false)
	}
}

// VideoState returns the state of the active video.
func (s *Session) VideoState() (domain.VideoProgressState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.video == nil {
		return domain.VideoProgressState{}, domain.ErrNoActiveVideo
	}
	return s.video.tracker.State(), nil
}

// SaveNotes stores the notebook of a video in the background.
func (s *Session) SaveNotes(ref domain.VideoRef, entries []domain.NotebookEntry) error {
	update := domain.NotebookUpdate{
		LearnerID: s.learnerID,
		ProjectID: ref.ProjectID,
		ModuleID:  ref.ModuleID,
		VideoID:   ref.VideoID,
		Entries:   entries,
	}
	if err := domain.Validate(update); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.usableLocked(); err != nil {
		return err
	}
	if !pathHasVideo(*s.path, ref) {
		return fmt.Errorf("%w: unknown video %s/%s", domain.ErrInvalidRequest, ref.ModuleID, ref.VideoID)
	}
	if i, ok := s.path.FindModule(ref.ModuleID); ok {
		if s.path.Modules[i].Notebook == nil {
			s.path.Modules[i].Notebook = make(map[string][]domain.NotebookEntry)
		}
		s.path.Modules[i].Notebook[ref.VideoID] = append([]domain.NotebookEntry(nil), entries...)
	}
	s.spawnLocked(s.ctx, nil, func(ctx context.Context) {
		if err := s.backend.SaveNotebookEntries(ctx, update); err != nil {
			s.effectFailed("saveNotebook", err)
		}
	})
	return nil
}

// OpenQuiz loads the learner's progress and eligibility for a quiz of the
// loaded path. Opening an already open quiz returns its current state.
func (s *Session) OpenQuiz(ctx context.Context, quizID string) (domain.QuizAttemptState, error) {
	s.mu.RLock()
	if err := s.usableLocked(); err != nil {
		s.mu.RUnlock()
		return domain.QuizAttemptState{}, err
	}
	if slot, ok := s.quizzes[quizID]; ok {
		state := slot.tracker.State()
		s.mu.RUnlock()
		return state, nil
	}
	quiz, ok := s.path.FindQuiz(quizID)
	s.mu.RUnlock()
	if !ok {
		return domain.QuizAttemptState{}, domain.ErrQuizNotFound
	}

	var (
		progress domain.QuizProgress
		eligible bool
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		progress, err = s.backend.QuizProgress(gctx, s.learnerID, quizID)
		return err
	})
	g.Go(func() error {
		var err error
		eligible, err = s.backend.QuizEligibility(gctx, s.learnerID, quizID)
		return err
	})
	if err := g.Wait(); err != nil {
		return domain.QuizAttemptState{}, err
	}

	qt, err := tracker.NewQuizTracker(quiz)
	if err != nil {
		return domain.QuizAttemptState{}, err
	}
	qt.Restore(progress)
	qt.CheckEligibility(eligible)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return domain.QuizAttemptState{}, domain.ErrSessionClosed
	}
	if slot, ok := s.quizzes[quizID]; ok {
		return slot.tracker.State(), nil
	}
	s.gen++
	s.quizzes[quizID] = &quizSlot{tracker: qt, gen: s.gen}
	if progress.Attempts > 0 {
		s.path.QuizResults[quizID] = progress
	}
	return qt.State(), nil
}

// StartQuiz begins or resumes an attempt.
func (s *Session) StartQuiz(quizID string) (domain.QuizAttemptState, error) {
	return s.withQuiz(quizID, func(qt *tracker.QuizTracker) error { return qt.Start() })
}

// Answer sets the answer of a question.
func (s *Session) Answer(quizID string, questionIndex int, answer string) (domain.QuizAttemptState, error) {
	return s.withQuiz(quizID, func(qt *tracker.QuizTracker) error { return qt.SetAnswer(questionIndex, answer) })
}

// Next moves to the next question.
func (s *Session) Next(quizID string) (domain.QuizAttemptState, error) {
	return s.withQuiz(quizID, func(qt *tracker.QuizTracker) error {
		_, err := qt.GoNext()
		return err
	})
}

// Previous moves to the previous question.
func (s *Session) Previous(quizID string) (domain.QuizAttemptState, error) {
	return s.withQuiz(quizID, func(qt *tracker.QuizTracker) error {
		_, err := qt.GoPrevious()
		return err
	})
}

// RetakeQuiz starts a new attempt after a completed one.
func (s *Session) RetakeQuiz(quizID string) (domain.QuizAttemptState, error) {
	return s.withQuiz(quizID, func(qt *tracker.QuizTracker) error { return qt.Retake() })
}

// QuizState returns the state of an open quiz.
func (s *Session) QuizState(quizID string) (domain.QuizAttemptState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	slot, ok := s.quizzes[quizID]
	if !ok {
		return domain.QuizAttemptState{}, domain.ErrQuizNotOpen
	}
	return slot.tracker.State(), nil
}

// SubmitQuiz validates the attempt and sends it to the backend. The quiz
// stays in progress until the backend answers; the outcome arrives as a
// quizSubmitted or submitFailed event.
func (s *Session) SubmitQuiz(quizID string) (domain.QuizAttemptState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return domain.QuizAttemptState{}, domain.ErrSessionClosed
	}
	slot, ok := s.quizzes[quizID]
	if !ok {
		return domain.QuizAttemptState{}, domain.ErrQuizNotOpen
	}
	sub, err := slot.tracker.Submit()
	if err != nil {
		return slot.tracker.State(), err
	}
	quiz := slot.tracker.Quiz()
	req := domain.SubmitQuizRequest{
		LearnerID:    s.learnerID,
		QuizID:       quiz.ID,
		ProjectID:    quiz.ProjectID,
		ModuleID:     quiz.ModuleID,
		AttemptNo:    sub.AttemptNo,
		Answers:      sub.Answers,
		ClientScore:  sub.Score,
		SubmissionID: uuid.NewString(),
	}
	gen := slot.gen
	s.spawnLocked(s.ctx, nil, func(ctx context.Context) {
		ack, err := s.backend.SubmitQuizAttempt(ctx, req)
		s.applySubmit(quizID, gen, sub, ack, err)
	})
	return slot.tracker.State(), nil
}

func (s *Session) applySubmit(quizID string, gen uint64, sub tracker.Submission, ack domain.SubmitAck, submitErr error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	slot, ok := s.quizzes[quizID]
	if s.closed || !ok || slot.gen != gen {
		s.stale("submitQuiz")
		return
	}
	if submitErr != nil {
		if err := slot.tracker.FailSubmit(sub); err != nil {
			s.stale("submitQuiz")
			return
		}
		s.effectFailed("submitQuiz", submitErr)
		state := slot.tracker.State()
		s.broadcastLocked(Event{Type: EventSubmitFailed, QuizID: quizID, Quiz: &state, Error: submitErr.Error()})
		if errors.Is(submitErr, domain.ErrAttemptConflict) {
			s.restoreQuizLocked(quizID, gen)
		}
		return
	}
	if err := slot.tracker.ConfirmSubmit(sub, ack); err != nil {
		s.stale("submitQuiz")
		return
	}
	state := slot.tracker.State()
	if s.path != nil {
		s.path.QuizResults[quizID] = domain.QuizProgress{
			QuizID:      quizID,
			MaxScore:    state.MaxScore,
			Score:       state.LastScore,
			TotalPoints: domain.TotalPoints,
			Attempts:    state.Attempts,
			Answers:     state.Answers,
			Status:      state.LastResult,
			CompletedAt: state.CompletedAt,
		}
	}
	completion := s.refreshCompletionLocked()
	s.broadcastLocked(Event{Type: EventQuizSubmitted, QuizID: quizID, Quiz: &state, Completion: &completion})
}

// restoreQuizLocked reloads the stored progress of an open quiz. It follows
// a submission the backend already held under different answers, so the
// learner sees the stored result instead of the local draft.
func (s *Session) restoreQuizLocked(quizID string, gen uint64) {
	s.spawnLocked(s.ctx, nil, func(ctx context.Context) {
		progress, err := s.backend.QuizProgress(ctx, s.learnerID, quizID)

		s.mu.Lock()
		defer s.mu.Unlock()
		slot, ok := s.quizzes[quizID]
		if s.closed || !ok || slot.gen != gen || slot.tracker.State().Pending {
			s.stale("quizProgress")
			return
		}
		if err != nil {
			s.effectFailed("quizProgress", err)
			return
		}
		slot.tracker.Restore(progress)
		if s.path != nil && progress.Attempts > 0 {
			s.path.QuizResults[quizID] = progress
		}
		state := slot.tracker.State()
		completion := s.refreshCompletionLocked()
		s.broadcastLocked(Event{Type: EventQuizRestored, QuizID: quizID, Quiz: &state, Completion: &completion})
	})
}

// CloseQuiz forgets an open quiz. A submission still in flight is stored
// by the backend but its acknowledgement is dropped.
func (s *Session) CloseQuiz(quizID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.quizzes, quizID)
}

// Subscribe returns a channel that receives session events.
// The caller must invoke the returned cancel function to avoid leaks.
func (s *Session) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 16)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	s.subscribers[ch] = struct{}{}
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

// Wait blocks until every background backend call has finished.
func (s *Session) Wait() {
	s.inflight.Wait()
}

// Close detaches the trackers, waits for in-flight backend calls and
// closes subscriber channels. It is safe to call more than once.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	if s.video != nil {
		s.retireVideoLocked(false)
	}
	s.quizzes = make(map[string]*quizSlot)
	s.mu.Unlock()

	s.inflight.Wait()
	s.cancel()

	s.mu.Lock()
	for ch := range s.subscribers {
		delete(s.subscribers, ch)
		close(ch)
	}
	s.mu.Unlock()
}

func (s *Session) withQuiz(quizID string, fn func(qt *tracker.QuizTracker) error) (domain.QuizAttemptState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return domain.QuizAttemptState{}, domain.ErrSessionClosed
	}
	slot, ok := s.quizzes[quizID]
	if !ok {
		return domain.QuizAttemptState{}, domain.ErrQuizNotOpen
	}
	err := fn(slot.tracker)
	return slot.tracker.State(), err
}

func (s *Session) videoCompletedLocked(slot *videoSlot, current float64) {
	ref := slot.ref
	i, ok := s.path.FindModule(ref.ModuleID)
	if !ok {
		return
	}
	module := &s.path.Modules[i]
	if !s.path.VideoCompleted(ref) {
		module.CompletedVideos = append(module.CompletedVideos, ref.VideoID)
		module.Items = markItems(module.Items, module.CompletedVideos, s.path.QuizResults)
	}
	completion := s.refreshCompletionLocked()
	s.broadcastLocked(Event{Type: EventVideoCompleted, ModuleID: ref.ModuleID, VideoID: ref.VideoID, Completion: &completion})
	if next, ok := tracker.NextUnlocked(module.Module, ref.VideoID); ok {
		s.broadcastLocked(Event{Type: EventItemUnlocked, ModuleID: ref.ModuleID, Item: &next})
	}

	req := domain.VideoCompletion{
		LearnerID:          s.learnerID,
		ProjectID:          ref.ProjectID,
		ModuleID:           ref.ModuleID,
		VideoID:            ref.VideoID,
		WatchedMinutes:     int(math.Round(math.Max(0, current) / 60)),
		ProgressPercentage: completion.Percent,
	}
	// Completion is not tied to the slot: it must reach the backend even
	// if the learner moves on.
	s.spawnLocked(s.ctx, nil, func(ctx context.Context) {
		ack, err := s.backend.CompleteVideo(ctx, req)
		if err != nil {
			s.effectFailed("completeVideo", err)
			return
		}
		s.applyCompletion(ref, ack)
	})
}

func (s *Session) applyCompletion(ref domain.VideoRef, ack domain.CompletionAck) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.path == nil || s.path.ProjectID != ref.ProjectID {
		s.stale("completeVideo")
		return
	}
	if ack.ProgressPercentage > s.path.Stats.ProgressPercentage {
		s.path.Stats.ProgressPercentage = ack.ProgressPercentage
	}
	if ack.CertificateEligible && !s.path.CertificateEligible {
		s.path.CertificateEligible = true
		s.broadcastLocked(Event{Type: EventCertificateEligible, Completion: &s.path.Completion})
	}
}

// refreshCompletionLocked recomputes the path completion and announces
// certificate eligibility the first time it is reached.
func (s *Session) refreshCompletionLocked() domain.Completion {
	if s.path == nil {
		return domain.Completion{}
	}
	c := tracker.ViewCompletion(*s.path)
	s.path.Completion = c
	if tracker.CertificateEligible(c.Percent) && !s.path.CertificateEligible {
		s.path.CertificateEligible = true
		s.broadcastLocked(Event{Type: EventCertificateEligible, Completion: &c})
	}
	return c
}

// persistLocked issues a resume point write. Writes bound to a slot are
// aborted when the slot is replaced by another video.
func (s *Session) persistLocked(parent context.Context, slot *videoSlot, ref domain.VideoRef, snap tracker.ProgressSnapshot) {
	seq := s.nextSeqLocked()
	update := domain.VideoProgressUpdate{
		LearnerID:           s.learnerID,
		ProjectID:           ref.ProjectID,
		ModuleID:            ref.ModuleID,
		VideoID:             ref.VideoID,
		SavedTimeSeconds:    snap.SavedTimeSeconds,
		LastBreakpointIndex: snap.LastBreakpointIndex,
		Seq:                 seq,
	}
	if s.path != nil {
		s.path.Resume = &domain.ResumePoint{
			ProjectID:           ref.ProjectID,
			ModuleID:            ref.ModuleID,
			VideoID:             ref.VideoID,
			SavedTimeSeconds:    snap.SavedTimeSeconds,
			LastBreakpointIndex: snap.LastBreakpointIndex,
			Seq:                 seq,
			UpdatedAt:           s.now().UTC(),
		}
	}
	var effects *sync.WaitGroup
	if slot != nil {
		effects = &slot.effects
	}
	s.spawnLocked(parent, effects, func(ctx context.Context) {
		err := s.backend.UpdateVideoProgress(ctx, update)
		switch {
		case err == nil:
		case errors.Is(err, context.Canceled):
			s.stale("updateVideoProgress")
		default:
			s.effectFailed("updateVideoProgress", err)
		}
	})
}

// retireVideoLocked detaches the active video. With abort, its in-flight
// writes are cancelled; otherwise they are left to finish.
func (s *Session) retireVideoLocked(abort bool) {
	slot := s.video
	s.video = nil
	slot.tracker.Detach()
	if abort {
		slot.cancel()
		return
	}
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		slot.effects.Wait()
		slot.cancel()
	}()
}

// spawnLocked runs fn in the background with a bounded context. It must be
// called with the lock held on an open session.
func (s *Session) spawnLocked(parent context.Context, effects *sync.WaitGroup, fn func(ctx context.Context)) {
	s.inflight.Add(1)
	if effects != nil {
		effects.Add(1)
	}
	go func() {
		defer s.inflight.Done()
		if effects != nil {
			defer effects.Done()
		}
		ctx, cancel := context.WithTimeout(parent, s.effectTimeout)
		defer cancel()
		fn(ctx)
	}()
}

// nextSeqLocked returns a time based sequence number, strictly increasing
// within the session.
func (s *Session) nextSeqLocked() uint64 {
	seq := uint64(s.now().UnixNano())
	if seq <= s.lastSeq {
		seq = s.lastSeq + 1
	}
	s.lastSeq = seq
	return seq
}

func (s *Session) broadcastLocked(ev Event) {
	for ch := range s.subscribers {
		select {
		case ch <- ev:
		default:
			// Drop the oldest event so a slow reader never blocks the session.
			select {
			case <-ch:
			default:
			}
			ch <- ev
		}
	}
}

func (s *Session) usableLocked() error {
	if s.closed {
		return domain.ErrSessionClosed
	}
	if s.path == nil {
		return domain.ErrPathNotLoaded
	}
	return nil
}

func (s *Session) isClosed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}

func (s *Session) stale(op string) {
	metrics.StaleResponses.WithLabelValues(op).Inc()
	s.logger.Debug("stale response dropped", zap.String("op", op))
}

func (s *Session) effectFailed(op string, err error) {
	metrics.EffectFailures.WithLabelValues(op).Inc()
	s.logger.Warn("backend call failed", zap.String("op", op), zap.Error(err))
}

func pathHasVideo(view domain.LearningPathView, ref domain.VideoRef) bool {
	if ref.ProjectID != view.ProjectID {
		return false
	}
	i, ok := view.FindModule(ref.ModuleID)
	if !ok {
		return false
	}
	for _, v := range view.Modules[i].Videos {
		if v.ID == ref.VideoID {
			return true
		}
	}
	return false
}
