// Package tracker holds the learner state machines: video watch progress,
// quiz attempts and the learning path unlock rules. Everything here is a
// pure reducer over explicit state; callers own the clock and the I/O.
package tracker

import (
	"math"

	"github.com/Rohan-80800/PositLearn-sub001/internal/domain"
)

const (
	// maxBreakpoints caps the breakpoints to the four quartiles of a video,
	// so a 200s video gets [50 100 150 198] while short videos keep one
	// breakpoint per four seconds.
	maxBreakpoints = 4
	// crossingWindow is how long after a breakpoint a sample still crosses it.
	crossingWindow = 1.0
	// endOffset pulls the last breakpoint before the end so "ended" races are avoided.
	endOffset = 2.0
)

// SampleKind classifies the outcome of one player sample.
type SampleKind string

const (
	NoChange          SampleKind = "noChange"
	BreakpointCrossed SampleKind = "breakpointCrossed"
	Completed         SampleKind = "completed"
)

// SampleOutcome is returned by Sample. Index is the new LastBreakpointIndex
// (the number of breakpoints crossed so far).
type SampleOutcome struct {
	Kind  SampleKind `json:"kind"`
	Index int        `json:"index"`
}

// ProgressSnapshot is a PersistProgress side-effect request.
type ProgressSnapshot struct {
	SavedTimeSeconds    float64 `json:"savedTimeSeconds"`
	LastBreakpointIndex int     `json:"lastBreakpointIndex"`
}

// Breakpoints returns the checkpoints a viewer must cross, in seconds.
// There are min(4, max(1, floor(duration/4))) evenly spaced ones and the
// last is forced to duration-2.
func Breakpoints(duration float64) ([]float64, error) {
	if !(duration > 0) || math.IsInf(duration, 0) {
		return nil, domain.ErrInvalidDuration
	}
	count := int(math.Floor(duration / 4))
	if count < 1 {
		count = 1
	}
	if count > maxBreakpoints {
		count = maxBreakpoints
	}
	bps := make([]float64, count)
	for i := range bps {
		bps[i] = duration * float64(i+1) / float64(count)
	}
	bps[count-1] = math.Max(0, duration-endOffset)
	return bps, nil
}

// VideoTracker turns player time samples into breakpoint and completion
// events. The zero value is not ready; call Initialize first.
type VideoTracker struct {
	videoID     string
	breakpoints []float64
	next        int
	savedTime   float64
	completed   bool
	ready       bool
	stopped     bool
}

// Initialize computes breakpoints for the video and restores the resume point.
func (t *VideoTracker) Initialize(videoID string, duration float64, resume domain.ResumePoint) error {
	bps, err := Breakpoints(duration)
	if err != nil {
		t.ready = false
		return err
	}
	*t = VideoTracker{
		videoID:     videoID,
		breakpoints: bps,
		savedTime:   position(resume.SavedTimeSeconds, 0),
		ready:       true,
	}
	t.next = clamp(resume.LastBreakpointIndex, 0, len(bps))
	if resume.Completed || t.next == len(bps) {
		t.next = len(bps)
		t.completed = true
		t.stopped = true
	}
	return nil
}

// Sample feeds the current playback position, normally every 200ms.
// Positions that are not finite numbers never cross a breakpoint.
func (t *VideoTracker) Sample(current float64) (SampleOutcome, error) {
	if !t.ready {
		return SampleOutcome{}, domain.ErrNotReady
	}
	if t.stopped || t.completed {
		return SampleOutcome{Kind: NoChange, Index: t.next}, nil
	}
	next := t.breakpoints[t.next]
	if math.IsNaN(current) || current < next || current > next+crossingWindow {
		return SampleOutcome{Kind: NoChange, Index: t.next}, nil
	}
	t.next++
	if t.next == len(t.breakpoints) {
		t.completed = true
		t.stopped = true
		return SampleOutcome{Kind: Completed, Index: t.next}, nil
	}
	return SampleOutcome{Kind: BreakpointCrossed, Index: t.next}, nil
}

// OnPause records the position; breakpoint state is untouched. A position
// that is not a finite number keeps the last saved one.
func (t *VideoTracker) OnPause(current float64) ProgressSnapshot {
	t.savedTime = position(current, t.savedTime)
	return ProgressSnapshot{SavedTimeSeconds: t.savedTime, LastBreakpointIndex: t.next}
}

// OnBuffer behaves like OnPause.
func (t *VideoTracker) OnBuffer(current float64) ProgressSnapshot {
	return t.OnPause(current)
}

// OnEnded reports whether the video is complete. Reaching the end without
// crossing every breakpoint (for example after seeking) does not complete it.
func (t *VideoTracker) OnEnded() bool {
	return t.completed
}

// OnVideoSwitch zeroes the resume state of the video being left and
// detaches the tracker until it is initialized for the next video.
func (t *VideoTracker) OnVideoSwitch() ProgressSnapshot {
	t.next = 0
	t.savedTime = 0
	t.Detach()
	return ProgressSnapshot{}
}

// Detach stops sampling; later samples report ErrNotReady.
func (t *VideoTracker) Detach() {
	t.ready = false
	t.stopped = true
}

// Ready reports whether breakpoints are initialized.
func (t *VideoTracker) Ready() bool {
	return t.ready
}

// Completed reports whether the last breakpoint was crossed.
func (t *VideoTracker) Completed() bool {
	return t.completed
}

// State returns a snapshot of the tracker.
func (t *VideoTracker) State() domain.VideoProgressState {
	bps := make([]float64, len(t.breakpoints))
	copy(bps, t.breakpoints)
	return domain.VideoProgressState{
		VideoID:             t.videoID,
		SavedTimeSeconds:    t.savedTime,
		LastBreakpointIndex: t.next,
		Completed:           t.completed,
		Breakpoints:         bps,
	}
}

// position clamps a player position to zero, falling back when it is NaN
// or infinite.
func position(v, fallback float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fallback
	}
	return math.Max(0, v)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
