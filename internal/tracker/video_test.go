package tracker

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rohan-80800/PositLearn-sub001/internal/domain"
)

func TestBreakpoints(t *testing.T) {
	tests := []struct {
		name     string
		duration float64
		want     []float64
		wantErr  error
	}{
		{"quartiles", 200, []float64{50, 100, 150, 198}, nil},
		{"sixteen seconds", 16, []float64{4, 8, 12, 14}, nil},
		{"twelve seconds", 12, []float64{4, 8, 10}, nil},
		{"eight seconds", 8, []float64{4, 6}, nil},
		{"five seconds", 5, []float64{3}, nil},
		{"one second", 1, []float64{0}, nil},
		{"zero", 0, nil, domain.ErrInvalidDuration},
		{"negative", -10, nil, domain.ErrInvalidDuration},
		{"nan", math.NaN(), nil, domain.ErrInvalidDuration},
		{"infinite", math.Inf(1), nil, domain.ErrInvalidDuration},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Breakpoints(tt.duration)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			for i := 1; i < len(got); i++ {
				assert.Greater(t, got[i], got[i-1], "breakpoints must be strictly increasing")
			}
		})
	}
}

func TestVideoTrackerNotReady(t *testing.T) {
	var vt VideoTracker
	_, err := vt.Sample(10)
	require.ErrorIs(t, err, domain.ErrNotReady)

	err = vt.Initialize("v1", 0, domain.ResumePoint{})
	require.ErrorIs(t, err, domain.ErrInvalidDuration)
	_, err = vt.Sample(10)
	require.ErrorIs(t, err, domain.ErrNotReady)
}

func TestVideoTrackerCrossesBreakpointsAndCompletesOnce(t *testing.T) {
	var vt VideoTracker
	require.NoError(t, vt.Initialize("v1", 200, domain.ResumePoint{}))

	out, err := vt.Sample(10)
	require.NoError(t, err)
	assert.Equal(t, NoChange, out.Kind)

	out, _ = vt.Sample(50.4)
	assert.Equal(t, SampleOutcome{Kind: BreakpointCrossed, Index: 1}, out)

	// Still inside the window of the crossed breakpoint: no second advance.
	out, _ = vt.Sample(50.8)
	assert.Equal(t, SampleOutcome{Kind: NoChange, Index: 1}, out)

	// Skipping past the window does not cross the breakpoint.
	out, _ = vt.Sample(102)
	assert.Equal(t, NoChange, out.Kind)
	assert.Equal(t, 1, vt.State().LastBreakpointIndex)

	out, _ = vt.Sample(100.2)
	assert.Equal(t, BreakpointCrossed, out.Kind)
	out, _ = vt.Sample(150)
	assert.Equal(t, BreakpointCrossed, out.Kind)
	out, _ = vt.Sample(198.5)
	assert.Equal(t, SampleOutcome{Kind: Completed, Index: 4}, out)
	assert.True(t, vt.Completed())

	for _, ts := range []float64{198.5, 198.9, 10} {
		out, err = vt.Sample(ts)
		require.NoError(t, err)
		assert.Equal(t, NoChange, out.Kind)
	}
	assert.True(t, vt.OnEnded())
}

func TestVideoTrackerEndedWithoutBreakpointsDoesNotComplete(t *testing.T) {
	var vt VideoTracker
	require.NoError(t, vt.Initialize("v1", 200, domain.ResumePoint{}))
	_, _ = vt.Sample(50)

	assert.False(t, vt.OnEnded())
	assert.False(t, vt.State().Completed)
}

func TestVideoTrackerPauseKeepsBreakpoints(t *testing.T) {
	var vt VideoTracker
	require.NoError(t, vt.Initialize("v1", 200, domain.ResumePoint{}))
	_, _ = vt.Sample(50)

	snap := vt.OnPause(73.5)
	assert.Equal(t, ProgressSnapshot{SavedTimeSeconds: 73.5, LastBreakpointIndex: 1}, snap)
	snap = vt.OnBuffer(80)
	assert.Equal(t, ProgressSnapshot{SavedTimeSeconds: 80, LastBreakpointIndex: 1}, snap)
	assert.Equal(t, 1, vt.State().LastBreakpointIndex)
}

func TestVideoTrackerIgnoresNonFinitePositions(t *testing.T) {
	tests := []struct {
		name     string
		position float64
	}{
		{"nan", math.NaN()},
		{"positive infinity", math.Inf(1)},
		{"negative infinity", math.Inf(-1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var vt VideoTracker
			require.NoError(t, vt.Initialize("v1", 200, domain.ResumePoint{}))

			for i := 0; i < 5; i++ {
				out, err := vt.Sample(tt.position)
				require.NoError(t, err)
				assert.Equal(t, SampleOutcome{Kind: NoChange, Index: 0}, out)
			}
			assert.False(t, vt.Completed())

			snap := vt.OnPause(42)
			assert.Equal(t, 42.0, snap.SavedTimeSeconds)
			snap = vt.OnPause(tt.position)
			assert.Equal(t, ProgressSnapshot{SavedTimeSeconds: 42}, snap)
			snap = vt.OnBuffer(tt.position)
			assert.Equal(t, 42.0, snap.SavedTimeSeconds)
		})
	}
}

func TestVideoTrackerResume(t *testing.T) {
	var vt VideoTracker
	require.NoError(t, vt.Initialize("v1", 200, domain.ResumePoint{SavedTimeSeconds: 120, LastBreakpointIndex: 2}))

	state := vt.State()
	assert.Equal(t, 120.0, state.SavedTimeSeconds)
	assert.Equal(t, 2, state.LastBreakpointIndex)

	out, _ := vt.Sample(150.5)
	assert.Equal(t, SampleOutcome{Kind: BreakpointCrossed, Index: 3}, out)

	var done VideoTracker
	require.NoError(t, done.Initialize("v2", 200, domain.ResumePoint{LastBreakpointIndex: 9}))
	assert.True(t, done.Completed())
	out, _ = done.Sample(198)
	assert.Equal(t, NoChange, out.Kind)
}

func TestVideoSwitchResetsIndex(t *testing.T) {
	var vt VideoTracker
	require.NoError(t, vt.Initialize("v1", 200, domain.ResumePoint{}))
	_, _ = vt.Sample(50)
	_, _ = vt.Sample(100)
	_, _ = vt.Sample(150)

	snap := vt.OnVideoSwitch()
	assert.Equal(t, ProgressSnapshot{}, snap)
	_, err := vt.Sample(198)
	require.ErrorIs(t, err, domain.ErrNotReady)

	require.NoError(t, vt.Initialize("v2", 300, domain.ResumePoint{}))
	state := vt.State()
	assert.Equal(t, "v2", state.VideoID)
	assert.Equal(t, 0, state.LastBreakpointIndex)
	assert.False(t, state.Completed)
}

func TestVideoTrackerDetachStopsSampling(t *testing.T) {
	var vt VideoTracker
	require.NoError(t, vt.Initialize("v1", 200, domain.ResumePoint{}))
	vt.Detach()

	_, err := vt.Sample(50)
	require.ErrorIs(t, err, domain.ErrNotReady)
	assert.False(t, vt.Ready())
}
