package pomodoro

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCurrentStageNilWhenStopped(t *testing.T) {
	now := time.Date(2026, 3, 14, 15, 0, 0, 0, time.UTC)
	require.Nil(t, CurrentStage(nil, 25*time.Minute, 5*time.Minute, now))
}

func TestCurrentStageFocusPhase(t *testing.T) {
	now := time.Date(2026, 3, 14, 15, 0, 0, 0, time.UTC)
	started := now.Add(-10 * time.Minute)

	st := CurrentStage(&started, 25*time.Minute, 5*time.Minute, now)
	require.NotNil(t, st)
	require.True(t, st.Focused)
	require.Equal(t, started, st.Start)
	require.Equal(t, 25*time.Minute, st.Duration)
	require.Equal(t, started.Add(25*time.Minute), st.End)
}

func TestCurrentStageBreakAtExactBoundary(t *testing.T) {
	now := time.Date(2026, 3, 14, 15, 0, 0, 0, time.UTC)
	started := now.Add(-25 * time.Minute)

	st := CurrentStage(&started, 25*time.Minute, 5*time.Minute, now)
	require.NotNil(t, st)
	require.False(t, st.Focused)
	require.Equal(t, now, st.Start)
	require.Equal(t, now.Add(5*time.Minute), st.End)
}

func TestCurrentStageWrapsFullCycles(t *testing.T) {
	now := time.Date(2026, 3, 14, 15, 0, 0, 0, time.UTC)
	// Dos ciclos completos y 26 minutos: estamos a 1 minuto de break.
	started := now.Add(-(2*30*time.Minute + 26*time.Minute))

	st := CurrentStage(&started, 25*time.Minute, 5*time.Minute, now)
	require.NotNil(t, st)
	require.False(t, st.Focused)
	require.Equal(t, now.Add(-time.Minute), st.Start)
	require.Equal(t, now.Add(4*time.Minute), st.End)
}

func TestRemainingMinutesRoundsUp(t *testing.T) {
	now := time.Date(2026, 3, 14, 15, 0, 0, 0, time.UTC)

	cases := []struct {
		left time.Duration
		want int
	}{
		{90 * time.Second, 2},
		{120 * time.Second, 2},
		{time.Second, 1},
		{0, 0},
	}
	for _, tc := range cases {
		st := &Stage{End: now.Add(tc.left)}
		require.Equal(t, tc.want, st.RemainingMinutes(now), "left=%s", tc.left)
	}
}

func TestStageLabel(t *testing.T) {
	require.Equal(t, "FOCUS", (&Stage{Focused: true}).Label())
	require.Equal(t, "BREAK", (&Stage{}).Label())
}
