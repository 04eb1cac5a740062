package pomodoro

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func testRenamer(base time.Time, slept *[]time.Duration) *Renamer {
	return &Renamer{
		now: func() time.Time { return base },
		sleep: func(ctx context.Context, d time.Duration) error {
			*slept = append(*slept, d)
			return nil
		},
	}
}

func TestRenamerAppliesImmediatelyOnFirstRequest(t *testing.T) {
	base := time.Date(2026, 3, 14, 15, 0, 0, 0, time.UTC)
	var slept []time.Duration
	r := testRenamer(base, &slept)

	var applied string
	res := r.Request(context.Background(),
		func() (string, bool) { return "old", true },
		func() string { return "new" },
		func() bool { return true },
		func(ctx context.Context, name string) error { applied = name; return nil },
	)

	require.Equal(t, RenameApplied, res)
	require.Empty(t, slept)
	require.Equal(t, "new", applied)
	require.Equal(t, base, r.last)
}

func TestRenamerWaitsOutTheWindow(t *testing.T) {
	base := time.Date(2026, 3, 14, 15, 0, 0, 0, time.UTC)
	var slept []time.Duration
	r := testRenamer(base, &slept)
	r.last = base.Add(-2 * time.Minute)

	res := r.Request(context.Background(),
		func() (string, bool) { return "old", true },
		func() string { return "new" },
		func() bool { return true },
		func(ctx context.Context, name string) error { return nil },
	)

	require.Equal(t, RenameApplied, res)
	require.Equal(t, []time.Duration{3 * time.Minute}, slept)
}

func TestRenamerDropsWhenBusy(t *testing.T) {
	base := time.Date(2026, 3, 14, 15, 0, 0, 0, time.UTC)
	entered := make(chan struct{})
	release := make(chan struct{})
	done := make(chan struct{})

	r := &Renamer{
		last: base.Add(-time.Minute),
		now:  func() time.Time { return base },
		sleep: func(ctx context.Context, d time.Duration) error {
			close(entered)
			<-release
			return nil
		},
	}

	go func() {
		defer close(done)
		r.Request(context.Background(),
			func() (string, bool) { return "old", true },
			func() string { return "new" },
			func() bool { return true },
			func(ctx context.Context, name string) error { return nil },
		)
	}()
	<-entered

	res := r.Request(context.Background(),
		func() (string, bool) { return "old", true },
		func() string { return "other" },
		func() bool { return true },
		func(ctx context.Context, name string) error { return nil },
	)
	require.Equal(t, RenameDroppedBusy, res)

	close(release)
	<-done
}

func TestRenamerCancelledDuringWait(t *testing.T) {
	base := time.Date(2026, 3, 14, 15, 0, 0, 0, time.UTC)
	r := &Renamer{
		last:  base.Add(-time.Minute),
		now:   func() time.Time { return base },
		sleep: func(ctx context.Context, d time.Duration) error { return context.Canceled },
	}

	called := false
	res := r.Request(context.Background(),
		func() (string, bool) { return "old", true },
		func() string { return "new" },
		func() bool { return true },
		func(ctx context.Context, name string) error { called = true; return nil },
	)

	require.Equal(t, RenameCancelled, res)
	require.False(t, called)
}

func TestRenamerSkipsWhenNothingToDo(t *testing.T) {
	base := time.Date(2026, 3, 14, 15, 0, 0, 0, time.UTC)
	var slept []time.Duration

	cases := []struct {
		name    string
		current func() (string, bool)
		desired string
		can     bool
	}{
		{"canal borrado", func() (string, bool) { return "", false }, "new", true},
		{"sin permiso", func() (string, bool) { return "old", true }, "new", false},
		{"nombre ya correcto", func() (string, bool) { return "same", true }, "same", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := testRenamer(base, &slept)
			res := r.Request(context.Background(),
				tc.current,
				func() string { return tc.desired },
				func() bool { return tc.can },
				func(ctx context.Context, name string) error {
					t.Fatal("apply no debería correr")
					return nil
				},
			)
			require.Equal(t, RenameSkipped, res)
			require.True(t, r.last.IsZero(), "skip no gasta la ventana")
		})
	}
}

func TestRenamerAdvancesWindowEvenIfApplyFails(t *testing.T) {
	base := time.Date(2026, 3, 14, 15, 0, 0, 0, time.UTC)
	var slept []time.Duration
	r := testRenamer(base, &slept)

	res := r.Request(context.Background(),
		func() (string, bool) { return "old", true },
		func() string { return "new" },
		func() bool { return true },
		func(ctx context.Context, name string) error { return errors.New("rest error") },
	)

	require.Equal(t, RenameApplied, res)
	require.Equal(t, base, r.last)
}
