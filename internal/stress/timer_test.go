package stress

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimer_Elapsed(t *testing.T) {
	clock := NewFakeClock(time.Unix(1700000000, 0))
	timer := NewTimer(3, clock)

	timer.Start()
	clock.Advance(250 * time.Millisecond)
	timer.Stop()

	d, err := timer.Elapsed()
	require.NoError(t, err)
	assert.Equal(t, 250*time.Millisecond, d)
	assert.Equal(t, 3, timer.InstanceIndex())

	// Reading again does not change the measurement.
	clock.Advance(time.Second)
	again, err := timer.Elapsed()
	require.NoError(t, err)
	assert.Equal(t, d, again)
}

func TestTimer_Incomplete(t *testing.T) {
	tests := []struct {
		name    string
		prepare func(*Timer, *FakeClock)
		wantErr error
	}{
		{
			name:    "never started",
			prepare: func(*Timer, *FakeClock) {},
			wantErr: ErrTimerNotStarted,
		},
		{
			name:    "stopped without start",
			prepare: func(tm *Timer, _ *FakeClock) { tm.Stop() },
			wantErr: ErrTimerNotStarted,
		},
		{
			name:    "started but not stopped",
			prepare: func(tm *Timer, _ *FakeClock) { tm.Start() },
			wantErr: ErrTimerNotStopped,
		},
		{
			name: "restarted after stop",
			prepare: func(tm *Timer, c *FakeClock) {
				tm.Start()
				c.Advance(time.Millisecond)
				tm.Stop()
				c.Advance(time.Millisecond)
				tm.Start()
			},
			wantErr: ErrTimerNotStopped,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock := NewFakeClock(time.Unix(0, 0))
			timer := NewTimer(0, clock)
			tt.prepare(timer, clock)

			for i := 0; i < 2; i++ {
				d, err := timer.Elapsed()
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Zero(t, d)
			}
		})
	}
}

func TestTimer_RealClockDefault(t *testing.T) {
	timer := NewTimer(0, nil)
	timer.Start()
	time.Sleep(2 * time.Millisecond)
	timer.Stop()

	d, err := timer.Elapsed()
	require.NoError(t, err)
	assert.GreaterOrEqual(t, d, 2*time.Millisecond)
}
