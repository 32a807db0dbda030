package memwatch

import (
	"testing"
	"time"
)

func TestNoLimitDisablesWatcher(t *testing.T) {
	w := New(func() { t.Error("relief fired with no limit configured") })
	w.limit = 0
	w.Start()
	time.Sleep(20 * time.Millisecond)
	w.Stop()
}

func TestReliefFiresOncePerEpisode(t *testing.T) {
	fired := 0
	w := New(func() { fired++ })
	w.limit = 1 // any allocation exceeds this
	w.interval = time.Millisecond

	// Drive checks directly instead of waiting on the ticker.
	w.check()
	w.check()
	w.check()

	if fired != 1 {
		t.Errorf("relief fired %d times during one episode, want 1", fired)
	}
	if w.Reliefs() != 1 {
		t.Errorf("Reliefs() = %d, want 1", w.Reliefs())
	}
}

func TestRecoveryRearmsRelief(t *testing.T) {
	fired := 0
	w := New(func() { fired++ })

	w.limit = 1
	w.check() // pressure, relief fires

	// A huge limit drops usage to effectively zero, clearing the episode.
	w.limit = 1 << 50
	w.check()

	w.limit = 1
	w.check() // pressure again, relief re-fires

	if fired != 2 {
		t.Errorf("relief fired %d times across two episodes, want 2", fired)
	}
}

func TestStopIsIdempotent(t *testing.T) {
	w := New(nil)
	w.Stop()
	w.Stop()
}
