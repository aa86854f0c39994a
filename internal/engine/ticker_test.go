package engine

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/MRamiBalles/CellularAutomata3D/internal/platform/logger"
)

type countingStepper struct {
	calls atomic.Int64
	fail  bool
}

func (s *countingStepper) Tick() (bool, error) {
	s.calls.Add(1)
	if s.fail {
		return false, errors.New("boom")
	}
	return true, nil
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("Timed out waiting for ticker")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestTickerDrivesStepper(t *testing.T) {
	s := &countingStepper{}
	tk := NewTicker(s, logger.NewLoggerWithWriter(io.Discard), 2*time.Millisecond)

	done := make(chan struct{})
	go func() {
		tk.Start(context.Background())
		close(done)
	}()

	waitFor(t, func() bool { return tk.Ticks() >= 3 })
	tk.Stop()
	tk.Stop()
	<-done
}

func TestTickerStopsOnContext(t *testing.T) {
	s := &countingStepper{fail: true}
	tk := NewTicker(s, logger.NewLoggerWithWriter(io.Discard), time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		tk.Start(ctx)
		close(done)
	}()

	waitFor(t, func() bool { return s.calls.Load() >= 2 })
	cancel()
	<-done
	if tk.Ticks() != 0 {
		t.Errorf("Failed ticks must not count, got %d", tk.Ticks())
	}
}

func TestTickerSetInterval(t *testing.T) {
	tk := NewTicker(&countingStepper{}, logger.NewLoggerWithWriter(io.Discard), 0)
	if tk.Interval() != DefaultTickInterval {
		t.Errorf("Expected default interval, got %s", tk.Interval())
	}
	tk.SetInterval(250 * time.Millisecond)
	tk.SetInterval(500 * time.Millisecond)
	if tk.Interval() != 500*time.Millisecond {
		t.Errorf("Expected 500ms, got %s", tk.Interval())
	}
	tk.SetInterval(-1)
	if tk.Interval() != 500*time.Millisecond {
		t.Error("Non-positive interval must be ignored")
	}
}

func TestSetIntervalNeverBlocks(t *testing.T) {
	tk := NewTicker(&countingStepper{}, logger.NewLoggerWithWriter(io.Discard), time.Hour)
	tk.Stop()

	done := make(chan struct{})
	go func() {
		var wg sync.WaitGroup
		for i := 1; i <= 50; i++ {
			wg.Add(1)
			go func(ms int) {
				defer wg.Done()
				tk.SetInterval(time.Duration(ms) * time.Millisecond)
			}(i)
		}
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("SetInterval blocked with no running loop")
	}
	if d := tk.Interval(); d < time.Millisecond || d > 50*time.Millisecond {
		t.Errorf("Expected one of the requested intervals, got %s", d)
	}
}
