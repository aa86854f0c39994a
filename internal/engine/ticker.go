package engine

import (
	"context"
	"sync"
	"time"

	"github.com/MRamiBalles/CellularAutomata3D/internal/platform/logger"
)

// DefaultTickInterval is the cadence generations advance at when none is given.
const DefaultTickInterval = 1 * time.Second

// Stepper is anything the ticker can drive. Engine implements it.
type Stepper interface {
	Tick() (bool, error)
}

// Ticker manages the simulation heartbeat.
// It does NOT know about cells or rules - only cadence.
type Ticker struct {
	stepper  Stepper
	logger   *logger.Logger
	interval time.Duration

	mu       sync.Mutex
	ticks    int64
	resetCh  chan time.Duration
	stopChan chan struct{}
	stopOnce sync.Once
}

// NewTicker creates a ticker advancing s every interval.
func NewTicker(s Stepper, log *logger.Logger, interval time.Duration) *Ticker {
	if interval <= 0 {
		interval = DefaultTickInterval
	}
	return &Ticker{
		stepper:  s,
		logger:   log,
		interval: interval,
		resetCh:  make(chan time.Duration, 1),
		stopChan: make(chan struct{}),
	}
}

// Start begins the loop. Call in a goroutine.
func (t *Ticker) Start(ctx context.Context) {
	t.logger.Infof("Ticker started, one generation every %s", t.Interval())

	ticker := time.NewTicker(t.Interval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			t.logger.Info("Ticker stopped by context.")
			return
		case <-t.stopChan:
			t.logger.Info("Ticker stopped manually.")
			return
		case d := <-t.resetCh:
			ticker.Reset(d)
		case <-ticker.C:
			t.tick()
		}
	}
}

// Stop gracefully stops the ticker. Safe to call more than once.
func (t *Ticker) Stop() {
	t.stopOnce.Do(func() { close(t.stopChan) })
}

// SetInterval changes the cadence of a running or not yet started ticker.
func (t *Ticker) SetInterval(d time.Duration) {
	if d <= 0 {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.interval = d

	// Keep only the latest pending change. Only setters send, and they hold mu,
	// so the send after the drain never has to wait for the loop.
	select {
	case <-t.resetCh:
	default:
	}
	select {
	case t.resetCh <- d:
	default:
	}
}

// Interval returns the current cadence.
func (t *Ticker) Interval() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.interval
}

// Ticks is how many generations the ticker has caused.
func (t *Ticker) Ticks() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.ticks
}

// tick processes a single heartbeat.
func (t *Ticker) tick() {
	stepped, err := t.stepper.Tick()
	if err != nil {
		t.logger.Warn("Tick failed: " + err.Error())
		return
	}
	if stepped {
		t.mu.Lock()
		t.ticks++
		t.mu.Unlock()
	}
}
