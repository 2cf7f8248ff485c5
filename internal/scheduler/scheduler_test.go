package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/MrSnakeDoc/hometools/internal/appliance"
	"github.com/MrSnakeDoc/hometools/internal/logger"
	"github.com/MrSnakeDoc/hometools/internal/notify"
)

type scriptedReader struct {
	mu       sync.Mutex
	readings []float64
	errAt    map[int]error
	calls    int
}

func (r *scriptedReader) CurrentPower(ctx context.Context) (float64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.calls
	r.calls++
	if err, ok := r.errAt[i]; ok {
		return 0, err
	}
	if i >= len(r.readings) {
		return r.readings[len(r.readings)-1], nil
	}
	return r.readings[i], nil
}

type recordingStore struct {
	mu     sync.Mutex
	events []*appliance.CycleEvent
	err    error
}

func (s *recordingStore) SaveCycle(ctx context.Context, event *appliance.CycleEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return s.err
}

func testTarget(reader PowerReader) Target {
	cfg := appliance.Config{
		Name:                  "Washer",
		Addr:                  "10.0.0.1",
		PowerThresholdStart:   5.0,
		PowerThresholdRunning: 3.0,
		IdleTimeThreshold:     time.Nanosecond, // completes on the first low reading
	}
	m := appliance.NewMonitor(cfg, logger.Nop())
	return Target{Monitor: m, Reader: reader}
}

func TestTickCompletesCycleAndStoresIt(t *testing.T) {
	reader := &scriptedReader{readings: []float64{400.0, 1.0, 0.5}}
	store := &recordingStore{}
	loop := NewMonitorLoop(
		[]Target{testTarget(reader)},
		time.Hour, // ticks driven manually
		notify.NewDispatcher(logger.Nop()),
		store,
		logger.Nop(),
	)

	ctx := context.Background()
	loop.tick(ctx) // 400W: running
	loop.tick(ctx) // 1W: finishing, idle window starts
	loop.tick(ctx) // 0.5W: idle window (1ns) elapsed, cycle complete

	store.mu.Lock()
	defer store.mu.Unlock()
	if len(store.events) != 1 {
		t.Fatalf("stored %d events, want 1", len(store.events))
	}
	if store.events[0].Appliance != "Washer" {
		t.Errorf("Appliance = %q", store.events[0].Appliance)
	}
}

func TestFailedReadLeavesStateUnchanged(t *testing.T) {
	reader := &scriptedReader{
		readings: []float64{400.0, 400.0, 400.0},
		errAt:    map[int]error{1: errors.New("connection refused")},
	}
	target := testTarget(reader)
	loop := NewMonitorLoop([]Target{target}, time.Hour,
		notify.NewDispatcher(logger.Nop()), nil, logger.Nop())

	ctx := context.Background()
	loop.tick(ctx)
	if target.Monitor.State() != appliance.StateRunning {
		t.Fatalf("state = %v, want running", target.Monitor.State())
	}

	loop.tick(ctx) // read fails; must not be treated as a 0W observation
	if target.Monitor.State() != appliance.StateRunning {
		t.Errorf("state after failed read = %v, want running", target.Monitor.State())
	}
}

func TestStoreFailureDoesNotStopLoop(t *testing.T) {
	reader := &scriptedReader{readings: []float64{400.0, 1.0, 0.5, 400.0}}
	store := &recordingStore{err: errors.New("redis down")}
	target := testTarget(reader)
	loop := NewMonitorLoop([]Target{target}, time.Hour,
		notify.NewDispatcher(logger.Nop()), store, logger.Nop())

	ctx := context.Background()
	for i := 0; i < 4; i++ {
		loop.tick(ctx)
	}

	// The loop kept polling after the store error and saw the next start.
	if target.Monitor.State() != appliance.StateRunning {
		t.Errorf("state = %v, want running", target.Monitor.State())
	}
}

func TestStartStop(t *testing.T) {
	reader := &scriptedReader{readings: []float64{0.0}}
	loop := NewMonitorLoop([]Target{testTarget(reader)},
		5*time.Millisecond, notify.NewDispatcher(logger.Nop()), nil, logger.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	loop.Start(ctx)
	time.Sleep(20 * time.Millisecond)
	loop.Stop()

	reader.mu.Lock()
	calls := reader.calls
	reader.mu.Unlock()
	if calls == 0 {
		t.Error("loop never polled the reader")
	}
}
