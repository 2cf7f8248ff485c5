// Package scheduler drives the appliance polling loop: every tick it reads
// power from each plug, feeds the monitors, and routes completed cycles to
// notifications and history.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/MrSnakeDoc/hometools/internal/appliance"
	"github.com/MrSnakeDoc/hometools/internal/logger"
	"github.com/MrSnakeDoc/hometools/internal/notify"
)

// PowerReader reads the instantaneous load of one smart plug.
type PowerReader interface {
	CurrentPower(ctx context.Context) (float64, error)
}

// HistoryStore persists completed cycles. Optional.
type HistoryStore interface {
	SaveCycle(ctx context.Context, event *appliance.CycleEvent) error
}

// Target pairs a monitor with the plug it watches.
type Target struct {
	Monitor *appliance.Monitor
	Reader  PowerReader
}

// MonitorLoop polls all targets on a fixed interval.
type MonitorLoop struct {
	targets    []Target
	interval   time.Duration
	dispatcher *notify.Dispatcher
	history    HistoryStore // nil when no store is configured
	logger     logger.Logger

	stopCh   chan struct{}
	doneCh   chan struct{}
	stopOnce sync.Once

	lastStatusLog time.Time
}

func NewMonitorLoop(targets []Target, interval time.Duration, dispatcher *notify.Dispatcher, history HistoryStore, log logger.Logger) *MonitorLoop {
	return &MonitorLoop{
		targets:    targets,
		interval:   interval,
		dispatcher: dispatcher,
		history:    history,
		logger:     log,
		stopCh:     make(chan struct{}),
		doneCh:     make(chan struct{}),
	}
}

// Start launches the polling loop in a goroutine. The loop exits when the
// context is canceled or Stop is called.
func (l *MonitorLoop) Start(ctx context.Context) {
	l.logger.Info("🚀 appliance monitoring started",
		logger.Int("appliances", len(l.targets)),
		logger.Duration("interval", l.interval))

	go func() {
		defer close(l.doneCh)

		ticker := time.NewTicker(l.interval)
		defer ticker.Stop()

		// Prime the monitors before the first interval elapses.
		l.tick(ctx)

		for {
			select {
			case <-ctx.Done():
				l.logger.Info("monitor loop stopping, context canceled")
				return
			case <-l.stopCh:
				l.logger.Info("monitor loop stopping")
				return
			case <-ticker.C:
				l.tick(ctx)
			}
		}
	}()
}

// Stop signals the loop to exit and waits for the in-flight tick to finish.
func (l *MonitorLoop) Stop() {
	l.stopOnce.Do(func() { close(l.stopCh) })
	<-l.doneCh
}

// tick polls every target concurrently and joins before returning, so
// slow plugs never let ticks pile up.
func (l *MonitorLoop) tick(ctx context.Context) {
	var wg sync.WaitGroup
	for _, target := range l.targets {
		wg.Add(1)
		go func(target Target) {
			defer wg.Done()
			l.poll(ctx, target)
		}(target)
	}
	wg.Wait()

	l.maybeLogStatus()
}

func (l *MonitorLoop) poll(ctx context.Context, target Target) {
	power, err := target.Reader.CurrentPower(ctx)
	if err != nil {
		// A failed read is not an observation; state stays put.
		l.logger.Warn("⚠️ power read failed",
			logger.String("appliance", target.Monitor.Name()),
			logger.Error(err))
		return
	}

	event := target.Monitor.Observe(power)
	if event == nil {
		return
	}

	l.dispatcher.Send(ctx, event.Appliance+" finished", event.Message())

	if l.history != nil {
		// Best effort: a down Redis must not block the loop.
		if err := l.history.SaveCycle(ctx, event); err != nil {
			l.logger.Warn("failed to store cycle record",
				logger.String("appliance", event.Appliance),
				logger.Error(err))
		}
	}
}

// maybeLogStatus emits a heartbeat line roughly once a minute.
func (l *MonitorLoop) maybeLogStatus() {
	if time.Since(l.lastStatusLog) < time.Minute {
		return
	}
	l.lastStatusLog = time.Now()

	for _, target := range l.targets {
		l.logger.Info("status",
			logger.String("appliance", target.Monitor.Name()),
			logger.String("state", target.Monitor.State().String()),
			logger.Float64("power_w", target.Monitor.LastPower()))
	}
}
