// Package appliance tracks appliance run cycles from smart-plug power
// readings. A monitor walks Idle -> Running -> Finishing -> Idle and emits
// exactly one completion event per cycle.
package appliance

import (
	"fmt"
	"os"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/MrSnakeDoc/hometools/internal/logger"
)

// State is the appliance operating state.
type State int

const (
	StateIdle State = iota
	StateRunning
	StateFinishing
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateFinishing:
		return "finishing"
	default:
		return "unknown"
	}
}

// Config describes one monitored appliance. Created once at startup from
// environment variables or a YAML file; never mutated.
type Config struct {
	// Name identifies the appliance in logs and notifications (ex: "Washer").
	Name string `yaml:"name"`

	// Addr is the smart plug address. A missing port gets the vendor default.
	Addr string `yaml:"addr"`

	// PowerThresholdStart is the wattage at or above which a cycle starts.
	PowerThresholdStart float64 `yaml:"power_threshold_start"`

	// PowerThresholdRunning is the wattage below which the appliance may be
	// finishing. Rising back above it resumes the cycle.
	PowerThresholdRunning float64 `yaml:"power_threshold_running"`

	// IdleTimeThreshold is how long power must stay below the running
	// threshold before the cycle counts as complete.
	IdleTimeThreshold time.Duration `yaml:"idle_time_threshold"`
}

// Validate checks the fields a monitor cannot run without.
func (c Config) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("appliance has no name")
	}
	if c.Addr == "" {
		return fmt.Errorf("appliance %q has no device address", c.Name)
	}
	if c.PowerThresholdStart <= 0 || c.PowerThresholdRunning <= 0 {
		return fmt.Errorf("appliance %q has non-positive power thresholds", c.Name)
	}
	if c.IdleTimeThreshold <= 0 {
		return fmt.Errorf("appliance %q has non-positive idle time threshold", c.Name)
	}
	return nil
}

// CycleEvent is emitted once when a cycle completes.
type CycleEvent struct {
	Appliance   string
	Duration    time.Duration
	FinalPower  float64
	CompletedAt time.Time
}

// Message renders the event as a human-readable notification body.
func (e *CycleEvent) Message() string {
	return fmt.Sprintf("✅ %s cycle COMPLETE!\nDuration: %.0f minutes\nFinal power: %.1fW",
		e.Appliance, e.Duration.Minutes(), e.FinalPower)
}

// Status is a read-only snapshot of a monitor, served by the status API.
type Status struct {
	Name       string     `json:"name"`
	State      string     `json:"state"`
	LastPower  float64    `json:"last_power_w"`
	CycleStart *time.Time `json:"cycle_start,omitempty"`
	IdleStart  *time.Time `json:"idle_start,omitempty"`
}

// Monitor owns the state for a single appliance. It is safe for concurrent
// use: the polling loop observes readings while the status API snapshots.
type Monitor struct {
	cfg    Config
	logger logger.Logger

	mu         sync.Mutex
	state      State
	cycleStart time.Time // set only while state != Idle
	idleStart  time.Time // set only while state == Finishing
	lastPower  float64

	now func() time.Time // injectable for tests
}

// NewMonitor creates a monitor in the Idle state.
func NewMonitor(cfg Config, log logger.Logger) *Monitor {
	return &Monitor{
		cfg:    cfg,
		logger: log,
		state:  StateIdle,
		now:    time.Now,
	}
}

// Observe feeds one power reading (watts) through the state machine.
// It returns a non-nil event exactly once per completed cycle.
//
// A failed read is not an observation: callers must skip the tick
// entirely rather than pass a zero value.
func (m *Monitor) Observe(power float64) *CycleEvent {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.lastPower = power
	now := m.now()

	switch m.state {
	case StateIdle:
		if power >= m.cfg.PowerThresholdStart {
			m.state = StateRunning
			m.cycleStart = now
			m.idleStart = time.Time{}
			m.logger.Info("🟢 cycle started",
				logger.String("appliance", m.cfg.Name),
				logger.Float64("power_w", power))
		}

	case StateRunning:
		if power < m.cfg.PowerThresholdRunning {
			m.state = StateFinishing
			m.idleStart = now
			m.logger.Info("🟡 power dropped, monitoring for completion",
				logger.String("appliance", m.cfg.Name),
				logger.Float64("power_w", power))
		}

	case StateFinishing:
		if power >= m.cfg.PowerThresholdRunning {
			// Power came back up: still running.
			m.state = StateRunning
			m.idleStart = time.Time{}
			m.logger.Info("🟢 resumed running",
				logger.String("appliance", m.cfg.Name),
				logger.Float64("power_w", power))
			return nil
		}

		if now.Sub(m.idleStart) >= m.cfg.IdleTimeThreshold {
			event := &CycleEvent{
				Appliance:   m.cfg.Name,
				Duration:    now.Sub(m.cycleStart),
				FinalPower:  power,
				CompletedAt: now,
			}
			m.state = StateIdle
			m.cycleStart = time.Time{}
			m.idleStart = time.Time{}
			m.logger.Info("🔵 cycle complete",
				logger.String("appliance", m.cfg.Name),
				logger.Duration("cycle_duration", event.Duration),
				logger.Float64("final_power_w", power))
			return event
		}
	}

	return nil
}

// Name returns the configured appliance name.
func (m *Monitor) Name() string { return m.cfg.Name }

// State returns the current state.
func (m *Monitor) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// LastPower returns the most recently observed reading.
func (m *Monitor) LastPower() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastPower
}

// Snapshot returns a copy of the monitor state for the status API.
func (m *Monitor) Snapshot() Status {
	m.mu.Lock()
	defer m.mu.Unlock()

	st := Status{
		Name:      m.cfg.Name,
		State:     m.state.String(),
		LastPower: m.lastPower,
	}
	if !m.cycleStart.IsZero() {
		cs := m.cycleStart
		st.CycleStart = &cs
	}
	if !m.idleStart.IsZero() {
		is := m.idleStart
		st.IdleStart = &is
	}
	return st
}

// LoadFile reads appliance configurations from a YAML document:
//
//	appliances:
//	  - name: Washer
//	    addr: 192.168.1.40
//	    power_threshold_start: 5.0
//	    power_threshold_running: 3.0
//	    idle_time_threshold: 2m
func LoadFile(path string) ([]Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read appliances file: %w", err)
	}

	var doc struct {
		Appliances []Config `yaml:"appliances"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse appliances yaml: %w", err)
	}
	if len(doc.Appliances) == 0 {
		return nil, fmt.Errorf("no appliances defined in %s", path)
	}

	for _, cfg := range doc.Appliances {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	return doc.Appliances, nil
}

// FromEnv assembles the default washer/dryer pair from environment
// variables. Either appliance is optional; at least one address must be
// set. Thresholds default to values tuned for typical laundry machines.
func FromEnv() ([]Config, error) {
	var configs []Config

	if addr := os.Getenv("WASHER_ADDR"); addr != "" {
		configs = append(configs, Config{
			Name:                  "Washer",
			Addr:                  addr,
			PowerThresholdStart:   envFloat("WASHER_POWER_START", 5.0),
			PowerThresholdRunning: envFloat("WASHER_POWER_RUNNING", 3.0),
			IdleTimeThreshold:     envSeconds("WASHER_IDLE_TIME", 120*time.Second),
		})
	}
	if addr := os.Getenv("DRYER_ADDR"); addr != "" {
		configs = append(configs, Config{
			Name:                  "Dryer",
			Addr:                  addr,
			PowerThresholdStart:   envFloat("DRYER_POWER_START", 100.0),
			PowerThresholdRunning: envFloat("DRYER_POWER_RUNNING", 50.0),
			IdleTimeThreshold:     envSeconds("DRYER_IDLE_TIME", 180*time.Second),
		})
	}

	if len(configs) == 0 {
		return nil, fmt.Errorf("no appliances configured: set WASHER_ADDR and/or DRYER_ADDR, or APPLIANCEMON_CONFIG_FILE")
	}
	for _, cfg := range configs {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	return configs, nil
}

func envFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		var f float64
		if _, err := fmt.Sscanf(v, "%g", &f); err == nil {
			return f
		}
	}
	return def
}

func envSeconds(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
		var secs int
		if _, err := fmt.Sscanf(v, "%d", &secs); err == nil {
			return time.Duration(secs) * time.Second
		}
	}
	return def
}
