package snapshot

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/crewpulse/crewpulse/internal/config"
	"github.com/crewpulse/crewpulse/internal/metrics"
	"github.com/crewpulse/crewpulse/internal/presence"
	"github.com/crewpulse/crewpulse/internal/signal"
)

// Lifecycle errors.
var (
	ErrNotRunning     = errors.New("cycle not running")
	ErrAlreadyRunning = errors.New("cycle already running")
)

// Sources bundles the four signal adapters the cycle fuses. Each adapter
// fails soft on its own; the cycle additionally recovers panics so one bad
// source can never stop the loop for the rest of the fleet.
type Sources struct {
	Gateway  *signal.GatewayProbe
	Activity *signal.ActivityRegistry
	Tasks    *signal.TaskRegistry
	Stats    *signal.CompletionStats
}

// Cycle is the periodic orchestrator: every tick it gathers all signals,
// evaluates every agent against one shared clock reading, and publishes a
// fresh immutable snapshot.
type Cycle struct {
	agents    []config.Agent
	sources   Sources
	evaluator *presence.Evaluator
	interval  time.Duration
	logger    *slog.Logger
	now       func() time.Time

	current atomic.Pointer[Snapshot]
	stopCh  chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool
}

// Option configures a Cycle.
type Option func(*Cycle)

// WithClock overrides the time source. Tests use this to pin "now".
func WithClock(now func() time.Time) Option {
	return func(c *Cycle) { c.now = now }
}

// WithLogger sets the cycle's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Cycle) { c.logger = logger }
}

// NewCycle creates a cycle for a fixed agent roster. The roster is passed
// in explicitly: the cycle holds no global state and monitors exactly the
// agents it was constructed with.
func NewCycle(agents []config.Agent, sources Sources, evaluator *presence.Evaluator, interval time.Duration, opts ...Option) *Cycle {
	c := &Cycle{
		agents:    agents,
		sources:   sources,
		evaluator: evaluator,
		interval:  interval,
		logger:    slog.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start computes an initial snapshot and begins the periodic loop. The
// first snapshot is published before Start returns, so readers never see
// a nil snapshot after startup. A stopped cycle can be started again.
func (c *Cycle) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return ErrAlreadyRunning
	}
	c.running = true
	c.stopCh = make(chan struct{})

	c.Tick()

	c.wg.Add(1)
	go c.run(c.stopCh)
	return nil
}

// Stop halts the periodic loop and waits for it to exit.
func (c *Cycle) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running {
		return ErrNotRunning
	}
	c.running = false
	close(c.stopCh)
	c.wg.Wait()
	return nil
}

// Current returns the latest published snapshot, or nil before the first
// tick. Never blocks on an in-progress tick.
func (c *Cycle) Current() *Snapshot {
	return c.current.Load()
}

func (c *Cycle) run(stop <-chan struct{}) {
	defer c.wg.Done()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	c.logger.Info("snapshot cycle started", "interval", c.interval, "agents", len(c.agents))
	for {
		select {
		case <-stop:
			c.logger.Info("snapshot cycle stopped")
			return
		case <-ticker.C:
			c.Tick()
		}
	}
}

// Tick performs one full recomputation and publishes the result.
func (c *Cycle) Tick() {
	started := time.Now()

	// One clock reading for the whole fleet. Every agent's activity age is
	// measured against this instant, so agents evaluated microseconds apart
	// cannot straddle a threshold from clock skew.
	now := c.now()

	ctx, cancel := context.WithTimeout(context.Background(), config.GatewayProbeTimeout+time.Second)
	defer cancel()

	var gatewaySample signal.Sample
	var activitySamples, taskSamples map[string]signal.Sample
	var stats map[string]presence.TaskStats

	c.guarded("gateway", func() { gatewaySample = c.sources.Gateway.Probe(ctx) })
	c.guarded("activity", func() { activitySamples = c.sources.Activity.FetchAll(c.agents) })
	c.guarded("tasks", func() { taskSamples = c.sources.Tasks.FetchAll(c.agents) })
	c.guarded("stats", func() { stats = c.sources.Stats.FetchAll(ctx, now) })

	// An indeterminate probe (no data) leaves the gate open: the fleet is
	// only forced offline on positive evidence the backend is down.
	gatewayUp := !(gatewaySample.Flag != nil && !*gatewaySample.Flag)

	snap := &Snapshot{
		ComputedAt: now,
		GatewayUp:  gatewayUp,
		Agents:     make([]AgentPresence, 0, len(c.agents)),
	}

	for _, agent := range c.agents {
		entry := AgentPresence{Agent: agent}

		var lastActivity *time.Time
		if s, ok := activitySamples[agent.ID]; ok && s.ObservedAt != nil {
			lastActivity = s.ObservedAt
		}
		entry.LastActivity = lastActivity

		state, reason := c.evaluator.Evaluate(lastActivity, gatewayUp, agent.Coordinator, now)

		var agentStats *presence.TaskStats
		if st, ok := stats[agent.ID]; ok {
			copied := st
			agentStats = &copied
		}
		entry.Tasks = agentStats

		inFlight := false
		if s, ok := taskSamples[agent.ID]; ok && s.Flag != nil {
			inFlight = *s.Flag
		}

		entry.State, entry.Reason = presence.Merge(state, reason, agentStats, inFlight)
		snap.Agents = append(snap.Agents, entry)
	}

	presence.SortFleet(snap.Agents)
	c.publish(snap)

	metrics.CycleTicks.Inc()
	metrics.CycleDuration.Observe(time.Since(started).Seconds())
}

// publish atomically replaces the current snapshot and updates gauges.
func (c *Cycle) publish(snap *Snapshot) {
	c.current.Store(snap)

	counts := make(map[presence.State]int, 4)
	for _, a := range snap.Agents {
		counts[a.State]++
	}
	for _, state := range []presence.State{presence.StateExecuting, presence.StateActive, presence.StateIdle, presence.StateOffline} {
		metrics.AgentsByState.WithLabelValues(string(state)).Set(float64(counts[state]))
	}
	if snap.GatewayUp {
		metrics.GatewayUp.Set(1)
	} else {
		metrics.GatewayUp.Set(0)
	}
}

// guarded runs one source fetch, recovering panics so a bad signal cannot
// kill the loop.
func (c *Cycle) guarded(source string, fetch func()) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("signal source panicked", "source", source, "panic", r)
		}
	}()
	fetch()
}
