// Package live implements the dual-mode update pipeline for a subject:
// a push subscription as the primary channel, with supervised fallback
// polling that starts when the push channel has not proven itself within
// a bounded delay and stands down once it does.
package live

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/crewpulse/crewpulse/internal/config"
)

// ConnState is the push channel connection state.
type ConnState string

const (
	StateConnecting ConnState = "connecting"
	StateActive     ConnState = "active"
	StateError      ConnState = "error"
	StateTimedOut   ConnState = "timed_out"
	StateClosed     ConnState = "closed"
)

// Event is one insert-style update scoped to a subject.
type Event struct {
	SubjectID string          `json:"subject_id"`
	Payload   json.RawMessage `json:"payload"`
}

// Transport opens push subscriptions. The shipped implementation is the
// websocket feed; tests substitute fakes.
type Transport interface {
	// Subscribe opens a push subscription for a subject. Incoming events
	// arrive via onEvent, connection state changes via onState. The
	// returned cancel func tears the subscription down and is safe to
	// call more than once.
	Subscribe(subjectID string, onEvent func(Event), onState func(ConnState)) (cancel func(), err error)
}

// Fetcher re-fetches a subject's full current data. Used by the fallback
// polling path; its result replaces the local view wholesale.
type Fetcher func(ctx context.Context, subjectID string) ([]Event, error)

// Status is a point-in-time description of a channel handle.
type Status struct {
	SubjectID     string    `json:"subject_id"`
	State         ConnState `json:"state"`
	TimerArmed    bool      `json:"fallback_timer_armed"`
	PollingActive bool      `json:"fallback_polling_active"`
}

// Channel is the per-subject update pipeline. One instance exists per
// subscribed subject; it is created by Subscribe and must be released
// with Close, which is safe from any state including never-subscribed.
type Channel struct {
	subjectID string
	transport Transport
	fetch     Fetcher
	logger    *slog.Logger

	armDelay     time.Duration
	pollInterval time.Duration

	timer timerToken

	mu         sync.Mutex
	state      ConnState
	view       []Event
	cancelPush func()
	pollStop   chan struct{}
	pollWG     sync.WaitGroup
	closed     bool
	onUpdate   func([]Event)
}

// ChannelOption configures a Channel.
type ChannelOption func(*Channel)

// WithTimings overrides the fallback arm delay and poll interval.
// Tests use short values; production uses the config constants.
func WithTimings(armDelay, pollInterval time.Duration) ChannelOption {
	return func(c *Channel) {
		c.armDelay = armDelay
		c.pollInterval = pollInterval
	}
}

// WithUpdateFunc registers a callback invoked with the subject's view
// after every change (push append or poll replace).
func WithUpdateFunc(fn func([]Event)) ChannelOption {
	return func(c *Channel) { c.onUpdate = fn }
}

// WithChannelLogger sets the channel's logger.
func WithChannelLogger(logger *slog.Logger) ChannelOption {
	return func(c *Channel) { c.logger = logger }
}

// NewChannel creates an unsubscribed channel for a subject.
func NewChannel(subjectID string, transport Transport, fetch Fetcher, opts ...ChannelOption) *Channel {
	c := &Channel{
		subjectID:    subjectID,
		transport:    transport,
		fetch:        fetch,
		logger:       slog.Default(),
		armDelay:     config.FallbackArmDelay,
		pollInterval: config.FallbackPollInterval,
		state:        StateConnecting,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Subscribe opens the push subscription and arms the fallback timer. If
// the channel does not reach active before the timer fires, fallback
// polling starts and keeps running until the channel proves itself or the
// subject is unsubscribed.
func (c *Channel) Subscribe() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrChannelClosed
	}
	c.state = StateConnecting
	c.mu.Unlock()

	c.timer.Arm(c.armDelay, c.onFallbackTimer)

	cancel, err := c.transport.Subscribe(c.subjectID, c.onEvent, c.onState)
	if err != nil {
		// The subscription never opened; the armed timer will promote
		// to polling, which carries the subject until a retry.
		c.logger.Warn("push subscribe failed", "subject", c.subjectID, "error", err)
		c.onState(StateError)
		return nil
	}

	c.mu.Lock()
	if c.closed {
		// Close raced in while the transport was dialing. It could not
		// see this subscription, so release it here.
		c.mu.Unlock()
		cancel()
		return nil
	}
	c.cancelPush = cancel
	c.mu.Unlock()
	return nil
}

// Close tears the channel down: cancels the fallback timer, stops
// polling, and releases the push subscription. Safe to call from any
// state, including before Subscribe and more than once.
func (c *Channel) Close() {
	c.timer.Cancel()

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.state = StateClosed
	cancel := c.cancelPush
	c.cancelPush = nil
	c.mu.Unlock()

	c.stopPolling()
	if cancel != nil {
		cancel()
	}
}

// Status reports the handle's current state.
func (c *Channel) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Status{
		SubjectID:     c.subjectID,
		State:         c.state,
		TimerArmed:    c.timer.Armed(),
		PollingActive: c.pollStop != nil,
	}
}

// Polling reports whether the fallback poller is currently running. The
// UI shows this as the "live vs. polling" indicator.
func (c *Channel) Polling() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pollStop != nil
}

// View returns a copy of the subject's current local view.
func (c *Channel) View() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	view := make([]Event, len(c.view))
	copy(view, c.view)
	return view
}

// onEvent appends a push-delivered event to the local view.
func (c *Channel) onEvent(ev Event) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.view = append(c.view, ev)
	view, notify := c.viewSnapshotLocked()
	c.mu.Unlock()

	if notify != nil {
		notify(view)
	}
}

// onState handles push connection state changes.
func (c *Channel) onState(state ConnState) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	// A transport-reported close is the remote end hanging up, not a
	// local teardown. The subject is still subscribed, so the push path
	// has simply broken.
	if state == StateClosed {
		state = StateError
	}
	c.state = state
	c.mu.Unlock()

	switch state {
	case StateActive:
		// The push channel proved itself: the fallback timer must never
		// fire now, and any polling already running stands down.
		c.timer.Cancel()
		c.stopPolling()
	case StateError, StateTimedOut:
		// Push is broken (possibly after having been active). Polling
		// carries the subject from here; the error is not surfaced to
		// the user beyond the live/polling indicator.
		c.logger.Warn("push channel degraded", "subject", c.subjectID, "state", string(state))
		c.startPolling()
	}
}

// onFallbackTimer runs when the arm delay elapses while the push channel
// has not reached active. The timer token guarantees this never runs
// after a cancel.
func (c *Channel) onFallbackTimer() {
	c.logger.Info("push channel slow to activate, starting fallback polling", "subject", c.subjectID)
	c.startPolling()
}

// startPolling launches the fallback poll loop if it isn't running.
func (c *Channel) startPolling() {
	c.mu.Lock()
	if c.closed || c.pollStop != nil {
		c.mu.Unlock()
		return
	}
	stop := make(chan struct{})
	c.pollStop = stop
	c.mu.Unlock()

	c.pollWG.Add(1)
	go c.pollLoop(stop)
}

// stopPolling halts the poll loop if it is running and waits for it.
func (c *Channel) stopPolling() {
	c.mu.Lock()
	stop := c.pollStop
	c.pollStop = nil
	c.mu.Unlock()

	if stop == nil {
		return
	}
	close(stop)
	c.pollWG.Wait()
}

// pollLoop re-fetches the subject on a fixed interval. Each successful
// fetch replaces the local view wholesale: the poll result is
// authoritative for its tick, never merged incrementally.
func (c *Channel) pollLoop(stop chan struct{}) {
	defer c.pollWG.Done()

	c.pollOnce()

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			c.pollOnce()
		}
	}
}

func (c *Channel) pollOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), c.pollInterval)
	defer cancel()

	events, err := c.fetch(ctx, c.subjectID)
	if err != nil {
		c.logger.Warn("fallback poll failed", "subject", c.subjectID, "error", err)
		return
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.view = events
	view, notify := c.viewSnapshotLocked()
	c.mu.Unlock()

	if notify != nil {
		notify(view)
	}
}

// viewSnapshotLocked copies the view for callback delivery outside the
// lock. Caller must hold c.mu.
func (c *Channel) viewSnapshotLocked() ([]Event, func([]Event)) {
	if c.onUpdate == nil {
		return nil, nil
	}
	view := make([]Event, len(c.view))
	copy(view, c.view)
	return view, c.onUpdate
}
