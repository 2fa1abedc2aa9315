package live

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// fakeTransport records the callbacks a channel registers so tests can
// drive connection state and push events by hand.
type fakeTransport struct {
	mu           sync.Mutex
	onEvent      func(Event)
	onState      func(ConnState)
	subscribeErr error
	cancels      atomic.Int32
}

func (f *fakeTransport) Subscribe(subjectID string, onEvent func(Event), onState func(ConnState)) (func(), error) {
	if f.subscribeErr != nil {
		return nil, f.subscribeErr
	}
	f.mu.Lock()
	f.onEvent = onEvent
	f.onState = onState
	f.mu.Unlock()
	return func() { f.cancels.Add(1) }, nil
}

func (f *fakeTransport) emitState(s ConnState) {
	f.mu.Lock()
	onState := f.onState
	f.mu.Unlock()
	onState(s)
}

func (f *fakeTransport) emitEvent(ev Event) {
	f.mu.Lock()
	onEvent := f.onEvent
	f.mu.Unlock()
	onEvent(ev)
}

// countingFetcher returns a fixed result and counts invocations.
type countingFetcher struct {
	calls  atomic.Int32
	result []Event
	err    error
}

func (cf *countingFetcher) fetch(ctx context.Context, subjectID string) ([]Event, error) {
	cf.calls.Add(1)
	return cf.result, cf.err
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestFallbackTimerStartsPolling(t *testing.T) {
	transport := &fakeTransport{}
	fetcher := &countingFetcher{}

	// The push channel opens but never reaches active, so the armed
	// timer promotes to polling.
	c := NewChannel("fleet", transport, fetcher.fetch,
		WithTimings(10*time.Millisecond, time.Hour))
	defer c.Close()

	if err := c.Subscribe(); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "fallback polling to start", c.Polling)

	if fetcher.calls.Load() == 0 {
		t.Error("polling started but nothing was fetched")
	}
	if c.Status().TimerArmed {
		t.Error("timer still armed after firing")
	}
}

func TestActiveBeforeTimerSuppressesPolling(t *testing.T) {
	transport := &fakeTransport{}
	fetcher := &countingFetcher{}

	c := NewChannel("fleet", transport, fetcher.fetch,
		WithTimings(50*time.Millisecond, time.Hour))
	defer c.Close()

	if err := c.Subscribe(); err != nil {
		t.Fatal(err)
	}
	transport.emitState(StateActive)

	// Well past the arm delay the timer must still be dead.
	time.Sleep(150 * time.Millisecond)
	if c.Polling() {
		t.Error("polling started even though the channel went active in time")
	}
	if fetcher.calls.Load() != 0 {
		t.Errorf("fetched %d times, want none", fetcher.calls.Load())
	}
	if got := c.Status().State; got != StateActive {
		t.Errorf("state = %s, want active", got)
	}
}

func TestRemoteCloseResumesPolling(t *testing.T) {
	transport := &fakeTransport{}
	fetcher := &countingFetcher{}

	c := NewChannel("fleet", transport, fetcher.fetch,
		WithTimings(time.Hour, time.Hour))
	defer c.Close()

	if err := c.Subscribe(); err != nil {
		t.Fatal(err)
	}
	transport.emitState(StateActive)

	// The remote end hanging up (say, a feed server restart) must not
	// strand the subject: the subscription is still held locally, so
	// polling takes over like any other push failure.
	transport.emitState(StateClosed)
	waitFor(t, "polling after the remote close", c.Polling)

	if fetcher.calls.Load() == 0 {
		t.Error("polling started but nothing was fetched")
	}
	if got := c.Status().State; got != StateError {
		t.Errorf("state = %s, want error while the channel stays subscribed", got)
	}
}

func TestTimedOutStartsPolling(t *testing.T) {
	transport := &fakeTransport{}
	fetcher := &countingFetcher{}

	c := NewChannel("fleet", transport, fetcher.fetch,
		WithTimings(time.Hour, time.Hour))
	defer c.Close()

	if err := c.Subscribe(); err != nil {
		t.Fatal(err)
	}
	transport.emitState(StateTimedOut)
	waitFor(t, "polling after timeout", c.Polling)
}

func TestErrorAfterActiveResumesPolling(t *testing.T) {
	transport := &fakeTransport{}
	fetcher := &countingFetcher{}

	c := NewChannel("fleet", transport, fetcher.fetch,
		WithTimings(time.Hour, time.Hour))
	defer c.Close()

	if err := c.Subscribe(); err != nil {
		t.Fatal(err)
	}
	transport.emitState(StateActive)

	// A mid-session drop brings polling back.
	transport.emitState(StateError)
	waitFor(t, "polling after the drop", c.Polling)

	// And a reconnect stands it down again.
	transport.emitState(StateActive)
	waitFor(t, "polling to stop after reconnect", func() bool { return !c.Polling() })
}

func TestSubscribeFailureFallsBackToPolling(t *testing.T) {
	transport := &fakeTransport{subscribeErr: errors.New("connection refused")}
	fetcher := &countingFetcher{}

	c := NewChannel("fleet", transport, fetcher.fetch,
		WithTimings(time.Hour, time.Hour))
	defer c.Close()

	// A failed subscription is not an error for the caller; the subject
	// is carried by polling instead.
	if err := c.Subscribe(); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "polling after failed subscribe", c.Polling)
	if got := c.Status().State; got != StateError {
		t.Errorf("state = %s, want error", got)
	}
}

func TestPushAppendsPollReplaces(t *testing.T) {
	transport := &fakeTransport{}
	fetcher := &countingFetcher{result: []Event{
		{SubjectID: "fleet", Payload: json.RawMessage(`"a"`)},
		{SubjectID: "fleet", Payload: json.RawMessage(`"b"`)},
	}}

	c := NewChannel("fleet", transport, fetcher.fetch,
		WithTimings(time.Hour, time.Hour))
	defer c.Close()

	if err := c.Subscribe(); err != nil {
		t.Fatal(err)
	}
	transport.emitState(StateActive)

	// Push delivery is incremental: each event appends.
	for i := 0; i < 3; i++ {
		transport.emitEvent(Event{SubjectID: "fleet", Payload: json.RawMessage(`"push"`)})
	}
	if got := len(c.View()); got != 3 {
		t.Fatalf("view has %d events after 3 pushes, want 3", got)
	}

	// A poll result is authoritative: it replaces the view wholesale.
	transport.emitState(StateError)
	waitFor(t, "poll to replace the view", func() bool { return len(c.View()) == 2 })
}

func TestUpdateFuncObservesChanges(t *testing.T) {
	transport := &fakeTransport{}
	fetcher := &countingFetcher{}

	var mu sync.Mutex
	var seen [][]Event
	c := NewChannel("fleet", transport, fetcher.fetch,
		WithTimings(time.Hour, time.Hour),
		WithUpdateFunc(func(view []Event) {
			mu.Lock()
			seen = append(seen, view)
			mu.Unlock()
		}))
	defer c.Close()

	if err := c.Subscribe(); err != nil {
		t.Fatal(err)
	}
	transport.emitState(StateActive)
	transport.emitEvent(Event{SubjectID: "fleet"})
	transport.emitEvent(Event{SubjectID: "fleet"})

	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 2 {
		t.Fatalf("update func called %d times, want 2", len(seen))
	}
	if len(seen[1]) != 2 {
		t.Errorf("last update carried %d events, want 2", len(seen[1]))
	}
}

func TestCloseFromEveryState(t *testing.T) {
	t.Run("never subscribed", func(t *testing.T) {
		c := NewChannel("fleet", &fakeTransport{}, (&countingFetcher{}).fetch)
		c.Close()
		c.Close()
		if got := c.Status().State; got != StateClosed {
			t.Errorf("state = %s, want closed", got)
		}
	})

	t.Run("while connecting", func(t *testing.T) {
		transport := &fakeTransport{}
		c := NewChannel("fleet", transport, (&countingFetcher{}).fetch,
			WithTimings(time.Hour, time.Hour))
		if err := c.Subscribe(); err != nil {
			t.Fatal(err)
		}
		c.Close()
		if transport.cancels.Load() != 1 {
			t.Error("push subscription not released")
		}
		if c.Status().TimerArmed {
			t.Error("fallback timer survived close")
		}
	})

	t.Run("while polling", func(t *testing.T) {
		transport := &fakeTransport{}
		fetcher := &countingFetcher{}
		c := NewChannel("fleet", transport, fetcher.fetch,
			WithTimings(5*time.Millisecond, time.Hour))
		if err := c.Subscribe(); err != nil {
			t.Fatal(err)
		}
		waitFor(t, "polling", c.Polling)
		c.Close()
		if c.Polling() {
			t.Error("poller survived close")
		}
	})
}

// closeDuringSubscribeTransport closes its channel while the dial is in
// flight, before Subscribe returns the cancel func.
type closeDuringSubscribeTransport struct {
	fakeTransport
	ch *Channel
}

func (tr *closeDuringSubscribeTransport) Subscribe(subjectID string, onEvent func(Event), onState func(ConnState)) (func(), error) {
	cancel, err := tr.fakeTransport.Subscribe(subjectID, onEvent, onState)
	tr.ch.Close()
	return cancel, err
}

func TestCloseDuringSubscribeReleasesSubscription(t *testing.T) {
	transport := &closeDuringSubscribeTransport{}
	c := NewChannel("fleet", transport, (&countingFetcher{}).fetch,
		WithTimings(time.Hour, time.Hour))
	transport.ch = c

	if err := c.Subscribe(); err != nil {
		t.Fatal(err)
	}
	// Close could not see the in-flight subscription; Subscribe must
	// release it rather than leak the connection.
	if got := transport.cancels.Load(); got != 1 {
		t.Errorf("subscription cancelled %d times, want 1", got)
	}
	if got := c.Status().State; got != StateClosed {
		t.Errorf("state = %s, want closed", got)
	}
}

func TestSubscribeAfterClose(t *testing.T) {
	c := NewChannel("fleet", &fakeTransport{}, (&countingFetcher{}).fetch)
	c.Close()
	if err := c.Subscribe(); err != ErrChannelClosed {
		t.Errorf("Subscribe after Close = %v, want ErrChannelClosed", err)
	}
}
