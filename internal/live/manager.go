package live

import (
	"errors"
	"sync"
)

// Lifecycle errors.
var (
	ErrChannelClosed     = errors.New("channel closed")
	ErrAlreadySubscribed = errors.New("subject already subscribed")
)

// Manager tracks one channel per subscribed subject.
type Manager struct {
	transport Transport
	fetch     Fetcher
	opts      []ChannelOption

	mu       sync.Mutex
	channels map[string]*Channel
}

// NewManager creates a channel manager. opts apply to every channel it
// opens.
func NewManager(transport Transport, fetch Fetcher, opts ...ChannelOption) *Manager {
	return &Manager{
		transport: transport,
		fetch:     fetch,
		opts:      opts,
		channels:  make(map[string]*Channel),
	}
}

// Subscribe opens a channel for a subject. Each subject has at most one
// channel at a time.
func (m *Manager) Subscribe(subjectID string, opts ...ChannelOption) (*Channel, error) {
	m.mu.Lock()
	if _, ok := m.channels[subjectID]; ok {
		m.mu.Unlock()
		return nil, ErrAlreadySubscribed
	}
	ch := NewChannel(subjectID, m.transport, m.fetch, append(m.opts, opts...)...)
	m.channels[subjectID] = ch
	m.mu.Unlock()

	if err := ch.Subscribe(); err != nil {
		m.mu.Lock()
		delete(m.channels, subjectID)
		m.mu.Unlock()
		return nil, err
	}
	return ch, nil
}

// Unsubscribe tears down the subject's channel if one exists.
func (m *Manager) Unsubscribe(subjectID string) {
	m.mu.Lock()
	ch := m.channels[subjectID]
	delete(m.channels, subjectID)
	m.mu.Unlock()

	if ch != nil {
		ch.Close()
	}
}

// Channel returns the subject's channel, or nil if not subscribed.
func (m *Manager) Channel(subjectID string) *Channel {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.channels[subjectID]
}

// Close tears down every channel.
func (m *Manager) Close() {
	m.mu.Lock()
	channels := m.channels
	m.channels = make(map[string]*Channel)
	m.mu.Unlock()

	for _, ch := range channels {
		ch.Close()
	}
}
