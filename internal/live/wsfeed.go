package live

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// feed message types, matching the portal's event feed protocol.
const (
	feedTypeSubscribe  = "subscribe"
	feedTypeSubscribed = "subscribed"
	feedTypeInsert     = "insert"
)

type feedMessage struct {
	Type    string          `json:"type"`
	Subject string          `json:"subject,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// WSFeed is the websocket Transport: it dials the portal's event feed and
// relays per-subject insert events.
type WSFeed struct {
	feedURL string
	dialer  *websocket.Dialer
}

// NewWSFeed creates a transport for the given feed URL.
func NewWSFeed(feedURL string) *WSFeed {
	return &WSFeed{
		feedURL: feedURL,
		dialer: &websocket.Dialer{
			HandshakeTimeout: 10 * time.Second,
		},
	}
}

// Subscribe implements Transport. It dials the feed, requests the
// subject's event stream, and pumps events until cancelled or the
// connection breaks. The connection reaching the subscribed
// acknowledgement is what moves the channel to active.
func (f *WSFeed) Subscribe(subjectID string, onEvent func(Event), onState func(ConnState)) (func(), error) {
	if f.feedURL == "" {
		return nil, fmt.Errorf("no feed URL configured")
	}
	u, err := url.Parse(f.feedURL)
	if err != nil {
		return nil, fmt.Errorf("parsing feed URL: %w", err)
	}

	conn, _, err := f.dialer.Dial(u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("dialing feed: %w", err)
	}

	if err := conn.WriteJSON(feedMessage{Type: feedTypeSubscribe, Subject: subjectID}); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("requesting subscription: %w", err)
	}

	var once sync.Once
	cancel := func() {
		once.Do(func() { _ = conn.Close() })
	}

	go f.readLoop(conn, subjectID, onEvent, onState)
	return cancel, nil
}

// readLoop pumps feed messages until the connection closes. State
// callbacks fire on the acknowledgement and on any read failure; the
// channel's fallback machinery decides what to do about them.
func (f *WSFeed) readLoop(conn *websocket.Conn, subjectID string, onEvent func(Event), onState func(ConnState)) {
	defer conn.Close()

	for {
		var msg feedMessage
		if err := conn.ReadJSON(&msg); err != nil {
			var nerr net.Error
			switch {
			case websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway):
				onState(StateClosed)
			case errors.As(err, &nerr) && nerr.Timeout():
				onState(StateTimedOut)
			default:
				onState(StateError)
			}
			return
		}

		switch msg.Type {
		case feedTypeSubscribed:
			onState(StateActive)
		case feedTypeInsert:
			if msg.Subject != subjectID {
				continue
			}
			onEvent(Event{SubjectID: msg.Subject, Payload: msg.Payload})
		}
	}
}
