package cdp

import (
	"sync"

	"github.com/chromedp/cdproto"

	"github.com/revature/scopecheck/log"
)

const eventBufferSize = 32

// Event is a CDP event received from the browser.
type Event struct {
	Name      cdproto.MethodType
	Data      any
	SessionID string
}

type subscription struct {
	sessionID string
	events    map[cdproto.MethodType]struct{}
	ch        chan *Event
}

type eventWatcher struct {
	logger *log.Logger

	subsMu sync.RWMutex
	subs   map[*subscription]struct{}
}

func newEventWatcher(logger *log.Logger) *eventWatcher {
	return &eventWatcher{
		logger: logger,
		subs:   make(map[*subscription]struct{}),
	}
}

// subscribe returns a channel receiving the given events of sessionID and a
// function that unsubscribes and closes the channel.
func (w *eventWatcher) subscribe(sessionID string, events ...cdproto.MethodType) (<-chan *Event, func()) {
	s := &subscription{
		sessionID: sessionID,
		events:    make(map[cdproto.MethodType]struct{}, len(events)),
		ch:        make(chan *Event, eventBufferSize),
	}
	for _, evt := range events {
		s.events[evt] = struct{}{}
	}

	w.subsMu.Lock()
	w.subs[s] = struct{}{}
	w.subsMu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			w.subsMu.Lock()
			defer w.subsMu.Unlock()
			delete(w.subs, s)
			close(s.ch)
		})
	}

	return s.ch, cancel
}

func (w *eventWatcher) notify(evt *Event) {
	w.subsMu.RLock()
	defer w.subsMu.RUnlock()

	for s := range w.subs {
		if s.sessionID != evt.SessionID {
			continue
		}
		if _, ok := s.events[evt.Name]; !ok {
			continue
		}
		select {
		case s.ch <- evt:
		default:
			w.logger.Warnf("cdp:eventWatcher", "dropped event %s of session %q", evt.Name, evt.SessionID)
		}
	}
}
