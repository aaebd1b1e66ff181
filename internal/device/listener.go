package device

import (
	"sync"

	"g6ctl/internal/arbiter"
	"g6ctl/internal/protocol"
	"g6ctl/internal/state"
)

// Listener is the long-running background task described in spec.md
// §4.7: it drives the arbiter's idle read schedule, hands any parsed
// events to the state mirror, and fans them out to subscribers.
// Exactly one Listener runs per Controller, for process lifetime.
type Listener struct {
	arb    *arbiter.Arbiter
	mirror *state.Mirror

	startOnce sync.Once

	subMu sync.Mutex
	subs  []chan struct{}
}

func newListener(arb *arbiter.Arbiter, mirror *state.Mirror) *Listener {
	return &Listener{arb: arb, mirror: mirror}
}

// Start spawns the listener goroutine at most once; later calls are
// no-ops, so Controller can call it unconditionally on every connect.
func (l *Listener) Start() {
	l.startOnce.Do(func() {
		go l.run()
	})
}

func (l *Listener) run() {
	for {
		l.arb.ListenerStep(l.handleFrame)
	}
}

// handleFrame parses one idle-read frame and, if it produced any
// events, applies them to the mirror (device-wins) and notifies every
// subscriber in arrival order.
func (l *Listener) handleFrame(f protocol.Frame) {
	events := protocol.ParseEvents(f)
	if len(events) == 0 {
		return
	}
	for _, ev := range events {
		l.mirror.ApplyEvent(ev)
	}
	l.notify()
}

// Subscribe registers a non-blocking notification channel: a send
// after any non-empty event batch. The channel is buffered to size 1
// so a slow subscriber sees at least one pending notification rather
// than blocking the listener.
func (l *Listener) Subscribe() <-chan struct{} {
	ch := make(chan struct{}, 1)
	l.subMu.Lock()
	l.subs = append(l.subs, ch)
	l.subMu.Unlock()
	return ch
}

func (l *Listener) notify() {
	l.subMu.Lock()
	defer l.subMu.Unlock()
	for _, ch := range l.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
