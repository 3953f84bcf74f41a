package twistmux

import (
	"sync"
)

// NewCallbackSink adapts a function into a DiagnosticsSink so callers can
// consume snapshots without defining structs.
func NewCallbackSink(fn func(Status)) DiagnosticsSink {
	return &callbackSink{fn: fn}
}

// NewChannelSink exposes snapshots via a channel; it returns the sink, the
// read-only channel, and a close function for shutdown. A full channel drops
// the snapshot rather than stalling the reporter; the next tick supersedes it
// anyway.
func NewChannelSink(buffer int) (DiagnosticsSink, <-chan Status, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan Status, buffer)
	s := &channelSink{ch: ch, closed: make(chan struct{})}
	return s, ch, func() { s.close() }
}

// MultiSink fans a snapshot out to several sinks in order.
func MultiSink(sinks ...DiagnosticsSink) DiagnosticsSink {
	return multiSink(sinks)
}

type callbackSink struct {
	fn func(Status)
}

func (s *callbackSink) Report(st Status) {
	if s.fn != nil {
		s.fn(st)
	}
}

type channelSink struct {
	ch     chan Status
	closed chan struct{}
	once   sync.Once
}

func (s *channelSink) Report(st Status) {
	select {
	case <-s.closed:
		return
	default:
	}
	select {
	case s.ch <- st:
	default:
	}
}

func (s *channelSink) close() {
	s.once.Do(func() {
		close(s.closed)
		close(s.ch)
	})
}

type multiSink []DiagnosticsSink

func (m multiSink) Report(st Status) {
	for _, s := range m {
		if s != nil {
			s.Report(st)
		}
	}
}
