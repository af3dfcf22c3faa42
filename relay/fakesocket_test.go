// Copyright 2026 The Termbridge Authors
// SPDX-License-Identifier: Apache-2.0

package relay

import (
	"errors"
	"net"
	"sync"
	"sync/atomic"
)

// fakeSocket is an in-memory Socket. The test plays the peer:
// deliver queues inbound messages, fail ends Receive with an error,
// and sent carries every outbound text message.
type fakeSocket struct {
	inbound chan []byte
	failure chan error
	sent    chan []byte
	pings   chan struct{}

	// answerPings makes Ping call the pong handler, as a live peer does.
	answerPings bool

	mu     sync.Mutex
	onPong func()

	open       atomic.Bool
	closeCalls atomic.Int32
	terminated atomic.Bool

	closeOnce   sync.Once
	closeCode   int
	closeReason string

	goneOnce sync.Once
	gone     chan struct{}

	// receiveEnded, when set, is closed once Receive observes the
	// socket going away, and Terminate blocks until then. That orders
	// the reader's wakeup ahead of whatever follows Terminate.
	receiveEnded     chan struct{}
	receiveEndedOnce sync.Once
}

func newFakeSocket() *fakeSocket {
	socket := &fakeSocket{
		inbound:     make(chan []byte, 16),
		failure:     make(chan error, 1),
		sent:        make(chan []byte, 64),
		pings:       make(chan struct{}, 16),
		answerPings: true,
		gone:        make(chan struct{}),
	}
	socket.open.Store(true)
	return socket
}

func (s *fakeSocket) deliver(message string) { s.inbound <- []byte(message) }

func (s *fakeSocket) fail(err error) { s.failure <- err }

func (s *fakeSocket) Receive() ([]byte, error) {
	select {
	case data := <-s.inbound:
		return data, nil
	case err := <-s.failure:
		s.open.Store(false)
		return nil, err
	case <-s.gone:
		if s.receiveEnded != nil {
			s.receiveEndedOnce.Do(func() { close(s.receiveEnded) })
		}
		return nil, net.ErrClosed
	}
}

func (s *fakeSocket) Send(data []byte) error {
	if !s.open.Load() {
		return errors.New("send on closed socket")
	}
	s.sent <- append([]byte(nil), data...)
	return nil
}

func (s *fakeSocket) Ping() error {
	s.pings <- struct{}{}
	if s.answerPings {
		s.mu.Lock()
		pong := s.onPong
		s.mu.Unlock()
		if pong != nil {
			pong()
		}
	}
	return nil
}

func (s *fakeSocket) OnPong(f func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onPong = f
}

func (s *fakeSocket) Open() bool { return s.open.Load() }

func (s *fakeSocket) Close(code int, reason string) error {
	s.closeCalls.Add(1)
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closeCode, s.closeReason = code, reason
		s.mu.Unlock()
		s.open.Store(false)
	})
	s.goneOnce.Do(func() { close(s.gone) })
	return nil
}

func (s *fakeSocket) Terminate() error {
	s.terminated.Store(true)
	s.open.Store(false)
	s.goneOnce.Do(func() { close(s.gone) })
	if s.receiveEnded != nil {
		<-s.receiveEnded
	}
	return nil
}

func (s *fakeSocket) RemoteAddr() string { return "192.0.2.10:51234" }

func (s *fakeSocket) closed() (int, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closeCode, s.closeReason
}
