// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package control implements the length-prefixed, transaction-
// correlated control session multiplexing request/response property
// traffic against unsolicited inbound events on a single socket.
package control

import (
	"encoding/binary"
	"errors"
	"io"
	"net"
	"sync"
	"time"

	"github.com/relabs-tech/xrone-go/internal/xerr"
)

func protocolErrorf(format string, args ...interface{}) error {
	return xerr.Newf(xerr.KindProtocol, format, args...)
}

const txIDMax = 0x7FFFFFFF

type pendingKey struct {
	txID  uint32
	magic Magic
}

type pendingResult struct {
	payload []byte
	err     error
}

// Session is a bidirectional control channel over one TCP connection:
// one writer serialized by a mutex, one reader goroutine that
// correlates responses against a pending-transaction table and
// publishes everything else as an Event.
type Session struct {
	conn net.Conn

	writeMu sync.Mutex

	txMu     sync.Mutex
	nextTxID uint32

	pendingMu sync.Mutex
	pending   map[pendingKey]chan pendingResult

	events chan Event

	closeOnce sync.Once
	done      chan struct{}

	termMu sync.Mutex
	termErr error
}

// NewSession wraps conn and starts its reader goroutine. The caller
// owns conn and must not use it directly afterwards.
func NewSession(conn net.Conn) *Session {
	s := &Session{
		conn:     conn,
		nextTxID: 1,
		pending:  make(map[pendingKey]chan pendingResult),
		events:   make(chan Event, 256),
		done:     make(chan struct{}),
	}
	go s.readLoop()
	return s
}

// Events returns the channel of unsolicited inbound events (key-state
// changes and unrecognized messages). Sends are non-blocking; events
// are dropped if the channel is full.
func (s *Session) Events() <-chan Event {
	return s.events
}

// Done is closed once the session has terminated, locally or remotely.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Err returns the terminal cause once Done is closed; nil beforehand.
func (s *Session) Err() error {
	return s.terminalError()
}

// Close terminates the session, failing every pending transaction
// with ConnectionClosed. Safe to call more than once.
func (s *Session) Close() error {
	s.terminate(xerr.New(xerr.KindConnectionClosed, "session closed locally"))
	return nil
}

// SendTransaction allocates a transaction id, registers a one-shot
// completion, writes the framed request, and waits for either the
// correlated response, the timeout, or session termination.
func (s *Session) SendTransaction(magic Magic, body []byte, timeout time.Duration) ([]byte, error) {
	if timeout <= 0 {
		return nil, xerr.New(xerr.KindInvalidArgument, "timeout must be positive")
	}
	select {
	case <-s.done:
		return nil, s.terminalError()
	default:
	}

	txID := s.allocateTxID()
	key := pendingKey{txID: txID, magic: magic}
	ch := make(chan pendingResult, 1)

	if err := s.register(key, ch); err != nil {
		return nil, err
	}
	defer s.deregister(key)

	if err := s.writeFrame(magic, txID, body); err != nil {
		return nil, err
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case res := <-ch:
		return res.payload, res.err
	case <-timer.C:
		return nil, xerr.Newf(xerr.KindTimeout, "transaction %s/%d timed out after %s", magic, txID, timeout)
	case <-s.done:
		return nil, s.terminalError()
	}
}

func (s *Session) allocateTxID() uint32 {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	id := s.nextTxID
	s.nextTxID++
	if s.nextTxID > txIDMax {
		s.nextTxID = 1
	}
	return id
}

func (s *Session) register(key pendingKey, ch chan pendingResult) error {
	s.pendingMu.Lock()
	defer s.pendingMu.Unlock()
	if _, exists := s.pending[key]; exists {
		return xerr.Newf(xerr.KindTransactionCollision, "transaction %s/%d already pending", key.magic, key.txID)
	}
	s.pending[key] = ch
	return nil
}

func (s *Session) deregister(key pendingKey) {
	s.pendingMu.Lock()
	defer s.pendingMu.Unlock()
	delete(s.pending, key)
}

func (s *Session) takePending(key pendingKey) (chan pendingResult, bool) {
	s.pendingMu.Lock()
	defer s.pendingMu.Unlock()
	ch, ok := s.pending[key]
	if ok {
		delete(s.pending, key)
	}
	return ch, ok
}

func (s *Session) failAllPending(cause error) {
	s.pendingMu.Lock()
	defer s.pendingMu.Unlock()
	for key, ch := range s.pending {
		ch <- pendingResult{err: cause}
		delete(s.pending, key)
	}
}

// writeFrame builds and writes one outbound message: magic(u16 BE),
// length(u32 BE, counts tx-id + body), wire_tx_id(i32 BE, high bit
// set), body.
func (s *Session) writeFrame(magic Magic, txID uint32, body []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	select {
	case <-s.done:
		return s.terminalError()
	default:
	}

	frame := make([]byte, 6+4+len(body))
	binary.BigEndian.PutUint16(frame[0:2], uint16(magic))
	binary.BigEndian.PutUint32(frame[2:6], uint32(4+len(body)))
	binary.BigEndian.PutUint32(frame[6:10], txID|0x80000000)
	copy(frame[10:], body)

	if _, err := s.conn.Write(frame); err != nil {
		if s.isDone() {
			return xerr.Wrap(xerr.KindConnectionClosed, "write after close", err)
		}
		return xerr.Wrap(xerr.KindIO, "control write failed", err)
	}
	return nil
}

func (s *Session) isDone() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

func (s *Session) terminalError() error {
	s.termMu.Lock()
	defer s.termMu.Unlock()
	return s.termErr
}

func (s *Session) terminate(cause error) {
	s.closeOnce.Do(func() {
		s.termMu.Lock()
		s.termErr = cause
		s.termMu.Unlock()
		_ = s.conn.Close()
		s.failAllPending(cause)
		close(s.done)
	})
}

// readLoop is the single reader task: it owns framing, dispatch to
// pending transactions, and publication of unsolicited events. It
// runs until the connection fails or is closed.
func (s *Session) readLoop() {
	for {
		header, err := readFull(s.conn, 6)
		if err != nil {
			s.terminate(classifyReadErr(err))
			return
		}
		magic := Magic(binary.BigEndian.Uint16(header[0:2]))
		length := binary.BigEndian.Uint32(header[2:6])
		if length > txIDMax {
			s.terminate(protocolErrorf("control message length %d is negative", length))
			return
		}

		body, err := readFull(s.conn, int(length))
		if err != nil {
			s.terminate(classifyReadErr(err))
			return
		}

		if magic == MagicKeyStateChange {
			s.publishKeyState(body)
			continue
		}
		if len(body) < 4 {
			s.publishUnknown(magic, body)
			continue
		}

		wireTxID := binary.BigEndian.Uint32(body[0:4])
		txID := wireTxID & txIDMax
		key := pendingKey{txID: txID, magic: magic}
		payload := body[4:]

		if ch, ok := s.takePending(key); ok {
			ch <- pendingResult{payload: payload}
		} else {
			s.publishUnknown(magic, body)
		}
	}
}

func (s *Session) publishKeyState(body []byte) {
	evt, err := decodeKeyState(body)
	s.emit(Event{Kind: EventKeyState, Magic: MagicKeyStateChange, KeyState: evt, Raw: body, Err: err})
}

func (s *Session) publishUnknown(magic Magic, body []byte) {
	s.emit(Event{Kind: EventUnknownInbound, Magic: magic, Raw: body})
}

func (s *Session) emit(e Event) {
	select {
	case s.events <- e:
	default:
	}
}

func classifyReadErr(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return xerr.Wrap(xerr.KindConnectionClosed, "remote closed the control connection", err)
	}
	if errors.Is(err, net.ErrClosed) {
		return xerr.Wrap(xerr.KindConnectionClosed, "control connection closed locally", err)
	}
	return xerr.Wrap(xerr.KindIO, "control read failed", err)
}

func readFull(r io.Reader, n int) ([]byte, error) {
	if n == 0 {
		return nil, nil
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}
