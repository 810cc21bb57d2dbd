// Package daemonctl implements the daemon control client: the
// INIT/CONNECTED/CLOSED session state machine and the operation
// catalog driven by original_source/Communicator.py (producer,
// updater, storage-policy, plugin lifecycle, auth, and introspection
// commands), spec §4.5 and §6.3.
package daemonctl

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/ovis-hpc/ldms-registry/internal/protocol"
)

// State is the session's connection lifecycle state (spec §4.5).
type State int

const (
	StateInit State = iota + 1
	StateConnected
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "INIT"
	case StateConnected:
		return "CONNECTED"
	case StateClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// Transport is the byte-stream abstraction a Session drives; a real
// implementation wraps an LDMS transport connection, a test
// implementation can be an in-memory pipe.
type Transport interface {
	Connect(host, port string) error
	Send(data []byte) error
	// Recv blocks for up to timeout waiting for a complete response
	// and returns it, or an error if the deadline passes or the
	// connection breaks.
	Recv(timeout time.Duration) ([]byte, error)
	Close() error
}

// recvTimeout matches Communicator.py's fixed 5 second response wait.
const recvTimeout = 5 * time.Second

// ErrNotConnected is returned for operations attempted on a session
// that is not in the CONNECTED state.
var ErrNotConnected = errors.New("daemonctl: session is not connected")

// ErrInvalidArgument is returned for operations whose arguments fail
// the protocol's own local validation (spec §4.5 "fail EINVAL locally
// before send"), mirroring Communicator.py's (errno.EINVAL, "EINVAL")
// early returns.
var ErrInvalidArgument = errors.New("daemonctl: invalid argument")

// Session manages one daemon control connection and its request
// sequence numbering.
type Session struct {
	xprt   Transport
	host   string
	port   string
	auth   string
	authOp string

	mu    sync.Mutex
	state State
	msgNo uint32

	log *slog.Logger
}

// New builds a Session in the INIT state; Connect must be called
// before any operation.
func New(xprt Transport, host, port string, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{xprt: xprt, host: host, port: port, state: StateInit, log: logger}
}

// Connect opens the transport and moves the session to CONNECTED.
func (s *Session) Connect() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.xprt.Connect(s.host, s.port); err != nil {
		s.state = StateClosed
		return fmt.Errorf("daemonctl: connect %s:%s: %w", s.host, s.port, err)
	}
	s.state = StateConnected
	return nil
}

// Reconnect closes the current transport, if any, and reconnects.
func (s *Session) Reconnect() error {
	s.mu.Lock()
	_ = s.xprt.Close()
	s.state = StateInit
	s.mu.Unlock()
	return s.Connect()
}

// Close releases the transport and moves the session to CLOSED.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StateClosed
	return s.xprt.Close()
}

// State returns the session's current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) nextMsgNo() uint32 {
	return atomic.AddUint32(&s.msgNo, 1)
}

// doRequest sends one command with its attribute list and waits for
// the response. It returns the response's errno (0 on success) and
// body attributes. On a session that is not CONNECTED it returns
// ENOTCONN without sending anything. A transport error, a response
// timeout, or an undecodable response closes the session and returns
// ENOTCONN, matching Communicator.send_command / receive_response's
// exception handling.
func (s *Session) doRequest(cmd protocol.CommandID, attrs []protocol.Attr) (int, []protocol.Attr, error) {
	s.mu.Lock()
	if s.state != StateConnected {
		s.mu.Unlock()
		return int(syscall.ENOTCONN), nil, ErrNotConnected
	}
	msgNo := s.nextMsgNo()
	s.mu.Unlock()

	body := protocol.EncodeAttrs(attrs)
	hdr := protocol.Header{
		Marker:  protocol.Marker,
		Flags:   protocol.FlagSOM | protocol.FlagEOM,
		MsgNo:   msgNo,
		RecLen:  uint32(protocol.HeaderLen + len(body)),
		Command: uint32(cmd),
	}
	buf := make([]byte, protocol.HeaderLen)
	if err := hdr.Encode(buf); err != nil {
		return int(syscall.EINVAL), nil, err
	}
	buf = append(buf, body...)

	if err := s.xprt.Send(buf); err != nil {
		s.closeOnError()
		return int(syscall.ENOTCONN), nil, fmt.Errorf("daemonctl: send: %w", err)
	}

	resp, err := s.xprt.Recv(recvTimeout)
	if err != nil {
		s.closeOnError()
		return int(syscall.ENOTCONN), nil, fmt.Errorf("daemonctl: recv: %w", err)
	}
	respHdr, err := protocol.DecodeHeader(resp)
	if err != nil {
		s.closeOnError()
		return int(syscall.ENOTCONN), nil, err
	}
	attrsOut, _, err := protocol.DecodeAttrs(resp[protocol.HeaderLen:])
	if err != nil {
		s.closeOnError()
		return int(syscall.ENOTCONN), nil, err
	}
	return int(respHdr.ErrCode), attrsOut, nil
}

func (s *Session) closeOnError() {
	s.mu.Lock()
	s.state = StateClosed
	s.mu.Unlock()
	_ = s.xprt.Close()
	s.log.Warn("daemonctl session closed after transport error", "host", s.host, "port", s.port)
}
