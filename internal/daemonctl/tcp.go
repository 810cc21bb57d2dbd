package daemonctl

import (
	"fmt"
	"io"
	"net"
	"time"

	"github.com/ovis-hpc/ldms-registry/internal/protocol"
)

// TCPTransport is the real Transport implementation, a TCP socket to
// an ldmsd control endpoint, matching Communicator.py's use of a
// plain stream socket for the "sock" transport.
type TCPTransport struct {
	conn net.Conn

	// DialTimeout bounds Connect; zero means no deadline.
	DialTimeout time.Duration
}

var _ Transport = (*TCPTransport)(nil)

// Connect dials host:port over TCP.
func (t *TCPTransport) Connect(host, port string) error {
	d := net.Dialer{Timeout: t.DialTimeout}
	conn, err := d.Dial("tcp", net.JoinHostPort(host, port))
	if err != nil {
		return err
	}
	t.conn = conn
	return nil
}

// Send writes the full request buffer, which already contains the
// fixed header and its trailing attribute block.
func (t *TCPTransport) Send(data []byte) error {
	if t.conn == nil {
		return fmt.Errorf("daemonctl: tcp transport not connected")
	}
	_, err := t.conn.Write(data)
	return err
}

// Recv reads one complete response record: the fixed header, then
// RecLen-HeaderLen further bytes as given by the header itself.
func (t *TCPTransport) Recv(timeout time.Duration) ([]byte, error) {
	if t.conn == nil {
		return nil, fmt.Errorf("daemonctl: tcp transport not connected")
	}
	if err := t.conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return nil, err
	}

	hdrBuf := make([]byte, protocol.HeaderLen)
	if _, err := io.ReadFull(t.conn, hdrBuf); err != nil {
		return nil, err
	}
	hdr, err := protocol.DecodeHeader(hdrBuf)
	if err != nil {
		return nil, err
	}
	if hdr.RecLen < uint32(protocol.HeaderLen) {
		return nil, fmt.Errorf("daemonctl: response record length %d shorter than header", hdr.RecLen)
	}

	body := make([]byte, hdr.RecLen-uint32(protocol.HeaderLen))
	if len(body) > 0 {
		if _, err := io.ReadFull(t.conn, body); err != nil {
			return nil, err
		}
	}
	return append(hdrBuf, body...), nil
}

// Close closes the underlying socket.
func (t *TCPTransport) Close() error {
	if t.conn == nil {
		return nil
	}
	return t.conn.Close()
}
