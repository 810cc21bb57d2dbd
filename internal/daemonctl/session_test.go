package daemonctl

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ovis-hpc/ldms-registry/internal/protocol"
)

// pipeTransport is an in-memory Transport stub that echoes a
// preprogrammed response for every Send.
type pipeTransport struct {
	connectErr error
	sendErr    error
	recvErr    error
	response   []byte
	closed     bool
	sent       [][]byte
}

func (p *pipeTransport) Connect(host, port string) error { return p.connectErr }

func (p *pipeTransport) Send(data []byte) error {
	p.sent = append(p.sent, data)
	return p.sendErr
}

func (p *pipeTransport) Recv(timeout time.Duration) ([]byte, error) {
	if p.recvErr != nil {
		return nil, p.recvErr
	}
	return p.response, nil
}

func (p *pipeTransport) Close() error {
	p.closed = true
	return nil
}

func successResponse(cmd protocol.CommandID) []byte {
	hdr := protocol.Header{
		Marker:  protocol.Marker,
		Flags:   protocol.FlagSOM | protocol.FlagEOM,
		MsgNo:   1,
		Command: uint32(cmd),
		ErrCode: 0,
	}
	buf := make([]byte, protocol.HeaderLen)
	_ = hdr.Encode(buf)
	return append(buf, protocol.EncodeAttrs(nil)...)
}

func TestSessionStartsInInit(t *testing.T) {
	s := New(&pipeTransport{}, "localhost", "411", nil)
	require.Equal(t, StateInit, s.State())
}

func TestConnectMovesToConnected(t *testing.T) {
	s := New(&pipeTransport{}, "localhost", "411", nil)
	require.NoError(t, s.Connect())
	require.Equal(t, StateConnected, s.State())
}

func TestOperationBeforeConnectReturnsNotConnected(t *testing.T) {
	s := New(&pipeTransport{}, "localhost", "411", nil)
	res, err := s.DaemonStatus()
	require.ErrorIs(t, err, ErrNotConnected)
	require.NotEqual(t, 0, res.Errno)
}

func TestPlugnLoadSendsExpectedAttr(t *testing.T) {
	tr := &pipeTransport{response: successResponse(protocol.CmdPlugnLoad)}
	s := New(tr, "localhost", "411", nil)
	require.NoError(t, s.Connect())

	res, err := s.PlugnLoad("meminfo")
	require.NoError(t, err)
	require.True(t, res.OK())
	require.Len(t, tr.sent, 1)

	attrs, _, err := protocol.DecodeAttrs(tr.sent[0][protocol.HeaderLen:])
	require.NoError(t, err)
	name, ok := protocol.Find(attrs, protocol.AttrName)
	require.True(t, ok)
	require.Equal(t, "meminfo", name.String())
}

func TestTransportErrorClosesSession(t *testing.T) {
	tr := &pipeTransport{sendErr: errors.New("broken pipe")}
	s := New(tr, "localhost", "411", nil)
	require.NoError(t, s.Connect())

	_, err := s.DaemonStatus()
	require.Error(t, err)
	require.Equal(t, StateClosed, s.State())
	require.True(t, tr.closed)
}

func TestPlugnStartNormalizesOffset(t *testing.T) {
	tr := &pipeTransport{response: successResponse(protocol.CmdPlugnStart)}
	s := New(tr, "localhost", "411", nil)
	require.NoError(t, s.Connect())

	_, err := s.PlugnStart("meminfo", "1s", "900000us")
	require.NoError(t, err)

	attrs, _, err := protocol.DecodeAttrs(tr.sent[0][protocol.HeaderLen:])
	require.NoError(t, err)
	off, ok := protocol.Find(attrs, protocol.AttrOffset)
	require.True(t, ok)
	require.Equal(t, "500000", off.String())
}

func TestPlugnStartRejectsBadInterval(t *testing.T) {
	s := New(&pipeTransport{}, "localhost", "411", nil)
	require.NoError(t, s.Connect())
	_, err := s.PlugnStart("meminfo", "bogus", "")
	require.Error(t, err)
}
