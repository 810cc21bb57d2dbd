package protocol

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHeaderRoundTrip(t *testing.T) {
	h := Header{
		Marker:  Marker,
		Flags:   FlagSOM | FlagEOM,
		MsgNo:   7,
		RecLen:  HeaderLen,
		Command: uint32(CmdPlugnLoad),
		ErrCode: 0,
	}
	buf := make([]byte, HeaderLen)
	require.NoError(t, h.Encode(buf))

	got, err := DecodeHeader(buf)
	require.NoError(t, err)
	require.Equal(t, h, got)
}

func TestDecodeHeaderRejectsBadMarker(t *testing.T) {
	buf := make([]byte, HeaderLen)
	_, err := DecodeHeader(buf)
	require.ErrorIs(t, err, ErrBadMarker)
}

func TestDecodeHeaderRejectsShortBuffer(t *testing.T) {
	_, err := DecodeHeader(make([]byte, 4))
	require.ErrorIs(t, err, ErrShortBuffer)
}

func TestAttrRoundTrip(t *testing.T) {
	attrs := []Attr{
		NewAttr(AttrName, "meminfo"),
		NewAttr(AttrInterval, "1000000"),
	}
	buf := EncodeAttrs(attrs)

	got, n, err := DecodeAttrs(buf)
	require.NoError(t, err)
	require.Equal(t, len(buf), n)
	require.Len(t, got, 2)
	require.Equal(t, "meminfo", got[0].String())

	name, ok := Find(got, AttrName)
	require.True(t, ok)
	require.Equal(t, "meminfo", name.String())

	_, ok = Find(got, AttrPort)
	require.False(t, ok)
}

func TestDecodeAttrsRejectsTruncated(t *testing.T) {
	_, _, err := DecodeAttrs([]byte{0, 0, 0, 1, 0, 1})
	require.ErrorIs(t, err, ErrTruncatedAttr)
}

func TestEncodeAttrsEmptyIsJustTerminator(t *testing.T) {
	buf := EncodeAttrs(nil)
	require.Len(t, buf, attrHdrLen)
	got, n, err := DecodeAttrs(buf)
	require.NoError(t, err)
	require.Empty(t, got)
	require.Equal(t, attrHdrLen, n)
}
