// Package protocol implements the daemon control wire codec: the
// 24-byte fixed request/response header and the TLV attribute block
// that follows it (spec §6.2, §6.3), matching the LDMSD request
// protocol that original_source/Communicator.py drives through the
// (externally-defined) ldmsd.ldmsd_request module.
package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// HeaderLen is the fixed size of a request/response header in bytes,
// matching Communicator.msg_hdr_len.
const HeaderLen = 24

// Marker is the fixed magic value at the start of every header,
// letting a reader resynchronize on a corrupt stream.
const Marker uint32 = 0xfe0375a1

// Flag bits for Header.Flags: a logical message may span more than
// one record; SOM/EOM mark the first/last record of the message.
const (
	FlagSOM uint32 = 1 << 0
	FlagEOM uint32 = 1 << 1
)

// Header is the fixed 24-byte envelope preceding every request or
// response's attribute block.
type Header struct {
	Marker  uint32 // must equal Marker
	Flags   uint32 // FlagSOM | FlagEOM
	MsgNo   uint32 // caller-assigned message sequence number
	RecLen  uint32 // total record length, header included
	Command uint32 // command id (request) / echoed command id (response)
	ErrCode uint32 // 0 on request; POSIX errno on response
}

var ErrShortBuffer = errors.New("protocol: buffer shorter than header length")
var ErrBadMarker = errors.New("protocol: bad header marker")

// Encode writes h to the first HeaderLen bytes of buf, which must be
// at least that long.
func (h Header) Encode(buf []byte) error {
	if len(buf) < HeaderLen {
		return ErrShortBuffer
	}
	binary.BigEndian.PutUint32(buf[0:4], h.Marker)
	binary.BigEndian.PutUint32(buf[4:8], h.Flags)
	binary.BigEndian.PutUint32(buf[8:12], h.MsgNo)
	binary.BigEndian.PutUint32(buf[12:16], h.RecLen)
	binary.BigEndian.PutUint32(buf[16:20], h.Command)
	binary.BigEndian.PutUint32(buf[20:24], h.ErrCode)
	return nil
}

// DecodeHeader reads a Header from the first HeaderLen bytes of buf.
func DecodeHeader(buf []byte) (Header, error) {
	if len(buf) < HeaderLen {
		return Header{}, ErrShortBuffer
	}
	h := Header{
		Marker:  binary.BigEndian.Uint32(buf[0:4]),
		Flags:   binary.BigEndian.Uint32(buf[4:8]),
		MsgNo:   binary.BigEndian.Uint32(buf[8:12]),
		RecLen:  binary.BigEndian.Uint32(buf[12:16]),
		Command: binary.BigEndian.Uint32(buf[16:20]),
		ErrCode: binary.BigEndian.Uint32(buf[20:24]),
	}
	if h.Marker != Marker {
		return Header{}, fmt.Errorf("%w: got 0x%08x", ErrBadMarker, h.Marker)
	}
	return h, nil
}
