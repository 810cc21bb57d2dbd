package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// attrHdrLen is the fixed size of one TLV attribute's header:
// discriminator (4) + attribute id (2) + value length (2).
const attrHdrLen = 8

// TermAttrID is the reserved attribute id that terminates an
// attribute list; it carries no value.
const TermAttrID uint16 = 0

// AttrID enumerates the request/response attribute ids driven through
// Communicator's operations (spec §6.3).
type AttrID uint16

const (
	AttrName AttrID = iota + 1
	AttrPlugin
	AttrString
	AttrXprt
	AttrPort
	AttrHost
	AttrAuth
	AttrInterval
	AttrOffset
	AttrType
	AttrPerm
	AttrRegex
	AttrStream
	AttrInstance
	AttrContainer
	AttrSchema
	AttrMetric
	AttrMatch
	AttrPush
	AttrAutoInterval
	AttrReset
)

// Attr is one decoded TLV attribute.
type Attr struct {
	ID    AttrID
	Value []byte
}

// NewAttr builds a string-valued attribute, the common case for every
// operation in Communicator.py.
func NewAttr(id AttrID, value string) Attr {
	return Attr{ID: id, Value: []byte(value)}
}

// EncodedLen returns the number of bytes a.Encode will write.
func (a Attr) EncodedLen() int {
	return attrHdrLen + len(a.Value)
}

// Encode appends a's TLV encoding to buf and returns the result.
func (a Attr) Encode(buf []byte) []byte {
	var hdr [attrHdrLen]byte
	binary.BigEndian.PutUint32(hdr[0:4], 1) // discrim: present
	binary.BigEndian.PutUint16(hdr[4:6], uint16(a.ID))
	binary.BigEndian.PutUint16(hdr[6:8], uint16(len(a.Value)))
	buf = append(buf, hdr[:]...)
	return append(buf, a.Value...)
}

// EncodeAttrs serializes attrs followed by the terminating attribute,
// returning the full attribute block.
func EncodeAttrs(attrs []Attr) []byte {
	var buf []byte
	for _, a := range attrs {
		buf = a.Encode(buf)
	}
	var term [attrHdrLen]byte // discrim=0 marks the terminator
	return append(buf, term[:]...)
}

var ErrTruncatedAttr = errors.New("protocol: truncated attribute")

// DecodeAttrs parses a TLV attribute block until it reads a
// terminating attribute (discrim 0), returning the decoded attributes
// and the number of bytes consumed.
func DecodeAttrs(buf []byte) ([]Attr, int, error) {
	var attrs []Attr
	off := 0
	for {
		if off+attrHdrLen > len(buf) {
			return nil, 0, fmt.Errorf("%w: attribute header", ErrTruncatedAttr)
		}
		discrim := binary.BigEndian.Uint32(buf[off : off+4])
		id := binary.BigEndian.Uint16(buf[off+4 : off+6])
		length := int(binary.BigEndian.Uint16(buf[off+6 : off+8]))
		off += attrHdrLen
		if discrim == 0 {
			return attrs, off, nil
		}
		if off+length > len(buf) {
			return nil, 0, fmt.Errorf("%w: attribute value", ErrTruncatedAttr)
		}
		value := make([]byte, length)
		copy(value, buf[off:off+length])
		off += length
		attrs = append(attrs, Attr{ID: AttrID(id), Value: value})
	}
}

// Find returns the first attribute with the given id.
func Find(attrs []Attr, id AttrID) (Attr, bool) {
	for _, a := range attrs {
		if a.ID == id {
			return a, true
		}
	}
	return Attr{}, false
}

// String returns the attribute value as a string.
func (a Attr) String() string {
	return string(a.Value)
}
