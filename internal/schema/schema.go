package schema

import (
	"crypto/sha256"
	"encoding/hex"
)

// Schema is a named, ordered collection of metric fields (§3.2). Its
// identity is content-addressed: Digest is a SHA-256 over the field
// list only, and ID prefixes that digest with the schema name (§3.3).
type Schema struct {
	Name   string
	Doc    string
	Fields []Field
}

// Digest computes the schema's canonical SHA-256 digest (§3.3). Each
// field contributes its own header bytes in field order; record
// fields recurse into their nested fields first, then append their
// own header. The digest is content-only: it never includes the
// schema's own name, so two schemas with identical fields but
// different names share a digest and differ only in their ID prefix.
func (s *Schema) Digest() [32]byte {
	h := sha256.New()
	for _, f := range s.Fields {
		f.updateDigest(h)
	}
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// ID returns the registry object id: "<name>-<hex digest>" (§3.3).
func (s *Schema) ID() string {
	d := s.Digest()
	return s.Name + "-" + hex.EncodeToString(d[:])
}

// Compatible reports whether s and other are compatible per §3.5:
// equal field-list length, and each corresponding field pair
// compatible by the rules of its variant (list heap size is ignored).
func (s *Schema) Compatible(other *Schema) bool {
	if other == nil || len(s.Fields) != len(other.Fields) {
		return false
	}
	for i, f := range s.Fields {
		if !f.compatible(other.Fields[i]) {
			return false
		}
	}
	return true
}

// FieldByName looks up a direct (non-nested) field by name, used by
// the codec to resolve RecordArray.RecordTypeName references (§3.4).
func (s *Schema) FieldByName(name string) (Field, bool) {
	for _, f := range s.Fields {
		if f.FieldName() == name {
			return f, true
		}
	}
	return nil, false
}
