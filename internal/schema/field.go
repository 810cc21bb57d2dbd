// Package schema models LDMS metric-set schemas: the Avro-inspired JSON
// document format, the canonical SHA-256 digest, and the compatibility
// predicate (spec §3, §4.1).
package schema

import (
	"encoding/binary"
	"hash"

	"github.com/ovis-hpc/ldms-registry/internal/valuetype"
)

// Field is the sum type for a metric field definition (§3.2). The
// concrete variants are Primitive, Array, List, Record and
// RecordArray.
type Field interface {
	// FieldName returns the field's name.
	FieldName() string
	// Kind returns the LDMS value kind of the field.
	Kind() valuetype.Kind
	// Meta reports whether the field is configuration-time metadata.
	Meta() bool
	// FieldUnits returns the optional units string, or "".
	FieldUnits() string
	// FieldDoc returns the optional documentation string, or "".
	FieldDoc() string

	// updateDigest appends this field's contribution to the running
	// schema digest (§3.3).
	updateDigest(h hash.Hash)
	// compatible reports field-level compatibility with other (§3.5).
	compatible(other Field) bool
	// asDict renders the field to its canonical JSON map form (§4.1).
	asDict() map[string]interface{}
}

// common holds the attributes shared by every field variant.
type common struct {
	Name  string
	Doc   string
	Units string
	Meta_ bool
}

func (c common) FieldName() string  { return c.Name }
func (c common) Meta() bool         { return c.Meta_ }
func (c common) FieldUnits() string { return c.Units }
func (c common) FieldDoc() string   { return c.Doc }

func digestHeader(h hash.Hash, name string, kind valuetype.Kind) {
	h.Write([]byte(name))
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], uint32(kind))
	h.Write(b[:])
}

// Primitive is a scalar metric field (§3.2).
type Primitive struct {
	common
	ValueKind valuetype.Kind
}

func (p *Primitive) Kind() valuetype.Kind { return p.ValueKind }

func (p *Primitive) updateDigest(h hash.Hash) {
	digestHeader(h, p.Name, p.ValueKind)
}

func (p *Primitive) compatible(other Field) bool {
	o, ok := other.(*Primitive)
	if !ok {
		return false
	}
	return p.Name == o.Name && p.ValueKind == o.ValueKind &&
		p.Units == o.Units && p.Meta_ == o.Meta_
}

func (p *Primitive) asDict() map[string]interface{} {
	return map[string]interface{}{
		"name":    p.Name,
		"type":    p.ValueKind.String(),
		"is_meta": p.Meta_,
		"units":   nullableString(p.Units),
		"doc":     nullableString(p.Doc),
	}
}

// Array is a fixed-length array metric field of a scalar item kind
// (§3.2).
type Array struct {
	common
	ArrayKind valuetype.Kind
	ItemKind  valuetype.Kind
	Length    int
}

func (a *Array) Kind() valuetype.Kind { return a.ArrayKind }

func (a *Array) updateDigest(h hash.Hash) {
	digestHeader(h, a.Name, a.ArrayKind)
}

func (a *Array) compatible(other Field) bool {
	o, ok := other.(*Array)
	if !ok {
		return false
	}
	return a.Name == o.Name && a.ArrayKind == o.ArrayKind &&
		a.ItemKind == o.ItemKind && a.Length == o.Length &&
		a.Units == o.Units && a.Meta_ == o.Meta_
}

func (a *Array) asDict() map[string]interface{} {
	return map[string]interface{}{
		"name":    a.Name,
		"type":    "array",
		"is_meta": a.Meta_,
		"units":   nullableString(a.Units),
		"doc":     nullableString(a.Doc),
		"items":   a.ItemKind.String(),
		"len":     a.Length,
	}
}

// List is a dynamically-sized heap-region metric field (§3.2).
type List struct {
	common
	HeapSize int
}

func (l *List) Kind() valuetype.Kind { return valuetype.List }

func (l *List) updateDigest(h hash.Hash) {
	digestHeader(h, l.Name, valuetype.List)
}

func (l *List) compatible(other Field) bool {
	o, ok := other.(*List)
	if !ok {
		return false
	}
	// Heap size is explicitly ignored for compatibility (§3.5).
	return l.Name == o.Name && l.Units == o.Units && l.Meta_ == o.Meta_
}

func (l *List) asDict() map[string]interface{} {
	return map[string]interface{}{
		"name":    l.Name,
		"type":    "list",
		"is_meta": l.Meta_,
		"units":   nullableString(l.Units),
		"doc":     nullableString(l.Doc),
		"heap_sz": l.HeapSize,
	}
}

// Record is a named composite descriptor field (§3.2).
type Record struct {
	common
	Fields []Field
}

func (r *Record) Kind() valuetype.Kind { return valuetype.RecordType }

// updateDigest recurses into the nested fields first, then appends the
// record's own header (§3.3 rule 2).
func (r *Record) updateDigest(h hash.Hash) {
	for _, f := range r.Fields {
		f.updateDigest(h)
	}
	digestHeader(h, r.Name, valuetype.RecordType)
}

func (r *Record) compatible(other Field) bool {
	o, ok := other.(*Record)
	if !ok {
		return false
	}
	if len(r.Fields) != len(o.Fields) {
		return false
	}
	for i, f := range r.Fields {
		if !f.compatible(o.Fields[i]) {
			return false
		}
	}
	return r.Name == o.Name && r.Units == o.Units && r.Meta_ == o.Meta_
}

func (r *Record) asDict() map[string]interface{} {
	fields := make([]map[string]interface{}, len(r.Fields))
	for i, f := range r.Fields {
		fields[i] = f.asDict()
	}
	return map[string]interface{}{
		"name":    r.Name,
		"type":    "record",
		"is_meta": r.Meta_,
		"units":   nullableString(r.Units),
		"doc":     nullableString(r.Doc),
		"fields":  fields,
	}
}

// RecordArray is an array of record instances referencing a Record
// field appearing earlier in the same schema (§3.2, §3.4).
type RecordArray struct {
	common
	RecordTypeName string
	Length         int
}

func (ra *RecordArray) Kind() valuetype.Kind { return valuetype.RecordArray }

func (ra *RecordArray) updateDigest(h hash.Hash) {
	digestHeader(h, ra.Name, valuetype.RecordArray)
}

func (ra *RecordArray) compatible(other Field) bool {
	o, ok := other.(*RecordArray)
	if !ok {
		return false
	}
	return ra.Name == o.Name && ra.RecordTypeName == o.RecordTypeName &&
		ra.Length == o.Length && ra.Units == o.Units && ra.Meta_ == o.Meta_
}

func (ra *RecordArray) asDict() map[string]interface{} {
	return map[string]interface{}{
		"name":        ra.Name,
		"type":        "array",
		"is_meta":     ra.Meta_,
		"units":       nullableString(ra.Units),
		"doc":         nullableString(ra.Doc),
		"items":       "record",
		"record_type": ra.RecordTypeName,
		"len":         ra.Length,
	}
}

func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
