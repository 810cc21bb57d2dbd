package schema

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const simpleDoc = `{
	"name": "meminfo",
	"doc": "memory usage sample",
	"fields": [
		{"name": "component_id", "type": "u64", "is_meta": true},
		{"name": "MemFree", "type": "u64", "units": "kB"},
		{"name": "samples", "type": "array", "items": "int", "len": 4}
	]
}`

func TestParseSimpleSchema(t *testing.T) {
	s, err := Parse([]byte(simpleDoc))
	require.NoError(t, err)
	require.Equal(t, "meminfo", s.Name)
	require.Len(t, s.Fields, 3)

	prim, ok := s.Fields[0].(*Primitive)
	require.True(t, ok)
	require.True(t, prim.Meta())

	arr, ok := s.Fields[2].(*Array)
	require.True(t, ok)
	require.Equal(t, 4, arr.Length)
}

func TestParseMissingName(t *testing.T) {
	_, err := Parse([]byte(`{"fields": []}`))
	require.ErrorIs(t, err, ErrMissingField)
}

func TestParseUnsupportedTopLevel(t *testing.T) {
	_, err := Parse([]byte(`{"name": "x", "type": "array", "fields": []}`))
	require.ErrorIs(t, err, ErrUnsupportedTopLevel)
}

func TestParseDuplicateFieldName(t *testing.T) {
	_, err := Parse([]byte(`{
		"name": "x",
		"fields": [
			{"name": "a", "type": "int"},
			{"name": "a", "type": "long"}
		]
	}`))
	require.ErrorIs(t, err, ErrDuplicateFieldName)
}

func TestParseRecordArrayResolvesAgainstSibling(t *testing.T) {
	doc := `{
		"name": "netdev",
		"fields": [
			{"name": "iface", "type": "record", "fields": [
				{"name": "name", "type": "char[]"},
				{"name": "rx_bytes", "type": "u64"}
			]},
			{"name": "ifaces", "type": "array", "items": "record", "record_type": "iface", "len": 8}
		]
	}`
	s, err := Parse([]byte(doc))
	require.NoError(t, err)
	ra, ok := s.Fields[1].(*RecordArray)
	require.True(t, ok)
	require.Equal(t, "iface", ra.RecordTypeName)
}

func TestParseDanglingRecordRef(t *testing.T) {
	doc := `{
		"name": "netdev",
		"fields": [
			{"name": "ifaces", "type": "array", "items": "record", "record_type": "missing", "len": 8}
		]
	}`
	_, err := Parse([]byte(doc))
	require.ErrorIs(t, err, ErrDanglingRecordRef)
}

func TestParseRecordArrayBeforeRecordFails(t *testing.T) {
	doc := `{
		"name": "netdev",
		"fields": [
			{"name": "ifaces", "type": "array", "items": "record", "record_type": "iface", "len": 8},
			{"name": "iface", "type": "record", "fields": [
				{"name": "name", "type": "char[]"}
			]}
		]
	}`
	_, err := Parse([]byte(doc))
	require.ErrorIs(t, err, ErrDanglingRecordRef)
}

func TestDigestStableAndNameIndependent(t *testing.T) {
	a, err := Parse([]byte(simpleDoc))
	require.NoError(t, err)
	b, err := Parse([]byte(simpleDoc))
	require.NoError(t, err)
	require.Equal(t, a.Digest(), b.Digest())
	require.Equal(t, a.ID(), b.ID())

	renamed := *a
	renamed.Name = "meminfo2"
	require.Equal(t, a.Digest(), renamed.Digest(), "digest is content-only and must not depend on the schema name")
	require.NotEqual(t, a.ID(), renamed.ID(), "id still differs because it prefixes the shared digest with the name")
}

func TestDigestDependsOnFieldOrder(t *testing.T) {
	a, err := Parse([]byte(simpleDoc))
	require.NoError(t, err)
	reordered := *a
	reordered.Fields = []Field{a.Fields[1], a.Fields[0], a.Fields[2]}
	require.NotEqual(t, a.Digest(), reordered.Digest())
}

func TestCompatibleIgnoresListHeapSize(t *testing.T) {
	a := &Schema{Name: "s", Fields: []Field{&List{common: common{Name: "l"}, HeapSize: 256}}}
	b := &Schema{Name: "s", Fields: []Field{&List{common: common{Name: "l"}, HeapSize: 1024}}}
	require.True(t, a.Compatible(b))
}

func TestCompatibleRejectsFieldCountMismatch(t *testing.T) {
	a := &Schema{Name: "s", Fields: []Field{&Primitive{common: common{Name: "a"}}}}
	b := &Schema{Name: "s"}
	require.False(t, a.Compatible(b))
}

func TestAsJSONRoundTrip(t *testing.T) {
	s, err := Parse([]byte(simpleDoc))
	require.NoError(t, err)
	out, err := s.AsJSON()
	require.NoError(t, err)
	s2, err := Parse(out)
	require.NoError(t, err)
	require.Equal(t, s.ID(), s2.ID())
}
