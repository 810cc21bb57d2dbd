// Package valuetype enumerates the LDMS metric value kinds and the
// translation tables between their wire string forms and the native
// collector type codes.
package valuetype

import "fmt"

// Kind is the closed set of LDMS metric value kinds.
type Kind int

const (
	Char Kind = iota + 1
	U8
	S8
	U16
	S16
	U32
	S32
	U64
	S64
	F32
	D64
	Timestamp

	CharArray
	U8Array
	S8Array
	U16Array
	S16Array
	U32Array
	S32Array
	U64Array
	S64Array
	F32Array
	D64Array

	List
	ListEntry
	RecordType
	RecordInst
	RecordArray
)

// canonicalStr gives the wire string for each kind, used on output.
// Most entries are the compact form; S32 is emitted as the alias "int"
// and the S32/S64/F32/D64 array kinds as "int[]", "long[]", "float[]"
// and "double[]". parseTbl accepts these and the other spellings.
var canonicalStr = map[Kind]string{
	Char: "char",
	U8:   "u8",
	S8:   "s8",
	U16:  "u16",
	S16:  "s16",
	U32:  "u32",
	S32:  "int",
	U64:  "u64",
	S64:  "s64",
	F32:  "f32",
	D64:  "d64",

	CharArray: "char[]",
	U8Array:   "u8[]",
	S8Array:   "s8[]",
	U16Array:  "u16[]",
	S16Array:  "s16[]",
	U32Array:  "u32[]",
	S32Array:  "int[]",
	U64Array:  "u64[]",
	S64Array:  "long[]",
	F32Array:  "float[]",
	D64Array:  "double[]",

	List:        "list",
	RecordType:  "record",
	RecordArray: "record[]",
}

// parseTbl is the forward string -> kind map. It accepts both the
// canonical compact forms and the Avro-style aliases ("int", "long",
// "float", "double"); the inverse (canonicalStr) emits exactly one
// string per kind, as listed there.
var parseTbl = map[string]Kind{
	// Avro-style aliases, scalars
	"int":    S32,
	"long":   S64,
	"float":  F32,
	"double": D64,

	// LDMS scalar names
	"char": Char,
	"u8":   U8,
	"s8":   S8,
	"u16":  U16,
	"s16":  S16,
	"u32":  U32,
	"s32":  S32,
	"u64":  U64,
	"s64":  S64,
	"f32":  F32,
	"d64":  D64,

	// Arrays
	"char[]":   CharArray,
	"u8[]":     U8Array,
	"s8[]":     S8Array,
	"u16[]":    U16Array,
	"s16[]":    S16Array,
	"u32[]":    U32Array,
	"s32[]":    S32Array,
	"u64[]":    U64Array,
	"s64[]":    S64Array,
	"f32[]":    F32Array,
	"d64[]":    D64Array,
	"int[]":    S32Array,
	"long[]":   S64Array,
	"float[]":  F32Array,
	"double[]": D64Array,

	"record":   RecordType,
	"record[]": RecordArray,
	"list":     List,
}

// itemKindTbl maps a JSON "items" type string to the scalar item Kind
// used for fixed-length arrays (§3.1). Record arrays are handled
// separately since they carry a record_type reference rather than a
// scalar item kind.
var itemKindTbl = map[string]Kind{
	"int":    S32,
	"long":   S64,
	"float":  F32,
	"double": D64,

	"char": Char,
	"u8":   U8,
	"s8":   S8,
	"u16":  U16,
	"s16":  S16,
	"u32":  U32,
	"s32":  S32,
	"u64":  U64,
	"s64":  S64,
	"f32":  F32,
	"d64":  D64,
}

// arrayKindTbl maps an item Kind to the corresponding fixed-length
// array Kind.
var arrayKindTbl = map[Kind]Kind{
	Char: CharArray,
	U8:   U8Array,
	S8:   S8Array,
	U16:  U16Array,
	S16:  S16Array,
	U32:  U32Array,
	S32:  S32Array,
	U64:  U64Array,
	S64:  S64Array,
	F32:  F32Array,
	D64:  D64Array,
}

// Parse resolves a JSON scalar type string (including Avro aliases) to
// a Kind. It reports ok=false for unknown strings.
func Parse(s string) (Kind, bool) {
	k, ok := parseTbl[s]
	return k, ok
}

// ItemKind resolves a JSON "items" string to the scalar Kind used for
// an array's elements. RECORD_ARRAY items ("record") are not resolved
// here; callers must special-case that before calling ItemKind.
func ItemKind(s string) (Kind, bool) {
	k, ok := itemKindTbl[s]
	return k, ok
}

// ArrayKindOf returns the fixed-length array Kind for a scalar item
// Kind.
func ArrayKindOf(item Kind) (Kind, bool) {
	k, ok := arrayKindTbl[item]
	return k, ok
}

// String returns the wire string canonicalStr lists for k.
func (k Kind) String() string {
	if s, ok := canonicalStr[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// IsArray reports whether k is one of the fixed-length scalar array
// kinds (not LIST, not RECORD_ARRAY).
func (k Kind) IsArray() bool {
	switch k {
	case CharArray, U8Array, S8Array, U16Array, S16Array,
		U32Array, S32Array, U64Array, S64Array, F32Array, D64Array:
		return true
	default:
		return false
	}
}
