package metricdesc

import (
	"encoding/json"
	"fmt"

	"github.com/hamba/avro/v2"

	"github.com/ovis-hpc/ldms-registry/internal/schema"
	"github.com/ovis-hpc/ldms-registry/internal/valuetype"
)

// avroScalar maps an LDMS scalar kind to its Avro primitive type,
// following §4.1's note that the wire grammar already borrows Avro's
// "int"/"long"/"float"/"double" aliases for S32/S64/F32/D64.
var avroScalar = map[valuetype.Kind]string{
	valuetype.Char:      "string",
	valuetype.U8:        "int",
	valuetype.S8:        "int",
	valuetype.U16:       "int",
	valuetype.S16:       "int",
	valuetype.U32:       "long",
	valuetype.S32:       "int",
	valuetype.U64:       "long",
	valuetype.S64:       "long",
	valuetype.F32:       "float",
	valuetype.D64:       "double",
	valuetype.Timestamp: "long",
}

// AvroSchema renders s as an Avro record schema (format=avro export)
// and parses it with hamba/avro/v2 to catch invalid shapes before the
// result is ever served.
func AvroSchema(s *schema.Schema) (string, error) {
	doc := avroRecord(s.Name, s.Doc, s.Fields)
	raw, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("metricdesc: marshal avro schema: %w", err)
	}

	parsed, err := avro.Parse(string(raw))
	if err != nil {
		return "", fmt.Errorf("metricdesc: invalid generated avro schema: %w", err)
	}
	return parsed.String(), nil
}

func avroRecord(name, doc string, fields []schema.Field) map[string]interface{} {
	rec := map[string]interface{}{
		"type": "record",
		"name": name,
	}
	if doc != "" {
		rec["doc"] = doc
	}
	avroFields := make([]map[string]interface{}, len(fields))
	for i, f := range fields {
		avroFields[i] = avroField(f)
	}
	rec["fields"] = avroFields
	return rec
}

func avroField(f schema.Field) map[string]interface{} {
	field := map[string]interface{}{"name": f.FieldName()}

	switch v := f.(type) {
	case *schema.Primitive:
		field["type"] = avroType(v.ValueKind)
	case *schema.Array:
		field["type"] = map[string]interface{}{
			"type":  "array",
			"items": avroType(v.ItemKind),
		}
	case *schema.List:
		field["type"] = "bytes"
	case *schema.Record:
		field["type"] = avroRecord(v.Name, v.Doc, v.Fields)
	case *schema.RecordArray:
		field["type"] = map[string]interface{}{
			"type":  "array",
			"items": v.RecordTypeName,
		}
	}
	if f.FieldDoc() != "" {
		field["doc"] = f.FieldDoc()
	}
	return field
}

func avroType(kind valuetype.Kind) string {
	if t, ok := avroScalar[kind]; ok {
		return t
	}
	return "string"
}
