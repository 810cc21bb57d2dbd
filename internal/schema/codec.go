package schema

import (
	"encoding/json"
	"fmt"

	"github.com/ovis-hpc/ldms-registry/internal/valuetype"
)

// Parse decodes a schema document (§4.1). The top-level document must
// be a JSON object with "name" and "fields"; it is treated as an
// implicit record, matching the original source's Schema.from_dict.
func Parse(data []byte) (*Schema, error) {
	var doc map[string]interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("schema: invalid JSON: %w", err)
	}
	if t, ok := doc["type"]; ok && t != "record" {
		return nil, fmt.Errorf("%w: got %v", ErrUnsupportedTopLevel, t)
	}
	name, ok := doc["name"].(string)
	if !ok || name == "" {
		return nil, fmt.Errorf("%w: name", ErrMissingField)
	}
	rawFields, ok := doc["fields"].([]interface{})
	if !ok {
		return nil, fmt.Errorf("%w: fields", ErrMissingField)
	}

	fields, err := parseFieldList(rawFields)
	if err != nil {
		return nil, err
	}
	docStr, _ := doc["doc"].(string)
	s := &Schema{Name: name, Doc: docStr, Fields: fields}
	if err := checkRecordArrayRefs(s.Fields); err != nil {
		return nil, err
	}
	return s, nil
}

// parseFieldList parses a JSON array of field objects, rejecting
// duplicate names within the list (§3.4).
func parseFieldList(raw []interface{}) ([]Field, error) {
	fields := make([]Field, 0, len(raw))
	seen := make(map[string]bool, len(raw))
	for _, item := range raw {
		obj, ok := item.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("%w: field entry is not an object", ErrUnknownType)
		}
		f, err := parseField(obj)
		if err != nil {
			return nil, err
		}
		if seen[f.FieldName()] {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateFieldName, f.FieldName())
		}
		seen[f.FieldName()] = true
		fields = append(fields, f)
	}
	return fields, nil
}

func parseField(obj map[string]interface{}) (Field, error) {
	name, ok := obj["name"].(string)
	if !ok || name == "" {
		return nil, fmt.Errorf("%w: name", ErrMissingField)
	}
	typ, ok := obj["type"].(string)
	if !ok || typ == "" {
		return nil, fmt.Errorf("%w: type", ErrMissingField)
	}
	c := common{
		Name:  name,
		Doc:   optString(obj, "doc"),
		Units: optString(obj, "units"),
		Meta_: optBool(obj, "is_meta"),
	}

	switch typ {
	case "record":
		rawFields, ok := obj["fields"].([]interface{})
		if !ok {
			return nil, fmt.Errorf("%w: fields", ErrMissingField)
		}
		nested, err := parseFieldList(rawFields)
		if err != nil {
			return nil, err
		}
		return &Record{common: c, Fields: nested}, nil

	case "array":
		items, ok := obj["items"].(string)
		if !ok || items == "" {
			return nil, fmt.Errorf("%w: items", ErrMissingField)
		}
		length := optInt(obj, "len", -1)
		if items == "record" {
			recordType, ok := obj["record_type"].(string)
			if !ok || recordType == "" {
				return nil, fmt.Errorf("%w: record_type", ErrMissingField)
			}
			return &RecordArray{common: c, RecordTypeName: recordType, Length: length}, nil
		}
		itemKind, ok := valuetype.ItemKind(items)
		if !ok {
			return nil, fmt.Errorf("%w: items=%s", ErrUnknownType, items)
		}
		arrayKind, ok := valuetype.ArrayKindOf(itemKind)
		if !ok {
			return nil, fmt.Errorf("%w: items=%s", ErrUnknownType, items)
		}
		return &Array{common: c, ArrayKind: arrayKind, ItemKind: itemKind, Length: length}, nil

	case "list":
		return &List{common: c, HeapSize: optInt(obj, "heap_sz", -1)}, nil

	default:
		kind, ok := valuetype.Parse(typ)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownType, typ)
		}
		return &Primitive{common: c, ValueKind: kind}, nil
	}
}

// checkRecordArrayRefs walks fields in order, failing with
// ErrDanglingRecordRef unless every RecordArray's record_type names a
// Record already realized earlier in the walk (§3.4, §4.6): the
// serialized JSON must list a record type before any record-array that
// references it.
func checkRecordArrayRefs(fields []Field) error {
	realized := make(map[string]bool, len(fields))
	return walkRecordArrayRefs(fields, realized)
}

func walkRecordArrayRefs(fields []Field, realized map[string]bool) error {
	for _, f := range fields {
		switch v := f.(type) {
		case *RecordArray:
			if !realized[v.RecordTypeName] {
				return fmt.Errorf("%w: %s -> %s", ErrDanglingRecordRef, v.Name, v.RecordTypeName)
			}
		case *Record:
			if err := walkRecordArrayRefs(v.Fields, realized); err != nil {
				return err
			}
			realized[v.Name] = true
		}
	}
	return nil
}

// AsJSON renders the schema back to its canonical document form
// (§4.1), the inverse of Parse.
func (s *Schema) AsJSON() ([]byte, error) {
	fields := make([]map[string]interface{}, len(s.Fields))
	for i, f := range s.Fields {
		fields[i] = f.asDict()
	}
	doc := map[string]interface{}{
		"name":   s.Name,
		"type":   "record",
		"fields": fields,
	}
	if s.Doc != "" {
		doc["doc"] = s.Doc
	}
	return json.Marshal(doc)
}

func optString(obj map[string]interface{}, key string) string {
	if v, ok := obj[key].(string); ok {
		return v
	}
	return ""
}

func optBool(obj map[string]interface{}, key string) bool {
	if v, ok := obj[key].(bool); ok {
		return v
	}
	return false
}

func optInt(obj map[string]interface{}, key string, def int) int {
	if v, ok := obj[key].(float64); ok {
		return int(v)
	}
	return def
}
