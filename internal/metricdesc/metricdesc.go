// Package metricdesc converts a schema.Schema to the native metric-set
// descriptor form the collector library builds live metric sets from
// (spec §4.1 "Cross-mapping", §4.6). There is no conversion in the
// other direction, from descriptors back to a schema.Schema. A Descriptor mirrors
// the original source's `as_ldms_metric_desc` dict shape:
// {name, metric_type, count?, meta?, units?, rec_def?}.
package metricdesc

import (
	"fmt"

	"github.com/ovis-hpc/ldms-registry/internal/schema"
)

// Descriptor is one field's native metric-set descriptor.
type Descriptor struct {
	Name       string
	MetricType string
	Count      int // array length / list heap size; 0 means "not applicable"
	Meta       bool
	Units      string
	RecDef     *RecordDef // set when MetricType names a record type
}

// RecordDef is the native descriptor for a record field: a name and
// its member descriptors, built bottom-up so nested record arrays can
// reference it once built (§4.6).
type RecordDef struct {
	Name    string
	Members []*Descriptor
}

// Build materializes schema s as an ordered list of native
// descriptors. Fields are realized left to right; a RecordArray may
// only be realized once its record_type has already been realized as
// a Record earlier in the same field list, matching schema.Parse's own
// ordering invariant (§3.4) — this is checked again here because
// Build accepts any *schema.Schema, including ones assembled in
// memory rather than parsed from JSON.
func Build(s *schema.Schema) ([]*Descriptor, error) {
	records := make(map[string]*RecordDef, len(s.Fields))
	return buildFields(s.Fields, records)
}

func buildFields(fields []schema.Field, records map[string]*RecordDef) ([]*Descriptor, error) {
	descs := make([]*Descriptor, 0, len(fields))
	for _, f := range fields {
		d, err := buildField(f, records)
		if err != nil {
			return nil, err
		}
		descs = append(descs, d)
	}
	return descs, nil
}

func buildField(f schema.Field, records map[string]*RecordDef) (*Descriptor, error) {
	switch v := f.(type) {
	case *schema.Primitive:
		return &Descriptor{
			Name:       v.FieldName(),
			MetricType: v.Kind().String(),
			Meta:       v.Meta(),
			Units:      v.FieldUnits(),
		}, nil

	case *schema.Array:
		return &Descriptor{
			Name:       v.FieldName(),
			MetricType: v.ArrayKind.String(),
			Count:      v.Length,
			Meta:       v.Meta(),
			Units:      v.FieldUnits(),
		}, nil

	case *schema.List:
		return &Descriptor{
			Name:       v.FieldName(),
			MetricType: "list",
			Count:      v.HeapSize,
			Meta:       v.Meta(),
			Units:      v.FieldUnits(),
		}, nil

	case *schema.Record:
		members, err := buildFields(v.Fields, records)
		if err != nil {
			return nil, err
		}
		rd := &RecordDef{Name: v.FieldName(), Members: members}
		records[v.FieldName()] = rd
		return &Descriptor{
			Name:       v.FieldName(),
			MetricType: "record",
			Meta:       v.Meta(),
			Units:      v.FieldUnits(),
			RecDef:     rd,
		}, nil

	case *schema.RecordArray:
		rd, ok := records[v.RecordTypeName]
		if !ok {
			return nil, fmt.Errorf("%w: %s -> %s", schema.ErrDanglingRecordRef, v.FieldName(), v.RecordTypeName)
		}
		return &Descriptor{
			Name:       v.FieldName(),
			MetricType: "record[]",
			Count:      v.Length,
			Meta:       v.Meta(),
			Units:      v.FieldUnits(),
			RecDef:     rd,
		}, nil

	default:
		return nil, fmt.Errorf("metricdesc: unsupported field type %T", f)
	}
}
