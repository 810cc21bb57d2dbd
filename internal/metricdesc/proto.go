package metricdesc

import (
	"context"
	"fmt"
	"strings"

	"github.com/bufbuild/protocompile"
	"google.golang.org/protobuf/reflect/protoreflect"

	"github.com/ovis-hpc/ldms-registry/internal/schema"
	"github.com/ovis-hpc/ldms-registry/internal/valuetype"
)

// protoScalar maps an LDMS scalar kind to its closest protobuf3
// field type; proto3 has no native 8/16-bit integers, so those widen
// to int32/uint32.
var protoScalar = map[valuetype.Kind]string{
	valuetype.Char:      "string",
	valuetype.U8:        "uint32",
	valuetype.S8:        "int32",
	valuetype.U16:       "uint32",
	valuetype.S16:       "int32",
	valuetype.U32:       "uint32",
	valuetype.S32:       "int32",
	valuetype.U64:       "uint64",
	valuetype.S64:       "int64",
	valuetype.F32:       "float",
	valuetype.D64:       "double",
	valuetype.Timestamp: "uint64",
}

// singleFileResolver serves one in-memory .proto source, grounded on
// the teacher's referenceResolver but trimmed to the single-file case
// this export needs — a generated message has no external imports.
type singleFileResolver struct {
	path, source string
}

func (r *singleFileResolver) FindFileByPath(path string) (protocompile.SearchResult, error) {
	if path != r.path {
		return protocompile.SearchResult{}, fmt.Errorf("metricdesc: unknown proto file %q", path)
	}
	return protocompile.SearchResult{Source: strings.NewReader(r.source)}, nil
}

var _ protocompile.Resolver = (*singleFileResolver)(nil)

// ProtoDescriptor renders s as a protobuf message (format=proto
// export) and compiles it in-memory with protocompile, catching
// malformed generated descriptors before the result is ever served.
func ProtoDescriptor(ctx context.Context, s *schema.Schema) (protoreflect.FileDescriptor, error) {
	const path = "schema.proto"
	source := protoSource(s)

	compiler := protocompile.Compiler{
		Resolver:       &singleFileResolver{path: path, source: source},
		SourceInfoMode: protocompile.SourceInfoStandard,
	}
	files, err := compiler.Compile(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("metricdesc: compile generated proto: %w", err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("metricdesc: no files compiled")
	}
	return files[0], nil
}

func protoSource(s *schema.Schema) string {
	var b strings.Builder
	b.WriteString(`syntax = "proto3";` + "\n\n")
	if s.Doc != "" {
		fmt.Fprintf(&b, "// %s\n", s.Doc)
	}
	writeProtoMessage(&b, s.Name, s.Fields)
	return b.String()
}

func writeProtoMessage(b *strings.Builder, name string, fields []schema.Field) {
	fmt.Fprintf(b, "message %s {\n", name)
	for _, f := range fields {
		if r, ok := f.(*schema.Record); ok {
			writeNestedMessage(b, r)
		}
	}
	for i, f := range fields {
		writeProtoField(b, f, i+1)
	}
	b.WriteString("}\n\n")
}

func writeNestedMessage(b *strings.Builder, r *schema.Record) {
	fmt.Fprintf(b, "  message %s {\n", r.Name)
	for i, f := range r.Fields {
		b.WriteString("  ")
		writeProtoField(b, f, i+1)
	}
	b.WriteString("  }\n")
}

func writeProtoField(b *strings.Builder, f schema.Field, tag int) {
	switch v := f.(type) {
	case *schema.Primitive:
		fmt.Fprintf(b, "  %s %s = %d;\n", protoType(v.ValueKind), v.FieldName(), tag)
	case *schema.Array:
		fmt.Fprintf(b, "  repeated %s %s = %d;\n", protoType(v.ItemKind), v.FieldName(), tag)
	case *schema.List:
		fmt.Fprintf(b, "  bytes %s = %d;\n", v.FieldName(), tag)
	case *schema.Record:
		fmt.Fprintf(b, "  %s %s = %d;\n", v.Name, v.FieldName(), tag)
	case *schema.RecordArray:
		fmt.Fprintf(b, "  repeated %s %s = %d;\n", v.RecordTypeName, v.FieldName(), tag)
	}
}

func protoType(kind valuetype.Kind) string {
	if t, ok := protoScalar[kind]; ok {
		return t
	}
	return "string"
}
