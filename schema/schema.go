/*
Copyright (C) 2026  Carl-Philip Hänsch

	This program is free software: you can redistribute it and/or modify
	it under the terms of the GNU General Public License as published by
	the Free Software Foundation, either version 3 of the License, or
	(at your option) any later version.

	This program is distributed in the hope that it will be useful,
	but WITHOUT ANY WARRANTY; without even the implied warranty of
	MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
	GNU General Public License for more details.

	You should have received a copy of the GNU General Public License
	along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

// Package schema describes the shape of rule-execution contexts ahead of
// time so the schema-aware JIT tier can load fields by fixed byte offset
// instead of a name lookup. A MessageSchema is the Go analog of a single
// protobuf-style message: a flat or nested set of typed, offset-assigned
// fields.
package schema

import (
	"fmt"
	"strings"
)

// Kind distinguishes the alternatives of FieldType.
type Kind uint8

const (
	KBool Kind = iota
	KInt32
	KInt64
	KUInt32
	KUInt64
	KFloat32
	KFloat64
	KString
	KBytes
	KEnum
	KMessage
	KRepeated
	KOptional
)

// FieldType describes one field's storage kind. Enum carries the enum's
// name, Message a pointer to the nested schema, and Repeated/Optional wrap
// an inner FieldType the way a protobuf `repeated`/`optional` modifier does.
type FieldType struct {
	Kind    Kind
	Enum    string
	Message *MessageSchema
	Elem    *FieldType
}

func Bool() FieldType    { return FieldType{Kind: KBool} }
func Int32() FieldType   { return FieldType{Kind: KInt32} }
func Int64() FieldType   { return FieldType{Kind: KInt64} }
func UInt32() FieldType  { return FieldType{Kind: KUInt32} }
func UInt64() FieldType  { return FieldType{Kind: KUInt64} }
func Float32() FieldType { return FieldType{Kind: KFloat32} }
func Float64() FieldType { return FieldType{Kind: KFloat64} }
func String() FieldType  { return FieldType{Kind: KString} }
func Bytes() FieldType   { return FieldType{Kind: KBytes} }

func Enum(name string) FieldType { return FieldType{Kind: KEnum, Enum: name} }

func Message(m *MessageSchema) FieldType { return FieldType{Kind: KMessage, Message: m} }

func Repeated(elem FieldType) FieldType { return FieldType{Kind: KRepeated, Elem: &elem} }

func Optional(elem FieldType) FieldType { return FieldType{Kind: KOptional, Elem: &elem} }

// PrimitiveSize returns the in-memory size in bytes of primitive field
// kinds, and false for Message/Repeated/Optional/Bytes/String which have
// no fixed size.
func (t FieldType) PrimitiveSize() (int, bool) {
	switch t.Kind {
	case KBool:
		return 1, true
	case KInt32, KUInt32, KFloat32, KEnum:
		return 4, true
	case KInt64, KUInt64, KFloat64:
		return 8, true
	default:
		return 0, false
	}
}

// IsJITNumeric reports whether this field kind can be loaded directly into
// a JIT numeric register.
func (t FieldType) IsJITNumeric() bool {
	switch t.Kind {
	case KBool, KInt32, KInt64, KUInt32, KUInt64, KFloat32, KFloat64, KEnum:
		return true
	default:
		return false
	}
}

func (t FieldType) String() string {
	switch t.Kind {
	case KBool:
		return "bool"
	case KInt32:
		return "int32"
	case KInt64:
		return "int64"
	case KUInt32:
		return "uint32"
	case KUInt64:
		return "uint64"
	case KFloat32:
		return "float32"
	case KFloat64:
		return "float64"
	case KString:
		return "string"
	case KBytes:
		return "bytes"
	case KEnum:
		return "enum(" + t.Enum + ")"
	case KMessage:
		if t.Message != nil {
			return "message(" + t.Message.Name + ")"
		}
		return "message"
	case KRepeated:
		return "repeated(" + t.Elem.String() + ")"
	case KOptional:
		return "optional(" + t.Elem.String() + ")"
	default:
		return "unknown"
	}
}

// FieldSchema describes one field of a MessageSchema: its name, type, and
// byte offset within the flattened struct layout.
type FieldSchema struct {
	Name     string
	Type     FieldType
	Offset   int
	Size     int
	Required bool
}

// NewField builds a FieldSchema, deriving Size from Type when it is a
// primitive.
func NewField(name string, t FieldType, offset int) FieldSchema {
	size, _ := t.PrimitiveSize()
	return FieldSchema{Name: name, Type: t, Offset: offset, Size: size}
}

// ResolvedField is the result of resolving a dotted field path against a
// MessageSchema: the cumulative byte offset and the leaf field's type.
type ResolvedField struct {
	Offset int
	Type   FieldType
	Path   string
}

// MessageSchema describes the layout of one message/struct type: its
// fields, their offsets, and (for schema-aware JIT) the total struct size.
type MessageSchema struct {
	Name       string
	Fields     []FieldSchema
	fieldIndex map[string]int
	StructSize int
}

// NewMessageSchema builds a MessageSchema from an explicit field list.
// StructSize is the maximum (offset+size) across all fields.
func NewMessageSchema(name string, fields []FieldSchema) *MessageSchema {
	idx := make(map[string]int, len(fields))
	size := 0
	for i, f := range fields {
		idx[f.Name] = i
		if end := f.Offset + f.Size; end > size {
			size = end
		}
	}
	return &MessageSchema{Name: name, Fields: fields, fieldIndex: idx, StructSize: size}
}

// GetField looks up a direct (non-dotted) field by name.
func (m *MessageSchema) GetField(name string) (FieldSchema, bool) {
	i, ok := m.fieldIndex[name]
	if !ok {
		return FieldSchema{}, false
	}
	return m.Fields[i], true
}

// ResolveFieldPath resolves a dotted path (e.g. "user.profile.age") into a
// ResolvedField, descending through nested Message fields and accumulating
// byte offsets along the way.
func (m *MessageSchema) ResolveFieldPath(path string) (ResolvedField, bool) {
	parts := strings.Split(path, ".")
	return m.resolveParts(parts)
}

func (m *MessageSchema) resolveParts(parts []string) (ResolvedField, bool) {
	if len(parts) == 0 {
		return ResolvedField{}, false
	}
	field, ok := m.GetField(parts[0])
	if !ok {
		return ResolvedField{}, false
	}
	if len(parts) == 1 {
		return ResolvedField{Offset: field.Offset, Type: field.Type, Path: parts[0]}, true
	}
	if field.Type.Kind != KMessage || field.Type.Message == nil {
		return ResolvedField{}, false
	}
	nested, ok := field.Type.Message.resolveParts(parts[1:])
	if !ok {
		return ResolvedField{}, false
	}
	return ResolvedField{
		Offset: field.Offset + nested.Offset,
		Type:   nested.Type,
		Path:   parts[0] + "." + nested.Path,
	}, true
}

// HasField reports whether path resolves to a field.
func (m *MessageSchema) HasField(path string) bool {
	_, ok := m.ResolveFieldPath(path)
	return ok
}

// AllFieldPaths returns every field path in m, including nested message
// fields flattened with dot notation, in declaration order.
func (m *MessageSchema) AllFieldPaths() []string {
	var paths []string
	m.collectFieldPaths("", &paths)
	return paths
}

func (m *MessageSchema) collectFieldPaths(prefix string, paths *[]string) {
	for _, f := range m.Fields {
		path := f.Name
		if prefix != "" {
			path = prefix + "." + f.Name
		}
		*paths = append(*paths, path)
		if f.Type.Kind == KMessage && f.Type.Message != nil {
			f.Type.Message.collectFieldPaths(path, paths)
		}
	}
}

// Registry is a shared, name-keyed store of MessageSchemas, the Go analog
// of the Rust SchemaRegistry: schema-aware JIT compilation looks schemas
// up here by the context type name a ruleset declares it expects.
type Registry struct {
	schemas map[string]*MessageSchema
}

func NewRegistry() *Registry {
	return &Registry{schemas: make(map[string]*MessageSchema)}
}

// Register adds or replaces the schema under its own Name.
func (r *Registry) Register(m *MessageSchema) {
	r.schemas[m.Name] = m
}

// Get looks up a previously registered schema by name.
func (r *Registry) Get(name string) (*MessageSchema, bool) {
	m, ok := r.schemas[name]
	return m, ok
}

// MustGet looks up a schema by name, panicking if it isn't registered.
// Intended for program startup wiring, not request-path code.
func (r *Registry) MustGet(name string) *MessageSchema {
	m, ok := r.schemas[name]
	if !ok {
		panic(fmt.Sprintf("schema: no schema registered for %q", name))
	}
	return m
}
