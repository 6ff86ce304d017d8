// Copyright [2019] LinkedIn Corp. Licensed under the Apache License, Version
// 2.0 (the "License"); you may not use this file except in compliance with the
// License.  You may obtain a copy of the License at
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS, WITHOUT
// WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.

// Package avro compiles Avro schemas into specialized binary encoders and
// decoders, and plans schema resolution between a writer and a reader
// schema. It follows the Avro 1.10 specification for binary encoding.
package avro

import (
	"fmt"

	jsoniter "github.com/json-iterator/go"
)

// jsonAPI is the fast JSON codec used for parsing schema documents and
// default-value literals. Schema parsing runs once per Codec construction,
// but a library whose whole job is "compile this schema fast" has no excuse
// to pay encoding/json's reflection tax for it; json-iterator already does
// this job for hamba/avro elsewhere in this pack.
var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

// Kind tags the variant a Schema node represents.
type Kind int

const (
	Null Kind = iota
	Boolean
	Int
	Long
	Float
	Double
	Bytes
	String
	Record
	Enum
	Fixed
	Array
	Map
	Union
)

func (k Kind) String() string {
	switch k {
	case Null:
		return "null"
	case Boolean:
		return "boolean"
	case Int:
		return "int"
	case Long:
		return "long"
	case Float:
		return "float"
	case Double:
		return "double"
	case Bytes:
		return "bytes"
	case String:
		return "string"
	case Record:
		return "record"
	case Enum:
		return "enum"
	case Fixed:
		return "fixed"
	case Array:
		return "array"
	case Map:
		return "map"
	case Union:
		return "union"
	default:
		return "unknown"
	}
}

// Schema is a single node in the parsed, immutable schema tree. Named nodes
// (Record, Enum, Fixed) referenced more than once share the same *Schema
// pointer rather than being a distinct "reference" node kind — this is what
// gives recursive schemas a finite, cyclic tree instead of an infinite one.
type Schema struct {
	Kind Kind

	// Named composite (Record, Enum, Fixed).
	Name    *name
	Aliases []string
	Doc     string

	// Record.
	Fields []*Field

	// Enum.
	Symbols        []string
	EnumDefault    string
	hasEnumDefault bool

	// Fixed.
	Size int

	// Array.
	Items *Schema

	// Map.
	Values *Schema

	// Union.
	Branches []*Schema

	// Logical type annotation, if any; nil means "no logical type".
	Logical *LogicalType
}

// FullName returns the namespaced fullname of a named schema, or "" for an
// unnamed or primitive schema.
func (s *Schema) FullName() string {
	if s.Name == nil {
		return ""
	}
	return s.Name.fullName
}

func (s *Schema) String() string {
	if s.Name != nil {
		return s.Name.fullName
	}
	return s.Kind.String()
}

// Field is one declared field of a Record schema.
type Field struct {
	Name       string
	Position   int
	Type       *Schema
	HasDefault bool
	Default    interface{}
	Aliases    []string
	Doc        string
	Order      string
}

// ParseSchema parses a JSON Avro schema document into a Schema tree, or
// returns a *SchemaError describing the first defect found. This is C1.
func ParseSchema(jsonSchema string) (*Schema, error) {
	var doc interface{}
	if err := jsonAPI.Unmarshal([]byte(jsonSchema), &doc); err != nil {
		return nil, &SchemaError{Code: SchemaErrorMalformed, Msg: "invalid schema JSON", Err: err}
	}
	p := &schemaParser{byFullName: make(map[string]*Schema)}
	return p.parse(doc, nullNamespace)
}

// MustParseSchema is ParseSchema, panicking on error. Convenient for tests
// and package-level schema literals, following the teacher's own
// NewCodec-or-panic idiom used throughout its test helpers.
func MustParseSchema(jsonSchema string) *Schema {
	s, err := ParseSchema(jsonSchema)
	if err != nil {
		panic(err)
	}
	return s
}

// schemaParser holds the mutable state threaded through one parse: the name
// table (byFullName: fullname -> *Schema), used both for forward-reference detection
// (spec.md §3.2: a lookup only succeeds for a previously declared fullname)
// and for recursive schema construction (a record is registered before its
// fields are parsed, so it may refer to itself).
type schemaParser struct {
	byFullName map[string]*Schema
}

func (p *schemaParser) parse(doc interface{}, enclosingNamespace string) (*Schema, error) {
	switch v := doc.(type) {
	case string:
		return p.parseNameOrPrimitive(v, enclosingNamespace)
	case []interface{}:
		return p.parseUnion(v, enclosingNamespace)
	case map[string]interface{}:
		return p.parseObject(v, enclosingNamespace)
	default:
		return nil, newSchemaError(SchemaErrorMalformed, "schema node must be a string, array, or object; got %T", doc)
	}
}

func (p *schemaParser) parseNameOrPrimitive(s string, enclosingNamespace string) (*Schema, error) {
	if prim, ok := primitiveKinds[s]; ok {
		return &Schema{Kind: prim}, nil
	}
	fullName := s
	if i := lastDot(s); i < 0 && enclosingNamespace != nullNamespace {
		fullName = enclosingNamespace + "." + s
	}
	if sch, ok := p.byFullName[fullName]; ok {
		return sch, nil
	}
	if sch, ok := p.byFullName[s]; ok {
		return sch, nil
	}
	return nil, newSchemaError(SchemaErrorUnresolvedReference, "unresolved schema reference: %q", s)
}

var primitiveKinds = map[string]Kind{
	"null":    Null,
	"boolean": Boolean,
	"int":     Int,
	"long":    Long,
	"float":   Float,
	"double":  Double,
	"bytes":   Bytes,
	"string":  String,
}

func lastDot(s string) int {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == '.' {
			return i
		}
	}
	return -1
}

func (p *schemaParser) parseUnion(arr []interface{}, enclosingNamespace string) (*Schema, error) {
	if len(arr) == 0 {
		return nil, newSchemaError(SchemaErrorEmptyUnion, "union must have at least one member")
	}
	branches := make([]*Schema, len(arr))
	seenKind := make(map[Kind]bool)
	seenFullName := make(map[string]bool)
	for i, item := range arr {
		branch, err := p.parse(item, enclosingNamespace)
		if err != nil {
			return nil, fmt.Errorf("union branch %d: %w", i, err)
		}
		if branch.Kind == Union {
			return nil, newSchemaError(SchemaErrorNestedUnion, "union branch %d: unions may not directly nest unions", i)
		}
		switch branch.Kind {
		case Record, Enum, Fixed:
			if seenFullName[branch.FullName()] {
				return nil, newSchemaError(SchemaErrorDuplicateName, "union branch %d: duplicate named type %q in union", i, branch.FullName())
			}
			seenFullName[branch.FullName()] = true
		default:
			if seenKind[branch.Kind] {
				return nil, newSchemaError(SchemaErrorDuplicateName, "union branch %d: duplicate type kind %s in union", i, branch.Kind)
			}
			seenKind[branch.Kind] = true
		}
		branches[i] = branch
	}
	return &Schema{Kind: Union, Branches: branches}, nil
}

func (p *schemaParser) parseObject(obj map[string]interface{}, enclosingNamespace string) (*Schema, error) {
	typeAttr, _ := obj["type"].(string)
	switch typeAttr {
	case "record":
		return p.parseRecord(obj, enclosingNamespace)
	case "enum":
		return p.parseEnum(obj, enclosingNamespace)
	case "fixed":
		return p.parseFixed(obj, enclosingNamespace)
	case "array":
		items, ok := obj["items"]
		if !ok {
			return nil, newSchemaError(SchemaErrorMalformed, "array schema missing items")
		}
		itemSchema, err := p.parse(items, enclosingNamespace)
		if err != nil {
			return nil, fmt.Errorf("array items: %w", err)
		}
		return &Schema{Kind: Array, Items: itemSchema}, nil
	case "map":
		values, ok := obj["values"]
		if !ok {
			return nil, newSchemaError(SchemaErrorMalformed, "map schema missing values")
		}
		valueSchema, err := p.parse(values, enclosingNamespace)
		if err != nil {
			return nil, fmt.Errorf("map values: %w", err)
		}
		return &Schema{Kind: Map, Values: valueSchema}, nil
	case "":
		return nil, newSchemaError(SchemaErrorMalformed, "schema object missing required \"type\" attribute")
	default:
		if prim, ok := primitiveKinds[typeAttr]; ok {
			return p.applyLogicalType(&Schema{Kind: prim}, obj), nil
		}
		// A nested {"type": "some.Name"} is a named-type reference wrapped
		// in an object. It resolves to the named schema itself; any other
		// attributes of the object, logicalType included, are ignored.
		return p.parseNameOrPrimitive(typeAttr, enclosingNamespace)
	}
}

func namespaceAttr(obj map[string]interface{}) string {
	if v, ok := obj["namespace"].(string); ok {
		return v
	}
	return nullNamespace
}

func aliasesAttr(obj map[string]interface{}, n *name) []string {
	raw, ok := obj["aliases"].([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, a := range raw {
		s, _ := a.(string)
		if s == "" {
			continue
		}
		if lastDot(s) < 0 && n.namespace != nullNamespace {
			s = n.namespace + "." + s
		}
		out = append(out, s)
	}
	return out
}

func (p *schemaParser) parseRecord(obj map[string]interface{}, enclosingNamespace string) (*Schema, error) {
	nameAttr, _ := obj["name"].(string)
	if nameAttr == "" {
		return nil, newSchemaError(SchemaErrorMalformed, "record schema missing required \"name\" attribute")
	}
	n := newName(nameAttr, namespaceAttr(obj), enclosingNamespace)
	if _, exists := p.byFullName[n.fullName]; exists {
		return nil, newSchemaError(SchemaErrorDuplicateName, "duplicate named type %q", n.fullName)
	}
	doc, _ := obj["doc"].(string)
	sch := &Schema{Kind: Record, Name: n, Doc: doc, Aliases: aliasesAttr(obj, n)}
	// Register before parsing fields so the record may refer to itself.
	p.byFullName[n.fullName] = sch

	rawFields, _ := obj["fields"].([]interface{})
	fields := make([]*Field, len(rawFields))
	seen := make(map[string]bool, len(rawFields))
	for i, rf := range rawFields {
		fobj, ok := rf.(map[string]interface{})
		if !ok {
			return nil, newSchemaError(SchemaErrorMalformed, "record %q field %d is not an object", n.fullName, i)
		}
		fname, _ := fobj["name"].(string)
		if fname == "" {
			return nil, newSchemaError(SchemaErrorMalformed, "record %q field %d missing name", n.fullName, i)
		}
		if seen[fname] {
			return nil, newSchemaError(SchemaErrorDuplicateField, "record %q: duplicate field name %q", n.fullName, fname)
		}
		seen[fname] = true

		ftypeDoc, ok := fobj["type"]
		if !ok {
			return nil, newSchemaError(SchemaErrorMalformed, "record %q field %q missing type", n.fullName, fname)
		}
		ftype, err := p.parse(ftypeDoc, n.namespace)
		if err != nil {
			return nil, fmt.Errorf("record %q field %q: %w", n.fullName, fname, err)
		}

		field := &Field{Name: fname, Position: i, Type: ftype, Doc: stringAttr(fobj, "doc"), Order: normalizeOrder(fobj)}
		if rawAliases, ok := fobj["aliases"].([]interface{}); ok {
			for _, a := range rawAliases {
				if s, ok := a.(string); ok {
					field.Aliases = append(field.Aliases, s)
				}
			}
		}
		if def, ok := fobj["default"]; ok {
			if !validateDefault(ftype, def) {
				return nil, newSchemaError(SchemaErrorBadDefault, "record %q field %q: default value does not validate against its type", n.fullName, fname)
			}
			field.HasDefault = true
			field.Default = jsonNativeToGo(ftype, def)
		}
		fields[i] = field
	}
	sch.Fields = fields
	return sch, nil
}

func stringAttr(obj map[string]interface{}, key string) string {
	s, _ := obj[key].(string)
	return s
}

// normalizeOrder case-folds the "order" field hint the same way hamba/avro's
// strcase-based attribute handling does elsewhere in this pack; the codec
// itself ignores order, but a schema author writing "Ascending" shouldn't
// silently get a different semantic than "ascending".
func normalizeOrder(fobj map[string]interface{}) string {
	o, _ := fobj["order"].(string)
	return toLowerASCII(o)
}

func toLowerASCII(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}

func (p *schemaParser) parseEnum(obj map[string]interface{}, enclosingNamespace string) (*Schema, error) {
	nameAttr, _ := obj["name"].(string)
	if nameAttr == "" {
		return nil, newSchemaError(SchemaErrorMalformed, "enum schema missing required \"name\" attribute")
	}
	n := newName(nameAttr, namespaceAttr(obj), enclosingNamespace)
	if _, exists := p.byFullName[n.fullName]; exists {
		return nil, newSchemaError(SchemaErrorDuplicateName, "duplicate named type %q", n.fullName)
	}
	rawSymbols, _ := obj["symbols"].([]interface{})
	symbols := make([]string, len(rawSymbols))
	seen := make(map[string]bool, len(rawSymbols))
	for i, rs := range rawSymbols {
		s, _ := rs.(string)
		if seen[s] {
			return nil, newSchemaError(SchemaErrorDuplicateSymbol, "enum %q: duplicate symbol %q", n.fullName, s)
		}
		seen[s] = true
		symbols[i] = s
	}
	sch := &Schema{Kind: Enum, Name: n, Symbols: symbols, Aliases: aliasesAttr(obj, n), Doc: stringAttr(obj, "doc")}
	if def, ok := obj["default"].(string); ok {
		if !seen[def] {
			return nil, newSchemaError(SchemaErrorBadDefault, "enum %q: default %q is not one of its symbols", n.fullName, def)
		}
		sch.EnumDefault = def
		sch.hasEnumDefault = true
	}
	p.byFullName[n.fullName] = sch
	return sch, nil
}

func (p *schemaParser) parseFixed(obj map[string]interface{}, enclosingNamespace string) (*Schema, error) {
	nameAttr, _ := obj["name"].(string)
	if nameAttr == "" {
		return nil, newSchemaError(SchemaErrorMalformed, "fixed schema missing required \"name\" attribute")
	}
	n := newName(nameAttr, namespaceAttr(obj), enclosingNamespace)
	if _, exists := p.byFullName[n.fullName]; exists {
		return nil, newSchemaError(SchemaErrorDuplicateName, "duplicate named type %q", n.fullName)
	}
	sizeF, ok := obj["size"].(float64)
	if !ok || sizeF < 0 || sizeF != float64(int(sizeF)) {
		return nil, newSchemaError(SchemaErrorMalformed, "fixed %q: missing or invalid \"size\"", n.fullName)
	}
	sch := &Schema{Kind: Fixed, Name: n, Size: int(sizeF), Aliases: aliasesAttr(obj, n)}
	sch = p.applyLogicalType(sch, obj)
	p.byFullName[n.fullName] = sch
	return sch, nil
}

// applyLogicalType attaches a LogicalType to a base schema if "logicalType"
// names a recognized annotation valid for that base kind; otherwise it
// degrades silently to the base schema, per spec.md §3.1.
func (p *schemaParser) applyLogicalType(base *Schema, obj map[string]interface{}) *Schema {
	lt, _ := obj["logicalType"].(string)
	if lt == "" {
		return base
	}
	switch lt {
	case "decimal":
		if base.Kind != Bytes && base.Kind != Fixed {
			return base
		}
		precF, pok := obj["precision"].(float64)
		if !pok || precF <= 0 {
			return base
		}
		scale := 0
		if scaleF, ok := obj["scale"].(float64); ok {
			scale = int(scaleF)
		}
		base.Logical = &LogicalType{Kind: LogicalDecimal, Precision: int(precF), Scale: scale}
	case "uuid":
		if base.Kind != String {
			return base
		}
		base.Logical = &LogicalType{Kind: LogicalUUID}
	case "date":
		if base.Kind != Int {
			return base
		}
		base.Logical = &LogicalType{Kind: LogicalDate}
	case "time-millis":
		if base.Kind != Int {
			return base
		}
		base.Logical = &LogicalType{Kind: LogicalTimeMillis}
	case "time-micros":
		if base.Kind != Long {
			return base
		}
		base.Logical = &LogicalType{Kind: LogicalTimeMicros}
	case "timestamp-millis":
		if base.Kind != Long {
			return base
		}
		base.Logical = &LogicalType{Kind: LogicalTimestampMillis}
	case "timestamp-micros":
		if base.Kind != Long {
			return base
		}
		base.Logical = &LogicalType{Kind: LogicalTimestampMicros}
	}
	return base
}

// validateDefault reports whether a JSON-decoded default value validates
// against a field's declared type, applying the union relaxation from
// spec.md §3.1 (any branch, not just the first).
func validateDefault(schema *Schema, def interface{}) bool {
	if schema.Kind == Union {
		for _, branch := range schema.Branches {
			if validateDefault(branch, def) {
				return true
			}
		}
		return false
	}
	return validate(schema, jsonNativeToGo(schema, def))
}

// jsonNativeToGo coerces a JSON-decoded literal (float64/string/bool/nil/...)
// into the same native shape the codec expects, for default-value
// validation and materialization purposes. Numeric widening mirrors what
// encoding/json already collapsed ints and floats into.
func jsonNativeToGo(schema *Schema, v interface{}) interface{} {
	switch schema.Kind {
	case Int:
		if f, ok := v.(float64); ok {
			return int32(f)
		}
	case Long:
		if f, ok := v.(float64); ok {
			return int64(f)
		}
	case Float:
		if f, ok := v.(float64); ok {
			return float32(f)
		}
	case Double:
		if f, ok := v.(float64); ok {
			return f
		}
	case Bytes, Fixed:
		if s, ok := v.(string); ok {
			// Avro JSON encodes bytes/fixed defaults as a string of raw
			// unicode code points, one per byte (\u00XX escapes).
			b := make([]byte, 0, len(s))
			for _, r := range s {
				b = append(b, byte(r))
			}
			return b
		}
	case Array:
		if arr, ok := v.([]interface{}); ok {
			out := make([]interface{}, len(arr))
			for i, e := range arr {
				out[i] = jsonNativeToGo(schema.Items, e)
			}
			return out
		}
	case Map:
		if m, ok := v.(map[string]interface{}); ok {
			out := make(map[string]interface{}, len(m))
			for k, e := range m {
				out[k] = jsonNativeToGo(schema.Values, e)
			}
			return out
		}
	case Record:
		if m, ok := v.(map[string]interface{}); ok {
			out := make(map[string]interface{}, len(m))
			for _, f := range schema.Fields {
				if fv, ok := m[f.Name]; ok {
					out[f.Name] = jsonNativeToGo(f.Type, fv)
				} else if f.HasDefault {
					out[f.Name] = jsonNativeToGo(f.Type, f.Default)
				}
			}
			return out
		}
	case Union:
		// A union-typed default coerces against whichever branch it
		// validates against once coerced — the permissive any-branch
		// relaxation from spec.md §3.1/§9 applies here too, not just in
		// validateDefault.
		for _, branch := range schema.Branches {
			coerced := jsonNativeToGo(branch, v)
			if validate(branch, coerced) {
				return coerced
			}
		}
	}
	return v
}
