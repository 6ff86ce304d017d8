// Copyright [2019] LinkedIn Corp. Licensed under the Apache License, Version
// 2.0 (the "License"); you may not use this file except in compliance with the
// License.  You may obtain a copy of the License at
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS, WITHOUT
// WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.

package avro

import "testing"

func TestParseSchemaPrimitives(t *testing.T) {
	for name, kind := range primitiveKinds {
		s, err := ParseSchema(`"` + name + `"`)
		if err != nil {
			t.Fatalf("%s: %s", name, err)
		}
		if s.Kind != kind {
			t.Errorf("%s: GOT: %s; WANT: %s", name, s.Kind, kind)
		}
	}
}

func TestParseSchemaMalformedJSON(t *testing.T) {
	_, err := ParseSchema(`{not json`)
	ensureError(t, err, "invalid schema JSON")
}

func TestParseSchemaUnresolvedReference(t *testing.T) {
	_, err := ParseSchema(`"com.example.DoesNotExist"`)
	ensureError(t, err, "unresolved schema reference")
}

func TestParseSchemaForwardReferenceRejected(t *testing.T) {
	_, err := ParseSchema(`{"type":"record","name":"A","fields":[
		{"name":"b","type":"B"}
	]}`)
	ensureError(t, err, "unresolved schema reference")
}

func TestParseSchemaDuplicateFieldName(t *testing.T) {
	_, err := ParseSchema(`{"type":"record","name":"A","fields":[
		{"name":"x","type":"int"},
		{"name":"x","type":"string"}
	]}`)
	ensureError(t, err, "duplicate field name")
}

func TestParseSchemaDuplicateRecordName(t *testing.T) {
	_, err := ParseSchema(`{"type":"record","name":"A","fields":[
		{"name":"self","type":{"type":"record","name":"A","fields":[]}}
	]}`)
	ensureError(t, err, "duplicate named type")
}

func TestParseSchemaEnumDuplicateSymbol(t *testing.T) {
	_, err := ParseSchema(`{"type":"enum","name":"E","symbols":["A","A"]}`)
	ensureError(t, err, "duplicate symbol")
}

func TestParseSchemaEnumBadDefault(t *testing.T) {
	_, err := ParseSchema(`{"type":"enum","name":"E","symbols":["A","B"],"default":"C"}`)
	ensureError(t, err, "is not one of its symbols")
}

func TestParseSchemaBadFieldDefault(t *testing.T) {
	_, err := ParseSchema(`{"type":"record","name":"A","fields":[
		{"name":"x","type":"int","default":"not an int"}
	]}`)
	ensureError(t, err, "does not validate")
}

// TestParseSchemaUnionFieldDefaultAnyBranch exercises the §3.1/§9
// permissive relaxation: a union-typed field's default validates against
// any branch, not only the first.
func TestParseSchemaUnionFieldDefaultAnyBranch(t *testing.T) {
	_, err := ParseSchema(`{"type":"record","name":"A","fields":[
		{"name":"x","type":["string","int"],"default":3}
	]}`)
	if err != nil {
		t.Fatalf("expected permissive union default to validate, got: %s", err)
	}
}

// TestParseSchemaNamespaceInheritance covers spec.md §3.2's three-tier
// namespace priority: explicit attribute, dotted name, enclosing namespace.
func TestParseSchemaNamespaceInheritance(t *testing.T) {
	schema := `{
		"type":"record","name":"Outer","namespace":"com.example",
		"fields":[
			{"name":"a","type":{"type":"record","name":"Inner","fields":[]}},
			{"name":"b","type":{"type":"record","name":"other.Dotted","fields":[]}},
			{"name":"c","type":{"type":"record","name":"Explicit","namespace":"org.other","fields":[]}}
		]
	}`
	s, err := ParseSchema(schema)
	if err != nil {
		t.Fatal(err)
	}
	if got := s.FullName(); got != "com.example.Outer" {
		t.Errorf("GOT: %s; WANT: com.example.Outer", got)
	}
	if got := s.Fields[0].Type.FullName(); got != "com.example.Inner" {
		t.Errorf("inner record: GOT: %s; WANT: com.example.Inner", got)
	}
	if got := s.Fields[1].Type.FullName(); got != "other.Dotted" {
		t.Errorf("dotted name: GOT: %s; WANT: other.Dotted", got)
	}
	if got := s.Fields[2].Type.FullName(); got != "org.other.Explicit" {
		t.Errorf("explicit namespace: GOT: %s; WANT: org.other.Explicit", got)
	}
}

// TestParseSchemaRecursiveSelfReference covers the "Recursive named types"
// design note: a record may refer to itself, forming a cyclic *Schema tree.
func TestParseSchemaRecursiveSelfReference(t *testing.T) {
	schema := `{"type":"record","name":"Node","fields":[
		{"name":"value","type":"int"},
		{"name":"next","type":["null","Node"]}
	]}`
	s, err := ParseSchema(schema)
	if err != nil {
		t.Fatal(err)
	}
	nextField := s.Fields[1].Type
	if nextField.Kind != Union {
		t.Fatalf("GOT: %s; WANT union", nextField.Kind)
	}
	selfBranch := nextField.Branches[1]
	if selfBranch != s {
		t.Errorf("self-reference did not resolve to the same *Schema pointer")
	}
}

func TestParseSchemaAliases(t *testing.T) {
	s, err := ParseSchema(`{"type":"record","name":"A","aliases":["OldA","ns.B"],"fields":[]}`)
	if err != nil {
		t.Fatal(err)
	}
	if len(s.Aliases) != 2 || s.Aliases[1] != "ns.B" {
		t.Errorf("GOT: %v", s.Aliases)
	}
}

func TestParseSchemaLogicalTypeDecimal(t *testing.T) {
	s, err := ParseSchema(`{"type":"bytes","logicalType":"decimal","precision":10,"scale":2}`)
	if err != nil {
		t.Fatal(err)
	}
	if s.Logical == nil || s.Logical.Kind != LogicalDecimal || s.Logical.Scale != 2 {
		t.Errorf("GOT: %#v", s.Logical)
	}
}

// TestParseSchemaLogicalTypeDegradesOnMismatch covers §3.1: an invalid
// logical annotation (here: decimal over int) degrades silently to the
// base type instead of erroring.
func TestParseSchemaLogicalTypeDegradesOnMismatch(t *testing.T) {
	s, err := ParseSchema(`{"type":"int","logicalType":"decimal","precision":10}`)
	if err != nil {
		t.Fatal(err)
	}
	if s.Logical != nil {
		t.Errorf("GOT: %#v; WANT nil (mismatched logical type should degrade)", s.Logical)
	}
}
