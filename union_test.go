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

func TestSchemaUnionRejectsEmpty(t *testing.T) {
	_, err := ParseSchema(`[]`)
	ensureError(t, err, "at least one member")
}

func TestSchemaUnionRejectsNestedUnion(t *testing.T) {
	_, err := ParseSchema(`["null", ["int", "string"]]`)
	ensureError(t, err, "may not directly nest unions")
}

func TestSchemaUnionRejectsDuplicateKind(t *testing.T) {
	_, err := ParseSchema(`["int", "long", "int"]`)
	ensureError(t, err, "duplicate type kind")
}

func TestSchemaUnionRejectsDuplicateNamedType(t *testing.T) {
	_, err := ParseSchema(`[{"type":"enum","name":"e1","symbols":["alpha","bravo"]},"e1"]`)
	ensureError(t, err, "duplicate named type")
}

// TestUnionNullInt exercises the spec.md §8.3 scenario 2 shape: a
// ["null","int"] union where the writer selects null by branch index 0.
func TestUnionNullInt(t *testing.T) {
	testBinaryCodecPass(t, `["null","int"]`, nil, []byte{0})
	testBinaryCodecPass(t, `["null","int"]`, int32(3), []byte{2, 6})
}

func TestUnionEnum(t *testing.T) {
	schema := `["null", {"type":"enum","name":"colors","symbols":["red","green","blue"]}]`
	testBinaryEncodePass(t, schema, "green", []byte{2, 2})
	// A named (enum) branch decodes wrapped in a single-key map keyed by
	// the branch's fullname.
	testBinaryDecodePass(t, schema, map[string]interface{}{"colors": "green"}, []byte{2, 2})
	testBinaryEncodeFail(t, schema, "brown", "no member schema types support datum")
}

func TestUnionRejectsUnsupportedDatum(t *testing.T) {
	testBinaryEncodeFail(t, `["null","long"]`, "not a long", "no member schema types support datum")
}

// TestUnionRecordNullableField exercises spec.md §8.3 scenario 2 and §8.2
// "for all union-typed fields with null among the branches,
// encode(missing) == encode({null})": a field absent from the input value
// is permissively treated as a null union selection.
func TestUnionRecordNullableField(t *testing.T) {
	schema := `{"type":"record","name":"U","fields":[
		{"name":"name","type":"string"},
		{"name":"fav","type":["null","int"]}
	]}`
	testBinaryCodecPass(t, schema,
		map[string]interface{}{"name": "Alice", "fav": int32(42)},
		[]byte{0xa, 'A', 'l', 'i', 'c', 'e', 0x2, 0x54})

	withMissing := map[string]interface{}{"name": "Alice"}
	withExplicitNull := map[string]interface{}{"name": "Alice", "fav": nil}
	codec, err := NewCodec(schema)
	if err != nil {
		t.Fatal(err)
	}
	missingEncoded, err := codec.BinaryFromNative(nil, withMissing)
	if err != nil {
		t.Fatal(err)
	}
	explicitEncoded, err := codec.BinaryFromNative(nil, withExplicitNull)
	if err != nil {
		t.Fatal(err)
	}
	if string(missingEncoded) != string(explicitEncoded) {
		t.Errorf("encode(missing) = %#v; encode({null}) = %#v; want equal", missingEncoded, explicitEncoded)
	}
	if string(missingEncoded) != string([]byte{0xa, 'A', 'l', 'i', 'c', 'e', 0}) {
		t.Errorf("GOT: %#v", missingEncoded)
	}
}

func TestUnionRecordNullableFieldStrictRejectsMissing(t *testing.T) {
	schema := `{"type":"record","name":"U","fields":[
		{"name":"name","type":"string"},
		{"name":"fav","type":["null","int"]}
	]}`
	codec, err := NewCodec(schema, WithStrictUnionMatch())
	if err != nil {
		t.Fatal(err)
	}
	_, err = codec.BinaryFromNative(nil, map[string]interface{}{"name": "Alice"})
	ensureError(t, err, "missing required field")
}

// TestUnionRecordDisambiguation exercises spec.md §8.3 scenario 4: a union
// of two records with identical field-name sets picks the first branch
// whose required field-name set matches the value's keys.
func TestUnionRecordDisambiguation(t *testing.T) {
	schema := `[
		{"type":"record","name":"CelsiusTemperature","fields":[
			{"name":"temperature","type":"double"},
			{"name":"measurement_error","type":"double"}
		]},
		{"type":"record","name":"FahrenheitTemperature","fields":[
			{"name":"temperature","type":"double"},
			{"name":"measurement_error","type":"double"}
		]}
	]`
	codec, err := NewCodec(schema)
	if err != nil {
		t.Fatal(err)
	}
	datum := map[string]interface{}{"temperature": 21.5, "measurement_error": 0.4}
	encoded, err := codec.BinaryFromNative(nil, datum)
	if err != nil {
		t.Fatal(err)
	}
	if len(encoded) == 0 || encoded[0] != 0 {
		t.Errorf("GOT branch index byte %#v; WANT 0 (first match wins)", encoded[:1])
	}
}

func TestUnionRecordExplicitBranchSelection(t *testing.T) {
	schema := `[
		{"type":"record","name":"A","fields":[{"name":"x","type":"int"}]},
		{"type":"record","name":"B","fields":[{"name":"x","type":"int"}]}
	]`
	codec, err := NewCodec(schema)
	if err != nil {
		t.Fatal(err)
	}
	datum := map[string]interface{}{"B": map[string]interface{}{"x": int32(1)}}
	encoded, err := codec.BinaryFromNative(nil, datum)
	if err != nil {
		t.Fatal(err)
	}
	decoded, _, err := codec.NativeFromBinary(encoded)
	if err != nil {
		t.Fatal(err)
	}
	wrapper, ok := decoded.(map[string]interface{})
	if !ok {
		t.Fatalf("GOT: %#v; WANT a single-key branch wrapper", decoded)
	}
	if _, ok := wrapper["B"]; !ok {
		t.Errorf("GOT: %#v; WANT branch B selected", wrapper)
	}
}
