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

func TestRecordRoundTrip(t *testing.T) {
	schema := `{"type":"record","name":"Person","fields":[
		{"name":"name","type":"string"},
		{"name":"age","type":"int"}
	]}`
	testBinaryCodecPass(t, schema,
		map[string]interface{}{"name": "Alice", "age": int32(30)},
		[]byte{0xa, 'A', 'l', 'i', 'c', 'e', 60})
}

func TestRecordMissingRequiredFieldFails(t *testing.T) {
	schema := `{"type":"record","name":"Person","fields":[
		{"name":"name","type":"string"}
	]}`
	testBinaryEncodeFail(t, schema, map[string]interface{}{}, "missing required field")
}

// TestRecordDefaultSupplied exercises spec.md §8.2: a record with a missing
// defaulted field encodes identically to the same record with the default
// supplied explicitly.
func TestRecordDefaultSupplied(t *testing.T) {
	schema := `{"type":"record","name":"Person","fields":[
		{"name":"name","type":"string"},
		{"name":"age","type":"int","default":0}
	]}`
	codec, err := NewCodec(schema)
	if err != nil {
		t.Fatal(err)
	}
	withDefault, err := codec.BinaryFromNative(nil, map[string]interface{}{"name": "Bob", "age": int32(0)})
	if err != nil {
		t.Fatal(err)
	}
	withMissing, err := codec.BinaryFromNative(nil, map[string]interface{}{"name": "Bob"})
	if err != nil {
		t.Fatal(err)
	}
	if string(withDefault) != string(withMissing) {
		t.Errorf("GOT: %#v != %#v", withDefault, withMissing)
	}
}

// TestRecordDefaultNotSharedAcrossDecodes checks that a reader-only field's
// default is deep-copied into each decoded record, so mutating one decoded
// default does not change what a later decode returns.
func TestRecordDefaultNotSharedAcrossDecodes(t *testing.T) {
	writer := MustParseSchema(`{"type":"record","name":"Person","fields":[]}`)
	reader := MustParseSchema(`{"type":"record","name":"Person","fields":[
		{"name":"tags","type":{"type":"array","items":"string"},"default":["a"]}
	]}`)
	codec, err := NewResolvedCodec(writer, reader)
	if err != nil {
		t.Fatal(err)
	}
	value, _, err := codec.NativeFromBinary([]byte{})
	if err != nil {
		t.Fatal(err)
	}
	tags := value.(map[string]interface{})["tags"].([]interface{})
	tags[0] = "mutated"
	second, _, err := codec.NativeFromBinary([]byte{})
	if err != nil {
		t.Fatal(err)
	}
	if got := second.(map[string]interface{})["tags"].([]interface{})[0]; got != "a" {
		t.Errorf("mutating one decoded default mutated a later decode's default: GOT %#v; WANT \"a\"", got)
	}
}

func TestEnumRoundTrip(t *testing.T) {
	schema := `{"type":"enum","name":"Suit","symbols":["SPADES","HEARTS","DIAMONDS","CLUBS"]}`
	testBinaryCodecPass(t, schema, "HEARTS", []byte{2})
	testBinaryEncodeFail(t, schema, "JOKER", "symbol")
	testBinaryDecodeFail(t, schema, []byte{8}, "out of range")
}

func TestFixedRoundTrip(t *testing.T) {
	schema := `{"type":"fixed","name":"md5","size":2}`
	testBinaryCodecPass(t, schema, []byte{0xde, 0xad}, []byte{0xde, 0xad})
}

func TestArrayOfRecords(t *testing.T) {
	schema := `{"type":"array","items":{"type":"record","name":"Pair","fields":[
		{"name":"k","type":"string"},{"name":"v","type":"int"}
	]}}`
	datum := []interface{}{
		map[string]interface{}{"k": "a", "v": int32(1)},
		map[string]interface{}{"k": "b", "v": int32(2)},
	}
	codec, err := NewCodec(schema)
	if err != nil {
		t.Fatal(err)
	}
	encoded, err := codec.BinaryFromNative(nil, datum)
	if err != nil {
		t.Fatal(err)
	}
	decoded, rest, err := codec.NativeFromBinary(encoded)
	if err != nil {
		t.Fatal(err)
	}
	if len(rest) != 0 {
		t.Errorf("leftover bytes: %#v", rest)
	}
	got := decoded.([]interface{})
	if len(got) != 2 || got[0].(map[string]interface{})["k"] != "a" {
		t.Errorf("GOT: %#v", got)
	}
}

func TestMapOfArrays(t *testing.T) {
	schema := `{"type":"map","values":{"type":"array","items":"int"}}`
	datum := map[string]interface{}{
		"evens": []interface{}{int32(2), int32(4)},
		"odds":  []interface{}{int32(1), int32(3)},
	}
	codec, err := NewCodec(schema)
	if err != nil {
		t.Fatal(err)
	}
	encoded, err := codec.BinaryFromNative(nil, datum)
	if err != nil {
		t.Fatal(err)
	}
	testBinaryDecodePass(t, schema, datum, encoded)
}
