// Copyright [2019] LinkedIn Corp. Licensed under the Apache License, Version
// 2.0 (the "License"); you may not use this file except in compliance with the
// License.  You may obtain a copy of the License at
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS, WITHOUT
// WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.

package avro

import (
	"fmt"

	"github.com/mohae/deepcopy"
)

// buildRecordCodec compiles a record schema: fields in declaration order, no
// framing, per spec.md §4.3/§4.4. A field missing from the input value is
// supplied by its default (deep-copied, per SPEC_FULL.md §3.3, so a shared default
// can never be mutated through an encoded value); a missing required field
// raises EncodeErrorMissingField.
func buildRecordCodec(st map[string]*codecPair, schema *Schema, cb *codecBuilder) (*codecPair, error) {
	fieldPairs := make([]*codecPair, len(schema.Fields))
	for i, f := range schema.Fields {
		p, err := buildCodec(st, f.Type, cb)
		if err != nil {
			return nil, err
		}
		fieldPairs[i] = p
	}
	fields := schema.Fields
	fullName := schema.FullName()
	permissiveNullUnion := !cb.cfg.strictUnionMatch

	binaryFromNative := func(buf []byte, datum interface{}) ([]byte, error) {
		m, ok := datum.(map[string]interface{})
		if !ok {
			return nil, newEncodeError(EncodeErrorIntegerOutOfRange, "record %s: received: %T", fullName, datum)
		}
		for i, f := range fields {
			v, present := m[f.Name]
			if !present {
				switch {
				case f.HasDefault:
					v = deepcopy.Copy(f.Default)
				case permissiveNullUnion && fieldAcceptsNull(f):
					// Permissive deviation (spec.md §4.4/§9): a
					// null-inclusive union field with no declared default
					// silently accepts a missing value as null.
					v = nil
				default:
					return nil, newEncodeError(EncodeErrorMissingField, "record %s: missing required field %q", fullName, f.Name)
				}
			}
			var err error
			buf, err = fieldPairs[i].binaryFromNative(buf, v)
			if err != nil {
				return nil, wrapFieldErr(err, fullName, f.Name)
			}
		}
		return buf, nil
	}

	nativeFromBinary := func(buf []byte) (interface{}, []byte, error) {
		m := make(map[string]interface{}, len(fields))
		for i, f := range fields {
			var v interface{}
			var err error
			v, buf, err = fieldPairs[i].nativeFromBinary(buf)
			if err != nil {
				return nil, nil, err
			}
			m[f.Name] = v
		}
		return m, buf, nil
	}

	return &codecPair{binaryFromNative: binaryFromNative, nativeFromBinary: nativeFromBinary}, nil
}

func wrapFieldErr(err error, recordName, fieldName string) error {
	return fmt.Errorf("record %s field %q: %w", recordName, fieldName, err)
}

func fieldAcceptsNull(f *Field) bool {
	if f.Type.Kind == Null {
		return true
	}
	if f.Type.Kind != Union {
		return false
	}
	for _, b := range f.Type.Branches {
		if b.Kind == Null {
			return true
		}
	}
	return false
}
