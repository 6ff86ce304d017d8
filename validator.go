// Copyright [2019] LinkedIn Corp. Licensed under the Apache License, Version
// 2.0 (the "License"); you may not use this file except in compliance with the
// License.  You may obtain a copy of the License at
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS, WITHOUT
// WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.

package avro

import "math"

// validate answers "could this value be encoded under this schema", with
// shallow, structural checks only (no recursive validation of array/map
// element contents) — sufficient and fast for union branch disambiguation.
// Schema parsing also calls it to check field default values. This
// generalizes the teacher's codecInfo/
// indexFromName branch-selection logic (union.go) to every schema kind.
func validate(schema *Schema, v interface{}) bool {
	switch schema.Kind {
	case Null:
		return v == nil
	case Boolean:
		_, ok := v.(bool)
		return ok
	case Int:
		return fitsInt32(v)
	case Long:
		return fitsInt64(v)
	case Float, Double:
		return fitsFloat(v)
	case Bytes:
		_, ok := v.([]byte)
		return ok
	case Fixed:
		b, ok := v.([]byte)
		return ok && len(b) == schema.Size
	case String:
		_, ok := v.(string)
		return ok
	case Enum:
		return validateEnum(schema, v)
	case Array:
		_, ok := v.([]interface{})
		return ok
	case Map:
		_, ok := v.(map[string]interface{})
		return ok
	case Record:
		return validateRecord(schema, v)
	case Union:
		return firstMatchingBranch(schema, v) >= 0
	default:
		return false
	}
}

func fitsInt32(v interface{}) bool {
	switch n := v.(type) {
	case int32:
		return true
	case int:
		return n >= math.MinInt32 && n <= math.MaxInt32
	case int64:
		return n >= math.MinInt32 && n <= math.MaxInt32
	default:
		return false
	}
}

func fitsInt64(v interface{}) bool {
	switch v.(type) {
	case int32, int64, int:
		return true
	default:
		return false
	}
}

func fitsFloat(v interface{}) bool {
	switch v.(type) {
	case float32, float64, int32, int64, int:
		return true
	default:
		return false
	}
}

func validateEnum(schema *Schema, v interface{}) bool {
	var symbol string
	switch e := v.(type) {
	case string:
		symbol = e
	case avroEnum:
		symbol = e.Str()
	default:
		return false
	}
	for _, s := range schema.Symbols {
		if s == symbol {
			return true
		}
	}
	return false
}

// validateRecord checks that every key present names an actual field, and
// every field without a default is present — the "key set equals the
// record's required field names" rule from spec.md §4.2, generalized to
// also tolerate present-but-defaulted fields (a full record literal is the
// overwhelmingly common case and must validate too).
func validateRecord(schema *Schema, v interface{}) bool {
	m, ok := v.(map[string]interface{})
	if !ok {
		return false
	}
	fieldNames := make(map[string]bool, len(schema.Fields))
	for _, f := range schema.Fields {
		fieldNames[f.Name] = true
	}
	for k := range m {
		if !fieldNames[k] {
			return false
		}
	}
	for _, f := range schema.Fields {
		if !f.HasDefault {
			if _, present := m[f.Name]; !present {
				return false
			}
		}
	}
	return true
}

// firstMatchingBranch returns the index of the first union branch that
// accepts v, or -1. This policy is observable (spec.md §4.2/§9: "structural,
// not deep; first match wins") and must remain stable.
func firstMatchingBranch(schema *Schema, v interface{}) int {
	for i, branch := range schema.Branches {
		if validate(branch, v) {
			return i
		}
	}
	return -1
}

// avroEnum lets a caller supply a richer Go type for an enum value (the
// teacher's own convention) instead of a bare string.
type avroEnum interface {
	Str() string
}
