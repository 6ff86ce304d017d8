// Copyright [2019] LinkedIn Corp. Licensed under the Apache License, Version
// 2.0 (the "License"); you may not use this file except in compliance with the
// License.  You may obtain a copy of the License at
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS, WITHOUT
// WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.

package avro

import "fmt"

// unionCodecInfo holds the quick lookups needed to handle the full list of
// member schemas for one union: which branch a value belongs to (for
// encoding) and which branch a wire index names (for decoding). This
// generalizes the teacher's codecInfo (union.go), which only ever supported
// an exactly-two-member, null-first union; this builds the same lookup
// shape for arbitrary N-ary unions per spec.md §3.1/§4.1.
type unionCodecInfo struct {
	branches     []*Schema
	pairs        []*codecPair
	nullBranch   int // -1 if the union has no null branch
	allowedKinds []string
}

func buildUnionCodec(st map[string]*codecPair, schema *Schema, cb *codecBuilder) (*codecPair, error) {
	info := &unionCodecInfo{
		branches:     schema.Branches,
		pairs:        make([]*codecPair, len(schema.Branches)),
		nullBranch:   -1,
		allowedKinds: make([]string, len(schema.Branches)),
	}
	for i, branch := range schema.Branches {
		p, err := buildCodec(st, branch, cb)
		if err != nil {
			return nil, fmt.Errorf("Union item %d ought to be valid Avro type: %w", i, err)
		}
		info.pairs[i] = p
		info.allowedKinds[i] = branch.String()
		if branch.Kind == Null {
			info.nullBranch = i
		}
	}

	cfg := cb.cfg
	return &codecPair{
		binaryFromNative: unionBinaryFromNative(info, cfg),
		nativeFromBinary: unionNativeFromBinary(info),
	}, nil
}

// unionNativeFromBinary reads the long branch index, then delegates to that
// branch's decoder. The branch index is never exposed: a null branch
// decodes to a bare nil and other unnamed branches to the contained value,
// while a record, enum or fixed branch decodes to a single-key map keyed by
// the branch's fullname.
func unionNativeFromBinary(info *unionCodecInfo) func([]byte) (interface{}, []byte, error) {
	return func(buf []byte) (interface{}, []byte, error) {
		decoded, rest, err := longNativeFromBinary(buf)
		if err != nil {
			return nil, nil, err
		}
		index := decoded.(int64)
		if index < 0 || index >= int64(len(info.pairs)) {
			return nil, nil, newDecodeError(DecodeErrorUnionIndexOutOfRange, "union: index %d out of range [0,%d)", index, len(info.pairs))
		}
		branch := info.branches[index]
		value, rest, err := info.pairs[index].nativeFromBinary(rest)
		if err != nil {
			return nil, nil, fmt.Errorf("union branch %d (%s): %w", index, branch.String(), err)
		}
		if branch.Kind == Null {
			return nil, rest, nil
		}
		if branch.Kind == Record || branch.Kind == Enum || branch.Kind == Fixed {
			// Named branches are wrapped so a reader can tell which of
			// several structurally distinct named types it received.
			return map[string]interface{}{branch.FullName(): value}, rest, nil
		}
		return value, rest, nil
	}
}

// unionBinaryFromNative picks a branch by validating the datum's shape
// against each branch in declaration order (first match wins — spec.md §9)
// and writes the branch index followed by the branch's encoding.
//
// Exception (spec.md §4.4, a documented permissive deviation): a nil datum
// when the union has a null branch always selects that branch, even under
// cfg.strictUnionMatch, since Avro itself requires this — what
// strictUnionMatch disables is treating an *absent* field as nil.
func unionBinaryFromNative(info *unionCodecInfo, cfg *codecConfig) func([]byte, interface{}) ([]byte, error) {
	return func(buf []byte, datum interface{}) ([]byte, error) {
		if datum == nil {
			if info.nullBranch < 0 {
				return nil, newEncodeError(EncodeErrorNoUnionBranch, "union: no branch accepts nil; allowed types: %v", info.allowedKinds)
			}
			buf = appendVarint(buf, int64(info.nullBranch))
			return info.pairs[info.nullBranch].binaryFromNative(buf, nil)
		}

		for i, branch := range info.branches {
			if branch.Kind == Null {
				continue
			}
			if validate(branch, datum) {
				buf = appendVarint(buf, int64(i))
				return info.pairs[i].binaryFromNative(buf, datum)
			}
		}

		// Fall back to the decode-side wrapper shape,
		// map[string]interface{}{fullname: v}, for a named branch whose
		// value itself didn't structurally match (e.g. two branches share a
		// field-name set and the caller wants to disambiguate explicitly).
		if wrapper, ok := datum.(map[string]interface{}); ok && len(wrapper) == 1 {
			for key, inner := range wrapper {
				for i, branch := range info.branches {
					if branch.FullName() == key {
						buf = appendVarint(buf, int64(i))
						return info.pairs[i].binaryFromNative(buf, inner)
					}
				}
			}
		}

		return nil, newEncodeError(EncodeErrorNoUnionBranch, "union: no member schema types support datum: allowed types: %v; received: %T", info.allowedKinds, datum)
	}
}
