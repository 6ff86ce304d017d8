// Copyright [2019] LinkedIn Corp. Licensed under the Apache License, Version
// 2.0 (the "License"); you may not use this file except in compliance with the
// License.  You may obtain a copy of the License at
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS, WITHOUT
// WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.

package avro

import "golang.org/x/exp/slices"

// buildMapCodec compiles a map schema: block-framed key/value pairs, keys
// always strings, per spec.md §4.3.
func buildMapCodec(st map[string]*codecPair, schema *Schema, cb *codecBuilder) (*codecPair, error) {
	valuePair, err := buildCodec(st, schema.Values, cb)
	if err != nil {
		return nil, err
	}
	cfg := cb.cfg

	binaryFromNative := func(buf []byte, datum interface{}) ([]byte, error) {
		m, ok := datum.(map[string]interface{})
		if !ok {
			return nil, newEncodeError(EncodeErrorIntegerOutOfRange, "map %s: received: %T", schema.String(), datum)
		}
		if len(m) > 0 {
			// Iterate in sorted key order so two encodes of the same map
			// value are byte-identical (spec.md §8.1 Determinism); Go's map
			// iteration order is randomized and would otherwise violate it.
			keys := make([]string, 0, len(m))
			for k := range m {
				keys = append(keys, k)
			}
			slices.Sort(keys)

			buf = appendVarint(buf, int64(len(m)))
			for _, k := range keys {
				var err error
				buf, err = stringBinaryFromNative(buf, k)
				if err != nil {
					return nil, err
				}
				buf, err = valuePair.binaryFromNative(buf, m[k])
				if err != nil {
					return nil, wrapIndexErr(err, "map value for key "+k, 0)
				}
			}
		}
		return appendVarint(buf, 0), nil
	}

	nativeFromBinary := func(buf []byte) (interface{}, []byte, error) {
		m := make(map[string]interface{})
		for {
			count, rest, err := blockCountNativeFromBinary(cfg, buf)
			if err != nil {
				return nil, nil, err
			}
			if count == 0 {
				return m, rest, nil
			}
			buf = rest
			for i := int64(0); i < count; i++ {
				var key interface{}
				key, buf, err = stringNativeFromBinary(cfg)(buf)
				if err != nil {
					return nil, nil, err
				}
				var value interface{}
				value, buf, err = valuePair.nativeFromBinary(buf)
				if err != nil {
					return nil, nil, err
				}
				m[key.(string)] = value
			}
		}
	}

	return &codecPair{binaryFromNative: binaryFromNative, nativeFromBinary: nativeFromBinary}, nil
}
