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

// buildArrayCodec compiles an array schema: one positive-count block on
// encode (the encoder MAY always emit a single block, per spec.md §4.3),
// then per-element writers; the decoder accepts either the single-block or
// multi-block, signed-count form.
func buildArrayCodec(st map[string]*codecPair, schema *Schema, cb *codecBuilder) (*codecPair, error) {
	itemPair, err := buildCodec(st, schema.Items, cb)
	if err != nil {
		return nil, err
	}
	cfg := cb.cfg

	binaryFromNative := func(buf []byte, datum interface{}) ([]byte, error) {
		items, ok := datum.([]interface{})
		if !ok {
			return nil, newEncodeError(EncodeErrorIntegerOutOfRange, "array %s: received: %T", schema.String(), datum)
		}
		if len(items) > 0 {
			buf = appendVarint(buf, int64(len(items)))
			for i, item := range items {
				var err error
				buf, err = itemPair.binaryFromNative(buf, item)
				if err != nil {
					return nil, wrapIndexErr(err, "array", i)
				}
			}
		}
		return appendVarint(buf, 0), nil
	}

	nativeFromBinary := func(buf []byte) (interface{}, []byte, error) {
		items := make([]interface{}, 0)
		for {
			count, rest, err := blockCountNativeFromBinary(cfg, buf)
			if err != nil {
				return nil, nil, err
			}
			if count == 0 {
				return items, rest, nil
			}
			buf = rest
			for i := int64(0); i < count; i++ {
				var item interface{}
				item, buf, err = itemPair.nativeFromBinary(buf)
				if err != nil {
					return nil, nil, err
				}
				items = append(items, item)
			}
		}
	}

	return &codecPair{binaryFromNative: binaryFromNative, nativeFromBinary: nativeFromBinary}, nil
}

func wrapIndexErr(err error, kind string, i int) error {
	return fmt.Errorf("%s element %d: %w", kind, i, err)
}
