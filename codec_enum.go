// Copyright [2019] LinkedIn Corp. Licensed under the Apache License, Version
// 2.0 (the "License"); you may not use this file except in compliance with the
// License.  You may obtain a copy of the License at
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS, WITHOUT
// WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.

package avro

// buildEnumCodec compiles an enum schema: an int index into the symbol
// list, per spec.md §4.3/§4.4.
func buildEnumCodec(schema *Schema) (*codecPair, error) {
	indexFromSymbol := make(map[string]int32, len(schema.Symbols))
	for i, s := range schema.Symbols {
		indexFromSymbol[s] = int32(i)
	}
	symbols := schema.Symbols

	binaryFromNative := func(buf []byte, datum interface{}) ([]byte, error) {
		var symbol string
		switch v := datum.(type) {
		case string:
			symbol = v
		case avroEnum:
			symbol = v.Str()
		default:
			return nil, newEncodeError(EncodeErrorUnknownEnumSymbol, "enum %s: received: %T", schema.FullName(), datum)
		}
		idx, ok := indexFromSymbol[symbol]
		if !ok {
			return nil, newEncodeError(EncodeErrorUnknownEnumSymbol, "enum %s: symbol %q not among %v", schema.FullName(), symbol, symbols)
		}
		return appendVarint(buf, int64(idx)), nil
	}

	nativeFromBinary := func(buf []byte) (interface{}, []byte, error) {
		decoded, rest, err := longNativeFromBinary(buf)
		if err != nil {
			return nil, nil, err
		}
		idx := decoded.(int64)
		if idx < 0 || idx >= int64(len(symbols)) {
			return nil, nil, newDecodeError(DecodeErrorEnumIndexOutOfRange, "enum %s: index %d out of range [0,%d)", schema.FullName(), idx, len(symbols))
		}
		return symbols[idx], rest, nil
	}

	return &codecPair{binaryFromNative: binaryFromNative, nativeFromBinary: nativeFromBinary}, nil
}
