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

// codecPair is the compiled dispatch state for one schema node: a pair of
// closures built once by buildCodec and invoked per message thereafter. This
// is the teacher's own strategy (a *Codec holding binaryFromNative/
// nativeFromBinary func fields) — option (a) from spec.md §9 — rather than
// bytecode or monomorphization.
type codecPair struct {
	binaryFromNative func(buf []byte, datum interface{}) ([]byte, error)
	nativeFromBinary func(buf []byte) (interface{}, []byte, error)
}

// Codec is a compiled encoder/decoder pair for one schema, or (when built by
// NewResolvedCodec) a resolved decoder for a writer/reader schema pair. It
// holds no mutable state beyond its immutable schema and config, so a single
// *Codec may be shared and invoked concurrently by multiple goroutines, each
// on its own buffer.
type Codec struct {
	schema *Schema
	cfg    *codecConfig
	pair   *codecPair
}

// Schema returns the (reader, for a resolved Codec) schema this Codec was
// compiled for.
func (c *Codec) Schema() *Schema { return c.schema }

// BinaryFromNative encodes datum per c.Schema(), appending to buf and
// returning the extended slice. Returns ErrNotEncodable for a Codec built by
// NewResolvedCodec, since resolution is a read-side-only concept.
func (c *Codec) BinaryFromNative(buf []byte, datum interface{}) ([]byte, error) {
	if c.pair.binaryFromNative == nil {
		return nil, ErrNotEncodable
	}
	return c.pair.binaryFromNative(buf, datum)
}

// NativeFromBinary decodes one value from the front of buf, per c.Schema(),
// returning the decoded value and the remaining, unconsumed bytes.
func (c *Codec) NativeFromBinary(buf []byte) (interface{}, []byte, error) {
	return c.pair.nativeFromBinary(buf)
}

// NewCodec parses jsonSchema and compiles it in one step — the teacher's own
// ergonomic convention. It realizes both compile_encoder and compile_decoder
// from spec.md §6.1.
func NewCodec(jsonSchema string, opts ...CodecOption) (*Codec, error) {
	schema, err := ParseSchema(jsonSchema)
	if err != nil {
		return nil, err
	}
	return NewCodecForSchema(schema, opts...)
}

// NewCodecForSchema compiles an already-parsed Schema. Idempotent and
// referentially transparent: compiling the same schema twice yields two
// Codecs that behave identically, though they need not be the same object.
func NewCodecForSchema(schema *Schema, opts ...CodecOption) (*Codec, error) {
	cfg := buildCodecConfig(opts)
	cb := &codecBuilder{cfg: cfg}
	st := make(map[string]*codecPair)
	pair, err := buildCodec(st, schema, cb)
	if err != nil {
		return nil, err
	}
	return &Codec{schema: schema, cfg: cfg, pair: pair}, nil
}

// codecBuilder threads build-time configuration through buildCodec and its
// per-kind helpers. The teacher's own buildCodec carries an analogous
// *codecBuilder parameter alongside its symbol table.
type codecBuilder struct {
	cfg *codecConfig
}

// buildCodec compiles schema into a codecPair, memoizing named schemas in st
// by fullname. A named schema is registered in st *before* its children are
// compiled, so a record (directly or transitively) referencing itself gets
// back the same, not-yet-fully-populated *codecPair; by the time any
// invocation happens, construction has finished and every field has been
// filled in — see SPEC_FULL.md §9 "Recursive named types".
func buildCodec(st map[string]*codecPair, schema *Schema, cb *codecBuilder) (*codecPair, error) {
	if schema.Name != nil {
		if existing, ok := st[schema.Name.fullName]; ok {
			return existing, nil
		}
	}
	pair := &codecPair{}
	if schema.Name != nil {
		st[schema.Name.fullName] = pair
	}

	built, err := buildCodecKind(st, schema, cb)
	if err != nil {
		if schema.Name != nil {
			delete(st, schema.Name.fullName)
		}
		return nil, err
	}
	built = wrapLogicalType(schema, built, cb.cfg)
	*pair = *built
	return pair, nil
}

func buildCodecKind(st map[string]*codecPair, schema *Schema, cb *codecBuilder) (*codecPair, error) {
	switch schema.Kind {
	case Null:
		return &codecPair{nullBinaryFromNative, nullNativeFromBinary}, nil
	case Boolean:
		return &codecPair{booleanBinaryFromNative, booleanNativeFromBinary}, nil
	case Int:
		return &codecPair{intBinaryFromNative, intNativeFromBinary}, nil
	case Long:
		return &codecPair{longBinaryFromNative, longNativeFromBinary}, nil
	case Float:
		return &codecPair{floatBinaryFromNative, floatNativeFromBinary}, nil
	case Double:
		return &codecPair{doubleBinaryFromNative, doubleNativeFromBinary}, nil
	case Bytes:
		return &codecPair{bytesBinaryFromNative, bytesNativeFromBinary(cb.cfg)}, nil
	case String:
		return &codecPair{stringBinaryFromNative, stringNativeFromBinary(cb.cfg)}, nil
	case Fixed:
		return buildFixedCodec(schema), nil
	case Enum:
		return buildEnumCodec(schema)
	case Array:
		return buildArrayCodec(st, schema, cb)
	case Map:
		return buildMapCodec(st, schema, cb)
	case Record:
		return buildRecordCodec(st, schema, cb)
	case Union:
		return buildUnionCodec(st, schema, cb)
	default:
		return nil, fmt.Errorf("avro: unknown schema kind %v", schema.Kind)
	}
}
