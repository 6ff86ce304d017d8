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

// resolution is the compiled read-side action for one (writer, reader)
// schema pair: a closure that decodes a writer-framed value off the wire
// and returns it shaped to conform to the reader schema. This mirrors
// go-avro/avro's Projection/newProjection closure-tree design
// (datum_projector.go), translated from that file's reflect.Value-target
// convention into this repo's native-interface{}-returning convention so it
// composes with the rest of the C4 codec tree.
type resolution struct {
	nativeFromBinary func(buf []byte) (interface{}, []byte, error)
}

// resolveBuilder threads configuration and memoization through one planning
// pass. cache breaks cycles in recursive (W, R) pairs exactly as buildCodec's
// st does for a plain schema, keyed on the pair of fullnames rather than one
// fullname — see SPEC_FULL.md §9 "Recursive named types" and DESIGN.md's
// open question on misaligned cycle lengths.
type resolveBuilder struct {
	cfg      *codecConfig
	writerSt map[string]*codecPair
	cache    map[[2]string]*resolution
}

// NewResolvedCodec plans and compiles schema resolution from writer to
// reader (C5). The returned Codec's NativeFromBinary reads bytes framed
// under writer and yields values conforming to reader; its
// BinaryFromNative always returns ErrNotEncodable, since resolution is a
// read-side-only concept (spec.md §6.1).
func NewResolvedCodec(writer, reader *Schema, opts ...CodecOption) (*Codec, error) {
	cfg := buildCodecConfig(opts)
	rb := &resolveBuilder{
		cfg:      cfg,
		writerSt: make(map[string]*codecPair),
		cache:    make(map[[2]string]*resolution),
	}
	res, err := rb.resolve(writer, reader)
	if err != nil {
		return nil, err
	}
	return &Codec{
		schema: reader,
		cfg:    cfg,
		pair:   &codecPair{nativeFromBinary: res.nativeFromBinary},
	}, nil
}

func (rb *resolveBuilder) skipDecoder(writer *Schema) (*codecPair, error) {
	return buildCodec(rb.writerSt, writer, &codecBuilder{cfg: rb.cfg})
}

func (rb *resolveBuilder) resolve(writer, reader *Schema) (*resolution, error) {
	var cacheKey [2]string
	cacheable := writer.Name != nil && reader.Name != nil
	if cacheable {
		cacheKey = [2]string{writer.FullName(), reader.FullName()}
		if existing, ok := rb.cache[cacheKey]; ok {
			return existing, nil
		}
	}
	placeholder := &resolution{}
	if cacheable {
		rb.cache[cacheKey] = placeholder
	}

	built, err := rb.resolveKind(writer, reader)
	if err != nil {
		if cacheable {
			delete(rb.cache, cacheKey)
		}
		return nil, err
	}
	*placeholder = *built
	return placeholder, nil
}

func (rb *resolveBuilder) resolveKind(writer, reader *Schema) (*resolution, error) {
	switch {
	case writer.Kind == Union:
		return rb.resolveWriterUnion(writer, reader)
	case reader.Kind == Union:
		return rb.resolveReaderOnlyUnion(writer, reader)
	case writer.Kind == reader.Kind:
		return rb.resolveSameKind(writer, reader)
	default:
		return rb.resolvePromotion(writer, reader)
	}
}

// resolveWriterUnion reads the writer's branch index, then dispatches to a
// per-branch resolution against reader — spec.md §4.5 "Union on W".
func (rb *resolveBuilder) resolveWriterUnion(writer, reader *Schema) (*resolution, error) {
	branchRes := make([]*resolution, len(writer.Branches))
	for i, b := range writer.Branches {
		r, err := rb.resolve(b, reader)
		if err != nil {
			return nil, fmt.Errorf("union branch %d (%s): %w", i, b.String(), err)
		}
		branchRes[i] = r
	}
	nativeFromBinary := func(buf []byte) (interface{}, []byte, error) {
		decoded, rest, err := longNativeFromBinary(buf)
		if err != nil {
			return nil, nil, err
		}
		index := decoded.(int64)
		if index < 0 || index >= int64(len(branchRes)) {
			return nil, nil, newDecodeError(DecodeErrorUnionIndexOutOfRange, "union: index %d out of range [0,%d)", index, len(branchRes))
		}
		return branchRes[index].nativeFromBinary(rest)
	}
	return &resolution{nativeFromBinary: nativeFromBinary}, nil
}

// resolveReaderOnlyUnion matches the (non-union) writer schema against the
// first reader branch it can resolve against — spec.md §4.5 "Union on R
// only": "W's resolved value must match exactly one branch of R; ambiguity
// picks the first."
func (rb *resolveBuilder) resolveReaderOnlyUnion(writer, reader *Schema) (*resolution, error) {
	var lastErr error
	for _, rBranch := range reader.Branches {
		res, err := rb.resolve(writer, rBranch)
		if err != nil {
			lastErr = err
			continue
		}
		branch := rBranch
		nativeFromBinary := func(buf []byte) (interface{}, []byte, error) {
			value, rest, err := res.nativeFromBinary(buf)
			if err != nil {
				return nil, nil, err
			}
			if branch.Kind == Record || branch.Kind == Enum || branch.Kind == Fixed {
				return map[string]interface{}{branch.FullName(): value}, rest, nil
			}
			return value, rest, nil
		}
		return &resolution{nativeFromBinary: nativeFromBinary}, nil
	}
	if lastErr != nil {
		return nil, fmt.Errorf("writer %s matches no branch of reader union: %w", writer.String(), lastErr)
	}
	return nil, newIncompatibleError("writer %s matches no branch of reader union", writer.String())
}

func (rb *resolveBuilder) resolveSameKind(writer, reader *Schema) (*resolution, error) {
	switch writer.Kind {
	case Record:
		return rb.resolveRecord(writer, reader)
	case Enum:
		return rb.resolveEnum(writer, reader)
	case Fixed:
		return rb.resolveFixed(writer, reader)
	case Array:
		return rb.resolveArray(writer, reader)
	case Map:
		return rb.resolveMap(writer, reader)
	default:
		// Primitive identity: the writer's own decoder already yields a
		// value of the right native shape.
		pair, err := buildCodec(rb.writerSt, writer, &codecBuilder{cfg: rb.cfg})
		if err != nil {
			return nil, err
		}
		return &resolution{nativeFromBinary: pair.nativeFromBinary}, nil
	}
}

// recordFieldsMatch reports whether writer field w matches reader
// field r by name or by alias, per spec.md §4.5 "match R's fields to W's by
// name or alias".
func recordFieldsMatch(w *Field, r *Field) bool {
	if w.Name == r.Name {
		return true
	}
	for _, a := range r.Aliases {
		if a == w.Name {
			return true
		}
	}
	for _, a := range w.Aliases {
		if a == r.Name {
			return true
		}
	}
	return false
}

type recordFieldAction struct {
	skip      *codecPair // non-nil: W-only field, decode and discard
	res       *resolution
	readerIdx int
}

func (rb *resolveBuilder) resolveRecord(writer, reader *Schema) (*resolution, error) {
	matchedReader := make([]bool, len(reader.Fields))
	actions := make([]recordFieldAction, len(writer.Fields))

	for wi, wf := range writer.Fields {
		ri := -1
		for i, rf := range reader.Fields {
			if !matchedReader[i] && recordFieldsMatch(wf, rf) {
				ri = i
				break
			}
		}
		if ri < 0 {
			skip, err := rb.skipDecoder(wf.Type)
			if err != nil {
				return nil, err
			}
			actions[wi] = recordFieldAction{skip: skip, readerIdx: -1}
			continue
		}
		matchedReader[ri] = true
		res, err := rb.resolve(wf.Type, reader.Fields[ri].Type)
		if err != nil {
			return nil, fmt.Errorf("record %s field %q: %w", reader.FullName(), wf.Name, err)
		}
		actions[wi] = recordFieldAction{res: res, readerIdx: ri}
	}

	// Any reader field never matched by a writer field needs a default;
	// its absence is a compatibility error detected here, at plan time.
	type readerOnly struct {
		name string
		def  interface{}
	}
	var readerOnlyFields []readerOnly
	for i, rf := range reader.Fields {
		if matchedReader[i] {
			continue
		}
		if !rf.HasDefault {
			return nil, newIncompatibleError("record %s: reader field %q has no writer counterpart and no default", reader.FullName(), rf.Name)
		}
		readerOnlyFields = append(readerOnlyFields, readerOnly{name: rf.Name, def: rf.Default})
	}
	readerFieldNames := make([]string, len(reader.Fields))
	for i, rf := range reader.Fields {
		readerFieldNames[i] = rf.Name
	}

	nativeFromBinary := func(buf []byte) (interface{}, []byte, error) {
		out := make(map[string]interface{}, len(reader.Fields))
		for _, a := range actions {
			if a.skip != nil {
				var err error
				_, buf, err = a.skip.nativeFromBinary(buf)
				if err != nil {
					return nil, nil, err
				}
				continue
			}
			var v interface{}
			var err error
			v, buf, err = a.res.nativeFromBinary(buf)
			if err != nil {
				return nil, nil, err
			}
			out[readerFieldNames[a.readerIdx]] = v
		}
		for _, rof := range readerOnlyFields {
			out[rof.name] = deepcopy.Copy(rof.def)
		}
		return out, buf, nil
	}
	return &resolution{nativeFromBinary: nativeFromBinary}, nil
}

func (rb *resolveBuilder) resolveEnum(writer, reader *Schema) (*resolution, error) {
	readerIndex := make(map[string]bool, len(reader.Symbols))
	for _, s := range reader.Symbols {
		readerIndex[s] = true
	}
	resolved := make([]string, len(writer.Symbols))
	valid := make([]bool, len(writer.Symbols))
	for i, s := range writer.Symbols {
		if readerIndex[s] {
			resolved[i] = s
			valid[i] = true
		} else if reader.hasEnumDefault {
			resolved[i] = reader.EnumDefault
			valid[i] = true
		}
	}
	fullName := reader.FullName()
	nativeFromBinary := func(buf []byte) (interface{}, []byte, error) {
		decoded, rest, err := longNativeFromBinary(buf)
		if err != nil {
			return nil, nil, err
		}
		idx := decoded.(int64)
		if idx < 0 || idx >= int64(len(resolved)) {
			return nil, nil, newDecodeError(DecodeErrorEnumIndexOutOfRange, "enum %s: index %d out of range", fullName, idx)
		}
		if !valid[idx] {
			return nil, nil, newDecodeError(DecodeErrorRuntimeIncompatible, "enum %s: writer symbol %q has no reader counterpart and no reader default", fullName, writer.Symbols[idx])
		}
		return resolved[idx], rest, nil
	}
	return &resolution{nativeFromBinary: nativeFromBinary}, nil
}

func (rb *resolveBuilder) resolveFixed(writer, reader *Schema) (*resolution, error) {
	if writer.FullName() != reader.FullName() || writer.Size != reader.Size {
		return nil, newIncompatibleError("fixed %s (size %d) incompatible with reader fixed %s (size %d)", writer.FullName(), writer.Size, reader.FullName(), reader.Size)
	}
	pair, err := buildCodec(rb.writerSt, reader, &codecBuilder{cfg: rb.cfg})
	if err != nil {
		return nil, err
	}
	return &resolution{nativeFromBinary: pair.nativeFromBinary}, nil
}

func (rb *resolveBuilder) resolveArray(writer, reader *Schema) (*resolution, error) {
	itemRes, err := rb.resolve(writer.Items, reader.Items)
	if err != nil {
		return nil, fmt.Errorf("array items: %w", err)
	}
	cfg := rb.cfg
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
				item, buf, err = itemRes.nativeFromBinary(buf)
				if err != nil {
					return nil, nil, err
				}
				items = append(items, item)
			}
		}
	}
	return &resolution{nativeFromBinary: nativeFromBinary}, nil
}

func (rb *resolveBuilder) resolveMap(writer, reader *Schema) (*resolution, error) {
	valueRes, err := rb.resolve(writer.Values, reader.Values)
	if err != nil {
		return nil, fmt.Errorf("map values: %w", err)
	}
	cfg := rb.cfg
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
				value, buf, err = valueRes.nativeFromBinary(buf)
				if err != nil {
					return nil, nil, err
				}
				m[key.(string)] = value
			}
		}
	}
	return &resolution{nativeFromBinary: nativeFromBinary}, nil
}

// promotion lists the widenings permitted on decode per spec.md §4.5/GLOSSARY.
var promotion = map[Kind]map[Kind]bool{
	Int:    {Long: true, Float: true, Double: true},
	Long:   {Float: true, Double: true},
	Float:  {Double: true},
	String: {Bytes: true},
	Bytes:  {String: true},
}

func (rb *resolveBuilder) resolvePromotion(writer, reader *Schema) (*resolution, error) {
	if !promotion[writer.Kind][reader.Kind] {
		return nil, newIncompatibleError("writer %s cannot be read as reader %s", writer.String(), reader.String())
	}
	writerPair, err := buildCodec(rb.writerSt, writer, &codecBuilder{cfg: rb.cfg})
	if err != nil {
		return nil, err
	}
	widen := promotionWidener(writer.Kind, reader.Kind)
	nativeFromBinary := func(buf []byte) (interface{}, []byte, error) {
		v, rest, err := writerPair.nativeFromBinary(buf)
		if err != nil {
			return nil, nil, err
		}
		return widen(v), rest, nil
	}
	return &resolution{nativeFromBinary: nativeFromBinary}, nil
}

func promotionWidener(from, to Kind) func(interface{}) interface{} {
	switch {
	case from == Int && to == Long:
		return func(v interface{}) interface{} { return int64(v.(int32)) }
	case from == Int && to == Float:
		return func(v interface{}) interface{} { return float32(v.(int32)) }
	case from == Int && to == Double:
		return func(v interface{}) interface{} { return float64(v.(int32)) }
	case from == Long && to == Float:
		return func(v interface{}) interface{} { return float32(v.(int64)) }
	case from == Long && to == Double:
		return func(v interface{}) interface{} { return float64(v.(int64)) }
	case from == Float && to == Double:
		return func(v interface{}) interface{} { return float64(v.(float32)) }
	case from == String && to == Bytes:
		return func(v interface{}) interface{} { return []byte(v.(string)) }
	case from == Bytes && to == String:
		return func(v interface{}) interface{} { return string(v.([]byte)) }
	default:
		return func(v interface{}) interface{} { return v }
	}
}
