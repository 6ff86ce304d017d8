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
	"math/big"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LogicalTypeKind names a recognized Avro logical type annotation.
type LogicalTypeKind int

const (
	LogicalDecimal LogicalTypeKind = iota
	LogicalUUID
	LogicalDate
	LogicalTimeMillis
	LogicalTimeMicros
	LogicalTimestampMillis
	LogicalTimestampMicros
)

// LogicalType annotates a base Schema with a richer domain type.
type LogicalType struct {
	Kind      LogicalTypeKind
	Precision int
	Scale     int
}

// Date represents a date logical-typed value as a day count since the Unix
// epoch, per spec.md §3.3.
type Date int32

// TimeUnit distinguishes millisecond and microsecond time-of-day precision.
type TimeUnit int

const (
	Millis TimeUnit = iota
	Micros
)

// TimeOfDay represents a time-millis/time-micros logical-typed value.
type TimeOfDay struct {
	Unit  TimeUnit
	Count int64
}

// wrapLogicalType wraps a base codec's binary functions with logical-type
// lifting (decode) and lowering (encode), if the schema carries one. On a
// decode-side lift failure it either falls back to the base value or raises
// a DecodeError, per cfg.logicalTypeStrict (the logical_type_fallback
// option, spec.md §6.3).
func wrapLogicalType(schema *Schema, base *codecPair, cfg *codecConfig) *codecPair {
	lt := schema.Logical
	if lt == nil {
		return base
	}

	lower, lift := logicalConverters(schema, lt)
	if lower == nil {
		return base
	}

	wrapped := &codecPair{}
	if base.binaryFromNative != nil {
		bf := base.binaryFromNative
		wrapped.binaryFromNative = func(buf []byte, datum interface{}) ([]byte, error) {
			baseDatum, err := lower(datum)
			if err != nil {
				return nil, err
			}
			return bf(buf, baseDatum)
		}
	}
	if base.nativeFromBinary != nil {
		nf := base.nativeFromBinary
		wrapped.nativeFromBinary = func(buf []byte) (interface{}, []byte, error) {
			baseValue, rest, err := nf(buf)
			if err != nil {
				return nil, nil, err
			}
			lifted, err := lift(baseValue)
			if err != nil {
				if cfg.logicalTypeStrict {
					return nil, nil, newDecodeError(DecodeErrorRuntimeIncompatible, "logical type lift failed: %s", err)
				}
				return baseValue, rest, nil
			}
			return lifted, rest, nil
		}
	}
	return wrapped
}

// logicalConverters returns the lower (domain -> base) and lift (base ->
// domain) functions for a logical type. Both are nil for an unknown logical
// kind; the schema's base kind is not checked here (applyLogicalType only
// attaches a logical type to a base kind that supports it).
func logicalConverters(schema *Schema, lt *LogicalType) (func(interface{}) (interface{}, error), func(interface{}) (interface{}, error)) {
	switch lt.Kind {
	case LogicalDecimal:
		return decimalLowerer(schema, lt), decimalLifter(schema, lt)
	case LogicalUUID:
		return uuidLower, uuidLift
	case LogicalDate:
		return dateLower, dateLift
	case LogicalTimeMillis:
		return timeOfDayLower(Millis), timeOfDayLift(Millis)
	case LogicalTimeMicros:
		return timeOfDayLower(Micros), timeOfDayLift(Micros)
	case LogicalTimestampMillis:
		return timestampLower(time.Millisecond), timestampLift(time.Millisecond)
	case LogicalTimestampMicros:
		return timestampLower(time.Microsecond), timestampLift(time.Microsecond)
	default:
		return nil, nil
	}
}

// decimalLowerer encodes a decimal.Decimal as the two's-complement
// big-endian bytes of its unscaled integer, trimmed to minimum width, per
// spec.md §4.4. When schema.Kind is Fixed the result is padded with sign
// bytes to exactly schema.Size.
func decimalLowerer(schema *Schema, lt *LogicalType) func(interface{}) (interface{}, error) {
	return func(datum interface{}) (interface{}, error) {
		d, ok := datum.(decimal.Decimal)
		if !ok {
			return nil, newEncodeError(EncodeErrorIntegerOutOfRange, "decimal logical type requires decimal.Decimal, got %T", datum)
		}
		rescaled := d.Rescale(int32(-lt.Scale))
		unscaled := rescaled.Coefficient()
		raw := twosComplementBytes(unscaled)
		if schema.Kind == Fixed {
			padded, err := padTwosComplement(raw, schema.Size)
			if err != nil {
				return nil, &EncodeError{Code: EncodeErrorFixedLengthMismatch, Msg: err.Error()}
			}
			return padded, nil
		}
		return raw, nil
	}
}

func decimalLifter(schema *Schema, lt *LogicalType) func(interface{}) (interface{}, error) {
	return func(baseValue interface{}) (interface{}, error) {
		raw, ok := baseValue.([]byte)
		if !ok {
			return nil, newDecodeError(DecodeErrorRuntimeIncompatible, "decimal logical type requires bytes, got %T", baseValue)
		}
		unscaled := bigIntFromTwosComplement(raw)
		return decimal.NewFromBigInt(unscaled, int32(-lt.Scale)), nil
	}
}

func twosComplementBytes(n *big.Int) []byte {
	if n.Sign() == 0 {
		return []byte{0}
	}
	if n.Sign() > 0 {
		b := n.Bytes()
		if len(b) == 0 || b[0]&0x80 != 0 {
			b = append([]byte{0}, b...)
		}
		return b
	}
	// Two's complement of a negative number: invert magnitude bits, add 1,
	// across the minimal width that keeps the sign bit set.
	// The widest magnitude that fits in k bytes is 2^(8k-1), so the width is
	// set by the bit length of mag-1.
	mag := new(big.Int).Neg(n)
	bitLen := new(big.Int).Sub(mag, big.NewInt(1)).BitLen()
	nBytes := bitLen/8 + 1
	mod := new(big.Int).Lsh(big.NewInt(1), uint(nBytes*8))
	twos := new(big.Int).Sub(mod, mag)
	b := twos.Bytes()
	for len(b) < nBytes {
		b = append([]byte{0xff}, b...)
	}
	return b[len(b)-nBytes:]
}

func bigIntFromTwosComplement(b []byte) *big.Int {
	if len(b) == 0 {
		return big.NewInt(0)
	}
	n := new(big.Int).SetBytes(b)
	if b[0]&0x80 != 0 {
		mod := new(big.Int).Lsh(big.NewInt(1), uint(len(b)*8))
		n.Sub(n, mod)
	}
	return n
}

func padTwosComplement(raw []byte, size int) ([]byte, error) {
	if len(raw) > size {
		return nil, fmt.Errorf("decimal unscaled value needs %d bytes, fixed size is %d", len(raw), size)
	}
	pad := byte(0)
	if raw[0]&0x80 != 0 {
		pad = 0xff
	}
	out := make([]byte, size)
	for i := 0; i < size-len(raw); i++ {
		out[i] = pad
	}
	copy(out[size-len(raw):], raw)
	return out, nil
}

func uuidLower(datum interface{}) (interface{}, error) {
	switch v := datum.(type) {
	case uuid.UUID:
		return v.String(), nil
	case string:
		return v, nil
	default:
		return nil, newEncodeError(EncodeErrorIntegerOutOfRange, "uuid logical type requires uuid.UUID or string, got %T", datum)
	}
}

func uuidLift(baseValue interface{}) (interface{}, error) {
	s, ok := baseValue.(string)
	if !ok {
		return nil, newDecodeError(DecodeErrorRuntimeIncompatible, "uuid logical type requires string, got %T", baseValue)
	}
	return uuid.Parse(s)
}

func dateLower(datum interface{}) (interface{}, error) {
	switch v := datum.(type) {
	case Date:
		return int32(v), nil
	case time.Time:
		days := v.UTC().Unix() / 86400
		return int32(days), nil
	default:
		return nil, newEncodeError(EncodeErrorIntegerOutOfRange, "date logical type requires avro.Date or time.Time, got %T", datum)
	}
}

func dateLift(baseValue interface{}) (interface{}, error) {
	i, ok := baseValue.(int32)
	if !ok {
		return nil, newDecodeError(DecodeErrorRuntimeIncompatible, "date logical type requires int32, got %T", baseValue)
	}
	return Date(i), nil
}

func timeOfDayLower(unit TimeUnit) func(interface{}) (interface{}, error) {
	return func(datum interface{}) (interface{}, error) {
		t, ok := datum.(TimeOfDay)
		if !ok {
			return nil, newEncodeError(EncodeErrorIntegerOutOfRange, "time-of-day logical type requires avro.TimeOfDay, got %T", datum)
		}
		if unit == Millis {
			return int32(t.Count), nil
		}
		return t.Count, nil
	}
}

func timeOfDayLift(unit TimeUnit) func(interface{}) (interface{}, error) {
	return func(baseValue interface{}) (interface{}, error) {
		switch v := baseValue.(type) {
		case int32:
			return TimeOfDay{Unit: unit, Count: int64(v)}, nil
		case int64:
			return TimeOfDay{Unit: unit, Count: v}, nil
		default:
			return nil, newDecodeError(DecodeErrorRuntimeIncompatible, "time-of-day logical type requires int32/int64, got %T", baseValue)
		}
	}
}

func timestampLower(unit time.Duration) func(interface{}) (interface{}, error) {
	return func(datum interface{}) (interface{}, error) {
		t, ok := datum.(time.Time)
		if !ok {
			return nil, newEncodeError(EncodeErrorIntegerOutOfRange, "timestamp logical type requires time.Time, got %T", datum)
		}
		switch unit {
		case time.Millisecond:
			return t.UnixMilli(), nil
		default:
			return t.UnixMicro(), nil
		}
	}
}

func timestampLift(unit time.Duration) func(interface{}) (interface{}, error) {
	return func(baseValue interface{}) (interface{}, error) {
		v, ok := baseValue.(int64)
		if !ok {
			return nil, newDecodeError(DecodeErrorRuntimeIncompatible, "timestamp logical type requires int64, got %T", baseValue)
		}
		switch unit {
		case time.Millisecond:
			return time.UnixMilli(v).UTC(), nil
		default:
			return time.UnixMicro(v).UTC(), nil
		}
	}
}
