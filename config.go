// Copyright [2019] LinkedIn Corp. Licensed under the Apache License, Version
// 2.0 (the "License"); you may not use this file except in compliance with the
// License.  You may obtain a copy of the License at
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS, WITHOUT
// WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.

package avro

// defaultMaxBlockBytes is the default ceiling (1 GiB) applied to any
// wire-declared length prefix: strings, bytes, fixed-size block byte-counts.
const defaultMaxBlockBytes = int64(1) << 30

// codecConfig is the compiled, immutable configuration closed over by every
// encoder/decoder func a Codec builds. It is never mutated after NewCodec
// returns, so a *Codec built from it is safe for concurrent use.
type codecConfig struct {
	maxBlockBytes     int64
	strictUnionMatch  bool
	logicalTypeStrict bool
}

func defaultCodecConfig() *codecConfig {
	return &codecConfig{
		maxBlockBytes:     defaultMaxBlockBytes,
		strictUnionMatch:  false,
		logicalTypeStrict: false,
	}
}

// CodecOption configures a Codec at construction time. See WithMaxBlockBytes,
// WithStrictUnionMatch and WithLogicalTypeFallback.
type CodecOption func(*codecConfig)

// WithMaxBlockBytes caps the byte length a single length-prefixed field
// (string, bytes, or an array/map block's byte-size) may declare before
// decoding refuses to proceed with DecodeErrorLengthLimit. Default 1 GiB.
func WithMaxBlockBytes(n int64) CodecOption {
	return func(cfg *codecConfig) { cfg.maxBlockBytes = n }
}

// WithStrictUnionMatch disables the permissive encoder behavior described in
// spec.md §4.4/§9: a missing union-typed field is no longer silently treated
// as a null branch selection. Schema parsing always validates a union field's
// default against any branch (ParseSchema has no codec configuration to
// consult, and a parsed Schema may back codecs built with different
// options), so this option does not retroactively tighten default
// validation — only the encode-time missing-field behavior.
func WithStrictUnionMatch() CodecOption {
	return func(cfg *codecConfig) { cfg.strictUnionMatch = true }
}

// WithLogicalTypeFallback controls decode-time behavior when a logical type
// lift fails (e.g. malformed decimal bytes). enabled (the default) returns
// the underlying base value; disabling it raises a DecodeError instead.
func WithLogicalTypeFallback(enabled bool) CodecOption {
	return func(cfg *codecConfig) { cfg.logicalTypeStrict = !enabled }
}

func buildCodecConfig(opts []CodecOption) *codecConfig {
	cfg := defaultCodecConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}
