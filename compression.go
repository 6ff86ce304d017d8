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
	"bytes"
	"fmt"
	"hash/crc32"
	"io"
	"sync"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/flate"
)

// CompressionCodec is the interface an object-container file reader/writer
// consumes to compress and decompress a block's payload. This core does not
// implement object-container framing itself (spec.md §1 "external
// collaborators"); it ships this registry so that layer has a concrete place
// to get `null`, `deflate`, and `snappy` without reimplementing them.
type CompressionCodec interface {
	// Name is the value that appears in an object-container file's
	// avro.codec metadata entry.
	Name() string
	Compress(dst []byte, src []byte) ([]byte, error)
	Decompress(src []byte) ([]byte, error)
}

var (
	compressionRegistryMu sync.RWMutex
	compressionRegistry   = map[string]CompressionCodec{}
)

func init() {
	RegisterCompressionCodec(nullCodec{})
	RegisterCompressionCodec(deflateCodec{})
	RegisterCompressionCodec(snappyCodec{})
}

// RegisterCompressionCodec adds or replaces the codec for its Name() in the
// package-wide registry. An object-container implementation wiring up
// bzip2/xz/zstandard support calls this to register its own codec under that
// name, per spec.md §6.2.
func RegisterCompressionCodec(c CompressionCodec) {
	compressionRegistryMu.Lock()
	defer compressionRegistryMu.Unlock()
	compressionRegistry[c.Name()] = c
}

// LookupCompressionCodec returns the codec registered for name, or an error
// naming which of the six recognized codec names (spec.md §6.2) has no
// bundled implementation versus is entirely unrecognized.
func LookupCompressionCodec(name string) (CompressionCodec, error) {
	compressionRegistryMu.RLock()
	c, ok := compressionRegistry[name]
	compressionRegistryMu.RUnlock()
	if ok {
		return c, nil
	}
	if _, known := recognizedCodecNames[name]; known {
		return nil, fmt.Errorf("avro: codec %q is a recognized name with no bundled implementation in this core; register one with RegisterCompressionCodec", name)
	}
	return nil, fmt.Errorf("avro: unrecognized compression codec %q", name)
}

var recognizedCodecNames = map[string]bool{
	"null":      true,
	"deflate":   true,
	"snappy":    true,
	"bzip2":     true,
	"xz":        true,
	"zstandard": true,
}

// nullCodec is the identity codec: no compression.
type nullCodec struct{}

func (nullCodec) Name() string { return "null" }

func (nullCodec) Compress(dst, src []byte) ([]byte, error) {
	return append(dst, src...), nil
}

func (nullCodec) Decompress(src []byte) ([]byte, error) {
	out := make([]byte, len(src))
	copy(out, src)
	return out, nil
}

// deflateCodec compresses with raw (headerless) DEFLATE, per the Avro spec's
// deflate codec definition. Grounded on klauspost/compress/flate, the
// compression library the pack's other Avro repos (hamba/avro, arg0net-avro,
// per their manifests) use for exactly this purpose.
type deflateCodec struct{}

func (deflateCodec) Name() string { return "deflate" }

func (deflateCodec) Compress(dst, src []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, flate.DefaultCompression)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(src); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return append(dst, buf.Bytes()...), nil
}

func (deflateCodec) Decompress(src []byte) ([]byte, error) {
	r := flate.NewReader(bytes.NewReader(src))
	defer r.Close()
	return io.ReadAll(r)
}

// snappyCodec wraps github.com/golang/snappy, the teacher's own dependency
// (previously unused by the retrieved union.go/binary_test.go slice). Per
// spec.md §6.2, an Avro snappy block is followed by a 4-byte big-endian
// CRC32 of the decompressed payload.
type snappyCodec struct{}

func (snappyCodec) Name() string { return "snappy" }

func (snappyCodec) Compress(dst, src []byte) ([]byte, error) {
	compressed := snappy.Encode(nil, src)
	dst = append(dst, compressed...)
	checksum := crc32.ChecksumIEEE(src)
	return append(dst, byte(checksum>>24), byte(checksum>>16), byte(checksum>>8), byte(checksum)), nil
}

func (snappyCodec) Decompress(src []byte) ([]byte, error) {
	if len(src) < 4 {
		return nil, fmt.Errorf("avro: snappy block too short for trailing CRC32")
	}
	body, wantCRC := src[:len(src)-4], src[len(src)-4:]
	decoded, err := snappy.Decode(nil, body)
	if err != nil {
		return nil, err
	}
	got := crc32.ChecksumIEEE(decoded)
	want := uint32(wantCRC[0])<<24 | uint32(wantCRC[1])<<16 | uint32(wantCRC[2])<<8 | uint32(wantCRC[3])
	if got != want {
		return nil, fmt.Errorf("avro: snappy block CRC32 mismatch: got %08x, want %08x", got, want)
	}
	return decoded, nil
}
