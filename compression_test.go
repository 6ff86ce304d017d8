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
	"testing"
)

func TestCompressionNullRoundTrip(t *testing.T) {
	c, err := LookupCompressionCodec("null")
	if err != nil {
		t.Fatal(err)
	}
	payload := []byte("hello, avro")
	compressed, err := c.Compress(nil, payload)
	if err != nil {
		t.Fatal(err)
	}
	decompressed, err := c.Decompress(compressed)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(decompressed, payload) {
		t.Errorf("GOT: %q; WANT: %q", decompressed, payload)
	}
}

func TestCompressionDeflateRoundTrip(t *testing.T) {
	c, err := LookupCompressionCodec("deflate")
	if err != nil {
		t.Fatal(err)
	}
	payload := bytes.Repeat([]byte("the quick brown fox "), 50)
	compressed, err := c.Compress(nil, payload)
	if err != nil {
		t.Fatal(err)
	}
	if len(compressed) >= len(payload) {
		t.Errorf("deflate did not shrink a repetitive payload: %d >= %d", len(compressed), len(payload))
	}
	decompressed, err := c.Decompress(compressed)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(decompressed, payload) {
		t.Errorf("GOT: %q; WANT: %q", decompressed, payload)
	}
}

// TestCompressionSnappyRoundTrip also covers spec.md §6.2's trailing
// "4-byte big-endian CRC32 of the decompressed block" requirement.
func TestCompressionSnappyRoundTrip(t *testing.T) {
	c, err := LookupCompressionCodec("snappy")
	if err != nil {
		t.Fatal(err)
	}
	payload := []byte("snappy payload for an avro block")
	compressed, err := c.Compress(nil, payload)
	if err != nil {
		t.Fatal(err)
	}
	decompressed, err := c.Decompress(compressed)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(decompressed, payload) {
		t.Errorf("GOT: %q; WANT: %q", decompressed, payload)
	}
}

func TestCompressionSnappyCRCMismatch(t *testing.T) {
	c, err := LookupCompressionCodec("snappy")
	if err != nil {
		t.Fatal(err)
	}
	compressed, err := c.Compress(nil, []byte("payload"))
	if err != nil {
		t.Fatal(err)
	}
	compressed[len(compressed)-1] ^= 0xff
	_, err = c.Decompress(compressed)
	ensureError(t, err, "CRC32 mismatch")
}

func TestCompressionRecognizedNameWithoutCodec(t *testing.T) {
	_, err := LookupCompressionCodec("zstandard")
	ensureError(t, err, "no bundled implementation")
}

func TestCompressionUnrecognizedName(t *testing.T) {
	_, err := LookupCompressionCodec("made-up-codec")
	ensureError(t, err, "unrecognized compression codec")
}

func TestCompressionRegisterCustomCodec(t *testing.T) {
	RegisterCompressionCodec(nullCodec{}) // re-register is idempotent
	c, err := LookupCompressionCodec("null")
	if err != nil {
		t.Fatal(err)
	}
	if c.Name() != "null" {
		t.Errorf("GOT: %s; WANT: null", c.Name())
	}
}
