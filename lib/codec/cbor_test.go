// Copyright 2026 The gen192 Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"bytes"
	"io"
	"reflect"
	"testing"
)

type testRecord struct {
	Tag    string   `cbor:"tag"`
	Commit string   `cbor:"commit"`
	Assets []string `cbor:"assets,omitempty"`
}

func TestMarshalDeterministic(t *testing.T) {
	record := testRecord{Tag: "dev", Commit: "abc123", Assets: []string{"a.zip", "b.zip"}}

	first, err := Marshal(record)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	second, err := Marshal(record)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Error("identical records produced different encodings")
	}
}

func TestRoundTrip(t *testing.T) {
	original := testRecord{Tag: "dev", Commit: "abc123"}

	data, err := Marshal(original)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var decoded testRecord
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !reflect.DeepEqual(original, decoded) {
		t.Errorf("round trip mismatch: got %+v, want %+v", decoded, original)
	}
}

func TestUnmarshalIgnoresUnknownFields(t *testing.T) {
	// A record from a future version with an extra field must still
	// decode into the current struct.
	data, err := Marshal(map[string]any{
		"tag":          "dev",
		"commit":       "abc123",
		"future_field": 42,
	})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var decoded testRecord
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if decoded.Tag != "dev" || decoded.Commit != "abc123" {
		t.Errorf("decoded = %+v", decoded)
	}
}

func TestStreamEncodeDecode(t *testing.T) {
	var buffer bytes.Buffer
	encoder := NewEncoder(&buffer)

	records := []testRecord{
		{Tag: "dev", Commit: "aaa111"},
		{Tag: "dev", Commit: "bbb222", Assets: []string{"docs-v2.zip"}},
	}
	for _, record := range records {
		if err := encoder.Encode(record); err != nil {
			t.Fatalf("Encode: %v", err)
		}
	}

	decoder := NewDecoder(&buffer)
	var replayed []testRecord
	for {
		var record testRecord
		if err := decoder.Decode(&record); err == io.EOF {
			break
		} else if err != nil {
			t.Fatalf("Decode: %v", err)
		}
		replayed = append(replayed, record)
	}

	if !reflect.DeepEqual(records, replayed) {
		t.Errorf("replayed = %+v, want %+v", replayed, records)
	}
}
