package replay

import (
	"bytes"
	"strings"
	"testing"
)

func TestCodecRoundTrip(t *testing.T) {
	// Waveform-like payload: slowly varying values compress well, which
	// also exercises the real compression paths rather than passthrough.
	payload := make([]byte, 0, 4096)
	for i := 0; i < 2048; i++ {
		payload = append(payload, byte(i/16), byte(i%7))
	}

	for _, name := range CodecNames() {
		t.Run(name, func(t *testing.T) {
			codec, err := LookupCodec(name)
			if err != nil {
				t.Fatalf("LookupCodec(%q): %v", name, err)
			}
			block, err := codec.Encode(payload)
			if err != nil {
				t.Fatalf("Encode: %v", err)
			}
			got, err := codec.Decode(block)
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if !bytes.Equal(got, payload) {
				t.Errorf("round trip changed payload: got %d bytes, want %d", len(got), len(payload))
			}
			if name != "none" && len(block) >= len(payload) {
				t.Errorf("%s did not shrink a compressible payload: %d >= %d",
					name, len(block), len(payload))
			}
		})
	}
}

func TestCodecEmptyInput(t *testing.T) {
	for _, name := range CodecNames() {
		codec, err := LookupCodec(name)
		if err != nil {
			t.Fatalf("LookupCodec(%q): %v", name, err)
		}
		block, err := codec.Encode(nil)
		if err != nil {
			t.Fatalf("%s: Encode(nil): %v", name, err)
		}
		got, err := codec.Decode(block)
		if err != nil {
			t.Fatalf("%s: Decode: %v", name, err)
		}
		if len(got) != 0 {
			t.Errorf("%s: Decode returned %d bytes for empty input", name, len(got))
		}
	}
}

func TestLookupCodecUnknown(t *testing.T) {
	_, err := LookupCodec("snappy")
	if err == nil {
		t.Fatal("LookupCodec accepted an unknown name")
	}
	if !strings.Contains(err.Error(), "snappy") {
		t.Errorf("error does not name the offending codec: %v", err)
	}
}

func TestCodecNamesSorted(t *testing.T) {
	names := CodecNames()
	for i := 1; i < len(names); i++ {
		if names[i-1] >= names[i] {
			t.Errorf("CodecNames not sorted: %v", names)
		}
	}
}
