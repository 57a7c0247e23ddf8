package replay

import (
	"bytes"
	"fmt"
	"io"
	"sort"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Codec compresses one partition's serialized record bytes into an opaque
// block. Decode exists for tests and diagnostic tooling; consumers of the
// handoff protocol bring their own decoders.
type Codec struct {
	Name   string
	Encode func(src []byte) ([]byte, error)
	Decode func(src []byte) ([]byte, error)
}

// codecs is the static codec registry. Lookup happens once at startup so a
// misconfigured name cannot surface hours into a run.
var codecs = map[string]Codec{
	"none": {
		Name:   "none",
		Encode: func(src []byte) ([]byte, error) { return src, nil },
		Decode: func(src []byte) ([]byte, error) { return src, nil },
	},
	"zstd": {
		Name:   "zstd",
		Encode: zstdEncode,
		Decode: zstdDecode,
	},
	"lz4": {
		Name:   "lz4",
		Encode: lz4Encode,
		Decode: lz4Decode,
	},
}

// LookupCodec resolves a codec by name. Unknown names are a configuration
// error.
func LookupCodec(name string) (Codec, error) {
	c, ok := codecs[name]
	if !ok {
		return Codec{}, fmt.Errorf("unknown codec %q (have %v)", name, CodecNames())
	}
	return c, nil
}

// CodecNames returns the registered codec names, sorted.
func CodecNames() []string {
	names := make([]string, 0, len(codecs))
	for name := range codecs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// The zstd encoder and decoder are reused across calls; both are safe for
// concurrent use.
var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("replay: zstd encoder initialization failed: " + err.Error())
	}
	zstdDecoder, err = zstd.NewReader(nil)
	if err != nil {
		panic("replay: zstd decoder initialization failed: " + err.Error())
	}
}

func zstdEncode(src []byte) ([]byte, error) {
	return zstdEncoder.EncodeAll(src, nil), nil
}

func zstdDecode(src []byte) ([]byte, error) {
	out, err := zstdDecoder.DecodeAll(src, nil)
	if err != nil {
		return nil, fmt.Errorf("zstd decompress: %w", err)
	}
	return out, nil
}

// lz4 uses the frame format rather than raw blocks: frames are
// self-describing and handle incompressible input without a fallback path.

func lz4Encode(src []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := lz4.NewWriter(&buf)
	if _, err := zw.Write(src); err != nil {
		return nil, fmt.Errorf("lz4 compress: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("lz4 compress: %w", err)
	}
	return buf.Bytes(), nil
}

func lz4Decode(src []byte) ([]byte, error) {
	out, err := io.ReadAll(lz4.NewReader(bytes.NewReader(src)))
	if err != nil {
		return nil, fmt.Errorf("lz4 decompress: %w", err)
	}
	return out, nil
}
