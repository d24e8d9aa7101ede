// Package compression implements the block codecs of the Avro object
// container format. A block's payload is compressed as a single unit; the
// codec name travels in the file header, so decompression dispatches on the
// name read from the file being explored.
//
// Supported codecs:
//   - "null": identity, the format default
//   - "deflate": raw DEFLATE (RFC 1951), no zlib or gzip wrapper
//   - "snappy": snappy block format followed by a 4-byte big-endian CRC32
//     of the uncompressed data
//   - "zstandard": zstd frame format
//
// # Basic Usage
//
//	codec, err := compression.ForName(header.Codec)
//	if err != nil {
//	    return err // unsupported_codec
//	}
//	raw, err := codec.Decompress(block.Payload)
//
// Compress is the exact inverse and exists so tests can build containers
// byte-by-byte; the explorer itself never writes.
package compression

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"io"
	"sync"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/snappy"
	"github.com/klauspost/compress/zstd"

	"github.com/priyeshr7/Avro-Data-Exploration-Tool/pkg/avroerrors"
)

// Codec names as they appear in the container header's avro.codec entry.
const (
	Null      = "null"
	Deflate   = "deflate"
	Snappy    = "snappy"
	Zstandard = "zstandard"
)

// Codec compresses and decompresses one block payload at a time.
// All implementations are safe for concurrent use.
type Codec interface {
	// Name returns the codec name as written in container headers.
	Name() string

	// Compress compresses data and returns the compressed bytes.
	// The input data is not modified.
	Compress(data []byte) ([]byte, error)

	// Decompress decompresses data and returns the original bytes.
	// The input data is not modified.
	Decompress(data []byte) ([]byte, error)
}

// ForName returns the Codec registered under name. An empty name selects the
// null codec, matching the container default when the header omits the codec
// entry. Unknown names yield an unsupported_codec error.
func ForName(name string) (Codec, error) {
	switch name {
	case "", Null:
		return nullCodec{}, nil
	case Deflate:
		return deflateCodec{}, nil
	case Snappy:
		return snappyCodec{}, nil
	case Zstandard:
		return newZstdCodec(), nil
	default:
		return nil, avroerrors.Newf(avroerrors.ErrorTypeUnsupportedCodec,
			"unsupported block codec %q", name).WithDetail("codec", name)
	}
}

// Supported returns the codec names this build can decompress, in header
// spelling.
func Supported() []string {
	return []string{Null, Deflate, Snappy, Zstandard}
}

// Null codec (identity)
type nullCodec struct{}

func (nullCodec) Name() string { return Null }

func (nullCodec) Compress(data []byte) ([]byte, error) {
	return data, nil
}

func (nullCodec) Decompress(data []byte) ([]byte, error) {
	return data, nil
}

// Deflate codec (raw RFC 1951 stream)
type deflateCodec struct{}

func (deflateCodec) Name() string { return Deflate }

func (deflateCodec) Compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, flate.DefaultCompression)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (deflateCodec) Decompress(data []byte) ([]byte, error) {
	r := flate.NewReader(bytes.NewReader(data))
	defer r.Close()

	out, err := io.ReadAll(r)
	if err != nil {
		return nil, avroerrors.Wrap(err, avroerrors.ErrorTypeCorruptBlock,
			"deflate block failed to inflate")
	}
	return out, nil
}

// Snappy codec. Avro appends a big-endian CRC32 of the uncompressed data
// after the snappy-encoded bytes.
type snappyCodec struct{}

func (snappyCodec) Name() string { return Snappy }

func (snappyCodec) Compress(data []byte) ([]byte, error) {
	out := snappy.Encode(nil, data)
	out = binary.BigEndian.AppendUint32(out, crc32.ChecksumIEEE(data))
	return out, nil
}

func (snappyCodec) Decompress(data []byte) ([]byte, error) {
	if len(data) < 4 {
		return nil, avroerrors.New(avroerrors.ErrorTypeCorruptBlock,
			"snappy block shorter than its checksum")
	}
	want := binary.BigEndian.Uint32(data[len(data)-4:])

	out, err := snappy.Decode(nil, data[:len(data)-4])
	if err != nil {
		return nil, avroerrors.Wrap(err, avroerrors.ErrorTypeCorruptBlock,
			"snappy block failed to decode")
	}
	if got := crc32.ChecksumIEEE(out); got != want {
		return nil, avroerrors.New(avroerrors.ErrorTypeCorruptBlock,
			"snappy block checksum mismatch").
			WithDetail("want", want).
			WithDetail("got", got)
	}
	return out, nil
}

// Zstandard codec. Encoder and decoder instances are pooled; zstd
// initialization is expensive relative to a block decompress.
type zstdCodec struct {
	encoderPool *sync.Pool
	decoderPool *sync.Pool
}

func newZstdCodec() zstdCodec {
	return zstdCodec{
		encoderPool: &zstdEncoders,
		decoderPool: &zstdDecoders,
	}
}

var zstdEncoders = sync.Pool{
	New: func() interface{} {
		enc, _ := zstd.NewWriter(nil)
		return enc
	},
}

var zstdDecoders = sync.Pool{
	New: func() interface{} {
		dec, _ := zstd.NewReader(nil)
		return dec
	},
}

func (zstdCodec) Name() string { return Zstandard }

func (zc zstdCodec) Compress(data []byte) ([]byte, error) {
	enc := zc.encoderPool.Get().(*zstd.Encoder)
	defer zc.encoderPool.Put(enc)

	return enc.EncodeAll(data, nil), nil
}

func (zc zstdCodec) Decompress(data []byte) ([]byte, error) {
	dec := zc.decoderPool.Get().(*zstd.Decoder)
	defer zc.decoderPool.Put(dec)

	out, err := dec.DecodeAll(data, nil)
	if err != nil {
		return nil, avroerrors.Wrap(err, avroerrors.ErrorTypeCorruptBlock,
			"zstandard block failed to decode")
	}
	return out, nil
}
