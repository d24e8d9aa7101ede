package avro

import (
	"bufio"
	"bytes"
	"io"
	"math"

	"go.uber.org/zap"

	"github.com/priyeshr7/Avro-Data-Exploration-Tool/pkg/avroerrors"
	"github.com/priyeshr7/Avro-Data-Exploration-Tool/pkg/compression"
)

const (
	// SyncSize is the length of the per-file sync marker that trails every
	// block.
	SyncSize = 16

	metaSchemaKey = "avro.schema"
	metaCodecKey  = "avro.codec"

	// maxBlockSize bounds a single block's compressed payload. A varint can
	// claim any length; believing an absurd one would let one corrupt byte
	// allocate gigabytes.
	maxBlockSize = 1 << 30
)

// magic identifies an Avro object container file, version 1.
var magic = [4]byte{'O', 'b', 'j', 1}

// Header holds everything the container file declares before its first
// block. It is read once per open and immutable afterwards.
type Header struct {
	// Meta is the raw header metadata map.
	Meta map[string][]byte

	// SchemaText is the embedded schema JSON, verbatim.
	SchemaText []byte

	// Schema is the parsed type tree of SchemaText.
	Schema *Type

	// CodecName is the block compression codec, "null" when the header
	// omits it.
	CodecName string

	// Sync is the file's 16-byte marker, fixed for its lifetime.
	Sync [SyncSize]byte
}

// Reader decodes records out of an Avro object container file. It is a
// pull-based lazy iterator in the bufio.Scanner mold: Scan reports whether a
// record is available, Read decodes and returns it. Work happens only in
// response to a pull, one block of I/O and one record of decode at a time,
// so a caller that stops pulling stops all work.
//
// A Reader is forward-only and not restartable; re-reading a file means
// re-opening it. It does not own the underlying source and never closes it.
type Reader struct {
	br     *bufio.Reader
	header *Header
	codec  compression.Codec
	logger *zap.Logger

	// resync controls the corrupt-block policy: scan forward for the next
	// sync marker instead of stopping at the first mismatch.
	resync bool

	// blockDec cursors over the current block's decompressed payload;
	// blockLeft counts the records not yet pulled from it.
	blockDec  *Decoder
	blockLeft int64

	recordsRead int64
	blocksRead  int64
	err         error
	done        bool
}

// ReaderOption configures a Reader.
type ReaderOption func(*Reader)

// WithLogger attaches a logger for block-level debug output.
func WithLogger(l *zap.Logger) ReaderOption {
	return func(r *Reader) { r.logger = l }
}

// WithResync makes the Reader scan forward for the next sync marker after a
// corrupt block instead of stopping. Records in the skipped region are lost;
// the Reader continues with the next block that parses.
func WithResync() ReaderOption {
	return func(r *Reader) { r.resync = true }
}

// NewReader reads and validates the container header (magic, metadata map,
// schema, codec, sync marker) and returns a Reader positioned before the
// first block.
func NewReader(src io.Reader, opts ...ReaderOption) (*Reader, error) {
	r := &Reader{
		br:     bufio.NewReader(src),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}

	header, err := r.readHeader()
	if err != nil {
		return nil, err
	}
	r.header = header

	codec, err := compression.ForName(header.CodecName)
	if err != nil {
		return nil, err
	}
	r.codec = codec

	r.logger.Debug("container header read",
		zap.String("codec", header.CodecName),
		zap.Int("schema_bytes", len(header.SchemaText)))
	return r, nil
}

func (r *Reader) readHeader() (*Header, error) {
	var got [4]byte
	if _, err := io.ReadFull(r.br, got[:]); err != nil {
		return nil, avroerrors.Wrap(err, avroerrors.ErrorTypeNotAContainer,
			"input shorter than the container magic")
	}
	if got != magic {
		return nil, avroerrors.New(avroerrors.ErrorTypeNotAContainer,
			"input does not start with the Avro container magic")
	}

	meta, err := r.readMetaMap()
	if err != nil {
		return nil, err
	}

	header := &Header{Meta: meta, CodecName: compression.Null}
	if codec, ok := meta[metaCodecKey]; ok {
		header.CodecName = string(codec)
	}

	schemaText, ok := meta[metaSchemaKey]
	if !ok {
		return nil, avroerrors.Newf(avroerrors.ErrorTypeInvalidSchema,
			"header metadata has no %s entry", metaSchemaKey)
	}
	header.SchemaText = schemaText

	schema, err := ParseSchema(schemaText)
	if err != nil {
		return nil, err
	}
	header.Schema = schema

	if _, err := io.ReadFull(r.br, header.Sync[:]); err != nil {
		return nil, avroerrors.Wrap(err, avroerrors.ErrorTypeTruncatedInput,
			"input ended inside the header sync marker")
	}
	return header, nil
}

// readMetaMap decodes the header's map<string, bytes>, which uses the same
// repeated-block wire pattern as a map value inside a record.
func (r *Reader) readMetaMap() (map[string][]byte, error) {
	meta := make(map[string][]byte)
	for {
		count, err := readLongFrom(r.br)
		if err != nil {
			if err == io.EOF {
				return nil, avroerrors.New(avroerrors.ErrorTypeTruncatedInput,
					"input ended inside the header metadata map")
			}
			return nil, err
		}
		if count == 0 {
			return meta, nil
		}
		if count < 0 {
			count = -count
			if _, err := readLongFrom(r.br); err != nil {
				return nil, avroerrors.Wrap(err, avroerrors.ErrorTypeTruncatedInput,
					"input ended inside the header metadata map")
			}
		}
		for i := int64(0); i < count; i++ {
			key, err := r.readStreamBytes()
			if err != nil {
				return nil, err
			}
			value, err := r.readStreamBytes()
			if err != nil {
				return nil, err
			}
			meta[string(key)] = value
		}
	}
}

// readStreamBytes reads one length-prefixed byte sequence from the stream.
func (r *Reader) readStreamBytes() ([]byte, error) {
	n, err := readLongFrom(r.br)
	if err != nil {
		return nil, avroerrors.Wrap(err, avroerrors.ErrorTypeTruncatedInput,
			"input ended before a length prefix")
	}
	if n < 0 || n > maxBlockSize {
		return nil, avroerrors.Newf(avroerrors.ErrorTypeCorruptBlock,
			"implausible byte length %d", n)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r.br, buf); err != nil {
		return nil, avroerrors.Wrap(err, avroerrors.ErrorTypeTruncatedInput,
			"input ended inside a byte sequence")
	}
	return buf, nil
}

// Header returns the parsed container header.
func (r *Reader) Header() *Header {
	return r.header
}

// Schema returns the parsed schema type tree.
func (r *Reader) Schema() *Type {
	return r.header.Schema
}

// RecordsRead returns the number of records returned by Read so far.
func (r *Reader) RecordsRead() int64 {
	return r.recordsRead
}

// BlocksRead returns the number of blocks consumed so far.
func (r *Reader) BlocksRead() int64 {
	return r.blocksRead
}

// Scan reports whether another record is available. It advances to the next
// block when the current one is exhausted, which is the only time it touches
// the underlying source.
func (r *Reader) Scan() bool {
	if r.err != nil || r.done {
		return false
	}
	for r.blockLeft == 0 {
		if !r.nextBlock() {
			return false
		}
	}
	return true
}

// Read decodes and returns the next record. Call only after Scan returns
// true. The value shapes are those of Decoder.DecodeValue; for a record
// schema each value is a *Record in field declaration order.
func (r *Reader) Read() (interface{}, error) {
	if r.err != nil {
		return nil, r.err
	}
	if r.blockLeft == 0 {
		return nil, avroerrors.New(avroerrors.ErrorTypeCorruptBlock,
			"Read called without a successful Scan")
	}

	v, err := r.blockDec.DecodeValue(r.header.Schema)
	if err != nil {
		r.err = err
		return nil, err
	}
	r.blockLeft--
	r.recordsRead++

	// A block must decompress to exactly its declared records.
	if r.blockLeft == 0 && r.blockDec.Remaining() != 0 {
		r.err = avroerrors.Newf(avroerrors.ErrorTypeCorruptBlock,
			"block has %d undecoded trailing bytes", r.blockDec.Remaining())
		return nil, r.err
	}
	return v, nil
}

// Err returns the error that terminated iteration, or nil after a clean
// end-of-file.
func (r *Reader) Err() error {
	return r.err
}

// nextBlock reads one [count][length][payload][sync] frame, verifies the
// sync marker, and decompresses the payload. It returns false at clean EOF
// or on error (recorded in r.err).
func (r *Reader) nextBlock() bool {
	count, err := readLongFrom(r.br)
	if err != nil {
		if err == io.EOF {
			r.done = true
			return false
		}
		r.err = err
		return false
	}
	if count == 0 {
		// A zero record count terminates the file.
		r.done = true
		return false
	}
	if count < 0 || count > math.MaxInt32 {
		r.err = avroerrors.Newf(avroerrors.ErrorTypeCorruptBlock,
			"implausible block record count %d", count)
		return false
	}

	size, err := readLongFrom(r.br)
	if err != nil {
		r.err = avroerrors.Wrap(err, avroerrors.ErrorTypeTruncatedInput,
			"input ended before a block length")
		return false
	}
	if size < 0 || size > maxBlockSize {
		r.err = avroerrors.Newf(avroerrors.ErrorTypeCorruptBlock,
			"implausible block length %d", size)
		return false
	}

	payload := make([]byte, size)
	if _, err := io.ReadFull(r.br, payload); err != nil {
		r.err = avroerrors.Wrap(err, avroerrors.ErrorTypeTruncatedInput,
			"input ended inside a block payload")
		return false
	}

	var sync [SyncSize]byte
	if _, err := io.ReadFull(r.br, sync[:]); err != nil {
		r.err = avroerrors.Wrap(err, avroerrors.ErrorTypeTruncatedInput,
			"input ended inside a block sync marker")
		return false
	}
	if sync != r.header.Sync {
		r.logger.Warn("block sync marker mismatch",
			zap.Int64("block", r.blocksRead),
			zap.Bool("resync", r.resync))
		if r.resync {
			if r.scanForSync() {
				return r.nextBlock()
			}
			r.done = true
			return false
		}
		r.err = avroerrors.New(avroerrors.ErrorTypeCorruptBlock,
			"block sync marker does not match the header")
		return false
	}

	raw, err := r.codec.Decompress(payload)
	if err != nil {
		r.err = err
		return false
	}

	r.blockDec = NewDecoder(raw)
	r.blockLeft = count
	r.blocksRead++
	r.logger.Debug("block read",
		zap.Int64("records", count),
		zap.Int64("compressed_bytes", size),
		zap.Int("decompressed_bytes", len(raw)))
	return true
}

// scanForSync consumes bytes until the file's sync marker appears, leaving
// the stream positioned immediately after it. Returns false when the marker
// never recurs before EOF.
func (r *Reader) scanForSync() bool {
	window := make([]byte, 0, SyncSize)
	for {
		b, err := r.br.ReadByte()
		if err != nil {
			return false
		}
		if len(window) == SyncSize {
			copy(window, window[1:])
			window[SyncSize-1] = b
		} else {
			window = append(window, b)
		}
		if len(window) == SyncSize && bytes.Equal(window, r.header.Sync[:]) {
			return true
		}
	}
}

// DecodeBlock decompresses one block payload and decodes exactly count
// values of type schema from it. Trailing undecoded bytes mean the count and
// the payload disagree, which is reported as a corrupt block.
func DecodeBlock(schema *Type, codec compression.Codec, count int64, payload []byte) ([]interface{}, error) {
	raw, err := codec.Decompress(payload)
	if err != nil {
		return nil, err
	}

	dec := NewDecoder(raw)
	values := make([]interface{}, 0, count)
	for i := int64(0); i < count; i++ {
		v, err := dec.DecodeValue(schema)
		if err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	if dec.Remaining() != 0 {
		return nil, avroerrors.Newf(avroerrors.ErrorTypeCorruptBlock,
			"block has %d undecoded trailing bytes", dec.Remaining())
	}
	return values, nil
}
