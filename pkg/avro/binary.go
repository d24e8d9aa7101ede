package avro

import (
	"encoding/binary"
	"io"
	"math"
	"unicode/utf8"

	gojson "github.com/goccy/go-json"

	"github.com/priyeshr7/Avro-Data-Exploration-Tool/pkg/avroerrors"
)

// maxVarintBytes is the longest legal zigzag varint: 10 groups of 7 bits
// cover 64 bits with room to spare, so an 11th continuation byte can only
// mean garbage.
const maxVarintBytes = 10

// Record is a decoded record or map value: an ordered mapping from name to
// value. Field order matches the schema's declaration order for records and
// on-disk entry order for maps, and survives JSON marshaling.
type Record struct {
	keys   []string
	values map[string]interface{}
}

// NewRecord returns an empty Record with capacity for n entries.
func NewRecord(n int) *Record {
	return &Record{
		keys:   make([]string, 0, n),
		values: make(map[string]interface{}, n),
	}
}

// Set stores value under key, appending the key to the order on first use.
func (r *Record) Set(key string, value interface{}) {
	if _, exists := r.values[key]; !exists {
		r.keys = append(r.keys, key)
	}
	r.values[key] = value
}

// Get returns the value stored under key.
func (r *Record) Get(key string) (interface{}, bool) {
	v, ok := r.values[key]
	return v, ok
}

// Keys returns the entry names in insertion order. The returned slice is
// shared; callers must not modify it.
func (r *Record) Keys() []string {
	return r.keys
}

// Len returns the number of entries.
func (r *Record) Len() int {
	return len(r.keys)
}

// MarshalJSON writes the record as a JSON object with entries in insertion
// order.
func (r *Record) MarshalJSON() ([]byte, error) {
	buf := make([]byte, 0, 16*len(r.keys)+2)
	buf = append(buf, '{')
	for i, key := range r.keys {
		if i > 0 {
			buf = append(buf, ',')
		}
		kb, err := gojson.Marshal(key)
		if err != nil {
			return nil, err
		}
		buf = append(buf, kb...)
		buf = append(buf, ':')
		vb, err := gojson.Marshal(r.values[key])
		if err != nil {
			return nil, err
		}
		buf = append(buf, vb...)
	}
	buf = append(buf, '}')
	return buf, nil
}

// Decoder is a cursor over one decompressed block payload. Each DecodeValue
// call consumes exactly one value's bytes and advances the cursor; decode
// state never escapes the call, so a Decoder is single-use but trivially
// cheap.
type Decoder struct {
	buf []byte
	pos int
}

// NewDecoder returns a Decoder positioned at the start of buf. The buffer is
// not copied.
func NewDecoder(buf []byte) *Decoder {
	return &Decoder{buf: buf}
}

// Remaining returns the number of undecoded bytes left in the buffer.
func (d *Decoder) Remaining() int {
	return len(d.buf) - d.pos
}

// ReadLong decodes one zigzag varint from the cursor: continuation-bit
// groups of 7 bits, least significant group first, then the zigzag unmap
// (raw>>1) XOR -(raw&1).
func (d *Decoder) ReadLong() (int64, error) {
	var raw uint64
	var shift uint
	for n := 0; ; n++ {
		if n == maxVarintBytes {
			return 0, avroerrors.New(avroerrors.ErrorTypeOverflow,
				"varint exceeds 10 bytes")
		}
		if d.pos >= len(d.buf) {
			return 0, avroerrors.New(avroerrors.ErrorTypeTruncatedInput,
				"input ended mid-varint")
		}
		b := d.buf[d.pos]
		d.pos++
		raw |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			break
		}
		shift += 7
	}
	return int64(raw>>1) ^ -int64(raw&1), nil
}

// readRaw consumes exactly n bytes from the cursor.
func (d *Decoder) readRaw(n int) ([]byte, error) {
	if n < 0 {
		return nil, avroerrors.Newf(avroerrors.ErrorTypeCorruptBlock,
			"negative byte length %d", n)
	}
	if d.Remaining() < n {
		return nil, avroerrors.Newf(avroerrors.ErrorTypeTruncatedInput,
			"need %d bytes, have %d", n, d.Remaining())
	}
	out := d.buf[d.pos : d.pos+n]
	d.pos += n
	return out, nil
}

// readLenPrefixed consumes a varint length then that many raw bytes.
func (d *Decoder) readLenPrefixed() ([]byte, error) {
	n, err := d.ReadLong()
	if err != nil {
		return nil, err
	}
	if n > int64(math.MaxInt32) {
		return nil, avroerrors.Newf(avroerrors.ErrorTypeCorruptBlock,
			"implausible byte length %d", n)
	}
	return d.readRaw(int(n))
}

// DecodeValue decodes one value of type t from the cursor, advancing past
// its bytes. The value shapes mirror the schema exactly:
//
//	null        nil
//	boolean     bool
//	int         int32
//	long        int64
//	float       float32
//	double      float64
//	bytes       []byte
//	string      string
//	record      *Record (field declaration order preserved)
//	enum        string (the symbol)
//	array       []interface{}
//	map         *Record (on-disk entry order preserved)
//	union       the chosen branch's value, undecorated
//	fixed       []byte
func (d *Decoder) DecodeValue(t *Type) (interface{}, error) {
	switch t.Kind {
	case KindNull:
		return nil, nil

	case KindBoolean:
		b, err := d.readRaw(1)
		if err != nil {
			return nil, err
		}
		return b[0] != 0, nil

	case KindInt:
		n, err := d.ReadLong()
		if err != nil {
			return nil, err
		}
		if n < math.MinInt32 || n > math.MaxInt32 {
			return nil, avroerrors.Newf(avroerrors.ErrorTypeValueOutOfRange,
				"int value %d exceeds 32-bit range", n)
		}
		return int32(n), nil

	case KindLong:
		return d.ReadLong()

	case KindFloat:
		b, err := d.readRaw(4)
		if err != nil {
			return nil, err
		}
		return math.Float32frombits(binary.LittleEndian.Uint32(b)), nil

	case KindDouble:
		b, err := d.readRaw(8)
		if err != nil {
			return nil, err
		}
		return math.Float64frombits(binary.LittleEndian.Uint64(b)), nil

	case KindBytes:
		b, err := d.readLenPrefixed()
		if err != nil {
			return nil, err
		}
		out := make([]byte, len(b))
		copy(out, b)
		return out, nil

	case KindString:
		b, err := d.readLenPrefixed()
		if err != nil {
			return nil, err
		}
		if !utf8.Valid(b) {
			return nil, avroerrors.New(avroerrors.ErrorTypeInvalidEncoding,
				"string value is not valid UTF-8")
		}
		return string(b), nil

	case KindRecord:
		rec := NewRecord(len(t.Fields))
		for i := range t.Fields {
			v, err := d.DecodeValue(t.Fields[i].Type)
			if err != nil {
				return nil, err
			}
			rec.Set(t.Fields[i].Name, v)
		}
		return rec, nil

	case KindEnum:
		idx, err := d.ReadLong()
		if err != nil {
			return nil, err
		}
		if idx < 0 || idx >= int64(len(t.Symbols)) {
			return nil, avroerrors.Newf(avroerrors.ErrorTypeEnumIndexOutOfRange,
				"enum index %d outside %d symbols", idx, len(t.Symbols)).
				WithDetail("enum", t.Name)
		}
		return t.Symbols[idx], nil

	case KindArray:
		var items []interface{}
		err := d.decodeBlocked(func() error {
			v, err := d.DecodeValue(t.Items)
			if err != nil {
				return err
			}
			items = append(items, v)
			return nil
		})
		if err != nil {
			return nil, err
		}
		if items == nil {
			items = []interface{}{}
		}
		return items, nil

	case KindMap:
		entries := NewRecord(0)
		err := d.decodeBlocked(func() error {
			kb, err := d.readLenPrefixed()
			if err != nil {
				return err
			}
			if !utf8.Valid(kb) {
				return avroerrors.New(avroerrors.ErrorTypeInvalidEncoding,
					"map key is not valid UTF-8")
			}
			v, err := d.DecodeValue(t.Values)
			if err != nil {
				return err
			}
			entries.Set(string(kb), v)
			return nil
		})
		if err != nil {
			return nil, err
		}
		return entries, nil

	case KindUnion:
		idx, err := d.ReadLong()
		if err != nil {
			return nil, err
		}
		if idx < 0 || idx >= int64(len(t.Branches)) {
			return nil, avroerrors.Newf(avroerrors.ErrorTypeUnionIndexOutOfRange,
				"union index %d outside %d branches", idx, len(t.Branches))
		}
		return d.DecodeValue(t.Branches[idx])

	case KindFixed:
		b, err := d.readRaw(t.Size)
		if err != nil {
			return nil, err
		}
		out := make([]byte, len(b))
		copy(out, b)
		return out, nil

	default:
		return nil, avroerrors.Newf(avroerrors.ErrorTypeInvalidSchema,
			"cannot decode unknown kind %d", t.Kind)
	}
}

// decodeBlocked runs the shared array/map item-block loop: a varint count C
// of items, repeated until C is 0. A negative C means |C| items preceded by
// a byte length that random-access readers may use to skip the whole run;
// a sequential decode reads the length and decodes through it anyway.
func (d *Decoder) decodeBlocked(item func() error) error {
	for {
		count, err := d.ReadLong()
		if err != nil {
			return err
		}
		if count == 0 {
			return nil
		}
		if count < 0 {
			count = -count
			if _, err := d.ReadLong(); err != nil {
				return err
			}
		}
		for i := int64(0); i < count; i++ {
			if err := item(); err != nil {
				return err
			}
		}
	}
}

// SkipValue advances the cursor past one value of type t without building
// it. Only the array/map skippable-length fast path differs from DecodeValue;
// everything else costs the same either way, so it delegates.
func (d *Decoder) SkipValue(t *Type) error {
	switch t.Kind {
	case KindArray, KindMap:
		return d.skipBlocked(t)
	default:
		_, err := d.DecodeValue(t)
		return err
	}
}

func (d *Decoder) skipBlocked(t *Type) error {
	for {
		count, err := d.ReadLong()
		if err != nil {
			return err
		}
		if count == 0 {
			return nil
		}
		if count < 0 {
			// Negative count carries the run's byte length: skip it whole.
			size, err := d.ReadLong()
			if err != nil {
				return err
			}
			if size > int64(math.MaxInt32) {
				return avroerrors.Newf(avroerrors.ErrorTypeCorruptBlock,
					"implausible skip length %d", size)
			}
			if _, err := d.readRaw(int(size)); err != nil {
				return err
			}
			continue
		}
		for i := int64(0); i < count; i++ {
			if t.Kind == KindMap {
				if _, err := d.readLenPrefixed(); err != nil {
					return err
				}
				if err := d.SkipValue(t.Values); err != nil {
					return err
				}
			} else {
				if err := d.SkipValue(t.Items); err != nil {
					return err
				}
			}
		}
	}
}

// readLongFrom decodes one zigzag varint from a byte stream. The container
// reader uses it for block headers, where the bytes arrive from the file
// rather than a decompressed buffer. io.EOF before the first byte is
// returned unchanged so the caller can distinguish clean end-of-file from a
// truncated varint.
func readLongFrom(r io.ByteReader) (int64, error) {
	var raw uint64
	var shift uint
	for n := 0; ; n++ {
		if n == maxVarintBytes {
			return 0, avroerrors.New(avroerrors.ErrorTypeOverflow,
				"varint exceeds 10 bytes")
		}
		b, err := r.ReadByte()
		if err != nil {
			if err == io.EOF && n == 0 {
				return 0, io.EOF
			}
			return 0, avroerrors.Wrap(err, avroerrors.ErrorTypeTruncatedInput,
				"input ended mid-varint")
		}
		raw |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			break
		}
		shift += 7
	}
	return int64(raw>>1) ^ -int64(raw&1), nil
}
