package avro

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/priyeshr7/Avro-Data-Exploration-Tool/pkg/avroerrors"
)

// appendLong zigzag-varint encodes n, the exact inverse of ReadLong.
func appendLong(buf []byte, n int64) []byte {
	u := uint64(n<<1) ^ uint64(n>>63)
	for u >= 0x80 {
		buf = append(buf, byte(u)|0x80)
		u >>= 7
	}
	return append(buf, byte(u))
}

func mustParse(t *testing.T, schemaJSON string) *Type {
	t.Helper()
	schema, err := ParseSchema([]byte(schemaJSON))
	require.NoError(t, err)
	return schema
}

func TestReadLongRoundTrip(t *testing.T) {
	values := []int64{0, -1, 1, 63, 64, -64, -65, math.MinInt64, math.MaxInt64}
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 200; i++ {
		values = append(values, rng.Int63()-rng.Int63())
	}

	for _, want := range values {
		dec := NewDecoder(appendLong(nil, want))
		got, err := dec.ReadLong()
		require.NoError(t, err)
		assert.Equal(t, want, got)
		assert.Equal(t, 0, dec.Remaining())
	}
}

func TestReadLongTruncated(t *testing.T) {
	full := appendLong(nil, math.MaxInt64)
	for cut := 0; cut < len(full); cut++ {
		dec := NewDecoder(full[:cut])
		_, err := dec.ReadLong()
		assert.True(t, avroerrors.IsType(err, avroerrors.ErrorTypeTruncatedInput),
			"cut at %d: %v", cut, err)
	}
}

func TestReadLongOverflow(t *testing.T) {
	// Eleven continuation bytes can never be a valid long.
	buf := make([]byte, 11)
	for i := range buf {
		buf[i] = 0xff
	}
	_, err := NewDecoder(buf).ReadLong()
	assert.True(t, avroerrors.IsType(err, avroerrors.ErrorTypeOverflow), "%v", err)
}

func TestDecodePrimitives(t *testing.T) {
	tests := []struct {
		name   string
		schema string
		input  []byte
		want   interface{}
	}{
		{"null", `"null"`, nil, nil},
		{"boolean true", `"boolean"`, []byte{1}, true},
		{"boolean false", `"boolean"`, []byte{0}, false},
		{"int", `"int"`, appendLong(nil, -12345), int32(-12345)},
		{"long", `"long"`, appendLong(nil, 1<<40), int64(1 << 40)},
		{"float", `"float"`, []byte{0x00, 0x00, 0x20, 0x41}, float32(10.0)},
		{"double", `"double"`, []byte{0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x24, 0x40}, float64(10.0)},
		{"bytes", `"bytes"`, append(appendLong(nil, 3), 0xde, 0xad, 0x00), []byte{0xde, 0xad, 0x00}},
		{"string", `"string"`, append(appendLong(nil, 5), "héll"...), "héll"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dec := NewDecoder(tt.input)
			got, err := dec.DecodeValue(mustParse(t, tt.schema))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, 0, dec.Remaining())
		})
	}
}

func TestDecodeIntOutOfRange(t *testing.T) {
	for _, n := range []int64{math.MaxInt32 + 1, math.MinInt32 - 1} {
		_, err := NewDecoder(appendLong(nil, n)).DecodeValue(mustParse(t, `"int"`))
		assert.True(t, avroerrors.IsType(err, avroerrors.ErrorTypeValueOutOfRange), "%d: %v", n, err)
	}
}

func TestDecodeStringInvalidUTF8(t *testing.T) {
	input := append(appendLong(nil, 2), 0xff, 0xfe)
	_, err := NewDecoder(input).DecodeValue(mustParse(t, `"string"`))
	assert.True(t, avroerrors.IsType(err, avroerrors.ErrorTypeInvalidEncoding), "%v", err)
}

func TestDecodeRecordFieldOrder(t *testing.T) {
	schema := mustParse(t, `{
		"type": "record", "name": "Point",
		"fields": [
			{"name": "z", "type": "long"},
			{"name": "a", "type": "string"},
			{"name": "m", "type": "boolean"}
		]
	}`)

	var input []byte
	input = appendLong(input, 7)
	input = appendLong(input, 2)
	input = append(input, "hi"...)
	input = append(input, 1)

	got, err := NewDecoder(input).DecodeValue(schema)
	require.NoError(t, err)

	rec, ok := got.(*Record)
	require.True(t, ok)
	assert.Equal(t, []string{"z", "a", "m"}, rec.Keys())

	z, _ := rec.Get("z")
	assert.Equal(t, int64(7), z)
	a, _ := rec.Get("a")
	assert.Equal(t, "hi", a)
	m, _ := rec.Get("m")
	assert.Equal(t, true, m)
}

func TestDecodeEnum(t *testing.T) {
	schema := mustParse(t, `{"type": "enum", "name": "Suit",
		"symbols": ["SPADES", "HEARTS", "CLUBS"]}`)

	got, err := NewDecoder(appendLong(nil, 1)).DecodeValue(schema)
	require.NoError(t, err)
	assert.Equal(t, "HEARTS", got)

	for _, idx := range []int64{3, 100, -1} {
		_, err := NewDecoder(appendLong(nil, idx)).DecodeValue(schema)
		assert.True(t, avroerrors.IsType(err, avroerrors.ErrorTypeEnumIndexOutOfRange),
			"index %d: %v", idx, err)
	}
}

func TestDecodeArray(t *testing.T) {
	schema := mustParse(t, `{"type": "array", "items": "long"}`)

	// Two item blocks then the terminator.
	var input []byte
	input = appendLong(input, 2)
	input = appendLong(input, 10)
	input = appendLong(input, 20)
	input = appendLong(input, 1)
	input = appendLong(input, 30)
	input = appendLong(input, 0)

	got, err := NewDecoder(input).DecodeValue(schema)
	require.NoError(t, err)
	assert.Equal(t, []interface{}{int64(10), int64(20), int64(30)}, got)
}

func TestDecodeArrayNegativeCount(t *testing.T) {
	schema := mustParse(t, `{"type": "array", "items": "long"}`)

	items := appendLong(appendLong(nil, 10), 20)
	var input []byte
	input = appendLong(input, -2)
	input = appendLong(input, int64(len(items)))
	input = append(input, items...)
	input = appendLong(input, 0)

	got, err := NewDecoder(input).DecodeValue(schema)
	require.NoError(t, err)
	assert.Equal(t, []interface{}{int64(10), int64(20)}, got)
}

func TestDecodeEmptyArray(t *testing.T) {
	schema := mustParse(t, `{"type": "array", "items": "long"}`)
	got, err := NewDecoder(appendLong(nil, 0)).DecodeValue(schema)
	require.NoError(t, err)
	assert.Equal(t, []interface{}{}, got)
}

func TestDecodeMap(t *testing.T) {
	schema := mustParse(t, `{"type": "map", "values": "long"}`)

	var input []byte
	input = appendLong(input, 2)
	input = append(appendLong(input, 3), "one"...)
	input = appendLong(input, 1)
	input = append(appendLong(input, 3), "two"...)
	input = appendLong(input, 2)
	input = appendLong(input, 0)

	got, err := NewDecoder(input).DecodeValue(schema)
	require.NoError(t, err)

	entries, ok := got.(*Record)
	require.True(t, ok)
	assert.Equal(t, []string{"one", "two"}, entries.Keys())
	one, _ := entries.Get("one")
	assert.Equal(t, int64(1), one)
}

func TestDecodeUnion(t *testing.T) {
	schema := mustParse(t, `["null", "string"]`)

	got, err := NewDecoder(appendLong(nil, 0)).DecodeValue(schema)
	require.NoError(t, err)
	assert.Nil(t, got)

	input := append(appendLong(nil, 1), appendLong(nil, 2)...)
	input = append(input, "ok"...)
	got, err = NewDecoder(input).DecodeValue(schema)
	require.NoError(t, err)
	assert.Equal(t, "ok", got)

	for _, idx := range []int64{2, -1, 50} {
		_, err := NewDecoder(appendLong(nil, idx)).DecodeValue(schema)
		assert.True(t, avroerrors.IsType(err, avroerrors.ErrorTypeUnionIndexOutOfRange),
			"index %d: %v", idx, err)
	}
}

func TestDecodeFixed(t *testing.T) {
	schema := mustParse(t, `{"type": "fixed", "name": "MD5", "size": 4}`)

	got, err := NewDecoder([]byte{1, 2, 3, 4}).DecodeValue(schema)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3, 4}, got)

	_, err = NewDecoder([]byte{1, 2}).DecodeValue(schema)
	assert.True(t, avroerrors.IsType(err, avroerrors.ErrorTypeTruncatedInput), "%v", err)
}

func TestDecodeNested(t *testing.T) {
	schema := mustParse(t, `{
		"type": "record", "name": "Outer",
		"fields": [
			{"name": "tags", "type": {"type": "array", "items": "string"}},
			{"name": "inner", "type": {
				"type": "record", "name": "Inner",
				"fields": [{"name": "n", "type": ["null", "long"]}]
			}}
		]
	}`)

	var input []byte
	input = appendLong(input, 1)
	input = append(appendLong(input, 1), "x"...)
	input = appendLong(input, 0)
	input = appendLong(input, 1) // union branch: long
	input = appendLong(input, 9)

	got, err := NewDecoder(input).DecodeValue(schema)
	require.NoError(t, err)

	rec := got.(*Record)
	tags, _ := rec.Get("tags")
	assert.Equal(t, []interface{}{"x"}, tags)
	innerRaw, _ := rec.Get("inner")
	inner := innerRaw.(*Record)
	n, _ := inner.Get("n")
	assert.Equal(t, int64(9), n)
}

func TestSkipValue(t *testing.T) {
	schema := mustParse(t, `{"type": "array", "items": "long"}`)

	items := appendLong(appendLong(nil, 10), 20)
	var input []byte
	input = appendLong(input, -2)
	input = appendLong(input, int64(len(items)))
	input = append(input, items...)
	input = appendLong(input, 0)
	input = append(input, 0x55) // next value's byte, must stay unconsumed

	dec := NewDecoder(input)
	require.NoError(t, dec.SkipValue(schema))
	assert.Equal(t, 1, dec.Remaining())
}

func TestRecordMarshalJSONPreservesOrder(t *testing.T) {
	rec := NewRecord(3)
	rec.Set("z", int64(1))
	rec.Set("a", "two")
	rec.Set("m", nil)

	out, err := rec.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `{"z":1,"a":"two","m":null}`, string(out))
}
