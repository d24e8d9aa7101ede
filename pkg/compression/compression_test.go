package compression

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/priyeshr7/Avro-Data-Exploration-Tool/pkg/avroerrors"
)

func TestCodecRoundTrip(t *testing.T) {
	payloads := [][]byte{
		nil,
		[]byte("x"),
		[]byte("hello avro block"),
		bytes.Repeat([]byte("abcdefgh"), 4096),
	}

	for _, name := range Supported() {
		t.Run(name, func(t *testing.T) {
			codec, err := ForName(name)
			require.NoError(t, err)
			assert.Equal(t, name, codec.Name())

			for _, payload := range payloads {
				compressed, err := codec.Compress(payload)
				require.NoError(t, err)
				out, err := codec.Decompress(compressed)
				require.NoError(t, err)
				assert.Equal(t, len(payload), len(out))
				assert.True(t, bytes.Equal(payload, out))
			}
		})
	}
}

func TestForNameDefaultsToNull(t *testing.T) {
	codec, err := ForName("")
	require.NoError(t, err)
	assert.Equal(t, Null, codec.Name())
}

func TestForNameUnsupported(t *testing.T) {
	for _, name := range []string{"lzo", "bzip2", "xz", "gzip"} {
		_, err := ForName(name)
		assert.True(t, avroerrors.IsType(err, avroerrors.ErrorTypeUnsupportedCodec), "%s: %v", name, err)
	}
}

func TestDeflateCorrupt(t *testing.T) {
	codec, err := ForName(Deflate)
	require.NoError(t, err)

	_, err = codec.Decompress([]byte{0xde, 0xad, 0xbe, 0xef, 0x00})
	assert.True(t, avroerrors.IsType(err, avroerrors.ErrorTypeCorruptBlock), "%v", err)
}

func TestSnappyChecksum(t *testing.T) {
	codec, err := ForName(Snappy)
	require.NoError(t, err)

	compressed, err := codec.Compress([]byte("checksummed payload"))
	require.NoError(t, err)

	// Flip one checksum bit: the data still snappy-decodes but must be
	// rejected.
	compressed[len(compressed)-1] ^= 0x01
	_, err = codec.Decompress(compressed)
	assert.True(t, avroerrors.IsType(err, avroerrors.ErrorTypeCorruptBlock), "%v", err)

	// Shorter than the checksum itself.
	_, err = codec.Decompress([]byte{0x01, 0x02})
	assert.True(t, avroerrors.IsType(err, avroerrors.ErrorTypeCorruptBlock), "%v", err)
}

func TestZstandardCorrupt(t *testing.T) {
	codec, err := ForName(Zstandard)
	require.NoError(t, err)

	_, err = codec.Decompress([]byte("not a zstd frame"))
	assert.True(t, avroerrors.IsType(err, avroerrors.ErrorTypeCorruptBlock), "%v", err)
}
