package explorer

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	gojson "github.com/goccy/go-json"
	"github.com/linkedin/goavro/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/priyeshr7/Avro-Data-Exploration-Tool/pkg/avro"
	"github.com/priyeshr7/Avro-Data-Exploration-Tool/pkg/avroerrors"
)

const eventSchema = `{
	"type": "record", "name": "Event", "namespace": "com.example",
	"fields": [
		{"name": "id", "type": "long"},
		{"name": "kind", "type": "string"}
	]
}`

// writeFixtureFile builds a container on disk with goavro, one block per
// records slice.
func writeFixtureFile(t *testing.T, schemaJSON string, blocks ...[]interface{}) string {
	t.Helper()

	codec, err := goavro.NewCodec(schemaJSON)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "fixture.avro")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	w, err := goavro.NewOCFWriter(goavro.OCFConfig{W: f, Codec: codec})
	require.NoError(t, err)
	for _, block := range blocks {
		require.NoError(t, w.Append(block))
	}
	return path
}

func event(id int64, kind string) map[string]interface{} {
	return map[string]interface{}{"id": id, "kind": kind}
}

func TestInspect(t *testing.T) {
	path := writeFixtureFile(t, eventSchema,
		[]interface{}{event(1, "created"), event(2, "updated")},
		[]interface{}{event(3, "deleted")},
	)

	info, err := New().Inspect(path)
	require.NoError(t, err)

	assert.Equal(t, path, info.Path)
	assert.Greater(t, info.SizeBytes, int64(0))
	// Inspect samples the first record only.
	assert.Equal(t, int64(1), info.RecordCount)

	schema, ok := info.Schema.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "record", schema["type"])
	name, _ := schema["name"].(string)
	assert.Contains(t, name, "Event")

	sample, ok := info.SampleRecord.(*avro.Record)
	require.True(t, ok)
	id, _ := sample.Get("id")
	assert.Equal(t, int64(1), id)
}

func TestInspectNotFound(t *testing.T) {
	_, err := New().Inspect(filepath.Join(t.TempDir(), "nope.avro"))
	assert.True(t, avroerrors.IsType(err, avroerrors.ErrorTypeFileNotFound), "%v", err)
}

func TestInspectNotAContainer(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plain.txt")
	require.NoError(t, os.WriteFile(path, []byte("just text\n"), 0o644))

	_, err := New().Inspect(path)
	assert.True(t, avroerrors.IsType(err, avroerrors.ErrorTypeNotAContainer), "%v", err)
}

func TestToJSONRespectsMaxRecords(t *testing.T) {
	path := writeFixtureFile(t, eventSchema, []interface{}{
		event(1, "a"), event(2, "b"), event(3, "c"), event(4, "d"), event(5, "e"),
	})

	records, err := New().ToJSON(path, 3)
	require.NoError(t, err)
	assert.Len(t, records, 3)

	records, err = New().ToJSON(path, 0) // default cap
	require.NoError(t, err)
	assert.Len(t, records, 5)
}

func TestConvertToJSONWritesFile(t *testing.T) {
	path := writeFixtureFile(t, eventSchema, []interface{}{
		event(7, "created"), event(8, "deleted"),
	})
	outPath := filepath.Join(t.TempDir(), "out.json")

	records, err := New().ConvertToJSON(path, outPath, 0)
	require.NoError(t, err)
	assert.Len(t, records, 2)

	raw, err := os.ReadFile(outPath)
	require.NoError(t, err)

	var decoded []map[string]interface{}
	require.NoError(t, gojson.Unmarshal(raw, &decoded))
	require.Len(t, decoded, 2)
	assert.Equal(t, float64(7), decoded[0]["id"])
	assert.Equal(t, "deleted", decoded[1]["kind"])

	// Field declaration order survives serialization.
	assert.Less(t, bytes.Index(raw, []byte(`"id"`)), bytes.Index(raw, []byte(`"kind"`)))
}

func TestFlatten(t *testing.T) {
	inner := avro.NewRecord(2)
	inner.Set("b", int64(1))
	inner.Set("c", []interface{}{int64(1), int64(2)})
	rec := avro.NewRecord(1)
	rec.Set("a", inner)

	flat := Flatten(rec)
	assert.Equal(t, []string{"a_b", "a_c"}, flat.Keys())
	b, _ := flat.Get("a_b")
	assert.Equal(t, int64(1), b)
	c, _ := flat.Get("a_c")
	assert.Equal(t, "1, 2", c)
}

func TestFlattenListOfMappings(t *testing.T) {
	first := avro.NewRecord(1)
	first.Set("x", "left")
	second := avro.NewRecord(1)
	second.Set("x", "right")
	rec := avro.NewRecord(1)
	rec.Set("items", []interface{}{first, second})

	flat := Flatten(rec)
	assert.Equal(t, []string{"items_0_x", "items_1_x"}, flat.Keys())
	v, _ := flat.Get("items_1_x")
	assert.Equal(t, "right", v)
}

func TestFlattenScalarPassthrough(t *testing.T) {
	rec := avro.NewRecord(3)
	rec.Set("n", int64(42))
	rec.Set("s", "plain")
	rec.Set("empty", []interface{}{})

	flat := Flatten(rec)
	assert.Equal(t, []string{"n", "s", "empty"}, flat.Keys())
	n, _ := flat.Get("n")
	assert.Equal(t, int64(42), n)
	empty, _ := flat.Get("empty")
	assert.Equal(t, "", empty)
}

func TestToCSVAndWrite(t *testing.T) {
	nestedSchema := `{
		"type": "record", "name": "Wrapped",
		"fields": [
			{"name": "id", "type": "long"},
			{"name": "meta", "type": {
				"type": "record", "name": "Meta",
				"fields": [{"name": "tags", "type": {"type": "array", "items": "string"}}]
			}}
		]
	}`
	path := writeFixtureFile(t, nestedSchema, []interface{}{
		map[string]interface{}{
			"id":   int64(1),
			"meta": map[string]interface{}{"tags": []interface{}{"red", "blue"}},
		},
	})

	records, err := New().ToCSV(path, 0)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, []string{"id", "meta_tags"}, records[0].Keys())

	var buf bytes.Buffer
	require.NoError(t, New().WriteCSV(&buf, records))
	assert.Equal(t, "id,meta_tags\n1,\"red, blue\"\n", buf.String())
}

func TestConvertToCSVWritesFile(t *testing.T) {
	path := writeFixtureFile(t, eventSchema, []interface{}{
		event(1, "a"), event(2, "b"),
	})
	outPath := filepath.Join(t.TempDir(), "out.csv")

	_, err := New().ConvertToCSV(path, outPath, 0)
	require.NoError(t, err)

	raw, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.Equal(t, "id,kind\n1,a\n2,b\n", string(raw))
}

func TestIntegrityHealthy(t *testing.T) {
	path := writeFixtureFile(t, eventSchema,
		[]interface{}{event(1, "a"), event(2, "b")},
		[]interface{}{event(3, "c")},
	)

	rep := New().Integrity(path)
	assert.True(t, rep.FileExists)
	assert.True(t, rep.FileReadable)
	assert.True(t, rep.SchemaValid)
	assert.True(t, rep.RecordsReadable)
	assert.Equal(t, int64(3), rep.RecordCount)
	assert.Nil(t, rep.ErrorDetails)
}

func TestIntegrityNonexistent(t *testing.T) {
	rep := New().Integrity(filepath.Join(t.TempDir(), "ghost.avro"))
	assert.False(t, rep.FileExists)
	assert.False(t, rep.FileReadable)
	assert.False(t, rep.SchemaValid)
	assert.False(t, rep.RecordsReadable)
	assert.Equal(t, int64(0), rep.RecordCount)
	require.NotNil(t, rep.ErrorDetails)
	assert.Equal(t, "file does not exist", *rep.ErrorDetails)
}

func TestIntegrityTruncated(t *testing.T) {
	path := writeFixtureFile(t, eventSchema,
		[]interface{}{event(1, "a"), event(2, "b")},
		[]interface{}{event(3, "c")},
	)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	// Cut into the final block: its sync marker alone is 16 bytes, so ten
	// bytes off the end always lands mid-block.
	truncated := filepath.Join(t.TempDir(), "truncated.avro")
	require.NoError(t, os.WriteFile(truncated, raw[:len(raw)-10], 0o644))

	rep := New().Integrity(truncated)
	assert.True(t, rep.FileExists)
	assert.True(t, rep.FileReadable)
	assert.True(t, rep.SchemaValid)
	assert.False(t, rep.RecordsReadable)
	assert.Equal(t, int64(2), rep.RecordCount)
	require.NotNil(t, rep.ErrorDetails)
	assert.Contains(t, *rep.ErrorDetails, "record reading error")
}

func TestIntegrityNotAContainer(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plain.txt")
	require.NoError(t, os.WriteFile(path, []byte("not avro"), 0o644))

	rep := New().Integrity(path)
	assert.True(t, rep.FileExists)
	assert.True(t, rep.FileReadable)
	assert.False(t, rep.SchemaValid)
	require.NotNil(t, rep.ErrorDetails)
	assert.Contains(t, *rep.ErrorDetails, "schema validation error")
}

func TestIntegrityRecordCap(t *testing.T) {
	path := writeFixtureFile(t, eventSchema, []interface{}{
		event(1, "a"), event(2, "b"), event(3, "c"), event(4, "d"),
	})

	rep := New(WithIntegrityCap(2)).Integrity(path)
	assert.True(t, rep.RecordsReadable)
	assert.Equal(t, int64(2), rep.RecordCount)
	assert.Nil(t, rep.ErrorDetails)
}
