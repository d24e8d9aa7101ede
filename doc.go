// Package avroexplorer decodes Avro object container files and re-exposes
// their contents for inspection and format conversion.
//
// The decoder is written from the wire format up: a varint/zigzag codec, the
// block decompressor, a schema parser driving a recursive binary decoder, and
// a lazy block-by-block container reader. Nothing is materialized beyond the
// block being read, so files far larger than memory are explored in constant
// space.
//
// # Architecture
//
// Leaf-first:
//
//   - pkg/avroerrors: the shared error taxonomy (corrupt_block,
//     invalid_schema, truncated_input, ...) with structured context.
//   - pkg/compression: block codecs (null, deflate, snappy, zstandard).
//   - pkg/avro: schema model and parser, binary value decoder, and the
//     container Reader (a pull-based Scan/Read iterator).
//   - pkg/explorer: the caller-facing surface: Inspect, ToJSON, ToCSV with
//     nested-record flattening, and the resilient Integrity checker.
//   - cmd/avro-explorer: the CLI.
//
// # Quick Start
//
// Inspect a file and convert it:
//
//	import "github.com/priyeshr7/Avro-Data-Exploration-Tool/pkg/explorer"
//
//	exp := explorer.New()
//
//	info, err := exp.Inspect("events.avro")
//	// info.Schema, info.SampleRecord, info.SizeBytes
//
//	records, err := exp.ToJSON("events.avro", 1000)
//
//	report := exp.Integrity("events.avro")
//	// report.SchemaValid, report.RecordCount, report.ErrorDetails
//
// Or stream records one at a time:
//
//	import "github.com/priyeshr7/Avro-Data-Exploration-Tool/pkg/avro"
//
//	r, err := avro.NewReader(f)
//	for r.Scan() {
//	    rec, err := r.Read()
//	    // ...
//	}
//	err = r.Err()
package avroexplorer
