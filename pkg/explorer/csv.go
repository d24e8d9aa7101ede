package explorer

import (
	"encoding/csv"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/priyeshr7/Avro-Data-Exploration-Tool/pkg/avro"
	"github.com/priyeshr7/Avro-Data-Exploration-Tool/pkg/avroerrors"
)

// ToCSV decodes up to maxRecords records and flattens each into a
// single-level key-to-scalar mapping. A maxRecords of zero or less uses the
// Explorer default.
func (e *Explorer) ToCSV(path string, maxRecords int) ([]*avro.Record, error) {
	if maxRecords <= 0 {
		maxRecords = e.maxRecords
	}

	f, err := e.open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r, err := avro.NewReader(f, e.readerOptions()...)
	if err != nil {
		return nil, err
	}

	flattened := make([]*avro.Record, 0)
	for len(flattened) < maxRecords && r.Scan() {
		rec, err := r.Read()
		if err != nil {
			return nil, err
		}
		flattened = append(flattened, Flatten(asRecord(rec)))
	}
	if err := r.Err(); err != nil {
		return nil, err
	}

	e.logger.Info("flattened records",
		zap.String("path", path),
		zap.Int("records", len(flattened)))
	return flattened, nil
}

// asRecord normalizes a decoded value to a mapping. Containers with a
// non-record top-level schema flatten as a single "value" column.
func asRecord(v interface{}) *avro.Record {
	if rec, ok := v.(*avro.Record); ok {
		return rec
	}
	rec := avro.NewRecord(1)
	rec.Set("value", v)
	return rec
}

// WriteCSV writes flattened records as CSV. The header row comes from the
// first record's key order; later records contribute their values under
// those columns, with blanks for keys they lack.
func (e *Explorer) WriteCSV(w io.Writer, records []*avro.Record) error {
	if len(records) == 0 {
		return nil
	}

	cw := csv.NewWriter(w)
	header := records[0].Keys()
	if err := cw.Write(header); err != nil {
		return err
	}

	row := make([]string, len(header))
	for _, rec := range records {
		for i, key := range header {
			if v, ok := rec.Get(key); ok {
				row[i] = formatScalar(v)
			} else {
				row[i] = ""
			}
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ConvertToCSV decodes and flattens the file and, when outputPath is
// non-empty, writes the CSV there. The flattened records are returned
// either way.
func (e *Explorer) ConvertToCSV(path, outputPath string, maxRecords int) ([]*avro.Record, error) {
	records, err := e.ToCSV(path, maxRecords)
	if err != nil {
		return nil, err
	}
	if outputPath != "" && len(records) > 0 {
		out, err := os.Create(outputPath)
		if err != nil {
			return nil, avroerrors.Wrap(err, avroerrors.ErrorTypePermissionDenied,
				"cannot create output file").WithDetail("path", outputPath)
		}
		defer out.Close()
		if err := e.WriteCSV(out, records); err != nil {
			return nil, err
		}
		e.logger.Info("CSV file saved", zap.String("path", outputPath))
	}
	return records, nil
}
