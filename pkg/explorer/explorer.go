// Package explorer is the caller-facing surface of the Avro exploration
// tool: file inspection, JSON and CSV conversion, and integrity checking.
// It owns file handles and converts operating-system failures into the
// shared error taxonomy; all actual decoding is delegated to pkg/avro.
//
// The converters are fail-fast: the first decode error aborts the whole
// operation, because a partially converted file has no useful contract. The
// integrity checker is the one resilient consumer, wrapping each stage in a
// local capture so a broken tail still yields a report. Both behaviors sit
// on the same decoder core.
package explorer

import (
	"errors"
	"io"
	"io/fs"
	"os"

	gojson "github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/priyeshr7/Avro-Data-Exploration-Tool/pkg/avro"
	"github.com/priyeshr7/Avro-Data-Exploration-Tool/pkg/avroerrors"
)

const (
	// DefaultMaxRecords caps conversion output when the caller passes no
	// explicit limit.
	DefaultMaxRecords = 10000

	// DefaultIntegrityCap bounds how many records an integrity check scans,
	// independent of file size.
	DefaultIntegrityCap = 1000
)

// Explorer reads Avro container files and re-exposes their contents for
// inspection and conversion. The zero-value defaults suit interactive use;
// options adjust caps and corruption policy.
type Explorer struct {
	logger       *zap.Logger
	maxRecords   int
	integrityCap int
	resync       bool
}

// Option configures an Explorer.
type Option func(*Explorer)

// WithLogger attaches a logger; the default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(e *Explorer) { e.logger = l }
}

// WithMaxRecords changes the default conversion record cap.
func WithMaxRecords(n int) Option {
	return func(e *Explorer) { e.maxRecords = n }
}

// WithIntegrityCap changes how many records an integrity check scans.
func WithIntegrityCap(n int) Option {
	return func(e *Explorer) { e.integrityCap = n }
}

// WithResync makes conversions scan past corrupt blocks to the next sync
// marker instead of failing. Inspection and integrity checks are unaffected.
func WithResync() Option {
	return func(e *Explorer) { e.resync = true }
}

// New returns an Explorer with the given options applied over defaults.
func New(opts ...Option) *Explorer {
	e := &Explorer{
		logger:       zap.NewNop(),
		maxRecords:   DefaultMaxRecords,
		integrityCap: DefaultIntegrityCap,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// FileInfo is the result of Inspect: file metadata, the embedded schema,
// and the first record as a sample. RecordCount counts only the sampled
// records, never the whole file.
type FileInfo struct {
	Path         string      `json:"file_path"`
	SizeBytes    int64       `json:"file_size"`
	RecordCount  int64       `json:"record_count"`
	Schema       interface{} `json:"schema"`
	SampleRecord interface{} `json:"sample_record"`
}

// open maps operating-system open failures onto the error taxonomy so
// callers can tell a bad file from bad input.
func (e *Explorer) open(path string) (*os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		switch {
		case errors.Is(err, fs.ErrNotExist):
			return nil, avroerrors.Wrap(err, avroerrors.ErrorTypeFileNotFound,
				"file not found").WithDetail("path", path)
		case errors.Is(err, fs.ErrPermission):
			return nil, avroerrors.Wrap(err, avroerrors.ErrorTypePermissionDenied,
				"permission denied").WithDetail("path", path)
		default:
			return nil, avroerrors.Wrap(err, avroerrors.ErrorTypeFileNotFound,
				"cannot open file").WithDetail("path", path)
		}
	}
	return f, nil
}

func (e *Explorer) readerOptions() []avro.ReaderOption {
	opts := []avro.ReaderOption{avro.WithLogger(e.logger)}
	if e.resync {
		opts = append(opts, avro.WithResync())
	}
	return opts
}

// Inspect reads the container header and the first record of the file and
// reports its metadata, schema, and sample.
func (e *Explorer) Inspect(path string) (*FileInfo, error) {
	f, err := e.open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return nil, avroerrors.Wrap(err, avroerrors.ErrorTypeFileNotFound,
			"cannot stat file").WithDetail("path", path)
	}

	r, err := avro.NewReader(f, e.readerOptions()...)
	if err != nil {
		return nil, err
	}

	var schema interface{}
	if err := gojson.Unmarshal(r.Header().SchemaText, &schema); err != nil {
		return nil, avroerrors.Wrap(err, avroerrors.ErrorTypeInvalidSchema,
			"schema text is not valid JSON")
	}

	info := &FileInfo{
		Path:      path,
		SizeBytes: stat.Size(),
		Schema:    schema,
	}
	if r.Scan() {
		sample, err := r.Read()
		if err != nil {
			return nil, err
		}
		info.SampleRecord = sample
		info.RecordCount = 1
	} else if err := r.Err(); err != nil {
		return nil, err
	}

	e.logger.Info("inspected file",
		zap.String("path", path),
		zap.Int64("size_bytes", info.SizeBytes))
	return info, nil
}

// ToJSON decodes up to maxRecords records from the file. A maxRecords of
// zero or less uses the Explorer default. The caller serializes; WriteJSON
// does it in the tool's canonical indented form.
func (e *Explorer) ToJSON(path string, maxRecords int) ([]interface{}, error) {
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

	records := make([]interface{}, 0)
	for len(records) < maxRecords && r.Scan() {
		rec, err := r.Read()
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := r.Err(); err != nil {
		return nil, err
	}

	e.logger.Info("converted records",
		zap.String("path", path),
		zap.Int("records", len(records)))
	return records, nil
}

// WriteJSON writes records as a single indented JSON array.
func (e *Explorer) WriteJSON(w io.Writer, records []interface{}) error {
	enc := gojson.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(records)
}

// ConvertToJSON decodes the file and, when outputPath is non-empty, writes
// the indented JSON array there. The decoded records are returned either
// way.
func (e *Explorer) ConvertToJSON(path, outputPath string, maxRecords int) ([]interface{}, error) {
	records, err := e.ToJSON(path, maxRecords)
	if err != nil {
		return nil, err
	}
	if outputPath != "" {
		out, err := os.Create(outputPath)
		if err != nil {
			return nil, avroerrors.Wrap(err, avroerrors.ErrorTypePermissionDenied,
				"cannot create output file").WithDetail("path", outputPath)
		}
		defer out.Close()
		if err := e.WriteJSON(out, records); err != nil {
			return nil, err
		}
		e.logger.Info("JSON file saved", zap.String("path", outputPath))
	}
	return records, nil
}
