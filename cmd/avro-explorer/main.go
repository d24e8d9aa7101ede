package main

import (
	"fmt"
	"os"
	"runtime"

	gojson "github.com/goccy/go-json"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/priyeshr7/Avro-Data-Exploration-Tool/pkg/compression"
	"github.com/priyeshr7/Avro-Data-Exploration-Tool/pkg/explorer"
	"github.com/priyeshr7/Avro-Data-Exploration-Tool/pkg/logger"
)

var version = "0.1.0"

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	var logLevel string
	var maxRecords int
	var outputFile string
	var resync bool

	root := &cobra.Command{
		Use:   "avro-explorer",
		Short: "Avro Explorer - inspect and convert Avro container files",
		Long: `Avro Explorer decodes Avro object container files and re-exposes their
contents for inspection, JSON/CSV conversion, and integrity checking. It reads
lazily, so files far larger than memory are fine.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level := logLevel
			if env := os.Getenv("AVRO_EXPLORER_LOG_LEVEL"); env != "" && !cmd.Flags().Changed("log-level") {
				level = env
			}
			return logger.Init(logger.Config{
				Level:    level,
				Encoding: "console",
			})
		},
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("Avro Explorer v%s\n", version)
			fmt.Printf("Go version: %s\n", runtime.Version())
			fmt.Printf("OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
			fmt.Printf("Codecs: %v\n", compression.Supported())
		},
	})

	inspectCmd := &cobra.Command{
		Use:   "inspect <file>",
		Short: "Show a file's metadata, schema, and first record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			exp := newExplorer(maxRecords, resync)
			info, err := exp.Inspect(args[0])
			if err != nil {
				return stageError("inspect", args[0], err)
			}
			return printJSON(info)
		},
	}

	jsonCmd := &cobra.Command{
		Use:   "to-json <file>",
		Short: "Convert records to JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			exp := newExplorer(maxRecords, resync)
			records, err := exp.ConvertToJSON(args[0], outputFile, maxRecords)
			if err != nil {
				return stageError("to-json", args[0], err)
			}
			if outputFile == "" {
				return exp.WriteJSON(os.Stdout, records)
			}
			fmt.Printf("JSON file saved to %s\n", outputFile)
			return nil
		},
	}

	csvCmd := &cobra.Command{
		Use:   "to-csv <file>",
		Short: "Convert records to flattened CSV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			exp := newExplorer(maxRecords, resync)
			records, err := exp.ConvertToCSV(args[0], outputFile, maxRecords)
			if err != nil {
				return stageError("to-csv", args[0], err)
			}
			if outputFile == "" {
				return exp.WriteCSV(os.Stdout, records)
			}
			fmt.Printf("CSV file saved to %s\n", outputFile)
			return nil
		},
	}

	for _, cmd := range []*cobra.Command{jsonCmd, csvCmd} {
		cmd.Flags().StringVarP(&outputFile, "output", "o", "", "output file (default stdout)")
		cmd.Flags().IntVar(&maxRecords, "max-records", explorer.DefaultMaxRecords, "maximum records to convert")
		cmd.Flags().BoolVar(&resync, "resync", false, "scan past corrupt blocks to the next sync marker")
	}

	integrityCmd := &cobra.Command{
		Use:   "integrity <file>",
		Short: "Check a file's structural integrity",
		Long: `Check a file's structural integrity stage by stage: existence, readability,
schema validity, and record decodability. Failures are reported as structured
JSON, never as a process abort.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			exp := newExplorer(maxRecords, false)
			return printJSON(exp.Integrity(args[0]))
		},
		Args: cobra.ExactArgs(1),
	}

	root.AddCommand(inspectCmd, jsonCmd, csvCmd, integrityCmd)

	if err := root.Execute(); err != nil {
		logger.Error("command failed", zap.Error(err))
		fmt.Fprintln(os.Stderr, "Error:", err)
		_ = logger.Sync()
		os.Exit(1)
	}
	_ = logger.Sync()
}

func newExplorer(maxRecords int, resync bool) *explorer.Explorer {
	opts := []explorer.Option{explorer.WithLogger(logger.Get())}
	if maxRecords > 0 {
		opts = append(opts, explorer.WithMaxRecords(maxRecords))
	}
	if resync {
		opts = append(opts, explorer.WithResync())
	}
	return explorer.New(opts...)
}

// stageError names the failing path and stage so the exit message is
// actionable without log spelunking.
func stageError(stage, path string, err error) error {
	return fmt.Errorf("%s %s: %w", stage, path, err)
}

func printJSON(v interface{}) error {
	enc := gojson.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
