package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/itsatony/go-mailmerge"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// readInput reads content from a file or stdin
func readInput(path string, stdin io.Reader) ([]byte, error) {
	if path == InputSourceStdin {
		return io.ReadAll(stdin)
	}

	return os.ReadFile(path)
}

// writeOutput writes content to a file or stdout
func writeOutput(path string, data []byte, stdout io.Writer) error {
	if path == FlagDefaultOutput {
		_, err := stdout.Write(data)
		return err
	}

	return os.WriteFile(path, data, FilePermissions)
}

// writeJSON prints v as indented JSON followed by a newline.
func writeJSON(stdout io.Writer, v any) error {
	jsonBytes, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(stdout, string(jsonBytes))
	return err
}

// readTable loads a data table. "-" reads CSV from stdin; files are read as
// CSV or XLSX by extension.
func readTable(data mailmerge.DataConfig, stdin io.Reader, logger *zap.Logger) (*mailmerge.Table, error) {
	if data.Path == InputSourceStdin {
		return mailmerge.ReadCSV(stdin, mailmerge.CSVOptions{
			Separator: data.Separator,
			Enclosure: data.Enclosure,
			Logger:    logger,
		})
	}
	job := &mailmerge.JobConfig{Data: data}
	return job.LoadTable(logger)
}

// newLogger returns a development logger writing to stderr when verbose is
// set, and a no-op logger otherwise.
func newLogger(verbose bool, stderr io.Writer) *zap.Logger {
	if !verbose {
		return zap.NewNop()
	}
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
		zapcore.AddSync(stderr),
		zapcore.DebugLevel,
	)
	return zap.New(core)
}

// openStore opens a "driver:connection" template store.
func openStore(uri string) (mailmerge.TemplateStorage, error) {
	driver, conn := mailmerge.ParseStorageURI(uri)
	return mailmerge.OpenStorage(driver, conn)
}

func checkFormat(format string) error {
	if format != OutputFormatText && format != OutputFormatJSON {
		return errors.New(ErrMsgInvalidFormat)
	}
	return nil
}

func joinList(items []string) string {
	return strings.Join(items, ListSeparator+" ")
}

// splitList splits a comma separated flag value, dropping blanks.
func splitList(value string) []string {
	var out []string
	for _, item := range strings.Split(value, ListSeparator) {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
