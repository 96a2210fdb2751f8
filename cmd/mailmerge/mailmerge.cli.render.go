package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/itsatony/go-mailmerge"
	"github.com/spf13/pflag"
)

// renderConfig holds parsed render command configuration
type renderConfig struct {
	templatePath string
	data         mailmerge.DataConfig
	outputPath   string
	format       string
}

// renderOutput represents one resolved row in JSON output
type renderOutput struct {
	Row    int    `json:"row"`
	Output string `json:"output"`
}

func runRender(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	cfg, err := parseRenderFlags(args)
	if err != nil {
		fmt.Fprintf(stderr, FmtErrorWithCause, ErrMsgInvalidFlags, err)
		return ExitCodeUsageError
	}

	// Read template
	templateSource, err := readInput(cfg.templatePath, stdin)
	if err != nil {
		fmt.Fprintf(stderr, FmtErrorWithCause, ErrMsgReadFileFailed, err)
		return ExitCodeInputError
	}

	table, err := readTable(cfg.data, stdin, nil)
	if err != nil {
		fmt.Fprintf(stderr, FmtErrorWithCause, ErrMsgLoadDataFailed, err)
		return ExitCodeInputError
	}

	engine := mailmerge.MustNew()
	rows := table.Rows()

	var out bytes.Buffer
	if cfg.format == OutputFormatJSON {
		results := make([]renderOutput, 0, len(rows))
		for i, row := range rows {
			results = append(results, renderOutput{Row: i + 1, Output: engine.Resolve(string(templateSource), row)})
		}
		if err := writeJSON(&out, results); err != nil {
			fmt.Fprintf(stderr, FmtErrorWithCause, ErrMsgWriteOutputFailed, err)
			return ExitCodeError
		}
	} else {
		for _, row := range rows {
			out.WriteString(engine.Resolve(string(templateSource), row))
			out.WriteString(FmtNewline)
		}
	}

	if err := writeOutput(cfg.outputPath, out.Bytes(), stdout); err != nil {
		fmt.Fprintf(stderr, FmtErrorWithCause, ErrMsgWriteOutputFailed, err)
		return ExitCodeError
	}

	return ExitCodeSuccess
}

func parseRenderFlags(args []string) (*renderConfig, error) {
	fs := pflag.NewFlagSet(CmdNameRender, pflag.ContinueOnError)
	fs.SetOutput(io.Discard)

	cfg := &renderConfig{}
	fs.StringVarP(&cfg.templatePath, FlagTemplate, FlagTemplateShort, "", "")
	fs.StringVarP(&cfg.data.Path, FlagData, FlagDataShort, "", "")
	fs.StringVarP(&cfg.data.Separator, FlagSeparator, FlagSeparatorShort, "", "")
	fs.StringVarP(&cfg.data.Enclosure, FlagEnclosure, FlagEnclosureShort, "", "")
	fs.StringVar(&cfg.data.Sheet, FlagSheet, "", "")
	fs.StringVarP(&cfg.outputPath, FlagOutput, FlagOutputShort, FlagDefaultOutput, "")
	fs.StringVarP(&cfg.format, FlagFormat, FlagFormatShort, FlagDefaultFormat, "")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	switch {
	case cfg.templatePath == "":
		return nil, errors.New(ErrMsgMissingTemplate)
	case cfg.data.Path == "":
		return nil, errors.New(ErrMsgMissingData)
	case cfg.templatePath == InputSourceStdin && cfg.data.Path == InputSourceStdin:
		return nil, errors.New(ErrMsgBothStdin)
	}
	if err := checkFormat(cfg.format); err != nil {
		return nil, err
	}

	return cfg, nil
}
