package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/itsatony/go-mailmerge"
	"github.com/spf13/pflag"
)

// mergeConfig holds parsed merge command configuration
type mergeConfig struct {
	jobPath   string
	dataPath  string
	outputDir string
	folder    string
	store     string
	format    string
	dryRun    bool
	verbose   bool
}

// mergeReportOutput represents JSON output for a merge run
type mergeReportOutput struct {
	BatchID   string              `json:"batch_id"`
	Total     int                 `json:"total"`
	Saved     int                 `json:"saved"`
	Failed    int                 `json:"failed"`
	Folder    string              `json:"folder"`
	Duration  string              `json:"duration"`
	DryRun    bool                `json:"dry_run,omitempty"`
	Locations []string            `json:"locations"`
	Failures  []rowFailureOutput  `json:"failures,omitempty"`
	Messages  []dryRunMessageJSON `json:"messages,omitempty"`
}

type rowFailureOutput struct {
	Row   int    `json:"row"`
	Error string `json:"error"`
}

type dryRunMessageJSON struct {
	To      []string `json:"to"`
	Subject string   `json:"subject"`
}

func runMerge(args []string, stdout, stderr io.Writer) int {
	cfg, err := parseMergeFlags(args)
	if err != nil {
		fmt.Fprintf(stderr, FmtErrorWithCause, ErrMsgInvalidFlags, err)
		return ExitCodeUsageError
	}

	logger := newLogger(cfg.verbose, stderr)
	defer func() { _ = logger.Sync() }()

	job, err := mailmerge.LoadJobConfig(cfg.jobPath)
	if err != nil {
		fmt.Fprintf(stderr, FmtErrorWithCause, ErrMsgLoadJobFailed, err)
		return ExitCodeInputError
	}
	applyMergeOverrides(job, cfg)

	if err := job.Validate(); err != nil {
		fmt.Fprintf(stderr, FmtErrorWithCause, ErrMsgInvalidJob, err)
		return ExitCodeValidationError
	}

	table, err := job.LoadTable(logger)
	if err != nil {
		fmt.Fprintf(stderr, FmtErrorWithCause, ErrMsgLoadDataFailed, err)
		return ExitCodeInputError
	}

	var sink mailmerge.MessageSink
	var memory *mailmerge.MemorySink
	if cfg.dryRun {
		memory = mailmerge.NewMemorySink(job.Folder)
		sink = memory
	} else {
		if job.OutputDir == "" {
			fmt.Fprintln(stderr, ErrMsgMissingOutputDir)
			return ExitCodeUsageError
		}
		dirSink, err := mailmerge.NewDirectorySink(job.OutputDir, logger)
		if err != nil {
			fmt.Fprintf(stderr, FmtErrorWithCause, ErrMsgCreateSinkFailed, err)
			return ExitCodeError
		}
		sink = dirSink
	}

	runner, err := mailmerge.NewRunner(mailmerge.RunnerConfig{Sink: sink, Logger: logger})
	if err != nil {
		fmt.Fprintf(stderr, FmtErrorWithCause, ErrMsgMergeFailed, err)
		return ExitCodeError
	}
	defer runner.Close()

	report, err := runner.Run(context.Background(), job, table)
	if report == nil {
		fmt.Fprintf(stderr, FmtErrorWithCause, ErrMsgMergeFailed, err)
		return ExitCodeError
	}

	if cfg.format == OutputFormatJSON {
		outputReportJSON(report, memory, stdout)
	} else {
		outputReportText(report, memory, stdout)
	}

	if err != nil {
		fmt.Fprintf(stderr, FmtErrorWithCause, ErrMsgMergeFailed, err)
		return ExitCodeError
	}
	return ExitCodeSuccess
}

func parseMergeFlags(args []string) (*mergeConfig, error) {
	fs := pflag.NewFlagSet(CmdNameMerge, pflag.ContinueOnError)
	fs.SetOutput(io.Discard)

	cfg := &mergeConfig{}
	fs.StringVarP(&cfg.jobPath, FlagJob, FlagJobShort, "", "")
	fs.StringVarP(&cfg.dataPath, FlagData, FlagDataShort, "", "")
	fs.StringVarP(&cfg.outputDir, FlagOutput, FlagOutputShort, "", "")
	fs.StringVar(&cfg.folder, FlagFolder, "", "")
	fs.StringVar(&cfg.store, FlagStore, "", "")
	fs.StringVarP(&cfg.format, FlagFormat, FlagFormatShort, FlagDefaultFormat, "")
	fs.BoolVar(&cfg.dryRun, FlagDryRun, false, "")
	fs.BoolVarP(&cfg.verbose, FlagVerbose, FlagVerboseShort, false, "")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if cfg.jobPath == "" {
		return nil, errors.New(ErrMsgMissingJob)
	}
	if err := checkFormat(cfg.format); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyMergeOverrides lets flags replace the job file's settings.
func applyMergeOverrides(job *mailmerge.JobConfig, cfg *mergeConfig) {
	if cfg.dataPath != "" {
		job.Data.Path = cfg.dataPath
		job.Data.Format = ""
	}
	if cfg.outputDir != "" {
		job.OutputDir = cfg.outputDir
	}
	if cfg.folder != "" {
		job.Folder = cfg.folder
	}
	if cfg.store != "" {
		job.Store = cfg.store
	}
}

func outputReportText(report *mailmerge.JobReport, memory *mailmerge.MemorySink, stdout io.Writer) {
	fmt.Fprintf(stdout, ReportTextSummary+FmtNewline,
		report.BatchID, report.Total, report.Saved, report.Failed, report.Duration)
	fmt.Fprintf(stdout, ReportTextFolder+FmtNewline, report.Folder)

	if memory != nil {
		for _, stored := range memory.Messages("") {
			fmt.Fprintf(stdout, ReportTextDryRun+FmtNewline,
				joinList(stored.Message.To), stored.Message.Subject)
		}
	} else {
		for _, location := range report.Locations {
			fmt.Fprintf(stdout, ReportTextSaved+FmtNewline, location)
		}
	}

	for _, failure := range report.Failures {
		fmt.Fprintf(stdout, ReportTextFailed+FmtNewline, failure.Index+1, failure.Err)
	}
}

func outputReportJSON(report *mailmerge.JobReport, memory *mailmerge.MemorySink, stdout io.Writer) {
	output := mergeReportOutput{
		BatchID:   report.BatchID,
		Total:     report.Total,
		Saved:     report.Saved,
		Failed:    report.Failed,
		Folder:    report.Folder,
		Duration:  report.Duration.String(),
		DryRun:    memory != nil,
		Locations: report.Locations,
	}
	if output.Locations == nil {
		output.Locations = []string{}
	}

	for _, failure := range report.Failures {
		output.Failures = append(output.Failures, rowFailureOutput{
			Row:   failure.Index + 1,
			Error: failure.Err.Error(),
		})
	}
	if memory != nil {
		for _, stored := range memory.Messages("") {
			output.Messages = append(output.Messages, dryRunMessageJSON{
				To:      stored.Message.To,
				Subject: stored.Message.Subject,
			})
		}
	}

	_ = writeJSON(stdout, output)
}
