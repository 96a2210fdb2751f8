package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/itsatony/go-mailmerge"
	"github.com/spf13/pflag"
)

// validateConfig holds parsed validate command configuration
type validateConfig struct {
	templatePath string
	jobPath      string
	dataPath     string
	header       string
	store        string
	format       string
	strict       bool
}

// validationOutput represents JSON output for validation
type validationOutput struct {
	Valid  bool                    `json:"valid"`
	Fields []string                `json:"fields"`
	Issues []validationIssueOutput `json:"issues,omitempty"`
}

type validationIssueOutput struct {
	Severity string `json:"severity"`
	Kind     string `json:"kind"`
	Message  string `json:"message"`
	Source   string `json:"source,omitempty"`
	Line     int    `json:"line,omitempty"`
	Column   int    `json:"column,omitempty"`
	Tag      string `json:"tag,omitempty"`
	Field    string `json:"field,omitempty"`
}

func runValidate(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	cfg, err := parseValidateFlags(args)
	if err != nil {
		fmt.Fprintf(stderr, FmtErrorWithCause, ErrMsgInvalidFlags, err)
		return ExitCodeUsageError
	}

	engine := mailmerge.MustNew()
	var result *mailmerge.ValidationResult

	if cfg.jobPath != "" {
		job, err := mailmerge.LoadJobConfig(cfg.jobPath)
		if err != nil {
			fmt.Fprintf(stderr, FmtErrorWithCause, ErrMsgLoadJobFailed, err)
			return ExitCodeInputError
		}
		if cfg.dataPath == "" && cfg.header == "" && job.Data.Path != "" {
			cfg.dataPath = job.Data.Path
		}
		header, err := validationHeader(cfg, job.Data, stdin)
		if err != nil {
			fmt.Fprintf(stderr, FmtErrorWithCause, ErrMsgLoadDataFailed, err)
			return ExitCodeInputError
		}

		t, err := jobTemplate(job, cfg.store)
		if err != nil {
			fmt.Fprintf(stderr, FmtErrorWithCause, ErrMsgLoadJobFailed, err)
			return ExitCodeInputError
		}
		result = engine.ValidateTemplate(t, header)
	} else {
		templateSource, err := readInput(cfg.templatePath, stdin)
		if err != nil {
			fmt.Fprintf(stderr, FmtErrorWithCause, ErrMsgReadFileFailed, err)
			return ExitCodeInputError
		}
		header, err := validationHeader(cfg, mailmerge.DataConfig{}, stdin)
		if err != nil {
			fmt.Fprintf(stderr, FmtErrorWithCause, ErrMsgLoadDataFailed, err)
			return ExitCodeInputError
		}
		result = engine.Validate(string(templateSource), header)
	}

	// Output based on format
	if cfg.format == OutputFormatJSON {
		return outputValidationJSON(result, cfg.strict, stdout)
	}
	return outputValidationText(result, cfg.strict, stdout)
}

func parseValidateFlags(args []string) (*validateConfig, error) {
	fs := pflag.NewFlagSet(CmdNameValidate, pflag.ContinueOnError)
	fs.SetOutput(io.Discard)

	cfg := &validateConfig{}
	fs.StringVarP(&cfg.templatePath, FlagTemplate, FlagTemplateShort, "", "")
	fs.StringVarP(&cfg.jobPath, FlagJob, FlagJobShort, "", "")
	fs.StringVarP(&cfg.dataPath, FlagData, FlagDataShort, "", "")
	fs.StringVar(&cfg.header, FlagHeader, "", "")
	fs.StringVar(&cfg.store, FlagStore, "", "")
	fs.StringVarP(&cfg.format, FlagFormat, FlagFormatShort, FlagDefaultFormat, "")
	fs.BoolVar(&cfg.strict, FlagStrictMode, false, "")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if cfg.templatePath == "" && cfg.jobPath == "" {
		return nil, errors.New(ErrMsgMissingTemplate)
	}
	if cfg.templatePath == InputSourceStdin && cfg.dataPath == InputSourceStdin {
		return nil, errors.New(ErrMsgBothStdin)
	}
	if err := checkFormat(cfg.format); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validationHeader returns the known field names: the --header list, or the
// header of the data file. Nil disables unknown field checks.
func validationHeader(cfg *validateConfig, data mailmerge.DataConfig, stdin io.Reader) ([]string, error) {
	if cfg.header != "" {
		return splitList(cfg.header), nil
	}
	if cfg.dataPath == "" {
		return nil, nil
	}
	if data.Path != cfg.dataPath {
		data = mailmerge.DataConfig{Path: cfg.dataPath}
	}
	table, err := readTable(data, stdin, nil)
	if err != nil {
		return nil, err
	}
	return table.Header, nil
}

// jobTemplate resolves a job's template, opening store (or the job's own)
// for template_ref jobs.
func jobTemplate(job *mailmerge.JobConfig, store string) (*mailmerge.MergeTemplate, error) {
	if store == "" {
		store = job.Store
	}
	var storage mailmerge.TemplateStorage
	if job.TemplateRef != nil && store != "" {
		opened, err := openStore(store)
		if err != nil {
			return nil, err
		}
		defer opened.Close()
		storage = opened
	}
	return job.ResolveTemplate(context.Background(), storage)
}

func outputValidationText(result *mailmerge.ValidationResult, strict bool, stdout io.Writer) int {
	issues := result.Issues()
	errors := result.Errors()
	warnings := result.Warnings()

	if len(issues) == 0 {
		fmt.Fprintln(stdout, ValidationTextSuccess)
		printFields(result, stdout)
		return ExitCodeSuccess
	}

	fmt.Fprintln(stdout, ValidationTextIssueHeader)
	for _, issue := range issues {
		fmt.Fprintf(stdout, ValidationTextIssueFormat+FmtNewline,
			severityToName(issue.Severity), describeIssue(issue))
	}

	fmt.Fprintf(stdout, ValidationTextErrorSummary+FmtNewline, len(errors), len(warnings))
	printFields(result, stdout)

	if len(errors) > 0 || (strict && len(warnings) > 0) {
		return ExitCodeValidationError
	}
	return ExitCodeSuccess
}

func outputValidationJSON(result *mailmerge.ValidationResult, strict bool, stdout io.Writer) int {
	issues := result.Issues()

	output := validationOutput{
		Valid:  result.IsValid() && (!strict || !result.HasWarnings()),
		Fields: result.Fields(),
		Issues: make([]validationIssueOutput, 0, len(issues)),
	}
	if output.Fields == nil {
		output.Fields = []string{}
	}

	for _, issue := range issues {
		output.Issues = append(output.Issues, validationIssueOutput{
			Severity: severityToName(issue.Severity),
			Kind:     string(issue.Kind),
			Message:  issue.Message,
			Source:   issue.Source,
			Line:     issue.Position.Line,
			Column:   issue.Position.Column,
			Tag:      issue.Tag,
			Field:    issue.Field,
		})
	}

	_ = writeJSON(stdout, output)

	if !output.Valid {
		return ExitCodeValidationError
	}
	return ExitCodeSuccess
}

func printFields(result *mailmerge.ValidationResult, stdout io.Writer) {
	if fields := result.Fields(); len(fields) > 0 {
		fmt.Fprintf(stdout, ValidationTextFields+FmtNewline, joinList(fields))
	}
}

// describeIssue renders "source: line L, column C: message", leaving out
// the parts an issue does not carry.
func describeIssue(issue mailmerge.ValidationIssue) string {
	text := issue.Message
	if issue.Position.Line > 0 {
		text = issue.Position.String() + ": " + text
	}
	if issue.Source != "" {
		text = issue.Source + ": " + text
	}
	return text
}

func severityToName(s mailmerge.ValidationSeverity) string {
	switch s {
	case mailmerge.SeverityError:
		return SeverityNameError
	case mailmerge.SeverityWarning:
		return SeverityNameWarning
	case mailmerge.SeverityInfo:
		return SeverityNameInfo
	default:
		return SeverityNameError
	}
}
