package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/itsatony/go-mailmerge"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// templateConfig holds parsed template command configuration
type templateConfig struct {
	store       string
	name        string
	filePath    string
	tags        []string
	createdBy   string
	version     int
	prefix      string
	allVersions bool
	format      string
}

// templateListOutput represents one stored template in JSON list output
type templateListOutput struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Version   int      `json:"version"`
	Tags      []string `json:"tags,omitempty"`
	CreatedBy string   `json:"created_by,omitempty"`
}

func runTemplate(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(stdout, HelpTemplateUsage)
		return ExitCodeUsageError
	}

	sub := args[0]
	cfg, err := parseTemplateFlags(sub, args[1:])
	if err != nil {
		fmt.Fprintf(stderr, FmtErrorWithCause, ErrMsgInvalidFlags, err)
		return ExitCodeUsageError
	}

	var handler func(ctx context.Context, storage mailmerge.TemplateStorage, cfg *templateConfig, stdin io.Reader, stdout io.Writer) error
	switch sub {
	case SubCmdSave:
		handler = templateSave
	case SubCmdShow:
		handler = templateShow
	case SubCmdList:
		handler = templateList
	case SubCmdDelete:
		handler = templateDelete
	case SubCmdVersions:
		handler = templateVersions
	default:
		fmt.Fprintf(stderr, FmtErrorWithDetail, ErrMsgUnknownSubcommand, sub)
		fmt.Fprintln(stdout, HelpTemplateUsage)
		return ExitCodeUsageError
	}

	storage, err := openStore(cfg.store)
	if err != nil {
		fmt.Fprintf(stderr, FmtErrorWithCause, ErrMsgOpenStoreFailed, err)
		return ExitCodeInputError
	}
	defer storage.Close()

	if err := handler(context.Background(), storage, cfg, stdin, stdout); err != nil {
		fmt.Fprintf(stderr, FmtErrorWithCause, ErrMsgStoreFailed, err)
		if mailmerge.IsNotFound(err) {
			return ExitCodeInputError
		}
		return ExitCodeError
	}
	return ExitCodeSuccess
}

func parseTemplateFlags(sub string, args []string) (*templateConfig, error) {
	fs := pflag.NewFlagSet(CmdNameTemplate+" "+sub, pflag.ContinueOnError)
	fs.SetOutput(io.Discard)

	cfg := &templateConfig{}
	fs.StringVar(&cfg.store, FlagStore, FlagDefaultStore, "")
	fs.StringVarP(&cfg.name, FlagName, FlagNameShort, "", "")
	fs.StringVarP(&cfg.filePath, FlagFile, FlagFileShort, "", "")
	fs.StringSliceVar(&cfg.tags, FlagTag, nil, "")
	fs.StringVar(&cfg.createdBy, FlagCreatedBy, "", "")
	fs.IntVar(&cfg.version, FlagVersion, 0, "")
	fs.StringVar(&cfg.prefix, FlagPrefix, "", "")
	fs.BoolVar(&cfg.allVersions, FlagAllVersions, false, "")
	fs.StringVarP(&cfg.format, FlagFormat, FlagFormatShort, FlagDefaultFormat, "")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	switch sub {
	case SubCmdSave:
		if cfg.filePath == "" {
			return nil, errors.New(ErrMsgMissingTemplate)
		}
	case SubCmdShow, SubCmdDelete, SubCmdVersions:
		if cfg.name == "" {
			return nil, errors.New(ErrMsgMissingName)
		}
	}
	if err := checkFormat(cfg.format); err != nil {
		return nil, err
	}

	return cfg, nil
}

// templateSave stores a YAML merge template file as a new version. The
// --name flag wins over the name inside the file.
func templateSave(ctx context.Context, storage mailmerge.TemplateStorage, cfg *templateConfig, stdin io.Reader, stdout io.Writer) error {
	source, err := readInput(cfg.filePath, stdin)
	if err != nil {
		return err
	}

	var t mailmerge.MergeTemplate
	if err := yaml.Unmarshal(source, &t); err != nil {
		return fmt.Errorf("%s: %w", ErrMsgParseTemplateFile, err)
	}

	name := cfg.name
	if name == "" {
		name = t.Name
	}
	if strings.TrimSpace(name) == "" {
		return errors.New(ErrMsgMissingName)
	}
	t.Name = ""

	stored := &mailmerge.StoredTemplate{
		Name:      name,
		Template:  t,
		Tags:      cfg.tags,
		CreatedBy: cfg.createdBy,
	}
	if err := storage.Save(ctx, stored); err != nil {
		return err
	}

	if cfg.format == OutputFormatJSON {
		return writeJSON(stdout, stored)
	}
	_, err = fmt.Fprintf(stdout, TemplateTextSaved+FmtNewline, stored.Name, stored.Version, stored.ID)
	return err
}

func templateShow(ctx context.Context, storage mailmerge.TemplateStorage, cfg *templateConfig, stdin io.Reader, stdout io.Writer) error {
	var (
		stored *mailmerge.StoredTemplate
		err    error
	)
	if cfg.version > 0 {
		stored, err = storage.GetVersion(ctx, cfg.name, cfg.version)
	} else {
		stored, err = storage.Get(ctx, cfg.name)
	}
	if err != nil {
		return err
	}

	if cfg.format == OutputFormatJSON {
		return writeJSON(stdout, stored)
	}
	out, err := yaml.Marshal(stored)
	if err != nil {
		return err
	}
	_, err = stdout.Write(out)
	return err
}

func templateList(ctx context.Context, storage mailmerge.TemplateStorage, cfg *templateConfig, stdin io.Reader, stdout io.Writer) error {
	results, err := storage.List(ctx, &mailmerge.TemplateQuery{
		NamePrefix:         cfg.prefix,
		Tags:               cfg.tags,
		CreatedBy:          cfg.createdBy,
		IncludeAllVersions: cfg.allVersions,
	})
	if err != nil {
		return err
	}

	if cfg.format == OutputFormatJSON {
		output := make([]templateListOutput, 0, len(results))
		for _, t := range results {
			output = append(output, templateListOutput{
				ID:        string(t.ID),
				Name:      t.Name,
				Version:   t.Version,
				Tags:      t.Tags,
				CreatedBy: t.CreatedBy,
			})
		}
		return writeJSON(stdout, output)
	}

	for _, t := range results {
		fmt.Fprintf(stdout, TemplateTextRow+FmtNewline, t.Name, t.Version, joinList(t.Tags))
	}
	return nil
}

func templateDelete(ctx context.Context, storage mailmerge.TemplateStorage, cfg *templateConfig, stdin io.Reader, stdout io.Writer) error {
	if err := storage.Delete(ctx, cfg.name); err != nil {
		return err
	}
	_, err := fmt.Fprintf(stdout, TemplateTextDeleted+FmtNewline, cfg.name)
	return err
}

func templateVersions(ctx context.Context, storage mailmerge.TemplateStorage, cfg *templateConfig, stdin io.Reader, stdout io.Writer) error {
	versions, err := storage.ListVersions(ctx, cfg.name)
	if err != nil {
		return err
	}
	if len(versions) == 0 {
		return mailmerge.NewTemplateNotFoundError(cfg.name)
	}

	if cfg.format == OutputFormatJSON {
		return writeJSON(stdout, versions)
	}
	for _, v := range versions {
		fmt.Fprintf(stdout, TemplateTextVersion+FmtNewline, v)
	}
	return nil
}
