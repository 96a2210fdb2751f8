package mailmerge

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// JobConfig describes one mail merge run. It is usually loaded from YAML:
//
//	template:
//	  subject: "Your {{plan}} plan"
//	  body: "Hi {{first}}, ..."
//	  to: ["{{email}}"]
//	data:
//	  path: customers.csv
//	  separator: ";"
//	identity:
//	  name: Support
//	  email: support@example.com
//	folder: Outbox
//	output_dir: out
//	time_limit: 2m
type JobConfig struct {
	// Template is an inline merge template. Exactly one of Template and
	// TemplateRef must be set.
	Template *MergeTemplate `yaml:"template,omitempty"`

	// TemplateRef names a template held by a TemplateStorage.
	TemplateRef *TemplateRef `yaml:"template_ref,omitempty"`

	// Store is a "driver:connection" URI used to resolve TemplateRef.
	Store string `yaml:"store,omitempty"`

	Data     DataConfig `yaml:"data"`
	Identity Identity   `yaml:"identity"`

	// Mode overrides the template's body mode when set.
	Mode Mode `yaml:"mode,omitempty"`

	// Priority is 1 (highest) to 5 (lowest); 0 sends no priority header.
	Priority int `yaml:"priority,omitempty"`

	// MDN requests a read receipt.
	MDN bool `yaml:"mdn,omitempty"`

	// Folder is where messages are saved. Unknown folders fall back to Drafts.
	Folder string `yaml:"folder,omitempty"`

	// OutputDir is the root of the directory sink.
	OutputDir string `yaml:"output_dir,omitempty"`

	Concurrency int           `yaml:"concurrency,omitempty"`
	TimeLimit   time.Duration `yaml:"time_limit,omitempty"`
	UserAgent   string        `yaml:"user_agent,omitempty"`
}

// TemplateRef points at a stored template. Version 0 means the latest.
type TemplateRef struct {
	Name    string `yaml:"name"`
	Version int    `yaml:"version,omitempty"`
}

// DataConfig locates the table a job merges.
type DataConfig struct {
	Path string `yaml:"path"`
	// Format is "csv" or "xlsx". When empty it follows the file extension.
	Format    string `yaml:"format,omitempty"`
	Separator string `yaml:"separator,omitempty"`
	Enclosure string `yaml:"enclosure,omitempty"`
	// Sheet selects an XLSX worksheet; empty means the first.
	Sheet string `yaml:"sheet,omitempty"`
}

// LoadJobConfig reads a YAML job file. Relative data and output paths are
// taken relative to the file's directory.
func LoadJobConfig(path string) (*JobConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, NewConfigError(ErrMsgConfigRead, err)
	}
	cfg, err := ParseJobConfig(data)
	if err != nil {
		return nil, err
	}

	base := filepath.Dir(path)
	cfg.Data.Path = relativeTo(base, cfg.Data.Path)
	cfg.OutputDir = relativeTo(base, cfg.OutputDir)
	return cfg, nil
}

// ParseJobConfig decodes YAML and applies defaults. It does not validate;
// call Validate once all overrides are applied.
func ParseJobConfig(data []byte) (*JobConfig, error) {
	var cfg JobConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, NewConfigError(ErrMsgConfigParse, err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *JobConfig) applyDefaults() {
	if c.Concurrency == 0 {
		c.Concurrency = DefaultConcurrency
	}
	if c.TimeLimit == 0 {
		c.TimeLimit = DefaultTimeLimit
	}
	if c.Folder == "" {
		c.Folder = DefaultFolder
	}
}

// Validate checks the parts of the config every run needs. The data file is
// checked separately by LoadTable since callers may supply a table directly.
func (c *JobConfig) Validate() error {
	switch {
	case c.Template == nil && c.TemplateRef == nil:
		return NewConfigError(ErrMsgConfigNoTemplate, nil)
	case c.Template != nil && c.TemplateRef != nil:
		return NewConfigError(ErrMsgConfigBothTemplates, nil)
	case c.TemplateRef != nil && strings.TrimSpace(c.TemplateRef.Name) == "":
		return NewConfigError(ErrMsgConfigNoTemplate, nil)
	}
	if strings.TrimSpace(c.Identity.Email) == "" {
		return NewConfigError(ErrMsgConfigNoSender, nil)
	}
	if !c.Mode.Valid() {
		return NewConfigValueError(ErrMsgInvalidMode, MetaKeyMode, string(c.Mode))
	}
	if c.Template != nil && !c.Template.Mode.Valid() {
		return NewConfigValueError(ErrMsgInvalidMode, MetaKeyMode, string(c.Template.Mode))
	}
	if c.Priority < 0 || c.Priority > PriorityLowest {
		return NewConfigValueError(ErrMsgInvalidPriority, MetaKeyPriority, strconv.Itoa(c.Priority))
	}
	if c.Concurrency < 0 {
		return NewConfigValueError(ErrMsgInvalidConcurrency, MetaKeyConcurrency, strconv.Itoa(c.Concurrency))
	}
	if c.TimeLimit < 0 {
		return NewConfigValueError(ErrMsgInvalidTimeLimit, MetaKeyTimeLimit, c.TimeLimit.String())
	}
	return nil
}

// EngineOptions returns the engine options implied by the config.
func (c *JobConfig) EngineOptions() []Option {
	opts := []Option{WithTimeLimit(c.TimeLimit)}
	if c.Concurrency > 0 {
		opts = append(opts, WithConcurrency(c.Concurrency))
	}
	return opts
}

// ComposeOptions returns the message options implied by the config.
func (c *JobConfig) ComposeOptions() ComposeOptions {
	return ComposeOptions{
		Identity:   c.Identity,
		Priority:   c.Priority,
		RequestMDN: c.MDN,
		UserAgent:  c.UserAgent,
	}
}

// DataFormat returns the configured format, or the one implied by the
// data file extension.
func (c *JobConfig) DataFormat() string {
	if c.Data.Format != "" {
		return strings.ToLower(c.Data.Format)
	}
	if strings.EqualFold(filepath.Ext(c.Data.Path), DataExtXLSX) {
		return DataFormatXLSX
	}
	return DataFormatCSV
}

// LoadTable reads the configured data file.
func (c *JobConfig) LoadTable(logger *zap.Logger) (*Table, error) {
	if c.Data.Path == "" {
		return nil, NewConfigError(ErrMsgConfigNoData, nil)
	}

	format := c.DataFormat()
	if format != DataFormatCSV && format != DataFormatXLSX {
		return nil, NewConfigValueError(ErrMsgConfigDataFormat, MetaKeyFormat, format)
	}

	f, err := os.Open(c.Data.Path)
	if err != nil {
		return nil, NewTableError(ErrMsgTableRead, err)
	}
	defer f.Close()

	if format == DataFormatXLSX {
		return ReadXLSX(f, c.Data.Sheet, logger)
	}
	return ReadCSV(f, CSVOptions{
		Separator: c.Data.Separator,
		Enclosure: c.Data.Enclosure,
		Logger:    logger,
	})
}

// ResolveTemplate returns the merge template of the job: the inline one, or
// the referenced one loaded from storage. The config's Mode, when set,
// overrides the template's.
func (c *JobConfig) ResolveTemplate(ctx context.Context, storage TemplateStorage) (*MergeTemplate, error) {
	var t *MergeTemplate
	switch {
	case c.Template != nil:
		mt := copyMergeTemplate(*c.Template)
		t = &mt
	case c.TemplateRef != nil:
		if storage == nil {
			return nil, NewConfigError(ErrMsgJobNoTemplate, nil)
		}
		var (
			stored *StoredTemplate
			err    error
		)
		if c.TemplateRef.Version > 0 {
			stored, err = storage.GetVersion(ctx, c.TemplateRef.Name, c.TemplateRef.Version)
		} else {
			stored, err = storage.Get(ctx, c.TemplateRef.Name)
		}
		if err != nil {
			return nil, err
		}
		t = stored.MergeTemplate()
	default:
		return nil, NewConfigError(ErrMsgConfigNoTemplate, nil)
	}

	if c.Mode != "" {
		t.Mode = c.Mode
	}
	return t, nil
}

func relativeTo(base, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(base, path)
}
