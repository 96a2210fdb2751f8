package mailmerge

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/itsatony/go-cuserr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleJobYAML = `
template:
  name: renewal
  subject: "Your {{plan}} plan"
  body: "Hi {{first}},\n{{days|<|7|Renew soon.|}}"
  to: ["{{email}}"]
  cc: ["{{manager}}"]
data:
  path: customers.csv
  separator: ";"
identity:
  name: Support
  email: support@example.com
  organization: Example Ltd
priority: 2
mdn: true
folder: Outbox
output_dir: out
concurrency: 4
time_limit: 90s
`

func TestParseJobConfig(t *testing.T) {
	cfg, err := ParseJobConfig([]byte(sampleJobYAML))
	require.NoError(t, err)

	require.NotNil(t, cfg.Template)
	assert.Equal(t, "renewal", cfg.Template.Name)
	assert.Equal(t, "Your {{plan}} plan", cfg.Template.Subject)
	assert.Equal(t, "Hi {{first}},\n{{days|<|7|Renew soon.|}}", cfg.Template.Body)
	assert.Equal(t, []string{"{{email}}"}, cfg.Template.To)
	assert.Equal(t, "customers.csv", cfg.Data.Path)
	assert.Equal(t, ";", cfg.Data.Separator)
	assert.Equal(t, "support@example.com", cfg.Identity.Email)
	assert.Equal(t, 2, cfg.Priority)
	assert.True(t, cfg.MDN)
	assert.Equal(t, "Outbox", cfg.Folder)
	assert.Equal(t, 4, cfg.Concurrency)
	assert.Equal(t, 90*time.Second, cfg.TimeLimit)
	assert.NoError(t, cfg.Validate())

	opts := cfg.ComposeOptions()
	assert.Equal(t, "Support", opts.Identity.Name)
	assert.Equal(t, 2, opts.Priority)
	assert.True(t, opts.RequestMDN)
}

func TestParseJobConfig_Defaults(t *testing.T) {
	cfg, err := ParseJobConfig([]byte("template:\n  subject: hi\nidentity:\n  email: a@example.com\n"))
	require.NoError(t, err)

	assert.Equal(t, DefaultConcurrency, cfg.Concurrency)
	assert.Equal(t, DefaultTimeLimit, cfg.TimeLimit)
	assert.Equal(t, DefaultFolder, cfg.Folder)
	assert.Equal(t, DataFormatCSV, cfg.DataFormat())
}

func TestParseJobConfig_InvalidYAML(t *testing.T) {
	_, err := ParseJobConfig([]byte("template: [unclosed"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), ErrMsgConfigParse)
}

func TestJobConfig_Validate(t *testing.T) {
	valid := func() *JobConfig {
		return &JobConfig{
			Template: &MergeTemplate{Subject: "s"},
			Identity: Identity{Email: "a@example.com"},
		}
	}

	tests := []struct {
		name     string
		mutate   func(*JobConfig)
		expected string
	}{
		{"no template", func(c *JobConfig) { c.Template = nil }, ErrMsgConfigNoTemplate},
		{"both templates", func(c *JobConfig) { c.TemplateRef = &TemplateRef{Name: "x"} }, ErrMsgConfigBothTemplates},
		{"ref without name", func(c *JobConfig) { c.Template = nil; c.TemplateRef = &TemplateRef{} }, ErrMsgConfigNoTemplate},
		{"no sender", func(c *JobConfig) { c.Identity.Email = " " }, ErrMsgConfigNoSender},
		{"bad mode", func(c *JobConfig) { c.Mode = "rtf" }, ErrMsgInvalidMode},
		{"bad template mode", func(c *JobConfig) { c.Template.Mode = "rtf" }, ErrMsgInvalidMode},
		{"priority too high", func(c *JobConfig) { c.Priority = 6 }, ErrMsgInvalidPriority},
		{"negative concurrency", func(c *JobConfig) { c.Concurrency = -1 }, ErrMsgInvalidConcurrency},
		{"negative time limit", func(c *JobConfig) { c.TimeLimit = -time.Second }, ErrMsgInvalidTimeLimit},
	}

	require.NoError(t, valid().Validate())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.expected)

			var customErr *cuserr.CustomError
			assert.ErrorAs(t, err, &customErr)
		})
	}
}

func TestLoadJobConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "job.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleJobYAML), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "customers.csv"),
		[]byte("first;email;plan\nAnn;ann@example.com;Pro\nBob;bob@example.com;Basic\n"), 0644))

	cfg, err := LoadJobConfig(path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "customers.csv"), cfg.Data.Path)
	assert.Equal(t, filepath.Join(dir, "out"), cfg.OutputDir)

	table, err := cfg.LoadTable(nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "email", "plan"}, table.Header)
	assert.Equal(t, 2, table.Len())
}

func TestLoadJobConfig_Missing(t *testing.T) {
	_, err := LoadJobConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), ErrMsgConfigRead)
}

func TestJobConfig_DataFormat(t *testing.T) {
	tests := []struct {
		path     string
		format   string
		expected string
	}{
		{"list.csv", "", DataFormatCSV},
		{"list.txt", "", DataFormatCSV},
		{"list.XLSX", "", DataFormatXLSX},
		{"list.dat", "XLSX", DataFormatXLSX},
	}

	for _, tt := range tests {
		cfg := &JobConfig{Data: DataConfig{Path: tt.path, Format: tt.format}}
		assert.Equal(t, tt.expected, cfg.DataFormat(), tt.path)
	}
}

func TestJobConfig_LoadTable(t *testing.T) {
	dir := t.TempDir()

	t.Run("xlsx", func(t *testing.T) {
		buf := buildWorkbook(t, map[string][][]any{
			"People": {{"first", "email"}, {"Ann", "ann@example.com"}},
		}, "People")
		path := filepath.Join(dir, "people.xlsx")
		require.NoError(t, os.WriteFile(path, buf.Bytes(), 0644))

		cfg := &JobConfig{Data: DataConfig{Path: path, Sheet: "People"}}
		table, err := cfg.LoadTable(nil)
		require.NoError(t, err)
		assert.Equal(t, "ann@example.com", table.Rows()[0].Get("email"))
	})

	t.Run("no path", func(t *testing.T) {
		_, err := (&JobConfig{}).LoadTable(nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), ErrMsgConfigNoData)
	})

	t.Run("unknown format", func(t *testing.T) {
		cfg := &JobConfig{Data: DataConfig{Path: "x.json", Format: "json"}}
		_, err := cfg.LoadTable(nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), ErrMsgConfigDataFormat)
	})

	t.Run("missing file", func(t *testing.T) {
		cfg := &JobConfig{Data: DataConfig{Path: filepath.Join(dir, "absent.csv")}}
		_, err := cfg.LoadTable(nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), ErrMsgTableRead)
	})
}

func TestJobConfig_ResolveTemplate(t *testing.T) {
	ctx := context.Background()

	t.Run("inline copy with mode override", func(t *testing.T) {
		cfg := &JobConfig{Template: &MergeTemplate{Subject: "s", To: []string{"{{email}}"}}, Mode: ModeHTML}
		got, err := cfg.ResolveTemplate(ctx, nil)
		require.NoError(t, err)
		assert.Equal(t, ModeHTML, got.Mode)

		got.To[0] = "changed"
		assert.Equal(t, "{{email}}", cfg.Template.To[0])
		assert.Empty(t, cfg.Template.Mode)
	})

	storage := NewMemoryStorage()
	first := sampleStoredTemplate("welcome")
	require.NoError(t, storage.Save(ctx, first))
	second := sampleStoredTemplate("welcome")
	second.Template.Subject = "v2"
	require.NoError(t, storage.Save(ctx, second))

	t.Run("latest from storage", func(t *testing.T) {
		cfg := &JobConfig{TemplateRef: &TemplateRef{Name: "welcome"}}
		got, err := cfg.ResolveTemplate(ctx, storage)
		require.NoError(t, err)
		assert.Equal(t, "v2", got.Subject)
		assert.Equal(t, "welcome", got.Name)
	})

	t.Run("pinned version", func(t *testing.T) {
		cfg := &JobConfig{TemplateRef: &TemplateRef{Name: "welcome", Version: 1}}
		got, err := cfg.ResolveTemplate(ctx, storage)
		require.NoError(t, err)
		assert.Equal(t, "Hello {{first}}", got.Subject)
	})

	t.Run("unknown name", func(t *testing.T) {
		cfg := &JobConfig{TemplateRef: &TemplateRef{Name: "nope"}}
		_, err := cfg.ResolveTemplate(ctx, storage)
		assert.True(t, IsNotFound(err))
	})

	t.Run("no storage", func(t *testing.T) {
		cfg := &JobConfig{TemplateRef: &TemplateRef{Name: "welcome"}}
		_, err := cfg.ResolveTemplate(ctx, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), ErrMsgJobNoTemplate)
	})
}

func TestJobConfig_EngineOptions(t *testing.T) {
	cfg := &JobConfig{Concurrency: 2, TimeLimit: time.Minute}
	engine, err := New(cfg.EngineOptions()...)
	require.NoError(t, err)
	assert.Equal(t, 2, engine.config.concurrency)
	assert.Equal(t, time.Minute, engine.config.timeLimit)
}
