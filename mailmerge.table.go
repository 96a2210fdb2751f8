package mailmerge

import (
	"io"
	"slices"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/itsatony/go-mailmerge/internal"
)

// Table is tabular input: a header line plus data lines aligned to it by position.
type Table struct {
	Header []string
	Lines  [][]string
}

// NewTable creates a table from an already split header and data lines.
func NewTable(header []string, lines [][]string) *Table {
	return &Table{Header: header, Lines: lines}
}

// Rows builds one Row per data line.
func (t *Table) Rows() []Row {
	return BuildRows(t.Header, t.Lines)
}

// Len returns the number of data lines.
func (t *Table) Len() int {
	return len(t.Lines)
}

// CSVOptions configures ReadCSV. Unknown separators fall back to a comma and
// unknown enclosures to a double quote.
type CSVOptions struct {
	// Separator is one of "," ";" "|" or "tab".
	Separator string
	// Enclosure is `"` or "'".
	Enclosure string
	Logger    *zap.Logger
}

func (o CSVOptions) config() internal.CSVConfig {
	cfg := internal.DefaultCSVConfig()
	switch o.Separator {
	case SeparatorSemicolon:
		cfg.Separator = internal.CSVSeparatorSemicolon
	case SeparatorPipe:
		cfg.Separator = internal.CSVSeparatorPipe
	case SeparatorTab, "\t":
		cfg.Separator = internal.CSVSeparatorTab
	}
	if o.Enclosure == EnclosureSingle {
		cfg.Enclosure = internal.CSVEnclosureSingle
	}
	return cfg
}

// ReadCSV reads delimited text. The first record is the header; blank lines
// are skipped and ragged lines are kept as they are.
func ReadCSV(r io.Reader, opts CSVOptions) (*Table, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, NewTableError(ErrMsgTableRead, err)
	}

	records := internal.ParseCSV(string(data), opts.config(), logger)
	if len(records) == 0 {
		return nil, NewTableError(ErrMsgTableEmpty, nil)
	}

	t := NewTable(records[0], records[1:])
	logger.Debug(LogMsgTableRead,
		zap.String(LogFieldFormat, DataFormatCSV),
		zap.Int(LogFieldColumns, len(t.Header)),
		zap.Int(LogFieldRows, t.Len()))
	return t, nil
}

// ReadXLSX reads one worksheet of an XLSX workbook; an empty sheet name
// selects the first worksheet. Empty rows are skipped.
func ReadXLSX(r io.Reader, sheet string, logger *zap.Logger) (*Table, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, NewTableError(ErrMsgTableRead, err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, NewTableError(ErrMsgWorkbookNoSheets, nil)
	}
	if sheet == "" {
		sheet = sheets[0]
	} else if !slices.Contains(sheets, sheet) {
		return nil, NewSheetNotFoundError(sheet)
	}

	all, err := f.GetRows(sheet)
	if err != nil {
		return nil, NewTableError(ErrMsgTableRead, err)
	}

	var records [][]string
	for _, rec := range all {
		if len(rec) > 0 {
			records = append(records, rec)
		}
	}
	if len(records) == 0 {
		return nil, NewTableError(ErrMsgTableEmpty, nil)
	}

	t := NewTable(records[0], records[1:])
	logger.Debug(LogMsgTableRead,
		zap.String(LogFieldFormat, DataFormatXLSX),
		zap.String(MetaKeySheet, sheet),
		zap.Int(LogFieldColumns, len(t.Header)),
		zap.Int(LogFieldRows, t.Len()))
	return t, nil
}
