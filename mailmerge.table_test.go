package mailmerge

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/itsatony/go-cuserr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestReadCSV(t *testing.T) {
	tests := []struct {
		name           string
		input          string
		opts           CSVOptions
		expectedHeader []string
		expectedLines  [][]string
	}{
		{
			name:           "defaults",
			input:          "name,mail\nAnn,ann@example.com\n",
			expectedHeader: []string{"name", "mail"},
			expectedLines:  [][]string{{"Ann", "ann@example.com"}},
		},
		{
			name:           "semicolon",
			input:          "name;plan\nAnn;pro\n",
			opts:           CSVOptions{Separator: SeparatorSemicolon},
			expectedHeader: []string{"name", "plan"},
			expectedLines:  [][]string{{"Ann", "pro"}},
		},
		{
			name:           "pipe",
			input:          "a|b\n1|2\n",
			opts:           CSVOptions{Separator: SeparatorPipe},
			expectedHeader: []string{"a", "b"},
			expectedLines:  [][]string{{"1", "2"}},
		},
		{
			name:           "tab by name",
			input:          "a\tb\n1\t2\n",
			opts:           CSVOptions{Separator: SeparatorTab},
			expectedHeader: []string{"a", "b"},
			expectedLines:  [][]string{{"1", "2"}},
		},
		{
			name:           "unknown separator falls back to comma",
			input:          "a,b\n1,2\n",
			opts:           CSVOptions{Separator: "#"},
			expectedHeader: []string{"a", "b"},
			expectedLines:  [][]string{{"1", "2"}},
		},
		{
			name:           "single quote enclosure",
			input:          "a,b\n'x,y',2\n",
			opts:           CSVOptions{Enclosure: EnclosureSingle},
			expectedHeader: []string{"a", "b"},
			expectedLines:  [][]string{{"x,y", "2"}},
		},
		{
			name:           "unknown enclosure falls back to double quote",
			input:          "a\n\"x,y\"\n",
			opts:           CSVOptions{Enclosure: "`"},
			expectedHeader: []string{"a"},
			expectedLines:  [][]string{{"x,y"}},
		},
		{
			name:           "header only",
			input:          "a,b\n",
			expectedHeader: []string{"a", "b"},
			expectedLines:  [][]string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table, err := ReadCSV(strings.NewReader(tt.input), tt.opts)
			require.NoError(t, err)
			assert.Equal(t, tt.expectedHeader, table.Header)
			assert.Equal(t, tt.expectedLines, table.Lines)
			assert.Equal(t, len(tt.expectedLines), table.Len())
		})
	}
}

func TestReadCSV_Empty(t *testing.T) {
	for _, input := range []string{"", "\n\n", "\xEF\xBB\xBF"} {
		_, err := ReadCSV(strings.NewReader(input), CSVOptions{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), ErrMsgTableEmpty)

		var customErr *cuserr.CustomError
		assert.True(t, errors.As(err, &customErr))
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("disk on fire") }

func TestReadCSV_ReadError(t *testing.T) {
	_, err := ReadCSV(failingReader{}, CSVOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), ErrMsgTableRead)
}

func TestTable_Rows(t *testing.T) {
	table, err := ReadCSV(strings.NewReader("x,y,z\n1,2\n"), CSVOptions{})
	require.NoError(t, err)

	rows := table.Rows()
	require.Len(t, rows, 1)
	assert.Equal(t, map[string]string{"x": "1", "y": "2"}, rows[0].Map())
}

func buildWorkbook(t *testing.T, sheets map[string][][]any, order ...string) *bytes.Buffer {
	t.Helper()

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	for i, name := range order {
		if i == 0 {
			require.NoError(t, f.SetSheetName("Sheet1", name))
		} else {
			_, err := f.NewSheet(name)
			require.NoError(t, err)
		}
		for r, cells := range sheets[name] {
			cell, err := excelize.CoordinatesToCellName(1, r+1)
			require.NoError(t, err)
			row := cells
			require.NoError(t, f.SetSheetRow(name, cell, &row))
		}
	}

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf
}

func TestReadXLSX(t *testing.T) {
	sheets := map[string][][]any{
		"People": {
			{"name", "score"},
			{"Ann", "10"},
			{},
			{"Bob"},
		},
		"Other": {
			{"k"},
			{"v"},
		},
	}

	t.Run("first sheet by default", func(t *testing.T) {
		buf := buildWorkbook(t, sheets, "People", "Other")
		table, err := ReadXLSX(buf, "", nil)
		require.NoError(t, err)
		assert.Equal(t, []string{"name", "score"}, table.Header)
		assert.Equal(t, [][]string{{"Ann", "10"}, {"Bob"}}, table.Lines)
	})

	t.Run("named sheet", func(t *testing.T) {
		buf := buildWorkbook(t, sheets, "People", "Other")
		table, err := ReadXLSX(buf, "Other", nil)
		require.NoError(t, err)
		assert.Equal(t, []string{"k"}, table.Header)
		assert.Equal(t, 1, table.Len())
	})

	t.Run("missing sheet", func(t *testing.T) {
		buf := buildWorkbook(t, sheets, "People", "Other")
		_, err := ReadXLSX(buf, "Nope", nil)
		require.Error(t, err)

		var customErr *cuserr.CustomError
		require.True(t, errors.As(err, &customErr))
		sheet, ok := customErr.GetMetadata(MetaKeySheet)
		assert.True(t, ok)
		assert.Equal(t, "Nope", sheet)
	})

	t.Run("empty sheet", func(t *testing.T) {
		buf := buildWorkbook(t, map[string][][]any{"Empty": nil}, "Empty")
		_, err := ReadXLSX(buf, "", nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), ErrMsgTableEmpty)
	})

	t.Run("not a workbook", func(t *testing.T) {
		_, err := ReadXLSX(strings.NewReader("name,mail\n"), "", nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), ErrMsgTableRead)
	})
}
