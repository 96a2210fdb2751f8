package internal

import (
	"strings"

	"go.uber.org/zap"
)

// CSVConfig configures the delimited-text reader.
type CSVConfig struct {
	Separator byte
	Enclosure byte
}

// DefaultCSVConfig returns comma-separated, double-quote-enclosed settings.
func DefaultCSVConfig() CSVConfig {
	return CSVConfig{
		Separator: CSVSeparatorComma,
		Enclosure: CSVEnclosureDouble,
	}
}

// csvReader splits delimited text into records. Unlike encoding/csv the
// enclosure character is configurable, text after a closing enclosure is kept,
// and an unterminated enclosure swallows the rest of the input instead of
// failing the whole file.
type csvReader struct {
	src    string
	pos    int
	config CSVConfig
}

// ParseCSV splits data into records. A leading UTF-8 byte order mark and
// blank lines are skipped; records keep whatever number of fields they have.
func ParseCSV(data string, config CSVConfig, logger *zap.Logger) [][]string {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.Separator == 0 {
		config.Separator = CSVSeparatorComma
	}
	if config.Enclosure == 0 {
		config.Enclosure = CSVEnclosureDouble
	}

	r := &csvReader{
		src:    strings.TrimPrefix(data, CSVUTF8BOM),
		config: config,
	}

	var records [][]string
	for !r.atEnd() {
		if r.skipBlankLine() {
			continue
		}
		records = append(records, r.readRecord())
	}

	logger.Debug(LogMsgCSVParsed, zap.Int(LogFieldRecords, len(records)))
	return records
}

func (r *csvReader) atEnd() bool {
	return r.pos >= len(r.src)
}

// skipBlankLine consumes a line terminator at the start of a record.
func (r *csvReader) skipBlankLine() bool {
	if n := r.newlineWidth(); n > 0 {
		r.pos += n
		return true
	}
	return false
}

// newlineWidth returns the width of a line terminator at pos, or 0.
func (r *csvReader) newlineWidth() int {
	if r.atEnd() {
		return 0
	}
	switch r.src[r.pos] {
	case '\n':
		return 1
	case '\r':
		if r.pos+1 < len(r.src) && r.src[r.pos+1] == '\n' {
			return 2
		}
		return 1
	}
	return 0
}

func (r *csvReader) readRecord() []string {
	var fields []string
	for {
		fields = append(fields, r.readField())
		if r.atEnd() {
			return fields
		}
		if n := r.newlineWidth(); n > 0 {
			r.pos += n
			return fields
		}
		// separator
		r.pos++
	}
}

func (r *csvReader) readField() string {
	var sb strings.Builder

	if !r.atEnd() && r.src[r.pos] == r.config.Enclosure {
		r.pos++
		for !r.atEnd() {
			c := r.src[r.pos]
			if c == r.config.Enclosure {
				if r.pos+1 < len(r.src) && r.src[r.pos+1] == r.config.Enclosure {
					sb.WriteByte(c)
					r.pos += 2
					continue
				}
				r.pos++
				break
			}
			sb.WriteByte(c)
			r.pos++
		}
	}

	for !r.atEnd() {
		c := r.src[r.pos]
		if c == r.config.Separator || r.newlineWidth() > 0 {
			break
		}
		sb.WriteByte(c)
		r.pos++
	}

	return sb.String()
}
