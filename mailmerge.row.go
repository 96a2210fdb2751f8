package mailmerge

// Row is one record of column-name to value substitutions.
// A Row is immutable after construction and safe to share between goroutines.
type Row struct {
	keys   []string
	values map[string]string
}

// NewRow pairs header names with cells by position. A short line leaves the
// trailing columns absent; extra cells are dropped. When the header repeats a
// name, the later cell wins and the name keeps its first position.
func NewRow(header, cells []string) Row {
	n := min(len(header), len(cells))
	r := Row{
		keys:   make([]string, 0, n),
		values: make(map[string]string, n),
	}
	for i := 0; i < n; i++ {
		name := header[i]
		if _, seen := r.values[name]; !seen {
			r.keys = append(r.keys, name)
		}
		r.values[name] = cells[i]
	}
	return r
}

// RowFromMap builds a row from a map. Keys are ordered as given by order;
// map keys missing from order are not included.
func RowFromMap(order []string, values map[string]string) Row {
	cells := make([]string, 0, len(order))
	header := make([]string, 0, len(order))
	for _, name := range order {
		if v, ok := values[name]; ok {
			header = append(header, name)
			cells = append(cells, v)
		}
	}
	return NewRow(header, cells)
}

// BuildRows builds one Row per data line.
func BuildRows(header []string, lines [][]string) []Row {
	rows := make([]Row, len(lines))
	for i, line := range lines {
		rows[i] = NewRow(header, line)
	}
	return rows
}

// Lookup returns the value of a column and whether the row has it.
func (r Row) Lookup(name string) (string, bool) {
	v, ok := r.values[name]
	return v, ok
}

// Get returns the value of a column, or "" when absent.
func (r Row) Get(name string) string {
	return r.values[name]
}

// Has reports whether the row has a column.
func (r Row) Has(name string) bool {
	_, ok := r.values[name]
	return ok
}

// Keys returns the column names in header order.
func (r Row) Keys() []string {
	out := make([]string, len(r.keys))
	copy(out, r.keys)
	return out
}

// Len returns the number of columns present.
func (r Row) Len() int {
	return len(r.keys)
}

// Map returns a copy of the row as a map.
func (r Row) Map() map[string]string {
	out := make(map[string]string, len(r.values))
	for k, v := range r.values {
		out[k] = v
	}
	return out
}
