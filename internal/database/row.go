package database

// Columns returns the result column labels of st.
func Columns(st Stmt) []string {
	cols := make([]string, st.ColumnCount())
	for i := range cols {
		cols[i] = st.ColumnName(i)
	}
	return cols
}

// ScanRows steps st until it is exhausted and returns every row as a map
// from column label to text value. NULL becomes a nil entry.
//
// The returned slice is always non-nil (empty slice on zero rows).
// ScanRows does not finalize st.
func ScanRows(st Stmt) ([]map[string]any, error) {
	columns := Columns(st)
	result := make([]map[string]any, 0)

	for {
		ok, err := st.Step()
		if err != nil {
			return nil, err
		}
		if !ok {
			return result, nil
		}

		row := make(map[string]any, len(columns))
		for i, col := range columns {
			if b := st.ColumnBytes(i); b != nil {
				row[col] = string(b)
			} else {
				row[col] = nil
			}
		}
		result = append(result, row)
	}
}
