package schema

import (
	"sort"
	"strings"

	"github.com/koustreak/DatAct/internal/errs"
)

// Selection names the table, the participating columns and the values
// for one action, in the textual form used on the command line and in
// HTTP requests.
type Selection struct {
	Table  string            `json:"table,omitempty"`  // table name or alias, default the first table
	Fields []string          `json:"fields,omitempty"` // column names, or "*" for every column
	Values map[string]string `json:"values,omitempty"` // column name to value, or "alias.column" for other tables
}

// Apply clears every field bitmap, selects s.Fields in the chosen table
// and stores s.Values in their slots. It returns the chosen table.
func (d *Database) Apply(s Selection) (*Table, error) {
	t, err := d.pick(s.Table)
	if err != nil {
		return nil, err
	}

	d.ClearFields()
	if len(s.Fields) == 1 && s.Fields[0] == "*" {
		t.Fields = AllColumns
	} else if err := t.Select(s.Fields...); err != nil {
		return nil, err
	}

	// sorted so a bad value is reported deterministically
	names := make([]string, 0, len(s.Values))
	for name := range s.Values {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		target, col := t, name
		if alias, c, ok := strings.Cut(name, "."); ok {
			if target = d.TableByAlias(alias); target == nil {
				return nil, errs.Newf(errs.ErrKindNotFound, "alias %q not found", alias)
			}
			col = c
		}
		c := target.Column(col)
		if c == nil {
			return nil, errColumnNotFound(target, col)
		}
		if err := c.Slot.Set(s.Values[name]); err != nil {
			return nil, errs.Wrap(errs.ErrKindInvalidInput, "bad value for "+name, err)
		}
	}
	return t, nil
}

func (d *Database) pick(name string) (*Table, error) {
	if name == "" {
		if len(d.Tables) == 0 {
			return nil, errs.New(errs.ErrKindNotFound, "database has no tables")
		}
		return d.Tables[0], nil
	}
	if t := d.TableByName(name); t != nil {
		return t, nil
	}
	if t := d.TableByAlias(name); t != nil {
		return t, nil
	}
	return nil, errs.Newf(errs.ErrKindNotFound, "table %q not found in %q", name, d.Name)
}

// Row returns the current slot values of t's selected columns, keyed by
// column name. AllColumns returns every column.
func (t *Table) Row() map[string]string {
	row := make(map[string]string, len(t.Columns))
	for _, c := range t.Selected() {
		row[c.Name] = c.Slot.String()
	}
	return row
}
