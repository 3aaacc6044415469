// Package schema holds the caller-declared description of a database: its
// tables, their columns, the data slots those columns read from and unpack
// into, and the canned key templates used to build WHERE clauses.
//
// Descriptors are built once at setup, either in code or with Load, and are
// never modified by the engine. Callers only change the per-table field
// bitmaps and the slot values between actions.
package schema

// Flag is a bitmask of column options.
type Flag uint32

const (
	FlagPrimaryKey    Flag = 1 << iota // column is (part of) the primary key
	FlagAutoGenerated                  // engine generates the value; never INSERTed
)

// MaxColumns is the widest table a field bitmap can address.
const MaxColumns = 32

// Bitmap selects the columns of a table that take part in an action:
// bit i set means column i participates.
type Bitmap uint32

// AllColumns is the sentinel requesting every column (SELECT *).
const AllColumns Bitmap = 0xFFFFFFFF

// Bits builds a bitmap from column positions.
func Bits(positions ...int) Bitmap {
	var b Bitmap
	for _, p := range positions {
		b = b.Set(p)
	}
	return b
}

// Has reports whether column i is selected.
func (b Bitmap) Has(i int) bool {
	return i >= 0 && i < MaxColumns && (b>>uint(i))&1 == 1
}

// Set returns b with column i selected.
func (b Bitmap) Set(i int) Bitmap {
	if i < 0 || i >= MaxColumns {
		return b
	}
	return b | 1<<uint(i)
}

// Column describes one table column and where its value lives.
type Column struct {
	Name  string
	Flags Flag
	Slot  *Field
}

// IsAuto reports whether the engine generates this column's value.
func (c *Column) IsAuto() bool { return c.Flags&FlagAutoGenerated != 0 }

// IsPrimaryKey reports whether the column is part of the primary key.
func (c *Column) IsPrimaryKey() bool { return c.Flags&FlagPrimaryKey != 0 }

// Table describes one table, its SQL alias and its columns in ordinal order.
type Table struct {
	Name    string
	Alias   string
	Fields  Bitmap // columns taking part in the current action
	Columns []*Column
}

// Column returns the column with the given name, or nil.
func (t *Table) Column(name string) *Column {
	for _, c := range t.Columns {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// Select sets the field bitmap to exactly the named columns.
func (t *Table) Select(names ...string) error {
	var b Bitmap
	for _, name := range names {
		i := t.index(name)
		if i < 0 {
			return errColumnNotFound(t, name)
		}
		b = b.Set(i)
	}
	t.Fields = b
	return nil
}

// Selected returns the columns whose bit is set, in ordinal order. Bits
// beyond the column count are ignored.
func (t *Table) Selected() []*Column {
	var cols []*Column
	for i, c := range t.Columns {
		if t.Fields.Has(i) {
			cols = append(cols, c)
		}
	}
	return cols
}

func (t *Table) index(name string) int {
	for i, c := range t.Columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// Database describes one database file and the tables inside it.
type Database struct {
	Name   string
	Path   string   // identity used by the handle pool and passed to the engine
	Keys   []string // canned key templates, selected by an action's key index
	Tables []*Table
}

// TableCount returns the number of declared tables.
func (d *Database) TableCount() int { return len(d.Tables) }

// KeyCount returns the number of canned key templates.
func (d *Database) KeyCount() int { return len(d.Keys) }

// MaxColumnCount returns the column count of the widest table.
func (d *Database) MaxColumnCount() int {
	n := 0
	for _, t := range d.Tables {
		if len(t.Columns) > n {
			n = len(t.Columns)
		}
	}
	return n
}

// Key returns canned key template i, or "" if none is declared.
func (d *Database) Key(i int) string {
	if i < 0 || i >= len(d.Keys) {
		return ""
	}
	return d.Keys[i]
}

// TableByName returns the table with the given name, or nil.
func (d *Database) TableByName(name string) *Table {
	for _, t := range d.Tables {
		if t.Name == name {
			return t
		}
	}
	return nil
}

// TableByAlias returns the table with the given alias, or nil.
func (d *Database) TableByAlias(alias string) *Table {
	for _, t := range d.Tables {
		if t.Alias == alias {
			return t
		}
	}
	return nil
}

// FirstSelected returns the first table whose field bitmap selects at least
// one of its columns, or nil. Bits past the last column do not count.
func (d *Database) FirstSelected() *Table {
	for _, t := range d.Tables {
		if len(t.Selected()) > 0 {
			return t
		}
	}
	return nil
}

// ClearFields zeroes every table's field bitmap.
func (d *Database) ClearFields() {
	for _, t := range d.Tables {
		t.Fields = 0
	}
}
