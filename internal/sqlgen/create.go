package sqlgen

import (
	"fmt"
	"strings"

	"github.com/koustreak/DatAct/internal/schema"
)

// CreateTables returns a script of CREATE TABLE IF NOT EXISTS statements,
// one per table in db, in declaration order. Each statement must fit the
// generator capacity on its own; the first one that does not is reported
// as a buffer overflow.
func (g *Generator) CreateTables(db *schema.Database) (string, error) {
	stmts := make([]string, 0, len(db.Tables))
	for _, t := range db.Tables {
		buf := NewBuffer(g.capacity)
		g.createTable(buf, t)
		if err := buf.Err(); err != nil {
			return "", err
		}
		stmts = append(stmts, buf.String())
	}
	return strings.Join(stmts, "\n"), nil
}

func (g *Generator) createTable(buf *Buffer, t *schema.Table) {
	var pk []string
	serial := false
	for _, c := range t.Columns {
		if c.IsPrimaryKey() {
			pk = append(pk, c.Name)
			serial = serial || c.IsAuto()
		}
	}
	// an auto-generated key carries PRIMARY KEY inline
	inline := serial && len(pk) == 1

	buf.WriteString("CREATE TABLE IF NOT EXISTS ")
	buf.WriteString(t.Name)
	buf.WriteString(" (")
	for i, c := range t.Columns {
		if i > 0 {
			buf.WriteString(", ")
		}
		buf.WriteString(c.Name)
		buf.WriteByte(' ')
		if inline && c.IsPrimaryKey() {
			buf.WriteString(g.dialect.Serial)
			continue
		}
		buf.WriteString(columnType(c.Slot))
	}
	if len(pk) > 0 && !inline {
		buf.WriteString(", PRIMARY KEY (")
		buf.WriteString(strings.Join(pk, ", "))
		buf.WriteByte(')')
	}
	buf.WriteString(");")
}

func columnType(f *schema.Field) string {
	switch f.Kind() {
	case schema.KindInt:
		return "INTEGER"
	case schema.KindChar:
		return "CHAR(1)"
	default:
		return fmt.Sprintf("VARCHAR(%d)", f.Size())
	}
}
