package dispatch

import (
	"github.com/koustreak/DatAct/internal/database"
	"github.com/koustreak/DatAct/internal/errs"
	"github.com/koustreak/DatAct/internal/schema"
)

// unpack copies the current row of st into the data slots of db.
//
// Each result column is matched by name: the engine's table name selects
// the table and the origin name the column. Engines that cannot attribute
// a column report an empty table name; the column is then looked up in
// source, the table a generated Read selects from, and only when that
// fails in every table in declaration order. With count set, result labels are
// matched against the first table only, which is how synthetic columns
// such as COUNT(*) AS n reach a slot.
func unpack(st database.Stmt, db *schema.Database, source *schema.Table, count bool) error {
	for i := 0; i < st.ColumnCount(); i++ {
		col, err := resolve(st, db, source, i, count)
		if err != nil {
			return err
		}
		store(col.Slot, st, i)
	}
	return nil
}

func resolve(st database.Stmt, db *schema.Database, source *schema.Table, i int, count bool) (*schema.Column, error) {
	if count {
		name := st.ColumnName(i)
		if len(db.Tables) > 0 {
			if c := db.Tables[0].Column(name); c != nil {
				return c, nil
			}
		}
		return nil, errs.Newf(errs.ErrKindNotFound, "result column %q not found in first table of %q", name, db.Name)
	}

	table, origin := st.ColumnTableName(i), st.ColumnOriginName(i)
	if table != "" {
		t := db.TableByName(table)
		if t == nil {
			return nil, errs.Newf(errs.ErrKindNotFound, "table %q not found in %q", table, db.Name)
		}
		c := t.Column(origin)
		if c == nil {
			return nil, errs.Newf(errs.ErrKindNotFound, "column %q not found in table %q", origin, table)
		}
		return c, nil
	}

	if source != nil {
		if c := source.Column(origin); c != nil {
			return c, nil
		}
	}
	for _, t := range db.Tables {
		if c := t.Column(origin); c != nil {
			return c, nil
		}
	}
	return nil, errs.Newf(errs.ErrKindNotFound, "result column %q not found in %q", origin, db.Name)
}

func store(slot *schema.Field, st database.Stmt, i int) {
	if slot.Kind() == schema.KindInt {
		if st.ColumnBytes(i) == nil {
			slot.Clear()
			return
		}
		slot.SetInt(st.ColumnInt(i))
		return
	}
	slot.SetBytes(st.ColumnBytes(i))
}
