// Package sqlgen turns an action code and a schema description into SQL
// text: SELECT, INSERT, UPDATE and DELETE statements built from the first
// table whose field bitmap is set, with WHERE clauses compiled from key
// templates.
//
// Usage:
//
//	w := db.TableByName("widgets")
//	w.Select("name")
//	id.SetInt(7)
//	sql, err := sqlgen.New().Generate(action.Read|action.Key0, db, "")
//	// SELECT w.name FROM widgets AS w WHERE w.id = 7;
package sqlgen

import (
	"github.com/koustreak/DatAct/internal/action"
	"github.com/koustreak/DatAct/internal/errs"
	"github.com/koustreak/DatAct/internal/schema"
)

// Generator builds statement text into a bounded buffer.
// A Generator holds no per-call state and may be reused.
type Generator struct {
	capacity int
	dialect  Dialect
}

// Option configures a Generator.
type Option func(*Generator)

// WithCapacity sets the maximum script length.
func WithCapacity(n int) Option {
	return func(g *Generator) { g.capacity = n }
}

// WithDialect sets literal quoting.
func WithDialect(d Dialect) Option {
	return func(g *Generator) { g.dialect = d }
}

// New returns a Generator with DefaultCapacity and DialectDefault.
func New(opts ...Option) *Generator {
	g := &Generator{capacity: DefaultCapacity, dialect: DialectDefault}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate builds the statement for code against the first table in db
// with a non-zero field bitmap. key, when not empty, overrides the canned
// key template selected by code's key index.
//
// When several command bits are set, Read wins over Update, Update over
// Write, and Write over Delete.
func (g *Generator) Generate(code action.Code, db *schema.Database, key string) (string, error) {
	t := db.FirstSelected()
	if t == nil {
		return "", errs.Newf(errs.ErrKindNotFound, "no eligible table: no field bitmap set in database %q", db.Name)
	}
	if key == "" {
		key = db.Key(code.KeyIndex())
	}

	buf := NewBuffer(g.capacity)
	var err error
	switch {
	case code.Has(action.Read):
		err = g.selectStmt(buf, code, db, t, key)
	case code.Has(action.Update):
		err = g.updateStmt(buf, db, t, key)
	case code.Has(action.Write):
		err = g.insertStmt(buf, t)
	case code.Has(action.Delete):
		err = g.deleteStmt(buf, db, t, key)
	default:
		err = errs.Newf(errs.ErrKindInvalidInput, "unknown action %s", code)
	}
	if err != nil {
		return "", err
	}
	if err := buf.Err(); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// SELECT [DISTINCT] a.c1, a.c2 FROM t AS a [WHERE key];
func (g *Generator) selectStmt(buf *Buffer, code action.Code, db *schema.Database, t *schema.Table, key string) error {
	buf.WriteString("SELECT ")
	if t.Fields == schema.AllColumns {
		buf.WriteString("*")
	} else {
		if code.Has(action.Distinct) {
			buf.WriteString("DISTINCT ")
		}
		cols := t.Selected()
		if len(cols) == 0 {
			return errNoColumns(t)
		}
		for i, c := range cols {
			if i > 0 {
				buf.WriteString(", ")
			}
			buf.WriteString(t.Alias)
			_ = buf.WriteByte('.')
			buf.WriteString(c.Name)
		}
	}

	buf.WriteString(" FROM ")
	buf.WriteString(t.Name)
	buf.WriteString(" AS ")
	buf.WriteString(t.Alias)

	if err := g.where(buf, db, t, key, true, false); err != nil {
		return err
	}
	_ = buf.WriteByte(';')
	return nil
}

// UPDATE t SET c1=v1, c2=v2 WHERE key;
func (g *Generator) updateStmt(buf *Buffer, db *schema.Database, t *schema.Table, key string) error {
	cols := t.Selected()
	if len(cols) == 0 {
		return errNoColumns(t)
	}

	buf.WriteString("UPDATE ")
	buf.WriteString(t.Name)
	buf.WriteString(" SET ")
	for i, c := range cols {
		if i > 0 {
			buf.WriteString(", ")
		}
		buf.WriteString(c.Name)
		_ = buf.WriteByte('=')
		buf.WriteString(c.Slot.Literal(g.dialect.ValueQuote))
	}

	if err := g.where(buf, db, t, key, false, true); err != nil {
		return err
	}
	_ = buf.WriteByte(';')
	return nil
}

// INSERT INTO t (c1, c2) VALUES (v1, v2);
// Auto-generated columns are left to the engine.
func (g *Generator) insertStmt(buf *Buffer, t *schema.Table) error {
	var cols []*schema.Column
	for _, c := range t.Selected() {
		if !c.IsAuto() {
			cols = append(cols, c)
		}
	}
	if len(cols) == 0 {
		return errNoColumns(t)
	}

	buf.WriteString("INSERT INTO ")
	buf.WriteString(t.Name)
	buf.WriteString(" (")
	for i, c := range cols {
		if i > 0 {
			buf.WriteString(", ")
		}
		buf.WriteString(c.Name)
	}
	buf.WriteString(") VALUES (")
	for i, c := range cols {
		if i > 0 {
			buf.WriteString(", ")
		}
		buf.WriteString(c.Slot.Literal(g.dialect.ValueQuote))
	}
	buf.WriteString(");")
	return nil
}

// DELETE FROM t WHERE key;
func (g *Generator) deleteStmt(buf *Buffer, db *schema.Database, t *schema.Table, key string) error {
	buf.WriteString("DELETE FROM ")
	buf.WriteString(t.Name)
	if err := g.where(buf, db, t, key, false, true); err != nil {
		return err
	}
	_ = buf.WriteByte(';')
	return nil
}

// where appends " WHERE <key>". A missing key is an error for statements
// that would otherwise touch every row.
func (g *Generator) where(buf *Buffer, db *schema.Database, t *schema.Table, key string, keepAlias, required bool) error {
	if key == "" {
		if required {
			return errs.Newf(errs.ErrKindInvalidInput, "no key for table %q: refusing to touch every row", t.Name)
		}
		return nil
	}
	buf.WriteString(" WHERE ")
	_, err := CompileKey(buf, key, db, t, keepAlias, g.dialect.KeyQuote)
	return err
}

func errNoColumns(t *schema.Table) error {
	return errs.Newf(errs.ErrKindInvalidInput, "no columns selected in table %q", t.Name)
}
