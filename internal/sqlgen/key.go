package sqlgen

import (
	"github.com/koustreak/DatAct/internal/errs"
	"github.com/koustreak/DatAct/internal/schema"
)

// CompileKey copies the key template tmpl into buf, resolving references
// against db and substituting values, and returns the number of bytes it
// emitted.
//
// Template syntax, scanned once left to right:
//
//	alias.column   the alias selects a table, the word after '.' up to the
//	               next space selects the current column
//	column         a bare word naming a column of target also selects it
//	%              replaced by the current column's value as a literal
//	anything else  copied verbatim
//
// With keepAlias false every "alias." is dropped from the output, which is
// how the same template serves both aliased SELECTs and single-table
// UPDATE/DELETE statements.
//
// Text that no longer fits in buf is still scanned, so reference errors are
// reported ahead of the overflow.
func CompileKey(buf *Buffer, tmpl string, db *schema.Database, target *schema.Table, keepAlias bool, quote byte) (int, error) {
	start := buf.Len()

	var (
		table    *schema.Table
		col      *schema.Column
		tokStart = 0         // template offset of the current token
		tokOut   = buf.Len() // output offset of the current token
		colStart = -1        // template offset of a pending column name
	)

	// endToken resolves the token ending at template offset i.
	endToken := func(i int) error {
		if colStart >= 0 {
			name := tmpl[colStart:i]
			c := table.Column(name)
			if c == nil {
				return errs.Newf(errs.ErrKindNotFound, "column %q not found in table %q (key %q)", name, table.Name, tmpl)
			}
			col, colStart = c, -1
			return nil
		}
		if target != nil {
			if c := target.Column(tmpl[tokStart:i]); c != nil {
				col = c
			}
		}
		return nil
	}

	for i := 0; i < len(tmpl); i++ {
		c := tmpl[i]
		switch {
		case c == '.' && colStart < 0:
			alias := tmpl[tokStart:i]
			table = db.TableByAlias(alias)
			if table == nil {
				return buf.Len() - start, errs.Newf(errs.ErrKindNotFound, "alias %q not found (key %q)", alias, tmpl)
			}
			colStart = i + 1
			if !keepAlias {
				buf.Unwrite(buf.Len() - tokOut)
				continue
			}
			_ = buf.WriteByte(c)

		case c == ' ':
			if err := endToken(i); err != nil {
				return buf.Len() - start, err
			}
			_ = buf.WriteByte(c)
			tokStart, tokOut = i+1, buf.Len()

		case c == '%':
			if colStart >= 0 {
				return buf.Len() - start, errs.Newf(errs.ErrKindInvalidInput, "column name must end before %% (key %q)", tmpl)
			}
			if col == nil {
				return buf.Len() - start, errs.Newf(errs.ErrKindInvalidInput, "value marker with no column (key %q)", tmpl)
			}
			buf.WriteString(col.Slot.Literal(quote))

		default:
			_ = buf.WriteByte(c)
		}
	}

	if err := endToken(len(tmpl)); err != nil {
		return buf.Len() - start, err
	}
	return buf.Len() - start, nil
}
