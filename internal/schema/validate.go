package schema

import (
	"strings"

	"github.com/koustreak/DatAct/internal/errs"
)

// MaxKeys is the number of canned key templates a database may declare,
// matching the 3-bit key index of an action code (index 7 is reserved).
const MaxKeys = 7

// KeyRef is one alias.column reference found in a key template.
type KeyRef struct {
	Alias  string
	Column string
}

// KeyRefs lists the alias.column references in a key template. Tokens are
// delimited by spaces; a token containing '.' splits into alias and column
// at its first '.'.
func KeyRefs(tmpl string) []KeyRef {
	var refs []KeyRef
	for _, tok := range strings.Split(tmpl, " ") {
		alias, col, ok := strings.Cut(tok, ".")
		if !ok {
			continue
		}
		refs = append(refs, KeyRef{Alias: alias, Column: col})
	}
	return refs
}

// Validate checks the descriptor invariants: at least one table, unique
// table names and aliases, every table between 1 and MaxColumns columns,
// unique column names each backed by a data slot, at most MaxKeys canned
// keys, and every canned key referencing only declared aliases and columns.
func (d *Database) Validate() error {
	if len(d.Tables) == 0 {
		return errs.Newf(errs.ErrKindInvalidInput, "database %q declares no tables", d.Name)
	}
	if len(d.Keys) > MaxKeys {
		return errs.Newf(errs.ErrKindInvalidInput, "database %q declares %d keys, max %d", d.Name, len(d.Keys), MaxKeys)
	}

	names := make(map[string]bool, len(d.Tables))
	aliases := make(map[string]bool, len(d.Tables))
	for _, t := range d.Tables {
		if t.Name == "" || t.Alias == "" {
			return errs.Newf(errs.ErrKindInvalidInput, "table %q needs both a name and an alias", t.Name)
		}
		if names[t.Name] {
			return errs.Newf(errs.ErrKindInvalidInput, "duplicate table name %q", t.Name)
		}
		if aliases[t.Alias] {
			return errs.Newf(errs.ErrKindInvalidInput, "duplicate table alias %q", t.Alias)
		}
		names[t.Name], aliases[t.Alias] = true, true

		if err := t.validate(); err != nil {
			return err
		}
	}

	for i, key := range d.Keys {
		for _, ref := range KeyRefs(key) {
			t := d.TableByAlias(ref.Alias)
			if t == nil {
				return errs.Newf(errs.ErrKindNotFound, "key %d: alias %q not found", i, ref.Alias)
			}
			if t.Column(ref.Column) == nil {
				return errs.Newf(errs.ErrKindNotFound, "key %d: column %q not found in %s", i, ref.Column, t.Name)
			}
		}
	}
	return nil
}

func (t *Table) validate() error {
	if len(t.Columns) == 0 || len(t.Columns) > MaxColumns {
		return errs.Newf(errs.ErrKindInvalidInput, "table %q has %d columns, want 1..%d", t.Name, len(t.Columns), MaxColumns)
	}
	seen := make(map[string]bool, len(t.Columns))
	for _, c := range t.Columns {
		if c.Name == "" {
			return errs.Newf(errs.ErrKindInvalidInput, "table %q has an unnamed column", t.Name)
		}
		if seen[c.Name] {
			return errs.Newf(errs.ErrKindInvalidInput, "duplicate column %q in table %q", c.Name, t.Name)
		}
		seen[c.Name] = true
		if c.Slot == nil {
			return errs.Newf(errs.ErrKindInvalidInput, "column %s.%s has no data slot", t.Name, c.Name)
		}
	}
	return nil
}

func errColumnNotFound(t *Table, name string) error {
	return errs.Newf(errs.ErrKindNotFound, "column %q not found in table %q", name, t.Name)
}
