package schema

import (
	"bytes"
	"os"

	"go.yaml.in/yaml/v3"

	"github.com/koustreak/DatAct/internal/errs"
)

// DefaultTextSize is the slot capacity used for text columns declared
// without a size.
const DefaultTextSize = 255

// Descriptor files look like:
//
//	name: shop
//	path: shop.db
//	keys:
//	  - "w.id = %"
//	tables:
//	  - name: widgets
//	    alias: w
//	    columns:
//	      - {name: id, type: int, primary: true, auto: true}
//	      - {name: name, type: text, size: 20}
type fileDatabase struct {
	Name   string      `yaml:"name"`
	Path   string      `yaml:"path"`
	Keys   []string    `yaml:"keys"`
	Tables []fileTable `yaml:"tables"`
}

type fileTable struct {
	Name    string       `yaml:"name"`
	Alias   string       `yaml:"alias"`
	Columns []fileColumn `yaml:"columns"`
}

type fileColumn struct {
	Name    string `yaml:"name"`
	Type    string `yaml:"type"`
	Size    int    `yaml:"size"`
	Primary bool   `yaml:"primary"`
	Auto    bool   `yaml:"auto"`
}

// Load reads and validates a YAML descriptor file, allocating a data slot
// for every column.
func Load(path string) (*Database, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindInvalidInput, "failed to read descriptor file", err)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML descriptor. A table without an alias
// uses its name as alias.
func Parse(data []byte) (*Database, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var fd fileDatabase
	if err := dec.Decode(&fd); err != nil {
		return nil, errs.Wrap(errs.ErrKindInvalidInput, "invalid descriptor", err)
	}

	db := &Database{Name: fd.Name, Path: fd.Path, Keys: fd.Keys}
	for _, ft := range fd.Tables {
		t := &Table{Name: ft.Name, Alias: ft.Alias}
		if t.Alias == "" {
			t.Alias = t.Name
		}
		for _, fc := range ft.Columns {
			kind, err := ParseKind(fc.Type)
			if err != nil {
				return nil, errs.Wrap(errs.ErrKindInvalidInput, "column "+ft.Name+"."+fc.Name, err)
			}
			size := fc.Size
			if kind == KindText && size <= 0 {
				size = DefaultTextSize
			}
			c := &Column{Name: fc.Name, Slot: NewField(kind, size)}
			if fc.Primary {
				c.Flags |= FlagPrimaryKey
			}
			if fc.Auto {
				c.Flags |= FlagAutoGenerated
			}
			t.Columns = append(t.Columns, c)
		}
		db.Tables = append(db.Tables, t)
	}

	if err := db.Validate(); err != nil {
		return nil, err
	}
	return db, nil
}
