package sqlgen

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koustreak/DatAct/internal/action"
	"github.com/koustreak/DatAct/internal/errs"
	"github.com/koustreak/DatAct/internal/schema"
)

func shop() *schema.Database {
	return &schema.Database{
		Name: "shop",
		Path: "shop.db",
		Keys: []string{"w.id = %", "w.name = %", "w.grade = % AND w.id > %"},
		Tables: []*schema.Table{
			{
				Name:  "widgets",
				Alias: "w",
				Columns: []*schema.Column{
					{Name: "id", Flags: schema.FlagPrimaryKey | schema.FlagAutoGenerated, Slot: schema.IntField()},
					{Name: "name", Slot: schema.TextField(20)},
					{Name: "grade", Slot: schema.CharField()},
				},
			},
			{
				Name:  "orders",
				Alias: "o",
				Columns: []*schema.Column{
					{Name: "id", Flags: schema.FlagPrimaryKey, Slot: schema.IntField()},
					{Name: "widget", Slot: schema.IntField()},
				},
			},
		},
	}
}

func TestGenerate(t *testing.T) {
	tests := []struct {
		name   string
		code   action.Code
		key    string
		fields schema.Bitmap
		setup  func(db *schema.Database)
		want   string
	}{
		{
			name:   "read with canned key",
			code:   action.Read | action.Key0,
			fields: schema.Bits(1),
			setup:  func(db *schema.Database) { db.Tables[0].Columns[0].Slot.SetInt(7) },
			want:   "SELECT w.name FROM widgets AS w WHERE w.id = 7;",
		},
		{
			name:   "read all columns",
			code:   action.Read | action.Key0,
			fields: schema.AllColumns,
			setup:  func(db *schema.Database) { db.Tables[0].Columns[0].Slot.SetInt(7) },
			want:   "SELECT * FROM widgets AS w WHERE w.id = 7;",
		},
		{
			name:   "distinct ignored with all columns",
			code:   action.Read | action.Distinct | action.Key0,
			fields: schema.AllColumns,
			setup:  func(db *schema.Database) { db.Tables[0].Columns[0].Slot.SetInt(1) },
			want:   "SELECT * FROM widgets AS w WHERE w.id = 1;",
		},
		{
			name:   "distinct",
			code:   action.Read | action.Distinct | action.Key1,
			fields: schema.Bits(1, 2),
			setup:  func(db *schema.Database) { db.Tables[0].Columns[1].Slot.SetText("Bob") },
			want:   "SELECT DISTINCT w.name, w.grade FROM widgets AS w WHERE w.name = 'Bob';",
		},
		{
			name:   "read without key",
			code:   action.Read | action.Key5,
			fields: schema.Bits(0, 1),
			want:   "SELECT w.id, w.name FROM widgets AS w;",
		},
		{
			name:   "two values in one key",
			code:   action.Read | action.Key2,
			fields: schema.Bits(1),
			setup: func(db *schema.Database) {
				db.Tables[0].Columns[2].Slot.SetChar('A')
				db.Tables[0].Columns[0].Slot.SetInt(10)
			},
			want: "SELECT w.name FROM widgets AS w WHERE w.grade = 'A' AND w.id > 10;",
		},
		{
			name:   "insert skips auto columns",
			code:   action.Write,
			fields: schema.AllColumns,
			setup: func(db *schema.Database) {
				db.Tables[0].Columns[1].Slot.SetText("Alice")
				db.Tables[0].Columns[2].Slot.SetChar('B')
			},
			want: `INSERT INTO widgets (name, grade) VALUES ("Alice", "B");`,
		},
		{
			name:   "insert one column",
			code:   action.Write,
			fields: schema.Bits(1),
			setup:  func(db *schema.Database) { db.Tables[0].Columns[1].Slot.SetText("Alice") },
			want:   `INSERT INTO widgets (name) VALUES ("Alice");`,
		},
		{
			name:   "update with ad-hoc key",
			code:   action.Update,
			key:    "id = %",
			fields: schema.Bits(1),
			setup: func(db *schema.Database) {
				db.Tables[0].Columns[0].Slot.SetInt(3)
				db.Tables[0].Columns[1].Slot.SetText("Alice")
			},
			want: `UPDATE widgets SET name="Alice" WHERE id = 3;`,
		},
		{
			name:   "update strips aliases",
			code:   action.Update | action.Key0,
			fields: schema.Bits(1, 2),
			setup: func(db *schema.Database) {
				db.Tables[0].Columns[0].Slot.SetInt(3)
				db.Tables[0].Columns[1].Slot.SetText("Alice")
				db.Tables[0].Columns[2].Slot.SetChar('C')
			},
			want: `UPDATE widgets SET name="Alice", grade="C" WHERE id = 3;`,
		},
		{
			name:   "delete",
			code:   action.Delete | action.Key1,
			fields: schema.Bits(1),
			setup:  func(db *schema.Database) { db.Tables[0].Columns[1].Slot.SetText("O'Brien") },
			want:   "DELETE FROM widgets WHERE name = 'O''Brien';",
		},
		{
			name:   "read wins over update",
			code:   action.Read | action.Update | action.Key0,
			fields: schema.Bits(1),
			want:   "SELECT w.name FROM widgets AS w WHERE w.id = 0;",
		},
		{
			name:   "first selected table",
			code:   action.Read,
			key:    "o.widget = %",
			fields: 0,
			setup: func(db *schema.Database) {
				db.Tables[1].Fields = schema.Bits(0)
				db.Tables[1].Columns[1].Slot.SetInt(4)
			},
			want: "SELECT o.id FROM orders AS o WHERE o.widget = 4;",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := shop()
			db.Tables[0].Fields = tt.fields
			if tt.setup != nil {
				tt.setup(db)
			}

			got, err := New().Generate(tt.code, db, tt.key)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGenerate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		opts   []Option
		code   action.Code
		key    string
		fields schema.Bitmap
		check  func(error) bool
	}{
		{"no table selected", nil, action.Read, "", 0, errs.IsNotFound},
		{"unknown action", nil, action.Step, "", schema.Bits(1), errs.IsInvalidInput},
		{"update without key", nil, action.Update | action.Key6, "", schema.Bits(1), errs.IsInvalidInput},
		{"delete without key", nil, action.Delete | action.Key4, "", schema.Bits(1), errs.IsInvalidInput},
		{"insert only auto columns", nil, action.Write, "", schema.Bits(0), errs.IsInvalidInput},
		{"columns beyond table", nil, action.Read, "", schema.Bits(9), errs.IsInvalidInput},
		{"unknown alias", nil, action.Read, "x.id = %", schema.Bits(1), errs.IsNotFound},
		{"unknown column", nil, action.Read, "w.price = %", schema.Bits(1), errs.IsNotFound},
		{"value without column", nil, action.Read, "1 = %", schema.Bits(1), errs.IsInvalidInput},
		{"value glued to column", nil, action.Read, "w.id=%", schema.Bits(1), errs.IsInvalidInput},
		{"overflow", []Option{WithCapacity(20)}, action.Read | action.Key0, "", schema.Bits(1), errs.IsBufferOverflow},
		{"schema error beats overflow", []Option{WithCapacity(10)}, action.Read, "x.id = %", schema.Bits(1), errs.IsNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := shop()
			db.Tables[0].Fields = tt.fields

			got, err := New(tt.opts...).Generate(tt.code, db, tt.key)
			require.Error(t, err)
			assert.True(t, tt.check(err), "unexpected error kind: %v", err)
			assert.Empty(t, got)
		})
	}
}

func TestGenerate_ExactCapacity(t *testing.T) {
	db := shop()
	db.Tables[0].Fields = schema.Bits(1)
	want := "SELECT w.name FROM widgets AS w WHERE w.id = 0;"

	got, err := New(WithCapacity(len(want))).Generate(action.Read|action.Key0, db, "")
	require.NoError(t, err)
	assert.Equal(t, want, got)

	_, err = New(WithCapacity(len(want)-1)).Generate(action.Read|action.Key0, db, "")
	assert.True(t, errs.IsBufferOverflow(err))
}

func TestGenerate_Idempotent(t *testing.T) {
	db := shop()
	db.Tables[0].Fields = schema.Bits(1, 2)
	db.Tables[0].Columns[0].Slot.SetInt(42)

	g := New()
	first, err := g.Generate(action.Read|action.Key0, db, "")
	require.NoError(t, err)
	second, err := g.Generate(action.Read|action.Key0, db, "")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestGenerate_ANSIDialect(t *testing.T) {
	db := shop()
	db.Tables[0].Fields = schema.Bits(1)
	db.Tables[0].Columns[0].Slot.SetInt(3)
	db.Tables[0].Columns[1].Slot.SetText("Alice")

	got, err := New(WithDialect(DialectANSI)).Generate(action.Update|action.Key0, db, "")
	require.NoError(t, err)
	assert.Equal(t, "UPDATE widgets SET name='Alice' WHERE id = 3;", got)
}

func TestCompileKey_AliasStrip(t *testing.T) {
	db := shop()
	db.Tables[0].Columns[0].Slot.SetInt(5)
	db.Tables[0].Columns[1].Slot.SetText("gizmo")
	db.Tables[0].Columns[2].Slot.SetChar('Q')

	for _, tmpl := range append(db.Keys, "w.id = % OR w.name = %") {
		kept := NewBuffer(DefaultCapacity)
		_, err := CompileKey(kept, tmpl, db, db.Tables[0], true, '\'')
		require.NoError(t, err)

		stripped := NewBuffer(DefaultCapacity)
		n, err := CompileKey(stripped, tmpl, db, db.Tables[0], false, '\'')
		require.NoError(t, err)

		assert.Equal(t, stripped.Len(), n)
		assert.Equal(t, strings.ReplaceAll(kept.String(), "w.", ""), stripped.String(), tmpl)
	}
}

func TestCompileKey_AppendsToBuffer(t *testing.T) {
	db := shop()
	db.Tables[0].Columns[0].Slot.SetInt(12)

	buf := NewBuffer(64)
	buf.WriteString("DELETE FROM widgets WHERE ")
	n, err := CompileKey(buf, "w.id = %", db, db.Tables[0], false, '\'')
	require.NoError(t, err)
	assert.Equal(t, len("id = 12"), n)
	assert.Equal(t, "DELETE FROM widgets WHERE id = 12", buf.String())
}

func TestBuffer(t *testing.T) {
	b := NewBuffer(5)
	b.WriteString("abc")
	_ = b.WriteByte('d')
	assert.Equal(t, 1, b.Remaining())
	b.WriteString("efg")
	assert.True(t, b.Overflowed())
	assert.Equal(t, 7, b.Len())
	assert.Equal(t, "abcde", b.String())
	assert.True(t, errs.IsBufferOverflow(b.Err()))

	b.Unwrite(3)
	assert.False(t, b.Overflowed())
	assert.Equal(t, "abcd", b.String())
	assert.NoError(t, b.Err())
}

func TestGenerate_EverySelection(t *testing.T) {
	names := []string{"id", "name", "grade"}
	g := New()

	for b := schema.Bitmap(1); b < 1<<len(names); b++ {
		var cols []string
		for i, n := range names {
			if b.Has(i) {
				cols = append(cols, "w."+n)
			}
		}
		want := "SELECT " + strings.Join(cols, ", ") + " FROM widgets AS w;"

		for _, fields := range []schema.Bitmap{b, b | schema.Bits(3, 17, 30)} {
			db := shop()
			db.Tables[0].Fields = fields
			got, err := g.Generate(action.Read|action.Key5, db, "")
			require.NoError(t, err, "fields %#x", fields)
			assert.Equal(t, want, got, "fields %#x", fields)
		}
	}

	db := shop()
	db.Tables[0].Fields = schema.AllColumns | schema.Bits(0, 2)
	got, err := g.Generate(action.Read|action.Key5, db, "")
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM widgets AS w;", got)
}

func TestGenerate_OutOfRangeBitsSkipTable(t *testing.T) {
	db := shop()
	db.Tables[0].Fields = schema.Bits(5)
	db.Tables[1].Fields = schema.Bits(1)

	got, err := New().Generate(action.Read|action.Key5, db, "")
	require.NoError(t, err)
	assert.Equal(t, "SELECT o.widget FROM orders AS o;", got)
}

func TestCreateTables(t *testing.T) {
	db := shop()

	got, err := New().CreateTables(db)
	require.NoError(t, err)
	assert.Equal(t,
		"CREATE TABLE IF NOT EXISTS widgets (id INTEGER PRIMARY KEY AUTOINCREMENT, name VARCHAR(20), grade CHAR(1));\n"+
			"CREATE TABLE IF NOT EXISTS orders (id INTEGER, widget INTEGER, PRIMARY KEY (id));",
		got)

	pg, err := New(WithDialect(DialectANSI)).CreateTables(db)
	require.NoError(t, err)
	assert.Contains(t, pg, "id SERIAL PRIMARY KEY")
}

func TestCreateTables_Overflow(t *testing.T) {
	db := shop()

	// each statement is bounded on its own, not the joined script
	longest := len("CREATE TABLE IF NOT EXISTS widgets (id INTEGER PRIMARY KEY AUTOINCREMENT, name VARCHAR(20), grade CHAR(1));")
	_, err := New(WithCapacity(longest)).CreateTables(db)
	require.NoError(t, err)

	_, err = New(WithCapacity(longest - 1)).CreateTables(db)
	require.Error(t, err)
	assert.True(t, errs.IsBufferOverflow(err))
}

func TestDialectFor(t *testing.T) {
	assert.Equal(t, DialectANSI, DialectFor("postgres"))
	assert.Equal(t, DialectMySQL, DialectFor("mysql"))
	assert.Equal(t, DialectDefault, DialectFor("sqlite"))
	assert.Equal(t, DialectDefault, DialectFor(""))
}

func BenchmarkGenerate_Read(b *testing.B) {
	db := shop()
	db.Tables[0].Fields = schema.Bits(1, 2)
	db.Tables[0].Columns[0].Slot.SetInt(7)
	g := New()

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, err := g.Generate(action.Read|action.Key0, db, ""); err != nil {
			b.Fatal(err)
		}
	}
}
