package dispatch

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koustreak/DatAct/internal/action"
	"github.com/koustreak/DatAct/internal/database/memdb"
	"github.com/koustreak/DatAct/internal/errs"
	"github.com/koustreak/DatAct/internal/logger"
	"github.com/koustreak/DatAct/internal/schema"
	"github.com/koustreak/DatAct/internal/sqlgen"
)

func widgets(path string) *schema.Database {
	return &schema.Database{
		Name: "shop",
		Path: path,
		Keys: []string{"w.id = %"},
		Tables: []*schema.Table{{
			Name:  "widgets",
			Alias: "w",
			Columns: []*schema.Column{
				{Name: "id", Flags: schema.FlagPrimaryKey | schema.FlagAutoGenerated, Slot: schema.IntField()},
				{Name: "name", Slot: schema.TextField(20)},
			},
		}},
	}
}

func id(db *schema.Database) *schema.Field   { return db.Tables[0].Columns[0].Slot }
func name(db *schema.Database) *schema.Field { return db.Tables[0].Columns[1].Slot }

func opened(t *testing.T, eng *memdb.Engine, db *schema.Database, opts ...Option) *Handler {
	t.Helper()
	h := New(eng, opts...)
	require.NoError(t, h.Perform(action.Open, db, ""))
	return h
}

func countCalls(calls []string, prefix string) int {
	n := 0
	for _, c := range calls {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}
	return n
}

const readByID = "SELECT w.name FROM widgets AS w WHERE w.id = 7;"

func TestHandler_ReadLifecycle(t *testing.T) {
	eng := memdb.New()
	eng.AddResult(readByID, memdb.Result{
		Columns: []memdb.Column{{Name: "name", Table: "widgets"}},
		Rows:    [][]any{{"bolt"}, {"nut"}},
	})
	db := widgets("shop.db")
	db.Tables[0].Fields = schema.Bits(1)
	id(db).SetInt(7)
	h := opened(t, eng, db)

	require.NoError(t, h.Perform(action.Read|action.Step|action.Key0, db, ""))
	assert.Equal(t, "bolt", name(db).Text())
	assert.Equal(t, StateRow, h.State(db))

	require.NoError(t, h.Perform(action.Step, db, ""))
	assert.Equal(t, "nut", name(db).Text())

	err := h.Perform(action.Step, db, "")
	assert.True(t, errs.IsNoData(err))
	assert.Equal(t, StatusNoData, Status(err))
	assert.Equal(t, StateDone, h.State(db))

	// no resurrection: the engine is not consulted again
	before := len(eng.Calls())
	err = h.Perform(action.Step, db, "")
	assert.True(t, errs.IsNoData(err))
	assert.Len(t, eng.Calls(), before)

	require.NoError(t, h.Perform(action.Reset|action.Step, db, ""))
	assert.Equal(t, "bolt", name(db).Text())

	require.NoError(t, h.Perform(action.Finalize, db, ""))
	assert.Equal(t, StateIdle, h.State(db))
	assert.Equal(t, 0, eng.LiveStatements())
	require.NoError(t, h.Perform(action.Finalize, db, ""))

	require.NoError(t, h.Perform(action.Close, db, ""))
	assert.False(t, h.IsOpen(db))
	assert.Equal(t, 0, eng.OpenConns())
}

func TestHandler_ReadWithoutStep(t *testing.T) {
	eng := memdb.New()
	eng.AddResult(readByID, memdb.Result{Columns: []memdb.Column{{Name: "name"}}, Rows: [][]any{{"bolt"}}})
	db := widgets("shop.db")
	db.Tables[0].Fields = schema.Bits(1)
	id(db).SetInt(7)
	h := opened(t, eng, db)

	require.NoError(t, h.Perform(action.Read|action.Key0, db, ""))
	assert.Equal(t, StatePrepared, h.State(db))
	assert.Equal(t, "", name(db).Text())
	assert.NotNil(t, h.Stmt(db))
}

func TestHandler_WriteUpdateDelete(t *testing.T) {
	eng := memdb.New()
	db := widgets("shop.db")
	h := opened(t, eng, db)

	db.Tables[0].Fields = schema.Bits(0, 1)
	name(db).SetText("Alice")
	require.NoError(t, h.Perform(action.Write, db, ""))

	db.Tables[0].Fields = schema.Bits(1)
	id(db).SetInt(3)
	require.NoError(t, h.Perform(action.Update, db, "id = %"))

	require.NoError(t, h.Perform(action.Delete|action.Key0, db, ""))

	assert.Equal(t, []string{
		`INSERT INTO widgets (name) VALUES ("Alice");`,
		`UPDATE widgets SET name="Alice" WHERE id = 3;`,
		`DELETE FROM widgets WHERE id = 3;`,
	}, eng.Executed())
}

func TestHandler_DuplicateOpen(t *testing.T) {
	eng := memdb.New()
	db := widgets("shop.db")
	h := opened(t, eng, db)

	err := h.Perform(action.Open, db, "")
	assert.True(t, errs.IsDuplicateOpen(err))
	assert.Equal(t, StatusOK, Status(err))
	assert.Equal(t, 1, countCalls(eng.Calls(), "open"))
	assert.Equal(t, 1, h.OpenCount())
}

func TestHandler_PoolExhausted(t *testing.T) {
	eng := memdb.New()
	first := widgets("a.db")
	second := widgets("b.db")
	h := opened(t, eng, first, WithPoolCapacity(1))

	err := h.Perform(action.Open, second, "")
	assert.True(t, errs.IsPoolExhausted(err))
	assert.Equal(t, StatusError, Status(err))

	require.NoError(t, h.Perform(action.Close, first, ""))
	require.NoError(t, h.Perform(action.Open, second, ""))
	assert.True(t, h.IsOpen(second))
}

func TestHandler_OpenFailureFreesSlot(t *testing.T) {
	eng := memdb.New()
	eng.FailOpen(errs.New(errs.ErrKindConnectionFailed, "unable to open database file"))
	db := widgets("missing/shop.db")
	h := New(eng)

	err := h.Perform(action.Open, db, "")
	assert.True(t, errs.IsConnectionFailed(err))
	assert.False(t, h.IsOpen(db))
	assert.Equal(t, 0, h.OpenCount())

	err = h.Perform(action.Open, &schema.Database{Name: "nameless"}, "")
	assert.True(t, errs.IsInvalidInput(err))
}

func TestHandler_ImplicitFinalize(t *testing.T) {
	eng := memdb.New()
	eng.AddResult("SELECT 1 AS id;", memdb.Result{Columns: []memdb.Column{{Name: "id"}}, Rows: [][]any{{int64(1)}}})
	eng.AddResult("SELECT 2 AS id;", memdb.Result{Columns: []memdb.Column{{Name: "id"}}, Rows: [][]any{{int64(2)}}})
	db := widgets("shop.db")
	h := opened(t, eng, db)

	require.NoError(t, h.Perform(action.Prepare, db, "SELECT 1 AS id;"))
	assert.Equal(t, StatePrepared, h.State(db))

	require.NoError(t, h.Perform(action.Prepare|action.Step, db, "SELECT 2 AS id;"))
	assert.Equal(t, 1, eng.LiveStatements(), "re-prepare finalizes the old statement")
	assert.Equal(t, int64(2), id(db).Int())

	calls := eng.Calls()
	assert.Equal(t, []string{"finalize", "prepare SELECT 2 AS id;", "step"}, calls[len(calls)-3:])

	require.NoError(t, h.Perform(action.Exec, db, "DELETE FROM widgets;"))
	assert.Equal(t, StateIdle, h.State(db))
	assert.Equal(t, 0, eng.LiveStatements())

	// close finalizes a live statement before closing the connection
	require.NoError(t, h.Perform(action.Prepare, db, "SELECT 1 AS id;"))
	require.NoError(t, h.Perform(action.Close, db, ""))
	assert.Equal(t, 0, eng.OpenConns())
}

func withOrders(db *schema.Database) *schema.Table {
	orders := &schema.Table{
		Name:  "orders",
		Alias: "o",
		Columns: []*schema.Column{
			{Name: "id", Flags: schema.FlagPrimaryKey, Slot: schema.IntField()},
			{Name: "qty", Slot: schema.IntField()},
		},
	}
	db.Tables = append(db.Tables, orders)
	return orders
}

func TestHandler_ReadFillsSourceTable(t *testing.T) {
	eng := memdb.New()
	// no table names reported, as without column metadata
	eng.AddResult("SELECT o.id, o.qty FROM orders AS o;", memdb.Result{
		Columns: []memdb.Column{{Name: "id"}, {Name: "qty"}},
		Rows:    [][]any{{int64(42), int64(5)}},
	})
	eng.AddResult("SELECT 9 AS id;", memdb.Result{
		Columns: []memdb.Column{{Name: "id"}},
		Rows:    [][]any{{int64(9)}},
	})
	db := widgets("shop.db")
	orders := withOrders(db)
	orders.Fields = schema.Bits(0, 1)
	h := opened(t, eng, db)

	require.NoError(t, h.Perform(action.Read|action.Step|action.Key5, db, ""))
	assert.Equal(t, int64(42), orders.Columns[0].Slot.Int())
	assert.Equal(t, int64(5), orders.Columns[1].Slot.Int())
	assert.Equal(t, int64(0), id(db).Int(), "widgets.id shares the name but is not the source")

	// a verbatim script has no source table, so declaration order decides
	require.NoError(t, h.Perform(action.Prepare|action.Step, db, "SELECT 9 AS id;"))
	assert.Equal(t, int64(9), id(db).Int())
	assert.Equal(t, int64(42), orders.Columns[0].Slot.Int())
}

func TestHandler_CloseFailureFreesSlot(t *testing.T) {
	eng := memdb.New()
	db := widgets("shop.db")
	h := opened(t, eng, db)

	eng.FailClose(errs.New(errs.ErrKindQueryFailed, "database is locked"))
	err := h.Perform(action.Close, db, "")
	assert.True(t, errs.IsQueryFailed(err))
	assert.False(t, h.IsOpen(db))
	assert.Equal(t, 0, h.OpenCount())

	eng.FailClose(nil)
	require.NoError(t, h.Perform(action.Open, db, ""))
	assert.True(t, h.IsOpen(db))
}

func TestHandler_CloseUnopened(t *testing.T) {
	eng := memdb.New()
	h := New(eng)
	assert.NoError(t, h.Perform(action.Close, widgets("never.db"), ""))
	assert.Empty(t, eng.Calls())
}

func TestHandler_Errors(t *testing.T) {
	boom := errs.New(errs.ErrKindQueryFailed, "near \"DELET\": syntax error")

	tests := []struct {
		name  string
		code  action.Code
		text  string
		check func(error) bool
	}{
		{"no command", action.Key1, "", errs.IsInvalidInput},
		{"step while idle", action.Step, "", errs.IsInvalidInput},
		{"reset while idle", action.Reset, "", errs.IsInvalidInput},
		{"prepare without script", action.Prepare, "", errs.IsInvalidInput},
		{"exec without script", action.Exec, "", errs.IsInvalidInput},
		{"update without key", action.Update | action.Key3, "", errs.IsInvalidInput},
		{"no eligible table", action.Read, "", errs.IsNotFound},
		{"engine failure", action.Exec, "DELET FROM widgets;", errs.IsQueryFailed},
		{"unregistered query", action.Prepare, "SELECT nothing;", errs.IsQueryFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eng := memdb.New()
			eng.FailOn("DELET FROM widgets;", boom)
			db := widgets("shop.db")
			h := opened(t, eng, db)
			if tt.code.Has(action.Update) {
				db.Tables[0].Fields = schema.Bits(1)
			}

			err := h.Perform(tt.code, db, tt.text)
			require.Error(t, err)
			assert.True(t, tt.check(err), "unexpected error: %v", err)
			assert.Equal(t, StatusError, Status(err))
		})
	}
}

func TestHandler_NotOpen(t *testing.T) {
	h := New(memdb.New())
	err := h.Perform(action.Exec, widgets("shop.db"), "DELETE FROM widgets;")
	assert.True(t, errs.IsInvalidInput(err))
	assert.Equal(t, StateIdle, h.State(widgets("shop.db")))
	assert.Nil(t, h.Stmt(widgets("shop.db")))
}

func TestHandler_Init(t *testing.T) {
	eng := memdb.New()
	db := widgets("shop.db")
	h := opened(t, eng, db)

	require.NoError(t, h.Perform(action.Init, db, ""))
	require.NoError(t, h.Perform(action.Init, db, "PRAGMA user_version = 2;"))

	create, err := sqlgen.New().CreateTables(db)
	require.NoError(t, err)
	assert.Equal(t, []string{
		create,
		"PRAGMA user_version = 2;",
	}, eng.Executed())
}

func TestHandler_CombinedActions(t *testing.T) {
	eng := memdb.New()
	eng.AddResult(readByID, memdb.Result{
		Columns: []memdb.Column{{Name: "name", Table: "widgets"}},
		Rows:    [][]any{{"gear"}},
	})
	db := widgets("shop.db")
	db.Tables[0].Fields = schema.Bits(1)
	id(db).SetInt(7)

	h := New(eng)
	require.NoError(t, h.Perform(action.Open|action.Read|action.Step|action.Close|action.Key0, db, ""))
	assert.Equal(t, "gear", name(db).Text())
	assert.False(t, h.IsOpen(db))
	assert.Equal(t, 0, eng.LiveStatements())
}

func TestHandler_CloseAll(t *testing.T) {
	eng := memdb.New()
	h := New(eng)
	for _, p := range []string{"a.db", "b.db", "c.db"} {
		require.NoError(t, h.Perform(action.Open, widgets(p), ""))
	}
	assert.Equal(t, 3, eng.OpenConns())

	require.NoError(t, h.CloseAll())
	assert.Equal(t, 0, h.OpenCount())
	assert.Equal(t, 0, eng.OpenConns())
}

func TestHandler_Logging(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New(&logger.Config{Level: "debug", Format: "json", Output: &buf})

	eng := memdb.New()
	eng.FailOn("DROP TABLE widgets;", errors.New("table is locked"))
	db := widgets("shop.db")
	h := opened(t, eng, db, WithLogger(log))

	_ = h.Perform(action.Open, db, "")
	_ = h.Perform(action.Exec, db, "DROP TABLE widgets;")

	out := buf.String()
	assert.Contains(t, out, `"action":"OPEN"`)
	assert.Contains(t, out, `"db":"shop.db"`)
	assert.Contains(t, out, "already open")
	assert.Contains(t, out, "action failed")
	assert.Contains(t, out, "table is locked")
}

func TestStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, StatusOK},
		{errs.New(errs.ErrKindDuplicateOpen, "dup"), StatusOK},
		{errs.New(errs.ErrKindNoData, "done"), StatusNoData},
		{errs.New(errs.ErrKindNotFound, "alias"), StatusError},
		{errors.New("plain"), StatusError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Status(tt.err), "%v", tt.err)
	}
}

func TestHandler_Query(t *testing.T) {
	const q = "SELECT name, grade FROM widgets;"
	eng := memdb.New()
	eng.AddResult(q, memdb.Result{
		Columns: []memdb.Column{{Name: "name"}, {Name: "grade"}},
		Rows:    [][]any{{"bolt", "A"}, {"nut", nil}},
	})
	db := widgets("shop.db")

	_, err := New(eng).Query(db, q)
	assert.True(t, errs.IsInvalidInput(err), "database not open")

	h := opened(t, eng, db)
	rows, err := h.Query(db, q)
	require.NoError(t, err)
	assert.Equal(t, []map[string]any{
		{"name": "bolt", "grade": "A"},
		{"name": "nut", "grade": nil},
	}, rows)
	assert.Equal(t, StateIdle, h.State(db))
	assert.Zero(t, eng.LiveStatements())
	assert.Empty(t, name(db).Text(), "slots are untouched")

	_, err = h.Query(db, "")
	assert.True(t, errs.IsInvalidInput(err))

	_, err = h.Query(db, "SELECT nothing;")
	assert.True(t, errs.IsQueryFailed(err))
}
