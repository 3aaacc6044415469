package dispatch

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koustreak/DatAct/internal/action"
	"github.com/koustreak/DatAct/internal/database/sqlite"
	"github.com/koustreak/DatAct/internal/errs"
	"github.com/koustreak/DatAct/internal/schema"
)

// TestSQLite_WidgetsRoundTrip drives the whole stack against a real file.
func TestSQLite_WidgetsRoundTrip(t *testing.T) {
	db := widgets(filepath.Join(t.TempDir(), "shop.db"))
	w := db.Tables[0]
	h := New(sqlite.New(nil))
	t.Cleanup(func() { _ = h.CloseAll() })

	require.NoError(t, h.Perform(action.Open|action.Init, db, ""))

	w.Fields = schema.Bits(1)
	for _, n := range []string{"Alice", "Bob", "O'Brien"} {
		name(db).SetText(n)
		require.NoError(t, h.Perform(action.Write, db, ""))
	}

	// read by canned key
	id(db).SetInt(2)
	require.NoError(t, h.Perform(action.Read|action.Step|action.Key0, db, ""))
	assert.Equal(t, "Bob", name(db).Text())

	// update by ad-hoc key, then read everything back in order
	name(db).SetText("Robert")
	require.NoError(t, h.Perform(action.Update, db, "id = %"))

	w.Fields = schema.AllColumns
	require.NoError(t, h.Perform(action.Read, db, "w.id > 0 ORDER BY w.id"))

	var got []string
	for {
		err := h.Perform(action.Step, db, "")
		if errs.IsNoData(err) {
			break
		}
		require.NoError(t, err)
		got = append(got, name(db).Text())
	}
	assert.Equal(t, []string{"Alice", "Robert", "O'Brien"}, got)
	assert.Equal(t, StateDone, h.State(db))

	// delete, then count through a synthetic column
	id(db).SetInt(1)
	w.Fields = schema.Bits(1)
	require.NoError(t, h.Perform(action.Delete|action.Key0, db, ""))

	require.NoError(t, h.Perform(action.Prepare|action.Step|action.Count, db, "SELECT COUNT(*) AS id FROM widgets;"))
	assert.Equal(t, int64(2), id(db).Int())

	// a missing row is end-of-data, not an error
	id(db).SetInt(99)
	err := h.Perform(action.Read|action.Step|action.Key0, db, "")
	assert.Equal(t, StatusNoData, Status(err))

	require.NoError(t, h.Perform(action.Close, db, ""))
	assert.False(t, h.IsOpen(db))
}

// TestSQLite_SharedColumnNames reads a table whose column names also exist
// in an earlier table; the values must land in the table that was read.
func TestSQLite_SharedColumnNames(t *testing.T) {
	db := widgets(filepath.Join(t.TempDir(), "shop.db"))
	orders := withOrders(db)
	h := New(sqlite.New(nil))
	t.Cleanup(func() { _ = h.CloseAll() })

	require.NoError(t, h.Perform(action.Open|action.Init, db, ""))
	require.NoError(t, h.Perform(action.Exec, db, "INSERT INTO orders (id, qty) VALUES (42, 5);"))

	orders.Fields = schema.AllColumns
	require.NoError(t, h.Perform(action.Read|action.Step|action.Key5, db, ""))
	assert.Equal(t, int64(42), orders.Columns[0].Slot.Int())
	assert.Equal(t, int64(5), orders.Columns[1].Slot.Int())
	assert.Equal(t, int64(0), id(db).Int())
}
