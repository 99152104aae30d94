package store

import (
	"context"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/LuisEduardoChavezLjx/ProyectoFinalSimulacionSifilis/dataset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "deltacast.db"))
	require.Nil(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func period(n int) time.Time {
	return time.Date(2024, 1, 7, 0, 0, 0, 0, time.UTC).Add(time.Duration(n-1) * dataset.DefaultWeekInterval)
}

func sampleDataset() *dataset.Dataset {
	ds := dataset.New([]dataset.Observation{
		dataset.NewObservation("1", period(1), 10, 100),
		dataset.NewObservation("2", period(2), 12, math.NaN()),
		dataset.NewObservation("x", time.Time{}, 15, 112),
	})
	_ = ds.SetEstimates([]float64{0, 100, 105}, []float64{0, 107, 112})
	return ds
}

func TestOpenCreatesSchema(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	for _, table := range []string{"datasets", "observations"} {
		_, err := db.conn.ExecContext(ctx, "SELECT 1 FROM "+table+" LIMIT 1")
		assert.Nil(t, err, table)
	}
}

func TestSaveLoad(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	require.Nil(t, db.Save(ctx, "season-2024", sampleDataset()))
	ds, err := db.Load(ctx, "season-2024")
	require.Nil(t, err)
	require.Equal(t, 3, ds.Len())

	rows := ds.Rows()
	assert.Equal(t, "1", rows[0].Week)
	assert.True(t, period(1).Equal(rows[0].Period))
	assert.True(t, math.IsNaN(rows[1].CasesT))
	assert.Equal(t, "x", rows[2].Week)
	assert.True(t, rows[2].Period.IsZero())
	assert.Equal(t, []float64{10, 12, 15}, ds.Index())

	// estimates are never stored
	assert.Equal(t, []float64{0, 0, 0}, ds.EstimatesWithIntercept())
}

func TestSaveReplaces(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	require.Nil(t, db.Save(ctx, "season-2024", sampleDataset()))
	short := dataset.New([]dataset.Observation{dataset.NewObservation("1", period(1), 10, 100)})
	require.Nil(t, db.Save(ctx, "season-2024", short))

	ds, err := db.Load(ctx, "season-2024")
	require.Nil(t, err)
	assert.Equal(t, 1, ds.Len())
}

func TestSaveEmptyName(t *testing.T) {
	db := newTestDB(t)
	assert.ErrorIs(t, db.Save(context.Background(), "", sampleDataset()), ErrEmptyName)
}

func TestSaveEmptyDataset(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	require.Nil(t, db.Save(ctx, "blank", dataset.New(nil)))

	ds, err := db.Load(ctx, "blank")
	require.Nil(t, err)
	assert.True(t, ds.Empty())
}

func TestList(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	saved := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	db.now = func() time.Time { return saved }

	list, err := db.List(ctx)
	require.Nil(t, err)
	assert.Empty(t, list)

	require.Nil(t, db.Save(ctx, "season-2024", sampleDataset()))
	require.Nil(t, db.Save(ctx, "blank", dataset.New(nil)))

	list, err = db.List(ctx)
	require.Nil(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "blank", list[0].Name)
	assert.Equal(t, 0, list[0].Rows)
	assert.Equal(t, "season-2024", list[1].Name)
	assert.Equal(t, 3, list[1].Rows)
	assert.True(t, saved.Equal(list[1].SavedAt))
}

func TestDelete(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	require.Nil(t, db.Save(ctx, "season-2024", sampleDataset()))
	require.Nil(t, db.Delete(ctx, "season-2024"))

	_, err := db.Load(ctx, "season-2024")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, db.Delete(ctx, "season-2024"), ErrNotFound)

	var n int
	require.Nil(t, db.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM observations").Scan(&n))
	assert.Equal(t, 0, n)
}
