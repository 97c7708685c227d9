package registry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/npmcdn-to-unpkg-bot/mircs-geogenealogy/internal/entity"
	"github.com/npmcdn-to-unpkg-bot/mircs-geogenealogy/internal/inference"
	"github.com/npmcdn-to-unpkg-bot/mircs-geogenealogy/internal/materialize"
	"github.com/npmcdn-to-unpkg-bot/mircs-geogenealogy/internal/tabular"
	"github.com/npmcdn-to-unpkg-bot/mircs-geogenealogy/internal/testutil"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, schema := testutil.Postgres(t)
	require.NoError(t, Migrate(db, schema))
	return NewStore(db, schema, nil)
}

func createDataset(t *testing.T, s *Store, frame *tabular.Frame, types []inference.DataType) *entity.Dataset {
	t.Helper()
	table, err := s.NewTable(frame.Columns, types, nil)
	require.NoError(t, err)
	dataset, _, err := s.CreateDataset(context.Background(), "people.csv", table, frame)
	require.NoError(t, err)
	return dataset
}

func abFrame() *tabular.Frame {
	return &tabular.Frame{
		Columns: []string{"A", "B"},
		Rows:    [][]string{{"1", "x"}, {"2", "y"}, {"3", "z"}},
	}
}

func TestCreateDatasetRecordsEverything(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	table, err := s.NewTable([]string{"A", "B"}, []inference.DataType{inference.Integer, inference.Text}, nil)
	require.NoError(t, err)

	dataset, txn, err := s.CreateDataset(ctx, "people.csv", table, abFrame())
	require.NoError(t, err)
	assert.Equal(t, table.Name, dataset.UUID)
	assert.Equal(t, entity.TransactionAdd, txn.TransactionType)
	assert.Equal(t, 3, txn.RowsAffected)
	assert.Equal(t, []int64{1, 2, 3}, []int64(txn.AffectedRowIDs))

	got, err := s.GetDataset(ctx, dataset.UUID)
	require.NoError(t, err)
	assert.Equal(t, "people.csv", got.OriginalFilename)

	registered, err := s.Table(dataset.UUID)
	require.NoError(t, err)
	assert.Same(t, table, registered)

	var sqlType string
	err = s.Session(ctx).Raw(
		"SELECT data_type FROM information_schema.columns WHERE table_schema = ? AND table_name = ? AND column_name = 'A'",
		s.Schema, dataset.UUID).Scan(&sqlType).Error
	require.NoError(t, err)
	assert.Equal(t, "bigint", sqlType)

	txns, err := s.ListTransactions(ctx, dataset.UUID)
	require.NoError(t, err)
	require.Len(t, txns, 1)
	assert.Equal(t, []int64{1, 2, 3}, []int64(txns[0].AffectedRowIDs))
}

func TestCreateDatasetRollsBackOnBadRow(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	frame := &tabular.Frame{Columns: []string{"A"}, Rows: [][]string{{"1"}, {"two"}}}
	table, err := s.NewTable(frame.Columns, []inference.DataType{inference.Integer}, nil)
	require.NoError(t, err)

	_, _, err = s.CreateDataset(ctx, "bad.csv", table, frame)
	var rowErr *materialize.RowError
	require.ErrorAs(t, err, &rowErr)

	_, err = s.GetDataset(ctx, table.Name)
	assert.ErrorIs(t, err, ErrDatasetNotFound)
	_, err = s.Table(table.Name)
	assert.ErrorIs(t, err, ErrDatasetNotFound)
}

func TestAppendRowsReturnsNewIDs(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	dataset := createDataset(t, s, abFrame(), []inference.DataType{inference.Integer, inference.Text})

	txn, err := s.AppendRows(ctx, dataset.UUID, &tabular.Frame{
		Columns: []string{"B"},
		Rows:    [][]string{{"u"}, {"v"}},
	})
	require.NoError(t, err)
	assert.Equal(t, entity.TransactionAdd, txn.TransactionType)
	assert.Equal(t, 2, txn.RowsAffected)
	assert.Equal(t, []int64{4, 5}, []int64(txn.AffectedRowIDs))

	_, err = s.AppendRows(ctx, dataset.UUID, &tabular.Frame{Columns: []string{"C"}, Rows: [][]string{{"1"}}})
	assert.ErrorIs(t, err, materialize.ErrColumnMismatch)

	_, err = s.AppendRows(ctx, dataset.UUID, &tabular.Frame{Columns: []string{"A"}})
	assert.ErrorIs(t, err, ErrEmptyAppend)

	txns, err := s.ListTransactions(ctx, dataset.UUID)
	require.NoError(t, err)
	assert.Len(t, txns, 2)
}

func TestFailedAppendKeepsIDsDense(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	dataset := createDataset(t, s, abFrame(), []inference.DataType{inference.Integer, inference.Text})

	batchSize := materialize.DefaultBatchSize
	materialize.DefaultBatchSize = 2
	t.Cleanup(func() { materialize.DefaultBatchSize = batchSize })

	_, err := s.AppendRows(ctx, dataset.UUID, &tabular.Frame{
		Columns: []string{"A"},
		Rows:    [][]string{{"7"}, {"8"}, {"bad"}},
	})
	var rowErr *materialize.RowError
	require.ErrorAs(t, err, &rowErr)
	assert.Equal(t, 3, rowErr.Row)

	txn, err := s.AppendRows(ctx, dataset.UUID, &tabular.Frame{
		Columns: []string{"A"},
		Rows:    [][]string{{"7"}, {"8"}},
	})
	require.NoError(t, err)
	assert.Equal(t, []int64{4, 5}, []int64(txn.AffectedRowIDs))
}

func TestMetadata(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	dataset := createDataset(t, s, abFrame(), []inference.DataType{inference.Integer, inference.Text})

	_, err := s.AddMetadata(ctx, dataset.UUID, "source", "census 1901")
	require.NoError(t, err)
	_, err = s.AddMetadata(ctx, dataset.UUID, "source", "parish register")
	require.NoError(t, err)

	metadata, err := s.ListMetadata(ctx, dataset.UUID)
	require.NoError(t, err)
	require.Len(t, metadata, 2)
	assert.Equal(t, "census 1901", metadata[0].Value)

	_, err = s.AddMetadata(ctx, "missing", "k", "v")
	assert.ErrorIs(t, err, ErrDatasetNotFound)
}

func TestCreateKey(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	dataset := createDataset(t, s, abFrame(), []inference.DataType{inference.Integer, inference.Text})

	key, err := s.CreateKey(ctx, dataset.UUID, []string{"A", "B"}, "alice")
	require.NoError(t, err)
	assert.Equal(t, IndexName(dataset.UUID, []string{"A", "B"}), key.ConstraintName)

	var count int64
	err = s.Session(ctx).Raw("SELECT count(*) FROM pg_indexes WHERE schemaname = ? AND indexname = ?",
		s.Schema, key.ConstraintName).Scan(&count).Error
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	keys, err := s.ListKeys(ctx, dataset.UUID)
	require.NoError(t, err)
	require.Len(t, keys, 1)
	assert.Equal(t, []string{"A", "B"}, []string(keys[0].DatasetColumns))
	assert.Equal(t, "alice", keys[0].ConstraintAuthor)

	_, err = s.CreateKey(ctx, dataset.UUID, []string{"nope"}, "alice")
	assert.ErrorIs(t, err, ErrUnknownColumn)

	// The index already exists, so no second registry row is written.
	_, err = s.CreateKey(ctx, dataset.UUID, []string{"A", "B"}, "bob")
	assert.Error(t, err)
	keys, err = s.ListKeys(ctx, dataset.UUID)
	require.NoError(t, err)
	assert.Len(t, keys, 1)
}

func TestJoinsAreSymmetric(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	x := createDataset(t, s, abFrame(), []inference.DataType{inference.Integer, inference.Text})
	y := createDataset(t, s, abFrame(), []inference.DataType{inference.Integer, inference.Text})
	z := createDataset(t, s, abFrame(), []inference.DataType{inference.Integer, inference.Text})

	kx, err := s.CreateKey(ctx, x.UUID, []string{"A"}, "")
	require.NoError(t, err)
	ky, err := s.CreateKey(ctx, y.UUID, []string{"A"}, "")
	require.NoError(t, err)

	join := entity.DatasetJoin{
		Dataset1UUID: x.UUID,
		Dataset2UUID: y.UUID,
		Index1Name:   kx.ConstraintName,
		Index2Name:   ky.ConstraintName,
	}
	require.NoError(t, s.CreateJoin(ctx, join))

	fromX, err := s.JoinsFor(ctx, x.UUID)
	require.NoError(t, err)
	fromY, err := s.JoinsFor(ctx, y.UUID)
	require.NoError(t, err)
	assert.Equal(t, []entity.DatasetJoin{join}, fromX)
	assert.Equal(t, []entity.DatasetJoin{join}, fromY)

	fromZ, err := s.JoinsFor(ctx, z.UUID)
	require.NoError(t, err)
	assert.Empty(t, fromZ)

	err = s.CreateJoin(ctx, entity.DatasetJoin{Dataset1UUID: x.UUID, Dataset2UUID: "missing"})
	assert.ErrorIs(t, err, ErrDatasetNotFound)

	err = s.CreateJoin(ctx, entity.DatasetJoin{Dataset1UUID: x.UUID, Dataset2UUID: z.UUID, Index2Name: "nope"})
	assert.ErrorIs(t, err, ErrUnknownKey)
}

func TestCatalogLoadMatchesCreatedTables(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	frame := &tabular.Frame{
		Columns: []string{"name", "geom"},
		Rows:    [][]string{{"a", "POINT(1 2)"}},
	}
	geo := []materialize.GeoSpec{{Column: "geom", GeometryType: "POINT", SRID: 4326}}
	table, err := s.NewTable(frame.Columns, []inference.DataType{inference.Text, inference.Geometry}, geo)
	require.NoError(t, err)
	_, _, err = s.CreateDataset(ctx, "places.csv", table, frame)
	require.NoError(t, err)

	loaded := NewCatalog()
	require.NoError(t, loaded.Load(ctx, s.DB, s.Schema))
	got, err := loaded.Lookup(table.Name)
	require.NoError(t, err)
	assert.Equal(t, table, got)

	geoColumns, err := s.GeoColumns(ctx, table.Name)
	require.NoError(t, err)
	require.Len(t, geoColumns, 1)
	assert.Equal(t, "geometry(POINT,4326)", geoColumns[0].ColumnDefinition)
}
