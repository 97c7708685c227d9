package registry

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/npmcdn-to-unpkg-bot/mircs-geogenealogy/internal/entity"
	"github.com/npmcdn-to-unpkg-bot/mircs-geogenealogy/internal/inference"
	"github.com/npmcdn-to-unpkg-bot/mircs-geogenealogy/internal/materialize"
	"github.com/npmcdn-to-unpkg-bot/mircs-geogenealogy/internal/tabular"
)

var (
	ErrDatasetNotFound = errors.New("dataset not found")
	ErrUnknownColumn   = errors.New("unknown column")
	ErrUnknownKey      = errors.New("unknown dataset key")
	ErrEmptyAppend     = errors.New("appended file has no rows")
)

// maxIdentifierLength is PostgreSQL's NAMEDATALEN - 1.
const maxIdentifierLength = 63

// Store reads and writes the fixed registry tables and creates dataset
// tables. Every method opens its own session bound to ctx.
type Store struct {
	DB      *gorm.DB
	Schema  string
	Catalog *Catalog
}

func NewStore(db *gorm.DB, schema string, catalog *Catalog) *Store {
	if catalog == nil {
		catalog = NewCatalog()
	}
	return &Store{DB: db, Schema: schema, Catalog: catalog}
}

// NewDatasetID generates a dataset identifier, which doubles as the name of
// the dataset table.
func NewDatasetID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// Session returns a database session scoped to one request.
func (s *Store) Session(ctx context.Context) *gorm.DB {
	return s.DB.WithContext(ctx)
}

// Migrate creates the registry schema and tables.
func Migrate(db *gorm.DB, schema string) error {
	if err := db.Exec("CREATE EXTENSION IF NOT EXISTS postgis").Error; err != nil {
		return fmt.Errorf("failed to enable postgis extension: %w", err)
	}
	if err := db.Exec("CREATE SCHEMA IF NOT EXISTS " + pq.QuoteIdentifier(schema)).Error; err != nil {
		return fmt.Errorf("failed to create schema %s: %w", schema, err)
	}
	err := db.AutoMigrate(
		&entity.Dataset{},
		&entity.Metadata{},
		&entity.DatasetTransaction{},
		&entity.DatasetKey{},
		&entity.DatasetJoin{},
		&entity.GeospatialColumn{},
		&entity.DatasetColumn{},
	)
	if err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

// Table returns the descriptor of a dataset table from the catalog.
func (s *Store) Table(datasetID string) (*materialize.Table, error) {
	return s.Catalog.Lookup(datasetID)
}

// NewTable builds the descriptor of a table about to be created.
func (s *Store) NewTable(columns []string, types []inference.DataType, geo []materialize.GeoSpec) (*materialize.Table, error) {
	return materialize.NewTable(s.Schema, NewDatasetID(), columns, types, geo)
}

func (s *Store) ListDatasets(ctx context.Context) ([]entity.Dataset, error) {
	var datasets []entity.Dataset
	if err := s.Session(ctx).Order("upload_date DESC").Find(&datasets).Error; err != nil {
		return nil, fmt.Errorf("failed to list datasets: %w", err)
	}
	return datasets, nil
}

func (s *Store) GetDataset(ctx context.Context, datasetID string) (*entity.Dataset, error) {
	var dataset entity.Dataset
	err := s.Session(ctx).Where("uuid = ?", datasetID).First(&dataset).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrDatasetNotFound, datasetID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get dataset %s: %w", datasetID, err)
	}
	return &dataset, nil
}

// CreateDataset records the dataset, creates its table and loads the frame,
// all in one database transaction. The catalog learns about the table only
// after the transaction commits.
func (s *Store) CreateDataset(ctx context.Context, filename string, table *materialize.Table, frame *tabular.Frame) (*entity.Dataset, *entity.DatasetTransaction, error) {
	dataset := &entity.Dataset{
		UUID:             table.Name,
		OriginalFilename: filename,
		UploadDate:       time.Now(),
	}

	var txn *entity.DatasetTransaction
	err := s.Session(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(dataset).Error; err != nil {
			return fmt.Errorf("failed to create dataset: %w", err)
		}
		columns := columnEntities(table)
		if err := tx.Create(&columns).Error; err != nil {
			return fmt.Errorf("failed to record dataset columns: %w", err)
		}
		if geo := geoEntities(table); len(geo) > 0 {
			if err := tx.Create(&geo).Error; err != nil {
				return fmt.Errorf("failed to record geospatial columns: %w", err)
			}
		}
		if err := materialize.CreateTable(tx, table); err != nil {
			return err
		}

		ids, err := materialize.Insert(tx, table, frame)
		if err != nil {
			return err
		}
		txn, err = RecordTransaction(tx, dataset.UUID, entity.TransactionAdd, ids)
		return err
	})
	if err != nil {
		return nil, nil, err
	}

	s.Catalog.Register(table)
	return dataset, txn, nil
}

// AppendRows loads a frame into an existing dataset table and records the
// new row ids as one add transaction.
func (s *Store) AppendRows(ctx context.Context, datasetID string, frame *tabular.Frame) (*entity.DatasetTransaction, error) {
	table, err := s.Table(datasetID)
	if err != nil {
		return nil, err
	}
	if frame.Len() == 0 {
		return nil, ErrEmptyAppend
	}

	var txn *entity.DatasetTransaction
	err = s.Session(ctx).Transaction(func(tx *gorm.DB) error {
		ids, err := materialize.Insert(tx, table, frame)
		if err != nil {
			return err
		}
		txn, err = RecordTransaction(tx, datasetID, entity.TransactionAdd, ids)
		return err
	})
	if err != nil {
		return nil, err
	}
	return txn, nil
}

func RecordTransaction(tx *gorm.DB, datasetID string, kind entity.TransactionType, ids []int64) (*entity.DatasetTransaction, error) {
	if ids == nil {
		ids = []int64{}
	}
	txn := &entity.DatasetTransaction{
		DatasetUUID:     datasetID,
		TransactionType: kind,
		RowsAffected:    len(ids),
		AffectedRowIDs:  pq.Int64Array(ids),
	}
	if err := tx.Create(txn).Error; err != nil {
		return nil, fmt.Errorf("failed to record transaction: %w", err)
	}
	return txn, nil
}

func (s *Store) ListTransactions(ctx context.Context, datasetID string) ([]entity.DatasetTransaction, error) {
	var txns []entity.DatasetTransaction
	if err := s.Session(ctx).Where("dataset_uuid = ?", datasetID).Order("id").Find(&txns).Error; err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	return txns, nil
}

func (s *Store) AddMetadata(ctx context.Context, datasetID, key, value string) (*entity.Metadata, error) {
	if strings.TrimSpace(key) == "" {
		return nil, errors.New("metadata key cannot be empty")
	}
	if _, err := s.GetDataset(ctx, datasetID); err != nil {
		return nil, err
	}
	m := &entity.Metadata{DatasetUUID: datasetID, Key: key, Value: value}
	if err := s.Session(ctx).Create(m).Error; err != nil {
		return nil, fmt.Errorf("failed to add metadata: %w", err)
	}
	return m, nil
}

func (s *Store) ListMetadata(ctx context.Context, datasetID string) ([]entity.Metadata, error) {
	var metadata []entity.Metadata
	if err := s.Session(ctx).Where("dataset_uuid = ?", datasetID).Order("id").Find(&metadata).Error; err != nil {
		return nil, fmt.Errorf("failed to list metadata: %w", err)
	}
	return metadata, nil
}

// IndexName is the name of the index over columns of a dataset table,
// shortened with a hash when it would not fit a PostgreSQL identifier.
func IndexName(table string, columns []string) string {
	name := table + "_" + strings.Join(columns, "_") + "_idx"
	if len(name) <= maxIdentifierLength {
		return name
	}
	h := fnv.New32a()
	h.Write([]byte(strings.Join(columns, "\x00")))
	return fmt.Sprintf("%s_%08x_idx", table, h.Sum32())
}

// CreateKey creates a database index over columns of a dataset table and
// then records it. No registry row is written when the index cannot be
// created.
func (s *Store) CreateKey(ctx context.Context, datasetID string, columns []string, author string) (*entity.DatasetKey, error) {
	table, err := s.Table(datasetID)
	if err != nil {
		return nil, err
	}
	if len(columns) == 0 {
		return nil, fmt.Errorf("%w: a key needs at least one column", ErrUnknownColumn)
	}

	quoted := make([]string, len(columns))
	method := "btree"
	for i, name := range columns {
		if name != materialize.IDColumn {
			col, ok := table.Column(name)
			if !ok {
				return nil, fmt.Errorf("%w: %q in dataset %s", ErrUnknownColumn, name, datasetID)
			}
			if col.Type == inference.Geometry && len(columns) == 1 {
				method = "gist"
			}
		}
		quoted[i] = pq.QuoteIdentifier(name)
	}

	name := IndexName(table.Name, columns)
	stmt := fmt.Sprintf("CREATE INDEX %s ON %s USING %s (%s)",
		pq.QuoteIdentifier(name), table.QualifiedName(), method, strings.Join(quoted, ", "))

	db := s.Session(ctx)
	if err := db.Exec(stmt).Error; err != nil {
		return nil, fmt.Errorf("failed to create index %s: %w", name, err)
	}

	key := &entity.DatasetKey{
		DatasetUUID:      datasetID,
		ConstraintName:   name,
		ConstraintAuthor: author,
		DatasetColumns:   columns,
	}
	if err := db.Create(key).Error; err != nil {
		return nil, fmt.Errorf("failed to record dataset key %s: %w", name, err)
	}
	return key, nil
}

func (s *Store) ListKeys(ctx context.Context, datasetID string) ([]entity.DatasetKey, error) {
	var keys []entity.DatasetKey
	if err := s.Session(ctx).Where("dataset_uuid = ?", datasetID).Order("constraint_name").Find(&keys).Error; err != nil {
		return nil, fmt.Errorf("failed to list dataset keys: %w", err)
	}
	return keys, nil
}

// CreateJoin records a join between two datasets. Declaring the same pair
// again replaces the keys.
func (s *Store) CreateJoin(ctx context.Context, join entity.DatasetJoin) error {
	for _, side := range []struct{ dataset, key string }{
		{join.Dataset1UUID, join.Index1Name},
		{join.Dataset2UUID, join.Index2Name},
	} {
		if _, err := s.GetDataset(ctx, side.dataset); err != nil {
			return err
		}
		if side.key == "" {
			continue
		}
		var count int64
		err := s.Session(ctx).Model(&entity.DatasetKey{}).
			Where("dataset_uuid = ? AND constraint_name = ?", side.dataset, side.key).
			Count(&count).Error
		if err != nil {
			return fmt.Errorf("failed to look up dataset key: %w", err)
		}
		if count == 0 {
			return fmt.Errorf("%w: %q on dataset %s", ErrUnknownKey, side.key, side.dataset)
		}
	}

	err := s.Session(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "dataset1_uuid"}, {Name: "dataset2_uuid"}},
		DoUpdates: clause.AssignmentColumns([]string{"index1_name", "index2_name"}),
	}).Create(&join).Error
	if err != nil {
		return fmt.Errorf("failed to create dataset join: %w", err)
	}
	return nil
}

// JoinsFor returns the joins that name the dataset on either side.
func (s *Store) JoinsFor(ctx context.Context, datasetID string) ([]entity.DatasetJoin, error) {
	var joins []entity.DatasetJoin
	err := s.Session(ctx).
		Where("dataset1_uuid = ? OR dataset2_uuid = ?", datasetID, datasetID).
		Order("dataset1_uuid, dataset2_uuid").
		Find(&joins).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list dataset joins: %w", err)
	}
	return joins, nil
}

func (s *Store) GeoColumns(ctx context.Context, datasetID string) ([]entity.GeospatialColumn, error) {
	var geo []entity.GeospatialColumn
	if err := s.Session(ctx).Where("dataset_uuid = ?", datasetID).Order("position").Find(&geo).Error; err != nil {
		return nil, fmt.Errorf("failed to list geospatial columns: %w", err)
	}
	return geo, nil
}
