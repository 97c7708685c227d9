package entity

import (
	"gorm.io/datatypes"
)

// DatasetKey is a database index created over columns of a dataset table.
type DatasetKey struct {
	DatasetUUID      string                      `gorm:"type:varchar(32);primaryKey" json:"dataset_uuid"`
	ConstraintName   string                      `gorm:"type:varchar(63);primaryKey" json:"constraint_name"`
	ConstraintAuthor string                      `gorm:"type:text" json:"constraint_author"`
	DatasetColumns   datatypes.JSONSlice[string] `gorm:"type:jsonb" json:"dataset_columns"`
}

func (DatasetKey) TableName() string { return "dataset_keys" }
