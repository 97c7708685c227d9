package entity

import (
	"github.com/lib/pq"
)

type TransactionType string

const (
	TransactionAdd          TransactionType = "add"
	TransactionModify       TransactionType = "modify"
	TransactionAddAndModify TransactionType = "add_and_modify"
	TransactionRemove       TransactionType = "remove"
)

// DatasetTransaction summarizes one bulk mutation of a dataset table.
type DatasetTransaction struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	DatasetUUID     string          `gorm:"type:varchar(32);not null;index" json:"dataset_uuid"`
	TransactionType TransactionType `gorm:"type:varchar(20);not null;default:add;check:transaction_type IN ('add','modify','add_and_modify','remove')" json:"transaction_type"`
	RowsAffected    int             `gorm:"not null" json:"rows_affected"`
	AffectedRowIDs  pq.Int64Array   `gorm:"column:affected_row_ids;type:bigint[]" json:"affected_row_ids"`
}

func (DatasetTransaction) TableName() string { return "dataset_transactions" }
