package entity

// DatasetColumn records one column of a dataset's physical table and the
// type it was created with.
type DatasetColumn struct {
	DatasetUUID string `gorm:"type:varchar(32);primaryKey" json:"dataset_uuid"`
	Position    int    `gorm:"primaryKey;autoIncrement:false" json:"position"`
	Name        string `gorm:"type:text;not null" json:"name"`
	DataType    string `gorm:"type:varchar(32);not null" json:"data_type"`
}

func (DatasetColumn) TableName() string { return "dataset_columns" }
