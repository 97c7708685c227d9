package entity

type Metadata struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	DatasetUUID string `gorm:"type:varchar(32);not null;index" json:"dataset_uuid"`
	Key         string `gorm:"type:text;not null" json:"key"`
	Value       string `gorm:"type:text" json:"value"`
}

func (Metadata) TableName() string { return "metadata" }
