package entity

// DatasetJoin records that two datasets relate through the given keys. The
// join is never executed here.
type DatasetJoin struct {
	Dataset1UUID string `gorm:"column:dataset1_uuid;type:varchar(32);primaryKey" json:"dataset1_uuid"`
	Dataset2UUID string `gorm:"column:dataset2_uuid;type:varchar(32);primaryKey" json:"dataset2_uuid"`
	Index1Name   string `gorm:"column:index1_name;type:varchar(63)" json:"index1_name"`
	Index2Name   string `gorm:"column:index2_name;type:varchar(63)" json:"index2_name"`
}

func (DatasetJoin) TableName() string { return "dataset_joins" }
