package entity

import (
	"time"
)

// Dataset is one uploaded file. Its rows live in the physical table named by UUID.
type Dataset struct {
	UUID              string               `gorm:"column:uuid;type:varchar(32);primaryKey" json:"uuid"`
	OriginalFilename  string               `gorm:"type:text;not null" json:"original_filename"`
	UploadDate        time.Time            `gorm:"not null" json:"upload_date"`
	Metadata          []Metadata           `gorm:"foreignKey:DatasetUUID;references:UUID" json:"-"`
	Transactions      []DatasetTransaction `gorm:"foreignKey:DatasetUUID;references:UUID" json:"-"`
	Keys              []DatasetKey         `gorm:"foreignKey:DatasetUUID;references:UUID" json:"-"`
	Joins             []DatasetJoin        `gorm:"foreignKey:Dataset1UUID;references:UUID" json:"-"`
	JoinedBy          []DatasetJoin        `gorm:"foreignKey:Dataset2UUID;references:UUID" json:"-"`
	GeospatialColumns []GeospatialColumn   `gorm:"foreignKey:DatasetUUID;references:UUID" json:"-"`
	Columns           []DatasetColumn      `gorm:"foreignKey:DatasetUUID;references:UUID" json:"-"`
}

func (Dataset) TableName() string { return "datasets" }
