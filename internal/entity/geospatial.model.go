package entity

type GeospatialColumn struct {
	DatasetUUID      string `gorm:"type:varchar(32);primaryKey" json:"dataset_uuid"`
	Column           string `gorm:"column:column;type:text;primaryKey" json:"column"`
	ColumnDefinition string `gorm:"type:text;not null" json:"column_definition"`
	GeometryType     string `gorm:"type:varchar(32);not null" json:"geometry_type"`
	SRID             int    `gorm:"column:srid;not null" json:"srid"`
	Position         int    `gorm:"not null;default:0" json:"position"`
}

func (GeospatialColumn) TableName() string { return "geospatial_columns" }
