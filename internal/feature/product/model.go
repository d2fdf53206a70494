package product

import "time"

type ProductModel struct {
	ID                    string    `gorm:"primaryKey;type:varchar(24)"`
	Title                 string    `gorm:"size:100;not null"`
	Description           string    `gorm:"size:1000;not null"`
	Price                 float64   `gorm:"not null"`
	Image                 string    `gorm:"size:512"`
	Category              string    `gorm:"size:32;not null;index:idx_products_category_created,priority:1"`
	EstimatedPurchaseDate time.Time `gorm:"not null;index"`
	CreatedBy             string    `gorm:"type:varchar(24);not null;index:idx_products_owner_created,priority:1"`
	Status                string    `gorm:"size:16;not null;index:idx_products_status_created,priority:1"`
	MinQuantity           int       `gorm:"not null"`
	MaxQuantity           int       `gorm:"not null"`
	CurrentQuantity       int       `gorm:"not null"`
	Location              string    `gorm:"size:255"`
	CreatedAt             time.Time `gorm:"index:idx_products_owner_created,priority:2;index:idx_products_category_created,priority:2;index:idx_products_status_created,priority:2"`
	UpdatedAt             time.Time

	Interests []InterestModel `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	Tags      []TagModel      `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
}

func (ProductModel) TableName() string { return "products" }

// InterestModel 产品-意向用户关联，Position 保持加入顺序
type InterestModel struct {
	ProductID string    `gorm:"primaryKey;type:varchar(24)"`
	UserID    string    `gorm:"primaryKey;type:varchar(24);index"`
	Position  int       `gorm:"not null"`
	CreatedAt time.Time
}

func (InterestModel) TableName() string { return "product_interests" }

// TagModel 每个标签一行，搜索逐个匹配
type TagModel struct {
	ProductID string `gorm:"primaryKey;type:varchar(24)"`
	Position  int    `gorm:"primaryKey"`
	Tag       string `gorm:"size:30;not null"`
}

func (TagModel) TableName() string { return "product_tags" }
