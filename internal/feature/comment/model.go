package comment

import "time"

type CommentModel struct {
	ID            string     `gorm:"primaryKey;type:varchar(24)"`
	Text          string     `gorm:"size:500;not null"`
	ProductID     string     `gorm:"type:varchar(24);not null;index:idx_comments_product_created,priority:1"`
	UserID        string     `gorm:"type:varchar(24);not null;index:idx_comments_user_created,priority:1"`
	ParentComment *string    `gorm:"type:varchar(24);index:idx_comments_parent_created,priority:1"`
	Replies       []string   `gorm:"type:text;serializer:json"`
	Likes         []string   `gorm:"type:text;serializer:json"`
	IsEdited      bool       `gorm:"not null"`
	EditedAt      *time.Time
	CreatedAt     time.Time  `gorm:"index:idx_comments_product_created,priority:2;index:idx_comments_user_created,priority:2;index:idx_comments_parent_created,priority:2"`
	UpdatedAt     time.Time
}

func (CommentModel) TableName() string { return "comments" }
