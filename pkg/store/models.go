package store

import (
	"time"

	"gorm.io/datatypes"
)

// GORM models used for persistence. IDs are database identity columns so
// concurrent inserts never race on a hand-rolled counter.
type ProductModel struct {
	ID            int64  `gorm:"primaryKey;autoIncrement"`
	Name          string `gorm:"not null"`
	Description   string `gorm:"type:text;not null"`
	Price         float64 `gorm:"not null"`
	OriginalPrice *float64
	Category      string `gorm:"not null;index"`
	Image         string
	Tags          datatypes.JSON `gorm:"type:jsonb"`
	Featured      bool           `gorm:"not null;default:false;index"`
	InStock       bool           `gorm:"not null;default:true"`
	CreatedAt     time.Time      `gorm:"not null;index"`
}

type CategoryModel struct {
	ID          int64  `gorm:"primaryKey;autoIncrement"`
	Name        string `gorm:"not null;uniqueIndex"`
	Description string
}

type CartItemModel struct {
	ID        int64  `gorm:"primaryKey;autoIncrement"`
	ProductID int64  `gorm:"not null;uniqueIndex:idx_cart_session_product"`
	Quantity  int    `gorm:"not null;default:1"`
	SessionID string `gorm:"not null;uniqueIndex:idx_cart_session_product;index"`
	CreatedAt time.Time `gorm:"not null"`
}

type RatingModel struct {
	ID        int64  `gorm:"primaryKey;autoIncrement"`
	ProductID int64  `gorm:"not null;index"`
	UserName  string `gorm:"not null"`
	Rating    int    `gorm:"not null"`
	Review    string `gorm:"type:text"`
	CreatedAt time.Time `gorm:"not null;index"`
}

type FavoriteModel struct {
	ID        int64  `gorm:"primaryKey;autoIncrement"`
	UserID    string `gorm:"not null;uniqueIndex:idx_favorite_user_product"`
	ProductID int64  `gorm:"not null;uniqueIndex:idx_favorite_user_product"`
	CreatedAt time.Time `gorm:"not null"`
}

type RecentlyViewedModel struct {
	ID        int64  `gorm:"primaryKey;autoIncrement"`
	Identity  string `gorm:"not null;uniqueIndex:idx_viewed_identity_product;index"`
	ProductID int64  `gorm:"not null;uniqueIndex:idx_viewed_identity_product"`
	ViewedAt  time.Time `gorm:"not null;index"`
}

type ComparisonModel struct {
	ID         int64          `gorm:"primaryKey;autoIncrement"`
	Identity   string         `gorm:"not null;index"`
	ProductIDs datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt  time.Time      `gorm:"not null"`
}

type ProductSpecModel struct {
	ID        int64  `gorm:"primaryKey;autoIncrement"`
	ProductID int64  `gorm:"not null;index"`
	SpecName  string `gorm:"not null"`
	SpecValue string `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null"`
}

type OrderModel struct {
	ID            int64  `gorm:"primaryKey;autoIncrement"`
	UserID        string `gorm:"not null;index"`
	OrderNumber   string `gorm:"not null;uniqueIndex"`
	CustomerName  string `gorm:"not null"`
	CustomerEmail string `gorm:"not null"`
	Total         float64 `gorm:"not null"`
	Status        string  `gorm:"not null;default:pending"`
	CreatedAt     time.Time `gorm:"not null;index"`
}

type OrderItemModel struct {
	ID        int64 `gorm:"primaryKey;autoIncrement"`
	OrderID   int64 `gorm:"not null;index"`
	ProductID int64 `gorm:"not null"`
	Quantity  int   `gorm:"not null"`
	Price     float64 `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null"`
}

type ContactSubmissionModel struct {
	ID        int64  `gorm:"primaryKey;autoIncrement"`
	Name      string `gorm:"not null"`
	Email     string `gorm:"not null"`
	Message   string `gorm:"type:text;not null"`
	CreatedAt time.Time `gorm:"not null"`
}

// Embeddings are stored as a JSON float array and ranked in process;
// exactly zero or one row per product.
type ProductEmbeddingModel struct {
	ProductID int64          `gorm:"primaryKey"`
	Embedding datatypes.JSON `gorm:"type:jsonb;not null"`
	CreatedAt time.Time      `gorm:"not null"`
}

type SEOMetaModel struct {
	ID              int64  `gorm:"primaryKey;autoIncrement"`
	ProductID       int64  `gorm:"not null;uniqueIndex"`
	MetaTitle       string `gorm:"not null"`
	MetaDescription string `gorm:"not null"`
	GeneratedBy     string
	CreatedAt       time.Time `gorm:"not null"`
}

type ChatMessageModel struct {
	ID        int64  `gorm:"primaryKey;autoIncrement"`
	SessionID string `gorm:"not null;index"`
	Role      string `gorm:"not null"`
	Content   string `gorm:"type:text;not null"`
	CreatedAt time.Time `gorm:"not null;index"`
}
