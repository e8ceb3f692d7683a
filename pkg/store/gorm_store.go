package store

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"storefront/pkg/domain"
)

// GormStore implements Store using GORM + Postgres.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore opens the DB and runs auto-migrations.
func NewGormStore(dsn string) (*GormStore, error) {
	gormLog := gormlogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: gormLog})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.AutoMigrate(
		&ProductModel{},
		&CategoryModel{},
		&CartItemModel{},
		&RatingModel{},
		&FavoriteModel{},
		&RecentlyViewedModel{},
		&ComparisonModel{},
		&ProductSpecModel{},
		&OrderModel{},
		&OrderItemModel{},
		&ContactSubmissionModel{},
		&ProductEmbeddingModel{},
		&SEOMetaModel{},
		&ChatMessageModel{},
	); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	return &GormStore{db: db}, nil
}

// Catalog

func (s *GormStore) ListProducts() ([]domain.Product, error) {
	return s.listProducts()
}

func (s *GormStore) ListProductsByCategory(category string) ([]domain.Product, error) {
	return s.listProducts("category = ?", category)
}

func (s *GormStore) ListFeaturedProducts() ([]domain.Product, error) {
	return s.listProducts("featured = ?", true)
}

func (s *GormStore) listProducts(conds ...any) ([]domain.Product, error) {
	var models []ProductModel
	tx := s.db.Order("created_at DESC")
	if len(conds) > 0 {
		tx = tx.Where(conds[0], conds[1:]...)
	}
	if err := tx.Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.Product, 0, len(models))
	for _, m := range models {
		res = append(res, productFromModel(m))
	}
	return res, nil
}

func (s *GormStore) GetProduct(id int64) (domain.Product, bool, error) {
	var model ProductModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.Product{}, false, nil
		}
		return domain.Product{}, false, err
	}
	return productFromModel(model), true, nil
}

func (s *GormStore) CreateProduct(p domain.Product) (domain.Product, error) {
	model := productToModel(p)
	model.ID = 0
	if model.CreatedAt.IsZero() {
		model.CreatedAt = time.Now().UTC()
	}
	if err := s.db.Create(&model).Error; err != nil {
		return domain.Product{}, err
	}
	return productFromModel(model), nil
}

func (s *GormStore) UpdateProduct(id int64, p domain.Product) (domain.Product, bool, error) {
	tags, _ := json.Marshal(p.Tags)
	res := s.db.Model(&ProductModel{}).Where("id = ?", id).Updates(map[string]any{
		"name":           p.Name,
		"description":    p.Description,
		"price":          p.Price,
		"original_price": p.OriginalPrice,
		"category":       p.Category,
		"image":          p.Image,
		"tags":           datatypes.JSON(tags),
		"featured":       p.Featured,
		"in_stock":       p.InStock,
	})
	if res.Error != nil {
		return domain.Product{}, false, res.Error
	}
	if res.RowsAffected == 0 {
		return domain.Product{}, false, nil
	}
	return s.GetProduct(id)
}

func (s *GormStore) DeleteProduct(id int64) (bool, error) {
	res := s.db.Delete(&ProductModel{}, "id = ?", id)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (s *GormStore) ListCategories() ([]domain.Category, error) {
	var models []CategoryModel
	if err := s.db.Order("name ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.Category, 0, len(models))
	for _, m := range models {
		res = append(res, domain.Category{ID: m.ID, Name: m.Name, Description: m.Description})
	}
	return res, nil
}

func (s *GormStore) CreateCategory(c domain.Category) (domain.Category, error) {
	model := CategoryModel{Name: c.Name, Description: c.Description}
	if err := s.db.Create(&model).Error; err != nil {
		return domain.Category{}, err
	}
	return domain.Category{ID: model.ID, Name: model.Name, Description: model.Description}, nil
}

// Cart ledger

func (s *GormStore) ListCartItems(identityKey string) ([]domain.CartItem, error) {
	var models []CartItemModel
	if err := s.db.Where("session_id = ?", identityKey).
		Order("created_at DESC").Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.CartItem, 0, len(models))
	for _, m := range models {
		res = append(res, cartItemFromModel(m))
	}
	return res, nil
}

// AddToCart merges into any existing line item atomically: two concurrent
// adds for the same (identity, product) can never produce two rows.
func (s *GormStore) AddToCart(identityKey string, productID int64, quantity int) (domain.CartItem, error) {
	model := CartItemModel{
		ProductID: productID,
		Quantity:  quantity,
		SessionID: identityKey,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "session_id"}, {Name: "product_id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"quantity": gorm.Expr("cart_item_models.quantity + excluded.quantity"),
		}),
	}).Create(&model).Error; err != nil {
		return domain.CartItem{}, err
	}
	// Re-read: on conflict the returned struct does not carry the merged row.
	var merged CartItemModel
	if err := s.db.Where("session_id = ? AND product_id = ?", identityKey, productID).
		First(&merged).Error; err != nil {
		return domain.CartItem{}, err
	}
	return cartItemFromModel(merged), nil
}

func (s *GormStore) UpdateCartItem(id int64, quantity int) (domain.CartItem, bool, error) {
	res := s.db.Model(&CartItemModel{}).Where("id = ?", id).Update("quantity", quantity)
	if res.Error != nil {
		return domain.CartItem{}, false, res.Error
	}
	if res.RowsAffected == 0 {
		return domain.CartItem{}, false, nil
	}
	var model CartItemModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		return domain.CartItem{}, false, err
	}
	return cartItemFromModel(model), true, nil
}

func (s *GormStore) RemoveFromCart(id int64) (bool, error) {
	res := s.db.Delete(&CartItemModel{}, "id = ?", id)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (s *GormStore) ClearCart(identityKey string) error {
	return s.db.Delete(&CartItemModel{}, "session_id = ?", identityKey).Error
}

// Ratings

func (s *GormStore) ListRatings(productID int64) ([]domain.Rating, error) {
	var models []RatingModel
	if err := s.db.Where("product_id = ?", productID).
		Order("created_at DESC").Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.Rating, 0, len(models))
	for _, m := range models {
		res = append(res, domain.Rating{
			ID: m.ID, ProductID: m.ProductID, UserName: m.UserName,
			Rating: m.Rating, Review: m.Review, CreatedAt: m.CreatedAt,
		})
	}
	return res, nil
}

func (s *GormStore) AddRating(r domain.Rating) (domain.Rating, error) {
	model := RatingModel{
		ProductID: r.ProductID,
		UserName:  r.UserName,
		Rating:    r.Rating,
		Review:    r.Review,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.db.Create(&model).Error; err != nil {
		return domain.Rating{}, err
	}
	r.ID = model.ID
	r.CreatedAt = model.CreatedAt
	return r, nil
}

// Favorites

func (s *GormStore) ListFavorites(userID string) ([]domain.Favorite, error) {
	var models []FavoriteModel
	if err := s.db.Where("user_id = ?", userID).
		Order("created_at DESC").Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.Favorite, 0, len(models))
	for _, m := range models {
		res = append(res, domain.Favorite{
			ID: m.ID, UserID: m.UserID, ProductID: m.ProductID, CreatedAt: m.CreatedAt,
		})
	}
	return res, nil
}

// AddFavorite is an idempotent upsert: re-favoriting returns the existing pair.
func (s *GormStore) AddFavorite(userID string, productID int64) (domain.Favorite, error) {
	model := FavoriteModel{UserID: userID, ProductID: productID, CreatedAt: time.Now().UTC()}
	if err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "product_id"}},
		DoNothing: true,
	}).Create(&model).Error; err != nil {
		return domain.Favorite{}, err
	}
	var existing FavoriteModel
	if err := s.db.Where("user_id = ? AND product_id = ?", userID, productID).
		First(&existing).Error; err != nil {
		return domain.Favorite{}, err
	}
	return domain.Favorite{
		ID: existing.ID, UserID: existing.UserID,
		ProductID: existing.ProductID, CreatedAt: existing.CreatedAt,
	}, nil
}

func (s *GormStore) RemoveFavorite(userID string, productID int64) (bool, error) {
	res := s.db.Delete(&FavoriteModel{}, "user_id = ? AND product_id = ?", userID, productID)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// Recently viewed

func (s *GormStore) ListRecentlyViewed(identityKey string, limit int) ([]domain.RecentlyViewedEntry, error) {
	if limit <= 0 {
		limit = 10
	}
	var models []RecentlyViewedModel
	if err := s.db.Where("identity = ?", identityKey).
		Order("viewed_at DESC").Limit(limit).Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.RecentlyViewedEntry, 0, len(models))
	for _, m := range models {
		res = append(res, domain.RecentlyViewedEntry{
			ID: m.ID, Identity: m.Identity, ProductID: m.ProductID, ViewedAt: m.ViewedAt,
		})
	}
	return res, nil
}

// RecordView refreshes the timestamp for a re-viewed product via upsert,
// so ordering by viewed_at naturally deduplicates.
func (s *GormStore) RecordView(identityKey string, productID int64) (domain.RecentlyViewedEntry, error) {
	model := RecentlyViewedModel{
		Identity:  identityKey,
		ProductID: productID,
		ViewedAt:  time.Now().UTC(),
	}
	if err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "identity"}, {Name: "product_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"viewed_at"}),
	}).Create(&model).Error; err != nil {
		return domain.RecentlyViewedEntry{}, err
	}
	var row RecentlyViewedModel
	if err := s.db.Where("identity = ? AND product_id = ?", identityKey, productID).
		First(&row).Error; err != nil {
		return domain.RecentlyViewedEntry{}, err
	}
	return domain.RecentlyViewedEntry{
		ID: row.ID, Identity: row.Identity, ProductID: row.ProductID, ViewedAt: row.ViewedAt,
	}, nil
}

// Comparison

func (s *GormStore) GetComparison(identityKey string) (domain.Comparison, bool, error) {
	var model ComparisonModel
	if err := s.db.Where("identity = ?", identityKey).
		Order("created_at DESC").First(&model).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.Comparison{}, false, nil
		}
		return domain.Comparison{}, false, err
	}
	return comparisonFromModel(model), true, nil
}

// SaveComparison replaces the prior set wholesale; the row id changes each save.
func (s *GormStore) SaveComparison(identityKey string, productIDs []int64) (domain.Comparison, error) {
	ids, _ := json.Marshal(productIDs)
	model := ComparisonModel{
		Identity:   identityKey,
		ProductIDs: datatypes.JSON(ids),
		CreatedAt:  time.Now().UTC(),
	}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&ComparisonModel{}, "identity = ?", identityKey).Error; err != nil {
			return err
		}
		return tx.Create(&model).Error
	})
	if err != nil {
		return domain.Comparison{}, err
	}
	return comparisonFromModel(model), nil
}

// Product specs

func (s *GormStore) ListProductSpecs(productID int64) ([]domain.ProductSpec, error) {
	var models []ProductSpecModel
	if err := s.db.Where("product_id = ?", productID).Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.ProductSpec, 0, len(models))
	for _, m := range models {
		res = append(res, domain.ProductSpec{
			ID: m.ID, ProductID: m.ProductID, SpecName: m.SpecName,
			SpecValue: m.SpecValue, CreatedAt: m.CreatedAt,
		})
	}
	return res, nil
}

func (s *GormStore) AddProductSpec(spec domain.ProductSpec) (domain.ProductSpec, error) {
	model := ProductSpecModel{
		ProductID: spec.ProductID,
		SpecName:  spec.SpecName,
		SpecValue: spec.SpecValue,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.db.Create(&model).Error; err != nil {
		return domain.ProductSpec{}, err
	}
	spec.ID = model.ID
	spec.CreatedAt = model.CreatedAt
	return spec, nil
}

// Orders

func (s *GormStore) CreateOrder(o domain.Order, items []domain.OrderItem) (domain.Order, error) {
	model := OrderModel{
		UserID:        o.UserID,
		OrderNumber:   o.OrderNumber,
		CustomerName:  o.CustomerName,
		CustomerEmail: o.CustomerEmail,
		Total:         o.Total,
		Status:        string(o.Status),
		CreatedAt:     time.Now().UTC(),
	}
	itemModels := make([]OrderItemModel, 0, len(items))
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&model).Error; err != nil {
			return err
		}
		for _, item := range items {
			itemModels = append(itemModels, OrderItemModel{
				OrderID:   model.ID,
				ProductID: item.ProductID,
				Quantity:  item.Quantity,
				Price:     item.Price,
				CreatedAt: model.CreatedAt,
			})
		}
		if len(itemModels) == 0 {
			return nil
		}
		return tx.Create(&itemModels).Error
	})
	if err != nil {
		return domain.Order{}, err
	}
	return orderFromModel(model, itemModels), nil
}

func (s *GormStore) ListOrdersByUser(userID string) ([]domain.Order, error) {
	var models []OrderModel
	if err := s.db.Where("user_id = ?", userID).
		Order("created_at DESC").Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.Order, 0, len(models))
	for _, m := range models {
		res = append(res, orderFromModel(m, nil))
	}
	return res, nil
}

func (s *GormStore) GetOrder(id int64) (domain.Order, bool, error) {
	var model OrderModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.Order{}, false, nil
		}
		return domain.Order{}, false, err
	}
	var items []OrderItemModel
	if err := s.db.Where("order_id = ?", id).Find(&items).Error; err != nil {
		return domain.Order{}, false, err
	}
	return orderFromModel(model, items), true, nil
}

// Contact

func (s *GormStore) CreateContactSubmission(c domain.ContactSubmission) (domain.ContactSubmission, error) {
	model := ContactSubmissionModel{
		Name:      c.Name,
		Email:     c.Email,
		Message:   c.Message,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.db.Create(&model).Error; err != nil {
		return domain.ContactSubmission{}, err
	}
	c.ID = model.ID
	c.CreatedAt = model.CreatedAt
	return c, nil
}

// AI side tables

func (s *GormStore) GetProductEmbedding(productID int64) (domain.ProductEmbedding, bool, error) {
	var model ProductEmbeddingModel
	if err := s.db.First(&model, "product_id = ?", productID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.ProductEmbedding{}, false, nil
		}
		return domain.ProductEmbedding{}, false, err
	}
	return embeddingFromModel(model), true, nil
}

// SaveProductEmbedding overwrites in place: exactly zero or one row per product.
func (s *GormStore) SaveProductEmbedding(e domain.ProductEmbedding) (domain.ProductEmbedding, error) {
	raw, _ := json.Marshal(e.Embedding)
	model := ProductEmbeddingModel{
		ProductID: e.ProductID,
		Embedding: datatypes.JSON(raw),
		CreatedAt: time.Now().UTC(),
	}
	if err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "product_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"embedding"}),
	}).Create(&model).Error; err != nil {
		return domain.ProductEmbedding{}, err
	}
	return embeddingFromModel(model), nil
}

func (s *GormStore) ListProductEmbeddings() ([]domain.ProductEmbedding, error) {
	var models []ProductEmbeddingModel
	if err := s.db.Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.ProductEmbedding, 0, len(models))
	for _, m := range models {
		res = append(res, embeddingFromModel(m))
	}
	return res, nil
}

func (s *GormStore) GetSEOMeta(productID int64) (domain.SEOMeta, bool, error) {
	var model SEOMetaModel
	if err := s.db.First(&model, "product_id = ?", productID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.SEOMeta{}, false, nil
		}
		return domain.SEOMeta{}, false, err
	}
	return seoMetaFromModel(model), true, nil
}

func (s *GormStore) SaveSEOMeta(m domain.SEOMeta) (domain.SEOMeta, error) {
	model := SEOMetaModel{
		ProductID:       m.ProductID,
		MetaTitle:       m.MetaTitle,
		MetaDescription: m.MetaDescription,
		GeneratedBy:     m.GeneratedBy,
		CreatedAt:       time.Now().UTC(),
	}
	if err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "product_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"meta_title", "meta_description", "generated_by"}),
	}).Create(&model).Error; err != nil {
		return domain.SEOMeta{}, err
	}
	var row SEOMetaModel
	if err := s.db.First(&row, "product_id = ?", m.ProductID).Error; err != nil {
		return domain.SEOMeta{}, err
	}
	return seoMetaFromModel(row), nil
}

func (s *GormStore) ListChatMessages(sessionID string) ([]domain.ChatMessage, error) {
	var models []ChatMessageModel
	if err := s.db.Where("session_id = ?", sessionID).
		Order("created_at ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.ChatMessage, 0, len(models))
	for _, m := range models {
		res = append(res, domain.ChatMessage{
			ID: m.ID, SessionID: m.SessionID, Role: m.Role,
			Content: m.Content, CreatedAt: m.CreatedAt,
		})
	}
	return res, nil
}

func (s *GormStore) AppendChatMessage(m domain.ChatMessage) (domain.ChatMessage, error) {
	model := ChatMessageModel{
		SessionID: m.SessionID,
		Role:      m.Role,
		Content:   m.Content,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.db.Create(&model).Error; err != nil {
		return domain.ChatMessage{}, err
	}
	m.ID = model.ID
	m.CreatedAt = model.CreatedAt
	return m, nil
}

// converters

func productToModel(p domain.Product) ProductModel {
	tags, _ := json.Marshal(p.Tags)
	return ProductModel{
		ID:            p.ID,
		Name:          p.Name,
		Description:   p.Description,
		Price:         p.Price,
		OriginalPrice: p.OriginalPrice,
		Category:      p.Category,
		Image:         p.Image,
		Tags:          datatypes.JSON(tags),
		Featured:      p.Featured,
		InStock:       p.InStock,
		CreatedAt:     p.CreatedAt,
	}
}

func productFromModel(m ProductModel) domain.Product {
	var tags []string
	if len(m.Tags) > 0 {
		_ = json.Unmarshal(m.Tags, &tags)
	}
	return domain.Product{
		ID:            m.ID,
		Name:          m.Name,
		Description:   m.Description,
		Price:         m.Price,
		OriginalPrice: m.OriginalPrice,
		Category:      m.Category,
		Image:         m.Image,
		Tags:          tags,
		Featured:      m.Featured,
		InStock:       m.InStock,
		CreatedAt:     m.CreatedAt,
	}
}

func cartItemFromModel(m CartItemModel) domain.CartItem {
	return domain.CartItem{
		ID:        m.ID,
		ProductID: m.ProductID,
		Quantity:  m.Quantity,
		SessionID: m.SessionID,
		CreatedAt: m.CreatedAt,
	}
}

func comparisonFromModel(m ComparisonModel) domain.Comparison {
	var ids []int64
	if len(m.ProductIDs) > 0 {
		_ = json.Unmarshal(m.ProductIDs, &ids)
	}
	return domain.Comparison{
		ID:         m.ID,
		Identity:   m.Identity,
		ProductIDs: ids,
		CreatedAt:  m.CreatedAt,
	}
}

func orderFromModel(m OrderModel, items []OrderItemModel) domain.Order {
	order := domain.Order{
		ID:            m.ID,
		UserID:        m.UserID,
		OrderNumber:   m.OrderNumber,
		CustomerName:  m.CustomerName,
		CustomerEmail: m.CustomerEmail,
		Total:         m.Total,
		Status:        domain.OrderStatus(m.Status),
		CreatedAt:     m.CreatedAt,
	}
	for _, item := range items {
		order.Items = append(order.Items, domain.OrderItem{
			ID:        item.ID,
			OrderID:   item.OrderID,
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Price:     item.Price,
			CreatedAt: item.CreatedAt,
		})
	}
	return order
}

func embeddingFromModel(m ProductEmbeddingModel) domain.ProductEmbedding {
	var vec []float32
	if len(m.Embedding) > 0 {
		_ = json.Unmarshal(m.Embedding, &vec)
	}
	return domain.ProductEmbedding{
		ProductID: m.ProductID,
		Embedding: vec,
		CreatedAt: m.CreatedAt,
	}
}

func seoMetaFromModel(m SEOMetaModel) domain.SEOMeta {
	return domain.SEOMeta{
		ID:              m.ID,
		ProductID:       m.ProductID,
		MetaTitle:       m.MetaTitle,
		MetaDescription: m.MetaDescription,
		GeneratedBy:     m.GeneratedBy,
		CreatedAt:       m.CreatedAt,
	}
}
