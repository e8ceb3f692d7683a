package store

import "storefront/pkg/domain"

// Store is the persistence boundary for the storefront.
// Implementations: GormStore (Postgres) and MemoryStore (tests).
type Store interface {
	// Catalog
	ListProducts() ([]domain.Product, error)
	ListProductsByCategory(category string) ([]domain.Product, error)
	ListFeaturedProducts() ([]domain.Product, error)
	GetProduct(id int64) (domain.Product, bool, error)
	CreateProduct(p domain.Product) (domain.Product, error)
	UpdateProduct(id int64, p domain.Product) (domain.Product, bool, error)
	DeleteProduct(id int64) (bool, error)
	ListCategories() ([]domain.Category, error)
	CreateCategory(c domain.Category) (domain.Category, error)

	// Cart ledger. AddToCart is an atomic upsert on (session_id, product_id):
	// concurrent adds for the same product merge into one row.
	ListCartItems(identityKey string) ([]domain.CartItem, error)
	AddToCart(identityKey string, productID int64, quantity int) (domain.CartItem, error)
	UpdateCartItem(id int64, quantity int) (domain.CartItem, bool, error)
	RemoveFromCart(id int64) (bool, error)
	ClearCart(identityKey string) error

	// Ratings
	ListRatings(productID int64) ([]domain.Rating, error)
	AddRating(r domain.Rating) (domain.Rating, error)

	// Favorites
	ListFavorites(userID string) ([]domain.Favorite, error)
	AddFavorite(userID string, productID int64) (domain.Favorite, error)
	RemoveFavorite(userID string, productID int64) (bool, error)

	// Recently viewed
	ListRecentlyViewed(identityKey string, limit int) ([]domain.RecentlyViewedEntry, error)
	RecordView(identityKey string, productID int64) (domain.RecentlyViewedEntry, error)

	// Comparison
	GetComparison(identityKey string) (domain.Comparison, bool, error)
	SaveComparison(identityKey string, productIDs []int64) (domain.Comparison, error)

	// Product specs
	ListProductSpecs(productID int64) ([]domain.ProductSpec, error)
	AddProductSpec(s domain.ProductSpec) (domain.ProductSpec, error)

	// Orders
	CreateOrder(o domain.Order, items []domain.OrderItem) (domain.Order, error)
	ListOrdersByUser(userID string) ([]domain.Order, error)
	GetOrder(id int64) (domain.Order, bool, error)

	// Contact
	CreateContactSubmission(c domain.ContactSubmission) (domain.ContactSubmission, error)

	// AI side tables
	GetProductEmbedding(productID int64) (domain.ProductEmbedding, bool, error)
	SaveProductEmbedding(e domain.ProductEmbedding) (domain.ProductEmbedding, error)
	ListProductEmbeddings() ([]domain.ProductEmbedding, error)
	GetSEOMeta(productID int64) (domain.SEOMeta, bool, error)
	SaveSEOMeta(m domain.SEOMeta) (domain.SEOMeta, error)
	ListChatMessages(sessionID string) ([]domain.ChatMessage, error)
	AppendChatMessage(m domain.ChatMessage) (domain.ChatMessage, error)
}
