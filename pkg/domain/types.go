package domain

import "time"

// Identity is the resolved key per-visitor state is scoped under:
// an authenticated user id, an anonymous session id, or both.
type Identity struct {
	UserID    string
	SessionID string
}

// Key returns the owning key for per-identity collections,
// preferring the user id when the visitor is authenticated.
func (id Identity) Key() string {
	if id.UserID != "" {
		return id.UserID
	}
	return id.SessionID
}

// Authenticated reports whether the visitor carries a user id.
func (id Identity) Authenticated() bool {
	return id.UserID != ""
}

type Product struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	Description   string    `json:"description"`
	Price         float64   `json:"price"`
	OriginalPrice *float64  `json:"originalPrice,omitempty"`
	Category      string    `json:"category"`
	Image         string    `json:"image"`
	Tags          []string  `json:"tags"`
	Featured      bool      `json:"featured"`
	InStock       bool      `json:"inStock"`
	CreatedAt     time.Time `json:"createdAt"`
}

type Category struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// CartItem is one cart line: a product and its quantity for an identity.
// SessionID carries the resolved identity key (user id or session id).
type CartItem struct {
	ID        int64     `json:"id"`
	ProductID int64     `json:"productId"`
	Quantity  int       `json:"quantity"`
	SessionID string    `json:"sessionId"`
	CreatedAt time.Time `json:"createdAt"`
}

// CartTotals is derived from live catalog prices at read time.
type CartTotals struct {
	Subtotal float64 `json:"subtotal"`
	Tax      float64 `json:"tax"`
	Shipping float64 `json:"shipping"`
	Total    float64 `json:"total"`
}

type Rating struct {
	ID        int64     `json:"id"`
	ProductID int64     `json:"productId"`
	UserName  string    `json:"userName"`
	Rating    int       `json:"rating"`
	Review    string    `json:"review,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

type Favorite struct {
	ID        int64     `json:"id"`
	UserID    string    `json:"userId"`
	ProductID int64     `json:"productId"`
	CreatedAt time.Time `json:"createdAt"`
}

type RecentlyViewedEntry struct {
	ID        int64     `json:"id"`
	Identity  string    `json:"identity"`
	ProductID int64     `json:"productId"`
	ViewedAt  time.Time `json:"viewedAt"`
}

// Comparison is the single active side-by-side set for an identity (max 3 products).
type Comparison struct {
	ID         int64     `json:"id"`
	Identity   string    `json:"identity"`
	ProductIDs []int64   `json:"productIds"`
	CreatedAt  time.Time `json:"createdAt"`
}

type ProductSpec struct {
	ID        int64     `json:"id"`
	ProductID int64     `json:"productId"`
	SpecName  string    `json:"specName"`
	SpecValue string    `json:"specValue"`
	CreatedAt time.Time `json:"createdAt"`
}

type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderPaid      OrderStatus = "paid"
	OrderShipped   OrderStatus = "shipped"
	OrderCancelled OrderStatus = "cancelled"
)

type Order struct {
	ID            int64       `json:"id"`
	UserID        string      `json:"userId"`
	OrderNumber   string      `json:"orderNumber"`
	CustomerName  string      `json:"customerName"`
	CustomerEmail string      `json:"customerEmail"`
	Total         float64     `json:"total"`
	Status        OrderStatus `json:"status"`
	Items         []OrderItem `json:"items,omitempty"`
	CreatedAt     time.Time   `json:"createdAt"`
}

// OrderItem snapshots price at checkout, unlike the cart which always
// derives from the live catalog.
type OrderItem struct {
	ID        int64     `json:"id"`
	OrderID   int64     `json:"orderId"`
	ProductID int64     `json:"productId"`
	Quantity  int       `json:"quantity"`
	Price     float64   `json:"price"`
	CreatedAt time.Time `json:"createdAt"`
}

type ContactSubmission struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
}

// ProductEmbedding caches the provider embedding for a product's text.
// At most one per product; recompute overwrites in place.
type ProductEmbedding struct {
	ProductID int64     `json:"productId"`
	Embedding []float32 `json:"embedding"`
	CreatedAt time.Time `json:"createdAt"`
}

type SEOMeta struct {
	ID              int64     `json:"id"`
	ProductID       int64     `json:"productId"`
	MetaTitle       string    `json:"metaTitle"`
	MetaDescription string    `json:"metaDescription"`
	GeneratedBy     string    `json:"generatedBy,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
}

type ChatMessage struct {
	ID        int64     `json:"id"`
	SessionID string    `json:"sessionId"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}
