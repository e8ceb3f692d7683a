package app

import (
	"context"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/google/uuid"

	"storefront/internal/identity"
	"storefront/internal/util"
	"storefront/pkg/ai"
	"storefront/pkg/auth"
	"storefront/pkg/domain"
	"storefront/pkg/queue"
	"storefront/pkg/storage"
	"storefront/pkg/store"
)

const defaultTaxRate = 0.08

// Config holds runtime configuration for the core application.
type Config struct {
	DatabaseDSN string
	TaxRate     float64

	AdminEmail        string
	AdminPasswordHash string

	Store     store.Store
	Embedder  ai.Embedder
	Generator ai.ChatGenerator
	Images    storage.ObjectStore
	Queue     *queue.RedisJobQueue
	Tokens    *identity.TokenManager
}

// App wires the store, the AI provider and supporting infrastructure
// into the storefront's domain operations.
type App struct {
	store     store.Store
	embedder  ai.Embedder
	generator ai.ChatGenerator
	images    storage.ObjectStore
	queue     *queue.RedisJobQueue
	tokens    *identity.TokenManager

	taxRate    float64
	adminEmail string
	adminHash  string
}

// New constructs the application. Store may be injected for tests;
// otherwise a Postgres store is opened from DatabaseDSN.
func New(cfg Config) (*App, error) {
	dataStore := cfg.Store
	if dataStore == nil {
		if cfg.DatabaseDSN == "" {
			return nil, fmt.Errorf("database DSN required")
		}
		var err error
		dataStore, err = store.NewGormStore(cfg.DatabaseDSN)
		if err != nil {
			return nil, fmt.Errorf("init postgres store: %w", err)
		}
	}
	taxRate := cfg.TaxRate
	if taxRate <= 0 {
		taxRate = defaultTaxRate
	}
	return &App{
		store:      dataStore,
		embedder:   cfg.Embedder,
		generator:  cfg.Generator,
		images:     cfg.Images,
		queue:      cfg.Queue,
		tokens:     cfg.Tokens,
		taxRate:    taxRate,
		adminEmail: strings.ToLower(strings.TrimSpace(cfg.AdminEmail)),
		adminHash:  cfg.AdminPasswordHash,
	}, nil
}

// Store exposes the underlying store for the embedding consumer.
func (a *App) Store() store.Store {
	return a.store
}

// Catalog

func (a *App) ListProducts(category string) ([]domain.Product, error) {
	if category = strings.TrimSpace(category); category != "" {
		return a.store.ListProductsByCategory(category)
	}
	return a.store.ListProducts()
}

func (a *App) ListFeaturedProducts() ([]domain.Product, error) {
	return a.store.ListFeaturedProducts()
}

func (a *App) GetProduct(id int64) (domain.Product, error) {
	p, ok, err := a.store.GetProduct(id)
	if err != nil {
		return domain.Product{}, err
	}
	if !ok {
		return domain.Product{}, fmt.Errorf("product %d: %w", id, ErrNotFound)
	}
	return p, nil
}

func (a *App) CreateProduct(ctx context.Context, p domain.Product) (domain.Product, error) {
	if err := validateProduct(p); err != nil {
		return domain.Product{}, err
	}
	created, err := a.store.CreateProduct(p)
	if err != nil {
		return domain.Product{}, err
	}
	a.enqueueEmbedding(ctx, created.ID)
	return created, nil
}

func (a *App) UpdateProduct(ctx context.Context, id int64, p domain.Product) (domain.Product, error) {
	if err := validateProduct(p); err != nil {
		return domain.Product{}, err
	}
	updated, ok, err := a.store.UpdateProduct(id, p)
	if err != nil {
		return domain.Product{}, err
	}
	if !ok {
		return domain.Product{}, fmt.Errorf("product %d: %w", id, ErrNotFound)
	}
	a.enqueueEmbedding(ctx, id)
	return updated, nil
}

func (a *App) DeleteProduct(id int64) error {
	ok, err := a.store.DeleteProduct(id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("product %d: %w", id, ErrNotFound)
	}
	return nil
}

func validateProduct(p domain.Product) error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("%w: product name is required", ErrValidation)
	}
	if p.Price < 0 {
		return fmt.Errorf("%w: price must be >= 0", ErrValidation)
	}
	if strings.TrimSpace(p.Category) == "" {
		return fmt.Errorf("%w: category is required", ErrValidation)
	}
	return nil
}

// enqueueEmbedding submits a backfill job; failures only log, product
// writes never depend on the queue.
func (a *App) enqueueEmbedding(ctx context.Context, productID int64) {
	if a.queue == nil {
		return
	}
	if _, err := a.queue.Enqueue(ctx, productID); err != nil {
		util.LoggerFromContext(ctx).Warn("embedding enqueue failed",
			"product_id", productID, "error", err)
	}
}

func (a *App) ListCategories() ([]domain.Category, error) {
	return a.store.ListCategories()
}

func (a *App) CreateCategory(c domain.Category) (domain.Category, error) {
	if strings.TrimSpace(c.Name) == "" {
		return domain.Category{}, fmt.Errorf("%w: category name is required", ErrValidation)
	}
	return a.store.CreateCategory(c)
}

// SetProductImage streams an uploaded image to object storage and
// records the object key on the product.
func (a *App) SetProductImage(ctx context.Context, productID int64, r io.Reader, size int64, contentType, ext string) (domain.Product, error) {
	if a.images == nil {
		return domain.Product{}, fmt.Errorf("image storage not configured")
	}
	p, err := a.GetProduct(productID)
	if err != nil {
		return domain.Product{}, err
	}
	key := storage.ProductImageKey(productID, ext)
	if err := a.images.Put(ctx, key, r, size, contentType); err != nil {
		return domain.Product{}, fmt.Errorf("store product image: %w", err)
	}
	p.Image = key
	updated, ok, err := a.store.UpdateProduct(productID, p)
	if err != nil {
		return domain.Product{}, err
	}
	if !ok {
		return domain.Product{}, fmt.Errorf("product %d: %w", productID, ErrNotFound)
	}
	return updated, nil
}

// Cart ledger

func (a *App) GetCart(identityKey string) ([]domain.CartItem, error) {
	return a.store.ListCartItems(identityKey)
}

func (a *App) AddToCart(identityKey string, productID int64, quantity int) (domain.CartItem, error) {
	if quantity < 1 {
		return domain.CartItem{}, fmt.Errorf("%w: quantity must be >= 1", ErrValidation)
	}
	if _, err := a.GetProduct(productID); err != nil {
		return domain.CartItem{}, err
	}
	return a.store.AddToCart(identityKey, productID, quantity)
}

func (a *App) UpdateCartQuantity(id int64, quantity int) (domain.CartItem, error) {
	if quantity < 1 {
		return domain.CartItem{}, fmt.Errorf("%w: quantity must be >= 1", ErrValidation)
	}
	item, ok, err := a.store.UpdateCartItem(id, quantity)
	if err != nil {
		return domain.CartItem{}, err
	}
	if !ok {
		return domain.CartItem{}, fmt.Errorf("cart item %d: %w", id, ErrNotFound)
	}
	return item, nil
}

func (a *App) RemoveFromCart(id int64) error {
	ok, err := a.store.RemoveFromCart(id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("cart item %d: %w", id, ErrNotFound)
	}
	return nil
}

func (a *App) ClearCart(identityKey string) error {
	return a.store.ClearCart(identityKey)
}

// ComputeCartTotals derives totals from live catalog prices. Lines
// whose product no longer exists are excluded and logged.
func (a *App) ComputeCartTotals(ctx context.Context, identityKey string) (domain.CartTotals, error) {
	items, err := a.store.ListCartItems(identityKey)
	if err != nil {
		return domain.CartTotals{}, err
	}
	var subtotal float64
	for _, item := range items {
		p, ok, err := a.store.GetProduct(item.ProductID)
		if err != nil {
			return domain.CartTotals{}, err
		}
		if !ok {
			util.LoggerFromContext(ctx).Warn("cart line references missing product",
				"cart_item_id", item.ID, "product_id", item.ProductID)
			continue
		}
		subtotal += p.Price * float64(item.Quantity)
	}
	tax := subtotal * a.taxRate
	return domain.CartTotals{
		Subtotal: subtotal,
		Tax:      tax,
		Shipping: 0,
		Total:    subtotal + tax,
	}, nil
}

// Ratings

func (a *App) ListRatings(productID int64) ([]domain.Rating, error) {
	return a.store.ListRatings(productID)
}

func (a *App) AddRating(r domain.Rating) (domain.Rating, error) {
	if r.Rating < 1 || r.Rating > 5 {
		return domain.Rating{}, fmt.Errorf("%w: rating must be between 1 and 5", ErrValidation)
	}
	if strings.TrimSpace(r.UserName) == "" {
		r.UserName = "Anonymous"
	}
	return a.store.AddRating(r)
}

// AverageRating returns the mean rounded to one decimal, 0 for no ratings.
func (a *App) AverageRating(productID int64) (float64, error) {
	ratings, err := a.store.ListRatings(productID)
	if err != nil {
		return 0, err
	}
	return averageRating(ratings), nil
}

// Favorites (authenticated identities only; callers gate on auth)

func (a *App) ListFavorites(userID string) ([]domain.Favorite, error) {
	return a.store.ListFavorites(userID)
}

func (a *App) AddFavorite(userID string, productID int64) (domain.Favorite, error) {
	if _, err := a.GetProduct(productID); err != nil {
		return domain.Favorite{}, err
	}
	return a.store.AddFavorite(userID, productID)
}

func (a *App) RemoveFavorite(userID string, productID int64) error {
	ok, err := a.store.RemoveFavorite(userID, productID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("favorite %d: %w", productID, ErrNotFound)
	}
	return nil
}

// Recently viewed

func (a *App) RecordView(identityKey string, productID int64) (domain.RecentlyViewedEntry, error) {
	if _, err := a.GetProduct(productID); err != nil {
		return domain.RecentlyViewedEntry{}, err
	}
	return a.store.RecordView(identityKey, productID)
}

func (a *App) ListRecentlyViewed(identityKey string) ([]domain.RecentlyViewedEntry, error) {
	return a.store.ListRecentlyViewed(identityKey, 10)
}

// Comparison

func (a *App) GetComparison(identityKey string) (domain.Comparison, error) {
	c, ok, err := a.store.GetComparison(identityKey)
	if err != nil {
		return domain.Comparison{}, err
	}
	if !ok {
		return domain.Comparison{Identity: identityKey, ProductIDs: []int64{}}, nil
	}
	return c, nil
}

func (a *App) SetComparison(identityKey string, productIDs []int64) (domain.Comparison, error) {
	if len(productIDs) > 3 {
		return domain.Comparison{}, fmt.Errorf("%w: comparison holds at most 3 products", ErrValidation)
	}
	return a.store.SaveComparison(identityKey, productIDs)
}

// Product specs

func (a *App) ListProductSpecs(productID int64) ([]domain.ProductSpec, error) {
	return a.store.ListProductSpecs(productID)
}

func (a *App) AddProductSpec(s domain.ProductSpec) (domain.ProductSpec, error) {
	if strings.TrimSpace(s.SpecName) == "" || strings.TrimSpace(s.SpecValue) == "" {
		return domain.ProductSpec{}, fmt.Errorf("%w: spec name and value are required", ErrValidation)
	}
	if _, err := a.GetProduct(s.ProductID); err != nil {
		return domain.ProductSpec{}, err
	}
	return a.store.AddProductSpec(s)
}

// Orders

// Checkout snapshots the caller's cart into an order at live prices,
// clears the cart and returns the created order.
func (a *App) Checkout(ctx context.Context, identityKey, customerName, customerEmail string) (domain.Order, error) {
	customerName = strings.TrimSpace(customerName)
	customerEmail = strings.TrimSpace(customerEmail)
	if customerName == "" || customerEmail == "" {
		return domain.Order{}, fmt.Errorf("%w: customer name and email are required", ErrValidation)
	}
	items, err := a.store.ListCartItems(identityKey)
	if err != nil {
		return domain.Order{}, err
	}
	orderItems := make([]domain.OrderItem, 0, len(items))
	var subtotal float64
	for _, item := range items {
		p, ok, err := a.store.GetProduct(item.ProductID)
		if err != nil {
			return domain.Order{}, err
		}
		if !ok {
			util.LoggerFromContext(ctx).Warn("skipping cart line with missing product",
				"cart_item_id", item.ID, "product_id", item.ProductID)
			continue
		}
		subtotal += p.Price * float64(item.Quantity)
		orderItems = append(orderItems, domain.OrderItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Price:     p.Price,
		})
	}
	if len(orderItems) == 0 {
		return domain.Order{}, fmt.Errorf("%w: cart is empty", ErrValidation)
	}
	order := domain.Order{
		UserID:        identityKey,
		OrderNumber:   uuid.NewString(),
		CustomerName:  customerName,
		CustomerEmail: customerEmail,
		Total:         subtotal + subtotal*a.taxRate,
		Status:        domain.OrderPending,
	}
	created, err := a.store.CreateOrder(order, orderItems)
	if err != nil {
		return domain.Order{}, err
	}
	if err := a.store.ClearCart(identityKey); err != nil {
		util.LoggerFromContext(ctx).Warn("clearing cart after checkout failed",
			"identity", identityKey, "error", err)
	}
	return created, nil
}

func (a *App) ListOrders(userID string) ([]domain.Order, error) {
	return a.store.ListOrdersByUser(userID)
}

// Contact

func (a *App) SubmitContact(c domain.ContactSubmission) (domain.ContactSubmission, error) {
	if strings.TrimSpace(c.Name) == "" || strings.TrimSpace(c.Email) == "" || strings.TrimSpace(c.Message) == "" {
		return domain.ContactSubmission{}, fmt.Errorf("%w: name, email and message are required", ErrValidation)
	}
	return a.store.CreateContactSubmission(c)
}

// Admin

// AdminLogin checks the configured admin credentials and issues an
// access token with the admin role.
func (a *App) AdminLogin(email, password string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if a.adminEmail == "" || a.adminHash == "" || a.tokens == nil {
		return "", fmt.Errorf("admin login not configured: %w", ErrUnauthorized)
	}
	if email != a.adminEmail || !auth.CheckPassword(password, a.adminHash) {
		return "", fmt.Errorf("invalid credentials: %w", ErrUnauthorized)
	}
	token, err := a.tokens.Issue("admin", "admin")
	if err != nil {
		return "", fmt.Errorf("issue admin token: %w", err)
	}
	return token, nil
}

func averageRating(ratings []domain.Rating) float64 {
	if len(ratings) == 0 {
		return 0
	}
	var sum int
	for _, r := range ratings {
		sum += r.Rating
	}
	mean := float64(sum) / float64(len(ratings))
	return math.Round(mean*10) / 10
}
