package store

import (
	"sort"
	"sync"
	"time"

	"storefront/pkg/domain"
)

// MemoryStore keeps all entities in process memory. It mirrors the
// Postgres implementation's semantics (merge-on-add, replace-on-save)
// and is used by tests and local development.
type MemoryStore struct {
	mu sync.Mutex

	nextID int64

	products   map[int64]domain.Product
	categories []domain.Category
	cart       map[int64]domain.CartItem
	ratings    map[int64][]domain.Rating
	favorites  map[string][]domain.Favorite
	viewed     map[string][]domain.RecentlyViewedEntry
	compare    map[string]domain.Comparison
	specs      map[int64][]domain.ProductSpec
	orders     []domain.Order
	contacts   []domain.ContactSubmission
	embeddings map[int64]domain.ProductEmbedding
	seo        map[int64]domain.SEOMeta
	chats      map[string][]domain.ChatMessage
}

// NewMemoryStore initializes an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		products:   make(map[int64]domain.Product),
		cart:       make(map[int64]domain.CartItem),
		ratings:    make(map[int64][]domain.Rating),
		favorites:  make(map[string][]domain.Favorite),
		viewed:     make(map[string][]domain.RecentlyViewedEntry),
		compare:    make(map[string]domain.Comparison),
		specs:      make(map[int64][]domain.ProductSpec),
		embeddings: make(map[int64]domain.ProductEmbedding),
		seo:        make(map[int64]domain.SEOMeta),
		chats:      make(map[string][]domain.ChatMessage),
	}
}

func (m *MemoryStore) id() int64 {
	m.nextID++
	return m.nextID
}

// Catalog

func (m *MemoryStore) ListProducts() ([]domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.filterProducts(func(domain.Product) bool { return true }), nil
}

func (m *MemoryStore) ListProductsByCategory(category string) ([]domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.filterProducts(func(p domain.Product) bool { return p.Category == category }), nil
}

func (m *MemoryStore) ListFeaturedProducts() ([]domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.filterProducts(func(p domain.Product) bool { return p.Featured }), nil
}

func (m *MemoryStore) filterProducts(keep func(domain.Product) bool) []domain.Product {
	res := make([]domain.Product, 0, len(m.products))
	for _, p := range m.products {
		if keep(p) {
			res = append(res, p)
		}
	}
	sort.Slice(res, func(i, j int) bool {
		if res[i].CreatedAt.Equal(res[j].CreatedAt) {
			return res[i].ID > res[j].ID
		}
		return res[i].CreatedAt.After(res[j].CreatedAt)
	})
	return res
}

func (m *MemoryStore) GetProduct(id int64) (domain.Product, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	return p, ok, nil
}

func (m *MemoryStore) CreateProduct(p domain.Product) (domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p.ID = m.id()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	m.products[p.ID] = p
	return p, nil
}

func (m *MemoryStore) UpdateProduct(id int64, p domain.Product) (domain.Product, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.products[id]
	if !ok {
		return domain.Product{}, false, nil
	}
	p.ID = id
	p.CreatedAt = existing.CreatedAt
	m.products[id] = p
	return p, true, nil
}

func (m *MemoryStore) DeleteProduct(id int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.products[id]; !ok {
		return false, nil
	}
	delete(m.products, id)
	return true, nil
}

func (m *MemoryStore) ListCategories() ([]domain.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	res := make([]domain.Category, len(m.categories))
	copy(res, m.categories)
	return res, nil
}

func (m *MemoryStore) CreateCategory(c domain.Category) (domain.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c.ID = m.id()
	m.categories = append(m.categories, c)
	return c, nil
}

// Cart ledger

func (m *MemoryStore) ListCartItems(identityKey string) ([]domain.CartItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	res := make([]domain.CartItem, 0)
	for _, item := range m.cart {
		if item.SessionID == identityKey {
			res = append(res, item)
		}
	}
	sort.Slice(res, func(i, j int) bool {
		if res[i].CreatedAt.Equal(res[j].CreatedAt) {
			return res[i].ID > res[j].ID
		}
		return res[i].CreatedAt.After(res[j].CreatedAt)
	})
	return res, nil
}

func (m *MemoryStore) AddToCart(identityKey string, productID int64, quantity int) (domain.CartItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, item := range m.cart {
		if item.SessionID == identityKey && item.ProductID == productID {
			item.Quantity += quantity
			m.cart[id] = item
			return item, nil
		}
	}
	item := domain.CartItem{
		ID:        m.id(),
		ProductID: productID,
		Quantity:  quantity,
		SessionID: identityKey,
		CreatedAt: time.Now().UTC(),
	}
	m.cart[item.ID] = item
	return item, nil
}

func (m *MemoryStore) UpdateCartItem(id int64, quantity int) (domain.CartItem, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.cart[id]
	if !ok {
		return domain.CartItem{}, false, nil
	}
	item.Quantity = quantity
	m.cart[id] = item
	return item, true, nil
}

func (m *MemoryStore) RemoveFromCart(id int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.cart[id]; !ok {
		return false, nil
	}
	delete(m.cart, id)
	return true, nil
}

func (m *MemoryStore) ClearCart(identityKey string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, item := range m.cart {
		if item.SessionID == identityKey {
			delete(m.cart, id)
		}
	}
	return nil
}

// Ratings

func (m *MemoryStore) ListRatings(productID int64) ([]domain.Rating, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rows := m.ratings[productID]
	res := make([]domain.Rating, len(rows))
	copy(res, rows)
	// newest first
	for i, j := 0, len(res)-1; i < j; i, j = i+1, j-1 {
		res[i], res[j] = res[j], res[i]
	}
	return res, nil
}

func (m *MemoryStore) AddRating(r domain.Rating) (domain.Rating, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r.ID = m.id()
	r.CreatedAt = time.Now().UTC()
	m.ratings[r.ProductID] = append(m.ratings[r.ProductID], r)
	return r, nil
}

// Favorites

func (m *MemoryStore) ListFavorites(userID string) ([]domain.Favorite, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rows := m.favorites[userID]
	res := make([]domain.Favorite, len(rows))
	copy(res, rows)
	return res, nil
}

func (m *MemoryStore) AddFavorite(userID string, productID int64) (domain.Favorite, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, f := range m.favorites[userID] {
		if f.ProductID == productID {
			return f, nil
		}
	}
	fav := domain.Favorite{
		ID:        m.id(),
		UserID:    userID,
		ProductID: productID,
		CreatedAt: time.Now().UTC(),
	}
	m.favorites[userID] = append(m.favorites[userID], fav)
	return fav, nil
}

func (m *MemoryStore) RemoveFavorite(userID string, productID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rows := m.favorites[userID]
	for i, f := range rows {
		if f.ProductID == productID {
			m.favorites[userID] = append(rows[:i], rows[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

// Recently viewed

func (m *MemoryStore) ListRecentlyViewed(identityKey string, limit int) ([]domain.RecentlyViewedEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit <= 0 {
		limit = 10
	}
	rows := m.viewed[identityKey]
	res := make([]domain.RecentlyViewedEntry, len(rows))
	copy(res, rows)
	sort.Slice(res, func(i, j int) bool { return res[i].ViewedAt.After(res[j].ViewedAt) })
	if len(res) > limit {
		res = res[:limit]
	}
	return res, nil
}

func (m *MemoryStore) RecordView(identityKey string, productID int64) (domain.RecentlyViewedEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rows := m.viewed[identityKey]
	for i, e := range rows {
		if e.ProductID == productID {
			rows = append(rows[:i], rows[i+1:]...)
			break
		}
	}
	entry := domain.RecentlyViewedEntry{
		ID:        m.id(),
		Identity:  identityKey,
		ProductID: productID,
		ViewedAt:  time.Now().UTC(),
	}
	m.viewed[identityKey] = append(rows, entry)
	return entry, nil
}

// Comparison

func (m *MemoryStore) GetComparison(identityKey string) (domain.Comparison, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.compare[identityKey]
	return c, ok, nil
}

func (m *MemoryStore) SaveComparison(identityKey string, productIDs []int64) (domain.Comparison, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]int64, len(productIDs))
	copy(ids, productIDs)
	c := domain.Comparison{
		ID:         m.id(),
		Identity:   identityKey,
		ProductIDs: ids,
		CreatedAt:  time.Now().UTC(),
	}
	m.compare[identityKey] = c
	return c, nil
}

// Product specs

func (m *MemoryStore) ListProductSpecs(productID int64) ([]domain.ProductSpec, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rows := m.specs[productID]
	res := make([]domain.ProductSpec, len(rows))
	copy(res, rows)
	return res, nil
}

func (m *MemoryStore) AddProductSpec(s domain.ProductSpec) (domain.ProductSpec, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s.ID = m.id()
	s.CreatedAt = time.Now().UTC()
	m.specs[s.ProductID] = append(m.specs[s.ProductID], s)
	return s, nil
}

// Orders

func (m *MemoryStore) CreateOrder(o domain.Order, items []domain.OrderItem) (domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o.ID = m.id()
	o.CreatedAt = time.Now().UTC()
	for _, item := range items {
		item.ID = m.id()
		item.OrderID = o.ID
		item.CreatedAt = o.CreatedAt
		o.Items = append(o.Items, item)
	}
	m.orders = append(m.orders, o)
	return o, nil
}

func (m *MemoryStore) ListOrdersByUser(userID string) ([]domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	res := make([]domain.Order, 0)
	for i := len(m.orders) - 1; i >= 0; i-- {
		if m.orders[i].UserID == userID {
			res = append(res, m.orders[i])
		}
	}
	return res, nil
}

func (m *MemoryStore) GetOrder(id int64) (domain.Order, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.orders {
		if o.ID == id {
			return o, true, nil
		}
	}
	return domain.Order{}, false, nil
}

// Contact

func (m *MemoryStore) CreateContactSubmission(c domain.ContactSubmission) (domain.ContactSubmission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c.ID = m.id()
	c.CreatedAt = time.Now().UTC()
	m.contacts = append(m.contacts, c)
	return c, nil
}

// AI side tables

func (m *MemoryStore) GetProductEmbedding(productID int64) (domain.ProductEmbedding, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.embeddings[productID]
	return e, ok, nil
}

func (m *MemoryStore) SaveProductEmbedding(e domain.ProductEmbedding) (domain.ProductEmbedding, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	m.embeddings[e.ProductID] = e
	return e, nil
}

func (m *MemoryStore) ListProductEmbeddings() ([]domain.ProductEmbedding, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	res := make([]domain.ProductEmbedding, 0, len(m.embeddings))
	for _, e := range m.embeddings {
		res = append(res, e)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ProductID < res[j].ProductID })
	return res, nil
}

func (m *MemoryStore) GetSEOMeta(productID int64) (domain.SEOMeta, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	meta, ok := m.seo[productID]
	return meta, ok, nil
}

func (m *MemoryStore) SaveSEOMeta(meta domain.SEOMeta) (domain.SEOMeta, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.seo[meta.ProductID]
	if ok {
		meta.ID = existing.ID
		meta.CreatedAt = existing.CreatedAt
	} else {
		meta.ID = m.id()
		meta.CreatedAt = time.Now().UTC()
	}
	m.seo[meta.ProductID] = meta
	return meta, nil
}

func (m *MemoryStore) ListChatMessages(sessionID string) ([]domain.ChatMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rows := m.chats[sessionID]
	res := make([]domain.ChatMessage, len(rows))
	copy(res, rows)
	return res, nil
}

func (m *MemoryStore) AppendChatMessage(msg domain.ChatMessage) (domain.ChatMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg.ID = m.id()
	msg.CreatedAt = time.Now().UTC()
	m.chats[msg.SessionID] = append(m.chats[msg.SessionID], msg)
	return msg, nil
}
