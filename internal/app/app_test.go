package app

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"storefront/internal/identity"
	"storefront/pkg/auth"
	"storefront/pkg/domain"
	"storefront/pkg/store"
)

func mustHash(t *testing.T, password string) string {
	t.Helper()
	hash, err := auth.HashPassword(password)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	return hash
}

func newTestApp(t *testing.T) (*App, *store.MemoryStore) {
	t.Helper()
	mem := store.NewMemoryStore()
	a, err := New(Config{Store: mem})
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	return a, mem
}

func seedProduct(t *testing.T, mem *store.MemoryStore, name string, price float64) domain.Product {
	t.Helper()
	p, err := mem.CreateProduct(domain.Product{
		Name:        name,
		Description: name + " description",
		Price:       price,
		Category:    "gadgets",
		InStock:     true,
	})
	if err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return p
}

func TestAddToCartMergesQuantity(t *testing.T) {
	a, mem := newTestApp(t)
	p := seedProduct(t, mem, "Widget", 10)

	first, err := a.AddToCart("sess-1", p.ID, 2)
	if err != nil {
		t.Fatalf("add to cart: %v", err)
	}
	second, err := a.AddToCart("sess-1", p.ID, 3)
	if err != nil {
		t.Fatalf("second add: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("expected same cart line, got %d and %d", first.ID, second.ID)
	}
	if second.Quantity != 5 {
		t.Fatalf("expected merged quantity 5, got %d", second.Quantity)
	}
	items, _ := a.GetCart("sess-1")
	if len(items) != 1 {
		t.Fatalf("expected one cart line, got %d", len(items))
	}
}

func TestAddToCartValidation(t *testing.T) {
	a, mem := newTestApp(t)
	p := seedProduct(t, mem, "Widget", 10)

	if _, err := a.AddToCart("sess-1", p.ID, 0); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := a.AddToCart("sess-1", 999, 1); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found for missing product, got %v", err)
	}
}

func TestCartIsolationBetweenIdentities(t *testing.T) {
	a, mem := newTestApp(t)
	p := seedProduct(t, mem, "Widget", 10)

	if _, err := a.AddToCart("sess-1", p.ID, 1); err != nil {
		t.Fatalf("add: %v", err)
	}
	items, err := a.GetCart("sess-2")
	if err != nil {
		t.Fatalf("get cart: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("expected empty cart for other identity, got %d items", len(items))
	}
}

func TestComputeCartTotalsUsesLivePrices(t *testing.T) {
	a, mem := newTestApp(t)
	p := seedProduct(t, mem, "Widget", 10)
	if _, err := a.AddToCart("sess-1", p.ID, 2); err != nil {
		t.Fatalf("add: %v", err)
	}

	// Price change after adding must be reflected in totals.
	p.Price = 20
	if _, _, err := mem.UpdateProduct(p.ID, p); err != nil {
		t.Fatalf("update product: %v", err)
	}

	totals, err := a.ComputeCartTotals(context.Background(), "sess-1")
	if err != nil {
		t.Fatalf("totals: %v", err)
	}
	if totals.Subtotal != 40 {
		t.Fatalf("expected subtotal 40, got %v", totals.Subtotal)
	}
	if math.Abs(totals.Tax-3.2) > 1e-9 {
		t.Fatalf("expected tax 3.2, got %v", totals.Tax)
	}
	if totals.Shipping != 0 {
		t.Fatalf("expected shipping 0, got %v", totals.Shipping)
	}
	if math.Abs(totals.Total-43.2) > 1e-9 {
		t.Fatalf("expected total 43.2, got %v", totals.Total)
	}
}

func TestComputeCartTotalsSkipsDeletedProducts(t *testing.T) {
	a, mem := newTestApp(t)
	kept := seedProduct(t, mem, "Kept", 10)
	gone := seedProduct(t, mem, "Gone", 100)
	if _, err := a.AddToCart("sess-1", kept.ID, 1); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := a.AddToCart("sess-1", gone.ID, 1); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := mem.DeleteProduct(gone.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	totals, err := a.ComputeCartTotals(context.Background(), "sess-1")
	if err != nil {
		t.Fatalf("totals: %v", err)
	}
	if totals.Subtotal != 10 {
		t.Fatalf("expected orphaned line excluded, subtotal 10, got %v", totals.Subtotal)
	}
}

func TestUpdateAndRemoveCartItem(t *testing.T) {
	a, mem := newTestApp(t)
	p := seedProduct(t, mem, "Widget", 10)
	item, _ := a.AddToCart("sess-1", p.ID, 1)

	updated, err := a.UpdateCartQuantity(item.ID, 4)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Quantity != 4 {
		t.Fatalf("expected quantity 4, got %d", updated.Quantity)
	}
	if _, err := a.UpdateCartQuantity(item.ID, 0); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error for zero quantity, got %v", err)
	}
	if err := a.RemoveFromCart(item.ID); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := a.RemoveFromCart(item.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found on second remove, got %v", err)
	}
}

func TestAverageRating(t *testing.T) {
	a, mem := newTestApp(t)
	p := seedProduct(t, mem, "Widget", 10)

	avg, err := a.AverageRating(p.ID)
	if err != nil {
		t.Fatalf("average: %v", err)
	}
	if avg != 0 {
		t.Fatalf("expected 0 for no ratings, got %v", avg)
	}

	for _, v := range []int{5, 4, 4} {
		if _, err := a.AddRating(domain.Rating{ProductID: p.ID, UserName: "u", Rating: v}); err != nil {
			t.Fatalf("add rating: %v", err)
		}
	}
	avg, _ = a.AverageRating(p.ID)
	if avg != 4.3 {
		t.Fatalf("expected 4.3, got %v", avg)
	}

	if _, err := a.AddRating(domain.Rating{ProductID: p.ID, Rating: 6}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error for rating 6, got %v", err)
	}
	if _, err := a.AddRating(domain.Rating{ProductID: p.ID, Rating: 0}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error for rating 0, got %v", err)
	}
}

func TestRecentlyViewedDedupAndBound(t *testing.T) {
	a, mem := newTestApp(t)
	var ids []int64
	for i := 0; i < 12; i++ {
		p := seedProduct(t, mem, "P", 1)
		ids = append(ids, p.ID)
	}
	for _, id := range ids {
		if _, err := a.RecordView("sess-1", id); err != nil {
			t.Fatalf("record view: %v", err)
		}
	}
	// Re-view the first product; it should move to the front, not duplicate.
	if _, err := a.RecordView("sess-1", ids[0]); err != nil {
		t.Fatalf("re-view: %v", err)
	}

	entries, err := a.ListRecentlyViewed("sess-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 10 {
		t.Fatalf("expected 10 entries, got %d", len(entries))
	}
	if entries[0].ProductID != ids[0] {
		t.Fatalf("expected re-viewed product first, got %d", entries[0].ProductID)
	}
	seen := map[int64]bool{}
	for _, e := range entries {
		if seen[e.ProductID] {
			t.Fatalf("duplicate product %d in recently viewed", e.ProductID)
		}
		seen[e.ProductID] = true
	}
}

func TestComparisonReplaceAndLimit(t *testing.T) {
	a, mem := newTestApp(t)
	p1 := seedProduct(t, mem, "A", 1)
	p2 := seedProduct(t, mem, "B", 2)
	p3 := seedProduct(t, mem, "C", 3)
	p4 := seedProduct(t, mem, "D", 4)

	if _, err := a.SetComparison("sess-1", []int64{p1.ID, p2.ID, p3.ID, p4.ID}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error for 4 products, got %v", err)
	}

	if _, err := a.SetComparison("sess-1", []int64{p1.ID, p2.ID}); err != nil {
		t.Fatalf("set comparison: %v", err)
	}
	if _, err := a.SetComparison("sess-1", []int64{p3.ID}); err != nil {
		t.Fatalf("replace comparison: %v", err)
	}
	c, err := a.GetComparison("sess-1")
	if err != nil {
		t.Fatalf("get comparison: %v", err)
	}
	if len(c.ProductIDs) != 1 || c.ProductIDs[0] != p3.ID {
		t.Fatalf("expected replaced set [%d], got %v", p3.ID, c.ProductIDs)
	}

	empty, err := a.GetComparison("sess-2")
	if err != nil {
		t.Fatalf("get empty comparison: %v", err)
	}
	if len(empty.ProductIDs) != 0 {
		t.Fatalf("expected empty set, got %v", empty.ProductIDs)
	}
}

func TestFavoritesIdempotentAddAndRemove(t *testing.T) {
	a, mem := newTestApp(t)
	p := seedProduct(t, mem, "Widget", 10)

	f1, err := a.AddFavorite("user-1", p.ID)
	if err != nil {
		t.Fatalf("add favorite: %v", err)
	}
	f2, err := a.AddFavorite("user-1", p.ID)
	if err != nil {
		t.Fatalf("second add favorite: %v", err)
	}
	if f1.ID != f2.ID {
		t.Fatalf("expected idempotent add, got ids %d and %d", f1.ID, f2.ID)
	}
	favs, _ := a.ListFavorites("user-1")
	if len(favs) != 1 {
		t.Fatalf("expected one favorite, got %d", len(favs))
	}
	if err := a.RemoveFavorite("user-1", p.ID); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := a.RemoveFavorite("user-1", p.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found on second remove, got %v", err)
	}
}

func TestCheckoutSnapshotsAndClearsCart(t *testing.T) {
	a, mem := newTestApp(t)
	p := seedProduct(t, mem, "Widget", 10)
	if _, err := a.AddToCart("user-1", p.ID, 2); err != nil {
		t.Fatalf("add: %v", err)
	}

	order, err := a.Checkout(context.Background(), "user-1", "Jo Doe", "jo@example.com")
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if order.OrderNumber == "" {
		t.Fatalf("expected generated order number")
	}
	if order.Status != domain.OrderPending {
		t.Fatalf("expected pending status, got %q", order.Status)
	}
	if math.Abs(order.Total-21.6) > 1e-9 {
		t.Fatalf("expected total 21.6, got %v", order.Total)
	}
	if len(order.Items) != 1 || order.Items[0].Price != 10 {
		t.Fatalf("expected price snapshot 10, got %+v", order.Items)
	}

	items, _ := a.GetCart("user-1")
	if len(items) != 0 {
		t.Fatalf("expected cart cleared after checkout, got %d items", len(items))
	}

	if _, err := a.Checkout(context.Background(), "user-1", "Jo", "jo@example.com"); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error for empty cart, got %v", err)
	}
}

func TestAdminLogin(t *testing.T) {
	tokens, err := identity.NewTokenManager("test-secret", "storefront", time.Hour)
	if err != nil {
		t.Fatalf("token manager: %v", err)
	}
	mem := store.NewMemoryStore()
	a, err := New(Config{
		Store:      mem,
		Tokens:     tokens,
		AdminEmail:        "admin@example.com",
		AdminPasswordHash: mustHash(t, "Str0ng#Password!"),
	})
	if err != nil {
		t.Fatalf("new app: %v", err)
	}

	token, err := a.AdminLogin("Admin@Example.com", "Str0ng#Password!")
	if err != nil {
		t.Fatalf("admin login: %v", err)
	}
	claims, err := tokens.Verify(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.Subject != "admin" || claims.Role != "admin" {
		t.Fatalf("unexpected claims %+v", claims)
	}

	if _, err := a.AdminLogin("admin@example.com", "wrong"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	if _, err := a.AdminLogin("other@example.com", "Str0ng#Password!"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected unauthorized for wrong email, got %v", err)
	}
}

func TestSubmitContactValidation(t *testing.T) {
	a, _ := newTestApp(t)
	if _, err := a.SubmitContact(domain.ContactSubmission{Name: "A"}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	c, err := a.SubmitContact(domain.ContactSubmission{Name: "A", Email: "a@b.c", Message: "hi"})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if c.ID == 0 {
		t.Fatalf("expected assigned id")
	}
}
