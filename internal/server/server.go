package server

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"storefront/internal/app"
	"storefront/internal/identity"
	"storefront/internal/ratelimit"
	"storefront/internal/util"
	"storefront/pkg/domain"
)

// Config wires required dependencies for the HTTP server.
type Config struct {
	App      *app.App
	Resolver *identity.Resolver

	RedisAddr     string
	RedisPassword string

	AssistRateLimitPerMinute   int
	CheckoutRateLimitPerMinute int
	MaxUploadBytes             int64
	TrustedProxies             *util.TrustedProxies

	// DisableRateLimits turns limiters off; used by tests without Redis.
	DisableRateLimits bool
}

// Server exposes the storefront HTTP API.
type Server struct {
	app      *app.App
	resolver *identity.Resolver
	mux      *http.ServeMux

	maxUploadBytes  int64
	trustedProxies  *util.TrustedProxies
	assistLimiter   *ratelimit.FixedWindowLimiter
	checkoutLimiter *ratelimit.FixedWindowLimiter
	limitsDisabled  bool
}

// New constructs the server with routes configured.
func New(cfg Config) (*Server, error) {
	if cfg.App == nil {
		return nil, fmt.Errorf("app is required")
	}
	resolver := cfg.Resolver
	if resolver == nil {
		resolver = identity.NewResolver(nil)
	}
	s := &Server{
		app:            cfg.App,
		resolver:       resolver,
		mux:            http.NewServeMux(),
		maxUploadBytes: normalizeMaxBytes(cfg.MaxUploadBytes),
		trustedProxies: cfg.TrustedProxies,
		limitsDisabled: cfg.DisableRateLimits,
	}
	if !cfg.DisableRateLimits {
		assistLimit := cfg.AssistRateLimitPerMinute
		if assistLimit <= 0 {
			assistLimit = 30
		}
		checkoutLimit := cfg.CheckoutRateLimitPerMinute
		if checkoutLimit <= 0 {
			checkoutLimit = 10
		}
		var err error
		s.assistLimiter, err = ratelimit.NewRedisFixedWindowLimiter(
			cfg.RedisAddr, cfg.RedisPassword, "storefront:ratelimit:assist", assistLimit, time.Minute)
		if err != nil {
			return nil, fmt.Errorf("init assist limiter: %w", err)
		}
		s.checkoutLimiter, err = ratelimit.NewRedisFixedWindowLimiter(
			cfg.RedisAddr, cfg.RedisPassword, "storefront:ratelimit:checkout", checkoutLimit, time.Minute)
		if err != nil {
			return nil, fmt.Errorf("init checkout limiter: %w", err)
		}
	}
	s.routes()
	return s, nil
}

// Router returns the configured handler with the middleware chain.
func (s *Server) Router() http.Handler {
	return util.WithRequestID(util.WithRequestLog(util.WithSecurityHeaders(util.WithCORS(s.mux))))
}

func (s *Server) routes() {
	s.mux.HandleFunc("/healthz", s.handleHealth)

	s.mux.HandleFunc("/api/auth/login", s.handleAdminLogin)

	// catalog
	s.mux.HandleFunc("/api/products", s.handleProducts)
	s.mux.HandleFunc("/api/products/featured", s.handleFeaturedProducts)
	s.mux.HandleFunc("/api/products/", s.handleProductSubtree)
	s.mux.HandleFunc("/api/categories", s.handleCategories)
	s.mux.HandleFunc("/api/product-specs", s.handleCreateProductSpec)
	s.mux.HandleFunc("/api/product-specs/", s.handleListProductSpecs)

	// cart ledger
	s.mux.HandleFunc("/api/cart", s.handleCartAdd)
	s.mux.HandleFunc("/api/cart/session/", s.handleCartClear)
	s.mux.HandleFunc("/api/cart/", s.handleCartSubtree)

	// interaction sets
	s.mux.HandleFunc("/api/recently-viewed", s.handleRecentlyViewed)
	s.mux.HandleFunc("/api/comparison", s.handleComparison)
	s.mux.HandleFunc("/api/favorites", s.handleFavorites)
	s.mux.HandleFunc("/api/favorites/", s.handleFavoriteByProduct)

	// AI augmentation
	s.mux.HandleFunc("/api/recommendations/", s.handleRecommendations)
	s.mux.HandleFunc("/api/search", s.handleSearch)
	s.mux.HandleFunc("/api/compare", s.handleCompare)
	s.mux.HandleFunc("/api/support", s.handleSupport)
	s.mux.HandleFunc("/api/support/history", s.handleSupportHistory)
	s.mux.HandleFunc("/api/seo/generate/", s.handleGenerateSEO)
	s.mux.HandleFunc("/api/seo/", s.handleGetSEO)

	// orders & contact
	s.mux.HandleFunc("/api/orders", s.handleOrders)
	s.mux.HandleFunc("/api/contact", s.handleContact)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// identityFor resolves the visitor identity, minting a session cookie
// when the request carries none.
func (s *Server) identityFor(w http.ResponseWriter, r *http.Request) (domain.Identity, string) {
	return s.resolver.Resolve(w, r)
}

// requireUser gates a handler on an authenticated identity.
func (s *Server) requireUser(w http.ResponseWriter, r *http.Request) (domain.Identity, bool) {
	id, _ := s.identityFor(w, r)
	if !id.Authenticated() {
		s.audit(r, "storefront.authorize", "fail", "reason", "missing_token")
		writeError(w, http.StatusUnauthorized, "authentication required")
		return id, false
	}
	return id, true
}

// requireAdmin gates a handler on the admin role claim.
func (s *Server) requireAdmin(w http.ResponseWriter, r *http.Request) bool {
	id, role := s.identityFor(w, r)
	if !id.Authenticated() {
		s.audit(r, "storefront.admin.authorize", "fail", "reason", "missing_token")
		writeError(w, http.StatusUnauthorized, "authentication required")
		return false
	}
	if role != "admin" {
		s.audit(r, "storefront.admin.authorize", "fail", "user_id", id.UserID, "reason", "forbidden")
		writeError(w, http.StatusForbidden, "forbidden")
		return false
	}
	s.audit(r, "storefront.admin.authorize", "success", "user_id", id.UserID)
	return true
}

func (s *Server) allowAssist(r *http.Request) bool {
	if s.limitsDisabled {
		return true
	}
	return s.assistLimiter.Allow(s.clientIP(r))
}

func (s *Server) allowCheckout(r *http.Request) bool {
	if s.limitsDisabled {
		return true
	}
	return s.checkoutLimiter.Allow(s.clientIP(r))
}

func (s *Server) clientIP(r *http.Request) string {
	return util.ClientIP(r, s.trustedProxies)
}

func (s *Server) audit(r *http.Request, event, outcome string, attrs ...any) {
	logAttrs := []any{
		"event", event,
		"outcome", outcome,
		"path", r.URL.Path,
		"method", r.Method,
		"ip", s.clientIP(r),
		"request_id", util.RequestIDFromRequest(r),
	}
	logAttrs = append(logAttrs, attrs...)
	if outcome == "success" {
		slog.Info("security_event", logAttrs...)
		return
	}
	slog.Warn("security_event", logAttrs...)
}

// writeAppError maps application sentinel errors onto HTTP statuses.
func writeAppError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, app.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, app.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, app.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, "unauthorized")
	default:
		slog.Error("internal error", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func pathID(path, prefix string) (int64, bool) {
	rest := strings.TrimPrefix(path, prefix)
	rest = strings.Trim(rest, "/")
	if rest == "" || strings.Contains(rest, "/") {
		return 0, false
	}
	id, err := strconv.ParseInt(rest, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func normalizeMaxBytes(value int64) int64 {
	if value <= 0 {
		return 10 * 1024 * 1024
	}
	return value
}
