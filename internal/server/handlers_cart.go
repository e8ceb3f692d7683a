package server

import (
	"net/http"
	"strconv"
	"strings"
)

type addToCartRequest struct {
	ProductID int64  `json:"productId"`
	Quantity  int    `json:"quantity"`
	Identity  string `json:"identity,omitempty"`
}

type updateQuantityRequest struct {
	Quantity int `json:"quantity"`
}

// handleCartAdd serves POST /api/cart. The body may name an explicit
// identity; otherwise the resolved session identity owns the line.
func (s *Server) handleCartAdd(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req addToCartRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	key := strings.TrimSpace(req.Identity)
	if key == "" {
		id, _ := s.identityFor(w, r)
		key = id.Key()
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}
	item, err := s.app.AddToCart(key, req.ProductID, req.Quantity)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

// handleCartSubtree serves GET /api/cart/{identity},
// GET /api/cart/{identity}/totals and PUT/DELETE /api/cart/{lineItemId}.
func (s *Server) handleCartSubtree(w http.ResponseWriter, r *http.Request) {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/cart/"), "/")
	parts := strings.Split(rest, "/")

	if len(parts) == 2 && parts[1] == "totals" {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		totals, err := s.app.ComputeCartTotals(r.Context(), parts[0])
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, totals)
		return
	}
	if len(parts) != 1 || parts[0] == "" {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		items, err := s.app.GetCart(parts[0])
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, items)
	case http.MethodPut:
		id, err := strconv.ParseInt(parts[0], 10, 64)
		if err != nil || id <= 0 {
			writeError(w, http.StatusNotFound, "cart item not found")
			return
		}
		var req updateQuantityRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		item, updateErr := s.app.UpdateCartQuantity(id, req.Quantity)
		if updateErr != nil {
			writeAppError(w, updateErr)
			return
		}
		writeJSON(w, http.StatusOK, item)
	case http.MethodDelete:
		id, err := strconv.ParseInt(parts[0], 10, 64)
		if err != nil || id <= 0 {
			writeError(w, http.StatusNotFound, "cart item not found")
			return
		}
		if err := s.app.RemoveFromCart(id); err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"success": true})
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// handleCartClear serves DELETE /api/cart/session/{identity}.
func (s *Server) handleCartClear(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	key := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/cart/session/"), "/")
	if key == "" {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	if err := s.app.ClearCart(key); err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
