package server

import (
	"net/http"
	"strings"

	"storefront/pkg/domain"
)

func (s *Server) handleRecentlyViewed(w http.ResponseWriter, r *http.Request) {
	id, _ := s.identityFor(w, r)
	switch r.Method {
	case http.MethodGet:
		entries, err := s.app.ListRecentlyViewed(id.Key())
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, entries)
	case http.MethodPost:
		var req struct {
			ProductID int64 `json:"productId"`
		}
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		entry, err := s.app.RecordView(id.Key(), req.ProductID)
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, entry)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) handleComparison(w http.ResponseWriter, r *http.Request) {
	id, _ := s.identityFor(w, r)
	switch r.Method {
	case http.MethodGet:
		c, err := s.app.GetComparison(id.Key())
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, c)
	case http.MethodPost:
		var req struct {
			ProductIDs []int64 `json:"productIds"`
		}
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		c, err := s.app.SetComparison(id.Key(), req.ProductIDs)
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, c)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) handleFavorites(w http.ResponseWriter, r *http.Request) {
	id, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodGet:
		favs, err := s.app.ListFavorites(id.UserID)
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, favs)
	case http.MethodPost:
		var req struct {
			ProductID int64 `json:"productId"`
		}
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		fav, err := s.app.AddFavorite(id.UserID, req.ProductID)
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, fav)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) handleFavoriteByProduct(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	id, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	productID, valid := pathID(r.URL.Path, "/api/favorites/")
	if !valid {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	if err := s.app.RemoveFavorite(id.UserID, productID); err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "favorite removed"})
}

func (s *Server) handleProductRatings(w http.ResponseWriter, r *http.Request, productID int64) {
	switch r.Method {
	case http.MethodGet:
		ratings, err := s.app.ListRatings(productID)
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, ratings)
	case http.MethodPost:
		var req struct {
			UserName string `json:"userName"`
			Rating   int    `json:"rating"`
			Review   string `json:"review"`
		}
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		rating, err := s.app.AddRating(domain.Rating{
			ProductID: productID,
			UserName:  strings.TrimSpace(req.UserName),
			Rating:    req.Rating,
			Review:    req.Review,
		})
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, rating)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) handleAverageRating(w http.ResponseWriter, r *http.Request, productID int64) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	avg, err := s.app.AverageRating(productID)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]float64{"averageRating": avg})
}
