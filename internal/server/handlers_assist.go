package server

import (
	"net/http"
)

func (s *Server) handleRecommendations(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	productID, ok := pathID(r.URL.Path, "/api/recommendations/")
	if !ok {
		writeError(w, http.StatusNotFound, "product not found")
		return
	}
	products, err := s.app.Recommendations(r.Context(), productID)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, products)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if !s.allowAssist(r) {
		s.audit(r, "storefront.search", "rate_limited")
		writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
		return
	}
	products, err := s.app.SemanticSearch(r.Context(), r.URL.Query().Get("query"))
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, products)
}

func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if !s.allowAssist(r) {
		s.audit(r, "storefront.compare", "rate_limited")
		writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
		return
	}
	var req struct {
		ProductIDs []int64 `json:"productIds"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	narrative, err := s.app.CompareNarrative(r.Context(), req.ProductIDs)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"comparison": narrative})
}

func (s *Server) handleSupport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if !s.allowAssist(r) {
		s.audit(r, "storefront.support", "rate_limited")
		writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
		return
	}
	id, _ := s.identityFor(w, r)
	var req struct {
		Message string `json:"message"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	reply, err := s.app.SupportChat(r.Context(), id.Key(), req.Message)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"response": reply.Content})
}

func (s *Server) handleSupportHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	id, _ := s.identityFor(w, r)
	history, err := s.app.ChatHistory(id.Key())
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, history)
}

func (s *Server) handleGetSEO(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	productID, ok := pathID(r.URL.Path, "/api/seo/")
	if !ok {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	meta, err := s.app.GetSEOMeta(productID)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, meta)
}

func (s *Server) handleGenerateSEO(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	productID, ok := pathID(r.URL.Path, "/api/seo/generate/")
	if !ok {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	meta, err := s.app.GenerateSEOMeta(r.Context(), productID)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, meta)
}
