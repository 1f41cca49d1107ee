package api

import (
	"net/http"

	"github.com/fpang/product-craft/internal/chat"
)

func (s *Server) copywriterReady(w http.ResponseWriter, r *http.Request) bool {
	if !requireMethod(w, r, http.MethodPost) {
		return false
	}
	if s.cfg.Copywriter == nil {
		httpError(w, http.StatusServiceUnavailable, "copywriter not configured")
		return false
	}
	return true
}

// POST /api/copy/writeup
// Body: {"platform": "Instagram", "wordLimit": 150, "tone": "playful", "brief": "..."}
func (s *Server) handleWriteup(w http.ResponseWriter, r *http.Request) {
	if !s.copywriterReady(w, r) {
		return
	}
	var req chat.WriteupRequest
	if !decodeJSON(w, r, maxJSONBody, &req) {
		return
	}
	text, err := s.cfg.Copywriter.GenerateSocialWriteup(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"text": text})
}

// POST /api/copy/analyze
// Body: {"description": "..."}
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if !s.copywriterReady(w, r) {
		return
	}
	var req struct {
		Description string `json:"description"`
	}
	if !decodeJSON(w, r, maxJSONBody, &req) {
		return
	}
	text, err := s.cfg.Copywriter.AnalyzeProduct(r.Context(), req.Description)
	if err != nil {
		writeError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"text": text})
}

// POST /api/copy/suggestions
// Body: {"productType": "jewelry"}
func (s *Server) handleSuggestions(w http.ResponseWriter, r *http.Request) {
	if !s.copywriterReady(w, r) {
		return
	}
	var req struct {
		ProductType string `json:"productType"`
	}
	if !decodeJSON(w, r, maxJSONBody, &req) {
		return
	}
	text, err := s.cfg.Copywriter.SuggestEnhancements(r.Context(), req.ProductType)
	if err != nil {
		writeError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"text": text})
}

// POST /api/copy/backgrounds
// Body: {"productType": "jewelry"}. Always answers 200 with up to five names.
func (s *Server) handleBackgrounds(w http.ResponseWriter, r *http.Request) {
	if !s.copywriterReady(w, r) {
		return
	}
	var req struct {
		ProductType string `json:"productType"`
	}
	if !decodeJSON(w, r, maxJSONBody, &req) {
		return
	}
	respondJSON(w, http.StatusOK, map[string][]string{
		"backgrounds": s.cfg.Copywriter.SuggestBackgrounds(r.Context(), req.ProductType),
	})
}
