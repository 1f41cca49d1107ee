package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"

	"github.com/rs/zerolog/log"

	"github.com/fpang/product-craft/internal/chat"
	"github.com/fpang/product-craft/internal/editor"
)

// uuidRegex matches UUID v4 format: 8-4-4-4-12 lowercase hex with dashes.
var uuidRegex = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

func validateSessionID(id string) error {
	if !uuidRegex.MatchString(id) {
		return fmt.Errorf("invalid session id: must be a UUID")
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func httpError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// statusForKind maps an editing failure to an HTTP status.
func statusForKind(kind editor.Kind) int {
	switch kind {
	case editor.KindUnknownTool, editor.KindUnknownBackground, editor.KindInvalidGeometry, editor.KindInvalidVersion:
		return http.StatusBadRequest
	case editor.KindMissingHotspot, editor.KindMissingInstruction, editor.KindNoImageLoaded,
		editor.KindUnsupportedOperation, editor.KindRefused:
		return http.StatusUnprocessableEntity
	case editor.KindOrchestratorBusy:
		return http.StatusConflict
	case editor.KindMalformedResponse, editor.KindTransportFailure:
		return http.StatusBadGateway
	case editor.KindTimeout:
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

// writeError renders err with the status its kind maps to.
func writeError(w http.ResponseWriter, err error) {
	var editErr *editor.Error
	if errors.As(err, &editErr) {
		status := statusForKind(editErr.Kind)
		if status >= 500 {
			log.Warn().Err(err).Str("kind", editErr.Kind.String()).Msg("Edit backend failure")
		}
		respondJSON(w, status, map[string]string{
			"error": err.Error(),
			"kind":  editErr.Kind.String(),
		})
		return
	}
	if errors.Is(err, chat.ErrInvalidInput) {
		httpError(w, http.StatusBadRequest, err.Error())
		return
	}
	log.Error().Err(err).Msg("Request failed")
	httpError(w, http.StatusBadGateway, err.Error())
}

// decodeJSON reads a JSON body into v. An empty body leaves v unchanged.
func decodeJSON(w http.ResponseWriter, r *http.Request, limit int64, v interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return true
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		httpError(w, http.StatusRequestEntityTooLarge, "request body too large")
		return false
	}
	log.Debug().Err(err).Msg("Request body decoding failed")
	httpError(w, http.StatusBadRequest, "invalid request body")
	return false
}

func requireMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		httpError(w, http.StatusMethodNotAllowed, "method not allowed")
		return false
	}
	return true
}
