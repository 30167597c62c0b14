package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/promptservice"
)

// Handler holds API route handlers.
type Handler struct {
	svc *promptservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *promptservice.Service) *Handler {
	return &Handler{svc: svc}
}

// promptName extracts the prompt name from the URL path segment,
// supporting percent-encoded characters.
func promptName(r *http.Request) string {
	raw := chi.URLParam(r, "name")
	if raw == "" {
		return ""
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// ListPrompts handles GET /api/prompts.
func (h *Handler) ListPrompts(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.List(r.Context())
	if err != nil {
		slog.Error("list prompts failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, PromptListResponse{
		Prompts: items,
		Total:   len(items),
	})
}

// GetPrompt handles GET /api/prompts/{name}.
func (h *Handler) GetPrompt(w http.ResponseWriter, r *http.Request) {
	name := promptName(r)
	if name == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("name is required"))
		return
	}
	detail, err := h.svc.Get(r.Context(), name)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		} else {
			slog.Error("get prompt failed", slog.String("name", name), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

// AddPrompt handles POST /api/prompts. Adding a name that sanitizes to an
// existing stem overwrites the stored prompt (last writer wins).
func (h *Handler) AddPrompt(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req AddPromptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	// Empty content is a valid prompt; only the name is mandatory.
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("name is required"))
		return
	}
	stem, err := h.svc.Add(r.Context(), req.Name, []byte(req.Content))
	if err != nil {
		slog.Error("add prompt failed", slog.String("name", req.Name), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusCreated, AddPromptResponse{Filename: stem + ".md"})
}

// DeletePrompt handles DELETE /api/prompts/{name}.
func (h *Handler) DeletePrompt(w http.ResponseWriter, r *http.Request) {
	name := promptName(r)
	if name == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("name is required"))
		return
	}
	if err := h.svc.Delete(r.Context(), name); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		} else {
			slog.Error("delete prompt failed", slog.String("name", name), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Search handles GET /api/search.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.svc.Search(r.Context(), q, limit)
	if err != nil {
		slog.Error("search failed", slog.String("query", q), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: results})
}
