package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"cryptids/internal/models"
	"cryptids/internal/storage"
	"cryptids/internal/version"

	"github.com/gorilla/mux"
)

const (
	minQueryLength = 2
	maxQueryLength = 100

	healthPingTimeout = 2 * time.Second
)

// Handlers contains HTTP handlers for the cryptids API
type Handlers struct {
	storage storage.Storage
	version version.Info
}

func NewHandlers(store storage.Storage, ver version.Info) *Handlers {
	return &Handlers{
		storage: store,
		version: ver,
	}
}

type indexResponse struct {
	Name      string            `json:"name"`
	Version   string            `json:"version"`
	Endpoints map[string]string `json:"endpoints"`
}

// Index describes the service and its entry points.
// GET /
func (h *Handlers) Index(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, indexResponse{
		Name:    "cryptids",
		Version: h.version.Version,
		Endpoints: map[string]string{
			"cryptids":        "/api/v1/cryptids",
			"search":          "/api/v1/cryptids/search?q=",
			"classifications": "/api/v1/cryptids/classifications",
			"related":         "/api/v1/cryptids/{id}/related",
			"images":          "/api/v1/images",
			"health":          "/health",
		},
	})
}

// HealthCheck reports healthy while the catalog backend answers a ping.
// GET /health
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthPingTimeout)
	defer cancel()

	response := models.NewHealthCheckResponse(models.StatusHealthy)
	response.Version = h.version.Version
	response.AddComponent("api", models.StatusHealthy, "API is operational")

	status := http.StatusOK
	if err := h.storage.Ping(ctx); err != nil {
		slog.WarnContext(r.Context(), "Storage health check failed", "error", err)
		response.Status = models.StatusUnhealthy
		response.AddComponent("storage", models.StatusUnhealthy, "Storage is unreachable")
		status = http.StatusServiceUnavailable
	} else {
		response.AddComponent("storage", models.StatusHealthy, "Storage is operational")
	}

	writeJSON(w, status, response)
}

// ListCryptids handles GET /api/v1/cryptids
func (h *Handlers) ListCryptids(w http.ResponseWriter, r *http.Request) {
	query, ok := parseQuery(w, r)
	if !ok {
		return
	}
	fields, ok := parseFields(w, r, summaryFields)
	if !ok {
		return
	}

	cryptids, total, err := h.storage.ListCryptids(r.Context(), query)
	if err != nil {
		h.storageError(w, r, "list cryptids", err)
		return
	}

	writeCryptidList(w, r, cryptids, models.NewPagination(query.Page.Number, query.Page.Limit, total), fields)
}

// SearchCryptids handles GET /api/v1/cryptids/search?q=
func (h *Handlers) SearchCryptids(w http.ResponseWriter, r *http.Request) {
	values := r.URL.Query()
	text := strings.TrimSpace(values.Get("q"))
	if text == "" {
		text = strings.TrimSpace(values.Get("query"))
	}
	if n := utf8.RuneCountInString(text); n < minQueryLength || n > maxQueryLength {
		writeError(w, r, http.StatusBadRequest, models.ErrorCodeBadRequest, "Invalid search query",
			map[string]string{"q": "must be between 2 and 100 characters"})
		return
	}

	query, ok := parseQuery(w, r)
	if !ok {
		return
	}
	fields, ok := parseFields(w, r, summaryFields)
	if !ok {
		return
	}

	cryptids, total, err := h.storage.SearchCryptids(r.Context(), text, query)
	if err != nil {
		h.storageError(w, r, "search cryptids", err)
		return
	}

	writeCryptidList(w, r, cryptids, models.NewPagination(query.Page.Number, query.Page.Limit, total), fields)
}

// GetCryptid handles GET /api/v1/cryptids/{id}
func (h *Handlers) GetCryptid(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	fields, ok := parseFields(w, r, detailFields)
	if !ok {
		return
	}

	cryptid, err := h.storage.GetCryptid(r.Context(), id)
	if err != nil {
		h.storageError(w, r, "get cryptid", err)
		return
	}

	if fields == nil {
		writeJSON(w, http.StatusOK, models.CryptidResponse{Data: cryptid.Detail()})
		return
	}
	data, err := project(cryptid.Detail(), fields)
	if err != nil {
		selectionError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, models.SelectedCryptidResponse{Data: data})
}

// RelatedCryptids handles GET /api/v1/cryptids/{id}/related
func (h *Handlers) RelatedCryptids(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	related, err := h.storage.RelatedCryptids(r.Context(), id, storage.RelatedLimit)
	if err != nil {
		h.storageError(w, r, "related cryptids", err)
		return
	}

	writeJSON(w, http.StatusOK, models.RelatedCryptidsResponse{Data: summaries(related)})
}

// ListCryptidImages handles GET /api/v1/cryptids/{id}/images
func (h *Handlers) ListCryptidImages(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	h.listImages(w, r, id)
}

// ListImages handles GET /api/v1/images
func (h *Handlers) ListImages(w http.ResponseWriter, r *http.Request) {
	h.listImages(w, r, 0)
}

func (h *Handlers) listImages(w http.ResponseWriter, r *http.Request, cryptidID int64) {
	page, ok := parsePage(w, r)
	if !ok {
		return
	}

	images, total, err := h.storage.ListImages(r.Context(), cryptidID, page)
	if err != nil {
		h.storageError(w, r, "list images", err)
		return
	}

	data := make([]models.Image, 0, len(images))
	for _, img := range images {
		data = append(data, *img)
	}
	writeJSON(w, http.StatusOK, models.ListImagesResponse{
		Data:       data,
		Pagination: models.NewPagination(page.Number, page.Limit, total),
	})
}

// ListClassifications handles GET /api/v1/cryptids/classifications
func (h *Handlers) ListClassifications(w http.ResponseWriter, r *http.Request) {
	classifications, err := h.storage.Classifications(r.Context())
	if err != nil {
		h.storageError(w, r, "list classifications", err)
		return
	}

	data := make([]models.Classification, 0, len(classifications))
	for _, c := range classifications {
		data = append(data, *c)
	}
	writeJSON(w, http.StatusOK, models.ListClassificationsResponse{Data: data})
}

func (h *Handlers) storageError(w http.ResponseWriter, r *http.Request, operation string, err error) {
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, r, http.StatusNotFound, models.ErrorCodeNotFound, "Cryptid not found", nil)
		return
	}
	slog.ErrorContext(r.Context(), "Storage operation failed", "operation", operation, "error", err)
	writeError(w, r, http.StatusInternalServerError, models.ErrorCodeInternalError, "Internal server error", nil)
}

func selectionError(w http.ResponseWriter, r *http.Request, err error) {
	slog.ErrorContext(r.Context(), "Field selection failed", "error", err)
	writeError(w, r, http.StatusInternalServerError, models.ErrorCodeInternalError, "Internal server error", nil)
}

// writeCryptidList writes summaries, narrowed to fields when any are selected.
func writeCryptidList(w http.ResponseWriter, r *http.Request, cryptids []*models.Cryptid, pagination models.Pagination, fields []string) {
	if fields == nil {
		writeJSON(w, http.StatusOK, models.ListCryptidsResponse{Data: summaries(cryptids), Pagination: pagination})
		return
	}
	data := make([]map[string]json.RawMessage, 0, len(cryptids))
	for _, c := range cryptids {
		m, err := project(c.Summary(), fields)
		if err != nil {
			selectionError(w, r, err)
			return
		}
		data = append(data, m)
	}
	writeJSON(w, http.StatusOK, models.SelectedCryptidsResponse{Data: data, Pagination: pagination})
}

func summaries(cryptids []*models.Cryptid) []models.CryptidSummary {
	out := make([]models.CryptidSummary, 0, len(cryptids))
	for _, c := range cryptids {
		out = append(out, c.Summary())
	}
	return out
}

// parsePage reads page and limit, writing a 400 response when either is out
// of range.
func parsePage(w http.ResponseWriter, r *http.Request) (storage.Page, bool) {
	page, details := pageFromQuery(r.URL.Query())
	if len(details) > 0 {
		writeError(w, r, http.StatusBadRequest, models.ErrorCodeInvalidPagination, "Invalid pagination parameters", details)
		return storage.Page{}, false
	}
	return page, true
}

func pageFromQuery(q url.Values) (storage.Page, map[string]string) {
	page := storage.Page{Number: 1, Limit: storage.DefaultPageLimit}
	details := map[string]string{}

	if v := q.Get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			details["page"] = "must be an integer of at least 1"
		} else {
			page.Number = n
		}
	}

	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > storage.MaxPageLimit {
			details["limit"] = "must be an integer between 1 and " + strconv.Itoa(storage.MaxPageLimit)
		} else {
			page.Limit = n
		}
	}

	return page, details
}

func parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id < 1 {
		writeError(w, r, http.StatusBadRequest, models.ErrorCodeBadRequest, "Invalid cryptid id",
			map[string]string{"id": "must be a positive integer"})
		return 0, false
	}
	return id, true
}

func notFoundHandler(w http.ResponseWriter, r *http.Request) {
	writeError(w, r, http.StatusNotFound, models.ErrorCodeEndpointNotFound, "Endpoint not found", nil)
}

func methodNotAllowedHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Allow", http.MethodGet)
	writeError(w, r, http.StatusMethodNotAllowed, models.ErrorCodeMethodNotAllowed, "Method not allowed", nil)
}

func writeJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	// Headers are already sent, so an encoding failure can only be logged.
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Error encoding JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, statusCode int, code, message string, details map[string]string) {
	errorResp := models.NewErrorResponse(message, code).WithRequestID(RequestIDFromContext(r.Context()))
	errorResp.Details = details
	writeJSON(w, statusCode, errorResp)
}
