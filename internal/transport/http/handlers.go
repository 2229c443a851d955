package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/joshdurbin/hashlink/internal/domain"
	"github.com/joshdurbin/hashlink/internal/linkurl"
	"github.com/joshdurbin/hashlink/internal/service"
)

// maxHashAttempts bounds how often a colliding hash is regenerated
const maxHashAttempts = 3

// Response messages that are part of the public contract
const (
	msgURLRequired = "url field is required"
	msgURLInvalid  = "url field is not a valid URL"
	msgUnexpected  = "Unexpected Error, please try again"
	msgInvalidBody = "invalid request body: "
)

// Accept values that select a non-redirect representation
const (
	acceptText = "text/plain"
	acceptJSON = "application/json"

	textContentType = "text/plain; charset=utf-8"
	jsonContentType = "application/json; charset=utf-8"
)

// Handler holds the HTTP handlers for the link service
type Handler struct {
	links     service.LinkService
	serverURL string
	logger    *slog.Logger
	validate  *validator.Validate
}

// NewHandler creates a new HTTP handler. serverURL is the public base URL
// used in response bodies.
func NewHandler(links service.LinkService, serverURL string, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		links:     links,
		serverURL: strings.TrimRight(serverURL, "/"),
		logger:    logger,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Resolve handles GET /{hash}. The Accept header selects the representation:
// text/plain returns the URL, application/json the link record and anything
// else a redirect.
func (h *Handler) Resolve(w http.ResponseWriter, r *http.Request) {
	hash := r.PathValue("hash")

	link, err := h.links.Lookup(r.Context(), hash)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeText(w, http.StatusNotFound, hash+" not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "failed to resolve link",
			"request_id", GetRequestID(r.Context()),
			"hash", hash,
			"persistence", domain.IsPersistence(err),
			"error", err,
		)
		writeText(w, http.StatusInternalServerError, msgUnexpected)
		return
	}

	switch r.Header.Get("Accept") {
	case acceptText:
		writeText(w, http.StatusOK, link.URL)
	case acceptJSON:
		writeJSON(w, http.StatusOK, link)
	default:
		http.Redirect(w, r, link.URL, http.StatusFound)
	}
}

// Create handles POST /
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	req, err := DecodeJSON[domain.CreateLinkRequest](r)
	if err != nil {
		if errors.Is(err, ErrEmptyBody) {
			writeError(w, http.StatusBadRequest, msgURLRequired)
			return
		}
		writeError(w, http.StatusBadRequest, msgInvalidBody+err.Error())
		return
	}

	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, msgURLRequired)
		return
	}

	if !linkurl.IsValid(req.URL) {
		writeError(w, http.StatusBadRequest, msgURLInvalid)
		return
	}

	result, err := h.shorten(r, req.URL)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidURL) {
			writeError(w, http.StatusBadRequest, msgURLInvalid)
			return
		}
		h.logger.ErrorContext(r.Context(), "failed to shorten link",
			"request_id", GetRequestID(r.Context()),
			"url", req.URL,
			"persistence", domain.IsPersistence(err),
			"error", err,
		)
		writeError(w, http.StatusInternalServerError, msgUnexpected)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// shorten stores url under a fresh hash, drawing a new one when the store
// reports the hash as taken
func (h *Handler) shorten(r *http.Request, url string) (*domain.ShortenResult, error) {
	var err error
	for attempt := 1; attempt <= maxHashAttempts; attempt++ {
		var hash string
		hash, err = h.links.GenerateHash(r.Context(), url)
		if err != nil {
			return nil, err
		}

		var result *domain.ShortenResult
		result, err = h.links.Shorten(r.Context(), url, hash)
		if err == nil {
			return result, nil
		}
		if !errors.Is(err, domain.ErrHashConflict) {
			return nil, err
		}

		h.logger.WarnContext(r.Context(), "hash already in use, regenerating",
			"request_id", GetRequestID(r.Context()),
			"hash", hash,
			"attempt", attempt,
		)
	}
	return nil, err
}

// Remove handles DELETE /{hash}/remove/{removeToken}
func (h *Handler) Remove(w http.ResponseWriter, r *http.Request) {
	hash := r.PathValue("hash")
	removeToken := r.PathValue("removeToken")

	err := h.links.Remove(r.Context(), hash, removeToken)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, h.serverURL+r.URL.RequestURI()+" not found or the hash is incorrect")
			return
		}
		h.logger.ErrorContext(r.Context(), "failed to remove link",
			"request_id", GetRequestID(r.Context()),
			"hash", hash,
			"persistence", domain.IsPersistence(err),
			"error", err,
		)
		writeError(w, http.StatusInternalServerError, msgUnexpected)
		return
	}

	writeJSON(w, http.StatusOK, domain.RemoveResponse{Result: h.serverURL + "/" + hash + " deleted"})
}

// Health handles GET /x/health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.links.Ping(r.Context()); err != nil {
		h.logger.WarnContext(r.Context(), "health check failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", textContentType)
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", jsonContentType)
	w.WriteHeader(status)

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, domain.ErrorResponse{Error: message})
}
