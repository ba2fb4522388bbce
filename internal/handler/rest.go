package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/vyrodovalexey/beerstock/internal/model"
	"github.com/vyrodovalexey/beerstock/internal/service"
)

// Version is the application version.
const Version = "1.0.0"

// BeersPath is the collection path of the beer API.
const BeersPath = "/api/v1/beers"

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// RESTHandler handles REST API requests for beers.
type RESTHandler struct {
	service BeerService
	pinger  Pinger
	logger  *zap.Logger
}

// NewRESTHandler creates a new RESTHandler instance.
func NewRESTHandler(svc BeerService, pinger Pinger, logger *zap.Logger) *RESTHandler {
	return &RESTHandler{
		service: svc,
		pinger:  pinger,
		logger:  logger,
	}
}

// RegisterRoutes registers the REST API routes with the router.
func (h *RESTHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/health", h.HealthCheck).Methods(http.MethodGet)
	router.HandleFunc("/ready", h.ReadyCheck).Methods(http.MethodGet)
	router.HandleFunc(BeersPath, h.ListBeers).Methods(http.MethodGet)
	router.HandleFunc(BeersPath, h.CreateBeer).Methods(http.MethodPost)
	router.HandleFunc(BeersPath+"/{name}", h.FindByName).Methods(http.MethodGet)
	router.HandleFunc(BeersPath+"/{id}", h.DeleteByID).Methods(http.MethodDelete)
	router.HandleFunc(BeersPath+"/{id}/increment", h.Increment).Methods(http.MethodPatch)
	router.HandleFunc(BeersPath+"/{id}/decrement", h.Decrement).Methods(http.MethodPatch)
}

// HealthCheck handles GET /health requests.
func (h *RESTHandler) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	response := HealthResponse{
		Status:  "healthy",
		Version: Version,
	}
	h.writeJSON(w, http.StatusOK, model.NewSuccessResponse(response))
}

// ReadyCheck handles GET /ready requests by pinging the store.
func (h *RESTHandler) ReadyCheck(w http.ResponseWriter, r *http.Request) {
	if h.pinger != nil {
		if err := h.pinger.Ping(r.Context()); err != nil {
			h.logger.Warn("readiness check failed", zap.Error(err))
			h.writeError(w, http.StatusServiceUnavailable, "store unavailable")
			return
		}
	}
	h.writeJSON(w, http.StatusOK, model.NewSuccessResponse(ReadyResponse{Status: "ready"}))
}

// ListBeers handles GET /api/v1/beers requests.
func (h *RESTHandler) ListBeers(w http.ResponseWriter, r *http.Request) {
	beers, err := h.service.ListAll(r.Context())
	if err != nil {
		h.handleServiceError(w, err, "list beers")
		return
	}

	h.writeJSON(w, http.StatusOK, model.NewSuccessResponse(beers))
}

// CreateBeer handles POST /api/v1/beers requests.
func (h *RESTHandler) CreateBeer(w http.ResponseWriter, r *http.Request) {
	var input model.Beer
	if !h.decodeBody(w, r, &input) {
		return
	}

	if err := input.Validate(); err != nil {
		h.logger.Warn("validation failed", zap.Error(err))
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	beer, err := h.service.Create(r.Context(), input)
	if err != nil {
		h.handleServiceError(w, err, "create beer")
		return
	}

	h.writeJSON(w, http.StatusCreated, model.NewSuccessResponse(beer))
}

// FindByName handles GET /api/v1/beers/{name} requests.
func (h *RESTHandler) FindByName(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	beer, err := h.service.FindByName(r.Context(), name)
	if err != nil {
		h.handleServiceError(w, err, "find beer")
		return
	}

	h.writeJSON(w, http.StatusOK, model.NewSuccessResponse(beer))
}

// DeleteByID handles DELETE /api/v1/beers/{id} requests.
func (h *RESTHandler) DeleteByID(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteByID(r.Context(), id); err != nil {
		h.handleServiceError(w, err, "delete beer")
		return
	}

	h.writeJSON(w, http.StatusNoContent, nil)
}

// Increment handles PATCH /api/v1/beers/{id}/increment requests.
func (h *RESTHandler) Increment(w http.ResponseWriter, r *http.Request) {
	id, amount, ok := h.quantityChange(w, r)
	if !ok {
		return
	}

	beer, err := h.service.Increment(r.Context(), id, amount)
	if err != nil {
		h.handleServiceError(w, err, "increment stock")
		return
	}

	h.writeJSON(w, http.StatusOK, model.NewSuccessResponse(beer))
}

// Decrement handles PATCH /api/v1/beers/{id}/decrement requests.
func (h *RESTHandler) Decrement(w http.ResponseWriter, r *http.Request) {
	id, amount, ok := h.quantityChange(w, r)
	if !ok {
		return
	}

	beer, err := h.service.Decrement(r.Context(), id, amount)
	if err != nil {
		h.handleServiceError(w, err, "decrement stock")
		return
	}

	h.writeJSON(w, http.StatusOK, model.NewSuccessResponse(beer))
}

// quantityChange parses the path ID and the validated quantity body.
func (h *RESTHandler) quantityChange(w http.ResponseWriter, r *http.Request) (int64, int, bool) {
	id, ok := h.pathID(w, r)
	if !ok {
		return 0, 0, false
	}

	var input model.QuantityRequest
	if !h.decodeBody(w, r, &input) {
		return 0, 0, false
	}

	if err := input.Validate(); err != nil {
		h.logger.Warn("validation failed", zap.Error(err))
		h.writeError(w, http.StatusBadRequest, err.Error())
		return 0, 0, false
	}

	return id, input.Quantity, true
}

// pathID parses the {id} route variable.
func (h *RESTHandler) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := mux.Vars(r)["id"]
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		h.logger.Warn("invalid beer id", zap.String("id", raw), zap.Error(err))
		h.writeError(w, http.StatusBadRequest, "invalid beer ID")
		return 0, false
	}
	return id, true
}

// decodeBody decodes a JSON request body into dst.
func (h *RESTHandler) decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.logger.Warn("invalid request body", zap.Error(err))
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// handleServiceError maps service errors to HTTP responses.
func (h *RESTHandler) handleServiceError(w http.ResponseWriter, err error, operation string) {
	var domainErr *service.Error
	if !errors.As(err, &domainErr) {
		h.logger.Error("service operation failed", zap.String("operation", operation), zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	switch domainErr.Kind {
	case service.KindNotFound:
		h.writeError(w, http.StatusNotFound, domainErr.Error())
	case service.KindAlreadyRegistered, service.KindStockExceeded, service.KindStockLessThanZero:
		h.writeError(w, http.StatusBadRequest, domainErr.Error())
	default:
		h.writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// writeJSON writes a JSON response with the given status code.
func (h *RESTHandler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if data == nil {
		return
	}

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", zap.Error(err))
	}
}

// writeError writes an error response with the given status code and message.
func (h *RESTHandler) writeError(w http.ResponseWriter, status int, message string) {
	response := model.ErrorResponse{
		Code:    status,
		Message: message,
	}
	h.writeJSON(w, status, response)
}
