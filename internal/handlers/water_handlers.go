package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"water-quality-platform/internal/models"
	"water-quality-platform/internal/quality"
	"water-quality-platform/internal/services"
	"water-quality-platform/pkg/logging"
	"water-quality-platform/pkg/metrics"
)

// Pagination limits for list endpoints
const (
	defaultPageLimit = 100
	maxPageLimit     = 1000
)

// WaterHandler handles water quality API endpoints
type WaterHandler struct {
	datasets  *services.DatasetService
	dashboard *services.DashboardService
	export    *services.ExportService
	logger    *logging.StructuredLogger
	metrics   *metrics.Collector
}

// NewWaterHandler creates a new water quality handler
func NewWaterHandler(
	datasets *services.DatasetService,
	dashboard *services.DashboardService,
	export *services.ExportService,
	logger *logging.StructuredLogger,
	metricsCollector *metrics.Collector,
) *WaterHandler {
	return &WaterHandler{
		datasets:  datasets,
		dashboard: dashboard,
		export:    export,
		logger:    logger,
		metrics:   metricsCollector,
	}
}

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// PaginatedResponse represents a paginated API response
type PaginatedResponse struct {
	Data       interface{} `json:"data"`
	Total      int         `json:"total"`
	Page       int         `json:"page"`
	Limit      int         `json:"limit"`
	TotalPages int         `json:"total_pages"`
}

// ClassifyResponse is the result of classifying a single value
type ClassifyResponse struct {
	Parameter string         `json:"parameter"`
	Value     string         `json:"value"`
	Status    quality.Status `json:"status"`
	Color     string         `json:"color"`
}

// IndexResponse is the quality index of a set of readings
type IndexResponse struct {
	Index  float64        `json:"index"`
	Rating quality.Rating `json:"rating"`
}

// GetStations handles GET /api/stations
func (h *WaterHandler) GetStations(w http.ResponseWriter, r *http.Request) {
	h.metrics.RecordAPIRequest("/api/stations", "GET", "200")
	h.sendJSON(w, h.datasets.Stations(), http.StatusOK)
}

// GetReadings handles GET /api/readings
func (h *WaterHandler) GetReadings(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/api/readings"

	ds, ok := h.filteredDataset(w, r, endpoint)
	if !ok {
		return
	}

	page, limit := parsePagination(r)
	total := len(ds)
	offset := (page - 1) * limit
	if offset > total {
		offset = total
	}
	end := offset + limit
	if end > total {
		end = total
	}

	response := PaginatedResponse{
		Data:       ds[offset:end],
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: (total + limit - 1) / limit,
	}

	h.metrics.RecordAPIRequest(endpoint, "GET", "200")
	h.sendJSON(w, response, http.StatusOK)
}

// ExportReadings handles GET /api/readings/export
func (h *WaterHandler) ExportReadings(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/api/readings/export"
	ctx := r.Context()

	ds, ok := h.filteredDataset(w, r, endpoint)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+services.ExportFilename(time.Now())+`"`)
	w.WriteHeader(http.StatusOK)

	if _, err := h.export.WriteCSV(ctx, w, ds); err != nil {
		// Headers are already sent; the client sees a truncated file.
		h.logger.Error(ctx, "[API_EXPORT_ERROR] Failed to stream export", logging.Fields{
			"readings": len(ds),
		}, err)
		h.metrics.RecordAPIError("stream_error", endpoint)
		return
	}

	h.metrics.RecordAPIRequest(endpoint, "GET", "200")
}

// GetKPIs handles GET /api/dashboard/kpis
func (h *WaterHandler) GetKPIs(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/api/dashboard/kpis"

	ds, ok := h.filteredDataset(w, r, endpoint)
	if !ok {
		return
	}

	h.metrics.RecordAPIRequest(endpoint, "GET", "200")
	h.sendJSON(w, h.dashboard.KPIs(r.Context(), ds), http.StatusOK)
}

// GetAlerts handles GET /api/dashboard/alerts
func (h *WaterHandler) GetAlerts(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/api/dashboard/alerts"

	ds, ok := h.filteredDataset(w, r, endpoint)
	if !ok {
		return
	}

	h.metrics.RecordAPIRequest(endpoint, "GET", "200")
	h.sendJSON(w, h.dashboard.Alerts(r.Context(), ds), http.StatusOK)
}

// GetStationDetail handles GET /api/dashboard/stations/{station}
func (h *WaterHandler) GetStationDetail(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/api/dashboard/stations/{station}"

	ds, ok := h.filteredDataset(w, r, endpoint)
	if !ok {
		return
	}

	station := mux.Vars(r)["station"]
	detail, err := h.dashboard.StationDetail(r.Context(), ds, station)
	if err != nil {
		h.handleError(w, r, endpoint, err)
		return
	}

	h.metrics.RecordAPIRequest(endpoint, "GET", "200")
	h.sendJSON(w, detail, http.StatusOK)
}

// GetCorrelation handles GET /api/dashboard/correlation
func (h *WaterHandler) GetCorrelation(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/api/dashboard/correlation"

	ds, ok := h.filteredDataset(w, r, endpoint)
	if !ok {
		return
	}

	params := r.URL.Query()["parameter"]
	if len(params) == 0 {
		params = []string{
			models.ParamPH,
			models.ParamTurbidity,
			models.ParamDissolvedOxygen,
			models.ParamTemperature,
		}
	}

	matrix, err := h.dashboard.Correlation(r.Context(), ds, params)
	if err != nil {
		h.handleError(w, r, endpoint, err)
		return
	}

	h.metrics.RecordAPIRequest(endpoint, "GET", "200")
	h.sendJSON(w, matrix, http.StatusOK)
}

// ClassifyValue handles GET /api/quality/classify
func (h *WaterHandler) ClassifyValue(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/api/quality/classify"

	parameter := r.URL.Query().Get("parameter")
	valueStr := r.URL.Query().Get("value")
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		h.handleError(w, r, endpoint, &models.ValidationError{
			Field:   "value",
			Value:   valueStr,
			Message: "expected a number",
		})
		return
	}

	status := quality.Classify(value, parameter)
	response := ClassifyResponse{
		Parameter: parameter,
		Value:     valueStr,
		Status:    status,
		Color:     quality.ColorFor(status),
	}

	h.metrics.RecordAPIRequest(endpoint, "GET", "200")
	h.sendJSON(w, response, http.StatusOK)
}

// ScoreIndex handles POST /api/quality/index
func (h *WaterHandler) ScoreIndex(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/api/quality/index"

	var readings map[string]float64
	if err := json.NewDecoder(r.Body).Decode(&readings); err != nil {
		h.handleError(w, r, endpoint, &models.ValidationError{
			Field:   "body",
			Value:   "",
			Message: "expected a JSON object of parameter values",
		})
		return
	}

	index := quality.Index(readings)
	response := IndexResponse{
		Index:  index,
		Rating: quality.Rate(index),
	}

	h.metrics.RecordAPIRequest(endpoint, "POST", "200")
	h.sendJSON(w, response, http.StatusOK)
}

// Refresh handles POST /api/refresh
func (h *WaterHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/api/refresh"
	ctx := r.Context()

	if err := h.datasets.Refresh(ctx, "api"); err != nil {
		h.handleError(w, r, endpoint, err)
		return
	}

	status := map[string]string{
		"status":    "refreshed",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}

	h.metrics.RecordAPIRequest(endpoint, "POST", "200")
	h.sendJSON(w, status, http.StatusOK)
}

// HealthCheck handles GET /health
func (h *WaterHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	status := map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}

	h.logger.Debug(ctx, "[HEALTH_CHECK] Health check requested", logging.Fields{})
	h.sendJSON(w, status, http.StatusOK)
}

// filteredDataset loads the served dataset and applies the request's
// filter. On failure it writes the error response and returns false.
func (h *WaterHandler) filteredDataset(w http.ResponseWriter, r *http.Request, endpoint string) (models.Dataset, bool) {
	ctx := r.Context()

	filter, err := parseFilter(r)
	if err != nil {
		h.handleError(w, r, endpoint, err)
		return nil, false
	}

	ds, err := h.datasets.Dataset(ctx)
	if err != nil {
		h.handleError(w, r, endpoint, err)
		return nil, false
	}

	ds, err = h.dashboard.Filter(ctx, ds, filter)
	if err != nil {
		h.handleError(w, r, endpoint, err)
		return nil, false
	}
	return ds, true
}

func parseFilter(r *http.Request) (services.Filter, error) {
	q := r.URL.Query()
	filter := services.Filter{
		Range:    services.TimeRange(strings.ToLower(q.Get("range"))),
		Stations: q["station"],
	}

	for _, bound := range []struct {
		name string
		dst  *time.Time
	}{
		{"start", &filter.Start},
		{"end", &filter.End},
	} {
		s := q.Get(bound.name)
		if s == "" {
			continue
		}
		d, err := time.Parse(services.DateLayout, s)
		if err != nil {
			return filter, &models.ValidationError{
				Field:   bound.name,
				Value:   s,
				Message: "invalid date format, expected YYYY-MM-DD",
			}
		}
		*bound.dst = d
	}

	return filter, nil
}

func parsePagination(r *http.Request) (int, int) {
	page := 1
	limit := defaultPageLimit

	if pageStr := r.URL.Query().Get("page"); pageStr != "" {
		if p, err := strconv.Atoi(pageStr); err == nil && p > 0 {
			page = p
		}
	}

	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l <= maxPageLimit {
			limit = l
		}
	}

	return page, limit
}

// handleError maps service errors to HTTP status codes
func (h *WaterHandler) handleError(w http.ResponseWriter, r *http.Request, endpoint string, err error) {
	var notFound *models.NotFoundError

	switch {
	case errors.Is(err, models.ErrInvalidArgument):
		h.metrics.RecordAPIError("invalid_argument", endpoint)
		h.sendError(w, r, endpoint, err.Error(), http.StatusBadRequest)
	case errors.As(err, &notFound):
		h.metrics.RecordAPIError("not_found", endpoint)
		h.sendError(w, r, endpoint, err.Error(), http.StatusNotFound)
	default:
		h.logger.Error(r.Context(), "[API_ERROR] Request failed", logging.Fields{
			"endpoint": endpoint,
		}, err)
		h.metrics.RecordAPIError("internal_error", endpoint)
		h.sendError(w, r, endpoint, "internal server error", http.StatusInternalServerError)
	}
}

// sendJSON sends a JSON response
func (h *WaterHandler) sendJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// sendError sends an error response. endpoint is the route template, not the raw path.
func (h *WaterHandler) sendError(w http.ResponseWriter, r *http.Request, endpoint, message string, statusCode int) {
	h.metrics.RecordAPIRequest(endpoint, r.Method, strconv.Itoa(statusCode))

	response := ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
		Code:    statusCode,
	}

	h.sendJSON(w, response, statusCode)
}

// RegisterRoutes registers all water quality API routes
func (h *WaterHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/stations", h.GetStations).Methods("GET")
	router.HandleFunc("/api/readings", h.GetReadings).Methods("GET")
	router.HandleFunc("/api/readings/export", h.ExportReadings).Methods("GET")
	router.HandleFunc("/api/dashboard/kpis", h.GetKPIs).Methods("GET")
	router.HandleFunc("/api/dashboard/alerts", h.GetAlerts).Methods("GET")
	router.HandleFunc("/api/dashboard/stations/{station}", h.GetStationDetail).Methods("GET")
	router.HandleFunc("/api/dashboard/correlation", h.GetCorrelation).Methods("GET")
	router.HandleFunc("/api/quality/classify", h.ClassifyValue).Methods("GET")
	router.HandleFunc("/api/quality/index", h.ScoreIndex).Methods("POST")
	router.HandleFunc("/api/refresh", h.Refresh).Methods("POST")
	router.HandleFunc("/api/docs", SwaggerUI).Methods("GET")
	router.HandleFunc("/api/docs/openapi.json", OpenAPISpec).Methods("GET")
	router.HandleFunc("/health", h.HealthCheck).Methods("GET")
}
