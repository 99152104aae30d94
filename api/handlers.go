// Package api exposes a single deltacast session over HTTP.
package api

import (
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"sync"
	"time"

	deltacast "github.com/LuisEduardoChavezLjx/ProyectoFinalSimulacionSifilis"
	"github.com/LuisEduardoChavezLjx/ProyectoFinalSimulacionSifilis/correlation"
	"github.com/LuisEduardoChavezLjx/ProyectoFinalSimulacionSifilis/dataset"
	"github.com/LuisEduardoChavezLjx/ProyectoFinalSimulacionSifilis/metrics"
	"github.com/LuisEduardoChavezLjx/ProyectoFinalSimulacionSifilis/reconstruct"
	"github.com/LuisEduardoChavezLjx/ProyectoFinalSimulacionSifilis/reference"
	"github.com/LuisEduardoChavezLjx/ProyectoFinalSimulacionSifilis/regress"
	"github.com/LuisEduardoChavezLjx/ProyectoFinalSimulacionSifilis/sheet"
	"github.com/LuisEduardoChavezLjx/ProyectoFinalSimulacionSifilis/store"
	"github.com/goccy/go-json"
	"github.com/gorilla/mux"
)

var ErrNoStore = errors.New("no dataset store configured")

// maxBodyBytes caps request bodies. Weekly datasets are tens of rows.
const maxBodyBytes = 4 << 20

const (
	contentTypeJSON = "application/json"
	contentTypeCSV  = "text/csv"
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// Handler serves the session API. The session is not safe for concurrent use so every handler
// holds mu while it touches it.
type Handler struct {
	mu      sync.Mutex
	session *deltacast.Session
	store   *store.DB
	logger  *slog.Logger
	metrics *metrics.Collector
}

// NewHandler creates a new session handler. db may be nil, in which case the dataset routes
// answer with an error.
func NewHandler(
	session *deltacast.Session,
	db *store.DB,
	logger *slog.Logger,
	metricsCollector *metrics.Collector,
) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		session: session,
		store:   db,
		logger:  logger,
		metrics: metricsCollector,
	}
}

// RegisterRoutes registers all session API routes
func (h *Handler) RegisterRoutes(router *mux.Router) {
	router.Use(h.instrument)

	router.HandleFunc("/health", h.HealthCheck).Methods(http.MethodGet)

	router.HandleFunc("/api/observations", h.GetObservations).Methods(http.MethodGet)
	router.HandleFunc("/api/observations", h.AddObservation).Methods(http.MethodPost)
	router.HandleFunc("/api/observations/{idx:[0-9]+}", h.EditObservation).Methods(http.MethodPut)
	router.HandleFunc("/api/observations/{idx:[0-9]+}", h.DeleteObservation).Methods(http.MethodDelete)

	router.HandleFunc("/api/model", h.GetModel).Methods(http.MethodGet)
	router.HandleFunc("/api/forecast", h.Forecast).Methods(http.MethodPost)
	router.HandleFunc("/api/correlation", h.GetCorrelation).Methods(http.MethodGet)
	router.HandleFunc("/api/plot", h.GetPlot).Methods(http.MethodGet)

	router.HandleFunc("/api/reference", h.GetReference).Methods(http.MethodGet)
	router.HandleFunc("/api/reference", h.LoadReference).Methods(http.MethodPost)
	router.HandleFunc("/api/reference", h.ClearReference).Methods(http.MethodDelete)

	router.HandleFunc("/api/import", h.Import).Methods(http.MethodPost)
	router.HandleFunc("/api/export", h.Export).Methods(http.MethodGet)

	router.HandleFunc("/api/datasets", h.ListDatasets).Methods(http.MethodGet)
	router.HandleFunc("/api/datasets/{name}", h.SaveDataset).Methods(http.MethodPost)
	router.HandleFunc("/api/datasets/{name}/load", h.LoadDataset).Methods(http.MethodPost)
	router.HandleFunc("/api/datasets/{name}", h.DeleteDataset).Methods(http.MethodDelete)
}

// HealthCheck handles GET /health
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	status := map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	h.sendJSON(w, status, http.StatusOK)
}

// GetObservations handles GET /api/observations
func (h *Handler) GetObservations(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sendJSON(w, h.observations(), http.StatusOK)
}

// AddObservation handles POST /api/observations
func (h *Handler) AddObservation(w http.ResponseWriter, r *http.Request) {
	var e dataset.Entry
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&e); err != nil {
		h.sendError(w, r, fmt.Errorf("invalid entry body, %w, %w", dataset.ErrMalformedInput, err))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.session.Add(e); err != nil {
		h.sendError(w, r, err)
		return
	}
	h.refitted()
	h.sendJSON(w, h.observations(), http.StatusCreated)
}

// EditObservation handles PUT /api/observations/{idx}
func (h *Handler) EditObservation(w http.ResponseWriter, r *http.Request) {
	idx, err := rowIndex(r)
	if err != nil {
		h.sendError(w, r, err)
		return
	}
	var e dataset.Entry
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&e); err != nil {
		h.sendError(w, r, fmt.Errorf("invalid entry body, %w, %w", dataset.ErrMalformedInput, err))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.session.Edit(idx, e); err != nil {
		h.sendError(w, r, err)
		return
	}
	h.refitted()
	h.sendJSON(w, h.observations(), http.StatusOK)
}

// DeleteObservation handles DELETE /api/observations/{idx}
func (h *Handler) DeleteObservation(w http.ResponseWriter, r *http.Request) {
	idx, err := rowIndex(r)
	if err != nil {
		h.sendError(w, r, err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.session.Delete(idx); err != nil {
		h.sendError(w, r, err)
		return
	}
	h.refitted()
	h.sendJSON(w, h.observations(), http.StatusOK)
}

// GetModel handles GET /api/model
func (h *Handler) GetModel(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()
	m, err := h.session.Model()
	if err != nil {
		h.sendError(w, r, err)
		return
	}
	h.sendJSON(w, m, http.StatusOK)
}

// Forecast handles POST /api/forecast
func (h *Handler) Forecast(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()
	f, err := h.session.PredictNext()
	if err != nil {
		h.sendError(w, r, err)
		return
	}
	if h.metrics != nil {
		h.metrics.RecordForecast(string(f.Source))
	}
	h.sendJSON(w, f, http.StatusOK)
}

// GetCorrelation handles GET /api/correlation
func (h *Handler) GetCorrelation(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()
	rep, err := h.session.Correlation()
	if err != nil {
		h.sendError(w, r, err)
		return
	}
	h.sendJSON(w, newCorrelationResponse(rep), http.StatusOK)
}

// GetPlot handles GET /api/plot
func (h *Handler) GetPlot(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.session.PlotFit(w); err != nil {
		w.Header().Del("Content-Type")
		h.sendError(w, r, err)
	}
}

// GetReference handles GET /api/reference
func (h *Handler) GetReference(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()
	ref := h.session.Reference()
	if ref == nil {
		h.sendJSON(w, ErrorResponse{
			Error:   http.StatusText(http.StatusNotFound),
			Message: "no reference model loaded",
			Code:    http.StatusNotFound,
		}, http.StatusNotFound)
		return
	}
	h.sendJSON(w, ref, http.StatusOK)
}

// LoadReference handles POST /api/reference. A JSON body is read as a saved model document and a
// csv or xlsx body as a dataset to fit. The label query parameter names where it came from.
func (h *Handler) LoadReference(w http.ResponseWriter, r *http.Request) {
	label := r.URL.Query().Get("label")
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var ref *reference.Reference
	var ds *dataset.Dataset
	var err error
	switch mediaType {
	case contentTypeJSON, "":
		ref, err = reference.Decode(body, label)
	case contentTypeCSV:
		ds, err = sheet.Read(body, sheet.FormatCSV)
	case contentTypeXLSX:
		ds, err = sheet.Read(body, sheet.FormatXLSX)
	default:
		err = fmt.Errorf("content type %q, %w", mediaType, sheet.ErrUnsupportedFormat)
	}
	if err != nil {
		h.sendError(w, r, err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if ds != nil {
		if err := h.session.LoadReference(ds, label); err != nil {
			h.sendError(w, r, err)
			return
		}
	} else {
		h.session.SetReference(ref)
	}
	h.sendJSON(w, h.session.Reference(), http.StatusOK)
}

// ClearReference handles DELETE /api/reference
func (h *Handler) ClearReference(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.session.ClearReference()
	w.WriteHeader(http.StatusNoContent)
}

// Import handles POST /api/import?format=csv|xlsx, replacing the working dataset.
func (h *Handler) Import(w http.ResponseWriter, r *http.Request) {
	format, err := queryFormat(r)
	if err != nil {
		h.sendError(w, r, err)
		return
	}
	ds, err := sheet.Read(http.MaxBytesReader(w, r.Body, maxBodyBytes), format)
	if err != nil {
		h.sendError(w, r, err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.session.Load(ds); err != nil {
		h.sendError(w, r, err)
		return
	}
	h.refitted()
	h.sendJSON(w, h.observations(), http.StatusOK)
}

// Export handles GET /api/export?format=csv|xlsx
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	format, err := queryFormat(r)
	if err != nil {
		h.sendError(w, r, err)
		return
	}

	h.mu.Lock()
	ds := h.session.Dataset()
	h.mu.Unlock()

	contentType := contentTypeCSV
	if format == sheet.FormatXLSX {
		contentType = contentTypeXLSX
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=deltacast.%s", format))
	if err := sheet.Write(w, ds, format); err != nil {
		h.logger.Error("export failed", "format", format, "error", err)
	}
}

// ListDatasets handles GET /api/datasets
func (h *Handler) ListDatasets(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		h.sendError(w, r, ErrNoStore)
		return
	}
	list, err := h.store.List(r.Context())
	if err != nil {
		h.sendError(w, r, err)
		return
	}
	if list == nil {
		list = []store.Summary{}
	}
	h.sendJSON(w, list, http.StatusOK)
}

// SaveDataset handles POST /api/datasets/{name}
func (h *Handler) SaveDataset(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		h.sendError(w, r, ErrNoStore)
		return
	}
	name := mux.Vars(r)["name"]

	h.mu.Lock()
	ds := h.session.Dataset()
	h.mu.Unlock()

	if err := h.store.Save(r.Context(), name, ds); err != nil {
		h.sendError(w, r, err)
		return
	}
	h.logger.Info("dataset saved", "name", name, "observations", ds.Len())
	w.WriteHeader(http.StatusNoContent)
}

// LoadDataset handles POST /api/datasets/{name}/load
func (h *Handler) LoadDataset(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		h.sendError(w, r, ErrNoStore)
		return
	}
	name := mux.Vars(r)["name"]
	ds, err := h.store.Load(r.Context(), name)
	if err != nil {
		h.sendError(w, r, err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.session.Load(ds); err != nil {
		h.sendError(w, r, err)
		return
	}
	h.refitted()
	h.sendJSON(w, h.observations(), http.StatusOK)
}

// DeleteDataset handles DELETE /api/datasets/{name}
func (h *Handler) DeleteDataset(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		h.sendError(w, r, ErrNoStore)
		return
	}
	if err := h.store.Delete(r.Context(), mux.Vars(r)["name"]); err != nil {
		h.sendError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// observations must be called with mu held.
func (h *Handler) observations() ObservationsResponse {
	return ObservationsResponse{
		Rows:       newRows(h.session.Dataset().Rows()),
		Ready:      h.session.Ready(),
		Suggestion: h.session.Suggest(),
	}
}

// refitted must be called with mu held after any dataset change.
func (h *Handler) refitted() {
	if h.metrics != nil {
		h.metrics.RecordRefit(h.session.Ready(), h.session.Dataset().Len())
	}
}

func rowIndex(r *http.Request) (int, error) {
	idx, err := strconv.Atoi(mux.Vars(r)["idx"])
	if err != nil {
		return 0, fmt.Errorf("row %q, %w", mux.Vars(r)["idx"], dataset.ErrRowOutOfBounds)
	}
	return idx, nil
}

func queryFormat(r *http.Request) (sheet.Format, error) {
	switch f := sheet.Format(r.URL.Query().Get("format")); f {
	case sheet.FormatCSV, "":
		return sheet.FormatCSV, nil
	case sheet.FormatXLSX:
		return f, nil
	default:
		return "", fmt.Errorf("%q, %w", f, sheet.ErrUnsupportedFormat)
	}
}

// statusCode maps domain errors onto http status codes.
func statusCode(err error) int {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, dataset.ErrMalformedInput),
		errors.Is(err, sheet.ErrUnsupportedFormat),
		errors.Is(err, sheet.ErrNoHeader),
		errors.Is(err, reference.ErrNoLabel),
		errors.Is(err, store.ErrEmptyName):
		return http.StatusBadRequest
	case errors.Is(err, dataset.ErrRowOutOfBounds),
		errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, regress.ErrInsufficientData),
		errors.Is(err, regress.ErrDegenerateFit),
		errors.Is(err, reconstruct.ErrNoModel),
		errors.Is(err, reference.ErrInsufficientReference),
		errors.Is(err, correlation.ErrNoRowsInRange),
		errors.Is(err, correlation.ErrDegenerateFit),
		errors.Is(err, deltacast.ErrNothingToPlot):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrNoStore):
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

// sendJSON sends a JSON response. The body is encoded before the status is written so an encoding
// failure still reaches the client as a 500.
func (h *Handler) sendJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	body, err := json.Marshal(data)
	if err != nil {
		h.logger.Error("encode response", "error", err)
		statusCode = http.StatusInternalServerError
		body, _ = json.Marshal(ErrorResponse{
			Error:   http.StatusText(statusCode),
			Message: "unable to encode response",
			Code:    statusCode,
		})
	}
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(statusCode)
	if _, err := w.Write(append(body, '\n')); err != nil {
		h.logger.Error("write response", "error", err)
	}
}

// sendError sends an error response
func (h *Handler) sendError(w http.ResponseWriter, r *http.Request, err error) {
	code := statusCode(err)
	if code == http.StatusInternalServerError {
		h.logger.Error("request failed", "path", r.URL.Path, "method", r.Method, "error", err)
	} else {
		h.logger.Debug("request rejected", "path", r.URL.Path, "method", r.Method, "error", err)
	}
	if h.metrics != nil {
		h.metrics.RecordAPIError(errorType(code), routeTemplate(r))
	}

	response := ErrorResponse{
		Error:   http.StatusText(code),
		Message: err.Error(),
		Code:    code,
	}
	h.sendJSON(w, response, code)
}

func errorType(code int) string {
	switch code {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusUnprocessableEntity:
		return "insufficient_data"
	case http.StatusNotImplemented:
		return "not_configured"
	case http.StatusRequestEntityTooLarge:
		return "too_large"
	default:
		return "internal_error"
	}
}
