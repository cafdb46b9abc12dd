package ingestion

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/synaptica-ai/icu-features/pkg/common/logger"
	"github.com/synaptica-ai/icu-features/pkg/common/models"
	"github.com/synaptica-ai/icu-features/pkg/events"
)

type HTTPHandler struct {
	service *Service
	maxBody int64
	columns events.Columns
}

func NewHTTPHandler(service *Service, maxBody int64) *HTTPHandler {
	return &HTTPHandler{service: service, maxBody: maxBody, columns: events.DefaultColumns()}
}

func (h *HTTPHandler) Register(router *mux.Router) {
	router.HandleFunc("/features", h.handleFeatures).Methods(http.MethodPost)
	router.HandleFunc("/features/{patient_id}", h.handleCachedFeatures).Methods(http.MethodGet)
	router.HandleFunc("/sequences", h.handleSequences).Methods(http.MethodPost)
	router.HandleFunc("/encoder/fit", h.handleFitEncoder).Methods(http.MethodPost)
	router.HandleFunc("/predict", h.handlePredict).Methods(http.MethodPost)
}

// decodeBatch accepts either a JSON batch or a CSV extract with the challenge
// header (Content-Type text/csv).
func (h *HTTPHandler) decodeBatch(w http.ResponseWriter, r *http.Request) (models.EventBatch, bool) {
	if h.maxBody > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBody)
	}
	if strings.HasPrefix(r.Header.Get("Content-Type"), "text/csv") {
		evts, err := events.ReadCSV(r.Body, h.columns)
		if err != nil {
			logger.Log.WithError(err).Warn("invalid csv payload")
			http.Error(w, err.Error(), http.StatusBadRequest)
			return models.EventBatch{}, false
		}
		return models.EventBatch{BatchID: r.URL.Query().Get("batch_id"), Events: evts}, true
	}

	var req RequestWrapper
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Log.WithError(err).Warn("invalid batch payload")
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return models.EventBatch{}, false
	}
	return req.ToModel(), true
}

func (h *HTTPHandler) handleFeatures(w http.ResponseWriter, r *http.Request) {
	batch, ok := h.decodeBatch(w, r)
	if !ok {
		return
	}
	resp, err := h.service.Features(r.Context(), batch)
	if err != nil {
		writeError(w, err, "failed to build features")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *HTTPHandler) handleCachedFeatures(w http.ResponseWriter, r *http.Request) {
	patientID := mux.Vars(r)["patient_id"]
	row, found, err := h.service.CachedFeatures(r.Context(), patientID)
	if err != nil {
		writeError(w, err, "failed to read cached features")
		return
	}
	if !found {
		http.Error(w, "features not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, row)
}

func (h *HTTPHandler) handleSequences(w http.ResponseWriter, r *http.Request) {
	batch, ok := h.decodeBatch(w, r)
	if !ok {
		return
	}
	resp, err := h.service.Sequences(r.Context(), batch)
	if err != nil {
		writeError(w, err, "failed to build sequences")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *HTTPHandler) handleFitEncoder(w http.ResponseWriter, r *http.Request) {
	batch, ok := h.decodeBatch(w, r)
	if !ok {
		return
	}
	names, err := h.service.FitEncoder(r.Context(), batch)
	if err != nil {
		writeError(w, err, "failed to fit encoder")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"feature_names": names})
}

func (h *HTTPHandler) handlePredict(w http.ResponseWriter, r *http.Request) {
	batch, ok := h.decodeBatch(w, r)
	if !ok {
		return
	}
	resp, err := h.service.Predict(r.Context(), batch)
	if err != nil {
		writeError(w, err, "failed to predict")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeError(w http.ResponseWriter, err error, msg string) {
	switch {
	case IsValidationError(err):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case IsRejected(err):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	case errors.Is(err, ErrUnavailable):
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
	default:
		logger.Log.WithError(err).Error(msg)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
