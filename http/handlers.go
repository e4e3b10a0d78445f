package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"strokerisk/logging"
	"strokerisk/ml"
	"strokerisk/monitoring"
	"strokerisk/stroke"
)

// Predictor is the part of stroke.Predictor the handlers need.
type Predictor interface {
	Predict(ctx context.Context, payload stroke.Payload) (stroke.Prediction, error)
	Artifacts() *stroke.Artifacts
}

type Handler struct {
	predictor Predictor
	metrics   *monitoring.MetricsCollector
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error         string   `json:"error"`
	MissingFields []string `json:"missing_fields,omitempty"`
	Column        string   `json:"column,omitempty"`
	NumCols       []string `json:"num_cols,omitempty"`
	Details       string   `json:"details,omitempty"`
}

type ModelInfo struct {
	ModelType    string              `json:"model_type"`
	Classes      []int               `json:"classes"`
	NumFeatures  int                 `json:"n_features"`
	NumTrees     int                 `json:"n_trees,omitempty"`
	FeatureOrder []string            `json:"feature_order"`
	Categories   map[string][]string `json:"categories"`
	LoadedAt     time.Time           `json:"loaded_at"`
}

func NewHandler(predictor Predictor, metrics *monitoring.MetricsCollector) *Handler {
	metrics.SetHelp("predict_requests_total", "Prediction requests by outcome")
	metrics.SetHelp("predict_duration_seconds", "Time spent handling /predict")
	return &Handler{predictor: predictor, metrics: metrics}
}

func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", handleHealth)
	mux.HandleFunc("POST /predict", h.handlePredict)
	mux.HandleFunc("GET /api/model", h.handleModel)
	mux.HandleFunc("GET /metrics", h.handleMetrics)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (h *Handler) handlePredict(w http.ResponseWriter, r *http.Request) {
	start := GetStartTime(r.Context())
	if start.IsZero() {
		start = time.Now()
	}
	logger := logging.FromContext(r.Context())

	outcome := "ok"
	defer func() {
		h.metrics.IncrCounter("predict_requests_total", map[string]string{"outcome": outcome})
		h.metrics.RecordHistogram("predict_duration_seconds", time.Since(start).Seconds(), nil, monitoring.DefaultLatencyBuckets)
	}()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			outcome = "too_large"
			writeJSON(w, http.StatusRequestEntityTooLarge, ErrorResponse{
				Error:   "Payload too large",
				Details: fmt.Sprintf("limit is %d bytes", tooLarge.Limit),
			})
			return
		}
		outcome = "invalid_payload"
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "Invalid or empty JSON payload"})
		return
	}
	logger.Debug("received payload", zap.ByteString("body", body))

	payload, err := stroke.ParsePayload(body)
	if err != nil {
		outcome = writeError(w, logger, err)
		return
	}
	prediction, err := h.predictor.Predict(r.Context(), payload)
	if err != nil {
		outcome = writeError(w, logger, err)
		return
	}

	logger.Info("prediction",
		zap.Float64("no_stroke_probability", prediction.NoStroke),
		zap.Float64("stroke_probability", prediction.Stroke))
	writeJSON(w, http.StatusOK, prediction)
}

func writeError(w http.ResponseWriter, logger *zap.Logger, err error) string {
	status, resp, outcome := errorResponse(err)
	if status >= http.StatusInternalServerError {
		logger.Error("prediction failed", zap.Error(err))
	} else {
		logger.Warn("rejected payload", zap.String("outcome", outcome), zap.Error(err))
	}
	writeJSON(w, status, resp)
	return outcome
}

// errorResponse maps a validation, transformation or inference error to a
// status code, body and metrics outcome.
func errorResponse(err error) (int, ErrorResponse, string) {
	var (
		missing *stroke.MissingFieldsError
		encErr  *stroke.EncodingError
		numErr  *stroke.NumericError
		predErr *stroke.PredictionError
	)
	switch {
	case errors.Is(err, stroke.ErrInvalidPayload):
		return http.StatusBadRequest, ErrorResponse{Error: "Invalid or empty JSON payload"}, "invalid_payload"
	case errors.As(err, &missing):
		return http.StatusUnprocessableEntity, ErrorResponse{
			Error:         "Missing fields in payload",
			MissingFields: missing.Fields,
		}, "missing_fields"
	case errors.As(err, &encErr):
		return http.StatusUnprocessableEntity, ErrorResponse{
			Error:   fmt.Sprintf("Error encoding %q", encErr.Column),
			Column:  encErr.Column,
			Details: encErr.Err.Error(),
		}, "encoding_error"
	case errors.As(err, &numErr):
		return http.StatusUnprocessableEntity, ErrorResponse{
			Error:   "Numeric features must be convertible to float",
			Column:  numErr.Column,
			NumCols: stroke.NumericColumns(),
			Details: numErr.Err.Error(),
		}, "numeric_error"
	case errors.As(err, &predErr):
		return http.StatusInternalServerError, ErrorResponse{Error: "Prediction error", Details: predErr.Err.Error()}, "prediction_error"
	default:
		return http.StatusInternalServerError, ErrorResponse{Error: "Prediction error", Details: err.Error()}, "prediction_error"
	}
}

func (h *Handler) handleModel(w http.ResponseWriter, r *http.Request) {
	artifacts := h.predictor.Artifacts()
	info := ModelInfo{
		ModelType:    artifacts.ModelType,
		Classes:      artifacts.Model.Classes(),
		NumFeatures:  artifacts.Model.NumFeatures(),
		FeatureOrder: stroke.FeatureOrder(),
		Categories:   make(map[string][]string, len(artifacts.Encoders)),
		LoadedAt:     artifacts.LoadedAt,
	}
	if forest, ok := artifacts.Model.(*ml.RandomForest); ok {
		info.NumTrees = forest.NumTrees()
	}
	for _, column := range stroke.CategoricalColumns() {
		info.Categories[column] = artifacts.Encoders[column].Classes()
	}
	writeJSON(w, http.StatusOK, info)
}

func (h *Handler) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	io.WriteString(w, h.metrics.ExportPrometheus())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
