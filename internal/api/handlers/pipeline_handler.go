package handlers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"fraud-detector/internal/api/middlew"
	"fraud-detector/internal/custom_err"
	"fraud-detector/internal/models"
	"fraud-detector/internal/service"
	"fraud-detector/pkg/response"
)

const maxIngestBody = 10 << 20

// PipelineHandler exposes the ingestion pipeline over HTTP. Triggered runs
// outlive their request and are stopped between transactions on Shutdown.
type PipelineHandler struct {
	service      service.Ingestion
	defaultFile  string
	defaultDelay time.Duration

	mu        sync.Mutex
	runCtx    context.Context
	cancelRun context.CancelFunc
	wg        sync.WaitGroup
	log       *slog.Logger
}

func NewPipelineHandler(svc service.Ingestion, defaultFile string, defaultDelay time.Duration, log *slog.Logger) *PipelineHandler {
	ctx, cancel := context.WithCancel(context.Background())
	return &PipelineHandler{
		service:      svc,
		defaultFile:  defaultFile,
		defaultDelay: defaultDelay,
		runCtx:       ctx,
		cancelRun:    cancel,
		log:          log,
	}
}

func (h *PipelineHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	const op = "handler.Ingest"
	log := middlew.GetLogger(r.Context())

	defer r.Body.Close()

	var req models.IngestRequest
	if err := response.DecodeJSON(r, &req, maxIngestBody); err != nil {
		log.Warn("invalid JSON", slog.String("op", op), slog.String("error", err.Error()))
		response.WriteJSONError(w, log, http.StatusBadRequest, "invalid_json", "Invalid JSON body")
		return
	}
	if req.DelayMS < 0 {
		response.WriteJSONError(w, log, http.StatusBadRequest, "invalid_field", "delay_ms must not be negative")
		return
	}

	delay := time.Duration(req.DelayMS) * time.Millisecond
	summary, err := h.service.IngestBatch(r.Context(), req.Transactions, delay)
	if err != nil {
		switch {
		case errors.Is(err, custom_err.ErrMalformedTimestamp), errors.Is(err, custom_err.ErrInvalidInput):
			log.Warn("batch rejected", slog.String("op", op), slog.String("error", err.Error()))
			response.WriteJSONError(w, log, http.StatusUnprocessableEntity, "invalid_transaction", err.Error())
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			log.Warn("batch interrupted", slog.String("op", op), slog.String("error", err.Error()))
			response.WriteJSONError(w, log, http.StatusServiceUnavailable, "interrupted", "Ingestion was interrupted")
		default:
			log.Error("batch failed", slog.String("op", op), slog.String("error", err.Error()))
			response.WriteJSONError(w, log, http.StatusInternalServerError, "internal_error", "Failed to ingest transactions")
		}
		return
	}

	response.WriteJSONSuccess(w, log, http.StatusOK, summary)
}

// Trigger starts a background ingestion of a data file and returns 202
// immediately. An empty body uses the configured file and delay.
func (h *PipelineHandler) Trigger(w http.ResponseWriter, r *http.Request) {
	const op = "handler.Trigger"
	log := middlew.GetLogger(r.Context())

	defer r.Body.Close()

	var req models.TriggerRequest
	if err := response.DecodeJSON(r, &req, maxIngestBody); err != nil && !errors.Is(err, io.EOF) {
		log.Warn("invalid JSON", slog.String("op", op), slog.String("error", err.Error()))
		response.WriteJSONError(w, log, http.StatusBadRequest, "invalid_json", "Invalid JSON body")
		return
	}
	if req.DelayMS != nil && *req.DelayMS < 0 {
		response.WriteJSONError(w, log, http.StatusBadRequest, "invalid_field", "delay_ms must not be negative")
		return
	}

	dataFile := req.DataFile
	if dataFile == "" {
		dataFile = h.defaultFile
	}
	delay := h.defaultDelay
	if req.DelayMS != nil {
		delay = time.Duration(*req.DelayMS) * time.Millisecond
	}

	if _, err := os.Stat(dataFile); err != nil {
		log.Warn("data file unavailable", slog.String("op", op), slog.String("data_file", dataFile), slog.String("error", err.Error()))
		response.WriteJSONError(w, log, http.StatusNotFound, "not_found", "Data file not found")
		return
	}

	h.mu.Lock()
	if h.runCtx.Err() != nil {
		h.mu.Unlock()
		response.WriteJSONError(w, log, http.StatusServiceUnavailable, "shutting_down", "Server is shutting down")
		return
	}
	h.wg.Add(1)
	h.mu.Unlock()

	go func() {
		defer h.wg.Done()
		summary, err := h.service.IngestFile(h.runCtx, dataFile, delay)
		if err != nil {
			h.log.Error("triggered ingestion failed", slog.String("data_file", dataFile), slog.String("error", err.Error()))
			return
		}
		h.log.Info("triggered ingestion finished",
			slog.String("data_file", dataFile),
			slog.Int("total", summary.Total),
			slog.Int("flagged", summary.Flagged))
	}()

	log.Info("ingestion triggered", slog.String("data_file", dataFile), slog.Duration("delay", delay))
	response.WriteJSONSuccess(w, log, http.StatusAccepted, models.TriggerResponse{Status: "started", DataFile: dataFile})
}

// Shutdown stops triggered runs between transactions and waits for them.
func (h *PipelineHandler) Shutdown(ctx context.Context) error {
	h.mu.Lock()
	h.cancelRun()
	h.mu.Unlock()

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		h.log.Warn("shutdown timeout exceeded while waiting for ingestion")
		return ctx.Err()
	}
}
