package handlers

import (
	"net/http"

	"fraud-detector/internal/api/middlew"
	"fraud-detector/pkg/response"
)

type observerCounter interface {
	Count() int
}

type HealthResponse struct {
	Status    string `json:"status"`
	Observers int    `json:"observers"`
}

type HealthHandler struct {
	observers observerCounter
}

func NewHealthHandler(observers observerCounter) *HealthHandler {
	return &HealthHandler{observers: observers}
}

func (h *HealthHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	response.WriteJSONSuccess(w, middlew.GetLogger(r.Context()), http.StatusOK, HealthResponse{
		Status:    "ok",
		Observers: h.observers.Count(),
	})
}
