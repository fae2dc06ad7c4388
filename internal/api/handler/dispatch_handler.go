package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	apimw "github.com/pulse-fitness/notifier/internal/api/middleware"
	"github.com/pulse-fitness/notifier/internal/domain"
	"github.com/pulse-fitness/notifier/internal/worker"
)

// DispatchHandler lets an external scheduler trigger a dispatcher pass.
type DispatchHandler struct {
	runner worker.Runner
	logger *zap.Logger
}

func NewDispatchHandler(runner worker.Runner, logger *zap.Logger) *DispatchHandler {
	return &DispatchHandler{runner: runner, logger: logger}
}

// Dispatch handles POST /api/v1/dispatch
//
// The body is optional; next_run is only logged. The pass is not cancelled
// when the caller disconnects. The response status is the run's own: 200 when the pass completed (individual sends may have failed),
// 500 when it aborted before sending anything.
//
// @Summary  Run one dispatcher pass
// @Tags     dispatch
// @Accept   json
// @Produce  json
// @Param    body  body      domain.DispatchRequest  false  "Scheduler envelope"
// @Success  200   {object}  map[string]string
// @Failure  500   {object}  map[string]string
// @Router   /api/v1/dispatch [post]
func (h *DispatchHandler) Dispatch(w http.ResponseWriter, r *http.Request) {
	log := apimw.Logger(r.Context(), h.logger)

	var req domain.DispatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		log.Warn("ignoring malformed dispatch envelope", zap.Error(err))
	}
	log.Info("dispatch requested", zap.String("next_run", req.NextRun))

	// The pass outlives the caller: a client that gives up mid-batch must not
	// cut sends short and leave their outcomes unrecorded.
	res := h.runner.Run(context.WithoutCancel(r.Context()))
	respondJSON(w, res.StatusCode, res.Body())
}
