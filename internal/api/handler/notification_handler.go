package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	apimw "github.com/pulse-fitness/notifier/internal/api/middleware"
	"github.com/pulse-fitness/notifier/internal/domain"
	"github.com/pulse-fitness/notifier/internal/service"
)

// NotificationHandler exposes queue rows to producers and operators.
type NotificationHandler struct {
	svc    *service.NotificationService
	logger *zap.Logger
}

func NewNotificationHandler(svc *service.NotificationService, logger *zap.Logger) *NotificationHandler {
	return &NotificationHandler{svc: svc, logger: logger}
}

// Enqueue handles POST /api/v1/notifications
//
// @Summary     Queue a notification
// @Tags        notifications
// @Accept      json
// @Produce     json
// @Param       body  body      domain.EnqueueRequest  true  "Notification payload"
// @Success     201   {object}  domain.QueueItem
// @Failure     400   {object}  map[string]string
// @Failure     422   {object}  map[string]string
// @Router      /api/v1/notifications [post]
func (h *NotificationHandler) Enqueue(w http.ResponseWriter, r *http.Request) {
	var req domain.EnqueueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	item, err := h.svc.Enqueue(r.Context(), req)
	if err != nil {
		apimw.Logger(r.Context(), h.logger).Warn("enqueue notification failed", zap.Error(err))
		mapError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, item)
}

// GetByID handles GET /api/v1/notifications/{id}
//
// @Summary  Get a queue row by ID
// @Tags     notifications
// @Produce  json
// @Param    id   path      string  true  "Notification UUID"
// @Success  200  {object}  domain.QueueItem
// @Failure  404  {object}  map[string]string
// @Router   /api/v1/notifications/{id} [get]
func (h *NotificationHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	item, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		mapError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, item)
}

// Requeue handles POST /api/v1/notifications/{id}/requeue
//
// @Summary  Queue a fresh copy of a failed notification
// @Tags     notifications
// @Produce  json
// @Param    id   path      string  true  "Failed notification UUID"
// @Success  201  {object}  domain.QueueItem
// @Failure  404  {object}  map[string]string
// @Failure  409  {object}  map[string]string
// @Router   /api/v1/notifications/{id}/requeue [post]
func (h *NotificationHandler) Requeue(w http.ResponseWriter, r *http.Request) {
	item, err := h.svc.Requeue(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		apimw.Logger(r.Context(), h.logger).Warn("requeue failed",
			zap.String("source_id", chi.URLParam(r, "id")), zap.Error(err))
		mapError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, item)
}

// Pending handles GET /api/v1/users/{userID}/notifications/pending
//
// @Summary  List a user's unprocessed notifications
// @Tags     notifications
// @Produce  json
// @Param    userID  path      string  true  "User UUID"
// @Success  200     {object}  map[string]any
// @Failure  422     {object}  map[string]string
// @Router   /api/v1/users/{userID}/notifications/pending [get]
func (h *NotificationHandler) Pending(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.Pending(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		mapError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"pending":       len(items),
		"notifications": items,
	})
}
