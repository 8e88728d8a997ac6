package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/RyDizz214/snappier-server-docker/internal/domain/model"
	"github.com/RyDizz214/snappier-server-docker/internal/domain/types"
	"github.com/RyDizz214/snappier-server-docker/pkg/logger"
)

// MaxBodyBytes bounds a webhook payload.
const MaxBodyBytes = 1 << 20

// Notifier runs webhook events through the notification pipeline.
type Notifier interface {
	Notify(ctx context.Context, ev model.IncomingEvent) (types.NotifyResult, int)
}

// NotifyHandler handles webhook requests.
type NotifyHandler struct {
	notifier Notifier
	logger   logger.Logger
}

// NewNotifyHandler creates a new notify handler.
func NewNotifyHandler(n Notifier, log logger.Logger) *NotifyHandler {
	return &NotifyHandler{notifier: n, logger: log}
}

// HandleNotify handles POST /notify requests. The body is decoded leniently:
// anything that is not a JSON object reaches the pipeline as {"text": body}.
func (h *NotifyHandler) HandleNotify(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	ctx := r.Context()

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, types.Rejected(ErrBodyTooLarge.Error()))
			return
		}
		writeJSON(w, http.StatusBadRequest, types.Rejected(fmt.Errorf("%w: %w", ErrBadRequest, err).Error()))
		return
	}

	ev := model.DecodeIncoming(body)
	res, status := h.notifier.Notify(ctx, ev)

	h.logger.Debug(ctx, "notify handled",
		logger.String("request_id", RequestIDFrom(ctx)),
		logger.String("action", ev.Action),
		logger.Int("status", status))

	writeJSON(w, status, res)
}
