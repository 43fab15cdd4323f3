package controllers

import (
	"context"
	"io"
	"net/http"

	"github.com/angelmondragon/armory-backend/api/middleware"
	"github.com/angelmondragon/armory-backend/api/responses"
	"github.com/angelmondragon/armory-backend/internal/notify"
	pkgerrors "github.com/angelmondragon/armory-backend/pkg/errors"
	"github.com/angelmondragon/armory-backend/pkg/logger"
)

const maxNotificationBody = 64 << 10

// NotificationSender is the synchronous dispatcher surface.
type NotificationSender interface {
	SendRaw(ctx context.Context, raw []byte) notify.Result
}

// NotificationEnqueuer stages a request for the notification consumer.
type NotificationEnqueuer interface {
	Enqueue(ctx context.Context, actor string, req notify.Request) (string, error)
}

// AdminSendNotification runs the dispatcher inline and returns its result:
// 200 when the transport accepted the message, 502 otherwise.
func AdminSendNotification(sender NotificationSender, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw, err := readBody(w, r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result := sender.SendRaw(r.Context(), raw)
		status := http.StatusOK
		if !result.OK {
			status = http.StatusBadGateway
		}
		responses.WriteSuccessStatus(w, status, result)
	}
}

// AdminEnqueueNotification queues a request through the outbox and returns
// the event id without waiting for delivery.
func AdminEnqueueNotification(enqueuer NotificationEnqueuer, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw, err := readBody(w, r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		req, err := notify.DecodeRequest(raw)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, err.Error()))
			return
		}
		eventID, err := enqueuer.Enqueue(r.Context(), middleware.SubjectFromContext(r.Context()), req)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusAccepted, map[string]string{"eventId": eventID})
	}
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxNotificationBody))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid request body")
	}
	return raw, nil
}
