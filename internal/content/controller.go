package content

import (
	"context"
	"io"
	"net/http"

	"go.uber.org/zap"

	"avatarbook/internal/commons"
	"avatarbook/internal/dto"
)

const maxPayloadBytes = 64 << 10

const webhookSource = "content"

type EventHandler interface {
	HandleEvent(ctx context.Context, secret string, body []byte) (Outcome, error)
}

type Controller struct {
	handler  EventHandler
	recorder commons.OutcomeRecorder
	logger   *zap.Logger
}

func NewController(handler EventHandler, recorder commons.OutcomeRecorder, logger *zap.Logger) *Controller {
	return &Controller{
		handler:  handler,
		recorder: recorder,
		logger:   logger,
	}
}

func (c *Controller) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	traceID := commons.TraceID(r.Context())
	logger := c.logger.With(zap.String("traceId", traceID))

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxPayloadBytes))
	if err != nil {
		logger.Warn("unreadable content webhook body", zap.Error(err))
		c.recorder.RecordWebhook(webhookSource, "bad_request")
		commons.WriteError(w, traceID, http.StatusBadRequest, "BAD_REQUEST", "unreadable request body", logger)
		return
	}

	outcome, err := c.handler.HandleEvent(r.Context(), r.URL.Query().Get("secret"), body)
	if err != nil {
		c.recorder.RecordWebhook(webhookSource, "rejected")
		commons.WriteUseCaseError(w, traceID, err, logger)
		return
	}

	c.recorder.RecordWebhook(webhookSource, string(outcome))
	commons.WriteJSON(w, http.StatusOK, dto.WebhookAck{Received: true, Outcome: string(outcome)}, logger)
}
