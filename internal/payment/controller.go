package payment

import (
	"context"
	"io"
	"net/http"

	"go.uber.org/zap"

	"avatarbook/internal/commons"
	"avatarbook/internal/dto"
	stripeinfra "avatarbook/internal/infrastructure/stripe"
)

// maxPayloadBytes matches the gateway's documented upper bound for events.
const maxPayloadBytes = 65536

const webhookSource = "payment"

type EventHandler interface {
	HandleEvent(ctx context.Context, payload []byte, signature string) (Outcome, error)
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

	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxPayloadBytes))
	if err != nil {
		logger.Warn("unreadable payment webhook body", zap.Error(err))
		c.recorder.RecordWebhook(webhookSource, "bad_request")
		commons.WriteError(w, traceID, http.StatusBadRequest, "BAD_REQUEST", "unreadable request body", logger)
		return
	}

	outcome, err := c.handler.HandleEvent(r.Context(), payload, r.Header.Get(stripeinfra.SignatureHeader))
	if err != nil {
		logger.Warn("payment webhook rejected", zap.Error(err))
		c.recorder.RecordWebhook(webhookSource, "rejected")
		commons.WriteUseCaseError(w, traceID, err, logger)
		return
	}

	c.recorder.RecordWebhook(webhookSource, string(outcome))
	commons.WriteJSON(w, http.StatusOK, dto.WebhookAck{Received: true, Outcome: string(outcome)}, logger)
}
