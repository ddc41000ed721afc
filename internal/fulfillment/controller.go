package fulfillment

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"avatarbook/internal/commons"
	"avatarbook/internal/domain"
	"avatarbook/internal/dto"
)

type Resubmitter interface {
	Resubmit(ctx context.Context, orderNumber string) (*domain.Order, error)
}

// Controller exposes the operator resubmit action. Authentication happens in
// the admin middleware.
type Controller struct {
	resubmitter Resubmitter
	logger      *zap.Logger
}

func NewController(resubmitter Resubmitter, logger *zap.Logger) *Controller {
	return &Controller{
		resubmitter: resubmitter,
		logger:      logger,
	}
}

func (c *Controller) HandleResubmit(w http.ResponseWriter, r *http.Request) {
	traceID := commons.TraceID(r.Context())
	orderNumber := chi.URLParam(r, "orderNumber")
	logger := c.logger.With(zap.String("traceId", traceID), zap.String("orderNumber", orderNumber))

	order, err := c.resubmitter.Resubmit(r.Context(), orderNumber)
	if err != nil {
		commons.WriteUseCaseError(w, traceID, err, logger)
		return
	}

	logger.Info("order resubmitted by operator", zap.String("status", string(order.Status)))
	commons.WriteJSON(w, http.StatusOK, dto.ResubmitResponse{
		OrderNumber: order.OrderNumber,
		Status:      string(order.Status),
	}, logger)
}
