package delivery

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"avatarbook/internal/commons"
	"avatarbook/internal/dto"
)

type DeliveryService interface {
	Lookup(ctx context.Context, orderNumber, token string) (*dto.OrderStatusResponse, error)
	Regenerate(ctx context.Context, orderNumber string) (*dto.RegenerateLinkResponse, error)
}

type Controller struct {
	service DeliveryService
	logger  *zap.Logger
}

func NewController(service DeliveryService, logger *zap.Logger) *Controller {
	return &Controller{
		service: service,
		logger:  logger,
	}
}

func (c *Controller) HandleLookup(w http.ResponseWriter, r *http.Request) {
	traceID := commons.TraceID(r.Context())
	logger := c.logger.With(zap.String("traceId", traceID))

	resp, err := c.service.Lookup(r.Context(), chi.URLParam(r, "orderNumber"), r.URL.Query().Get("token"))
	if err != nil {
		commons.WriteUseCaseError(w, traceID, err, logger)
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	commons.WriteJSON(w, http.StatusOK, resp, logger)
}

func (c *Controller) HandleRegenerate(w http.ResponseWriter, r *http.Request) {
	traceID := commons.TraceID(r.Context())
	orderNumber := chi.URLParam(r, "orderNumber")
	logger := c.logger.With(zap.String("traceId", traceID), zap.String("orderNumber", orderNumber))

	resp, err := c.service.Regenerate(r.Context(), orderNumber)
	if err != nil {
		commons.WriteUseCaseError(w, traceID, err, logger)
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	commons.WriteJSON(w, http.StatusOK, resp, logger)
}
