package checkout

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"avatarbook/internal/booking"
	"avatarbook/internal/commons"
	"avatarbook/internal/dto"
	apperrors "avatarbook/internal/errors"
)

// maxBodyBytes caps the booking payload well above the largest valid request.
const maxBodyBytes = 64 << 10

type CheckoutUseCase interface {
	Checkout(ctx context.Context, req dto.CheckoutRequest, bypassWindow bool) (*dto.CheckoutResponse, error)
	Retry(ctx context.Context, orderNumber, token string) (*dto.CheckoutResponse, error)
}

type Controller struct {
	useCase CheckoutUseCase
	gate    booking.TestModeGate
	logger  *zap.Logger
}

func NewController(useCase CheckoutUseCase, gate booking.TestModeGate, logger *zap.Logger) *Controller {
	return &Controller{
		useCase: useCase,
		gate:    gate,
		logger:  logger,
	}
}

func (c *Controller) HandleCheckout(w http.ResponseWriter, r *http.Request) {
	traceID := commons.TraceID(r.Context())
	logger := c.logger.With(zap.String("traceId", traceID))

	var req dto.CheckoutRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		logger.Warn("invalid JSON body", zap.Error(err))
		commons.WriteValidationError(w, traceID, "invalid JSON body", logger, apperrors.ValidationDetail{
			Field:   "body",
			Message: "request body must be valid JSON",
		})
		return
	}

	bypass := c.gate.Allows(req.TestMode, r.Header.Get(booking.InternalKeyHeader))
	if req.TestMode && !bypass {
		logger.Warn("test mode requested without authorization, enforcing scheduling window")
	}

	resp, err := c.useCase.Checkout(r.Context(), req, bypass)
	if err != nil {
		commons.WriteUseCaseError(w, traceID, err, logger)
		return
	}

	commons.WriteJSON(w, http.StatusCreated, resp, logger)
}

func (c *Controller) HandleRetry(w http.ResponseWriter, r *http.Request) {
	traceID := commons.TraceID(r.Context())
	logger := c.logger.With(zap.String("traceId", traceID))

	orderNumber := chi.URLParam(r, "orderNumber")
	token := r.URL.Query().Get("token")
	if orderNumber == "" || token == "" {
		commons.WriteError(w, traceID, http.StatusNotFound, "NOT_FOUND", "order not found", logger)
		return
	}

	resp, err := c.useCase.Retry(r.Context(), orderNumber, token)
	if err != nil {
		commons.WriteUseCaseError(w, traceID, err, logger)
		return
	}

	commons.WriteJSON(w, http.StatusOK, resp, logger)
}
