package commons

import (
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"avatarbook/internal/dto"
	apperrors "avatarbook/internal/errors"
)

type validationErrorResponse struct {
	TraceID string                       `json:"traceId"`
	Error   string                       `json:"error"`
	Message string                       `json:"message"`
	Details []apperrors.ValidationDetail `json:"details"`
}

func WriteJSON(w http.ResponseWriter, status int, data interface{}, logger *zap.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("failed to encode response", zap.Error(err))
	}
}

func WriteValidationError(w http.ResponseWriter, traceID, message string, logger *zap.Logger, details ...apperrors.ValidationDetail) {
	WriteJSON(w, http.StatusBadRequest, validationErrorResponse{
		TraceID: traceID,
		Error:   "VALIDATION_ERROR",
		Message: message,
		Details: details,
	}, logger)
}

func WriteError(w http.ResponseWriter, traceID string, status int, code, message string, logger *zap.Logger) {
	WriteJSON(w, status, dto.ErrorResponse{
		TraceID:   traceID,
		Status:    status,
		Code:      code,
		Message:   message,
		Timestamp: time.Now().UTC(),
	}, logger)
}

// WriteUseCaseError maps the error taxonomy to HTTP statuses. Unknown errors
// are logged and reported as 500 without leaking their text.
func WriteUseCaseError(w http.ResponseWriter, traceID string, err error, logger *zap.Logger) {
	if ve, ok := apperrors.IsValidationError(err); ok {
		WriteValidationError(w, traceID, ve.Message, logger, ve.Details...)
		return
	}

	if _, ok := apperrors.IsAuthenticationError(err); ok {
		WriteError(w, traceID, http.StatusUnauthorized, "UNAUTHORIZED", err.Error(), logger)
		return
	}

	if _, ok := apperrors.IsForbiddenError(err); ok {
		WriteError(w, traceID, http.StatusForbidden, "FORBIDDEN", err.Error(), logger)
		return
	}

	if _, ok := apperrors.IsNotFoundError(err); ok {
		WriteError(w, traceID, http.StatusNotFound, "NOT_FOUND", err.Error(), logger)
		return
	}

	if _, ok := apperrors.IsConflictError(err); ok {
		WriteError(w, traceID, http.StatusConflict, "CONFLICT", err.Error(), logger)
		return
	}

	if ue, ok := apperrors.IsUpstreamError(err); ok {
		logger.Error("upstream failure", zap.String("code", ue.Code), zap.Error(err))
		WriteError(w, traceID, http.StatusBadGateway, ue.Code, ue.Message, logger)
		return
	}

	if _, ok := apperrors.IsPersistenceError(err); ok {
		logger.Error("persistence failure", zap.Error(err))
		WriteError(w, traceID, http.StatusServiceUnavailable, "PERSISTENCE_ERROR", "storage temporarily unavailable", logger)
		return
	}

	logger.Error("unexpected error", zap.Error(err))
	WriteError(w, traceID, http.StatusInternalServerError, "INTERNAL_ERROR", "an unexpected error occurred", logger)
}
