package booking

import (
	"net/http"

	"go.uber.org/zap"

	"avatarbook/internal/commons"
)

type Controller struct {
	window SchedulingWindow
	logger *zap.Logger
}

func NewController(window SchedulingWindow, logger *zap.Logger) *Controller {
	return &Controller{
		window: window,
		logger: logger,
	}
}

// HandleWindow serves the scheduling rules so the booking form can apply the
// same boundaries the server enforces.
func (c *Controller) HandleWindow(w http.ResponseWriter, r *http.Request) {
	commons.WriteJSON(w, http.StatusOK, c.window.View(), c.logger)
}
