package handlers

import (
	"net/http"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"

	"event-ticketing/services"
)

type CustomerHandler struct {
	app             *pocketbase.PocketBase
	customerService *services.CustomerService
}

func NewCustomerHandler(app *pocketbase.PocketBase, customerService *services.CustomerService) *CustomerHandler {
	return &CustomerHandler{
		app:             app,
		customerService: customerService,
	}
}

// Register - create a customer account with a password
func (h *CustomerHandler) Register(e *core.RequestEvent) error {
	var req services.RegisterRequest
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}

	customer, err := h.customerService.Register(e.Request.Context(), req)
	if err != nil {
		return apiError(err)
	}

	return e.JSON(http.StatusOK, customer)
}
