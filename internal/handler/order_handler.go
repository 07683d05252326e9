package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"orderflow/internal/services"
	"orderflow/internal/transport/httpdto"
	orderflow_errors "orderflow/pkg/errors"
)

const idempotencyKeyHeader = "Idempotency-Key"

type OrderHandler struct {
	service *services.OrderService
}

func NewOrderHandler(service *services.OrderService) *OrderHandler {
	return &OrderHandler{service: service}
}

// Create accepts an order. A replayed request (same Idempotency-Key, same
// body) returns the stored response with 200 instead of 201.
func (h *OrderHandler) Create(c *gin.Context) {
	idempotencyKey := c.GetHeader(idempotencyKeyHeader)
	if idempotencyKey == "" {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("Idempotency-Key header is required", "INVALID_REQUEST"))
		return
	}

	var req httpdto.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request", "INVALID_REQUEST"))
		return
	}

	result, err := h.service.CreateOrder(c.Request.Context(), req, idempotencyKey)
	if err != nil {
		switch {
		case errors.Is(err, orderflow_errors.ErrInvalidInput):
			c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse(err.Error(), "INVALID_REQUEST"))
		case errors.Is(err, orderflow_errors.ErrConflict):
			c.JSON(http.StatusConflict, httpdto.NewErrorResponse(err.Error(), "IDEMPOTENCY_CONFLICT"))
		default:
			c.JSON(http.StatusInternalServerError, httpdto.NewErrorResponse("failed to create order", "INTERNAL_ERROR"))
		}
		return
	}

	status := http.StatusCreated
	if result.FromCache {
		status = http.StatusOK
	}
	c.JSON(status, httpdto.NewSuccessResponse(result.Response))
}

func (h *OrderHandler) GetByID(c *gin.Context) {
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid order id", "INVALID_REQUEST"))
		return
	}

	res, err := h.service.GetOrder(c.Request.Context(), orderID)
	if err != nil {
		if errors.Is(err, orderflow_errors.ErrNotFound) {
			c.JSON(http.StatusNotFound, httpdto.NewErrorResponse("order not found", "NOT_FOUND"))
			return
		}
		c.JSON(http.StatusInternalServerError, httpdto.NewErrorResponse("failed to load order", "INTERNAL_ERROR"))
		return
	}

	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(*res))
}
