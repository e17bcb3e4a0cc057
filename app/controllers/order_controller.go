package controllers

import (
	"errors"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/sellforge/sellforge/internal/pkg/billing"
	"github.com/sellforge/sellforge/internal/pkg/orders"
	"github.com/sellforge/sellforge/internal/pkg/usercontext"
)

type checkoutItemRequest struct {
	ProductID uint `json:"product_id" validate:"required"`
	PriceID   uint `json:"price_id" validate:"required"`
	Quantity  int  `json:"quantity" validate:"omitempty,min=1,max=99"`
}

type checkoutRequest struct {
	Currency string                `json:"currency" validate:"omitempty,len=3"`
	Items    []checkoutItemRequest `json:"items" validate:"required,min=1,max=20,dive"`
}

// HandleCheckout creates a pending order from catalog items. Payment happens
// at the provider; the order waits in pending_payment for the webhook.
func HandleCheckout(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	var req checkoutRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_body"})
	}
	if err := validate.Struct(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "validation_failed", "message": err.Error()})
	}

	currency := req.Currency
	if currency == "" {
		currency = "USD"
	}

	lines := make([]orders.Line, 0, len(req.Items))
	for _, item := range req.Items {
		lines = append(lines, orders.Line{
			ProductID: item.ProductID,
			PriceID:   item.PriceID,
			Quantity:  item.Quantity,
		})
	}

	order, err := orderManager.CreatePending(userCtx.UserID, currency, lines)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) || errors.Is(err, orders.ErrEmptyOrder) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_items", "message": err.Error()})
		}
		log.Printf("checkout failed for user %d: %v", userCtx.UserID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "checkout_failed"})
	}

	return c.Status(fiber.StatusCreated).JSON(order)
}

// HandleListOrders returns the caller's orders, newest first.
func HandleListOrders(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	offset := c.QueryInt("offset", 0)
	limit := c.QueryInt("limit", 20)
	if limit < 1 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	list, err := repos.Order.ListByUser(userCtx.UserID, offset, limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "order_list_failed"})
	}
	return c.JSON(fiber.Map{"orders": list, "offset": offset, "limit": limit})
}

// HandleGetOrder returns one of the caller's orders by public ID.
func HandleGetOrder(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	order, err := repos.Order.GetByPublicID(c.Params("public_id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "order_not_found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "order_lookup_failed"})
	}
	if order.UserID != userCtx.UserID && !userCtx.IsAdmin {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "order_not_found"})
	}
	return c.JSON(order)
}

// HandleConfirmOrder is the manual override path. It is gated by a feature
// flag and a shared secret header and runs the exact same confirmation and
// fulfillment code as the webhook path.
func HandleConfirmOrder(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	order, err := repos.Order.GetByPublicID(c.Params("public_id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "order_not_found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "order_lookup_failed"})
	}
	if order.UserID != userCtx.UserID && !userCtx.IsAdmin {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "order_not_found"})
	}

	presented := c.Get("X-Order-Confirm-Secret")
	result, err := billingService.ConfirmOrder(order, billingCfg.ManualConfirm, presented, time.Now())
	if err != nil {
		switch {
		case errors.Is(err, billing.ErrManualConfirmDisabled),
			errors.Is(err, billing.ErrConfirmSecretInvalid):
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "confirmation_not_allowed"})
		case errors.Is(err, billing.ErrIllegalTransition):
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "order_not_confirmable", "status": order.Status})
		default:
			log.Printf("manual confirm of order %s failed: %v", order.PublicID, err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "confirmation_failed"})
		}
	}

	return c.JSON(fiber.Map{
		"ok":        true,
		"order_id":  order.PublicID,
		"fulfilled": result.Fulfilled,
		"items":     len(result.Items),
		"failed":    len(result.Failed()),
	})
}
