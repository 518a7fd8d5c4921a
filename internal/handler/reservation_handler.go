package handler

import (
	"time"

	"go-stock-ledger/internal/service"

	"github.com/gofiber/fiber/v2"
)

type ReservationHandler struct {
	reservations service.ReservationService
	sweeper      *service.ExpirySweeper
}

func NewReservationHandler(reservations service.ReservationService, sweeper *service.ExpirySweeper) *ReservationHandler {
	return &ReservationHandler{reservations: reservations, sweeper: sweeper}
}

func (h *ReservationHandler) Reserve(c *fiber.Ctx) error {
	orderID, err := parseUUID(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid order ID"})
	}

	var req struct {
		AllowOverselling bool `json:"allow_overselling"`
	}
	// Body optional; defaults apply.
	_ = c.BodyParser(&req)

	if err := h.reservations.Reserve(c.Context(), orderID, actorAttribution(c), req.AllowOverselling); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Stock reserved"})
}

func (h *ReservationHandler) Release(c *fiber.Ctx) error {
	orderID, err := parseUUID(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid order ID"})
	}

	if err := h.reservations.Release(c.Context(), orderID, actorAttribution(c)); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Reservation released"})
}

func (h *ReservationHandler) Fulfill(c *fiber.Ctx) error {
	orderID, err := parseUUID(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid order ID"})
	}

	var req struct {
		AllowNegative bool `json:"allow_negative"`
	}
	_ = c.BodyParser(&req)

	if err := h.reservations.Fulfill(c.Context(), orderID, actorAttribution(c), req.AllowNegative); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Order fulfilled"})
}

func (h *ReservationHandler) Return(c *fiber.Ctx) error {
	orderID, err := parseUUID(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid order ID"})
	}

	req := struct {
		Restock bool `json:"restock"`
	}{Restock: true}
	_ = c.BodyParser(&req)

	if err := h.reservations.Return(c.Context(), orderID, actorAttribution(c), req.Restock); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Return processed"})
}

func (h *ReservationHandler) ReserveCart(c *fiber.Ctx) error {
	cartID, err := parseUUID(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid cart ID"})
	}

	var req struct {
		TTLMinutes int `json:"ttl_minutes"`
	}
	_ = c.BodyParser(&req)

	ttl := time.Duration(req.TTLMinutes) * time.Minute
	if err := h.reservations.ReserveCartStock(c.Context(), cartID, actorAttribution(c), ttl); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Cart stock reserved"})
}

func (h *ReservationHandler) ReleaseCart(c *fiber.Ctx) error {
	cartID, err := parseUUID(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid cart ID"})
	}

	if err := h.reservations.ReleaseCartStock(c.Context(), cartID, actorAttribution(c)); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Cart stock released"})
}

func (h *ReservationHandler) ExtendCart(c *fiber.Ctx) error {
	cartID, err := parseUUID(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid cart ID"})
	}

	var req struct {
		Minutes int `json:"minutes"`
	}
	_ = c.BodyParser(&req)

	extended, err := h.reservations.ExtendCartReservation(c.Context(), cartID, time.Duration(req.Minutes)*time.Minute)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Cart reservations extended", "lines": extended})
}

// SweepNow lets an external scheduler (or an admin) trigger a sweep cycle.
func (h *ReservationHandler) SweepNow(c *fiber.Ctx) error {
	released, err := h.sweeper.Sweep(c.Context())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Sweep complete", "released": released})
}
