package handler

import (
	"go-stock-ledger/internal/model"
	"go-stock-ledger/internal/service"

	"github.com/gofiber/fiber/v2"
)

type StockHandler struct {
	stocks    service.StockService
	validator service.StockValidator
}

func NewStockHandler(stocks service.StockService, validator service.StockValidator) *StockHandler {
	return &StockHandler{stocks: stocks, validator: validator}
}

func (h *StockHandler) ValidateAvailability(c *fiber.Ctx) error {
	var req struct {
		Items []service.AvailabilityRequest `json:"items"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid JSON"})
	}
	if len(req.Items) == 0 {
		return c.Status(400).JSON(fiber.Map{"error": "items required"})
	}

	results, err := h.validator.ValidateAvailability(c.Context(), req.Items)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "Internal Server Error"})
	}
	return c.JSON(fiber.Map{"results": results})
}

func (h *StockHandler) CreateStockRecord(c *fiber.Ctx) error {
	var req service.CreateStockRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid JSON"})
	}

	rec, err := h.stocks.CreateStockRecord(c.Context(), &req, actorAttribution(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(201).JSON(fiber.Map{"message": "Stock record created", "data": rec.ToResponse()})
}

func (h *StockHandler) ListStock(c *fiber.Ctx) error {
	recs, err := h.stocks.List(c.Context())
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "Internal Server Error"})
	}
	out := make([]model.StockRecordResponse, 0, len(recs))
	for i := range recs {
		out = append(out, recs[i].ToResponse())
	}
	return c.JSON(out)
}

func (h *StockHandler) GetStock(c *fiber.Ctx) error {
	id, err := parseUUID(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid stock record ID"})
	}

	rec, err := h.stocks.Get(c.Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(rec.ToResponse())
}

func (h *StockHandler) GetHistory(c *fiber.Ctx) error {
	id, err := parseUUID(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid stock record ID"})
	}

	history, err := h.stocks.History(c.Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(history)
}

// GetHistoryByReference returns the adjustment trail for one order, cart,
// transfer or PO reference across every affected record.
func (h *StockHandler) GetHistoryByReference(c *fiber.Ctx) error {
	reference := c.Query("reference")
	if reference == "" {
		return c.Status(400).JSON(fiber.Map{"error": "reference query parameter required"})
	}

	history, err := h.stocks.HistoryByReference(c.Context(), reference)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(history)
}

func (h *StockHandler) Adjust(c *fiber.Ctx) error {
	id, err := parseUUID(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid stock record ID"})
	}

	var req service.AdjustRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid JSON"})
	}

	rec, err := h.stocks.Adjust(c.Context(), id, &req, actorAttribution(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Stock adjusted", "data": rec.ToResponse()})
}

func (h *StockHandler) GetStats(c *fiber.Ctx) error {
	stats, err := h.stocks.Stats(c.Context())
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "Internal Server Error"})
	}
	return c.JSON(stats)
}
