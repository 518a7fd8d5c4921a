package handler

import (
	"errors"
	"fmt"

	"go-stock-ledger/internal/model"
	"go-stock-ledger/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// Actor info helpers; set by the auth middleware on protected routes after
// the resolver has turned the token claim into a live attribution.
func getActorID(c *fiber.Ctx) string {
	if v := c.Locals("actor_id"); v != nil {
		return v.(string)
	}
	return ""
}

func getActorName(c *fiber.Ctx) string {
	if v := c.Locals("actor_name"); v != nil {
		return v.(string)
	}
	return ""
}

// actorAttribution is the string stamped onto audit rows and events:
// "Name (id)" for a resolved actor, the bare id or fallback otherwise.
func actorAttribution(c *fiber.Ctx) string {
	id := getActorID(c)
	name := getActorName(c)
	if name != "" && name != id {
		return fmt.Sprintf("%s (%s)", name, id)
	}
	if id != "" {
		return id
	}
	return name
}

func parseUUID(id string) (uuid.UUID, error) {
	return uuid.Parse(id)
}

// respondError maps the error taxonomy onto status codes and, for
// insufficient stock, enumerates every failing item so the caller can
// correct a partial cart.
func respondError(c *fiber.Ctx, err error) error {
	if ise, ok := model.IsInsufficientStock(err); ok {
		details := make([]fiber.Map, 0, len(ise.Items))
		for _, it := range ise.Items {
			d := fiber.Map{
				"requested": it.Requested,
				"available": it.Available,
				"reserved":  it.Reserved,
				"free":      it.Free(),
			}
			id := it.Key.ID()
			if it.Key.IsVariant() {
				d["variant_id"] = id
			} else {
				d["product_id"] = id
			}
			details = append(details, d)
		}
		return c.Status(409).JSON(fiber.Map{"error": "insufficient stock", "details": details})
	}

	switch {
	case errors.Is(err, model.ErrStockNotFound),
		errors.Is(err, model.ErrTransferNotFound),
		errors.Is(err, model.ErrNoOrderLines):
		return c.Status(404).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, model.ErrInvalidTransition):
		return c.Status(409).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, model.ErrNegativeResult):
		return c.Status(422).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, service.ErrInvalidCredentials):
		return c.Status(401).JSON(fiber.Map{"error": err.Error()})
	default:
		return c.Status(400).JSON(fiber.Map{"error": err.Error()})
	}
}
