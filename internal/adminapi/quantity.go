package adminapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/talkincode/stockroom/internal/domain"
	"github.com/talkincode/stockroom/internal/inventory"
	"github.com/talkincode/stockroom/internal/webserver"
)

// quantityPayload carries integral counts; fractional or non-numeric values
// fail to decode and are rejected before any stock changes.
type quantityPayload struct {
	ProductID flexID `json:"productId"`
	ID        flexID `json:"_id"`
	Quantity  *int64 `json:"quantity"`
	Unit      *int64 `json:"unit"`
	Purpose   string `json:"purpose"`
	Batch     string `json:"batch"`
}

func (p quantityPayload) toInput() (inventory.AdjustInput, error) {
	v := &domain.ValidationError{}
	in := inventory.AdjustInput{
		ProductID: firstID(p.ProductID, p.ID),
		Purpose:   p.Purpose,
		Batch:     p.Batch,
	}
	if in.ProductID == 0 {
		v.Add("productId", "is required")
	}
	if p.Quantity == nil {
		v.Add("quantity", "is required")
	} else {
		in.Quantity = *p.Quantity
	}
	if p.Unit == nil {
		v.Add("unit", "is required")
	} else {
		in.Unit = *p.Unit
	}
	return in, v.OrNil()
}

func registerQuantityRoutes() {
	webserver.ApiPOST("/subtractQuantity", subtractQuantity)
	webserver.ApiPOST("/addQuantity", addQuantity)
}

func subtractQuantity(c echo.Context) error {
	var payload quantityPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid quantity or unit.", err.Error())
	}
	in, err := payload.toInput()
	if err != nil {
		return failFromError(c, "Invalid quantity or unit", err)
	}
	p, tx, err := GetInventory(c).Subtract(c.Request().Context(), in)
	if err != nil {
		return failFromError(c, "Error subtracting product quantity", err)
	}
	return ok(c, map[string]interface{}{
		"message":     "Product quantity subtracted successfully.",
		"product":     p,
		"transaction": tx,
	})
}

func addQuantity(c echo.Context) error {
	var payload quantityPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid quantity or unit.", err.Error())
	}
	in, err := payload.toInput()
	if err != nil {
		return failFromError(c, "Invalid quantity or unit", err)
	}
	p, err := GetInventory(c).Add(c.Request().Context(), in)
	if err != nil {
		return failFromError(c, "Error adding product quantity", err)
	}
	return ok(c, map[string]interface{}{
		"message": "Product quantity added successfully.",
		"product": p,
	})
}
