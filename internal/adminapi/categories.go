package adminapi

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/talkincode/stockroom/internal/domain"
	"github.com/talkincode/stockroom/internal/webserver"
	"github.com/talkincode/stockroom/pkg/common"
)

type categoryPayload struct {
	Name string `json:"name"`
}

func registerCategoryRoutes() {
	webserver.ApiGET("/getCategories", listCategories)
	webserver.ApiGET("/categories", listCategories)
	webserver.ApiGET("/categories/:id", getCategory)
	webserver.ApiPOST("/CreateCategories", createCategory)
	webserver.ApiPOST("/categories", createCategory)
}

// listCategories seeds the default categories on the first read of an empty store
func listCategories(c echo.Context) error {
	rows, err := GetStore(c).Categories().List(c.Request().Context())
	if err != nil {
		return failFromError(c, "Server error while fetching categories", err)
	}
	return ok(c, rows)
}

func getCategory(c echo.Context) error {
	id, valid := parseIDParam(c, "id")
	if !valid {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid category ID", nil)
	}
	cat, err := GetStore(c).Categories().Get(c.Request().Context(), id)
	if err != nil {
		return failFromError(c, "Category not found", err)
	}
	return ok(c, cat)
}

func createCategory(c echo.Context) error {
	var payload categoryPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse category", err.Error())
	}
	if common.IsEmpty(payload.Name) {
		return failFromError(c, "Category name is required", domain.NewValidationError("name", "is required"))
	}

	cat := &domain.Category{Name: strings.TrimSpace(payload.Name)}
	if err := GetStore(c).Categories().Create(c.Request().Context(), cat); err != nil {
		return failFromError(c, "Failed to create category", err)
	}
	return created(c, cat)
}
