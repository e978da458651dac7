package adminapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/spf13/cast"
	"github.com/talkincode/stockroom/internal/domain"
	"github.com/talkincode/stockroom/internal/store"
	"github.com/talkincode/stockroom/internal/webserver"
	"github.com/talkincode/stockroom/pkg/common"
)

type productPayload struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Image       *string `json:"image"`
	Quantity    *int64  `json:"quantity"`
	CategoryID  flexID  `json:"categoryId"`
	Category    flexID  `json:"category"`
	CategoryID2 flexID  `json:"category_id"`
}

func (p productPayload) categoryID() int64 {
	return firstID(p.CategoryID, p.Category, p.CategoryID2)
}

// registerProductRoutes registers product CRUD and search endpoints
func registerProductRoutes() {
	webserver.ApiGET("/products", listProducts)
	webserver.ApiGET("/products/search", searchProducts)
	webserver.ApiGET("/searchProduct", searchProducts)
	webserver.ApiGET("/products/:id", getProduct)
	webserver.ApiPOST("/products", createProduct)
	webserver.ApiPUT("/products/:id", updateProduct)
	webserver.ApiDELETE("/products/:id", deleteProduct)
}

func listProducts(c echo.Context) error {
	filter := domain.ProductFilter{
		Query: strings.TrimSpace(c.QueryParam("q")),
		Sort:  strings.TrimSpace(c.QueryParam("sort")),
		Desc:  strings.EqualFold(strings.TrimSpace(c.QueryParam("order")), "desc"),
	}
	if v := strings.TrimSpace(c.QueryParam("category")); v != "" {
		id, ok := common.ParseID(v)
		if !ok {
			return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid category ID", nil)
		}
		filter.CategoryID = id
	}
	if _, ok := store.ProductSortColumns[filter.Sort]; filter.Sort != "" && !ok {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unsupported sort field", filter.Sort)
	}

	rows, err := GetStore(c).Products().List(c.Request().Context(), filter)
	if err != nil {
		return failFromError(c, "Failed to query products", err)
	}

	// without page or perPage the whole list is returned
	page, perPage, paging := parsePagination(c)
	if !paging {
		return ok(c, rows)
	}
	total := len(rows)
	from := min((page-1)*perPage, total)
	to := min(from+perPage, total)
	return paged(c, rows[from:to], int64(total), page, perPage)
}

func searchProducts(c echo.Context) error {
	name := strings.TrimSpace(c.QueryParam("name"))
	if name == "" {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Query parameter name is required", nil)
	}
	rows, err := GetStore(c).Products().List(c.Request().Context(), domain.ProductFilter{Query: name})
	if err != nil {
		return failFromError(c, "Failed to search products", err)
	}
	return ok(c, rows)
}

func getProduct(c echo.Context) error {
	id, valid := parseIDParam(c, "id")
	if !valid {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid product ID", nil)
	}
	p, err := GetStore(c).Products().Get(c.Request().Context(), id)
	if err != nil {
		return failFromError(c, "Product not found", err)
	}
	return ok(c, p)
}

func createProduct(c echo.Context) error {
	var payload productPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse product", err.Error())
	}

	v := &domain.ValidationError{}
	p := &domain.Product{CategoryID: payload.categoryID()}
	if payload.Name != nil {
		p.Name = strings.TrimSpace(*payload.Name)
	}
	if p.Name == "" {
		v.Add("name", "is required")
	}
	if payload.Description != nil {
		p.Description = strings.TrimSpace(*payload.Description)
	}
	if payload.Image != nil {
		p.Image = strings.TrimSpace(*payload.Image)
	}
	if payload.Quantity == nil {
		v.Add("quantity", "is required")
	} else if *payload.Quantity < 0 {
		v.Add("quantity", "must be a non-negative number")
	} else {
		p.Quantity = *payload.Quantity
	}
	if p.CategoryID == 0 {
		v.Add("categoryId", "is required")
	}
	if err := v.OrNil(); err != nil {
		return failFromError(c, "Invalid product", err)
	}

	ctx := c.Request().Context()
	s := GetStore(c)
	err := s.Atomic(ctx, func(repos store.Repositories) error {
		if err := requireCategory(ctx, repos, p.CategoryID); err != nil {
			return err
		}
		if err := repos.Products().Create(ctx, p); err != nil {
			return err
		}
		saved, err := repos.Products().Get(ctx, p.ID)
		if err != nil {
			return err
		}
		*p = *saved
		return nil
	})
	if err != nil {
		return failFromError(c, "Failed to create product", err)
	}
	return created(c, map[string]interface{}{
		"message": "Product added successfully",
		"product": p,
	})
}

func updateProduct(c echo.Context) error {
	id, valid := parseIDParam(c, "id")
	if !valid {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid product ID", nil)
	}
	var payload productPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse product", err.Error())
	}

	ctx := c.Request().Context()
	var p *domain.Product
	err := GetStore(c).Atomic(ctx, func(repos store.Repositories) error {
		var err error
		p, err = repos.Products().Get(ctx, id)
		if err != nil {
			return err
		}

		v := &domain.ValidationError{}
		if payload.Name != nil {
			p.Name = strings.TrimSpace(*payload.Name)
			if p.Name == "" {
				v.Add("name", "must not be empty")
			}
		}
		if payload.Description != nil {
			p.Description = strings.TrimSpace(*payload.Description)
		}
		if payload.Image != nil {
			p.Image = strings.TrimSpace(*payload.Image)
		}
		if payload.Quantity != nil {
			if *payload.Quantity < 0 {
				v.Add("quantity", "must be a non-negative number")
			}
			p.Quantity = *payload.Quantity
		}
		if err := v.OrNil(); err != nil {
			return err
		}
		if cid := payload.categoryID(); cid != 0 && cid != p.CategoryID {
			if err := requireCategory(ctx, repos, cid); err != nil {
				return err
			}
			p.CategoryID = cid
		}

		if err := repos.Products().Update(ctx, p); err != nil {
			return err
		}
		p, err = repos.Products().Get(ctx, id)
		return err
	})
	if err != nil {
		return failFromError(c, "Failed to update product", err)
	}
	return ok(c, map[string]interface{}{
		"message": "Product updated successfully",
		"product": p,
	})
}

func deleteProduct(c echo.Context) error {
	id, valid := parseIDParam(c, "id")
	if !valid {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid product ID", nil)
	}
	if err := GetStore(c).Products().Delete(c.Request().Context(), id); err != nil {
		return failFromError(c, "Failed to delete product", err)
	}
	return ok(c, map[string]interface{}{
		"message": "Product deleted successfully",
		"id":      cast.ToString(id),
	})
}

// requireCategory fails with ErrNotFound when the category does not exist
func requireCategory(ctx context.Context, repos store.Repositories, id int64) error {
	_, err := repos.Categories().Get(ctx, id)
	return err
}
