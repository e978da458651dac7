package adminapi

import (
	"bytes"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/spf13/cast"
	"github.com/talkincode/stockroom/internal/domain"
	"github.com/talkincode/stockroom/internal/inventory"
	"github.com/talkincode/stockroom/internal/store"
	"github.com/talkincode/stockroom/internal/webserver"
	"github.com/talkincode/stockroom/pkg/common"
	"go.uber.org/zap"
)

// errorBody is the shape of every error response
type errorBody struct {
	Code    string              `json:"code"`
	Message string              `json:"message"`
	Error   interface{}         `json:"error,omitempty"`
	Fields  []domain.FieldError `json:"fields,omitempty"`
}

func ok(c echo.Context, data interface{}) error {
	return c.JSON(http.StatusOK, data)
}

func created(c echo.Context, data interface{}) error {
	return c.JSON(http.StatusCreated, data)
}

func paged(c echo.Context, data interface{}, total int64, page, perPage int) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"data":    data,
		"total":   total,
		"page":    page,
		"perPage": perPage,
	})
}

// parsePagination reads page and perPage (or the legacy pageSize). It reports
// false when the request asks for no paging.
func parsePagination(c echo.Context) (page, perPage int, paging bool) {
	pageStr := strings.TrimSpace(c.QueryParam("page"))
	perPageStr := strings.TrimSpace(c.QueryParam("perPage"))
	if perPageStr == "" {
		perPageStr = strings.TrimSpace(c.QueryParam("pageSize"))
	}
	if pageStr == "" && perPageStr == "" {
		return 0, 0, false
	}
	page, perPage = 1, 20
	if p := cast.ToInt(pageStr); p > 0 {
		page = p
	}
	if ps := cast.ToInt(perPageStr); ps > 0 && ps <= 500 {
		perPage = ps
	}
	return page, perPage, true
}

func fail(c echo.Context, status int, code, msg string, detail interface{}) error {
	return c.JSON(status, errorBody{Code: code, Message: msg, Error: detail})
}

// failFromError maps the domain error taxonomy onto HTTP statuses
func failFromError(c echo.Context, msg string, err error) error {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		return c.JSON(http.StatusBadRequest, errorBody{
			Code:    "INVALID_REQUEST",
			Message: msg + ": " + verr.Error(),
			Fields:  verr.Fields,
		})
	case errors.Is(err, domain.ErrNotFound):
		return fail(c, http.StatusNotFound, "NOT_FOUND", msg+": "+err.Error(), nil)
	case errors.Is(err, domain.ErrConflict):
		return fail(c, http.StatusConflict, "CONFLICT", msg+": "+err.Error(), nil)
	default:
		zap.L().Error(msg, zap.String("path", c.Path()), zap.Error(err))
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", msg, err.Error())
	}
}

// GetStore returns the store of the application bound to the request
func GetStore(c echo.Context) store.Store {
	return webserver.GetAppContext(c).Store()
}

// GetInventory returns the stock movement service
func GetInventory(c echo.Context) *inventory.Service {
	return webserver.GetAppContext(c).Inventory()
}

func parseIDParam(c echo.Context, name string) (int64, bool) {
	return common.ParseID(c.Param(name))
}

// parseLimit reads a non-negative limit query parameter; 0 means no limit
func parseLimit(c echo.Context, def int) int {
	v := strings.TrimSpace(c.QueryParam("limit"))
	if v == "" {
		return def
	}
	n, err := cast.ToIntE(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}

// flexID accepts an id sent either as a JSON string or as a JSON number
type flexID int64

func (f *flexID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*f = 0
		return nil
	}
	s := strings.Trim(string(b), `"`)
	if s == "" {
		*f = 0
		return nil
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return errors.New("id must be a decimal integer")
	}
	*f = flexID(id)
	return nil
}

func firstID(ids ...flexID) int64 {
	for _, id := range ids {
		if id != 0 {
			return int64(id)
		}
	}
	return 0
}
