package webserver

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/labstack/echo-contrib/echoprometheus"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/talkincode/stockroom/internal/app"
	"go.uber.org/zap"
)

const (
	// ApiPrefix is the mount point of every inventory API route
	ApiPrefix = "/api/v1"

	appContextKey = "appctx"
)

// AdminServer is the HTTP front of the inventory API
type AdminServer struct {
	root   *echo.Echo
	api    *echo.Group
	appCtx app.AppContext

	mu     sync.RWMutex
	public map[string]bool
}

var server *AdminServer

// Init builds the package server that the Api* helpers register routes on.
func Init(appCtx app.AppContext) *AdminServer {
	server = NewAdminServer(appCtx)
	return server
}

// NewAdminServer creates an echo instance with logging, recovery, metrics,
// CORS and (when enabled) bearer authentication on the API group.
func NewAdminServer(appCtx app.AppContext) *AdminServer {
	cfg := appCtx.Config()
	s := &AdminServer{appCtx: appCtx, public: map[string]bool{}}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.JSONSerializer = &JSONSerializer{}
	e.HTTPErrorHandler = httpErrorHandler

	reg := prometheus.NewRegistry()
	e.Use(middleware.Recover())
	e.Use(zapRequestLogger())
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Subsystem:  "stockroom",
		Registerer: reg,
	}))
	if origins := splitOrigins(cfg.Web.CorsOrigins); len(origins) > 0 {
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins: origins,
			AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		}))
	}
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set(appContextKey, appCtx)
			return next(c)
		}
	})

	e.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{Gatherer: reg}))
	e.GET("/healthz", s.healthz)

	api := e.Group(ApiPrefix)
	if cfg.Web.AuthEnable {
		api.Use(echojwt.WithConfig(echojwt.Config{
			SigningKey: []byte(cfg.Web.Secret),
			Skipper:    s.isPublic,
			ErrorHandler: func(c echo.Context, err error) error {
				return c.JSON(http.StatusUnauthorized, map[string]interface{}{
					"code":    "UNAUTHORIZED",
					"message": "Missing or invalid bearer token",
				})
			},
		}))
	}

	s.root = e
	s.api = api
	return s
}

// Handler exposes the server for httptest
func (s *AdminServer) Handler() http.Handler {
	return s.root
}

// Start serves until Shutdown is called
func (s *AdminServer) Start() error {
	addr := s.appCtx.Config().Web.Addr()
	zap.S().Infof("Starting inventory API on %s", addr)
	err := s.root.Start(addr)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *AdminServer) Shutdown(ctx context.Context) error {
	return s.root.Shutdown(ctx)
}

func (s *AdminServer) isPublic(c echo.Context) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.public[c.Request().Method+" "+c.Path()]
}

func (s *AdminServer) markPublic(method, path string) {
	s.mu.Lock()
	s.public[method+" "+ApiPrefix+path] = true
	s.mu.Unlock()
}

func (s *AdminServer) healthz(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()
	if err := s.appCtx.Store().Ping(ctx); err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]interface{}{
			"status":  "unavailable",
			"message": err.Error(),
		})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"status": "ok"})
}

// GetAppContext returns the application bound to the request
func GetAppContext(c echo.Context) app.AppContext {
	return c.Get(appContextKey).(app.AppContext)
}

func ApiGET(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) {
	server.api.GET(path, h, m...)
}

func ApiPOST(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) {
	server.api.POST(path, h, m...)
}

func ApiPUT(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) {
	server.api.PUT(path, h, m...)
}

func ApiDELETE(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) {
	server.api.DELETE(path, h, m...)
}

// ApiPublicPOST registers a POST route that skips bearer authentication
func ApiPublicPOST(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) {
	server.markPublic(http.MethodPost, path)
	server.api.POST(path, h, m...)
}

func splitOrigins(s string) []string {
	var out []string
	for _, o := range strings.Split(s, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// httpErrorHandler keeps echo's own errors (404 route, 405, bind) in the
// {code, message} shape used by the API handlers.
func httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	code := http.StatusInternalServerError
	msg := http.StatusText(code)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		if m, ok := he.Message.(string); ok {
			msg = m
		} else {
			msg = http.StatusText(code)
		}
	} else {
		zap.L().Error("unhandled request error", zap.String("path", c.Path()), zap.Error(err))
	}
	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(code)
		return
	}
	_ = c.JSON(code, map[string]interface{}{
		"code":    strings.ToUpper(strings.ReplaceAll(http.StatusText(code), " ", "_")),
		"message": msg,
	})
}
