package adminapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/spf13/cast"
	"github.com/talkincode/stockroom/internal/domain"
	"github.com/talkincode/stockroom/internal/webserver"
	"github.com/talkincode/stockroom/pkg/common"
	"go.uber.org/zap"
)

const minPasswordLength = 6

type credentialsPayload struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (p credentialsPayload) validate() error {
	v := &domain.ValidationError{}
	if common.IsEmpty(p.Username) {
		v.Add("username", "is required")
	}
	if len(p.Password) < minPasswordLength {
		v.Add("password", "must be at least 6 characters")
	}
	return v.OrNil()
}

func registerOperatorRoutes() {
	webserver.ApiPublicPOST("/users/register", registerOperator)
	webserver.ApiPublicPOST("/users/login", loginOperator)
}

func registerOperator(c echo.Context) error {
	var payload credentialsPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse credentials", err.Error())
	}
	if err := payload.validate(); err != nil {
		return failFromError(c, "Invalid registration", err)
	}
	hash, err := common.HashPassword(payload.Password)
	if err != nil {
		return failFromError(c, "Failed to register user", err)
	}
	op := &domain.Operator{
		Username:     strings.TrimSpace(payload.Username),
		PasswordHash: hash,
		Level:        "operator",
		Status:       domain.OperatorEnabled,
	}
	if err := GetStore(c).Operators().Create(c.Request().Context(), op); err != nil {
		return failFromError(c, "Failed to register user", err)
	}
	return created(c, map[string]interface{}{
		"message": "User registered successfully",
		"user":    op,
	})
}

func loginOperator(c echo.Context) error {
	var payload credentialsPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse credentials", err.Error())
	}
	ctx := c.Request().Context()
	ops := GetStore(c).Operators()
	op, err := ops.GetByUsername(ctx, strings.TrimSpace(payload.Username))
	if err != nil || !common.CheckPassword(op.PasswordHash, payload.Password) {
		return fail(c, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid username or password", nil)
	}
	if op.Status != domain.OperatorEnabled {
		return fail(c, http.StatusForbidden, "FORBIDDEN", "User is disabled", nil)
	}

	cfg := webserver.GetAppContext(c).Config().Web
	token, expires, err := issueToken(op, cfg.Secret, time.Duration(cfg.TokenTTL)*time.Hour)
	if err != nil {
		return failFromError(c, "Failed to issue token", err)
	}

	op.LastLogin = time.Now()
	if err := ops.Update(ctx, op); err != nil {
		zap.L().Warn("update last login failed", zap.String("username", op.Username), zap.Error(err))
	}
	return ok(c, map[string]interface{}{
		"message":    "Login successful",
		"token":      token,
		"expires_at": expires,
		"user":       op,
	})
}

// issueToken signs an HS256 bearer token for op
func issueToken(op *domain.Operator, secret string, ttl time.Duration) (string, time.Time, error) {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	now := time.Now()
	expires := now.Add(ttl)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Subject:   cast.ToString(op.ID),
		Audience:  jwt.ClaimStrings{op.Level},
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expires),
	})
	signed, err := token.SignedString([]byte(secret))
	return signed, expires, err
}
