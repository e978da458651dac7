package app

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/talkincode/stockroom/internal/domain"
	"github.com/talkincode/stockroom/pkg/common"
	"go.uber.org/zap"
)

const (
	superUsername   = "admin"
	defaultPassword = "stockroom"
)

// checkSuper creates the default admin operator, or repairs it when it was
// left without a password, level or enabled status.
func (a *Application) checkSuper(ctx context.Context) {
	ops := a.store.Operators()
	operator, err := ops.GetByUsername(ctx, superUsername)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		hashedPassword, err := common.HashPassword(defaultPassword)
		if err != nil {
			zap.L().Error("failed to hash default password", zap.Error(err))
			return
		}
		if err := ops.Create(ctx, &domain.Operator{
			Username:     superUsername,
			PasswordHash: hashedPassword,
			Level:        "super",
			Status:       domain.OperatorEnabled,
			LastLogin:    time.Now(),
		}); err != nil {
			zap.L().Error("failed to create default super admin", zap.Error(err))
		} else {
			zap.L().Info("initialized default super admin account", zap.String("username", superUsername))
		}
		return
	case err != nil:
		zap.L().Error("failed to query super admin", zap.Error(err))
		return
	}

	resetPassword := strings.TrimSpace(operator.PasswordHash) == ""
	resetLevel := !strings.EqualFold(operator.Level, "super")
	resetStatus := !strings.EqualFold(operator.Status, domain.OperatorEnabled)

	if !resetPassword && !resetLevel && !resetStatus {
		return
	}

	if resetPassword {
		hashedPassword, err := common.HashPassword(defaultPassword)
		if err != nil {
			zap.L().Error("failed to hash default password", zap.Error(err))
			return
		}
		operator.PasswordHash = hashedPassword
	}
	if resetLevel {
		operator.Level = "super"
	}
	if resetStatus {
		operator.Status = domain.OperatorEnabled
	}

	if err := ops.Update(ctx, operator); err != nil {
		zap.L().Error("failed to repair super admin account", zap.Error(err))
		return
	}

	zap.L().Warn("repaired default super admin account",
		zap.String("username", superUsername),
		zap.Bool("passwordReset", resetPassword),
		zap.Bool("levelReset", resetLevel),
		zap.Bool("statusEnabled", resetStatus))
}
