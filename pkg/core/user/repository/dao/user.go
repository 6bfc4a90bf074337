package dao

import (
	"context"
	"time"

	"tour-booking/pkg/core/repository/dao"
	"tour-booking/pkg/core/user/model"
)

type UserRepository interface {
	dao.Collection[model.User]
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	// FindByResetToken 按哈希后的重置令牌查找，过期令牌视为不存在
	FindByResetToken(ctx context.Context, hashed string, now time.Time) (*model.User, error)
	Insert(ctx context.Context, u *model.User) error
	DeleteAll(ctx context.Context) (int64, error)
}
