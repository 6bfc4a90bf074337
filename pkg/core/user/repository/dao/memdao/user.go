package memdao

import (
	"context"
	"strings"
	"time"

	base "tour-booking/pkg/core/repository/dao/memdao"
	"tour-booking/pkg/core/user/model"
	"tour-booking/pkg/core/user/repository/dao"
)

type MemUserRepository struct {
	*base.MemCollection[model.User]
}

var _ dao.UserRepository = (*MemUserRepository)(nil)

func NewUserRepository() *MemUserRepository {
	return &MemUserRepository{
		MemCollection: base.NewMemCollection[model.User](
			base.WithScopes[model.User](model.IsActive),
			base.WithUnique[model.User]("email"),
		),
	}
}

func (r *MemUserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return r.FindFunc(ctx, func(u *model.User) bool {
		return u.Email == email
	})
}

func (r *MemUserRepository) FindByResetToken(ctx context.Context, hashed string, now time.Time) (*model.User, error) {
	return r.FindFunc(ctx, func(u *model.User) bool {
		return u.PasswordResetToken != nil && *u.PasswordResetToken == hashed &&
			u.PasswordResetExpires != nil && u.PasswordResetExpires.After(now)
	})
}
