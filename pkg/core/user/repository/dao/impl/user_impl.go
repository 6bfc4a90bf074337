package impl

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	base "tour-booking/pkg/core/repository/dao/impl"
	"tour-booking/pkg/core/user/model"
	"tour-booking/pkg/core/user/repository/dao"
)

type GormUserRepository struct {
	*base.GormCollection[model.User]
}

var _ dao.UserRepository = (*GormUserRepository)(nil)

func NewUserRepository(db *gorm.DB) (*GormUserRepository, error) {
	coll, err := base.NewGormCollection[model.User](db,
		base.WithScopes[model.User](model.ActiveScope),
	)
	if err != nil {
		return nil, err
	}
	return &GormUserRepository{GormCollection: coll}, nil
}

func (r *GormUserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.FindOne(ctx, clause.Eq{
		Column: clause.Column{Name: "email"},
		Value:  strings.ToLower(strings.TrimSpace(email)),
	})
}

func (r *GormUserRepository) FindByResetToken(ctx context.Context, hashed string, now time.Time) (*model.User, error) {
	return r.FindOne(ctx,
		clause.Eq{Column: clause.Column{Name: "password_reset_token"}, Value: hashed},
		clause.Gt{Column: clause.Column{Name: "password_reset_expires"}, Value: now},
	)
}
