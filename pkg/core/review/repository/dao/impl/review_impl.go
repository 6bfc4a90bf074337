package impl

import (
	"gorm.io/gorm"

	basedao "tour-booking/pkg/core/repository/dao"
	base "tour-booking/pkg/core/repository/dao/impl"
	"tour-booking/pkg/core/review/model"
	"tour-booking/pkg/core/review/repository/dao"
	usermodel "tour-booking/pkg/core/user/model"
)

type GormReviewRepository struct {
	*base.GormCollection[model.Review]
}

var _ dao.ReviewRepository = (*GormReviewRepository)(nil)

func NewReviewRepository(db *gorm.DB, users basedao.Collection[usermodel.User]) (*GormReviewRepository, error) {
	coll, err := base.NewGormCollection[model.Review](db,
		base.WithPopulators(dao.AuthorPopulator(users)),
	)
	if err != nil {
		return nil, err
	}
	return &GormReviewRepository{GormCollection: coll}, nil
}
