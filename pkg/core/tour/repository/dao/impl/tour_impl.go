package impl

import (
	"gorm.io/gorm"

	basedao "tour-booking/pkg/core/repository/dao"
	base "tour-booking/pkg/core/repository/dao/impl"
	reviewmodel "tour-booking/pkg/core/review/model"
	"tour-booking/pkg/core/tour/model"
	"tour-booking/pkg/core/tour/repository/dao"
	usermodel "tour-booking/pkg/core/user/model"
)

type GormTourRepository struct {
	*base.GormCollection[model.Tour]
}

var _ dao.TourRepository = (*GormTourRepository)(nil)

func NewTourRepository(
	db *gorm.DB,
	users basedao.Collection[usermodel.User],
	reviews basedao.Collection[reviewmodel.Review],
) (*GormTourRepository, error) {
	coll, err := base.NewGormCollection[model.Tour](db,
		base.WithScopes[model.Tour](model.VisibleScope),
		base.WithPopulators(dao.GuidePopulator(users), dao.ReviewPopulator(reviews)),
	)
	if err != nil {
		return nil, err
	}
	return &GormTourRepository{GormCollection: coll}, nil
}
