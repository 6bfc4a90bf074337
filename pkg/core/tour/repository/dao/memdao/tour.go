package memdao

import (
	basedao "tour-booking/pkg/core/repository/dao"
	base "tour-booking/pkg/core/repository/dao/memdao"
	reviewmodel "tour-booking/pkg/core/review/model"
	"tour-booking/pkg/core/tour/model"
	"tour-booking/pkg/core/tour/repository/dao"
	usermodel "tour-booking/pkg/core/user/model"
)

type MemTourRepository struct {
	*base.MemCollection[model.Tour]
}

var _ dao.TourRepository = (*MemTourRepository)(nil)

func NewTourRepository(
	users basedao.Collection[usermodel.User],
	reviews basedao.Collection[reviewmodel.Review],
) *MemTourRepository {
	return &MemTourRepository{
		MemCollection: base.NewMemCollection[model.Tour](
			base.WithScopes[model.Tour](model.IsVisible),
			base.WithUnique[model.Tour]("name"),
			base.WithPopulators(dao.GuidePopulator(users), dao.ReviewPopulator(reviews)),
		),
	}
}
