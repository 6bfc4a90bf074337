package memdao

import (
	basedao "tour-booking/pkg/core/repository/dao"
	base "tour-booking/pkg/core/repository/dao/memdao"
	"tour-booking/pkg/core/review/model"
	"tour-booking/pkg/core/review/repository/dao"
	usermodel "tour-booking/pkg/core/user/model"
)

type MemReviewRepository struct {
	*base.MemCollection[model.Review]
}

var _ dao.ReviewRepository = (*MemReviewRepository)(nil)

// NewReviewRepository 每个用户对同一个旅游项目只能评论一次
func NewReviewRepository(users basedao.Collection[usermodel.User]) *MemReviewRepository {
	return &MemReviewRepository{
		MemCollection: base.NewMemCollection[model.Review](
			base.WithUnique[model.Review]("tour", "user"),
			base.WithPopulators(dao.AuthorPopulator(users)),
		),
	}
}
