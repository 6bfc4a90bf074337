package dao

import (
	"context"

	"tour-booking/pkg/core/repository/dao"
	"tour-booking/pkg/core/review/model"
	usermodel "tour-booking/pkg/core/user/model"
)

type ReviewRepository interface {
	dao.Collection[model.Review]
	Insert(ctx context.Context, r *model.Review) error
	DeleteAll(ctx context.Context) (int64, error)
}

// AuthorPopulator 用作者的 name、photo 展开评论
func AuthorPopulator(users dao.Collection[usermodel.User]) dao.Populator[model.Review] {
	return func(ctx context.Context, reviews []*model.Review, _ []string) error {
		ids := make([]string, 0, len(reviews))
		seen := make(map[string]bool, len(reviews))
		for _, r := range reviews {
			if r.User != "" && !seen[r.User] {
				seen[r.User] = true
				ids = append(ids, r.User)
			}
		}
		if len(ids) == 0 {
			return nil
		}

		found, err := users.Find(ctx, dao.ByIDs(ids))
		if err != nil {
			return err
		}
		byID := make(map[string]*usermodel.User, len(found))
		for i := range found {
			byID[found[i].ID] = &found[i]
		}
		for _, r := range reviews {
			if u, ok := byID[r.User]; ok {
				r.Author = u.Author()
			}
		}
		return nil
	}
}
