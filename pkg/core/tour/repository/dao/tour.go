package dao

import (
	"context"

	"tour-booking/pkg/core/query"
	"tour-booking/pkg/core/repository/dao"
	reviewmodel "tour-booking/pkg/core/review/model"
	"tour-booking/pkg/core/tour/model"
	usermodel "tour-booking/pkg/core/user/model"
)

// PopulateReviews 查询单个项目时请求展开评论
const PopulateReviews = "reviews"

type TourRepository interface {
	dao.Collection[model.Tour]
	Insert(ctx context.Context, t *model.Tour) error
	DeleteAll(ctx context.Context) (int64, error)
}

// GuidePopulator 每次查询都把导游标识符展开为用户资料
func GuidePopulator(users dao.Collection[usermodel.User]) dao.Populator[model.Tour] {
	return func(ctx context.Context, tours []*model.Tour, _ []string) error {
		seen := make(map[string]bool)
		var ids []string
		for _, t := range tours {
			for _, g := range t.Guides {
				if !seen[g.ID] {
					seen[g.ID] = true
					ids = append(ids, g.ID)
				}
			}
		}
		if len(ids) == 0 {
			return nil
		}

		found, err := users.Find(ctx, dao.ByIDs(ids))
		if err != nil {
			return err
		}
		profiles := make(map[string]*usermodel.Profile, len(found))
		for i := range found {
			profiles[found[i].ID] = found[i].Profile()
		}

		for _, t := range tours {
			// 不存在或已注销的导游不出现在结果中
			kept := t.Guides[:0:0]
			for _, g := range t.Guides {
				if p, ok := profiles[g.ID]; ok {
					kept = append(kept, model.GuideRef{ID: g.ID, Profile: p})
				}
			}
			t.Guides = kept
		}
		return nil
	}
}

// ReviewPopulator 显式请求时展开项目的全部评论
func ReviewPopulator(reviews dao.Collection[reviewmodel.Review]) dao.Populator[model.Tour] {
	return func(ctx context.Context, tours []*model.Tour, paths []string) error {
		if !dao.Wants(paths, PopulateReviews) {
			return nil
		}
		for _, t := range tours {
			found, err := reviews.Find(ctx, &query.Features{
				Filter: []query.Condition{{Field: "tour", Op: query.OpEq, Value: t.ID}},
				Sort:   []query.SortField{{Field: query.CreatedAtField, Desc: true}},
			})
			if err != nil {
				return err
			}
			t.Reviews = found
		}
		return nil
	}
}
