package service

import (
	"context"

	"github.com/cloudwego/hertz/pkg/common/hlog"

	"tour-booking/pkg/core/repository/dao"
	"tour-booking/pkg/core/review/model"
	reviewdao "tour-booking/pkg/core/review/repository/dao"
	tourdao "tour-booking/pkg/core/tour/repository/dao"
)

// RatingService 评论写入后重新计算项目的评分汇总
type RatingService struct {
	reviews reviewdao.ReviewRepository
	tours   tourdao.TourRepository
}

func NewRatingService(reviews reviewdao.ReviewRepository, tours tourdao.TourRepository) *RatingService {
	return &RatingService{reviews: reviews, tours: tours}
}

// Recalculate 没有评论时恢复为 0 条、4.5 分
func (s *RatingService) Recalculate(ctx context.Context, tourID string) (model.RatingStats, error) {
	reviews, err := s.reviews.Find(ctx, dao.Where("tour", tourID))
	if err != nil {
		return model.RatingStats{}, err
	}

	stats := model.Summarize(reviews)
	_, err = s.tours.UpdateByID(ctx, tourID, map[string]any{
		"ratingsQuantity": stats.Quantity,
		"ratingsAverage":  stats.Average,
	})
	return stats, err
}

// AfterWrite 评论创建、更新、删除后的触发器；失败只记录日志，不影响写入结果
func (s *RatingService) AfterWrite(ctx context.Context, r *model.Review) {
	if r == nil || r.Tour == "" {
		return
	}
	stats, err := s.Recalculate(ctx, r.Tour)
	if err != nil {
		hlog.CtxErrorf(ctx, "recalculate ratings of tour %s: %v", r.Tour, err)
		return
	}
	hlog.CtxDebugf(ctx, "tour %s ratings: quantity=%d average=%.2f", r.Tour, stats.Quantity, stats.Average)
}
