package model

import (
	"strings"

	"gorm.io/gorm"

	"tour-booking/pkg/common/document"
	errs "tour-booking/pkg/common/errors"
	usermodel "tour-booking/pkg/core/user/model"
)

type Review struct {
	document.Base
	Review string  `gorm:"type:text;not null" json:"review"`
	Rating float64 `gorm:"not null;default:0" json:"rating,omitempty"`
	Tour   string  `gorm:"type:char(36);not null;uniqueIndex:idx_reviews_tour_user,priority:1" json:"tour"`
	User   string  `gorm:"type:char(36);not null;uniqueIndex:idx_reviews_tour_user,priority:2;index" json:"user"`

	// 查询后展开，不落库
	Author *usermodel.Author `gorm:"-" json:"author,omitempty"`
}

// TableName 定义映射表名
func (Review) TableName() string {
	return "reviews"
}

func AutoMigrate(db *gorm.DB) error {
	return db.Set("gorm:table_options", "COMMENT='评论表'").
		AutoMigrate(&Review{})
}

func (*Review) ReadOnlyKeys() []string {
	return []string{"author"}
}

func (r *Review) Prepare() {
	r.Review = strings.TrimSpace(r.Review)
	r.Tour = strings.TrimSpace(r.Tour)
	r.User = strings.TrimSpace(r.User)
}

func (r *Review) Validate() error {
	v := &errs.ValidationError{}
	if r.Review == "" {
		v.Add("review", "Review can not be empty!")
	}
	// 未评分（0）允许，统计平均分时忽略
	if r.Rating != 0 && r.Rating < 1 {
		v.Add("rating", "Rating must be above 1.0")
	}
	if r.Rating > 5 {
		v.Add("rating", "Rating must be below 5.0")
	}
	switch {
	case r.Tour == "":
		v.Add("tour", "Review must belong to a tour.")
	case !document.ValidID(r.Tour):
		v.Add("tour", "Invalid tour: "+r.Tour)
	}
	switch {
	case r.User == "":
		v.Add("user", "Review must belong to a user.")
	case !document.ValidID(r.User):
		v.Add("user", "Invalid user: "+r.User)
	}
	return v.ErrOrNil()
}

// RatingStats 某个旅游项目的评分汇总
type RatingStats struct {
	Quantity int
	Average  float64
}

// DefaultRatingsAverage 没有评分时的平均分
const DefaultRatingsAverage = 4.5

// Summarize 汇总评分，未评分的评论不参与平均
func Summarize(reviews []Review) RatingStats {
	var sum float64
	var rated int
	for _, r := range reviews {
		if r.Rating == 0 {
			continue
		}
		sum += r.Rating
		rated++
	}
	if rated == 0 {
		return RatingStats{Quantity: len(reviews), Average: DefaultRatingsAverage}
	}
	return RatingStats{Quantity: len(reviews), Average: sum / float64(rated)}
}
