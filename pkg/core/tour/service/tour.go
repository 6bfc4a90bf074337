package service

import (
	"context"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	errs "tour-booking/pkg/common/errors"
	"tour-booking/pkg/core/query"
	reviewmodel "tour-booking/pkg/core/review/model"
	"tour-booking/pkg/core/tour/model"
	"tour-booking/pkg/core/tour/repository/dao"
)

const (
	earthRadiusMiles = 3963.2
	earthRadiusKm    = 6378.1

	maxPlanMonths = 12
)

// TourService 统计、月度计划、地理范围查询
type TourService struct {
	tours dao.TourRepository
}

func NewTourService(tours dao.TourRepository) *TourService {
	return &TourService{tours: tours}
}

type DifficultyStats struct {
	Difficulty string  `json:"_id"`
	NumTours   int     `json:"numTours"`
	NumRatings int     `json:"numRatings"`
	AvgRating  float64 `json:"avgRating"`
	AvgPrice   float64 `json:"avgPrice"`
	MinPrice   float64 `json:"minPrice"`
	MaxPrice   float64 `json:"maxPrice"`
}

// Stats 评分不低于 4.5 的项目按难度分组，按平均价格升序，排除 EASY
func (s *TourService) Stats(ctx context.Context) ([]DifficultyStats, error) {
	tours, err := s.tours.Find(ctx, &query.Features{
		Filter: []query.Condition{{
			Field: "ratingsAverage",
			Op:    query.OpGte,
			Value: strconv.FormatFloat(reviewmodel.DefaultRatingsAverage, 'f', -1, 64),
		}},
	})
	if err != nil {
		return nil, err
	}

	groups := make(map[string]*DifficultyStats)
	sums := make(map[string]float64)
	for _, t := range tours {
		key := strings.ToUpper(t.Difficulty)
		g, ok := groups[key]
		if !ok {
			g = &DifficultyStats{Difficulty: key, MinPrice: t.Price, MaxPrice: t.Price}
			groups[key] = g
		}
		g.NumTours++
		g.NumRatings += t.RatingsQuantity
		g.AvgRating += t.RatingsAverage
		sums[key] += t.Price
		g.MinPrice = math.Min(g.MinPrice, t.Price)
		g.MaxPrice = math.Max(g.MaxPrice, t.Price)
	}

	stats := make([]DifficultyStats, 0, len(groups))
	for key, g := range groups {
		if key == strings.ToUpper(model.DifficultyEasy) {
			continue
		}
		g.AvgRating /= float64(g.NumTours)
		g.AvgPrice = sums[key] / float64(g.NumTours)
		stats = append(stats, *g)
	}
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].AvgPrice != stats[j].AvgPrice {
			return stats[i].AvgPrice < stats[j].AvgPrice
		}
		return stats[i].Difficulty < stats[j].Difficulty
	})
	return stats, nil
}

type MonthPlan struct {
	NumTourStarts int      `json:"numTourStarts"`
	Tours         []string `json:"tours"`
	Month         int      `json:"month"`
}

// MonthlyPlan 指定年份内每月出发的项目，按出发次数降序，最多 12 条
func (s *TourService) MonthlyPlan(ctx context.Context, yearParam string) ([]MonthPlan, error) {
	year, err := strconv.Atoi(strings.TrimSpace(yearParam))
	if err != nil {
		return nil, &errs.CastError{Path: "year", Value: yearParam, Err: err}
	}

	tours, err := s.tours.Find(ctx, &query.Features{})
	if err != nil {
		return nil, err
	}

	from := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(1, 0, 0)
	months := make(map[int]*MonthPlan)
	for _, t := range tours {
		for _, d := range t.StartDates {
			d = d.UTC()
			if d.Before(from) || !d.Before(to) {
				continue
			}
			m := int(d.Month())
			p, ok := months[m]
			if !ok {
				p = &MonthPlan{Month: m}
				months[m] = p
			}
			p.NumTourStarts++
			p.Tours = append(p.Tours, t.Name)
		}
	}

	plan := make([]MonthPlan, 0, len(months))
	for _, p := range months {
		plan = append(plan, *p)
	}
	sort.Slice(plan, func(i, j int) bool {
		if plan[i].NumTourStarts != plan[j].NumTourStarts {
			return plan[i].NumTourStarts > plan[j].NumTourStarts
		}
		return plan[i].Month < plan[j].Month
	})
	if len(plan) > maxPlanMonths {
		plan = plan[:maxPlanMonths]
	}
	return plan, nil
}

// Within 出发地点在以 lat,lng 为圆心、distance 为半径范围内的项目；unit 为 mi 时按英里计算，否则按公里
func (s *TourService) Within(ctx context.Context, distanceParam, latlng, unit string) ([]model.Tour, error) {
	lat, lng, err := parseLatLng(latlng)
	if err != nil {
		return nil, err
	}
	distance, err := strconv.ParseFloat(distanceParam, 64)
	if err != nil {
		return nil, &errs.CastError{Path: "distance", Value: distanceParam, Err: err}
	}

	radius := distance / earthRadiusKm
	if unit == "mi" {
		radius = distance / earthRadiusMiles
	}

	tours, err := s.tours.Find(ctx, &query.Features{})
	if err != nil {
		return nil, err
	}
	within := make([]model.Tour, 0)
	for _, t := range tours {
		tLng, tLat, ok := t.StartLocation.LngLat()
		if !ok {
			continue
		}
		if angularDistance(lat, lng, tLat, tLng) <= radius {
			within = append(within, t)
		}
	}
	return within, nil
}

func parseLatLng(latlng string) (lat, lng float64, err error) {
	invalid := errs.BadRequest("Please provide latitude and longitude in the format lat,lng")
	parts := strings.Split(latlng, ",")
	if len(parts) != 2 || strings.TrimSpace(parts[0]) == "" || strings.TrimSpace(parts[1]) == "" {
		return 0, 0, invalid
	}
	if lat, err = strconv.ParseFloat(strings.TrimSpace(parts[0]), 64); err != nil {
		return 0, 0, invalid
	}
	if lng, err = strconv.ParseFloat(strings.TrimSpace(parts[1]), 64); err != nil {
		return 0, 0, invalid
	}
	return lat, lng, nil
}

// angularDistance 两点间的球面角距离（弧度），haversine 公式
func angularDistance(lat1, lng1, lat2, lng2 float64) float64 {
	rad := math.Pi / 180
	dLat := (lat2 - lat1) * rad
	dLng := (lng2 - lng1) * rad
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*rad)*math.Cos(lat2*rad)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}
