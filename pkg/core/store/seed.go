package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bytedance/sonic"
	"github.com/cloudwego/hertz/pkg/common/hlog"
	"github.com/google/uuid"
	"go.uber.org/multierr"

	"tour-booking/pkg/core/query"
	"tour-booking/pkg/core/repository/dao"
	reviewmodel "tour-booking/pkg/core/review/model"
	reviewservice "tour-booking/pkg/core/review/service"
	tourmodel "tour-booking/pkg/core/tour/model"
	usermodel "tour-booking/pkg/core/user/model"
)

// UserImporter 用户导入需要哈希明文密码
type UserImporter interface {
	Import(ctx context.Context, records []map[string]any) ([]*usermodel.User, error)
}

// Dataset 开发数据，引用关系使用原始标识符
type Dataset struct {
	Tours   []map[string]any
	Users   []map[string]any
	Reviews []map[string]any
}

// ReadDataset 读取目录下的 tours.json、users.json、reviews.json
func ReadDataset(dir string) (*Dataset, error) {
	ds := &Dataset{}
	for name, dst := range map[string]*[]map[string]any{
		"tours.json":   &ds.Tours,
		"users.json":   &ds.Users,
		"reviews.json": &ds.Reviews,
	} {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		if err := sonic.Unmarshal(data, dst); err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
	}
	return ds, nil
}

type Seeder struct {
	store   *Store
	users   UserImporter
	ratings *reviewservice.RatingService
}

func NewSeeder(st *Store, users UserImporter) *Seeder {
	return &Seeder{
		store:   st,
		users:   users,
		ratings: reviewservice.NewRatingService(st.Reviews, st.Tours),
	}
}

// Import 依次导入用户、线路、评价，原始标识符映射为新的 UUID
func (s *Seeder) Import(ctx context.Context, ds *Dataset) error {
	ids := idMap{}

	for _, rec := range ds.Users {
		ids.assign(rec)
	}
	users, err := s.users.Import(ctx, ds.Users)
	if err != nil {
		return fmt.Errorf("import users: %w", err)
	}

	for i, rec := range ds.Tours {
		ids.assign(rec)
		if guides, ok := rec["guides"].([]any); ok {
			for j := range guides {
				guides[j] = ids.ref(guides[j])
			}
		}
		if dates, ok := rec["startDates"].([]any); ok {
			for j := range dates {
				dates[j] = normalizeDate(dates[j])
			}
		}

		t, err := dao.Decode[tourmodel.Tour](rec)
		if err != nil {
			return fmt.Errorf("tour #%d: %w", i, err)
		}
		t.ID = rec[query.IDField].(string)
		if err := s.store.Tours.Insert(ctx, t); err != nil {
			return fmt.Errorf("tour #%d: %w", i, err)
		}
	}

	touched := map[string]bool{}
	for i, rec := range ds.Reviews {
		ids.assign(rec)
		rec["tour"] = ids.ref(rec["tour"])
		rec["user"] = ids.ref(rec["user"])

		r, err := dao.Decode[reviewmodel.Review](rec)
		if err != nil {
			return fmt.Errorf("review #%d: %w", i, err)
		}
		r.ID = rec[query.IDField].(string)
		if err := s.store.Reviews.Insert(ctx, r); err != nil {
			return fmt.Errorf("review #%d: %w", i, err)
		}
		touched[r.Tour] = true
	}

	// 与接口写入保持一致：导入评价后重新统计评分
	for tourID := range touched {
		if _, err := s.ratings.Recalculate(ctx, tourID); err != nil {
			hlog.CtxWarnf(ctx, "recalculate ratings for tour %s: %v", tourID, err)
		}
	}

	hlog.CtxInfof(ctx, "imported %d users, %d tours, %d reviews", len(users), len(ds.Tours), len(ds.Reviews))
	return nil
}

// DeleteAll 清空三个集合，包括已注销用户与隐藏线路
func (s *Seeder) DeleteAll(ctx context.Context) error {
	var err error
	for name, coll := range map[string]interface {
		DeleteAll(ctx context.Context) (int64, error)
	}{
		"tours":   s.store.Tours,
		"users":   s.store.Users,
		"reviews": s.store.Reviews,
	} {
		n, delErr := coll.DeleteAll(ctx)
		if delErr != nil {
			err = multierr.Append(err, fmt.Errorf("delete %s: %w", name, delErr))
			continue
		}
		hlog.CtxInfof(ctx, "deleted %d %s", n, name)
	}
	return err
}

// idMap 原始标识符 -> 新 UUID
type idMap map[string]string

func (m idMap) assign(rec map[string]any) {
	newID := uuid.NewString()
	for _, key := range []string{"_id", query.IDField} {
		if old, ok := rec[key].(string); ok && old != "" {
			m[old] = newID
		}
	}
	delete(rec, "_id")
	rec[query.IDField] = newID
}

func (m idMap) ref(v any) any {
	if old, ok := v.(string); ok {
		if id, ok := m[old]; ok {
			return id
		}
	}
	return v
}

// 开发数据中的日期形如 2021-04-25,10:00
var dateLayouts = []string{time.RFC3339, "2006-01-02,15:04", "2006-01-02 15:04", "2006-01-02"}

func normalizeDate(v any) any {
	s, ok := v.(string)
	if !ok {
		return v
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC().Format(time.RFC3339)
		}
	}
	return v
}
