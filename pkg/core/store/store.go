package store

import (
	"database/sql"
	"fmt"

	"gorm.io/gorm"

	"tour-booking/pkg/common/config"
	reviewmodel "tour-booking/pkg/core/review/model"
	reviewdao "tour-booking/pkg/core/review/repository/dao"
	reviewimpl "tour-booking/pkg/core/review/repository/dao/impl"
	reviewmem "tour-booking/pkg/core/review/repository/dao/memdao"
	tourmodel "tour-booking/pkg/core/tour/model"
	tourdao "tour-booking/pkg/core/tour/repository/dao"
	tourimpl "tour-booking/pkg/core/tour/repository/dao/impl"
	tourmem "tour-booking/pkg/core/tour/repository/dao/memdao"
	usermodel "tour-booking/pkg/core/user/model"
	userdao "tour-booking/pkg/core/user/repository/dao"
	userimpl "tour-booking/pkg/core/user/repository/dao/impl"
	usermem "tour-booking/pkg/core/user/repository/dao/memdao"
)

// Store 三个集合及其底层连接
type Store struct {
	Driver  string
	Users   userdao.UserRepository
	Tours   tourdao.TourRepository
	Reviews reviewdao.ReviewRepository

	sqlDB *sql.DB
}

// Open 按 DB_DRIVER 选择存储；mysql 会在启动时自动迁移表结构
func Open(cfg *config.Config) (*Store, error) {
	if cfg.Database.Driver == config.DriverMemory {
		return NewMemory(), nil
	}

	db, err := cfg.InitDB()
	if err != nil {
		return nil, err
	}
	for _, migrate := range []func(*gorm.DB) error{
		usermodel.AutoMigrate,
		reviewmodel.AutoMigrate,
		tourmodel.AutoMigrate,
	} {
		if err := migrate(db); err != nil {
			return nil, fmt.Errorf("auto migrate: %w", err)
		}
	}
	return NewGorm(db)
}

func NewGorm(db *gorm.DB) (*Store, error) {
	users, err := userimpl.NewUserRepository(db)
	if err != nil {
		return nil, err
	}
	reviews, err := reviewimpl.NewReviewRepository(db, users)
	if err != nil {
		return nil, err
	}
	tours, err := tourimpl.NewTourRepository(db, users, reviews)
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}
	return &Store{
		Driver:  config.DriverMySQL,
		Users:   users,
		Tours:   tours,
		Reviews: reviews,
		sqlDB:   sqlDB,
	}, nil
}

// NewMemory 进程内存储，重启即丢失
func NewMemory() *Store {
	users := usermem.NewUserRepository()
	reviews := reviewmem.NewReviewRepository(users)
	return &Store{
		Driver:  config.DriverMemory,
		Users:   users,
		Tours:   tourmem.NewTourRepository(users, reviews),
		Reviews: reviews,
	}
}

// DB 底层连接，进程内存储返回 nil
func (s *Store) DB() *sql.DB {
	return s.sqlDB
}

func (s *Store) Close() error {
	if s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}
