package main

import (
	"context"
	"flag"
	"os"

	"github.com/cloudwego/hertz/pkg/common/hlog"

	"tour-booking/pkg/common/config"
	"tour-booking/pkg/core/store"
	userservice "tour-booking/pkg/core/user/service"
)

// go run ./cmd/seed -import [-dir dev-data/data]
// go run ./cmd/seed -delete
func main() {
	doImport := flag.Bool("import", false, "import tours, users and reviews")
	doDelete := flag.Bool("delete", false, "delete all tours, users and reviews")
	dir := flag.String("dir", "dev-data/data", "directory holding tours.json, users.json, reviews.json")
	flag.Parse()

	if *doImport == *doDelete {
		flag.Usage()
		os.Exit(2)
	}

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		hlog.Fatalf("invalid config: %v", err)
	}
	if cfg.Database.Driver == config.DriverMemory {
		hlog.Warn("memory storage is process-local, seeded data is discarded on exit")
	}

	st, err := store.Open(cfg)
	if err != nil {
		hlog.Fatalf("failed to initialize database: %v", err)
	}
	defer st.Close()

	users := userservice.NewUserService(st.Users, nil, userservice.Options{
		BcryptCost: cfg.Auth.BcryptCost,
	})
	seeder := store.NewSeeder(st, users)
	ctx := context.Background()

	if *doDelete {
		if err := seeder.DeleteAll(ctx); err != nil {
			hlog.Fatalf("delete data: %v", err)
		}
		hlog.Info("Data successfully deleted")
		return
	}

	ds, err := store.ReadDataset(*dir)
	if err != nil {
		hlog.Fatalf("read data: %v", err)
	}
	if err := seeder.Import(ctx, ds); err != nil {
		hlog.Fatalf("import data: %v", err)
	}
	hlog.Info("Data successfully loaded")
}
