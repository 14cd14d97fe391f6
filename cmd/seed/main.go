package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/brianvoe/gofakeit/v6"

	"github.com/d60-Lab/microblog/config"
	"github.com/d60-Lab/microblog/internal/repository"
	"github.com/d60-Lab/microblog/internal/seed"
	"github.com/d60-Lab/microblog/pkg/database"
	"github.com/d60-Lab/microblog/pkg/logger"
)

func main() {
	fake := flag.Int("fake", 0, "额外生成的随机用户数")
	fakeSeed := flag.Int64("fake-seed", 0, "gofakeit 随机种子，0 表示随机")
	flag.Parse()

	if err := run(*fake, *fakeSeed); err != nil {
		fmt.Fprintln(os.Stderr, "seed:", err)
		os.Exit(1)
	}
}

func run(fake int, fakeSeed int64) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := logger.Init(cfg.Log.Level, cfg.Log.Format); err != nil {
		return err
	}
	defer logger.Sync()

	db, err := database.InitDB(cfg)
	if err != nil {
		return err
	}
	defer database.Close(db)

	ctx := context.Background()
	store := repository.NewStore(db)
	if err := seed.Apply(ctx, store, cfg.Seed); err != nil {
		return err
	}
	if fake <= 0 {
		return nil
	}

	users, err := seed.Fake(ctx, store, gofakeit.New(fakeSeed), fake)
	for _, u := range users {
		fmt.Printf("%d\t%s\t%s\n", u.ID, u.Name, u.APIKey)
	}
	return err
}
