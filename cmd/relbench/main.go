package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/d60-Lab/microblog/config"
	"github.com/d60-Lab/microblog/internal/cache"
	"github.com/d60-Lab/microblog/internal/events"
	"github.com/d60-Lab/microblog/internal/model"
	"github.com/d60-Lab/microblog/internal/repository"
	"github.com/d60-Lab/microblog/internal/service"
	"github.com/d60-Lab/microblog/pkg/database"
)

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

func check(err error) {
	if err != nil {
		panic(err)
	}
}

func envInt(name string, def int) int {
	if s := os.Getenv(name); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			return v
		}
	}
	return def
}

func pct(vs []time.Duration, p float64) time.Duration {
	if len(vs) == 0 {
		return 0
	}
	xs := append([]time.Duration(nil), vs...)
	sort.Slice(xs, func(i, j int) bool { return xs[i] < xs[j] })
	k := int(math.Ceil(p*float64(len(xs)))) - 1
	if k < 0 {
		k = 0
	}
	if k >= len(xs) {
		k = len(xs) - 1
	}
	return xs[k]
}

// runOps 用 conc 个 worker 执行 n 次 op，返回每次耗时与失败数
func runOps(n, conc int, op func(i int) error) ([]time.Duration, int) {
	if conc > n {
		conc = n
	}
	feed := make(chan int, n)
	for i := 0; i < n; i++ {
		feed <- i
	}
	close(feed)

	var (
		mu     sync.Mutex
		recs   = make([]time.Duration, 0, n)
		failed int
		wg     sync.WaitGroup
	)
	for w := 0; w < conc; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range feed {
				st := time.Now()
				err := op(i)
				d := time.Since(st)
				mu.Lock()
				recs = append(recs, d)
				if err != nil {
					failed++
				}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	return recs, failed
}

func report(name string, total time.Duration, recs []time.Duration, failed int) {
	n := len(recs)
	if n == 0 {
		return
	}
	fmt.Printf("%s: total=%v per_op=%v p50=%v p95=%v p99=%v failed=%d\n",
		name, total, total/time.Duration(n), pct(recs, 0.50), pct(recs, 0.95), pct(recs, 0.99), failed)
}

func main() {
	cfg := must(config.Load())
	db := must(database.InitDB(cfg))
	defer database.Close(db)

	N := envInt("N", 2000)
	CONC := envInt("CONC", 4)
	READS := envInt("READS", 1000)

	var profiles cache.ProfileCache = cache.Noop{}
	if cfg.Redis.Enabled() {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		defer rdb.Close()
		profiles = cache.NewRedisProfileCache(rdb, cfg.Redis.ProfileTTL)
	}

	store := repository.NewStore(db)
	rel := service.NewRelationshipService(store, profiles)
	feed := service.NewFeedService(store, profiles)
	ctx := context.Background()

	// celeb 被 N 个新用户关注
	tag := uuid.NewString()[:8]
	celeb := &model.User{Name: "celeb_" + tag, APIKey: uuid.NewString()}
	check(store.Users().Create(ctx, celeb))
	users := make([]model.User, N)
	for i := range users {
		users[i] = model.User{Name: fmt.Sprintf("fan_%s_%d", tag, i), APIKey: uuid.NewString()}
	}
	check(db.CreateInBatches(&users, 1000).Error)

	t0 := time.Now()
	recs, failed := runOps(N, CONC, func(i int) error { return rel.Follow(ctx, users[i].ID, celeb.ID) })
	report("follow", time.Since(t0), recs, failed)

	t1 := time.Now()
	recs, failed = runOps(READS, CONC, func(int) error {
		_, err := feed.GetProfile(ctx, celeb.ID)
		return err
	})
	report(fmt.Sprintf("get_profile(followers=%d)", N), time.Since(t1), recs, failed)
	if c, ok := profiles.(*cache.RedisProfileCache); ok {
		hits, misses := c.Counters()
		fmt.Printf("profile cache: hits=%d misses=%d\n", hits, misses)
	}

	t2 := time.Now()
	recs, failed = runOps(N, CONC, func(i int) error { return rel.Unfollow(ctx, users[i].ID, celeb.ID) })
	report("unfollow", time.Since(t2), recs, failed)

	// 把本轮写入的 outbox 事件投递到日志 sink，统计落地耗时
	relay := events.NewRelay(store.Outbox(), events.LogSink{}, cfg.Events)
	t3 := time.Now()
	delivered := 0
	for {
		n, err := relay.ProcessOnce(ctx)
		if err != nil {
			fmt.Printf("relay error: %v\n", err)
			break
		}
		if n == 0 {
			break
		}
		delivered += n
	}
	fmt.Printf("outbox drain: events=%d total=%v\n", delivered, time.Since(t3))
	fmt.Printf("N=%d CONC=%d READS=%d\n", N, CONC, READS)
}
