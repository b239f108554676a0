package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/d60-Lab/classifieds-api/config"
	"github.com/d60-Lab/classifieds-api/internal/model"
	"github.com/d60-Lab/classifieds-api/internal/repository"
	"github.com/d60-Lab/classifieds-api/pkg/database"
)

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

func envInt(name string, def int) int {
	if s := os.Getenv(name); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return def
}

// 并发消费下载配额，验证授权总数不会超过 max_downloads
func main() {
	cfg := must(config.Load())
	db := must(database.InitDB(cfg))
	repo := repository.NewPdfBookRepository(db)
	ctx := context.Background()

	PURCHASES := envInt("PURCHASES", 100)
	MAX := envInt("MAX", 5)
	ATTEMPTS := envInt("ATTEMPTS", 20)
	CONC := envInt("CONC", 32)

	book := &model.PdfBook{
		Title:    "quotabench-" + uuid.NewString()[:8],
		Price:    decimal.NewFromInt(1),
		FilePath: "books/quotabench.pdf",
		IsActive: true,
	}
	if err := db.Create(book).Error; err != nil {
		panic(err)
	}

	ids := make([]uint, PURCHASES)
	for i := 0; i < PURCHASES; i++ {
		p := &model.PdfBookPurchase{
			UserID:        uint(1_000_000 + i),
			PdfBookID:     book.ID,
			Status:        model.PurchaseStatusActive,
			AmountPaid:    book.Price,
			DownloadToken: uuid.NewString(),
			MaxDownloads:  MAX,
		}
		if err := repo.CreatePurchase(ctx, p); err != nil {
			panic(err)
		}
		ids[i] = p.ID
	}

	// 每个购买记录尝试 ATTEMPTS 次
	feed := make(chan uint, PURCHASES*ATTEMPTS)
	for a := 0; a < ATTEMPTS; a++ {
		for _, id := range ids {
			feed <- id
		}
	}
	close(feed)

	granted := make([]int64, PURCHASES)
	index := make(map[uint]int, PURCHASES)
	for i, id := range ids {
		index[id] = i
	}

	var refused, failed int64
	lat := make(chan time.Duration, PURCHASES*ATTEMPTS)

	workers := CONC
	if workers > PURCHASES*ATTEMPTS {
		workers = PURCHASES * ATTEMPTS
	}
	t0 := time.Now()
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for id := range feed {
				st := time.Now()
				_, ok, err := repo.ConsumeDownload(ctx, id, time.Now())
				lat <- time.Since(st)
				switch {
				case err != nil:
					atomic.AddInt64(&failed, 1)
				case ok:
					atomic.AddInt64(&granted[index[id]], 1)
				default:
					atomic.AddInt64(&refused, 1)
				}
			}
		}()
	}
	wg.Wait()
	close(lat)
	total := time.Since(t0)

	recs := make([]time.Duration, 0, PURCHASES*ATTEMPTS)
	for d := range lat {
		recs = append(recs, d)
	}

	pct := func(vs []time.Duration, p float64) time.Duration {
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

	// 以数据库中的计数为准再核对一次
	var over, under int
	var sumGranted int64
	for i, id := range ids {
		sumGranted += granted[i]
		var p model.PdfBookPurchase
		if err := db.First(&p, id).Error; err != nil {
			panic(err)
		}
		if p.DownloadCount > p.MaxDownloads || int64(p.DownloadCount) != granted[i] {
			over++
		}
		if granted[i] < int64(MAX) && ATTEMPTS >= MAX {
			under++
		}
	}

	fmt.Printf("PURCHASES=%d, MAX=%d, ATTEMPTS=%d, CONC=%d, driver=%s\n", PURCHASES, MAX, ATTEMPTS, CONC, cfg.Database.Driver)
	fmt.Printf("Attempts total: %d in %v, per op: %v, p50: %v, p95: %v, p99: %v\n",
		len(recs), total, total/time.Duration(max(len(recs), 1)), pct(recs, 0.50), pct(recs, 0.95), pct(recs, 0.99))
	fmt.Printf("Granted: %d (expected %d), refused: %d, errors: %d\n", sumGranted, PURCHASES*min(MAX, ATTEMPTS), refused, failed)
	fmt.Printf("Over-delivered purchases: %d, under-delivered purchases: %d\n", over, under)
	if over > 0 {
		os.Exit(1)
	}
}
