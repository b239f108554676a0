package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/d60-Lab/classifieds-api/config"
	"github.com/d60-Lab/classifieds-api/internal/model"
	"github.com/d60-Lab/classifieds-api/pkg/database"
	"github.com/d60-Lab/classifieds-api/pkg/logger"
	"github.com/d60-Lab/classifieds-api/pkg/storage"
)

type tree struct {
	name, slug string
	subs       []sub
}

type sub struct {
	name, slug string
	children   []string
}

var catalog = []tree{
	{"Electronics", "electronics", []sub{
		{"Phones", "phones", []string{"Smartphones", "Feature Phones"}},
		{"Computers", "computers", []string{"Laptops", "Desktops"}},
	}},
	{"Furniture", "furniture", []sub{
		{"Chairs", "chairs", []string{"Office Chairs"}},
		{"Tables", "tables", nil},
	}},
	{"Vehicles", "vehicles", []sub{
		{"Cars", "cars", nil},
		{"Bikes", "bikes", []string{"Mountain Bikes", "Road Bikes"}},
	}},
}

// 本地开发用的演示数据，可重复执行
func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	if err := logger.Init(cfg.Log.Level, "console"); err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	db, err := database.InitDB(cfg)
	if err != nil {
		logger.Fatal("init database", zap.Error(err))
	}
	if err := database.Migrate(db); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	ctx := context.Background()
	store, err := storage.New(ctx, cfg.Storage, cfg.App.BaseURL)
	if err != nil {
		logger.Fatal("init storage", zap.Error(err))
	}

	if err := db.Transaction(func(tx *gorm.DB) error {
		if err := seedCatalog(tx); err != nil {
			return err
		}
		return seedLegal(tx)
	}); err != nil {
		logger.Fatal("seed", zap.Error(err))
	}
	if err := seedBooks(ctx, db, store); err != nil {
		logger.Fatal("seed books", zap.Error(err))
	}
	logger.Info("seed finished")
}

func seedCatalog(tx *gorm.DB) error {
	now := time.Now()
	for i, t := range catalog {
		cat := model.Category{Slug: t.slug}
		if err := tx.Where(model.Category{Slug: t.slug}).
			Attrs(model.Category{Name: t.name, SortOrder: i + 1, IsActive: true}).
			FirstOrCreate(&cat).Error; err != nil {
			return fmt.Errorf("category %s: %w", t.slug, err)
		}
		for _, s := range t.subs {
			sc := model.SubCategory{}
			if err := tx.Where(model.SubCategory{CategoryID: cat.ID, Slug: s.slug}).
				Attrs(model.SubCategory{Name: s.name, IsActive: true}).
				FirstOrCreate(&sc).Error; err != nil {
				return fmt.Errorf("subcategory %s: %w", s.slug, err)
			}
			for _, name := range s.children {
				child := model.ChildSubCategory{}
				if err := tx.Where(model.ChildSubCategory{SubCategoryID: sc.ID, Slug: slugify(name)}).
					Attrs(model.ChildSubCategory{Name: name, IsActive: true}).
					FirstOrCreate(&child).Error; err != nil {
					return fmt.Errorf("child %s: %w", name, err)
				}
			}

			var n int64
			if err := tx.Model(&model.Item{}).Where("sub_category_id = ?", sc.ID).Count(&n).Error; err != nil {
				return err
			}
			if n > 0 {
				continue
			}
			for j := 0; j < 4; j++ {
				it := &model.Item{
					UserID:         1,
					CategoryID:     &cat.ID,
					SubCategoryID:  &sc.ID,
					Title:          fmt.Sprintf("%s #%d", s.name, j+1),
					Description:    fmt.Sprintf("Used %s in good shape.", s.name),
					Price:          decimal.NewFromInt(int64(25 * (j + 1))),
					Condition:      model.ConditionGood,
					Status:         model.ItemStatusActive,
					ViewsCount:     int64(10 * j),
					FavoritesCount: int64(j),
				}
				if j == 0 {
					until := now.Add(7 * 24 * time.Hour)
					it.IsPromoted = true
					it.PromotedUntil = &until
				}
				if err := tx.Create(it).Error; err != nil {
					return fmt.Errorf("item: %w", err)
				}
			}
		}
	}
	return nil
}

func seedLegal(tx *gorm.DB) error {
	effective := time.Now().Truncate(24 * time.Hour)
	for _, typ := range model.LegalDocumentTypes {
		doc := model.LegalDocument{}
		if err := tx.Where(model.LegalDocument{Type: typ, Version: "1.0"}).
			Attrs(model.LegalDocument{
				Title:         titleFor(typ),
				Content:       titleFor(typ) + " placeholder text.",
				IsActive:      true,
				EffectiveDate: &effective,
			}).
			FirstOrCreate(&doc).Error; err != nil {
			return fmt.Errorf("legal %s: %w", typ, err)
		}
	}
	return nil
}

func seedBooks(ctx context.Context, db *gorm.DB, store storage.Storage) error {
	books := []model.PdfBook{
		{Title: "Selling Smart", Author: "A. Trader", Price: decimal.RequireFromString("9.99"), FilePath: "books/selling-smart.pdf", PageCount: 120},
		{Title: "Pricing Used Goods", Author: "B. Market", Price: decimal.RequireFromString("14.50"), FilePath: "books/pricing-used-goods.pdf", PageCount: 88},
	}
	for _, b := range books {
		ok, err := store.Exists(ctx, b.FilePath)
		if err != nil {
			return err
		}
		if !ok {
			body := []byte("%PDF-1.4\n% " + b.Title + "\n%%EOF\n")
			if err := store.Put(ctx, b.FilePath, bytes.NewReader(body), "application/pdf"); err != nil {
				return fmt.Errorf("store %s: %w", b.FilePath, err)
			}
			b.FileSize = int64(len(body))
		}
		row := model.PdfBook{}
		b.IsActive = true
		if err := db.WithContext(ctx).Where(model.PdfBook{FilePath: b.FilePath}).Attrs(b).FirstOrCreate(&row).Error; err != nil {
			return fmt.Errorf("book %s: %w", b.Title, err)
		}
	}
	return nil
}

func slugify(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch {
		case ch >= 'A' && ch <= 'Z':
			out = append(out, ch+'a'-'A')
		case ch == ' ':
			out = append(out, '-')
		default:
			out = append(out, ch)
		}
	}
	return string(out)
}

func titleFor(typ string) string {
	switch typ {
	case model.LegalPrivacyPolicy:
		return "Privacy Policy"
	case model.LegalTermsOfService:
		return "Terms of Service"
	case model.LegalCookiePolicy:
		return "Cookie Policy"
	case model.LegalRefundPolicy:
		return "Refund Policy"
	case model.LegalCommunityGuidelines:
		return "Community Guidelines"
	}
	return typ
}
