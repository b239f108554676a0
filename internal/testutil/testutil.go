// Package testutil builds throwaway databases and redis servers for tests.
package testutil

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/d60-Lab/classifieds-api/internal/model"
)

// NewDB opens a migrated in-memory sqlite database. One connection keeps the
// in-memory schema visible to every query.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.AutoMigrate(model.All()...); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// NewRedis starts a miniredis server and a client bound to it.
func NewRedis(t testing.TB) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client, mr
}

func Must(t testing.TB, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
}

func UintPtr(v uint) *uint { return &v }

func StrPtr(s string) *string { return &s }

// Catalog is a small category tree: Electronics > Phones > Smartphones, plus Furniture.
type Catalog struct {
	Electronics *model.Category
	Phones      *model.SubCategory
	Smartphones *model.ChildSubCategory
	Furniture   *model.Category
	Chairs      *model.SubCategory
}

func SeedCatalog(t testing.TB, db *gorm.DB) *Catalog {
	t.Helper()
	c := &Catalog{
		Electronics: &model.Category{Name: "Electronics", Slug: "electronics", SortOrder: 1, IsActive: true},
		Furniture:   &model.Category{Name: "Furniture", Slug: "furniture", SortOrder: 2, IsActive: true},
	}
	Must(t, db.Create(c.Electronics).Error)
	Must(t, db.Create(c.Furniture).Error)

	c.Phones = &model.SubCategory{CategoryID: c.Electronics.ID, Name: "Phones", Slug: "phones", IsActive: true}
	c.Chairs = &model.SubCategory{CategoryID: c.Furniture.ID, Name: "Chairs", Slug: "chairs", IsActive: true}
	Must(t, db.Create(c.Phones).Error)
	Must(t, db.Create(c.Chairs).Error)

	c.Smartphones = &model.ChildSubCategory{SubCategoryID: c.Phones.ID, Name: "Smartphones", Slug: "smartphones", IsActive: true}
	Must(t, db.Create(c.Smartphones).Error)
	return c
}

// ItemOpt mutates an item before insert.
type ItemOpt func(*model.Item)

func Promoted(until *time.Time) ItemOpt {
	return func(i *model.Item) { i.IsPromoted = true; i.PromotedUntil = until }
}

func CreatedAt(ts time.Time) ItemOpt { return func(i *model.Item) { i.CreatedAt = ts } }

func Price(p string) ItemOpt {
	return func(i *model.Item) { i.Price = decimal.RequireFromString(p) }
}

func Popularity(favorites, views int64) ItemOpt {
	return func(i *model.Item) { i.FavoritesCount = favorites; i.ViewsCount = views }
}

func Described(d string) ItemOpt { return func(i *model.Item) { i.Description = d } }

func Status(s string) ItemOpt { return func(i *model.Item) { i.Status = s } }

func InCategory(id uint) ItemOpt { return func(i *model.Item) { i.CategoryID = &id } }

func InSubCategory(id uint) ItemOpt { return func(i *model.Item) { i.SubCategoryID = &id } }

func InChild(id uint) ItemOpt { return func(i *model.Item) { i.ChildSubCategoryID = &id } }

func CreateItem(t testing.TB, db *gorm.DB, title string, opts ...ItemOpt) *model.Item {
	t.Helper()
	it := &model.Item{
		UserID:    1,
		Title:     title,
		Price:     decimal.NewFromInt(10),
		Condition: model.ConditionGood,
		Status:    model.ItemStatusActive,
	}
	for _, o := range opts {
		o(it)
	}
	Must(t, db.Create(it).Error)
	return it
}

func CreateUser(t testing.TB, db *gorm.DB, id uint, name string) *model.User {
	t.Helper()
	u := &model.User{ID: id, Name: name, Email: name + "@example.com", IsActive: true}
	Must(t, db.Create(u).Error)
	return u
}
