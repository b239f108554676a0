package router

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/d60-Lab/classifieds-api/config"
	"github.com/d60-Lab/classifieds-api/internal/api/handler"
	"github.com/d60-Lab/classifieds-api/internal/api/middleware"
	"github.com/d60-Lab/classifieds-api/internal/model"
	"github.com/d60-Lab/classifieds-api/internal/repository"
	"github.com/d60-Lab/classifieds-api/internal/service"
	tu "github.com/d60-Lab/classifieds-api/internal/testutil"
	"github.com/d60-Lab/classifieds-api/pkg/auth"
	"github.com/d60-Lab/classifieds-api/pkg/cache"
	"github.com/d60-Lab/classifieds-api/pkg/realtime"
	"github.com/d60-Lab/classifieds-api/pkg/storage"
)

type testApp struct {
	engine *gin.Engine
	db     *gorm.DB
	store  *storage.Local
	tokens *auth.TokenParser

	redis        *miniredis.Miniredis
	stopRecorder func(context.Context) error
}

func newTestApp(t *testing.T) *testApp {
	gin.SetMode(gin.TestMode)
	db := tu.NewDB(t)
	client, mr := tu.NewRedis(t)
	c := cache.New(client, "test")

	store, err := storage.NewLocal(t.TempDir(), "http://api.test", "test-signing-key-0123")
	require.NoError(t, err)
	issuer, err := realtime.NewIssuer("app.key:secret", time.Hour)
	require.NoError(t, err)

	cfg := &config.Config{
		App:   config.AppConfig{Name: "test", Env: "test", BaseURL: "http://api.test"},
		Cache: config.CacheConfig{HomeTTL: time.Minute, CategoriesTTL: time.Minute, CategoryStatsTTL: time.Minute, LegalTTL: time.Hour},
		PDF:   config.PDFConfig{DefaultMaxDownloads: 2, DefaultAccessDays: 30},
	}
	items := repository.NewItemRepository(db)
	recorder := service.NewHistoryRecorder(repository.NewHistoryRepository(db), 64)
	stopRecorder := recorder.Start(1)
	t.Cleanup(func() { _ = stopRecorder(context.Background()) })

	h := handler.NewHandler(handler.Services{
		Catalog:  service.NewCatalogService(items, repository.NewCategoryRepository(db), c, cfg.Cache),
		Search:   service.NewSearchService(items),
		History:  service.NewHistoryService(repository.NewHistoryRepository(db)),
		Legal:    service.NewLegalService(repository.NewLegalRepository(db), c, cfg.Cache.LegalTTL),
		PdfBooks: service.NewPdfBookService(repository.NewPdfBookRepository(db), store, cfg.PDF, 5*time.Minute),
		Profile:  service.NewProfileService(repository.NewUserRepository(db), store),
		Realtime: service.NewRealtimeService(issuer, cfg.App.BaseURL),
		Recorder: recorder,
	}, store, db, c)

	tokens := auth.NewTokenParser("router-test-secret-0123456789abcdef", "classifieds")
	engine := Setup(cfg, h, tokens, middleware.NewRateLimiter(0, 0))
	return &testApp{engine: engine, db: db, store: store, tokens: tokens, redis: mr, stopRecorder: stopRecorder}
}

func (a *testApp) do(t *testing.T, method, path string, userID uint, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var rd *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(raw)
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if userID != 0 {
		tok, err := a.tokens.Issue(userID, time.Hour)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, req)
	return w
}

type envelope struct {
	Success    bool                `json:"success"`
	Message    string              `json:"message"`
	Data       json.RawMessage     `json:"data"`
	Errors     map[string][]string `json:"errors"`
	Pagination *struct {
		Total    int64 `json:"total"`
		LastPage int   `json:"last_page"`
	} `json:"pagination"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var e envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &e), w.Body.String())
	return e
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	app := newTestApp(t)
	for _, path := range []string{"/user/history", "/user/profile", "/auth/ably-token", "/api/pdf-books/purchases", "/legal/agreements"} {
		w := app.do(t, http.MethodGet, path, 0, nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
		assert.False(t, decode(t, w).Success)
	}
}

func TestHistoryEndpointsAreOwnerScoped(t *testing.T) {
	app := newTestApp(t)

	w := app.do(t, http.MethodPost, "/user/history", 1, map[string]interface{}{
		"type": "item_view", "action": "viewed", "details": map[string]interface{}{"item_id": 5},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created struct {
		ID uint `json:"id"`
	}
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &created))

	w = app.do(t, http.MethodGet, fmt.Sprintf("/user/history/%d", created.ID), 2, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = app.do(t, http.MethodPost, "/user/history/bulk-delete", 2, map[string]interface{}{"ids": []uint{created.ID}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"deleted_count":0}`, string(decode(t, w).Data))

	w = app.do(t, http.MethodGet, "/user/history", 1, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, decode(t, w).Pagination.Total)

	w = app.do(t, http.MethodDelete, fmt.Sprintf("/user/history/%d", created.ID), 1, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestItemDetailRecordsViewForSignedInUser(t *testing.T) {
	app := newTestApp(t)
	cat := tu.SeedCatalog(t, app.db)
	item := tu.CreateItem(t, app.db, "Oak table", tu.InCategory(cat.Furniture.ID))

	w := app.do(t, http.MethodGet, fmt.Sprintf("/items/%d", item.ID), 0, nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = app.do(t, http.MethodGet, fmt.Sprintf("/items/%d", item.ID), 9, nil)
	require.Equal(t, http.StatusOK, w.Code)

	require.NoError(t, app.stopRecorder(context.Background()))

	var rows []model.UserHistory
	require.NoError(t, app.db.Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, uint(9), rows[0].UserID)
	assert.Equal(t, service.HistoryTypeItemView, rows[0].Type)

	var views int64
	require.NoError(t, app.db.Model(&model.Item{}).Where("id = ?", item.ID).Select("views_count").Scan(&views).Error)
	assert.EqualValues(t, 2, views)
}

func TestValidationErrorsUseFieldNames(t *testing.T) {
	app := newTestApp(t)

	w := app.do(t, http.MethodPost, "/user/history", 1, map[string]interface{}{"action": "viewed"})
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	e := decode(t, w)
	assert.Contains(t, e.Errors, "type")

	w = app.do(t, http.MethodGet, "/search", 0, nil)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, decode(t, w).Errors, "q")

	w = app.do(t, http.MethodGet, "/search?q=bike&sort=random", 0, nil)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, decode(t, w).Errors, "sort")
}

func TestCategoryItemsEndpoint(t *testing.T) {
	app := newTestApp(t)
	cat := tu.SeedCatalog(t, app.db)
	future := time.Now().Add(time.Hour)
	tu.CreateItem(t, app.db, "cheap phone", tu.InChild(cat.Smartphones.ID), tu.Price("5"))
	tu.CreateItem(t, app.db, "promoted tv", tu.InCategory(cat.Electronics.ID), tu.Price("500"), tu.Promoted(&future))

	w := app.do(t, http.MethodGet, fmt.Sprintf("/category/%d/items?sort=price_asc", cat.Electronics.ID), 0, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var items []model.Item
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &items))
	require.Len(t, items, 2)
	assert.Equal(t, "promoted tv", items[0].Title)

	w = app.do(t, http.MethodGet, "/category/9999/items", 0, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = app.do(t, http.MethodGet, "/category/abc/items", 0, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestLegalDocumentAcceptsHyphenatedType(t *testing.T) {
	app := newTestApp(t)
	tu.Must(t, app.db.Create(&model.LegalDocument{Type: model.LegalPrivacyPolicy, Title: "Privacy", Content: "we keep little", Version: "1.0", IsActive: true}).Error)

	w := app.do(t, http.MethodGet, "/legal/privacy-policy", 0, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = app.do(t, http.MethodPost, "/legal/agreement", 3, map[string]string{"document_type": "privacy-policy"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = app.do(t, http.MethodPost, "/legal/agreement", 3, map[string]string{"document_type": "privacy_policy"})
	require.Equal(t, http.StatusOK, w.Code)

	var n int64
	require.NoError(t, app.db.Model(&model.LegalAgreement{}).Where("user_id = ?", 3).Count(&n).Error)
	assert.EqualValues(t, 1, n)

	w = app.do(t, http.MethodPost, "/legal/agreement", 3, map[string]string{"document_type": "nonsense"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestLegalAgreementRejectsUnknownVersion(t *testing.T) {
	app := newTestApp(t)
	tu.Must(t, app.db.Create(&model.LegalDocument{Type: model.LegalTermsOfService, Title: "Terms", Content: "be nice", Version: "1.0", IsActive: true}).Error)

	w := app.do(t, http.MethodPost, "/legal/agreement", 9, map[string]string{"document_type": "terms-of-service", "version": "999.0"})
	require.Equal(t, http.StatusUnprocessableEntity, w.Code, w.Body.String())
	assert.Contains(t, decode(t, w).Errors, "version")

	var n int64
	require.NoError(t, app.db.Model(&model.LegalAgreement{}).Where("user_id = ?", 9).Count(&n).Error)
	assert.Zero(t, n)

	w = app.do(t, http.MethodPost, "/legal/agreement", 9, map[string]string{"document_type": "terms-of-service", "version": "1.0"})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestPdfBookPurchaseAndDeliveryFlow(t *testing.T) {
	app := newTestApp(t)
	book := &model.PdfBook{Title: "Go in Practice", Price: decimal.NewFromInt(12), FilePath: "books/practice.pdf", IsActive: true}
	tu.Must(t, app.db.Create(book).Error)
	require.NoError(t, app.store.Put(context.Background(), book.FilePath, strings.NewReader("%PDF-1.4 test"), "application/pdf"))

	w := app.do(t, http.MethodPost, fmt.Sprintf("/api/pdf-books/%d/purchase", book.ID), 1, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var purchase struct {
		ID                 uint `json:"id"`
		DownloadsRemaining int  `json:"downloads_remaining"`
	}
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &purchase))
	assert.Equal(t, 2, purchase.DownloadsRemaining)

	w = app.do(t, http.MethodPost, fmt.Sprintf("/api/pdf-books/%d/purchase", book.ID), 1, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = app.do(t, http.MethodPost, "/api/pdf-books/deliver", 2, map[string]uint{"purchase_id": purchase.ID})
	assert.Equal(t, http.StatusNotFound, w.Code)

	var delivery service.Delivery
	w = app.do(t, http.MethodPost, "/api/pdf-books/deliver", 1, map[string]uint{"purchase_id": purchase.ID})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &delivery))
	assert.Equal(t, 1, delivery.DownloadsRemaining)

	// the signed link serves the file
	link, err := url.Parse(delivery.DownloadURL)
	require.NoError(t, err)
	w = app.do(t, http.MethodGet, link.RequestURI(), 0, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "%PDF-1.4 test", w.Body.String())

	w = app.do(t, http.MethodGet, "/api/pdf-books/download/"+delivery.DownloadToken, 0, nil)
	require.Equal(t, http.StatusFound, w.Code)
	assert.True(t, strings.HasPrefix(w.Header().Get("Location"), "http://api.test/storage/books/practice.pdf?"))

	w = app.do(t, http.MethodGet, "/api/pdf-books/download/"+delivery.DownloadToken, 0, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "Download limit reached", decode(t, w).Message)

	w = app.do(t, http.MethodGet, fmt.Sprintf("/api/pdf-books/%d", book.ID), 1, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(decode(t, w).Data), `"purchased":true`)
}

func TestTamperedStorageLinkRejected(t *testing.T) {
	app := newTestApp(t)
	w := app.do(t, http.MethodGet, "/storage/books/x.pdf?expires=9999999999&signature=deadbeef", 0, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRealtimeConfigEndpoint(t *testing.T) {
	app := newTestApp(t)
	w := app.do(t, http.MethodGet, "/auth/ably-config", 8, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var cfg service.RealtimeConfig
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &cfg))
	assert.Equal(t, "8", cfg.ClientID)
	assert.Equal(t, "private-chat:{conversation_id}", cfg.Channels.PrivateChat)
}

func TestNotificationSettingsEndpoint(t *testing.T) {
	app := newTestApp(t)
	w := app.do(t, http.MethodPost, "/user/notification-settings", 4, map[string]bool{"promotions": true})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var st model.NotificationSetting
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &st))
	assert.True(t, st.Promotions)
	assert.True(t, st.PushEnabled)
}

func (a *testApp) upload(t *testing.T, userID uint, fields map[string]string, filename string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if filename != "" {
		fw, err := mw.CreateFormFile("avatar", filename)
		require.NoError(t, err)
		_, err = fw.Write(body)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/user/profile", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	tok, err := a.tokens.Issue(userID, time.Hour)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+tok)
	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, req)
	return w
}

func pngBytes(size int) []byte {
	b := make([]byte, size)
	copy(b, "\x89PNG\r\n\x1a\n")
	return b
}

func TestProfileAvatarUpload(t *testing.T) {
	app := newTestApp(t)
	tu.CreateUser(t, app.db, 5, "maya")

	w := app.upload(t, 5, map[string]string{"name": "Maya"}, "big.png", pngBytes(2<<20+1))
	require.Equal(t, http.StatusUnprocessableEntity, w.Code, w.Body.String())
	assert.Equal(t, []string{"The avatar may not be greater than 2048 kilobytes."}, decode(t, w).Errors["avatar"])

	w = app.upload(t, 5, nil, "notes.png", []byte("just some plain text, not an image"))
	require.Equal(t, http.StatusUnprocessableEntity, w.Code, w.Body.String())
	assert.Equal(t, []string{"The avatar must be an image."}, decode(t, w).Errors["avatar"])

	var u model.User
	require.NoError(t, app.db.First(&u, 5).Error)
	assert.Equal(t, "maya", u.Name)

	w = app.upload(t, 5, map[string]string{"name": "Maya"}, "me.png", pngBytes(1024))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var p struct {
		Name      string  `json:"name"`
		AvatarURL *string `json:"avatar_url"`
	}
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &p))
	assert.Equal(t, "Maya", p.Name)
	require.NotNil(t, p.AvatarURL)
	assert.Contains(t, *p.AvatarURL, "http://api.test/storage/avatars/5/")
	assert.Contains(t, *p.AvatarURL, ".png")
}

func TestHealthReflectsRedis(t *testing.T) {
	app := newTestApp(t)

	w := app.do(t, http.MethodGet, "/health", 0, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	app.redis.Close()
	w = app.do(t, http.MethodGet, "/health", 0, nil)
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	var checks map[string]string
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &checks))
	assert.Equal(t, "down", checks["redis"])
	assert.Equal(t, "ok", checks["database"])
}

func TestPurchaseBindsChunkedBody(t *testing.T) {
	app := newTestApp(t)
	book := &model.PdfBook{Title: "Streaming Go", Price: decimal.NewFromInt(7), FilePath: "books/streaming.pdf", IsActive: true}
	tu.Must(t, app.db.Create(book).Error)

	// 非 bytes/strings 的 Reader 没有已知长度，ContentLength 为 -1
	body := io.MultiReader(strings.NewReader(`{"payment_reference":"pay_chunked_42"}`))
	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/api/pdf-books/%d/purchase", book.ID), body)
	require.EqualValues(t, -1, req.ContentLength)
	req.Header.Set("Content-Type", "application/json")
	tok, err := app.tokens.Issue(6, time.Hour)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+tok)
	w := httptest.NewRecorder()
	app.engine.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var p model.PdfBookPurchase
	require.NoError(t, app.db.Where("user_id = ?", 6).First(&p).Error)
	require.NotNil(t, p.PaymentReference)
	assert.Equal(t, "pay_chunked_42", *p.PaymentReference)

	// 分块但为空的 body 等同于不提交
	other := &model.PdfBook{Title: "Empty Body", Price: decimal.NewFromInt(3), FilePath: "books/empty.pdf", IsActive: true}
	tu.Must(t, app.db.Create(other).Error)
	req = httptest.NewRequest(http.MethodPost, fmt.Sprintf("/api/pdf-books/%d/purchase", other.ID), io.MultiReader())
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+tok)
	w = httptest.NewRecorder()
	app.engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())
}
