package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/d60-Lab/classifieds-api/internal/model"
	"github.com/d60-Lab/classifieds-api/internal/repository"
	"github.com/d60-Lab/classifieds-api/pkg/logger"
	"github.com/d60-Lab/classifieds-api/pkg/metrics"
)

const (
	HistoryTypeItemView = "item_view"
	HistoryActionViewed = "viewed"
)

// HistoryRecorder 本地异步写入浏览记录，队列满时丢弃
type HistoryRecorder struct {
	repo repository.HistoryRepository
	ch   chan *model.UserHistory
	wg   sync.WaitGroup
}

func NewHistoryRecorder(repo repository.HistoryRepository, queueSize int) *HistoryRecorder {
	if queueSize <= 0 {
		queueSize = 1024
	}
	return &HistoryRecorder{repo: repo, ch: make(chan *model.UserHistory, queueSize)}
}

// Start 启动 workers，返回的 stop 会先排空队列再退出
func (r *HistoryRecorder) Start(workers int) func(context.Context) error {
	if workers <= 0 {
		workers = 2
	}
	stopCh := make(chan struct{})
	for i := 0; i < workers; i++ {
		r.wg.Add(1)
		go func() {
			defer r.wg.Done()
			for {
				select {
				case h := <-r.ch:
					r.write(h)
				case <-stopCh:
					for {
						select {
						case h := <-r.ch:
							r.write(h)
						default:
							return
						}
					}
				}
			}
		}()
	}

	var once sync.Once
	return func(ctx context.Context) error {
		once.Do(func() { close(stopCh) })
		done := make(chan struct{})
		go func() {
			r.wg.Wait()
			close(done)
		}()
		select {
		case <-done:
			return nil
		case <-ctx.Done():
			return fmt.Errorf("history recorder: %d records pending: %w", len(r.ch), ctx.Err())
		}
	}
}

func (r *HistoryRecorder) write(h *model.UserHistory) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.repo.Create(ctx, h); err != nil {
		metrics.HistoryRecords.WithLabelValues("failed").Inc()
		logger.Warn("record history", zap.Uint("user_id", h.UserID), zap.Error(err))
		return
	}
	metrics.HistoryRecords.WithLabelValues("recorded").Inc()
}

// Enqueue 非阻塞入队，返回是否成功
func (r *HistoryRecorder) Enqueue(h *model.UserHistory) bool {
	select {
	case r.ch <- h:
		return true
	default:
		metrics.HistoryRecords.WithLabelValues("dropped").Inc()
		logger.Warn("history queue full, drop", zap.Uint("user_id", h.UserID), zap.String("type", h.Type))
		return false
	}
}

// RecordItemView 记录一次商品浏览
func (r *HistoryRecorder) RecordItemView(userID uint, item *model.Item) bool {
	details, _ := json.Marshal(map[string]interface{}{
		"item_id": item.ID,
		"price":   item.Price.String(),
	})
	title := item.Title
	related := "item"
	id := item.ID
	h := &model.UserHistory{
		UserID:      userID,
		Type:        HistoryTypeItemView,
		Action:      HistoryActionViewed,
		Title:       &title,
		Details:     datatypes.JSON(details),
		RelatedType: &related,
		RelatedID:   &id,
	}
	if item.Category != nil {
		name := item.Category.Name
		h.Category = &name
	}
	return r.Enqueue(h)
}

// QueueLen 当前队列长度（采样值）
func (r *HistoryRecorder) QueueLen() int { return len(r.ch) }
