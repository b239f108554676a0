package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/d60-Lab/classifieds-api/internal/model"
)

type UserRepository interface {
	FindActive(ctx context.Context, id uint) (*model.User, error)
	UpdateProfile(ctx context.Context, id uint, fields map[string]interface{}) error
	UpdateFCMToken(ctx context.Context, id uint, token string, now time.Time) error
	SettingsFor(ctx context.Context, userID uint) (*model.NotificationSetting, error)
	UpdateSettings(ctx context.Context, userID uint, fields map[string]interface{}) error
}

type userRepository struct{ db *gorm.DB }

func NewUserRepository(db *gorm.DB) UserRepository { return &userRepository{db: db} }

func (r *userRepository) FindActive(ctx context.Context, id uint) (*model.User, error) {
	var u model.User
	if err := r.db.WithContext(ctx).Where("id = ? AND is_active = ?", id, true).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *userRepository) UpdateProfile(ctx context.Context, id uint, fields map[string]interface{}) error {
	if len(fields) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).Updates(fields).Error
}

func (r *userRepository) UpdateFCMToken(ctx context.Context, id uint, token string, now time.Time) error {
	return r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).Updates(map[string]interface{}{
		"fcm_token":            token,
		"fcm_token_updated_at": now,
	}).Error
}

// SettingsFor 读取通知设置，不存在时按默认值创建（并发创建由唯一索引兜底）
func (r *userRepository) SettingsFor(ctx context.Context, userID uint) (*model.NotificationSetting, error) {
	var s model.NotificationSetting
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&s).Error
	if err == nil {
		return &s, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	def := model.DefaultNotificationSetting(userID)
	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(def).Error; err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *userRepository) UpdateSettings(ctx context.Context, userID uint, fields map[string]interface{}) error {
	if len(fields) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Model(&model.NotificationSetting{}).Where("user_id = ?", userID).Updates(fields).Error
}
