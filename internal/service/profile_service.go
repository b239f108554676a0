package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/d60-Lab/classifieds-api/internal/model"
	"github.com/d60-Lab/classifieds-api/internal/repository"
	"github.com/d60-Lab/classifieds-api/pkg/logger"
	"github.com/d60-Lab/classifieds-api/pkg/storage"
)

const avatarLinkTTL = 24 * time.Hour

// ProfileInput 只更新非 nil 字段
type ProfileInput struct {
	Name     *string
	Phone    *string
	Bio      *string
	Location *string
}

// Avatar 上传的头像文件（大小和类型已在 handler 校验）
type Avatar struct {
	Body        io.Reader
	ContentType string
	Ext         string
}

// Profile 用户资料
type Profile struct {
	*model.User
	AvatarURL *string `json:"avatar_url"`
}

// SettingsInput 通知开关的部分更新
type SettingsInput struct {
	PushEnabled   *bool
	EmailEnabled  *bool
	ChatMessages  *bool
	ItemUpdates   *bool
	PriceAlerts   *bool
	Promotions    *bool
	SystemUpdates *bool
}

func (in SettingsInput) fields() map[string]interface{} {
	f := map[string]interface{}{}
	set := func(col string, v *bool) {
		if v != nil {
			f[col] = *v
		}
	}
	set("push_enabled", in.PushEnabled)
	set("email_enabled", in.EmailEnabled)
	set("chat_messages", in.ChatMessages)
	set("item_updates", in.ItemUpdates)
	set("price_alerts", in.PriceAlerts)
	set("promotions", in.Promotions)
	set("system_updates", in.SystemUpdates)
	return f
}

type ProfileService interface {
	Get(ctx context.Context, userID uint) (*Profile, error)
	Update(ctx context.Context, userID uint, in ProfileInput, avatar *Avatar) (*Profile, error)
	UpdateFCMToken(ctx context.Context, userID uint, token string) error
	Settings(ctx context.Context, userID uint) (*model.NotificationSetting, error)
	UpdateSettings(ctx context.Context, userID uint, in SettingsInput) (*model.NotificationSetting, error)
}

type profileService struct {
	users repository.UserRepository
	store storage.Storage
	now   func() time.Time
}

func NewProfileService(users repository.UserRepository, store storage.Storage) ProfileService {
	return &profileService{users: users, store: store, now: time.Now}
}

func (s *profileService) user(ctx context.Context, userID uint) (*model.User, error) {
	u, err := s.users.FindActive(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return u, nil
}

func (s *profileService) Get(ctx context.Context, userID uint) (*Profile, error) {
	u, err := s.user(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.profile(ctx, u), nil
}

func (s *profileService) profile(ctx context.Context, u *model.User) *Profile {
	p := &Profile{User: u}
	if u.AvatarPath == nil || *u.AvatarPath == "" || s.store == nil {
		return p
	}
	link, err := s.store.SignedURL(ctx, *u.AvatarPath, avatarLinkTTL)
	if err != nil {
		logger.Warn("sign avatar link failed", zap.Uint("user_id", u.ID), zap.Error(err))
		return p
	}
	p.AvatarURL = &link
	return p
}

func (s *profileService) Update(ctx context.Context, userID uint, in ProfileInput, avatar *Avatar) (*Profile, error) {
	u, err := s.user(ctx, userID)
	if err != nil {
		return nil, err
	}

	fields := map[string]interface{}{}
	if in.Name != nil {
		fields["name"] = strings.TrimSpace(*in.Name)
	}
	if in.Phone != nil {
		fields["phone"] = *in.Phone
	}
	if in.Bio != nil {
		fields["bio"] = *in.Bio
	}
	if in.Location != nil {
		fields["location"] = *in.Location
	}

	var oldAvatar string
	if avatar != nil {
		name := fmt.Sprintf("avatars/%d/%s%s", userID, uuid.NewString(), avatar.Ext)
		if err := s.store.Put(ctx, name, avatar.Body, avatar.ContentType); err != nil {
			return nil, fmt.Errorf("store avatar: %w", err)
		}
		fields["avatar_path"] = name
		if u.AvatarPath != nil {
			oldAvatar = *u.AvatarPath
		}
	}

	if err := s.users.UpdateProfile(ctx, userID, fields); err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	if oldAvatar != "" {
		if err := s.store.Delete(ctx, oldAvatar); err != nil {
			logger.Warn("delete old avatar failed", zap.Uint("user_id", userID), zap.String("path", oldAvatar), zap.Error(err))
		}
	}
	return s.Get(ctx, userID)
}

func (s *profileService) UpdateFCMToken(ctx context.Context, userID uint, token string) error {
	if _, err := s.user(ctx, userID); err != nil {
		return err
	}
	if err := s.users.UpdateFCMToken(ctx, userID, token, s.now()); err != nil {
		return fmt.Errorf("update fcm token: %w", err)
	}
	return nil
}

func (s *profileService) Settings(ctx context.Context, userID uint) (*model.NotificationSetting, error) {
	st, err := s.users.SettingsFor(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load notification settings: %w", err)
	}
	return st, nil
}

func (s *profileService) UpdateSettings(ctx context.Context, userID uint, in SettingsInput) (*model.NotificationSetting, error) {
	// 确保行存在
	if _, err := s.Settings(ctx, userID); err != nil {
		return nil, err
	}
	if err := s.users.UpdateSettings(ctx, userID, in.fields()); err != nil {
		return nil, fmt.Errorf("update notification settings: %w", err)
	}
	return s.Settings(ctx, userID)
}
