package handler

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/classifieds-api/internal/api/middleware"
	"github.com/d60-Lab/classifieds-api/internal/service"
	"github.com/d60-Lab/classifieds-api/pkg/response"
)

const maxAvatarBytes = 2 << 20

// 允许的头像类型 -> 扩展名
var avatarTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

type updateProfileRequest struct {
	Name     *string `json:"name" form:"name" binding:"omitempty,min=1,max=255"`
	Phone    *string `json:"phone" form:"phone" binding:"omitempty,max=32"`
	Bio      *string `json:"bio" form:"bio" binding:"omitempty,max=1000"`
	Location *string `json:"location" form:"location" binding:"omitempty,max=255"`
}

type fcmTokenRequest struct {
	FCMToken string `json:"fcm_token" binding:"required,max=512"`
}

type notificationSettingsRequest struct {
	PushEnabled   *bool `json:"push_enabled"`
	EmailEnabled  *bool `json:"email_enabled"`
	ChatMessages  *bool `json:"chat_messages"`
	ItemUpdates   *bool `json:"item_updates"`
	PriceAlerts   *bool `json:"price_alerts"`
	Promotions    *bool `json:"promotions"`
	SystemUpdates *bool `json:"system_updates"`
}

// GetProfile 当前用户资料
// @Summary 获取个人资料
// @Tags 用户
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response{data=service.Profile}
// @Router /user/profile [get]
func (h *Handler) GetProfile(c *gin.Context) {
	p, err := h.profile.Get(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		h.fail(c, "profile_get", err)
		return
	}
	response.Success(c, p)
}

// UpdateProfile 更新资料，multipart 时可带 avatar 文件
// @Summary 更新个人资料
// @Tags 用户
// @Accept json,mpfd
// @Produce json
// @Security BearerAuth
// @Param request body updateProfileRequest false "资料"
// @Param avatar formData file false "头像（≤2MB）"
// @Success 200 {object} response.Response{data=service.Profile}
// @Failure 422 {object} response.Response
// @Router /user/profile [post]
func (h *Handler) UpdateProfile(c *gin.Context) {
	var req updateProfileRequest
	if hasBody(c) {
		if err := c.ShouldBind(&req); err != nil && !errors.Is(err, io.EOF) {
			response.ValidationError(c, err)
			return
		}
	}

	var avatar *service.Avatar
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		a, closeFn, msg := readAvatar(c)
		if msg != "" {
			response.ValidationFailed(c, map[string][]string{"avatar": {msg}})
			return
		}
		if closeFn != nil {
			defer closeFn()
		}
		avatar = a
	}

	p, err := h.profile.Update(c.Request.Context(), middleware.UserID(c), service.ProfileInput{
		Name:     req.Name,
		Phone:    req.Phone,
		Bio:      req.Bio,
		Location: req.Location,
	}, avatar)
	if err != nil {
		h.fail(c, "profile_update", err)
		return
	}
	response.SuccessWithMessage(c, "Profile updated", p)
}

// readAvatar 返回 nil 表示未上传；msg 非空表示校验失败
func readAvatar(c *gin.Context) (*service.Avatar, func(), string) {
	fh, err := c.FormFile("avatar")
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil, ""
	}
	if err != nil {
		return nil, nil, "The avatar failed to upload."
	}
	if fh.Size > maxAvatarBytes {
		return nil, nil, "The avatar may not be greater than 2048 kilobytes."
	}
	f, err := fh.Open()
	if err != nil {
		return nil, nil, "The avatar failed to upload."
	}

	head := make([]byte, 512)
	n, _ := io.ReadFull(f, head)
	contentType := http.DetectContentType(head[:n])
	ext, ok := avatarTypes[contentType]
	if !ok {
		f.Close()
		return nil, nil, "The avatar must be an image."
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		f.Close()
		return nil, nil, "The avatar failed to upload."
	}
	return &service.Avatar{Body: f, ContentType: contentType, Ext: ext}, func() { f.Close() }, ""
}

// UpdateFCMToken 保存推送 token
// @Summary 更新 FCM token
// @Tags 用户
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body fcmTokenRequest true "FCM token"
// @Success 200 {object} response.Response
// @Failure 422 {object} response.Response
// @Router /user/fcm-token [post]
func (h *Handler) UpdateFCMToken(c *gin.Context) {
	var req fcmTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, err)
		return
	}
	if err := h.profile.UpdateFCMToken(c.Request.Context(), middleware.UserID(c), req.FCMToken); err != nil {
		h.fail(c, "fcm_token", err)
		return
	}
	response.SuccessWithMessage(c, "FCM token updated", nil)
}

// GetNotificationSettings 通知设置（首次访问时创建默认值）
// @Summary 获取通知设置
// @Tags 用户
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response{data=model.NotificationSetting}
// @Router /user/notification-settings [get]
func (h *Handler) GetNotificationSettings(c *gin.Context) {
	st, err := h.profile.Settings(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		h.fail(c, "notification_settings_get", err)
		return
	}
	response.Success(c, st)
}

// UpdateNotificationSettings 部分更新通知开关
// @Summary 更新通知设置
// @Tags 用户
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body notificationSettingsRequest true "开关"
// @Success 200 {object} response.Response{data=model.NotificationSetting}
// @Failure 422 {object} response.Response
// @Router /user/notification-settings [post]
func (h *Handler) UpdateNotificationSettings(c *gin.Context) {
	var req notificationSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, err)
		return
	}
	st, err := h.profile.UpdateSettings(c.Request.Context(), middleware.UserID(c), service.SettingsInput{
		PushEnabled:   req.PushEnabled,
		EmailEnabled:  req.EmailEnabled,
		ChatMessages:  req.ChatMessages,
		ItemUpdates:   req.ItemUpdates,
		PriceAlerts:   req.PriceAlerts,
		Promotions:    req.Promotions,
		SystemUpdates: req.SystemUpdates,
	})
	if err != nil {
		h.fail(c, "notification_settings_update", err)
		return
	}
	response.Success(c, st)
}
