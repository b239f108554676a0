package service

import (
	"github.com/d60-Lab/classifieds-api/pkg/realtime"
)

// RealtimeConfig 客户端初始化实时连接所需的信息，不含密钥
type RealtimeConfig struct {
	ClientID        string            `json:"client_id"`
	TokenEndpoint   string            `json:"token_endpoint"`
	Channels        realtime.Channels `json:"channels"`
	TokenTTLSeconds int64             `json:"token_ttl_seconds"`
}

type RealtimeService interface {
	Token(userID uint) (*realtime.Token, error)
	Config(userID uint) (*RealtimeConfig, error)
}

type realtimeService struct {
	issuer        *realtime.Issuer
	tokenEndpoint string
}

// NewRealtimeService issuer 为 nil 时所有调用返回 ErrRealtimeUnavailable
func NewRealtimeService(issuer *realtime.Issuer, baseURL string) RealtimeService {
	return &realtimeService{issuer: issuer, tokenEndpoint: baseURL + "/auth/ably-token"}
}

func (s *realtimeService) Token(userID uint) (*realtime.Token, error) {
	if s.issuer == nil {
		return nil, ErrRealtimeUnavailable
	}
	return s.issuer.IssueToken(userID)
}

func (s *realtimeService) Config(userID uint) (*RealtimeConfig, error) {
	if s.issuer == nil {
		return nil, ErrRealtimeUnavailable
	}
	return &RealtimeConfig{
		ClientID:        realtime.ClientID(userID),
		TokenEndpoint:   s.tokenEndpoint,
		Channels:        realtime.ChannelTemplates(),
		TokenTTLSeconds: int64(s.issuer.TTL().Seconds()),
	}, nil
}
