// Package realtime issues Ably JWTs for the chat client.
//
// The token is signed locally with the API key secret (Ably's "Ably JWT" format), so issuing
// one needs no round-trip to Ably. The key name travels in the kid header.
package realtime

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrNotConfigured = errors.New("ably api key not configured")

// 频道命名空间
const (
	NamespacePrivateChat = "private-chat"
	NamespacePresence    = "presence"
	NamespaceTyping      = "typing"
)

// Channels 客户端使用的频道模板
type Channels struct {
	PrivateChat string `json:"private_chat"`
	Presence    string `json:"presence"`
	Typing      string `json:"typing"`
}

type Token struct {
	Token      string              `json:"token"`
	ClientID   string              `json:"client_id"`
	IssuedAt   time.Time           `json:"issued_at"`
	ExpiresAt  time.Time           `json:"expires_at"`
	Capability map[string][]string `json:"capability"`
}

type ablyClaims struct {
	Capability string `json:"x-ably-capability"`
	ClientID   string `json:"x-ably-clientId"`
	jwt.RegisteredClaims
}

type Issuer struct {
	keyName   string
	keySecret []byte
	ttl       time.Duration
	now       func() time.Time
}

// NewIssuer parses an Ably API key of the form "appId.keyId:secret".
func NewIssuer(apiKey string, ttl time.Duration) (*Issuer, error) {
	if apiKey == "" {
		return nil, ErrNotConfigured
	}
	name, secret, ok := strings.Cut(apiKey, ":")
	if !ok || name == "" || secret == "" {
		return nil, fmt.Errorf("malformed ably api key")
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Issuer{keyName: name, keySecret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

func (i *Issuer) TTL() time.Duration { return i.ttl }

// ClientID is the Ably client id for a user.
func ClientID(userID uint) string { return strconv.FormatUint(uint64(userID), 10) }

// Capability grants the three chat namespaces.
func Capability() map[string][]string {
	return map[string][]string{
		NamespacePrivateChat + ":*": {"subscribe", "publish", "history", "presence"},
		NamespacePresence + ":*":    {"presence", "subscribe"},
		NamespaceTyping + ":*":      {"publish", "subscribe"},
	}
}

// ChannelTemplates describes channel names the app builds on the client.
func ChannelTemplates() Channels {
	return Channels{
		PrivateChat: NamespacePrivateChat + ":{conversation_id}",
		Presence:    NamespacePresence + ":{user_id}",
		Typing:      NamespaceTyping + ":{conversation_id}",
	}
}

// IssueToken signs a capability-scoped token for userID.
func (i *Issuer) IssueToken(userID uint) (*Token, error) {
	capability := Capability()
	capJSON, err := json.Marshal(capability)
	if err != nil {
		return nil, err
	}

	now := i.now()
	exp := now.Add(i.ttl)
	clientID := ClientID(userID)

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, ablyClaims{
		Capability: string(capJSON),
		ClientID:   clientID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	})
	tok.Header["kid"] = i.keyName

	signed, err := tok.SignedString(i.keySecret)
	if err != nil {
		return nil, fmt.Errorf("sign ably token: %w", err)
	}
	return &Token{
		Token:      signed,
		ClientID:   clientID,
		IssuedAt:   now,
		ExpiresAt:  exp,
		Capability: capability,
	}, nil
}
