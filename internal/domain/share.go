package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EncryptedSharePayload is the transport envelope wrapping an encrypted
// compact config. The byte fields marshal as standard base64, matching the
// payload JSON schema shared with the other client platforms.
type EncryptedSharePayload struct {
	EncryptedData []byte  `json:"encryptedData"`
	Salt          []byte  `json:"salt"`
	Nonce         []byte  `json:"nonce"`
	AuthTag       []byte  `json:"authTag"`
	Version       string  `json:"version"`
	Timestamp     float64 `json:"timestamp"`
}

// PayloadVersion is the only envelope version this client understands.
const PayloadVersion = "1.0"

// Envelope byte-field sizes. Key material is derived to KeySize bytes and
// the GCM tag is always carried separately from the ciphertext.
const (
	SaltSize  = 32
	NonceSize = 12
	TagSize   = 16
	KeySize   = 32
)

// ServerParameters carries the proxy endpoint settings of a shared config.
type ServerParameters struct {
	Server     string   `json:"server" validate:"required"`
	ServerPort int      `json:"serverPort" validate:"required,gt=0,lte=65535"`
	Password   string   `json:"password" validate:"required"`
	Method     string   `json:"method" validate:"required"`
	Tag        string   `json:"tag,omitempty"`
	Type       string   `json:"type,omitempty"`
	Network    string   `json:"network,omitempty"`
	TLS        bool     `json:"tls,omitempty"`
	SNI        string   `json:"sni,omitempty"`
	ALPN       []string `json:"alpn,omitempty"`
	Path       string   `json:"path,omitempty"`
	Plugin     string   `json:"plugin,omitempty"`
	PluginOpts string   `json:"pluginOpts,omitempty"`
}

// OutboundTag returns the tag the expanded document routes through: the
// explicit tag when set, otherwise a fresh "proxy-" + 8 hex chars. The
// generated form is random per call; expansion resolves it once and reuses
// the value everywhere.
func (p ServerParameters) OutboundTag() string {
	if p.Tag != "" {
		return p.Tag
	}
	return "proxy-" + uuid.NewString()[:8]
}

// ProtocolType returns the outbound protocol, defaulting to shadowsocks.
func (p ServerParameters) ProtocolType() string {
	if p.Type != "" {
		return p.Type
	}
	return "shadowsocks"
}

// TestConfig marks a share as a time-limited test account.
type TestConfig struct {
	Type                string `json:"type"`
	TestDurationMinutes int    `json:"testDurationMinutes" validate:"gt=0"`
}

// CompactShareableConfig is the plaintext a share payload decrypts to: the
// minimal server parameters plus metadata, expanded into a full engine
// document at import time.
type CompactShareableConfig struct {
	Version        string           `json:"version"`
	TemplateID     string           `json:"templateId"`
	ServerParams   ServerParameters `json:"serverParams" validate:"required"`
	ConfigName     string           `json:"configName,omitempty"`
	ShareID        string           `json:"shareId" validate:"required"`
	CreatedAt      UnixTime         `json:"createdAt"`
	ExpirationDate *UnixTime        `json:"expirationDate,omitempty"`
	TestConfig     *TestConfig      `json:"testConfig,omitempty"`
	DNSOverride    json.RawMessage  `json:"dnsOverride,omitempty"`
	RouteOverride  json.RawMessage  `json:"routeOverride,omitempty"`
}

// IsExpired reports whether the share's own validity window has passed.
func (c *CompactShareableConfig) IsExpired(now time.Time) bool {
	if c.ExpirationDate == nil {
		return false
	}
	return now.After(c.ExpirationDate.Time)
}

// DisplayName is the profile name shown to the user and used as the
// secondary ledger key.
func (c *CompactShareableConfig) DisplayName() string {
	if c.ConfigName != "" {
		return c.ConfigName
	}
	return fmt.Sprintf("%s:%d", c.ServerParams.Server, c.ServerParams.ServerPort)
}
