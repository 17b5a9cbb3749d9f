// Package crypto implements the password-based envelope encryption shared
// payloads use: HKDF-SHA256 key derivation and AES-256-GCM with the auth
// tag carried as a separate envelope field.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/hkdf"

	"oxray-share/internal/domain"
)

var validate = validator.New()

// DeriveKey stretches a share password into an AES-256 key using
// HKDF-SHA256 with the envelope salt and no info string. Other client
// platforms compute the same two HMAC steps by hand; with empty info and a
// single 32-byte block the outputs are identical.
func DeriveKey(password string, salt []byte) []byte {
	key := make([]byte, domain.KeySize)
	kdf := hkdf.New(sha256.New, []byte(password), salt, nil)
	if _, err := io.ReadFull(kdf, key); err != nil {
		// A single 32-byte block never exceeds the HKDF expand limit.
		panic(fmt.Sprintf("hkdf read: %v", err))
	}
	return key
}

// Encrypt seals a compact config under the share password with a fresh
// salt and nonce.
func Encrypt(cfg *domain.CompactShareableConfig, password string) (*domain.EncryptedSharePayload, error) {
	plaintext, err := json.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: marshal config: %w", domain.ErrEncryptionFailed, err)
	}

	salt := make([]byte, domain.SaltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("%w: read salt: %w", domain.ErrEncryptionFailed, err)
	}
	nonce := make([]byte, domain.NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("%w: read nonce: %w", domain.ErrEncryptionFailed, err)
	}

	aead, err := newGCM(DeriveKey(password, salt))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrEncryptionFailed, err)
	}

	sealed := aead.Seal(nil, nonce, plaintext, nil)
	split := len(sealed) - domain.TagSize
	return &domain.EncryptedSharePayload{
		EncryptedData: sealed[:split],
		Salt:          salt,
		Nonce:         nonce,
		AuthTag:       sealed[split:],
		Version:       domain.PayloadVersion,
		Timestamp:     float64(time.Now().UnixMilli()) / 1e3,
	}, nil
}

// Decrypt opens an envelope and returns the validated compact config.
// Structural problems surface as ErrCorruptedData before any key material
// is touched; a failed open is indistinguishable from a wrong password and
// maps to ErrInvalidPassword.
func Decrypt(p *domain.EncryptedSharePayload, password string, now time.Time) (*domain.CompactShareableConfig, error) {
	if p.Version != domain.PayloadVersion {
		return nil, fmt.Errorf("%w: unsupported payload version %q", domain.ErrInvalidFormat, p.Version)
	}
	if err := checkStructure(p); err != nil {
		return nil, err
	}

	aead, err := newGCM(DeriveKey(password, p.Salt))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrDecryptionFailed, err)
	}

	sealed := make([]byte, 0, len(p.EncryptedData)+len(p.AuthTag))
	sealed = append(sealed, p.EncryptedData...)
	sealed = append(sealed, p.AuthTag...)

	plaintext, err := aead.Open(nil, p.Nonce, sealed, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidPassword, err)
	}

	var cfg domain.CompactShareableConfig
	if err := json.Unmarshal(plaintext, &cfg); err != nil {
		return nil, fmt.Errorf("%w: config json: %w", domain.ErrInvalidFormat, err)
	}
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidFormat, err)
	}
	if cfg.IsExpired(now) {
		return nil, fmt.Errorf("%w: expired at %s", domain.ErrExpiredConfig, cfg.ExpirationDate.Format(time.RFC3339))
	}
	return &cfg, nil
}

func checkStructure(p *domain.EncryptedSharePayload) error {
	switch {
	case len(p.Salt) != domain.SaltSize:
		return fmt.Errorf("%w: salt is %d bytes, want %d", domain.ErrCorruptedData, len(p.Salt), domain.SaltSize)
	case len(p.Nonce) != domain.NonceSize:
		return fmt.Errorf("%w: nonce is %d bytes, want %d", domain.ErrCorruptedData, len(p.Nonce), domain.NonceSize)
	case len(p.AuthTag) != domain.TagSize:
		return fmt.Errorf("%w: auth tag is %d bytes, want %d", domain.ErrCorruptedData, len(p.AuthTag), domain.TagSize)
	case len(p.EncryptedData) == 0:
		return fmt.Errorf("%w: empty ciphertext", domain.ErrCorruptedData)
	}
	return nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("init cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("init gcm: %w", err)
	}
	return aead, nil
}
