// Package payload converts encrypted share envelopes to and from the
// URL-safe text form carried in import links.
package payload

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"oxray-share/internal/domain"
)

// Encode serializes the envelope as unpadded URL-safe base64, the form
// embedded in the "encrypted" query parameter of share links.
func Encode(p *domain.EncryptedSharePayload) (string, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("failed to marshal payload: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(data), nil
}

// Decode reverses Encode. It tolerates the damage a share string picks up
// in transit: query unescaping turns '+' into ' ', senders may use either
// the standard or URL-safe alphabet, and padding may have been stripped.
func Decode(encoded string) (*domain.EncryptedSharePayload, error) {
	normalized := strings.NewReplacer(" ", "+", "-", "+", "_", "/").Replace(encoded)
	if rem := len(normalized) % 4; rem != 0 {
		normalized += strings.Repeat("=", 4-rem)
	}

	data, err := base64.StdEncoding.DecodeString(normalized)
	if err != nil {
		return nil, fmt.Errorf("%w: base64 decode: %w", domain.ErrInvalidFormat, err)
	}

	var p domain.EncryptedSharePayload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("%w: payload json: %w", domain.ErrInvalidFormat, err)
	}

	if err := checkSizes(&p); err != nil {
		return nil, err
	}
	return &p, nil
}

func checkSizes(p *domain.EncryptedSharePayload) error {
	switch {
	case len(p.EncryptedData) == 0:
		return fmt.Errorf("%w: empty ciphertext", domain.ErrInvalidFormat)
	case len(p.Salt) != domain.SaltSize:
		return fmt.Errorf("%w: salt is %d bytes, want %d", domain.ErrInvalidFormat, len(p.Salt), domain.SaltSize)
	case len(p.Nonce) != domain.NonceSize:
		return fmt.Errorf("%w: nonce is %d bytes, want %d", domain.ErrInvalidFormat, len(p.Nonce), domain.NonceSize)
	case len(p.AuthTag) != domain.TagSize:
		return fmt.Errorf("%w: auth tag is %d bytes, want %d", domain.ErrInvalidFormat, len(p.AuthTag), domain.TagSize)
	}
	return nil
}
