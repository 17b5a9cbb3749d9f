package domain

import "errors"

// Sentinel errors for the sharing subsystem.
// Callers classify failures with errors.Is; producers wrap these with
// fmt.Errorf("%w: ...") to attach context without losing the kind.
var (
	// Import URL errors.
	ErrInvalidURL       = errors.New("invalid import url")
	ErrInvalidScheme    = errors.New("unsupported url scheme")
	ErrMissingParameter = errors.New("missing required url parameter")

	// Crypto errors.
	ErrEncryptionFailed = errors.New("encryption failed")
	ErrDecryptionFailed = errors.New("decryption failed")
	ErrInvalidPassword  = errors.New("invalid password")
	ErrInvalidFormat    = errors.New("invalid payload format")
	ErrCorruptedData    = errors.New("corrupted payload data")

	// Validity errors.
	ErrExpiredConfig        = errors.New("configuration expired")
	ErrTestAlreadyActivated = errors.New("test account already activated")

	// Template errors.
	ErrInvalidTemplate = errors.New("invalid template")

	// Persistence errors.
	ErrSaveFailed = errors.New("failed to save configuration")
	ErrLedger     = errors.New("ledger operation failed")
)
