// Package importer orchestrates the end-to-end share import flow: URL
// parsing, decryption, anti-replay, template expansion and persistence.
package importer

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"go.uber.org/zap"

	"oxray-share/internal/crypto"
	"oxray-share/internal/domain"
	"oxray-share/internal/ledger"
	"oxray-share/internal/payload"
	"oxray-share/internal/template"
)

// DocumentStore persists an expanded configuration document and returns
// the path it was written to.
type DocumentStore interface {
	SaveDocument(ctx context.Context, name string, document string) (string, error)
}

// ProfileCreator registers an imported configuration with the hosting
// application and returns its profile id.
type ProfileCreator interface {
	CreateProfile(ctx context.Context, displayName string, path string) (string, error)
}

// Result describes a completed import.
type Result struct {
	DisplayName string
	ProfileID   string
	Path        string
}

// Pipeline runs the import state machine. Parsing, decryption, the expiry
// and anti-replay checks are all side-effect free; nothing is persisted
// until every one of them has passed.
type Pipeline struct {
	engine   *template.Engine
	ledger   *ledger.Ledger
	store    DocumentStore
	profiles ProfileCreator
	metrics  domain.MetricsRecorder
	logger   *zap.Logger
	now      func() time.Time
}

func NewPipeline(
	engine *template.Engine,
	ledger *ledger.Ledger,
	store DocumentStore,
	profiles ProfileCreator,
	metrics domain.MetricsRecorder,
	logger *zap.Logger,
) *Pipeline {
	return &Pipeline{
		engine:   engine,
		ledger:   ledger,
		store:    store,
		profiles: profiles,
		metrics:  metrics,
		logger:   logger,
		now:      time.Now,
	}
}

var importSchemes = map[string]bool{
	"oxray":    true,
	"sing-box": true,
}

// ParseURL extracts and decodes the encrypted payload from a share URL
// without decrypting anything.
func (p *Pipeline) ParseURL(raw string) (*domain.EncryptedSharePayload, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidURL, err)
	}
	if !importSchemes[u.Scheme] {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidScheme, u.Scheme)
	}
	if u.Host != "import" {
		return nil, fmt.Errorf("%w: unexpected host %q", domain.ErrInvalidURL, u.Host)
	}

	encrypted := u.Query().Get("encrypted")
	if encrypted == "" {
		return nil, fmt.Errorf("%w: encrypted", domain.ErrMissingParameter)
	}
	return payload.Decode(encrypted)
}

// Import runs the full flow for one share URL and returns the imported
// profile's details.
func (p *Pipeline) Import(ctx context.Context, rawURL, password string) (result *Result, err error) {
	start := p.now()
	defer func() {
		p.metrics.RecordImport(outcomeLabel(err), p.now().Sub(start))
	}()

	sharePayload, err := p.ParseURL(rawURL)
	if err != nil {
		return nil, err
	}

	now := p.now()
	cfg, err := crypto.Decrypt(sharePayload, password, now)
	if err != nil {
		return nil, mapDecryptError(err)
	}

	if cfg.IsExpired(now) {
		return nil, fmt.Errorf("%w: expired at %s",
			domain.ErrExpiredConfig, cfg.ExpirationDate.Format(time.RFC3339))
	}

	if cfg.TestConfig != nil {
		existing, err := p.ledger.GetRecordByShareID(ctx, cfg.ShareID)
		if err != nil {
			return nil, ensureKind(err, domain.ErrLedger)
		}
		if existing != nil {
			p.logger.Warn("rejected replayed test share",
				zap.String("share_id", cfg.ShareID),
				zap.String("config_name", existing.ConfigName))
			return nil, fmt.Errorf("%w: share %s", domain.ErrTestAlreadyActivated, cfg.ShareID)
		}
	}

	document, err := p.engine.Expand(cfg)
	if err != nil {
		return nil, ensureKind(err, domain.ErrInvalidTemplate)
	}
	templateID := cfg.TemplateID
	if templateID == "" {
		templateID = template.DefaultTemplateID
	}
	p.metrics.RecordTemplateExpansion(templateID)

	displayName := cfg.DisplayName()

	path, err := p.store.SaveDocument(ctx, displayName, document)
	if err != nil {
		return nil, ensureKind(err, domain.ErrSaveFailed)
	}

	profileID, err := p.profiles.CreateProfile(ctx, displayName, path)
	if err != nil {
		return nil, ensureKind(err, domain.ErrSaveFailed)
	}

	if cfg.TestConfig != nil {
		activatedAt := p.now()
		record := &domain.TestModeRecord{
			ShareID:             cfg.ShareID,
			ActivatedAt:         domain.NewUnixTime(activatedAt),
			ExpiresAt:           domain.NewUnixTime(activatedAt.Add(time.Duration(cfg.TestConfig.TestDurationMinutes) * time.Minute)),
			ConfigName:          displayName,
			TestDurationMinutes: cfg.TestConfig.TestDurationMinutes,
		}
		if err := p.ledger.SaveRecord(ctx, record); err != nil {
			return nil, ensureKind(err, domain.ErrLedger)
		}
	}

	p.logger.Info("imported shared configuration",
		zap.String("display_name", displayName),
		zap.String("template_id", templateID),
		zap.String("profile_id", profileID),
		zap.String("path", path),
		zap.Bool("test_mode", cfg.TestConfig != nil))

	return &Result{
		DisplayName: displayName,
		ProfileID:   profileID,
		Path:        path,
	}, nil
}

// mapDecryptError translates decryption failures into the kinds the caller
// acts on. Both kinds stay matchable: a wrong password is still
// ErrInvalidPassword underneath the user-facing ErrDecryptionFailed.
func mapDecryptError(err error) error {
	switch {
	case errors.Is(err, domain.ErrInvalidPassword):
		return fmt.Errorf("%w: %w", domain.ErrDecryptionFailed, err)
	case errors.Is(err, domain.ErrInvalidFormat):
		return fmt.Errorf("%w: %w", domain.ErrInvalidTemplate, err)
	default:
		return err
	}
}

// ensureKind wraps err in kind unless it already matches it.
func ensureKind(err, kind error) error {
	if errors.Is(err, kind) {
		return err
	}
	return fmt.Errorf("%w: %w", kind, err)
}

func outcomeLabel(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, domain.ErrInvalidPassword):
		return "invalid_password"
	case errors.Is(err, domain.ErrExpiredConfig):
		return "expired"
	case errors.Is(err, domain.ErrTestAlreadyActivated):
		return "already_activated"
	case errors.Is(err, domain.ErrCorruptedData):
		return "corrupted_data"
	case errors.Is(err, domain.ErrInvalidTemplate):
		return "invalid_template"
	case errors.Is(err, domain.ErrInvalidFormat):
		return "invalid_format"
	case errors.Is(err, domain.ErrMissingParameter):
		return "missing_parameter"
	case errors.Is(err, domain.ErrInvalidScheme):
		return "invalid_scheme"
	case errors.Is(err, domain.ErrInvalidURL):
		return "invalid_url"
	case errors.Is(err, domain.ErrSaveFailed):
		return "save_failed"
	case errors.Is(err, domain.ErrLedger):
		return "ledger_error"
	default:
		return "error"
	}
}
