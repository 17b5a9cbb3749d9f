package importer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"oxray-share/internal/crypto"
	"oxray-share/internal/domain"
	"oxray-share/internal/kvstore"
	"oxray-share/internal/ledger"
	"oxray-share/internal/payload"
	"oxray-share/internal/template"
)

type savedDoc struct {
	name     string
	document string
}

type fakeDocStore struct {
	mu    sync.Mutex
	saved []savedDoc
	fail  bool
}

func (f *fakeDocStore) SaveDocument(_ context.Context, name, document string) (string, error) {
	if f.fail {
		return "", errors.New("disk full")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = append(f.saved, savedDoc{name: name, document: document})
	return fmt.Sprintf("/configs/doc-%d.json", len(f.saved)), nil
}

type fakeProfiles struct {
	mu      sync.Mutex
	created []string
	fail    bool
}

func (f *fakeProfiles) CreateProfile(_ context.Context, displayName, _ string) (string, error) {
	if f.fail {
		return "", errors.New("profile registry down")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, displayName)
	return fmt.Sprintf("profile-%d", len(f.created)), nil
}

type fakeMetrics struct {
	mu         sync.Mutex
	imports    []string
	expansions []string
	sweeps     []int
}

func (m *fakeMetrics) RecordImport(result string, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.imports = append(m.imports, result)
}

func (m *fakeMetrics) RecordTemplateExpansion(templateID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.expansions = append(m.expansions, templateID)
}

func (m *fakeMetrics) RecordSweep(removed int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sweeps = append(m.sweeps, removed)
}

type fixture struct {
	pipeline *Pipeline
	ledger   *ledger.Ledger
	docs     *fakeDocStore
	profiles *fakeProfiles
	metrics  *fakeMetrics
	now      time.Time
}

func newFixture(t *testing.T) *fixture {
	return newFixtureWithStore(t, kvstore.NewMemory())
}

func newFixtureWithStore(t *testing.T, store kvstore.Store) *fixture {
	logger := zaptest.NewLogger(t)
	f := &fixture{
		ledger:   ledger.NewLedger(store, logger),
		docs:     &fakeDocStore{},
		profiles: &fakeProfiles{},
		metrics:  &fakeMetrics{},
		now:      time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	f.pipeline = NewPipeline(template.NewEngine(logger), f.ledger, f.docs, f.profiles, f.metrics, logger)
	f.pipeline.now = func() time.Time { return f.now }
	return f
}

func testShare() *domain.CompactShareableConfig {
	return &domain.CompactShareableConfig{
		Version:    "1.0",
		TemplateID: "default-singbox",
		ServerParams: domain.ServerParameters{
			Server:     "203.0.113.5",
			ServerPort: 8443,
			Password:   "secret",
			Method:     "chacha20-ietf-poly1305",
		},
		ShareID: "0f1e2d3c-e5f6-7890-abcd-ef1234567890",
		TestConfig: &domain.TestConfig{
			Type:                "test",
			TestDurationMinutes: 60,
		},
	}
}

func shareURL(t *testing.T, cfg *domain.CompactShareableConfig, password, scheme string) string {
	t.Helper()
	p, err := crypto.Encrypt(cfg, password)
	require.NoError(t, err)
	token, err := payload.Encode(p)
	require.NoError(t, err)
	return fmt.Sprintf("%s://import?encrypted=%s", scheme, token)
}

func TestParseURL(t *testing.T) {
	valid := shareURL(t, testShare(), "p@ss", "oxray")

	tests := []struct {
		name    string
		url     string
		wantErr error
	}{
		{
			name: "Valid oxray URL",
			url:  valid,
		},
		{
			name: "Valid sing-box URL",
			url:  shareURL(t, testShare(), "p@ss", "sing-box"),
		},
		{
			name:    "Unsupported scheme",
			url:     "https://import?encrypted=abc",
			wantErr: domain.ErrInvalidScheme,
		},
		{
			name:    "Wrong host",
			url:     "oxray://share?encrypted=abc",
			wantErr: domain.ErrInvalidURL,
		},
		{
			name:    "Missing encrypted parameter",
			url:     "oxray://import",
			wantErr: domain.ErrMissingParameter,
		},
		{
			name:    "Empty encrypted parameter",
			url:     "oxray://import?encrypted=",
			wantErr: domain.ErrMissingParameter,
		},
		{
			name:    "Unparseable URL",
			url:     "://nope",
			wantErr: domain.ErrInvalidURL,
		},
		{
			name:    "Garbage token",
			url:     "oxray://import?encrypted=!!!",
			wantErr: domain.ErrInvalidFormat,
		},
	}

	fix := newFixture(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := fix.pipeline.ParseURL(tt.url)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, p)
			assert.Equal(t, domain.PayloadVersion, p.Version)
		})
	}
}

func TestImportEndToEnd(t *testing.T) {
	ctx := context.Background()
	fix := newFixture(t)
	raw := shareURL(t, testShare(), "p@ss", "oxray")

	result, err := fix.pipeline.Import(ctx, raw, "p@ss")
	require.NoError(t, err)
	assert.Equal(t, "203.0.113.5:8443", result.DisplayName)
	assert.Equal(t, "profile-1", result.ProfileID)
	assert.NotEmpty(t, result.Path)

	require.Len(t, fix.docs.saved, 1)
	saved := fix.docs.saved[0]
	assert.Equal(t, "203.0.113.5:8443", saved.name)
	assert.NotContains(t, saved.document, "PROXY_OUTBOUND")

	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(saved.document), &doc))
	outbounds := doc["outbounds"].([]any)
	proxy := outbounds[0].(map[string]any)
	assert.Equal(t, "203.0.113.5", proxy["server"])
	route := doc["route"].(map[string]any)
	assert.Equal(t, proxy["tag"], route["final"])

	record, err := fix.ledger.GetRecordByShareID(ctx, testShare().ShareID)
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, 60, record.TestDurationMinutes)
	assert.Equal(t, "203.0.113.5:8443", record.ConfigName)
	assert.True(t, record.ActivatedAt.Equal(fix.now))
	assert.True(t, record.ExpiresAt.Equal(fix.now.Add(60*time.Minute)))

	assert.Equal(t, []string{"success"}, fix.metrics.imports)
	assert.Equal(t, []string{"default-singbox"}, fix.metrics.expansions)
}

func TestImportUsesConfigName(t *testing.T) {
	ctx := context.Background()
	fix := newFixture(t)

	cfg := testShare()
	cfg.ConfigName = "Office VPN"
	raw := shareURL(t, cfg, "p@ss", "oxray")

	result, err := fix.pipeline.Import(ctx, raw, "p@ss")
	require.NoError(t, err)
	assert.Equal(t, "Office VPN", result.DisplayName)
	assert.Equal(t, []string{"Office VPN"}, fix.profiles.created)

	record, err := fix.ledger.GetRecord(ctx, "Office VPN")
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, cfg.ShareID, record.ShareID)
}

func TestImportWrongPassword(t *testing.T) {
	ctx := context.Background()
	fix := newFixture(t)
	raw := shareURL(t, testShare(), "p@ss", "oxray")

	result, err := fix.pipeline.Import(ctx, raw, "wrong")
	assert.Nil(t, result)
	assert.ErrorIs(t, err, domain.ErrDecryptionFailed)
	assert.ErrorIs(t, err, domain.ErrInvalidPassword, "password failures must stay distinguishable")

	assert.Empty(t, fix.docs.saved)
	assert.Empty(t, fix.profiles.created)
	record, lerr := fix.ledger.GetRecordByShareID(ctx, testShare().ShareID)
	require.NoError(t, lerr)
	assert.Nil(t, record)
	assert.Equal(t, []string{"invalid_password"}, fix.metrics.imports)
}

func TestImportExpiredShare(t *testing.T) {
	ctx := context.Background()
	fix := newFixture(t)

	cfg := testShare()
	past := domain.NewUnixTime(fix.now.Add(-time.Hour))
	cfg.ExpirationDate = &past
	raw := shareURL(t, cfg, "p@ss", "oxray")

	result, err := fix.pipeline.Import(ctx, raw, "p@ss")
	assert.Nil(t, result)
	assert.ErrorIs(t, err, domain.ErrExpiredConfig)

	assert.Empty(t, fix.docs.saved)
	assert.Empty(t, fix.profiles.created)
	assert.Equal(t, []string{"expired"}, fix.metrics.imports)
}

func TestImportReplayRejected(t *testing.T) {
	ctx := context.Background()
	fix := newFixture(t)
	raw := shareURL(t, testShare(), "p@ss", "oxray")

	_, err := fix.pipeline.Import(ctx, raw, "p@ss")
	require.NoError(t, err)

	result, err := fix.pipeline.Import(ctx, raw, "p@ss")
	assert.Nil(t, result)
	assert.ErrorIs(t, err, domain.ErrTestAlreadyActivated)

	assert.Len(t, fix.docs.saved, 1, "replay must not write a second document")
	assert.Len(t, fix.profiles.created, 1)
	assert.Equal(t, []string{"success", "already_activated"}, fix.metrics.imports)
}

func TestImportReplayAfterProfileDeletion(t *testing.T) {
	ctx := context.Background()
	fix := newFixture(t)
	raw := shareURL(t, testShare(), "p@ss", "oxray")

	result, err := fix.pipeline.Import(ctx, raw, "p@ss")
	require.NoError(t, err)

	// Deleting the profile drops only the configName mapping.
	require.NoError(t, fix.ledger.DeleteConfigMapping(ctx, result.DisplayName))

	_, err = fix.pipeline.Import(ctx, raw, "p@ss")
	assert.ErrorIs(t, err, domain.ErrTestAlreadyActivated)
	assert.Len(t, fix.docs.saved, 1)
}

func TestImportPlainShareCanBeReimported(t *testing.T) {
	ctx := context.Background()
	fix := newFixture(t)

	cfg := testShare()
	cfg.TestConfig = nil
	raw := shareURL(t, cfg, "p@ss", "oxray")

	_, err := fix.pipeline.Import(ctx, raw, "p@ss")
	require.NoError(t, err)
	_, err = fix.pipeline.Import(ctx, raw, "p@ss")
	require.NoError(t, err)

	assert.Len(t, fix.docs.saved, 2)

	record, err := fix.ledger.GetRecordByShareID(ctx, cfg.ShareID)
	require.NoError(t, err)
	assert.Nil(t, record, "plain shares never touch the ledger")
}

func TestImportDocumentSaveFailure(t *testing.T) {
	ctx := context.Background()
	fix := newFixture(t)
	fix.docs.fail = true
	raw := shareURL(t, testShare(), "p@ss", "oxray")

	result, err := fix.pipeline.Import(ctx, raw, "p@ss")
	assert.Nil(t, result)
	assert.ErrorIs(t, err, domain.ErrSaveFailed)

	assert.Empty(t, fix.profiles.created)
	record, lerr := fix.ledger.GetRecordByShareID(ctx, testShare().ShareID)
	require.NoError(t, lerr)
	assert.Nil(t, record, "no ledger write after a failed save")
	assert.Equal(t, []string{"save_failed"}, fix.metrics.imports)
}

func TestImportProfileCreationFailure(t *testing.T) {
	ctx := context.Background()
	fix := newFixture(t)
	fix.profiles.fail = true
	raw := shareURL(t, testShare(), "p@ss", "oxray")

	result, err := fix.pipeline.Import(ctx, raw, "p@ss")
	assert.Nil(t, result)
	assert.ErrorIs(t, err, domain.ErrSaveFailed)

	record, lerr := fix.ledger.GetRecordByShareID(ctx, testShare().ShareID)
	require.NoError(t, lerr)
	assert.Nil(t, record, "activation is only recorded after the profile exists")
}

type putFailingStore struct {
	kvstore.Store
}

func (putFailingStore) Put(context.Context, string, []byte) error {
	return errors.New("io error")
}

func TestImportLedgerWriteFailure(t *testing.T) {
	ctx := context.Background()
	fix := newFixtureWithStore(t, putFailingStore{kvstore.NewMemory()})
	raw := shareURL(t, testShare(), "p@ss", "oxray")

	result, err := fix.pipeline.Import(ctx, raw, "p@ss")
	assert.Nil(t, result)
	assert.ErrorIs(t, err, domain.ErrLedger)
	assert.Equal(t, []string{"ledger_error"}, fix.metrics.imports)
}

func TestImportInvalidConfigMapsToTemplateError(t *testing.T) {
	ctx := context.Background()
	fix := newFixture(t)

	cfg := testShare()
	cfg.ServerParams.Method = ""
	raw := shareURL(t, cfg, "p@ss", "oxray")

	result, err := fix.pipeline.Import(ctx, raw, "p@ss")
	assert.Nil(t, result)
	assert.ErrorIs(t, err, domain.ErrInvalidTemplate)
	assert.ErrorIs(t, err, domain.ErrInvalidFormat)
	assert.Empty(t, fix.docs.saved)
}
