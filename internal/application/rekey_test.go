package application

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/aimanager/internal/domain/model"
	"github.com/ericfisherdev/aimanager/internal/fernet"
)

func seedClaude(t *testing.T, s *testStores, name, token string) {
	t.Helper()
	_, err := s.claude.Create(context.Background(), model.ClaudeProviderInput{
		Name:  name,
		URL:   "https://api.example.com",
		Token: token,
		Type:  model.ProviderTypePaid,
	})
	require.NoError(t, err)
}

func entityStats(t *testing.T, report *model.MigrationReport, e model.EntityType) *model.EntityStats {
	t.Helper()
	for _, s := range report.Entities {
		if s.Entity == e {
			return s
		}
	}
	t.Fatalf("no stats for %s", e)
	return nil
}

func TestReKeyMigrator_SkipsRecordsSealedUnderAnotherKey(t *testing.T) {
	src := newTestStores(t, testKeyA)
	dst := newTestStores(t, testKeyB)
	ctx := context.Background()

	seedClaude(t, src, "one", "sk-one")
	seedClaude(t, src, "two", "sk-two")

	stray, err := fernet.GenerateKey()
	require.NoError(t, err)
	foreign, err := fernet.NewCipher(stray).EncryptString("sk-stray")
	require.NoError(t, err)
	_, err = src.claude.InsertSealed(ctx, model.ClaudeProvider{Name: "stray", URL: "https://api.example.com", Token: foreign})
	require.NoError(t, err)

	m := NewReKeyMigrator(src.cipher, dst.cipher, discardLogger())
	report, err := m.Run(ctx, src.migration(), dst.migration(), false)
	require.NoError(t, err)

	claude := entityStats(t, report, model.EntityClaudeProviders)
	assert.Equal(t, 3, claude.Attempted)
	assert.Equal(t, 2, claude.Migrated)
	assert.Equal(t, 1, claude.Failed)
	require.Len(t, claude.Errors, 1)
	assert.Contains(t, claude.Errors[0].Key, "name=stray")
	assert.Equal(t, "token signature does not match the source key", claude.Errors[0].Cause)
	assert.NotContains(t, claude.Errors[0].Error(), "sk-stray")

	attempted, migrated, failed := report.Totals()
	assert.Equal(t, 3, attempted)
	assert.Equal(t, 2, migrated)
	assert.Equal(t, 1, failed)

	page, err := dst.claude.Paginate(ctx, model.PageRequest{Page: 1, Limit: 10})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	for _, p := range page.Items {
		plain, err := dst.cipher.DecryptString(p.Token)
		require.NoError(t, err)
		assert.Equal(t, "sk-"+p.Name, plain)

		_, err = src.cipher.DecryptString(p.Token)
		require.ErrorIs(t, err, fernet.ErrInvalidSignature)
	}

	checkErr := CheckReport(report)
	require.ErrorIs(t, checkErr, ErrMigrationPartialFailure)
	var re model.RecordError
	require.ErrorAs(t, checkErr, &re)
	assert.Equal(t, model.EntityClaudeProviders, re.Entity)
}

func TestReKeyMigrator_EmptySource(t *testing.T) {
	src := newTestStores(t, testKeyA)
	dst := newTestStores(t, testKeyB)

	report, err := NewReKeyMigrator(src.cipher, dst.cipher, discardLogger()).
		Run(context.Background(), src.migration(), dst.migration(), false)
	require.NoError(t, err)

	require.Len(t, report.Entities, len(model.EntityOrder))
	for i, s := range report.Entities {
		assert.Equal(t, model.EntityOrder[i], s.Entity)
		assert.Zero(t, s.Attempted)
		assert.Zero(t, s.Migrated)
		assert.Zero(t, s.Failed)
	}
	assert.NotEmpty(t, report.RunID)
	assert.NoError(t, CheckReport(report))
}

func TestReKeyMigrator_CopiesEveryTable(t *testing.T) {
	src := newTestStores(t, testKeyA)
	dst := newTestStores(t, testKeyB)
	ctx := context.Background()

	for i := range 5 {
		seedClaude(t, src, fmt.Sprintf("p%d", i), fmt.Sprintf("sk-p%d", i))
	}
	_, err := src.codex.Create(ctx, model.CodexProviderInput{Name: "cx", URL: "https://cx.example", Token: "sk-cx", Type: model.ProviderTypePaid, Enabled: true})
	require.NoError(t, err)
	_, err = src.guides.Create(ctx, model.AgentGuideInput{Name: "g", Type: model.GuideTypeOnly, Text: "# g"})
	require.NoError(t, err)
	_, err = src.mcp.Create(ctx, model.MCPServerInput{Name: "m", Type: model.MCPServerTypeStdio, Timeout: 1000, Command: "npx", Args: []string{"a"}, Env: map[string]string{"K": "V"}})
	require.NoError(t, err)
	_, err = src.config.Create(ctx, model.CommonConfigInput{Key: "k", Value: "v", Category: "general", IsActive: true})
	require.NoError(t, err)

	m := NewReKeyMigrator(src.cipher, dst.cipher, discardLogger(), WithBatchSize(2))
	report, err := m.Run(ctx, src.migration(), dst.migration(), false)
	require.NoError(t, err)
	require.NoError(t, CheckReport(report))

	assert.Equal(t, 5, entityStats(t, report, model.EntityClaudeProviders).Migrated)
	for _, e := range model.EntityOrder[1:] {
		assert.Equal(t, 1, entityStats(t, report, e).Migrated, e)
	}

	cx, err := dst.codex.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, "sk-cx", cx.Token)
	assert.True(t, cx.Enabled)

	srv, err := dst.mcp.FindByName(ctx, "m")
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, srv.Args)
	assert.Equal(t, map[string]string{"K": "V"}, srv.Env)

	cfg, err := dst.config.FindByKey(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", cfg.Value)
}

func TestReKeyMigrator_DryRunWritesNothing(t *testing.T) {
	src := newTestStores(t, testKeyA)
	dst := newTestStores(t, testKeyB)
	ctx := context.Background()

	seedClaude(t, src, "one", "sk-one")
	seedClaude(t, src, "two", "sk-two")

	m := NewReKeyMigrator(src.cipher, dst.cipher, discardLogger())
	report, err := m.Run(ctx, src.migration(), MigrationStores{}, true)
	require.NoError(t, err)
	assert.True(t, report.DryRun)
	assert.Equal(t, 2, entityStats(t, report, model.EntityClaudeProviders).Migrated)

	n, err := dst.claude.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestReKeyMigrator_NeedsDestinationUnlessDryRun(t *testing.T) {
	src := newTestStores(t, testKeyA)

	_, err := NewReKeyMigrator(src.cipher, src.cipher, discardLogger()).
		Run(context.Background(), src.migration(), MigrationStores{}, false)
	require.Error(t, err)
}

func TestReKeyMigrator_Cancelled(t *testing.T) {
	src := newTestStores(t, testKeyA)
	dst := newTestStores(t, testKeyB)
	seedClaude(t, src, "one", "sk-one")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := NewReKeyMigrator(src.cipher, dst.cipher, discardLogger()).
		Run(ctx, src.migration(), dst.migration(), false)
	require.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, report)
	assert.False(t, report.FinishedAt.IsZero())

	n, err := dst.claude.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestReKeyMigrator_UsesClock(t *testing.T) {
	src := newTestStores(t, testKeyA)
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	report, err := NewReKeyMigrator(src.cipher, src.cipher, discardLogger(), WithMigrationClock(func() time.Time { return fixed })).
		Run(context.Background(), src.migration(), MigrationStores{}, true)
	require.NoError(t, err)
	assert.Equal(t, fixed, report.StartedAt)
	assert.Equal(t, fixed, report.FinishedAt)
}

func TestCheckReport_BoundsKeptErrors(t *testing.T) {
	report := &model.MigrationReport{}
	stats := report.Entity(model.EntityCodexProviders)
	for i := range model.MaxRecordErrors + 50 {
		stats.RecordFailure(fmt.Sprintf("id=%d", i), "malformed token")
	}

	assert.Len(t, stats.Errors, model.MaxRecordErrors)
	assert.Equal(t, 50, stats.ErrorsDropped)
	assert.Equal(t, model.MaxRecordErrors+50, stats.Failed)

	err := CheckReport(report)
	var pf *PartialFailureError
	require.True(t, errors.As(err, &pf))
	assert.Equal(t, model.MaxRecordErrors+50, pf.Failed)
	assert.Len(t, pf.Unwrap(), model.MaxRecordErrors)
	assert.Contains(t, err.Error(), "100 record errors kept")
}

func TestFailureCause(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{fmt.Errorf("open: %w", fernet.ErrInvalidSignature), "token signature does not match the source key"},
		{fmt.Errorf("open: %w", fernet.ErrTokenExpired), "token expired"},
		{fernet.ErrInvalidToken, "malformed token"},
		{context.Canceled, "cancelled"},
		{errors.New("disk full"), "destination write failed"},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, failureCause(tc.err), tc.err.Error())
	}
}
