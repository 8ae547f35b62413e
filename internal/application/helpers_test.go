package application

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/aimanager/internal/adapter/driven/sqlite"
	"github.com/ericfisherdev/aimanager/internal/fernet"
)

const (
	testKeyA = "Jw4Ff1BWLnSykdfXDVOuEJCG6m9dyST5B1VhU_qg0fI="
	testKeyB = "cw_0x689RpI-jtRR7oE8h_eQsKImvJapLeSbXpwF4e4="
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testKey(t *testing.T, s string) *fernet.Key {
	t.Helper()
	key, err := fernet.ParseKey(s)
	require.NoError(t, err)
	return key
}

// testStores is one migrated database with every repository bound to a
// cipher.
type testStores struct {
	db     *sqlite.DB
	cipher *fernet.Cipher
	claude *sqlite.ClaudeProviderRepo
	codex  *sqlite.CodexProviderRepo
	guides *sqlite.AgentGuideRepo
	mcp    *sqlite.MCPServerRepo
	config *sqlite.CommonConfigRepo
}

func newTestStores(t *testing.T, secret string) *testStores {
	t.Helper()

	db, err := sqlite.NewDB(context.Background(), filepath.Join(t.TempDir(), "aimanager.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, sqlite.RunMigrations(db.Writer))

	cipher := fernet.NewCipher(testKey(t, secret))
	return &testStores{
		db:     db,
		cipher: cipher,
		claude: sqlite.NewClaudeProviderRepo(db, cipher),
		codex:  sqlite.NewCodexProviderRepo(db, cipher),
		guides: sqlite.NewAgentGuideRepo(db),
		mcp:    sqlite.NewMCPServerRepo(db),
		config: sqlite.NewCommonConfigRepo(db),
	}
}

func (s *testStores) migration() MigrationStores {
	return MigrationStores{
		ClaudeProviders: s.claude,
		CodexProviders:  s.codex,
		AgentGuides:     s.guides,
		MCPServers:      s.mcp,
		CommonConfigs:   s.config,
	}
}

func (s *testStores) transfer() TransferStores {
	return TransferStores{
		ClaudeProviders: s.claude,
		CodexProviders:  s.codex,
		AgentGuides:     s.guides,
		MCPServers:      s.mcp,
		CommonConfigs:   s.config,
	}
}

func ptr[T any](v T) *T { return &v }
