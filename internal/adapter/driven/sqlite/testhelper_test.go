package sqlite

import (
	"context"
	"fmt"
	"net/url"
	"testing"

	"github.com/ericfisherdev/aimanager/internal/fernet"
)

const testSecretKey = "Jw4Ff1BWLnSykdfXDVOuEJCG6m9dyST5B1VhU_qg0fI="

// setupTestDB returns a migrated in-memory database private to the test.
func setupTestDB(t *testing.T) *DB {
	t.Helper()
	return setupNamedTestDB(t, t.Name())
}

// setupNamedTestDB is setupTestDB for tests that need more than one database.
func setupNamedTestDB(t *testing.T, name string) *DB {
	t.Helper()

	// Subtest names contain '/', and both pools must see one shared database.
	dsn := fmt.Sprintf(
		"file:%s?mode=memory&cache=shared&_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)",
		url.PathEscape(name),
	)

	db, err := open(context.Background(), dsn, dsn)
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}

	if err := RunMigrations(db.Writer); err != nil {
		_ = db.Close()
		t.Fatalf("run migrations: %v", err)
	}

	t.Cleanup(func() { _ = db.Close() })

	return db
}

func testCipher(t *testing.T) *fernet.Cipher {
	t.Helper()
	return cipherFor(t, testSecretKey)
}

func cipherFor(t *testing.T, secret string) *fernet.Cipher {
	t.Helper()
	key, err := fernet.ParseKey(secret)
	if err != nil {
		t.Fatalf("parse key: %v", err)
	}
	return fernet.NewCipher(key)
}

func ptr[T any](v T) *T { return &v }
