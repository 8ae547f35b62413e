package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/ericfisherdev/aimanager/internal/domain/model"
	"github.com/ericfisherdev/aimanager/internal/domain/port/driven"
	"github.com/ericfisherdev/aimanager/internal/fernet"
)

// BatchOpener opens many tokens at once.
type BatchOpener interface {
	DecryptBatch(ctx context.Context, tokens []string) ([]string, error)
}

// TokenCheckError names the first stored token the key could not open.
type TokenCheckError struct {
	Entity model.EntityType
	Key    string
	Err    error
}

func (e *TokenCheckError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Entity, e.Key, e.Err)
}

func (e *TokenCheckError) Unwrap() error { return e.Err }

// VerifyTokens opens every provider token in stores with opener, one page
// at a time, and returns how many were checked. It stops at the first token
// that does not open and reports it as a *TokenCheckError.
func VerifyTokens(ctx context.Context, opener BatchOpener, stores MigrationStores) (int, error) {
	var checked int

	claude, err := verifyPages(ctx, opener, model.EntityClaudeProviders, stores.ClaudeProviders,
		func(p model.ClaudeProvider) string { return p.Token })
	checked += claude
	if err != nil {
		return checked, err
	}

	codex, err := verifyPages(ctx, opener, model.EntityCodexProviders, stores.CodexProviders,
		func(p model.CodexProvider) string { return p.Token })
	checked += codex
	return checked, err
}

func verifyPages[T identified](
	ctx context.Context,
	opener BatchOpener,
	entity model.EntityType,
	store driven.SealedStore[T],
	token func(T) string,
) (int, error) {
	if store == nil {
		return 0, nil
	}

	var (
		checked int
		after   int64
	)
	for {
		rows, err := store.ListSealedAfter(ctx, after, DefaultBatchSize)
		if err != nil {
			return checked, fmt.Errorf("read %s: %w", entity, err)
		}
		if len(rows) == 0 {
			return checked, nil
		}

		tokens := make([]string, len(rows))
		for i, r := range rows {
			tokens[i] = token(r)
		}

		if _, err := opener.DecryptBatch(ctx, tokens); err != nil {
			var be *fernet.BatchError
			if errors.As(err, &be) {
				return checked, &TokenCheckError{Entity: entity, Key: rows[be.Index].RecordKey(), Err: be.Err}
			}
			return checked, err
		}

		checked += len(rows)
		after = rows[len(rows)-1].RecordID()
		if len(rows) < DefaultBatchSize {
			return checked, nil
		}
	}
}
