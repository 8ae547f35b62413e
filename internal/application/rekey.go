package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"

	"github.com/ericfisherdev/aimanager/internal/domain/model"
	"github.com/ericfisherdev/aimanager/internal/domain/port/driven"
	"github.com/ericfisherdev/aimanager/internal/fernet"
)

// DefaultBatchSize is the number of rows read per keyset page.
const DefaultBatchSize = 100

// ErrMigrationPartialFailure is matched by a PartialFailureError.
var ErrMigrationPartialFailure = errors.New("migration finished with failed records")

// PartialFailureError aggregates every kept RecordError of a run.
type PartialFailureError struct {
	Failed int
	errs   *multierror.Error
}

func (e *PartialFailureError) Error() string {
	return fmt.Sprintf("%s: %d failed: %s", ErrMigrationPartialFailure, e.Failed, e.errs.Error())
}

func (e *PartialFailureError) Is(target error) bool {
	return target == ErrMigrationPartialFailure
}

// Unwrap exposes the individual model.RecordError values to errors.As.
func (e *PartialFailureError) Unwrap() []error {
	return e.errs.WrappedErrors()
}

// CheckReport returns a *PartialFailureError when any record of report
// failed, nil otherwise.
func CheckReport(report *model.MigrationReport) error {
	_, _, failed := report.Totals()
	if failed == 0 {
		return nil
	}

	merr := &multierror.Error{ErrorFormat: func(errs []error) string {
		return fmt.Sprintf("%d record errors kept", len(errs))
	}}
	for _, re := range report.Failures() {
		merr = multierror.Append(merr, re)
	}
	return &PartialFailureError{Failed: failed, errs: merr}
}

// MigrationStores is one side of a copy: every table seen as sealed rows.
// Destination fields may be nil for a dry run.
type MigrationStores struct {
	ClaudeProviders driven.SealedStore[model.ClaudeProvider]
	CodexProviders  driven.SealedStore[model.CodexProvider]
	AgentGuides     driven.SealedStore[model.AgentGuide]
	MCPServers      driven.SealedStore[model.MCPServer]
	CommonConfigs   driven.SealedStore[model.CommonConfig]
}

// ReKeyOption configures a ReKeyMigrator.
type ReKeyOption func(*ReKeyMigrator)

// WithBatchSize sets the keyset page size. Values below 1 are ignored.
func WithBatchSize(n int) ReKeyOption {
	return func(m *ReKeyMigrator) {
		if n > 0 {
			m.batchSize = n
		}
	}
}

// WithMigrationClock replaces the clock used for report timestamps.
func WithMigrationClock(now func() time.Time) ReKeyOption {
	return func(m *ReKeyMigrator) { m.now = now }
}

// ReKeyMigrator copies every table from one store to another, opening
// tokens with the source cipher and sealing them again with the destination
// cipher. Rows are handled one at a time: a failing row is recorded and
// skipped, everything before it stays committed.
type ReKeyMigrator struct {
	from      driven.SecretCipher
	to        driven.SecretCipher
	logger    *slog.Logger
	batchSize int
	now       func() time.Time
}

// NewReKeyMigrator creates a migrator that opens tokens with from and seals
// them with to.
func NewReKeyMigrator(from, to driven.SecretCipher, logger *slog.Logger, opts ...ReKeyOption) *ReKeyMigrator {
	m := &ReKeyMigrator{
		from:      from,
		to:        to,
		logger:    logger,
		batchSize: DefaultBatchSize,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Run copies src into dst in model.EntityOrder. With dryRun set every token
// is still opened and resealed but nothing is written.
//
// Run is not idempotent: running it twice against the same destination
// inserts every row twice. Clear the destination before retrying.
//
// When ctx is cancelled Run stops between rows and returns the report so far
// together with ctx.Err(). Failed rows do not make Run return an error; use
// CheckReport for that.
func (m *ReKeyMigrator) Run(ctx context.Context, src, dst MigrationStores, dryRun bool) (*model.MigrationReport, error) {
	report := &model.MigrationReport{
		RunID:     uuid.NewString(),
		DryRun:    dryRun,
		StartedAt: m.now().UTC(),
	}
	for _, e := range model.EntityOrder {
		report.Entity(e)
	}

	log := m.logger.With("run_id", report.RunID, "dry_run", dryRun)
	log.Info("migration started", "batch_size", m.batchSize)

	steps := []func() error{
		func() error {
			return copyRows(ctx, m, log, report.Entity(model.EntityClaudeProviders), src.ClaudeProviders, dst.ClaudeProviders, dryRun,
				func(p model.ClaudeProvider) (model.ClaudeProvider, error) {
					token, err := m.reseal(p.Token)
					p.Token = token
					return p, err
				})
		},
		func() error {
			return copyRows(ctx, m, log, report.Entity(model.EntityCodexProviders), src.CodexProviders, dst.CodexProviders, dryRun,
				func(p model.CodexProvider) (model.CodexProvider, error) {
					token, err := m.reseal(p.Token)
					p.Token = token
					return p, err
				})
		},
		func() error {
			return copyRows(ctx, m, log, report.Entity(model.EntityAgentGuides), src.AgentGuides, dst.AgentGuides, dryRun, unchanged[model.AgentGuide])
		},
		func() error {
			return copyRows(ctx, m, log, report.Entity(model.EntityMCPServers), src.MCPServers, dst.MCPServers, dryRun, unchanged[model.MCPServer])
		},
		func() error {
			return copyRows(ctx, m, log, report.Entity(model.EntityCommonConfigs), src.CommonConfigs, dst.CommonConfigs, dryRun, unchanged[model.CommonConfig])
		},
	}

	var runErr error
	for _, step := range steps {
		if runErr = step(); runErr != nil {
			break
		}
	}
	report.FinishedAt = m.now().UTC()

	attempted, migrated, failed := report.Totals()
	if runErr != nil {
		log.Error("migration stopped", "attempted", attempted, "migrated", migrated, "failed", failed, "error", runErr)
		return report, runErr
	}

	log.Info("migration finished", "attempted", attempted, "migrated", migrated, "failed", failed,
		"duration", report.FinishedAt.Sub(report.StartedAt))
	return report, nil
}

// reseal opens token with the source cipher and seals the plaintext with
// the destination cipher.
func (m *ReKeyMigrator) reseal(token string) (string, error) {
	plain, err := m.from.DecryptString(token)
	if err != nil {
		return "", fmt.Errorf("open token: %w", err)
	}

	sealed, err := m.to.EncryptString(plain)
	if err != nil {
		return "", fmt.Errorf("seal token: %w", err)
	}
	return sealed, nil
}

func unchanged[T any](rec T) (T, error) { return rec, nil }

// copyRows walks src in id order and inserts the transformed rows into dst.
// Only listing errors and cancellation abort the walk.
func copyRows[T identified](
	ctx context.Context,
	m *ReKeyMigrator,
	log *slog.Logger,
	stats *model.EntityStats,
	src, dst driven.SealedStore[T],
	dryRun bool,
	transform func(T) (T, error),
) error {
	if src == nil {
		return fmt.Errorf("%s: no source store", stats.Entity)
	}
	if dst == nil && !dryRun {
		return fmt.Errorf("%s: no destination store", stats.Entity)
	}

	return walkSealed(ctx, src, m.batchSize, func(row T) error {
		out, err := transform(row)
		if err == nil && !dryRun {
			_, err = dst.InsertSealed(ctx, out)
		}
		if err != nil {
			stats.RecordFailure(row.RecordKey(), failureCause(err))
			log.Warn("record not migrated", "entity", stats.Entity, "record", row.RecordKey(), "error", err)
			return nil
		}
		stats.RecordSuccess()
		return nil
	})
}

// walkSealed calls fn for every row of store in id order, reading pageSize
// rows at a time. It stops at the first error from fn, the store or ctx.
func walkSealed[T identified](ctx context.Context, store driven.SealedStore[T], pageSize int, fn func(T) error) error {
	var after int64
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		rows, err := store.ListSealedAfter(ctx, after, pageSize)
		if err != nil {
			return fmt.Errorf("read rows after id %d: %w", after, err)
		}

		for _, row := range rows {
			if err := ctx.Err(); err != nil {
				return err
			}
			after = row.RecordID()
			if err := fn(row); err != nil {
				return err
			}
		}

		if len(rows) < pageSize {
			return nil
		}
	}
}

// failureCause names the class of err for a RecordError.
func failureCause(err error) string {
	switch {
	case errors.Is(err, fernet.ErrInvalidSignature):
		return "token signature does not match the source key"
	case errors.Is(err, fernet.ErrTokenExpired):
		return "token expired"
	case errors.Is(err, fernet.ErrInvalidToken):
		return "malformed token"
	case errors.Is(err, driven.ErrConflict):
		return "conflicts with an existing destination row"
	case errors.Is(err, driven.ErrValidation):
		return "invalid record"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	default:
		return "destination write failed"
	}
}
