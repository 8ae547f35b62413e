package driven

import (
	"context"

	"github.com/ericfisherdev/aimanager/internal/domain/model"
)

// SecretCipher seals and opens secret field values. Stores receive one at
// construction and route every encrypted column through it.
type SecretCipher interface {
	EncryptString(plaintext string) (string, error)
	DecryptString(token string) (string, error)
}

// Store is the persistence contract shared by every entity type. T is the
// record, In the creation input and P the partial-update patch.
//
// Update and Delete report whether a row was affected; a missing id is not
// an error for them. FindByID returns ErrNotFound for a missing id. Search
// rejects an empty term and unknown field names with ErrValidation.
type Store[T, In, P any] interface {
	Create(ctx context.Context, in In) (int64, error)
	FindByID(ctx context.Context, id int64) (*T, error)
	Update(ctx context.Context, id int64, patch P) (bool, error)
	Delete(ctx context.Context, id int64) (bool, error)
	Paginate(ctx context.Context, req model.PageRequest) (model.Page[T], error)
	Search(ctx context.Context, term string, fields []string, limit int) ([]T, error)
	Count(ctx context.Context) (int64, error)
}

// SealedStore moves rows verbatim, with encrypted columns left as tokens.
// Migration uses it to copy rows between stores without a cipher on the
// store side.
type SealedStore[T any] interface {
	// ListSealedAfter returns up to limit rows with id > afterID in id order.
	ListSealedAfter(ctx context.Context, afterID int64, limit int) ([]T, error)

	// InsertSealed inserts a row as given, assigning a new id. An enabled
	// provider row disables its siblings in the same transaction.
	InsertSealed(ctx context.Context, record T) (int64, error)

	// Truncate deletes every row.
	Truncate(ctx context.Context) error
}

// ExclusiveActivator is implemented by provider families where at most one
// row may be enabled.
type ExclusiveActivator interface {
	// SetExclusiveActive disables every row and enables id in one
	// transaction. Returns ErrNotFound, with nothing changed, when id does
	// not exist.
	SetExclusiveActive(ctx context.Context, id int64) error

	// Disable clears the enabled flag on id; false means no such row.
	Disable(ctx context.Context, id int64) (bool, error)

	// CountByStatus returns total and enabled row counts.
	CountByStatus(ctx context.Context) (model.Stats, error)
}
