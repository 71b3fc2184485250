package repository

import "context"

// Transactor runs fn inside one storage transaction. Repositories called
// with the context passed to fn join that transaction.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
