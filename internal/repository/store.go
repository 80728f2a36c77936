package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store groups the repositories that share one connection or transaction.
type Store interface {
	Books() BookRepository
	Copies() CopyRepository
	Borrows() BorrowRepository
	Users() UserRepository
	Events() CirculationEventRepository
	// WithTransaction executes fn within a database transaction. The Store handed
	// to fn is bound to that transaction; returning an error rolls back every write.
	WithTransaction(ctx context.Context, fn func(ctx context.Context, tx Store) error) error
}

type store struct {
	db *gorm.DB
}

// NewStore builds a GORM-backed Store.
func NewStore(db *gorm.DB) Store {
	return &store{db: db}
}

func (s *store) Books() BookRepository              { return &bookRepository{db: s.db} }
func (s *store) Copies() CopyRepository             { return &copyRepository{db: s.db} }
func (s *store) Borrows() BorrowRepository          { return &borrowRepository{db: s.db} }
func (s *store) Users() UserRepository              { return &userRepository{db: s.db} }
func (s *store) Events() CirculationEventRepository { return &circulationEventRepository{db: s.db} }

// WithTransaction executes a function within a database transaction.
func (s *store) WithTransaction(ctx context.Context, fn func(ctx context.Context, tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, &store{db: tx})
	})
}

// forUpdate adds a row-level lock. Dialects without row locks (SQLite) drop the clause.
func forUpdate(db *gorm.DB) *gorm.DB {
	return db.Clauses(clause.Locking{Strength: "UPDATE"})
}
