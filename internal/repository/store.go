package repository

import (
	"context"

	"gorm.io/gorm"
)

// Store is the entity store. Repositories handed out by the Store passed to a
// RunInTransaction callback share that transaction; returning an error from the
// callback rolls back every write made through them.
type Store interface {
	Users() UserRepository
	Clubs() ClubRepository
	Events() EventRepository
	Catalog() CatalogRepository
	Reviews() ReviewRepository

	RunInTransaction(ctx context.Context, fn func(tx Store) error) error
	Ping(ctx context.Context) error
}

type pgStore struct {
	db *gorm.DB
}

func NewPGStore(db *gorm.DB) Store {
	return &pgStore{db: db}
}

func (s *pgStore) Users() UserRepository { return NewPGUserRepository(s.db) }
func (s *pgStore) Clubs() ClubRepository { return NewPGClubRepository(s.db) }
func (s *pgStore) Events() EventRepository { return NewPGEventRepository(s.db) }
func (s *pgStore) Catalog() CatalogRepository { return NewPGCatalogRepository(s.db) }
func (s *pgStore) Reviews() ReviewRepository { return NewPGReviewRepository(s.db) }

// RunInTransaction nests as a savepoint when s is already transactional.
func (s *pgStore) RunInTransaction(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&pgStore{db: tx})
	})
}

func (s *pgStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// activeUsers joins users onto a membership-shaped table (anything with a
// user_id column), dropping soft-deleted users. Every roster listing and every
// capacity count goes through this scope.
func activeUsers(table string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Joins("JOIN users ON users.id = " + table + ".user_id AND users.deleted_at IS NULL")
	}
}

// MemberRow is the public projection of a roster entry.
type MemberRow struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}
