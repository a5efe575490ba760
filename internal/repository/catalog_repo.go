package repository

import (
	"context"

	"eventory/api/internal/model"
)

type CatalogRepository interface {
	ListCategories(ctx context.Context) ([]model.Category, error)
	ListCities(ctx context.Context) ([]model.City, error)
	GetCategory(ctx context.Context, id int64) (*model.Category, error)
	// CitiesByIDs returns the existing cities among ids; duplicates in ids yield one row.
	CitiesByIDs(ctx context.Context, ids []int64) ([]model.City, error)
	// EnsureCategory and EnsureCity insert the name unless it already exists.
	EnsureCategory(ctx context.Context, name string) (*model.Category, bool, error)
	EnsureCity(ctx context.Context, name string) (*model.City, bool, error)
}
