package service

import (
	"context"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"eventory/api/internal/model"
	"eventory/api/internal/repository"
)

// CatalogSeed is the shape of the seed file consumed by the seed command.
type CatalogSeed struct {
	Categories []string `yaml:"categories"`
	Cities     []string `yaml:"cities"`
}

// ParseCatalogSeed decodes a seed document, rejecting unknown keys.
func ParseCatalogSeed(r io.Reader) (*CatalogSeed, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var seed CatalogSeed
	if err := dec.Decode(&seed); err != nil {
		return nil, fmt.Errorf("decode catalog seed: %w", err)
	}
	return &seed, nil
}

type SeedResult struct {
	CategoriesCreated int
	CitiesCreated     int
}

type CatalogService interface {
	ListCategories(ctx context.Context) ([]model.Category, error)
	ListCities(ctx context.Context) ([]model.City, error)
	// Seed inserts every missing name and leaves existing rows alone, so it is safe to rerun.
	Seed(ctx context.Context, seed *CatalogSeed) (SeedResult, error)
}

type catalogService struct {
	store  repository.Store
	logger *zap.Logger
}

func NewCatalogService(store repository.Store, logger *zap.Logger) CatalogService {
	return &catalogService{store: store, logger: logger}
}

func (s *catalogService) ListCategories(ctx context.Context) ([]model.Category, error) {
	categories, err := s.store.Catalog().ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return categories, nil
}

func (s *catalogService) ListCities(ctx context.Context) ([]model.City, error) {
	cities, err := s.store.Catalog().ListCities(ctx)
	if err != nil {
		return nil, fmt.Errorf("list cities: %w", err)
	}
	return cities, nil
}

func (s *catalogService) Seed(ctx context.Context, seed *CatalogSeed) (SeedResult, error) {
	var res SeedResult
	err := s.store.RunInTransaction(ctx, func(tx repository.Store) error {
		for _, name := range seed.Categories {
			name = strings.TrimSpace(name)
			if name == "" {
				continue
			}
			_, created, err := tx.Catalog().EnsureCategory(ctx, name)
			if err != nil {
				return fmt.Errorf("seed category %q: %w", name, err)
			}
			if created {
				res.CategoriesCreated++
			}
		}
		for _, name := range seed.Cities {
			name = strings.TrimSpace(name)
			if name == "" {
				continue
			}
			_, created, err := tx.Catalog().EnsureCity(ctx, name)
			if err != nil {
				return fmt.Errorf("seed city %q: %w", name, err)
			}
			if created {
				res.CitiesCreated++
			}
		}
		return nil
	})
	if err != nil {
		return SeedResult{}, err
	}

	s.logger.Info("catalog seeded",
		zap.Int("categories_created", res.CategoriesCreated),
		zap.Int("cities_created", res.CitiesCreated),
	)
	return res, nil
}

var _ CatalogService = (*catalogService)(nil)
