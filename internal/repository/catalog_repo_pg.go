package repository

import (
	"context"

	"gorm.io/gorm"

	"eventory/api/internal/model"
)

type pgCatalogRepository struct {
	db *gorm.DB
}

func NewPGCatalogRepository(db *gorm.DB) CatalogRepository {
	return &pgCatalogRepository{db: db}
}

func (r *pgCatalogRepository) ListCategories(ctx context.Context) ([]model.Category, error) {
	categories := []model.Category{}
	err := r.db.WithContext(ctx).Order("name ASC").Find(&categories).Error
	return categories, err
}

func (r *pgCatalogRepository) ListCities(ctx context.Context) ([]model.City, error) {
	cities := []model.City{}
	err := r.db.WithContext(ctx).Order("name ASC").Find(&cities).Error
	return cities, err
}

func (r *pgCatalogRepository) GetCategory(ctx context.Context, id int64) (*model.Category, error) {
	var category model.Category
	if err := r.db.WithContext(ctx).First(&category, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &category, nil
}

func (r *pgCatalogRepository) CitiesByIDs(ctx context.Context, ids []int64) ([]model.City, error) {
	cities := []model.City{}
	if len(ids) == 0 {
		return cities, nil
	}
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Order("id ASC").Find(&cities).Error
	return cities, err
}

func (r *pgCatalogRepository) EnsureCategory(ctx context.Context, name string) (*model.Category, bool, error) {
	category := model.Category{Name: name}
	res := r.db.WithContext(ctx).Where(model.Category{Name: name}).FirstOrCreate(&category)
	if res.Error != nil {
		return nil, false, res.Error
	}
	return &category, res.RowsAffected > 0, nil
}

func (r *pgCatalogRepository) EnsureCity(ctx context.Context, name string) (*model.City, bool, error) {
	city := model.City{Name: name}
	res := r.db.WithContext(ctx).Where(model.City{Name: name}).FirstOrCreate(&city)
	if res.Error != nil {
		return nil, false, res.Error
	}
	return &city, res.RowsAffected > 0, nil
}
