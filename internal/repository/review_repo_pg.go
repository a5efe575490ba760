package repository

import (
	"context"

	"gorm.io/gorm"

	"eventory/api/internal/model"
)

type pgReviewRepository struct {
	db *gorm.DB
}

func NewPGReviewRepository(db *gorm.DB) ReviewRepository {
	return &pgReviewRepository{db: db}
}

func (r *pgReviewRepository) Create(ctx context.Context, review *model.Review) error {
	return r.db.WithContext(ctx).Create(review).Error
}

func (r *pgReviewRepository) GetByID(ctx context.Context, id int64) (*model.Review, error) {
	var review model.Review
	if err := r.db.WithContext(ctx).First(&review, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &review, nil
}

func (r *pgReviewRepository) List(ctx context.Context, filter ReviewFilter) ([]model.Review, error) {
	q := r.db.WithContext(ctx).Model(&model.Review{})
	if filter.EventID != nil {
		q = q.Where("event_id = ?", *filter.EventID)
	}
	if filter.UserID != nil {
		q = q.Where("user_id = ?", *filter.UserID)
	}

	reviews := []model.Review{}
	if err := q.Order("created_at DESC, id DESC").Find(&reviews).Error; err != nil {
		return nil, err
	}
	return reviews, nil
}

func (r *pgReviewRepository) Exists(ctx context.Context, eventID, userID int64) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Review{}).
		Where("event_id = ? AND user_id = ?", eventID, userID).
		Count(&n).Error
	return n > 0, err
}
