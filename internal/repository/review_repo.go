package repository

import (
	"context"

	"eventory/api/internal/model"
)

type ReviewFilter struct {
	EventID *int64
	UserID  *int64
}

type ReviewRepository interface {
	Create(ctx context.Context, review *model.Review) error
	GetByID(ctx context.Context, id int64) (*model.Review, error)
	List(ctx context.Context, filter ReviewFilter) ([]model.Review, error)
	Exists(ctx context.Context, eventID, userID int64) (bool, error)
}
