package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"eventory/api/internal/model"
	"eventory/api/internal/repository"
)

const (
	MinReviewScore = 1
	MaxReviewScore = 5
)

type CreateReviewInput struct {
	UserID      int64
	EventID     int64
	Score       int
	Title       string
	Description string
}

type ReviewService interface {
	CreateReview(ctx context.Context, in CreateReviewInput) (*model.Review, error)
	GetReview(ctx context.Context, reviewID int64) (*model.Review, error)
	ListReviews(ctx context.Context, filter repository.ReviewFilter) ([]model.Review, error)
}

type reviewService struct {
	store repository.Store
	clock Clock
}

func NewReviewService(store repository.Store, clock Clock) ReviewService {
	return &reviewService{store: store, clock: clock}
}

// CreateReview accepts one review per participant, after the event has ended.
func (s *reviewService) CreateReview(ctx context.Context, in CreateReviewInput) (*model.Review, error) {
	if in.Score < MinReviewScore || in.Score > MaxReviewScore {
		return nil, invalid(fmt.Sprintf("score must be between %d and %d", MinReviewScore, MaxReviewScore))
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, invalid("title is required")
	}

	event, err := s.store.Events().GetByID(ctx, in.EventID)
	if err != nil {
		return nil, notFoundOr(err, ErrEventNotFound, "get event")
	}
	if _, err := s.store.Users().GetByID(ctx, in.UserID); err != nil {
		return nil, notFoundOr(err, ErrUserNotFound, "get user")
	}

	exists, err := s.store.Reviews().Exists(ctx, in.EventID, in.UserID)
	if err != nil {
		return nil, fmt.Errorf("check review: %w", err)
	}
	if exists {
		return nil, ErrReviewExists
	}
	if event.HostID == in.UserID {
		return nil, ErrHostCannotReview
	}
	joined, err := s.store.Events().IsMember(ctx, in.EventID, in.UserID)
	if err != nil {
		return nil, fmt.Errorf("check roster: %w", err)
	}
	if !joined || event.EndTime.After(s.clock.Now()) {
		return nil, ErrReviewNotAllowed
	}

	review := &model.Review{
		EventID:     in.EventID,
		UserID:      in.UserID,
		Score:       in.Score,
		Title:       title,
		Description: in.Description,
	}
	if err := s.store.Reviews().Create(ctx, review); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrReviewExists
		}
		return nil, fmt.Errorf("create review: %w", err)
	}
	return review, nil
}

func (s *reviewService) GetReview(ctx context.Context, reviewID int64) (*model.Review, error) {
	review, err := s.store.Reviews().GetByID(ctx, reviewID)
	if err != nil {
		return nil, notFoundOr(err, ErrReviewNotFound, "get review")
	}
	return review, nil
}

func (s *reviewService) ListReviews(ctx context.Context, filter repository.ReviewFilter) ([]model.Review, error) {
	reviews, err := s.store.Reviews().List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	return reviews, nil
}

var _ ReviewService = (*reviewService)(nil)
