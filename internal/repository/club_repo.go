package repository

import (
	"context"

	"eventory/api/internal/model"
)

type ClubFilter struct {
	HostID *int64
	Name   string
}

// JoinRequestRow is what a club host may see about a pending request.
type JoinRequestRow struct {
	ID     int64  `json:"id"`
	UserID int64  `json:"user_id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
}

type ClubRepository interface {
	Create(ctx context.Context, club *model.Club) error
	GetByID(ctx context.Context, id int64) (*model.Club, error)
	// GetByIDForUpdate locks the club row until the surrounding transaction ends.
	GetByIDForUpdate(ctx context.Context, id int64) (*model.Club, error)
	GetByName(ctx context.Context, name string) (*model.Club, error)
	List(ctx context.Context, filter ClubFilter) ([]model.Club, error)
	Update(ctx context.Context, id int64, updates map[string]interface{}) error
	Delete(ctx context.Context, id int64) error
	CountHostedBy(ctx context.Context, userID int64) (int64, error)

	AddMember(ctx context.Context, clubID, userID int64) error
	RemoveMember(ctx context.Context, clubID, userID int64) (int64, error)
	RemoveAllMembers(ctx context.Context, clubID int64) (int64, error)
	IsMember(ctx context.Context, clubID, userID int64) (bool, error)
	CountActiveMembers(ctx context.Context, clubID int64) (int64, error)
	ListActiveMembers(ctx context.Context, clubID int64) ([]MemberRow, error)

	CreateJoinRequest(ctx context.Context, req *model.ClubJoinRequest) error
	GetJoinRequest(ctx context.Context, id int64) (*model.ClubJoinRequest, error)
	HasJoinRequest(ctx context.Context, clubID, userID int64) (bool, error)
	ListJoinRequests(ctx context.Context, clubID int64) ([]JoinRequestRow, error)
	DeleteJoinRequest(ctx context.Context, id int64) (int64, error)
	DeleteJoinRequestsByClub(ctx context.Context, clubID int64) (int64, error)
}
