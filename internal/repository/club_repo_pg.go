package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"eventory/api/internal/model"
)

type pgClubRepository struct {
	db *gorm.DB
}

func NewPGClubRepository(db *gorm.DB) ClubRepository {
	return &pgClubRepository{db: db}
}

func (r *pgClubRepository) Create(ctx context.Context, club *model.Club) error {
	return r.db.WithContext(ctx).Create(club).Error
}

func (r *pgClubRepository) GetByID(ctx context.Context, id int64) (*model.Club, error) {
	var club model.Club
	if err := r.db.WithContext(ctx).First(&club, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &club, nil
}

func (r *pgClubRepository) GetByIDForUpdate(ctx context.Context, id int64) (*model.Club, error) {
	var club model.Club
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&club, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &club, nil
}

func (r *pgClubRepository) GetByName(ctx context.Context, name string) (*model.Club, error) {
	var club model.Club
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&club).Error; err != nil {
		return nil, err
	}
	return &club, nil
}

func (r *pgClubRepository) List(ctx context.Context, filter ClubFilter) ([]model.Club, error) {
	q := r.db.WithContext(ctx).Model(&model.Club{})
	if filter.HostID != nil {
		q = q.Where("host_id = ?", *filter.HostID)
	}
	if name := strings.TrimSpace(filter.Name); name != "" {
		q = q.Where("lower(name) LIKE ?", "%"+strings.ToLower(name)+"%")
	}

	var clubs []model.Club
	if err := q.Order("id ASC").Find(&clubs).Error; err != nil {
		return nil, err
	}
	return clubs, nil
}

func (r *pgClubRepository) Update(ctx context.Context, id int64, updates map[string]interface{}) error {
	return r.db.WithContext(ctx).Model(&model.Club{}).Where("id = ?", id).Updates(updates).Error
}

func (r *pgClubRepository) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Delete(&model.Club{}, "id = ?", id).Error
}

func (r *pgClubRepository) CountHostedBy(ctx context.Context, userID int64) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Club{}).Where("host_id = ?", userID).Count(&n).Error
	return n, err
}

func (r *pgClubRepository) AddMember(ctx context.Context, clubID, userID int64) error {
	return r.db.WithContext(ctx).Create(&model.ClubMembership{ClubID: clubID, UserID: userID}).Error
}

func (r *pgClubRepository) RemoveMember(ctx context.Context, clubID, userID int64) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("club_id = ? AND user_id = ?", clubID, userID).
		Delete(&model.ClubMembership{})
	return res.RowsAffected, res.Error
}

func (r *pgClubRepository) RemoveAllMembers(ctx context.Context, clubID int64) (int64, error) {
	res := r.db.WithContext(ctx).Where("club_id = ?", clubID).Delete(&model.ClubMembership{})
	return res.RowsAffected, res.Error
}

func (r *pgClubRepository) IsMember(ctx context.Context, clubID, userID int64) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.ClubMembership{}).
		Where("club_id = ? AND user_id = ?", clubID, userID).
		Count(&n).Error
	return n > 0, err
}

func (r *pgClubRepository) CountActiveMembers(ctx context.Context, clubID int64) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.ClubMembership{}).
		Scopes(activeUsers("club_memberships")).
		Where("club_memberships.club_id = ?", clubID).
		Count(&n).Error
	return n, err
}

func (r *pgClubRepository) ListActiveMembers(ctx context.Context, clubID int64) ([]MemberRow, error) {
	rows := []MemberRow{}
	err := r.db.WithContext(ctx).Model(&model.ClubMembership{}).
		Select("users.id AS id, users.name AS name").
		Scopes(activeUsers("club_memberships")).
		Where("club_memberships.club_id = ?", clubID).
		Order("club_memberships.created_at ASC, users.id ASC").
		Scan(&rows).Error
	return rows, err
}

func (r *pgClubRepository) CreateJoinRequest(ctx context.Context, req *model.ClubJoinRequest) error {
	return r.db.WithContext(ctx).Create(req).Error
}

func (r *pgClubRepository) GetJoinRequest(ctx context.Context, id int64) (*model.ClubJoinRequest, error) {
	var req model.ClubJoinRequest
	if err := r.db.WithContext(ctx).First(&req, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *pgClubRepository) HasJoinRequest(ctx context.Context, clubID, userID int64) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.ClubJoinRequest{}).
		Where("club_id = ? AND user_id = ?", clubID, userID).
		Count(&n).Error
	return n > 0, err
}

func (r *pgClubRepository) ListJoinRequests(ctx context.Context, clubID int64) ([]JoinRequestRow, error) {
	rows := []JoinRequestRow{}
	err := r.db.WithContext(ctx).Model(&model.ClubJoinRequest{}).
		Select("club_join_requests.id AS id, users.id AS user_id, users.name AS name, users.email AS email").
		Scopes(activeUsers("club_join_requests")).
		Where("club_join_requests.club_id = ?", clubID).
		Order("club_join_requests.created_at ASC, club_join_requests.id ASC").
		Scan(&rows).Error
	return rows, err
}

func (r *pgClubRepository) DeleteJoinRequest(ctx context.Context, id int64) (int64, error) {
	res := r.db.WithContext(ctx).Delete(&model.ClubJoinRequest{}, "id = ?", id)
	return res.RowsAffected, res.Error
}

func (r *pgClubRepository) DeleteJoinRequestsByClub(ctx context.Context, clubID int64) (int64, error) {
	res := r.db.WithContext(ctx).Where("club_id = ?", clubID).Delete(&model.ClubJoinRequest{})
	return res.RowsAffected, res.Error
}
