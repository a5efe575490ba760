package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"eventory/api/internal/model"
)

type pgEventRepository struct {
	db *gorm.DB
}

func NewPGEventRepository(db *gorm.DB) EventRepository {
	return &pgEventRepository{db: db}
}

// fresh returns a statement-free handle for building subqueries and grouped conditions.
func (r *pgEventRepository) fresh() *gorm.DB {
	return r.db.Session(&gorm.Session{NewDB: true})
}

// visibleTo scopes a query on events to the visibility rule: open and not
// archived, or in a club the viewer belongs to, or archived and attended by the viewer.
func (r *pgEventRepository) visibleTo(viewerID int64) func(*gorm.DB) *gorm.DB {
	viewerClubs := r.fresh().Model(&model.ClubMembership{}).Select("club_id").Where("user_id = ?", viewerID)
	attended := r.fresh().Model(&model.EventMembership{}).Select("event_id").Where("user_id = ?", viewerID)

	return func(db *gorm.DB) *gorm.DB {
		return db.Where(
			"((events.club_id IS NULL AND events.is_archived = ?)"+
				" OR events.club_id IN (?)"+
				" OR (events.is_archived = ? AND events.id IN (?)))",
			false, viewerClubs, true, attended,
		)
	}
}

func (r *pgEventRepository) Create(ctx context.Context, event *model.Event) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(event).Error
}

func (r *pgEventRepository) GetByID(ctx context.Context, id int64) (*model.Event, error) {
	var event model.Event
	if err := r.db.WithContext(ctx).Preload("Cities").First(&event, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &event, nil
}

func (r *pgEventRepository) GetByIDForUpdate(ctx context.Context, id int64) (*model.Event, error) {
	var event model.Event
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&event, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &event, nil
}

func (r *pgEventRepository) List(ctx context.Context, filter EventFilter, viewerID int64) ([]model.Event, error) {
	q := r.db.WithContext(ctx).Model(&model.Event{}).
		Preload("Cities").
		Scopes(r.visibleTo(viewerID))

	if filter.CategoryID != nil {
		q = q.Where("events.category_id = ?", *filter.CategoryID)
	}
	if filter.HostID != nil {
		q = q.Where("events.host_id = ?", *filter.HostID)
	}
	if filter.ClubID != nil {
		q = q.Where("events.club_id = ?", *filter.ClubID)
	}
	if filter.CityID != nil {
		inCity := r.fresh().Model(&model.EventCity{}).Select("event_id").Where("city_id = ?", *filter.CityID)
		q = q.Where("events.id IN (?)", inCity)
	}

	events := []model.Event{}
	if err := q.Order("events.start_time ASC, events.id ASC").Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}

func (r *pgEventRepository) IsVisible(ctx context.Context, eventID, viewerID int64) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Event{}).
		Where("events.id = ?", eventID).
		Scopes(r.visibleTo(viewerID)).
		Count(&n).Error
	return n > 0, err
}

func (r *pgEventRepository) ListJoinedBy(ctx context.Context, userID int64) ([]model.Event, error) {
	joined := r.fresh().Model(&model.EventMembership{}).Select("event_id").Where("user_id = ?", userID)

	events := []model.Event{}
	err := r.db.WithContext(ctx).
		Preload("Cities").
		Where("events.id IN (?)", joined).
		Order("events.start_time ASC, events.id ASC").
		Find(&events).Error
	return events, err
}

func (r *pgEventRepository) Update(ctx context.Context, id int64, updates map[string]interface{}) error {
	return r.db.WithContext(ctx).Model(&model.Event{}).Where("id = ?", id).Updates(updates).Error
}

func (r *pgEventRepository) AddCities(ctx context.Context, eventID int64, cityIDs []int64) error {
	if len(cityIDs) == 0 {
		return nil
	}
	rows := make([]model.EventCity, 0, len(cityIDs))
	for _, cityID := range cityIDs {
		rows = append(rows, model.EventCity{EventID: eventID, CityID: cityID})
	}
	return r.db.WithContext(ctx).Create(&rows).Error
}

// ReplaceCities is delete-all-then-recreate; callers run it inside a transaction.
func (r *pgEventRepository) ReplaceCities(ctx context.Context, eventID int64, cityIDs []int64) error {
	if err := r.db.WithContext(ctx).Where("event_id = ?", eventID).Delete(&model.EventCity{}).Error; err != nil {
		return err
	}
	return r.AddCities(ctx, eventID, cityIDs)
}

func (r *pgEventRepository) AddMember(ctx context.Context, eventID, userID int64) error {
	return r.db.WithContext(ctx).Create(&model.EventMembership{EventID: eventID, UserID: userID}).Error
}

func (r *pgEventRepository) RemoveMember(ctx context.Context, eventID, userID int64) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("event_id = ? AND user_id = ?", eventID, userID).
		Delete(&model.EventMembership{})
	return res.RowsAffected, res.Error
}

func (r *pgEventRepository) IsMember(ctx context.Context, eventID, userID int64) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.EventMembership{}).
		Where("event_id = ? AND user_id = ?", eventID, userID).
		Count(&n).Error
	return n > 0, err
}

func (r *pgEventRepository) CountActiveMembers(ctx context.Context, eventID int64) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.EventMembership{}).
		Scopes(activeUsers("event_memberships")).
		Where("event_memberships.event_id = ?", eventID).
		Count(&n).Error
	return n, err
}

func (r *pgEventRepository) ListActiveMembers(ctx context.Context, eventID int64) ([]MemberRow, error) {
	rows := []MemberRow{}
	err := r.db.WithContext(ctx).Model(&model.EventMembership{}).
		Select("users.id AS id, users.name AS name").
		Scopes(activeUsers("event_memberships")).
		Where("event_memberships.event_id = ?", eventID).
		Order("event_memberships.created_at ASC, users.id ASC").
		Scan(&rows).Error
	return rows, err
}

func (r *pgEventRepository) FutureIDsByClub(ctx context.Context, clubID int64, now time.Time) ([]int64, error) {
	var ids []int64
	err := r.db.WithContext(ctx).Model(&model.Event{}).
		Where("club_id = ? AND start_time > ?", clubID, now).
		Pluck("id", &ids).Error
	return ids, err
}

func (r *pgEventRepository) FutureIDsByClubAndHost(ctx context.Context, clubID, hostID int64, now time.Time) ([]int64, error) {
	var ids []int64
	err := r.db.WithContext(ctx).Model(&model.Event{}).
		Where("club_id = ? AND host_id = ? AND start_time > ?", clubID, hostID, now).
		Pluck("id", &ids).Error
	return ids, err
}

func (r *pgEventRepository) Purge(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	db := r.db.WithContext(ctx)
	if err := db.Where("event_id IN ?", ids).Delete(&model.EventMembership{}).Error; err != nil {
		return err
	}
	if err := db.Where("event_id IN ?", ids).Delete(&model.EventCity{}).Error; err != nil {
		return err
	}
	if err := db.Where("event_id IN ?", ids).Delete(&model.Review{}).Error; err != nil {
		return err
	}
	return db.Where("id IN ?", ids).Delete(&model.Event{}).Error
}

func (r *pgEventRepository) ArchiveStartedByClub(ctx context.Context, clubID int64, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Model(&model.Event{}).
		Where("club_id = ? AND start_time <= ?", clubID, now).
		Updates(map[string]interface{}{
			"club_id":     nil,
			"is_archived": true,
		})
	return res.RowsAffected, res.Error
}

func (r *pgEventRepository) LeaveFutureClubEvents(ctx context.Context, clubID, userID int64, now time.Time) (int64, error) {
	future := r.fresh().Model(&model.Event{}).
		Select("id").
		Where("club_id = ? AND start_time > ?", clubID, now)

	res := r.db.WithContext(ctx).
		Where("user_id = ? AND event_id IN (?)", userID, future).
		Delete(&model.EventMembership{})
	return res.RowsAffected, res.Error
}
