package repository

import (
	"context"
	"time"

	"eventory/api/internal/model"
)

// EventFilter narrows a listing; every set field must match.
type EventFilter struct {
	CategoryID *int64
	CityID     *int64
	HostID     *int64
	ClubID     *int64
}

type EventRepository interface {
	Create(ctx context.Context, event *model.Event) error
	GetByID(ctx context.Context, id int64) (*model.Event, error)
	// GetByIDForUpdate locks the event row until the surrounding transaction ends.
	GetByIDForUpdate(ctx context.Context, id int64) (*model.Event, error)
	// List returns the events visible to viewerID (0 for anonymous) that match filter.
	List(ctx context.Context, filter EventFilter, viewerID int64) ([]model.Event, error)
	IsVisible(ctx context.Context, eventID, viewerID int64) (bool, error)
	ListJoinedBy(ctx context.Context, userID int64) ([]model.Event, error)
	Update(ctx context.Context, id int64, updates map[string]interface{}) error

	AddCities(ctx context.Context, eventID int64, cityIDs []int64) error
	ReplaceCities(ctx context.Context, eventID int64, cityIDs []int64) error

	AddMember(ctx context.Context, eventID, userID int64) error
	RemoveMember(ctx context.Context, eventID, userID int64) (int64, error)
	IsMember(ctx context.Context, eventID, userID int64) (bool, error)
	CountActiveMembers(ctx context.Context, eventID int64) (int64, error)
	ListActiveMembers(ctx context.Context, eventID int64) ([]MemberRow, error)

	FutureIDsByClub(ctx context.Context, clubID int64, now time.Time) ([]int64, error)
	FutureIDsByClubAndHost(ctx context.Context, clubID, hostID int64, now time.Time) ([]int64, error)
	// Purge deletes the events together with their rosters, cities and reviews.
	Purge(ctx context.Context, ids []int64) error
	// ArchiveStartedByClub detaches the club's already-started events and marks them archived.
	ArchiveStartedByClub(ctx context.Context, clubID int64, now time.Time) (int64, error)
	// LeaveFutureClubEvents drops userID from every not-yet-started event of the club.
	LeaveFutureClubEvents(ctx context.Context, clubID, userID int64, now time.Time) (int64, error)
}
