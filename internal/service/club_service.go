package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"eventory/api/internal/metrics"
	"eventory/api/internal/model"
	"eventory/api/internal/repository"
	"eventory/api/pkg/nullable"
)

type CreateClubInput struct {
	Name        string
	Description string
	MaxPeople   int
	HostID      int64
}

// UpdateClubInput distinguishes an omitted field (left unchanged) from an
// explicit null (rejected).
type UpdateClubInput struct {
	Name        nullable.Field[string] `json:"name"`
	Description nullable.Field[string] `json:"description"`
	MaxPeople   nullable.Field[int]    `json:"maxPeople"`
}

type ClubDetail struct {
	model.Club
	Participants []repository.MemberRow `json:"participants"`
}

type JoinAction string

const (
	ActionApprove JoinAction = "APPROVE"
	ActionReject  JoinAction = "REJECT"
)

type ClubService interface {
	CreateClub(ctx context.Context, in CreateClubInput) (*model.Club, error)
	GetClub(ctx context.Context, clubID int64) (*ClubDetail, error)
	ListClubs(ctx context.Context, filter repository.ClubFilter) ([]model.Club, error)
	UpdateClub(ctx context.Context, clubID int64, in UpdateClubInput, actingUserID int64) (*model.Club, error)
	DeleteClub(ctx context.Context, clubID, actingUserID int64) error
	LeaveClub(ctx context.Context, clubID, userID int64) error

	RequestJoin(ctx context.Context, clubID, userID int64) (*model.ClubJoinRequest, error)
	ListJoinRequests(ctx context.Context, clubID, actingUserID int64) ([]repository.JoinRequestRow, error)
	ResolveJoinRequest(ctx context.Context, clubID, requestID int64, action JoinAction, actingUserID int64) error
	ChangeHost(ctx context.Context, clubID, newHostID, actingUserID int64) (*model.Club, error)
}

type clubService struct {
	store   repository.Store
	clock   Clock
	logger  *zap.Logger
	metrics *metrics.Metrics
}

func NewClubService(store repository.Store, clock Clock, logger *zap.Logger, m *metrics.Metrics) ClubService {
	return &clubService{store: store, clock: clock, logger: logger, metrics: m}
}

func (s *clubService) CreateClub(ctx context.Context, in CreateClubInput) (club *model.Club, err error) {
	defer func() { s.metrics.Operation("create_club", outcome(err)) }()

	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, invalid("name is required")
	}
	if in.MaxPeople < model.MinClubCapacity {
		return nil, invalid(fmt.Sprintf("maxPeople must be at least %d", model.MinClubCapacity))
	}

	err = s.store.RunInTransaction(ctx, func(tx repository.Store) error {
		if _, err := tx.Users().GetByID(ctx, in.HostID); err != nil {
			return notFoundOr(err, ErrUserNotFound, "get host")
		}
		if err := ensureClubNameFree(ctx, tx, name, 0); err != nil {
			return err
		}

		club = &model.Club{
			HostID:      in.HostID,
			Name:        name,
			Description: in.Description,
			MaxPeople:   in.MaxPeople,
		}
		if err := tx.Clubs().Create(ctx, club); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrClubNameTaken
			}
			return fmt.Errorf("create club: %w", err)
		}
		if err := tx.Clubs().AddMember(ctx, club.ID, in.HostID); err != nil {
			return fmt.Errorf("add host membership: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return club, nil
}

func (s *clubService) GetClub(ctx context.Context, clubID int64) (*ClubDetail, error) {
	club, err := s.store.Clubs().GetByID(ctx, clubID)
	if err != nil {
		return nil, notFoundOr(err, ErrClubNotFound, "get club")
	}
	members, err := s.store.Clubs().ListActiveMembers(ctx, clubID)
	if err != nil {
		return nil, fmt.Errorf("list club members: %w", err)
	}
	return &ClubDetail{Club: *club, Participants: members}, nil
}

func (s *clubService) ListClubs(ctx context.Context, filter repository.ClubFilter) ([]model.Club, error) {
	clubs, err := s.store.Clubs().List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list clubs: %w", err)
	}
	return clubs, nil
}

func (s *clubService) UpdateClub(ctx context.Context, clubID int64, in UpdateClubInput, actingUserID int64) (club *model.Club, err error) {
	defer func() { s.metrics.Operation("update_club", outcome(err)) }()

	updates, err := in.updates()
	if err != nil {
		return nil, err
	}

	err = s.store.RunInTransaction(ctx, func(tx repository.Store) error {
		current, err := tx.Clubs().GetByIDForUpdate(ctx, clubID)
		if err != nil {
			return notFoundOr(err, ErrClubNotFound, "get club")
		}
		if current.HostID != actingUserID {
			return ErrNotClubHost
		}

		if name, ok := updates["name"].(string); ok && name != current.Name {
			if err := ensureClubNameFree(ctx, tx, name, clubID); err != nil {
				return err
			}
		}
		if maxPeople, ok := updates["max_people"].(int); ok {
			count, err := tx.Clubs().CountActiveMembers(ctx, clubID)
			if err != nil {
				return fmt.Errorf("count club members: %w", err)
			}
			if int64(maxPeople) < count {
				return ErrCapacityBelowCount
			}
		}

		if len(updates) > 0 {
			if err := tx.Clubs().Update(ctx, clubID, updates); err != nil {
				if errors.Is(err, gorm.ErrDuplicatedKey) {
					return ErrClubNameTaken
				}
				return fmt.Errorf("update club: %w", err)
			}
		}

		club, err = tx.Clubs().GetByID(ctx, clubID)
		if err != nil {
			return fmt.Errorf("reload club: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return club, nil
}

// updates validates the patch and renders it as a column map.
func (in UpdateClubInput) updates() (map[string]interface{}, error) {
	if in.Name.Set && in.Name.Null {
		return nil, nullField("name")
	}
	if in.Description.Set && in.Description.Null {
		return nil, nullField("description")
	}
	if in.MaxPeople.Set && in.MaxPeople.Null {
		return nil, nullField("maxPeople")
	}

	updates := map[string]interface{}{}
	if in.Name.Present() {
		name := strings.TrimSpace(in.Name.Value)
		if name == "" {
			return nil, invalid("name must not be empty")
		}
		updates["name"] = name
	}
	if in.Description.Present() {
		updates["description"] = in.Description.Value
	}
	if in.MaxPeople.Present() {
		if in.MaxPeople.Value < model.MinClubCapacity {
			return nil, invalid(fmt.Sprintf("maxPeople must be at least %d", model.MinClubCapacity))
		}
		updates["max_people"] = in.MaxPeople.Value
	}
	return updates, nil
}

func (s *clubService) DeleteClub(ctx context.Context, clubID, actingUserID int64) (err error) {
	defer func() { s.metrics.Operation("delete_club", outcome(err)) }()

	var purged []int64
	var archived, members, requests int64
	now := s.clock.Now()

	err = s.store.RunInTransaction(ctx, func(tx repository.Store) error {
		club, err := tx.Clubs().GetByIDForUpdate(ctx, clubID)
		if err != nil {
			return notFoundOr(err, ErrClubNotFound, "get club")
		}
		if club.HostID != actingUserID {
			return ErrNotClubHost
		}

		purged, err = tx.Events().FutureIDsByClub(ctx, clubID, now)
		if err != nil {
			return fmt.Errorf("find future events: %w", err)
		}
		if err := tx.Events().Purge(ctx, purged); err != nil {
			return fmt.Errorf("purge future events: %w", err)
		}
		if archived, err = tx.Events().ArchiveStartedByClub(ctx, clubID, now); err != nil {
			return fmt.Errorf("archive started events: %w", err)
		}
		if members, err = tx.Clubs().RemoveAllMembers(ctx, clubID); err != nil {
			return fmt.Errorf("remove memberships: %w", err)
		}
		if requests, err = tx.Clubs().DeleteJoinRequestsByClub(ctx, clubID); err != nil {
			return fmt.Errorf("remove join requests: %w", err)
		}
		if err := tx.Clubs().Delete(ctx, clubID); err != nil {
			return fmt.Errorf("delete club: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.metrics.CascadeRows("delete_club", "events_purged", int64(len(purged)))
	s.metrics.CascadeRows("delete_club", "events_archived", archived)
	s.metrics.CascadeRows("delete_club", "memberships", members)
	s.metrics.CascadeRows("delete_club", "join_requests", requests)
	s.logger.Info("club deleted",
		zap.Int64("club_id", clubID),
		zap.Int64("host_id", actingUserID),
		zap.Int("events_purged", len(purged)),
		zap.Int64("events_archived", archived),
		zap.Int64("memberships_removed", members),
		zap.Int64("requests_removed", requests),
	)
	return nil
}

func (s *clubService) LeaveClub(ctx context.Context, clubID, userID int64) (err error) {
	defer func() { s.metrics.Operation("leave_club", outcome(err)) }()

	var purged []int64
	var left int64
	now := s.clock.Now()

	err = s.store.RunInTransaction(ctx, func(tx repository.Store) error {
		club, err := tx.Clubs().GetByIDForUpdate(ctx, clubID)
		if err != nil {
			return notFoundOr(err, ErrClubNotFound, "get club")
		}
		isMember, err := tx.Clubs().IsMember(ctx, clubID, userID)
		if err != nil {
			return fmt.Errorf("check membership: %w", err)
		}
		if !isMember {
			return ErrNotClubMember
		}
		if club.HostID == userID {
			return ErrHostCannotLeave
		}

		purged, err = tx.Events().FutureIDsByClubAndHost(ctx, clubID, userID, now)
		if err != nil {
			return fmt.Errorf("find hosted events: %w", err)
		}
		if err := tx.Events().Purge(ctx, purged); err != nil {
			return fmt.Errorf("purge hosted events: %w", err)
		}
		if left, err = tx.Events().LeaveFutureClubEvents(ctx, clubID, userID, now); err != nil {
			return fmt.Errorf("leave club events: %w", err)
		}
		if _, err := tx.Clubs().RemoveMember(ctx, clubID, userID); err != nil {
			return fmt.Errorf("remove membership: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.metrics.CascadeRows("leave_club", "events_purged", int64(len(purged)))
	s.metrics.CascadeRows("leave_club", "event_memberships", left)
	s.logger.Info("user left club",
		zap.Int64("club_id", clubID),
		zap.Int64("user_id", userID),
		zap.Int("events_purged", len(purged)),
		zap.Int64("events_left", left),
	)
	return nil
}

// ensureClubNameFree fails with ErrClubNameTaken when another club (not
// exceptID) already uses name.
func ensureClubNameFree(ctx context.Context, tx repository.Store, name string, exceptID int64) error {
	existing, err := tx.Clubs().GetByName(ctx, name)
	if err == nil {
		if existing.ID != exceptID {
			return ErrClubNameTaken
		}
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("check club name: %w", err)
	}
	return nil
}

var _ ClubService = (*clubService)(nil)
