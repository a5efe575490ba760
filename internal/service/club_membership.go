package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"eventory/api/internal/model"
	"eventory/api/internal/repository"
)

// ParseJoinAction accepts APPROVE or REJECT in any letter case.
func ParseJoinAction(s string) (JoinAction, error) {
	switch JoinAction(strings.ToUpper(strings.TrimSpace(s))) {
	case ActionApprove:
		return ActionApprove, nil
	case ActionReject:
		return ActionReject, nil
	default:
		return "", ErrInvalidAction
	}
}

// RequestJoin files a pending request. A pending request does not hold a
// seat, so capacity is checked again when the host approves it. The checks run
// under the club row lock that approval takes, so a request and an approval for
// the same user cannot interleave.
func (s *clubService) RequestJoin(ctx context.Context, clubID, userID int64) (req *model.ClubJoinRequest, err error) {
	defer func() { s.metrics.Operation("request_join", outcome(err)) }()

	err = s.store.RunInTransaction(ctx, func(tx repository.Store) error {
		club, err := tx.Clubs().GetByIDForUpdate(ctx, clubID)
		if err != nil {
			return notFoundOr(err, ErrClubNotFound, "get club")
		}
		if _, err := tx.Users().GetByID(ctx, userID); err != nil {
			return notFoundOr(err, ErrUserNotFound, "get user")
		}

		isMember, err := tx.Clubs().IsMember(ctx, clubID, userID)
		if err != nil {
			return fmt.Errorf("check membership: %w", err)
		}
		if isMember {
			return ErrAlreadyClubMember
		}
		pending, err := tx.Clubs().HasJoinRequest(ctx, clubID, userID)
		if err != nil {
			return fmt.Errorf("check join request: %w", err)
		}
		if pending {
			return ErrAlreadyRequested
		}
		count, err := tx.Clubs().CountActiveMembers(ctx, clubID)
		if err != nil {
			return fmt.Errorf("count club members: %w", err)
		}
		if count >= int64(club.MaxPeople) {
			return ErrClubFull
		}

		req = &model.ClubJoinRequest{ClubID: clubID, UserID: userID}
		if err := tx.Clubs().CreateJoinRequest(ctx, req); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrAlreadyRequested
			}
			return fmt.Errorf("create join request: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return req, nil
}

func (s *clubService) ListJoinRequests(ctx context.Context, clubID, actingUserID int64) ([]repository.JoinRequestRow, error) {
	club, err := s.store.Clubs().GetByID(ctx, clubID)
	if err != nil {
		return nil, notFoundOr(err, ErrClubNotFound, "get club")
	}
	if club.HostID != actingUserID {
		return nil, ErrNotClubHost
	}
	rows, err := s.store.Clubs().ListJoinRequests(ctx, clubID)
	if err != nil {
		return nil, fmt.Errorf("list join requests: %w", err)
	}
	return rows, nil
}

func (s *clubService) ResolveJoinRequest(ctx context.Context, clubID, requestID int64, action JoinAction, actingUserID int64) (err error) {
	defer func() { s.metrics.Operation("resolve_join_request", outcome(err)) }()

	if action != ActionApprove && action != ActionReject {
		return ErrInvalidAction
	}

	req, err := s.store.Clubs().GetJoinRequest(ctx, requestID)
	if err != nil {
		return notFoundOr(err, ErrRequestNotFound, "get join request")
	}
	if req.ClubID != clubID {
		return ErrRequestNotFound
	}
	club, err := s.store.Clubs().GetByID(ctx, clubID)
	if err != nil {
		return notFoundOr(err, ErrClubNotFound, "get club")
	}
	if club.HostID != actingUserID {
		return ErrNotClubHost
	}

	if action == ActionReject {
		n, err := s.store.Clubs().DeleteJoinRequest(ctx, requestID)
		if err != nil {
			return fmt.Errorf("delete join request: %w", err)
		}
		if n == 0 {
			return ErrRequestResolved
		}
		return nil
	}

	if _, err := s.store.Users().GetByID(ctx, req.UserID); err != nil {
		return notFoundOr(err, ErrUserNotFound, "get requester")
	}

	err = s.store.RunInTransaction(ctx, func(tx repository.Store) error {
		locked, err := tx.Clubs().GetByIDForUpdate(ctx, clubID)
		if err != nil {
			return notFoundOr(err, ErrClubNotFound, "lock club")
		}
		count, err := tx.Clubs().CountActiveMembers(ctx, clubID)
		if err != nil {
			return fmt.Errorf("count club members: %w", err)
		}
		if count >= int64(locked.MaxPeople) {
			return ErrClubFull
		}

		n, err := tx.Clubs().DeleteJoinRequest(ctx, requestID)
		if err != nil {
			return fmt.Errorf("delete join request: %w", err)
		}
		if n == 0 {
			return ErrRequestResolved
		}
		if err := tx.Clubs().AddMember(ctx, clubID, req.UserID); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrAlreadyClubMember
			}
			return fmt.Errorf("add membership: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("join request approved",
		zap.Int64("club_id", clubID),
		zap.Int64("request_id", requestID),
		zap.Int64("user_id", req.UserID),
	)
	return nil
}

func (s *clubService) ChangeHost(ctx context.Context, clubID, newHostID, actingUserID int64) (club *model.Club, err error) {
	defer func() { s.metrics.Operation("change_host", outcome(err)) }()

	err = s.store.RunInTransaction(ctx, func(tx repository.Store) error {
		current, err := tx.Clubs().GetByIDForUpdate(ctx, clubID)
		if err != nil {
			return notFoundOr(err, ErrClubNotFound, "get club")
		}
		if current.HostID != actingUserID {
			return ErrNotClubHost
		}
		if _, err := tx.Users().GetByID(ctx, newHostID); err != nil {
			return notFoundOr(err, ErrUserNotFound, "get new host")
		}
		isMember, err := tx.Clubs().IsMember(ctx, clubID, newHostID)
		if err != nil {
			return fmt.Errorf("check membership: %w", err)
		}
		if !isMember {
			return ErrHostNotMember
		}

		if newHostID != current.HostID {
			if err := tx.Clubs().Update(ctx, clubID, map[string]interface{}{"host_id": newHostID}); err != nil {
				return fmt.Errorf("update host: %w", err)
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
