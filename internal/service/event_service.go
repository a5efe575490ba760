package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"eventory/api/internal/metrics"
	"eventory/api/internal/model"
	"eventory/api/internal/repository"
	"eventory/api/pkg/nullable"
)

type CreateEventInput struct {
	HostID      int64
	Title       string
	Description string
	CategoryID  int64
	CityIDs     []int64
	StartTime   time.Time
	EndTime     time.Time
	MaxPeople   int
	ClubID      *int64
}

type UpdateEventInput struct {
	Title       nullable.Field[string]    `json:"title"`
	Description nullable.Field[string]    `json:"description"`
	CategoryID  nullable.Field[int64]     `json:"categoryId"`
	CityIDs     nullable.Field[[]int64]   `json:"cityIds"`
	StartTime   nullable.Field[time.Time] `json:"startTime"`
	EndTime     nullable.Field[time.Time] `json:"endTime"`
	MaxPeople   nullable.Field[int]       `json:"maxPeople"`
}

type EventSummary struct {
	model.Event
	CityIDs []int64 `json:"city_ids"`
}

type EventDetail struct {
	EventSummary
	Participants []repository.MemberRow `json:"participants"`
}

func summarize(e model.Event) EventSummary {
	return EventSummary{Event: e, CityIDs: e.CityIDs()}
}

type EventService interface {
	CreateEvent(ctx context.Context, in CreateEventInput) (*EventDetail, error)
	// GetEvent reports ErrEventNotFound both for a missing event and for one
	// the viewer may not see; viewerID 0 is an anonymous viewer.
	GetEvent(ctx context.Context, eventID, viewerID int64) (*EventDetail, error)
	GetEvents(ctx context.Context, filter repository.EventFilter, viewerID int64) ([]EventSummary, error)
	UpdateEvent(ctx context.Context, eventID int64, in UpdateEventInput, actingUserID int64) (*EventDetail, error)
	DeleteEvent(ctx context.Context, eventID, actingUserID int64) error
	JoinEvent(ctx context.Context, eventID, userID int64) error
	LeaveEvent(ctx context.Context, eventID, userID int64) error

	ExportCalendar(ctx context.Context, eventID, viewerID int64) (string, error)
	ExportMyCalendar(ctx context.Context, userID int64) (string, error)
}

type eventService struct {
	store   repository.Store
	clock   Clock
	logger  *zap.Logger
	metrics *metrics.Metrics
}

func NewEventService(store repository.Store, clock Clock, logger *zap.Logger, m *metrics.Metrics) EventService {
	return &eventService{store: store, clock: clock, logger: logger, metrics: m}
}

func (s *eventService) CreateEvent(ctx context.Context, in CreateEventInput) (detail *EventDetail, err error) {
	defer func() { s.metrics.Operation("create_event", outcome(err)) }()

	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, invalid("title is required")
	}
	if in.MaxPeople < 1 {
		return nil, invalid("maxPeople must be at least 1")
	}
	cityIDs := uniqueIDs(in.CityIDs)
	if len(cityIDs) == 0 {
		return nil, invalid("at least one city is required")
	}

	if _, err := s.store.Users().GetByID(ctx, in.HostID); err != nil {
		return nil, notFoundOr(err, ErrUserNotFound, "get host")
	}
	if err := s.checkCatalog(ctx, s.store, &in.CategoryID, cityIDs); err != nil {
		return nil, err
	}
	if !in.StartTime.Before(in.EndTime) {
		return nil, ErrInvalidTimeRange
	}
	if in.StartTime.Before(s.clock.Now()) {
		return nil, ErrStartInPast
	}

	event := &model.Event{
		HostID:      in.HostID,
		Title:       title,
		Description: in.Description,
		CategoryID:  in.CategoryID,
		ClubID:      in.ClubID,
		StartTime:   in.StartTime.UTC(),
		EndTime:     in.EndTime.UTC(),
		MaxPeople:   in.MaxPeople,
	}
	err = s.store.RunInTransaction(ctx, func(tx repository.Store) error {
		// Held until commit so a concurrent DeleteClub or LeaveClub cannot
		// cascade past the new event.
		if in.ClubID != nil {
			if _, err := tx.Clubs().GetByIDForUpdate(ctx, *in.ClubID); err != nil {
				return notFoundOr(err, ErrClubNotFound, "lock club")
			}
			isMember, err := tx.Clubs().IsMember(ctx, *in.ClubID, in.HostID)
			if err != nil {
				return fmt.Errorf("check club membership: %w", err)
			}
			if !isMember {
				return ErrClubMembersOnly
			}
		}

		if err := tx.Events().Create(ctx, event); err != nil {
			return fmt.Errorf("create event: %w", err)
		}
		if err := tx.Events().AddCities(ctx, event.ID, cityIDs); err != nil {
			return fmt.Errorf("add event cities: %w", err)
		}
		if err := tx.Events().AddMember(ctx, event.ID, in.HostID); err != nil {
			return fmt.Errorf("add host to roster: %w", err)
		}
		detail, err = s.detail(ctx, tx, event.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return detail, nil
}

func (s *eventService) GetEvent(ctx context.Context, eventID, viewerID int64) (*EventDetail, error) {
	visible, err := s.store.Events().IsVisible(ctx, eventID, viewerID)
	if err != nil {
		return nil, fmt.Errorf("check event visibility: %w", err)
	}
	if !visible {
		return nil, ErrEventNotFound
	}
	return s.detail(ctx, s.store, eventID)
}

func (s *eventService) GetEvents(ctx context.Context, filter repository.EventFilter, viewerID int64) ([]EventSummary, error) {
	events, err := s.store.Events().List(ctx, filter, viewerID)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	out := make([]EventSummary, 0, len(events))
	for _, e := range events {
		out = append(out, summarize(e))
	}
	return out, nil
}

func (s *eventService) UpdateEvent(ctx context.Context, eventID int64, in UpdateEventInput, actingUserID int64) (detail *EventDetail, err error) {
	defer func() { s.metrics.Operation("update_event", outcome(err)) }()

	updates, cityIDs, err := in.updates()
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()

	err = s.store.RunInTransaction(ctx, func(tx repository.Store) error {
		event, err := tx.Events().GetByIDForUpdate(ctx, eventID)
		if err != nil {
			return notFoundOr(err, ErrEventNotFound, "get event")
		}
		if event.HostID != actingUserID {
			return ErrNotEventHost
		}
		if event.IsArchived {
			return ErrEventArchived
		}
		if event.HasStarted(now) {
			return ErrEventStarted
		}

		var categoryID *int64
		if id, ok := updates["category_id"].(int64); ok {
			categoryID = &id
		}
		if err := s.checkCatalog(ctx, tx, categoryID, cityIDs); err != nil {
			return err
		}

		start, end := event.StartTime, event.EndTime
		if t, ok := updates["start_time"].(time.Time); ok {
			start = t
		}
		if t, ok := updates["end_time"].(time.Time); ok {
			end = t
		}
		if !start.Before(end) {
			return ErrInvalidTimeRange
		}
		if in.StartTime.Present() && start.Before(now) {
			return ErrStartInPast
		}

		if maxPeople, ok := updates["max_people"].(int); ok {
			count, err := tx.Events().CountActiveMembers(ctx, eventID)
			if err != nil {
				return fmt.Errorf("count participants: %w", err)
			}
			if int64(maxPeople) < count {
				return ErrRosterAboveCapacity
			}
		}

		if len(updates) > 0 {
			if err := tx.Events().Update(ctx, eventID, updates); err != nil {
				return fmt.Errorf("update event: %w", err)
			}
		}
		if cityIDs != nil {
			if err := tx.Events().ReplaceCities(ctx, eventID, cityIDs); err != nil {
				return fmt.Errorf("replace event cities: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.detail(ctx, s.store, eventID)
}

// updates validates the patch. cityIDs is nil when the city list is left unchanged.
func (in UpdateEventInput) updates() (map[string]interface{}, []int64, error) {
	switch {
	case in.Title.Set && in.Title.Null:
		return nil, nil, nullField("title")
	case in.Description.Set && in.Description.Null:
		return nil, nil, nullField("description")
	case in.CategoryID.Set && in.CategoryID.Null:
		return nil, nil, nullField("categoryId")
	case in.CityIDs.Set && in.CityIDs.Null:
		return nil, nil, nullField("cityIds")
	case in.StartTime.Set && in.StartTime.Null:
		return nil, nil, nullField("startTime")
	case in.EndTime.Set && in.EndTime.Null:
		return nil, nil, nullField("endTime")
	case in.MaxPeople.Set && in.MaxPeople.Null:
		return nil, nil, nullField("maxPeople")
	}

	updates := map[string]interface{}{}
	if in.Title.Present() {
		title := strings.TrimSpace(in.Title.Value)
		if title == "" {
			return nil, nil, invalid("title must not be empty")
		}
		updates["title"] = title
	}
	if in.Description.Present() {
		updates["description"] = in.Description.Value
	}
	if in.CategoryID.Present() {
		updates["category_id"] = in.CategoryID.Value
	}
	if in.StartTime.Present() {
		updates["start_time"] = in.StartTime.Value.UTC()
	}
	if in.EndTime.Present() {
		updates["end_time"] = in.EndTime.Value.UTC()
	}
	if in.MaxPeople.Present() {
		if in.MaxPeople.Value < 1 {
			return nil, nil, invalid("maxPeople must be at least 1")
		}
		updates["max_people"] = in.MaxPeople.Value
	}

	var cityIDs []int64
	if in.CityIDs.Present() {
		cityIDs = uniqueIDs(in.CityIDs.Value)
		if len(cityIDs) == 0 {
			return nil, nil, invalid("at least one city is required")
		}
	}
	return updates, cityIDs, nil
}

func (s *eventService) DeleteEvent(ctx context.Context, eventID, actingUserID int64) (err error) {
	defer func() { s.metrics.Operation("delete_event", outcome(err)) }()

	return s.store.RunInTransaction(ctx, func(tx repository.Store) error {
		event, err := tx.Events().GetByIDForUpdate(ctx, eventID)
		if err != nil {
			return notFoundOr(err, ErrEventNotFound, "get event")
		}
		if event.HostID != actingUserID {
			return ErrNotEventHost
		}
		if err := tx.Events().Purge(ctx, []int64{eventID}); err != nil {
			return fmt.Errorf("delete event: %w", err)
		}
		return nil
	})
}

// JoinEvent holds the event row lock across the capacity count and the insert.
// For a club event the club row is locked first, the order DeleteClub and
// LeaveClub lock in, so the membership check stays true until commit.
func (s *eventService) JoinEvent(ctx context.Context, eventID, userID int64) (err error) {
	defer func() { s.metrics.Operation("join_event", outcome(err)) }()

	if _, err := s.store.Users().GetByID(ctx, userID); err != nil {
		return notFoundOr(err, ErrUserNotFound, "get user")
	}
	now := s.clock.Now()

	return s.store.RunInTransaction(ctx, func(tx repository.Store) error {
		current, err := tx.Events().GetByID(ctx, eventID)
		if err != nil {
			return notFoundOr(err, ErrEventNotFound, "get event")
		}
		if current.ClubID != nil {
			// A club deleted meanwhile has archived or purged the event; the
			// locked reload below reports that.
			if _, err := tx.Clubs().GetByIDForUpdate(ctx, *current.ClubID); err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("lock club: %w", err)
			}
		}

		event, err := tx.Events().GetByIDForUpdate(ctx, eventID)
		if err != nil {
			return notFoundOr(err, ErrEventNotFound, "get event")
		}
		if event.IsArchived {
			return ErrEventArchived
		}
		if event.HasStarted(now) {
			return ErrEventStarted
		}
		if event.ClubID != nil {
			isMember, err := tx.Clubs().IsMember(ctx, *event.ClubID, userID)
			if err != nil {
				return fmt.Errorf("check club membership: %w", err)
			}
			if !isMember {
				return ErrClubMembersOnly
			}
		}

		joined, err := tx.Events().IsMember(ctx, eventID, userID)
		if err != nil {
			return fmt.Errorf("check roster: %w", err)
		}
		if joined {
			return ErrAlreadyJoined
		}
		count, err := tx.Events().CountActiveMembers(ctx, eventID)
		if err != nil {
			return fmt.Errorf("count participants: %w", err)
		}
		if count >= int64(event.MaxPeople) {
			return ErrEventFull
		}

		if err := tx.Events().AddMember(ctx, eventID, userID); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrAlreadyJoined
			}
			return fmt.Errorf("join event: %w", err)
		}
		return nil
	})
}

func (s *eventService) LeaveEvent(ctx context.Context, eventID, userID int64) (err error) {
	defer func() { s.metrics.Operation("leave_event", outcome(err)) }()

	now := s.clock.Now()
	return s.store.RunInTransaction(ctx, func(tx repository.Store) error {
		event, err := tx.Events().GetByIDForUpdate(ctx, eventID)
		if err != nil {
			return notFoundOr(err, ErrEventNotFound, "get event")
		}
		if event.HostID == userID {
			return ErrEventHostCannotLeave
		}
		joined, err := tx.Events().IsMember(ctx, eventID, userID)
		if err != nil {
			return fmt.Errorf("check roster: %w", err)
		}
		if !joined {
			return ErrNotJoined
		}
		if event.HasStarted(now) {
			return ErrEventStarted
		}

		if _, err := tx.Events().RemoveMember(ctx, eventID, userID); err != nil {
			return fmt.Errorf("leave event: %w", err)
		}
		return nil
	})
}

// checkCatalog verifies the category (when set) and every city id exist.
func (s *eventService) checkCatalog(ctx context.Context, st repository.Store, categoryID *int64, cityIDs []int64) error {
	if categoryID != nil {
		if _, err := st.Catalog().GetCategory(ctx, *categoryID); err != nil {
			return notFoundOr(err, ErrCategoryNotFound, "get category")
		}
	}
	if len(cityIDs) > 0 {
		cities, err := st.Catalog().CitiesByIDs(ctx, cityIDs)
		if err != nil {
			return fmt.Errorf("get cities: %w", err)
		}
		if len(cities) != len(cityIDs) {
			return ErrCityNotFound
		}
	}
	return nil
}

func (s *eventService) detail(ctx context.Context, st repository.Store, eventID int64) (*EventDetail, error) {
	event, err := st.Events().GetByID(ctx, eventID)
	if err != nil {
		return nil, notFoundOr(err, ErrEventNotFound, "get event")
	}
	members, err := st.Events().ListActiveMembers(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}
	return &EventDetail{EventSummary: summarize(*event), Participants: members}, nil
}

var _ EventService = (*eventService)(nil)
