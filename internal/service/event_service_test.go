package service_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventory/api/internal/model"
	"eventory/api/internal/repository"
	"eventory/api/internal/service"
	"eventory/api/internal/testutil"
	"eventory/api/pkg/nullable"
)

func (e *env) createInput(host *model.User) service.CreateEventInput {
	start := e.clock.Now().Add(48 * time.Hour)
	return service.CreateEventInput{
		HostID:      host.ID,
		Title:       "Picnic",
		Description: "bring snacks",
		CategoryID:  e.fx.Category().ID,
		CityIDs:     []int64{e.fx.City().ID},
		StartTime:   start,
		EndTime:     start.Add(3 * time.Hour),
		MaxPeople:   5,
	}
}

func TestCreateEvent(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	host := e.fx.User()
	in := e.createInput(host)
	second := e.fx.City()
	in.CityIDs = append(in.CityIDs, second.ID, second.ID)

	detail, err := e.events.CreateEvent(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, host.ID, detail.HostID)
	assert.ElementsMatch(t, []int64{in.CityIDs[0], second.ID}, detail.CityIDs)
	require.Len(t, detail.Participants, 1)
	assert.Equal(t, host.ID, detail.Participants[0].ID)
	assert.Nil(t, detail.ClubID)
	assert.False(t, detail.IsArchived)
}

func TestCreateEventRejects(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	host := e.fx.User()
	club := e.fx.Club(e.fx.User(), 5)
	missing := int64(9999)

	tests := []struct {
		name   string
		mutate func(*service.CreateEventInput)
		want   error
	}{
		{"start yesterday", func(in *service.CreateEventInput) {
			in.StartTime = e.clock.Now().Add(-24 * time.Hour)
		}, service.ErrStartInPast},
		{"start equals end", func(in *service.CreateEventInput) { in.EndTime = in.StartTime }, service.ErrInvalidTimeRange},
		{"start after end", func(in *service.CreateEventInput) { in.EndTime = in.StartTime.Add(-time.Minute) }, service.ErrInvalidTimeRange},
		{"missing host", func(in *service.CreateEventInput) { in.HostID = missing }, service.ErrUserNotFound},
		{"missing category", func(in *service.CreateEventInput) { in.CategoryID = missing }, service.ErrCategoryNotFound},
		{"missing city", func(in *service.CreateEventInput) { in.CityIDs = append(in.CityIDs, missing) }, service.ErrCityNotFound},
		{"no cities", func(in *service.CreateEventInput) { in.CityIDs = nil }, service.ErrBadRequest},
		{"missing club", func(in *service.CreateEventInput) { in.ClubID = &missing }, service.ErrClubNotFound},
		{"host outside club", func(in *service.CreateEventInput) { in.ClubID = &club.ID }, service.ErrClubMembersOnly},
		{"zero capacity", func(in *service.CreateEventInput) { in.MaxPeople = 0 }, service.ErrBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := e.createInput(host)
			tt.mutate(&in)
			_, err := e.events.CreateEvent(ctx, in)
			assert.ErrorIs(t, err, tt.want)
		})
	}
	assert.Zero(t, e.count(t, "events", "1 = 1"))
}

func TestGetEventHidesInvisible(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	host := e.fx.User()
	club := e.fx.Club(host, 5)
	ev := e.fx.Event(testutil.EventSpec{Host: host, Club: club, Start: e.clock.Now().Add(time.Hour)})

	_, err := e.events.GetEvent(ctx, ev.ID, e.fx.User().ID)
	assert.ErrorIs(t, err, service.ErrEventNotFound)
	_, err = e.events.GetEvent(ctx, ev.ID, 0)
	assert.ErrorIs(t, err, service.ErrEventNotFound)
	_, err = e.events.GetEvent(ctx, 9999, host.ID)
	assert.ErrorIs(t, err, service.ErrEventNotFound)

	detail, err := e.events.GetEvent(ctx, ev.ID, host.ID)
	require.NoError(t, err)
	assert.Equal(t, ev.ID, detail.ID)
}

func TestGetEventsSummaries(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	host := e.fx.User()
	city := e.fx.City()
	ev := e.fx.Event(testutil.EventSpec{Host: host, Cities: []*model.City{city}, Start: e.clock.Now().Add(time.Hour)})

	got, err := e.events.GetEvents(ctx, repository.EventFilter{CityID: &city.ID}, 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	if diff := cmp.Diff([]int64{city.ID}, got[0].CityIDs); diff != "" {
		t.Errorf("city ids mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, ev.Title, got[0].Title)
}

func TestJoinEvent(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	now := e.clock.Now()
	host := e.fx.User()

	t.Run("joins and rejects a second join", func(t *testing.T) {
		ev := e.fx.Event(testutil.EventSpec{Host: host, Start: now.Add(time.Hour)})
		u := e.fx.User()
		require.NoError(t, e.events.JoinEvent(ctx, ev.ID, u.ID))
		assert.ErrorIs(t, e.events.JoinEvent(ctx, ev.ID, u.ID), service.ErrAlreadyJoined)
	})
	t.Run("full", func(t *testing.T) {
		ev := e.fx.Event(testutil.EventSpec{Host: host, Start: now.Add(time.Hour), MaxPeople: 2})
		require.NoError(t, e.events.JoinEvent(ctx, ev.ID, e.fx.User().ID))
		assert.ErrorIs(t, e.events.JoinEvent(ctx, ev.ID, e.fx.User().ID), service.ErrEventFull)
	})
	t.Run("started", func(t *testing.T) {
		ev := e.fx.Event(testutil.EventSpec{Host: host, Start: now.Add(-time.Minute)})
		assert.ErrorIs(t, e.events.JoinEvent(ctx, ev.ID, e.fx.User().ID), service.ErrEventStarted)
	})
	t.Run("archived", func(t *testing.T) {
		ev := e.fx.Event(testutil.EventSpec{Host: host, Start: now.Add(-time.Hour), Archived: true})
		assert.ErrorIs(t, e.events.JoinEvent(ctx, ev.ID, e.fx.User().ID), service.ErrEventArchived)
	})
	t.Run("club only", func(t *testing.T) {
		club := e.fx.Club(host, 5)
		member := e.fx.User()
		e.fx.ClubMember(club, member)
		ev := e.fx.Event(testutil.EventSpec{Host: host, Club: club, Start: now.Add(time.Hour)})

		assert.ErrorIs(t, e.events.JoinEvent(ctx, ev.ID, e.fx.User().ID), service.ErrClubMembersOnly)
		assert.NoError(t, e.events.JoinEvent(ctx, ev.ID, member.ID))
	})
	t.Run("missing event or user", func(t *testing.T) {
		assert.ErrorIs(t, e.events.JoinEvent(ctx, 9999, host.ID), service.ErrEventNotFound)
		ev := e.fx.Event(testutil.EventSpec{Host: host, Start: now.Add(time.Hour)})
		assert.ErrorIs(t, e.events.JoinEvent(ctx, ev.ID, 9999), service.ErrUserNotFound)
	})
	t.Run("soft deleted participants free seats", func(t *testing.T) {
		ev := e.fx.Event(testutil.EventSpec{Host: host, Start: now.Add(time.Hour), MaxPeople: 2})
		gone := e.fx.User()
		e.fx.EventMember(ev, gone)
		e.fx.SoftDelete(gone)
		assert.NoError(t, e.events.JoinEvent(ctx, ev.ID, e.fx.User().ID))
	})
}

func TestConcurrentJoinsRespectCapacity(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	ev := e.fx.Event(testutil.EventSpec{Host: e.fx.User(), Start: e.clock.Now().Add(time.Hour), MaxPeople: 4})

	users := make([]*model.User, 10)
	for i := range users {
		users[i] = e.fx.User()
	}

	var wg sync.WaitGroup
	errs := make([]error, len(users))
	for i, u := range users {
		wg.Add(1)
		go func(i int, id int64) {
			defer wg.Done()
			errs[i] = e.events.JoinEvent(ctx, ev.ID, id)
		}(i, u.ID)
	}
	wg.Wait()

	joined := 0
	for _, err := range errs {
		switch {
		case err == nil:
			joined++
		case errors.Is(err, service.ErrEventFull):
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 3, joined)
	assert.Equal(t, int64(4), e.count(t, "event_memberships", "event_id = ?", ev.ID))
}

func TestLeaveEvent(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	now := e.clock.Now()
	host, u := e.fx.User(), e.fx.User()
	ev := e.fx.Event(testutil.EventSpec{Host: host, Start: now.Add(time.Hour)})

	assert.ErrorIs(t, e.events.LeaveEvent(ctx, ev.ID, host.ID), service.ErrEventHostCannotLeave)
	assert.ErrorIs(t, e.events.LeaveEvent(ctx, ev.ID, u.ID), service.ErrNotJoined)
	assert.ErrorIs(t, e.events.LeaveEvent(ctx, 9999, u.ID), service.ErrEventNotFound)

	e.fx.EventMember(ev, u)
	require.NoError(t, e.events.LeaveEvent(ctx, ev.ID, u.ID))
	assert.Zero(t, e.count(t, "event_memberships", "event_id = ? AND user_id = ?", ev.ID, u.ID))

	e.fx.EventMember(ev, u)
	e.clock.Advance(2 * time.Hour)
	assert.ErrorIs(t, e.events.LeaveEvent(ctx, ev.ID, u.ID), service.ErrEventStarted)
}

func TestUpdateEvent(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	now := e.clock.Now()
	host := e.fx.User()
	a, b, c := e.fx.City(), e.fx.City(), e.fx.City()
	ev := e.fx.Event(testutil.EventSpec{Host: host, Cities: []*model.City{a, b}, Start: now.Add(24 * time.Hour), MaxPeople: 5})
	e.fx.EventMember(ev, e.fx.User())
	e.fx.EventMember(ev, e.fx.User())

	t.Run("replaces cities and scalars", func(t *testing.T) {
		detail, err := e.events.UpdateEvent(ctx, ev.ID, service.UpdateEventInput{
			Title:   nullable.Of("Renamed"),
			CityIDs: nullable.Of([]int64{c.ID, b.ID}),
		}, host.ID)
		require.NoError(t, err)
		assert.Equal(t, "Renamed", detail.Title)
		assert.ElementsMatch(t, []int64{b.ID, c.ID}, detail.CityIDs)
		assert.Equal(t, ev.Description, detail.Description)
	})
	t.Run("null field", func(t *testing.T) {
		_, err := e.events.UpdateEvent(ctx, ev.ID, service.UpdateEventInput{MaxPeople: nullable.Null[int]()}, host.ID)
		assert.ErrorIs(t, err, service.ErrBadRequest)
	})
	t.Run("not host", func(t *testing.T) {
		_, err := e.events.UpdateEvent(ctx, ev.ID, service.UpdateEventInput{Title: nullable.Of("x")}, e.fx.User().ID)
		assert.ErrorIs(t, err, service.ErrNotEventHost)
	})
	t.Run("capacity below roster", func(t *testing.T) {
		_, err := e.events.UpdateEvent(ctx, ev.ID, service.UpdateEventInput{MaxPeople: nullable.Of(2)}, host.ID)
		assert.ErrorIs(t, err, service.ErrRosterAboveCapacity)
	})
	t.Run("end before start", func(t *testing.T) {
		_, err := e.events.UpdateEvent(ctx, ev.ID, service.UpdateEventInput{EndTime: nullable.Of(now.Add(time.Hour))}, host.ID)
		assert.ErrorIs(t, err, service.ErrInvalidTimeRange)
	})
	t.Run("start moved into the past", func(t *testing.T) {
		_, err := e.events.UpdateEvent(ctx, ev.ID, service.UpdateEventInput{StartTime: nullable.Of(now.Add(-time.Hour))}, host.ID)
		assert.ErrorIs(t, err, service.ErrStartInPast)
	})
	t.Run("unknown city rolls back", func(t *testing.T) {
		_, err := e.events.UpdateEvent(ctx, ev.ID, service.UpdateEventInput{
			Title:   nullable.Of("Should not stick"),
			CityIDs: nullable.Of([]int64{a.ID, 9999}),
		}, host.ID)
		assert.ErrorIs(t, err, service.ErrCityNotFound)

		got, err := e.store.Events().GetByID(ctx, ev.ID)
		require.NoError(t, err)
		assert.Equal(t, "Renamed", got.Title)
		assert.ElementsMatch(t, []int64{b.ID, c.ID}, got.CityIDs())
	})
	t.Run("started", func(t *testing.T) {
		started := e.fx.Event(testutil.EventSpec{Host: host, Start: now.Add(-time.Hour)})
		_, err := e.events.UpdateEvent(ctx, started.ID, service.UpdateEventInput{Title: nullable.Of("x")}, host.ID)
		assert.ErrorIs(t, err, service.ErrEventStarted)
	})
}

func TestDeleteEvent(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	host := e.fx.User()
	ev := e.fx.Event(testutil.EventSpec{Host: host, Start: e.clock.Now().Add(time.Hour)})
	e.fx.EventMember(ev, e.fx.User())

	assert.ErrorIs(t, e.events.DeleteEvent(ctx, ev.ID, e.fx.User().ID), service.ErrNotEventHost)
	require.NoError(t, e.events.DeleteEvent(ctx, ev.ID, host.ID))

	assert.Zero(t, e.count(t, "events", "id = ?", ev.ID))
	assert.Zero(t, e.count(t, "event_memberships", "event_id = ?", ev.ID))
	assert.Zero(t, e.count(t, "event_cities", "event_id = ?", ev.ID))
	assert.ErrorIs(t, e.events.DeleteEvent(ctx, ev.ID, host.ID), service.ErrEventNotFound)
}

func TestExportCalendar(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	host := e.fx.User()
	city := &model.City{Name: "Seoul"}
	require.NoError(t, e.db.Create(city).Error)
	ev := e.fx.Event(testutil.EventSpec{Host: host, Cities: []*model.City{city}, Start: e.clock.Now().Add(time.Hour)})
	e.fx.Event(testutil.EventSpec{Host: e.fx.User(), Start: e.clock.Now().Add(time.Hour)})

	doc, err := e.events.ExportCalendar(ctx, ev.ID, 0)
	require.NoError(t, err)

	cal, err := ics.ParseCalendar(strings.NewReader(doc))
	require.NoError(t, err)
	events := cal.Events()
	require.Len(t, events, 1)
	assert.Equal(t, ev.Title, events[0].GetProperty(ics.ComponentPropertySummary).Value)
	assert.Equal(t, "Seoul", events[0].GetProperty(ics.ComponentPropertyLocation).Value)
	start, err := events[0].GetStartAt()
	require.NoError(t, err)
	assert.True(t, start.Equal(ev.StartTime))

	mine, err := e.events.ExportMyCalendar(ctx, host.ID)
	require.NoError(t, err)
	cal, err = ics.ParseCalendar(strings.NewReader(mine))
	require.NoError(t, err)
	assert.Len(t, cal.Events(), 1)
}
