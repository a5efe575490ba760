package service

import (
	"context"
	"fmt"
	"strings"

	ics "github.com/arran4/golang-ical"

	"eventory/api/internal/model"
)

const calendarProductID = "-//eventory//events//EN"

func (s *eventService) ExportCalendar(ctx context.Context, eventID, viewerID int64) (string, error) {
	detail, err := s.GetEvent(ctx, eventID, viewerID)
	if err != nil {
		return "", err
	}
	cityNames, err := s.cityNames(ctx, detail.CityIDs)
	if err != nil {
		return "", err
	}

	cal := s.newCalendar()
	addCalendarEvent(cal, detail.Event, cityNames)
	return cal.Serialize(), nil
}

func (s *eventService) ExportMyCalendar(ctx context.Context, userID int64) (string, error) {
	events, err := s.store.Events().ListJoinedBy(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("list joined events: %w", err)
	}

	var ids []int64
	for _, e := range events {
		ids = append(ids, e.CityIDs()...)
	}
	cityNames, err := s.cityNames(ctx, uniqueIDs(ids))
	if err != nil {
		return "", err
	}

	cal := s.newCalendar()
	for _, e := range events {
		addCalendarEvent(cal, e, cityNames)
	}
	return cal.Serialize(), nil
}

func (s *eventService) newCalendar() *ics.Calendar {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId(calendarProductID)
	return cal
}

func (s *eventService) cityNames(ctx context.Context, ids []int64) (map[int64]string, error) {
	cities, err := s.store.Catalog().CitiesByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("get cities: %w", err)
	}
	names := make(map[int64]string, len(cities))
	for _, c := range cities {
		names[c.ID] = c.Name
	}
	return names, nil
}

func addCalendarEvent(cal *ics.Calendar, e model.Event, cityNames map[int64]string) {
	ev := cal.AddEvent(fmt.Sprintf("event-%d@eventory", e.ID))
	ev.SetCreatedTime(e.CreatedAt)
	ev.SetDtStampTime(e.UpdatedAt)
	ev.SetModifiedAt(e.UpdatedAt)
	ev.SetStartAt(e.StartTime)
	ev.SetEndAt(e.EndTime)
	ev.SetSummary(e.Title)
	if e.Description != "" {
		ev.SetDescription(e.Description)
	}

	var locations []string
	for _, id := range e.CityIDs() {
		if name, ok := cityNames[id]; ok {
			locations = append(locations, name)
		}
	}
	if len(locations) > 0 {
		ev.SetLocation(strings.Join(locations, ", "))
	}
}
