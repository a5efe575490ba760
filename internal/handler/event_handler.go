package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"eventory/api/internal/repository"
	"eventory/api/internal/service"
	"eventory/api/pkg/response"
)

const calendarContentType = "text/calendar; charset=utf-8"

type EventHandler struct {
	eventService service.EventService
	logger       *zap.Logger
}

func NewEventHandler(eventService service.EventService, logger *zap.Logger) *EventHandler {
	return &EventHandler{eventService: eventService, logger: logger}
}

type CreateEventRequest struct {
	Title       string    `json:"title" binding:"required,max=256"`
	Description string    `json:"description"`
	CategoryID  int64     `json:"categoryId" binding:"required,min=1"`
	CityIDs     []int64   `json:"cityIds" binding:"required,min=1,dive,min=1"`
	StartTime   time.Time `json:"startTime" binding:"required"`
	EndTime     time.Time `json:"endTime" binding:"required"`
	MaxPeople   int       `json:"maxPeople" binding:"required,min=1"`
	ClubID      *int64    `json:"clubId" binding:"omitempty,min=1"`
}

func (h *EventHandler) Create(c *gin.Context) {
	userID, err := currentUserID(c)
	if err != nil {
		response.Unauthorized(c, "missing authentication")
		return
	}
	var req CreateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	event, err := h.eventService.CreateEvent(c.Request.Context(), service.CreateEventInput{
		HostID:      userID,
		Title:       req.Title,
		Description: req.Description,
		CategoryID:  req.CategoryID,
		CityIDs:     req.CityIDs,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		MaxPeople:   req.MaxPeople,
		ClubID:      req.ClubID,
	})
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	response.Created(c, event)
}

func (h *EventHandler) List(c *gin.Context) {
	var filter repository.EventFilter
	for name, dst := range map[string]**int64{
		"categoryId": &filter.CategoryID,
		"cityId":     &filter.CityID,
		"hostId":     &filter.HostID,
		"clubId":     &filter.ClubID,
	} {
		id, ok := queryID(c, name)
		if !ok {
			return
		}
		*dst = id
	}

	events, err := h.eventService.GetEvents(c.Request.Context(), filter, viewerID(c))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	response.Success(c, events)
}

func (h *EventHandler) Get(c *gin.Context) {
	eventID, ok := pathID(c, "eventId")
	if !ok {
		return
	}

	event, err := h.eventService.GetEvent(c.Request.Context(), eventID, viewerID(c))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	response.Success(c, event)
}

func (h *EventHandler) Update(c *gin.Context) {
	userID, err := currentUserID(c)
	if err != nil {
		response.Unauthorized(c, "missing authentication")
		return
	}
	eventID, ok := pathID(c, "eventId")
	if !ok {
		return
	}
	var req service.UpdateEventInput
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	event, err := h.eventService.UpdateEvent(c.Request.Context(), eventID, req, userID)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	response.Success(c, event)
}

func (h *EventHandler) Delete(c *gin.Context) {
	userID, err := currentUserID(c)
	if err != nil {
		response.Unauthorized(c, "missing authentication")
		return
	}
	eventID, ok := pathID(c, "eventId")
	if !ok {
		return
	}

	if err := h.eventService.DeleteEvent(c.Request.Context(), eventID, userID); err != nil {
		writeError(c, h.logger, err)
		return
	}

	response.NoContent(c)
}

func (h *EventHandler) Join(c *gin.Context) {
	userID, err := currentUserID(c)
	if err != nil {
		response.Unauthorized(c, "missing authentication")
		return
	}
	eventID, ok := pathID(c, "eventId")
	if !ok {
		return
	}

	if err := h.eventService.JoinEvent(c.Request.Context(), eventID, userID); err != nil {
		writeError(c, h.logger, err)
		return
	}

	response.NoContent(c)
}

func (h *EventHandler) Leave(c *gin.Context) {
	userID, err := currentUserID(c)
	if err != nil {
		response.Unauthorized(c, "missing authentication")
		return
	}
	eventID, ok := pathID(c, "eventId")
	if !ok {
		return
	}

	if err := h.eventService.LeaveEvent(c.Request.Context(), eventID, userID); err != nil {
		writeError(c, h.logger, err)
		return
	}

	response.NoContent(c)
}

func (h *EventHandler) Calendar(c *gin.Context) {
	eventID, ok := pathID(c, "eventId")
	if !ok {
		return
	}

	doc, err := h.eventService.ExportCalendar(c.Request.Context(), eventID, viewerID(c))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	writeCalendar(c, fmt.Sprintf("event-%d.ics", eventID), doc)
}

func (h *EventHandler) MyCalendar(c *gin.Context) {
	userID, err := currentUserID(c)
	if err != nil {
		response.Unauthorized(c, "missing authentication")
		return
	}

	doc, err := h.eventService.ExportMyCalendar(c.Request.Context(), userID)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	writeCalendar(c, "my-events.ics", doc)
}

func writeCalendar(c *gin.Context, filename, doc string) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, calendarContentType, []byte(doc))
}
