package model

import "time"

type Event struct {
	ID          int64     `gorm:"primaryKey" json:"id"`
	HostID      int64     `gorm:"not null;index" json:"host_id"`
	Title       string    `gorm:"type:varchar(256);not null" json:"title"`
	Description string    `gorm:"type:text;not null" json:"description"`
	CategoryID  int64     `gorm:"not null;index" json:"category_id"`
	ClubID      *int64    `gorm:"index" json:"club_id"`
	StartTime   time.Time `gorm:"not null;index" json:"start_time"`
	EndTime     time.Time `gorm:"not null" json:"end_time"`
	MaxPeople   int       `gorm:"not null" json:"max_people"`
	IsArchived  bool      `gorm:"not null;default:false" json:"is_archived"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	Cities []EventCity `gorm:"foreignKey:EventID" json:"-"`
}

func (Event) TableName() string { return "events" }

// CityIDs lists the ids of the preloaded city associations.
func (e *Event) CityIDs() []int64 {
	ids := make([]int64, 0, len(e.Cities))
	for _, c := range e.Cities {
		ids = append(ids, c.CityID)
	}
	return ids
}

// HasStarted reports whether the event's start time is at or before now.
func (e *Event) HasStarted(now time.Time) bool {
	return !e.StartTime.After(now)
}

type EventCity struct {
	EventID int64 `gorm:"primaryKey;autoIncrement:false" json:"event_id"`
	CityID  int64 `gorm:"primaryKey;autoIncrement:false;index" json:"city_id"`
}

func (EventCity) TableName() string { return "event_cities" }

type EventMembership struct {
	EventID   int64     `gorm:"primaryKey;autoIncrement:false" json:"event_id"`
	UserID    int64     `gorm:"primaryKey;autoIncrement:false;index" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

func (EventMembership) TableName() string { return "event_memberships" }
