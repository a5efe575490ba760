package model

import "time"

type Review struct {
	ID          int64     `gorm:"primaryKey" json:"id"`
	EventID     int64     `gorm:"not null;uniqueIndex:idx_reviews_event_user" json:"event_id"`
	UserID      int64     `gorm:"not null;uniqueIndex:idx_reviews_event_user;index" json:"user_id"`
	Score       int       `gorm:"not null" json:"score"`
	Title       string    `gorm:"type:varchar(256);not null" json:"title"`
	Description string    `gorm:"type:text;not null" json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

func (Review) TableName() string { return "reviews" }
